// SPDX-License-Identifier: MIT

package guide

import (
	"fmt"
	"sort"
	"time"

	"github.com/chasut/eplustv-ah4c/internal/store"
)

// Result is the output of one compile run.
type Result struct {
	Channels []Channel
	// Skipped lists IDs of events excluded for data-quality reasons
	// (zero or reversed timestamps). The caller logs them.
	Skipped []string
}

// Segments returns the total segment count across all channels.
func (r Result) Segments() int {
	n := 0
	for _, ch := range r.Channels {
		n += len(ch.Segments)
	}
	return n
}

// Compile turns the selected events into an ordered channel grid at now.
//
// It is a pure function of its arguments: no clock reads, no randomness, no
// retained state. The same events and the same now produce an identical
// result, which is what makes back-to-back regeneration safe.
func Compile(events []store.Event, now time.Time, opts Options) Result {
	sorted := make([]store.Event, len(events))
	copy(sorted, events)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if !a.Start.Equal(b.Start) {
			return a.Start.Before(b.Start)
		}
		if a.Title != b.Title {
			return a.Title < b.Title
		}
		return a.ID < b.ID
	})

	var res Result
	for _, ev := range sorted {
		if ev.Start.IsZero() || ev.Stop.IsZero() || !ev.Stop.After(ev.Start) {
			res.Skipped = append(res.Skipped, ev.ID)
			continue
		}

		ch := Channel{
			Number: len(res.Channels) + 1,
			Event:  ev,
			State:  Classify(now, ev.Start, ev.Stop),
		}
		ch.Segments = synthesize(ev, ch.State, now, opts)
		res.Channels = append(res.Channels, ch)
	}
	return res
}

// synthesize emits the segment sequence for one event: standby filler while
// the event is still upcoming, the event slot itself, and the trailing ended
// placeholder.
func synthesize(ev store.Event, state State, now time.Time, opts Options) []Segment {
	var segs []Segment

	if state == StateUpcoming {
		for _, iv := range standbyIntervals(now, ev.Start, opts.StandbyBlock, opts.MaxStandby) {
			segs = append(segs, Segment{
				Kind:  KindStandBy,
				Start: iv.start,
				Stop:  iv.stop,
				Title: "STAND BY",
				Desc:  fmt.Sprintf("Event starts at %s UTC", ev.Start.UTC().Format("15:04")),
			})
		}
	}

	segs = append(segs, Segment{
		Kind:  KindLiveEvent,
		Start: ev.Start,
		Stop:  ev.Stop,
		Title: eventTitle(ev),
		Live:  state == StateLive,
	})

	segs = append(segs, Segment{
		Kind:  KindEventEnded,
		Start: ev.Stop,
		Stop:  ev.Stop.Add(opts.EndedDuration),
		Title: "EVENT ENDED",
		Desc:  "This event has concluded",
	})

	return segs
}

func eventTitle(ev store.Event) string {
	if ev.Title == "" {
		return "Unknown Event"
	}
	return ev.Title
}
