// SPDX-License-Identifier: MIT

// Package guide compiles a flat event schedule into a temporal programme
// grid: one transient channel per event, padded with synthetic stand-by and
// event-ended filler segments.
package guide

import (
	"time"

	"github.com/chasut/eplustv-ah4c/internal/store"
)

// State classifies an event relative to a reference instant. It is computed
// fresh on every compile and never persisted.
type State int

const (
	StateUpcoming State = iota
	StateLive
	StateEnded
)

func (s State) String() string {
	switch s {
	case StateUpcoming:
		return "upcoming"
	case StateLive:
		return "live"
	case StateEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// Classify returns the event state at now for the half-open interval [start, stop).
func Classify(now, start, stop time.Time) State {
	switch {
	case start.After(now):
		return StateUpcoming
	case now.Before(stop):
		return StateLive
	default:
		return StateEnded
	}
}

// Kind identifies the type of a programme segment.
type Kind int

const (
	KindStandBy Kind = iota
	KindLiveEvent
	KindEventEnded
)

func (k Kind) String() string {
	switch k {
	case KindStandBy:
		return "standby"
	case KindLiveEvent:
		return "event"
	case KindEventEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// Segment is one programme slot on a channel, covering [Start, Stop).
type Segment struct {
	Kind  Kind
	Start time.Time
	Stop  time.Time
	Title string
	Desc  string
	// Live is true only for the event segment of a currently running event.
	Live bool
}

// Channel is one display lane, mapped 1:1 to a compiled event.
//
// Numbering is positional within a single compile: as the event set changes
// between runs, the same event may land on a different number. Consumers must
// not cache a number-to-event mapping.
type Channel struct {
	Number   int
	Event    store.Event
	State    State
	Segments []Segment
}

// DisplayTitle returns the channel's event title, defaulted when empty.
func (c Channel) DisplayTitle() string {
	if c.Event.Title == "" {
		return "Unknown Event"
	}
	return c.Event.Title
}

// Options holds the compile-window parameters.
type Options struct {
	Lookahead     time.Duration
	Grace         time.Duration
	StandbyBlock  time.Duration
	MaxStandby    time.Duration
	EndedDuration time.Duration
}

// DefaultOptions returns the standard window parameters.
func DefaultOptions() Options {
	return Options{
		Lookahead:     6 * time.Hour,
		Grace:         65 * time.Minute,
		StandbyBlock:  30 * time.Minute,
		MaxStandby:    6 * time.Hour,
		EndedDuration: 30 * time.Minute,
	}
}

// SelectionBounds returns the store-query bounds for a compile at now:
// events with stop > now-grace and start <= now+lookahead. Grace keeps a
// just-concluded event selectable so its ended placeholder survives
// consecutive runs; lookahead keeps far-future events out until standby
// coverage can reach them.
func (o Options) SelectionBounds(now time.Time) (stopAfter, startUpTo time.Time) {
	return now.Add(-o.Grace), now.Add(o.Lookahead)
}
