// SPDX-License-Identifier: MIT

package epg

import (
	"fmt"
	"strings"

	"github.com/chasut/eplustv-ah4c/internal/guide"
	"github.com/chasut/eplustv-ah4c/internal/store"
)

// Branding carries the display identity used for channel ids and names.
type Branding struct {
	// Brand is the human-facing prefix, e.g. "EPlusTV".
	Brand string
	// ChannelSlug is the machine id prefix, e.g. "eplustv"; channel ids are
	// slug + channel number.
	ChannelSlug string
	// Generator/GeneratorURL populate the root element attribution.
	Generator    string
	GeneratorURL string
}

// ChannelID returns the XMLTV channel id for channel number n.
func (b Branding) ChannelID(n int) string {
	return fmt.Sprintf("%s%d", b.ChannelSlug, n)
}

// DisplayName returns the human-facing lane name for a compiled channel:
// "<brand> <n>: <title>" with the league appended when known.
func (b Branding) DisplayName(ch guide.Channel) string {
	name := fmt.Sprintf("%s %d: %s", b.Brand, ch.Number, ch.DisplayTitle())
	if ch.Event.League != "" {
		name += fmt.Sprintf(" (%s)", ch.Event.League)
	}
	return name
}

const lang = "en"

// Build assembles the XMLTV document for one compile run. Channel blocks come
// first, then every channel's segments in channel order.
func Build(channels []guide.Channel, b Branding) *TV {
	tv := &TV{
		Generator:    b.Generator,
		GeneratorURL: b.GeneratorURL,
		Channels:     make([]Channel, 0, len(channels)),
		Programmes:   make([]Programme, 0, len(channels)*3),
	}

	for _, ch := range channels {
		tv.Channels = append(tv.Channels, Channel{
			ID:          b.ChannelID(ch.Number),
			DisplayName: []string{b.DisplayName(ch)},
		})
	}

	for _, ch := range channels {
		for _, seg := range ch.Segments {
			tv.Programmes = append(tv.Programmes, buildProgramme(ch, seg, b))
		}
	}
	return tv
}

func buildProgramme(ch guide.Channel, seg guide.Segment, b Branding) Programme {
	prog := Programme{
		Start:   formatXMLTVTime(seg.Start),
		Stop:    formatXMLTVTime(seg.Stop),
		Channel: b.ChannelID(ch.Number),
		Title:   Text{Lang: lang, Value: seg.Title},
	}

	if seg.Kind != guide.KindLiveEvent {
		if seg.Desc != "" {
			prog.Desc = &Text{Lang: lang, Value: seg.Desc}
		}
		return prog
	}

	if sub := subtitle(ch.Event); sub != "" {
		prog.SubTitle = &Text{Lang: lang, Value: sub}
	}
	if desc := describe(ch.Event, ch.State); desc != "" {
		prog.Desc = &Text{Lang: lang, Value: desc}
	}
	for _, cat := range categories(ch.Event) {
		prog.Categories = append(prog.Categories, Text{Lang: lang, Value: cat})
	}
	if seg.Live {
		prog.Live = &struct{}{}
	}
	return prog
}

func subtitle(ev store.Event) string {
	if ev.Subtitle != "" {
		return ev.Subtitle
	}
	return ev.League
}

// uninterestingTypes are event-type labels that add nothing over the status
// clause and are dropped from descriptions.
var uninterestingTypes = map[string]struct{}{
	"":         {},
	"live":     {},
	"upcoming": {},
}

// describe composes the human-readable description for an event programme.
// Absent fields omit their clause; the composition is deterministic.
func describe(ev store.Event, state guide.State) string {
	var clauses []string
	if ev.Sport != "" {
		clauses = append(clauses, "Sport: "+ev.Sport)
	}
	if ev.League != "" {
		clauses = append(clauses, "League: "+ev.League)
	}
	if ev.Subtitle != "" {
		clauses = append(clauses, "Network: "+ev.Subtitle)
	}
	switch state {
	case guide.StateLive:
		clauses = append(clauses, "Status: LIVE NOW")
	case guide.StateUpcoming:
		clauses = append(clauses, "Status: Upcoming")
	}
	if _, dull := uninterestingTypes[strings.ToLower(ev.EventType)]; !dull {
		clauses = append(clauses, "Type: "+ev.EventType)
	}
	return strings.Join(clauses, " | ")
}

// categories returns the normalized category list for an event programme:
// two fixed top-level categories, the sport, and the league, with
// case-insensitive duplicates dropped.
func categories(ev store.Event) []string {
	out := []string{"Sports", "Sports event"}
	for _, cand := range []string{ev.Sport, ev.League} {
		if cand == "" {
			continue
		}
		dup := false
		for _, have := range out {
			if strings.EqualFold(have, cand) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, cand)
		}
	}
	return out
}
