// SPDX-License-Identifier: MIT

package ingest

import (
	"strings"
	"time"

	"github.com/chasut/eplustv-ah4c/internal/store"
	"github.com/chasut/eplustv-ah4c/internal/watchapi"
)

// Normalize maps one raw airing to an event row. It returns false when the
// airing has no usable identifier or timestamps; such rows are counted and
// dropped by the caller.
func Normalize(a watchapi.Airing) (store.Event, bool) {
	id := firstNonEmpty(a.ID, a.AiringID, a.SimulcastAiringID)
	if id == "" {
		return store.Event{}, false
	}

	start, err := time.Parse(time.RFC3339, a.Start)
	if err != nil {
		return store.Event{}, false
	}
	stop, err := time.Parse(time.RFC3339, a.Stop)
	if err != nil {
		return store.Event{}, false
	}

	sport := strings.TrimSpace(a.SportName)
	if sport == "" {
		sport = "sports"
	}

	return store.Event{
		ID:        id,
		Title:     firstNonEmpty(a.ShortName, a.Name, "Untitled"),
		Subtitle:  firstNonEmpty(a.NetworkShort, a.NetworkName),
		Sport:     sport,
		League:    firstNonEmpty(a.LeagueAbbrev, a.LeagueName),
		EventType: a.Type,
		Start:     start.UTC(),
		Stop:      stop.UTC(),
	}, true
}

// hasPackage reports whether the airing belongs to the wanted package; an
// empty filter keeps everything.
func hasPackage(a watchapi.Airing, want string) bool {
	if want == "" {
		return true
	}
	for _, pkg := range a.Packages {
		if strings.EqualFold(pkg, want) {
			return true
		}
	}
	return false
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
