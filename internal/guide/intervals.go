// SPDX-License-Identifier: MIT

package guide

import "time"

type interval struct {
	start time.Time
	stop  time.Time
}

// standbyIntervals subdivides [now, start) into half-open blocks of at most
// block length, the last one truncated to end exactly at start.
//
// When the gap exceeds cap, no blocks are produced at all: coverage is never
// backfilled from start-cap, so an event further out than cap simply has no
// standby filler yet. The selection lookahead equals cap by default, which
// keeps that case rare, but it is a known limitation rather than a gap-free
// guarantee.
func standbyIntervals(now, start time.Time, block, cap time.Duration) []interval {
	if block <= 0 {
		return nil
	}
	if !start.After(now) {
		return nil // never tile past time
	}
	if start.Sub(now) > cap {
		return nil
	}

	out := make([]interval, 0, int(start.Sub(now)/block)+1)
	for cur := now; cur.Before(start); cur = cur.Add(block) {
		stop := cur.Add(block)
		if stop.After(start) {
			stop = start
		}
		out = append(out, interval{start: cur, stop: stop})
	}
	return out
}
