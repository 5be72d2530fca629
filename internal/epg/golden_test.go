// SPDX-License-Identifier: MIT

package epg

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/chasut/eplustv-ah4c/internal/guide"
	"github.com/chasut/eplustv-ah4c/internal/store"
	"github.com/google/go-cmp/cmp"
)

// TestGoldenGuide pins the full document byte-for-byte: one live event and
// one upcoming event with a truncated final standby block.
func TestGoldenGuide(t *testing.T) {
	now := time.Date(2026, 3, 14, 17, 15, 0, 0, time.UTC)
	events := []store.Event{
		{
			ID:       "evt-a",
			Title:    "Rangers vs Devils",
			Sport:    "Hockey",
			League:   "NHL",
			Subtitle: "ESPN2",
			Start:    time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC),
			Stop:     time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC),
		},
		{
			ID:    "evt-b",
			Title: "Cup Final",
			Sport: "Soccer",
			Start: time.Date(2026, 3, 14, 17, 0, 0, 0, time.UTC),
			Stop:  time.Date(2026, 3, 14, 19, 0, 0, 0, time.UTC),
		},
	}

	res := guide.Compile(events, now, guide.DefaultOptions())
	got, err := Render(Build(res.Channels, testBranding))
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	goldenPath := filepath.Join("testdata", "guide.golden.xml")
	want, err := os.ReadFile(goldenPath)
	if err != nil {
		t.Fatalf("read golden file: %v", err)
	}

	if diff := cmp.Diff(string(want), string(got)); diff != "" {
		t.Errorf("document mismatch (-golden +got):\n%s", diff)
	}
}

// Two runs over the same inputs must produce byte-identical documents.
func TestRenderIsDeterministic(t *testing.T) {
	now := time.Date(2026, 3, 14, 17, 15, 0, 0, time.UTC)
	events := []store.Event{
		{ID: "e1", Title: "Match A", Sport: "Hockey", Start: now.Add(time.Hour), Stop: now.Add(3 * time.Hour)},
		{ID: "e2", Title: "Match B", Sport: "Soccer", Start: now.Add(-time.Hour), Stop: now.Add(time.Hour)},
	}

	first, err := Render(Build(guide.Compile(events, now, guide.DefaultOptions()).Channels, testBranding))
	if err != nil {
		t.Fatal(err)
	}
	second, err := Render(Build(guide.Compile(events, now, guide.DefaultOptions()).Channels, testBranding))
	if err != nil {
		t.Fatal(err)
	}
	if string(first) != string(second) {
		t.Error("repeated renders differ")
	}
}

func TestRenderEmptyGrid(t *testing.T) {
	got, err := Render(Build(nil, testBranding))
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	want := `<?xml version="1.0" encoding="UTF-8"?>` + "\n" +
		`<tv generator-info-name="eplustv-ah4c" generator-info-url="https://github.com/chasut/eplustv-ah4c"></tv>` + "\n"
	if string(got) != want {
		t.Errorf("empty grid = %q, want %q", got, want)
	}
}
