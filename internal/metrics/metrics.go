// SPDX-License-Identifier: MIT

// Package metrics exposes Prometheus instrumentation for the schedule
// pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ingest metrics
	fetchDaysTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eplustv_fetch_days_total",
		Help: "Schedule-day fetch attempts by outcome",
	}, []string{"outcome"}) // outcome=success|failure

	eventsStored = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "eplustv_events_stored",
		Help: "Rows written to the event store in the last ingest run",
	})

	// Compile metrics
	channelsCompiled = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "eplustv_channels_compiled",
		Help: "Channels emitted by the last guide compile",
	})

	segmentsCompiled = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "eplustv_segments_compiled",
		Help: "Programme segments emitted by the last guide compile",
	})

	eventsSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "eplustv_events_skipped_total",
		Help: "Events excluded from compilation for data-quality reasons",
	})

	// Refresh metrics
	refreshFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eplustv_refresh_failures_total",
		Help: "Refresh failures by stage",
	}, []string{"stage"}) // stage=window|write_m3u|write_xmltv|ingest

	refreshDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "eplustv_refresh_duration_seconds",
		Help:    "Wall time of a full refresh run",
		Buckets: prometheus.DefBuckets,
	})

	artifactWritesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eplustv_artifact_writes_total",
		Help: "Artifact writes by file",
	}, []string{"artifact"}) // artifact=playlist|guide

	// API metrics
	fileRequestsDenied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eplustv_file_requests_denied_total",
		Help: "Artifact download requests denied by reason",
	}, []string{"reason"})

	authFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "eplustv_auth_failures_total",
		Help: "Rejected refresh-endpoint authentications",
	})
)

func RecordFetchDay(outcome string) {
	fetchDaysTotal.WithLabelValues(outcome).Inc()
}

func RecordEventsStored(n int) {
	eventsStored.Set(float64(n))
}

func RecordCompile(channels, segments, skipped int) {
	channelsCompiled.Set(float64(channels))
	segmentsCompiled.Set(float64(segments))
	if skipped > 0 {
		eventsSkippedTotal.Add(float64(skipped))
	}
}

func RecordRefreshFailure(stage string) {
	refreshFailuresTotal.WithLabelValues(stage).Inc()
}

func RecordRefreshDuration(seconds float64) {
	refreshDuration.Observe(seconds)
}

func RecordArtifactWrite(artifact string) {
	artifactWritesTotal.WithLabelValues(artifact).Inc()
}

func RecordFileRequestDenied(reason string) {
	fileRequestsDenied.WithLabelValues(reason).Inc()
}

func RecordAuthFailure() {
	authFailuresTotal.Inc()
}
