// SPDX-License-Identifier: MIT

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/chasut/eplustv-ah4c/internal/config"
	"github.com/chasut/eplustv-ah4c/internal/epg"
	"github.com/chasut/eplustv-ah4c/internal/guide"
	"github.com/chasut/eplustv-ah4c/internal/jobs"
	"github.com/chasut/eplustv-ah4c/internal/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var apiNow = time.Date(2026, 3, 14, 17, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, mutate func(*config.Config)) *Server {
	t.Helper()

	dir := t.TempDir()
	cfg := config.Defaults()
	cfg.DataDir = filepath.Join(dir, "out")
	cfg.DBPath = filepath.Join(dir, "schedule.db")
	if mutate != nil {
		mutate(&cfg)
	}

	st, err := store.Open(cfg.DBPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	_, err = st.UpsertEvents(context.Background(), []store.Event{
		{ID: "e1", Title: "Match", Sport: "Hockey", League: "NHL",
			Start: apiNow.Add(time.Hour), Stop: apiNow.Add(3 * time.Hour)},
	})
	require.NoError(t, err)

	runner := jobs.NewRunner(jobs.Deps{
		Store:        st,
		DataDir:      cfg.DataDir,
		Branding:     epg.Branding{Brand: cfg.Brand, ChannelSlug: "eplustv"},
		DeeplinkBase: cfg.DeeplinkBase,
		Options:      guide.DefaultOptions(),
		Now:          func() time.Time { return apiNow },
	})

	return New(&cfg, runner, st)
}

func refreshOnce(t *testing.T, s *Server) {
	t.Helper()
	_, err := s.runner.Run(context.Background())
	require.NoError(t, err)
}

func TestArtifactNotFoundBeforeRefresh(t *testing.T) {
	s := newTestServer(t, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/playlist.m3u", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestArtifactDownloadAndETag(t *testing.T) {
	s := newTestServer(t, nil)
	refreshOnce(t, s)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/guide.xml", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/xml")
	assert.Contains(t, rec.Body.String(), "<tv")

	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)

	req := httptest.NewRequest(http.MethodGet, "/guide.xml", nil)
	req.Header.Set("If-None-Match", etag)
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotModified, rec.Code)
}

func TestPlaylistContentType(t *testing.T) {
	s := newTestServer(t, nil)
	refreshOnce(t, s)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/playlist.m3u", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "audio/x-mpegurl", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "#EXTM3U")
}

func TestStatusEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	refreshOnce(t, s)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Version)
	assert.Equal(t, 1, resp.LastRun.Channels)
}

func TestRefreshRequiresToken(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) { c.APIToken = "sekrit" })

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/refresh", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/refresh", nil)
	req.Header.Set("X-API-Token", "wrong")
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/refresh", nil)
	req.Header.Set("Authorization", "Bearer sekrit")
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRefreshFailsClosedWithoutToken(t *testing.T) {
	s := newTestServer(t, nil) // no token, anonymous not allowed

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/refresh", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefreshAnonymousWhenAllowed(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) { c.AllowAnonymous = true })

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/refresh", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var status jobs.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, 1, status.Channels)
}

func TestRefreshRateLimited(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) { c.AllowAnonymous = true })
	h := s.Handler()

	// limiter allows 6 posts per IP per minute; the 7th must be rejected
	for i := 0; i < 6; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/refresh", nil))
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i+1)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/refresh", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestReadyzTransitions(t *testing.T) {
	s := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	refreshOnce(t, s)

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSecurityHeaders(t *testing.T) {
	s := newTestServer(t, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestServerStartShutdown(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) { c.Listen = "127.0.0.1:0" })

	done := make(chan error, 1)
	go func() { done <- s.Start() }()

	// give the listener a beat, then shut down cleanly
	time.Sleep(50 * time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))
	require.NoError(t, <-done)
}
