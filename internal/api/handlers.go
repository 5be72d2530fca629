// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/chasut/eplustv-ah4c/internal/jobs"
	xlog "github.com/chasut/eplustv-ah4c/internal/log"
	"github.com/chasut/eplustv-ah4c/internal/metrics"
	"github.com/chasut/eplustv-ah4c/internal/version"
)

// handleArtifact serves one generated file from the data directory with an
// mtime/size ETag so polling IPTV clients can revalidate cheaply.
func (s *Server) handleArtifact(name, contentType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := xlog.WithComponentFromContext(r.Context(), "api")

		path := filepath.Join(s.cfg.DataDir, name)
		f, err := os.Open(path) // #nosec G304 -- name is one of two fixed artifact names
		if err != nil {
			if os.IsNotExist(err) {
				metrics.RecordFileRequestDenied("not_found")
				http.Error(w, "Not found", http.StatusNotFound)
				return
			}
			logger.Error().Err(err).Str(xlog.FieldPath, path).Msg("open artifact")
			metrics.RecordFileRequestDenied("internal_error")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		defer func() { _ = f.Close() }()

		info, err := f.Stat()
		if err != nil || info.IsDir() {
			metrics.RecordFileRequestDenied("internal_error")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		etag := fmt.Sprintf(`"%x-%x"`, info.ModTime().UnixNano(), info.Size())
		w.Header().Set("ETag", etag)
		w.Header().Set("Content-Type", contentType)
		if match := r.Header.Get("If-None-Match"); match == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}

		http.ServeContent(w, r, name, info.ModTime(), f)
	}
}

type statusResponse struct {
	Version string      `json:"version"`
	Commit  string      `json:"commit"`
	Uptime  string      `json:"uptime"`
	LastRun jobs.Status `json:"last_run"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{
		Version: version.Version,
		Commit:  version.Commit,
		Uptime:  time.Since(s.startTime).Round(time.Second).String(),
		LastRun: s.runner.Status(),
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if !s.authorizeRefresh(r) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	status, err := s.runner.Run(r.Context())
	if err != nil {
		l := xlog.WithComponentFromContext(r.Context(), "api")
		l.Error().
			Err(err).Str("event", "refresh.api_failed").Msg("refresh failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReadyz reports ready once the store answers and both artifacts exist.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{}
	ready := true

	if _, err := s.store.CountLive(r.Context(), time.Now()); err != nil {
		checks["store"] = err.Error()
		ready = false
	} else {
		checks["store"] = "ok"
	}

	for _, name := range []string{jobs.PlaylistFile, jobs.GuideFile} {
		if _, err := os.Stat(filepath.Join(s.cfg.DataDir, name)); err != nil {
			checks[name] = "missing"
			ready = false
		} else {
			checks[name] = "ok"
		}
	}

	code := http.StatusOK
	if !ready {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, checks)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
