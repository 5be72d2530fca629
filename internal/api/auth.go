// SPDX-License-Identifier: MIT

package api

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/chasut/eplustv-ah4c/internal/metrics"
)

// authorizeRefresh gates the refresh trigger. With a token configured, the
// request must present it via X-API-Token or a Bearer header. Without a
// token the endpoint is fail-closed unless anonymous access was explicitly
// allowed.
func (s *Server) authorizeRefresh(r *http.Request) bool {
	token := s.cfg.APIToken
	if token == "" {
		return s.cfg.AllowAnonymous
	}

	presented := r.Header.Get("X-API-Token")
	if presented == "" {
		if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
			presented = strings.TrimPrefix(auth, "Bearer ")
		}
	}
	if presented == "" {
		metrics.RecordAuthFailure()
		return false
	}
	if subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
		metrics.RecordAuthFailure()
		return false
	}
	return true
}
