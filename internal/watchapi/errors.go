// SPDX-License-Identifier: MIT

package watchapi

import (
	"errors"
	"fmt"
)

// ErrNoAPIKey is returned when a client is asked to fetch without a key.
var ErrNoAPIKey = errors.New("watchapi: no API key configured")

// APIError describes a failed exchange with the schedule API. Status is the
// HTTP status code, or 0 when the failure was a GraphQL-level error carried
// in a 200 response.
type APIError struct {
	Op     string
	Status int
	Body   string
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("watchapi: %s: %s", e.Op, e.Body)
	}
	return fmt.Sprintf("watchapi: %s: status %d: %s", e.Op, e.Status, e.Body)
}

// bodyPrefix truncates a response body for error messages and logs.
func bodyPrefix(b []byte) string {
	const max = 200
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}
