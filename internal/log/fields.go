// SPDX-License-Identifier: MIT

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID = "request_id"
	FieldRunID     = "run_id"
	FieldEventID   = "event_id"

	// Process / pipeline fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldStage     = "stage"

	// Schedule fields
	FieldDay      = "day"
	FieldChannels = "channels"
	FieldSegments = "segments"
	FieldSkipped  = "skipped"

	// Path / URL fields
	FieldPath    = "path"
	FieldBaseURL = "base_url"
)
