// SPDX-License-Identifier: MIT

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID = "request_id"
	FieldRunID     = "run_id"

	// Process / pipeline fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldCity      = "city"
	FieldCategory  = "category"
	FieldYear      = "year"
	FieldSource    = "source"
	FieldModel     = "model"

	// Outcome fields
	FieldOutcome  = "outcome"
	FieldDuration = "duration_ms"
)
