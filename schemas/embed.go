// Package schemas holds the JSON Schemas for the persisted annotation formats.
package schemas

import _ "embed"

// Annotations is the schema of the per-job annotation document.
//
//go:embed annotations.schema.json
var Annotations string

// Feedback is the schema of a feedback capture request.
//
//go:embed feedback.schema.json
var Feedback string
