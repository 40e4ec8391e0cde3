package models

import (
	"encoding/json"
	"time"
)

// Report represents the persisted outcome of report computation for one
// assignment. Content is stored as a single JSONB document; recomputation
// replaces it whole (upsert on assignment id).
type Report struct {
	ID           int           `json:"id" yaml:"id"`
	AssignmentID int           `json:"assignment_id" yaml:"assignment_id"`
	AssessmentID int           `json:"assessment_id" yaml:"assessment_id"`
	UserID       int           `json:"user_id" yaml:"user_id"`
	Kind         string        `json:"kind" yaml:"kind"`
	Content      ReportContent `json:"content" yaml:"content"`
	CreatedAt    time.Time     `json:"created_at" yaml:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at" yaml:"updated_at"`
}

// ReportContent is the structured document the external exporter consumes.
// Library reports carry feedback and benchmarks; 360 reports carry the
// qualitative groups.
type ReportContent struct {
	Kind        string                     `json:"kind" yaml:"kind"`
	Feedback    []ReportFeedbackAssignment `json:"feedback,omitempty" yaml:"feedback,omitempty"`
	Benchmarks  []ReportBenchmark          `json:"benchmarks,omitempty" yaml:"benchmarks,omitempty"`
	Qualitative []DimensionFeedback        `json:"qualitative,omitempty" yaml:"qualitative,omitempty"`
}

// ReportBenchmark is a benchmark value attached to a library report for
// comparison against the subject's computed scores.
type ReportBenchmark struct {
	DimensionID int     `json:"dimension_id" yaml:"dimension_id"`
	Value       float64 `json:"value" yaml:"value"`
}

// MarshalContentToJSON serializes the report content for the JSONB column
func (r *Report) MarshalContentToJSON() (result0 string, err error) {
	data, err := json.Marshal(r.Content)
	return string(data), err
}

// UnmarshalContentFromJSON deserializes a JSONB column value into the report content
func (r *Report) UnmarshalContentFromJSON(data string) error {
	return json.Unmarshal([]byte(data), &r.Content)
}
