package models

import (
	"database/sql"
	"encoding/json"
	"time"
)

// Assessment kinds. The kind selects the report path: library assessments
// produce score-driven feedback, 360 assessments aggregate rater free text.
const (
	AssessmentKindLibrary = "library"
	AssessmentKind360     = "360"
)

// Field types. Only text_input fields feed qualitative aggregation.
const (
	FieldTypeTextInput = "text_input"
	FieldTypeScale     = "scale"
)

// Assessment represents an instrument administered to participants
type Assessment struct {
	ID        int       `json:"id" yaml:"id"`
	Title     string    `json:"title" yaml:"title"`
	Kind      string    `json:"kind" yaml:"kind"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// Is360 reports whether reports for this assessment aggregate rater free text
func (a *Assessment) Is360() bool {
	return a.Kind == AssessmentKind360
}

// Dimension represents a named scoring category within an assessment
type Dimension struct {
	ID           int    `json:"id" yaml:"id"`
	AssessmentID int    `json:"assessment_id" yaml:"assessment_id"`
	Name         string `json:"name" yaml:"name"`
	Position     int    `json:"position" yaml:"position"`
}

// Field represents a form field within an assessment. The dimension is
// nullable: general free-text fields are not tied to a scoring category.
type Field struct {
	ID           int           `json:"id" yaml:"id"`
	AssessmentID int           `json:"assessment_id" yaml:"assessment_id"`
	DimensionID  sql.NullInt32 `json:"dimension_id" yaml:"dimension_id"`
	Type         string        `json:"type" yaml:"type"`
	Label        string        `json:"label" yaml:"label"`
	Position     int           `json:"position" yaml:"position"`
}

// Benchmark represents the expected score for (assessment, industry, dimension)
type Benchmark struct {
	ID           int       `json:"id" yaml:"id"`
	AssessmentID int       `json:"assessment_id" yaml:"assessment_id"`
	IndustryID   int       `json:"industry_id" yaml:"industry_id"`
	DimensionID  int       `json:"dimension_id" yaml:"dimension_id"`
	Value        float64   `json:"value" yaml:"value"`
	CreatedAt    time.Time `json:"created_at" yaml:"created_at"`
}

// MarshalJSON customizes JSON marshaling for Field to handle the nullable dimension
func (f Field) MarshalJSON() (result0 []byte, err error) {
	return json.Marshal(&struct {
		ID           int    `json:"id"`
		AssessmentID int    `json:"assessment_id"`
		DimensionID  *int32 `json:"dimension_id"`
		Type         string `json:"type"`
		Label        string `json:"label"`
		Position     int    `json:"position"`
	}{
		ID:           f.ID,
		AssessmentID: f.AssessmentID,
		DimensionID:  nullInt32ToPointer(f.DimensionID),
		Type:         f.Type,
		Label:        f.Label,
		Position:     f.Position,
	})
}
