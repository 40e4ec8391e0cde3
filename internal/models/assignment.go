package models

import (
	"database/sql"
	"encoding/json"
	"time"
)

// Assignment represents one user's instance of taking one assessment.
// Assignments created together for one administration share a survey id;
// 360-style assignments carry the id of the subject being rated.
type Assignment struct {
	ID           int            `json:"id" yaml:"id"`
	UserID       int            `json:"user_id" yaml:"user_id"`
	AssessmentID int            `json:"assessment_id" yaml:"assessment_id"`
	SurveyID     sql.NullString `json:"survey_id" yaml:"survey_id"`
	TargetID     sql.NullInt32  `json:"target_id" yaml:"target_id"`
	Completed    bool           `json:"completed" yaml:"completed"`
	CompletedAt  sql.NullTime   `json:"completed_at" yaml:"completed_at"`
	CreatedAt    time.Time      `json:"created_at" yaml:"created_at"`
}

// DimensionScore represents a per-assignment, per-dimension aggregate numeric
// value produced upstream. A null dimension id marks a roll-up row.
type DimensionScore struct {
	ID           int           `json:"id" yaml:"id"`
	AssignmentID int           `json:"assignment_id" yaml:"assignment_id"`
	DimensionID  sql.NullInt32 `json:"dimension_id" yaml:"dimension_id"`
	Score        float64       `json:"score" yaml:"score"`
}

// TextAnswer represents a free-text response tied to a field. The dimension
// id is denormalized from the owning field when answers are fetched.
type TextAnswer struct {
	ID           int           `json:"id" yaml:"id"`
	AssignmentID int           `json:"assignment_id" yaml:"assignment_id"`
	FieldID      int           `json:"field_id" yaml:"field_id"`
	DimensionID  sql.NullInt32 `json:"dimension_id" yaml:"dimension_id"`
	Value        string        `json:"value" yaml:"value"`
}

// SurveySummary is a computed projection over one survey's assignments. It is
// derived fresh on every query and never persisted.
type SurveySummary struct {
	SurveyID             string    `json:"survey_id" yaml:"survey_id"`
	AssessmentID         int       `json:"assessment_id" yaml:"assessment_id"`
	AssessmentTitle      string    `json:"assessment_title" yaml:"assessment_title"`
	FirstCreatedAt       time.Time `json:"first_created_at" yaml:"first_created_at"`
	TotalAssignments     int       `json:"total_assignments" yaml:"total_assignments"`
	CompletedAssignments int       `json:"completed_assignments" yaml:"completed_assignments"`
}

// MarshalJSON customizes JSON marshaling for Assignment to handle nullable columns
func (a Assignment) MarshalJSON() (result0 []byte, err error) {
	return json.Marshal(&struct {
		ID           int        `json:"id"`
		UserID       int        `json:"user_id"`
		AssessmentID int        `json:"assessment_id"`
		SurveyID     *string    `json:"survey_id"`
		TargetID     *int32     `json:"target_id"`
		Completed    bool       `json:"completed"`
		CompletedAt  *time.Time `json:"completed_at"`
		CreatedAt    time.Time  `json:"created_at"`
	}{
		ID:           a.ID,
		UserID:       a.UserID,
		AssessmentID: a.AssessmentID,
		SurveyID:     nullStringToPointer(a.SurveyID),
		TargetID:     nullInt32ToPointer(a.TargetID),
		Completed:    a.Completed,
		CompletedAt:  nullTimeToPointer(a.CompletedAt),
		CreatedAt:    a.CreatedAt,
	})
}

// MarshalJSON customizes JSON marshaling for DimensionScore to handle the nullable dimension
func (s DimensionScore) MarshalJSON() (result0 []byte, err error) {
	return json.Marshal(&struct {
		ID           int     `json:"id"`
		AssignmentID int     `json:"assignment_id"`
		DimensionID  *int32  `json:"dimension_id"`
		Score        float64 `json:"score"`
	}{
		ID:           s.ID,
		AssignmentID: s.AssignmentID,
		DimensionID:  nullInt32ToPointer(s.DimensionID),
		Score:        s.Score,
	})
}

// MarshalJSON customizes JSON marshaling for TextAnswer to handle the nullable dimension
func (t TextAnswer) MarshalJSON() (result0 []byte, err error) {
	return json.Marshal(&struct {
		ID           int    `json:"id"`
		AssignmentID int    `json:"assignment_id"`
		FieldID      int    `json:"field_id"`
		DimensionID  *int32 `json:"dimension_id"`
		Value        string `json:"value"`
	}{
		ID:           t.ID,
		AssignmentID: t.AssignmentID,
		FieldID:      t.FieldID,
		DimensionID:  nullInt32ToPointer(t.DimensionID),
		Value:        t.Value,
	})
}
