package models

import (
	"database/sql"
	"encoding/json"
	"time"
)

// Feedback library entry types. At most one overall entry is expected per
// (assessment, dimension); many specific entries may exist.
const (
	FeedbackTypeOverall  = "overall"
	FeedbackTypeSpecific = "specific"
)

// FeedbackLibraryEntry represents a reusable feedback text tied to one
// assessment and one dimension. The eligibility window is expressed as
// nullable min/max scores; null means unbounded on that side.
type FeedbackLibraryEntry struct {
	ID           int             `json:"id" yaml:"id"`
	AssessmentID int             `json:"assessment_id" yaml:"assessment_id"`
	DimensionID  int             `json:"dimension_id" yaml:"dimension_id"`
	Type         string          `json:"type" yaml:"type"`
	MinScore     sql.NullFloat64 `json:"min_score" yaml:"min_score"`
	MaxScore     sql.NullFloat64 `json:"max_score" yaml:"max_score"`
	Content      string          `json:"content" yaml:"content"`
	CreatedAt    time.Time       `json:"created_at" yaml:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at" yaml:"updated_at"`
}

// Matches reports whether a score falls inside the entry's eligibility
// window. Bounds are inclusive; a null bound is unbounded on that side.
func (e *FeedbackLibraryEntry) Matches(score float64) bool {
	if e.MinScore.Valid && score < e.MinScore.Float64 {
		return false
	}
	if e.MaxScore.Valid && score > e.MaxScore.Float64 {
		return false
	}
	return true
}

// ReportFeedbackAssignment is the feedback engine's output per dimension:
// one library entry matched to one assignment's score.
type ReportFeedbackAssignment struct {
	DimensionID     int    `json:"dimension_id" yaml:"dimension_id"`
	FeedbackID      int    `json:"feedback_id" yaml:"feedback_id"`
	FeedbackContent string `json:"feedback_content" yaml:"feedback_content"`
	Type            string `json:"type" yaml:"type"`
}

// DimensionFeedback is one dimension's aggregated qualitative feedback for a
// 360 report. A nil dimension id is the "general" group: free text not tied
// to a specific scoring category.
type DimensionFeedback struct {
	DimensionID *int   `json:"dimension_id" yaml:"dimension_id"`
	Feedback    string `json:"feedback" yaml:"feedback"`
}

// MarshalJSON customizes JSON marshaling for FeedbackLibraryEntry to handle the nullable score bounds
func (e FeedbackLibraryEntry) MarshalJSON() (result0 []byte, err error) {
	return json.Marshal(&struct {
		ID           int       `json:"id"`
		AssessmentID int       `json:"assessment_id"`
		DimensionID  int       `json:"dimension_id"`
		Type         string    `json:"type"`
		MinScore     *float64  `json:"min_score"`
		MaxScore     *float64  `json:"max_score"`
		Content      string    `json:"content"`
		CreatedAt    time.Time `json:"created_at"`
		UpdatedAt    time.Time `json:"updated_at"`
	}{
		ID:           e.ID,
		AssessmentID: e.AssessmentID,
		DimensionID:  e.DimensionID,
		Type:         e.Type,
		MinScore:     nullFloat64ToPointer(e.MinScore),
		MaxScore:     nullFloat64ToPointer(e.MaxScore),
		Content:      e.Content,
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
	})
}
