package models

import (
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserMarshalJSON(t *testing.T) {
	user := User{
		ID:           1,
		ClientID:     sql.NullInt32{Int32: 7, Valid: true},
		Email:        "jordan@example.com",
		Name:         "Jordan",
		Role:         RoleParticipant,
		PasswordHash: sql.NullString{String: "$2a$10$secret", Valid: true},
		CreatedAt:    time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		UpdatedAt:    time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}

	data, err := json.Marshal(user)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, float64(7), decoded["client_id"])
	assert.Nil(t, decoded["group_id"], "unset nullable column should marshal as null")
	assert.NotContains(t, string(data), "secret", "password hash must never appear in JSON")
	assert.NotContains(t, decoded, "password_hash")
}

func TestAssignmentMarshalJSON(t *testing.T) {
	t.Run("completed assignment", func(t *testing.T) {
		completedAt := time.Date(2024, 5, 2, 9, 30, 0, 0, time.UTC)
		assignment := Assignment{
			ID:           10,
			UserID:       3,
			AssessmentID: 5,
			SurveyID:     sql.NullString{String: "2024-spring", Valid: true},
			Completed:    true,
			CompletedAt:  sql.NullTime{Time: completedAt, Valid: true},
			CreatedAt:    time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC),
		}

		data, err := json.Marshal(assignment)
		require.NoError(t, err)

		var decoded map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &decoded))

		assert.Equal(t, "2024-spring", decoded["survey_id"])
		assert.Equal(t, true, decoded["completed"])
		assert.NotNil(t, decoded["completed_at"])
		assert.Nil(t, decoded["target_id"])
	})

	t.Run("pending assignment has null completed_at", func(t *testing.T) {
		assignment := Assignment{ID: 11, UserID: 3, AssessmentID: 5}

		data, err := json.Marshal(assignment)
		require.NoError(t, err)

		var decoded map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &decoded))

		assert.Nil(t, decoded["completed_at"])
		assert.Nil(t, decoded["survey_id"])
	})
}

func TestFeedbackLibraryEntryMatches(t *testing.T) {
	bounded := FeedbackLibraryEntry{
		MinScore: sql.NullFloat64{Float64: 40, Valid: true},
		MaxScore: sql.NullFloat64{Float64: 70, Valid: true},
	}

	tests := []struct {
		name  string
		entry FeedbackLibraryEntry
		score float64
		want  bool
	}{
		{"inside window", bounded, 55, true},
		{"exactly min", bounded, 40, true},
		{"exactly max", bounded, 70, true},
		{"below min", bounded, 39.9, false},
		{"above max", bounded, 70.1, false},
		{"unbounded both sides", FeedbackLibraryEntry{}, -1000, true},
		{
			"only min bound",
			FeedbackLibraryEntry{MinScore: sql.NullFloat64{Float64: 50, Valid: true}},
			1000, true,
		},
		{
			"only max bound rejects above",
			FeedbackLibraryEntry{MaxScore: sql.NullFloat64{Float64: 50, Valid: true}},
			50.5, false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.entry.Matches(tt.score))
		})
	}
}

func TestReportContentRoundTrip(t *testing.T) {
	dimID := 4
	report := Report{
		AssignmentID: 8,
		Kind:         AssessmentKind360,
		Content: ReportContent{
			Kind: AssessmentKind360,
			Qualitative: []DimensionFeedback{
				{DimensionID: &dimID, Feedback: "Strong communicator.\n\nListens well."},
				{DimensionID: nil, Feedback: "General comment."},
			},
		},
	}

	data, err := report.MarshalContentToJSON()
	require.NoError(t, err)

	var restored Report
	require.NoError(t, restored.UnmarshalContentFromJSON(data))

	assert.Equal(t, report.Content.Kind, restored.Content.Kind)
	require.Len(t, restored.Content.Qualitative, 2)
	require.NotNil(t, restored.Content.Qualitative[0].DimensionID)
	assert.Equal(t, 4, *restored.Content.Qualitative[0].DimensionID)
	assert.Nil(t, restored.Content.Qualitative[1].DimensionID)
	assert.Empty(t, restored.Content.Feedback, "360 content carries no library feedback")
}

func TestFeedbackLibraryEntryMarshalJSON(t *testing.T) {
	entry := FeedbackLibraryEntry{
		ID:           2,
		AssessmentID: 1,
		DimensionID:  3,
		Type:         FeedbackTypeSpecific,
		MaxScore:     sql.NullFloat64{Float64: 70, Valid: true},
		Content:      "Needs development",
	}

	data, err := json.Marshal(entry)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Nil(t, decoded["min_score"], "null bound marshals as null, not zero")
	assert.Equal(t, float64(70), decoded["max_score"])
	assert.Equal(t, FeedbackTypeSpecific, decoded["type"])
}
