package services

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"talentapp/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockAssignmentStore struct {
	byTarget map[int][]models.Assignment
	fetchErr error
}

func (m *mockAssignmentStore) GetCompletedAssignmentsByTarget(_ context.Context, targetID int) ([]models.Assignment, error) {
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	return m.byTarget[targetID], nil
}

// The rest are not needed for this test
func (m *mockAssignmentStore) GetAssignmentsForClient(_ context.Context, _ int) ([]models.Assignment, error) {
	return nil, nil
}

func (m *mockAssignmentStore) GetAssignmentByID(_ context.Context, _ int) (*models.Assignment, error) {
	return nil, nil
}

func (m *mockAssignmentStore) CreateAssignment(_ context.Context, _ *models.Assignment) (*models.Assignment, error) {
	return nil, nil
}

func (m *mockAssignmentStore) MarkCompleted(_ context.Context, _ int) error { return nil }

func (m *mockAssignmentStore) GetCompletedWithoutReport(_ context.Context, _ int) ([]models.Assignment, error) {
	return nil, nil
}

type mockAnswerStore struct {
	answers    []models.TextAnswer
	fetchErr   error
	requestIDs []int
}

func (m *mockAnswerStore) GetTextAnswersForAssignments(_ context.Context, assignmentIDs []int) ([]models.TextAnswer, error) {
	m.requestIDs = assignmentIDs
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	var matched []models.TextAnswer
	wanted := make(map[int]bool, len(assignmentIDs))
	for _, id := range assignmentIDs {
		wanted[id] = true
	}
	for _, answer := range m.answers {
		if wanted[answer.AssignmentID] {
			matched = append(matched, answer)
		}
	}
	return matched, nil
}

func (m *mockAnswerStore) CreateTextAnswers(_ context.Context, _ []models.TextAnswer) error {
	return nil
}

func textAnswer(id, assignmentID, dimensionID int, value string) models.TextAnswer {
	answer := models.TextAnswer{ID: id, AssignmentID: assignmentID, FieldID: id, Value: value}
	if dimensionID > 0 {
		answer.DimensionID = sql.NullInt32{Int32: int32(dimensionID), Valid: true}
	}
	return answer
}

func TestGroup360Feedback_GroupsByDimension(t *testing.T) {
	answers := []models.TextAnswer{
		textAnswer(1, 11, 3, "Listens well"),
		textAnswer(2, 11, 0, "General remark"),
		textAnswer(3, 12, 3, "Leads calmly"),
		textAnswer(4, 12, 5, "Plans ahead"),
		textAnswer(5, 13, 0, "Another remark"),
	}

	feedback := Group360Feedback(answers)
	require.Len(t, feedback, 3)

	// Groups in first-seen order: dimension 3, null, dimension 5.
	require.NotNil(t, feedback[0].DimensionID)
	assert.Equal(t, 3, *feedback[0].DimensionID)
	assert.Equal(t, "Listens well\n\nLeads calmly", feedback[0].Feedback)

	assert.Nil(t, feedback[1].DimensionID)
	assert.Equal(t, "General remark\n\nAnother remark", feedback[1].Feedback)

	require.NotNil(t, feedback[2].DimensionID)
	assert.Equal(t, 5, *feedback[2].DimensionID)
	assert.Equal(t, "Plans ahead", feedback[2].Feedback)
}

func TestGroup360Feedback_EveryResponseAppearsOnce(t *testing.T) {
	answers := []models.TextAnswer{
		textAnswer(1, 11, 1, "alpha"),
		textAnswer(2, 11, 2, "beta"),
		textAnswer(3, 12, 1, "gamma"),
		textAnswer(4, 12, 0, "delta"),
	}

	feedback := Group360Feedback(answers)

	var parts []string
	for _, group := range feedback {
		parts = append(parts, strings.Split(group.Feedback, "\n\n")...)
	}
	assert.ElementsMatch(t, []string{"alpha", "beta", "gamma", "delta"}, parts)
}

func TestGroup360Feedback_EmptyInput(t *testing.T) {
	feedback := Group360Feedback(nil)
	assert.NotNil(t, feedback)
	assert.Empty(t, feedback)
}

func TestAggregate360Feedback_FetchesCompletedAssignmentsOnly(t *testing.T) {
	assignments := &mockAssignmentStore{
		byTarget: map[int][]models.Assignment{
			42: {{ID: 11, UserID: 1, AssessmentID: 9, Completed: true}, {ID: 12, UserID: 2, AssessmentID: 9, Completed: true}},
		},
	}
	answerStore := &mockAnswerStore{
		answers: []models.TextAnswer{
			textAnswer(1, 11, 3, "Great collaborator"),
			textAnswer(2, 12, 3, "Shares context early"),
			textAnswer(3, 99, 3, "From an unrelated assignment"),
		},
	}
	service := NewQualitativeFeedbackService(assignments, answerStore, testEngineLogger())

	feedback, err := service.Aggregate360Feedback(context.Background(), 42)
	require.NoError(t, err)
	require.Len(t, feedback, 1)
	assert.Equal(t, []int{11, 12}, answerStore.requestIDs)
	assert.Equal(t, "Great collaborator\n\nShares context early", feedback[0].Feedback)
}

func TestAggregate360Feedback_NoReviewsYieldsEmpty(t *testing.T) {
	service := NewQualitativeFeedbackService(&mockAssignmentStore{}, &mockAnswerStore{}, testEngineLogger())

	feedback, err := service.Aggregate360Feedback(context.Background(), 7)
	require.NoError(t, err)
	assert.NotNil(t, feedback)
	assert.Empty(t, feedback)
}

func TestAggregate360Feedback_FetchErrorPropagates(t *testing.T) {
	service := NewQualitativeFeedbackService(&mockAssignmentStore{fetchErr: assert.AnError}, &mockAnswerStore{}, testEngineLogger())

	feedback, err := service.Aggregate360Feedback(context.Background(), 7)
	assert.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Nil(t, feedback)
}
