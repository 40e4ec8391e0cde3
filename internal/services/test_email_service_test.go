package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"talentapp/internal/config"
	"talentapp/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTestEmailService_IsEnabled(t *testing.T) {
	service := NewTestEmailService(&config.Config{}, createTestLogger())

	// The in-memory service always reports enabled so email paths run in tests.
	assert.True(t, service.IsEnabled())
}

func TestTestEmailService_RecordsInvitation(t *testing.T) {
	service := NewTestEmailService(&config.Config{}, createTestLogger())

	user := &models.User{ID: 3, Email: "pat@acme.test", Name: "Pat Reyes"}
	require.NoError(t, service.SendAssignmentInvitation(context.Background(), user, "Leadership Essentials"))

	sent := service.SentEmails()
	require.Len(t, sent, 1)
	assert.Equal(t, "pat@acme.test", sent[0].To)
	assert.Equal(t, config.DefaultInvitationSubject, sent[0].Subject)
	assert.Equal(t, "assignment_invitation", sent[0].Template)
	assert.Equal(t, "Leadership Essentials", sent[0].Data["AssessmentTitle"])
}

func TestTestEmailService_SkipsUserWithoutEmail(t *testing.T) {
	service := NewTestEmailService(&config.Config{}, createTestLogger())

	user := &models.User{ID: 4, Name: "No Email"}
	require.NoError(t, service.SendAssignmentInvitation(context.Background(), user, "Leadership"))

	assert.Empty(t, service.SentEmails())
}

func TestTestEmailService_RecordsReportNotice(t *testing.T) {
	service := NewTestEmailService(&config.Config{}, createTestLogger())

	require.NoError(t, service.SendReportReadyNotice(context.Background(), "ops@acme.test", "Jordan Blake", "Peer Review"))

	sent := service.SentEmails()
	require.Len(t, sent, 1)
	assert.Equal(t, "ops@acme.test", sent[0].To)
	assert.Equal(t, config.DefaultReportNoticeSubject, sent[0].Subject, "empty config falls back to the default subject")
	assert.Equal(t, "report_ready", sent[0].Template)
	assert.Equal(t, "Jordan Blake", sent[0].Data["SubjectName"])
	assert.Equal(t, "Peer Review", sent[0].Data["AssessmentTitle"])
}

func TestTestEmailService_ReportNoticeSubjectFromConfig(t *testing.T) {
	cfg := &config.Config{}
	cfg.Email.ReportNotice.Subject = "Assessment results available"
	service := NewTestEmailService(cfg, createTestLogger())

	require.NoError(t, service.SendReportReadyNotice(context.Background(), "ops@acme.test", "Jordan", "Leadership"))

	sent := service.SentEmails()
	require.Len(t, sent, 1)
	assert.Equal(t, "Assessment results available", sent[0].Subject)
}

func TestTestEmailService_SkipsEmptyRecipient(t *testing.T) {
	service := NewTestEmailService(&config.Config{}, createTestLogger())

	require.NoError(t, service.SendReportReadyNotice(context.Background(), "", "Jordan", "Leadership"))

	assert.Empty(t, service.SentEmails())
}

func TestTestEmailService_SendEmail(t *testing.T) {
	service := NewTestEmailService(&config.Config{}, createTestLogger())

	data := map[string]interface{}{"Name": "Pat"}
	require.NoError(t, service.SendEmail(context.Background(), "pat@acme.test", "Hello", "assignment_invitation", data))

	sent := service.SentEmails()
	require.Len(t, sent, 1)
	assert.Equal(t, "pat@acme.test", sent[0].To)
	assert.Equal(t, "Hello", sent[0].Subject)
	assert.Equal(t, "assignment_invitation", sent[0].Template)
	assert.Equal(t, data, sent[0].Data)
}

func TestTestEmailService_SentEmailsReturnsCopy(t *testing.T) {
	service := NewTestEmailService(&config.Config{}, createTestLogger())
	require.NoError(t, service.SendEmail(context.Background(), "a@acme.test", "One", "report_ready", nil))

	snapshot := service.SentEmails()
	snapshot[0].To = "tampered@acme.test"

	assert.Equal(t, "a@acme.test", service.SentEmails()[0].To)
}

func TestTestEmailService_ConcurrentSends(t *testing.T) {
	service := NewTestEmailService(&config.Config{}, createTestLogger())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_ = service.SendEmail(context.Background(), fmt.Sprintf("user%d@acme.test", n), "Subject", "report_ready", nil)
		}(i)
	}
	wg.Wait()

	assert.Len(t, service.SentEmails(), 10)
}
