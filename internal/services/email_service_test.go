package services

import (
	"context"
	"testing"

	"talentapp/internal/config"
	"talentapp/internal/models"
	"talentapp/internal/observability"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestLogger creates a logger for testing
func createTestLogger() *observability.Logger {
	cfg := &config.OpenTelemetryConfig{
		EnableLogging: false, // Disable logging for tests
	}
	return observability.NewLogger(cfg)
}

// smtpEnabledConfig returns a config where sending is fully configured.
// Nothing in these tests ever dials it.
func smtpEnabledConfig() *config.Config {
	return &config.Config{
		Email: config.EmailConfig{
			Enabled: true,
			SMTP: config.SMTPConfig{
				Host:        "smtp.acme.test",
				Port:        587,
				Username:    "mailer",
				Password:    "password",
				FromAddress: "no-reply@talent.test",
				FromName:    "Talent Platform",
			},
			ReportNotice: config.ReportNoticeConfig{Enabled: true},
		},
	}
}

func TestNewEmailService(t *testing.T) {
	service := NewEmailService(smtpEnabledConfig(), createTestLogger())

	assert.NotNil(t, service)
	assert.True(t, service.IsEnabled())
}

func TestNewEmailService_Disabled(t *testing.T) {
	cfg := &config.Config{
		Email: config.EmailConfig{Enabled: false},
	}

	service := NewEmailService(cfg, createTestLogger())

	assert.NotNil(t, service)
	assert.False(t, service.IsEnabled())
}

func TestEmailService_IsEnabled(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*config.Config)
		expected bool
	}{
		{"fully configured", func(c *config.Config) {}, true},
		{"flag off", func(c *config.Config) { c.Email.Enabled = false }, false},
		{"no smtp host", func(c *config.Config) { c.Email.SMTP.Host = "" }, false},
		{"no sender address", func(c *config.Config) { c.Email.SMTP.FromAddress = "" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := smtpEnabledConfig()
			tt.mutate(cfg)
			service := NewEmailService(cfg, createTestLogger())
			assert.Equal(t, tt.expected, service.IsEnabled())
		})
	}
}

func TestEmailService_SendEmail_DisabledSkipsSend(t *testing.T) {
	cfg := &config.Config{Email: config.EmailConfig{Enabled: false}}
	service := NewEmailService(cfg, createTestLogger())

	err := service.SendEmail(context.Background(), "someone@acme.test", "Subject", "report_ready", nil)
	assert.NoError(t, err, "disabled email degrades to a logged no-op")
}

func TestEmailService_SendEmail_MissingDialer(t *testing.T) {
	// An enabled config whose dialer was never constructed must fail loudly
	// instead of pretending the mail went out.
	service := &EmailService{cfg: smtpEnabledConfig(), logger: createTestLogger()}

	err := service.SendEmail(context.Background(), "someone@acme.test", "Subject", "report_ready", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not properly configured")
}

func TestEmailService_SendAssignmentInvitation_DisabledSkips(t *testing.T) {
	cfg := &config.Config{Email: config.EmailConfig{Enabled: false}}
	service := NewEmailService(cfg, createTestLogger())

	user := &models.User{ID: 1, Email: "pat@acme.test", Name: "Pat"}
	assert.NoError(t, service.SendAssignmentInvitation(context.Background(), user, "Leadership"))
}

func TestEmailService_SendAssignmentInvitation_NoAddressSkips(t *testing.T) {
	service := NewEmailService(smtpEnabledConfig(), createTestLogger())

	user := &models.User{ID: 1, Name: "Pat"}
	assert.NoError(t, service.SendAssignmentInvitation(context.Background(), user, "Leadership"))
}

func TestEmailService_SendReportReadyNotice_NoticeDisabled(t *testing.T) {
	cfg := smtpEnabledConfig()
	cfg.Email.ReportNotice.Enabled = false
	service := NewEmailService(cfg, createTestLogger())

	err := service.SendReportReadyNotice(context.Background(), "ops@acme.test", "Jordan Blake", "Leadership")
	assert.NoError(t, err)
}

func TestEmailService_SendReportReadyNotice_NoRecipientSkips(t *testing.T) {
	service := NewEmailService(smtpEnabledConfig(), createTestLogger())

	err := service.SendReportReadyNotice(context.Background(), "", "Jordan Blake", "Leadership")
	assert.NoError(t, err)
}

func TestEmailService_GenerateInvitationContent(t *testing.T) {
	cfg := smtpEnabledConfig()
	cfg.Server.AppBaseURL = "https://talent.acme.test"
	service := NewEmailService(cfg, createTestLogger())

	content, err := service.generateEmailContent("assignment_invitation", map[string]interface{}{
		"Name":            "Jordan Blake",
		"AssessmentTitle": "Leadership Essentials",
		"AppBaseURL":      cfg.Server.AppBaseURL,
		"CurrentDate":     "March 1, 2025",
	})
	require.NoError(t, err)

	assert.Contains(t, content, "Hello Jordan Blake!")
	assert.Contains(t, content, "Leadership Essentials")
	assert.Contains(t, content, `href="https://talent.acme.test/assignments"`)
	assert.Contains(t, content, "March 1, 2025")
}

func TestEmailService_GenerateReportReadyContent(t *testing.T) {
	cfg := smtpEnabledConfig()
	cfg.Server.AppBaseURL = "https://talent.acme.test"
	service := NewEmailService(cfg, createTestLogger())

	content, err := service.generateEmailContent("report_ready", map[string]interface{}{
		"SubjectName":     "Riley Chen",
		"AssessmentTitle": "Peer Review",
		"AppBaseURL":      cfg.Server.AppBaseURL,
	})
	require.NoError(t, err)

	assert.Contains(t, content, "Riley Chen")
	assert.Contains(t, content, "Peer Review")
	assert.Contains(t, content, `href="https://talent.acme.test/reports"`)
}

func TestEmailService_GenerateContent_EscapesHTML(t *testing.T) {
	service := NewEmailService(smtpEnabledConfig(), createTestLogger())

	content, err := service.generateEmailContent("assignment_invitation", map[string]interface{}{
		"Name":            "<script>alert(1)</script>",
		"AssessmentTitle": "Leadership",
	})
	require.NoError(t, err)

	assert.NotContains(t, content, "<script>alert(1)</script>")
	assert.Contains(t, content, "&lt;script&gt;")
}

func TestEmailService_GenerateContent_UnknownTemplate(t *testing.T) {
	service := NewEmailService(smtpEnabledConfig(), createTestLogger())

	_, err := service.generateEmailContent("password_reset", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown template: password_reset")
}
