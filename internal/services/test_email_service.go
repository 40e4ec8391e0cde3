package services

import (
	"context"
	"sync"

	"talentapp/internal/config"
	"talentapp/internal/models"
	"talentapp/internal/observability"
	"talentapp/internal/serviceinterfaces"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// SentEmail records one email the test service would have sent
type SentEmail struct {
	To       string
	Subject  string
	Template string
	Data     map[string]interface{}
}

// TestEmailService implements serviceinterfaces.EmailService for test runs.
// It never talks to an SMTP server; it logs each send and records it in
// memory so tests can assert on what went out.
type TestEmailService struct {
	cfg    *config.Config
	logger *observability.Logger

	mu   sync.Mutex
	sent []SentEmail
}

var _ serviceinterfaces.EmailService = (*TestEmailService)(nil)

// NewTestEmailService creates a new TestEmailService instance
func NewTestEmailService(cfg *config.Config, logger *observability.Logger) *TestEmailService {
	return &TestEmailService{
		cfg:    cfg,
		logger: logger,
	}
}

// SentEmails returns a copy of everything recorded so far
func (e *TestEmailService) SentEmails() []SentEmail {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]SentEmail, len(e.sent))
	copy(out, e.sent)
	return out
}

func (e *TestEmailService) record(email SentEmail) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sent = append(e.sent, email)
}

// SendAssignmentInvitation logs the invitation instead of sending it
func (e *TestEmailService) SendAssignmentInvitation(ctx context.Context, user *models.User, assessmentTitle string) error {
	ctx, span := otel.Tracer("test-email-service").Start(ctx, "SendAssignmentInvitation",
		trace.WithAttributes(
			attribute.Int("user.id", user.ID),
			attribute.String("assessment.title", assessmentTitle),
		),
	)
	defer span.End()

	if user.Email == "" {
		e.logger.Warn(ctx, "User has no email address, skipping assignment invitation", map[string]interface{}{
			"user_id": user.ID,
		})
		return nil
	}

	e.logger.Info(ctx, "TEST MODE: Would send assignment invitation", map[string]interface{}{
		"user_id":   user.ID,
		"email":     user.Email,
		"template":  "assignment_invitation",
		"test_mode": true,
	})
	e.record(SentEmail{
		To:       user.Email,
		Subject:  config.DefaultInvitationSubject,
		Template: "assignment_invitation",
		Data:     map[string]interface{}{"AssessmentTitle": assessmentTitle},
	})
	return nil
}

// SendReportReadyNotice logs the report notice instead of sending it
func (e *TestEmailService) SendReportReadyNotice(ctx context.Context, to string, subjectName, assessmentTitle string) error {
	ctx, span := otel.Tracer("test-email-service").Start(ctx, "SendReportReadyNotice",
		trace.WithAttributes(
			attribute.String("assessment.title", assessmentTitle),
		),
	)
	defer span.End()

	if to == "" {
		e.logger.Warn(ctx, "No recipient for report notice, skipping")
		return nil
	}

	subject := e.cfg.Email.ReportNotice.Subject
	if subject == "" {
		subject = config.DefaultReportNoticeSubject
	}

	e.logger.Info(ctx, "TEST MODE: Would send report notice", map[string]interface{}{
		"to":        to,
		"template":  "report_ready",
		"test_mode": true,
	})
	e.record(SentEmail{
		To:       to,
		Subject:  subject,
		Template: "report_ready",
		Data: map[string]interface{}{
			"SubjectName":     subjectName,
			"AssessmentTitle": assessmentTitle,
		},
	})
	return nil
}

// SendEmail logs the email instead of sending it
func (e *TestEmailService) SendEmail(ctx context.Context, to, subject, templateName string, data map[string]interface{}) error {
	ctx, span := otel.Tracer("test-email-service").Start(ctx, "SendEmail",
		trace.WithAttributes(
			attribute.String("email.to", to),
			attribute.String("email.template", templateName),
		),
	)
	defer span.End()

	e.logger.Info(ctx, "TEST MODE: Would send email", map[string]interface{}{
		"to":        to,
		"subject":   subject,
		"template":  templateName,
		"test_mode": true,
	})
	e.record(SentEmail{To: to, Subject: subject, Template: templateName, Data: data})
	return nil
}

// IsEnabled always reports true so test runs exercise the email paths
func (e *TestEmailService) IsEnabled() bool {
	return true
}
