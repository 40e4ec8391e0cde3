package services

import (
	"context"
	"fmt"
	"html/template"
	"strings"
	"time"

	"talentapp/internal/config"
	"talentapp/internal/models"
	"talentapp/internal/observability"
	"talentapp/internal/serviceinterfaces"
	contextutils "talentapp/internal/utils"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gopkg.in/mail.v2"
)

// EmailService implements the serviceinterfaces.EmailService interface using gomail
type EmailService struct {
	cfg    *config.Config
	logger *observability.Logger
	dialer *mail.Dialer
}

// EmailServiceInterface defines the interface for email functionality
type EmailServiceInterface = serviceinterfaces.EmailService

// Ensure EmailService implements the EmailServiceInterface
var _ serviceinterfaces.EmailService = (*EmailService)(nil)

// NewEmailService creates a new EmailService instance
func NewEmailService(cfg *config.Config, logger *observability.Logger) *EmailService {
	var dialer *mail.Dialer
	if cfg.IsEmailEnabled() {
		dialer = mail.NewDialer(
			cfg.Email.SMTP.Host,
			cfg.Email.SMTP.Port,
			cfg.Email.SMTP.Username,
			cfg.Email.SMTP.Password,
		)
	}

	return &EmailService{
		cfg:    cfg,
		logger: logger,
		dialer: dialer,
	}
}

// SendAssignmentInvitation invites a participant to take an assessment
func (e *EmailService) SendAssignmentInvitation(ctx context.Context, user *models.User, assessmentTitle string) (err error) {
	ctx, span := otel.Tracer("email-service").Start(ctx, "SendAssignmentInvitation",
		trace.WithAttributes(
			attribute.Int("user.id", user.ID),
			attribute.String("assessment.title", assessmentTitle),
		),
	)
	defer observability.FinishSpan(span, &err)

	if !e.IsEnabled() {
		e.logger.Info(ctx, "Email disabled, skipping assignment invitation", map[string]interface{}{
			"user_id": user.ID,
			"email":   user.Email,
		})
		return nil
	}

	if user.Email == "" {
		e.logger.Warn(ctx, "User has no email address, skipping assignment invitation", map[string]interface{}{
			"user_id": user.ID,
		})
		return nil
	}

	data := map[string]interface{}{
		"Name":            user.Name,
		"AssessmentTitle": assessmentTitle,
		"AppBaseURL":      e.cfg.Server.AppBaseURL,
		"CurrentDate":     time.Now().Format("January 2, 2006"),
	}

	err = e.SendEmail(ctx, user.Email, config.DefaultInvitationSubject, "assignment_invitation", data)
	if err != nil {
		return contextutils.WrapError(err, "failed to send assignment invitation")
	}

	e.logger.Info(ctx, "Assignment invitation sent", map[string]interface{}{
		"user_id": user.ID,
		"email":   user.Email,
	})

	return nil
}

// SendReportReadyNotice tells the client contact that a report can be viewed
func (e *EmailService) SendReportReadyNotice(ctx context.Context, to string, subjectName, assessmentTitle string) (err error) {
	ctx, span := otel.Tracer("email-service").Start(ctx, "SendReportReadyNotice",
		trace.WithAttributes(
			attribute.String("assessment.title", assessmentTitle),
		),
	)
	defer observability.FinishSpan(span, &err)

	if !e.IsEnabled() || !e.cfg.Email.ReportNotice.Enabled {
		e.logger.Info(ctx, "Report notice emails disabled, skipping", map[string]interface{}{
			"to": to,
		})
		return nil
	}

	if to == "" {
		e.logger.Warn(ctx, "No recipient for report notice, skipping")
		return nil
	}

	subject := e.cfg.Email.ReportNotice.Subject
	if subject == "" {
		subject = config.DefaultReportNoticeSubject
	}

	data := map[string]interface{}{
		"SubjectName":     subjectName,
		"AssessmentTitle": assessmentTitle,
		"AppBaseURL":      e.cfg.Server.AppBaseURL,
	}

	err = e.SendEmail(ctx, to, subject, "report_ready", data)
	if err != nil {
		return contextutils.WrapError(err, "failed to send report notice")
	}

	e.logger.Info(ctx, "Report notice sent", map[string]interface{}{
		"to": to,
	})

	return nil
}

// SendEmail sends a generic email with the given parameters
func (e *EmailService) SendEmail(ctx context.Context, to, subject, templateName string, data map[string]interface{}) (err error) {
	ctx, span := otel.Tracer("email-service").Start(ctx, "SendEmail",
		trace.WithAttributes(
			attribute.String("email.to", to),
			attribute.String("email.subject", subject),
			attribute.String("email.template", templateName),
		),
	)
	defer observability.FinishSpan(span, &err)

	if !e.IsEnabled() {
		e.logger.Info(ctx, "Email disabled, skipping email send", map[string]interface{}{
			"to":       to,
			"template": templateName,
		})
		return nil
	}

	if e.dialer == nil {
		return contextutils.ErrorWithContextf("email service not properly configured")
	}

	m := mail.NewMessage()
	m.SetHeader("From", fmt.Sprintf("%s <%s>", e.cfg.Email.SMTP.FromName, e.cfg.Email.SMTP.FromAddress))
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)

	content, err := e.generateEmailContent(templateName, data)
	if err != nil {
		return contextutils.WrapError(err, "failed to generate email content")
	}

	m.SetBody("text/html", content)

	if err = e.dialer.DialAndSend(m); err != nil {
		e.logger.Error(ctx, "Failed to send email", err, map[string]interface{}{
			"to":       to,
			"template": templateName,
			"subject":  subject,
		})
		return contextutils.WrapError(err, "failed to send email")
	}

	e.logger.Info(ctx, "Email sent successfully", map[string]interface{}{
		"to":       to,
		"template": templateName,
		"subject":  subject,
	})

	return nil
}

// IsEnabled returns whether email functionality is enabled
func (e *EmailService) IsEnabled() bool {
	return e.cfg.IsEmailEnabled()
}

// generateEmailContent generates email content from templates
func (e *EmailService) generateEmailContent(templateName string, data map[string]interface{}) (string, error) {
	switch templateName {
	case "assignment_invitation":
		return e.generateInvitationTemplate(data)
	case "report_ready":
		return e.generateReportReadyTemplate(data)
	default:
		return "", contextutils.ErrorWithContextf("unknown template: %s", templateName)
	}
}

// generateInvitationTemplate generates the assignment invitation email body
func (e *EmailService) generateInvitationTemplate(data map[string]interface{}) (string, error) {
	const templateStr = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Assessment Invitation</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background-color: #1565C0; color: white; padding: 20px; text-align: center; border-radius: 5px 5px 0 0; }
        .content { background-color: #f9f9f9; padding: 20px; }
        .button { display: inline-block; background-color: #1565C0; color: white; padding: 12px 24px; text-decoration: none; border-radius: 5px; margin: 20px 0; }
        .footer { background-color: #eee; padding: 15px; text-align: center; font-size: 12px; color: #666; border-radius: 0 0 5px 5px; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>Assessment Invitation</h1>
        </div>
        <div class="content">
            <h2>Hello {{.Name}}!</h2>
            <p>On {{.CurrentDate}} you were invited to complete the assessment <strong>{{.AssessmentTitle}}</strong>.</p>
            <p>Your responses are confidential and feed into your personal development report.</p>
            <div style="text-align: center;">
                <a href="{{.AppBaseURL}}/assignments" class="button">Start the Assessment</a>
            </div>
        </div>
        <div class="footer">
            <p>You received this email because your organization administers assessments through this platform.</p>
        </div>
    </div>
</body>
</html>`

	tmpl, err := template.New("assignment_invitation").Parse(templateStr)
	if err != nil {
		return "", contextutils.WrapError(err, "failed to parse template")
	}

	var buf strings.Builder
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", contextutils.WrapError(err, "failed to execute template")
	}

	return buf.String(), nil
}

// generateReportReadyTemplate generates the report-ready notice email body
func (e *EmailService) generateReportReadyTemplate(data map[string]interface{}) (string, error) {
	const templateStr = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Report Ready</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background-color: #2E7D32; color: white; padding: 20px; text-align: center; border-radius: 5px 5px 0 0; }
        .content { background-color: #f9f9f9; padding: 20px; }
        .button { display: inline-block; background-color: #2E7D32; color: white; padding: 12px 24px; text-decoration: none; border-radius: 5px; margin: 20px 0; }
        .footer { background-color: #eee; padding: 15px; text-align: center; font-size: 12px; color: #666; border-radius: 0 0 5px 5px; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>Report Ready</h1>
        </div>
        <div class="content">
            <h2>A new report is available</h2>
            <p>The report for <strong>{{.SubjectName}}</strong> on <strong>{{.AssessmentTitle}}</strong> has been generated.</p>
            <div style="text-align: center;">
                <a href="{{.AppBaseURL}}/reports" class="button">View the Report</a>
            </div>
        </div>
        <div class="footer">
            <p>You received this email because you are the assessment contact for your organization.</p>
        </div>
    </div>
</body>
</html>`

	tmpl, err := template.New("report_ready").Parse(templateStr)
	if err != nil {
		return "", contextutils.WrapError(err, "failed to parse template")
	}

	var buf strings.Builder
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", contextutils.WrapError(err, "failed to execute template")
	}

	return buf.String(), nil
}
