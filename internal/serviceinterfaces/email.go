// Package serviceinterfaces defines service interfaces for dependency injection and testing.
package serviceinterfaces

import (
	"context"

	"talentapp/internal/models"
)

// EmailService defines the interface for email functionality
type EmailService interface {
	// SendAssignmentInvitation invites a participant to take an assessment
	SendAssignmentInvitation(ctx context.Context, user *models.User, assessmentTitle string) error

	// SendReportReadyNotice tells the client contact that a report can be viewed
	SendReportReadyNotice(ctx context.Context, to string, subjectName, assessmentTitle string) error

	// SendEmail sends a generic email with the given parameters
	SendEmail(ctx context.Context, to, subject, templateName string, data map[string]interface{}) error

	// IsEnabled returns whether email functionality is enabled
	IsEnabled() bool
}
