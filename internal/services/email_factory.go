package services

import (
	"context"

	"talentapp/internal/config"
	"talentapp/internal/observability"
	"talentapp/internal/serviceinterfaces"
)

// CreateEmailService creates an appropriate email service based on configuration.
// Test mode gets the in-memory TestEmailService, everything else the real
// SMTP-backed one.
func CreateEmailService(cfg *config.Config, logger *observability.Logger) serviceinterfaces.EmailService {
	if cfg.IsTest {
		logger.Info(context.Background(), "Using test email service", map[string]interface{}{
			"test_mode": true,
		})
		return NewTestEmailService(cfg, logger)
	}

	return NewEmailService(cfg, logger)
}
