package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"talentapp/internal/config"
	"talentapp/internal/models"
	"talentapp/internal/observability"
	contextutils "talentapp/internal/utils"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"
)

// ExportNotifierServiceInterface defines the downstream export webhook
type ExportNotifierServiceInterface interface {
	IsEnabled() bool
	NotifyReportReady(ctx context.Context, report *models.Report) error
}

// ExportNotification is the JSON body posted to the export webhook. The
// exporter pulls the full report over the API; this event only tells it
// something new is there.
type ExportNotification struct {
	AssignmentID int       `json:"assignment_id"`
	AssessmentID int       `json:"assessment_id"`
	Kind         string    `json:"kind"`
	ReportID     int       `json:"report_id"`
	GeneratedAt  time.Time `json:"generated_at"`
}

// ExportNotifierService tells the external rendering pipeline that a report
// row was persisted
type ExportNotifierService struct {
	config     *config.Config
	logger     *observability.Logger
	httpClient *http.Client
	webhookURL string
}

// NewExportNotifierService creates a new ExportNotifierService instance
func NewExportNotifierService(cfg *config.Config, logger *observability.Logger) *ExportNotifierService {
	return NewExportNotifierServiceWithURL(cfg, logger, cfg.Export.URL)
}

// NewExportNotifierServiceWithURL creates an ExportNotifierService posting to
// a custom URL (for testing)
func NewExportNotifierServiceWithURL(cfg *config.Config, logger *observability.Logger, webhookURL string) *ExportNotifierService {
	if cfg == nil {
		panic("NewExportNotifierService: config is nil")
	}
	if logger == nil {
		panic("NewExportNotifierService: logger is nil")
	}
	return &ExportNotifierService{
		config: cfg,
		logger: logger,
		httpClient: &http.Client{
			Timeout: cfg.Export.RequestTimeout(),
			Transport: otelhttp.NewTransport(http.DefaultTransport,
				otelhttp.WithSpanOptions(trace.WithSpanKind(trace.SpanKindClient)),
			),
		},
		webhookURL: webhookURL,
	}
}

// IsEnabled reports whether a webhook destination is configured
func (s *ExportNotifierService) IsEnabled() bool {
	return s.config.Export.Enabled && s.webhookURL != ""
}

// NotifyReportReady posts the report-ready event. Callers treat failures as
// non-fatal; the report row is already persisted when this runs.
func (s *ExportNotifierService) NotifyReportReady(ctx context.Context, report *models.Report) (err error) {
	ctx, span := observability.TraceExportFunction(ctx, "notify_report_ready",
		observability.AttributeAssignmentID(report.AssignmentID),
		observability.AttributeReportKind(report.Kind),
	)
	defer observability.FinishSpan(span, &err)

	if !s.IsEnabled() {
		s.logger.Debug(ctx, "Export webhook not configured, skipping notification")
		return nil
	}

	notification := ExportNotification{
		AssignmentID: report.AssignmentID,
		AssessmentID: report.AssessmentID,
		Kind:         report.Kind,
		ReportID:     report.ID,
		GeneratedAt:  report.UpdatedAt,
	}
	jsonData, err := json.Marshal(notification)
	if err != nil {
		return contextutils.WrapError(err, "failed to marshal export notification")
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.webhookURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return contextutils.WrapError(err, "failed to create export notification request")
	}
	req.Header.Set("Content-Type", "application/json")
	if s.config.Export.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.config.Export.Token)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return contextutils.WrapError(err, "failed to post export notification")
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			s.logger.Warn(ctx, "Failed to close response body", map[string]interface{}{"error": closeErr.Error()})
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return contextutils.NewAppError(
			contextutils.ErrorCodeServiceUnavailable,
			contextutils.SeverityError,
			fmt.Sprintf("export webhook returned status %d: %s", resp.StatusCode, string(body)),
			"",
		)
	}

	s.logger.Info(ctx, "Export webhook notified", map[string]interface{}{
		"report_id":     report.ID,
		"assignment_id": report.AssignmentID,
	})
	return nil
}
