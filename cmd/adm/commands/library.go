package commands

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"talentapp/internal/middleware"
	"talentapp/internal/models"
	"talentapp/internal/observability"
	"talentapp/internal/services"
	contextutils "talentapp/internal/utils"

	"github.com/spf13/cobra"
)

// libraryFile is the on-disk YAML shape of a feedback catalog. The assessment
// the entries belong to comes from the --assessment flag, not the file, so
// the same catalog can seed several assessments.
type libraryFile struct {
	Entries []libraryFileEntry `yaml:"entries"`
}

type libraryFileEntry struct {
	DimensionID int      `yaml:"dimension_id"`
	Type        string   `yaml:"type"`
	MinScore    *float64 `yaml:"min_score"`
	MaxScore    *float64 `yaml:"max_score"`
	Content     string   `yaml:"content"`
}

// LibraryCommands returns the feedback library maintenance commands
func LibraryCommands(libraryService *services.FeedbackLibraryService, logger *observability.Logger) *cobra.Command {
	libraryCmd := &cobra.Command{
		Use:   "library",
		Short: "Feedback library maintenance commands",
		Long: `Feedback library maintenance commands for the talent platform.

Available commands:
  load   - Replace an assessment's feedback library from a YAML catalog`,
	}

	// Add subcommands
	libraryCmd.AddCommand(loadCmd(libraryService, logger))

	return libraryCmd
}

// loadCmd returns the load command
func loadCmd(libraryService *services.FeedbackLibraryService, logger *observability.Logger) *cobra.Command {
	var assessmentID int

	cmd := &cobra.Command{
		Use:   "load [file.yaml]",
		Short: "Load a feedback catalog from a YAML file",
		Long: `Load a feedback catalog from a YAML file and replace the assessment's
library entries with its contents. The file is validated against the
FeedbackLibrary schema before any rows change, and the replacement happens
in one transaction.`,
		Args: cobra.ExactArgs(1),
		RunE: runLoadLibrary(libraryService, logger, &assessmentID),
	}

	cmd.Flags().IntVar(&assessmentID, "assessment", 0, "Assessment id whose library is replaced (required)")
	_ = cmd.MarkFlagRequired("assessment")

	return cmd
}

// runLoadLibrary returns a function that loads and installs a feedback catalog
func runLoadLibrary(libraryService *services.FeedbackLibraryService, logger *observability.Logger, assessmentID *int) func(cmd *cobra.Command, args []string) error {
	return func(_ *cobra.Command, args []string) error {
		ctx := context.Background()
		path := args[0]

		if *assessmentID <= 0 {
			return contextutils.ErrorWithContextf("assessment id must be positive")
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to read catalog file: %v", err)
		}

		if err := validateCatalog(data); err != nil {
			return err
		}

		var file libraryFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return contextutils.WrapErrorf(contextutils.ErrInvalidInput, "failed to parse catalog file: %v", err)
		}
		if len(file.Entries) == 0 {
			return contextutils.ErrorWithContextf("catalog file contains no entries")
		}

		entries := toLibraryEntries(file.Entries, *assessmentID)

		logger.Info(ctx, "Replacing feedback library", map[string]interface{}{"assessment_id": *assessmentID, "entries": len(entries), "file": path})

		if err := libraryService.ReplaceLibrary(ctx, *assessmentID, entries); err != nil {
			logger.Error(ctx, "Failed to replace feedback library", err, map[string]interface{}{"assessment_id": *assessmentID})
			return contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to replace library for assessment %d: %v", *assessmentID, err)
		}

		fmt.Printf("Replaced feedback library for assessment %d with %d entries\n", *assessmentID, len(entries))
		logger.Info(ctx, "Feedback library replaced", map[string]interface{}{"assessment_id": *assessmentID, "entries": len(entries)})
		return nil
	}
}

// toLibraryEntries maps decoded catalog entries onto model rows for the given
// assessment. Absent min/max bounds become null, meaning unbounded.
func toLibraryEntries(raw []libraryFileEntry, assessmentID int) []models.FeedbackLibraryEntry {
	entries := make([]models.FeedbackLibraryEntry, 0, len(raw))
	for _, r := range raw {
		entry := models.FeedbackLibraryEntry{
			AssessmentID: assessmentID,
			DimensionID:  r.DimensionID,
			Type:         r.Type,
			Content:      r.Content,
		}
		if r.MinScore != nil {
			entry.MinScore = sql.NullFloat64{Float64: *r.MinScore, Valid: true}
		}
		if r.MaxScore != nil {
			entry.MaxScore = sql.NullFloat64{Float64: *r.MaxScore, Valid: true}
		}
		entries = append(entries, entry)
	}
	return entries
}

// validateCatalog checks the raw YAML against the FeedbackLibrary schema when
// one is loaded. A deployment without a schema file skips the check; typed
// decoding and service-level validation still apply.
func validateCatalog(data []byte) error {
	loader, err := middleware.LoadDefaultSchemas()
	if err != nil {
		return contextutils.WrapError(err, "failed to load schemas")
	}
	if !loader.HasSchema(middleware.FeedbackLibrarySchema) {
		return nil
	}

	var raw interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return contextutils.WrapErrorf(contextutils.ErrInvalidInput, "failed to parse catalog file: %v", err)
	}

	if err := loader.ValidateData(yamlToJSONCompatible(raw), middleware.FeedbackLibrarySchema); err != nil {
		return contextutils.WrapErrorf(contextutils.ErrInvalidInput, "catalog failed schema validation: %v", err)
	}
	return nil
}

// yamlToJSONCompatible rewrites yaml.v2's interface{}-keyed maps into
// string-keyed ones so the document can be marshalled as JSON for schema
// validation
func yamlToJSONCompatible(v interface{}) interface{} {
	switch val := v.(type) {
	case map[interface{}]interface{}:
		result := make(map[string]interface{}, len(val))
		for k, item := range val {
			result[fmt.Sprint(k)] = yamlToJSONCompatible(item)
		}
		return result
	case []interface{}:
		for i, item := range val {
			val[i] = yamlToJSONCompatible(item)
		}
		return val
	default:
		return v
	}
}
