package services

import (
	"context"
	"database/sql"
	"time"

	"talentapp/internal/models"
	"talentapp/internal/observability"
	contextutils "talentapp/internal/utils"

	"go.opentelemetry.io/otel/attribute"
)

// BenchmarkServiceInterface defines industry benchmark operations
type BenchmarkServiceInterface interface {
	GetBenchmarksForAssessment(ctx context.Context, assessmentID int) ([]models.Benchmark, error)
	GetBenchmarks(ctx context.Context, assessmentID, industryID int) ([]models.Benchmark, error)
	CreateBenchmark(ctx context.Context, benchmark *models.Benchmark) (*models.Benchmark, error)
	DeleteBenchmark(ctx context.Context, id int) error
}

// BenchmarkService stores per-industry reference values for assessment
// dimensions. Reports attach them so a score can be read against the
// subject's industry.
type BenchmarkService struct {
	db     *sql.DB
	logger *observability.Logger
}

// NewBenchmarkService creates a new BenchmarkService instance
func NewBenchmarkService(db *sql.DB, logger *observability.Logger) *BenchmarkService {
	if db == nil {
		panic("NewBenchmarkService: db is nil")
	}
	if logger == nil {
		panic("NewBenchmarkService: logger is nil")
	}
	return &BenchmarkService{db: db, logger: logger}
}

const benchmarkSelectFields = `id, assessment_id, industry_id, dimension_id, value, created_at`

// GetBenchmarksForAssessment returns every benchmark row for an assessment
// across all industries
func (s *BenchmarkService) GetBenchmarksForAssessment(ctx context.Context, assessmentID int) (result0 []models.Benchmark, err error) {
	ctx, span := observability.TraceBenchmarkFunction(ctx, "get_benchmarks_for_assessment",
		observability.AttributeAssessmentID(assessmentID),
	)
	defer observability.FinishSpan(span, &err)

	query := `SELECT ` + benchmarkSelectFields + `
	          FROM benchmarks
	          WHERE assessment_id = $1
	          ORDER BY industry_id, dimension_id`
	rows, err := s.db.QueryContext(ctx, query, assessmentID)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to query benchmarks")
	}
	defer func() {
		_ = rows.Close()
	}()

	benchmarks := []models.Benchmark{}
	for rows.Next() {
		var benchmark models.Benchmark
		if err := rows.Scan(&benchmark.ID, &benchmark.AssessmentID, &benchmark.IndustryID, &benchmark.DimensionID, &benchmark.Value, &benchmark.CreatedAt); err != nil {
			return nil, contextutils.WrapError(err, "failed to scan benchmark")
		}
		benchmarks = append(benchmarks, benchmark)
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "failed to iterate benchmarks")
	}

	span.SetAttributes(attribute.Int("benchmarks.count", len(benchmarks)))
	return benchmarks, nil
}

// GetBenchmarks returns the benchmarks for one assessment within one
// industry, ordered by dimension
func (s *BenchmarkService) GetBenchmarks(ctx context.Context, assessmentID, industryID int) (result0 []models.Benchmark, err error) {
	ctx, span := observability.TraceBenchmarkFunction(ctx, "get_benchmarks",
		observability.AttributeAssessmentID(assessmentID),
		attribute.Int("industry.id", industryID),
	)
	defer observability.FinishSpan(span, &err)

	query := `SELECT ` + benchmarkSelectFields + `
	          FROM benchmarks
	          WHERE assessment_id = $1 AND industry_id = $2
	          ORDER BY dimension_id`
	rows, err := s.db.QueryContext(ctx, query, assessmentID, industryID)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to query benchmarks")
	}
	defer func() {
		_ = rows.Close()
	}()

	benchmarks := []models.Benchmark{}
	for rows.Next() {
		var benchmark models.Benchmark
		if err := rows.Scan(&benchmark.ID, &benchmark.AssessmentID, &benchmark.IndustryID, &benchmark.DimensionID, &benchmark.Value, &benchmark.CreatedAt); err != nil {
			return nil, contextutils.WrapError(err, "failed to scan benchmark")
		}
		benchmarks = append(benchmarks, benchmark)
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "failed to iterate benchmarks")
	}

	span.SetAttributes(attribute.Int("benchmarks.count", len(benchmarks)))
	return benchmarks, nil
}

// CreateBenchmark inserts a benchmark value for (assessment, industry, dimension)
func (s *BenchmarkService) CreateBenchmark(ctx context.Context, benchmark *models.Benchmark) (result0 *models.Benchmark, err error) {
	ctx, span := observability.TraceBenchmarkFunction(ctx, "create_benchmark",
		observability.AttributeAssessmentID(benchmark.AssessmentID),
		attribute.Int("industry.id", benchmark.IndustryID),
		observability.AttributeDimensionID(benchmark.DimensionID),
	)
	defer observability.FinishSpan(span, &err)

	query := `INSERT INTO benchmarks (assessment_id, industry_id, dimension_id, value, created_at)
	          VALUES ($1, $2, $3, $4, $5)
	          RETURNING id, created_at`
	err = s.db.QueryRowContext(ctx, query, benchmark.AssessmentID, benchmark.IndustryID, benchmark.DimensionID, benchmark.Value, time.Now()).
		Scan(&benchmark.ID, &benchmark.CreatedAt)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to create benchmark")
	}
	return benchmark, nil
}

// DeleteBenchmark removes a benchmark row by id
func (s *BenchmarkService) DeleteBenchmark(ctx context.Context, id int) (err error) {
	ctx, span := observability.TraceBenchmarkFunction(ctx, "delete_benchmark",
		attribute.Int("benchmark.id", id),
	)
	defer observability.FinishSpan(span, &err)

	result, err := s.db.ExecContext(ctx, `DELETE FROM benchmarks WHERE id = $1`, id)
	if err != nil {
		return contextutils.WrapError(err, "failed to delete benchmark")
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return contextutils.WrapError(err, "failed to get rows affected")
	}
	if rowsAffected == 0 {
		return contextutils.ErrRecordNotFound
	}
	return nil
}
