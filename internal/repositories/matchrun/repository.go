package matchrun

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// Repository handles match run persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new match run repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new pending match run
func (r *Repository) Create(ctx context.Context, tenantID string, req models.CreateMatchRunRequest) (*models.MatchRun, error) {
	ctx, span := tracing.StartSpan(ctx, "matchrun.Repository.Create")
	defer span.End()

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"method":    "Create",
		"tenant_id": tenantID,
		"namespace": req.Namespace,
	})

	now := time.Now().UTC()
	run := &models.MatchRun{
		ID:         uuid.New().String(),
		TenantID:   tenantID,
		Namespace:  req.Namespace,
		Status:     models.MatchRunStatusPending,
		Parameters: req.Parameters,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("match_runs")
	sb.Cols("id", "tenant_id", "namespace", "status", "parameters", "created_at", "updated_at")
	sb.Values(run.ID, run.TenantID, run.Namespace, run.Status, run.Parameters, run.CreatedAt, run.UpdatedAt)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		log.WithError(err).Error("Failed to create match run")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create match run")
	}

	log.WithFields(map[string]any{"id": run.ID}).Info("Created match run")
	return run, nil
}

// Get retrieves a match run by ID
func (r *Repository) Get(ctx context.Context, tenantID string, id string) (*models.MatchRun, error) {
	ctx, span := tracing.StartSpan(ctx, "matchrun.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "tenant_id", "namespace", "status", "parameters", "diagnostics", "error", "created_at", "updated_at", "started_at", "completed_at")
	sb.From("match_runs")
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
	)

	query, args := sb.Build()
	var run models.MatchRun
	if err := r.db.GetContext(ctx, &run, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("match run %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get match run")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get match run")
	}

	return &run, nil
}

// List retrieves match runs for a tenant, most recent first
func (r *Repository) List(ctx context.Context, tenantID string, namespace *string, page, pageSize int) ([]models.MatchRun, int, error) {
	ctx, span := tracing.StartSpan(ctx, "matchrun.Repository.List")
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	countSb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	countSb.Select("COUNT(*)")
	countSb.From("match_runs")
	countWhere := []string{countSb.Equal("tenant_id", tenantID)}
	if namespace != nil {
		countWhere = append(countWhere, countSb.Equal("namespace", *namespace))
	}
	countSb.Where(countWhere...)

	countQuery, countArgs := countSb.Build()
	var totalCount int
	if err := r.db.GetContext(ctx, &totalCount, countQuery, countArgs...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count match runs")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count match runs")
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "tenant_id", "namespace", "status", "parameters", "diagnostics", "error", "created_at", "updated_at", "started_at", "completed_at")
	sb.From("match_runs")
	where := []string{sb.Equal("tenant_id", tenantID)}
	if namespace != nil {
		where = append(where, sb.Equal("namespace", *namespace))
	}
	sb.Where(where...)
	sb.OrderBy("created_at DESC")
	sb.Limit(pageSize).Offset(offset)

	query, args := sb.Build()
	var runs []models.MatchRun
	if err := r.db.SelectContext(ctx, &runs, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list match runs")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list match runs")
	}

	return runs, totalCount, nil
}

// MarkRunning transitions a run to running and stamps started_at
func (r *Repository) MarkRunning(ctx context.Context, tenantID string, id string) error {
	ctx, span := tracing.StartSpan(ctx, "matchrun.Repository.MarkRunning")
	defer span.End()

	now := time.Now().UTC()
	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("match_runs")
	sb.Set(
		sb.Assign("status", models.MatchRunStatusRunning),
		sb.Assign("started_at", now),
		sb.Assign("updated_at", now),
	)
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
		sb.Equal("status", models.MatchRunStatusPending),
	)

	query, args := sb.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to mark match run running")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to mark match run running")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusConflict, fmt.Sprintf("match run %s is not pending", id))
	}

	return nil
}

// Complete marks a run completed and stores its diagnostics
func (r *Repository) Complete(ctx context.Context, tenantID string, id string, diagnostics json.RawMessage) error {
	ctx, span := tracing.StartSpan(ctx, "matchrun.Repository.Complete")
	defer span.End()

	now := time.Now().UTC()
	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("match_runs")
	sb.Set(
		sb.Assign("status", models.MatchRunStatusCompleted),
		sb.Assign("diagnostics", diagnostics),
		sb.Assign("completed_at", now),
		sb.Assign("updated_at", now),
	)
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
	)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to complete match run")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to complete match run")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"id": id}).Info("Completed match run")
	return nil
}

// Fail marks a run failed and records the error message
func (r *Repository) Fail(ctx context.Context, tenantID string, id string, runErr error) error {
	ctx, span := tracing.StartSpan(ctx, "matchrun.Repository.Fail")
	defer span.End()

	now := time.Now().UTC()
	msg := runErr.Error()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("match_runs")
	sb.Set(
		sb.Assign("status", models.MatchRunStatusFailed),
		sb.Assign("error", msg),
		sb.Assign("completed_at", now),
		sb.Assign("updated_at", now),
	)
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
	)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to mark match run failed")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to mark match run failed")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"id": id, "error": msg}).Warn("Match run failed")
	return nil
}
