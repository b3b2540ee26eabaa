package stagedrecord

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/dataset"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// Repository handles staged performance record persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new staged record repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Upsert inserts a record or updates the existing row for the same
// tenant/platform/source id. Returns whether a new row was inserted.
func (r *Repository) Upsert(ctx context.Context, tenantID string, req models.CreateStagedRecordRequest) (*models.UpsertStagedRecordResult, error) {
	ctx, span := tracing.StartSpan(ctx, "stagedrecord.Repository.Upsert")
	defer span.End()

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"method":    "Upsert",
		"tenant_id": tenantID,
		"platform":  req.Platform,
		"source_id": req.SourceID,
	})

	existing, err := r.getBySource(ctx, tenantID, req.Platform, req.SourceID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	if existing != nil {
		existing.SourceKind = req.SourceKind
		existing.SourceKey = req.SourceKey
		existing.Data = req.Data
		existing.UpdatedAt = now

		sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
		sb.Update("staged_records")
		sb.Set(
			sb.Assign("source_kind", existing.SourceKind),
			sb.Assign("source_key", existing.SourceKey),
			sb.Assign("data", existing.Data),
			sb.Assign("updated_at", existing.UpdatedAt),
		)
		sb.Where(
			sb.Equal("id", existing.ID),
			sb.Equal("tenant_id", tenantID),
		)

		query, args := sb.Build()
		if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
			log.WithError(err).Error("Failed to update staged record")
			return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to update staged record")
		}

		return &models.UpsertStagedRecordResult{Record: existing, IsNew: false}, nil
	}

	record := &models.StagedRecord{
		ID:         uuid.New().String(),
		TenantID:   tenantID,
		Platform:   req.Platform,
		SourceID:   req.SourceID,
		SourceKind: req.SourceKind,
		SourceKey:  req.SourceKey,
		Data:       req.Data,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("staged_records")
	sb.Cols("id", "tenant_id", "platform", "source_id", "source_kind", "source_key", "data", "created_at", "updated_at")
	sb.Values(record.ID, record.TenantID, record.Platform, record.SourceID, record.SourceKind, record.SourceKey, record.Data, record.CreatedAt, record.UpdatedAt)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		log.WithError(err).Error("Failed to insert staged record")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to insert staged record")
	}

	log.WithFields(map[string]any{"id": record.ID}).Info("Staged record")
	return &models.UpsertStagedRecordResult{Record: record, IsNew: true}, nil
}

func (r *Repository) getBySource(ctx context.Context, tenantID, platform, sourceID string) (*models.StagedRecord, error) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "tenant_id", "platform", "source_id", "source_kind", "source_key", "data", "created_at", "updated_at", "deleted_at")
	sb.From("staged_records")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Equal("platform", platform),
		sb.Equal("source_id", sourceID),
		sb.IsNull("deleted_at"),
	)

	query, args := sb.Build()
	var record models.StagedRecord
	if err := r.db.GetContext(ctx, &record, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get staged record")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get staged record")
	}

	return &record, nil
}

// Get retrieves a staged record by ID
func (r *Repository) Get(ctx context.Context, tenantID string, id string) (*models.StagedRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "stagedrecord.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "tenant_id", "platform", "source_id", "source_kind", "source_key", "data", "created_at", "updated_at", "deleted_at")
	sb.From("staged_records")
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
		sb.IsNull("deleted_at"),
	)

	query, args := sb.Build()
	var record models.StagedRecord
	if err := r.db.GetContext(ctx, &record, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("staged record %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get staged record")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get staged record")
	}

	return &record, nil
}

// ListByKind retrieves all staged records of one kind for a tenant
func (r *Repository) ListByKind(ctx context.Context, tenantID string, kind models.SourceKind) ([]models.StagedRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "stagedrecord.Repository.ListByKind")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "tenant_id", "platform", "source_id", "source_kind", "source_key", "data", "created_at", "updated_at", "deleted_at")
	sb.From("staged_records")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Equal("source_kind", kind),
		sb.IsNull("deleted_at"),
	)
	sb.OrderBy("created_at ASC")

	query, args := sb.Build()
	var records []models.StagedRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list staged records")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list staged records")
	}

	return records, nil
}

// List retrieves staged records for a tenant with pagination
func (r *Repository) List(ctx context.Context, tenantID string, kind *models.SourceKind, page, pageSize int) ([]models.StagedRecord, int, error) {
	ctx, span := tracing.StartSpan(ctx, "stagedrecord.Repository.List")
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
	countSb.From("staged_records")
	countWhere := []string{
		countSb.Equal("tenant_id", tenantID),
		countSb.IsNull("deleted_at"),
	}
	if kind != nil {
		countWhere = append(countWhere, countSb.Equal("source_kind", *kind))
	}
	countSb.Where(countWhere...)

	countQuery, countArgs := countSb.Build()
	var totalCount int
	if err := r.db.GetContext(ctx, &totalCount, countQuery, countArgs...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count staged records")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count staged records")
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "tenant_id", "platform", "source_id", "source_kind", "source_key", "data", "created_at", "updated_at", "deleted_at")
	sb.From("staged_records")
	where := []string{
		sb.Equal("tenant_id", tenantID),
		sb.IsNull("deleted_at"),
	}
	if kind != nil {
		where = append(where, sb.Equal("source_kind", *kind))
	}
	sb.Where(where...)
	sb.OrderBy("created_at DESC")
	sb.Limit(pageSize).Offset(offset)

	query, args := sb.Build()
	var records []models.StagedRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list staged records")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list staged records")
	}

	return records, totalCount, nil
}

// Delete soft deletes a staged record
func (r *Repository) Delete(ctx context.Context, tenantID string, id string) error {
	ctx, span := tracing.StartSpan(ctx, "stagedrecord.Repository.Delete")
	defer span.End()

	now := time.Now().UTC()
	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("staged_records")
	sb.Set(sb.Assign("deleted_at", now))
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
		sb.IsNull("deleted_at"),
	)

	query, args := sb.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to delete staged record")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete staged record")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("staged record %s not found", id))
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"id": id}).Info("Deleted staged record")
	return nil
}

// DatasetByKind loads all records of one kind and flattens their data
// payloads into a tabular dataset for the match engine. Payload fields
// become columns; the record id is carried in "record_id".
func (r *Repository) DatasetByKind(ctx context.Context, tenantID string, kind models.SourceKind) (*dataset.Dataset, error) {
	ctx, span := tracing.StartSpan(ctx, "stagedrecord.Repository.DatasetByKind")
	defer span.End()

	records, err := r.ListByKind(ctx, tenantID, kind)
	if err != nil {
		return nil, err
	}

	rows := make([]map[string]any, 0, len(records))
	seen := map[string]bool{"record_id": true, "platform": true}
	extras := []string{}
	for _, rec := range records {
		var data map[string]any
		if len(rec.Data) > 0 {
			if err := json.Unmarshal(rec.Data, &data); err != nil {
				r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
					"record_id": rec.ID,
				}).Warn("Skipping record with unreadable data payload")
				continue
			}
		}
		if data == nil {
			data = map[string]any{}
		}
		data["record_id"] = rec.ID
		if _, ok := data["platform"]; !ok {
			data["platform"] = rec.Platform
		}
		for k := range data {
			if !seen[k] {
				seen[k] = true
				extras = append(extras, k)
			}
		}
		rows = append(rows, data)
	}

	sort.Strings(extras)
	columns := append([]string{"record_id", "platform"}, extras...)
	return dataset.FromRecords(columns, rows), nil
}
