// Package fuzzycache persists fuzzy match results in Postgres so repeated
// runs over the same namespace skip re-scoring strings they have already
// resolved.
package fuzzycache

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// Repository stores cached fuzzy match mappings per namespace. It satisfies
// matchcache.Store so the match engine can use it interchangeably with the
// file-backed store.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new fuzzy cache repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

type cacheEntry struct {
	SourceValue string `db:"source_value"`
	MatchValue  string `db:"match_value"`
}

// Load returns the cached source-to-match mapping for a namespace. A
// namespace with no entries yields an empty map.
func (r *Repository) Load(ctx context.Context, namespace string) (map[string]string, error) {
	ctx, span := tracing.StartSpan(ctx, "fuzzycache.Repository.Load")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("source_value", "match_value")
	sb.From("fuzzy_cache_entries")
	sb.Where(sb.Equal("namespace", namespace))

	query, args := sb.Build()
	var entries []cacheEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"namespace": namespace,
		}).Error("Failed to load fuzzy cache")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to load fuzzy cache")
	}

	mapping := make(map[string]string, len(entries))
	for _, e := range entries {
		mapping[e.SourceValue] = e.MatchValue
	}
	return mapping, nil
}

// Save replaces the namespace's cached mapping with the given one. The
// delete and inserts run in one transaction so readers never see a
// partially written cache.
func (r *Repository) Save(ctx context.Context, namespace string, mapping map[string]string) error {
	ctx, span := tracing.StartSpan(ctx, "fuzzycache.Repository.Save")
	defer span.End()

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"namespace": namespace,
		"entries":   len(mapping),
	})

	ctx, tx, err := database.GetTx(ctx, r.logger, r.db, nil)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to save fuzzy cache")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	del := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	del.DeleteFrom("fuzzy_cache_entries")
	del.Where(del.Equal("namespace", namespace))

	query, args := del.Build()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		log.WithError(err).Error("Failed to clear fuzzy cache namespace")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to save fuzzy cache")
	}

	if len(mapping) > 0 {
		now := time.Now().UTC()
		ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
		ib.InsertInto("fuzzy_cache_entries")
		ib.Cols("namespace", "source_value", "match_value", "updated_at")
		for source, match := range mapping {
			ib.Values(namespace, source, match, now)
		}

		query, args = ib.Build()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			log.WithError(err).Error("Failed to insert fuzzy cache entries")
			return httperror.NewHTTPError(http.StatusInternalServerError, "failed to save fuzzy cache")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to save fuzzy cache")
	}

	log.Debug("Saved fuzzy cache")
	return nil
}

// Purge removes all cached entries for a namespace and returns how many
// rows were deleted.
func (r *Repository) Purge(ctx context.Context, namespace string) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "fuzzycache.Repository.Purge")
	defer span.End()

	del := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	del.DeleteFrom("fuzzy_cache_entries")
	del.Where(del.Equal("namespace", namespace))

	query, args := del.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"namespace": namespace,
		}).Error("Failed to purge fuzzy cache")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to purge fuzzy cache")
	}

	rows, _ := result.RowsAffected()
	r.logger.WithContext(ctx).WithFields(map[string]any{
		"namespace": namespace,
		"deleted":   rows,
	}).Info("Purged fuzzy cache namespace")
	return rows, nil
}

// Namespaces lists the namespaces that currently have cached entries
func (r *Repository) Namespaces(ctx context.Context) ([]string, error) {
	ctx, span := tracing.StartSpan(ctx, "fuzzycache.Repository.Namespaces")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("DISTINCT namespace")
	sb.From("fuzzy_cache_entries")
	sb.OrderBy("namespace ASC")

	query, args := sb.Build()
	var namespaces []string
	if err := r.db.SelectContext(ctx, &namespaces, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list fuzzy cache namespaces")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list fuzzy cache namespaces")
	}

	return namespaces, nil
}
