// Package events handles event emission for record and match run lifecycle changes
package events

import (
	"context"
	"encoding/json"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/kafka"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// Emitter handles event emission for Clover
type Emitter struct {
	producer *kafka.Producer
	logger   ectologger.Logger
}

// NewEmitter creates a new event emitter
func NewEmitter(producer *kafka.Producer, logger ectologger.Logger) *Emitter {
	return &Emitter{
		producer: producer,
		logger:   logger,
	}
}

// EmitRecordStaged emits an event after a performance record is staged
func (e *Emitter) EmitRecordStaged(ctx context.Context, record *models.StagedRecord) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitRecordStaged")
	defer span.End()

	data := map[string]any{
		"schema_version": SchemaVersion,
		"source_id":      record.SourceID,
		"source_kind":    record.SourceKind,
	}
	dataJSON, _ := json.Marshal(data)

	event := &kafka.RecordEvent{
		EventType:  EventRecordStaged,
		TenantID:   record.TenantID,
		RecordID:   record.ID,
		Platform:   record.Platform,
		SourceKind: string(record.SourceKind),
		Data:       dataJSON,
	}

	if err := e.producer.PublishRecordEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit record.staged event")
		return err
	}

	return nil
}

// EmitMatchRunCompleted emits an event after a match run finishes, including
// its diagnostics payload so consumers can track match rates.
func (e *Emitter) EmitMatchRunCompleted(ctx context.Context, run *models.MatchRun) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitMatchRunCompleted")
	defer span.End()

	event := &kafka.MatchRunEvent{
		EventType:   EventMatchRunCompleted,
		TenantID:    run.TenantID,
		RunID:       run.ID,
		Namespace:   run.Namespace,
		Status:      string(run.Status),
		Diagnostics: run.Diagnostics,
	}

	if err := e.producer.PublishMatchRunEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit match.run.completed event")
		return err
	}

	return nil
}

// EmitMatchRunFailed emits an event when a match run fails
func (e *Emitter) EmitMatchRunFailed(ctx context.Context, run *models.MatchRun, runErr error) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitMatchRunFailed")
	defer span.End()

	data := map[string]any{
		"schema_version": SchemaVersion,
		"error":          runErr.Error(),
	}
	dataJSON, _ := json.Marshal(data)

	event := &kafka.MatchRunEvent{
		EventType:   EventMatchRunFailed,
		TenantID:    run.TenantID,
		RunID:       run.ID,
		Namespace:   run.Namespace,
		Status:      string(models.MatchRunStatusFailed),
		Diagnostics: dataJSON,
	}

	if err := e.producer.PublishMatchRunEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit match.run.failed event")
		return err
	}

	return nil
}
