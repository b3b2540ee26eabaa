// Package processor handles incoming performance record messages and manages
// the staging pipeline. This is the ingestion layer; match runs read from the
// staged tables afterwards.
package processor

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/internal/repositories/stagedrecord"
	"github.com/Ramsey-B/clover/pkg/events"
	"github.com/Ramsey-B/clover/pkg/kafka"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// Processor handles message processing for the staging layer
type Processor struct {
	logger     ectologger.Logger
	recordRepo *stagedrecord.Repository
	emitter    *events.Emitter
}

// NewProcessor creates a new message processor for ingestion
func NewProcessor(
	logger ectologger.Logger,
	recordRepo *stagedrecord.Repository,
	emitter *events.Emitter,
) *Processor {
	return &Processor{
		logger:     logger,
		recordRepo: recordRepo,
		emitter:    emitter,
	}
}

// ProcessMessage handles an incoming Kafka message. Records missing their
// identity fields are rejected so the consumer commits and moves on; staging
// failures return an error so the message is redelivered.
func (p *Processor) ProcessMessage(ctx context.Context, msg *kafka.IncomingMessage) error {
	ctx, span := tracing.StartSpan(ctx, "processor.Processor.ProcessMessage")
	defer span.End()

	tenantID := msg.GetTenantID()
	platform := msg.GetPlatform()
	sourceID := msg.GetSourceID()

	log := p.logger.WithContext(ctx).WithFields(map[string]any{
		"tenant_id": tenantID,
		"platform":  platform,
		"source_id": sourceID,
	})

	if tenantID == "" || platform == "" || sourceID == "" {
		log.Warn("Dropping record message missing identity fields")
		return nil
	}

	kind := models.SourceKind(msg.Record.SourceKind)
	if kind != models.SourceKindPaid && kind != models.SourceKindOrganic {
		kind = models.ClassifySourceKind(msg.DataColumns())
	}

	result, err := p.recordRepo.Upsert(ctx, tenantID, models.CreateStagedRecordRequest{
		Platform:   platform,
		SourceID:   sourceID,
		SourceKind: kind,
		SourceKey:  msg.Record.SourceKey,
		Data:       msg.GetData(),
	})
	if err != nil {
		log.WithError(err).Error("Failed to stage record")
		return fmt.Errorf("failed to stage record %s: %w", sourceID, err)
	}

	// Emit failures are logged but do not fail the message. The record is
	// already staged and redelivery would just re-upsert it.
	if err := p.emitter.EmitRecordStaged(ctx, result.Record); err != nil {
		log.WithError(err).Warn("Staged record but failed to emit event")
	}

	log.WithFields(map[string]any{
		"record_id":   result.Record.ID,
		"source_kind": kind,
		"is_new":      result.IsNew,
	}).Debug("Processed record message")

	return nil
}
