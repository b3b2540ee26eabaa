package processor

import (
	"context"
	"encoding/json"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/internal/repositories/matchrun"
	"github.com/Ramsey-B/clover/internal/repositories/stagedrecord"
	clovererrors "github.com/Ramsey-B/clover/pkg/errors"
	"github.com/Ramsey-B/clover/pkg/events"
	"github.com/Ramsey-B/clover/pkg/matching"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// RunProcessor executes match runs over the staged record tables
type RunProcessor struct {
	logger     ectologger.Logger
	engine     *matching.Engine
	recordRepo *stagedrecord.Repository
	runRepo    *matchrun.Repository
	emitter    *events.Emitter
}

// NewRunProcessor creates a new match run processor
func NewRunProcessor(
	logger ectologger.Logger,
	engine *matching.Engine,
	recordRepo *stagedrecord.Repository,
	runRepo *matchrun.Repository,
	emitter *events.Emitter,
) *RunProcessor {
	return &RunProcessor{
		logger:     logger,
		engine:     engine,
		recordRepo: recordRepo,
		runRepo:    runRepo,
		emitter:    emitter,
	}
}

// Execute runs the match pipeline for a pending run: paid records on one
// side, organic on the other. The run record tracks progress and stores the
// diagnostics; runs execute inline so a namespace never has two writers.
func (p *RunProcessor) Execute(ctx context.Context, run *models.MatchRun) (*matching.Result, error) {
	ctx, span := tracing.StartSpan(ctx, "processor.RunProcessor.Execute")
	defer span.End()

	log := p.logger.WithContext(ctx).WithFields(map[string]any{
		"run_id":    run.ID,
		"tenant_id": run.TenantID,
		"namespace": run.Namespace,
	})

	cfg := matching.DefaultConfig()
	if len(run.Parameters) > 0 {
		if err := json.Unmarshal(run.Parameters, &cfg); err != nil {
			cfgErr := clovererrors.NewMatchConfigError("match run parameters are not valid JSON").AddParameter("parameters")
			p.failRun(ctx, run, cfgErr)
			return nil, cfgErr
		}
	}
	if cfg.Namespace == "" {
		cfg.Namespace = run.Namespace
	}

	if err := p.runRepo.MarkRunning(ctx, run.TenantID, run.ID); err != nil {
		return nil, err
	}
	run.Status = models.MatchRunStatusRunning

	paid, err := p.recordRepo.DatasetByKind(ctx, run.TenantID, models.SourceKindPaid)
	if err != nil {
		p.failRun(ctx, run, err)
		return nil, err
	}
	organic, err := p.recordRepo.DatasetByKind(ctx, run.TenantID, models.SourceKindOrganic)
	if err != nil {
		p.failRun(ctx, run, err)
		return nil, err
	}

	log.WithFields(map[string]any{
		"paid_rows":    paid.Len(),
		"organic_rows": organic.Len(),
	}).Info("Starting match run")

	result, err := p.engine.Run(ctx, paid, organic, cfg)
	if err != nil {
		p.failRun(ctx, run, err)
		return nil, err
	}

	diagJSON, err := json.Marshal(result.Diagnostics)
	if err != nil {
		p.failRun(ctx, run, err)
		return nil, err
	}

	if err := p.runRepo.Complete(ctx, run.TenantID, run.ID, diagJSON); err != nil {
		return nil, err
	}
	run.Status = models.MatchRunStatusCompleted
	run.Diagnostics = diagJSON

	if err := p.emitter.EmitMatchRunCompleted(ctx, run); err != nil {
		log.WithError(err).Warn("Match run completed but failed to emit event")
	}

	log.WithFields(map[string]any{
		"matched_a":       result.Diagnostics.MatchedA,
		"percent_matched": result.Diagnostics.PercentMatchedA,
	}).Info("Match run completed")

	return result, nil
}

func (p *RunProcessor) failRun(ctx context.Context, run *models.MatchRun, runErr error) {
	if err := p.runRepo.Fail(ctx, run.TenantID, run.ID, runErr); err != nil {
		p.logger.WithContext(ctx).WithError(err).Error("Failed to record match run failure")
	}
	run.Status = models.MatchRunStatusFailed

	if err := p.emitter.EmitMatchRunFailed(ctx, run, runErr); err != nil {
		p.logger.WithContext(ctx).WithError(err).Warn("Failed to emit match run failure event")
	}
}
