package persist

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zivvlabs/token-triage/internal/common"
	"github.com/zivvlabs/token-triage/internal/entity"
	"github.com/zivvlabs/token-triage/internal/pipeline"
	"github.com/zivvlabs/token-triage/internal/repository"
)

// Persister records one execution's outcome in a single transaction: failure
// transition, stage artifacts, display upsert, job completion and the gated
// next-stage job. Stage N+1 only exists after this transaction commits, so
// there is no race between advancing and finishing.
type Persister struct {
	pool    *pgxpool.Pool
	jobs    repository.JobRepository
	results repository.ResultRepository
	display repository.DisplayRepository
	worker  *common.WorkerConfig
	filter  *common.FilterConfig
	log     *slog.Logger
}

func NewPersister(
	pool *pgxpool.Pool,
	jobs repository.JobRepository,
	results repository.ResultRepository,
	display repository.DisplayRepository,
	cfg *common.Config,
	logger *slog.Logger,
) *Persister {
	if logger == nil {
		logger = slog.Default()
	}
	return &Persister{
		pool:    pool,
		jobs:    jobs,
		results: results,
		display: display,
		worker:  &cfg.Worker,
		filter:  &cfg.Filter,
		log:     logger,
	}
}

// Persist applies the record's outcome to the job store.
func (p *Persister) Persist(ctx context.Context, job entity.Job, rec *pipeline.WorkingRecord) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return common.WrapError(err, "begin persist tx")
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			p.log.Warn("persist rollback failed", "job_id", job.ID, "error", err)
		}
	}()

	if rec.Status == pipeline.OutcomeError {
		if err := p.recordError(ctx, tx, job, rec); err != nil {
			return err
		}
		return common.WrapError(tx.Commit(ctx), "commit persist tx")
	}

	if err := p.writeArtifacts(ctx, tx, rec); err != nil {
		return err
	}

	if rec.Status == pipeline.OutcomePassed {
		if err := p.display.UpsertProjectTx(ctx, tx, buildProjectUpdate(rec)); err != nil {
			return err
		}
	}

	if err := p.jobs.CompleteTx(ctx, tx, job.ID); err != nil {
		return err
	}

	if next, ok := NextStage(rec, p.filter.VibeThreshold); ok {
		if err := p.jobs.UpsertPendingTx(ctx, tx, rec.TokenID, next); err != nil {
			return err
		}
		p.log.Info("next stage enqueued", "job_id", job.ID, "token_id", rec.TokenID, "stage", next)
	}

	if err := tx.Commit(ctx); err != nil {
		return common.WrapError(err, "commit persist tx")
	}
	p.log.Info("job completed",
		"job_id", job.ID,
		"token_id", rec.TokenID,
		"stage", rec.Stage,
		"outcome", string(rec.Status),
	)
	return nil
}

func (p *Persister) recordError(ctx context.Context, tx repository.DBTX, job entity.Job, rec *pipeline.WorkingRecord) error {
	msg := rec.ErrorMsg
	if msg == "" {
		msg = "error"
	}
	plan := PlanFailure(job.Retries, p.worker.MaxRetries, p.worker.RetryBase)
	if err := p.jobs.RecordFailureTx(ctx, tx, job.ID, msg, plan.Status, plan.Retries, plan.Delay); err != nil {
		return err
	}
	if plan.Status == entity.JobStatusFailed {
		p.log.Warn("job exhausted retries",
			"job_id", job.ID, "stage", rec.Stage, "retries", plan.Retries, "error", msg)
	} else {
		p.log.Info("job re-enqueued after failure",
			"job_id", job.ID, "stage", rec.Stage, "retries", plan.Retries, "delay", plan.Delay, "error", msg)
	}
	return nil
}

func (p *Persister) writeArtifacts(ctx context.Context, tx repository.DBTX, rec *pipeline.WorkingRecord) error {
	if rec.Stage == entity.StageClassify && rec.Status == pipeline.OutcomePassed && rec.Classification != nil {
		if err := p.results.InsertTagsTx(ctx, tx, rec.TokenID, *rec.Classification); err != nil {
			return err
		}
	}
	if rec.Stage == entity.StageDeepDive && rec.Status == pipeline.OutcomePassed && rec.Report != "" {
		if err := p.results.InsertReportTx(ctx, tx, rec.TokenID, rec.Report); err != nil {
			return err
		}
	}
	if rec.Signal != nil {
		if err := p.results.UpsertSignalTx(ctx, tx, rec.TokenID, *rec.Signal); err != nil {
			return err
		}
	}
	return nil
}

// buildProjectUpdate maps a passed record onto the display row, flagging
// which columns this stage actually produced so the upsert does not clobber
// earlier stages' values.
func buildProjectUpdate(rec *pipeline.WorkingRecord) repository.ProjectUpdate {
	t := rec.Token
	p := entity.Project{
		ID:             t.Contract,
		Symbol:         t.DisplaySymbol(),
		Name:           t.DisplayName(),
		ImageURL:       t.ImageURL,
		ChainID:        chainOrDefault(t.Chain),
		Contract:       t.Contract,
		MarketCap:      formatAmount(t.MarketCap),
		Liquidity:      formatAmount(t.Liquidity),
		PriceChange24h: t.PriceChange24h,
		Age:            "New",
		SafetyLevel:    "SAFE",
		Description:    strOrEmpty(t.Description),
		Type:           "MEME",
	}

	u := repository.ProjectUpdate{Project: p}
	if c := rec.Classification; c != nil {
		hint := c.RiskHint()
		u.Project.Tags = c.Tags
		u.Project.RiskHint = &hint
		u.Project.HypeScore = c.VibeScore
		u.HasTags = true
	}
	if rec.Report != "" {
		u.Project.AIReport = rec.Report
		u.HasReport = true
	}
	return u
}

func chainOrDefault(chain *string) string {
	if chain != nil && *chain != "" {
		return *chain
	}
	return "bsc"
}

func formatAmount(f *float64) string {
	if f == nil {
		return "0"
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}

func strOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
