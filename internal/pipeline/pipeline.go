// Package pipeline drives a resumable, rate-limited enrichment run over the
// business directory: resolve each record to an external identifier, fetch
// and normalize its detail payload, merge it into storage, and checkpoint
// progress so an interrupted run resumes where it left off.
package pipeline

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/formby-guide/guide-cli/internal/checkpoint"
	"github.com/formby-guide/guide-cli/internal/model"
	"github.com/formby-guide/guide-cli/internal/resolve"
	"github.com/formby-guide/guide-cli/internal/store"
)

// Provider binds one external data source's identity resolution and detail
// fetch into the generic pipeline.
type Provider interface {
	// Name identifies the provider in logs and summaries.
	Name() string

	// Resolve turns a local record into an external identifier.
	Resolve(ctx context.Context, biz model.Business) (string, resolve.Outcome)

	// Fetch retrieves and normalizes the detail payload for an external
	// identifier. found=false covers both "provider has no record" and
	// transport failure; the record stays retryable either way.
	Fetch(ctx context.Context, externalID string) (*model.Enrichment, bool)
}

// Options configures a pipeline run.
type Options struct {
	// Categories restricts the run to the given category slugs.
	Categories []string
	// BatchSize is the checkpoint persistence interval in records.
	BatchSize int
	// RetryFailed re-attempts records previously recorded as failed.
	RetryFailed bool
}

// Summary is the terminal report of a run.
type Summary struct {
	RunID    string        `json:"run_id"`
	Provider string        `json:"provider"`
	Total    int           `json:"total"`
	Skipped  int           `json:"skipped"`
	Enriched int           `json:"enriched"`
	NotFound int           `json:"not_found"`
	Failed   int           `json:"failed"`
	Deleted  int           `json:"deleted"`
	Elapsed  time.Duration `json:"elapsed"`
}

// Pipeline runs one provider's enrichment flow.
type Pipeline struct {
	store    store.Store
	ckpt     *checkpoint.Store
	provider Provider
	opts     Options
}

// New creates a pipeline for the given provider.
func New(st store.Store, ckpt *checkpoint.Store, provider Provider, opts Options) *Pipeline {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 10
	}
	return &Pipeline{store: st, ckpt: ckpt, provider: provider, opts: opts}
}

// runState carries the per-run mutable context: checkpoint state, counters,
// and timing. It replaces any process-wide globals.
type runState struct {
	state   *checkpoint.State
	summary Summary
	started time.Time
}

// Run processes every eligible record sequentially. Per-record failures are
// isolated; the run always reaches its summary.
func (p *Pipeline) Run(ctx context.Context) (*Summary, error) {
	runID := uuid.New().String()
	log := zap.L().With(
		zap.String("component", "pipeline"),
		zap.String("provider", p.provider.Name()),
		zap.String("run_id", runID),
	)

	rs := &runState{
		state:   p.ckpt.Load(),
		started: time.Now(),
	}
	rs.summary.RunID = runID
	rs.summary.Provider = p.provider.Name()

	processed, failed := rs.state.Counts()
	log.Info("checkpoint loaded",
		zap.String("path", p.ckpt.Path()),
		zap.Int("processed", processed),
		zap.Int("failed", failed),
	)

	businesses, err := p.store.ListBusinesses(ctx, store.ListFilter{CategorySlugs: p.opts.Categories})
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: list businesses")
	}

	// Stable, locale-aware ordering by name so interrupted runs resume
	// through the same sequence.
	c := collate.New(language.BritishEnglish)
	sort.SliceStable(businesses, func(i, j int) bool {
		return c.CompareString(businesses[i].Name, businesses[j].Name) < 0
	})

	queue := make([]model.Business, 0, len(businesses))
	for _, b := range businesses {
		if rs.state.Processed(b.ID) && !(p.opts.RetryFailed && rs.state.Failed(b.ID)) {
			rs.summary.Skipped++
			continue
		}
		queue = append(queue, b)
	}
	rs.summary.Total = len(businesses)

	log.Info("starting run",
		zap.Int("total", len(businesses)),
		zap.Int("to_process", len(queue)),
	)

	// Progress is persisted every batch and unconditionally on the way
	// out, so termination at any point loses at most one partial batch.
	defer func() {
		if err := p.ckpt.Persist(rs.state); err != nil {
			log.Error("checkpoint persist failed", zap.Error(err))
		}
	}()

	for i, biz := range queue {
		select {
		case <-ctx.Done():
			return &rs.summary, eris.Wrap(ctx.Err(), "pipeline: run interrupted")
		default:
		}

		p.processRecord(ctx, rs, biz, log)

		if (i+1)%p.opts.BatchSize == 0 {
			if err := p.ckpt.Persist(rs.state); err != nil {
				log.Error("checkpoint persist failed", zap.Error(err))
			}
			p.logProgress(log, rs, i+1, len(queue))
		}
	}

	rs.summary.Elapsed = time.Since(rs.started)
	log.Info("run complete",
		zap.Int("enriched", rs.summary.Enriched),
		zap.Int("not_found", rs.summary.NotFound),
		zap.Int("failed", rs.summary.Failed),
		zap.Int("deleted", rs.summary.Deleted),
		zap.Int("skipped", rs.summary.Skipped),
		zap.Duration("elapsed", rs.summary.Elapsed),
	)
	return &rs.summary, nil
}

// processRecord runs resolve -> fetch -> merge for a single business and
// records its checkpoint outcome. No failure here aborts the run.
func (p *Pipeline) processRecord(ctx context.Context, rs *runState, biz model.Business, log *zap.Logger) {
	bizLog := log.With(zap.String("business", biz.Name), zap.String("id", biz.ID))

	externalID, outcome := p.provider.Resolve(ctx, biz)
	switch outcome {
	case resolve.NotFound:
		// Normal terminal outcome: the provider has no matching entity.
		bizLog.Debug("unresolved")
		rs.state.MarkFailed(biz.ID)
		rs.state.MarkProcessed(biz.ID)
		rs.summary.NotFound++
		return
	case resolve.Unavailable:
		// Transport trouble only; leave the record eligible for the
		// next run.
		bizLog.Warn("resolution unavailable, will retry next run")
		rs.state.MarkFailed(biz.ID)
		rs.summary.Failed++
		return
	}

	enr, found := p.provider.Fetch(ctx, externalID)
	if !found {
		// Fetch failure after a resolver success: failed but not
		// processed, so the next run retries it.
		bizLog.Warn("detail fetch yielded nothing, will retry next run",
			zap.String("external_id", externalID))
		rs.state.MarkFailed(biz.ID)
		rs.summary.Failed++
		return
	}

	if enr.PermanentlyClosed {
		bizLog.Info("permanently closed, removing")
		if err := p.store.DeleteBusiness(ctx, biz.ID); err != nil {
			bizLog.Error("delete failed", zap.Error(err))
			rs.state.MarkFailed(biz.ID)
			rs.summary.Failed++
			return
		}
		rs.state.MarkProcessed(biz.ID)
		rs.summary.Deleted++
		return
	}

	if err := p.store.ApplyEnrichment(ctx, biz.ID, *enr); err != nil {
		// Storage failure rolls back that one record's write and stays
		// retryable.
		bizLog.Error("merge failed", zap.Error(err))
		rs.state.MarkFailed(biz.ID)
		rs.summary.Failed++
		return
	}

	rs.state.ClearFailed(biz.ID)
	rs.state.MarkProcessed(biz.ID)
	rs.summary.Enriched++
}

// logProgress reports throughput and an ETA from elapsed time over records
// completed.
func (p *Pipeline) logProgress(log *zap.Logger, rs *runState, done, total int) {
	elapsed := time.Since(rs.started)
	rate := float64(done) / elapsed.Seconds()
	var eta time.Duration
	if rate > 0 {
		eta = time.Duration(float64(total-done)/rate) * time.Second
	}
	log.Info("progress",
		zap.Int("done", done),
		zap.Int("total", total),
		zap.Float64("records_per_sec", rate),
		zap.Duration("eta", eta),
	)
}
