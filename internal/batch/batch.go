package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dshills/codecheck/internal/analysis"
	"github.com/dshills/codecheck/internal/cache"
	"github.com/dshills/codecheck/internal/normalize"
	"github.com/dshills/codecheck/internal/service"
)

// ErrSuperseded is the cause given to a run cancelled by a newer Run call.
var ErrSuperseded = errors.New("batch superseded by a newer run")

// Options configures an Orchestrator.
type Options struct {
	Identity analysis.Identity
	Logger   zerolog.Logger
	Version  string
}

// Orchestrator drives batches of files through the analysis service one at
// a time, consulting the cache first and publishing a complete report when a
// batch finishes.
type Orchestrator struct {
	client   service.Analyzer
	store    cache.Store
	identity analysis.Identity
	logger   zerolog.Logger
	version  string

	runMu sync.Mutex

	currentMu sync.Mutex
	current   *run

	latest atomic.Pointer[analysis.Report]
}

type run struct {
	cancel context.CancelCauseFunc
}

// New creates an Orchestrator.
func New(client service.Analyzer, store cache.Store, opts Options) *Orchestrator {
	id := opts.Identity
	if id == "" {
		id = analysis.IdentityContent
	}
	if store == nil {
		store = cache.NewMemory()
	}
	return &Orchestrator{
		client:   client,
		store:    store,
		identity: id,
		logger:   opts.Logger,
		version:  opts.Version,
	}
}

// Latest returns the most recently published report, or nil.
func (o *Orchestrator) Latest() *analysis.Report {
	return o.latest.Load()
}

// Run processes jobs in order and publishes the resulting report. A Run
// that starts while another is in progress cancels the older one, which
// returns ErrSuperseded and publishes nothing. An empty job list changes
// nothing and returns the current report.
//
// progress, if non-nil, is called after every job.
func (o *Orchestrator) Run(ctx context.Context, jobs []analysis.Job, progress func(done, total int)) (*analysis.Report, error) {
	if len(jobs) == 0 {
		o.logger.Info().Msg("no files to process")
		return o.latest.Load(), nil
	}

	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	r := o.supersede(cancel)
	defer o.release(r)

	o.runMu.Lock()
	defer o.runMu.Unlock()

	if runCtx.Err() != nil {
		return nil, context.Cause(runCtx)
	}

	start := time.Now()
	runID := uuid.NewString()
	log := o.logger.With().Str("run", runID).Logger()
	log.Info().Int("files", len(jobs)).Msg("batch started")

	outcomes := make([]analysis.Outcome, len(jobs))
	var serviceTime time.Duration
	for i, job := range jobs {
		if runCtx.Err() != nil {
			break
		}
		var spent time.Duration
		outcomes[i], spent = o.process(runCtx, log, i, job)
		serviceTime += spent
		if progress != nil {
			progress(i+1, len(jobs))
		}
	}
	if runCtx.Err() != nil {
		err := context.Cause(runCtx)
		log.Info().Err(err).Msg("batch abandoned")
		return nil, err
	}

	report := &analysis.Report{
		Tool:      "codecheck",
		Version:   o.version,
		RunID:     runID,
		StartedAt: start,
		Counts:    analysis.ComputeCounts(outcomes),
		Outcomes:  outcomes,
		Timing: analysis.Timing{
			ServiceMs: serviceTime.Milliseconds(),
			TotalMs:   time.Since(start).Milliseconds(),
		},
	}
	o.latest.Store(report)

	log.Info().
		Int("succeeded", report.Counts.Succeeded).
		Int("failed", report.Counts.Failed).
		Int("skipped", report.Counts.Skipped).
		Int("cache_hits", report.Counts.CacheHits).
		Int64("total_ms", report.Timing.TotalMs).
		Msg("batch finished")
	return report, nil
}

func (o *Orchestrator) supersede(cancel context.CancelCauseFunc) *run {
	o.currentMu.Lock()
	defer o.currentMu.Unlock()
	if o.current != nil {
		o.current.cancel(ErrSuperseded)
	}
	o.current = &run{cancel: cancel}
	return o.current
}

func (o *Orchestrator) release(r *run) {
	o.currentMu.Lock()
	if o.current == r {
		o.current = nil
	}
	o.currentMu.Unlock()
}

// process produces the outcome of one job and the time spent waiting on the
// service. It never returns an error: every failure becomes an outcome.
func (o *Orchestrator) process(ctx context.Context, log zerolog.Logger, index int, job analysis.Job) (analysis.Outcome, time.Duration) {
	cfg := job.Config
	ext := job.Ext
	if ext == "" {
		ext = analysis.Ext(job.Name)
	}
	log = log.With().Str("file", job.Name).Int("index", index).Str("mode", string(cfg.Mode)).Logger()
	out := analysis.Outcome{Index: index, Name: job.Name, Mode: cfg.Mode}

	if cfg.Mode.IsFormat() && !analysis.Formattable(ext) {
		log.Info().Str("ext", ext).Msg("unsupported file type, skipped")
		out.Status = analysis.StatusSkipped
		out.Entry = analysis.Text(fmt.Sprintf("[unsupported file type: %q]", ext))
		return out, 0
	}
	if cfg.Mode == analysis.ModeGPTFormat && cfg.Language == "" {
		cfg.Language = analysis.LanguageFor(ext)
	}

	if job.Load == nil {
		return o.fail(log, index, job.Name, cfg.Mode, fmt.Errorf("%s: no content loader", job.Name)), 0
	}
	content, err := job.Load()
	if err != nil {
		return o.fail(log, index, job.Name, cfg.Mode, fmt.Errorf("reading %s: %w", job.Name, err)), 0
	}

	fp := analysis.Fingerprint(o.identity, job.Name, content, cfg)
	log = log.With().Str("fingerprint", fp[:12]).Logger()
	if entry, ok := o.store.Get(fp); ok {
		log.Debug().Bool("cached", true).Msg("cache hit")
		out.Status = analysis.StatusOK
		out.Entry = entry
		out.Cached = true
		return out, 0
	}

	log.Debug().Int("bytes", len(content)).Msg("dispatching")
	callStart := time.Now()
	resp, err := service.Submit(ctx, o.client, service.Upload{Name: job.Name, Content: content}, cfg)
	spent := time.Since(callStart)
	if err != nil {
		return o.fail(log, index, job.Name, cfg.Mode, err), spent
	}

	entry, err := normalize.Response(cfg.Mode, resp.Body, string(content))
	if err != nil {
		failed := o.fail(log, index, job.Name, cfg.Mode, err)
		failed.Entry = entry
		return failed, spent
	}

	if err := o.store.Put(fp, entry); err != nil {
		log.Warn().Err(err).Msg("cache write failed")
	}
	log.Debug().Bool("cached", false).Dur("elapsed", spent).Str("kind", entry.Kind.String()).Msg("processed")
	out.Status = analysis.StatusOK
	out.Entry = entry
	return out, spent
}

func (o *Orchestrator) fail(log zerolog.Logger, index int, name string, mode analysis.Mode, err error) analysis.Outcome {
	log.Warn().Err(err).Msg("file failed")
	return analysis.Failure(index, name, mode, err)
}
