package sweep

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/huddlehq/huddle-server/internal/config"
	"github.com/huddlehq/huddle-server/internal/domain/embedding"
	"github.com/huddlehq/huddle-server/internal/domain/file"
	"github.com/huddlehq/huddle-server/internal/domain/voice"
	"github.com/huddlehq/huddle-server/internal/utils/idgen"
	"github.com/huddlehq/huddle-server/internal/utils/platformerrors"
)

type OrphanSweeper interface {
	SweepOrphans(ctx context.Context, gracePeriod time.Duration) (file.OrphanReport, error)
}

type EmbeddingBackfiller interface {
	Backfill(ctx context.Context, batchSize, maxAttempts int) (*embedding.BackfillReport, error)
}

type SpeechBackfiller interface {
	Backfill(ctx context.Context, params voice.BackfillParams) (*voice.BackfillReport, error)
}

type PresenceExpirer interface {
	ExpireStale(ctx context.Context) (int, error)
}

// Deps are the services the standard jobs drive.
type Deps struct {
	Files      OrphanSweeper
	Embeddings EmbeddingBackfiller
	Speech     SpeechBackfiller
	Presence   PresenceExpirer
}

// Runner executes named jobs under a lock and a timeout.
type Runner struct {
	cfg      *config.Config
	jobs     map[string]Job
	locker   Locker
	recorder Recorder
	log      zerolog.Logger
}

// NewRunner registers the standard jobs. locker and recorder may be nil.
func NewRunner(cfg *config.Config, deps Deps, locker Locker, recorder Recorder, log zerolog.Logger) *Runner {
	r := &Runner{
		cfg:      cfg,
		jobs:     map[string]Job{},
		locker:   locker,
		recorder: recorder,
		log:      log.With().Str("component", "sweep-runner").Logger(),
	}
	if deps.Files != nil {
		r.Register(JobOrphanFiles, func(ctx context.Context) (any, error) {
			return deps.Files.SweepOrphans(ctx, cfg.OrphanGracePeriod)
		})
	}
	if deps.Embeddings != nil {
		r.Register(JobEmbeddingBackfill, func(ctx context.Context) (any, error) {
			return deps.Embeddings.Backfill(ctx, cfg.EmbeddingBatchSize, cfg.SweepMaxAttempts)
		})
	}
	if deps.Speech != nil {
		r.Register(JobTTSBackfill, func(ctx context.Context) (any, error) {
			return deps.Speech.Backfill(ctx, voice.BackfillParams{
				BatchSize:     cfg.TTSBatchSize,
				Concurrency:   cfg.TTSConcurrency,
				RatePerSecond: cfg.TTSRatePerSecond,
				Lookback:      cfg.TTSBackfillLookback,
				MaxAttempts:   cfg.SweepMaxAttempts,
			})
		})
	}
	if deps.Presence != nil {
		r.Register(JobPresenceExpiration, func(ctx context.Context) (any, error) {
			n, err := deps.Presence.ExpireStale(ctx)
			return PresenceResult{Expired: n}, err
		})
	}
	return r
}

// Register adds or replaces a job.
func (r *Runner) Register(name string, job Job) {
	r.jobs[name] = job
}

// Wrap decorates every registered job, for example with tracing.
func (r *Runner) Wrap(decorate func(name string, job Job) Job) {
	for name, job := range r.jobs {
		r.jobs[name] = decorate(name, job)
	}
}

// Names lists registered jobs in alphabetical order.
func (r *Runner) Names() []string {
	names := make([]string, 0, len(r.jobs))
	for name := range r.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run executes one job now. Job failures are reported in the Report, not as an error; the error
// return is reserved for unknown jobs and lock backend failures.
func (r *Runner) Run(ctx context.Context, name string) (*Report, error) {
	job, ok := r.jobs[name]
	if !ok {
		return nil, platformerrors.NewErrorWithContext(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound, fmt.Sprintf("unknown sweep %q", name), nil, "5e2b9f6c-1a4d-4c87-b0e3-f8d6a2c5e917", map[string]any{"available": r.Names()})
	}

	report := &Report{ID: idgen.New(idgen.PrefixSweepExecution), Name: name, StartedAt: time.Now().UTC()}
	timeout := r.cfg.SweepTimeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}

	if r.locker != nil {
		// The lock outlives the timeout slightly so a finishing run still owns it.
		unlock, acquired, err := r.locker.TryLock(ctx, "sweep:"+name, timeout+30*time.Second)
		if err != nil {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeInternal, "acquire sweep lock", err, "a9c4e1f7-3b8d-4e50-9d62-7f0b5c3a8e14")
		}
		if !acquired {
			report.Skipped = true
			report.FinishedAt = time.Now().UTC()
			r.log.Info().Str("sweep", name).Msg("sweep already running elsewhere, skipped")
			r.observe(report, nil)
			return report, nil
		}
		defer unlock()
	}

	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	result, err := job(runCtx)
	report.FinishedAt = time.Now().UTC()
	report.DurationMS = report.FinishedAt.Sub(report.StartedAt).Milliseconds()
	report.Result = result

	event := r.log.Info()
	if err != nil {
		report.Error = err.Error()
		event = r.log.Error().Err(err)
	}
	event.Str("sweep", name).Str("execution_id", report.ID).Int64("duration_ms", report.DurationMS).Interface("result", result).Msg("sweep finished")
	r.observe(report, err)
	return report, nil
}

func (r *Runner) observe(report *Report, err error) {
	if r.recorder == nil {
		return
	}
	r.recorder.Observe(report.Name, report.FinishedAt.Sub(report.StartedAt), err, report.Skipped)
}
