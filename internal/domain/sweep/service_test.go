package sweep_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huddlehq/huddle-server/internal/config"
	"github.com/huddlehq/huddle-server/internal/domain/embedding"
	"github.com/huddlehq/huddle-server/internal/domain/file"
	"github.com/huddlehq/huddle-server/internal/domain/sweep"
	"github.com/huddlehq/huddle-server/internal/domain/voice"
	"github.com/huddlehq/huddle-server/internal/utils/platformerrors"
)

type stubFiles struct{ grace time.Duration }

func (s *stubFiles) SweepOrphans(_ context.Context, grace time.Duration) (file.OrphanReport, error) {
	s.grace = grace
	return file.OrphanReport{ScannedObjects: 3, DeletedObjects: 1}, nil
}

type stubEmbeddings struct{ err error }

func (s stubEmbeddings) Backfill(context.Context, int, int) (*embedding.BackfillReport, error) {
	return &embedding.BackfillReport{Failed: 2}, s.err
}

type stubSpeech struct{ params voice.BackfillParams }

func (s *stubSpeech) Backfill(_ context.Context, params voice.BackfillParams) (*voice.BackfillReport, error) {
	s.params = params
	return &voice.BackfillReport{}, nil
}

type stubPresence struct{}

func (stubPresence) ExpireStale(context.Context) (int, error) { return 4, nil }

type mapLocker struct{ held map[string]bool }

func (l *mapLocker) TryLock(_ context.Context, name string, _ time.Duration) (func(), bool, error) {
	if l.held[name] {
		return nil, false, nil
	}
	l.held[name] = true
	return func() { delete(l.held, name) }, true, nil
}

type countingRecorder struct {
	runs    map[string]int
	skipped int
	failed  int
}

func (c *countingRecorder) Observe(name string, _ time.Duration, err error, skipped bool) {
	c.runs[name]++
	if skipped {
		c.skipped++
	}
	if err != nil {
		c.failed++
	}
}

func newRunner(locker sweep.Locker, recorder sweep.Recorder, deps sweep.Deps) *sweep.Runner {
	cfg := &config.Config{
		SweepTimeout:        time.Minute,
		SweepMaxAttempts:    3,
		OrphanGracePeriod:   24 * time.Hour,
		EmbeddingBatchSize:  10,
		TTSBatchSize:        5,
		TTSConcurrency:      2,
		TTSRatePerSecond:    1,
		TTSBackfillLookback: time.Hour,
	}
	return sweep.NewRunner(cfg, deps, locker, recorder, zerolog.Nop())
}

func TestRunnerRunsStandardJobs(t *testing.T) {
	files := &stubFiles{}
	speech := &stubSpeech{}
	recorder := &countingRecorder{runs: map[string]int{}}
	runner := newRunner(&mapLocker{held: map[string]bool{}}, recorder, sweep.Deps{
		Files:      files,
		Embeddings: stubEmbeddings{},
		Speech:     speech,
		Presence:   stubPresence{},
	})

	assert.Equal(t, []string{"embedding-backfill", "orphan-files", "presence-expiration", "tts-backfill"}, runner.Names())

	report, err := runner.Run(context.Background(), sweep.JobOrphanFiles)
	require.NoError(t, err)
	assert.Equal(t, file.OrphanReport{ScannedObjects: 3, DeletedObjects: 1}, report.Result)
	assert.Equal(t, 24*time.Hour, files.grace)
	assert.Empty(t, report.Error)

	report, err = runner.Run(context.Background(), sweep.JobPresenceExpiration)
	require.NoError(t, err)
	assert.Equal(t, sweep.PresenceResult{Expired: 4}, report.Result)

	_, err = runner.Run(context.Background(), sweep.JobTTSBackfill)
	require.NoError(t, err)
	assert.Equal(t, voice.BackfillParams{BatchSize: 5, Concurrency: 2, RatePerSecond: 1, Lookback: time.Hour, MaxAttempts: 3}, speech.params)
	assert.Equal(t, 3, len(recorder.runs))
}

func TestRunnerReportsJobFailure(t *testing.T) {
	recorder := &countingRecorder{runs: map[string]int{}}
	runner := newRunner(nil, recorder, sweep.Deps{Embeddings: stubEmbeddings{err: errors.New("provider down")}})

	report, err := runner.Run(context.Background(), sweep.JobEmbeddingBackfill)
	require.NoError(t, err)
	assert.Equal(t, "provider down", report.Error)
	assert.Equal(t, 1, recorder.failed)
}

func TestRunnerSkipsWhenLocked(t *testing.T) {
	locker := &mapLocker{held: map[string]bool{"sweep:presence-expiration": true}}
	recorder := &countingRecorder{runs: map[string]int{}}
	runner := newRunner(locker, recorder, sweep.Deps{Presence: stubPresence{}})

	report, err := runner.Run(context.Background(), sweep.JobPresenceExpiration)
	require.NoError(t, err)
	assert.True(t, report.Skipped)
	assert.Nil(t, report.Result)
	assert.Equal(t, 1, recorder.skipped)
}

func TestRunnerUnknownJob(t *testing.T) {
	runner := newRunner(nil, nil, sweep.Deps{})
	_, err := runner.Run(context.Background(), "nope")
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))
}

func TestRunnerWrapDecoratesJobs(t *testing.T) {
	runner := newRunner(nil, nil, sweep.Deps{Presence: stubPresence{}})
	var wrapped []string
	runner.Wrap(func(name string, job sweep.Job) sweep.Job {
		return func(ctx context.Context) (any, error) {
			wrapped = append(wrapped, name)
			return job(ctx)
		}
	})

	report, err := runner.Run(context.Background(), sweep.JobPresenceExpiration)
	require.NoError(t, err)
	assert.Equal(t, []string{sweep.JobPresenceExpiration}, wrapped)
	assert.Equal(t, sweep.PresenceResult{Expired: 4}, report.Result)
}
