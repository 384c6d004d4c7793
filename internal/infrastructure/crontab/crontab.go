// Package crontab schedules the background sweeps.
package crontab

import (
	"context"
	"sort"

	"github.com/mileusna/crontab"
	"github.com/rs/zerolog"

	"github.com/huddlehq/huddle-server/internal/config"
	"github.com/huddlehq/huddle-server/internal/domain/sweep"
	"github.com/huddlehq/huddle-server/internal/utils/platformerrors"
)

// SweepRunner executes a named sweep.
type SweepRunner interface {
	Run(ctx context.Context, name string) (*sweep.Report, error)
	Names() []string
}

type Crontab struct {
	ctab   *crontab.Crontab
	cfg    *config.Config
	runner SweepRunner
	log    zerolog.Logger
}

func NewCrontab(cfg *config.Config, runner SweepRunner, log zerolog.Logger) *Crontab {
	return &Crontab{
		ctab:   crontab.New(),
		cfg:    cfg,
		runner: runner,
		log:    log.With().Str("component", "crontab").Logger(),
	}
}

// Run schedules every registered sweep and blocks until ctx is cancelled.
func (c *Crontab) Run(ctx context.Context) error {
	if !c.cfg.SweepEnabled {
		c.log.Info().Msg("background sweeps disabled")
		<-ctx.Done()
		return nil
	}

	schedules := c.cfg.SweepSchedules()
	names := c.runner.Names()
	sort.Strings(names)

	for _, name := range names {
		expr, ok := schedules[name]
		if !ok || expr == "" {
			continue
		}
		job := name
		if err := c.ctab.AddJob(expr, func() { c.run(ctx, job) }); err != nil {
			return platformerrors.AsError(ctx, platformerrors.LayerInfrastructure, err, "failed to schedule sweep "+job)
		}
		c.log.Info().Str("sweep", job).Str("schedule", expr).Msg("sweep scheduled")
	}

	if c.cfg.SweepRunOnStart {
		// execute once on server start
		go func() {
			for _, name := range names {
				c.run(ctx, name)
			}
		}()
	}

	<-ctx.Done()
	c.ctab.Shutdown()
	return nil
}

func (c *Crontab) run(ctx context.Context, name string) {
	if ctx.Err() != nil {
		return
	}
	if _, err := c.runner.Run(ctx, name); err != nil {
		c.log.Error().Err(err).Str("sweep", name).Msg("sweep run failed")
	}
}
