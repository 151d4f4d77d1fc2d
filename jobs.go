package main

import (
	"context"
	"time"

	"github.com/alufers/paystat-bot/internal/schedule"
	"go.uber.org/zap"
)

// resetAt is the configured reset time, read from server.json on every call.
func (b *Bot) resetAt() (schedule.TimeOfDay, *time.Location) {
	s := b.settings.Load()
	return s.ResetTime(), s.Location()
}

// jobs are the bot's periodic tasks. A changed reset time applies from the
// next run on.
func (b *Bot) jobs() []schedule.Job {
	return []schedule.Job{
		schedule.Weekly("void reset", time.Sunday, b.resetAt, func(ctx context.Context) error {
			return b.resetVoids()
		}),
		schedule.Daily("daily backup", b.resetAt, func(ctx context.Context) error {
			_, err := b.runBackup(ctx, b.settings.Load())
			return err
		}),
	}
}

// runJobs runs every job until ctx ends.
func (b *Bot) runJobs(ctx context.Context, runner *schedule.Runner) {
	for _, job := range b.jobs() {
		go func(job schedule.Job) {
			if err := runner.Run(ctx, job); err != nil && ctx.Err() == nil {
				b.log.Error("job runner stopped", zap.String("job", job.Name), zap.Error(err))
			}
		}(job)
	}
}
