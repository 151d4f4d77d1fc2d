// Package schedule fires the bot's periodic jobs: the weekly void reset and
// the daily period-file backup.
package schedule

import (
	"context"
	"sync"
	"time"

	"github.com/alufers/paystat-bot/internal/clock"
	"go.uber.org/zap"
)

type Job struct {
	Name string
	// Next returns the first fire time strictly after now.
	Next func(now time.Time) time.Time
	Run  func(ctx context.Context) error
}

// At reports the time of day and zone a job fires at. It is asked again
// before every wait, so a changed setting applies from the next run on.
type At func() (TimeOfDay, *time.Location)

// Fixed is an At that never changes.
func Fixed(t TimeOfDay, loc *time.Location) At {
	return func() (TimeOfDay, *time.Location) { return t, loc }
}

// Daily builds a job firing every day at the time at reports.
func Daily(name string, at At, run func(ctx context.Context) error) Job {
	return Job{
		Name: name,
		Next: func(now time.Time) time.Time {
			t, loc := at()
			return NextDaily(now, t, loc)
		},
		Run: run,
	}
}

// Weekly builds a job firing every week on weekday at the time at reports.
func Weekly(name string, weekday time.Weekday, at At, run func(ctx context.Context) error) Job {
	return Job{
		Name: name,
		Next: func(now time.Time) time.Time {
			t, loc := at()
			return NextWeekly(now, weekday, t, loc)
		},
		Run: run,
	}
}

type Runner struct {
	clock clock.Clock
	log   *zap.Logger
	after func(time.Duration) <-chan time.Time

	mu        sync.Mutex
	lastFired map[string]time.Time
}

func NewRunner(c clock.Clock, log *zap.Logger) *Runner {
	return &Runner{
		clock:     c,
		log:       log.Named("schedule"),
		after:     time.After,
		lastFired: map[string]time.Time{},
	}
}

// Run blocks until ctx is done, firing job at each of its scheduled times.
// A wake-up that arrives late (host suspended, clock jump) fires the missed
// slot once and then moves on to the next future slot.
func (r *Runner) Run(ctx context.Context, job Job) error {
	for {
		now := r.clock.Now()
		slot := job.Next(now)
		r.log.Info("next run scheduled",
			zap.String("job", job.Name),
			zap.Time("at", slot),
			zap.Duration("in", slot.Sub(now)))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.after(slot.Sub(now)):
		}
		r.Fire(ctx, job, slot)
	}
}

// Fire runs job for the given slot unless that slot (or a later one) has
// already run. It reports whether the job ran.
func (r *Runner) Fire(ctx context.Context, job Job, slot time.Time) bool {
	r.mu.Lock()
	if last, ok := r.lastFired[job.Name]; ok && !slot.After(last) {
		r.mu.Unlock()
		r.log.Info("slot already fired, skipping", zap.String("job", job.Name), zap.Time("slot", slot))
		return false
	}
	r.lastFired[job.Name] = slot
	r.mu.Unlock()

	start := r.clock.Now()
	if err := job.Run(ctx); err != nil {
		r.log.Error("job failed", zap.String("job", job.Name), zap.Error(err))
		return true
	}
	r.log.Info("job finished", zap.String("job", job.Name), zap.Duration("took", r.clock.Now().Sub(start)))
	return true
}
