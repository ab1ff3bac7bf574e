package engine

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/IshaanNene/newsharvest/internal/config"
)

// Cycler runs one complete crawl.
type Cycler interface {
	RunCycle(ctx context.Context) CycleReport
}

// Scheduler repeats crawl cycles with a random pause between them.
type Scheduler struct {
	cycler    Cycler
	delay     config.DelayRange
	maxCycles int
	logger    *slog.Logger
	cycles    atomic.Int64
	sleep     func(ctx context.Context, d time.Duration) error
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithMaxCycles stops the loop after n cycles. Zero means run until ctx is done.
func WithMaxCycles(n int) SchedulerOption {
	return func(s *Scheduler) { s.maxCycles = n }
}

// NewScheduler creates a scheduler that pauses for a random duration in delay between cycles.
func NewScheduler(c Cycler, delay config.DelayRange, logger *slog.Logger, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		cycler: c,
		delay:  delay,
		logger: logger.With("component", "scheduler"),
		sleep:  sleepCtx,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run loops until ctx is done or the cycle limit is reached.
// It returns ctx.Err() when cancelled and nil when the limit was reached.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		report := s.cycler.RunCycle(ctx)
		n := s.cycles.Add(1)

		if s.maxCycles > 0 && n >= int64(s.maxCycles) {
			s.logger.Info("cycle limit reached", "cycles", n)
			return nil
		}

		d := s.delay.Random()
		s.logger.Info("next cycle scheduled",
			"source", report.Source,
			"last_cycle", report.ID,
			"delay", d,
		)
		if err := s.sleep(ctx, d); err != nil {
			return err
		}
	}
}

// Cycles returns how many cycles have completed.
func (s *Scheduler) Cycles() int64 { return s.cycles.Load() }

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
