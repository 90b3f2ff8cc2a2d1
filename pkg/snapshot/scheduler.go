package snapshot

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Family is one snapshot family: a name plus the collector that produces the
// read-model slice to freeze.
type Family struct {
	Name    string
	Collect func(ctx context.Context) (any, error)
}

// Scheduler periodically freezes every registered family and triggers the
// daily metrics rollup at the configured local hour.
type Scheduler struct {
	engine     *Engine
	families   []Family
	rollup     *Family
	interval   time.Duration
	rollupHour int
	loc        *time.Location
	clock      func() time.Time
	logger     *slog.Logger
	onWritten  func(name string)

	lastRollupDay string
}

// NewScheduler builds a scheduler. loc is the deployment timezone used for
// the daily rollup trigger; it must be explicit, never process-local default.
func NewScheduler(engine *Engine, families []Family, interval time.Duration, rollupHour int, loc *time.Location) *Scheduler {
	return &Scheduler{
		engine:     engine,
		families:   families,
		interval:   interval,
		rollupHour: rollupHour,
		loc:        loc,
		clock:      time.Now,
		logger:     slog.Default().With("component", "snapshot-scheduler"),
	}
}

// WithClock overrides the clock for testing.
func (s *Scheduler) WithClock(clock func() time.Time) *Scheduler {
	s.clock = clock
	return s
}

// WithRollup registers the daily rollup collector.
func (s *Scheduler) WithRollup(f Family) *Scheduler {
	s.rollup = &f
	return s
}

// WithWrittenHook registers a callback invoked with the name of every
// snapshot written, including rollups. Used for replication and metrics.
func (s *Scheduler) WithWrittenHook(fn func(name string)) *Scheduler {
	s.onWritten = fn
	return s
}

// Run blocks, freezing all families every interval, until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.logger.Error("snapshot pass failed", "error", err)
			}
			s.maybeRollup(ctx)
		}
	}
}

// RunOnce freezes every family exactly once. Individual family failures are
// reported together but do not stop the remaining families.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	var firstErr error
	for _, f := range s.families {
		if err := s.freeze(ctx, f); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s *Scheduler) freeze(ctx context.Context, f Family) error {
	payload, err := f.Collect(ctx)
	if err != nil {
		return fmt.Errorf("collect %q: %w", f.Name, err)
	}
	name := fmt.Sprintf("%s-%s", f.Name, s.clock().UTC().Format("20060102T150405"))
	if _, err := s.engine.Write(name, payload); err != nil {
		return err
	}
	if s.onWritten != nil {
		s.onWritten(name)
	}
	return nil
}

// maybeRollup writes the daily rollup once per local day at or after the
// configured hour.
func (s *Scheduler) maybeRollup(ctx context.Context) {
	if s.rollup == nil {
		return
	}
	now := s.clock().In(s.loc)
	day := now.Format("2006-01-02")
	if now.Hour() < s.rollupHour || s.lastRollupDay == day {
		return
	}
	payload, err := s.rollup.Collect(ctx)
	if err != nil {
		s.logger.Error("rollup collect failed", "error", err)
		return
	}
	name := fmt.Sprintf("%s-%s", s.rollup.Name, day)
	if _, err := s.engine.Write(name, payload); err != nil {
		s.logger.Error("rollup snapshot failed", "error", err)
		return
	}
	if s.onWritten != nil {
		s.onWritten(name)
	}
	s.lastRollupDay = day
}
