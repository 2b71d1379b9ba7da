package services

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"visme-go/internal/config"
)

// Rerunner re-detects every stored trial.
type Rerunner interface {
	Rerun(ctx context.Context) (int, error)
}

type Scheduler struct {
	log      *zap.Logger
	rerunner Rerunner
	interval time.Duration
	dirty    atomic.Bool
}

func NewScheduler(log *zap.Logger, rerunner Rerunner, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scheduler{
		log:      log,
		rerunner: rerunner,
		interval: interval,
	}
}

// MarkDirty schedules a re-detection for the next tick.
func (s *Scheduler) MarkDirty() {
	s.dirty.Store(true)
}

// Start runs the scheduler in a goroutine until ctx is done. A change of
// the configuration file marks the scheduler dirty.
func (s *Scheduler) Start(ctx context.Context) {
	s.log.Info("Starting re-detection scheduler...", zap.Duration("interval", s.interval))
	config.OnChange(func(config.Config) { s.MarkDirty() })

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.log.Info("Re-detection scheduler stopped")
				return
			case <-ticker.C:
				s.runRerunCheck(ctx)
			}
		}
	}()
}

// runRerunCheck re-detects all trials if the configuration changed since
// the last check.
func (s *Scheduler) runRerunCheck(ctx context.Context) {
	if !s.dirty.Swap(false) {
		return
	}
	s.log.Info("Configuration changed, re-detecting all trials")

	n, err := s.rerunner.Rerun(ctx)
	if err != nil {
		s.log.Error("Failed to re-detect trials", zap.Int("processed", n), zap.Error(err))
		return
	}
	s.log.Debug("Re-detection check done", zap.Int("processed", n))
}
