// Package scheduler drives the refresh timer when there is no UI event loop
// to do it (headless mode).
package scheduler

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/weather-panel/internal/weather"
)

// Ticker is the periodic refresh work.
type Ticker interface {
	Tick() weather.Status
}

// Scheduler runs a Ticker at a fixed interval on a single job goroutine.
type Scheduler struct {
	scheduler *gocron.Scheduler
	ticker    Ticker
	interval  time.Duration
	logger    *slog.Logger
}

// New creates a new Scheduler.
func New(ticker Ticker, interval time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	s := gocron.NewScheduler(time.UTC)
	// A slow tick is skipped rather than run concurrently with itself.
	s.SingletonModeAll()
	return &Scheduler{
		scheduler: s,
		ticker:    ticker,
		interval:  interval,
		logger:    logger.With("component", "scheduler"),
	}
}

// Start schedules the refresh job, fires it once immediately, and starts the
// underlying scheduler.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		return fmt.Errorf("refresh interval must be positive, got %v", s.interval)
	}

	_, err := s.scheduler.Every(s.interval).Do(func() {
		status := s.ticker.Tick()
		s.logger.Debug("refresh tick", "status", status.String())
	})
	if err != nil {
		return fmt.Errorf("schedule refresh: %w", err)
	}

	s.scheduler.StartAsync()
	s.logger.Info("refresh scheduler started", "interval", s.interval)
	return nil
}

// Stop stops the scheduler and cancels any future ticks.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
