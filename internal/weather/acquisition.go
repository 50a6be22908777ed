package weather

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
)

// LoopConfig holds the acquisition loop settings.
type LoopConfig struct {
	// PollInterval is the pause after every attempt, successful or not.
	PollInterval time.Duration
	// AcquireTimeout bounds a single Acquire call. Zero means no bound.
	AcquireTimeout time.Duration
	// Start is the instant Reading.Elapsed is measured from.
	Start time.Time
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// AcquisitionLoop repeatedly acquires from a DataSource and publishes
// successful measurements into a Store. Failures never overwrite the store, so
// the last known good reading stays visible.
//
// The loop is the store's only writer.
type AcquisitionLoop struct {
	source   DataSource
	store    Store
	interval time.Duration
	timeout  time.Duration
	start    time.Time
	now      func() time.Time
	logger   *slog.Logger

	failures atomic.Int64
}

// NewAcquisitionLoop creates a loop publishing readings from source into store.
func NewAcquisitionLoop(source DataSource, store Store, cfg LoopConfig) *AcquisitionLoop {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	start := cfg.Start
	if start.IsZero() {
		start = time.Now()
	}
	return &AcquisitionLoop{
		source:   source,
		store:    store,
		interval: cfg.PollInterval,
		timeout:  cfg.AcquireTimeout,
		start:    start,
		now:      time.Now,
		logger:   logger.With("source", source.Name()),
	}
}

// Run polls until ctx is done. It sleeps PollInterval after each attempt and
// never returns because of an acquisition failure.
func (l *AcquisitionLoop) Run(ctx context.Context) {
	l.logger.Info("acquisition loop started",
		"poll_interval", l.interval,
		"acquire_timeout", l.timeout,
	)
	for {
		_ = l.Poll(ctx)

		timer := time.NewTimer(l.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			l.logger.Info("acquisition loop stopped")
			return
		case <-timer.C:
		}
	}
}

// Poll runs a single acquisition cycle. On failure it returns an
// *AcquisitionError and leaves the store untouched.
func (l *AcquisitionLoop) Poll(ctx context.Context) error {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	m, err := l.safeAcquire(ctx)
	if err != nil {
		n := l.failures.Add(1)
		l.logger.Warn("acquisition failed; keeping last reading",
			"consecutive_failures", n,
			"error", err,
		)
		return &AcquisitionError{Source: l.source.Name(), Err: err}
	}

	if n := l.failures.Swap(0); n > 0 {
		l.logger.Info("acquisition recovered", "after_failures", n)
	}

	elapsed := l.now().Sub(l.start)
	if elapsed < 0 {
		elapsed = 0
	}
	l.store.Set(Reading{
		Measurement: m,
		Elapsed:     elapsed,
		Status:      StatusOk,
	})
	l.logger.Debug("reading published",
		"temperature_c", m.TemperatureC,
		"humidity_pct", m.HumidityPct,
		"elapsed", elapsed,
	)
	return nil
}

// ConsecutiveFailures returns the number of failed attempts since the last
// success.
func (l *AcquisitionLoop) ConsecutiveFailures() int64 {
	return l.failures.Load()
}

// safeAcquire turns a panic inside a source into an ordinary error.
func (l *AcquisitionLoop) safeAcquire(ctx context.Context) (m Measurement, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return l.source.Acquire(ctx)
}
