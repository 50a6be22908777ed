// Package display holds weather.Display implementations that are not tied to
// a particular UI toolkit.
package display

import (
	"log/slog"

	"github.com/i474232898/weather-panel/internal/weather"
)

// Multi fans every push out to each display in order.
type Multi []weather.Display

func (m Multi) ShowRecord(rec weather.Record) {
	for _, d := range m {
		d.ShowRecord(rec)
	}
}

func (m Multi) ShowStatus(s weather.Status) {
	for _, d := range m {
		d.ShowStatus(s)
	}
}

// Log is a headless display writing pushes to a structured logger. Records
// are logged at info; status is logged only when it changes.
type Log struct {
	logger  *slog.Logger
	last    weather.Status
	started bool
}

func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger.With("component", "display")}
}

func (l *Log) ShowRecord(rec weather.Record) {
	l.logger.Info("current conditions",
		"temperature_c", rec.TemperatureC,
		"humidity_pct", rec.HumidityPct,
		"timestamp", rec.Timestamp,
	)
}

func (l *Log) ShowStatus(s weather.Status) {
	if l.started && s == l.last {
		return
	}
	l.started = true
	l.last = s

	if s == weather.StatusOk {
		l.logger.Info("source status", "status", s.String())
		return
	}
	l.logger.Warn("source status", "status", s.String())
}
