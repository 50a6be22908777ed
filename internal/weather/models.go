package weather

import (
	"fmt"
	"strconv"
	"time"
)

// Status is the source-reported state attached to a Reading and pushed to the
// display alongside it.
type Status int

const (
	StatusError Status = iota
	StatusOk
)

func (s Status) String() string {
	if s == StatusOk {
		return "ok"
	}
	return "error"
}

// Location represents the place a remote provider reports on.
// City/Country are always set; Lat/Lon are optional.
type Location struct {
	City    string   `json:"city"`
	Country string   `json:"country"`
	Lat     *float64 `json:"lat,omitempty"`
	Lon     *float64 `json:"lon,omitempty"`
}

// Key returns a canonical string key for this location.
func (l Location) Key() string {
	return l.City + ":" + l.Country
}

// HasCoordinates reports whether both Lat and Lon are set.
func (l Location) HasCoordinates() bool {
	return l.Lat != nil && l.Lon != nil
}

// Measurement is what a DataSource returns from a single acquisition.
type Measurement struct {
	TemperatureC float64 `json:"temperatureC"`
	HumidityPct  float64 `json:"humidityPercent"`
}

// Reading is one complete measurement plus status and acquisition time.
// Elapsed is measured on the monotonic clock from process start.
type Reading struct {
	Measurement
	Elapsed time.Duration `json:"elapsed"`
	Status  Status        `json:"-"`
}

// Record is the presentation form of a Reading pushed to a Display.
type Record struct {
	TemperatureC float64 `json:"temperatureC"`
	HumidityPct  float64 `json:"humidityPercent"`
	Timestamp    string  `json:"timestamp"`
}

// TimestampFormat selects how a Reading's Elapsed time is rendered.
type TimestampFormat string

const (
	// TimestampElapsed renders whole seconds since process start.
	TimestampElapsed TimestampFormat = "elapsed"
	// TimestampClock renders local wall-clock time.
	TimestampClock TimestampFormat = "clock"
)

const clockLayout = "2006-01-02 15:04:05"

// ParseTimestampFormat validates s.
func ParseTimestampFormat(s string) (TimestampFormat, error) {
	switch f := TimestampFormat(s); f {
	case TimestampElapsed, TimestampClock:
		return f, nil
	default:
		return "", fmt.Errorf("invalid timestamp format %q (allowed: elapsed, clock)", s)
	}
}

// Format renders elapsed relative to start.
func (f TimestampFormat) Format(start time.Time, elapsed time.Duration) string {
	if f == TimestampElapsed {
		return strconv.FormatInt(int64(elapsed/time.Second), 10)
	}
	return start.Add(elapsed).Local().Format(clockLayout)
}

// ToRecord converts r into its presentation form.
func (r Reading) ToRecord(start time.Time, f TimestampFormat) Record {
	return Record{
		TemperatureC: r.TemperatureC,
		HumidityPct:  r.HumidityPct,
		Timestamp:    f.Format(start, r.Elapsed),
	}
}
