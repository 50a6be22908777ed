package providers

import (
	"context"
	"math"
	"sync/atomic"

	"github.com/i474232898/weather-panel/internal/weather"
)

// MockLocation is the placeholder descriptor reported by the mock source.
var MockLocation = weather.Location{City: "Mock City", Country: "ZZ"}

const mockPeriod = 60

// MockProvider produces deterministic synthetic readings and never fails. By
// default it traces a slow sine around 21°C / 45%RH indexed by call count.
type MockProvider struct {
	fixed *weather.Measurement
	calls atomic.Uint64
}

// MockOption customizes a MockProvider.
type MockOption func(*MockProvider)

// WithFixed makes every Acquire return m.
func WithFixed(m weather.Measurement) MockOption {
	return func(p *MockProvider) {
		p.fixed = &m
	}
}

func NewMockProvider(opts ...MockOption) *MockProvider {
	p := &MockProvider{}
	for _, o := range opts {
		o(p)
	}
	return p
}

func (p *MockProvider) Name() string {
	return "mock"
}

func (p *MockProvider) Identify() (weather.Location, bool) {
	return MockLocation, true
}

func (p *MockProvider) Acquire(context.Context) (weather.Measurement, error) {
	n := p.calls.Add(1) - 1
	if p.fixed != nil {
		return *p.fixed, nil
	}
	return MockMeasurement(n), nil
}

// MockMeasurement returns the n-th synthetic measurement.
func MockMeasurement(n uint64) weather.Measurement {
	phase := 2 * math.Pi * float64(n%mockPeriod) / mockPeriod
	return weather.Measurement{
		TemperatureC: round1(21 + 3*math.Sin(phase)),
		HumidityPct:  round1(45 + 10*math.Cos(phase)),
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
