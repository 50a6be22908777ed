package weather_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-panel/internal/store"
	"github.com/i474232898/weather-panel/internal/weather"
	"github.com/i474232898/weather-panel/internal/weather/providers"
)

type pushes struct {
	records  []weather.Record
	statuses []weather.Status
}

func (p *pushes) ShowRecord(rec weather.Record) { p.records = append(p.records, rec) }
func (p *pushes) ShowStatus(s weather.Status)   { p.statuses = append(p.statuses, s) }

// The loop and timer only see weather.DataSource, so every variant goes
// through identical code.
func TestLoopAndTimerAreVariantAgnostic(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"main":{"temp":18.5,"humidity":62}}`))
	}))
	defer srv.Close()

	remote, err := providers.NewOpenWeatherProvider(srv.Client(), "key",
		weather.Location{City: "Florence", Country: "IT"}, providers.WithBaseURL(srv.URL))
	require.NoError(t, err)

	sources := map[string]struct {
		src  weather.DataSource
		want weather.Measurement
	}{
		"mock": {
			src:  providers.NewMockProvider(providers.WithFixed(weather.Measurement{TemperatureC: 21, HumidityPct: 45})),
			want: weather.Measurement{TemperatureC: 21, HumidityPct: 45},
		},
		"remote": {
			src:  remote,
			want: weather.Measurement{TemperatureC: 18.5, HumidityPct: 62},
		},
	}

	for name, tc := range sources {
		t.Run(name, func(t *testing.T) {
			start := time.Now()
			st := store.NewLatest[weather.Reading]()
			loop := weather.NewAcquisitionLoop(tc.src, st, weather.LoopConfig{
				PollInterval:   time.Second,
				AcquireTimeout: time.Second,
				Start:          start,
			})
			disp := &pushes{}
			timer := weather.NewRefreshTimer(st, disp, start, weather.TimestampElapsed)

			assert.Equal(t, weather.StatusError, timer.Tick())

			require.NoError(t, loop.Poll(context.Background()))
			assert.Equal(t, weather.StatusOk, timer.Tick())

			require.Len(t, disp.records, 1)
			assert.Equal(t, tc.want.TemperatureC, disp.records[0].TemperatureC)
			assert.Equal(t, tc.want.HumidityPct, disp.records[0].HumidityPct)
			assert.Equal(t, []weather.Status{weather.StatusError, weather.StatusOk}, disp.statuses)

			loc, ok := tc.src.Identify()
			assert.True(t, ok)
			assert.NotEmpty(t, loc.City)
		})
	}
}
