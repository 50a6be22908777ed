package providers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kelvins/geocoder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-panel/internal/weather"
)

func ptr(v float64) *float64 { return &v }

var florence = weather.Location{City: "Florence", Country: "IT", Lat: ptr(43.77), Lon: ptr(11.25)}

func TestMockNeverFails(t *testing.T) {
	p := NewMockProvider()
	for i := 0; i < 500; i++ {
		m, err := p.Acquire(context.Background())
		require.NoError(t, err)
		assert.InDelta(t, 21, m.TemperatureC, 3.05)
		assert.InDelta(t, 45, m.HumidityPct, 10.05)
	}
}

func TestMockIsDeterministic(t *testing.T) {
	a, b := NewMockProvider(), NewMockProvider()
	for i := 0; i < 10; i++ {
		ma, _ := a.Acquire(context.Background())
		mb, _ := b.Acquire(context.Background())
		assert.Equal(t, ma, mb)
	}
	assert.Equal(t, weather.Measurement{TemperatureC: 21, HumidityPct: 55}, MockMeasurement(0))
}

func TestMockFixed(t *testing.T) {
	want := weather.Measurement{TemperatureC: 21.5, HumidityPct: 40}
	p := NewMockProvider(WithFixed(want))

	for i := 0; i < 3; i++ {
		m, err := p.Acquire(context.Background())
		require.NoError(t, err)
		assert.Equal(t, want, m)
	}
}

func TestMockIdentifyIsIdempotent(t *testing.T) {
	p := NewMockProvider()
	first, ok := p.Identify()
	require.True(t, ok)
	for i := 0; i < 3; i++ {
		_, _ = p.Acquire(context.Background())
		again, ok := p.Identify()
		require.True(t, ok)
		assert.Equal(t, first, again)
	}
	assert.Equal(t, MockLocation, first)
}

func TestOpenWeatherAcquire(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "secret", q.Get("appid"))
		assert.Equal(t, "metric", q.Get("units"))
		assert.Equal(t, "43.770000", q.Get("lat"))
		assert.Equal(t, "11.250000", q.Get("lon"))
		_, _ = w.Write([]byte(`{"main":{"temp":21.5,"humidity":40,"pressure":1012}}`))
	}))
	defer srv.Close()

	p, err := NewOpenWeatherProvider(srv.Client(), "secret", florence, WithBaseURL(srv.URL))
	require.NoError(t, err)

	m, err := p.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, weather.Measurement{TemperatureC: 21.5, HumidityPct: 40}, m)

	loc, ok := p.Identify()
	require.True(t, ok)
	assert.Equal(t, "Florence", loc.City)
	assert.Equal(t, "openweathermap", p.Name())
}

func TestOpenWeatherQueryByCity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Florence,IT", r.URL.Query().Get("q"))
		_, _ = w.Write([]byte(`{"main":{"temp":10,"humidity":80}}`))
	}))
	defer srv.Close()

	p, err := NewOpenWeatherProvider(srv.Client(), "k", weather.Location{City: "Florence", Country: "IT"}, WithBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = p.Acquire(context.Background())
	require.NoError(t, err)
}

func TestRemoteRequiresKey(t *testing.T) {
	_, err := NewOpenWeatherProvider(http.DefaultClient, "", florence)
	assert.ErrorIs(t, err, ErrMissingKey)

	_, err = NewWeatherAPIProvider(http.DefaultClient, "", florence)
	assert.ErrorIs(t, err, ErrMissingKey)
}

func TestOpenMeteoRequiresCoordinates(t *testing.T) {
	_, err := NewOpenMeteoProvider(http.DefaultClient, weather.Location{City: "Florence"})
	assert.Error(t, err)
}

func TestAcquireErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, `{}`, ErrUnauthorized},
		{"rate limited", http.StatusTooManyRequests, `{}`, ErrRateLimited},
		{"server error", http.StatusBadGateway, `{}`, ErrServerError},
		{"not found", http.StatusNotFound, `{}`, ErrUnexpected},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			p, err := NewWeatherAPIProvider(srv.Client(), "k", florence, WithBaseURL(srv.URL))
			require.NoError(t, err)

			_, err = p.Acquire(context.Background())
			require.Error(t, err)

			var perr *Error
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, "weatherapi", perr.Provider)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestAcquireIncompletePayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"current":{"temperature_2m":12.5}}`))
	}))
	defer srv.Close()

	p, err := NewOpenMeteoProvider(srv.Client(), florence, WithBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = p.Acquire(context.Background())
	assert.Error(t, err)
}

func TestOpenMeteoAcquire(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "temperature_2m,relative_humidity_2m", r.URL.Query().Get("current"))
		_, _ = w.Write([]byte(`{"current":{"temperature_2m":12.5,"relative_humidity_2m":71}}`))
	}))
	defer srv.Close()

	p, err := NewOpenMeteoProvider(srv.Client(), florence, WithBaseURL(srv.URL))
	require.NoError(t, err)

	m, err := p.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, weather.Measurement{TemperatureC: 12.5, HumidityPct: 71}, m)
}

func TestRetryWithinAcquire(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"current":{"temp_c":3,"humidity":90}}`))
	}))
	defer srv.Close()

	p, err := NewWeatherAPIProvider(srv.Client(), "k", florence,
		WithBaseURL(srv.URL),
		WithBackoff(BackoffConfig{MaxRetries: 1, InitialInterval: time.Millisecond}),
	)
	require.NoError(t, err)

	m, err := p.Acquire(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, calls.Load())
	assert.Equal(t, 3.0, m.TemperatureC)
}

func TestAcquireRespectsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	p, err := NewOpenWeatherProvider(srv.Client(), "k", florence, WithBaseURL(srv.URL))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = p.Acquire(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestResolveCoordinates(t *testing.T) {
	prev := geocode
	t.Cleanup(func() { geocode = prev })

	var gotKey string
	geocode = func(apiKey string, addr geocoder.Address) (geocoder.Location, error) {
		gotKey = apiKey
		assert.Equal(t, "Florence", addr.City)
		return geocoder.Location{Latitude: 43.77, Longitude: 11.25}, nil
	}

	loc, err := ResolveCoordinates(weather.Location{City: "Florence", Country: "IT"}, "g-key")
	require.NoError(t, err)
	require.True(t, loc.HasCoordinates())
	assert.Equal(t, 43.77, *loc.Lat)
	assert.Equal(t, "g-key", gotKey)

	// Already resolved or no key: no lookup.
	geocode = func(string, geocoder.Address) (geocoder.Location, error) {
		t.Fatal("unexpected geocode call")
		return geocoder.Location{}, nil
	}
	_, err = ResolveCoordinates(florence, "g-key")
	require.NoError(t, err)
	_, err = ResolveCoordinates(weather.Location{City: "Paris"}, "")
	require.NoError(t, err)
}
