package providers

import (
	"net/http"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-panel/internal/weather"
)

// Option customizes a remote provider.
type Option func(*remote)

// WithBaseURL overrides the provider's endpoint.
func WithBaseURL(u string) Option {
	return func(r *remote) {
		r.baseURL = u
	}
}

// WithBackoff overrides the per-Acquire retry policy.
func WithBackoff(b BackoffConfig) Option {
	return func(r *remote) {
		r.httpCfg.Backoff = b
	}
}

// remote holds the state shared by every HTTP-backed provider.
type remote struct {
	name    string
	apiKey  string
	baseURL string
	loc     weather.Location
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func newRemote(name, baseURL, apiKey string, client *http.Client, loc weather.Location, opts []Option) remote {
	r := remote{
		name:    name,
		apiKey:  apiKey,
		baseURL: baseURL,
		loc:     loc,
		httpCfg: newHTTPConfig(client),
		circuit: newCircuitBreaker(name),
	}
	for _, o := range opts {
		o(&r)
	}
	return r
}

func (r *remote) Name() string {
	return r.name
}

// Identify returns the configured location. It never touches the network.
func (r *remote) Identify() (weather.Location, bool) {
	return r.loc, true
}

func (r *remote) fail(err error) (weather.Measurement, error) {
	return weather.Measurement{}, &Error{Provider: r.name, Err: err}
}
