package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/i474232898/weather-panel/internal/weather"
)

// OpenWeatherProvider implements weather.DataSource for OpenWeatherMap.
type OpenWeatherProvider struct {
	remote
}

// NewOpenWeatherProvider returns an error when apiKey is empty; callers fall
// back to the mock source.
func NewOpenWeatherProvider(client *http.Client, apiKey string, loc weather.Location, opts ...Option) (*OpenWeatherProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openweathermap: %w", ErrMissingKey)
	}
	return &OpenWeatherProvider{
		remote: newRemote("openweathermap", "https://api.openweathermap.org/data/2.5/weather", apiKey, client, loc, opts),
	}, nil
}

func (p *OpenWeatherProvider) Acquire(ctx context.Context) (weather.Measurement, error) {
	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("appid", p.apiKey)
		values.Set("units", "metric")

		if p.loc.HasCoordinates() {
			values.Set("lat", fmt.Sprintf("%f", *p.loc.Lat))
			values.Set("lon", fmt.Sprintf("%f", *p.loc.Lon))
		} else {
			q := p.loc.City
			if p.loc.Country != "" {
				q = fmt.Sprintf("%s,%s", p.loc.City, p.loc.Country)
			}
			values.Set("q", q)
		}

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return p.fail(err)
	}
	defer resp.Body.Close()

	var payload struct {
		Main struct {
			Temp     *float64 `json:"temp"`
			Humidity *float64 `json:"humidity"`
		} `json:"main"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return p.fail(fmt.Errorf("decode response: %w", err))
	}
	if payload.Main.Temp == nil || payload.Main.Humidity == nil {
		return p.fail(fmt.Errorf("response is missing main.temp or main.humidity"))
	}

	return weather.Measurement{
		TemperatureC: *payload.Main.Temp,
		HumidityPct:  *payload.Main.Humidity,
	}, nil
}
