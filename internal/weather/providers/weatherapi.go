package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/i474232898/weather-panel/internal/weather"
)

// WeatherAPIProvider implements weather.DataSource for WeatherAPI.com.
type WeatherAPIProvider struct {
	remote
}

func NewWeatherAPIProvider(client *http.Client, apiKey string, loc weather.Location, opts ...Option) (*WeatherAPIProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("weatherapi: %w", ErrMissingKey)
	}
	return &WeatherAPIProvider{
		remote: newRemote("weatherapi", "https://api.weatherapi.com/v1/current.json", apiKey, client, loc, opts),
	}, nil
}

func (p *WeatherAPIProvider) Acquire(ctx context.Context) (weather.Measurement, error) {
	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("key", p.apiKey)
		// WeatherAPI uses "q" for location; it accepts "city,country" or "lat,lon".
		if p.loc.HasCoordinates() {
			values.Set("q", fmt.Sprintf("%f,%f", *p.loc.Lat, *p.loc.Lon))
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
		Current struct {
			TempC    *float64 `json:"temp_c"`
			Humidity *float64 `json:"humidity"`
		} `json:"current"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return p.fail(fmt.Errorf("decode response: %w", err))
	}
	if payload.Current.TempC == nil || payload.Current.Humidity == nil {
		return p.fail(fmt.Errorf("response is missing current.temp_c or current.humidity"))
	}

	return weather.Measurement{
		TemperatureC: *payload.Current.TempC,
		HumidityPct:  *payload.Current.Humidity,
	}, nil
}
