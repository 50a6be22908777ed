package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/i474232898/weather-panel/internal/weather"
)

// OpenMeteoProvider implements weather.DataSource for Open-Meteo. It needs no
// API key but requires coordinates.
type OpenMeteoProvider struct {
	remote
}

func NewOpenMeteoProvider(client *http.Client, loc weather.Location, opts ...Option) (*OpenMeteoProvider, error) {
	if !loc.HasCoordinates() {
		return nil, fmt.Errorf("openmeteo requires latitude and longitude")
	}
	return &OpenMeteoProvider{
		remote: newRemote("openmeteo", "https://api.open-meteo.com/v1/forecast", "", client, loc, opts),
	}, nil
}

func (p *OpenMeteoProvider) Acquire(ctx context.Context) (weather.Measurement, error) {
	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("latitude", fmt.Sprintf("%f", *p.loc.Lat))
		values.Set("longitude", fmt.Sprintf("%f", *p.loc.Lon))
		values.Set("current", "temperature_2m,relative_humidity_2m")

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
			Temperature *float64 `json:"temperature_2m"`
			Humidity    *float64 `json:"relative_humidity_2m"`
		} `json:"current"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return p.fail(fmt.Errorf("decode response: %w", err))
	}
	if payload.Current.Temperature == nil || payload.Current.Humidity == nil {
		return p.fail(fmt.Errorf("response is missing current.temperature_2m or current.relative_humidity_2m"))
	}

	return weather.Measurement{
		TemperatureC: *payload.Current.Temperature,
		HumidityPct:  *payload.Current.Humidity,
	}, nil
}
