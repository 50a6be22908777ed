package providers

import (
	"fmt"

	"github.com/kelvins/geocoder"

	"github.com/i474232898/weather-panel/internal/weather"
)

var geocode = func(apiKey string, addr geocoder.Address) (geocoder.Location, error) {
	geocoder.ApiKey = apiKey
	return geocoder.Geocoding(addr)
}

// ResolveCoordinates fills in loc's coordinates by geocoding its city and
// country. It is called once at startup; the result is what Identify returns
// for the rest of the process. A location that already has coordinates, or an
// empty apiKey, is returned unchanged.
func ResolveCoordinates(loc weather.Location, apiKey string) (weather.Location, error) {
	if loc.HasCoordinates() || apiKey == "" {
		return loc, nil
	}

	res, err := geocode(apiKey, geocoder.Address{
		City:    loc.City,
		Country: loc.Country,
	})
	if err != nil {
		return loc, fmt.Errorf("geocode %s: %w", loc.Key(), err)
	}

	lat, lon := res.Latitude, res.Longitude
	loc.Lat = &lat
	loc.Lon = &lon
	return loc, nil
}
