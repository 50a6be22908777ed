package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/i474232898/weather-panel/internal/weather"
)

// Data source selections.
const (
	SourceAuto   = "auto"
	SourceSensor = "sensor"
	SourceRemote = "remote"
	SourceMock   = "mock"
)

// Display selections.
const (
	DisplayPanel = "panel"
	DisplayLog   = "log"
)

var validate = validator.New()

type AppConfig struct {
	AppEnv   string `validate:"oneof=dev prod"`
	LogLevel slog.Level
	// LogFile receives logs when set; the panel owns the terminal, so panel
	// mode defaults it to weather-panel.log.
	LogFile string

	// PollInterval is the pause between acquisition attempts.
	PollInterval time.Duration `validate:"gt=0"`
	// RefreshInterval is the display refresh period.
	RefreshInterval time.Duration `validate:"gt=0"`
	// AcquireTimeout bounds a single acquisition attempt.
	AcquireTimeout time.Duration `validate:"gt=0"`
	HTTPTimeout    time.Duration `validate:"gt=0"`

	Source          string `validate:"oneof=auto sensor remote mock"`
	WeatherProvider string `validate:"oneof=openweather weatherapi openmeteo"`
	WeatherAPIKey   string
	GeocoderAPIKey  string
	Location        weather.Location

	SensorBus     string
	SensorAddress uint16 `validate:"gt=0,lte=127"`

	Display         string `validate:"oneof=panel log"`
	TimestampFormat weather.TimestampFormat

	// StatusAddr is the status API listen address; empty disables it.
	StatusAddr string

	// MQTTBroker enables the MQTT mirror when set.
	MQTTBroker   string
	MQTTPort     int `validate:"gt=0,lte=65535"`
	MQTTClientID string
	StationID    string `validate:"required"`
}

// Load reads configuration from the environment (after loading .env if
// present) with defaults, and validates it.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds the configuration from the process environment only.
func FromEnv() (*AppConfig, error) {
	cfg := &AppConfig{}
	var err error

	cfg.AppEnv = getenvDefault("APP_ENV", "dev")
	if cfg.LogLevel, err = parseLogLevel(getenvDefault("LOG_LEVEL", "info")); err != nil {
		return nil, err
	}

	if cfg.PollInterval, err = getenvDuration("POLL_INTERVAL", "2s"); err != nil {
		return nil, err
	}
	if cfg.RefreshInterval, err = getenvDuration("REFRESH_INTERVAL", "5s"); err != nil {
		return nil, err
	}
	if cfg.AcquireTimeout, err = getenvDuration("ACQUIRE_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "10s"); err != nil {
		return nil, err
	}

	cfg.Source = strings.ToLower(getenvDefault("DATA_SOURCE", SourceAuto))
	cfg.WeatherProvider = strings.ToLower(getenvDefault("WEATHER_PROVIDER", "openweather"))
	cfg.WeatherAPIKey = firstEnv("WEATHER_API_KEY", "OPENWEATHER_API_KEY", "OPEN_WEATHER_API")
	cfg.GeocoderAPIKey = os.Getenv("GEOCODER_API_KEY")

	if cfg.Location, err = loadLocation(); err != nil {
		return nil, err
	}

	cfg.SensorBus = strings.TrimSpace(os.Getenv("SENSOR_I2C_BUS"))
	addrStr := getenvDefault("SENSOR_I2C_ADDRESS", "0x76")
	addr, err := strconv.ParseUint(addrStr, 0, 16)
	if err != nil {
		return nil, fmt.Errorf("invalid SENSOR_I2C_ADDRESS %q: %w", addrStr, err)
	}
	cfg.SensorAddress = uint16(addr)

	cfg.Display = strings.ToLower(getenvDefault("DISPLAY", DisplayPanel))
	if cfg.TimestampFormat, err = weather.ParseTimestampFormat(getenvDefault("TIMESTAMP_FORMAT", string(weather.TimestampClock))); err != nil {
		return nil, err
	}

	cfg.LogFile = strings.TrimSpace(os.Getenv("LOG_FILE"))
	if cfg.LogFile == "" && cfg.Display == DisplayPanel {
		cfg.LogFile = "weather-panel.log"
	}

	cfg.StatusAddr = strings.TrimSpace(os.Getenv("STATUS_ADDR"))

	cfg.MQTTBroker = strings.TrimSpace(os.Getenv("MQTT_BROKER"))
	if cfg.MQTTPort, err = getenvInt("MQTT_PORT", 1883); err != nil {
		return nil, err
	}
	cfg.MQTTClientID = getenvDefault("MQTT_CLIENT_ID", "weather-panel")
	cfg.StationID = getenvDefault("STATION_ID", "panel")

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// HasAPIKey reports whether a remote provider credential is configured.
func (c *AppConfig) HasAPIKey() bool {
	return c.WeatherAPIKey != ""
}

func loadLocation() (weather.Location, error) {
	loc := weather.Location{
		City:    getenvDefault("WEATHER_LOCATION_CITY", "Florence"),
		Country: getenvDefault("WEATHER_LOCATION_COUNTRY", "IT"),
	}

	latStr := getenvDefault("WEATHER_LOCATION_LAT", "")
	lonStr := getenvDefault("WEATHER_LOCATION_LON", "")
	// Coordinates default to Florence only when the city is also the default.
	if latStr == "" && lonStr == "" && os.Getenv("WEATHER_LOCATION_CITY") == "" {
		latStr, lonStr = "43.77", "11.25"
	}
	if (latStr == "") != (lonStr == "") {
		return loc, fmt.Errorf("WEATHER_LOCATION_LAT and WEATHER_LOCATION_LON must be set together")
	}
	if latStr == "" {
		return loc, nil
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil || lat < -90 || lat > 90 {
		return loc, fmt.Errorf("invalid WEATHER_LOCATION_LAT %q", latStr)
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil || lon < -180 || lon > 180 {
		return loc, fmt.Errorf("invalid WEATHER_LOCATION_LON %q", lonStr)
	}
	loc.Lat, loc.Lon = &lat, &lon
	return loc, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}

func getenvDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	s := getenvDefault(key, def)
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return d, nil
}

func getenvInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return ""
}
