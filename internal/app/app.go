// Package app assembles the panel from configuration: it picks the data
// source, starts the acquisition loop, and drives the display until shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/i474232898/weather-panel/internal/api/http"
	"github.com/i474232898/weather-panel/internal/config"
	"github.com/i474232898/weather-panel/internal/display"
	"github.com/i474232898/weather-panel/internal/display/mqtt"
	"github.com/i474232898/weather-panel/internal/display/panel"
	"github.com/i474232898/weather-panel/internal/scheduler"
	"github.com/i474232898/weather-panel/internal/sensor"
	"github.com/i474232898/weather-panel/internal/store"
	"github.com/i474232898/weather-panel/internal/weather"
	"github.com/i474232898/weather-panel/internal/weather/providers"
)

const shutdownTimeout = 5 * time.Second

var checkTerminal = func() error {
	return panel.CheckTerminal(os.Stdin, os.Stdout)
}

// App owns every long-lived component of the panel.
type App struct {
	cfg    *config.AppConfig
	logger *slog.Logger
	start  time.Time

	store       *store.Latest[weather.Reading]
	source      weather.DataSource
	closeSource func() error
	identity    httpapi.SourceInfo
	loop        *weather.AcquisitionLoop

	http     *fiber.App
	statusLn net.Listener
	mirror   *mqtt.Mirror
}

// New performs every step that may fail fatally: the panel's terminal check,
// source selection (opening the hardware bus when configured) and binding the
// status listener. Nothing runs until Run is called.
func New(cfg *config.AppConfig, logger *slog.Logger, logOut io.Writer) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if logOut == nil {
		logOut = io.Discard
	}

	if cfg.Display != config.DisplayLog {
		if err := checkTerminal(); err != nil {
			return nil, fmt.Errorf("panel display: %w", err)
		}
	}

	a := &App{
		cfg:    cfg,
		logger: logger,
		start:  time.Now(),
		store:  store.NewLatest[weather.Reading](),
	}

	src, closeSource, err := buildSource(cfg, &http.Client{Timeout: cfg.HTTPTimeout}, logger)
	if err != nil {
		return nil, err
	}
	a.source, a.closeSource = src, closeSource

	// Identity is read once; remote sources never hit the network for it.
	loc, ok := src.Identify()
	a.identity = httpapi.SourceInfo{Name: src.Name(), Location: loc, Identified: ok}
	logger.Info("data source selected", "source", src.Name(), "location", loc.Key(), "identified", ok)

	a.loop = weather.NewAcquisitionLoop(src, a.store, weather.LoopConfig{
		PollInterval:   cfg.PollInterval,
		AcquireTimeout: cfg.AcquireTimeout,
		Start:          a.start,
		Logger:         logger,
	})

	if cfg.StatusAddr != "" {
		ln, err := net.Listen("tcp", cfg.StatusAddr)
		if err != nil {
			a.closeQuietly()
			return nil, fmt.Errorf("bind status api on %s: %w", cfg.StatusAddr, err)
		}
		a.statusLn = ln
		a.http = newStatusServer(a, logOut)
	}

	if cfg.MQTTBroker != "" {
		a.mirror = mqtt.New(mqtt.Config{
			Broker:    cfg.MQTTBroker,
			Port:      cfg.MQTTPort,
			ClientID:  cfg.MQTTClientID,
			StationID: cfg.StationID,
		}, logger)
	}

	return a, nil
}

// Store exposes the latest-value store.
func (a *App) Store() *store.Latest[weather.Reading] {
	return a.store
}

// Identity returns the source identity captured at startup.
func (a *App) Identity() httpapi.SourceInfo {
	return a.identity
}

// StatusAddr returns the bound status API address, or "" when disabled.
func (a *App) StatusAddr() string {
	if a.statusLn == nil {
		return ""
	}
	return a.statusLn.Addr().String()
}

// Run starts the acquisition loop and the optional sinks, then blocks on the
// display until ctx is cancelled or the user quits the panel.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		a.loop.Run(ctx)
	}()

	if a.http != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.logger.Info("status api listening", "addr", a.StatusAddr())
			if err := a.http.Listener(a.statusLn); err != nil {
				a.logger.Error("status api stopped", "error", err)
			}
		}()
	}

	var sinks display.Multi
	if a.mirror != nil {
		sinks = append(sinks, a.mirror)
		go func() {
			if err := a.mirror.Connect(ctx); err != nil && ctx.Err() == nil {
				a.logger.Warn("mqtt connect failed", "error", err)
			}
		}()
	}

	err := a.runDisplay(ctx, sinks)

	cancel()
	a.shutdown()
	wg.Wait()
	a.logger.Info("shutdown complete")
	return err
}

func (a *App) runDisplay(ctx context.Context, sinks display.Multi) error {
	switch a.cfg.Display {
	case config.DisplayLog:
		disp := append(display.Multi{display.NewLog(a.logger)}, sinks...)
		timer := weather.NewRefreshTimer(a.store, disp, a.start, a.cfg.TimestampFormat)

		sched := scheduler.New(timer, a.cfg.RefreshInterval, a.logger)
		if err := sched.Start(); err != nil {
			return err
		}
		<-ctx.Done()
		sched.Stop()
		return nil

	default:
		model := panel.New(panelTitle(a.identity), a.cfg.RefreshInterval)
		disp := append(display.Multi{model}, sinks...)
		model.SetTicker(weather.NewRefreshTimer(a.store, disp, a.start, a.cfg.TimestampFormat))
		if err := panel.Run(ctx, model); err != nil {
			return fmt.Errorf("run panel: %w", err)
		}
		return nil
	}
}

func (a *App) shutdown() {
	if a.http != nil {
		if err := a.http.ShutdownWithTimeout(shutdownTimeout); err != nil {
			a.logger.Error("status api shutdown", "error", err)
		}
	}
	if a.mirror != nil {
		a.mirror.Disconnect()
	}
	a.closeQuietly()
}

func (a *App) closeQuietly() {
	if a.closeSource == nil {
		return
	}
	if err := a.closeSource(); err != nil {
		a.logger.Warn("close data source", "source", a.source.Name(), "error", err)
	}
	a.closeSource = nil
}

func newStatusServer(a *App, logOut io.Writer) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "weather-panel",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				code = fe.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	app.Use(fiberlogger.New(fiberlogger.Config{Output: logOut}))
	app.Use(recover.New())

	httpapi.RegisterRoutes(app, httpapi.Deps{
		Store:  a.store,
		Start:  a.start,
		Format: a.cfg.TimestampFormat,
		Source: a.identity,
	})
	return app
}

func panelTitle(info httpapi.SourceInfo) string {
	if !info.Identified {
		return "Sensor " + info.Name
	}
	if info.Location.Country == "" {
		return "Weather in " + info.Location.City
	}
	return fmt.Sprintf("Weather in %s, %s", info.Location.City, info.Location.Country)
}

func noopClose() error { return nil }

// buildSource is the only place that knows the concrete DataSource variants.
// Remote selection without a key falls back to the mock.
func buildSource(cfg *config.AppConfig, client *http.Client, logger *slog.Logger) (weather.DataSource, func() error, error) {
	switch cfg.Source {
	case config.SourceMock:
		return providers.NewMockProvider(), noopClose, nil

	case config.SourceSensor:
		s, err := sensor.Open(cfg.SensorBus, cfg.SensorAddress)
		if err != nil {
			return nil, nil, fmt.Errorf("open sensor: %w", err)
		}
		return s, s.Close, nil

	case config.SourceAuto:
		if !cfg.HasAPIKey() && cfg.WeatherProvider != "openmeteo" {
			logger.Info("no weather api key configured, using mock data")
			return providers.NewMockProvider(), noopClose, nil
		}
	}

	src, err := buildRemote(cfg, client, logger)
	if errors.Is(err, providers.ErrMissingKey) {
		logger.Warn("weather api key missing, falling back to mock data", "provider", cfg.WeatherProvider)
		return providers.NewMockProvider(), noopClose, nil
	}
	if err != nil {
		return nil, nil, err
	}
	return src, noopClose, nil
}

func buildRemote(cfg *config.AppConfig, client *http.Client, logger *slog.Logger) (weather.DataSource, error) {
	loc, err := providers.ResolveCoordinates(cfg.Location, cfg.GeocoderAPIKey)
	if err != nil {
		logger.Warn("geocoding failed, querying by city", "location", cfg.Location.Key(), "error", err)
	}

	switch cfg.WeatherProvider {
	case "weatherapi":
		return providers.NewWeatherAPIProvider(client, cfg.WeatherAPIKey, loc)
	case "openmeteo":
		return providers.NewOpenMeteoProvider(client, loc)
	default:
		return providers.NewOpenWeatherProvider(client, cfg.WeatherAPIKey, loc)
	}
}
