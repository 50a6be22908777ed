package httpapi

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weather-panel/internal/weather"
)

var validate = validator.New()

// SourceInfo is the identity captured once at startup.
type SourceInfo struct {
	Name     string           `json:"name"`
	Location weather.Location `json:"location,omitempty"`
	// Identified is false for sources without a location (hardware sensors).
	Identified bool `json:"identified"`
}

// Deps are the read-only views the status API serves.
type Deps struct {
	Store  weather.Store
	Start  time.Time
	Format weather.TimestampFormat
	Source SourceInfo
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, d Deps) {
	if d.Format == "" {
		d.Format = weather.TimestampClock
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "weather-panel",
		})
	})

	v1 := app.Group("/api/v1")

	v1.Get("/reading/current", func(c *fiber.Ctx) error {
		q := readingQuery{Format: c.Query("format")}
		if err := validate.Struct(q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "format must be one of: elapsed, clock")
		}
		format := d.Format
		if q.Format != "" {
			format = weather.TimestampFormat(q.Format)
		}

		r, err := weather.Latest(d.Store)
		if err != nil {
			if errors.Is(err, weather.ErrStoreEmpty) {
				return fiber.NewError(fiber.StatusNotFound, "no reading acquired yet")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to read current reading")
		}

		return c.JSON(fiber.Map{
			"status":  r.Status.String(),
			"reading": r.ToRecord(d.Start, format),
		})
	})

	v1.Get("/source", func(c *fiber.Ctx) error {
		return c.JSON(d.Source)
	})
}

// readingQuery holds query parameters for the current reading endpoint.
type readingQuery struct {
	Format string `validate:"omitempty,oneof=elapsed clock"`
}
