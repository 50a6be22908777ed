// Package sensor is the hardware data source: a Bosch BME280 environmental
// sensor on an I2C bus, driven through periph.io. The humidity-less BMP280 is
// refused at Open.
package sensor

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/bmxx80"
	"periph.io/x/host/v3"

	"github.com/i474232898/weather-panel/internal/weather"
)

// Plausible ranges for the BME280.
const (
	minTempC = -40.0
	maxTempC = 85.0
)

// device is the subset of *bmxx80.Dev used here.
type device interface {
	Sense(e *physic.Env) error
	Halt() error
}

// BME280 implements weather.DataSource for a bmxx80 device.
type BME280 struct {
	name string
	dev  device
	bus  io.Closer

	// busy is held for the lifetime of one Sense call, which may outlive an
	// Acquire whose context expired.
	busy sync.Mutex
}

// Open initializes the host drivers, opens the I2C bus (empty busName selects
// the default bus) and the device at addr.
func Open(busName string, addr uint16) (*BME280, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host init: %w", err)
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %q: %w", busName, err)
	}

	dev, err := bmxx80.NewI2C(bus, addr, &bmxx80.DefaultOpts)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("bmxx80 at 0x%02X: %w", addr, err)
	}
	if err := requireHumidity(dev); err != nil {
		dev.Halt()
		bus.Close()
		return nil, fmt.Errorf("bmxx80 at 0x%02X: %w", addr, err)
	}

	if busName == "" {
		busName = "default"
	}
	return newBME280(fmt.Sprintf("bme280@%s/0x%02X", busName, addr), dev, bus), nil
}

// requireHumidity rejects chips without a humidity sensor. The driver names
// the detected chip in its String form, e.g. "BMP280{...}".
func requireHumidity(dev fmt.Stringer) error {
	if strings.HasPrefix(dev.String(), "BME280") {
		return nil
	}
	return &Error{Kind: KindBus, Err: fmt.Errorf("%s has no humidity sensor", chipName(dev))}
}

func chipName(dev fmt.Stringer) string {
	name, _, _ := strings.Cut(dev.String(), "{")
	return name
}

func newBME280(name string, dev device, bus io.Closer) *BME280 {
	return &BME280{name: name, dev: dev, bus: bus}
}

func (s *BME280) Name() string {
	return s.name
}

// Identify always reports no location: hardware has no location metadata.
func (s *BME280) Identify() (weather.Location, bool) {
	return weather.Location{}, false
}

// Acquire performs one blocking measurement. If ctx expires first the
// transaction is abandoned and reported as a timeout; the next Acquire fails
// fast until the abandoned transaction releases the bus.
func (s *BME280) Acquire(ctx context.Context) (weather.Measurement, error) {
	if !s.busy.TryLock() {
		return weather.Measurement{}, &Error{Kind: KindTimeout, Err: errBusy}
	}

	type result struct {
		env physic.Env
		err error
	}
	done := make(chan result, 1)
	go func() {
		defer s.busy.Unlock()
		var env physic.Env
		err := s.dev.Sense(&env)
		done <- result{env: env, err: err}
	}()

	select {
	case <-ctx.Done():
		return weather.Measurement{}, &Error{Kind: KindTimeout, Err: ctx.Err()}
	case r := <-done:
		if r.err != nil {
			return weather.Measurement{}, &Error{Kind: classify(r.err), Err: r.err}
		}
		m := weather.Measurement{
			TemperatureC: r.env.Temperature.Celsius(),
			HumidityPct:  float64(r.env.Humidity) / float64(physic.PercentRH),
		}
		if err := checkRange(m); err != nil {
			return weather.Measurement{}, &Error{Kind: KindChecksum, Err: err}
		}
		return m, nil
	}
}

// Close halts the device and releases the bus.
func (s *BME280) Close() error {
	s.busy.Lock()
	defer s.busy.Unlock()

	err := s.dev.Halt()
	if s.bus != nil {
		if cerr := s.bus.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func checkRange(m weather.Measurement) error {
	if m.TemperatureC < minTempC || m.TemperatureC > maxTempC {
		return fmt.Errorf("temperature %.2f°C out of range", m.TemperatureC)
	}
	if m.HumidityPct < 0 || m.HumidityPct > 100 {
		return fmt.Errorf("humidity %.2f%% out of range", m.HumidityPct)
	}
	return nil
}
