package weather

import "context"

// DataSource abstracts a producer of measurements: a hardware sensor, a remote
// weather API, or a mock. Acquire may block for the duration of one bus
// transaction or network round trip.
type DataSource interface {
	Name() string
	Acquire(ctx context.Context) (Measurement, error)
	// Identify returns the source's location descriptor from local state.
	// ok is false for sources without one (hardware sensors).
	Identify() (loc Location, ok bool)
}

// Store is the single-slot latest-value cache shared by the acquisition loop
// and the refresh timer.
type Store interface {
	Set(r Reading)
	Get() (Reading, bool)
}

// Display is the consumer the refresh timer pushes to.
type Display interface {
	ShowRecord(rec Record)
	ShowStatus(s Status)
}
