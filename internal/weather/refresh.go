package weather

import "time"

// RefreshTimer forwards the store's current value to a Display. Tick is meant
// to run on the UI event loop: it does no acquisition work and Store.Get never
// blocks, so a tick costs one load plus the display push.
type RefreshTimer struct {
	store   Store
	display Display
	start   time.Time
	format  TimestampFormat
}

// NewRefreshTimer creates a timer rendering timestamps relative to start.
func NewRefreshTimer(store Store, display Display, start time.Time, format TimestampFormat) *RefreshTimer {
	if format == "" {
		format = TimestampClock
	}
	return &RefreshTimer{
		store:   store,
		display: display,
		start:   start,
		format:  format,
	}
}

// Tick pushes the latest reading, or an error indicator if there is none, and
// returns the status it pushed.
func (t *RefreshTimer) Tick() Status {
	r, ok := t.store.Get()
	if !ok || r.Status != StatusOk {
		t.display.ShowStatus(StatusError)
		return StatusError
	}

	t.display.ShowRecord(r.ToRecord(t.start, t.format))
	t.display.ShowStatus(StatusOk)
	return StatusOk
}
