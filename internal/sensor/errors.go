package sensor

import (
	"errors"
	"fmt"

	"github.com/i474232898/weather-panel/internal/common"
)

// Kind classifies a failed sensor transaction.
type Kind int

const (
	// KindBus is a failed bus transaction.
	KindBus Kind = iota
	// KindTimeout is a transaction that did not finish in time, or one that
	// could not start because an abandoned transaction still holds the bus.
	KindTimeout
	// KindChecksum is data that arrived but failed integrity or range checks.
	KindChecksum
)

func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindChecksum:
		return "checksum"
	default:
		return "bus"
	}
}

// Error is returned by the hardware source's Acquire.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("sensor %s error: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

var errBusy = errors.New("previous transaction still in progress")

// classify maps a driver error onto a Kind. Drivers report failures as plain
// errors, so this goes by message.
func classify(err error) Kind {
	msg := err.Error()
	switch {
	case common.HasAny(msg, "timeout", "timed out", "deadline"):
		return KindTimeout
	case common.HasAny(msg, "checksum", "crc", "invalid"):
		return KindChecksum
	default:
		return KindBus
	}
}
