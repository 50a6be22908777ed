package weather

import (
	"errors"
	"fmt"
)

// ErrStoreEmpty is returned when no reading has been published yet.
var ErrStoreEmpty = errors.New("no reading published yet")

// AcquisitionError wraps a failed Acquire call. It is always recovered by the
// acquisition loop.
type AcquisitionError struct {
	Source string
	Err    error
}

func (e *AcquisitionError) Error() string {
	return fmt.Sprintf("acquire from %s: %v", e.Source, e.Err)
}

func (e *AcquisitionError) Unwrap() error {
	return e.Err
}

// Latest returns the current reading from s, or ErrStoreEmpty.
func Latest(s Store) (Reading, error) {
	r, ok := s.Get()
	if !ok {
		return Reading{}, ErrStoreEmpty
	}
	return r, nil
}
