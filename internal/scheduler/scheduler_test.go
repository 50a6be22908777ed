package scheduler

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-panel/internal/weather"
)

type countingTicker struct {
	n atomic.Int32
}

func (c *countingTicker) Tick() weather.Status {
	c.n.Add(1)
	return weather.StatusOk
}

func TestSchedulerTicksRepeatedly(t *testing.T) {
	ticker := &countingTicker{}
	s := New(ticker, 20*time.Millisecond, nil)

	require.NoError(t, s.Start())
	defer s.Stop()

	require.Eventually(t, func() bool {
		return ticker.n.Load() >= 3
	}, 2*time.Second, 5*time.Millisecond)
}

func TestSchedulerStopHaltsTicks(t *testing.T) {
	ticker := &countingTicker{}
	s := New(ticker, 20*time.Millisecond, nil)
	require.NoError(t, s.Start())

	require.Eventually(t, func() bool { return ticker.n.Load() >= 1 }, time.Second, 5*time.Millisecond)
	s.Stop()

	after := ticker.n.Load()
	time.Sleep(100 * time.Millisecond)
	assert.LessOrEqual(t, ticker.n.Load(), after+1)
}

func TestSchedulerRejectsNonPositiveInterval(t *testing.T) {
	s := New(&countingTicker{}, 0, nil)
	assert.Error(t, s.Start())
}
