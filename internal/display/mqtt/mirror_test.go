package mqtt

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-panel/internal/weather"
)

type doneToken struct{ err error }

func (t doneToken) Wait() bool                     { return true }
func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t doneToken) Error() error { return t.err }

type published struct {
	topic    string
	retained bool
	payload  []byte
}

// fakeClient implements the parts of mqtt.Client the mirror uses; the
// embedded interface panics on anything else.
type fakeClient struct {
	mqtt.Client

	// block, when set, stalls every Publish until closed.
	block chan struct{}

	mu        sync.Mutex
	connected bool
	sent      []published
}

func (c *fakeClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *fakeClient) Publish(topic string, _ byte, retained bool, payload interface{}) mqtt.Token {
	if c.block != nil {
		<-c.block
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, published{topic: topic, retained: retained, payload: payload.([]byte)})
	return doneToken{}
}

func (c *fakeClient) messages() []published {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]published(nil), c.sent...)
}

func newTestMirror(t *testing.T, c *fakeClient) *Mirror {
	t.Helper()
	m := newMirror(c, "panel", slog.New(slog.NewTextHandler(io.Discard, nil)))
	m.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	m.startSender(ctx)
	return m
}

func waitForMessages(t *testing.T, c *fakeClient, n int) []published {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(c.messages()) >= n
	}, time.Second, 5*time.Millisecond)
	return c.messages()
}

func TestShowRecordPublishesTelemetry(t *testing.T) {
	c := &fakeClient{connected: true}
	m := newTestMirror(t, c)

	m.ShowRecord(weather.Record{TemperatureC: 21.5, HumidityPct: 40, Timestamp: "12"})

	msgs := waitForMessages(t, c, 1)
	require.Len(t, msgs, 1)
	assert.Equal(t, "stations/panel/telemetry", msgs[0].topic)
	assert.False(t, msgs[0].retained)

	var got Telemetry
	require.NoError(t, json.Unmarshal(msgs[0].payload, &got))
	assert.Equal(t, "panel", got.StationID)
	assert.Equal(t, "12", got.ReadingTime)
	require.NotNil(t, got.Temperature)
	assert.Equal(t, 21.5, *got.Temperature)
	assert.Equal(t, 40.0, *got.Humidity)
}

func TestShowStatusPublishesOnChangeRetained(t *testing.T) {
	c := &fakeClient{connected: true}
	m := newTestMirror(t, c)

	m.ShowStatus(weather.StatusError)
	m.ShowStatus(weather.StatusError)
	m.ShowStatus(weather.StatusOk)

	msgs := waitForMessages(t, c, 2)
	require.Len(t, msgs, 2)
	for _, msg := range msgs {
		assert.Equal(t, "stations/panel/health", msg.topic)
		assert.True(t, msg.retained)
	}

	var last StationHealth
	require.NoError(t, json.Unmarshal(msgs[1].payload, &last))
	assert.True(t, last.Healthy)
}

func TestDisconnectedDropsPushes(t *testing.T) {
	c := &fakeClient{}
	m := newTestMirror(t, c)

	m.ShowRecord(weather.Record{TemperatureC: 1})
	m.ShowStatus(weather.StatusOk)
	assert.Empty(t, c.messages())

	// The status is retried once connected.
	c.mu.Lock()
	c.connected = true
	c.mu.Unlock()
	m.ShowStatus(weather.StatusOk)
	assert.Len(t, waitForMessages(t, c, 1), 1)
}

func TestStalledBrokerDoesNotBlockPushes(t *testing.T) {
	c := &fakeClient{connected: true, block: make(chan struct{})}
	m := newTestMirror(t, c)
	defer close(c.block)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 4*queueSize; i++ {
			m.ShowRecord(weather.Record{TemperatureC: float64(i)})
			m.ShowStatus(weather.Status(i % 2))
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("pushes blocked on a stalled publish")
	}
	assert.Empty(t, c.messages())
}
