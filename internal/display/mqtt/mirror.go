// Package mqtt mirrors what the panel shows to an MQTT broker, using the
// station topic layout stations/<id>/telemetry and stations/<id>/health.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/i474232898/weather-panel/internal/weather"
)

const (
	publishTimeout = 5 * time.Second
	queueSize      = 16
)

// Config holds broker settings.
type Config struct {
	Broker    string
	Port      int
	ClientID  string
	StationID string
}

// Telemetry is published for every record the panel shows.
type Telemetry struct {
	StationID   string    `json:"station_id"`
	Timestamp   time.Time `json:"timestamp"`
	ReadingTime string    `json:"reading_time"`
	Temperature *float64  `json:"temperature_c,omitempty"`
	Humidity    *float64  `json:"humidity_pct,omitempty"`
}

// StationHealth is published, retained, whenever the status changes.
type StationHealth struct {
	StationID string    `json:"station_id"`
	LastSeen  time.Time `json:"last_seen"`
	Healthy   bool      `json:"healthy"`
}

type outbound struct {
	topic    string
	retained bool
	payload  []byte
}

// Mirror is a weather.Display that publishes to MQTT. It never waits on the
// broker: pushes are queued for a single sender goroutine started by Connect,
// and dropped while disconnected or when the queue is full.
type Mirror struct {
	client    mqtt.Client
	stationID string
	logger    *slog.Logger
	now       func() time.Time

	queue      chan outbound
	senderOnce sync.Once

	mu         sync.Mutex
	lastStatus weather.Status
	sentStatus bool
}

// New builds a mirror with auto-reconnect. Call Connect before use.
func New(cfg Config, logger *slog.Logger) *Mirror {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "mqtt")

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.Broker, cfg.Port))
	opts.SetClientID(cfg.ClientID)
	opts.SetCleanSession(true)

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)

	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetWriteTimeout(publishTimeout)

	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		logger.Info("mqtt connected", "broker", cfg.Broker, "port", cfg.Port)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("mqtt connection lost", "error", err)
	})

	return newMirror(mqtt.NewClient(opts), cfg.StationID, logger)
}

func newMirror(client mqtt.Client, stationID string, logger *slog.Logger) *Mirror {
	return &Mirror{
		client:    client,
		stationID: stationID,
		logger:    logger,
		now:       time.Now,
		queue:     make(chan outbound, queueSize),
	}
}

// Connect starts the sender, which runs until ctx is done, then waits for the
// initial connection while respecting ctx.
func (m *Mirror) Connect(ctx context.Context) error {
	m.startSender(ctx)

	if m.client.IsConnected() {
		return nil
	}

	token := m.client.Connect()

	const poll = 200 * time.Millisecond
	for {
		if token.WaitTimeout(poll) {
			if err := token.Error(); err != nil {
				return fmt.Errorf("mqtt connect: %w", err)
			}
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
}

// Disconnect closes the broker connection.
func (m *Mirror) Disconnect() {
	m.client.Disconnect(250)
	m.logger.Info("mqtt disconnected")
}

func (m *Mirror) ShowRecord(rec weather.Record) {
	temp, hum := rec.TemperatureC, rec.HumidityPct
	m.publish(m.topic("telemetry"), false, Telemetry{
		StationID:   m.stationID,
		Timestamp:   m.now(),
		ReadingTime: rec.Timestamp,
		Temperature: &temp,
		Humidity:    &hum,
	})
}

func (m *Mirror) ShowStatus(s weather.Status) {
	m.mu.Lock()
	if m.sentStatus && m.lastStatus == s {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	if m.publish(m.topic("health"), true, StationHealth{
		StationID: m.stationID,
		LastSeen:  m.now(),
		Healthy:   s == weather.StatusOk,
	}) {
		m.mu.Lock()
		m.lastStatus = s
		m.sentStatus = true
		m.mu.Unlock()
	}
}

func (m *Mirror) topic(kind string) string {
	return fmt.Sprintf("stations/%s/%s", m.stationID, kind)
}

// publish queues the payload for the sender and reports whether it was
// accepted.
func (m *Mirror) publish(topic string, retained bool, v any) bool {
	if !m.client.IsConnected() {
		m.logger.Debug("mqtt not connected; dropping publish", "topic", topic)
		return false
	}

	data, err := json.Marshal(v)
	if err != nil {
		m.logger.Error("marshal mqtt payload", "topic", topic, "error", err)
		return false
	}

	select {
	case m.queue <- outbound{topic: topic, retained: retained, payload: data}:
		return true
	default:
		m.logger.Warn("mqtt queue full; dropping publish", "topic", topic)
		return false
	}
}

func (m *Mirror) startSender(ctx context.Context) {
	m.senderOnce.Do(func() {
		go m.send(ctx)
	})
}

// send is the only goroutine that talks to the client's publish path.
func (m *Mirror) send(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-m.queue:
			token := m.client.Publish(msg.topic, 1, msg.retained, msg.payload)
			if !token.WaitTimeout(publishTimeout) {
				m.logger.Warn("mqtt publish timed out", "topic", msg.topic)
				continue
			}
			if err := token.Error(); err != nil {
				m.logger.Error("mqtt publish failed", "topic", msg.topic, "error", err)
			}
		}
	}
}
