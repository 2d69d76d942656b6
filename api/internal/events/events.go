package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"rock-id/api/internal/config"
)

// Event: итог одной попытки распознавания для внешних подписчиков.
type Event struct {
	ID                   string    `json:"id"`
	At                   time.Time `json:"at"`
	Engine               string    `json:"engine"`
	Model                string    `json:"model"`
	ImageHash            string    `json:"imageHash"`
	Success              bool      `json:"success"`
	ClosestMatch         string    `json:"closestMatch,omitempty"`
	SimilarityPercentage float64   `json:"similarityPercentage,omitempty"`
	Error                string    `json:"error,omitempty"`
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close()
}

// Nop is used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close()                               {}

type MQTTPublisher struct {
	client mqtt.Client
	topic  string
	log    *zap.Logger
}

// NewMQTTPublisher подключается к брокеру. Пустой broker даёт Nop.
func NewMQTTPublisher(cfg config.MQTTConfig, log *zap.Logger) (Publisher, error) {
	if cfg.Broker == "" {
		return Nop{}, nil
	}
	if log == nil {
		log = zap.NewNop()
	}
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "rock-id"
	}
	clientID += "-" + uuid.New().String()[:8]

	opts := mqtt.NewClientOptions().AddBroker(cfg.Broker).SetClientID(clientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(5 * time.Second)
	opts.SetConnectTimeout(30 * time.Second)
	opts.SetAutoReconnect(true)
	opts.OnConnect = func(mqtt.Client) {
		log.Info("connected to MQTT", zap.String("broker", cfg.Broker))
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Warn("MQTT connection lost", zap.Error(err))
	}

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", cfg.Broker, token.Error())
	}
	return NewPublisherWithClient(client, cfg.Topic, log), nil
}

func NewPublisherWithClient(client mqtt.Client, topic string, log *zap.Logger) *MQTTPublisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &MQTTPublisher{client: client, topic: topic, log: log}
}

func (p *MQTTPublisher) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	token := p.client.Publish(p.topic, 1, false, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt publish %s: %w", p.topic, err)
	}
	p.log.Debug("event published", zap.String("topic", p.topic), zap.String("id", ev.ID))
	return nil
}

func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
}
