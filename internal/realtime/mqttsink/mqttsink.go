// Package mqttsink publishes trip positions to an MQTT broker.
package mqttsink

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/travel-bot/internal/models"
)

const publishTimeout = 5 * time.Second

// Publisher is the subset of mqtt.Client the sink needs.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// Sink publishes positions to travel/{paymentId}.
type Sink struct {
	client Publisher
	qos    byte
}

// New wraps an already connected publisher.
func New(client Publisher) *Sink {
	return &Sink{client: client}
}

// Connect connects to broker and returns the sink together with the client
// so the caller can disconnect it on shutdown.
func Connect(broker, clientID string) (*Sink, mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetConnectTimeout(10 * time.Second).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.WithError(err).Warn("MQTT connection lost")
		})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(15 * time.Second) {
		return nil, nil, fmt.Errorf("mqtt connect to %s timed out", broker)
	}
	if err := token.Error(); err != nil {
		return nil, nil, fmt.Errorf("mqtt connect to %s: %w", broker, err)
	}
	log.WithField("broker", broker).Info("Connected to MQTT broker")
	return New(client), client, nil
}

// EmitPosition publishes loc as {"latitude":..,"longitude":..}.
func (s *Sink) EmitPosition(paymentID string, loc models.Location) error {
	payload, err := json.Marshal(loc)
	if err != nil {
		return fmt.Errorf("failed to marshal position: %w", err)
	}
	topic := models.TravelEvent(paymentID)
	token := s.client.Publish(topic, s.qos, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("mqtt publish to %s timed out", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt publish to %s: %w", topic, err)
	}
	return nil
}
