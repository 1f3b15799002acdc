package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"vendor-tracking/internal/shared/models"

	"github.com/rabbitmq/amqp091-go"
)

const (
	// BookingExchange carries events owned by the booking subsystem.
	BookingExchange = "booking_topic"
	// TrackingExchange carries accepted tracking events from this service.
	TrackingExchange = "tracking_events"
)

func URL(cfg *models.RabbitMQConfig) string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s/", cfg.User, cfg.Password, cfg.Host, cfg.Port)
}

// ConnectToRMQ dials with retries, 3s apart, up to attempts times.
func ConnectToRMQ(ctx context.Context, cfg *models.RabbitMQConfig, attempts int) (*amqp091.Connection, *amqp091.Channel, error) {
	dsn := URL(cfg)

	var err error
	for i := 0; i < attempts; i++ {
		var conn *amqp091.Connection
		conn, err = amqp091.Dial(dsn)
		if err == nil {
			var ch *amqp091.Channel
			ch, err = conn.Channel()
			if err == nil {
				return conn, ch, nil
			}
			_ = conn.Close()
		}
		log.Printf("RabbitMQ not ready, retrying... (%d/%d)", i+1, attempts)

		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		case <-time.After(3 * time.Second):
		}
	}

	return nil, nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
}

// DeclareTopology declares both topic exchanges used by the service.
func DeclareTopology(ch *amqp091.Channel) error {
	for _, name := range []string{BookingExchange, TrackingExchange} {
		if err := ch.ExchangeDeclare(name, "topic", true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare exchange %s: %w", name, err)
		}
	}
	return nil
}

// Publisher serializes publishes on one channel; amqp channels are not
// safe for concurrent use.
type Publisher struct {
	ch *amqp091.Channel
	mu sync.Mutex
}

func NewPublisher(ch *amqp091.Channel) *Publisher {
	return &Publisher{ch: ch}
}

func (p *Publisher) Publish(ctx context.Context, exchange, routingKey string, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	err := p.ch.PublishWithContext(ctx,
		exchange,   // exchange
		routingKey, // routing key
		false,      // mandatory
		false,      // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
		})
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

func (p *Publisher) PublishJSON(ctx context.Context, exchange, routingKey string, data interface{}) error {
	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	return p.Publish(ctx, exchange, routingKey, body)
}
