package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"vendor-tracking/internal/shared/mq"
	"vendor-tracking/internal/shared/util"
	"vendor-tracking/internal/tracking/domain"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	AssignmentQueue      = "tracking_assignments"
	AssignmentRoutingKey = "booking.assignment.created"
)

type AssignmentCreator interface {
	CreateAssignment(a domain.Assignment) (domain.Assignment, error)
}

// AssignmentCreated is the booking subsystem's event payload.
type AssignmentCreated struct {
	AssignmentID  string `json:"assignment_id"`
	BookingID     string `json:"booking_id"`
	VendorID      string `json:"vendor_id"`
	VenueLocation struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	} `json:"venue_location"`
}

type AssignmentConsumer struct {
	tracker AssignmentCreator
	channel *amqp.Channel
	queue   string
	logger  *util.Logger
}

func NewAssignmentConsumer(tracker AssignmentCreator, ch *amqp.Channel, logger *util.Logger) *AssignmentConsumer {
	return &AssignmentConsumer{
		tracker: tracker,
		channel: ch,
		queue:   AssignmentQueue,
		logger:  logger,
	}
}

// Setup declares the durable queue and binds it to the booking exchange.
func Setup(ch *amqp.Channel) error {
	if _, err := ch.QueueDeclare(AssignmentQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", AssignmentQueue, err)
	}
	if err := ch.QueueBind(AssignmentQueue, AssignmentRoutingKey, mq.BookingExchange, false, nil); err != nil {
		return fmt.Errorf("bind queue %s: %w", AssignmentQueue, err)
	}
	return nil
}

func (c *AssignmentConsumer) Start(ctx context.Context) error {
	msgs, err := c.channel.Consume(
		c.queue,
		"",
		false, // manual acknowledgment
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return err
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					c.logger.Warn("AssignmentConsumer", "delivery channel closed")
					return
				}
				c.handleDelivery(msg)
			}
		}
	}()
	c.logger.OK("AssignmentConsumer", c.queue+" consumer started")
	return nil
}

func (c *AssignmentConsumer) handleDelivery(msg amqp.Delivery) {
	instance := "AssignmentConsumer"

	var payload AssignmentCreated
	if err := json.Unmarshal(msg.Body, &payload); err != nil {
		c.logger.Error(instance, "invalid JSON", err)
		// Don't requeue malformed messages
		_ = msg.Nack(false, false)
		return
	}

	_, err := c.tracker.CreateAssignment(domain.Assignment{
		ID:        payload.AssignmentID,
		BookingID: payload.BookingID,
		VendorID:  payload.VendorID,
		Venue:     domain.Location{Lat: payload.VenueLocation.Lat, Lng: payload.VenueLocation.Lng},
	})
	switch {
	case err == nil:
		c.logger.Info(instance, fmt.Sprintf("assignment %s created for booking %s", payload.AssignmentID, payload.BookingID))
	case errors.Is(err, domain.ErrAssignmentExists):
		c.logger.Info(instance, "duplicate assignment "+payload.AssignmentID)
	case errors.Is(err, domain.ErrInvalidPayload), errors.Is(err, domain.ErrOutOfRange):
		c.logger.Error(instance, "rejected assignment "+payload.AssignmentID, err)
		_ = msg.Nack(false, false)
		return
	default:
		c.logger.Error(instance, "create assignment "+payload.AssignmentID, err)
		_ = msg.Nack(false, true)
		return
	}

	_ = msg.Ack(false)
}
