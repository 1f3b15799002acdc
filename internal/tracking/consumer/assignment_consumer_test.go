package consumer

import (
	"errors"
	"fmt"
	"testing"

	"vendor-tracking/internal/shared/util"
	"vendor-tracking/internal/tracking/domain"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ackRecorder struct {
	acked    int
	nacked   int
	requeued bool
}

func (a *ackRecorder) Ack(uint64, bool) error { a.acked++; return nil }
func (a *ackRecorder) Nack(_ uint64, _ bool, requeue bool) error {
	a.nacked++
	a.requeued = requeue
	return nil
}
func (a *ackRecorder) Reject(_ uint64, requeue bool) error { return a.Nack(0, false, requeue) }

type fakeCreator struct {
	created []domain.Assignment
	err     error
}

func (f *fakeCreator) CreateAssignment(a domain.Assignment) (domain.Assignment, error) {
	if f.err != nil {
		return domain.Assignment{}, f.err
	}
	f.created = append(f.created, a)
	return a, nil
}

func delivery(body string) (amqp.Delivery, *ackRecorder) {
	rec := &ackRecorder{}
	return amqp.Delivery{Acknowledger: rec, Body: []byte(body)}, rec
}

const validBody = `{"assignment_id":"a-1","booking_id":"b-1","vendor_id":"v-1","venue_location":{"lat":52.52,"lng":13.405}}`

func TestHandleDeliveryCreatesAndAcks(t *testing.T) {
	creator := &fakeCreator{}
	c := NewAssignmentConsumer(creator, nil, util.Discard())

	msg, rec := delivery(validBody)
	c.handleDelivery(msg)

	require.Len(t, creator.created, 1)
	assert.Equal(t, "a-1", creator.created[0].ID)
	assert.Equal(t, "b-1", creator.created[0].BookingID)
	assert.Equal(t, 13.405, creator.created[0].Venue.Lng)
	assert.Equal(t, 1, rec.acked)
	assert.Zero(t, rec.nacked)
}

func TestHandleDeliveryResults(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		err         error
		wantAck     bool
		wantRequeue bool
	}{
		{name: "malformed", body: `{not json`},
		{name: "duplicate", body: validBody, err: fmt.Errorf("a-1: %w", domain.ErrAssignmentExists), wantAck: true},
		{name: "invalid", body: validBody, err: fmt.Errorf("bookingId: %w", domain.ErrInvalidPayload)},
		{name: "venue out of range", body: validBody, err: fmt.Errorf("venue: %w", domain.ErrOutOfRange)},
		{name: "transient", body: validBody, err: errors.New("boom"), wantRequeue: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewAssignmentConsumer(&fakeCreator{err: tt.err}, nil, util.Discard())
			msg, rec := delivery(tt.body)
			c.handleDelivery(msg)

			if tt.wantAck {
				assert.Equal(t, 1, rec.acked)
				assert.Zero(t, rec.nacked)
				return
			}
			assert.Zero(t, rec.acked)
			assert.Equal(t, 1, rec.nacked)
			assert.Equal(t, tt.wantRequeue, rec.requeued)
		})
	}
}
