package hub

import (
	"time"

	"vendor-tracking/internal/shared/apperrors"
	"vendor-tracking/internal/tracking/domain"
)

const (
	TypeLocation = "location"
	TypeStatus   = "status"
	TypeError    = "error"
	TypeAck      = "ack"
	TypeJoined   = "joined"
	TypeLeft     = "left"
)

// LocationMessage is pushed to every subscriber of the booking.
type LocationMessage struct {
	Type         string    `json:"type"`
	AssignmentID string    `json:"assignmentId"`
	BookingID    string    `json:"bookingId"`
	Lat          float64   `json:"lat"`
	Lng          float64   `json:"lng"`
	Speed        *float64  `json:"speed,omitempty"`
	Bearing      *float64  `json:"bearing,omitempty"`
	ETASeconds   *float64  `json:"etaSeconds"`
	Timestamp    time.Time `json:"timestamp"`
}

type StatusMessage struct {
	Type         string        `json:"type"`
	AssignmentID string        `json:"assignmentId"`
	BookingID    string        `json:"bookingId"`
	Status       domain.Status `json:"status"`
	Timestamp    time.Time     `json:"timestamp"`
}

// ErrorMessage goes to the originating connection only.
type ErrorMessage struct {
	Type    string `json:"type"`
	Ref     string `json:"ref,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// AckMessage confirms an accepted vendor request on the realtime channel.
type AckMessage struct {
	Type          string        `json:"type"`
	Ref           string        `json:"ref,omitempty"`
	Accepted      bool          `json:"accepted"`
	ETASeconds    *float64      `json:"etaSeconds,omitempty"`
	CurrentStatus domain.Status `json:"currentStatus,omitempty"`
}

type RoomMessage struct {
	Type      string            `json:"type"`
	BookingID string            `json:"bookingId"`
	Snapshots []domain.Snapshot `json:"snapshots,omitempty"`
}

func NewLocationMessage(evt domain.LocationChanged) LocationMessage {
	s := evt.Sample
	return LocationMessage{
		Type:         TypeLocation,
		AssignmentID: s.AssignmentID,
		BookingID:    evt.BookingID(),
		Lat:          s.Lat,
		Lng:          s.Lng,
		Speed:        s.Speed,
		Bearing:      s.Bearing,
		ETASeconds:   evt.Snapshot.ETASeconds,
		Timestamp:    s.Timestamp,
	}
}

func NewStatusMessage(evt domain.StatusChanged) StatusMessage {
	return StatusMessage{
		Type:         TypeStatus,
		AssignmentID: evt.AssignmentID(),
		BookingID:    evt.BookingID(),
		Status:       evt.To,
		Timestamp:    evt.At,
	}
}

func NewErrorMessage(ref string, err error) ErrorMessage {
	e := apperrors.FromError(err)
	return ErrorMessage{Type: TypeError, Ref: ref, Code: e.Code, Message: e.Message}
}
