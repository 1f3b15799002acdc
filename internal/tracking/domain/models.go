package domain

import (
	"fmt"
	"strings"
	"time"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusAccepted  Status = "ACCEPTED"
	StatusEnRoute   Status = "EN_ROUTE"
	StatusArrived   Status = "ARRIVED"
	StatusCompleted Status = "COMPLETED"
)

// ParseStatus normalizes and validates a status name.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	switch st {
	case StatusPending, StatusAccepted, StatusEnRoute, StatusArrived, StatusCompleted:
		return st, nil
	}
	return "", fmt.Errorf("unknown status %q: %w", s, ErrInvalidPayload)
}

type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Assignment is one vendor's delivery obligation for one booking.
type Assignment struct {
	ID        string    `json:"assignmentId"`
	BookingID string    `json:"bookingId"`
	VendorID  string    `json:"vendorId"`
	Status    Status    `json:"status"`
	Venue     Location  `json:"venueLocation"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// LocationSample is one raw position report from a vendor device.
// Speed is meters/second and Bearing degrees; both optional.
type LocationSample struct {
	AssignmentID string    `json:"assignmentId"`
	BookingID    string    `json:"bookingId"`
	VendorID     string    `json:"vendorId"`
	Lat          float64   `json:"lat"`
	Lng          float64   `json:"lng"`
	Speed        *float64  `json:"speed,omitempty"`
	Bearing      *float64  `json:"bearing,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

func (s LocationSample) Location() Location {
	return Location{Lat: s.Lat, Lng: s.Lng}
}

// Snapshot is the consistent state of one assignment at a point in time.
type Snapshot struct {
	Assignment   Assignment      `json:"assignment"`
	LastLocation *LocationSample `json:"lastLocation"`
	ETASeconds   *float64        `json:"etaSeconds"`
}

// Event is the closed set of changes the tracker emits.
type Event interface {
	BookingID() string
	AssignmentID() string
	isEvent()
}

type AssignmentCreated struct {
	Snapshot Snapshot
}

type StatusChanged struct {
	Snapshot Snapshot
	From     Status
	To       Status
	At       time.Time
}

type LocationChanged struct {
	Snapshot Snapshot
	Sample   LocationSample
}

func (e AssignmentCreated) BookingID() string    { return e.Snapshot.Assignment.BookingID }
func (e AssignmentCreated) AssignmentID() string { return e.Snapshot.Assignment.ID }
func (AssignmentCreated) isEvent()               {}

func (e StatusChanged) BookingID() string    { return e.Snapshot.Assignment.BookingID }
func (e StatusChanged) AssignmentID() string { return e.Snapshot.Assignment.ID }
func (StatusChanged) isEvent()               {}

func (e LocationChanged) BookingID() string    { return e.Snapshot.Assignment.BookingID }
func (e LocationChanged) AssignmentID() string { return e.Snapshot.Assignment.ID }
func (LocationChanged) isEvent()               {}
