package api

import (
	"fmt"
	"time"

	"vendor-tracking/internal/tracking/domain"
)

const (
	TypeAuth         = "auth"
	TypeAuthSuccess  = "auth_success"
	TypeJoin         = "join"
	TypeLeave        = "leave"
	TypeLocationRpt  = "location_report"
	TypeStatusChange = "status_change"
)

// LocationReport is the wire form of one vendor position report.
type LocationReport struct {
	AssignmentID string    `json:"assignmentId"`
	BookingID    string    `json:"bookingId,omitempty"`
	VendorID     string    `json:"vendorId,omitempty"`
	Lat          *float64  `json:"lat"`
	Lng          *float64  `json:"lng"`
	Speed        *float64  `json:"speed,omitempty"`
	Bearing      *float64  `json:"bearing,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

func (r LocationReport) Sample() (domain.LocationSample, error) {
	if r.Lat == nil || r.Lng == nil {
		return domain.LocationSample{}, fmt.Errorf("lat and lng are required: %w", domain.ErrInvalidPayload)
	}
	return domain.LocationSample{
		AssignmentID: r.AssignmentID,
		BookingID:    r.BookingID,
		VendorID:     r.VendorID,
		Lat:          *r.Lat,
		Lng:          *r.Lng,
		Speed:        r.Speed,
		Bearing:      r.Bearing,
		Timestamp:    r.Timestamp,
	}, nil
}

// ClientMessage is every message a realtime client may send.
type ClientMessage struct {
	Type   string `json:"type"`
	Ref    string `json:"ref,omitempty"`
	Token  string `json:"token,omitempty"`
	Status string `json:"status,omitempty"`
	LocationReport
}

type AuthResponse struct {
	Type    string `json:"type"`
	Subject string `json:"subject,omitempty"`
	Role    string `json:"role,omitempty"`
}

type CreateAssignmentRequest struct {
	AssignmentID  string          `json:"assignmentId"`
	BookingID     string          `json:"bookingId"`
	VendorID      string          `json:"vendorId"`
	VenueLocation domain.Location `json:"venueLocation"`
}

type StatusRequest struct {
	Status string `json:"status"`
}

type ETAResponse struct {
	AssignmentID string   `json:"assignmentId"`
	ETASeconds   *float64 `json:"etaSeconds"`
}

type BookingSnapshotResponse struct {
	BookingID string            `json:"bookingId"`
	Snapshots []domain.Snapshot `json:"snapshots"`
}

// Rejection is the REST form of a refused vendor request.
type Rejection struct {
	Accepted      bool          `json:"accepted"`
	Reason        string        `json:"reason"`
	Code          string        `json:"code"`
	CurrentStatus domain.Status `json:"currentStatus,omitempty"`
}
