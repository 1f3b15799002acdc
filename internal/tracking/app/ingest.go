package app

import (
	"fmt"

	"vendor-tracking/internal/shared/validation"
	"vendor-tracking/internal/tracking/domain"
)

// validateSample checks the shape of a raw report before any state is consulted.
func validateSample(s domain.LocationSample) error {
	if err := validation.ValidateStringNotEmpty(s.AssignmentID, "assignmentId"); err != nil {
		return fmt.Errorf("%v: %w", err, domain.ErrInvalidPayload)
	}
	if s.Timestamp.IsZero() {
		return fmt.Errorf("timestamp is required: %w", domain.ErrInvalidPayload)
	}
	if err := validation.ValidateCoordinates(s.Lat, s.Lng); err != nil {
		return fmt.Errorf("%v: %w", err, domain.ErrOutOfRange)
	}
	if s.Speed != nil {
		if err := validation.ValidateSpeed(*s.Speed); err != nil {
			return fmt.Errorf("%v: %w", err, domain.ErrOutOfRange)
		}
	}
	if s.Bearing != nil {
		if err := validation.ValidateBearing(*s.Bearing); err != nil {
			return fmt.Errorf("%v: %w", err, domain.ErrOutOfRange)
		}
	}
	return nil
}

// admitSample checks a shaped sample against the assignment it targets.
// The caller holds the entry lock.
func admitSample(e *entry, s domain.LocationSample) error {
	a := e.assignment
	if s.BookingID != "" && s.BookingID != a.BookingID {
		return fmt.Errorf("booking %s does not own assignment %s: %w", s.BookingID, a.ID, domain.ErrInvalidPayload)
	}
	if s.VendorID != "" && s.VendorID != a.VendorID {
		return fmt.Errorf("vendor %s is not assigned to %s: %w", s.VendorID, a.ID, domain.ErrForbidden)
	}
	if !Tracking(a.Status) {
		return fmt.Errorf("assignment %s is %s: %w", a.ID, a.Status, domain.ErrAssignmentNotTracking)
	}
	if e.last != nil && !s.Timestamp.After(e.last.Timestamp) {
		return fmt.Errorf("sample at %s, last accepted at %s: %w",
			s.Timestamp.Format("15:04:05.000"), e.last.Timestamp.Format("15:04:05.000"), domain.ErrStaleTimestamp)
	}
	return nil
}
