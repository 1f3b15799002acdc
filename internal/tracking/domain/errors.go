package domain

import (
	"net/http"

	"vendor-tracking/internal/shared/apperrors"
)

var (
	ErrInvalidTransition     = apperrors.New("InvalidTransition", http.StatusConflict, "invalid status transition")
	ErrOutOfRange            = apperrors.New("OutOfRange", http.StatusUnprocessableEntity, "coordinates out of range")
	ErrStaleTimestamp        = apperrors.New("StaleTimestamp", http.StatusConflict, "sample is not newer than the last accepted one")
	ErrAssignmentNotTracking = apperrors.New("AssignmentNotTracking", http.StatusConflict, "assignment is not en route")
	ErrChannelUnavailable    = apperrors.New("ChannelUnavailable", http.StatusServiceUnavailable, "realtime channel unavailable")
	ErrDeliveryFailure       = apperrors.New("DeliveryFailure", http.StatusInternalServerError, "delivery to subscriber failed")

	ErrAssignmentNotFound = apperrors.New("AssignmentNotFound", http.StatusNotFound, "assignment not found")
	ErrAssignmentExists   = apperrors.New("AssignmentExists", http.StatusConflict, "assignment already exists")
	ErrInvalidPayload     = apperrors.New("InvalidPayload", http.StatusBadRequest, "invalid payload")
	ErrForbidden          = apperrors.New("Forbidden", http.StatusForbidden, "forbidden action")
)

// IsRejection reports whether err is a per-request validation rejection
// rather than an infrastructure failure.
func IsRejection(err error) bool {
	switch apperrors.Code(err) {
	case ErrInvalidTransition.Code, ErrOutOfRange.Code, ErrStaleTimestamp.Code,
		ErrAssignmentNotTracking.Code, ErrAssignmentNotFound.Code, ErrInvalidPayload.Code,
		ErrForbidden.Code:
		return true
	}
	return false
}
