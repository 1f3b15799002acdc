package app

import (
	"fmt"

	"vendor-tracking/internal/tracking/domain"
)

// forward lists the single allowed successor of each status.
var forward = map[domain.Status]domain.Status{
	domain.StatusPending:  domain.StatusAccepted,
	domain.StatusAccepted: domain.StatusEnRoute,
	domain.StatusEnRoute:  domain.StatusArrived,
	domain.StatusArrived:  domain.StatusCompleted,
}

// StateMachine validates assignment status transitions.
type StateMachine struct {
	// AllowDirectEnRoute permits PENDING -> EN_ROUTE for flows without an accept step.
	AllowDirectEnRoute bool
}

// Check reports whether from -> to is allowed. A self transition is allowed
// and reported as unchanged.
func (m StateMachine) Check(from, to domain.Status) (changed bool, err error) {
	if from == to {
		return false, nil
	}
	if next, ok := forward[from]; ok && next == to {
		return true, nil
	}
	if m.AllowDirectEnRoute && from == domain.StatusPending && to == domain.StatusEnRoute {
		return true, nil
	}
	return false, fmt.Errorf("%s -> %s: %w", from, to, domain.ErrInvalidTransition)
}

// Tracking reports whether location samples are accepted in status s.
func Tracking(s domain.Status) bool {
	return s == domain.StatusEnRoute
}
