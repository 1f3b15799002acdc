package app

import (
	"errors"
	"testing"

	"vendor-tracking/internal/tracking/domain"

	"github.com/stretchr/testify/assert"
)

var allStatuses = []domain.Status{
	domain.StatusPending, domain.StatusAccepted, domain.StatusEnRoute,
	domain.StatusArrived, domain.StatusCompleted,
}

func TestStateMachineOnlyForwardEdges(t *testing.T) {
	m := StateMachine{}
	allowed := map[[2]domain.Status]bool{
		{domain.StatusPending, domain.StatusAccepted}:  true,
		{domain.StatusAccepted, domain.StatusEnRoute}:  true,
		{domain.StatusEnRoute, domain.StatusArrived}:   true,
		{domain.StatusArrived, domain.StatusCompleted}: true,
	}

	for _, from := range allStatuses {
		for _, to := range allStatuses {
			changed, err := m.Check(from, to)
			switch {
			case from == to:
				assert.NoError(t, err, "%s -> %s", from, to)
				assert.False(t, changed)
			case allowed[[2]domain.Status{from, to}]:
				assert.NoError(t, err, "%s -> %s", from, to)
				assert.True(t, changed)
			default:
				assert.True(t, errors.Is(err, domain.ErrInvalidTransition), "%s -> %s", from, to)
				assert.False(t, changed)
			}
		}
	}
}

func TestStateMachineDirectEnRoute(t *testing.T) {
	strict := StateMachine{}
	_, err := strict.Check(domain.StatusPending, domain.StatusEnRoute)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	lenient := StateMachine{AllowDirectEnRoute: true}
	changed, err := lenient.Check(domain.StatusPending, domain.StatusEnRoute)
	assert.NoError(t, err)
	assert.True(t, changed)

	// the flag opens exactly one extra edge
	_, err = lenient.Check(domain.StatusPending, domain.StatusArrived)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}
