package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversineMeters(t *testing.T) {
	assert.Equal(t, 0.0, HaversineMeters(40, -74, 40, -74))

	// 0.01 degree of latitude is roughly 1.11 km anywhere on earth.
	d := HaversineMeters(40.01, -74.0, 40.0, -74.0)
	assert.InDelta(t, 1111.95, d, 1.0)

	// symmetric
	assert.InDelta(t, d, HaversineMeters(40.0, -74.0, 40.01, -74.0), 1e-9)
}
