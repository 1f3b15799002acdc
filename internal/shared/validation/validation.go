package validation

import (
	"errors"
	"fmt"
	"math"
)

// ValidateCoordinates validates latitude and longitude values
func ValidateCoordinates(lat, lng float64) error {
	if math.IsNaN(lat) || math.IsInf(lat, 0) || math.IsNaN(lng) || math.IsInf(lng, 0) {
		return errors.New("coordinates must be finite numbers")
	}
	if lat < -90 || lat > 90 {
		return errors.New("latitude must be between -90 and 90")
	}
	if lng < -180 || lng > 180 {
		return errors.New("longitude must be between -180 and 180")
	}
	return nil
}

// ValidateSpeed validates speed in meters per second
func ValidateSpeed(speed float64) error {
	if math.IsNaN(speed) || math.IsInf(speed, 0) {
		return errors.New("speed must be a finite number")
	}
	if speed < 0 {
		return errors.New("speed must be non-negative")
	}
	return nil
}

// ValidateBearing validates a compass bearing in degrees
func ValidateBearing(bearing float64) error {
	if math.IsNaN(bearing) || bearing < 0 || bearing >= 360 {
		return errors.New("bearing must be in [0, 360) degrees")
	}
	return nil
}

// ValidateStringNotEmpty validates that a string is not empty
func ValidateStringNotEmpty(value, fieldName string) error {
	if value == "" {
		return fmt.Errorf("%s cannot be empty", fieldName)
	}
	return nil
}
