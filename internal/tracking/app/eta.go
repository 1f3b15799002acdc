package app

import (
	"math"

	"vendor-tracking/internal/shared/util"
	"vendor-tracking/internal/tracking/domain"
)

// Estimator derives a straight-line ETA from the recent sample window.
//
// Speed preference: the newest sample's reported speed when positive, then
// displacement over time between the two newest samples, then DefaultSpeed.
// A speed below MinSpeed, or an ETA beyond MaxETA, yields MaxETA.
type Estimator struct {
	DefaultSpeed  float64 // m/s
	MinSpeed      float64 // m/s
	ArrivedRadius float64 // meters
	MaxETA        float64 // seconds
}

// Estimate returns the ETA in seconds, or false when there is no sample yet
// or the vendor is already within ArrivedRadius of the venue.
func (e Estimator) Estimate(venue domain.Location, window []domain.LocationSample) (float64, bool) {
	if len(window) == 0 {
		return 0, false
	}
	last := window[len(window)-1]

	distance := util.HaversineMeters(last.Lat, last.Lng, venue.Lat, venue.Lng)
	if distance <= e.ArrivedRadius {
		return 0, false
	}

	speed := e.speed(window)
	if speed < e.MinSpeed {
		return e.MaxETA, true
	}

	eta := distance / speed
	if math.IsNaN(eta) || eta > e.MaxETA {
		eta = e.MaxETA
	}
	return math.Max(eta, 0), true
}

func (e Estimator) speed(window []domain.LocationSample) float64 {
	last := window[len(window)-1]
	if last.Speed != nil && *last.Speed > 0 {
		return *last.Speed
	}

	if len(window) >= 2 {
		prev := window[len(window)-2]
		elapsed := last.Timestamp.Sub(prev.Timestamp).Seconds()
		if elapsed > 0 {
			return util.HaversineMeters(prev.Lat, prev.Lng, last.Lat, last.Lng) / elapsed
		}
	}

	return e.DefaultSpeed
}
