package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vendor-tracking/internal/shared/util"
	vendorsdk "vendor-tracking/sdk/vendor"
)

// point moves from (lat, lng) toward the venue along a straight line.
type point struct {
	lat, lng float64
}

func (p point) toward(target point, meters float64) point {
	d := util.HaversineMeters(p.lat, p.lng, target.lat, target.lng)
	if d <= meters || d == 0 {
		return target
	}
	f := meters / d
	return point{lat: p.lat + (target.lat-p.lat)*f, lng: p.lng + (target.lng-p.lng)*f}
}

func (p point) bearingTo(target point) float64 {
	lat1, lat2 := p.lat*math.Pi/180, target.lat*math.Pi/180
	dLng := (target.lng - p.lng) * math.Pi / 180
	y := math.Sin(dLng) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLng)
	return math.Mod(math.Atan2(y, x)*180/math.Pi+360, 360)
}

func main() {
	baseURL := flag.String("url", "http://localhost:3010", "tracking-service base URL")
	token := flag.String("token", os.Getenv("VENDOR_TOKEN"), "vendor bearer token")
	assignmentID := flag.String("assignment", "", "assignment id to drive")
	bookingID := flag.String("booking", "", "booking id sent with each report")
	vendorID := flag.String("vendor", "", "vendor id sent with each report")
	fromLat := flag.Float64("from-lat", 52.500, "start latitude")
	fromLng := flag.Float64("from-lng", 13.380, "start longitude")
	toLat := flag.Float64("to-lat", 52.520, "venue latitude")
	toLng := flag.Float64("to-lng", 13.405, "venue longitude")
	speed := flag.Float64("speed", 11.0, "travel speed in m/s")
	interval := flag.Duration("interval", 2*time.Second, "report interval")
	flag.Parse()

	log := util.New()
	if *assignmentID == "" {
		log.Fatal("VendorSim", "-assignment is required", nil)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := vendorsdk.New(*baseURL, *token)
	defer client.Close()
	connect := func() {
		if err := client.Connect(ctx); err != nil {
			log.Warn("VendorSim", fmt.Sprintf("realtime channel down, reporting over REST: %v", err))
			return
		}
		log.OK("VendorSim", "realtime channel connected")
	}
	connect()

	changeStatus := func(status string) bool {
		res, err := client.ChangeStatus(ctx, *assignmentID, status)
		if err != nil {
			log.Error("VendorSim", "status "+status, err)
			return false
		}
		if !res.Accepted {
			log.Warn("VendorSim", fmt.Sprintf("status %s rejected: %s (%s)", status, res.Code, res.Reason))
			return false
		}
		log.OK("VendorSim", "status -> "+res.CurrentStatus)
		return true
	}

	for _, st := range []string{"ACCEPTED", "EN_ROUTE"} {
		changeStatus(st)
	}

	pos := point{lat: *fromLat, lng: *fromLng}
	venue := point{lat: *toLat, lng: *toLng}
	step := *speed * interval.Seconds()

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("VendorSim", "stopped")
			return
		case <-ticker.C:
		}

		if !client.Connected() {
			connect()
		}

		bearing := pos.bearingTo(venue)
		pos = pos.toward(venue, step)
		res, err := client.ReportLocation(ctx, vendorsdk.Location{
			AssignmentID: *assignmentID,
			BookingID:    *bookingID,
			VendorID:     *vendorID,
			Lat:          pos.lat,
			Lng:          pos.lng,
			Speed:        speed,
			Bearing:      &bearing,
			Timestamp:    time.Now().UTC(),
		})
		switch {
		case err != nil && vendorsdk.IsRetryable(err):
			log.Warn("VendorSim", fmt.Sprintf("report failed, retrying next tick: %v", err))
			continue
		case err != nil:
			log.Fatal("VendorSim", "report failed", err)
		case !res.Accepted:
			log.Warn("VendorSim", fmt.Sprintf("report rejected: %s (%s)", res.Code, res.Reason))
		case res.ETASeconds != nil:
			log.Info("VendorSim", fmt.Sprintf("at %.5f,%.5f eta %.0fs", pos.lat, pos.lng, *res.ETASeconds))
		default:
			log.Info("VendorSim", fmt.Sprintf("at %.5f,%.5f", pos.lat, pos.lng))
		}

		if pos == venue {
			changeStatus("ARRIVED")
			return
		}
	}
}
