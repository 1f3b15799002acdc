package app

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"vendor-tracking/internal/shared/config"
	"vendor-tracking/internal/shared/models"
	"vendor-tracking/internal/shared/util"
	"vendor-tracking/internal/tracking/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *recorder) Emit(evt domain.Event) {
	r.mu.Lock()
	r.events = append(r.events, evt)
	r.mu.Unlock()
}

func (r *recorder) snapshot() []domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Event(nil), r.events...)
}

func (r *recorder) statusChanges() []domain.StatusChanged {
	var out []domain.StatusChanged
	for _, e := range r.snapshot() {
		if sc, ok := e.(domain.StatusChanged); ok {
			out = append(out, sc)
		}
	}
	return out
}

func testConfig() models.TrackingConfig {
	cfg := &models.Config{}
	config.ApplyDefaults(cfg)
	return cfg.Tracking
}

func newTestTracker(t *testing.T) (*Tracker, *recorder) {
	t.Helper()
	rec := &recorder{}
	tr := NewTracker(testConfig(), rec, util.Discard())
	tr.Now = func() time.Time { return time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC) }
	return tr, rec
}

func createA1(t *testing.T, tr *Tracker) {
	t.Helper()
	_, err := tr.CreateAssignment(domain.Assignment{
		ID: "A1", BookingID: "B1", VendorID: "V1",
		Venue: domain.Location{Lat: 40.0, Lng: -74.0},
	})
	require.NoError(t, err)
}

func enRoute(t *testing.T, tr *Tracker) {
	t.Helper()
	_, err := tr.Transition("A1", domain.StatusAccepted)
	require.NoError(t, err)
	_, err = tr.Transition("A1", domain.StatusEnRoute)
	require.NoError(t, err)
}

func TestEndToEndScenario(t *testing.T) {
	tr, _ := newTestTracker(t)
	createA1(t, tr)

	res, err := tr.Transition("A1", domain.StatusAccepted)
	require.NoError(t, err)
	assert.True(t, res.Accepted)
	assert.Equal(t, domain.StatusAccepted, res.Current)

	_, err = tr.Transition("A1", domain.StatusEnRoute)
	require.NoError(t, err)

	t0 := time.Date(2026, 1, 1, 12, 5, 0, 0, time.UTC)
	ing, err := tr.Ingest(domain.LocationSample{AssignmentID: "A1", BookingID: "B1", VendorID: "V1", Lat: 40.01, Lng: -74.0, Speed: speed(5), Timestamp: t0})
	require.NoError(t, err)
	assert.True(t, ing.Accepted)

	eta, err := tr.Estimate("A1")
	require.NoError(t, err)
	require.NotNil(t, eta)
	assert.Greater(t, *eta, 0.0)

	_, err = tr.Ingest(domain.LocationSample{AssignmentID: "A1", Lat: 40.005, Lng: -74.0, Speed: speed(5), Timestamp: t0.Add(-time.Second)})
	assert.ErrorIs(t, err, domain.ErrStaleTimestamp)

	etaAfter, err := tr.Estimate("A1")
	require.NoError(t, err)
	assert.Equal(t, *eta, *etaAfter)

	_, err = tr.Transition("A1", domain.StatusArrived)
	require.NoError(t, err)

	_, err = tr.Ingest(domain.LocationSample{AssignmentID: "A1", Lat: 40.0, Lng: -74.0, Timestamp: t0.Add(time.Minute)})
	assert.ErrorIs(t, err, domain.ErrAssignmentNotTracking)

	_, err = tr.Transition("A1", domain.StatusCompleted)
	require.NoError(t, err)

	res, err = tr.Transition("A1", domain.StatusEnRoute)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.False(t, res.Accepted)
	assert.Equal(t, domain.StatusCompleted, res.Current)
}

func TestSelfTransitionEmitsNothing(t *testing.T) {
	tr, rec := newTestTracker(t)
	createA1(t, tr)
	_, err := tr.Transition("A1", domain.StatusAccepted)
	require.NoError(t, err)
	require.Len(t, rec.statusChanges(), 1)

	res, err := tr.Transition("A1", domain.StatusAccepted)
	require.NoError(t, err)
	assert.True(t, res.Accepted)
	assert.False(t, res.Changed)
	assert.Len(t, rec.statusChanges(), 1)
}

func TestRejectedTransitionLeavesStateAndEmitsNothing(t *testing.T) {
	tr, rec := newTestTracker(t)
	createA1(t, tr)

	_, err := tr.Transition("A1", domain.StatusEnRoute)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	snap, err := tr.Snapshot("A1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, snap.Assignment.Status)
	assert.Empty(t, rec.statusChanges())
}

func TestIngestRejectsOutsideEnRoute(t *testing.T) {
	tr, _ := newTestTracker(t)
	createA1(t, tr)
	ts := time.Now()

	for _, st := range []domain.Status{domain.StatusPending, domain.StatusAccepted} {
		if st != domain.StatusPending {
			_, err := tr.Transition("A1", st)
			require.NoError(t, err)
		}
		ts = ts.Add(time.Second)
		_, err := tr.Ingest(domain.LocationSample{AssignmentID: "A1", Lat: 40.01, Lng: -74, Timestamp: ts})
		assert.ErrorIs(t, err, domain.ErrAssignmentNotTracking, "status %s", st)
	}
}

func TestIngestValidation(t *testing.T) {
	tr, _ := newTestTracker(t)
	createA1(t, tr)
	enRoute(t, tr)
	ts := time.Now()

	cases := []struct {
		name   string
		sample domain.LocationSample
		want   error
	}{
		{"lat too big", domain.LocationSample{AssignmentID: "A1", Lat: 91, Lng: 0, Timestamp: ts}, domain.ErrOutOfRange},
		{"lng too small", domain.LocationSample{AssignmentID: "A1", Lat: 0, Lng: -181, Timestamp: ts}, domain.ErrOutOfRange},
		{"negative speed", domain.LocationSample{AssignmentID: "A1", Lat: 40, Lng: -74, Speed: speed(-1), Timestamp: ts}, domain.ErrOutOfRange},
		{"missing timestamp", domain.LocationSample{AssignmentID: "A1", Lat: 40, Lng: -74}, domain.ErrInvalidPayload},
		{"unknown assignment", domain.LocationSample{AssignmentID: "nope", Lat: 40, Lng: -74, Timestamp: ts}, domain.ErrAssignmentNotFound},
		{"wrong booking", domain.LocationSample{AssignmentID: "A1", BookingID: "B2", Lat: 40, Lng: -74, Timestamp: ts}, domain.ErrInvalidPayload},
		{"wrong vendor", domain.LocationSample{AssignmentID: "A1", VendorID: "V9", Lat: 40, Lng: -74, Timestamp: ts}, domain.ErrForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tr.Ingest(tc.sample)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	snap, err := tr.Snapshot("A1")
	require.NoError(t, err)
	assert.Nil(t, snap.LastLocation)
	assert.Nil(t, snap.ETASeconds)
}

func TestStaleSampleKeepsLastLocation(t *testing.T) {
	tr, _ := newTestTracker(t)
	createA1(t, tr)
	enRoute(t, tr)
	t0 := time.Now()

	_, err := tr.Ingest(domain.LocationSample{AssignmentID: "A1", Lat: 40.02, Lng: -74, Timestamp: t0})
	require.NoError(t, err)

	// equal and older timestamps are both stale
	for _, ts := range []time.Time{t0, t0.Add(-time.Millisecond)} {
		_, err := tr.Ingest(domain.LocationSample{AssignmentID: "A1", Lat: 40.01, Lng: -74, Timestamp: ts})
		assert.ErrorIs(t, err, domain.ErrStaleTimestamp)
	}

	snap, err := tr.Snapshot("A1")
	require.NoError(t, err)
	require.NotNil(t, snap.LastLocation)
	assert.Equal(t, 40.02, snap.LastLocation.Lat)
}

func TestWindowIsBounded(t *testing.T) {
	tr, _ := newTestTracker(t)
	createA1(t, tr)
	enRoute(t, tr)
	t0 := time.Now()

	for i := 0; i < 20; i++ {
		_, err := tr.Ingest(domain.LocationSample{AssignmentID: "A1", Lat: 40.05 - float64(i)*0.001, Lng: -74, Timestamp: t0.Add(time.Duration(i) * time.Second)})
		require.NoError(t, err)
	}

	e, err := tr.store.get("A1")
	require.NoError(t, err)
	e.mu.Lock()
	defer e.mu.Unlock()
	assert.Len(t, e.window, tr.windowSize)
	assert.Equal(t, e.last.Timestamp, e.window[len(e.window)-1].Timestamp)
}

func TestCreateAssignmentValidation(t *testing.T) {
	tr, rec := newTestTracker(t)
	createA1(t, tr)

	_, err := tr.CreateAssignment(domain.Assignment{ID: "A1", BookingID: "B1", VendorID: "V1"})
	assert.ErrorIs(t, err, domain.ErrAssignmentExists)

	_, err = tr.CreateAssignment(domain.Assignment{ID: "A2", BookingID: "B1"})
	assert.ErrorIs(t, err, domain.ErrInvalidPayload)

	_, err = tr.CreateAssignment(domain.Assignment{ID: "A3", BookingID: "B1", VendorID: "V1", Venue: domain.Location{Lat: 100}})
	assert.ErrorIs(t, err, domain.ErrOutOfRange)

	events := rec.snapshot()
	require.Len(t, events, 1)
	_, ok := events[0].(domain.AssignmentCreated)
	assert.True(t, ok)
}

func TestDirectEnRouteWhenEnabled(t *testing.T) {
	cfg := testConfig()
	cfg.AllowDirectEnRoute = true
	tr := NewTracker(cfg, nil, util.Discard())
	createA1(t, tr)

	res, err := tr.Transition("A1", domain.StatusEnRoute)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusEnRoute, res.Current)
}

func TestRestoreKeepsLastSample(t *testing.T) {
	tr, rec := newTestTracker(t)
	last := domain.LocationSample{AssignmentID: "A1", BookingID: "B1", VendorID: "V1", Lat: 40.01, Lng: -74, Speed: speed(5), Timestamp: time.Now()}
	err := tr.Restore(domain.Snapshot{
		Assignment:   domain.Assignment{ID: "A1", BookingID: "B1", VendorID: "V1", Status: domain.StatusEnRoute, Venue: venue},
		LastLocation: &last,
	})
	require.NoError(t, err)
	assert.Empty(t, rec.snapshot())

	eta, err := tr.Estimate("A1")
	require.NoError(t, err)
	assert.NotNil(t, eta)

	_, err = tr.Ingest(domain.LocationSample{AssignmentID: "A1", Lat: 40.005, Lng: -74, Timestamp: last.Timestamp})
	assert.ErrorIs(t, err, domain.ErrStaleTimestamp)
}

// A location racing an ARRIVED transition is either applied before it or rejected.
func TestConcurrentLocationAndArrivalStayConsistent(t *testing.T) {
	for round := 0; round < 50; round++ {
		tr, rec := newTestTracker(t)
		_, err := tr.CreateAssignment(domain.Assignment{ID: "A2", BookingID: "B1", VendorID: "V1", Venue: venue})
		require.NoError(t, err)
		_, err = tr.Transition("A2", domain.StatusAccepted)
		require.NoError(t, err)
		_, err = tr.Transition("A2", domain.StatusEnRoute)
		require.NoError(t, err)

		var wg sync.WaitGroup
		t0 := time.Now()
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, _ = tr.Ingest(domain.LocationSample{AssignmentID: "A2", Lat: 40.01, Lng: -74, Timestamp: t0.Add(time.Duration(i) * time.Millisecond)})
			}(i)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = tr.Transition("A2", domain.StatusArrived)
		}()
		wg.Wait()

		seenArrived := false
		for _, evt := range rec.snapshot() {
			if evt.AssignmentID() != "A2" {
				continue
			}
			switch e := evt.(type) {
			case domain.StatusChanged:
				if e.To == domain.StatusArrived {
					seenArrived = true
				}
			case domain.LocationChanged:
				assert.False(t, seenArrived, fmt.Sprintf("round %d: location after arrival", round))
			}
		}
		assert.True(t, seenArrived)
	}
}

func TestParallelAssignmentsAreIndependent(t *testing.T) {
	tr, _ := newTestTracker(t)
	const n = 20
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("A%d", i)
		_, err := tr.CreateAssignment(domain.Assignment{ID: id, BookingID: "B", VendorID: "V", Venue: venue})
		require.NoError(t, err)
		_, err = tr.Transition(id, domain.StatusAccepted)
		require.NoError(t, err)
		_, err = tr.Transition(id, domain.StatusEnRoute)
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	t0 := time.Now()
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			for k := 0; k < 50; k++ {
				_, err := tr.Ingest(domain.LocationSample{AssignmentID: id, Lat: 40.02, Lng: -74, Timestamp: t0.Add(time.Duration(k) * time.Second)})
				assert.NoError(t, err)
			}
		}(fmt.Sprintf("A%d", i))
	}
	wg.Wait()

	assert.Len(t, tr.BookingSnapshots("B"), n)
}
