package app

import (
	"fmt"
	"sort"
	"time"

	"vendor-tracking/internal/shared/models"
	"vendor-tracking/internal/shared/util"
	"vendor-tracking/internal/shared/validation"
	"vendor-tracking/internal/tracking/domain"
)

type TransitionResult struct {
	Accepted bool          `json:"accepted"`
	Current  domain.Status `json:"currentStatus"`
	Changed  bool          `json:"-"`
}

type IngestResult struct {
	Accepted   bool     `json:"accepted"`
	ETASeconds *float64 `json:"etaSeconds,omitempty"`
}

// Tracker owns per-assignment state: status, last location, the recent
// sample window and the current ETA. Every mutation of one assignment is
// applied and emitted under that assignment's lock, so emitters observe
// changes in acceptance order.
type Tracker struct {
	store      *store
	machine    StateMachine
	estimator  Estimator
	windowSize int
	emit       domain.Emitter
	logger     *util.Logger

	// Now is the clock used for creation and transition times.
	Now func() time.Time
}

func NewTracker(cfg models.TrackingConfig, emit domain.Emitter, logger *util.Logger) *Tracker {
	if emit == nil {
		emit = NopEmitter{}
	}
	return &Tracker{
		store:   newStore(),
		machine: StateMachine{AllowDirectEnRoute: cfg.AllowDirectEnRoute},
		estimator: Estimator{
			DefaultSpeed:  cfg.DefaultSpeedMps,
			MinSpeed:      cfg.MinSpeedMps,
			ArrivedRadius: cfg.ArrivedRadiusM,
			MaxETA:        cfg.MaxETASeconds,
		},
		windowSize: cfg.WindowSize,
		emit:       emit,
		logger:     logger,
		Now:        time.Now,
	}
}

// CreateAssignment registers a new assignment in PENDING.
func (t *Tracker) CreateAssignment(a domain.Assignment) (domain.Assignment, error) {
	instance := "Tracker.Create"

	for field, v := range map[string]string{"assignmentId": a.ID, "bookingId": a.BookingID, "vendorId": a.VendorID} {
		if err := validation.ValidateStringNotEmpty(v, field); err != nil {
			return domain.Assignment{}, fmt.Errorf("%v: %w", err, domain.ErrInvalidPayload)
		}
	}
	if err := validation.ValidateCoordinates(a.Venue.Lat, a.Venue.Lng); err != nil {
		return domain.Assignment{}, fmt.Errorf("venue: %v: %w", err, domain.ErrOutOfRange)
	}

	now := t.Now().UTC()
	a.Status = domain.StatusPending
	a.CreatedAt = now
	a.UpdatedAt = now

	e := &entry{id: a.ID, bookingID: a.BookingID, assignment: a}
	if err := t.store.add(e); err != nil {
		return domain.Assignment{}, err
	}
	defer e.mu.Unlock()

	t.emit.Emit(domain.AssignmentCreated{Snapshot: e.snapshot()})
	t.logger.Info(instance, fmt.Sprintf("assignment %s created [booking=%s, vendor=%s]", a.ID, a.BookingID, a.VendorID))
	return a, nil
}

// Restore re-inserts a persisted assignment without emitting anything.
func (t *Tracker) Restore(snap domain.Snapshot) error {
	e := &entry{id: snap.Assignment.ID, bookingID: snap.Assignment.BookingID, assignment: snap.Assignment}
	if err := t.store.add(e); err != nil {
		return err
	}
	defer e.mu.Unlock()

	if snap.LastLocation != nil {
		e.push(*snap.LastLocation, t.windowSize)
		t.refreshETA(e)
	}
	return nil
}

// Transition moves an assignment to the requested status. Self transitions
// succeed without emitting.
func (t *Tracker) Transition(assignmentID string, to domain.Status) (TransitionResult, error) {
	instance := "Tracker.Transition"

	e, err := t.store.get(assignmentID)
	if err != nil {
		return TransitionResult{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	from := e.assignment.Status
	changed, err := t.machine.Check(from, to)
	if err != nil {
		t.logger.Info(instance, fmt.Sprintf("rejected for %s: %v", assignmentID, err))
		return TransitionResult{Current: from}, err
	}
	if !changed {
		return TransitionResult{Accepted: true, Current: from}, nil
	}

	at := t.Now().UTC()
	e.assignment.Status = to
	e.assignment.UpdatedAt = at
	if to == domain.StatusArrived || to == domain.StatusCompleted {
		// no ETA once the vendor is at the venue
		e.eta = nil
	}
	if to == domain.StatusCompleted {
		e.window = nil
	}

	t.emit.Emit(domain.StatusChanged{Snapshot: e.snapshot(), From: from, To: to, At: at})
	t.logger.Info(instance, fmt.Sprintf("assignment %s %s -> %s", assignmentID, from, to))
	return TransitionResult{Accepted: true, Current: to, Changed: true}, nil
}

// Ingest validates and applies one location sample.
func (t *Tracker) Ingest(sample domain.LocationSample) (IngestResult, error) {
	if err := validateSample(sample); err != nil {
		return IngestResult{}, err
	}

	e, err := t.store.get(sample.AssignmentID)
	if err != nil {
		return IngestResult{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := admitSample(e, sample); err != nil {
		return IngestResult{}, err
	}

	sample.BookingID = e.assignment.BookingID
	sample.VendorID = e.assignment.VendorID
	sample.Timestamp = sample.Timestamp.UTC()

	e.push(sample, t.windowSize)
	t.refreshETA(e)

	snap := e.snapshot()
	t.emit.Emit(domain.LocationChanged{Snapshot: snap, Sample: sample})
	return IngestResult{Accepted: true, ETASeconds: snap.ETASeconds}, nil
}

func (t *Tracker) refreshETA(e *entry) {
	if !Tracking(e.assignment.Status) {
		e.eta = nil
		return
	}
	if eta, ok := t.estimator.Estimate(e.assignment.Venue, e.window); ok {
		e.eta = &eta
	} else {
		e.eta = nil
	}
}

// Estimate returns the current ETA in seconds, or nil when none is available.
func (t *Tracker) Estimate(assignmentID string) (*float64, error) {
	snap, err := t.Snapshot(assignmentID)
	if err != nil {
		return nil, err
	}
	return snap.ETASeconds, nil
}

func (t *Tracker) Snapshot(assignmentID string) (domain.Snapshot, error) {
	e, err := t.store.get(assignmentID)
	if err != nil {
		return domain.Snapshot{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshot(), nil
}

// BookingSnapshots returns the snapshots of every assignment of one booking.
func (t *Tracker) BookingSnapshots(bookingID string) []domain.Snapshot {
	entries := t.store.byBooking(bookingID)
	out := make([]domain.Snapshot, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		out = append(out, e.snapshot())
		e.mu.Unlock()
	}
	return out
}

// Snapshots returns every assignment's snapshot ordered by creation time.
func (t *Tracker) Snapshots() []domain.Snapshot {
	entries := t.store.all()
	out := make([]domain.Snapshot, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		out = append(out, e.snapshot())
		e.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Assignment, out[j].Assignment
		if a.CreatedAt.Equal(b.CreatedAt) {
			return a.ID < b.ID
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
	return out
}

// WithBookingSnapshots calls fn with the booking's snapshots while holding
// every one of its assignment locks, so no event of the booking is emitted
// until fn returns. fn must not call back into the tracker.
func (t *Tracker) WithBookingSnapshots(bookingID string, fn func([]domain.Snapshot)) {
	entries := t.store.byBooking(bookingID)
	// fixed lock order across concurrent joins
	sort.Slice(entries, func(i, j int) bool { return entries[i].id < entries[j].id })

	out := make([]domain.Snapshot, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		defer e.mu.Unlock()
		out = append(out, e.snapshot())
	}
	fn(out)
}
