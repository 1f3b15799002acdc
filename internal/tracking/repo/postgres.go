package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"vendor-tracking/internal/tracking/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS assignments (
	id          TEXT PRIMARY KEY,
	booking_id  TEXT NOT NULL,
	vendor_id   TEXT NOT NULL,
	status      TEXT NOT NULL,
	venue_lat   DOUBLE PRECISION NOT NULL,
	venue_lng   DOUBLE PRECISION NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS assignments_booking_idx ON assignments (booking_id);

CREATE TABLE IF NOT EXISTS assignment_status_events (
	id            BIGSERIAL PRIMARY KEY,
	assignment_id TEXT NOT NULL REFERENCES assignments (id),
	from_status   TEXT NOT NULL,
	to_status     TEXT NOT NULL,
	event_data    JSONB,
	created_at    TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS assignment_locations (
	id            BIGSERIAL PRIMARY KEY,
	assignment_id TEXT NOT NULL REFERENCES assignments (id),
	latitude      DOUBLE PRECISION NOT NULL,
	longitude     DOUBLE PRECISION NOT NULL,
	speed_mps     DOUBLE PRECISION,
	bearing_deg   DOUBLE PRECISION,
	recorded_at   TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS assignment_locations_latest_idx ON assignment_locations (assignment_id, recorded_at DESC);
`

// Journal is the Postgres history of assignments, status changes and samples.
type Journal struct {
	db *pgxpool.Pool
}

func NewJournal(db *pgxpool.Pool) *Journal {
	return &Journal{db: db}
}

func (j *Journal) EnsureSchema(ctx context.Context) error {
	if _, err := j.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (j *Journal) SaveAssignment(ctx context.Context, a domain.Assignment) error {
	_, err := j.db.Exec(ctx, `
		INSERT INTO assignments (id, booking_id, vendor_id, status, venue_lat, venue_lng, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING
	`, a.ID, a.BookingID, a.VendorID, string(a.Status), a.Venue.Lat, a.Venue.Lng, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert assignment failed: %w", err)
	}
	return nil
}

func (j *Journal) RecordStatus(ctx context.Context, evt domain.StatusChanged) error {
	tx, err := j.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		UPDATE assignments
		SET status = $2,
		    updated_at = $3
		WHERE id = $1
	`, evt.AssignmentID(), string(evt.To), evt.At)
	if err != nil {
		return fmt.Errorf("update assignment status failed: %w", err)
	}

	eventData := map[string]interface{}{
		"booking_id": evt.BookingID(),
		"vendor_id":  evt.Snapshot.Assignment.VendorID,
	}
	if loc := evt.Snapshot.LastLocation; loc != nil {
		eventData["last_location"] = map[string]float64{"lat": loc.Lat, "lng": loc.Lng}
	}
	jsonData, err := json.Marshal(eventData)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO assignment_status_events (assignment_id, from_status, to_status, event_data, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, evt.AssignmentID(), string(evt.From), string(evt.To), jsonData, evt.At)
	if err != nil {
		return fmt.Errorf("insert status event failed: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit failed: %w", err)
	}
	return nil
}

func (j *Journal) RecordLocation(ctx context.Context, s domain.LocationSample) error {
	_, err := j.db.Exec(ctx, `
		INSERT INTO assignment_locations (assignment_id, latitude, longitude, speed_mps, bearing_deg, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, s.AssignmentID, s.Lat, s.Lng, s.Speed, s.Bearing, s.Timestamp)
	if err != nil {
		return fmt.Errorf("insert location failed: %w", err)
	}
	return nil
}

// ListOpen returns every assignment not yet COMPLETED with its latest sample.
func (j *Journal) ListOpen(ctx context.Context) ([]domain.Snapshot, error) {
	const query = `
		SELECT a.id, a.booking_id, a.vendor_id, a.status, a.venue_lat, a.venue_lng,
		       a.created_at, a.updated_at,
		       l.latitude, l.longitude, l.speed_mps, l.bearing_deg, l.recorded_at
		FROM assignments a
		LEFT JOIN LATERAL (
			SELECT latitude, longitude, speed_mps, bearing_deg, recorded_at
			FROM assignment_locations
			WHERE assignment_id = a.id
			ORDER BY recorded_at DESC
			LIMIT 1
		) l ON true
		WHERE a.status <> 'COMPLETED'
	`

	rows, err := j.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list open assignments: %w", err)
	}

	snaps, err := pgx.CollectRows(rows, scanSnapshot)
	if err != nil {
		return nil, fmt.Errorf("scan open assignments: %w", err)
	}
	return snaps, nil
}

func scanSnapshot(row pgx.CollectableRow) (domain.Snapshot, error) {
	var (
		a          domain.Assignment
		status     string
		lat, lng   *float64
		speed, brg *float64
		recordedAt *time.Time
	)
	if err := row.Scan(&a.ID, &a.BookingID, &a.VendorID, &status, &a.Venue.Lat, &a.Venue.Lng,
		&a.CreatedAt, &a.UpdatedAt, &lat, &lng, &speed, &brg, &recordedAt); err != nil {
		return domain.Snapshot{}, err
	}
	a.Status = domain.Status(status)

	snap := domain.Snapshot{Assignment: a}
	if lat != nil && lng != nil && recordedAt != nil {
		snap.LastLocation = &domain.LocationSample{
			AssignmentID: a.ID,
			BookingID:    a.BookingID,
			VendorID:     a.VendorID,
			Lat:          *lat,
			Lng:          *lng,
			Speed:        speed,
			Bearing:      brg,
			Timestamp:    recordedAt.UTC(),
		}
	}
	return snap, nil
}
