package domain

import "context"

// Emitter receives tracker events in acceptance order. Implementations are
// called while the assignment is locked and must not block.
type Emitter interface {
	Emit(evt Event)
}

// Journal persists assignments and their accepted history.
type Journal interface {
	SaveAssignment(ctx context.Context, a Assignment) error
	RecordStatus(ctx context.Context, evt StatusChanged) error
	RecordLocation(ctx context.Context, sample LocationSample) error
	ListOpen(ctx context.Context) ([]Snapshot, error)
}

// SnapshotCache keeps the latest snapshot per assignment for polling readers.
type SnapshotCache interface {
	Put(ctx context.Context, snap Snapshot) error
	Get(ctx context.Context, assignmentID string) (*Snapshot, error)
	ListByBooking(ctx context.Context, bookingID string) ([]Snapshot, error)
}

// EventPublisher republishes tracker events as JSON.
type EventPublisher interface {
	PublishJSON(ctx context.Context, exchange, routingKey string, data interface{}) error
}
