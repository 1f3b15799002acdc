package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"vendor-tracking/internal/tracking/domain"

	"github.com/redis/go-redis/v9"
)

const (
	snapshotKeyPrefix = "tracking:snapshot:"
	bookingKeyPrefix  = "tracking:booking:"
)

func SnapshotKey(assignmentID string) string { return snapshotKeyPrefix + assignmentID }
func BookingKey(bookingID string) string     { return bookingKeyPrefix + bookingID }

// SnapshotCache stores the latest snapshot per assignment as a JSON string
// and indexes assignment ids per booking.
type SnapshotCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewSnapshotCache(rdb *redis.Client, ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{rdb: rdb, ttl: ttl}
}

func (c *SnapshotCache) Put(ctx context.Context, snap domain.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	a := snap.Assignment
	if err := c.rdb.Set(ctx, SnapshotKey(a.ID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache snapshot %s: %w", a.ID, err)
	}
	if err := c.rdb.SAdd(ctx, BookingKey(a.BookingID), a.ID).Err(); err != nil {
		return fmt.Errorf("index snapshot %s: %w", a.ID, err)
	}
	if err := c.rdb.Expire(ctx, BookingKey(a.BookingID), c.ttl).Err(); err != nil {
		return fmt.Errorf("expire booking index %s: %w", a.BookingID, err)
	}
	return nil
}

// Get returns domain.ErrAssignmentNotFound when the key is absent or expired.
func (c *SnapshotCache) Get(ctx context.Context, assignmentID string) (*domain.Snapshot, error) {
	data, err := c.rdb.Get(ctx, SnapshotKey(assignmentID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%s: %w", assignmentID, domain.ErrAssignmentNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", assignmentID, err)
	}

	var snap domain.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", assignmentID, err)
	}
	return &snap, nil
}

// ListByBooking skips index members whose snapshot has expired.
func (c *SnapshotCache) ListByBooking(ctx context.Context, bookingID string) ([]domain.Snapshot, error) {
	ids, err := c.rdb.SMembers(ctx, BookingKey(bookingID)).Result()
	if err != nil {
		return nil, fmt.Errorf("read booking index %s: %w", bookingID, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = SnapshotKey(id)
	}
	vals, err := c.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("read booking snapshots %s: %w", bookingID, err)
	}

	snaps := make([]domain.Snapshot, 0, len(vals))
	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var snap domain.Snapshot
		if err := json.Unmarshal([]byte(raw), &snap); err != nil {
			return nil, fmt.Errorf("decode snapshot %s: %w", ids[i], err)
		}
		snaps = append(snaps, snap)
	}
	return snaps, nil
}
