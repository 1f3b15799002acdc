package sink

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"vendor-tracking/internal/shared/mq"
	"vendor-tracking/internal/shared/util"
	"vendor-tracking/internal/tracking/domain"
	"vendor-tracking/internal/tracking/hub"
)

const writeTimeout = 5 * time.Second

func LocationRoutingKey(bookingID string) string { return "tracking.location." + bookingID }
func StatusRoutingKey(bookingID string) string   { return "tracking.status." + bookingID }

// Sink persists and republishes tracker events on a single worker so the
// tracker never waits on Postgres, Redis or RabbitMQ. Any collaborator may
// be nil.
type Sink struct {
	journal   domain.Journal
	cache     domain.SnapshotCache
	publisher domain.EventPublisher
	logger    *util.Logger

	queue   chan domain.Event
	stop    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
	dropped atomic.Int64
}

func New(journal domain.Journal, cache domain.SnapshotCache, publisher domain.EventPublisher, buffer int, logger *util.Logger) *Sink {
	if buffer <= 0 {
		buffer = 1024
	}
	return &Sink{
		journal:   journal,
		cache:     cache,
		publisher: publisher,
		logger:    logger,
		queue:     make(chan domain.Event, buffer),
		stop:      make(chan struct{}),
	}
}

// Emit enqueues evt, dropping it with a warning when the queue is full.
func (s *Sink) Emit(evt domain.Event) {
	select {
	case s.queue <- evt:
	default:
		n := s.dropped.Add(1)
		s.logger.Warn("Sink.Emit", fmt.Sprintf("queue full, dropped event for assignment %s (total dropped %d)", evt.AssignmentID(), n))
	}
}

func (s *Sink) Dropped() int64 { return s.dropped.Load() }

func (s *Sink) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			select {
			case evt := <-s.queue:
				s.handle(ctx, evt)
			case <-ctx.Done():
				s.drain(context.Background())
				return
			case <-s.stop:
				s.drain(ctx)
				return
			}
		}
	}()
}

// Stop flushes queued events and waits for the worker to exit.
func (s *Sink) Stop() {
	s.once.Do(func() { close(s.stop) })
	s.wg.Wait()
}

func (s *Sink) drain(ctx context.Context) {
	for {
		select {
		case evt := <-s.queue:
			s.handle(ctx, evt)
		default:
			return
		}
	}
}

func (s *Sink) handle(parent context.Context, evt domain.Event) {
	ctx, cancel := context.WithTimeout(parent, writeTimeout)
	defer cancel()

	var (
		snap    domain.Snapshot
		key     string
		payload interface{}
	)

	switch e := evt.(type) {
	case domain.AssignmentCreated:
		snap = e.Snapshot
		if s.journal != nil {
			if err := s.journal.SaveAssignment(ctx, e.Snapshot.Assignment); err != nil {
				s.logger.Error("Sink.journal", "save assignment "+e.AssignmentID(), err)
			}
		}
	case domain.StatusChanged:
		snap = e.Snapshot
		key, payload = StatusRoutingKey(e.BookingID()), hub.NewStatusMessage(e)
		if s.journal != nil {
			if err := s.journal.RecordStatus(ctx, e); err != nil {
				s.logger.Error("Sink.journal", "record status "+e.AssignmentID(), err)
			}
		}
	case domain.LocationChanged:
		snap = e.Snapshot
		key, payload = LocationRoutingKey(e.BookingID()), hub.NewLocationMessage(e)
		if s.journal != nil {
			if err := s.journal.RecordLocation(ctx, e.Sample); err != nil {
				s.logger.Error("Sink.journal", "record location "+e.AssignmentID(), err)
			}
		}
	default:
		return
	}

	if s.cache != nil {
		if err := s.cache.Put(ctx, snap); err != nil {
			s.logger.Error("Sink.cache", "put snapshot "+evt.AssignmentID(), err)
		}
	}

	if s.publisher != nil && payload != nil {
		if err := s.publisher.PublishJSON(ctx, mq.TrackingExchange, key, payload); err != nil {
			s.logger.Error("Sink.publish", key, err)
		}
	}
}
