package hub

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"vendor-tracking/internal/shared/util"
	"vendor-tracking/internal/tracking/app"
	"vendor-tracking/internal/tracking/domain"

	"github.com/google/uuid"
)

// Tracker is the part of app.Tracker the hub drives.
type Tracker interface {
	Ingest(sample domain.LocationSample) (app.IngestResult, error)
	Transition(assignmentID string, to domain.Status) (app.TransitionResult, error)
	WithBookingSnapshots(bookingID string, fn func([]domain.Snapshot))
}

type Options struct {
	SendBuffer   int
	PingInterval time.Duration
}

// Hub routes vendor requests into the tracker and fans tracker events out
// to the rooms of the registry. It is the domain.Emitter of the realtime path.
type Hub struct {
	tracker  Tracker
	registry *Registry
	logger   *util.Logger
	opts     Options

	clients sync.Map // id -> *Client
	count   atomic.Int64
	closed  atomic.Bool
}

func New(tracker Tracker, registry *Registry, logger *util.Logger, opts Options) *Hub {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 64
	}
	return &Hub{
		tracker:  tracker,
		registry: registry,
		logger:   logger,
		opts:     opts,
	}
}

// Accepting reports whether new realtime connections are taken.
func (h *Hub) Accepting() bool {
	return !h.closed.Load()
}

// Register attaches a connection and starts its writer.
func (h *Hub) Register(conn Conn, ident Identity) (*Client, error) {
	if h.closed.Load() {
		return nil, domain.ErrChannelUnavailable
	}

	c := newClient(uuid.NewString(), ident, conn, h.opts.SendBuffer, h.opts.PingInterval, h.writeFailed)
	h.clients.Store(c.ID, c)
	h.count.Add(1)
	go c.writeLoop()

	h.logger.Info("Hub.Register", fmt.Sprintf("connection %s opened [role=%s, subject=%s]", c.ID, ident.Role, ident.Subject))
	return c, nil
}

// Disconnect drops every subscription of c and closes it. Safe to call twice.
func (h *Hub) Disconnect(c *Client) {
	rooms := h.registry.BookingsOf(c.ID)
	h.registry.UnsubscribeAll(c.ID)
	if _, loaded := h.clients.LoadAndDelete(c.ID); loaded {
		h.count.Add(-1)
		h.logger.Info("Hub.Disconnect", fmt.Sprintf("connection %s closed, left %d room(s)", c.ID, len(rooms)))
	}
	c.close()
}

// Connections returns the number of registered connections.
func (h *Hub) Connections() int {
	return int(h.count.Load())
}

// Rooms returns the number of bookings with at least one subscriber.
func (h *Hub) Rooms() int {
	return h.registry.Rooms()
}

// Join subscribes c to bookingID and replies with the booking's current snapshots.
func (h *Hub) Join(c *Client, bookingID string) error {
	if bookingID == "" {
		err := fmt.Errorf("bookingId is required: %w", domain.ErrInvalidPayload)
		c.Send(NewErrorMessage("", err))
		return err
	}
	// the booking's emits wait until the joined reply is queued
	h.tracker.WithBookingSnapshots(bookingID, func(snaps []domain.Snapshot) {
		h.registry.Subscribe(c.ID, bookingID)
		c.Send(RoomMessage{Type: TypeJoined, BookingID: bookingID, Snapshots: snaps})
	})
	return nil
}

func (h *Hub) Leave(c *Client, bookingID string) {
	h.registry.Unsubscribe(c.ID, bookingID)
	c.Send(RoomMessage{Type: TypeLeft, BookingID: bookingID})
}

// OnLocationReport ingests one sample. origin is nil for the request/response
// path; otherwise the ack or error is queued to origin alone.
func (h *Hub) OnLocationReport(origin *Client, ref string, sample domain.LocationSample) (app.IngestResult, error) {
	res, err := h.tracker.Ingest(sample)
	if err != nil {
		h.reject(origin, ref, "Hub.OnLocationReport", err)
		return res, err
	}
	if origin != nil {
		origin.Send(AckMessage{Type: TypeAck, Ref: ref, Accepted: true, ETASeconds: res.ETASeconds})
	}
	return res, nil
}

// OnStatusChangeRequest applies a status transition; see OnLocationReport for origin.
func (h *Hub) OnStatusChangeRequest(origin *Client, ref, assignmentID string, to domain.Status) (app.TransitionResult, error) {
	res, err := h.tracker.Transition(assignmentID, to)
	if err != nil {
		h.reject(origin, ref, "Hub.OnStatusChange", err)
		return res, err
	}
	if origin != nil {
		origin.Send(AckMessage{Type: TypeAck, Ref: ref, Accepted: true, CurrentStatus: res.Current})
	}
	return res, nil
}

func (h *Hub) reject(origin *Client, ref, instance string, err error) {
	if domain.IsRejection(err) {
		h.logger.Info(instance, fmt.Sprintf("rejected: %v", err))
	} else {
		h.logger.Error(instance, "request failed", err)
	}
	if origin != nil {
		origin.Send(NewErrorMessage(ref, err))
	}
}

// Emit fans a tracker event out to the booking's room. It runs under the
// assignment lock, so it only queues.
func (h *Hub) Emit(evt domain.Event) {
	switch e := evt.(type) {
	case domain.LocationChanged:
		h.broadcast(e.BookingID(), NewLocationMessage(e))
	case domain.StatusChanged:
		h.broadcast(e.BookingID(), NewStatusMessage(e))
	}
}

func (h *Hub) broadcast(bookingID string, msg interface{}) {
	for _, id := range h.registry.MembersOf(bookingID) {
		v, ok := h.clients.Load(id)
		if !ok {
			continue
		}
		c := v.(*Client)
		if !c.Send(msg) {
			h.logger.Warn("Hub.broadcast", fmt.Sprintf("%s: connection %s queue full, dropping it", domain.ErrDeliveryFailure.Code, c.ID))
			// disconnect off the caller's lock; the viewer resyncs on rejoin
			go h.Disconnect(c)
		}
	}
}

func (h *Hub) writeFailed(c *Client, err error) {
	select {
	case <-c.Done():
	default:
		h.logger.Warn("Hub.deliver", fmt.Sprintf("%s: connection %s: %v", domain.ErrDeliveryFailure.Code, c.ID, err))
	}
	h.Disconnect(c)
}

// Close stops accepting connections and closes every open one.
func (h *Hub) Close() {
	if !h.closed.CompareAndSwap(false, true) {
		return
	}
	h.clients.Range(func(_, v interface{}) bool {
		h.Disconnect(v.(*Client))
		return true
	})
	h.logger.OK("Hub", "all realtime connections closed")
}
