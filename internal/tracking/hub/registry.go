package hub

import (
	"hash/fnv"
	"sync"
)

const shardCount = 32

type room map[string]struct{}

type shard struct {
	mu    sync.RWMutex
	rooms map[string]room
}

// membership is the set of bookings one connection has joined.
type membership struct {
	mu       sync.Mutex
	bookings map[string]struct{}
}

// Registry maps booking rooms to connection ids. Rooms are sharded by
// booking id so joins and fan-out lookups on different bookings rarely
// contend; each connection keeps its own reverse index for cleanup.
//
// Lock order: membership before shard.
type Registry struct {
	shards [shardCount]*shard

	mu    sync.Mutex
	conns map[string]*membership
}

func NewRegistry() *Registry {
	r := &Registry{conns: make(map[string]*membership)}
	for i := range r.shards {
		r.shards[i] = &shard{rooms: make(map[string]room)}
	}
	return r
}

func (r *Registry) shardFor(bookingID string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(bookingID))
	return r.shards[h.Sum32()%shardCount]
}

func (r *Registry) membershipFor(connID string, create bool) *membership {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.conns[connID]
	if !ok && create {
		m = &membership{bookings: make(map[string]struct{})}
		r.conns[connID] = m
	}
	return m
}

// Subscribe adds connID to bookingID's room. Subscribing twice is a no-op.
func (r *Registry) Subscribe(connID, bookingID string) {
	m := r.membershipFor(connID, true)
	m.mu.Lock()
	defer m.mu.Unlock()

	m.bookings[bookingID] = struct{}{}

	s := r.shardFor(bookingID)
	s.mu.Lock()
	members, ok := s.rooms[bookingID]
	if !ok {
		members = make(room)
		s.rooms[bookingID] = members
	}
	members[connID] = struct{}{}
	s.mu.Unlock()
}

// Unsubscribe removes connID from bookingID's room. Unknown pairs are ignored.
func (r *Registry) Unsubscribe(connID, bookingID string) {
	m := r.membershipFor(connID, false)
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.bookings, bookingID)
	r.leave(connID, bookingID)
}

// UnsubscribeAll removes connID from every room it joined and forgets it.
func (r *Registry) UnsubscribeAll(connID string) {
	r.mu.Lock()
	m, ok := r.conns[connID]
	delete(r.conns, connID)
	r.mu.Unlock()
	if !ok {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for bookingID := range m.bookings {
		r.leave(connID, bookingID)
	}
	m.bookings = map[string]struct{}{}
}

func (r *Registry) leave(connID, bookingID string) {
	s := r.shardFor(bookingID)
	s.mu.Lock()
	defer s.mu.Unlock()
	members, ok := s.rooms[bookingID]
	if !ok {
		return
	}
	delete(members, connID)
	if len(members) == 0 {
		delete(s.rooms, bookingID)
	}
}

// MembersOf returns a copy of the connection ids subscribed to bookingID.
func (r *Registry) MembersOf(bookingID string) []string {
	s := r.shardFor(bookingID)
	s.mu.RLock()
	defer s.mu.RUnlock()
	members := s.rooms[bookingID]
	out := make([]string, 0, len(members))
	for id := range members {
		out = append(out, id)
	}
	return out
}

// BookingsOf returns the bookings connID has joined.
func (r *Registry) BookingsOf(connID string) []string {
	m := r.membershipFor(connID, false)
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.bookings))
	for id := range m.bookings {
		out = append(out, id)
	}
	return out
}

// Rooms returns the number of non-empty rooms.
func (r *Registry) Rooms() int {
	n := 0
	for _, s := range r.shards {
		s.mu.RLock()
		n += len(s.rooms)
		s.mu.RUnlock()
	}
	return n
}
