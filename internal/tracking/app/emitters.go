package app

import (
	"sync"

	"vendor-tracking/internal/tracking/domain"
)

type NopEmitter struct{}

func (NopEmitter) Emit(domain.Event) {}

// Broadcaster forwards every event to each registered emitter in order.
// Emitters may be added after the tracker is built.
type Broadcaster struct {
	mu       sync.RWMutex
	emitters []domain.Emitter
}

func (b *Broadcaster) Add(e domain.Emitter) {
	b.mu.Lock()
	b.emitters = append(b.emitters, e)
	b.mu.Unlock()
}

func (b *Broadcaster) Emit(evt domain.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, e := range b.emitters {
		e.Emit(evt)
	}
}
