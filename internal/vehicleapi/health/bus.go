package health

import (
	"context"
	"sync"

	"github.com/autopeer-io/vehicle-api/internal/vehicleapi/core"
	"github.com/autopeer-io/vehicle-api/internal/vehicleapi/core/model"
	"github.com/autopeer-io/vehicle-api/pkg/log"
)

const defaultBufferSize = 64

var _ core.AvailabilityNotifier = (*Bus)(nil)

// Bus is an in-process pub/sub of availability transitions.
// Publishing never blocks: a subscriber whose buffer is full misses the transition.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[chan model.Transition]struct{}
	bufferSize  int
}

func NewBus() *Bus {
	return &Bus{
		subscribers: make(map[chan model.Transition]struct{}),
		bufferSize:  defaultBufferSize,
	}
}

// Subscribe returns a channel receiving every later transition.
func (b *Bus) Subscribe() <-chan model.Transition {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan model.Transition, b.bufferSize)
	b.subscribers[ch] = struct{}{}
	return ch
}

// Unsubscribe removes and closes a channel returned by Subscribe.
func (b *Bus) Unsubscribe(ch <-chan model.Transition) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for sub := range b.subscribers {
		if sub == ch {
			delete(b.subscribers, sub)
			close(sub)
			return
		}
	}
}

// Notify publishes t to all subscribers.
func (b *Bus) Notify(_ context.Context, t model.Transition) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subscribers {
		select {
		case ch <- t:
		default:
			log.Warn("Dropping availability transition for slow subscriber", "kind", t.Kind, "state", t.State)
		}
	}
	return nil
}

// Close closes every subscriber channel.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, ch)
	}
}

// Watch calls fn for each transition received on ch until ctx is done or ch is closed.
// Subscribe before publishing anything the watcher must see.
func Watch(ctx context.Context, ch <-chan model.Transition, fn func(model.Transition)) {
	for {
		select {
		case <-ctx.Done():
			return
		case t, ok := <-ch:
			if !ok {
				return
			}
			fn(t)
		}
	}
}
