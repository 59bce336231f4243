package broadcast

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/pitchside/auctioneer/internal/events"
)

// Broker fans auction events out to any number of in-process
// subscribers. Publish never blocks: a subscriber that cannot keep up has
// the event dropped on its channel and can resync from the next full
// state snapshot, so the engine is never stalled by a slow observer.
type Broker struct {
	mu     sync.RWMutex
	subs   map[int]chan events.Event
	nextID int
	buffer int
}

// NewBroker creates a broker whose subscriber channels hold up to buffer
// pending events each.
func NewBroker(buffer int) *Broker {
	if buffer < 1 {
		buffer = 64
	}
	return &Broker{
		subs:   make(map[int]chan events.Event),
		buffer: buffer,
	}
}

// Subscribe registers a new observer. The returned cancel func must be
// called exactly once; it closes the channel.
func (b *Broker) Subscribe() (<-chan events.Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan events.Event, b.buffer)
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if ch, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(ch)
		}
	}
	return ch, cancel
}

// Publish delivers ev to every subscriber without blocking.
func (b *Broker) Publish(ev events.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			log.Warn().Int("subscriber", id).Str("event_type", string(ev.Type)).Msg("subscriber buffer full, dropping event")
		}
	}
}

// SubscriberCount reports the number of registered observers.
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
