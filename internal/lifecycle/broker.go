package lifecycle

import "sync"

// subscriberBufferSize is the channel buffer for each event subscriber.
// Events are dropped if a subscriber falls this far behind.
const subscriberBufferSize = 64

// Event is the terminal-outcome notification published for every resolved
// request.
type Event struct {
	RequestID  string `json:"request_id"`
	Surface    string `json:"surface"`
	Outcome    string `json:"outcome"`
	Detail     string `json:"detail,omitempty"`
	DurationMS int    `json:"duration_ms"`
}

// Broker fans terminal-outcome events out to subscribers. It is safe for
// concurrent use. Publishing never blocks request resolution: slow
// subscribers lose events instead.
type Broker struct {
	mu     sync.Mutex
	subs   map[int]chan Event
	nextID int
}

// NewBroker creates a new outcome broker.
func NewBroker() *Broker {
	return &Broker{subs: make(map[int]chan Event)}
}

// Subscribe returns a channel receiving all future outcome events and an
// unsubscribe function.
func (b *Broker) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, subscriberBufferSize)
	id := b.nextID
	b.nextID++
	b.subs[id] = ch

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(ch)
		}
	}
}

// Publish sends an event to all subscribers, dropping it for any whose
// buffer is full.
func (b *Broker) Publish(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
			// Drop for slow subscribers to avoid blocking resolution.
		}
	}
}
