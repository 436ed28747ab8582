// Package eventbus implements the typed publish/subscribe event bus: the
// auto-numbered message-ID registry (grounded on the reflect.Type-keyed,
// mutex-guarded counter pattern used for component IDs in the ecs
// subsystem this module's teacher drew from), subscription, a FIFO
// queue, and cascade invalidation support for the RenderGraph.
package eventbus

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/gekko3d/esvo/rt/rtlog"
)

// MessageID is the compile-time-unique numeric ID carried by every
// message type. IDs 0-999 are reserved for hand assignment (legacy);
// IDs >= 1000 are auto-assigned via TypeID.
type MessageID uint32

// LegacyCeiling is the first auto-assignable ID; IDs below it must be
// explicitly bound via RegisterLegacyID.
const LegacyCeiling MessageID = 1000

var (
	idMu    sync.Mutex
	nextID  MessageID = LegacyCeiling
	typeIDs           = map[reflect.Type]MessageID{}
)

// TypeID returns T's message ID, assigning the next available
// auto-numbered ID on first use and memoizing it thereafter — the same
// reflect.Type-keyed, mutex-guarded counter idiom used elsewhere in this
// codebase for type-keyed ID assignment.
func TypeID[T any]() MessageID {
	idMu.Lock()
	defer idMu.Unlock()
	t := reflect.TypeFor[T]()
	if id, ok := typeIDs[t]; ok {
		return id
	}
	id := nextID
	nextID++
	typeIDs[t] = id
	return id
}

// RegisterLegacyID explicitly binds T to a hand-assigned ID in [0,1000).
func RegisterLegacyID[T any](id MessageID) error {
	if id >= LegacyCeiling {
		return fmt.Errorf("eventbus: legacy id %d must be < %d", id, LegacyCeiling)
	}
	idMu.Lock()
	defer idMu.Unlock()
	typeIDs[reflect.TypeFor[T]()] = id
	return nil
}

// Message is one dispatched event: sender, type ID, and an opaque
// payload dispatched by TypeID.
type Message struct {
	SenderID uint64
	Type     MessageID
	Payload  any
}

// SubscriptionID identifies a registered listener for Unsubscribe.
type SubscriptionID uint64

type listener struct {
	id SubscriptionID
	fn func(Message)
}

// maxDrainMessages bounds process_messages' per-call work so that a
// listener re-publishing within its own dispatch can never chain
// unboundedly.
const maxDrainMessages = 100000

// Bus is the FIFO, typed event bus. It is single-threaded cooperative by
// default; the listener registry and queue are mutex-guarded so
// subscriptions registered from worker goroutines are safe.
type Bus struct {
	mu        sync.Mutex
	logger    rtlog.Logger
	listeners map[MessageID][]listener
	nextSubID SubscriptionID
	queue     []Message

	expectedCapacity int
	warnedThisDrain  bool
}

func NewBus(logger rtlog.Logger) *Bus {
	if logger == nil {
		logger = rtlog.NewNopLogger()
	}
	return &Bus{
		logger:    logger,
		listeners: make(map[MessageID][]listener),
	}
}

// Subscribe registers fn against a single type ID.
func (b *Bus) Subscribe(typeID MessageID, fn func(Message)) SubscriptionID {
	return b.SubscribeMany([]MessageID{typeID}, fn)
}

// SubscribeMany registers fn against every listed type ID under one
// subscription handle.
func (b *Bus) SubscribeMany(typeIDs []MessageID, fn func(Message)) SubscriptionID {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextSubID++
	id := b.nextSubID
	for _, t := range typeIDs {
		b.listeners[t] = append(b.listeners[t], listener{id: id, fn: fn})
	}
	return id
}

// Unsubscribe removes every registration made under id. Re-subscribing
// after Unsubscribe is always safe (idempotent with respect to the
// registry), which the graph's cleanup/setup cycle relies on.
func (b *Bus) Unsubscribe(id SubscriptionID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for t, ls := range b.listeners {
		filtered := ls[:0]
		for _, l := range ls {
			if l.id != id {
				filtered = append(filtered, l)
			}
		}
		b.listeners[t] = filtered
	}
}

// Publish enqueues msg for the next ProcessMessages drain.
func (b *Bus) Publish(msg Message) {
	b.mu.Lock()
	b.queue = append(b.queue, msg)
	n := len(b.queue)
	cap := b.expectedCapacity
	warn := cap > 0 && !b.warnedThisDrain && n > (cap*8)/10
	if warn {
		b.warnedThisDrain = true
	}
	b.mu.Unlock()
	if warn {
		b.logger.Warnf("eventbus: queue depth %d exceeds 80%% of expected capacity %d", n, cap)
	}
}

// PublishImmediate dispatches msg directly to every current listener on
// the caller's thread, bypassing the queue.
func (b *Bus) PublishImmediate(msg Message) {
	b.dispatch(msg)
}

// SetExpectedCapacity configures the watermark used by Publish's
// once-per-drain warning.
func (b *Bus) SetExpectedCapacity(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.expectedCapacity = n
}

// ProcessMessages drains the queue in FIFO order. Messages published
// during dispatch (including by a listener reacting to the message it
// was handed) are appended and processed within the same drain, bounded
// by maxDrainMessages.
func (b *Bus) ProcessMessages() {
	processed := 0
	for {
		b.mu.Lock()
		if len(b.queue) == 0 {
			b.warnedThisDrain = false
			b.mu.Unlock()
			return
		}
		msg := b.queue[0]
		b.queue = b.queue[1:]
		b.mu.Unlock()

		b.dispatch(msg)
		processed++
		if processed >= maxDrainMessages {
			b.logger.Warnf("eventbus: drain bound %d reached, deferring remaining messages", maxDrainMessages)
			return
		}
	}
}

func (b *Bus) dispatch(msg Message) {
	b.mu.Lock()
	ls := make([]listener, len(b.listeners[msg.Type]))
	copy(ls, b.listeners[msg.Type])
	b.mu.Unlock()
	for _, l := range ls {
		l.fn(msg)
	}
}
