// Package event implements the typed publish/subscribe hub used for crew
// observability. The engine, queue, memory, review and error subsystems all
// emit events that the presentation layer and logging can subscribe to.
//
// Three subscription styles are supported: exact event name, namespace
// prefix ("agent:" matches "agent:status", "agent:error", ...) and wildcard
// (every event). Every emission is appended to a bounded log before
// listeners run, so log inspection is always consistent with delivered
// order. Listener panics are recovered and logged, never propagated: one bad
// subscriber cannot break emission to others.
package event

import (
	"strings"
	"sync"
	"time"

	"github.com/hupe1980/crewmesh/logging"
)

// Crew event names. Namespaces group related lifecycle events.
const (
	MessageSent   = "message:sent"
	MessageRouted = "message:routed"

	AgentStatus       = "agent:status"
	AgentTaskComplete = "agent:task_complete"
	AgentError        = "agent:error"

	ExecutionStarted   = "execution:started"
	ExecutionStep      = "execution:step"
	ExecutionComplete  = "execution:complete"
	ExecutionCancelled = "execution:cancelled"

	DelegationInitiated = "delegation:initiated"

	ReviewRequested = "review:requested"
	ReviewComplete  = "review:complete"
	ReviewEscalated = "review:escalated"

	QueueOverflow = "queue:overflow"
	QueueDrained  = "queue:drained"

	CircuitOpened   = "circuit:opened"
	CircuitClosed   = "circuit:closed"
	CircuitHalfOpen = "circuit:half_open"

	CrewInitialized  = "crew:initialized"
	CrewAgentAdded   = "crew:agent_added"
	CrewAgentRemoved = "crew:agent_removed"
	CrewPaused       = "crew:paused"
	CrewResumed      = "crew:resumed"

	MemorySaved = "memory:saved"
)

// Entry is one logged emission.
type Entry struct {
	Event     string
	Payload   any
	Timestamp time.Time
}

// Listener receives the payload of a single named event.
type Listener func(payload any)

// AnyListener receives every event it was subscribed for (wildcard or
// namespace) together with the event name.
type AnyListener func(event string, payload any)

// UnsubscribeFunc removes the subscription it was returned for. Safe to call
// more than once.
type UnsubscribeFunc func()

const defaultLogSize = 500

// Bus is the crew-wide event hub. Emission order equals log order equals
// delivery order; all access is serialized by a single mutex, satisfying the
// one-writer requirement for the shared event log.
type Bus struct {
	mu        sync.Mutex
	listeners map[string]map[int]Listener
	wildcards map[int]AnyListener
	nextID    int
	log       []Entry
	maxLog    int
	logger    logging.Logger
}

// Option customizes bus construction.
type Option func(*Bus)

// WithLogSize overrides the bounded event log capacity (default 500).
func WithLogSize(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.maxLog = n
		}
	}
}

// WithLogger sets the logger used to report recovered listener panics.
func WithLogger(l logging.Logger) Option {
	return func(b *Bus) { b.logger = l }
}

// NewBus constructs an empty event bus. Typically one per crew session.
func NewBus(optFns ...Option) *Bus {
	b := &Bus{
		listeners: make(map[string]map[int]Listener),
		wildcards: make(map[int]AnyListener),
		maxLog:    defaultLogSize,
		logger:    logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(b)
	}
	return b
}

// On subscribes to a single named event.
func (b *Bus) On(event string, listener Listener) UnsubscribeFunc {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.listeners[event] == nil {
		b.listeners[event] = make(map[int]Listener)
	}
	id := b.nextID
	b.nextID++
	b.listeners[event][id] = listener
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.listeners[event], id)
	}
}

// OnAny subscribes to every event. Useful for logging and debugging.
func (b *Bus) OnAny(listener AnyListener) UnsubscribeFunc {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.wildcards[id] = listener
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.wildcards, id)
	}
}

// OnNamespace subscribes to every event whose name starts with the given
// namespace prefix ("agent" or "agent:" both match "agent:status").
func (b *Bus) OnNamespace(namespace string, listener AnyListener) UnsubscribeFunc {
	prefix := normalizeNamespace(namespace)
	return b.OnAny(func(event string, payload any) {
		if strings.HasPrefix(event, prefix) {
			listener(event, payload)
		}
	})
}

// Emit logs the event and delivers it synchronously to exact-name listeners
// first, then wildcard/namespace listeners, in subscription order within
// each group.
func (b *Bus) Emit(event string, payload any) {
	b.mu.Lock()
	b.log = append(b.log, Entry{Event: event, Payload: payload, Timestamp: time.Now()})
	if len(b.log) > b.maxLog {
		b.log = b.log[len(b.log)-b.maxLog:]
	}
	exact := make([]Listener, 0, len(b.listeners[event]))
	for id := 0; id < b.nextID; id++ {
		if l, ok := b.listeners[event][id]; ok {
			exact = append(exact, l)
		}
	}
	wild := make([]AnyListener, 0, len(b.wildcards))
	for id := 0; id < b.nextID; id++ {
		if l, ok := b.wildcards[id]; ok {
			wild = append(wild, l)
		}
	}
	b.mu.Unlock()

	for _, l := range exact {
		b.safeCall(event, func() { l(payload) })
	}
	for _, l := range wild {
		l := l
		b.safeCall(event, func() { l(event, payload) })
	}
}

func (b *Bus) safeCall(event string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event listener panicked", "event", event, "panic", r)
		}
	}()
	fn()
}

// Recent returns the last n logged events in emission order.
func (b *Bus) Recent(n int) []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n <= 0 || len(b.log) == 0 {
		return nil
	}
	if n > len(b.log) {
		n = len(b.log)
	}
	out := make([]Entry, n)
	copy(out, b.log[len(b.log)-n:])
	return out
}

// ByNamespace returns up to n logged events whose name matches the namespace
// prefix, oldest first.
func (b *Bus) ByNamespace(namespace string, n int) []Entry {
	prefix := normalizeNamespace(namespace)
	b.mu.Lock()
	defer b.mu.Unlock()
	matched := make([]Entry, 0, n)
	for _, e := range b.log {
		if strings.HasPrefix(e.Event, prefix) {
			matched = append(matched, e)
		}
	}
	if n > 0 && len(matched) > n {
		matched = matched[len(matched)-n:]
	}
	return matched
}

// Count returns the number of logged events within the trailing window,
// optionally restricted to one event name (empty matches all).
func (b *Bus) Count(window time.Duration, eventName string) int {
	cutoff := time.Now().Add(-window)
	b.mu.Lock()
	defer b.mu.Unlock()
	count := 0
	for _, e := range b.log {
		if e.Timestamp.After(cutoff) && (eventName == "" || e.Event == eventName) {
			count++
		}
	}
	return count
}

// RemoveAllListeners drops every subscription. The event log is kept.
func (b *Bus) RemoveAllListeners() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = make(map[string]map[int]Listener)
	b.wildcards = make(map[int]AnyListener)
}

// ClearLog empties the event log. Subscriptions are kept.
func (b *Bus) ClearLog() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.log = nil
}

// ListenerCount reports the total number of active subscriptions.
func (b *Bus) ListenerCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	count := len(b.wildcards)
	for _, m := range b.listeners {
		count += len(m)
	}
	return count
}

func normalizeNamespace(namespace string) string {
	if strings.HasSuffix(namespace, ":") {
		return namespace
	}
	return namespace + ":"
}
