// Package queue implements per-agent priority message queues with retry,
// backoff and a concurrency gate, plus a crew-wide manager that lazily
// creates one queue per target agent.
//
// Messages are processed in priority order (urgent > high > normal > low)
// with FIFO ordering inside a priority band. A failing handler is retried
// with exponential backoff up to a configured budget before the message is
// counted as failed exactly once.
package queue

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/hupe1980/crewmesh/core"
)

// ErrProcessingTimeout is reported when a handler exceeds the configured
// processing timeout for one message.
var ErrProcessingTimeout = errors.New("processing timeout")

// Status describes what a queue is currently doing.
type Status string

const (
	// StatusIdle means no messages are queued or in flight.
	StatusIdle Status = "idle"
	// StatusProcessing means at least one message is queued or in flight.
	StatusProcessing Status = "processing"
	// StatusPaused means the queue finishes in-flight work but pulls no
	// new messages until resumed.
	StatusPaused Status = "paused"
)

// Config tunes queue behavior.
type Config struct {
	// MaxConcurrent caps messages processing at once.
	MaxConcurrent int
	// MaxRetries is how many times a failed message is retried before it
	// counts as failed.
	MaxRetries int
	// RetryDelay is the base delay between retries; actual delay is
	// RetryDelay * 2^(retries-1).
	RetryDelay time.Duration
	// ProcessingTimeout bounds a single handler invocation.
	ProcessingTimeout time.Duration
	// MaxQueueSize rejects new messages once the queue reaches this depth.
	MaxQueueSize int
}

// DefaultConfig returns the standard queue tuning.
func DefaultConfig() Config {
	return Config{
		MaxConcurrent:     1,
		MaxRetries:        3,
		RetryDelay:        time.Second,
		ProcessingTimeout: 30 * time.Second,
		MaxQueueSize:      100,
	}
}

// Stats is a point-in-time snapshot of queue counters.
type Stats struct {
	Processed         int
	Failed            int
	AvgProcessingTime time.Duration
	Depth             int
	Status            Status
}

// Handler processes one message and returns its result text. The context is
// cancelled when the processing timeout elapses; real work should honor it.
type Handler func(ctx context.Context, msg core.Message) (string, error)

// ErrorFunc is invoked once when a message exhausts its retry budget.
type ErrorFunc func(msg core.Message, err error)

// ProcessedFunc is invoked after each successfully processed message.
type ProcessedFunc func(msg core.Message, result string)

// DrainFunc is invoked when the queue empties after having processed work.
type DrainFunc func()

type queuedMessage struct {
	msg     core.Message
	retries int
}

const avgSampleWindow = 50

// Queue is a priority message queue for a single agent. All exported
// methods are safe for concurrent use; handler invocations run outside the
// queue lock.
type Queue struct {
	mu          sync.Mutex
	cfg         Config
	items       []queuedMessage
	active      int
	status      Status
	handler     Handler
	onError     ErrorFunc
	onProcessed ProcessedFunc
	onDrain     DrainFunc
	processed   int
	failed      int
	retryWait   int
	samples     []time.Duration
}

// New creates an idle queue with the given config; zero-valued fields fall
// back to defaults.
func New(cfg Config) *Queue {
	def := DefaultConfig()
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = def.MaxConcurrent
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = def.MaxRetries
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = def.RetryDelay
	}
	if cfg.ProcessingTimeout <= 0 {
		cfg.ProcessingTimeout = def.ProcessingTimeout
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = def.MaxQueueSize
	}
	return &Queue{cfg: cfg, status: StatusIdle}
}

// SetHandler registers the message handler and starts processing any
// already-queued messages.
func (q *Queue) SetHandler(h Handler) {
	q.mu.Lock()
	q.handler = h
	q.mu.Unlock()
	q.kick()
}

// OnError registers the retries-exhausted callback.
func (q *Queue) OnError(fn ErrorFunc) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.onError = fn
}

// OnProcessed registers the per-message success callback.
func (q *Queue) OnProcessed(fn ProcessedFunc) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.onProcessed = fn
}

// OnDrain registers the queue-empty callback.
func (q *Queue) OnDrain(fn DrainFunc) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.onDrain = fn
}

// Enqueue adds a message, keeping the queue sorted by priority weight
// descending then timestamp ascending. Returns false when the queue is full.
func (q *Queue) Enqueue(msg core.Message) bool {
	q.mu.Lock()
	if len(q.items) >= q.cfg.MaxQueueSize {
		q.mu.Unlock()
		return false
	}
	q.insertLocked(queuedMessage{msg: msg})
	q.mu.Unlock()
	q.kick()
	return true
}

// Pause stops pulling new messages. In-flight work is not aborted and
// queued work is not discarded.
func (q *Queue) Pause() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.status = StatusPaused
}

// Resume restarts the pull loop if the queue was paused.
func (q *Queue) Resume() {
	q.mu.Lock()
	if q.status != StatusPaused {
		q.mu.Unlock()
		return
	}
	q.status = StatusIdle
	q.mu.Unlock()
	q.kick()
}

// Stats returns a snapshot of queue counters.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Stats{
		Processed:         q.processed,
		Failed:            q.failed,
		AvgProcessingTime: q.avgLocked(),
		Depth:             len(q.items),
		Status:            q.status,
	}
}

// Pending returns the queued messages in processing order.
func (q *Queue) Pending() []core.Message {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]core.Message, len(q.items))
	for i, it := range q.items {
		out[i] = it.msg
	}
	return out
}

// Clear discards all queued (not in-flight) messages.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = nil
}

// ActiveCount reports the number of messages currently being processed.
func (q *Queue) ActiveCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.active
}

// insertLocked appends and re-sorts the whole queue. Stable sort keeps
// insertion order for equal priority and timestamp.
func (q *Queue) insertLocked(item queuedMessage) {
	q.items = append(q.items, item)
	sort.SliceStable(q.items, func(i, j int) bool {
		wi, wj := q.items[i].msg.Priority.Weight(), q.items[j].msg.Priority.Weight()
		if wi != wj {
			return wi > wj
		}
		return q.items[i].msg.Timestamp.Before(q.items[j].msg.Timestamp)
	})
}

// kick pulls as many messages as the concurrency gate allows, spawning one
// goroutine per message. It also performs the processing -> idle transition
// and fires the drain callback when work runs out.
func (q *Queue) kick() {
	q.mu.Lock()
	var drain DrainFunc
	for q.status != StatusPaused && q.handler != nil && q.active < q.cfg.MaxConcurrent && len(q.items) > 0 {
		item := q.items[0]
		q.items = q.items[1:]
		q.active++
		q.status = StatusProcessing
		go q.process(item)
	}
	if len(q.items) == 0 && q.active == 0 && q.retryWait == 0 && q.status == StatusProcessing {
		q.status = StatusIdle
		drain = q.onDrain
	}
	q.mu.Unlock()
	if drain != nil {
		drain()
	}
}

// process runs the handler for one message, racing it against the
// processing timeout, then schedules a retry or finalizes the outcome.
func (q *Queue) process(item queuedMessage) {
	q.mu.Lock()
	handler := q.handler
	q.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), q.cfg.ProcessingTimeout)
	defer cancel()

	start := time.Now()
	type outcome struct {
		result string
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := handler(ctx, item.msg)
		done <- outcome{result: result, err: err}
	}()

	var result string
	var err error
	select {
	case o := <-done:
		result, err = o.result, o.err
	case <-ctx.Done():
		err = ErrProcessingTimeout
	}
	elapsed := time.Since(start)

	if err == nil {
		q.mu.Lock()
		q.processed++
		q.samples = append(q.samples, elapsed)
		if len(q.samples) > avgSampleWindow {
			q.samples = q.samples[len(q.samples)-avgSampleWindow:]
		}
		onProcessed := q.onProcessed
		q.active--
		q.mu.Unlock()
		if onProcessed != nil {
			onProcessed(item.msg, result)
		}
		q.kick()
		return
	}

	if item.retries < q.cfg.MaxRetries {
		item.retries++
		delay := q.cfg.RetryDelay * (1 << (item.retries - 1))
		q.mu.Lock()
		q.active--
		q.retryWait++
		q.mu.Unlock()
		time.AfterFunc(delay, func() {
			q.mu.Lock()
			q.retryWait--
			q.insertLocked(item)
			q.mu.Unlock()
			q.kick()
		})
		q.kick()
		return
	}

	q.mu.Lock()
	q.failed++
	onError := q.onError
	q.active--
	q.mu.Unlock()
	if onError != nil {
		onError(item.msg, err)
	}
	q.kick()
}

func (q *Queue) avgLocked() time.Duration {
	if len(q.samples) == 0 {
		return 0
	}
	var sum time.Duration
	for _, s := range q.samples {
		sum += s
	}
	return sum / time.Duration(len(q.samples))
}
