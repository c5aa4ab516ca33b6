package queue

import (
	"sync"

	"github.com/hupe1980/crewmesh/core"
)

// Manager owns one queue per target agent, created lazily on first use.
// Callbacks registered on the manager are applied to every queue, existing
// and future.
type Manager struct {
	mu          sync.Mutex
	cfg         Config
	queues      map[string]*Queue
	handler     Handler
	onError     ErrorFunc
	onProcessed ProcessedFunc
	onDrain     DrainFunc
	paused      bool
}

// NewManager creates an empty manager. Zero-valued config fields fall back
// to defaults, queue by queue.
func NewManager(cfg Config) *Manager {
	return &Manager{cfg: cfg, queues: make(map[string]*Queue)}
}

// SetHandler registers the shared message handler on all queues.
func (m *Manager) SetHandler(h Handler) {
	m.mu.Lock()
	m.handler = h
	queues := m.snapshotLocked()
	m.mu.Unlock()
	for _, q := range queues {
		q.SetHandler(h)
	}
}

// OnError registers the shared retries-exhausted callback.
func (m *Manager) OnError(fn ErrorFunc) {
	m.mu.Lock()
	m.onError = fn
	queues := m.snapshotLocked()
	m.mu.Unlock()
	for _, q := range queues {
		q.OnError(fn)
	}
}

// OnProcessed registers the shared per-message success callback.
func (m *Manager) OnProcessed(fn ProcessedFunc) {
	m.mu.Lock()
	m.onProcessed = fn
	queues := m.snapshotLocked()
	m.mu.Unlock()
	for _, q := range queues {
		q.OnProcessed(fn)
	}
}

// OnDrain registers the shared queue-empty callback.
func (m *Manager) OnDrain(fn DrainFunc) {
	m.mu.Lock()
	m.onDrain = fn
	queues := m.snapshotLocked()
	m.mu.Unlock()
	for _, q := range queues {
		q.OnDrain(fn)
	}
}

// Enqueue routes the message to the queue of its target agent. Returns
// false when that queue is full.
func (m *Manager) Enqueue(msg core.Message) bool {
	return m.Queue(msg.To).Enqueue(msg)
}

// Queue returns the queue for the given agent, creating it if needed.
func (m *Manager) Queue(agentID string) *Queue {
	m.mu.Lock()
	q, ok := m.queues[agentID]
	if !ok {
		q = New(m.cfg)
		if m.handler != nil {
			q.handler = m.handler
		}
		q.onError = m.onError
		q.onProcessed = m.onProcessed
		q.onDrain = m.onDrain
		if m.paused {
			q.Pause()
		}
		m.queues[agentID] = q
	}
	m.mu.Unlock()
	return q
}

// TotalPending sums queued message counts across all queues.
func (m *Manager) TotalPending() int {
	m.mu.Lock()
	queues := m.snapshotLocked()
	m.mu.Unlock()
	total := 0
	for _, q := range queues {
		total += q.Stats().Depth
	}
	return total
}

// AllStats returns per-agent queue statistics.
func (m *Manager) AllStats() map[string]Stats {
	m.mu.Lock()
	ids := make([]string, 0, len(m.queues))
	queues := make([]*Queue, 0, len(m.queues))
	for id, q := range m.queues {
		ids = append(ids, id)
		queues = append(queues, q)
	}
	m.mu.Unlock()

	out := make(map[string]Stats, len(ids))
	for i, q := range queues {
		out[ids[i]] = q.Stats()
	}
	return out
}

// PauseAll pauses every queue, including queues created later, until
// ResumeAll is called.
func (m *Manager) PauseAll() {
	m.mu.Lock()
	m.paused = true
	queues := m.snapshotLocked()
	m.mu.Unlock()
	for _, q := range queues {
		q.Pause()
	}
}

// ResumeAll resumes every queue.
func (m *Manager) ResumeAll() {
	m.mu.Lock()
	m.paused = false
	queues := m.snapshotLocked()
	m.mu.Unlock()
	for _, q := range queues {
		q.Resume()
	}
}

// Remove clears and drops the queue for an agent. In-flight work finishes
// but its counters are discarded with the queue.
func (m *Manager) Remove(agentID string) {
	m.mu.Lock()
	q, ok := m.queues[agentID]
	delete(m.queues, agentID)
	m.mu.Unlock()
	if ok {
		q.Pause()
		q.Clear()
	}
}

func (m *Manager) snapshotLocked() []*Queue {
	out := make([]*Queue, 0, len(m.queues))
	for _, q := range m.queues {
		out = append(out, q)
	}
	return out
}
