package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hupe1980/crewmesh/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig() Config {
	return Config{
		MaxConcurrent:     1,
		MaxRetries:        3,
		RetryDelay:        time.Millisecond,
		ProcessingTimeout: time.Second,
		MaxQueueSize:      100,
	}
}

// orderRecorder collects the content of every message a handler sees.
type orderRecorder struct {
	mu   sync.Mutex
	seen []string
}

func (r *orderRecorder) handler(_ context.Context, msg core.Message) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, msg.Content)
	return "ok", nil
}

func (r *orderRecorder) order() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.seen...)
}

func waitDrain(t *testing.T, drained <-chan struct{}) {
	t.Helper()
	select {
	case <-drained:
	case <-time.After(2 * time.Second):
		t.Fatal("queue did not drain in time")
	}
}

func msgWithPriority(content string, p core.Priority) core.Message {
	return core.NewMessage("user", "eng", core.MessageTask, content, core.WithPriority(p))
}

func TestQueue_PriorityOrdering(t *testing.T) {
	q := New(fastConfig())
	rec := &orderRecorder{}
	drained := make(chan struct{})
	q.OnDrain(func() { close(drained) })

	q.Pause()
	q.SetHandler(rec.handler)
	for _, m := range []core.Message{
		msgWithPriority("low", core.PriorityLow),
		msgWithPriority("urgent-1", core.PriorityUrgent),
		msgWithPriority("normal", core.PriorityNormal),
		msgWithPriority("high", core.PriorityHigh),
		msgWithPriority("urgent-2", core.PriorityUrgent),
	} {
		require.True(t, q.Enqueue(m))
	}
	q.Resume()

	waitDrain(t, drained)
	assert.Equal(t, []string{"urgent-1", "urgent-2", "high", "normal", "low"}, rec.order())
}

func TestQueue_RejectsWhenFull(t *testing.T) {
	cfg := fastConfig()
	cfg.MaxQueueSize = 2
	q := New(cfg)
	q.Pause()

	assert.True(t, q.Enqueue(msgWithPriority("a", core.PriorityNormal)))
	assert.True(t, q.Enqueue(msgWithPriority("b", core.PriorityNormal)))
	assert.False(t, q.Enqueue(msgWithPriority("c", core.PriorityUrgent)))
	assert.Equal(t, 2, q.Stats().Depth)
}

func TestQueue_RetriesThenSucceeds(t *testing.T) {
	q := New(fastConfig())
	drained := make(chan struct{})
	q.OnDrain(func() { close(drained) })

	var mu sync.Mutex
	attempts := 0
	q.SetHandler(func(_ context.Context, _ core.Message) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		if attempts < 3 {
			return "", errors.New("flaky")
		}
		return "done", nil
	})

	require.True(t, q.Enqueue(msgWithPriority("task", core.PriorityNormal)))
	waitDrain(t, drained)

	stats := q.Stats()
	assert.Equal(t, 1, stats.Processed)
	assert.Zero(t, stats.Failed)
	mu.Lock()
	assert.Equal(t, 3, attempts)
	mu.Unlock()
}

func TestQueue_FailsOnceAfterRetryBudget(t *testing.T) {
	cfg := fastConfig()
	cfg.MaxRetries = 2
	q := New(cfg)
	drained := make(chan struct{})
	q.OnDrain(func() { close(drained) })

	var mu sync.Mutex
	attempts := 0
	var failures []error
	q.OnError(func(_ core.Message, err error) {
		mu.Lock()
		failures = append(failures, err)
		mu.Unlock()
	})
	q.SetHandler(func(_ context.Context, _ core.Message) (string, error) {
		mu.Lock()
		attempts++
		mu.Unlock()
		return "", errors.New("permanent")
	})

	require.True(t, q.Enqueue(msgWithPriority("task", core.PriorityNormal)))
	waitDrain(t, drained)

	stats := q.Stats()
	assert.Zero(t, stats.Processed)
	assert.Equal(t, 1, stats.Failed)
	mu.Lock()
	assert.Equal(t, 3, attempts) // initial attempt + 2 retries
	assert.Len(t, failures, 1)
	mu.Unlock()
}

func TestQueue_ProcessingTimeout(t *testing.T) {
	cfg := fastConfig()
	cfg.MaxRetries = 0
	cfg.ProcessingTimeout = 20 * time.Millisecond
	q := New(cfg)
	drained := make(chan struct{})
	q.OnDrain(func() { close(drained) })

	var mu sync.Mutex
	var gotErr error
	q.OnError(func(_ core.Message, err error) {
		mu.Lock()
		gotErr = err
		mu.Unlock()
	})
	q.SetHandler(func(ctx context.Context, _ core.Message) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})

	require.True(t, q.Enqueue(msgWithPriority("slow", core.PriorityNormal)))
	waitDrain(t, drained)

	mu.Lock()
	assert.ErrorIs(t, gotErr, ErrProcessingTimeout)
	mu.Unlock()
	assert.Equal(t, 1, q.Stats().Failed)
}

func TestQueue_PauseHoldsWork(t *testing.T) {
	q := New(fastConfig())
	rec := &orderRecorder{}
	q.SetHandler(rec.handler)

	q.Pause()
	require.True(t, q.Enqueue(msgWithPriority("held", core.PriorityNormal)))
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, rec.order())
	assert.Equal(t, StatusPaused, q.Stats().Status)

	drained := make(chan struct{})
	q.OnDrain(func() { close(drained) })
	q.Resume()
	waitDrain(t, drained)
	assert.Equal(t, []string{"held"}, rec.order())
}

func TestQueue_OnProcessedCallback(t *testing.T) {
	q := New(fastConfig())
	drained := make(chan struct{})
	q.OnDrain(func() { close(drained) })

	var mu sync.Mutex
	var results []string
	q.OnProcessed(func(_ core.Message, result string) {
		mu.Lock()
		results = append(results, result)
		mu.Unlock()
	})
	q.SetHandler(func(_ context.Context, msg core.Message) (string, error) {
		return "handled:" + msg.Content, nil
	})

	require.True(t, q.Enqueue(msgWithPriority("a", core.PriorityNormal)))
	waitDrain(t, drained)

	mu.Lock()
	assert.Equal(t, []string{"handled:a"}, results)
	mu.Unlock()
}

func TestQueue_ClearDiscardsPending(t *testing.T) {
	q := New(fastConfig())
	q.Pause()
	q.Enqueue(msgWithPriority("a", core.PriorityNormal))
	q.Enqueue(msgWithPriority("b", core.PriorityNormal))

	q.Clear()
	assert.Empty(t, q.Pending())
	assert.Zero(t, q.Stats().Depth)
}

func TestQueue_StatsTracksAverage(t *testing.T) {
	q := New(fastConfig())
	drained := make(chan struct{})
	q.OnDrain(func() { close(drained) })
	q.SetHandler(func(_ context.Context, _ core.Message) (string, error) {
		time.Sleep(5 * time.Millisecond)
		return "ok", nil
	})

	require.True(t, q.Enqueue(msgWithPriority("a", core.PriorityNormal)))
	waitDrain(t, drained)

	stats := q.Stats()
	assert.Equal(t, 1, stats.Processed)
	assert.GreaterOrEqual(t, stats.AvgProcessingTime, 5*time.Millisecond)
	assert.Equal(t, StatusIdle, stats.Status)
}

func TestManager_RoutesByTarget(t *testing.T) {
	m := NewManager(fastConfig())
	rec := &orderRecorder{}
	var mu sync.Mutex
	drains := 0
	drained := make(chan struct{}, 4)
	m.OnDrain(func() {
		mu.Lock()
		drains++
		mu.Unlock()
		drained <- struct{}{}
	})
	m.SetHandler(rec.handler)

	require.True(t, m.Enqueue(core.NewMessage("user", "eng", core.MessageTask, "for-eng")))
	require.True(t, m.Enqueue(core.NewMessage("user", "res", core.MessageTask, "for-res")))

	for i := 0; i < 2; i++ {
		waitDrain(t, drained)
	}
	assert.ElementsMatch(t, []string{"for-eng", "for-res"}, rec.order())
	assert.Len(t, m.AllStats(), 2)
}

func TestManager_LazyQueueCreationInheritsCallbacks(t *testing.T) {
	m := NewManager(fastConfig())
	rec := &orderRecorder{}
	m.SetHandler(rec.handler)
	drained := make(chan struct{})
	m.OnDrain(func() { close(drained) })

	// Queue for "new-agent" does not exist yet; it must pick up the
	// shared handler and callbacks on creation.
	require.True(t, m.Enqueue(core.NewMessage("user", "new-agent", core.MessageTask, "hello")))
	waitDrain(t, drained)
	assert.Equal(t, []string{"hello"}, rec.order())
}

func TestManager_TotalPending(t *testing.T) {
	m := NewManager(fastConfig())
	m.PauseAll()
	m.Queue("eng").Pause()
	m.Queue("res").Pause()

	m.Enqueue(core.NewMessage("user", "eng", core.MessageTask, "a"))
	m.Enqueue(core.NewMessage("user", "eng", core.MessageTask, "b"))
	m.Enqueue(core.NewMessage("user", "res", core.MessageTask, "c"))

	assert.Equal(t, 3, m.TotalPending())
}

func TestManager_PauseAllResumeAll(t *testing.T) {
	m := NewManager(fastConfig())
	rec := &orderRecorder{}
	m.SetHandler(rec.handler)
	eng := m.Queue("eng")
	res := m.Queue("res")

	m.PauseAll()
	assert.Equal(t, StatusPaused, eng.Stats().Status)
	assert.Equal(t, StatusPaused, res.Stats().Status)

	drained := make(chan struct{}, 2)
	m.OnDrain(func() { drained <- struct{}{} })
	m.Enqueue(core.NewMessage("user", "eng", core.MessageTask, "a"))

	m.ResumeAll()
	waitDrain(t, drained)
	assert.Equal(t, []string{"a"}, rec.order())
}

func TestManager_Remove(t *testing.T) {
	m := NewManager(fastConfig())
	m.Queue("eng").Pause()
	m.Enqueue(core.NewMessage("user", "eng", core.MessageTask, "doomed"))

	m.Remove("eng")
	assert.Zero(t, m.TotalPending())
	assert.Empty(t, m.AllStats())
}
