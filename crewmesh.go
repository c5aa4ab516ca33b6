// Package crewmesh provides a high-level façade over the crew engine. Most
// applications interact with this package by:
//  1. Creating a CrewMesh via New() with a crew, or NewFromTemplate() with a
//     built-in crew template
//  2. Sending user messages (SendMessage) and submitting agent results
//  3. Optionally simulating full crew runs (Simulate) with scripted steps
//
// The façade delegates orchestration to engine.Engine while keeping setup
// concise. All defaults are safe for local development and testing;
// persistent deployments supply a sqlite memory store and a structured
// logger.
package crewmesh

import (
	"sync"

	"github.com/hupe1980/crewmesh/config"
	"github.com/hupe1980/crewmesh/core"
	"github.com/hupe1980/crewmesh/engine"
	"github.com/hupe1980/crewmesh/event"
	"github.com/hupe1980/crewmesh/executor"
	"github.com/hupe1980/crewmesh/logging"
	"github.com/hupe1980/crewmesh/memory"
	"github.com/hupe1980/crewmesh/queue"
	"github.com/hupe1980/crewmesh/resilience"
	"github.com/hupe1980/crewmesh/review"
)

// Options configures a CrewMesh instance.
type Options struct {
	// Logger defaults to the NoOp logger.
	Logger logging.Logger
	// Clock defaults to the system clock.
	Clock core.Clock
	// QueueConfig tunes the per-agent message queues.
	QueueConfig queue.Config
	// MemoryStore persists memory snapshots. Defaults to no persistence.
	MemoryStore memory.Store
	// MemoryConfig tunes memory retention and importance thresholds.
	MemoryConfig memory.Config
	// BreakerConfig tunes the per-agent circuit breakers.
	BreakerConfig resilience.BreakerConfig
	// ReviewConfig tunes review verdict thresholds.
	ReviewConfig review.Config
	// Scheduler drives simulated plan playback. Defaults to real timers.
	Scheduler executor.Scheduler
	// Rand supplies jitter for simulated step durations.
	Rand func() float64
}

// CrewMesh is the high-level façade aggregating the engine and the scripted
// executor.
type CrewMesh struct {
	opts   Options
	engine *engine.Engine
}

// New creates a CrewMesh for the given crew with optional overrides.
func New(crew *engine.Crew, optFns ...func(o *Options)) *CrewMesh {
	opts := Options{
		Logger:        logging.NoOpLogger{},
		Clock:         core.SystemClock{},
		QueueConfig:   queue.DefaultConfig(),
		MemoryStore:   memory.NopStore{},
		MemoryConfig:  memory.DefaultConfig(),
		BreakerConfig: resilience.DefaultBreakerConfig(),
		ReviewConfig:  review.DefaultConfig(),
		Scheduler:     executor.TimerScheduler{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	eng := engine.New(crew, func(o *engine.Options) {
		o.Logger = opts.Logger
		o.Clock = opts.Clock
		o.QueueConfig = opts.QueueConfig
		o.MemoryStore = opts.MemoryStore
		o.MemoryConfig = opts.MemoryConfig
		o.BreakerConfig = opts.BreakerConfig
		o.ReviewConfig = opts.ReviewConfig
	})

	return &CrewMesh{opts: opts, engine: eng}
}

// WithRuntime applies tuning loaded from a TOML runtime file to the queue,
// breaker, memory, and review configs.
func WithRuntime(rt config.Runtime) func(o *Options) {
	return func(o *Options) {
		o.QueueConfig = rt.QueueConfig()
		o.BreakerConfig = rt.BreakerConfig()
		o.MemoryConfig = rt.MemoryConfig()
		o.ReviewConfig = rt.ReviewConfig()
	}
}

// NewFromTemplate assembles a crew from a built-in template and creates a
// CrewMesh for it.
func NewFromTemplate(templateID string, optFns ...func(o *Options)) (*CrewMesh, error) {
	agents, coordinatorID, err := config.Assemble(templateID)
	if err != nil {
		return nil, err
	}
	tpl, _ := config.CrewTemplateByID(templateID)
	crew := engine.NewCrew(tpl.Name, tpl.Description, agents, coordinatorID)
	return New(crew, optFns...), nil
}

// Engine exposes the underlying crew engine.
func (m *CrewMesh) Engine() *engine.Engine { return m.engine }

// Events returns the crew event bus.
func (m *CrewMesh) Events() *event.Bus { return m.engine.Bus() }

// SendMessage routes one user message through the crew.
func (m *CrewMesh) SendMessage(content string) engine.RouteResult {
	return m.engine.ProcessUserMessage(content)
}

// SubmitResult records finished work from an agent.
func (m *CrewMesh) SubmitResult(agentID, content, taskID string) engine.TaskResult {
	return m.engine.SubmitResult(agentID, content, taskID)
}

// Pause stops queue processing crew-wide.
func (m *CrewMesh) Pause() { m.engine.Pause() }

// Resume restarts queue processing.
func (m *CrewMesh) Resume() { m.engine.Resume() }

// SaveMemory persists important memory through the configured store.
func (m *CrewMesh) SaveMemory() error { return m.engine.SaveMemory() }

// Simulate routes a user message, builds a scripted execution plan for the
// chosen agent, and plays it back. Execution events are emitted on the bus
// around the optional callbacks, and the final response is submitted as the
// primary agent's result. The returned func cancels playback.
func (m *CrewMesh) Simulate(content string, onStep func(step executor.Step, index int), onComplete func(plan executor.Plan)) func() {
	route := m.engine.ProcessUserMessage(content)

	view := m.engine.AgentsByStatus()
	agents := make([]core.Agent, len(view))
	for i, a := range view {
		agents[i] = a.Agent
	}

	plan := executor.BuildPlan(content, route.RoutedTo, agents, func(o *executor.PlannerOptions) {
		if m.opts.Rand != nil {
			o.Rand = m.opts.Rand
		}
	})

	m.engine.Bus().Emit(event.ExecutionStarted, map[string]any{
		"planId":       plan.ID,
		"primaryAgent": plan.PrimaryAgent,
		"totalSteps":   len(plan.Steps),
	})

	var mu sync.Mutex
	done := false

	cancelPlayback := executor.ExecutePlan(plan,
		func(step executor.Step, index int) {
			m.engine.Bus().Emit(event.ExecutionStep, map[string]any{
				"planId":   plan.ID,
				"index":    index,
				"agentId":  step.AgentID,
				"stepType": string(step.Type),
			})
			if onStep != nil {
				onStep(step, index)
			}
		},
		func(p executor.Plan) {
			mu.Lock()
			done = true
			mu.Unlock()

			m.engine.SubmitResult(p.PrimaryAgent, p.FinalResponse, p.ID)
			m.engine.Bus().Emit(event.ExecutionComplete, map[string]any{
				"planId":  p.ID,
				"agentId": p.PrimaryAgent,
			})
			if onComplete != nil {
				onComplete(p)
			}
		},
		func(o *executor.ExecutorOptions) {
			if m.opts.Scheduler != nil {
				o.Scheduler = m.opts.Scheduler
			}
		},
	)

	return func() {
		mu.Lock()
		alreadyDone := done
		done = true
		mu.Unlock()
		cancelPlayback()
		if !alreadyDone {
			m.engine.Bus().Emit(event.ExecutionCancelled, map[string]any{"planId": plan.ID})
		}
	}
}
