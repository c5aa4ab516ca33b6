// Package engine composes the crew subsystems (routing, queues, memory,
// review, resilience, events) into a single orchestrator for a team of
// agents.
package engine

import (
	"sort"
	"sync"
	"time"

	"github.com/hupe1980/crewmesh/core"
	"github.com/hupe1980/crewmesh/event"
	"github.com/hupe1980/crewmesh/logging"
	"github.com/hupe1980/crewmesh/memory"
	"github.com/hupe1980/crewmesh/queue"
	"github.com/hupe1980/crewmesh/resilience"
	"github.com/hupe1980/crewmesh/review"
)

// RouteResult reports where a user message ended up.
type RouteResult struct {
	RoutedTo   string
	Confidence float64
	Reason     string
}

// TaskResult is the outcome of an agent submitting finished work.
type TaskResult struct {
	TaskID    string
	AgentID   string
	Content   string
	Success   bool
	HandedOff bool
	NextAgent string
	Review    review.Result
}

// AgentStat is one row of crew statistics.
type AgentStat struct {
	ID        string
	Name      string
	Completed int
	Status    core.AgentStatus
}

// Stats is a point-in-time summary of the whole crew.
type Stats struct {
	TotalAgents   int
	ActiveAgents  int
	TotalMessages int
	TotalTasks    int
	AgentStats    []AgentStat
	Quality       review.CrewQuality
	Errors        resilience.Summary
	QueueDepth    int
}

type agentState struct {
	agent          core.Agent
	status         core.AgentStatus
	currentTask    string
	completedTasks int
	lastActive     time.Time
}

// Engine orchestrates a crew: it routes user messages, queues work per
// agent, records memory, reviews results, and trips circuit breakers on
// repeated failures. All exported methods are safe for concurrent use.
type Engine struct {
	mu           sync.Mutex
	crew         *Crew
	agents       map[string]*agentState
	agentOrder   []string
	messageLog   []core.Message
	routingRules []core.RoutingRule
	status       CrewStatus

	bus      *event.Bus
	queues   *queue.Manager
	memory   *memory.CrewMemory
	reviews  *review.Tracker
	errors   *resilience.ErrorLog
	breakers map[string]*resilience.CircuitBreaker

	logger logging.Logger
	clock  core.Clock

	breakerCfg resilience.BreakerConfig
	reviewCfg  review.Config
}

// Options configures an Engine.
type Options struct {
	Logger        logging.Logger
	Clock         core.Clock
	QueueConfig   queue.Config
	MemoryStore   memory.Store
	MemoryConfig  memory.Config
	BreakerConfig resilience.BreakerConfig
	ReviewConfig  review.Config
}

// New builds an engine for a crew, wires the subsystems together, loads
// persisted memory, and emits crew:initialized.
func New(crew *Crew, optFns ...func(o *Options)) *Engine {
	opts := Options{
		Logger:        logging.NoOpLogger{},
		Clock:         core.SystemClock{},
		QueueConfig:   queue.DefaultConfig(),
		MemoryStore:   memory.NopStore{},
		MemoryConfig:  memory.DefaultConfig(),
		BreakerConfig: resilience.DefaultBreakerConfig(),
		ReviewConfig:  review.DefaultConfig(),
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	e := &Engine{
		crew:       crew,
		agents:     make(map[string]*agentState),
		status:     CrewActive,
		bus:        event.NewBus(),
		queues:     queue.NewManager(opts.QueueConfig),
		reviews:    review.NewTracker(),
		breakers:   make(map[string]*resilience.CircuitBreaker),
		logger:     opts.Logger,
		clock:      opts.Clock,
		breakerCfg: opts.BreakerConfig,
		reviewCfg:  opts.ReviewConfig,
	}
	e.memory = memory.NewCrewMemory(crew.ID,
		memory.WithStore(opts.MemoryStore),
		memory.WithClock(opts.Clock),
		memory.WithConfig(opts.MemoryConfig),
	)
	e.errors = resilience.NewErrorLog(resilience.WithLogClock(opts.Clock))

	for _, agent := range crew.Agents {
		e.agents[agent.ID] = &agentState{
			agent:      agent,
			status:     core.StatusIdle,
			lastActive: e.clock.Now(),
		}
		e.agentOrder = append(e.agentOrder, agent.ID)
		e.breakers[agent.ID] = e.newBreaker(agent.ID)
	}
	e.rebuildRoutingRulesLocked()

	e.queues.OnError(func(msg core.Message, err error) {
		crewErr := resilience.NewError(resilience.CategoryQueue, resilience.SeverityError, err.Error(),
			resilience.WithAgent(msg.To),
			resilience.WithErrorContext(map[string]any{"messageId": msg.ID}),
		)
		e.errors.Log(crewErr)
		e.bus.Emit(event.AgentError, map[string]any{"agentId": msg.To, "error": crewErr})
	})

	if err := e.memory.Load(); err != nil {
		e.logger.Warn("failed to load persisted memory", "error", err)
	}

	e.bus.Emit(event.CrewInitialized, map[string]any{
		"crewId":     crew.ID,
		"agentCount": len(crew.Agents),
	})
	return e
}

// newBreaker creates a circuit breaker whose state changes drive agent
// status and circuit events.
func (e *Engine) newBreaker(agentID string) *resilience.CircuitBreaker {
	breaker := resilience.NewCircuitBreaker(agentID,
		resilience.WithBreakerConfig(e.breakerCfg),
		resilience.WithClock(e.clock),
	)
	breaker.OnStateChange(func(id string, state resilience.CircuitState) {
		switch state {
		case resilience.CircuitOpen:
			e.bus.Emit(event.CircuitOpened, map[string]any{"agentId": id})
			e.setAgentStatus(id, core.StatusBlocked)
		case resilience.CircuitClosed:
			e.bus.Emit(event.CircuitClosed, map[string]any{"agentId": id})
			e.setAgentStatus(id, core.StatusIdle)
		case resilience.CircuitHalfOpen:
			e.bus.Emit(event.CircuitHalfOpen, map[string]any{"agentId": id})
		}
	})
	return breaker
}

// Bus returns the engine's event bus.
func (e *Engine) Bus() *event.Bus { return e.bus }

// Queues returns the per-agent queue manager.
func (e *Engine) Queues() *queue.Manager { return e.queues }

// SetTaskHandler registers the function that processes queued messages for
// every agent queue.
func (e *Engine) SetTaskHandler(h queue.Handler) { e.queues.SetHandler(h) }

// Memory returns the crew memory.
func (e *Engine) Memory() *memory.CrewMemory { return e.memory }

// Reviews returns the review tracker.
func (e *Engine) Reviews() *review.Tracker { return e.reviews }

// Errors returns the structured error log.
func (e *Engine) Errors() *resilience.ErrorLog { return e.errors }

// Crew returns the crew configuration this engine was built from.
func (e *Engine) Crew() *Crew { return e.crew }

// Status returns the crew lifecycle state.
func (e *Engine) Status() CrewStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Agent returns the runtime view of one agent.
func (e *Engine) Agent(agentID string) (CrewAgent, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	state, ok := e.agents[agentID]
	if !ok {
		return CrewAgent{}, false
	}
	return state.view(), true
}

// AgentsByStatus returns all agents sorted busiest first (working,
// reviewing, delegating, idle, blocked, offline).
func (e *Engine) AgentsByStatus() []CrewAgent {
	e.mu.Lock()
	out := make([]CrewAgent, 0, len(e.agents))
	for _, state := range e.agents {
		out = append(out, state.view())
	}
	e.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		oi, oj := out[i].Status.SortOrder(), out[j].Status.SortOrder()
		if oi != oj {
			return oi < oj
		}
		return out[i].Agent.ID < out[j].Agent.ID
	})
	return out
}

// ProcessUserMessage routes a user message to the best matching agent. With
// no keyword or pattern match the coordinator takes it; a circuit-broken
// target also falls back to the coordinator.
func (e *Engine) ProcessUserMessage(content string) RouteResult {
	coordinatorID := e.crew.CoordinatorID

	e.memory.Record(core.NewMessage("user", coordinatorID, core.MessageTask, content,
		core.WithContext(core.MessageContext{OriginalRequest: content})))

	e.mu.Lock()
	rules := append([]core.RoutingRule(nil), e.routingRules...)
	e.mu.Unlock()

	decision, matched := core.Route(content, rules)
	if !matched {
		msg := core.NewMessage("user", coordinatorID, core.MessageTask, content,
			core.WithContext(core.MessageContext{OriginalRequest: content}))
		e.enqueue(msg)

		result := RouteResult{
			RoutedTo:   coordinatorID,
			Confidence: 0.5,
			Reason:     "No specialist matched, routed to coordinator",
		}
		e.bus.Emit(event.MessageRouted, map[string]any{
			"message":       msg,
			"targetAgentId": result.RoutedTo,
			"confidence":    result.Confidence,
			"reason":        result.Reason,
		})
		return result
	}

	if breaker := e.breaker(decision.AgentID); breaker != nil && !breaker.CanExecute() {
		msg := core.NewMessage("user", coordinatorID, core.MessageTask, content,
			core.WithContext(core.MessageContext{OriginalRequest: content}))
		e.enqueue(msg)

		e.errors.Log(resilience.NewError(resilience.CategoryRouting, resilience.SeverityWarning,
			"Agent "+decision.AgentID+" circuit breaker is open, falling back to coordinator",
			resilience.WithAgent(decision.AgentID),
			resilience.WithErrorContext(map[string]any{"originalTarget": decision.AgentID}),
		))

		return RouteResult{
			RoutedTo:   coordinatorID,
			Confidence: 0.3,
			Reason:     "Fallback: " + decision.AgentID + " is temporarily unavailable",
		}
	}

	msg := core.NewMessage(coordinatorID, decision.AgentID, core.MessageTask, content,
		core.WithContext(core.MessageContext{OriginalRequest: content}))
	e.enqueue(msg)
	e.setAgentStatus(decision.AgentID, core.StatusWorking)

	e.bus.Emit(event.MessageRouted, map[string]any{
		"message":       msg,
		"targetAgentId": decision.AgentID,
		"confidence":    decision.Confidence,
		"reason":        decision.Reason,
	})
	e.logger.Info("user message routed",
		"target_agent", decision.AgentID,
		"confidence", decision.Confidence,
		"reason", decision.Reason,
	)

	return RouteResult{
		RoutedTo:   decision.AgentID,
		Confidence: decision.Confidence,
		Reason:     decision.Reason,
	}
}

// SubmitResult records finished work from an agent: the result is reviewed,
// the breaker gets success or failure feedback, and the agent goes idle.
func (e *Engine) SubmitResult(agentID, content, taskID string) TaskResult {
	msg := core.NewMessage(agentID, e.crew.CoordinatorID, core.MessageResult, content,
		core.WithContext(core.MessageContext{TaskID: taskID}))
	e.enqueue(msg)
	e.memory.Record(msg)

	e.mu.Lock()
	role := core.RoleSupport
	state, known := e.agents[agentID]
	if known {
		role = state.agent.Role
	}
	e.mu.Unlock()

	result := review.Review(msg, msg.Context.OriginalRequest, role, func(o *review.Config) {
		*o = e.reviewCfg
	})
	e.reviews.Record(result)
	e.bus.Emit(event.ReviewComplete, map[string]any{"result": result})
	e.logger.Info("review completed",
		"agent_id", agentID,
		"verdict", string(result.Verdict),
		"score", result.Score,
	)

	var duration time.Duration
	e.mu.Lock()
	if known {
		duration = e.clock.Now().Sub(state.lastActive)
		state.completedTasks++
		state.currentTask = ""
	}
	e.mu.Unlock()
	e.setAgentStatus(agentID, core.StatusIdle)

	// Breaker feedback runs after the idle transition so that an opening
	// breaker leaves the agent blocked, not idle.
	if breaker := e.breaker(agentID); breaker != nil {
		switch result.Verdict {
		case review.VerdictApproved, review.VerdictNeedsRevision:
			breaker.RecordSuccess()
		case review.VerdictRejected:
			breaker.RecordFailure()
		}
	}

	if e.reviews.ShouldEscalate(agentID) {
		e.bus.Emit(event.ReviewEscalated, map[string]any{
			"agentId": agentID,
			"reason":  "Consistently low quality output",
		})
	}

	resolvedTaskID := taskID
	if resolvedTaskID == "" {
		resolvedTaskID = msg.ID
	}
	e.bus.Emit(event.AgentTaskComplete, map[string]any{
		"agentId":  agentID,
		"taskId":   resolvedTaskID,
		"duration": duration,
	})

	return TaskResult{
		TaskID:  resolvedTaskID,
		AgentID: agentID,
		Content: content,
		Success: result.Verdict != review.VerdictRejected,
		Review:  result,
	}
}

// DelegateTask hands work from one agent to another with context.
func (e *Engine) DelegateTask(handoff core.HandoffRequest) {
	e.setAgentStatus(handoff.FromAgent, core.StatusDelegating)

	msg := core.NewMessage(handoff.FromAgent, handoff.ToAgent, core.MessageDelegate, handoff.Reason,
		core.WithContext(handoff.Context))
	e.enqueue(msg)
	e.memory.Record(msg)

	e.bus.Emit(event.DelegationInitiated, map[string]any{
		"fromAgentId": handoff.FromAgent,
		"toAgentId":   handoff.ToAgent,
		"reason":      handoff.Reason,
	})

	e.setAgentStatus(handoff.FromAgent, core.StatusIdle)
	e.setAgentStatus(handoff.ToAgent, core.StatusWorking)
}

// RequestReview sends output to a reviewer, defaulting to the coordinator.
func (e *Engine) RequestReview(fromAgent, content, reviewerID string) {
	if reviewerID == "" {
		reviewerID = e.crew.CoordinatorID
	}

	msg := core.NewMessage(fromAgent, reviewerID, core.MessageReview, content)
	e.enqueue(msg)
	e.setAgentStatus(reviewerID, core.StatusReviewing)

	e.bus.Emit(event.ReviewRequested, map[string]any{
		"agentId":    fromAgent,
		"reviewerId": reviewerID,
		"messageId":  msg.ID,
	})
}

// AddAgent registers a new agent with routing rules and a fresh breaker.
func (e *Engine) AddAgent(agent core.Agent) {
	e.mu.Lock()
	if _, exists := e.agents[agent.ID]; !exists {
		e.agentOrder = append(e.agentOrder, agent.ID)
	}
	e.agents[agent.ID] = &agentState{
		agent:      agent,
		status:     core.StatusIdle,
		lastActive: e.clock.Now(),
	}
	e.breakers[agent.ID] = e.newBreaker(agent.ID)
	e.rebuildRoutingRulesLocked()
	e.mu.Unlock()

	e.bus.Emit(event.CrewAgentAdded, map[string]any{
		"agentId":   agent.ID,
		"agentName": agent.Name,
	})
}

// RemoveAgent drops an agent, its breaker, its queue, and its routing rule.
func (e *Engine) RemoveAgent(agentID string) {
	e.mu.Lock()
	state, ok := e.agents[agentID]
	delete(e.agents, agentID)
	delete(e.breakers, agentID)
	for i, id := range e.agentOrder {
		if id == agentID {
			e.agentOrder = append(e.agentOrder[:i], e.agentOrder[i+1:]...)
			break
		}
	}
	e.rebuildRoutingRulesLocked()
	e.mu.Unlock()

	e.queues.Remove(agentID)

	if ok {
		e.bus.Emit(event.CrewAgentRemoved, map[string]any{
			"agentId":   agentID,
			"agentName": state.agent.Name,
		})
	}
}

// MessageLog returns a copy of every message that passed through the crew.
func (e *Engine) MessageLog() []core.Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]core.Message(nil), e.messageLog...)
}

// AgentMessages returns messages sent by or to one agent.
func (e *Engine) AgentMessages(agentID string) []core.Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []core.Message
	for _, msg := range e.messageLog {
		if msg.From == agentID || msg.To == agentID {
			out = append(out, msg)
		}
	}
	return out
}

// AgentContext builds the memory context for one agent.
func (e *Engine) AgentContext(agentID string) string {
	return e.memory.BuildAgentContext(agentID)
}

// Stats summarizes the crew: counts, per-agent rows, review quality, error
// summary, and total queue depth.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	stats := Stats{
		TotalAgents:   len(e.agents),
		TotalMessages: len(e.messageLog),
	}
	for _, state := range e.agents {
		if state.status == core.StatusWorking || state.status == core.StatusReviewing {
			stats.ActiveAgents++
		}
		stats.TotalTasks += state.completedTasks
		stats.AgentStats = append(stats.AgentStats, AgentStat{
			ID:        state.agent.ID,
			Name:      state.agent.Name,
			Completed: state.completedTasks,
			Status:    state.status,
		})
	}
	e.mu.Unlock()

	sort.SliceStable(stats.AgentStats, func(i, j int) bool {
		return stats.AgentStats[i].ID < stats.AgentStats[j].ID
	})

	stats.Quality = e.reviews.Quality()
	stats.Errors = e.errors.Summary()
	stats.QueueDepth = e.queues.TotalPending()
	return stats
}

// Pause stops all queues from pulling new work.
func (e *Engine) Pause() {
	e.mu.Lock()
	e.status = CrewPaused
	e.mu.Unlock()
	e.queues.PauseAll()
	e.bus.Emit(event.CrewPaused, map[string]any{"crewId": e.crew.ID})
}

// Resume restarts queue processing.
func (e *Engine) Resume() {
	e.mu.Lock()
	e.status = CrewActive
	e.mu.Unlock()
	e.queues.ResumeAll()
	e.bus.Emit(event.CrewResumed, map[string]any{"crewId": e.crew.ID})
}

// SaveMemory persists important memory entries through the configured
// store and emits memory:saved on success.
func (e *Engine) SaveMemory() error {
	if err := e.memory.Save(); err != nil {
		return err
	}
	e.bus.Emit(event.MemorySaved, map[string]any{"crewId": e.crew.ID})
	return nil
}

// CircuitState returns breaker diagnostics for an agent.
func (e *Engine) CircuitState(agentID string) (resilience.Diagnostics, bool) {
	breaker := e.breaker(agentID)
	if breaker == nil {
		return resilience.Diagnostics{}, false
	}
	return breaker.Diagnostics(), true
}

func (e *Engine) breaker(agentID string) *resilience.CircuitBreaker {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.breakers[agentID]
}

// enqueue appends to the message log and hands the message to the queue
// manager, surfacing overflow as an event plus a logged warning.
func (e *Engine) enqueue(msg core.Message) {
	e.mu.Lock()
	e.messageLog = append(e.messageLog, msg)
	e.mu.Unlock()

	if !e.queues.Enqueue(msg) {
		e.bus.Emit(event.QueueOverflow, map[string]any{"agentId": msg.To, "rejected": msg})
		e.errors.Log(resilience.NewError(resilience.CategoryQueue, resilience.SeverityWarning, "Queue overflow",
			resilience.WithAgent(msg.To),
			resilience.WithErrorContext(map[string]any{"messageId": msg.ID}),
		))
	}

	e.bus.Emit(event.MessageSent, map[string]any{"message": msg})
}

// setAgentStatus updates one agent's status and emits agent:status. Unknown
// agents are ignored.
func (e *Engine) setAgentStatus(agentID string, status core.AgentStatus) {
	e.mu.Lock()
	state, ok := e.agents[agentID]
	if !ok {
		e.mu.Unlock()
		return
	}
	previous := state.status
	state.status = status
	state.lastActive = e.clock.Now()
	e.mu.Unlock()

	e.bus.Emit(event.AgentStatus, map[string]any{
		"agentId":        agentID,
		"previousStatus": previous,
		"newStatus":      status,
	})
}

// rebuildRoutingRulesLocked derives routing rules from the current agent
// set in registration order, excluding the coordinator. Order matters:
// routing ties go to the earliest rule. Caller must hold e.mu.
func (e *Engine) rebuildRoutingRulesLocked() {
	agents := make([]core.Agent, 0, len(e.agents))
	for _, id := range e.agentOrder {
		if state, ok := e.agents[id]; ok {
			agents = append(agents, state.agent)
		}
	}
	e.routingRules = core.BuildRoutingRules(agents, e.crew.CoordinatorID)
}

func (s *agentState) view() CrewAgent {
	return CrewAgent{
		Agent:          s.agent,
		Status:         s.status,
		CurrentTask:    s.currentTask,
		CompletedTasks: s.completedTasks,
		LastActive:     s.lastActive,
	}
}
