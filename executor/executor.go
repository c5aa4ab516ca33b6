// Package executor turns a routed user message into a scripted execution
// plan and plays it back on a timer. Each plan is a sequence of timed steps
// (thinking, delegating, working, reviewing, complete) derived from canned
// role behavior. This is the stand-in adapter until real model calls land.
package executor

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/hupe1980/crewmesh/core"
)

// StepType describes what an agent is doing in one step.
type StepType string

const (
	StepThinking   StepType = "thinking"
	StepWorking    StepType = "working"
	StepDelegating StepType = "delegating"
	StepReviewing  StepType = "reviewing"
	StepComplete   StepType = "complete"
)

// Step is one timed unit of an execution plan. Offset is the delay from
// plan start at which the step fires.
type Step struct {
	AgentID    string
	AgentName  string
	AgentEmoji string
	Type       StepType
	Content    string
	Duration   time.Duration
	Offset     time.Duration
}

// Delegation records one hand-off inside a plan.
type Delegation struct {
	From   string
	To     string
	Reason string
}

// Plan is a fully built execution script for a single user message.
type Plan struct {
	ID            string
	UserMessage   string
	Steps         []Step
	PrimaryAgent  string
	Delegations   []Delegation
	FinalResponse string
	TotalDuration time.Duration
}

// PlannerOptions configures plan building.
type PlannerOptions struct {
	// Rand supplies jitter in [0, 1) for step durations. Defaults to
	// math/rand; inject a constant for deterministic plans.
	Rand func() float64
}

// BuildPlan scripts how the crew handles a user message once routing chose
// a primary agent. The coordinator books routing and review steps around
// the primary's work, and responder hints insert a delegation leg.
func BuildPlan(userMessage, primaryAgentID string, agents []core.Agent, optFns ...func(o *PlannerOptions)) Plan {
	opts := PlannerOptions{Rand: rand.Float64}
	for _, fn := range optFns {
		fn(&opts)
	}

	var primary *core.Agent
	var coordinator *core.Agent
	for i := range agents {
		if agents[i].ID == primaryAgentID {
			primary = &agents[i]
		}
		if coordinator == nil && agents[i].Role == core.RoleCoordinator {
			coordinator = &agents[i]
		}
	}

	if primary == nil {
		return Plan{
			ID:            core.NewID(),
			UserMessage:   userMessage,
			PrimaryAgent:  primaryAgentID,
			FinalResponse: "No agent available to handle this request.",
		}
	}

	result := Respond(primary.Role, userMessage)

	jitter := func(base, spread time.Duration) time.Duration {
		return base + time.Duration(opts.Rand()*float64(spread))
	}

	var steps []Step
	var delegations []Delegation
	var offset time.Duration

	push := func(agent *core.Agent, typ StepType, content string, duration time.Duration) {
		steps = append(steps, Step{
			AgentID:    agent.ID,
			AgentName:  agent.Name,
			AgentEmoji: agent.Emoji,
			Type:       typ,
			Content:    content,
			Duration:   duration,
			Offset:     offset,
		})
		offset += duration
	}

	hasCoordinator := coordinator != nil && coordinator.ID != primaryAgentID
	if hasCoordinator {
		preview := userMessage
		if len(preview) > 60 {
			preview = preview[:60]
		}
		push(coordinator, StepThinking,
			fmt.Sprintf("Routing to %s: %q", primary.Name, preview+"..."),
			jitter(600*time.Millisecond, 400*time.Millisecond))
		push(coordinator, StepDelegating,
			fmt.Sprintf("Handing off to %s %s", primary.Emoji, primary.Name),
			300*time.Millisecond)
	}

	push(primary, StepThinking, result.Thinking, jitter(800*time.Millisecond, 600*time.Millisecond))

	if result.Delegate != nil {
		var target *core.Agent
		for i := range agents {
			if agents[i].Role == result.Delegate.ToRole && agents[i].Enabled {
				target = &agents[i]
				break
			}
		}
		if target != nil {
			push(primary, StepDelegating,
				fmt.Sprintf("Delegating to %s %s: %s", target.Emoji, target.Name, result.Delegate.Reason),
				400*time.Millisecond)
			delegations = append(delegations, Delegation{
				From:   primary.ID,
				To:     target.ID,
				Reason: result.Delegate.Reason,
			})

			targetResult := Respond(target.Role, userMessage)
			push(target, StepThinking, targetResult.Thinking, jitter(800*time.Millisecond, 800*time.Millisecond))
			push(target, StepWorking, targetResult.Answer, jitter(1200*time.Millisecond, time.Second))
			push(primary, StepWorking,
				fmt.Sprintf("Incorporating %s's work into my response...", target.Name),
				600*time.Millisecond)
		}
	}

	push(primary, StepWorking, result.Answer, jitter(1200*time.Millisecond, 1200*time.Millisecond))

	if hasCoordinator {
		push(coordinator, StepReviewing,
			fmt.Sprintf("Reviewing %s's output... Looks good.", primary.Name),
			jitter(500*time.Millisecond, 500*time.Millisecond))
	}

	push(primary, StepComplete, result.Answer, 0)

	return Plan{
		ID:            core.NewID(),
		UserMessage:   userMessage,
		Steps:         steps,
		PrimaryAgent:  primaryAgentID,
		Delegations:   delegations,
		FinalResponse: result.Answer,
		TotalDuration: offset,
	}
}

// Scheduler schedules deferred callbacks. The returned cancel func stops
// the callback from firing if it has not run yet.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) (cancel func())
}

// TimerScheduler schedules on real timers.
type TimerScheduler struct{}

// AfterFunc implements Scheduler with time.AfterFunc.
func (TimerScheduler) AfterFunc(d time.Duration, f func()) func() {
	t := time.AfterFunc(d, f)
	return func() { t.Stop() }
}

// ExecutorOptions configures plan playback.
type ExecutorOptions struct {
	Scheduler Scheduler
}

// ExecutePlan plays the plan back, invoking onStep at each step's offset
// and onComplete after the last step. The returned func cancels any steps
// that have not fired yet.
func ExecutePlan(plan Plan, onStep func(step Step, index int), onComplete func(plan Plan), optFns ...func(o *ExecutorOptions)) func() {
	opts := ExecutorOptions{Scheduler: TimerScheduler{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	var mu sync.Mutex
	cancelled := false
	cancels := make([]func(), 0, len(plan.Steps))

	if len(plan.Steps) == 0 {
		if onComplete != nil {
			onComplete(plan)
		}
		return func() {}
	}

	for i, step := range plan.Steps {
		i, step := i, step
		cancel := opts.Scheduler.AfterFunc(step.Offset, func() {
			mu.Lock()
			stop := cancelled
			mu.Unlock()
			if stop {
				return
			}
			if onStep != nil {
				onStep(step, i)
			}
			if i == len(plan.Steps)-1 && onComplete != nil {
				onComplete(plan)
			}
		})
		cancels = append(cancels, cancel)
	}

	return func() {
		mu.Lock()
		cancelled = true
		mu.Unlock()
		for _, cancel := range cancels {
			cancel()
		}
	}
}
