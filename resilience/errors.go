package resilience

import (
	"sync"
	"time"

	"github.com/hupe1980/crewmesh/core"
)

// Severity grades a crew error.
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// Category names the subsystem an error originated from.
type Category string

const (
	CategoryRouting    Category = "routing"
	CategoryExecution  Category = "execution"
	CategoryDelegation Category = "delegation"
	CategoryTimeout    Category = "timeout"
	CategoryQueue      Category = "queue"
	CategoryReview     Category = "review"
	CategoryMemory     Category = "memory"
	CategoryUnknown    Category = "unknown"
)

// CrewError is a structured, append-only error record. It is a value carried
// through the error log and event bus, not a Go error: routine failures are
// absorbed and reported, never thrown across the engine's API boundary.
type CrewError struct {
	ID             string         `json:"id"`
	Category       Category       `json:"category"`
	Severity       Severity       `json:"severity"`
	Message        string         `json:"message"`
	AgentID        string         `json:"agent_id,omitempty"`
	TaskID         string         `json:"task_id,omitempty"`
	Timestamp      time.Time      `json:"timestamp"`
	Context        map[string]any `json:"context,omitempty"`
	Recoverable    bool           `json:"recoverable"`
	RecoveryAction string         `json:"recovery_action,omitempty"`
}

// ErrorOption customizes a crew error at construction time.
type ErrorOption func(*CrewError)

// WithAgent attributes the error to an agent.
func WithAgent(agentID string) ErrorOption {
	return func(e *CrewError) { e.AgentID = agentID }
}

// WithTask attributes the error to a task.
func WithTask(taskID string) ErrorOption {
	return func(e *CrewError) { e.TaskID = taskID }
}

// WithErrorContext attaches free-form diagnostic context.
func WithErrorContext(ctx map[string]any) ErrorOption {
	return func(e *CrewError) { e.Context = ctx }
}

// Unrecoverable marks the error as not recoverable.
func Unrecoverable() ErrorOption {
	return func(e *CrewError) { e.Recoverable = false }
}

// WithRecoveryAction records the action taken (or suggested) to recover.
func WithRecoveryAction(action string) ErrorOption {
	return func(e *CrewError) { e.RecoveryAction = action }
}

// NewError creates a structured crew error. Errors are recoverable unless
// marked otherwise.
func NewError(category Category, severity Severity, message string, optFns ...ErrorOption) CrewError {
	e := CrewError{
		ID:          core.NewID(),
		Category:    category,
		Severity:    severity,
		Message:     message,
		Timestamp:   time.Now(),
		Recoverable: true,
	}
	for _, fn := range optFns {
		fn(&e)
	}
	return e
}

// Summary aggregates the error log for health displays.
type Summary struct {
	Total      int
	BySeverity map[Severity]int
	ByCategory map[Category]int
	ByAgent    map[string]int
	ErrorRate  float64 // errors per minute over the default window
	LastError  *CrewError
}

const (
	defaultLogCapacity  = 200
	defaultRateWindow   = 5 * time.Minute
	defaultSystemicRate = 5.0 // errors per minute
)

// ErrorLog is a bounded ring buffer of crew errors with rate computation.
// Oldest entries are evicted at capacity.
type ErrorLog struct {
	mu       sync.Mutex
	errors   []CrewError
	capacity int
	clock    core.Clock
}

// LogOption customizes error log construction.
type LogOption func(*ErrorLog)

// WithCapacity overrides the ring buffer capacity (default 200).
func WithCapacity(n int) LogOption {
	return func(l *ErrorLog) {
		if n > 0 {
			l.capacity = n
		}
	}
}

// WithLogClock injects a clock for deterministic rate tests.
func WithLogClock(c core.Clock) LogOption {
	return func(l *ErrorLog) { l.clock = c }
}

// NewErrorLog creates an empty error log.
func NewErrorLog(optFns ...LogOption) *ErrorLog {
	l := &ErrorLog{capacity: defaultLogCapacity, clock: core.SystemClock{}}
	for _, fn := range optFns {
		fn(l)
	}
	return l
}

// Log appends an error, evicting the oldest entry at capacity.
func (l *ErrorLog) Log(err CrewError) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, err)
	if len(l.errors) > l.capacity {
		l.errors = l.errors[len(l.errors)-l.capacity:]
	}
}

// Recent returns the last n errors, oldest first.
func (l *ErrorLog) Recent(n int) []CrewError {
	l.mu.Lock()
	defer l.mu.Unlock()
	if n <= 0 || len(l.errors) == 0 {
		return nil
	}
	if n > len(l.errors) {
		n = len(l.errors)
	}
	out := make([]CrewError, n)
	copy(out, l.errors[len(l.errors)-n:])
	return out
}

// ForAgent returns all logged errors attributed to the agent.
func (l *ErrorLog) ForAgent(agentID string) []CrewError {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []CrewError
	for _, e := range l.errors {
		if e.AgentID == agentID {
			out = append(out, e)
		}
	}
	return out
}

// ByCategory returns all logged errors in the category.
func (l *ErrorLog) ByCategory(category Category) []CrewError {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []CrewError
	for _, e := range l.errors {
		if e.Category == category {
			out = append(out, e)
		}
	}
	return out
}

// Rate returns errors per minute over the trailing window.
func (l *ErrorLog) Rate(window time.Duration) float64 {
	if window <= 0 {
		window = defaultRateWindow
	}
	cutoff := l.clock.Now().Add(-window)
	l.mu.Lock()
	defer l.mu.Unlock()
	count := 0
	for _, e := range l.errors {
		if e.Timestamp.After(cutoff) {
			count++
		}
	}
	return float64(count) / window.Minutes()
}

// HasSystemicIssue reports whether the default-window error rate exceeds the
// threshold (errors per minute; <=0 uses the default of 5).
func (l *ErrorLog) HasSystemicIssue(thresholdPerMinute float64) bool {
	if thresholdPerMinute <= 0 {
		thresholdPerMinute = defaultSystemicRate
	}
	return l.Rate(defaultRateWindow) > thresholdPerMinute
}

// Summary aggregates the log for crew health displays.
func (l *ErrorLog) Summary() Summary {
	rate := l.Rate(defaultRateWindow)
	l.mu.Lock()
	defer l.mu.Unlock()
	s := Summary{
		Total:      len(l.errors),
		BySeverity: map[Severity]int{SeverityWarning: 0, SeverityError: 0, SeverityCritical: 0},
		ByCategory: map[Category]int{},
		ByAgent:    map[string]int{},
		ErrorRate:  rate,
	}
	for _, e := range l.errors {
		s.BySeverity[e.Severity]++
		s.ByCategory[e.Category]++
		if e.AgentID != "" {
			s.ByAgent[e.AgentID]++
		}
	}
	if len(l.errors) > 0 {
		last := l.errors[len(l.errors)-1]
		s.LastError = &last
	}
	return s
}

// Clear drops all logged errors.
func (l *ErrorLog) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = nil
}
