package core

import (
	"time"

	"github.com/google/uuid"
)

// MessageType classifies the intent of a crew message.
type MessageType string

const (
	// MessageTask is a new work assignment.
	MessageTask MessageType = "task"
	// MessageResult carries completed work back to the coordinator.
	MessageResult MessageType = "result"
	// MessageDelegate hands work off to another agent.
	MessageDelegate MessageType = "delegate"
	// MessageStatus is a status update.
	MessageStatus MessageType = "status"
	// MessageReview requests review from another agent.
	MessageReview MessageType = "review"
	// MessageFeedback carries review feedback.
	MessageFeedback MessageType = "feedback"
	// MessageEscalate escalates to the coordinator.
	MessageEscalate MessageType = "escalate"
)

// Priority orders messages within an agent's queue.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Weight returns the numeric queue ordering weight (urgent=4 .. low=1).
// Unknown priorities weigh the same as normal.
func (p Priority) Weight() int {
	switch p {
	case PriorityUrgent:
		return 4
	case PriorityHigh:
		return 3
	case PriorityLow:
		return 1
	default:
		return 2
	}
}

// MessageContext carries task correlation data along a message chain.
type MessageContext struct {
	TaskID          string         `json:"task_id,omitempty"`
	OriginalRequest string         `json:"original_request,omitempty"`
	PreviousResults []string       `json:"previous_results,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

// Message is the unit of agent-to-agent communication. It is immutable once
// created: it is appended to the crew's ordered log and to the target agent's
// queue but never mutated afterwards.
type Message struct {
	ID        string         `json:"id"`
	From      string         `json:"from"`
	To        string         `json:"to"`
	Type      MessageType    `json:"type"`
	Priority  Priority       `json:"priority"`
	Content   string         `json:"content"`
	Context   MessageContext `json:"context"`
	ParentID  string         `json:"parent_id,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// MessageOption customizes a message at construction time.
type MessageOption func(*Message)

// WithPriority overrides the default normal priority.
func WithPriority(p Priority) MessageOption {
	return func(m *Message) { m.Priority = p }
}

// WithContext attaches task correlation context.
func WithContext(ctx MessageContext) MessageOption {
	return func(m *Message) { m.Context = ctx }
}

// WithParent links the message into an existing thread.
func WithParent(parentID string) MessageOption {
	return func(m *Message) { m.ParentID = parentID }
}

// WithTimestamp overrides the creation timestamp (used by components that
// inject a Clock; defaults to time.Now).
func WithTimestamp(t time.Time) MessageOption {
	return func(m *Message) { m.Timestamp = t }
}

// NewMessage creates a standardized crew message with a fresh ID and normal
// priority unless overridden by options.
func NewMessage(from, to string, typ MessageType, content string, optFns ...MessageOption) Message {
	m := Message{
		ID:        NewID(),
		From:      from,
		To:        to,
		Type:      typ,
		Priority:  PriorityNormal,
		Content:   content,
		Timestamp: time.Now(),
	}
	for _, fn := range optFns {
		fn(&m)
	}
	return m
}

// HandoffRequest describes one agent handing a task to another while
// preserving the originating context.
type HandoffRequest struct {
	FromAgent       string         `json:"from_agent"`
	ToAgent         string         `json:"to_agent"`
	Reason          string         `json:"reason"`
	Context         MessageContext `json:"context"`
	PreserveHistory bool           `json:"preserve_history"`
}

// NewHandoff creates a handoff request for agent-to-agent delegation.
// History is preserved by default.
func NewHandoff(fromAgent, toAgent, reason string, ctx MessageContext) HandoffRequest {
	return HandoffRequest{
		FromAgent:       fromAgent,
		ToAgent:         toAgent,
		Reason:          reason,
		Context:         ctx,
		PreserveHistory: true,
	}
}

// NewID generates a unique identifier used for messages, memory entries,
// reviews, errors and execution plans.
func NewID() string { return uuid.NewString() }
