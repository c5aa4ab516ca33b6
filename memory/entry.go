package memory

import "time"

// EntryType classifies what a working-memory entry holds.
type EntryType string

const (
	EntryConversation   EntryType = "conversation"
	EntryFact           EntryType = "fact"
	EntryTaskResult     EntryType = "task_result"
	EntryUserPreference EntryType = "user_preference"
	EntryDelegation     EntryType = "delegation"
)

// Entry is one item of working memory. Importance drives eviction and
// persistence; a zero ExpiresAt means the entry never expires.
type Entry struct {
	ID         string    `json:"id"`
	AgentID    string    `json:"agentId"`
	Type       EntryType `json:"type"`
	Content    string    `json:"content"`
	Summary    string    `json:"summary,omitempty"`
	Tags       []string  `json:"tags,omitempty"`
	Importance float64   `json:"importance"`
	CreatedAt  time.Time `json:"createdAt"`
	AccessedAt time.Time `json:"accessedAt"`
	ExpiresAt  time.Time `json:"expiresAt,omitempty"`
}

// TurnRole identifies the speaker of a conversation turn.
type TurnRole string

const (
	TurnUser   TurnRole = "user"
	TurnAgent  TurnRole = "agent"
	TurnSystem TurnRole = "system"
)

// Turn is one utterance in a conversation thread.
type Turn struct {
	Role      TurnRole  `json:"role"`
	AgentID   string    `json:"agentId,omitempty"`
	AgentName string    `json:"agentName,omitempty"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Config tunes memory capacity and persistence.
type Config struct {
	// MaxShortTermTurns bounds the conversation window per agent.
	MaxShortTermTurns int
	// MaxWorkingEntries bounds working memory; the least important entry
	// is evicted when the cap is exceeded.
	MaxWorkingEntries int
	// MaxLongTermEntries bounds how many entries a snapshot may carry.
	MaxLongTermEntries int
	// ImportanceThreshold is the minimum importance an entry needs to be
	// included in a snapshot.
	ImportanceThreshold float64
}

// DefaultConfig returns the standard memory tuning.
func DefaultConfig() Config {
	return Config{
		MaxShortTermTurns:   20,
		MaxWorkingEntries:   50,
		MaxLongTermEntries:  200,
		ImportanceThreshold: 0.3,
	}
}

// Stats summarizes one agent's memory usage.
type Stats struct {
	ShortTermTurns int
	WorkingEntries int
	// OldestMemory is zero when working memory is empty.
	OldestMemory time.Time
}
