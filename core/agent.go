package core

import "time"

// Role is the closed set of specialist roles a crew agent can take.
type Role string

const (
	RoleCoordinator Role = "coordinator"
	RoleEngineer    Role = "engineer"
	RoleResearcher  Role = "researcher"
	RoleCreative    Role = "creative"
	RoleScheduler   Role = "scheduler"
	RoleWriter      Role = "writer"
	RoleAnalyst     Role = "analyst"
	RoleSupport     Role = "support"
)

// Roles lists every known role in a stable order.
func Roles() []Role {
	return []Role{
		RoleCoordinator, RoleEngineer, RoleResearcher, RoleCreative,
		RoleScheduler, RoleWriter, RoleAnalyst, RoleSupport,
	}
}

// AgentStatus is the lifecycle state the engine tracks per agent.
type AgentStatus string

const (
	StatusIdle       AgentStatus = "idle"
	StatusWorking    AgentStatus = "working"
	StatusDelegating AgentStatus = "delegating"
	StatusReviewing  AgentStatus = "reviewing"
	StatusBlocked    AgentStatus = "blocked"
	StatusOffline    AgentStatus = "offline"
)

// SortOrder returns the display ordering used when listing agents by
// status: working first, offline last.
func (s AgentStatus) SortOrder() int {
	switch s {
	case StatusWorking:
		return 0
	case StatusReviewing:
		return 1
	case StatusDelegating:
		return 2
	case StatusIdle:
		return 3
	case StatusBlocked:
		return 4
	default:
		return 5
	}
}

// RoutingConfig holds the per-agent inputs routing rules are derived from.
type RoutingConfig struct {
	Priority     int      `json:"priority" yaml:"priority"`
	Keywords     []string `json:"keywords" yaml:"keywords"`
	Patterns     []string `json:"patterns" yaml:"patterns"`
	Channels     []string `json:"channels" yaml:"channels"`
	AlwaysReview bool     `json:"always_review" yaml:"always_review"`
}

// ModelConfig describes the model an agent would use. It is purely
// descriptive: nothing in this module performs real inference.
type ModelConfig struct {
	Provider    string  `json:"provider" yaml:"provider"`
	Name        string  `json:"name" yaml:"name"`
	Temperature float64 `json:"temperature" yaml:"temperature"`
	MaxTokens   int     `json:"max_tokens" yaml:"max_tokens"`
}

// Agent is the static descriptor supplied by the persona/config layer at
// session start. The orchestration core reads a snapshot of these once per
// session and never writes back.
type Agent struct {
	ID        string        `json:"id" yaml:"id"`
	Name      string        `json:"name" yaml:"name"`
	Emoji     string        `json:"emoji" yaml:"emoji"`
	Role      Role          `json:"role" yaml:"role"`
	Enabled   bool          `json:"enabled" yaml:"enabled"`
	Soul      string        `json:"soul,omitempty" yaml:"soul,omitempty"`
	Model     ModelConfig   `json:"model" yaml:"model"`
	Routing   RoutingConfig `json:"routing" yaml:"routing"`
	Color     string        `json:"color,omitempty" yaml:"color,omitempty"`
	CreatedAt time.Time     `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	UpdatedAt time.Time     `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
}
