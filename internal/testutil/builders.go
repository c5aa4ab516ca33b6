package testutil

import (
	"fmt"

	"github.com/hupe1980/crewmesh/core"
)

// NewAgent builds an enabled agent descriptor with routing keywords.
// Priority 10 cancels the priority term of the routing score, so the built
// rule scores only on real keyword or pattern hits and messages without a
// hit fall back to the coordinator.
func NewAgent(id string, role core.Role, keywords ...string) core.Agent {
	return core.Agent{
		ID:      id,
		Name:    fmt.Sprintf("Agent %s", id),
		Emoji:   "*",
		Role:    role,
		Enabled: true,
		Routing: core.RoutingConfig{Priority: 10, Keywords: keywords},
	}
}

// NewTaskMessage builds a normal-priority task message.
func NewTaskMessage(from, to, content string) core.Message {
	return core.NewMessage(from, to, core.MessageTask, content)
}
