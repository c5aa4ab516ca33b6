package engine

import (
	"time"

	"github.com/hupe1980/crewmesh/core"
)

// CrewStatus is the lifecycle state of a crew.
type CrewStatus string

const (
	CrewActive    CrewStatus = "active"
	CrewPaused    CrewStatus = "paused"
	CrewDeploying CrewStatus = "deploying"
	CrewError     CrewStatus = "error"
)

// Crew describes a team of agents and its coordinator. It is the static
// configuration an Engine is built from; runtime state lives in the Engine.
type Crew struct {
	ID            string
	Name          string
	Description   string
	Agents        []core.Agent
	CoordinatorID string
	CreatedAt     time.Time
}

// NewCrew assembles a crew from agent descriptors. The coordinator is the
// given id when set, otherwise the first agent with the coordinator role,
// otherwise the first agent.
func NewCrew(name, description string, agents []core.Agent, coordinatorID string) *Crew {
	if coordinatorID == "" {
		for _, a := range agents {
			if a.Role == core.RoleCoordinator {
				coordinatorID = a.ID
				break
			}
		}
	}
	if coordinatorID == "" && len(agents) > 0 {
		coordinatorID = agents[0].ID
	}

	return &Crew{
		ID:            core.NewID(),
		Name:          name,
		Description:   description,
		Agents:        append([]core.Agent(nil), agents...),
		CoordinatorID: coordinatorID,
		CreatedAt:     time.Now(),
	}
}

// CrewAgent is the runtime view of one agent inside an engine.
type CrewAgent struct {
	Agent          core.Agent
	Status         core.AgentStatus
	CurrentTask    string
	CompletedTasks int
	LastActive     time.Time
}
