package config

import (
	"fmt"
	"os"
	"regexp"

	"github.com/hupe1980/crewmesh/core"
	"gopkg.in/yaml.v3"
)

// agentsFile is the top-level shape of an agent roster file.
type agentsFile struct {
	Agents []agentSpec `yaml:"agents"`
}

// agentSpec mirrors core.Agent with optional fields that fall back to the
// persona catalog. Enabled is a pointer so an omitted value means true.
type agentSpec struct {
	ID      string             `yaml:"id"`
	Name    string             `yaml:"name"`
	Emoji   string             `yaml:"emoji"`
	Role    string             `yaml:"role"`
	Enabled *bool              `yaml:"enabled"`
	Soul    string             `yaml:"soul"`
	Model   core.ModelConfig   `yaml:"model"`
	Routing core.RoutingConfig `yaml:"routing"`
	Color   string             `yaml:"color"`
}

// LoadAgents reads an agent roster from a YAML file. Missing names, emojis
// and models fall back to the built-in persona for the agent's role.
func LoadAgents(path string) ([]core.Agent, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read agents file %s: %w", path, err)
	}
	return ParseAgents(data)
}

// ParseAgents decodes and validates a YAML agent roster.
func ParseAgents(data []byte) ([]core.Agent, error) {
	var file agentsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode agents file: %w", err)
	}
	if len(file.Agents) == 0 {
		return nil, fmt.Errorf("agents file defines no agents")
	}

	seen := make(map[string]bool, len(file.Agents))
	agents := make([]core.Agent, 0, len(file.Agents))
	for i, spec := range file.Agents {
		agent, err := spec.resolve()
		if err != nil {
			return nil, fmt.Errorf("agent %d: %w", i, err)
		}
		if seen[agent.ID] {
			return nil, fmt.Errorf("duplicate agent id %q", agent.ID)
		}
		seen[agent.ID] = true
		agents = append(agents, agent)
	}
	return agents, nil
}

func (s agentSpec) resolve() (core.Agent, error) {
	if s.ID == "" {
		return core.Agent{}, fmt.Errorf("missing id")
	}
	role := core.Role(s.Role)
	if !validRole(role) {
		return core.Agent{}, fmt.Errorf("unknown role %q for agent %q", s.Role, s.ID)
	}
	for _, p := range s.Routing.Patterns {
		if _, err := regexp.Compile(p); err != nil {
			return core.Agent{}, fmt.Errorf("invalid routing pattern %q for agent %q: %w", p, s.ID, err)
		}
	}

	agent := core.Agent{
		ID:      s.ID,
		Name:    s.Name,
		Emoji:   s.Emoji,
		Role:    role,
		Enabled: s.Enabled == nil || *s.Enabled,
		Soul:    s.Soul,
		Model:   s.Model,
		Routing: s.Routing,
		Color:   s.Color,
	}

	if persona, ok := PersonaByRole(role); ok {
		if agent.Name == "" {
			agent.Name = persona.Name
		}
		if agent.Emoji == "" {
			agent.Emoji = persona.Emoji
		}
		if agent.Model.Name == "" {
			agent.Model = persona.Model
		}
		if len(agent.Routing.Keywords) == 0 && len(agent.Routing.Patterns) == 0 {
			agent.Routing.Keywords = append([]string(nil), persona.Routing.Keywords...)
		}
	}
	if agent.Name == "" {
		agent.Name = "Agent " + agent.ID
	}
	return agent, nil
}

func validRole(role core.Role) bool {
	for _, r := range core.Roles() {
		if r == role {
			return true
		}
	}
	return false
}
