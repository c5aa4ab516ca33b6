package config

import (
	"fmt"

	"github.com/hupe1980/crewmesh/core"
)

// Complexity buckets crew templates for presentation.
type Complexity string

const (
	ComplexityStarter  Complexity = "starter"
	ComplexityStandard Complexity = "standard"
	ComplexityAdvanced Complexity = "advanced"
)

// CrewTemplate is a pre-built crew composition. AgentIDs reference the
// built-in persona catalog.
type CrewTemplate struct {
	ID            string
	Name          string
	Tagline       string
	Description   string
	AgentIDs      []string
	CoordinatorID string
	Recommended   bool
	UseCases      []string
	Complexity    Complexity
}

var crewTemplates = []CrewTemplate{
	{
		ID:            "solo-plus",
		Name:          "Solo+",
		Tagline:       "One agent with a coordinator backup",
		Description:   "A coordinator handles routing while one specialist does the heavy lifting. Add more agents anytime.",
		AgentIDs:      []string{"coordinator"},
		CoordinatorID: "coordinator",
		UseCases:      []string{"Personal projects", "Simple automation"},
		Complexity:    ComplexityStarter,
	},
	{
		ID:            "startup-crew",
		Name:          "Startup Crew",
		Tagline:       "Build fast, ship faster",
		Description:   "A lean team for builders: an engineer for code, a researcher for deep dives, and a creative for design work.",
		AgentIDs:      []string{"coordinator", "engineer", "researcher", "creative"},
		CoordinatorID: "coordinator",
		Recommended:   true,
		UseCases:      []string{"Software development", "Product building", "Technical projects", "Side projects"},
		Complexity:    ComplexityStandard,
	},
	{
		ID:            "content-crew",
		Name:          "Content Crew",
		Tagline:       "Create, research, publish",
		Description:   "A writer crafts the words, a researcher provides the facts, and a creative handles visuals.",
		AgentIDs:      []string{"coordinator", "writer", "researcher", "creative"},
		CoordinatorID: "coordinator",
		Recommended:   true,
		UseCases:      []string{"Blog & newsletter writing", "Social media management", "Marketing content", "Documentation"},
		Complexity:    ComplexityStandard,
	},
	{
		ID:            "dev-team",
		Name:          "Dev Team",
		Tagline:       "Ship quality code",
		Description:   "An engineer builds, an analyst reviews metrics, support handles user issues, and the coordinator keeps priorities straight.",
		AgentIDs:      []string{"coordinator", "engineer", "analyst", "support"},
		CoordinatorID: "coordinator",
		UseCases:      []string{"SaaS development", "Open source projects", "API development", "DevOps workflows"},
		Complexity:    ComplexityStandard,
	},
	{
		ID:            "business-ops",
		Name:          "Business Ops",
		Tagline:       "Run your business on autopilot",
		Description:   "A scheduler keeps you organized, an analyst tracks the numbers, a writer handles comms, and support manages clients.",
		AgentIDs:      []string{"coordinator", "scheduler", "analyst", "writer", "support"},
		CoordinatorID: "coordinator",
		UseCases:      []string{"Small business management", "Client management", "Operations tracking", "Business reporting"},
		Complexity:    ComplexityAdvanced,
	},
	{
		ID:            "full-stack",
		Name:          "Full Stack",
		Tagline:       "The whole team",
		Description:   "All eight agents working together, with the coordinator routing everything to the right specialist.",
		AgentIDs:      []string{"coordinator", "engineer", "researcher", "creative", "scheduler", "writer", "analyst", "support"},
		CoordinatorID: "coordinator",
		UseCases:      []string{"Enterprise workflows", "Complex projects", "Full business automation", "Agency operations"},
		Complexity:    ComplexityAdvanced,
	},
}

// CrewTemplates returns every built-in crew template in stable order.
func CrewTemplates() []CrewTemplate {
	return append([]CrewTemplate(nil), crewTemplates...)
}

// CrewTemplateByID looks up one crew template.
func CrewTemplateByID(id string) (CrewTemplate, bool) {
	for _, t := range crewTemplates {
		if t.ID == id {
			return t, true
		}
	}
	return CrewTemplate{}, false
}

// RecommendedTemplates returns the templates flagged as recommended.
func RecommendedTemplates() []CrewTemplate {
	var out []CrewTemplate
	for _, t := range crewTemplates {
		if t.Recommended {
			out = append(out, t)
		}
	}
	return out
}

// TemplatesByComplexity filters templates by complexity bucket.
func TemplatesByComplexity(c Complexity) []CrewTemplate {
	var out []CrewTemplate
	for _, t := range crewTemplates {
		if t.Complexity == c {
			out = append(out, t)
		}
	}
	return out
}

// Assemble resolves a crew template into concrete agent descriptors from the
// persona catalog.
func Assemble(templateID string) ([]core.Agent, string, error) {
	t, ok := CrewTemplateByID(templateID)
	if !ok {
		return nil, "", fmt.Errorf("unknown crew template %q", templateID)
	}
	agents := make([]core.Agent, 0, len(t.AgentIDs))
	for _, id := range t.AgentIDs {
		p, ok := PersonaByID(id)
		if !ok {
			return nil, "", fmt.Errorf("crew template %q references unknown persona %q", templateID, id)
		}
		agents = append(agents, p)
	}
	return agents, t.CoordinatorID, nil
}
