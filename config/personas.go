package config

import (
	"github.com/hupe1980/crewmesh/core"
)

// defaultModel is the descriptive model config personas start with. Nothing
// in this module performs real inference.
func defaultModel(name string) core.ModelConfig {
	return core.ModelConfig{
		Provider:    "anthropic",
		Name:        name,
		Temperature: 0.7,
		MaxTokens:   4096,
	}
}

// personas is the built-in catalog, one per role. The coordinator carries no
// keywords: it is the routing fallback, not a routing target.
var personas = []core.Agent{
	{
		ID:      "coordinator",
		Name:    "The Boss",
		Emoji:   "\U0001F0CF",
		Role:    core.RoleCoordinator,
		Enabled: true,
		Soul:    "Strategic leader of the crew. Routes incoming requests to the right specialist, reviews their work for quality, and handles whatever no specialist fits.",
		Model:   defaultModel("claude-opus-4"),
	},
	{
		ID:      "engineer",
		Name:    "The Builder",
		Emoji:   "\U0001F43A",
		Role:    core.RoleEngineer,
		Enabled: true,
		Soul:    "Hands-on builder who turns ideas into working code. Writes clean, maintainable implementations and hands research-heavy questions to the researcher.",
		Model:   defaultModel("claude-sonnet-4"),
		Routing: core.RoutingConfig{
			Keywords: []string{"build", "code", "fix", "implement", "debug", "script", "function"},
		},
	},
	{
		ID:      "researcher",
		Name:    "The Brain",
		Emoji:   "\U0001F535",
		Role:    core.RoleResearcher,
		Enabled: true,
		Soul:    "Analytical mind who digs deep into topics and produces clear, well-structured insights. Works upstream of the engineer and hands quantitative work to the analyst.",
		Model:   defaultModel("claude-opus-4"),
		Routing: core.RoutingConfig{
			Keywords: []string{"research", "analyze", "investigate", "why", "how", "explain", "compare"},
		},
	},
	{
		ID:      "creative",
		Name:    "The Artist",
		Emoji:   "\U0001F534",
		Role:    core.RoleCreative,
		Enabled: true,
		Soul:    "Visual thinker who brings ideas to life through design concepts, imagery, and creative direction.",
		Model:   defaultModel("claude-sonnet-4"),
		Routing: core.RoutingConfig{
			Keywords: []string{"design", "image", "create visual", "logo", "art", "sketch", "mockup"},
		},
	},
	{
		ID:      "scheduler",
		Name:    "The Keeper",
		Emoji:   "\U0001F7E2",
		Role:    core.RoleScheduler,
		Enabled: true,
		Soul:    "Reliable timekeeper for reminders, recurring tasks, and automated briefings. Schedules the work, delegates the doing.",
		Model:   defaultModel("claude-sonnet-4"),
		Routing: core.RoutingConfig{
			Keywords: []string{"remind", "schedule", "every day", "daily", "weekly", "calendar", "when"},
		},
	},
	{
		ID:      "writer",
		Name:    "The Wordsmith",
		Emoji:   "✍️",
		Role:    core.RoleWriter,
		Enabled: true,
		Soul:    "Wordsmith who crafts clear, engaging written content, from emails to long-form posts, and adapts tone to the audience.",
		Model:   defaultModel("claude-sonnet-4"),
		Routing: core.RoutingConfig{
			Keywords: []string{"write", "draft", "compose", "email", "blog", "document", "letter"},
		},
	},
	{
		ID:      "analyst",
		Name:    "The Numbers",
		Emoji:   "\U0001F4CA",
		Role:    core.RoleAnalyst,
		Enabled: true,
		Soul:    "Data interpreter who turns numbers into insights, tracks key metrics, and explains what the data means.",
		Model:   defaultModel("claude-opus-4"),
		Routing: core.RoutingConfig{
			Keywords: []string{"analyze data", "report", "metrics", "numbers", "stats", "dashboard", "trends"},
		},
	},
	{
		ID:      "support",
		Name:    "The Helper",
		Emoji:   "\U0001F4AC",
		Role:    core.RoleSupport,
		Enabled: true,
		Soul:    "Patient helper who assists users, answers questions step by step, and escalates complex technical issues to the engineer.",
		Model:   defaultModel("claude-sonnet-4"),
		Routing: core.RoutingConfig{
			Keywords: []string{"help", "support", "how do i", "problem", "issue", "question about", "broken"},
		},
	},
}

// Personas returns the built-in agent catalog in stable order.
func Personas() []core.Agent {
	return append([]core.Agent(nil), personas...)
}

// PersonaByID looks up a built-in persona by its id.
func PersonaByID(id string) (core.Agent, bool) {
	for _, p := range personas {
		if p.ID == id {
			return p, true
		}
	}
	return core.Agent{}, false
}

// PersonaByRole looks up the built-in persona for a role.
func PersonaByRole(role core.Role) (core.Agent, bool) {
	for _, p := range personas {
		if p.Role == role {
			return p, true
		}
	}
	return core.Agent{}, false
}
