package core

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoute_KeywordMatch(t *testing.T) {
	rules := []RoutingRule{
		{AgentID: "eng", Keywords: []string{"build", "code"}, Priority: 1},
	}

	decision, ok := Route("please build this feature", rules)
	require.True(t, ok)
	assert.Equal(t, "eng", decision.AgentID)
	assert.Contains(t, decision.Reason, "build")
	assert.InDelta(t, 19.0/50.0, decision.Confidence, 1e-9)
}

func TestRoute_EmptyRules(t *testing.T) {
	_, ok := Route("anything at all", nil)
	assert.False(t, ok)
}

func TestRoute_PicksHighestScore(t *testing.T) {
	rules := []RoutingRule{
		{AgentID: "writer", Keywords: []string{"write"}, Priority: 5},
		{AgentID: "eng", Keywords: []string{"write", "code"}, Priority: 5},
	}

	decision, ok := Route("write some code", rules)
	require.True(t, ok)
	assert.Equal(t, "eng", decision.AgentID)
}

func TestRoute_TieKeepsFirstSeen(t *testing.T) {
	rules := []RoutingRule{
		{AgentID: "a", Keywords: []string{"report"}, Priority: 3},
		{AgentID: "b", Keywords: []string{"report"}, Priority: 3},
	}

	decision, ok := Route("monthly report please", rules)
	require.True(t, ok)
	assert.Equal(t, "a", decision.AgentID)
}

func TestRoute_PatternMatch(t *testing.T) {
	rules := []RoutingRule{
		{AgentID: "sched", Patterns: []*regexp.Regexp{regexp.MustCompile(`(?i)every\s+(day|week)`)}, Priority: 2},
	}

	decision, ok := Route("remind me every day at 9", rules)
	require.True(t, ok)
	assert.Equal(t, "sched", decision.AgentID)
	assert.Equal(t, "Matched routing pattern", decision.Reason)
}

// A rule with no keywords or patterns still earns its priority term and wins
// when every other rule scores zero. Pinned intentionally.
func TestRoute_EmptyRuleCanWinOnPriorityAlone(t *testing.T) {
	rules := []RoutingRule{
		{AgentID: "analyst", Keywords: []string{"metrics"}, Priority: 9},
		{AgentID: "catchall", Priority: 2},
	}

	decision, ok := Route("hello there", rules)
	require.True(t, ok)
	assert.Equal(t, "catchall", decision.AgentID)
}

func TestRoute_ConfidenceClamped(t *testing.T) {
	rules := []RoutingRule{
		{AgentID: "eng", Keywords: []string{"build", "code", "fix", "deploy", "test", "debug"}, Priority: 1},
	}

	decision, ok := Route("build code fix deploy test debug", rules)
	require.True(t, ok)
	assert.Equal(t, 1.0, decision.Confidence)
}

func TestRoute_KeywordMatchIsCaseInsensitive(t *testing.T) {
	rules := []RoutingRule{
		{AgentID: "eng", Keywords: []string{"Build"}, Priority: 1},
	}

	decision, ok := Route("BUILD it now", rules)
	require.True(t, ok)
	assert.Equal(t, "eng", decision.AgentID)
}

func TestBuildRoutingRules_ExcludesCoordinator(t *testing.T) {
	agents := []Agent{
		{ID: "coord", Role: RoleCoordinator, Routing: RoutingConfig{Keywords: []string{"anything"}}},
		{ID: "eng", Role: RoleEngineer, Routing: RoutingConfig{Keywords: []string{"build"}, Priority: 1}},
	}

	rules := BuildRoutingRules(agents, "coord")
	require.Len(t, rules, 1)
	assert.Equal(t, "eng", rules[0].AgentID)
}

func TestBuildRoutingRules_SkipsInvalidPatterns(t *testing.T) {
	agents := []Agent{
		{ID: "eng", Routing: RoutingConfig{Keywords: []string{"build"}, Patterns: []string{"(unclosed", `deploy\s+now`}}},
	}

	rules := BuildRoutingRules(agents, "coord")
	require.Len(t, rules, 1)
	assert.Len(t, rules[0].Patterns, 1)
}
