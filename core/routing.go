package core

import (
	"fmt"
	"math"
	"regexp"
	"strings"
)

// RoutingRule is derived per non-coordinator agent from its RoutingConfig.
// Patterns are compiled case-insensitive; rules are regenerated whenever the
// agent set changes.
type RoutingRule struct {
	AgentID      string
	Keywords     []string
	Patterns     []*regexp.Regexp
	Priority     int
	Capabilities []string
}

// RouteDecision is the outcome of scoring routing rules against a message.
type RouteDecision struct {
	AgentID    string
	Confidence float64 // 0-1
	Reason     string
}

// BuildRoutingRules derives routing rules from the agent set, excluding the
// coordinator (it is the fallback, never a routing target). Patterns that
// fail to compile are skipped; keyword matching still applies for that rule.
func BuildRoutingRules(agents []Agent, coordinatorID string) []RoutingRule {
	rules := make([]RoutingRule, 0, len(agents))
	for _, a := range agents {
		if a.ID == coordinatorID {
			continue
		}
		rule := RoutingRule{
			AgentID:  a.ID,
			Keywords: a.Routing.Keywords,
			Priority: a.Routing.Priority,
		}
		for _, p := range a.Routing.Patterns {
			re, err := regexp.Compile("(?i)" + p)
			if err != nil {
				continue
			}
			rule.Patterns = append(rule.Patterns, re)
		}
		rules = append(rules, rule)
	}
	return rules
}

// Route scores each rule against the message content and returns the best
// positive match, or ok=false when nothing matches and the caller must fall
// back to the coordinator.
//
// Score per rule: 10 per keyword whose lowercase form is a substring of the
// lowercase content, 20 per compiled pattern match, plus (10 - rule
// priority). The strictly highest positive score wins; ties keep the first
// rule seen. Confidence normalizes score/50 capped at 1.
//
// A rule with no keywords or patterns still contributes its priority term and
// can win when every other rule scores zero. That quirk is deliberate only in
// the sense that nothing depends on the opposite behavior; it is pinned by a
// test rather than fixed.
func Route(content string, rules []RoutingRule) (RouteDecision, bool) {
	contentLower := strings.ToLower(content)

	bestScore := 0
	var best *RouteDecision

	for _, rule := range rules {
		score := 0
		var matched []string

		for _, kw := range rule.Keywords {
			if strings.Contains(contentLower, strings.ToLower(kw)) {
				score += 10
				matched = append(matched, kw)
			}
		}
		for _, re := range rule.Patterns {
			if re.MatchString(content) {
				score += 20
			}
		}
		score += 10 - rule.Priority

		if score > 0 && (best == nil || score > bestScore) {
			reason := "Matched routing pattern"
			if len(matched) > 0 {
				reason = fmt.Sprintf("Matched keywords: %s", strings.Join(matched, ", "))
			}
			bestScore = score
			best = &RouteDecision{
				AgentID: rule.AgentID,
				Reason:  reason,
			}
		}
	}

	if best == nil {
		return RouteDecision{}, false
	}
	best.Confidence = math.Min(float64(bestScore)/50, 1)
	return *best, true
}
