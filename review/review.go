// Package review scores agent outputs with deterministic heuristics and
// tracks per-agent quality over time. Scoring starts at 1.0 and applies
// deductions for brevity, irrelevance, missing structure, broken tone, and
// leaked sensitive content, then maps the final score to a verdict.
package review

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/hupe1980/crewmesh/core"
)

// Verdict is the outcome of a review.
type Verdict string

const (
	VerdictApproved      Verdict = "approved"
	VerdictNeedsRevision Verdict = "needs_revision"
	VerdictRejected      Verdict = "rejected"
	VerdictEscalated     Verdict = "escalated"
)

// IssueType classifies a quality problem.
type IssueType string

const (
	IssueCompleteness IssueType = "completeness"
	IssueAccuracy     IssueType = "accuracy"
	IssueTone         IssueType = "tone"
	IssueFormat       IssueType = "format"
	IssueRelevance    IssueType = "relevance"
	IssueSafety       IssueType = "safety"
)

// IssueSeverity ranks how much an issue matters.
type IssueSeverity string

const (
	SeverityLow    IssueSeverity = "low"
	SeverityMedium IssueSeverity = "medium"
	SeverityHigh   IssueSeverity = "high"
)

// Issue is one specific problem found during review.
type Issue struct {
	Type        IssueType
	Severity    IssueSeverity
	Description string
}

// Result is a completed review of one message.
type Result struct {
	ID         string
	ReviewerID string
	AgentID    string
	MessageID  string
	Verdict    Verdict
	Score      float64
	Feedback   string
	Issues     []Issue
	Timestamp  time.Time
}

// Config tunes verdict thresholds and escalation.
type Config struct {
	// AutoReviewThreshold is the score below which output is rejected.
	AutoReviewThreshold float64
	// ApprovalThreshold is the score at or above which output is approved.
	ApprovalThreshold float64
	// MaxRevisions bounds revision cycles before escalation.
	MaxRevisions int
	// TrackHistory keeps the full review history when true.
	TrackHistory bool
}

// DefaultConfig returns the standard review thresholds.
func DefaultConfig() Config {
	return Config{
		AutoReviewThreshold: 0.5,
		ApprovalThreshold:   0.8,
		MaxRevisions:        2,
		TrackHistory:        true,
	}
}

var (
	structurePattern = regexp.MustCompile(`\*\*|#{1,3}\s|\d\.\s|- `)

	tonePatterns = []struct {
		pattern     *regexp.Regexp
		description string
	}{
		{regexp.MustCompile(`(?i)I cannot|I'm unable|I don't have`), "Agent refusing to help without clear reason"},
		{regexp.MustCompile(`(?i)as an ai|as a language model`), "Breaking character - referring to self as AI"},
	}

	safetyPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)password|secret|api.?key|token`),
		regexp.MustCompile(`(?i)sudo\s+rm|rm\s+-rf|drop\s+table`),
	}
)

// structuredRoles are expected to format long answers with headings, lists
// or emphasis.
var structuredRoles = map[core.Role]bool{
	core.RoleEngineer:   true,
	core.RoleAnalyst:    true,
	core.RoleResearcher: true,
}

// Review scores a message against the request that produced it. The same
// inputs always yield the same score and issues. Verdict thresholds default
// to DefaultConfig and can be overridden per call.
func Review(msg core.Message, originalRequest string, role core.Role, optFns ...func(o *Config)) Result {
	cfg := DefaultConfig()
	for _, fn := range optFns {
		fn(&cfg)
	}

	var issues []Issue
	score := 1.0

	switch {
	case len(msg.Content) < 20:
		issues = append(issues, Issue{IssueCompleteness, SeverityHigh, "Response is too brief to be useful"})
		score -= 0.3
	case len(msg.Content) < 50:
		issues = append(issues, Issue{IssueCompleteness, SeverityMedium, "Response could be more detailed"})
		score -= 0.15
	}

	ratio := relevanceRatio(msg.Content, originalRequest)
	switch {
	case ratio < 0.1:
		issues = append(issues, Issue{IssueRelevance, SeverityHigh, "Response does not appear to address the original request"})
		score -= 0.3
	case ratio < 0.2:
		issues = append(issues, Issue{IssueRelevance, SeverityMedium, "Response may not fully address the request"})
		score -= 0.1
	}

	if structuredRoles[role] && len(msg.Content) > 100 && !structurePattern.MatchString(msg.Content) {
		issues = append(issues, Issue{IssueFormat, SeverityLow, "Technical response lacks structured formatting"})
		score -= 0.05
	}

	for _, tp := range tonePatterns {
		if tp.pattern.MatchString(msg.Content) {
			issues = append(issues, Issue{IssueTone, SeverityMedium, tp.description})
			score -= 0.15
		}
	}

	for _, sp := range safetyPatterns {
		if sp.MatchString(msg.Content) && !sp.MatchString(originalRequest) {
			issues = append(issues, Issue{IssueSafety, SeverityHigh, "Response may contain sensitive information not requested"})
			score -= 0.2
		}
	}

	if score < 0 {
		score = 0
	} else if score > 1 {
		score = 1
	}

	verdict := VerdictRejected
	switch {
	case score >= cfg.ApprovalThreshold:
		verdict = VerdictApproved
	case score >= cfg.AutoReviewThreshold:
		verdict = VerdictNeedsRevision
	}

	return Result{
		ID:         core.NewID(),
		ReviewerID: "system",
		AgentID:    msg.From,
		MessageID:  msg.ID,
		Verdict:    verdict,
		Score:      score,
		Feedback:   buildFeedback(verdict, issues),
		Issues:     issues,
		Timestamp:  time.Now(),
	}
}

// relevanceRatio measures how many substantive request words (longer than
// three characters) reappear in the response. A request with no such words
// scores a neutral 0.5.
func relevanceRatio(content, originalRequest string) float64 {
	var requestWords []string
	for _, w := range strings.Fields(strings.ToLower(originalRequest)) {
		if len(w) > 3 {
			requestWords = append(requestWords, w)
		}
	}
	if len(requestWords) == 0 {
		return 0.5
	}

	responseWords := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(content)) {
		responseWords[w] = true
	}

	matched := 0
	for _, w := range requestWords {
		if responseWords[w] {
			matched++
		}
	}
	return float64(matched) / float64(len(requestWords))
}

func buildFeedback(verdict Verdict, issues []Issue) string {
	if verdict == VerdictApproved {
		return "Output meets quality standards."
	}
	if len(issues) == 0 {
		return "Output quality is below threshold."
	}

	var high, medium []string
	for _, issue := range issues {
		switch issue.Severity {
		case SeverityHigh:
			high = append(high, issue.Description)
		case SeverityMedium:
			medium = append(medium, issue.Description)
		}
	}
	if len(high) > 0 {
		return fmt.Sprintf("Critical issues: %s", strings.Join(high, "; "))
	}
	return fmt.Sprintf("Improvement needed: %s", strings.Join(medium, "; "))
}
