package memory

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hupe1980/crewmesh/core"
)

// recencyWindow is the horizon over which the recall recency boost decays
// to zero.
const recencyWindow = time.Hour

// AgentMemory holds one agent's short-term conversation window and working
// memory. It is safe for concurrent use.
type AgentMemory struct {
	agentID   string
	mu        sync.Mutex
	cfg       Config
	clock     core.Clock
	shortTerm []Turn
	working   map[string]*Entry
}

// AgentMemoryOptions configures an AgentMemory.
type AgentMemoryOptions struct {
	Config Config
	Clock  core.Clock
}

// NewAgentMemory creates an empty memory for one agent.
func NewAgentMemory(agentID string, optFns ...func(o *AgentMemoryOptions)) *AgentMemory {
	opts := AgentMemoryOptions{
		Config: DefaultConfig(),
		Clock:  core.SystemClock{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &AgentMemory{
		agentID: agentID,
		cfg:     opts.Config,
		clock:   opts.Clock,
		working: make(map[string]*Entry),
	}
}

// AgentID returns the owning agent's id.
func (m *AgentMemory) AgentID() string {
	return m.agentID
}

// AddTurn appends a conversation turn, evicting the oldest turns beyond the
// short-term window.
func (m *AgentMemory) AddTurn(turn Turn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shortTerm = append(m.shortTerm, turn)
	if over := len(m.shortTerm) - m.cfg.MaxShortTermTurns; over > 0 {
		m.shortTerm = m.shortTerm[over:]
	}
}

// ConversationContext returns up to maxTurns of the most recent turns;
// maxTurns <= 0 means the full window.
func (m *AgentMemory) ConversationContext(maxTurns int) []Turn {
	m.mu.Lock()
	defer m.mu.Unlock()
	limit := maxTurns
	if limit <= 0 || limit > len(m.shortTerm) {
		limit = len(m.shortTerm)
	}
	out := make([]Turn, limit)
	copy(out, m.shortTerm[len(m.shortTerm)-limit:])
	return out
}

// Remember stores an entry in working memory, assigning an id and access
// time. When over capacity the least important entry is evicted.
func (m *AgentMemory) Remember(entry Entry) Entry {
	now := m.clock.Now()
	if entry.ID == "" {
		entry.ID = core.NewID()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	entry.AccessedAt = now

	m.mu.Lock()
	defer m.mu.Unlock()
	stored := entry
	m.working[stored.ID] = &stored
	if len(m.working) > m.cfg.MaxWorkingEntries {
		m.evictLeastImportantLocked()
	}
	return entry
}

// Recall scores working memory against the query and tags and returns
// matching entries best first. Matched entries have their access time
// refreshed, which feeds the recency boost of later recalls.
func (m *AgentMemory) Recall(query string, tags []string) []Entry {
	now := m.clock.Now()
	queryLower := strings.ToLower(query)

	type scored struct {
		entry Entry
		score float64
	}

	m.mu.Lock()
	results := make([]scored, 0, len(m.working))
	for _, entry := range m.working {
		if !entry.ExpiresAt.IsZero() && entry.ExpiresAt.Before(now) {
			continue
		}

		score := 0.0
		if strings.Contains(strings.ToLower(entry.Content), queryLower) {
			score += 0.5
		}
		if entry.Summary != "" && strings.Contains(strings.ToLower(entry.Summary), queryLower) {
			score += 0.3
		}
		for _, t := range tags {
			if containsString(entry.Tags, t) {
				score += 0.2
			}
		}

		age := now.Sub(entry.AccessedAt)
		recency := 1 - age.Seconds()/recencyWindow.Seconds()
		if recency > 0 {
			score += recency * 0.2
		}
		score += entry.Importance * 0.3

		if score > 0 {
			entry.AccessedAt = now
			results = append(results, scored{entry: *entry, score: score})
		}
	}
	m.mu.Unlock()

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		if !results[i].entry.CreatedAt.Equal(results[j].entry.CreatedAt) {
			return results[i].entry.CreatedAt.After(results[j].entry.CreatedAt)
		}
		return results[i].entry.ID < results[j].entry.ID
	})

	out := make([]Entry, len(results))
	for i, r := range results {
		out[i] = r.entry
	}
	return out
}

// BuildContext renders the agent's memory as a markdown summary: the last
// few turns, the top facts and preferences by importance, and the most
// recent task results.
func (m *AgentMemory) BuildContext() string {
	var parts []string

	turns := m.ConversationContext(5)
	if len(turns) > 0 {
		parts = append(parts, "## Recent conversation")
		for _, turn := range turns {
			prefix := turn.AgentName
			if turn.Role == TurnUser {
				prefix = "User"
			} else if prefix == "" {
				prefix = "Agent"
			}
			parts = append(parts, prefix+": "+turn.Content)
		}
	}

	m.mu.Lock()
	var facts, taskResults []Entry
	for _, entry := range m.working {
		switch entry.Type {
		case EntryFact, EntryUserPreference:
			facts = append(facts, *entry)
		case EntryTaskResult:
			taskResults = append(taskResults, *entry)
		}
	}
	m.mu.Unlock()

	sort.SliceStable(facts, func(i, j int) bool {
		if facts[i].Importance != facts[j].Importance {
			return facts[i].Importance > facts[j].Importance
		}
		return facts[i].ID < facts[j].ID
	})
	if len(facts) > 5 {
		facts = facts[:5]
	}
	if len(facts) > 0 {
		parts = append(parts, "\n## Key context")
		for _, fact := range facts {
			line := fact.Summary
			if line == "" {
				line = fact.Content
			}
			parts = append(parts, "- "+line)
		}
	}

	sort.SliceStable(taskResults, func(i, j int) bool {
		if !taskResults[i].CreatedAt.Equal(taskResults[j].CreatedAt) {
			return taskResults[i].CreatedAt.After(taskResults[j].CreatedAt)
		}
		return taskResults[i].ID < taskResults[j].ID
	})
	if len(taskResults) > 3 {
		taskResults = taskResults[:3]
	}
	if len(taskResults) > 0 {
		parts = append(parts, "\n## Recent task results")
		for _, result := range taskResults {
			line := result.Summary
			if line == "" {
				line = truncate(result.Content, 120)
			}
			parts = append(parts, "- "+line)
		}
	}

	return strings.Join(parts, "\n")
}

// ClearConversation drops the short-term window, keeping working memory.
func (m *AgentMemory) ClearConversation() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shortTerm = nil
}

// Stats returns a snapshot of memory usage.
func (m *AgentMemory) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := Stats{
		ShortTermTurns: len(m.shortTerm),
		WorkingEntries: len(m.working),
	}
	for _, entry := range m.working {
		if s.OldestMemory.IsZero() || entry.CreatedAt.Before(s.OldestMemory) {
			s.OldestMemory = entry.CreatedAt
		}
	}
	return s
}

// entries returns copies of all working-memory entries without touching
// access times.
func (m *AgentMemory) entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, 0, len(m.working))
	for _, entry := range m.working {
		out = append(out, *entry)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (m *AgentMemory) evictLeastImportantLocked() {
	victimID := ""
	victimImportance := 0.0
	for id, entry := range m.working {
		if victimID == "" || entry.Importance < victimImportance ||
			(entry.Importance == victimImportance && id < victimID) {
			victimID = id
			victimImportance = entry.Importance
		}
	}
	if victimID != "" {
		delete(m.working, victimID)
	}
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
