package memory

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/hupe1980/crewmesh/core"
)

// CrewMemory manages per-agent memories plus a shared memory that records
// delegations and task results visible to the whole crew.
type CrewMemory struct {
	mu     sync.Mutex
	crewID string
	cfg    Config
	clock  core.Clock
	store  Store
	agents map[string]*AgentMemory
	shared *AgentMemory
}

// CrewMemoryOptions configures a CrewMemory.
type CrewMemoryOptions struct {
	Config Config
	Clock  core.Clock
	Store  Store
}

// NewCrewMemory creates crew memory with an empty shared store.
func NewCrewMemory(crewID string, optFns ...func(o *CrewMemoryOptions)) *CrewMemory {
	opts := CrewMemoryOptions{
		Config: DefaultConfig(),
		Clock:  core.SystemClock{},
		Store:  NopStore{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	cm := &CrewMemory{
		crewID: crewID,
		cfg:    opts.Config,
		clock:  opts.Clock,
		store:  opts.Store,
		agents: make(map[string]*AgentMemory),
	}
	cm.shared = cm.newAgentMemory("crew_" + crewID)
	return cm
}

// WithStore sets the persistence backend used by Save and Load.
func WithStore(store Store) func(o *CrewMemoryOptions) {
	return func(o *CrewMemoryOptions) {
		o.Store = store
	}
}

// WithConfig overrides the memory tuning for all agent memories.
func WithConfig(cfg Config) func(o *CrewMemoryOptions) {
	return func(o *CrewMemoryOptions) {
		o.Config = cfg
	}
}

// WithClock injects the time source, mainly for tests.
func WithClock(clock core.Clock) func(o *CrewMemoryOptions) {
	return func(o *CrewMemoryOptions) {
		o.Clock = clock
	}
}

func (cm *CrewMemory) newAgentMemory(id string) *AgentMemory {
	return NewAgentMemory(id, func(o *AgentMemoryOptions) {
		o.Config = cm.cfg
		o.Clock = cm.clock
	})
}

// AgentMemory returns the memory for an agent, creating it on first use.
func (cm *CrewMemory) AgentMemory(agentID string) *AgentMemory {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	mem, ok := cm.agents[agentID]
	if !ok {
		mem = cm.newAgentMemory(agentID)
		cm.agents[agentID] = mem
	}
	return mem
}

// Shared returns the crew-wide shared memory.
func (cm *CrewMemory) Shared() *AgentMemory {
	return cm.shared
}

// Record fans a message out as a conversation turn to both participants
// and mirrors delegations and results into shared memory.
func (cm *CrewMemory) Record(msg core.Message) {
	role := TurnAgent
	if msg.From == "user" {
		role = TurnUser
	}
	turn := Turn{
		Role:      role,
		AgentID:   msg.From,
		Content:   msg.Content,
		Timestamp: msg.Timestamp,
	}
	cm.AgentMemory(msg.From).AddTurn(turn)
	cm.AgentMemory(msg.To).AddTurn(turn)

	switch msg.Type {
	case core.MessageDelegate:
		cm.shared.Remember(Entry{
			AgentID:    msg.From,
			Type:       EntryDelegation,
			Content:    fmt.Sprintf("%s delegated to %s: %s", msg.From, msg.To, msg.Content),
			Summary:    fmt.Sprintf("Delegation: %s -> %s", msg.From, msg.To),
			Tags:       []string{"delegation", msg.From, msg.To},
			Importance: 0.6,
			CreatedAt:  msg.Timestamp,
		})
	case core.MessageResult:
		cm.shared.Remember(Entry{
			AgentID:    msg.From,
			Type:       EntryTaskResult,
			Content:    msg.Content,
			Summary:    truncate(msg.Content, 120),
			Tags:       []string{"result", msg.From},
			Importance: 0.7,
			CreatedAt:  msg.Timestamp,
		})
	}
}

// BuildAgentContext combines an agent's own context with the crew-wide
// shared context.
func (cm *CrewMemory) BuildAgentContext(agentID string) string {
	agentContext := cm.AgentMemory(agentID).BuildContext()
	sharedContext := cm.shared.BuildContext()

	var parts []string
	if agentContext != "" {
		parts = append(parts, agentContext)
	}
	if sharedContext != "" {
		parts = append(parts, "\n## Crew-wide context\n"+sharedContext)
	}
	return strings.Join(parts, "\n")
}

// SearchResult groups recall hits per agent.
type SearchResult struct {
	AgentID string
	Entries []Entry
}

// SearchAll recalls across every agent memory and the shared memory. The
// shared result, when present, comes last under the id "shared".
func (cm *CrewMemory) SearchAll(query string, tags []string) []SearchResult {
	cm.mu.Lock()
	ids := make([]string, 0, len(cm.agents))
	for id := range cm.agents {
		ids = append(ids, id)
	}
	cm.mu.Unlock()
	sort.Strings(ids)

	var results []SearchResult
	for _, id := range ids {
		entries := cm.AgentMemory(id).Recall(query, tags)
		if len(entries) > 0 {
			results = append(results, SearchResult{AgentID: id, Entries: entries})
		}
	}
	if entries := cm.shared.Recall(query, tags); len(entries) > 0 {
		results = append(results, SearchResult{AgentID: "shared", Entries: entries})
	}
	return results
}

// Save persists every entry at or above the importance threshold, keeping
// the most important entries when the snapshot cap is exceeded.
func (cm *CrewMemory) Save() error {
	type keyed struct {
		key   string
		entry Entry
	}

	cm.mu.Lock()
	ids := make([]string, 0, len(cm.agents))
	for id := range cm.agents {
		ids = append(ids, id)
	}
	cm.mu.Unlock()
	sort.Strings(ids)

	var all []keyed
	for _, id := range ids {
		for _, entry := range cm.AgentMemory(id).entries() {
			if entry.Importance >= cm.cfg.ImportanceThreshold {
				all = append(all, keyed{key: id, entry: entry})
			}
		}
	}
	for _, entry := range cm.shared.entries() {
		if entry.Importance >= cm.cfg.ImportanceThreshold {
			all = append(all, keyed{key: SharedKey, entry: entry})
		}
	}

	if len(all) > cm.cfg.MaxLongTermEntries {
		sort.SliceStable(all, func(i, j int) bool {
			return all[i].entry.Importance > all[j].entry.Importance
		})
		all = all[:cm.cfg.MaxLongTermEntries]
	}

	snapshot := Snapshot{}
	for _, k := range all {
		snapshot[k.key] = append(snapshot[k.key], k.entry)
	}
	return cm.store.Save(snapshot)
}

// Load restores a snapshot from the store. Entries are re-remembered, so
// capacity limits and eviction still apply. A missing or empty snapshot is
// not an error.
func (cm *CrewMemory) Load() error {
	snapshot, err := cm.store.Load()
	if err != nil {
		return err
	}
	for key, entries := range snapshot {
		target := cm.shared
		if key != SharedKey {
			target = cm.AgentMemory(key)
		}
		for _, entry := range entries {
			target.Remember(entry)
		}
	}
	return nil
}

// Clear drops all agent memories, the shared memory, and the persisted
// snapshot.
func (cm *CrewMemory) Clear() error {
	cm.mu.Lock()
	cm.agents = make(map[string]*AgentMemory)
	cm.shared = cm.newAgentMemory("crew_" + cm.crewID)
	cm.mu.Unlock()
	return cm.store.Save(Snapshot{})
}

// AllStats returns stats per agent memory plus the shared memory under
// SharedKey.
func (cm *CrewMemory) AllStats() map[string]Stats {
	cm.mu.Lock()
	mems := make(map[string]*AgentMemory, len(cm.agents)+1)
	for id, mem := range cm.agents {
		mems[id] = mem
	}
	cm.mu.Unlock()

	out := make(map[string]Stats, len(mems)+1)
	for id, mem := range mems {
		out[id] = mem.Stats()
	}
	out[SharedKey] = cm.shared.Stats()
	return out
}
