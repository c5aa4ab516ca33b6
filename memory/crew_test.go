package memory

import (
	"errors"
	"testing"
	"time"

	"github.com/hupe1980/crewmesh/core"
	"github.com/hupe1980/crewmesh/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore keeps the last saved snapshot in memory.
type fakeStore struct {
	snapshot Snapshot
	saveErr  error
	loadErr  error
}

func (s *fakeStore) Load() (Snapshot, error) {
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	if s.snapshot == nil {
		return Snapshot{}, nil
	}
	return s.snapshot, nil
}

func (s *fakeStore) Save(snapshot Snapshot) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.snapshot = snapshot
	return nil
}

func newTestCrewMemory(t *testing.T, store Store) (*CrewMemory, *testutil.FakeClock) {
	t.Helper()
	clock := testutil.NewFakeClock(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))
	opts := []func(o *CrewMemoryOptions){WithClock(clock)}
	if store != nil {
		opts = append(opts, WithStore(store))
	}
	return NewCrewMemory("crew-1", opts...), clock
}

func TestCrewMemory_RecordFansOutTurns(t *testing.T) {
	cm, clock := newTestCrewMemory(t, nil)

	msg := core.NewMessage("user", "eng", core.MessageTask, "build the thing",
		core.WithTimestamp(clock.Now()))
	cm.Record(msg)

	fromTurns := cm.AgentMemory("user").ConversationContext(0)
	toTurns := cm.AgentMemory("eng").ConversationContext(0)
	require.Len(t, fromTurns, 1)
	require.Len(t, toTurns, 1)
	assert.Equal(t, TurnUser, fromTurns[0].Role)
	assert.Equal(t, "build the thing", toTurns[0].Content)
}

func TestCrewMemory_RecordDelegationInSharedMemory(t *testing.T) {
	cm, clock := newTestCrewMemory(t, nil)

	msg := core.NewMessage("coord", "eng", core.MessageDelegate, "handle deploy",
		core.WithTimestamp(clock.Now()))
	cm.Record(msg)

	entries := cm.Shared().Recall("", []string{"delegation"})
	require.Len(t, entries, 1)
	assert.Equal(t, EntryDelegation, entries[0].Type)
	assert.Equal(t, 0.6, entries[0].Importance)
	assert.Contains(t, entries[0].Content, "coord delegated to eng")
	assert.Equal(t, "Delegation: coord -> eng", entries[0].Summary)
}

func TestCrewMemory_RecordResultInSharedMemory(t *testing.T) {
	cm, clock := newTestCrewMemory(t, nil)

	msg := core.NewMessage("eng", "coord", core.MessageResult, "deployed v2 to staging",
		core.WithTimestamp(clock.Now()))
	cm.Record(msg)

	entries := cm.Shared().Recall("deployed", nil)
	require.Len(t, entries, 1)
	assert.Equal(t, EntryTaskResult, entries[0].Type)
	assert.Equal(t, 0.7, entries[0].Importance)
	assert.Equal(t, "deployed v2 to staging", entries[0].Summary)
}

func TestCrewMemory_BuildAgentContextIncludesShared(t *testing.T) {
	cm, clock := newTestCrewMemory(t, nil)

	cm.Record(core.NewMessage("user", "eng", core.MessageTask, "fix the build",
		core.WithTimestamp(clock.Now())))
	cm.Record(core.NewMessage("res", "coord", core.MessageResult, "benchmarks collected",
		core.WithTimestamp(clock.Now())))

	ctx := cm.BuildAgentContext("eng")
	assert.Contains(t, ctx, "User: fix the build")
	assert.Contains(t, ctx, "## Crew-wide context")
	assert.Contains(t, ctx, "benchmarks collected")
}

func TestCrewMemory_SearchAll(t *testing.T) {
	cm, _ := newTestCrewMemory(t, nil)

	cm.AgentMemory("eng").Remember(Entry{Type: EntryFact, Content: "uses postgres", Importance: 0.5})
	cm.AgentMemory("res").Remember(Entry{Type: EntryFact, Content: "postgres benchmarks", Importance: 0.5})
	cm.Shared().Remember(Entry{Type: EntryFact, Content: "postgres is primary store", Importance: 0.5})

	results := cm.SearchAll("postgres", nil)
	require.Len(t, results, 3)
	assert.Equal(t, "eng", results[0].AgentID)
	assert.Equal(t, "res", results[1].AgentID)
	assert.Equal(t, "shared", results[2].AgentID)
}

func TestCrewMemory_SaveFiltersByImportance(t *testing.T) {
	store := &fakeStore{}
	cm, _ := newTestCrewMemory(t, store)

	cm.AgentMemory("eng").Remember(Entry{Type: EntryFact, Content: "important", Importance: 0.8})
	cm.AgentMemory("eng").Remember(Entry{Type: EntryFact, Content: "trivia", Importance: 0.1})
	cm.Shared().Remember(Entry{Type: EntryFact, Content: "shared fact", Importance: 0.5})

	require.NoError(t, cm.Save())

	require.Len(t, store.snapshot["eng"], 1)
	assert.Equal(t, "important", store.snapshot["eng"][0].Content)
	require.Len(t, store.snapshot[SharedKey], 1)
	assert.Equal(t, "shared fact", store.snapshot[SharedKey][0].Content)
}

func TestCrewMemory_SaveHonorsSnapshotCap(t *testing.T) {
	store := &fakeStore{}
	clock := testutil.NewFakeClock(time.Now())
	cm := NewCrewMemory("crew-1", WithStore(store), WithClock(clock), WithConfig(Config{
		MaxShortTermTurns:   20,
		MaxWorkingEntries:   50,
		MaxLongTermEntries:  2,
		ImportanceThreshold: 0.3,
	}))

	cm.AgentMemory("eng").Remember(Entry{Type: EntryFact, Content: "low", Importance: 0.4})
	cm.AgentMemory("eng").Remember(Entry{Type: EntryFact, Content: "mid", Importance: 0.6})
	cm.AgentMemory("eng").Remember(Entry{Type: EntryFact, Content: "top", Importance: 0.9})

	require.NoError(t, cm.Save())

	require.Len(t, store.snapshot["eng"], 2)
	contents := []string{store.snapshot["eng"][0].Content, store.snapshot["eng"][1].Content}
	assert.ElementsMatch(t, []string{"top", "mid"}, contents)
}

func TestCrewMemory_LoadRestoresEntries(t *testing.T) {
	store := &fakeStore{snapshot: Snapshot{
		"eng":     {{ID: "e1", AgentID: "eng", Type: EntryFact, Content: "restored fact", Importance: 0.7}},
		SharedKey: {{ID: "s1", AgentID: "crew", Type: EntryFact, Content: "restored shared", Importance: 0.5}},
	}}
	cm, _ := newTestCrewMemory(t, store)

	require.NoError(t, cm.Load())
	assert.Len(t, cm.AgentMemory("eng").Recall("restored", nil), 1)
	assert.Len(t, cm.Shared().Recall("restored", nil), 1)
}

func TestCrewMemory_LoadPropagatesStoreError(t *testing.T) {
	store := &fakeStore{loadErr: errors.New("corrupt")}
	cm, _ := newTestCrewMemory(t, store)
	assert.Error(t, cm.Load())
}

func TestCrewMemory_Clear(t *testing.T) {
	store := &fakeStore{}
	cm, clock := newTestCrewMemory(t, store)

	cm.Record(core.NewMessage("user", "eng", core.MessageTask, "hello",
		core.WithTimestamp(clock.Now())))
	cm.Shared().Remember(Entry{Type: EntryFact, Content: "fact", Importance: 0.9})
	require.NoError(t, cm.Save())
	require.NotEmpty(t, store.snapshot)

	require.NoError(t, cm.Clear())
	assert.Empty(t, store.snapshot)
	assert.Zero(t, cm.Shared().Stats().WorkingEntries)
	stats := cm.AllStats()
	assert.Len(t, stats, 1) // only the shared entry remains
}

func TestCrewMemory_AllStats(t *testing.T) {
	cm, clock := newTestCrewMemory(t, nil)
	cm.Record(core.NewMessage("user", "eng", core.MessageTask, "hi",
		core.WithTimestamp(clock.Now())))

	stats := cm.AllStats()
	assert.Contains(t, stats, "user")
	assert.Contains(t, stats, "eng")
	assert.Contains(t, stats, SharedKey)
}
