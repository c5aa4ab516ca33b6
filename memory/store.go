package memory

// Snapshot is the persisted form of crew memory: important entries grouped
// by agent id. Shared crew memory is stored under SharedKey.
type Snapshot map[string][]Entry

// SharedKey is the snapshot key used for the crew's shared memory.
const SharedKey = "_shared"

// Store persists memory snapshots. Implementations must tolerate being
// called from multiple goroutines.
type Store interface {
	// Load returns the last saved snapshot, or an empty one when nothing
	// has been saved yet.
	Load() (Snapshot, error)
	// Save replaces the persisted snapshot.
	Save(snapshot Snapshot) error
}

// NopStore discards saves and loads nothing. It is the default store.
type NopStore struct{}

// Load implements Store.
func (NopStore) Load() (Snapshot, error) { return Snapshot{}, nil }

// Save implements Store.
func (NopStore) Save(Snapshot) error { return nil }
