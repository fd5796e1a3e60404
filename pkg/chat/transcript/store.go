package transcript

import "sync"

// Snapshot is an immutable point-in-time view of the transcript, ordered
// oldest first. Transforms return a fresh snapshot and never touch their
// input, so a renderer holding an older snapshot always sees a consistent
// state.
type Snapshot []Message

// Clone returns a copy that is safe to transform.
func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	copy(out, s)
	return out
}

// Streaming returns the index of the message currently marked streaming, or
// -1. At most one such message exists per active session.
func (s Snapshot) Streaming() int {
	for i := range s {
		if s[i].IsStreaming {
			return i
		}
	}
	return -1
}

// Store holds the current transcript snapshot and serializes read-modify-
// write updates. Updates are expressed as pure functions of the previous
// snapshot so two events resolving in quick succession cannot lose each
// other's writes.
type Store struct {
	mu       sync.Mutex
	snapshot Snapshot
}

func NewStore() *Store {
	return &Store{}
}

// Snapshot returns the current snapshot. Callers must treat it as read-only.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot
}

// Update atomically replaces the snapshot with fn(previous).
func (s *Store) Update(fn func(Snapshot) Snapshot) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = fn(s.snapshot)
	return s.snapshot
}

// Replace swaps in a wholly new snapshot, e.g. loaded history.
func (s *Store) Replace(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = snapshot
}
