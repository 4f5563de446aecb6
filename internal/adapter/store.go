package adapter

import (
	"sync"

	"github.com/keepmind9/teamsbridge/internal/activity"
)

// ReferenceStore maps room keys to conversation references for the lifetime
// of the process. It is populated on every inbound turn and read by outbound
// dispatch; entries are never evicted and nothing is persisted across
// restarts.
//
// Writes fully replace the entry for a key, so concurrent upserts cannot
// interleave partial state.
type ReferenceStore struct {
	mu   sync.RWMutex
	refs map[string]activity.Reference
}

// NewReferenceStore creates an empty reference store.
func NewReferenceStore() *ReferenceStore {
	return &ReferenceStore{
		refs: make(map[string]activity.Reference),
	}
}

// Upsert stores the reference under the room key, replacing any previous one.
func (s *ReferenceStore) Upsert(roomKey string, ref activity.Reference) {
	if roomKey == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refs[roomKey] = ref
}

// Get returns the reference for a room key. Absence is not an error; callers
// decide whether to fail or create a conversation on demand.
func (s *ReferenceStore) Get(roomKey string) (activity.Reference, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ref, ok := s.refs[roomKey]
	return ref, ok
}

// Len returns the number of stored references.
func (s *ReferenceStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.refs)
}
