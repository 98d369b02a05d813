package portfolio

import (
	"sync"

	"portfoliotracker/internal/domain/portfolio"
)

// SnapshotStore holds the latest committed snapshot. Passes reserve a
// sequence number when dispatched; only the most recently dispatched pass
// may commit, so a slow pass never overwrites a newer dispatch.
// A pass that gives up without committing calls Abandon so it no longer
// blocks the passes dispatched before it.
type SnapshotStore struct {
	mu         sync.RWMutex
	dispatched uint64
	abandoned  map[uint64]struct{}
	current    *portfolio.Snapshot
}

func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{abandoned: make(map[uint64]struct{})}
}

// Begin reserves the next sequence number.
func (s *SnapshotStore) Begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dispatched++
	return s.dispatched
}

// Commit stores snap unless a later pass, not since abandoned, has been
// dispatched since snap's pass began. It reports whether snap was stored.
func (s *SnapshotStore) Commit(snap portfolio.Snapshot) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil && snap.Sequence <= s.current.Sequence {
		return false
	}
	for seq := s.dispatched; seq > snap.Sequence; seq-- {
		if _, ok := s.abandoned[seq]; !ok {
			return false
		}
	}
	for seq := range s.abandoned {
		if seq <= snap.Sequence {
			delete(s.abandoned, seq)
		}
	}
	s.current = &snap
	return true
}

// Abandon marks seq as a pass that will never commit.
func (s *SnapshotStore) Abandon(seq uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil && seq <= s.current.Sequence {
		return
	}
	s.abandoned[seq] = struct{}{}
}

// Latest returns the committed snapshot, if any.
func (s *SnapshotStore) Latest() (portfolio.Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return portfolio.Snapshot{}, false
	}
	return *s.current, true
}

func (s *SnapshotStore) Dispatched() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dispatched
}
