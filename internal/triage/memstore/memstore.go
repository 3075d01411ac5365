// Package memstore provides in-memory implementations of triage.Store and
// triage.Sink. Suitable for dev/testing.
package memstore

import (
	"context"
	"sync"

	"github.com/linnemanlabs/sift/internal/triage"
)

// Store holds the seen-set and output log in memory.
type Store struct {
	mu      sync.RWMutex
	keys    []string
	entries []*triage.Entry
}

// New initializes a new in-memory Store.
func New() *Store {
	return &Store{}
}

// Load returns a copy of the persisted seen-set keys.
func (s *Store) Load(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.keys...), nil
}

// Persist replaces the stored seen-set with a copy of keys.
func (s *Store) Persist(_ context.Context, keys []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = append([]string(nil), keys...)
	return nil
}

// Append stores copies of the entries after the existing ones.
func (s *Store) Append(_ context.Context, entries []*triage.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		cp := *e
		s.entries = append(s.entries, &cp)
	}
	return nil
}

// Entries returns a copy of the output log.
func (s *Store) Entries() []*triage.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*triage.Entry, 0, len(s.entries))
	for _, e := range s.entries {
		cp := *e
		out = append(out, &cp)
	}
	return out
}
