package analysis

import (
	"fmt"
	"log/slog"
	"sync"
)

// HistoryDB persists the whole history sequence as one record. The list is
// rewritten in full on every change; there is no incremental update.
type HistoryDB interface {
	// SaveHistory replaces the persisted sequence
	SaveHistory(analyses []*Analysis) error

	// LoadHistory returns the persisted sequence
	LoadHistory() ([]*Analysis, error)
}

// Store is the newest-first collection of completed analyses. Entries are
// only ever prepended; nothing removes or mutates a recorded report.
type Store struct {
	mu   sync.Mutex
	db   HistoryDB
	list []*Analysis
}

// NewStore creates an empty Store backed by db
func NewStore(db HistoryDB) *Store {
	return &Store{db: db, list: []*Analysis{}}
}

// Load replaces the in-memory sequence with the persisted one. Absent or
// corrupt persisted data yields an empty history; startup never fails on a
// bad history record.
func (s *Store) Load() {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.db.LoadHistory()
	if err != nil {
		slog.Warn("Could not load scan history, starting empty", "error", err)
		s.list = []*Analysis{}
		return
	}
	if list == nil {
		list = []*Analysis{}
	}
	s.list = list
}

// Record prepends a completed analysis and persists the entire sequence
func (s *Store) Record(a *Analysis) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := make([]*Analysis, 0, len(s.list)+1)
	list = append(list, a)
	list = append(list, s.list...)

	if err := s.db.SaveHistory(list); err != nil {
		return fmt.Errorf("persisting history: %w", err)
	}

	s.list = list
	return nil
}

// Select retrieves a prior analysis by ID for re-display
func (s *Store) Select(id string) (*Analysis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.list {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, fmt.Errorf("analysis not found: %s", id)
}

// All returns the analyses newest first
func (s *Store) All() []*Analysis {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Analysis, len(s.list))
	copy(out, s.list)
	return out
}

// Len returns the number of recorded analyses
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.list)
}
