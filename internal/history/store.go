// internal/history/store.go
package history

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nhath/ezspanner/internal/gateway"
)

// ErrOutOfRange is returned by Get for an index outside the store.
var ErrOutOfRange = errors.New("history index out of range")

// Journal receives every entry appended to a Store.
type Journal interface {
	Write(e Entry) error
}

// Store is the in-memory, append-only log of successful executions.
// Entries are kept in insertion order and are never reordered, deduplicated
// or evicted.
type Store struct {
	mu      sync.RWMutex
	entries []Entry

	clock   *Clock
	journal Journal
	logger  *zap.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithJournal mirrors every appended entry to j.
func WithJournal(j Journal) Option {
	return func(s *Store) { s.journal = j }
}

// WithClock sets the timestamp source used by Record.
func WithClock(c *Clock) Option {
	return func(s *Store) { s.clock = c }
}

// WithLogger sets the logger used to report journal failures.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// NewStore creates an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		clock:  NewClock(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Record snapshots query and res into a new entry stamped with the next
// timestamp and appends it.
func (s *Store) Record(query string, res gateway.QueryResult) Entry {
	e := Entry{
		ID:         uuid.NewString(),
		Query:      query,
		Results:    res.Clone(),
		ExecutedAt: s.clock.Next(),
	}
	s.Append(e)
	return e
}

// Append adds e at the end of the store.
func (s *Store) Append(e Entry) {
	s.mu.Lock()
	s.entries = append(s.entries, e)
	s.mu.Unlock()

	if s.journal == nil {
		return
	}
	if err := s.journal.Write(e); err != nil {
		s.logger.Warn("history journal write failed", zap.String("id", e.ID), zap.Error(err))
	}
}

// Restore appends previously journaled entries without writing them back to
// the journal.
func (s *Store) Restore(entries []Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		s.entries = append(s.entries, e)
		s.clock.Observe(e.ExecutedAt)
	}
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// All returns the entries in insertion order.
func (s *Store) All() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Get returns the entry at index i.
func (s *Store) Get(i int) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i < 0 || i >= len(s.entries) {
		return Entry{}, fmt.Errorf("%w: %d (len %d)", ErrOutOfRange, i, len(s.entries))
	}
	return s.entries[i], nil
}
