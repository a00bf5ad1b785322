// Package store provides persistence backends for conversation
// transcripts and order records. Three implementations are available:
// a process-local in-memory store, a SQLite-backed store for
// single-host deployments, and a PostgreSQL-backed store.
package store

import (
	"fmt"
	"sort"
	"sync"

	"github.com/nishant5790/ordering-agent/internal/models"
)

// Store defines the persistence operations the conversation engine
// depends on. UpsertOrder is idempotent on (session ID, order ID):
// re-saving the same record replaces the previous row rather than
// creating a duplicate.
type Store interface {
	AppendTurn(turn models.Turn) error
	GetTranscript(sessionID string) ([]models.Turn, error)
	UpsertOrder(rec models.OrderRecord) error
	GetOrdersBySession(sessionID string) ([]models.OrderRecord, error)
	GetOrders() ([]models.OrderRecord, error)
	Close() error
}

// Opts holds configuration for the database-backed stores.
type Opts struct {
	// DSN is the data source name. For SQLite this is a file path,
	// for PostgreSQL a connection string.
	DSN string
}

// Option configures database-backed store construction.
type Option func(*Opts)

// WithDSN sets the data source name.
func WithDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
	}
}

// InMemoryStore keeps turns and orders in process memory. It is used
// by tests and by the interactive mode when no database is configured.
type InMemoryStore struct {
	mu     sync.RWMutex
	turns  map[string][]models.Turn
	orders map[string]map[string]models.OrderRecord
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		turns:  make(map[string][]models.Turn),
		orders: make(map[string]map[string]models.OrderRecord),
	}
}

// AppendTurn records a single exchange at the end of the session's
// transcript.
func (s *InMemoryStore) AppendTurn(turn models.Turn) error {
	if turn.SessionID == "" {
		return fmt.Errorf("append turn: session ID is empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns[turn.SessionID] = append(s.turns[turn.SessionID], turn)
	return nil
}

// GetTranscript returns the session's turns in the order they were
// appended.
func (s *InMemoryStore) GetTranscript(sessionID string) ([]models.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	turns := s.turns[sessionID]
	out := make([]models.Turn, len(turns))
	copy(out, turns)
	return out, nil
}

// UpsertOrder inserts or replaces the record keyed by session ID and
// order ID.
func (s *InMemoryStore) UpsertOrder(rec models.OrderRecord) error {
	if rec.SessionID == "" || rec.ID == "" {
		return fmt.Errorf("upsert order: session ID and order ID must be set")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	bySession, ok := s.orders[rec.SessionID]
	if !ok {
		bySession = make(map[string]models.OrderRecord)
		s.orders[rec.SessionID] = bySession
	}
	bySession[rec.ID] = rec
	return nil
}

// GetOrdersBySession returns the session's saved orders sorted by
// creation time.
func (s *InMemoryStore) GetOrdersBySession(sessionID string) ([]models.OrderRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.OrderRecord
	for _, rec := range s.orders[sessionID] {
		out = append(out, rec)
	}
	sortOrders(out)
	return out, nil
}

// GetOrders returns all saved orders across sessions sorted by
// creation time.
func (s *InMemoryStore) GetOrders() ([]models.OrderRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.OrderRecord
	for _, bySession := range s.orders {
		for _, rec := range bySession {
			out = append(out, rec)
		}
	}
	sortOrders(out)
	return out, nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error {
	return nil
}

func sortOrders(recs []models.OrderRecord) {
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].CreatedAt.Equal(recs[j].CreatedAt) {
			return recs[i].ID < recs[j].ID
		}
		return recs[i].CreatedAt.Before(recs[j].CreatedAt)
	})
}
