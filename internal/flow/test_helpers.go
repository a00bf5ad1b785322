package flow

import (
	"context"
	"errors"

	"github.com/nishant5790/ordering-agent/internal/models"
	"github.com/nishant5790/ordering-agent/internal/store"
)

// mockCompleter is a canned model client for tests. A zero value
// fails every call, which exercises the deterministic fallbacks.
type mockCompleter struct {
	reply string
	err   error
	calls int
}

func (m *mockCompleter) Complete(ctx context.Context, systemPrompt, userPrompt string, maxTokens int64) (string, error) {
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	if m.reply == "" {
		return "", errors.New("mock completer: no reply configured")
	}
	return m.reply, nil
}

// flakyStore wraps an in-memory store and fails the first failUpserts
// calls to UpsertOrder.
type flakyStore struct {
	*store.InMemoryStore
	failUpserts int
	upsertCalls int
}

func newFlakyStore(failUpserts int) *flakyStore {
	return &flakyStore{InMemoryStore: store.NewInMemoryStore(), failUpserts: failUpserts}
}

func (s *flakyStore) UpsertOrder(rec models.OrderRecord) error {
	s.upsertCalls++
	if s.upsertCalls <= s.failUpserts {
		return errors.New("simulated storage outage")
	}
	return s.InMemoryStore.UpsertOrder(rec)
}
