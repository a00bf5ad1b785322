package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/nishant5790/ordering-agent/internal/models"
)

func sampleTurn(sessionID, user, bot string, at time.Time) models.Turn {
	return models.Turn{
		SessionID: sessionID,
		Timestamp: at,
		UserText:  user,
		BotText:   bot,
		Handler:   models.HandlerOrchestrator,
	}
}

func sampleOrder(sessionID, orderID string, at time.Time) models.OrderRecord {
	return models.OrderRecord{
		ID:              orderID,
		SessionID:       sessionID,
		Title:           "Office desks",
		Description:     "10 wooden desks",
		Type:            models.OrderTypeGeneric,
		ProductName:     "wooden desks",
		Quantity:        10,
		BrandPreference: "UrbanCraft",
		AdditionalDetails: map[string]string{
			"initial_request": "I need 10 wooden desks",
		},
		CreatedAt: at,
	}
}

func TestInMemoryStoreTranscriptOrdering(t *testing.T) {
	s := NewInMemoryStore()
	base := time.Now()

	for i, user := range []string{"hello", "Office desks", "10 wooden desks"} {
		if err := s.AppendTurn(sampleTurn("s1", user, "ok", base.Add(time.Duration(i)*time.Second))); err != nil {
			t.Fatalf("AppendTurn failed: %v", err)
		}
	}
	if err := s.AppendTurn(sampleTurn("s2", "other session", "ok", base)); err != nil {
		t.Fatalf("AppendTurn failed: %v", err)
	}

	turns, err := s.GetTranscript("s1")
	if err != nil {
		t.Fatalf("GetTranscript failed: %v", err)
	}
	if len(turns) != 3 {
		t.Fatalf("expected 3 turns, got %d", len(turns))
	}
	if turns[0].UserText != "hello" || turns[2].UserText != "10 wooden desks" {
		t.Errorf("turns out of order: %q, %q", turns[0].UserText, turns[2].UserText)
	}
}

func TestInMemoryStoreUpsertIdempotent(t *testing.T) {
	s := NewInMemoryStore()
	at := time.Now()
	rec := sampleOrder("s1", "o1", at)

	if err := s.UpsertOrder(rec); err != nil {
		t.Fatalf("first UpsertOrder failed: %v", err)
	}
	rec.BrandPreference = "no preference"
	if err := s.UpsertOrder(rec); err != nil {
		t.Fatalf("second UpsertOrder failed: %v", err)
	}

	orders, err := s.GetOrdersBySession("s1")
	if err != nil {
		t.Fatalf("GetOrdersBySession failed: %v", err)
	}
	if len(orders) != 1 {
		t.Fatalf("expected 1 order after re-save, got %d", len(orders))
	}
	if orders[0].BrandPreference != "no preference" {
		t.Errorf("re-save did not replace record: brand = %q", orders[0].BrandPreference)
	}
}

func TestInMemoryStoreRejectsEmptyKeys(t *testing.T) {
	s := NewInMemoryStore()
	if err := s.AppendTurn(models.Turn{}); err == nil {
		t.Error("expected error for turn without session ID")
	}
	if err := s.UpsertOrder(models.OrderRecord{SessionID: "s1"}); err == nil {
		t.Error("expected error for order without ID")
	}
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "orders.db")
	s, err := NewSQLiteStore(WithDSN(dsn))
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer s.Close()

	at := time.Now().UTC().Truncate(time.Second)
	if err := s.AppendTurn(sampleTurn("s1", "I need 10 wooden desks", "Please provide a title for this order.", at)); err != nil {
		t.Fatalf("AppendTurn failed: %v", err)
	}
	turns, err := s.GetTranscript("s1")
	if err != nil {
		t.Fatalf("GetTranscript failed: %v", err)
	}
	if len(turns) != 1 || turns[0].Handler != models.HandlerOrchestrator {
		t.Fatalf("unexpected transcript: %+v", turns)
	}

	rec := sampleOrder("s1", "o1", at)
	if err := s.UpsertOrder(rec); err != nil {
		t.Fatalf("UpsertOrder failed: %v", err)
	}
	rec.Quantity = 12
	if err := s.UpsertOrder(rec); err != nil {
		t.Fatalf("UpsertOrder re-save failed: %v", err)
	}

	orders, err := s.GetOrders()
	if err != nil {
		t.Fatalf("GetOrders failed: %v", err)
	}
	if len(orders) != 1 {
		t.Fatalf("expected 1 order, got %d", len(orders))
	}
	got := orders[0]
	if got.Quantity != 12 {
		t.Errorf("quantity = %d, want 12", got.Quantity)
	}
	if got.Type != models.OrderTypeGeneric {
		t.Errorf("type = %q, want %q", got.Type, models.OrderTypeGeneric)
	}
	if got.AdditionalDetails["initial_request"] != "I need 10 wooden desks" {
		t.Errorf("additional details lost: %+v", got.AdditionalDetails)
	}
}

func TestSQLiteStoreRequiresDSN(t *testing.T) {
	if _, err := NewSQLiteStore(); err == nil {
		t.Error("expected error for missing DSN")
	}
}
