package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nishant5790/ordering-agent/internal/classify"
	"github.com/nishant5790/ordering-agent/internal/conversation"
	"github.com/nishant5790/ordering-agent/internal/extract"
	"github.com/nishant5790/ordering-agent/internal/models"
	"github.com/nishant5790/ordering-agent/internal/store"
)

type offlineCompleter struct{}

func (offlineCompleter) Complete(ctx context.Context, systemPrompt, userPrompt string, maxTokens int64) (string, error) {
	return "", errors.New("model offline")
}

func newTestServer() (*Server, *store.InMemoryStore) {
	st := store.NewInMemoryStore()
	ctrl := conversation.NewController(
		classify.New(offlineCompleter{}, 0),
		extract.New(offlineCompleter{}),
		st,
	)
	return NewServer(ctrl, st, ""), st
}

func postMessage(t *testing.T, h http.Handler, sessionID, message string) models.APIResponse {
	t.Helper()
	body, err := json.Marshal(models.SubmitRequest{SessionID: sessionID, Message: message})
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/messages", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /messages status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp models.APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func replyOf(t *testing.T, resp models.APIResponse) string {
	t.Helper()
	data, err := json.Marshal(resp.Result)
	if err != nil {
		t.Fatalf("re-marshal result: %v", err)
	}
	var sr models.SubmitResponse
	if err := json.Unmarshal(data, &sr); err != nil {
		t.Fatalf("decode submit response: %v", err)
	}
	return sr.Reply
}

func TestMessagesEndpointDrivesConversation(t *testing.T) {
	srv, st := newTestServer()
	h := srv.Handler()

	resp := postMessage(t, h, "s1", "I need 10 wooden desks")
	if resp.Status != models.APIStatusOK {
		t.Fatalf("status = %q, message = %q", resp.Status, resp.Message)
	}
	if got := replyOf(t, resp); got != "Please provide a title for this order." {
		t.Errorf("reply = %q", got)
	}

	postMessage(t, h, "s1", "Office desks")
	resp = postMessage(t, h, "s1", "10 wooden desks for the new conference room.")
	if got := replyOf(t, resp); !strings.Contains(got, "Any brand or vendor preference?") {
		t.Errorf("reply = %q", got)
	}
	postMessage(t, h, "s1", "no")
	resp = postMessage(t, h, "s1", "yes")
	if got := replyOf(t, resp); !strings.Contains(got, "Order confirmed and saved!") {
		t.Errorf("reply = %q", got)
	}

	orders, _ := st.GetOrdersBySession("s1")
	if len(orders) != 1 {
		t.Errorf("expected 1 saved order, got %d", len(orders))
	}
}

func TestMessagesEndpointRejectsBadRequests(t *testing.T) {
	srv, _ := newTestServer()
	h := srv.Handler()

	req := httptest.NewRequest(http.MethodPost, "/messages", strings.NewReader("not json"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid JSON status = %d", rec.Code)
	}

	body, _ := json.Marshal(models.SubmitRequest{Message: "hi"})
	req = httptest.NewRequest(http.MethodPost, "/messages", bytes.NewReader(body))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing session status = %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/messages", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET status = %d", rec.Code)
	}
}

func TestTranscriptEndpoint(t *testing.T) {
	srv, _ := newTestServer()
	h := srv.Handler()

	postMessage(t, h, "s1", "I need 10 wooden desks")

	req := httptest.NewRequest(http.MethodGet, "/transcript?session_id=s1", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Status string        `json:"status"`
		Result []models.Turn `json:"result"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Result) != 1 || resp.Result[0].UserText != "I need 10 wooden desks" {
		t.Errorf("transcript = %+v", resp.Result)
	}

	req = httptest.NewRequest(http.MethodGet, "/transcript", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing session_id status = %d", rec.Code)
	}
}

func TestWriteJSONResponseFallsBackOnEncodeFailure(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSONResponse(rec, http.StatusOK, map[string]interface{}{"ch": make(chan int)})

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
	var resp models.APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("fallback body is not valid JSON: %v", err)
	}
	if resp.Status != models.APIStatusError {
		t.Errorf("fallback status = %q", resp.Status)
	}
}

func TestOrdersEndpoint(t *testing.T) {
	srv, st := newTestServer()
	h := srv.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"result":[]`) {
		t.Errorf("empty orders body = %s", rec.Body.String())
	}

	rec2 := models.OrderRecord{ID: "o1", SessionID: "s1", Title: "Office desks", Type: models.OrderTypeGeneric, ProductName: "wooden desks", Quantity: 10}
	if err := st.UpsertOrder(rec2); err != nil {
		t.Fatalf("UpsertOrder failed: %v", err)
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/orders?session_id=s1", nil))
	var resp struct {
		Result []models.OrderRecord `json:"result"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Result) != 1 || resp.Result[0].ID != "o1" {
		t.Errorf("orders = %+v", resp.Result)
	}
}
