// Package api provides HTTP handlers and the main API server logic for
// the ordering agent.
//
// It exposes RESTful endpoints for submitting chat messages and for
// reading transcripts and saved orders. The API integrates with the
// conversation and store modules.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/nishant5790/ordering-agent/internal/conversation"
	"github.com/nishant5790/ordering-agent/internal/models"
	"github.com/nishant5790/ordering-agent/internal/store"
)

// DefaultAddr is the listen address used when none is configured.
const DefaultAddr = ":8080"

// Server wires the conversation controller and the store to HTTP
// endpoints.
type Server struct {
	ctrl *conversation.Controller
	st   store.Store
	addr string
}

// NewServer creates an API server.
func NewServer(ctrl *conversation.Controller, st store.Store, addr string) *Server {
	if addr == "" {
		addr = DefaultAddr
	}
	return &Server{ctrl: ctrl, st: st, addr: addr}
}

// Handler returns the server's routing table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/messages", s.messagesHandler)
	mux.HandleFunc("/transcript", s.transcriptHandler)
	mux.HandleFunc("/orders", s.ordersHandler)
	return mux
}

// Run starts the HTTP server and blocks until the context is
// cancelled or the listener fails.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("API server listening", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// messagesHandler accepts one chat message and returns the reply.
func (s *Server) messagesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.messagesHandler: processing message request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.messagesHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req models.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.messagesHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := req.Validate(); err != nil {
		slog.Warn("Server.messagesHandler: validation failed", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	reply, err := s.ctrl.Submit(r.Context(), req.SessionID, req.Message)
	if err != nil {
		slog.Error("Server.messagesHandler: submit failed", "error", err, "sessionID", req.SessionID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to process message"))
		return
	}

	slog.Info("Server.messagesHandler: message processed", "sessionID", req.SessionID)
	writeJSONResponse(w, http.StatusOK, models.Success(models.SubmitResponse{
		SessionID: req.SessionID,
		Reply:     reply,
	}))
}

// transcriptHandler returns the stored transcript for a session.
func (s *Server) transcriptHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.transcriptHandler: processing transcript request", "method", r.Method)
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Missing required parameter: session_id"))
		return
	}

	turns, err := s.st.GetTranscript(sessionID)
	if err != nil {
		slog.Error("Server.transcriptHandler: transcript lookup failed", "error", err, "sessionID", sessionID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to fetch transcript"))
		return
	}
	if turns == nil {
		turns = []models.Turn{}
	}
	writeJSONResponse(w, http.StatusOK, models.Success(turns))
}

// ordersHandler returns saved orders, optionally filtered by session.
func (s *Server) ordersHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.ordersHandler: processing orders request", "method", r.Method)
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var (
		orders []models.OrderRecord
		err    error
	)
	if sessionID := r.URL.Query().Get("session_id"); sessionID != "" {
		orders, err = s.st.GetOrdersBySession(sessionID)
	} else {
		orders, err = s.st.GetOrders()
	}
	if err != nil {
		slog.Error("Server.ordersHandler: order lookup failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to fetch orders"))
		return
	}
	if orders == nil {
		orders = []models.OrderRecord{}
	}
	writeJSONResponse(w, http.StatusOK, models.Success(orders))
}

// fallbackErrorBody is served when a response value itself refuses to
// marshal.
const fallbackErrorBody = `{"status":"error","message":"Internal server error"}`

// writeJSONResponse marshals the response before touching the headers,
// so an encoding failure can still produce a well-formed error payload
// with the right status code.
func writeJSONResponse(w http.ResponseWriter, statusCode int, response interface{}) {
	data, err := json.Marshal(response)
	if err != nil {
		slog.Error("Server.writeJSONResponse: failed to marshal response", "error", err)
		data = []byte(fallbackErrorBody)
		statusCode = http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if _, err := w.Write(data); err != nil {
		slog.Error("Server.writeJSONResponse: failed to write response", "error", err)
	}
}
