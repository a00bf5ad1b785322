// Package store provides storage backends for the ordering agent.
//
// This file implements a SQLite-backed store for transcripts and orders.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "embed"

	"github.com/nishant5790/ordering-agent/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// DefaultDirPermissions defines the default permissions for database directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN should be a file path to the SQLite database file.
// If the directory doesn't exist, it will be created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) AppendTurn(turn models.Turn) error {
	_, err := s.db.Exec(`INSERT INTO conversations (session_id, timestamp, user_input, chatbot_response, agent) VALUES (?, ?, ?, ?, ?)`,
		turn.SessionID, turn.Timestamp, turn.UserText, turn.BotText, string(turn.Handler))
	if err != nil {
		slog.Error("SQLiteStore AppendTurn failed", "error", err, "sessionID", turn.SessionID)
		return fmt.Errorf("failed to insert turn for session %s: %w", turn.SessionID, err)
	}
	slog.Debug("SQLiteStore AppendTurn succeeded", "sessionID", turn.SessionID, "handler", turn.Handler)
	return nil
}

func (s *SQLiteStore) GetTranscript(sessionID string) ([]models.Turn, error) {
	rows, err := s.db.Query(`SELECT session_id, timestamp, user_input, chatbot_response, agent FROM conversations WHERE session_id = ? ORDER BY id`, sessionID)
	if err != nil {
		slog.Error("SQLiteStore GetTranscript query failed", "error", err, "sessionID", sessionID)
		return nil, fmt.Errorf("failed to query transcript: %w", err)
	}
	defer rows.Close()

	var turns []models.Turn
	for rows.Next() {
		var t models.Turn
		var handler string
		if err := rows.Scan(&t.SessionID, &t.Timestamp, &t.UserText, &t.BotText, &handler); err != nil {
			slog.Error("SQLiteStore GetTranscript scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan transcript row: %w", err)
		}
		t.Handler = models.HandlerKind(handler)
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		slog.Error("SQLiteStore GetTranscript rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate transcript rows: %w", err)
	}
	slog.Debug("SQLiteStore GetTranscript succeeded", "sessionID", sessionID, "count", len(turns))
	return turns, nil
}

func (s *SQLiteStore) UpsertOrder(rec models.OrderRecord) error {
	details, err := json.Marshal(rec.AdditionalDetails)
	if err != nil {
		slog.Error("SQLiteStore UpsertOrder marshal failed", "error", err, "orderID", rec.ID)
		return fmt.Errorf("failed to marshal additional details: %w", err)
	}
	_, err = s.db.Exec(`INSERT INTO orders (id, session_id, title, description, order_type, product_name, quantity, brand_preference, additional_details, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id, id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			order_type = excluded.order_type,
			product_name = excluded.product_name,
			quantity = excluded.quantity,
			brand_preference = excluded.brand_preference,
			additional_details = excluded.additional_details`,
		rec.ID, rec.SessionID, rec.Title, rec.Description, string(rec.Type), rec.ProductName, rec.Quantity, rec.BrandPreference, string(details), rec.CreatedAt)
	if err != nil {
		slog.Error("SQLiteStore UpsertOrder failed", "error", err, "sessionID", rec.SessionID, "orderID", rec.ID)
		return fmt.Errorf("failed to upsert order %s: %w", rec.ID, err)
	}
	slog.Debug("SQLiteStore UpsertOrder succeeded", "sessionID", rec.SessionID, "orderID", rec.ID)
	return nil
}

func (s *SQLiteStore) GetOrdersBySession(sessionID string) ([]models.OrderRecord, error) {
	return s.queryOrders(`SELECT id, session_id, title, description, order_type, product_name, quantity, brand_preference, additional_details, created_at FROM orders WHERE session_id = ? ORDER BY created_at, id`, sessionID)
}

func (s *SQLiteStore) GetOrders() ([]models.OrderRecord, error) {
	return s.queryOrders(`SELECT id, session_id, title, description, order_type, product_name, quantity, brand_preference, additional_details, created_at FROM orders ORDER BY created_at, id`)
}

func (s *SQLiteStore) queryOrders(query string, args ...any) ([]models.OrderRecord, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		slog.Error("SQLiteStore order query failed", "error", err)
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var recs []models.OrderRecord
	for rows.Next() {
		rec, err := scanOrder(rows)
		if err != nil {
			slog.Error("SQLiteStore order scan failed", "error", err)
			return nil, err
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		slog.Error("SQLiteStore order rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate order rows: %w", err)
	}
	return recs, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
