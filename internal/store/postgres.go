// Package store provides storage backends for the ordering agent.
//
// This file implements a PostgreSQL-backed store for transcripts and orders.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/nishant5790/ordering-agent/internal/models"
	_ "github.com/lib/pq"
)

// Database connection pool configuration constants
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewPostgresStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	// Configure connection pool for better performance
	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) AppendTurn(turn models.Turn) error {
	_, err := s.db.Exec(`INSERT INTO conversations (session_id, timestamp, user_input, chatbot_response, agent) VALUES ($1, $2, $3, $4, $5)`,
		turn.SessionID, turn.Timestamp, turn.UserText, turn.BotText, string(turn.Handler))
	if err != nil {
		slog.Error("PostgresStore AppendTurn failed", "error", err, "sessionID", turn.SessionID)
		return fmt.Errorf("failed to insert turn for session %s: %w", turn.SessionID, err)
	}
	slog.Debug("PostgresStore AppendTurn succeeded", "sessionID", turn.SessionID, "handler", turn.Handler)
	return nil
}

func (s *PostgresStore) GetTranscript(sessionID string) ([]models.Turn, error) {
	rows, err := s.db.Query(`SELECT session_id, timestamp, user_input, chatbot_response, agent FROM conversations WHERE session_id = $1 ORDER BY id`, sessionID)
	if err != nil {
		slog.Error("PostgresStore GetTranscript query failed", "error", err, "sessionID", sessionID)
		return nil, fmt.Errorf("failed to query transcript: %w", err)
	}
	defer rows.Close()

	var turns []models.Turn
	for rows.Next() {
		var t models.Turn
		var handler string
		if err := rows.Scan(&t.SessionID, &t.Timestamp, &t.UserText, &t.BotText, &handler); err != nil {
			slog.Error("PostgresStore GetTranscript scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan transcript row: %w", err)
		}
		t.Handler = models.HandlerKind(handler)
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		slog.Error("PostgresStore GetTranscript rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate transcript rows: %w", err)
	}
	slog.Debug("PostgresStore GetTranscript succeeded", "sessionID", sessionID, "count", len(turns))
	return turns, nil
}

func (s *PostgresStore) UpsertOrder(rec models.OrderRecord) error {
	details, err := json.Marshal(rec.AdditionalDetails)
	if err != nil {
		slog.Error("PostgresStore UpsertOrder marshal failed", "error", err, "orderID", rec.ID)
		return fmt.Errorf("failed to marshal additional details: %w", err)
	}
	_, err = s.db.Exec(`INSERT INTO orders (id, session_id, title, description, order_type, product_name, quantity, brand_preference, additional_details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (session_id, id) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			order_type = EXCLUDED.order_type,
			product_name = EXCLUDED.product_name,
			quantity = EXCLUDED.quantity,
			brand_preference = EXCLUDED.brand_preference,
			additional_details = EXCLUDED.additional_details`,
		rec.ID, rec.SessionID, rec.Title, rec.Description, string(rec.Type), rec.ProductName, rec.Quantity, rec.BrandPreference, string(details), rec.CreatedAt)
	if err != nil {
		slog.Error("PostgresStore UpsertOrder failed", "error", err, "sessionID", rec.SessionID, "orderID", rec.ID)
		return fmt.Errorf("failed to upsert order %s: %w", rec.ID, err)
	}
	slog.Debug("PostgresStore UpsertOrder succeeded", "sessionID", rec.SessionID, "orderID", rec.ID)
	return nil
}

func (s *PostgresStore) GetOrdersBySession(sessionID string) ([]models.OrderRecord, error) {
	return s.queryOrders(`SELECT id, session_id, title, description, order_type, product_name, quantity, brand_preference, additional_details, created_at FROM orders WHERE session_id = $1 ORDER BY created_at, id`, sessionID)
}

func (s *PostgresStore) GetOrders() ([]models.OrderRecord, error) {
	return s.queryOrders(`SELECT id, session_id, title, description, order_type, product_name, quantity, brand_preference, additional_details, created_at FROM orders ORDER BY created_at, id`)
}

func (s *PostgresStore) queryOrders(query string, args ...any) ([]models.OrderRecord, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		slog.Error("PostgresStore order query failed", "error", err)
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var recs []models.OrderRecord
	for rows.Next() {
		rec, err := scanOrder(rows)
		if err != nil {
			slog.Error("PostgresStore order scan failed", "error", err)
			return nil, err
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		slog.Error("PostgresStore order rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate order rows: %w", err)
	}
	return recs, nil
}

func (s *PostgresStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
