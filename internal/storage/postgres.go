package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/IshaanNene/ItemSnap/internal/types"
)

// PostgresStore keeps one row per key in a PostgreSQL table.
type PostgresStore struct {
	db     *sql.DB
	table  string // quoted identifier
	logger *slog.Logger
}

// NewPostgresStore opens the database and creates the table if needed.
func NewPostgresStore(ctx context.Context, dsn, table string, logger *slog.Logger) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, &types.StorageError{Backend: "postgres", Err: fmt.Errorf("open: %w", err)}
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, &types.StorageError{Backend: "postgres", Err: fmt.Errorf("ping: %w", err)}
	}

	s := &PostgresStore{
		db:     db,
		table:  pq.QuoteIdentifier(table),
		logger: logger.With("component", "postgres_store"),
	}
	if err := s.createTable(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) createTable(ctx context.Context) error {
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		key TEXT PRIMARY KEY,
		value JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`, s.table)
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return &types.StorageError{Backend: "postgres", Err: fmt.Errorf("create table: %w", err)}
	}
	return nil
}

func (s *PostgresStore) Name() string { return "postgres" }

func (s *PostgresStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	query := fmt.Sprintf(`SELECT value FROM %s WHERE key = $1`, s.table)
	err := s.db.QueryRowContext(ctx, query, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, &types.StorageError{Backend: "postgres", Err: fmt.Errorf("select %s: %w", key, err)}
	}
	return value, true, nil
}

func (s *PostgresStore) Put(ctx context.Context, key string, value []byte) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (key, value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = EXCLUDED.updated_at
	`, s.table)
	if _, err := s.db.ExecContext(ctx, query, key, string(value), time.Now().UTC()); err != nil {
		return &types.StorageError{Backend: "postgres", Err: fmt.Errorf("upsert %s: %w", key, err)}
	}
	s.logger.Debug("value stored", "key", key, "bytes", len(value))
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE key = $1`, s.table)
	if _, err := s.db.ExecContext(ctx, query, key); err != nil {
		return &types.StorageError{Backend: "postgres", Err: fmt.Errorf("delete %s: %w", key, err)}
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
