// Package kvstore persists cache records in a local SQLite file, the
// process-side counterpart of browser localStorage.
package kvstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	sq "github.com/Masterminds/squirrel"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/heartmarshall/refdict/internal/domain"
	"github.com/heartmarshall/refdict/migrations"
)

const table = "kv_store"

// Store is a SQLite-backed key-value store.
type Store struct {
	db  *sql.DB
	log *slog.Logger
}

// Open opens (creating if needed) the database at path and applies pending
// migrations. Use ":memory:" for a throwaway database.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	// A single connection keeps ":memory:" databases alive and serialises writers.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	if err := migrations.Up(ctx, goose.DialectSQLite3, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: migrate: %w", err)
	}

	return &Store{db: db, log: logger.With("adapter", "sqlite_kv")}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks that the database file is still reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Get returns the value of key or domain.ErrNotFound.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	query, args, err := sq.Select("value").From(table).Where(sq.Eq{"key": key}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var value []byte
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("key %q: %w", key, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("key %q: %w", key, err)
	}
	return value, nil
}

// PutMany upserts every value in one transaction.
func (s *Store) PutMany(ctx context.Context, values map[string][]byte) error {
	if len(values) == 0 {
		return nil
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return s.upsert(ctx, tx, values)
	})
}

// PutManyUnlessNewer upserts values unless versionKey already holds a
// decimal version greater than version. Transactions begin IMMEDIATE, so the
// read and the write happen under the database write lock. It reports
// whether it wrote.
func (s *Store) PutManyUnlessNewer(ctx context.Context, versionKey string, version int64, values map[string][]byte) (bool, error) {
	written := false
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		query, args, err := sq.Select("value").From(table).Where(sq.Eq{"key": versionKey}).ToSql()
		if err != nil {
			return fmt.Errorf("build query: %w", err)
		}
		var stored []byte
		switch err := tx.QueryRowContext(ctx, query, args...).Scan(&stored); {
		case err == nil:
			if v, parseErr := strconv.ParseInt(string(stored), 10, 64); parseErr == nil && v > version {
				s.log.DebugContext(ctx, "kept newer record", slog.String("key", versionKey), slog.Int64("stored", v))
				return nil
			}
		case !errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("key %q: %w", versionKey, err)
		}

		if err := s.upsert(ctx, tx, values); err != nil {
			return err
		}
		written = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return written, nil
}

func (s *Store) upsert(ctx context.Context, tx *sql.Tx, values map[string][]byte) error {
	insert := sq.Insert(table).Columns("key", "value", "updated_at")
	for k, v := range values {
		insert = insert.Values(k, v, sq.Expr("unixepoch()"))
	}
	query, args, err := insert.
		Suffix("ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert %d keys: %w", len(values), err)
	}
	s.log.DebugContext(ctx, "stored keys", slog.Int("count", len(values)))
	return nil
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Delete removes keys. Missing keys are ignored.
func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	query, args, err := sq.Delete(table).Where(sq.Eq{"key": keys}).ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete %d keys: %w", len(keys), err)
	}
	return nil
}
