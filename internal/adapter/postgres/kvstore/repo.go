// Package kvstore implements the durable cache store on a shared PostgreSQL
// table, one namespace per tenant.
package kvstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/heartmarshall/refdict/internal/adapter/postgres"
	"github.com/heartmarshall/refdict/internal/domain"
)

const table = "kv_store"

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Repo stores key-value pairs in kv_store.
type Repo struct {
	pool      *pgxpool.Pool
	txm       *postgres.TxManager
	namespace string
}

// New creates a repository scoped to namespace.
func New(pool *pgxpool.Pool, txm *postgres.TxManager, namespace string) *Repo {
	return &Repo{pool: pool, txm: txm, namespace: namespace}
}

// Ping checks the connection pool.
func (r *Repo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Get returns the value stored under key or an error wrapping domain.ErrNotFound.
func (r *Repo) Get(ctx context.Context, key string) ([]byte, error) {
	query, args, err := psql.Select("value").
		From(table).
		Where(sq.Eq{"namespace": r.namespace, "key": key}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var value []byte
	if err := postgres.QuerierFromCtx(ctx, r.pool).QueryRow(ctx, query, args...).Scan(&value); err != nil {
		return nil, postgres.MapError(err, "kv", key)
	}
	return value, nil
}

// PutMany upserts every value in one transaction.
func (r *Repo) PutMany(ctx context.Context, values map[string][]byte) error {
	if len(values) == 0 {
		return nil
	}
	return r.txm.RunInTx(ctx, func(ctx context.Context) error {
		return r.upsert(ctx, values)
	})
}

// PutManyUnlessNewer upserts values unless versionKey already holds a
// decimal version greater than version. Writers of the same key are
// serialised by a transaction-scoped advisory lock, which also covers the
// first write when no row exists yet to lock. It reports whether it wrote.
func (r *Repo) PutManyUnlessNewer(ctx context.Context, versionKey string, version int64, values map[string][]byte) (bool, error) {
	written := false
	err := r.txm.RunInTx(ctx, func(ctx context.Context) error {
		q := postgres.QuerierFromCtx(ctx, r.pool)
		if _, err := q.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", r.namespace+"/"+versionKey); err != nil {
			return postgres.MapError(err, "kv lock", versionKey)
		}

		stored, err := r.Get(ctx, versionKey)
		switch {
		case err == nil:
			if v, parseErr := strconv.ParseInt(string(stored), 10, 64); parseErr == nil && v > version {
				return nil
			}
		case !errors.Is(err, domain.ErrNotFound):
			return err
		}

		if err := r.upsert(ctx, values); err != nil {
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

func (r *Repo) upsert(ctx context.Context, values map[string][]byte) error {
	if len(values) == 0 {
		return nil
	}
	insert := psql.Insert(table).Columns("namespace", "key", "value", "updated_at")
	keys := make([]string, 0, len(values))
	for k, v := range values {
		insert = insert.Values(r.namespace, k, v, sq.Expr("now()"))
		keys = append(keys, k)
	}
	query, args, err := insert.
		Suffix("ON CONFLICT (namespace, key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	if _, err := postgres.QuerierFromCtx(ctx, r.pool).Exec(ctx, query, args...); err != nil {
		return postgres.MapError(err, "kv", strings.Join(keys, ","))
	}
	return nil
}

// Delete removes keys. Missing keys are ignored.
func (r *Repo) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	query, args, err := psql.Delete(table).
		Where(sq.Eq{"namespace": r.namespace, "key": keys}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	if _, err := postgres.QuerierFromCtx(ctx, r.pool).Exec(ctx, query, args...); err != nil {
		return postgres.MapError(err, "kv", strings.Join(keys, ","))
	}
	return nil
}

// Purge deletes every key of the namespace and returns how many were removed.
func (r *Repo) Purge(ctx context.Context) (int64, error) {
	query, args, err := psql.Delete(table).Where(sq.Eq{"namespace": r.namespace}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}
	tag, err := postgres.QuerierFromCtx(ctx, r.pool).Exec(ctx, query, args...)
	if err != nil {
		return 0, postgres.MapError(err, "kv namespace", r.namespace)
	}
	return tag.RowsAffected(), nil
}
