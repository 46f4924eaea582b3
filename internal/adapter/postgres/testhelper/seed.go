package testhelper

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Namespace returns a namespace unique to this test so tests sharing the
// container never see each other's keys.
func Namespace(t *testing.T) string {
	t.Helper()
	return "test-" + uuid.New().String()[:8]
}

// SeedKV writes one raw kv_store row, bypassing the repository.
func SeedKV(t *testing.T, pool *pgxpool.Pool, namespace, key string, value []byte) {
	t.Helper()
	_, err := pool.Exec(context.Background(),
		`INSERT INTO kv_store (namespace, key, value) VALUES ($1, $2, $3)
		 ON CONFLICT (namespace, key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		namespace, key, value,
	)
	if err != nil {
		t.Fatalf("testhelper: SeedKV %s/%s: %v", namespace, key, err)
	}
}
