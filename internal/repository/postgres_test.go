package repository

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestPostgresStore runs against a real server when SCOPE3_TEST_DB_URL is set.
func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("SCOPE3_TEST_DB_URL")
	if dsn == "" {
		t.Skip("SCOPE3_TEST_DB_URL not set")
	}
	ctx := context.Background()
	store, err := OpenPostgresStore(ctx, Config{DSN: dsn, MaxConns: 4}, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = store.pool.Exec(ctx, `DELETE FROM analyses WHERE invoice_id LIKE 'INV-%'`)
		_ = store.Close()
	})
	exerciseStore(t, store)
}
