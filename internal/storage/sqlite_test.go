package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStore(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "cart.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	exerciseStore(t, store)
}

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cart.db")
	ctx := context.Background()

	first, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, "cart", `[{"productId":9,"quantity":1,"selected":true}]`))
	require.NoError(t, first.Close())

	// migrations already applied, reopening must not fail
	second, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer second.Close()

	v, err := second.Get(ctx, "cart")
	require.NoError(t, err)
	assert.Equal(t, `[{"productId":9,"quantity":1,"selected":true}]`, v)
}
