package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/mongo"
)

func setupTestMongo(t *testing.T) *mongo.Database {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping mongodb container test in short mode")
	}
	ctx := context.Background()

	mongoContainer, err := mongodb.Run(ctx, "mongo:7")
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := mongoContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	uri, err := mongoContainer.ConnectionString(ctx)
	require.NoError(t, err)

	db, err := ConnectMongoDB(ctx, uri, "testdb")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Client().Disconnect(ctx) })
	return db
}

func TestMongoStore(t *testing.T) {
	db := setupTestMongo(t)
	ctx := context.Background()

	store := NewMongoStore(db, "carts", 0)
	require.NoError(t, store.CreateIndexes(ctx))

	exerciseStore(t, store)

	names, err := store.expiryIndexes(ctx)
	require.NoError(t, err)
	assert.Empty(t, names, "carts must not expire by default")
}

func TestMongoStore_ExpiryIsOptIn(t *testing.T) {
	db := setupTestMongo(t)
	ctx := context.Background()

	expiring := NewMongoStore(db, "carts", 24*time.Hour)
	require.NoError(t, expiring.CreateIndexes(ctx))
	names, err := expiring.expiryIndexes(ctx)
	require.NoError(t, err)
	assert.Len(t, names, 1)

	// switching back to no ttl removes the index
	durable := NewMongoStore(db, "carts", 0)
	require.NoError(t, durable.CreateIndexes(ctx))
	names, err = durable.expiryIndexes(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)
}
