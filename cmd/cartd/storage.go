package main

import (
	"context"
	"fmt"

	"github.com/fjod/storefront-cart/internal/config"
	"github.com/fjod/storefront-cart/internal/storage"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// openStorage connects the configured durable backend for persisted carts.
func openStorage(ctx context.Context, cfg config.StorageConfig, log *zap.Logger) (storage.KeyValueStore, error) {
	switch cfg.Driver {
	case "memory":
		log.Warn("using in-memory cart storage, carts will not survive a restart")
		return storage.NewMemoryStore(), nil

	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("redis connection failed: %w", err)
		}
		log.Info("connected to redis", zap.String("addr", cfg.RedisAddr))
		return storage.NewRedisStore(client, 0), nil

	case "mongo":
		db, err := storage.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		store := storage.NewMongoStore(db, cfg.MongoCollection, cfg.MongoTTL)
		if err := store.CreateIndexes(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to create mongo indexes: %w", err)
		}
		log.Info("connected to mongodb", zap.String("database", cfg.MongoDatabase))
		return store, nil

	case "sqlite":
		store, err := storage.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		log.Info("opened sqlite storage", zap.String("path", cfg.SQLitePath))
		return store, nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
