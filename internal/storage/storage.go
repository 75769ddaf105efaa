// Package storage provides the durable key-value stores that hold persisted carts.
package storage

import (
	"context"
	"errors"
)

// KeyValueStore is durable string storage that survives process restarts.
type KeyValueStore interface {
	// Get returns the value stored under key or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Close() error
}

var ErrNotFound = errors.New("key not found")
