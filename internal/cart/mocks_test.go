package cart

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/fjod/storefront-cart/internal/catalog"
	"github.com/fjod/storefront-cart/internal/domain"
	"github.com/fjod/storefront-cart/internal/storage"
)

type mockLookup struct {
	m        sync.RWMutex
	products map[int64]domain.Product
	errs     map[int64]error
	gate     chan struct{} // when set, lookups block until it is closed

	calls    atomic.Int32
	inFlight atomic.Int32
	peak     atomic.Int32
}

func newMockLookup(products ...domain.Product) *mockLookup {
	m := &mockLookup{
		products: make(map[int64]domain.Product),
		errs:     make(map[int64]error),
	}
	for _, p := range products {
		m.products[p.ID] = p
	}
	return m
}

func (m *mockLookup) set(p domain.Product) {
	m.m.Lock()
	defer m.m.Unlock()
	m.products[p.ID] = p
}

func (m *mockLookup) fail(id int64, err error) {
	m.m.Lock()
	defer m.m.Unlock()
	m.errs[id] = err
}

func (m *mockLookup) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	m.calls.Add(1)
	n := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	for {
		peak := m.peak.Load()
		if n <= peak || m.peak.CompareAndSwap(peak, n) {
			break
		}
	}

	if m.gate != nil {
		select {
		case <-m.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.m.RLock()
	defer m.m.RUnlock()
	if err, ok := m.errs[id]; ok {
		return nil, err
	}
	p, ok := m.products[id]
	if !ok {
		return nil, catalog.ErrProductNotFound
	}
	return &p, nil
}

// recordingStorage counts writes on top of an in-memory store.
type recordingStorage struct {
	*storage.MemoryStore
	writes  atomic.Int32
	failing atomic.Bool
	failGet atomic.Bool
}

func newRecordingStorage() *recordingStorage {
	return &recordingStorage{MemoryStore: storage.NewMemoryStore()}
}

func (r *recordingStorage) Set(ctx context.Context, key, value string) error {
	r.writes.Add(1)
	if r.failing.Load() {
		return errors.New("disk full")
	}
	return r.MemoryStore.Set(ctx, key, value)
}

func (r *recordingStorage) Get(ctx context.Context, key string) (string, error) {
	if r.failGet.Load() {
		return "", errors.New("connection reset")
	}
	return r.MemoryStore.Get(ctx, key)
}
