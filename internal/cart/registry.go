package cart

import (
	"context"
	"fmt"
	"sync"

	"github.com/fjod/storefront-cart/internal/catalog"
	"github.com/fjod/storefront-cart/internal/storage"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

const defaultMaxStores = 10000

// StorageKey is the persisted key for a profile. The anonymous profile uses the
// bare "cart" key.
func StorageKey(profile string) string {
	if profile == "" {
		return "cart"
	}
	return fmt.Sprintf("cart:%s", profile)
}

// Registry hands out one Store per profile, opening it on first use. At most
// opts.MaxStores stores stay open; the least recently used one is dropped
// first and rehydrates from storage when its profile comes back.
type Registry struct {
	ctx      context.Context
	storage  storage.KeyValueStore
	products catalog.ProductLookup
	opts     Options
	log      *zap.Logger

	mu     sync.Mutex
	stores *lru.Cache[string, *Store]
}

// NewRegistry returns a Registry whose stores rehydrate under ctx. opts.Key is
// ignored; each store is keyed by its profile.
func NewRegistry(ctx context.Context, kv storage.KeyValueStore, products catalog.ProductLookup, opts Options) *Registry {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.MaxStores <= 0 {
		opts.MaxStores = defaultMaxStores
	}
	// size is positive, New cannot fail
	stores, _ := lru.New[string, *Store](opts.MaxStores)

	return &Registry{
		ctx:      ctx,
		storage:  kv,
		products: products,
		opts:     opts,
		log:      opts.Logger,
		stores:   stores,
	}
}

// Get returns the Store for profile. The first call for a profile starts its
// rehydration; callers that need loaded state should WaitLoaded. A store whose
// load was incomplete is replaced so the next request reads storage again.
func (r *Registry) Get(profile string) *Store {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.stores.Get(profile); ok {
		if !s.PersistenceSuspended() {
			return s
		}
		r.log.Info("reopening cart store after incomplete load", zap.String("profile", profile))
	}

	opts := r.opts
	opts.Key = StorageKey(profile)
	s := Open(r.ctx, r.storage, r.products, opts)
	r.stores.Add(profile, s)
	r.log.Debug("cart store opened", zap.String("profile", profile))
	return s
}

// Len is the number of open stores.
func (r *Registry) Len() int {
	return r.stores.Len()
}
