// Package cart holds the client-side shopping cart: an in-memory list of entries
// kept in sync with a durable projection and rebuilt from the catalog on startup.
package cart

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/fjod/storefront-cart/internal/catalog"
	"github.com/fjod/storefront-cart/internal/domain"
	"github.com/fjod/storefront-cart/internal/storage"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	defaultConcurrency   = 8
	defaultLookupTimeout = 5 * time.Second
	persistTimeout       = 5 * time.Second
)

// Listener receives a copy of the entries after every applied change.
// Listeners must not call mutating Store methods synchronously.
type Listener func(entries []domain.CartEntry)

// update is a functional change applied against the latest entries. It must not
// modify its input in place and reports whether anything changed.
type update func(entries []domain.CartEntry) ([]domain.CartEntry, bool)

type Options struct {
	// Key is the storage key of the persisted projection.
	Key string
	// Concurrency bounds the product lookups issued during rehydration.
	Concurrency int
	// LookupTimeout bounds each rehydration lookup. Zero uses the default.
	LookupTimeout time.Duration
	Logger        *zap.Logger
	// MaxStores caps the stores a Registry keeps open. Zero uses the default.
	MaxStores int
}

// Store is the single source of truth for one profile's cart.
type Store struct {
	key           string
	storage       storage.KeyValueStore
	products      catalog.ProductLookup
	log           *zap.Logger
	concurrency   int
	lookupTimeout time.Duration

	mu      sync.Mutex
	entries []domain.CartEntry
	loading bool
	pending []update
	loaded  chan struct{}
	once    sync.Once
	// suspended is set when the load could not establish the durable state
	suspended bool

	// notifyMu keeps listener calls in mutation order
	notifyMu  sync.Mutex
	lmu       sync.Mutex
	listeners map[int]Listener
	nextID    int
}

// New returns a Store in the loading state. Call Rehydrate to load it, or use
// Open which does both.
func New(kv storage.KeyValueStore, products catalog.ProductLookup, opts Options) *Store {
	if opts.Key == "" {
		opts.Key = StorageKey("")
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	if opts.LookupTimeout <= 0 {
		opts.LookupTimeout = defaultLookupTimeout
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return &Store{
		key:           opts.Key,
		storage:       kv,
		products:      products,
		log:           opts.Logger.With(zap.String("cart_key", opts.Key)),
		concurrency:   opts.Concurrency,
		lookupTimeout: opts.LookupTimeout,
		loading:       true,
		loaded:        make(chan struct{}),
		listeners:     make(map[int]Listener),
	}
}

// Open creates a Store and starts rehydrating it in the background.
func Open(ctx context.Context, kv storage.KeyValueStore, products catalog.ProductLookup, opts Options) *Store {
	s := New(kv, products, opts)
	go s.Rehydrate(ctx)
	return s
}

// AddItem puts one unit of product in the cart. An existing entry is incremented
// up to the product's stock and silently stays put at the cap; a new entry starts
// unselected with quantity 1. Out of stock products are ignored.
func (s *Store) AddItem(product domain.Product) {
	s.apply(func(entries []domain.CartEntry) ([]domain.CartEntry, bool) {
		if product.Stock <= 0 {
			return entries, false
		}
		i := indexOf(entries, product.ID)
		if i < 0 {
			out := slices.Clone(entries)
			return append(out, domain.CartEntry{Product: product, Quantity: 1}), true
		}

		out := slices.Clone(entries)
		out[i].Product = product
		out[i].Quantity = clamp(out[i].Quantity+1, product.Stock)
		return out, out[i] != entries[i]
	})
}

// RemoveItem deletes the entry for productID if present.
func (s *Store) RemoveItem(productID int64) {
	s.RemoveItems(productID)
}

// RemoveItems deletes the entries for all given product ids.
func (s *Store) RemoveItems(productIDs ...int64) {
	s.apply(func(entries []domain.CartEntry) ([]domain.CartEntry, bool) {
		out := slices.DeleteFunc(slices.Clone(entries), func(e domain.CartEntry) bool {
			return slices.Contains(productIDs, e.Product.ID)
		})
		return out, len(out) != len(entries)
	})
}

// UpdateQuantity sets the quantity of an entry, clamped to [1, stock] the same
// way AddItem clamps. Unknown ids are ignored.
func (s *Store) UpdateQuantity(productID int64, quantity int) {
	s.apply(func(entries []domain.CartEntry) ([]domain.CartEntry, bool) {
		i := indexOf(entries, productID)
		if i < 0 {
			return entries, false
		}
		q := clamp(quantity, entries[i].Product.Stock)
		if q == entries[i].Quantity {
			return entries, false
		}
		out := slices.Clone(entries)
		out[i].Quantity = q
		return out, true
	})
}

// DeductItems lowers each listed entry by the given quantity and removes the
// entries that reach zero. Entries raised after the quantities were taken keep
// the difference.
func (s *Store) DeductItems(quantities map[int64]int) {
	s.apply(func(entries []domain.CartEntry) ([]domain.CartEntry, bool) {
		out := make([]domain.CartEntry, 0, len(entries))
		changed := false
		for _, e := range entries {
			q := quantities[e.Product.ID]
			if q <= 0 {
				out = append(out, e)
				continue
			}
			changed = true
			if e.Quantity > q {
				e.Quantity -= q
				out = append(out, e)
			}
		}
		return out, changed
	})
}

func (s *Store) UpdateSelected(productID int64, selected bool) {
	s.apply(func(entries []domain.CartEntry) ([]domain.CartEntry, bool) {
		i := indexOf(entries, productID)
		if i < 0 || entries[i].Selected == selected {
			return entries, false
		}
		out := slices.Clone(entries)
		out[i].Selected = selected
		return out, true
	})
}

func (s *Store) SelectAll(selected bool) {
	s.apply(func(entries []domain.CartEntry) ([]domain.CartEntry, bool) {
		out := slices.Clone(entries)
		changed := false
		for i := range out {
			if out[i].Selected != selected {
				out[i].Selected = selected
				changed = true
			}
		}
		return out, changed
	})
}

func (s *Store) RemoveSelected() {
	s.apply(func(entries []domain.CartEntry) ([]domain.CartEntry, bool) {
		out := slices.DeleteFunc(slices.Clone(entries), func(e domain.CartEntry) bool {
			return e.Selected
		})
		return out, len(out) != len(entries)
	})
}

// ClearCart drops every entry.
func (s *Store) ClearCart() {
	s.apply(func(entries []domain.CartEntry) ([]domain.CartEntry, bool) {
		return nil, len(entries) > 0
	})
}

// Entries returns a copy of the current entries in cart order.
func (s *Store) Entries() []domain.CartEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.entries)
}

// TotalItems is recomputed on every call.
func (s *Store) TotalItems() int {
	return domain.TotalItems(s.Entries())
}

func (s *Store) TotalPrice() decimal.Decimal {
	return domain.TotalPrice(s.Entries())
}

func (s *Store) SelectedItems() []domain.CartEntry {
	return domain.SelectedEntries(s.Entries())
}

func (s *Store) Summary() domain.CartSummary {
	return domain.Summarize(s.Entries())
}

// IsLoading is true until rehydration has settled.
func (s *Store) IsLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// PersistenceSuspended reports whether the load was incomplete, either because
// storage could not be read or because rehydration was cancelled. Such a Store
// keeps working in memory but never writes.
func (s *Store) PersistenceSuspended() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.suspended
}

// WaitLoaded blocks until rehydration has settled or ctx is done.
func (s *Store) WaitLoaded(ctx context.Context) error {
	select {
	case <-s.loaded:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe registers fn and returns a function that removes it.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	s.lmu.Lock()
	defer s.lmu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.lmu.Lock()
		defer s.lmu.Unlock()
		delete(s.listeners, id)
	}
}

// apply runs u against the latest entries. While loading, u is queued and
// replayed on top of the rehydrated entries.
func (s *Store) apply(u update) {
	s.mu.Lock()
	if s.loading {
		s.pending = append(s.pending, u)
		s.mu.Unlock()
		return
	}

	next, changed := u(s.entries)
	if !changed {
		s.mu.Unlock()
		return
	}
	s.entries = next
	s.persistLocked()
	s.notifyAndUnlock()
}

// notifyAndUnlock releases s.mu and calls listeners with the entries as of the
// moment the lock was held.
func (s *Store) notifyAndUnlock() {
	snapshot := slices.Clone(s.entries)
	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()

	s.lmu.Lock()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.lmu.Unlock()

	for _, l := range listeners {
		l(slices.Clone(snapshot))
	}
}

func indexOf(entries []domain.CartEntry, productID int64) int {
	return slices.IndexFunc(entries, func(e domain.CartEntry) bool {
		return e.Product.ID == productID
	})
}

// clamp bounds q to [1, stock].
func clamp(q, stock int) int {
	return max(1, min(q, stock))
}
