package cart

import (
	"context"
	"encoding/json"
	"errors"
	"slices"

	"github.com/fjod/storefront-cart/internal/domain"
	"github.com/fjod/storefront-cart/internal/storage"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Rehydrate loads the persisted projection and resolves every entry against the
// catalog. It runs at most once per Store; later calls return immediately.
//
// Entries whose lookup fails are dropped without surfacing an error. Survivors
// keep their persisted order, and quantities are reduced to the current stock.
// Mutations issued while loading are replayed afterwards in call order.
func (s *Store) Rehydrate(ctx context.Context) {
	s.once.Do(func() { s.rehydrate(ctx) })
}

func (s *Store) rehydrate(ctx context.Context) {
	persisted, readOK := s.readPersisted(ctx)
	resolved := s.resolve(ctx, persisted)

	s.mu.Lock()
	// The durable copy is unknown or only partly resolved. Writing anything
	// now would replace the real cart, so persistence stays off for this Store.
	if !readOK || ctx.Err() != nil {
		s.suspended = true
		s.log.Warn("cart load incomplete, persistence suspended",
			zap.Bool("read_failed", !readOK),
			zap.NamedError("load_error", ctx.Err()),
		)
	}
	s.entries = resolved
	queued := len(s.pending)
	replayed := false
	for _, u := range s.pending {
		if next, changed := u(s.entries); changed {
			s.entries = next
			replayed = true
		}
	}
	s.pending = nil
	s.loading = false
	close(s.loaded)

	pruned := !slices.Equal(domain.Project(resolved), persisted)
	if replayed || pruned {
		s.persistLocked()
	}

	s.log.Debug("cart rehydrated",
		zap.Int("persisted", len(persisted)),
		zap.Int("resolved", len(resolved)),
		zap.Int("queued", queued),
	)
	s.notifyAndUnlock()
}

// readPersisted returns nil for a missing or malformed projection. ok is false
// when storage could not be read, so the durable state is unknown.
func (s *Store) readPersisted(ctx context.Context) (persisted []domain.PersistedCartEntry, ok bool) {
	raw, err := s.storage.Get(ctx, s.key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, true
	}
	if err != nil {
		s.log.Error("failed to read persisted cart", zap.Error(err))
		return nil, false
	}

	if err := json.Unmarshal([]byte(raw), &persisted); err != nil {
		s.log.Warn("discarding malformed persisted cart", zap.Error(err))
		return nil, true
	}
	return persisted, true
}

func (s *Store) resolve(ctx context.Context, persisted []domain.PersistedCartEntry) []domain.CartEntry {
	slots := make([]*domain.CartEntry, len(persisted))
	seen := make(map[int64]bool, len(persisted))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, pe := range persisted {
		i, pe := i, pe
		if pe.Quantity <= 0 || seen[pe.ProductID] {
			continue
		}
		seen[pe.ProductID] = true

		g.Go(func() error {
			lctx, cancel := context.WithTimeout(ctx, s.lookupTimeout)
			defer cancel()

			p, err := s.products.GetProduct(lctx, pe.ProductID)
			if err != nil {
				s.log.Debug("dropping cart entry", zap.Int64("product_id", pe.ProductID), zap.Error(err))
				return nil
			}
			if entry, ok := restoreEntry(pe, *p); ok {
				slots[i] = &entry
			}
			return nil
		})
	}
	_ = g.Wait()

	var entries []domain.CartEntry
	for _, e := range slots {
		if e != nil {
			entries = append(entries, *e)
		}
	}
	return entries
}

// restoreEntry rebuilds a live entry from its projection and a fresh snapshot.
func restoreEntry(pe domain.PersistedCartEntry, p domain.Product) (domain.CartEntry, bool) {
	if pe.Quantity <= 0 || p.Stock <= 0 {
		return domain.CartEntry{}, false
	}
	p.ID = pe.ProductID
	return domain.CartEntry{
		Product:  p,
		Quantity: min(pe.Quantity, p.Stock),
		Selected: pe.Selected,
	}, true
}

// persistLocked writes the projection of s.entries. Callers hold s.mu, which
// keeps writes in mutation order. A failed write is logged and the in-memory
// state is kept. Nothing is written while persistence is suspended.
func (s *Store) persistLocked() {
	if s.suspended {
		return
	}
	data, err := json.Marshal(domain.Project(s.entries))
	if err != nil {
		s.log.Error("failed to encode cart", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := s.storage.Set(ctx, s.key, string(data)); err != nil {
		s.log.Error("failed to persist cart", zap.Error(err))
	}
}
