package checkout

import (
	"context"
	"sync"

	"github.com/fjod/storefront-cart/internal/catalog"
	"github.com/fjod/storefront-cart/internal/domain"
	"github.com/fjod/storefront-cart/internal/events"
)

type mockSubmitter struct {
	m        sync.Mutex
	requests []domain.OrderRequest
	keys     []string
	order    *domain.Order
	err      error
	started  chan struct{} // closed on the first call when set
	release  chan struct{} // calls block until closed when set
}

func (m *mockSubmitter) SubmitOrder(ctx context.Context, req domain.OrderRequest, key string) (*domain.Order, error) {
	m.m.Lock()
	m.requests = append(m.requests, req)
	m.keys = append(m.keys, key)
	if m.started != nil {
		close(m.started)
		m.started = nil
	}
	release := m.release
	m.m.Unlock()

	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.order, nil
}

type mockPublisher struct {
	m      sync.Mutex
	events []events.CartCheckedOut
	err    error
}

func (p *mockPublisher) PublishCheckedOut(_ context.Context, e events.CartCheckedOut) error {
	p.m.Lock()
	defer p.m.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *mockPublisher) Close() error { return nil }

type mockNotifier struct {
	m      sync.Mutex
	errors []error
}

func (n *mockNotifier) CheckoutFailed(_ context.Context, _ int64, err error) {
	n.m.Lock()
	defer n.m.Unlock()
	n.errors = append(n.errors, err)
}

type staticLookup map[int64]domain.Product

func (l staticLookup) GetProduct(_ context.Context, id int64) (*domain.Product, error) {
	p, ok := l[id]
	if !ok {
		return nil, catalog.ErrProductNotFound
	}
	return &p, nil
}
