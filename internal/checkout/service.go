// Package checkout turns a cart selection into an order and reconciles the cart
// with the outcome.
package checkout

import (
	"context"
	"fmt"
	"sync"

	"github.com/fjod/storefront-cart/internal/domain"
	"github.com/fjod/storefront-cart/internal/events"
	"github.com/fjod/storefront-cart/internal/orders"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OrdersLocation is where the UI should go after a successful checkout.
const OrdersLocation = "/orders"

// Cart is the part of *cart.Store checkout reads and reconciles. Implementations
// are used as map keys and must be comparable.
type Cart interface {
	WaitLoaded(ctx context.Context) error
	Entries() []domain.CartEntry
	DeductItems(quantities map[int64]int)
}

// Preview is what the checkout page shows before submission.
type Preview struct {
	Items      []domain.CartEntry `json:"items"`
	TotalItems int                `json:"total_items"`
	Total      decimal.Decimal    `json:"total"`
}

type Result struct {
	Order      *domain.Order   `json:"order"`
	TotalItems int             `json:"total_items"`
	Total      decimal.Decimal `json:"total"`
	RedirectTo string          `json:"redirect_to"`
}

type Service struct {
	orders    orders.Submitter
	publisher events.Publisher
	notifier  Notifier
	log       *zap.Logger

	mu       sync.Mutex
	inFlight map[Cart]struct{}
}

func NewService(submitter orders.Submitter, publisher events.Publisher, notifier Notifier, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if notifier == nil {
		notifier = NewLogNotifier(log)
	}
	return &Service{
		orders:    submitter,
		publisher: publisher,
		notifier:  notifier,
		log:       log,
		inFlight:  make(map[Cart]struct{}),
	}
}

// Items returns the entries a checkout would submit: the selected ones, or all
// of them when nothing is selected.
func Items(entries []domain.CartEntry) []domain.CartEntry {
	if selected := domain.SelectedEntries(entries); len(selected) > 0 {
		return selected
	}
	return entries
}

func (s *Service) Preview(ctx context.Context, c Cart) (*Preview, error) {
	if err := c.WaitLoaded(ctx); err != nil {
		return nil, fmt.Errorf("failed to wait for cart: %w", err)
	}
	items := Items(c.Entries())
	return &Preview{
		Items:      items,
		TotalItems: domain.TotalItems(items),
		Total:      domain.TotalPrice(items).Round(2),
	}, nil
}

// Submit creates a PENDING order for userID from the checkout items of c. On
// success exactly the submitted quantities leave the cart. On failure the cart is
// left as it was, the notifier is told, and the error is returned.
func (s *Service) Submit(ctx context.Context, c Cart, userID int64) (*Result, error) {
	if !s.acquire(c) {
		return nil, ErrCheckoutInFlight
	}
	defer s.release(c)

	if err := c.WaitLoaded(ctx); err != nil {
		return nil, fmt.Errorf("failed to wait for cart: %w", err)
	}

	items := Items(c.Entries())
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	req := domain.OrderRequest{
		UserID: userID,
		Status: domain.OrderStatusPending,
		Items:  make([]domain.OrderRequestItem, 0, len(items)),
	}
	ordered := make(map[int64]int, len(items))
	for _, e := range items {
		req.Items = append(req.Items, domain.OrderRequestItem{ProductID: e.Product.ID, Quantity: e.Quantity})
		ordered[e.Product.ID] = e.Quantity
	}
	total := domain.TotalPrice(items).Round(2)

	order, err := s.orders.SubmitOrder(ctx, req, uuid.NewString())
	if err != nil {
		s.notifier.CheckoutFailed(ctx, userID, err)
		return nil, fmt.Errorf("failed to checkout: %w", err)
	}

	c.DeductItems(ordered)
	s.log.Info("checkout completed",
		zap.Int64("user_id", userID),
		zap.Int64("order_id", order.ID),
		zap.Int("items", len(ordered)),
		zap.String("total", total.StringFixed(2)),
	)

	event := events.CartCheckedOut{
		UserID:  userID,
		OrderID: order.ID,
		Items:   req.Items,
		Total:   total,
	}
	if err := s.publisher.PublishCheckedOut(ctx, event); err != nil {
		s.log.Warn("failed to publish checkout event", zap.Int64("order_id", order.ID), zap.Error(err))
	}

	return &Result{
		Order:      order,
		TotalItems: domain.TotalItems(items),
		Total:      total,
		RedirectTo: OrdersLocation,
	}, nil
}

func (s *Service) acquire(c Cart) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[c]; busy {
		return false
	}
	s.inFlight[c] = struct{}{}
	return true
}

func (s *Service) release(c Cart) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, c)
}
