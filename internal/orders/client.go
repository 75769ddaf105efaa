// Package orders submits orders to the order service.
package orders

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/fjod/storefront-cart/internal/domain"
	"github.com/fjod/storefront-cart/internal/httpclient"
)

// Submitter creates orders. Implementations are all-or-nothing: an error means
// no order was created.
type Submitter interface {
	SubmitOrder(ctx context.Context, req domain.OrderRequest, idempotencyKey string) (*domain.Order, error)
}

type Client struct {
	http *httpclient.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{http: httpclient.New(baseURL, timeout)}
}

// SubmitOrder calls POST /order. The idempotency key lets the order service drop
// a retried submission.
func (c *Client) SubmitOrder(ctx context.Context, req domain.OrderRequest, idempotencyKey string) (*domain.Order, error) {
	headers := map[string]string{}
	if idempotencyKey != "" {
		headers["Idempotency-Key"] = idempotencyKey
	}

	var order domain.Order
	if err := c.http.Do(ctx, http.MethodPost, "/order", headers, req, &order); err != nil {
		return nil, fmt.Errorf("submit order: %w", err)
	}
	return &order, nil
}
