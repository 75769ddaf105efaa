// Package catalog looks up current product snapshots from the catalog service.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/fjod/storefront-cart/internal/domain"
	"github.com/fjod/storefront-cart/internal/httpclient"
	"golang.org/x/sync/singleflight"
)

var ErrProductNotFound = errors.New("product not found")

// ProductLookup resolves a product id to its current snapshot.
type ProductLookup interface {
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
}

type Client struct {
	http *httpclient.Client
	sfg  singleflight.Group // coalesces concurrent lookups of the same id
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{http: httpclient.New(baseURL, timeout)}
}

// GetProduct calls GET /product/{id}. A 404 maps to ErrProductNotFound.
//
// Concurrent lookups of the same id with the same bearer token share one
// request. The shared request is not bound to any single caller's deadline;
// each caller stops waiting when its own ctx is done.
func (c *Client) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	path := "/product/" + strconv.FormatInt(id, 10)
	key := httpclient.TokenFromContext(ctx) + ":" + path
	flightCtx := context.WithoutCancel(ctx)

	ch := c.sfg.DoChan(key, func() (interface{}, error) {
		var p domain.Product
		if err := c.http.Do(flightCtx, http.MethodGet, path, nil, nil, &p); err != nil {
			var apiErr *httpclient.APIError
			if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
				return nil, ErrProductNotFound
			}
			return nil, fmt.Errorf("failed to get product %d: %w", id, err)
		}
		return &p, nil
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("failed to get product %d: %w", id, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		// callers sharing a flight must not share the pointer
		p := *res.Val.(*domain.Product)
		return &p, nil
	}
}
