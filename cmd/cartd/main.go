// Command cartd serves the shopping cart and checkout API.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/fjod/storefront-cart/internal/cart"
	"github.com/fjod/storefront-cart/internal/catalog"
	"github.com/fjod/storefront-cart/internal/checkout"
	"github.com/fjod/storefront-cart/internal/config"
	"github.com/fjod/storefront-cart/internal/events"
	h "github.com/fjod/storefront-cart/internal/http"
	"github.com/fjod/storefront-cart/internal/logger"
	"github.com/fjod/storefront-cart/internal/orders"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "cartd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	log = log.With(zap.String("app", cfg.App.Name), zap.String("env", cfg.App.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	kv, err := openStorage(ctx, cfg.Storage, log.Named("storage"))
	if err != nil {
		return err
	}
	defer kv.Close()

	products := catalog.NewClient(cfg.Catalog.BaseURL, cfg.Catalog.Timeout)
	submitter := orders.NewClient(cfg.Orders.BaseURL, cfg.Orders.Timeout)

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.Kafka.Enabled {
		publisher = events.NewKafkaPublisher(cfg.Kafka.Topic, log.Named("events"), cfg.Kafka.Brokers...)
		log.Info("publishing checkout events", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}
	defer publisher.Close()

	registry := cart.NewRegistry(ctx, kv, products, cart.Options{
		Concurrency:   cfg.Cart.RehydrateConcurrency,
		MaxStores:     cfg.Cart.MaxProfiles,
		LookupTimeout: cfg.Cart.LookupTimeout,
		Logger:        log.Named("cart"),
	})
	svc := checkout.NewService(submitter, publisher, checkout.NewLogNotifier(log.Named("checkout")), log.Named("checkout"))

	router := h.NewRouter(
		h.RouterConfig{RequestTimeout: cfg.HTTP.RequestTimeout, MaxBodySize: cfg.HTTP.MaxBodySize},
		h.NewCartHandler(registry, products, cfg.HTTP.RequestTimeout, log.Named("http")),
		h.NewCheckoutHandler(registry, svc, cfg.HTTP.RequestTimeout, log.Named("http")),
		log.Named("http"),
	)
	srv := h.NewServer(":"+cfg.App.Port, router, cfg.HTTP.ReadTimeout, cfg.HTTP.WriteTimeout, cfg.HTTP.IdleTimeout)

	serverErr := make(chan error, 1)
	go func() {
		log.Info("cartd starting", zap.String("addr", srv.Addr), zap.String("storage", cfg.Storage.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("server exited")
	return nil
}
