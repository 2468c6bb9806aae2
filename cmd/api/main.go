package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	"github.com/angelmondragon/bakehouse-backend/api/controllers"
	"github.com/angelmondragon/bakehouse-backend/api/routes"
	"github.com/angelmondragon/bakehouse-backend/internal/inventory"
	"github.com/angelmondragon/bakehouse-backend/internal/orders"
	"github.com/angelmondragon/bakehouse-backend/internal/pricing"
	"github.com/angelmondragon/bakehouse-backend/internal/promotions"
	"github.com/angelmondragon/bakehouse-backend/internal/sessions"
	"github.com/angelmondragon/bakehouse-backend/internal/shipping"
	"github.com/angelmondragon/bakehouse-backend/internal/storage"
	"github.com/angelmondragon/bakehouse-backend/pkg/config"
	"github.com/angelmondragon/bakehouse-backend/pkg/db"
	"github.com/angelmondragon/bakehouse-backend/pkg/instance"
	"github.com/angelmondragon/bakehouse-backend/pkg/logger"
	"github.com/angelmondragon/bakehouse-backend/pkg/metrics"
	"github.com/angelmondragon/bakehouse-backend/pkg/migrate"
	"github.com/angelmondragon/bakehouse-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		backends storage.Backends
		closers  []func() error
		ready    = map[string]controllers.Pinger{}
	)
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			err = multierr.Append(err, closers[i]())
		}
	}()

	switch cfg.Store.Backend {
	case config.StoreBackendSQL:
		dbClient, dbErr := db.New(ctx, cfg.DB, logg)
		if dbErr != nil {
			return fmt.Errorf("bootstrap database: %w", dbErr)
		}
		closers = append(closers, dbClient.Close)
		ready["database"] = dbClient
		backends.DB = dbClient

		if err := migrate.MaybeRun(ctx, cfg, logg, dbClient); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	case config.StoreBackendRedis:
		redisClient, redisErr := redis.New(ctx, cfg.Redis, logg)
		if redisErr != nil {
			return fmt.Errorf("bootstrap redis: %w", redisErr)
		}
		closers = append(closers, redisClient.Close)
		ready["redis"] = redisClient
		backends.Redis = redisClient
	}

	store, err := storage.Open(cfg, backends, logg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	stock, err := loadInventory(cfg)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	policy := pricing.PolicyFromConfig(cfg.Pricing)
	if err := policy.Validate(); err != nil {
		return err
	}

	sessionRegistry, err := sessions.NewRegistry(sessions.Deps{
		Store:      store,
		Namespace:  cfg.Store.Namespace,
		Inventory:  stock,
		Promotions: promotions.Default(),
		Policy:     policy,
		Shipping: shipping.NewCatalog(shipping.Rates{
			Standard:      cfg.Pricing.StandardShipping,
			Express:       cfg.Pricing.ExpressShipping,
			LocalDelivery: cfg.Pricing.LocalDeliveryShipping,
		}, cfg.Pricing.LocalDeliveryPrefixes...),
		IDs:             orders.NewIDGenerator(cfg.Checkout.OrderPrefix, nil, nil),
		ProcessingDelay: cfg.Checkout.ProcessingDelay,
		Logger:          logg,
		Observer:        metrics.NewShopMetrics(registry),
	})
	if err != nil {
		return fmt.Errorf("build session registry: %w", err)
	}

	addr := ":" + cfg.App.Port
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"backend":  cfg.Store.Backend,
		"instance": instance.GetID(),
	})

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:      cfg,
			Logger:      logg,
			Sessions:    sessionRegistry,
			Inventory:   stock,
			Store:       store,
			HTTPMetrics: metrics.NewHTTPMetrics(registry),
			Metrics:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
			Ready:       ready,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(logCtx, "starting api server")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logg.Info(logCtx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func loadInventory(cfg *config.Config) (*inventory.Swappable, error) {
	if cfg.Inventory.SeedFile == "" {
		return inventory.NewSwappable(inventory.Simulated()), nil
	}
	snap, err := inventory.LoadFile(cfg.Inventory.SeedFile)
	if err != nil {
		return nil, err
	}
	return inventory.NewSwappable(snap), nil
}
