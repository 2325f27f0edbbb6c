package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	appcatalog "github.com/locoganga/storefront/internal/application/catalog"
	apporder "github.com/locoganga/storefront/internal/application/order"
	"github.com/locoganga/storefront/internal/infrastructure/cache"
	"github.com/locoganga/storefront/internal/infrastructure/config"
	"github.com/locoganga/storefront/internal/infrastructure/connectivity"
	"github.com/locoganga/storefront/internal/infrastructure/fulfillment"
	"github.com/locoganga/storefront/internal/infrastructure/logger"
	"github.com/locoganga/storefront/internal/infrastructure/payment"
	"github.com/locoganga/storefront/internal/infrastructure/persistence"
	"github.com/locoganga/storefront/internal/infrastructure/retry"
	"github.com/locoganga/storefront/internal/infrastructure/snapshot"
	"github.com/locoganga/storefront/internal/interfaces/http/handler"
	"github.com/locoganga/storefront/internal/interfaces/http/router"
)

// warmupPages is how many catalog pages are prefetched on startup
const warmupPages = 3

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting storefront",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Database
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected")

	orderRepo := persistence.NewGormOrderRepository(db.DB)
	snapshotRepo := persistence.NewGormSnapshotRepository(db.DB)
	cartRepo := persistence.NewGormCartRepository(db.DB)

	// Cache-backed stores. Redis when enabled, in-memory otherwise.
	cacheFactory := cache.NewFactory(cfg.Redis, cache.WithLogger(log))
	eventStore, err := cacheFactory.CreateIdempotencyStore()
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}
	pageCache, err := cacheFactory.CreateCatalogCache()
	if err != nil {
		log.Fatal("Failed to create catalog cache", zap.Error(err))
	}

	// Upstream fulfillment client
	winitCfg := fulfillment.NewWinitConfig(cfg.Fulfillment.APIBaseURL, cfg.Fulfillment.AppKey, cfg.Fulfillment.Token)
	if cfg.Fulfillment.Platform != "" {
		winitCfg.Platform = cfg.Fulfillment.Platform
	}
	if cfg.Fulfillment.TimeoutSeconds > 0 {
		winitCfg.TimeoutSeconds = cfg.Fulfillment.TimeoutSeconds
	}
	readPolicy := retry.Policy{
		MaxAttempts: cfg.Fulfillment.MaxRetries,
		Backoff:     cfg.Fulfillment.RetryBackoff,
		Retryable:   fulfillment.IsTransient,
	}
	winitClient, err := fulfillment.NewClient(winitCfg, log, fulfillment.WithReadRetryPolicy(readPolicy))
	if err != nil {
		log.Fatal("Failed to create fulfillment client", zap.Error(err))
	}

	// Payment gateway
	stripeAdapter, err := payment.NewStripeAdapter(&payment.StripeConfig{
		SecretKey:     cfg.Payment.StripeSecretKey,
		WebhookSecret: cfg.Payment.StripeWebhookSecret,
		Currency:      cfg.Payment.Currency,
		SuccessURL:    cfg.HTTP.PublicBaseURL + cfg.Payment.SuccessPath,
		CancelURL:     cfg.HTTP.PublicBaseURL + cfg.Payment.CancelPath,
	}, log)
	if err != nil {
		log.Fatal("Failed to create payment adapter", zap.Error(err))
	}

	// Last-resort catalog tier served from a bundled file
	staticStore := snapshot.NewStaticStore(cfg.Catalog.SnapshotFile, log)

	prober := connectivity.NewProber([]connectivity.Target{
		{Name: "winit", URL: cfg.Fulfillment.APIBaseURL},
		{Name: "stripe", URL: "https://api.stripe.com"},
	}, log)

	// Application services
	aggregator := appcatalog.NewAggregatorService(winitClient, snapshotRepo, pageCache, staticStore, cfg.Catalog, log)
	inventoryChecker := apporder.NewUpstreamInventoryChecker(winitClient, snapshotRepo, cfg.Catalog.WarehouseCode, log)
	cartService := apporder.NewCartService(cartRepo, aggregator, log)
	checkoutService := apporder.NewCheckoutService(
		orderRepo,
		cartRepo,
		inventoryChecker,
		stripeAdapter,
		winitClient,
		eventStore,
		cfg.Checkout,
		cfg.Catalog,
		log,
	)

	rootCtx, cancelRoot := context.WithCancel(context.Background())
	defer cancelRoot()

	if cfg.Catalog.MirrorRefreshOnBoot {
		go func() {
			count, err := aggregator.RefreshMirror(rootCtx)
			if err != nil {
				log.Warn("Boot mirror refresh failed", zap.Error(err))
				return
			}
			log.Info("Boot mirror refresh finished", zap.Int("products", count))
		}()
	}
	if cfg.Catalog.WarmupOnStart {
		aggregator.Warmup(rootCtx, warmupPages)
	}
	if cfg.Catalog.MirrorRefreshEvery > 0 {
		go runMirrorRefresh(rootCtx, aggregator, cfg.Catalog.MirrorRefreshEvery, log)
	}

	engine := router.New(cfg, log, router.Handlers{
		Catalog:  handler.NewCatalogHandler(aggregator, cfg.Catalog.DisplayPageSize),
		Cart:     handler.NewCartHandler(cartService),
		Checkout: handler.NewCheckoutHandler(checkoutService),
		Order:    handler.NewOrderHandler(checkoutService),
		System:   handler.NewSystemHandler(aggregator, prober, cfg.Catalog.SnapshotFile),
	})

	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Fatal("Failed to set trusted proxies", zap.Error(err))
		}
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")
	cancelRoot()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// runMirrorRefresh refreshes the catalog mirror on a fixed interval until the
// context is cancelled
func runMirrorRefresh(ctx context.Context, aggregator *appcatalog.AggregatorService, every time.Duration, log *zap.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			count, err := aggregator.RefreshMirror(ctx)
			if err != nil {
				log.Warn("Scheduled mirror refresh failed", zap.Error(err))
				continue
			}
			log.Info("Mirror refreshed", zap.Int("products", count))
		}
	}
}
