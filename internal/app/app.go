package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/catalog"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/review"
	"github.com/xenking/storefront/internal/handler"
	"github.com/xenking/storefront/internal/storage/postgres"
	"github.com/xenking/storefront/internal/storage/redis"
	"github.com/xenking/storefront/pkg/health"
	"github.com/xenking/storefront/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	pricing, err := cfg.Pricing.Pricing()
	if err != nil {
		return errors.Wrap(err, "pricing")
	}

	// PostgreSQL pool + migrations.
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck(pool))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))

	// Cart guard: Redis when configured so replicas agree, memory otherwise.
	var guard cart.Guard
	if cfg.Redis.Addr != "" {
		rdb, err := redis.NewClient(ctx, redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, lg)
		if err != nil {
			return errors.Wrap(err, "connect redis")
		}
		defer func() { _ = rdb.Close() }()

		guard = redis.NewGuard(rdb, cfg.Cart.IdempotencyTTL)
		healthSvc.AddReadinessCheck("redis", 2*time.Second, health.RedisCheck(rdb),
			health.WithThresholds(3, 1),
		)
	} else {
		mem := cart.NewMemoryGuard(cfg.Cart.IdempotencyTTL)
		mem.StartSweeper(ctx, max(cfg.Cart.IdempotencyTTL, time.Second))
		guard = mem
	}

	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Repositories.
	catalogRepo := postgres.NewCatalogRepository(pool)
	cartRepo := postgres.NewCartRepository(pool)
	orderStore := postgres.NewOrderStore(pool)
	reviewRepo := postgres.NewReviewRepository(pool)
	apikeyRepo := postgres.NewAPIKeyRepository(pool)

	// Domain services.
	catalogService := catalog.NewService(catalogRepo)
	cartService := cart.NewService(cartRepo, guard)
	orderService := order.NewService(orderStore,
		order.WithPricing(pricing),
		order.WithTracerProvider(m.TracerProvider()),
		order.WithMeterProvider(m.MeterProvider()),
	)
	reviewService := review.NewService(reviewRepo)

	// HTTP handlers.
	h := handler.NewHandler(catalogService, cartService, orderService, reviewService)
	securityHandler := handler.NewSecurityHandler(apikeyRepo, []byte(cfg.APIKeyPepper))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("GET /readyz", healthSvc.ReadyEndpoint)
	h.Register(mux, securityHandler)
	routeFinder := httpmiddleware.MakeRouteFinder(mux)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", handler.APIKeyHeader, httpmiddleware.RequestIDHeader},
				ExposeHeaders:    []string{httpmiddleware.RequestIDHeader},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:     cfg.RateLimit.Max,
				Window:  cfg.RateLimit.Window,
				KeyFunc: httpmiddleware.APIKeyOrIP(handler.APIKeyHeader),
				Skip:    isProbe,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument("storefront-api", routeFinder, m),
			httpmiddleware.LogRequests(routeFinder),
			httpmiddleware.Labeler(routeFinder),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening",
		zap.String("addr", cfg.Addr),
		zap.String("tax_rate", pricing.TaxRate.String()),
		zap.String("delivery_fee", pricing.DeliveryFee.StringFixed(2)),
	)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

func isProbe(r *http.Request) bool {
	return r.URL.Path == "/livez" || r.URL.Path == "/readyz"
}
