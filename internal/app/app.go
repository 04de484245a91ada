package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/xenking/depot-store/internal/domain/cart"
	"github.com/xenking/depot-store/internal/domain/order"
	"github.com/xenking/depot-store/internal/handler"
	"github.com/xenking/depot-store/internal/storage/postgres"
	"github.com/xenking/depot-store/pkg/health"
	"github.com/xenking/depot-store/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Health probes.
	healthHandler := health.New()
	healthHandler.AddReadinessCheck("postgres", 5*time.Second, health.DatabasePingCheck(pool))
	healthHandler.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthHandler.SetReady(true)

	// Repositories.
	productRepo := postgres.NewProductRepository(pool)
	cartRepo := postgres.NewCartRepository(pool)
	promotionRepo := postgres.NewPromotionRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)
	apikeyRepo := postgres.NewAPIKeyRepository(pool)
	store := postgres.NewStore(pool)

	// Domain services.
	cartService := cart.NewService(productRepo, cartRepo)
	orderService := order.NewService(cartRepo, promotionRepo, orderRepo, store)

	// HTTP handlers.
	h := handler.NewHandler(productRepo, promotionRepo, cartService, orderService, orderRepo)
	security := handler.NewSecurity(apikeyRepo, []byte(cfg.APIKeyPepper))

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthHandler.LiveEndpoint)
	mux.HandleFunc("/readyz", healthHandler.ReadyEndpoint)
	mux.Handle("/api/", otelhttp.NewHandler(h.Routes(security), "depot-api",
		otelhttp.WithTracerProvider(m.TracerProvider()),
		otelhttp.WithMeterProvider(m.MeterProvider()),
	))

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			corsMiddleware(cfg.CORS),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.LogRequests(),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthHandler.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

func corsMiddleware(cfg CORSConfig) httpmiddleware.Middleware {
	return cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Api-Key", "X-Request-ID"},
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           86400,
	})
}
