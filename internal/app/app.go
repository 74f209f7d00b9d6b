package app

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/xenking/jokeshop/internal/domain/auth"
	"github.com/xenking/jokeshop/internal/domain/cart"
	"github.com/xenking/jokeshop/internal/domain/user"
	"github.com/xenking/jokeshop/internal/handler"
	"github.com/xenking/jokeshop/pkg/health"
	"github.com/xenking/jokeshop/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	ctx = zctx.Base(ctx, lg)
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("storage", cfg.Storage.Backend),
	)

	store, err := OpenStorage(ctx, lg, cfg.Storage)
	if err != nil {
		return errors.Wrap(err, "open storage")
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			lg.Warn("Close storage", zap.Error(err))
		}
	}()

	// Health check service.
	healthSvc := health.New()
	healthSvc.Add(health.Readiness, cfg.Storage.Backend, 5*time.Second, store.Ping)
	healthSvc.Add(health.Liveness, "goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Add(health.Liveness, "gc-pause", time.Second, health.GCMaxPauseCheck(time.Second))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	engine, err := newEngine(ctx, cfg, store, healthSvc, m.MeterProvider())
	if err != nil {
		return err
	}

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: otelhttp.NewHandler(engine, "jokeshop-api",
			otelhttp.WithTracerProvider(m.TracerProvider()),
			otelhttp.WithMeterProvider(m.MeterProvider()),
			otelhttp.WithFilter(func(r *http.Request) bool {
				return r.URL.Path != "/livez" && r.URL.Path != "/readyz"
			}),
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

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

// newEngine wires the domain services and HTTP handlers on top of store.
func newEngine(
	ctx context.Context,
	cfg *Config,
	store *Storage,
	healthSvc *health.Health,
	mp metric.MeterProvider,
) (*gin.Engine, error) {
	// Domain services.
	tokens := auth.NewTokens([]byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL)
	cartService, err := cart.NewService(store.Carts, store.Products,
		cart.WithMeter(mp.Meter("github.com/xenking/jokeshop/internal/domain/cart")),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create cart service")
	}
	userService := user.NewService(store.Users, tokens)

	// HTTP handlers.
	h := handler.NewHandler(
		handler.HandlerConfig{ImageBaseURL: cfg.ImageBaseURL},
		store.Products,
		cartService,
		userService,
		store.Users,
		tokens,
	)

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(
		httpmiddleware.RequestID(),
		httpmiddleware.InjectLogger(zctx.From(ctx)),
		httpmiddleware.LogRequests(),
		httpmiddleware.Recovery(),
		// Engine-level so that preflight requests, which match no route, are
		// still answered.
		httpmiddleware.CORS(httpmiddleware.CORSConfig{
			AllowOrigins:     cfg.CORS.Origins,
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", httpmiddleware.HeaderRequestID},
			AllowCredentials: cfg.CORS.AllowCredentials,
			MaxAge:           24 * time.Hour,
		}),
	)
	healthSvc.Routes(engine)
	h.Routes(engine.Group("",
		httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
			RPS:   cfg.RateLimit.RPS,
			Burst: cfg.RateLimit.Burst,
		}),
	))

	return engine, nil
}
