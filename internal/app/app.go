package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/token-register/internal/domain/category"
	"github.com/xenking/token-register/internal/domain/order"
	"github.com/xenking/token-register/internal/domain/product"
	"github.com/xenking/token-register/internal/handler"
	"github.com/xenking/token-register/internal/storage/postgres"
	"github.com/xenking/token-register/pkg/health"
	"github.com/xenking/token-register/pkg/httpmiddleware"
)

// Run connects to PostgreSQL, migrates the schema, and serves the register
// API until ctx is cancelled.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool, lg.Named("migrate")); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	probes := health.New()
	probes.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck(pool))
	probes.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	probes.AddLivenessCheck("gc_pause", time.Second, health.GCMaxPauseCheck(time.Second))
	probes.Start(ctx, 10*time.Second)
	defer probes.Stop()

	mux, err := newRouter(pool, probes, lg, m)
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
		Handler:           withMiddleware(ctx, mux, lg, m, cfg),
	}
	probes.SetReady(true)

	return serve(ctx, server, probes, lg, cfg.Graceful)
}

// newRouter registers the probe endpoints and the /api routes on one mux.
func newRouter(pool *pgxpool.Pool, probes *health.Health, lg *zap.Logger, m *app.Telemetry) (*http.ServeMux, error) {
	categories := postgres.NewCategoryRepository(pool)
	products := postgres.NewProductRepository(pool)

	ledger, err := order.NewService(postgres.NewOrderStore(pool), lg.Named("ledger"), m.MeterProvider().Meter("ledger"))
	if err != nil {
		return nil, errors.Wrap(err, "create order service")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /livez", probes.LiveEndpoint)
	mux.HandleFunc("GET /readyz", probes.ReadyEndpoint)
	handler.NewHandler(
		ledger,
		category.NewService(categories),
		product.NewService(products, categories),
	).Register(mux)
	return mux, nil
}

// withMiddleware wraps mux in the request chain, outermost first.
func withMiddleware(ctx context.Context, mux *http.ServeMux, lg *zap.Logger, m *app.Telemetry, cfg *Config) http.Handler {
	find := httpmiddleware.MakeRouteFinder(mux)
	return httpmiddleware.Wrap(mux,
		httpmiddleware.Recovery(),
		httpmiddleware.CORS(httpmiddleware.CORSConfig{
			AllowOrigins:     cfg.CORS.Origins,
			AllowHeaders:     []string{"Content-Type", httpmiddleware.RequestIDHeader},
			ExposeHeaders:    []string{httpmiddleware.RequestIDHeader},
			AllowCredentials: cfg.CORS.AllowCredentials,
			MaxAge:           86400,
		}),
		httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
			Max:    cfg.RateLimit.Max,
			Window: cfg.RateLimit.Window,
			Skip:   isProbe,
		}),
		httpmiddleware.RequestID(),
		httpmiddleware.InjectLogger(lg),
		httpmiddleware.Instrument("register-api", find, m),
		httpmiddleware.LogRequests(find),
		httpmiddleware.Labeler(find),
	)
}

// serve runs server until ctx is done or listening fails. Readiness is
// dropped first so load balancers stop routing, then in-flight requests get
// ShutdownTimeout to finish.
func serve(ctx context.Context, server *http.Server, probes *health.Health, lg *zap.Logger, cfg GracefulConfig) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lg.Info("Server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "listen")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		probes.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.ReadinessDelay))
		time.Sleep(cfg.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "shutdown")
		}
		return nil
	})
	return g.Wait()
}

func isProbe(r *http.Request) bool {
	return r.URL.Path == "/livez" || r.URL.Path == "/readyz"
}
