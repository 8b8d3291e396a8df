package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/jonwraymond/toolgate/auth"
	"github.com/jonwraymond/toolgate/cache"
	"github.com/jonwraymond/toolgate/config"
	"github.com/jonwraymond/toolgate/gate"
	"github.com/jonwraymond/toolgate/gateway"
	"github.com/jonwraymond/toolgate/health"
	"github.com/jonwraymond/toolgate/kv"
	"github.com/jonwraymond/toolgate/observe"
	"github.com/jonwraymond/toolgate/observe/exporters"
	"github.com/jonwraymond/toolgate/policy"
	"github.com/jonwraymond/toolgate/quota"
)

// RPCPath is where the JSON-RPC handler is mounted.
const RPCPath = "/rpc"

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the gate over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			ln, err := net.Listen("tcp", cfg.ListenAddr)
			if err != nil {
				return fmt.Errorf("listen: %w", err)
			}
			return serve(cmd.Context(), cfg, ln)
		},
	}
}

// app is the assembled process.
type app struct {
	handler  http.Handler
	logger   observe.Logger
	shutdown func(context.Context) error
}

// build wires the store, policy cache, limiter, coordinator, telemetry,
// gateway and health endpoints.
func build(ctx context.Context, cfg config.Config) (*app, error) {
	registry := promclient.NewRegistry()
	obsCfg := cfg.ObserveConfig(version)
	obsCfg.Exporters = []exporters.Option{exporters.WithRegisterer(registry)}
	obs, err := observe.NewObserver(ctx, obsCfg)
	if err != nil {
		return nil, fmt.Errorf("observer: %w", err)
	}
	logger := obs.Logger()

	backend, closeStore, err := openStore(ctx, cfg.Store)
	if err != nil {
		_ = obs.Shutdown(ctx)
		return nil, err
	}

	guardCfg := cfg.GuardConfig()
	guardCfg.Breaker.OnStateChange = func(from, to kv.BreakerState) {
		logger.Warn(context.Background(), "store circuit changed",
			observe.Field{Key: "from", Value: from.String()},
			observe.Field{Key: "to", Value: to.String()},
		)
	}
	guardCfg.OnRetry = func(op string, attempt int, err error) {
		logger.Debug(context.Background(), "store retry",
			observe.Field{Key: "op", Value: op},
			observe.Field{Key: "attempt", Value: attempt},
			observe.Field{Key: "error", Value: err},
		)
	}
	store := kv.NewGuarded(backend, guardCfg)

	if cfg.PolicyDir != "" {
		n, err := seedPolicies(ctx, cfg.PolicyDir, store)
		if err != nil {
			_ = closeStore()
			_ = obs.Shutdown(ctx)
			return nil, err
		}
		logger.Info(ctx, "seeded policies",
			observe.Field{Key: "dir", Value: cfg.PolicyDir},
			observe.Field{Key: "count", Value: n},
		)
	} else if cfg.Store.Backend == config.StoreMemory {
		logger.Warn(ctx, "memory store has no policies; every call will be denied",
			observe.Field{Key: "hint", Value: config.EnvPolicyDir},
		)
	}

	policies := policy.NewCachedStore(policy.NewKVStore(store), cache.NewMemoryCache(), cfg.CachePolicy())
	limiter, err := quota.NewLimiter(policies, store, cfg.Quota)
	if err != nil {
		_ = closeStore()
		_ = obs.Shutdown(ctx)
		return nil, err
	}
	if cfg.Quota.Atomic && !limiter.Atomic() {
		logger.Warn(ctx, "atomic quota requested but the store has no capped counter")
	}

	mw, err := observe.MiddlewareFromObserver(obs)
	if err != nil {
		_ = closeStore()
		_ = obs.Shutdown(ctx)
		return nil, err
	}
	authorizer := auth.NewPolicyAuthorizer(auth.NewPermissionResolver(policies))
	coordinator := gate.NewCoordinator(gate.Authorized(authorizer), limiter, mw.Gate())

	rpc := gateway.NewHandler(coordinator.Check, &gateway.HTTPForwarder{
		URL:    cfg.BackendURL,
		Client: &http.Client{Timeout: 30 * time.Second},
	}, gateway.Options{
		OpaqueDenials: cfg.OpaqueDenials,
		MaxInFlight:   cfg.MaxInFlight,
		Rate:          cfg.MaxRate,
		Burst:         cfg.MaxBurst,
		Logger:        logger,
	})

	agg := health.NewAggregator(health.AggregatorConfig{Timeout: 2 * time.Second})
	agg.Register(health.NewStoreChecker("store", store))
	agg.Register(health.NewBreakerChecker("store_circuit", store))

	mux := http.NewServeMux()
	mux.Handle(RPCPath, auth.TrustedHeaders{}.Middleware(rpc))
	health.RegisterHandlers(mux, agg)
	if cfg.Telemetry.MetricsExporter == "prometheus" {
		mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	return &app{
		handler: mux,
		logger:  logger,
		shutdown: func(ctx context.Context) error {
			return errors.Join(closeStore(), obs.Shutdown(ctx))
		},
	}, nil
}

// serve runs until ctx is cancelled, then drains in-flight requests.
func serve(ctx context.Context, cfg config.Config, ln net.Listener) error {
	a, err := build(ctx, cfg)
	if err != nil {
		_ = ln.Close()
		return err
	}

	srv := &http.Server{
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.Serve(ln)
	}()
	a.logger.Info(ctx, "toolgate listening",
		observe.Field{Key: "addr", Value: ln.Addr().String()},
		observe.Field{Key: "store", Value: cfg.Store.Backend},
		observe.Field{Key: "key_scope", Value: string(cfg.Quota.KeyScope)},
		observe.Field{Key: "atomic", Value: cfg.Quota.Atomic},
	)

	var serveErr error
	select {
	case serveErr = <-errc:
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	shutdownErr := srv.Shutdown(shutdownCtx)
	if errors.Is(serveErr, http.ErrServerClosed) {
		serveErr = nil
	}
	a.logger.Info(shutdownCtx, "toolgate stopped")
	return errors.Join(serveErr, shutdownErr, a.shutdown(shutdownCtx))
}

func seedPolicies(ctx context.Context, dir string, store kv.Store) (int, error) {
	docs, err := policy.LoadDir(os.DirFS(dir))
	if err != nil {
		return 0, fmt.Errorf("policy dir %s: %w", dir, err)
	}
	if err := policy.Seed(ctx, policy.NewKVStore(store), docs); err != nil {
		return 0, err
	}
	return len(docs), nil
}
