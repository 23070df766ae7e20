package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/jonwraymond/realestate/auth"
	"github.com/jonwraymond/realestate/cache"
	"github.com/jonwraymond/realestate/config"
	"github.com/jonwraymond/realestate/fetch"
	"github.com/jonwraymond/realestate/health"
	"github.com/jonwraymond/realestate/mcpserver"
	"github.com/jonwraymond/realestate/observe"
	"github.com/jonwraymond/realestate/realestate"
	"github.com/jonwraymond/realestate/resilience"
)

const (
	healthCheckTimeout = 2 * time.Second
	shutdownTimeout    = 5 * time.Second
)

// app owns everything built from a Config for one process run.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	obs      observe.Observer
	pipeline *fetch.Pipeline
	server   *mcpserver.Server
}

func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	obs, err := observe.NewObserver(ctx, observerConfig(cfg, logger))
	if err != nil {
		return nil, fmt.Errorf("observability: %w", err)
	}

	mw, err := observe.MiddlewareFromObserver(obs)
	if err != nil {
		_ = obs.Shutdown(ctx)
		return nil, fmt.Errorf("tool middleware: %w", err)
	}
	fm, err := observe.NewFetchMetrics(obs.Meter())
	if err != nil {
		_ = obs.Shutdown(ctx)
		return nil, fmt.Errorf("fetch metrics: %w", err)
	}

	regions, err := realestate.LoadRegions(cfg.RegionFile)
	if err != nil {
		_ = obs.Shutdown(ctx)
		return nil, err
	}

	log := obs.Logger()
	pipeline := newPipeline(cfg, log, observe.NewTracer(obs.Tracer()), fm)
	svc := realestate.NewService(pipeline, cfg,
		realestate.WithRegions(regions),
		realestate.WithServiceLogger(log),
	)
	server := mcpserver.New(svc, pipeline,
		mcpserver.WithMiddleware(mw),
		mcpserver.WithLogger(log),
		mcpserver.WithVersion(version),
	)

	logger.Info("server configured",
		zap.String("transport", cfg.Server.Transport),
		zap.Int("regions", regions.Len()),
		zap.Int("tools", len(server.Tools())),
		zap.Any("credentials", cfg.Credentials()),
	)

	return &app{cfg: cfg, logger: logger, obs: obs, pipeline: pipeline, server: server}, nil
}

func observerConfig(cfg *config.Config, logger *zap.Logger) observe.Config {
	exporter := cfg.Telemetry.Exporter
	return observe.Config{
		ServiceName: mcpserver.Name,
		Version:     version,
		Tracing: observe.TracingConfig{
			Enabled:   exporter == "stdout" || exporter == "otlp",
			Exporter:  exporter,
			SamplePct: 1.0,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  exporter != "none",
			Exporter: exporter,
		},
		Logging: observe.LoggingConfig{
			Enabled: true,
			Level:   cfg.Telemetry.LogLevel,
			Base:    logger,
		},
		Console: os.Stderr,
	}
}

func newPipeline(cfg *config.Config, log observe.Logger, tracer observe.Tracer, fm observe.FetchMetrics) *fetch.Pipeline {
	u := cfg.Upstream
	opts := []fetch.Option{
		fetch.WithHTTPClient(fetch.NewClient(u.ConnectTimeout, u.ReadTimeout)),
		fetch.WithCache(cache.NewMemoryCache(cache.Policy{
			TTL:        cfg.Cache.TTL,
			MaxEntries: cfg.Cache.MaxSize,
		})),
		fetch.WithBreakerConfig(resilience.CircuitBreakerConfig{
			FailureThreshold: u.BreakerFailureThreshold,
			RecoveryTimeout:  u.BreakerRecoveryTimeout,
		}),
		fetch.WithRetry(resilience.RetryConfig{
			MaxAttempts:  u.RetryMaxAttempts,
			InitialDelay: u.RetryInitialDelay,
			MaxDelay:     u.RetryMaxDelay,
		}),
		fetch.WithTimeout(u.RequestTimeout),
		fetch.WithSlowThreshold(u.SlowResponseThreshold),
		fetch.WithUserAgent(mcpserver.Name + "/" + version),
		fetch.WithLogger(log),
		fetch.WithTracer(tracer),
		fetch.WithMetrics(fm),
	}
	throttle := resilience.ThrottleConfig{
		RatePerSecond: u.RateLimit,
		MaxConcurrent: u.MaxConcurrency,
	}
	if throttle.Enabled() {
		opts = append(opts, fetch.WithThrottle(throttle))
	}
	return fetch.New(opts...)
}

func (a *app) run(ctx context.Context) error {
	if a.cfg.Server.Transport == config.TransportHTTP {
		return a.serveHTTP(ctx)
	}
	a.logger.Info("serving MCP over stdio")
	return a.server.Run(ctx)
}

func (a *app) serveHTTP(ctx context.Context) error {
	agg := health.NewAggregator(healthCheckTimeout)
	agg.Register(health.BreakerChecker(a.pipeline.BreakerStates))
	agg.Register(health.CacheChecker(a.pipeline.CacheStats))
	agg.Register(health.CredentialsChecker(a.cfg.Credentials()))

	opts := mcpserver.HTTPOptions{
		Authn:  auth.FromConfig(a.cfg.Server.AuthToken, a.cfg.Server.JWTSecret),
		Health: agg,
	}
	if a.cfg.Telemetry.Exporter == "prometheus" {
		opts.Metrics = promhttp.Handler()
	}
	if opts.Authn == nil {
		a.logger.Warn("HTTP transport has no authentication; set MCP_AUTH_TOKEN or MCP_JWT_SECRET")
	}

	a.logger.Info("serving MCP over HTTP",
		zap.String("addr", a.cfg.Server.HTTPAddr),
		zap.String("path", mcpserver.MCPPath),
	)
	return a.server.ListenAndServe(ctx, a.cfg.Server.HTTPAddr, a.server.Handler(opts))
}

func (a *app) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.obs.Shutdown(ctx); err != nil {
		a.logger.Warn("telemetry shutdown", zap.Error(err))
	}
}
