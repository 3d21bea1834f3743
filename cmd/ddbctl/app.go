package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jonwraymond/ddbclient/auth"
	"github.com/jonwraymond/ddbclient/client"
	"github.com/jonwraymond/ddbclient/config"
	"github.com/jonwraymond/ddbclient/health"
	"github.com/jonwraymond/ddbclient/observe"
)

// app is the wiring shared by every subcommand.
type app struct {
	cfg      *config.Config
	creds    auth.Credentials
	client   *client.Client
	obs      observe.Observer
	registry *prometheus.Registry
}

// loadConfig reads path, falling back to the defaults when the file does
// not exist and the flag was left at its default.
func loadConfig(path string, explicit bool) (*config.Config, error) {
	cfg, err := config.Load(path)
	if errors.Is(err, fs.ErrNotExist) && !explicit {
		cfg, err = config.Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	creds, err := cfg.Credentials(ctx)
	if err != nil {
		return nil, fmt.Errorf("credentials: %w", err)
	}

	registry := prometheus.NewRegistry()
	obsCfg := cfg.Observe
	obsCfg.Exporters.Registerer = registry

	obs, err := observe.NewObserver(ctx, obsCfg)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}
	mw, err := observe.MiddlewareFromObserver(obs)
	if err != nil {
		_ = obs.Shutdown(ctx)
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	ccfg, err := cfg.ClientConfig()
	if err != nil {
		_ = obs.Shutdown(ctx)
		return nil, err
	}
	c, err := client.New(ccfg, auth.NewStaticProvider(creds), client.WithMiddleware(mw))
	if err != nil {
		_ = obs.Shutdown(ctx)
		return nil, fmt.Errorf("init client: %w", err)
	}

	return &app{cfg: cfg, creds: creds, client: c, obs: obs, registry: registry}, nil
}

func (a *app) close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return a.obs.Shutdown(ctx)
}

// aggregator registers a checker for every client component.
func (a *app) aggregator() *health.Aggregator {
	hc := a.cfg.Health
	agg := health.NewAggregator()

	agg.Register("breaker", health.NewBreakerChecker(a.client.Breaker()))
	agg.Register("limiter", health.NewLimiterChecker(a.client.Limiter(), hc.QueueWarn))
	agg.Register("token", health.NewTokenChecker(a.creds.Token, health.TokenCheckerConfig{Warn: hc.TokenWarn}))
	if sz, ok := a.client.Cache().(health.Sizer); ok {
		agg.Register("cache", health.NewCacheChecker(sz, hc.CacheWarnRatio))
	}
	agg.Register("memory", health.NewMemoryChecker(health.MemoryCheckerConfig{Limit: hc.MemoryLimitMB << 20}))

	return agg
}
