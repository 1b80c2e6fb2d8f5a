package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/config"
	"github.com/aretw0/arbor/pkg/adapters/file"
	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/adapters/process"
	"github.com/aretw0/arbor/pkg/adapters/redis"
	"github.com/aretw0/arbor/pkg/backend"
	"github.com/aretw0/arbor/pkg/observability"
	"github.com/aretw0/arbor/pkg/persistence/middleware"
	"github.com/aretw0/arbor/pkg/ports"
)

// Runtime bundles what the commands share, built once from configuration.
type Runtime struct {
	Config  *config.Config
	Logger  *slog.Logger
	Engine  *arbor.Engine
	Metrics *observability.Metrics // nil when metrics are disabled

	closers []func() error
}

// NewRuntime opens the configured store and answerer and wires them into an
// engine. Backend asks and clears are logged and, if enabled, measured.
func NewRuntime(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Runtime, error) {
	rt := &Runtime{Config: cfg, Logger: logger}

	store, locker, err := rt.openStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	if store, err = sealStore(store, cfg.Store); err != nil {
		rt.Close()
		return nil, err
	}
	answerer, err := openAnswerer(cfg.Answerer, logger)
	if err != nil {
		rt.Close()
		return nil, err
	}

	hooks := observability.LoggingHooks(logger)
	if cfg.Metrics.Enabled {
		rt.Metrics = observability.NewMetrics()
		hooks = observability.Combine(hooks, observability.MetricsHooks(rt.Metrics))
	}

	opts := []arbor.Option{
		arbor.WithStore(store),
		arbor.WithAnswerer(answerer),
		arbor.WithLogger(logger),
		arbor.WithServiceHooks(hooks),
	}
	if locker != nil {
		opts = append(opts, arbor.WithLocker(locker, cfg.Store.LockTTL))
	}
	rt.Engine = arbor.New(opts...)

	logger.Debug("Runtime ready",
		"store", cfg.Store.Driver,
		"answerer", cfg.Answerer.Kind,
		"metrics", cfg.Metrics.Enabled,
	)
	return rt, nil
}

// Close releases store connections.
func (rt *Runtime) Close() error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		errs = append(errs, rt.closers[i]())
	}
	rt.closers = nil
	return errors.Join(errs...)
}

func (rt *Runtime) openStore(ctx context.Context, cfg config.StoreConfig) (ports.TreeStore, ports.DistributedLocker, error) {
	switch cfg.Driver {
	case config.DriverRedis:
		s := redis.New(cfg.Addr, cfg.Password, cfg.DB,
			redis.WithPrefix(cfg.Prefix),
			redis.WithTTL(cfg.TTL),
		)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := s.Ping(pingCtx); err != nil {
			s.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
		}
		rt.closers = append(rt.closers, s.Close)
		return s, redis.NewLocker(s.Client(), s.Prefix()), nil
	case config.DriverFile:
		return file.New(cfg.Path), nil, nil
	default:
		return memory.NewStore(), nil, nil
	}
}

// sealStore wraps store with encryption when a key is configured.
func sealStore(store ports.TreeStore, cfg config.StoreConfig) (ports.TreeStore, error) {
	if cfg.EncryptionKey == "" {
		return store, nil
	}
	active, err := middleware.ParseKey(cfg.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("store.encryption_key: %w", err)
	}
	enc := middleware.EncryptionConfig{ActiveKey: active}
	for i, k := range cfg.FallbackKeys {
		key, err := middleware.ParseKey(k)
		if err != nil {
			return nil, fmt.Errorf("store.fallback_keys[%d]: %w", i, err)
		}
		enc.FallbackKeys = append(enc.FallbackKeys, key)
	}
	return middleware.Chain(store, middleware.NewEncryptionMiddleware(enc)), nil
}

func openAnswerer(cfg config.AnswererConfig, logger *slog.Logger) (ports.Answerer, error) {
	if cfg.Kind != config.AnswererProcess {
		return backend.Echo{}, nil
	}

	var (
		a   *process.Answerer
		err error
	)
	if cfg.Command != "" {
		a, err = process.New(process.Config{
			Name:        "inline",
			Command:     cfg.Command,
			Args:        cfg.Args,
			Environment: cfg.Env,
			Timeout:     cfg.Timeout,
		}, process.WithLogger(logger))
	} else {
		a, err = namedAnswerer(cfg, logger)
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func namedAnswerer(cfg config.AnswererConfig, logger *slog.Logger) (*process.Answerer, error) {
	configs, err := process.LoadConfigs(cfg.File)
	if err != nil {
		return nil, err
	}
	pc, ok := configs[cfg.Name]
	if !ok {
		return nil, fmt.Errorf("answerer %q not found in %s", cfg.Name, cfg.File)
	}
	if pc.Timeout <= 0 {
		pc.Timeout = cfg.Timeout
	}
	return process.New(pc,
		process.WithBaseDir(filepath.Dir(cfg.File)),
		process.WithLogger(logger),
	)
}
