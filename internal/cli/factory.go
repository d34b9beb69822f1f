// Package cli wires configuration, engines and stores for the hfsm commands.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aretw0/hfsm"
	"github.com/aretw0/hfsm/internal/config"
	"github.com/aretw0/hfsm/internal/logging"
	"github.com/aretw0/hfsm/pkg/adapters/file"
	"github.com/aretw0/hfsm/pkg/adapters/redis"
	"github.com/aretw0/hfsm/pkg/domain"
	"github.com/aretw0/hfsm/pkg/persistence/middleware"
	"github.com/aretw0/hfsm/pkg/ports"
	"github.com/aretw0/hfsm/pkg/session"
)

// NewLogger builds the application logger from the configured level and format.
func NewLogger(cfg config.Config) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	switch cfg.LogFormat {
	case "", "text":
		return logging.New(level), nil
	case "json":
		return logging.NewJSON(os.Stderr, level), nil
	}
	return nil, fmt.Errorf("unknown log format %q", cfg.LogFormat)
}

// OpenEngine loads the configured graph.
func OpenEngine(ctx context.Context, cfg config.Config, logger *slog.Logger, hooks ...domain.LifecycleHooks) (*hfsm.Engine, error) {
	opts := []hfsm.Option{
		hfsm.WithLogger(logger),
		hfsm.WithEntryPoint(cfg.EntryPoint),
	}
	for _, h := range hooks {
		opts = append(opts, hfsm.WithLifecycleHooks(h))
	}

	engine, err := hfsm.New(ctx, cfg.Graph, opts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing engine: %w", err)
	}
	return engine, nil
}

// Backend is the state store chosen by configuration.
type Backend struct {
	Store  ports.StateStore
	Locker ports.DistributedLocker
	closer io.Closer
}

// Close releases the backend connection, if any.
func (b *Backend) Close() error {
	if b.closer == nil {
		return nil
	}
	return b.closer.Close()
}

// Use wraps the store with mws, outermost first.
func (b *Backend) Use(mws ...middleware.Middleware) {
	b.Store = middleware.Chain(b.Store, mws...)
}

// OpenBackend uses Redis when an address is configured and a directory of
// JSON files otherwise.
func OpenBackend(ctx context.Context, cfg config.Config, storeDir string) (*Backend, error) {
	if cfg.Redis.Addr == "" {
		return &Backend{Store: file.NewStore(storeDir)}, nil
	}

	store := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
		redis.WithPrefix(cfg.Redis.Prefix),
		redis.WithTTL(cfg.Redis.TTL),
	)
	if err := store.Ping(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr, err)
	}
	return &Backend{
		Store:  store,
		Locker: redis.NewLocker(store.Client(), cfg.Redis.Prefix),
		closer: store,
	}, nil
}

// NewManager builds a session manager over the backend.
func NewManager(engine ports.Engine, b *Backend, logger *slog.Logger) *session.Manager {
	opts := []session.Option{session.WithLogger(logger)}
	if b.Locker != nil {
		opts = append(opts, session.WithLocker(b.Locker))
	}
	return session.NewManager(engine, b.Store, opts...)
}
