package database

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/opshelm/worklog/pkg/logger"
)

// OpenFunc builds and connects a Backend. The Provider calls it at most once
// per lifecycle; the composition root decides which backend it produces.
type OpenFunc func(ctx context.Context) (Backend, error)

// ProviderConfig is the configuration options for a Provider.
type ProviderConfig struct {
	// Open builds and connects the backend on first use. Required.
	Open OpenFunc

	// Logger receives lifecycle events. Defaults to a no-op logger.
	Logger *slog.Logger
}

// Provider hands out a lazily opened, shared Backend. Initialization uses
// double-checked locking so concurrent first callers trigger a single open,
// and Close clears the slot so a later Get opens a fresh backend.
type Provider struct {
	open OpenFunc
	log  *slog.Logger

	mu      sync.RWMutex
	backend Backend
}

// NewProvider creates a Provider from the given config.
func NewProvider(cfg ProviderConfig) (*Provider, error) {
	if cfg.Open == nil {
		return nil, fmt.Errorf("provider requires an Open function")
	}

	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}

	return &Provider{
		open: cfg.Open,
		log:  log,
	}, nil
}

// Get returns the shared backend, opening and connecting it on first call.
func (p *Provider) Get(ctx context.Context) (Backend, error) {
	p.mu.RLock()
	backend := p.backend
	p.mu.RUnlock()

	if backend != nil {
		return backend, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.backend != nil {
		return p.backend, nil
	}

	backend, err := p.open(ctx)
	if err != nil {
		return nil, err
	}

	p.backend = backend
	p.log.Info("database backend ready", "kind", backend.Kind())

	return backend, nil
}

// Close closes the backend if one was opened. A subsequent Get reopens.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.backend == nil {
		return nil
	}

	err := p.backend.Close()
	p.backend = nil

	return err
}
