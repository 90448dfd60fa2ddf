// Package registry builds one adapter per named connection, lazily and at
// most once, and hands the same instance to every caller.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/Ning0612/Stowage/internal/adapter"
	"github.com/Ning0612/Stowage/internal/adapter/gdrive"
	"github.com/Ning0612/Stowage/internal/adapter/local"
	"github.com/Ning0612/Stowage/internal/adapter/s3"
	"github.com/Ning0612/Stowage/internal/domain"
	"github.com/Ning0612/Stowage/internal/logger"
)

// Registry holds named connections and the adapters built from them
type Registry struct {
	mu        sync.RWMutex
	entries   map[string]*entry
	factories map[domain.BackendType]adapter.Factory
}

// entry caches the outcome of building one connection
type entry struct {
	conn    domain.Connection
	once    sync.Once
	adapter adapter.Adapter
	err     error
}

// Option configures a Registry
type Option func(*Registry)

// WithFactory overrides the factory used for a backend type
func WithFactory(t domain.BackendType, f adapter.Factory) Option {
	return func(r *Registry) {
		r.factories[t] = f
	}
}

// DefaultFactories returns the factory for every built-in backend
func DefaultFactories() map[domain.BackendType]adapter.Factory {
	return map[domain.BackendType]adapter.Factory{
		domain.BackendS3:     s3.Factory,
		domain.BackendGDrive: gdrive.Factory,
		domain.BackendLocal:  local.Factory,
	}
}

// New creates a registry holding connections
func New(connections []domain.Connection, opts ...Option) (*Registry, error) {
	r := &Registry{
		entries:   make(map[string]*entry),
		factories: DefaultFactories(),
	}
	for _, opt := range opts {
		opt(r)
	}

	for _, conn := range connections {
		if err := r.Register(conn); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a connection. Nothing is built until Get.
func (r *Registry) Register(conn domain.Connection) error {
	if err := conn.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[conn.Name]; exists {
		return fmt.Errorf("%w: connection already registered: %s", domain.ErrConfigInvalid, conn.Name)
	}
	r.entries[conn.Name] = &entry{conn: conn}
	return nil
}

// Connection returns the configuration registered under name
func (r *Registry) Connection(name string) (domain.Connection, error) {
	e, err := r.lookup(name)
	if err != nil {
		return domain.Connection{}, err
	}
	return e.conn, nil
}

// Get returns the adapter for name, building it on first use. A failed
// build is cached and returned to every later caller as well.
func (r *Registry) Get(ctx context.Context, name string) (adapter.Adapter, error) {
	e, err := r.lookup(name)
	if err != nil {
		return nil, err
	}

	e.once.Do(func() {
		e.adapter, e.err = r.build(ctx, e.conn)
	})
	return e.adapter, e.err
}

// Names returns the registered connection names in ascending order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close closes every adapter built so far
func (r *Registry) Close() error {
	r.mu.RLock()
	entries := make(map[string]*entry, len(r.entries))
	for name, e := range r.entries {
		entries[name] = e
	}
	r.mu.RUnlock()

	var errs []error
	for name, e := range entries {
		// Wait for an in-flight build and mark unbuilt entries as done
		e.once.Do(func() {
			e.err = fmt.Errorf("%w: registry closed", domain.ErrConnectionNotFound)
		})
		if e.adapter == nil {
			continue
		}
		if err := e.adapter.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

func (r *Registry) lookup(name string) (*entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrConnectionNotFound, name)
	}
	return e, nil
}

func (r *Registry) build(ctx context.Context, conn domain.Connection) (adapter.Adapter, error) {
	r.mu.RLock()
	factory, ok := r.factories[conn.Type]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedBackend, conn.Type)
	}

	// Adapters outlive the call that first asked for them, and the Drive
	// token source keeps the context it was created with.
	a, err := factory(context.WithoutCancel(ctx), conn)
	if err != nil {
		logger.Get().Error("Failed to build adapter", "connection", conn.Name, "type", conn.Type, "error", err)
		return nil, fmt.Errorf("connection %s: %w", conn.Name, err)
	}

	logger.Get().Debug("Adapter ready", "connection", conn.Name, "provider", a.Provider())
	return a, nil
}
