package vectordb

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/chunkforge/chunkforge/pkg/logger"
)

// Manager caches shared vector store instances keyed by configuration
// signature, so concurrent ingest runs against the same backend reuse one
// connection pool.
type Manager struct {
	mu     sync.Mutex
	stores map[string]*sharedStoreEntry
}

type sharedStoreEntry struct {
	store Store
	refs  int
}

var defaultManager = NewManager()

// NewManager constructs an empty shared vector store manager.
func NewManager() *Manager {
	return &Manager{stores: make(map[string]*sharedStoreEntry)}
}

// AcquireShared returns a shared vector store along with a release function,
// using the package-level manager.
func AcquireShared(ctx context.Context, cfg *Config) (Store, func(context.Context) error, error) {
	return defaultManager.AcquireShared(ctx, cfg)
}

// AcquireShared acquires (or creates) a shared store entry. Two configs with
// identical signatures share one store; the release function closes the store
// once the last holder lets go.
func (m *Manager) AcquireShared(ctx context.Context, cfg *Config) (Store, func(context.Context) error, error) {
	if cfg == nil {
		return nil, nil, fmt.Errorf("vectordb: config is required")
	}
	if err := validateConfig(cfg); err != nil {
		return nil, nil, err
	}
	signature := signatureKey(cfg)
	if store, release, ok := m.tryReuseExistingStore(signature); ok {
		return store, release, nil
	}
	store, err := New(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return m.registerSharedStore(ctx, signature, store)
}

func (m *Manager) tryReuseExistingStore(signature string) (Store, func(context.Context) error, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.stores[signature]
	if !ok {
		return nil, nil, false
	}
	entry.refs++
	return entry.store, m.releaseFunc(signature), true
}

// registerSharedStore caches the instantiated store, handling races with
// concurrent callers building the same signature.
func (m *Manager) registerSharedStore(
	ctx context.Context,
	signature string,
	store Store,
) (Store, func(context.Context) error, error) {
	m.mu.Lock()
	entry, ok := m.stores[signature]
	if ok {
		entry.refs++
		existing := entry.store
		m.mu.Unlock()
		closeRedundantStore(ctx, store)
		return existing, m.releaseFunc(signature), nil
	}
	m.stores[signature] = &sharedStoreEntry{store: store, refs: 1}
	m.mu.Unlock()
	return store, m.releaseFunc(signature), nil
}

func closeRedundantStore(ctx context.Context, store Store) {
	if err := store.Close(ctx); err != nil {
		logger.FromContext(ctx).Warn("failed to close redundant vector store", "error", err)
	}
}

func (m *Manager) releaseFunc(signature string) func(context.Context) error {
	return func(ctx context.Context) error {
		m.mu.Lock()
		entry, ok := m.stores[signature]
		if !ok {
			m.mu.Unlock()
			return nil
		}
		entry.refs--
		if entry.refs > 0 {
			m.mu.Unlock()
			return nil
		}
		delete(m.stores, signature)
		store := entry.store
		m.mu.Unlock()
		return store.Close(ctx)
	}
}

func signatureKey(cfg *Config) string {
	const sigSep = "\x1f" // ASCII Unit Separator (non-printable, collision-safe)
	fields := []string{
		string(cfg.Provider),
		strings.TrimSpace(cfg.DSN),
		strings.TrimSpace(cfg.URL),
		strings.TrimSpace(cfg.Path),
		strings.TrimSpace(cfg.Table),
		strings.TrimSpace(cfg.Collection),
		strings.TrimSpace(cfg.APIKey),
		fmt.Sprintf("%d", cfg.Dimension),
		fmt.Sprintf("%d", cfg.MaxTopK),
		cfg.Timeout.String(),
	}
	return strings.Join(fields, sigSep)
}
