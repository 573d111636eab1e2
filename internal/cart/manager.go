package cart

import (
	"context"
	"fmt"
	"sync"
	"time"

	"bloomcart/internal/pricing"
	"bloomcart/internal/session"

	"github.com/rs/zerolog"
)

const (
	// idleTTL is how long an untouched session keeps its in-memory cart.
	// Evicted carts rehydrate from the durable session store on next access.
	idleTTL = 30 * time.Minute

	// sweepPeriod caps how often Get scans the map for idle sessions.
	sweepPeriod = 5 * time.Minute
)

type managedStore struct {
	store    *Store
	lastSeen time.Time
}

// Manager hands out one Store per browsing session. Stores are created
// lazily, rehydrating from the durable session store on first access, and
// evicted again after sitting idle, so anonymous traffic does not grow the
// map without bound.
type Manager struct {
	sessions session.Store
	schedule pricing.Schedule
	logger   zerolog.Logger
	now      func() time.Time

	mu        sync.Mutex
	stores    map[string]*managedStore
	lastSweep time.Time
}

// NewManager creates a session cart manager.
func NewManager(sessions session.Store, schedule pricing.Schedule, logger zerolog.Logger) *Manager {
	return &Manager{
		sessions:  sessions,
		schedule:  schedule,
		logger:    logger,
		now:       time.Now,
		stores:    make(map[string]*managedStore),
		lastSweep: time.Now(),
	}
}

// Get returns the cart store owned by the given session, creating it on
// first access.
func (m *Manager) Get(ctx context.Context, sessionID string) *Store {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.evictIdleLocked(now)

	if entry, ok := m.stores[sessionID]; ok {
		entry.lastSeen = now
		return entry.store
	}
	store := NewStore(ctx, sessionID, m.sessions, m.schedule, m.logger)
	m.stores[sessionID] = &managedStore{store: store, lastSeen: now}
	return store
}

// evictIdleLocked retires carts whose session has not been touched within
// idleTTL. Callers must hold mu.
func (m *Manager) evictIdleLocked(now time.Time) {
	if now.Sub(m.lastSweep) < sweepPeriod {
		return
	}
	m.lastSweep = now

	for id, entry := range m.stores {
		if now.Sub(entry.lastSeen) >= idleTTL {
			entry.store.Close()
			delete(m.stores, id)
			m.logger.Debug().Str("session_id", id).Msg("idle cart evicted")
		}
	}
}

// Logout clears the user info and cart items from the durable session store
// and drops the in-memory cart, mirroring the storefront logout behaviour.
func (m *Manager) Logout(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	entry, ok := m.stores[sessionID]
	if ok {
		delete(m.stores, sessionID)
	}
	m.mu.Unlock()

	if ok {
		// Flush pending writes before clearing, so none land afterwards and
		// resurrect the cleared keys.
		entry.store.Wait()
		entry.store.Close()
	}

	if err := m.sessions.Delete(ctx, sessionID, session.KeyUserInfo, session.KeyCartItems); err != nil {
		return fmt.Errorf("failed to clear session on logout: %w", err)
	}
	return nil
}
