package checkout

import (
	"context"
	"sync"
	"time"

	"bloomcart/internal/cart"

	"github.com/rs/zerolog"
)

const (
	// idleTTL is how long an untouched session keeps its workflow. The
	// collected selections live in the cart, so an evicted session resumes
	// where it left off on next access.
	idleTTL = 30 * time.Minute

	// sweepPeriod caps how often Get scans the map for idle sessions.
	sweepPeriod = 5 * time.Minute
)

type managedFlow struct {
	flow     *Workflow
	lastSeen time.Time
}

// Registry hands out the active checkout workflow for each session. A
// workflow that has placed its order is retired on next access, so every
// checkout runs on a fresh single-use instance; idle sessions are evicted so
// the map does not grow without bound.
type Registry struct {
	carts  *cart.Manager
	orders OrderPlacer
	logger zerolog.Logger
	now    func() time.Time

	mu        sync.Mutex
	flows     map[string]*managedFlow
	lastSweep time.Time
}

// NewRegistry creates a checkout registry.
func NewRegistry(carts *cart.Manager, orders OrderPlacer, logger zerolog.Logger) *Registry {
	return &Registry{
		carts:     carts,
		orders:    orders,
		logger:    logger,
		now:       time.Now,
		flows:     make(map[string]*managedFlow),
		lastSweep: time.Now(),
	}
}

// Get returns the session's active workflow, creating one when none exists
// or the previous one already placed its order.
func (r *Registry) Get(ctx context.Context, sessionID, ownerRef string) *Workflow {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.evictIdleLocked(now)

	if entry, ok := r.flows[sessionID]; ok && entry.flow.State() != StatePlaced {
		entry.lastSeen = now
		return entry.flow
	}
	flow := NewWorkflow(r.carts.Get(ctx, sessionID), ownerRef, r.orders, r.logger)
	r.flows[sessionID] = &managedFlow{flow: flow, lastSeen: now}
	return flow
}

// evictIdleLocked retires workflows whose session has not been touched
// within idleTTL. Callers must hold mu.
func (r *Registry) evictIdleLocked(now time.Time) {
	if now.Sub(r.lastSweep) < sweepPeriod {
		return
	}
	r.lastSweep = now

	for id, entry := range r.flows {
		if now.Sub(entry.lastSeen) >= idleTTL {
			delete(r.flows, id)
			r.logger.Debug().Str("session_id", id).Msg("idle checkout evicted")
		}
	}
}

// Drop discards the session's workflow, e.g. on logout.
func (r *Registry) Drop(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.flows, sessionID)
}
