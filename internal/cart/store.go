// Package cart holds the in-memory authoritative cart for one browsing
// session. Mutations apply atomically in memory and are mirrored to the
// durable session store asynchronously; a failed mirror write never rolls a
// mutation back, it is surfaced as a warning through Wait.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"bloomcart/internal/model"
	"bloomcart/internal/pricing"
	"bloomcart/internal/session"

	"github.com/rs/zerolog"
)

// persistTimeout bounds each background write to the session store.
const persistTimeout = 5 * time.Second

// storedItem is the persisted shape of a cart line. The stock count known at
// add-time rides along so quantity updates after a reload clamp against the
// same bound.
type storedItem struct {
	model.LineItem
	Stock int `json:"stock"`
}

// persistOp is one unit of work for the persistence writer: a durable write,
// a key deletion, or a flush request.
type persistOp struct {
	del   bool
	key   string
	value []byte
	keys  []string
	flush chan struct{}
}

// Store owns the cart of a single browsing session. A single writer
// goroutine applies durable writes in the order mutations scheduled them, so
// a slow write can never be overtaken by a newer snapshot of the same key.
type Store struct {
	sessionID string
	sessions  session.Store
	schedule  pricing.Schedule
	logger    zerolog.Logger

	mu         sync.Mutex
	cart       model.Cart
	stockAtAdd map[string]int

	queueMu sync.Mutex
	queue   []persistOp
	kick    chan struct{}

	closeOnce sync.Once
	closed    chan struct{}

	warnMu sync.Mutex
	warn   error
}

// NewStore creates the cart store for a session, rehydrating any state the
// durable session store holds for it.
func NewStore(ctx context.Context, sessionID string, sessions session.Store, schedule pricing.Schedule, logger zerolog.Logger) *Store {
	s := &Store{
		sessionID:  sessionID,
		sessions:   sessions,
		schedule:   schedule,
		logger:     logger.With().Str("component", "cart").Str("session_id", sessionID).Logger(),
		stockAtAdd: make(map[string]int),
		kick:       make(chan struct{}, 1),
		closed:     make(chan struct{}),
	}
	s.rehydrate(ctx)
	go s.writeLoop()
	return s
}

func (s *Store) rehydrate(ctx context.Context) {
	if raw, err := s.sessions.Get(ctx, s.sessionID, session.KeyCartItems); err == nil {
		var items []storedItem
		if err := json.Unmarshal(raw, &items); err != nil {
			s.logger.Warn().Err(err).Msg("discarding unreadable persisted cart items")
		} else {
			for _, item := range items {
				s.cart.Items = append(s.cart.Items, item.LineItem)
				s.stockAtAdd[item.ProductRef] = item.Stock
			}
		}
	} else if !errors.Is(err, session.ErrNotFound) {
		s.logger.Warn().Err(err).Msg("failed to read persisted cart items")
	}

	if raw, err := s.sessions.Get(ctx, s.sessionID, session.KeyShippingAddress); err == nil {
		var addr model.ShippingAddress
		if err := json.Unmarshal(raw, &addr); err != nil {
			s.logger.Warn().Err(err).Msg("discarding unreadable persisted shipping address")
		} else {
			s.cart.ShippingAddress = &addr
		}
	} else if !errors.Is(err, session.ErrNotFound) {
		s.logger.Warn().Err(err).Msg("failed to read persisted shipping address")
	}

	if raw, err := s.sessions.Get(ctx, s.sessionID, session.KeyPaymentMethod); err == nil {
		s.cart.PaymentMethod = model.PaymentMethod(raw)
	} else if !errors.Is(err, session.ErrNotFound) {
		s.logger.Warn().Err(err).Msg("failed to read persisted payment method")
	}
}

// AddItem adds the product to the cart, or increments its quantity when
// already present, clamped to the stock the catalogue snapshot reports.
// ErrOutOfStock signals that some or all of the requested quantity could not
// be honoured; the cart still holds the clamped quantity.
func (s *Store) AddItem(ctx context.Context, productRef string, quantity int, snap model.CatalogSnapshot) error {
	if quantity < 1 {
		return model.ErrInvalidQuantity
	}
	if snap.UnitPrice < 0 {
		return model.ErrInvalidLineItem
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing := 0
	idx := s.cart.FindItem(productRef)
	if idx >= 0 {
		existing = s.cart.Items[idx].Quantity
	}

	newQuantity := existing + quantity
	if newQuantity > snap.Stock {
		newQuantity = snap.Stock
	}

	if newQuantity <= 0 {
		// Stock exhausted: nothing to hold, drop any stale line.
		if idx >= 0 {
			s.cart.Items = append(s.cart.Items[:idx], s.cart.Items[idx+1:]...)
			delete(s.stockAtAdd, productRef)
			s.persistItemsLocked()
		}
		s.logger.Warn().Str("product_ref", productRef).Msg("product out of stock")
		return model.ErrOutOfStock
	}

	item := model.LineItem{
		ProductRef: productRef,
		Name:       snap.Name,
		UnitPrice:  snap.UnitPrice,
		Quantity:   newQuantity,
		ImageRef:   snap.ImageRef,
	}
	if idx >= 0 {
		s.cart.Items[idx] = item
	} else {
		s.cart.Items = append(s.cart.Items, item)
	}
	s.stockAtAdd[productRef] = snap.Stock
	s.persistItemsLocked()

	if existing+quantity > snap.Stock {
		s.logger.Warn().
			Str("product_ref", productRef).
			Int("requested", existing+quantity).
			Int("stock", snap.Stock).
			Msg("quantity clamped to available stock")
		return model.ErrOutOfStock
	}

	s.logger.Debug().
		Str("product_ref", productRef).
		Int("quantity", newQuantity).
		Msg("item added to cart")

	return nil
}

// RemoveItem removes the product from the cart. Removing an absent product is
// a no-op.
func (s *Store) RemoveItem(ctx context.Context, productRef string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.cart.FindItem(productRef)
	if idx < 0 {
		return nil
	}
	s.cart.Items = append(s.cart.Items[:idx], s.cart.Items[idx+1:]...)
	delete(s.stockAtAdd, productRef)
	s.persistItemsLocked()

	s.logger.Debug().Str("product_ref", productRef).Msg("item removed from cart")
	return nil
}

// SetItemQuantity sets the quantity of an existing line. Zero removes the
// line; negative quantities are rejected. The quantity is clamped to the
// stock known at add-time.
func (s *Store) SetItemQuantity(ctx context.Context, productRef string, quantity int) error {
	if quantity < 0 {
		return model.ErrInvalidQuantity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.cart.FindItem(productRef)
	if idx < 0 {
		if quantity == 0 {
			return nil
		}
		return model.ErrProductNotFound
	}

	if quantity == 0 {
		s.cart.Items = append(s.cart.Items[:idx], s.cart.Items[idx+1:]...)
		delete(s.stockAtAdd, productRef)
		s.persistItemsLocked()
		return nil
	}

	var clamped bool
	if stock, ok := s.stockAtAdd[productRef]; ok && quantity > stock {
		quantity = stock
		clamped = true
	}
	s.cart.Items[idx].Quantity = quantity
	s.persistItemsLocked()

	if clamped {
		s.logger.Warn().
			Str("product_ref", productRef).
			Int("quantity", quantity).
			Msg("quantity clamped to stock known at add-time")
		return model.ErrOutOfStock
	}
	return nil
}

// SetShippingAddress stores the shipping address for checkout.
func (s *Store) SetShippingAddress(ctx context.Context, addr model.ShippingAddress) error {
	if err := addr.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.cart.ShippingAddress = &addr
	raw, err := json.Marshal(addr)
	if err != nil {
		return fmt.Errorf("failed to marshal shipping address: %w", err)
	}
	s.persistAsync(session.KeyShippingAddress, raw)
	return nil
}

// SetPaymentMethod stores the payment method selection.
func (s *Store) SetPaymentMethod(ctx context.Context, method model.PaymentMethod) error {
	if method == "" {
		return model.ErrMissingPaymentMethod
	}
	if !method.Valid() {
		return model.ErrInvalidPaymentMethod
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.cart.PaymentMethod = method
	s.persistAsync(session.KeyPaymentMethod, []byte(method))
	return nil
}

// Clear empties the cart items. The shipping address and payment method
// survive so a follow-up checkout starts pre-filled.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cart.Items = nil
	s.stockAtAdd = make(map[string]int)
	s.deleteAsync(session.KeyCartItems)
	return nil
}

// CurrentState returns a copy of the cart consistent with the latest
// mutation.
func (s *Store) CurrentState() model.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Clone()
}

// Totals derives the pricing snapshot for the current cart contents.
func (s *Store) Totals() (pricing.Snapshot, error) {
	s.mu.Lock()
	items := make([]model.LineItem, len(s.cart.Items))
	copy(items, s.cart.Items)
	s.mu.Unlock()

	return pricing.ComputeTotals(items, s.schedule)
}

// Wait blocks until all previously scheduled persistence writes have settled
// and returns the most recent persistence failure, if any, clearing it. The
// returned error is a warning: the in-memory cart already holds the
// mutation.
func (s *Store) Wait() error {
	flushed := make(chan struct{})
	s.enqueue(persistOp{flush: flushed})

	select {
	case <-flushed:
	case <-s.closed:
	}
	return s.takeWarn()
}

// Close stops the persistence writer once pending writes have drained. A
// closed store schedules no further writes.
func (s *Store) Close() {
	s.closeOnce.Do(func() { close(s.closed) })
}

// persistItemsLocked snapshots the item list and schedules the durable
// write. Callers must hold mu.
func (s *Store) persistItemsLocked() {
	items := make([]storedItem, len(s.cart.Items))
	for i, item := range s.cart.Items {
		items[i] = storedItem{LineItem: item, Stock: s.stockAtAdd[item.ProductRef]}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to marshal cart items")
		return
	}
	s.persistAsync(session.KeyCartItems, raw)
}

func (s *Store) persistAsync(key string, value []byte) {
	s.enqueue(persistOp{key: key, value: value})
}

func (s *Store) deleteAsync(keys ...string) {
	s.enqueue(persistOp{del: true, keys: keys})
}

func (s *Store) enqueue(op persistOp) {
	select {
	case <-s.closed:
		if op.flush != nil {
			close(op.flush)
		}
		return
	default:
	}

	s.queueMu.Lock()
	s.queue = append(s.queue, op)
	s.queueMu.Unlock()

	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// writeLoop is the single persistence writer. It drains the queue in FIFO
// order; on Close it applies what is already queued before exiting.
func (s *Store) writeLoop() {
	for {
		select {
		case <-s.closed:
			s.drainQueue()
			return
		case <-s.kick:
			s.drainQueue()
		}
	}
}

func (s *Store) drainQueue() {
	for {
		s.queueMu.Lock()
		if len(s.queue) == 0 {
			s.queueMu.Unlock()
			return
		}
		op := s.queue[0]
		s.queue = s.queue[1:]
		s.queueMu.Unlock()

		s.apply(op)
	}
}

func (s *Store) apply(op persistOp) {
	if op.flush != nil {
		close(op.flush)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if op.del {
		if err := s.sessions.Delete(ctx, s.sessionID, op.keys...); err != nil {
			s.logger.Warn().Err(err).Strs("keys", op.keys).Msg("failed to clear session state")
			s.recordWarn(fmt.Errorf("failed to clear session state: %w", err))
		}
		return
	}
	if err := s.sessions.Set(ctx, s.sessionID, op.key, op.value); err != nil {
		s.logger.Warn().Err(err).Str("key", op.key).Msg("failed to persist session state")
		s.recordWarn(fmt.Errorf("failed to persist %s: %w", op.key, err))
	}
}

func (s *Store) recordWarn(err error) {
	s.warnMu.Lock()
	defer s.warnMu.Unlock()
	s.warn = err
}

func (s *Store) takeWarn() error {
	s.warnMu.Lock()
	defer s.warnMu.Unlock()
	warn := s.warn
	s.warn = nil
	return warn
}
