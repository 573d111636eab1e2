// Package pricing derives cart and order totals. Every function here is pure:
// the cart display and the frozen order total are computed by the same code
// with the same inputs, so the two can never drift apart.
package pricing

import (
	"fmt"
	"strings"

	"bloomcart/internal/model"
)

// All amounts are int64 minor units of the store currency. Integer arithmetic
// keeps client and server totals exactly equal; rounding only ever happens in
// ParseAmount, when a decimal value enters the system.

// Snapshot holds the derived totals for a set of line items. It is always
// recomputed from the items, never cached.
type Snapshot struct {
	ItemsPrice    int64 `json:"itemsPrice"`
	ShippingPrice int64 `json:"shippingPrice"`
	TotalPrice    int64 `json:"totalPrice"`
}

// Schedule is the shipping fee schedule: a flat fee below the free-shipping
// threshold, nothing at or above it.
type Schedule struct {
	FreeShippingThreshold int64 `json:"freeShippingThreshold"`
	FlatFee               int64 `json:"flatFee"`
}

// DefaultSchedule returns the built-in fee schedule used when no schedule
// file is configured or loadable.
func DefaultSchedule() Schedule {
	return Schedule{
		FreeShippingThreshold: 200_000,
		FlatFee:               15_000,
	}
}

// Validate checks the schedule amounts are usable.
func (s Schedule) Validate() error {
	if s.FreeShippingThreshold < 0 {
		return fmt.Errorf("free shipping threshold must not be negative: %d", s.FreeShippingThreshold)
	}
	if s.FlatFee < 0 {
		return fmt.Errorf("flat fee must not be negative: %d", s.FlatFee)
	}
	return nil
}

// ShippingFor returns the shipping fee for the given items subtotal.
func (s Schedule) ShippingFor(itemsPrice int64) int64 {
	if itemsPrice >= s.FreeShippingThreshold {
		return 0
	}
	return s.FlatFee
}

// ComputeTotals derives the pricing snapshot for the given line items.
// It fails with ErrInvalidLineItem if any item carries a negative unit price
// or a quantity below one.
func ComputeTotals(items []model.LineItem, schedule Schedule) (Snapshot, error) {
	var itemsPrice int64
	for _, item := range items {
		if item.UnitPrice < 0 || item.Quantity < 1 {
			return Snapshot{}, model.ErrInvalidLineItem
		}
		itemsPrice += item.UnitPrice * int64(item.Quantity)
	}

	shippingPrice := schedule.ShippingFor(itemsPrice)

	return Snapshot{
		ItemsPrice:    itemsPrice,
		ShippingPrice: shippingPrice,
		TotalPrice:    itemsPrice + shippingPrice,
	}, nil
}

// ParseAmount converts a decimal string such as "15000" or "9.99" into minor
// units, rounding half-up at minor-unit precision. Negative amounts are
// rejected; pricing never deals in refunds.
func ParseAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}
	if strings.HasPrefix(s, "-") {
		return 0, fmt.Errorf("negative amount %q", s)
	}

	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}

	var units int64
	for _, r := range whole {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("invalid amount %q", s)
		}
		units = units*10 + int64(r-'0')
	}

	if frac == "" {
		return units, nil
	}
	for _, r := range frac {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("invalid amount %q", s)
		}
	}

	// Round half-up: a fractional part of .5 or more rounds to the next unit.
	if frac[0] >= '5' {
		units++
	}
	return units, nil
}
