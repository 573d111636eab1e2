package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"bloomcart/internal/pricing"
)

// Loader defines the interface for loading a shipping rate schedule.
type Loader interface {
	// Load reads a schedule document and returns the parsed schedule.
	Load(ctx context.Context, source string) (pricing.Schedule, error)
}

// scheduleFile is the on-disk/JSON shape of a rate schedule. Amounts are
// decimal strings so ops can write "15000" or "9.99" without worrying about
// the minor-unit representation.
type scheduleFile struct {
	FreeShippingThreshold string `json:"freeShippingThreshold"`
	FlatFee               string `json:"flatFee"`
}

// parseSchedule decodes and validates a schedule document.
func parseSchedule(r io.Reader) (pricing.Schedule, error) {
	var doc scheduleFile
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return pricing.Schedule{}, fmt.Errorf("failed to decode rate schedule: %w", err)
	}

	threshold, err := pricing.ParseAmount(doc.FreeShippingThreshold)
	if err != nil {
		return pricing.Schedule{}, fmt.Errorf("invalid free shipping threshold: %w", err)
	}
	fee, err := pricing.ParseAmount(doc.FlatFee)
	if err != nil {
		return pricing.Schedule{}, fmt.Errorf("invalid flat fee: %w", err)
	}

	schedule := pricing.Schedule{
		FreeShippingThreshold: threshold,
		FlatFee:               fee,
	}
	if err := schedule.Validate(); err != nil {
		return pricing.Schedule{}, fmt.Errorf("invalid rate schedule: %w", err)
	}
	return schedule, nil
}
