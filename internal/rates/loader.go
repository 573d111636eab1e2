package rates

import (
	"context"
	"fmt"
	"os"

	"bloomcart/internal/pricing"

	"github.com/rs/zerolog"
)

// fileLoader implements Loader for reading rate schedule files from disk.
type fileLoader struct {
	logger zerolog.Logger
}

// NewFileLoader creates a new file-based rate schedule loader.
func NewFileLoader(logger zerolog.Logger) Loader {
	return &fileLoader{
		logger: logger.With().Str("component", "rates-loader").Logger(),
	}
}

// Load reads a JSON rate schedule file from the local file system.
func (l *fileLoader) Load(ctx context.Context, path string) (pricing.Schedule, error) {
	l.logger.Info().Str("file", path).Msg("loading rate schedule file")

	file, err := os.Open(path)
	if err != nil {
		l.logger.Error().Err(err).Str("file", path).Msg("failed to open rate schedule file")
		return pricing.Schedule{}, fmt.Errorf("failed to open rate schedule file %s: %w", path, err)
	}
	defer file.Close()

	schedule, err := parseSchedule(file)
	if err != nil {
		l.logger.Error().Err(err).Str("file", path).Msg("failed to parse rate schedule file")
		return pricing.Schedule{}, fmt.Errorf("failed to parse rate schedule file %s: %w", path, err)
	}

	l.logger.Info().
		Str("file", path).
		Int64("free_shipping_threshold", schedule.FreeShippingThreshold).
		Int64("flat_fee", schedule.FlatFee).
		Msg("rate schedule loaded successfully")

	return schedule, nil
}
