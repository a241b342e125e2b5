// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"stock-analyst/internal/models"
)

// DataStore caches fetched price history. Timeframes are stored by their
// canonical string form.
type DataStore interface {
	SaveCandles(ctx context.Context, symbol, timeframe string, candles []models.Candle) error
	GetCandles(ctx context.Context, symbol, timeframe string, from, to time.Time) ([]models.Candle, error)
	// GetCandlesFreshness returns the timestamp of the most recent stored
	// candle, or the zero time when none exist.
	GetCandlesFreshness(ctx context.Context, symbol, timeframe string) (time.Time, error)

	// MarkFetched records when a symbol/timeframe was last refreshed from
	// upstream; LastFetched returns the zero time when it never was.
	MarkFetched(ctx context.Context, symbol, timeframe string, at time.Time) error
	LastFetched(ctx context.Context, symbol, timeframe string) (time.Time, error)

	// PruneCandles deletes candles older than before and reports how many.
	PruneCandles(ctx context.Context, before time.Time) (int64, error)

	Close() error
}
