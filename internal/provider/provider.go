// Package provider fetches historical price bars from upstream market data
// vendors.
package provider

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"stock-analyst/internal/config"
	apperrors "stock-analyst/internal/errors"
	"stock-analyst/internal/models"
	"stock-analyst/internal/resilience"
	"stock-analyst/internal/store"
)

// Provider returns historical candles for a symbol. Implementations report
// every upstream failure as an *apperrors.UpstreamError.
type Provider interface {
	Name() string
	GetHistorical(ctx context.Context, req HistoricalRequest) ([]models.Candle, error)
}

// HistoricalRequest represents a request for historical data.
type HistoricalRequest struct {
	Symbol    string
	Timeframe models.Timeframe
	From      time.Time
	To        time.Time
}

// NewHistoricalRequest builds a request covering the timeframe's lookback
// window ending at now.
func NewHistoricalRequest(symbol string, tf models.Timeframe, now time.Time) HistoricalRequest {
	return HistoricalRequest{
		Symbol:    symbol,
		Timeframe: tf,
		From:      now.Add(-tf.Lookback()),
		To:        now,
	}
}

func (r HistoricalRequest) upstreamError(provider string, err error) error {
	return apperrors.NewUpstreamError(provider, r.Symbol, r.Timeframe.String(), err)
}

// FromConfig assembles the configured provider: the vendor client, wrapped
// by a circuit breaker, wrapped by the candle cache when one is given.
func FromConfig(cfg *config.Config, cache store.DataStore, logger zerolog.Logger) (Provider, error) {
	var p Provider
	switch cfg.Provider.Name {
	case "yahoo":
		p = NewYahooProvider(cfg.Provider)
	case "binance":
		p = NewBinanceProvider(cfg.Provider, cfg.Credentials.Binance)
	default:
		return nil, apperrors.Wrapf(apperrors.ErrConfigInvalid, "unknown provider %q", cfg.Provider.Name)
	}

	p = NewGuardedProvider(p, resilience.CircuitBreakerConfig{
		FailureThreshold: cfg.Provider.FailureThreshold,
		SuccessThreshold: 1,
		Timeout:          cfg.Provider.ResetTimeout,
	})

	if cache != nil && cfg.Cache.Enabled {
		p = NewCachedProvider(p, cache, cfg.Cache.MaxAge).WithLogger(logger)
	}
	return p, nil
}
