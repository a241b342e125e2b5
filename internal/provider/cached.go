package provider

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"stock-analyst/internal/models"
	"stock-analyst/internal/store"
)

// CachedProvider serves candles from a DataStore while the last upstream
// refresh is younger than maxAge. Store failures degrade to a direct fetch.
type CachedProvider struct {
	inner  Provider
	store  store.DataStore
	maxAge time.Duration
	now    func() time.Time
	logger zerolog.Logger
}

// NewCachedProvider wraps inner with a candle cache.
func NewCachedProvider(inner Provider, ds store.DataStore, maxAge time.Duration) *CachedProvider {
	return &CachedProvider{
		inner:  inner,
		store:  ds,
		maxAge: maxAge,
		now:    time.Now,
		logger: zerolog.Nop(),
	}
}

// WithLogger sets the logger used for cache diagnostics.
func (p *CachedProvider) WithLogger(logger zerolog.Logger) *CachedProvider {
	p.logger = logger
	return p
}

// Name returns the wrapped provider's name.
func (p *CachedProvider) Name() string { return p.inner.Name() }

// GetHistorical returns cached candles when fresh, otherwise fetches and
// stores them.
func (p *CachedProvider) GetHistorical(ctx context.Context, req HistoricalRequest) ([]models.Candle, error) {
	tf := req.Timeframe.String()

	if candles, ok := p.fromCache(ctx, req); ok {
		return candles, nil
	}

	candles, err := p.inner.GetHistorical(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := p.store.SaveCandles(ctx, req.Symbol, tf, candles); err != nil {
		p.logger.Warn().Err(err).Str("symbol", req.Symbol).Msg("failed to cache candles")
		return candles, nil
	}
	if err := p.store.MarkFetched(ctx, req.Symbol, tf, p.now()); err != nil {
		p.logger.Warn().Err(err).Str("symbol", req.Symbol).Msg("failed to record fetch time")
	}
	return candles, nil
}

func (p *CachedProvider) fromCache(ctx context.Context, req HistoricalRequest) ([]models.Candle, bool) {
	tf := req.Timeframe.String()

	last, err := p.store.LastFetched(ctx, req.Symbol, tf)
	if err != nil {
		p.logger.Warn().Err(err).Str("symbol", req.Symbol).Msg("cache lookup failed")
		return nil, false
	}
	if last.IsZero() || p.now().Sub(last) > p.maxAge {
		return nil, false
	}

	candles, err := p.store.GetCandles(ctx, req.Symbol, tf, req.From, req.To)
	if err != nil {
		p.logger.Warn().Err(err).Str("symbol", req.Symbol).Msg("cache read failed")
		return nil, false
	}
	if len(candles) == 0 {
		return nil, false
	}

	p.logger.Debug().Str("symbol", req.Symbol).Str("timeframe", tf).Int("bars", len(candles)).Msg("cache hit")
	return candles, true
}
