package provider

import (
	"context"

	apperrors "stock-analyst/internal/errors"
	"stock-analyst/internal/models"
	"stock-analyst/internal/resilience"
)

// GuardedProvider stops calling an upstream that keeps failing.
type GuardedProvider struct {
	inner   Provider
	breaker *resilience.CircuitBreaker
}

// NewGuardedProvider wraps inner with a circuit breaker named after it.
func NewGuardedProvider(inner Provider, cfg resilience.CircuitBreakerConfig) *GuardedProvider {
	return &GuardedProvider{
		inner:   inner,
		breaker: resilience.NewCircuitBreaker(inner.Name(), cfg),
	}
}

// Name returns the wrapped provider's name.
func (p *GuardedProvider) Name() string { return p.inner.Name() }

// Breaker exposes the circuit for status reporting.
func (p *GuardedProvider) Breaker() *resilience.CircuitBreaker { return p.breaker }

// GetHistorical delegates to the wrapped provider unless the circuit is
// open. A rejected call is still reported as an upstream failure.
func (p *GuardedProvider) GetHistorical(ctx context.Context, req HistoricalRequest) ([]models.Candle, error) {
	candles, err := resilience.ExecuteWithResult(p.breaker, func() ([]models.Candle, error) {
		return p.inner.GetHistorical(ctx, req)
	})
	if err != nil && apperrors.Is(err, apperrors.ErrCircuitOpen) {
		return nil, req.upstreamError(p.Name(), err)
	}
	return candles, err
}
