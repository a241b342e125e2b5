package provider

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2/common"
	"github.com/adshao/go-binance/v2/futures"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"stock-analyst/internal/config"
	apperrors "stock-analyst/internal/errors"
	"stock-analyst/internal/models"
	"stock-analyst/pkg/utils"
)

const (
	binanceTestnetURL = "https://testnet.binancefuture.com"
	binanceKlineLimit = 1500

	binanceInvalidSymbol = -1121
	binanceTooManyCalls  = -1003
)

// BinanceProvider reads USDT-margined futures klines. Symbols may be given
// in exchange form (BTCUSDT) or as quote pairs (BTC-USD).
type BinanceProvider struct {
	client  *futures.Client
	limiter *rate.Limiter
	retry   utils.RetryConfig
}

// NewBinanceProvider creates a Binance provider. Klines are public, so the
// credentials may be empty.
func NewBinanceProvider(cfg config.ProviderConfig, creds config.BinanceCredentials) *BinanceProvider {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := futures.NewClient(creds.APIKey, creds.APISecret)
	client.HTTPClient = &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
			IdleConnTimeout:     90 * time.Second,
		},
	}
	if cfg.BinanceTestnet {
		client.BaseURL = binanceTestnetURL
	}

	limit := rate.Limit(cfg.RateLimit)
	if cfg.RateLimit <= 0 {
		limit = rate.Inf
	}
	burst := cfg.RateBurst
	if burst < 1 {
		burst = 1
	}

	retry := utils.DefaultRetryConfig()
	retry.MaxAttempts = cfg.MaxRetries + 1
	if cfg.RetryDelay > 0 {
		retry.InitialDelay = cfg.RetryDelay
	}
	retry.ShouldRetry = retryableFetch

	return &BinanceProvider{
		client:  client,
		limiter: rate.NewLimiter(limit, burst),
		retry:   retry,
	}
}

// Name returns the provider name.
func (p *BinanceProvider) Name() string { return "binance" }

// BinanceSymbol converts "BTC-USD" style pairs to exchange symbols.
func BinanceSymbol(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if base, quote, ok := strings.Cut(s, "-"); ok {
		if quote == "USD" {
			quote = "USDT"
		}
		return base + quote
	}
	return s
}

// GetHistorical fetches klines for the request window, paging through the
// exchange's per-call limit.
func (p *BinanceProvider) GetHistorical(ctx context.Context, req HistoricalRequest) ([]models.Candle, error) {
	symbol := BinanceSymbol(req.Symbol)
	interval := req.Timeframe.Interval()
	endMs := req.To.UnixMilli()

	var candles []models.Candle
	for start := req.From.UnixMilli(); start < endMs; {
		page, err := utils.RetryWithResult(ctx, p.retry, func() ([]*futures.Kline, error) {
			if err := p.limiter.Wait(ctx); err != nil {
				return nil, err
			}
			klines, err := p.client.NewKlinesService().
				Symbol(symbol).
				Interval(req.Timeframe.String()).
				StartTime(start).
				EndTime(endMs).
				Limit(binanceKlineLimit).
				Do(ctx)
			return klines, mapBinanceError(err, req.Symbol)
		})
		if err != nil {
			return nil, req.upstreamError(p.Name(), err)
		}

		for _, k := range page {
			c, err := klineToCandle(k)
			if err != nil {
				return nil, req.upstreamError(p.Name(), err)
			}
			candles = append(candles, c)
		}

		if len(page) < binanceKlineLimit {
			break
		}
		start = page[len(page)-1].OpenTime + interval.Milliseconds()
	}

	if len(candles) == 0 {
		return nil, req.upstreamError(p.Name(), apperrors.ErrNoData)
	}
	return candles, nil
}

func mapBinanceError(err error, symbol string) error {
	if err == nil {
		return nil
	}
	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case binanceInvalidSymbol:
			return apperrors.Wrapf(apperrors.ErrSymbolNotFound, "%s", symbol)
		case binanceTooManyCalls:
			return apperrors.Wrap(apperrors.ErrRateLimited, apiErr.Message)
		}
	}
	return err
}

// klineToCandle parses the exchange's decimal strings.
func klineToCandle(k *futures.Kline) (models.Candle, error) {
	var values [5]float64
	for i, s := range []string{k.Open, k.High, k.Low, k.Close, k.Volume} {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return models.Candle{}, apperrors.NewDataError("kline", "", "invalid decimal "+s, err)
		}
		values[i] = d.InexactFloat64()
	}
	return models.Candle{
		Timestamp: time.UnixMilli(k.OpenTime).UTC(),
		Open:      values[0],
		High:      values[1],
		Low:       values[2],
		Close:     values[3],
		Volume:    values[4],
	}, nil
}
