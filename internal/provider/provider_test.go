package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock-analyst/internal/config"
	apperrors "stock-analyst/internal/errors"
	"stock-analyst/internal/models"
	"stock-analyst/internal/resilience"
	"stock-analyst/internal/store"
)

var testNow = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

func testProviderConfig(baseURL string) config.ProviderConfig {
	return config.ProviderConfig{
		Name:         "yahoo",
		Timeout:      2 * time.Second,
		MaxRetries:   2,
		RetryDelay:   time.Millisecond,
		RateLimit:    1000,
		RateBurst:    10,
		YahooBaseURL: baseURL,
	}
}

const chartBody = `{"chart":{"result":[{
	"timestamp":[1714525200,1714528800,1714532400,1714536000,1714539600],
	"indicators":{"quote":[{
		"open":  [10, null, 12, 13, 14],
		"high":  [11, null, 13, 14, 15],
		"low":   [9,  null, 11, 12, 13],
		"close": [10.5, null, 12.5, 13.5, 14.5],
		"volume":[100, null, 300, null, 500]
	}]}
}],"error":null}}`

func TestYahooGetHistorical(t *testing.T) {
	var gotPath, gotInterval string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotInterval = r.URL.Query().Get("interval")
		fmt.Fprint(w, chartBody)
	}))
	defer srv.Close()

	p := NewYahooProvider(testProviderConfig(srv.URL))
	candles, err := p.GetHistorical(context.Background(), NewHistoricalRequest("SPX", models.Timeframe1Hour, testNow))
	require.NoError(t, err)

	assert.Equal(t, "/v8/finance/chart/^GSPC", gotPath)
	assert.Equal(t, "60m", gotInterval)
	require.Len(t, candles, 4, "null bar skipped")
	assert.Equal(t, 10.5, candles[0].Close)
	assert.Equal(t, 0.0, candles[2].Volume, "null volume reads as zero")
	assert.Equal(t, time.UTC, candles[0].Timestamp.Location())
}

func TestYahooResamplesFourHour(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "60m", r.URL.Query().Get("interval"))
		fmt.Fprint(w, chartBody)
	}))
	defer srv.Close()

	p := NewYahooProvider(testProviderConfig(srv.URL))
	candles, err := p.GetHistorical(context.Background(), NewHistoricalRequest("AAPL", models.Timeframe4Hour, testNow))
	require.NoError(t, err)

	// 01:00..05:00 UTC spans the 00:00 and 04:00 buckets
	require.Len(t, candles, 2)
	assert.Equal(t, 10.0, candles[0].Open)
	assert.Equal(t, 12.5, candles[0].Close)
	assert.Equal(t, 13.0, candles[0].High)
	assert.Equal(t, 400.0, candles[0].Volume)
	assert.Equal(t, 14.5, candles[1].Close)
}

func TestYahooSymbolNotFound(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`)
	}))
	defer srv.Close()

	p := NewYahooProvider(testProviderConfig(srv.URL))
	_, err := p.GetHistorical(context.Background(), NewHistoricalRequest("ZZZZ", models.Timeframe1Day, testNow))
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrUpstreamUnavailable)
	assert.ErrorIs(t, err, apperrors.ErrSymbolNotFound)
	assert.Equal(t, int32(1), calls.Load(), "not retried")

	var upErr *apperrors.UpstreamError
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, "yahoo", upErr.Provider)
	assert.Equal(t, "ZZZZ", upErr.Symbol)
	assert.Equal(t, "1d", upErr.Timeframe)
}

func TestYahooRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, chartBody)
	}))
	defer srv.Close()

	p := NewYahooProvider(testProviderConfig(srv.URL))
	candles, err := p.GetHistorical(context.Background(), NewHistoricalRequest("MSFT", models.Timeframe1Hour, testNow))
	require.NoError(t, err)
	assert.Len(t, candles, 4)
	assert.Equal(t, int32(3), calls.Load())
}

func TestYahooExhaustedRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewYahooProvider(testProviderConfig(srv.URL))
	_, err := p.GetHistorical(context.Background(), NewHistoricalRequest("MSFT", models.Timeframe1Hour, testNow))
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrUpstreamUnavailable)
	assert.True(t, apperrors.Retryable(err))
}

func TestYahooEmptyResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"chart":{"result":[{"timestamp":[1,2],"indicators":{"quote":[{"open":[null,null],"high":[null,null],"low":[null,null],"close":[null,null],"volume":[null,null]}]}}],"error":null}}`)
	}))
	defer srv.Close()

	p := NewYahooProvider(testProviderConfig(srv.URL))
	_, err := p.GetHistorical(context.Background(), NewHistoricalRequest("AAPL", models.Timeframe1Day, testNow))
	assert.ErrorIs(t, err, apperrors.ErrNoData)
	assert.ErrorIs(t, err, apperrors.ErrUpstreamUnavailable)
}

func TestBinanceSymbol(t *testing.T) {
	tests := map[string]string{
		"BTC-USD":  "BTCUSDT",
		"eth-usd":  "ETHUSDT",
		"BTCUSDT":  "BTCUSDT",
		"SOL-USDT": "SOLUSDT",
	}
	for in, want := range tests {
		assert.Equal(t, want, BinanceSymbol(in), in)
	}
}

func TestBinanceGetHistorical(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/fapi/v1/klines", r.URL.Path)
		assert.Equal(t, "BTCUSDT", r.URL.Query().Get("symbol"))
		assert.Equal(t, "4h", r.URL.Query().Get("interval"))
		fmt.Fprint(w, `[
			[1714521600000,"60000.10","60500.00","59800.00","60200.50","1234.567",1714535999999,"0",100,"0","0","0"],
			[1714536000000,"60200.50","61000.00","60100.00","60900.00","987.001",1714550399999,"0",80,"0","0","0"]
		]`)
	}))
	defer srv.Close()

	p := NewBinanceProvider(testProviderConfig(""), config.BinanceCredentials{})
	p.client.BaseURL = srv.URL

	candles, err := p.GetHistorical(context.Background(), NewHistoricalRequest("BTC-USD", models.Timeframe4Hour, testNow))
	require.NoError(t, err)
	require.Len(t, candles, 2)
	assert.Equal(t, time.UnixMilli(1714521600000).UTC(), candles[0].Timestamp)
	assert.InDelta(t, 60200.5, candles[0].Close, 1e-9)
	assert.InDelta(t, 987.001, candles[1].Volume, 1e-9)
}

func TestBinanceInvalidSymbol(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"code":-1121,"msg":"Invalid symbol."}`)
	}))
	defer srv.Close()

	p := NewBinanceProvider(testProviderConfig(""), config.BinanceCredentials{})
	p.client.BaseURL = srv.URL

	_, err := p.GetHistorical(context.Background(), NewHistoricalRequest("NOPE-USD", models.Timeframe1Hour, testNow))
	assert.ErrorIs(t, err, apperrors.ErrSymbolNotFound)
	assert.ErrorIs(t, err, apperrors.ErrUpstreamUnavailable)
}

// fakeProvider returns canned candles and counts calls.
type fakeProvider struct {
	candles []models.Candle
	err     error
	calls   int
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) GetHistorical(ctx context.Context, req HistoricalRequest) ([]models.Candle, error) {
	f.calls++
	if f.err != nil {
		return nil, apperrors.NewUpstreamError("fake", req.Symbol, req.Timeframe.String(), f.err)
	}
	return f.candles, nil
}

func hourly(n int) []models.Candle {
	out := make([]models.Candle, n)
	for i := range out {
		p := 100 + float64(i)
		out[i] = models.Candle{
			Timestamp: testNow.Add(-time.Duration(n-i) * time.Hour),
			Open:      p, High: p + 1, Low: p - 1, Close: p + 0.5, Volume: 10,
		}
	}
	return out
}

func newStore(t *testing.T) store.DataStore {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCachedProviderServesFreshData(t *testing.T) {
	inner := &fakeProvider{candles: hourly(24)}
	clock := testNow
	p := NewCachedProvider(inner, newStore(t), 5*time.Minute)
	p.now = func() time.Time { return clock }

	req := NewHistoricalRequest("AAPL", models.Timeframe1Hour, testNow)
	first, err := p.GetHistorical(context.Background(), req)
	require.NoError(t, err)
	second, err := p.GetHistorical(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 1, inner.calls)
	require.Len(t, second, len(first))
	assert.True(t, first[0].Timestamp.Equal(second[0].Timestamp))

	clock = clock.Add(10 * time.Minute)
	_, err = p.GetHistorical(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls, "stale cache refetches")
}

func TestCachedProviderPassesErrorsThrough(t *testing.T) {
	inner := &fakeProvider{err: errors.New("boom")}
	p := NewCachedProvider(inner, newStore(t), time.Minute)

	_, err := p.GetHistorical(context.Background(), NewHistoricalRequest("AAPL", models.Timeframe1Hour, testNow))
	assert.ErrorIs(t, err, apperrors.ErrUpstreamUnavailable)
	assert.Equal(t, "fake", p.Name())
}

func TestGuardedProviderOpensCircuit(t *testing.T) {
	inner := &fakeProvider{err: errors.New("connection refused")}
	p := NewGuardedProvider(inner, resilience.CircuitBreakerConfig{FailureThreshold: 2, Timeout: time.Hour})
	req := NewHistoricalRequest("TSLA", models.Timeframe1Day, testNow)

	for i := 0; i < 2; i++ {
		_, err := p.GetHistorical(context.Background(), req)
		require.Error(t, err)
	}
	require.Equal(t, resilience.CircuitOpen, p.Breaker().State())

	_, err := p.GetHistorical(context.Background(), req)
	assert.ErrorIs(t, err, apperrors.ErrCircuitOpen)
	assert.ErrorIs(t, err, apperrors.ErrUpstreamUnavailable)
	assert.Equal(t, 2, inner.calls, "open circuit does not call upstream")
}

func TestFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Cache.Enabled = true

	p, err := FromConfig(cfg, newStore(t), zerolog.Nop())
	require.NoError(t, err)
	_, cached := p.(*CachedProvider)
	assert.True(t, cached)
	assert.Equal(t, "yahoo", p.Name())

	cfg.Provider.Name = "binance"
	p, err = FromConfig(cfg, nil, zerolog.Nop())
	require.NoError(t, err)
	_, guarded := p.(*GuardedProvider)
	assert.True(t, guarded)
	assert.Equal(t, "binance", p.Name())

	cfg.Provider.Name = "kite"
	_, err = FromConfig(cfg, nil, zerolog.Nop())
	assert.ErrorIs(t, err, apperrors.ErrConfigInvalid)
	assert.True(t, strings.Contains(err.Error(), "kite"))
}
