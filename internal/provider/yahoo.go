package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"stock-analyst/internal/config"
	apperrors "stock-analyst/internal/errors"
	"stock-analyst/internal/models"
	"stock-analyst/pkg/utils"
)

const defaultYahooBaseURL = "https://query1.finance.yahoo.com"

// YahooProvider reads bars from the Yahoo Finance chart API. It covers
// equities, indices and "-USD" crypto pairs.
type YahooProvider struct {
	baseURL   string
	client    *http.Client
	limiter   *rate.Limiter
	retry     utils.RetryConfig
	symbolMap map[string]string
}

// NewYahooProvider creates a Yahoo provider from the provider configuration.
func NewYahooProvider(cfg config.ProviderConfig) *YahooProvider {
	transport := &http.Transport{}
	if cfg.Proxy != "" {
		if u, err := url.Parse(cfg.Proxy); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	baseURL := strings.TrimRight(cfg.YahooBaseURL, "/")
	if baseURL == "" {
		baseURL = defaultYahooBaseURL
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

	return &YahooProvider{
		baseURL: baseURL,
		client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		limiter: rate.NewLimiter(limit, burst),
		retry:   retry,
		symbolMap: map[string]string{
			"SPX":    "^GSPC",
			"SP500":  "^GSPC",
			"SPX500": "^GSPC",
			"NASDAQ": "^IXIC",
			"DOW":    "^DJI",
		},
	}
}

// Name returns the provider name.
func (p *YahooProvider) Name() string { return "yahoo" }

func (p *YahooProvider) yahooSymbol(symbol string) string {
	if mapped, ok := p.symbolMap[strings.ToUpper(symbol)]; ok {
		return mapped
	}
	return symbol
}

// yahooInterval maps a timeframe to the chart API interval. 4h has no native
// interval and is resampled from hourly bars.
func yahooInterval(tf models.Timeframe) string {
	switch tf {
	case models.Timeframe15Min:
		return "15m"
	case models.Timeframe30Min:
		return "30m"
	case models.Timeframe1Hour, models.Timeframe4Hour:
		return "60m"
	default:
		return "1d"
	}
}

// GetHistorical fetches candles for the request window, sorted by time.
func (p *YahooProvider) GetHistorical(ctx context.Context, req HistoricalRequest) ([]models.Candle, error) {
	candles, err := utils.RetryWithResult(ctx, p.retry, func() ([]models.Candle, error) {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		return p.fetchChart(ctx, req)
	})
	if err != nil {
		return nil, req.upstreamError(p.Name(), err)
	}

	if req.Timeframe == models.Timeframe4Hour {
		candles = models.Resample(candles, req.Timeframe.Interval())
	}
	if len(candles) == 0 {
		return nil, req.upstreamError(p.Name(), apperrors.ErrNoData)
	}
	return candles, nil
}

// yahooChart is the response structure from the chart API. Missing bars
// arrive as JSON nulls.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (p *YahooProvider) fetchChart(ctx context.Context, req HistoricalRequest) ([]models.Candle, error) {
	q := url.Values{}
	q.Set("interval", yahooInterval(req.Timeframe))
	q.Set("period1", strconv.FormatInt(req.From.Unix(), 10))
	q.Set("period2", strconv.FormatInt(req.To.Unix(), 10))
	u := fmt.Sprintf("%s/v8/finance/chart/%s?%s", p.baseURL, url.PathEscape(p.yahooSymbol(req.Symbol)), q.Encode())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("yahoo fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("yahoo read body: %w", err)
	}

	var chart yahooChart
	decodeErr := json.Unmarshal(body, &chart)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, apperrors.Wrapf(apperrors.ErrSymbolNotFound, "%s", req.Symbol)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, apperrors.Wrap(apperrors.ErrRateLimited, "yahoo")
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("yahoo: status %d", resp.StatusCode)
	case decodeErr != nil:
		return nil, fmt.Errorf("yahoo decode: %w", decodeErr)
	case chart.Chart.Error != nil:
		if chart.Chart.Error.Code == "Not Found" {
			return nil, apperrors.Wrapf(apperrors.ErrSymbolNotFound, "%s", req.Symbol)
		}
		return nil, fmt.Errorf("yahoo api error: %s", chart.Chart.Error.Description)
	case len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Indicators.Quote) == 0:
		return nil, apperrors.ErrNoData
	}

	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	candles := make([]models.Candle, 0, len(result.Timestamp))

	for i, ts := range result.Timestamp {
		o, h, l, c := at(quote.Open, i), at(quote.High, i), at(quote.Low, i), at(quote.Close, i)
		if o == nil || h == nil || l == nil || c == nil {
			continue // null bars (halts, holidays)
		}
		var volume float64
		if v := at(quote.Volume, i); v != nil {
			volume = *v
		}
		candles = append(candles, models.Candle{
			Timestamp: time.Unix(ts, 0).UTC(),
			Open:      *o,
			High:      *h,
			Low:       *l,
			Close:     *c,
			Volume:    volume,
		})
	}

	sort.Slice(candles, func(i, j int) bool { return candles[i].Timestamp.Before(candles[j].Timestamp) })
	return candles, nil
}

func at(values []*float64, i int) *float64 {
	if i >= len(values) {
		return nil
	}
	return values[i]
}

// retryableFetch skips retries for answers that will not change on a second
// attempt.
func retryableFetch(err error) bool {
	return !apperrors.Is(err, apperrors.ErrSymbolNotFound) &&
		!apperrors.Is(err, apperrors.ErrNoData) &&
		!apperrors.Is(err, context.Canceled) &&
		!apperrors.Is(err, context.DeadlineExceeded)
}
