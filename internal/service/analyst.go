package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"stock-analyst/internal/analysis"
	"stock-analyst/internal/analysis/pipeline"
	apperrors "stock-analyst/internal/errors"
	"stock-analyst/internal/logging"
	"stock-analyst/internal/models"
	"stock-analyst/internal/provider"
)

// Analyst fetches history for a request and runs the pipeline over it.
type Analyst struct {
	provider provider.Provider
	pipeline *pipeline.Pipeline
	timeout  time.Duration
	validate *validator.Validate
	logger   zerolog.Logger
	now      func() time.Time
}

// NewAnalyst creates an analyst. A non-positive timeout disables the
// per-request deadline.
func NewAnalyst(p provider.Provider, pl *pipeline.Pipeline, timeout time.Duration) *Analyst {
	return &Analyst{
		provider: p,
		pipeline: pl,
		timeout:  timeout,
		validate: newValidator(),
		logger:   zerolog.Nop(),
		now:      time.Now,
	}
}

// WithLogger sets the logger.
func (a *Analyst) WithLogger(logger zerolog.Logger) *Analyst {
	a.logger = logger
	return a
}

// Validate checks a request without serving it.
func (a *Analyst) Validate(req Request) error {
	return validateRequest(a.validate, req)
}

// Analyze serves one request. Provider failures are returned unmodified.
func (a *Analyst) Analyze(ctx context.Context, req Request) (*analysis.AnalysisResult, error) {
	start := time.Now()
	logger := logging.WithOperation(logging.WithTimeframe(logging.WithSymbol(a.logger, req.Symbol), req.Timeframe), "analyze")

	series, err := a.fetch(ctx, req, logger)
	if err != nil {
		return nil, err
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	result, err := a.pipeline.AnalyzeContext(ctx, series)
	if err != nil {
		logger.Error().Err(err).Msg("analysis failed")
		return nil, err
	}

	logging.LogAnalysis(logger, result.Symbol, result.Timeframe, result.Score, string(result.Recommendation), time.Since(start))
	return result, nil
}

// Quote summarizes the latest bar of a request's series.
type Quote struct {
	Symbol        string           `json:"symbol"`
	Timeframe     models.Timeframe `json:"timeframe"`
	Price         float64          `json:"price"`
	PreviousClose float64          `json:"previous_close"`
	Change        float64          `json:"change"`
	ChangePercent float64          `json:"change_percent"`
	High          float64          `json:"high"`
	Low           float64          `json:"low"`
	Volume        float64          `json:"volume"`
	Pivot         float64          `json:"pivot"`
	Bias          QuoteBias        `json:"bias"`
	AsOf          time.Time        `json:"as_of"`
}

// QuoteBias labels the move against the previous close.
type QuoteBias string

const (
	BiasUp       QuoteBias = "up"
	BiasDown     QuoteBias = "down"
	BiasSideways QuoteBias = "sideways"
)

// biasThreshold is the change percent beyond which a move is directional.
const biasThreshold = 1.0

// BiasFromChange maps a change percent to a bias: above +1% is up, below
// -1% is down and anything in between is sideways.
func BiasFromChange(changePercent float64) QuoteBias {
	switch {
	case changePercent > biasThreshold:
		return BiasUp
	case changePercent < -biasThreshold:
		return BiasDown
	}
	return BiasSideways
}

// Action is the suggested reaction to the bias.
func (b QuoteBias) Action() string {
	switch b {
	case BiasUp:
		return "buy on support"
	case BiasDown:
		return "wait or sell"
	}
	return "wait for a breakout"
}

// Quote serves a price lookup.
func (a *Analyst) Quote(ctx context.Context, req Request) (*Quote, error) {
	logger := logging.WithOperation(logging.WithSymbol(a.logger, req.Symbol), "quote")

	series, err := a.fetch(ctx, req, logger)
	if err != nil {
		return nil, err
	}
	return quoteFromSeries(series), nil
}

func quoteFromSeries(series models.Series) *Quote {
	last := series.Last()
	prev := last.Open
	if series.Len() > 1 {
		prev = series.Candles[series.Len()-2].Close
	}

	q := &Quote{
		Symbol:        series.Symbol,
		Timeframe:     series.Timeframe,
		Price:         last.Close,
		PreviousClose: prev,
		Change:        last.Close - prev,
		High:          last.High,
		Low:           last.Low,
		Volume:        last.Volume,
		Pivot:         (last.High + last.Low + last.Close) / 3,
		AsOf:          last.Timestamp,
	}
	if prev != 0 {
		q.ChangePercent = q.Change / prev * 100
	}
	q.Bias = BiasFromChange(q.ChangePercent)
	return q
}

func (a *Analyst) fetch(ctx context.Context, req Request, logger zerolog.Logger) (models.Series, error) {
	if err := a.Validate(req); err != nil {
		return models.Series{}, err
	}
	tf := req.TimeframeValue()

	fetchCtx, cancel := a.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	candles, err := a.provider.GetHistorical(fetchCtx, provider.NewHistoricalRequest(req.Symbol, tf, a.now()))
	logging.LogFetch(logger, a.provider.Name(), req.Symbol, len(candles), time.Since(start), err)
	if err != nil {
		return models.Series{}, err
	}
	if len(candles) == 0 {
		return models.Series{}, apperrors.NewUpstreamError(a.provider.Name(), req.Symbol, req.Timeframe, apperrors.ErrNoData)
	}
	return models.NewSeries(req.Symbol, tf, candles), nil
}

func (a *Analyst) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.timeout)
}
