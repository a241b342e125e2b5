// Package pipeline validates a price series, runs the four analysis schools
// over it and aggregates their votes into one AnalysisResult.
package pipeline

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"stock-analyst/internal/analysis"
	"stock-analyst/internal/analysis/classical"
	"stock-analyst/internal/analysis/elliott"
	"stock-analyst/internal/analysis/harmonic"
	"stock-analyst/internal/analysis/ict"
	"stock-analyst/internal/analysis/scoring"
	apperrors "stock-analyst/internal/errors"
	"stock-analyst/internal/models"
)

// Config bundles the calibration of every school and the aggregator.
type Config struct {
	Classical  classical.Config   `mapstructure:"classical"`
	Elliott    elliott.Config     `mapstructure:"elliott"`
	ICT        ict.Config         `mapstructure:"ict"`
	Harmonic   harmonic.Config    `mapstructure:"harmonic"`
	Weights    scoring.Weights    `mapstructure:"weights"`
	Thresholds scoring.Thresholds `mapstructure:"thresholds"`
}

// DefaultConfig returns the default calibration for all schools.
func DefaultConfig() Config {
	return Config{
		Classical:  classical.DefaultConfig(),
		Elliott:    elliott.DefaultConfig(),
		ICT:        ict.DefaultConfig(),
		Harmonic:   harmonic.DefaultConfig(),
		Weights:    scoring.DefaultWeights(),
		Thresholds: scoring.DefaultThresholds(),
	}
}

// Pipeline holds stateless analyzers. It is safe for concurrent use.
type Pipeline struct {
	classical  *classical.Analyzer
	elliott    *elliott.Analyzer
	ict        *ict.Analyzer
	harmonic   *harmonic.Analyzer
	aggregator *scoring.Aggregator
	logger     zerolog.Logger
}

// New creates a pipeline with the default calibration.
func New() *Pipeline {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig creates a pipeline with custom calibration.
func NewWithConfig(cfg Config) *Pipeline {
	return &Pipeline{
		classical:  classical.NewAnalyzerWithConfig(cfg.Classical),
		elliott:    elliott.NewAnalyzerWithConfig(cfg.Elliott),
		ict:        ict.NewAnalyzerWithConfig(cfg.ICT),
		harmonic:   harmonic.NewAnalyzerWithConfig(cfg.Harmonic),
		aggregator: scoring.NewAggregatorWithConfig(cfg.Weights, cfg.Thresholds),
		logger:     zerolog.Nop(),
	}
}

// WithLogger returns a copy of the pipeline that logs at debug level.
func (p *Pipeline) WithLogger(logger zerolog.Logger) *Pipeline {
	cp := *p
	cp.logger = logger
	return &cp
}

// Analyze validates the series and runs all schools. An empty series reports
// ErrNoData and a malformed one ErrMalformedSeries; neither runs any analyzer.
// Analyzer-level shortfalls are carried in each school's Status instead.
func (p *Pipeline) Analyze(series models.Series) (*analysis.AnalysisResult, error) {
	if series.Len() == 0 {
		return nil, apperrors.Wrapf(apperrors.ErrNoData, "%s/%s", series.Symbol, series.Timeframe)
	}
	if err := series.Validate(); err != nil {
		return nil, err
	}

	var (
		wg sync.WaitGroup
		cr analysis.ClassicalResult
		er analysis.ElliottResult
		ir analysis.ICTResult
		hr analysis.HarmonicResult
	)
	wg.Add(4)
	go func() {
		defer wg.Done()
		cr = p.classical.Analyze(series)
	}()
	go func() {
		defer wg.Done()
		er = p.elliott.Analyze(series)
	}()
	go func() {
		defer wg.Done()
		ir = p.ict.Analyze(series)
	}()
	go func() {
		defer wg.Done()
		hr = p.harmonic.Analyze(series)
	}()
	wg.Wait()

	result := p.aggregator.Aggregate(cr, er, ir, hr)
	last := series.Last()
	result.Symbol = series.Symbol
	result.Timeframe = series.Timeframe.String()
	result.Bars = series.Len()
	result.AsOf = last.Timestamp
	result.LastClose = last.Close

	p.logger.Debug().
		Str("symbol", result.Symbol).
		Str("timeframe", result.Timeframe).
		Int("bars", result.Bars).
		Str("classical", string(cr.Status)).
		Str("elliott", string(er.Status)).
		Str("ict", string(ir.Status)).
		Str("harmonic", string(hr.Status)).
		Float64("score", result.Score).
		Str("recommendation", string(result.Recommendation)).
		Msg("analysis complete")

	return result, nil
}

// AnalyzeContext runs Analyze but gives up when ctx is done. The computation
// is not interruptible; on expiry its result is discarded and the call
// returns an error wrapping ErrTimeout.
func (p *Pipeline) AnalyzeContext(ctx context.Context, series models.Series) (*analysis.AnalysisResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrTimeout, err.Error())
	}

	type outcome struct {
		result *analysis.AnalysisResult
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		r, err := p.Analyze(series)
		done <- outcome{r, err}
	}()

	select {
	case o := <-done:
		return o.result, o.err
	case <-ctx.Done():
		return nil, apperrors.Wrap(apperrors.ErrTimeout, ctx.Err().Error())
	}
}
