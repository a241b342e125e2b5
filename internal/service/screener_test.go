package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock-analyst/internal/analysis"
	apperrors "stock-analyst/internal/errors"
)

type fixedAnalyzer struct {
	mu       sync.Mutex
	results  map[string]*analysis.AnalysisResult
	inFlight int32
	peak     int32
	delay    time.Duration
	seen     []Request
}

func (f *fixedAnalyzer) Analyze(ctx context.Context, req Request) (*analysis.AnalysisResult, error) {
	n := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		p := atomic.LoadInt32(&f.peak)
		if n <= p || atomic.CompareAndSwapInt32(&f.peak, p, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	f.seen = append(f.seen, req)
	r, ok := f.results[req.Symbol]
	f.mu.Unlock()
	if !ok {
		return nil, apperrors.NewUpstreamError("fixed", req.Symbol, req.Timeframe, apperrors.ErrSymbolNotFound)
	}
	return r, nil
}

func scored(symbol string, score, confidence float64) *analysis.AnalysisResult {
	return &analysis.AnalysisResult{Symbol: symbol, Score: score, ConfidencePercent: confidence}
}

func TestScanRanksByScore(t *testing.T) {
	a := &fixedAnalyzer{results: map[string]*analysis.AnalysisResult{
		"AAPL": scored("AAPL", 4, 40),
		"MSFT": scored("MSFT", 7, 70),
		"NVDA": scored("NVDA", 2, 20),
		"TSLA": scored("TSLA", 7, 70),
	}}

	results := NewScreener(a, 2).Scan(context.Background(), []string{"aapl", "nvda", "missing", "tsla", "msft"}, "1h", nil)
	require.Len(t, results, 5)

	order := make([]string, len(results))
	for i, r := range results {
		order[i] = r.Symbol
	}
	assert.Equal(t, []string{"MSFT", "TSLA", "AAPL", "NVDA", "MISSING"}, order, "ties break by symbol, failures last")

	last := results[4]
	assert.False(t, last.Passed)
	assert.ErrorIs(t, last.Err, apperrors.ErrSymbolNotFound)
	assert.NotEmpty(t, last.Error)

	for _, req := range a.seen {
		assert.Equal(t, SourceCLI, req.Source)
		assert.Equal(t, "1h", req.Timeframe)
	}
}

func TestScanFilters(t *testing.T) {
	strong := scored("AAPL", 8, 80)
	strong.ICT.MarketStructure = analysis.TrendUp
	strong.ICT.OrderBlocks = []analysis.OrderBlock{{Direction: analysis.SideBuy}, {Direction: analysis.SideSell}}
	bullishNoStructure := scored("MSFT", 6, 60)
	weak := scored("NVDA", 1, 10)

	a := &fixedAnalyzer{results: map[string]*analysis.AnalysisResult{
		"AAPL": strong, "MSFT": bullishNoStructure, "NVDA": weak,
	}}
	symbols := []string{"AAPL", "MSFT", "NVDA"}

	tests := []struct {
		preset string
		passed []string
	}{
		{"all", []string{"AAPL", "MSFT", "NVDA"}},
		{"bullish", []string{"AAPL", "MSFT"}},
		{"strong", []string{"AAPL"}},
		{"weak", []string{"NVDA"}},
		{"harmonic", nil},
	}

	for _, tt := range tests {
		t.Run(tt.preset, func(t *testing.T) {
			preset, err := PresetByName(tt.preset)
			require.NoError(t, err)

			var passed []string
			for _, r := range NewScreener(a, 3).Scan(context.Background(), symbols, "1d", preset.Filters) {
				require.NoError(t, r.Err)
				if r.Passed {
					passed = append(passed, r.Symbol)
				}
			}
			assert.Equal(t, tt.passed, passed)
		})
	}

	results := NewScreener(a, 1).Scan(context.Background(), []string{"AAPL"}, "1d", []Filter{
		{Type: FilterBuyOrderBlocks, Operator: OpEqual, Value: 1},
	})
	assert.True(t, results[0].Passed)
	assert.Equal(t, 1.0, results[0].Values[FilterBuyOrderBlocks])
}

func TestScanUnknownFilterFails(t *testing.T) {
	a := &fixedAnalyzer{results: map[string]*analysis.AnalysisResult{"AAPL": scored("AAPL", 5, 50)}}

	results := NewScreener(a, 1).Scan(context.Background(), []string{"AAPL"}, "1d", []Filter{{Type: "rsi", Operator: OpGreaterThan, Value: 50}})
	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Err, apperrors.ErrInputValidation)

	_, err := PresetByName("momentum")
	assert.ErrorIs(t, err, apperrors.ErrInputValidation)
}

func TestScanRespectsConcurrency(t *testing.T) {
	results := map[string]*analysis.AnalysisResult{}
	symbols := []string{"A", "B", "C", "D", "E", "F", "G", "H"}
	for _, s := range symbols {
		results[s] = scored(s, 1, 10)
	}
	a := &fixedAnalyzer{results: results, delay: 10 * time.Millisecond}

	NewScreener(a, 3).Scan(context.Background(), symbols, "1d", nil)
	assert.LessOrEqual(t, atomic.LoadInt32(&a.peak), int32(3))
	assert.Len(t, a.seen, len(symbols))
}

func TestScanCancelled(t *testing.T) {
	a := &fixedAnalyzer{results: map[string]*analysis.AnalysisResult{"A": scored("A", 1, 10)}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := NewScreener(a, 1).Scan(ctx, []string{"A", "B", "C"}, "1d", nil)
	require.Len(t, results, 3)
	for _, r := range results {
		if r.Err != nil {
			assert.True(t, errors.Is(r.Err, context.Canceled) || errors.Is(r.Err, apperrors.ErrSymbolNotFound))
		}
	}
}

func TestProperty_ScanKeepsEverySymbol(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("one result per symbol, passed results sorted by score", prop.ForAll(
		func(scores []float64, workers int) bool {
			results := map[string]*analysis.AnalysisResult{}
			symbols := make([]string, len(scores))
			for i, s := range scores {
				sym := string(rune('A'+i%26)) + string(rune('A'+i/26))
				symbols[i] = sym
				results[sym] = scored(sym, s, s*10)
			}
			out := NewScreener(&fixedAnalyzer{results: results}, workers).Scan(context.Background(), symbols, "1d", nil)
			if len(out) != len(symbols) {
				return false
			}
			for i := 1; i < len(out); i++ {
				if out[i-1].Result.Score < out[i].Result.Score {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(20, gen.Float64Range(0, 10)),
		gen.IntRange(1, 6),
	))

	properties.TestingRun(t)
}
