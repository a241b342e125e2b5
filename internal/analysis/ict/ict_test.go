package ict

import (
	"reflect"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock-analyst/internal/analysis"
	"stock-analyst/internal/analysis/analysistest"
	"stock-analyst/internal/models"
)

func unlimited() *Analyzer {
	cfg := DefaultConfig()
	cfg.MaxGaps = 1 << 20
	cfg.MaxOrderBlocks = 1 << 20
	return NewAnalyzerWithConfig(cfg)
}

func reversed(s models.Series) models.Series {
	n := s.Len()
	out := make([]models.Candle, n)
	for i, c := range s.Candles {
		out[n-1-i] = c
	}
	for i := range out {
		out[i].Timestamp = analysistest.Start.Add(time.Duration(i) * time.Hour)
	}
	return models.NewSeries(s.Symbol, s.Timeframe, out)
}

func mirrored(s models.Series, pivot float64) models.Series {
	out := make([]models.Candle, s.Len())
	for i, c := range s.Candles {
		out[i] = models.Candle{
			Timestamp: c.Timestamp,
			Open:      pivot - c.Open,
			High:      pivot - c.Low,
			Low:       pivot - c.High,
			Close:     pivot - c.Close,
			Volume:    c.Volume,
		}
	}
	return models.NewSeries(s.Symbol, s.Timeframe, out)
}

// Property: reversing time turns every bullish gap at (i-2, i) into a bearish
// gap over the same bars with identical bounds, and vice versa.
func TestProperty_GapTimeReversalSymmetry(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)
	a := unlimited()

	properties.Property("reversed gaps mirror the originals", prop.ForAll(
		func(series models.Series) bool {
			n := series.Len()
			fwd := a.FairValueGaps(series.Highs(), series.Lows())
			rev := reversed(series)
			back := a.FairValueGaps(rev.Highs(), rev.Lows())
			if len(fwd) != len(back) {
				return false
			}
			byIndex := make(map[int]analysis.FairValueGap, len(back))
			for _, g := range back {
				byIndex[g.Index] = g
			}
			for _, g := range fwd {
				m, ok := byIndex[n-1-(g.Index-2)]
				if !ok || m.Direction == g.Direction {
					return false
				}
				if m.Lower != g.Lower || m.Upper != g.Upper {
					return false
				}
			}
			return true
		},
		analysistest.CandleSliceGen(3, 80),
	))

	properties.Property("price mirroring flips gap direction in place", prop.ForAll(
		func(series models.Series) bool {
			const pivot = 2000.0
			fwd := a.FairValueGaps(series.Highs(), series.Lows())
			mir := mirrored(series, pivot)
			flipped := a.FairValueGaps(mir.Highs(), mir.Lows())
			if len(fwd) != len(flipped) {
				return false
			}
			for i, g := range fwd {
				m := flipped[i]
				if m.Index != g.Index || m.Direction == g.Direction {
					return false
				}
				if m.Lower != pivot-g.Upper || m.Upper != pivot-g.Lower {
					return false
				}
			}
			return true
		},
		analysistest.CandleSliceGen(3, 80),
	))

	properties.Property("analysis is idempotent", prop.ForAll(
		func(series models.Series) bool {
			d := NewAnalyzer()
			return reflect.DeepEqual(d.Analyze(series), d.Analyze(series))
		},
		analysistest.CandleSliceGen(0, 150),
	))

	properties.TestingRun(t)
}

func TestFairValueGaps(t *testing.T) {
	a := NewAnalyzer()
	highs := []float64{10, 11, 15, 16, 9}
	lows := []float64{9, 10, 12, 14, 8}

	gaps := a.FairValueGaps(highs, lows)
	require.Len(t, gaps, 3)

	// i=2: low 12 > high[0] 10
	assert.Equal(t, analysis.FairValueGap{Index: 2, Direction: analysis.BiasBullish, Lower: 10, Upper: 12}, gaps[0])
	// i=3: low 14 > high[1] 11
	assert.Equal(t, analysis.FairValueGap{Index: 3, Direction: analysis.BiasBullish, Lower: 11, Upper: 14}, gaps[1])
	// i=4: high 9 < low[2] 12
	assert.Equal(t, analysis.FairValueGap{Index: 4, Direction: analysis.BiasBearish, Lower: 9, Upper: 12}, gaps[2])
}

func TestFairValueGapsKeepsMostRecent(t *testing.T) {
	// rising staircase: every bar from index 2 is a bullish gap
	r := NewAnalyzer().Analyze(analysistest.FromCloses([]float64{1, 2, 3, 4, 5, 6, 7}))
	require.Len(t, r.FairValueGaps, 3)
	assert.Equal(t, 4, r.FairValueGaps[0].Index)
	assert.Equal(t, 6, r.FairValueGaps[2].Index)
}

func TestOrderBlocks(t *testing.T) {
	a := NewAnalyzer()
	opens := []float64{10, 10, 12, 11, 11}
	closes := []float64{10, 12, 11, 11, 11}
	highs := []float64{10, 13, 12.5, 11, 11}
	lows := []float64{10, 9.5, 10.5, 11, 11}
	volumes := []float64{100, 400, 100, 100, 100}

	blocks := a.OrderBlocks(opens, highs, lows, closes, volumes)
	require.Len(t, blocks, 2)

	assert.Equal(t, analysis.OrderBlock{Index: 1, Direction: analysis.SideBuy, Price: 9.5, Strength: analysis.StrengthStrong}, blocks[0])
	assert.Equal(t, analysis.OrderBlock{Index: 2, Direction: analysis.SideSell, Price: 12.5, Strength: analysis.StrengthWeak}, blocks[1])
}

func TestOrderBlocksExcludeEndpoints(t *testing.T) {
	// both endpoints would qualify as buy blocks if scanned
	r := NewAnalyzer().Analyze(analysistest.Linear(3, 100, 102))
	require.Len(t, r.OrderBlocks, 1)
	assert.Equal(t, 1, r.OrderBlocks[0].Index)
}

func TestLiquidityPools(t *testing.T) {
	a := NewAnalyzer()
	assert.Nil(t, a.Analyze(analysistest.Linear(19, 100, 118)).Liquidity)

	// over the trailing 20 of 30 bars: closes 110..129
	r := a.Analyze(analysistest.Linear(30, 100, 129))
	require.Len(t, r.Liquidity, 2)
	assert.Equal(t, analysis.LevelLiquiditySellSide, r.Liquidity[0].Kind)
	assert.InDelta(t, 109.0, r.Liquidity[0].Price, 1e-9)
	assert.Equal(t, "buyers' stop cluster", r.Liquidity[0].Description)
	assert.Equal(t, analysis.LevelLiquidityBuySide, r.Liquidity[1].Kind)
	assert.InDelta(t, 130.0, r.Liquidity[1].Price, 1e-9)
	assert.Equal(t, "sellers' stop cluster", r.Liquidity[1].Description)
}

func TestMarketStructure(t *testing.T) {
	a := NewAnalyzer()
	assert.Equal(t, analysis.TrendUndefined, a.Analyze(analysistest.Linear(50, 100, 150)).MarketStructure)
	assert.Equal(t, analysis.TrendUp, a.Analyze(analysistest.Linear(51, 100, 150)).MarketStructure)
	assert.Equal(t, analysis.TrendDown, a.Analyze(analysistest.Linear(51, 150, 100)).MarketStructure)
	assert.Equal(t, analysis.TrendSideways, a.Analyze(analysistest.Flat(51, 100)).MarketStructure)
}

func TestUptrendScenario(t *testing.T) {
	r := NewAnalyzer().Analyze(analysistest.Linear(120, 100, 160))
	assert.Equal(t, analysis.TrendUp, r.MarketStructure)

	ob, ok := r.LatestOrderBlock()
	require.True(t, ok)
	assert.Equal(t, analysis.SideBuy, ob.Direction)
	assert.Equal(t, 118, ob.Index)
	assert.Equal(t, analysis.StrengthWeak, ob.Strength) // constant volume
	assert.Len(t, r.OrderBlocks, 5)
}

func TestShortSeries(t *testing.T) {
	r := NewAnalyzer().Analyze(analysistest.FromCloses([]float64{1, 2}))
	assert.Equal(t, analysis.StatusInsufficientData, r.Status)
	assert.Empty(t, r.FairValueGaps)
	assert.Empty(t, r.OrderBlocks)
	assert.Empty(t, r.Liquidity)
	assert.Equal(t, analysis.TrendUndefined, r.MarketStructure)
}
