package classical

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

// Property: every series shorter than 20 bars reports insufficient data and
// carries no pivot or levels.
func TestProperty_ShortSeriesInsufficient(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)
	analyzer := NewAnalyzer()

	properties.Property("short series is insufficient", prop.ForAll(
		func(series models.Series) bool {
			r := analyzer.Analyze(series)
			return r.Insufficient() &&
				r.Pivot == 0 &&
				len(r.Resistance) == 0 &&
				len(r.Support) == 0 &&
				r.Trend == analysis.TrendUndefined &&
				len(r.Patterns) == 0
		},
		analysistest.CandleSliceGen(0, 19),
	))

	properties.TestingRun(t)
}

// Property: repeated analysis of the same series is identical.
func TestProperty_Idempotent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)
	analyzer := NewAnalyzer()

	properties.Property("analyze twice yields equal results", prop.ForAll(
		func(series models.Series) bool {
			return reflect.DeepEqual(analyzer.Analyze(series), analyzer.Analyze(series))
		},
		analysistest.CandleSliceGen(20, 150),
	))

	properties.TestingRun(t)
}

func TestPivotAndLevels(t *testing.T) {
	series := analysistest.Linear(30, 100, 129)
	r := NewAnalyzer().Analyze(series)
	require.Equal(t, analysis.StatusOK, r.Status)

	// last bar: close 129, high 130, low 128
	pivot := (130.0 + 128.0 + 129.0) / 3
	assert.InDelta(t, pivot, r.Pivot, 1e-9)

	require.Len(t, r.Resistance, 3)
	assert.InDelta(t, 2*pivot-128, r.Resistance[0].Price, 1e-9)
	assert.Equal(t, analysis.StrengthStrong, r.Resistance[0].Strength)
	assert.InDelta(t, pivot+2, r.Resistance[1].Price, 1e-9)
	assert.Equal(t, analysis.StrengthModerate, r.Resistance[1].Strength)
	assert.InDelta(t, 130.0, r.Resistance[2].Price, 1e-9)
	assert.Equal(t, analysis.StrengthHistorical, r.Resistance[2].Strength)

	require.Len(t, r.Support, 3)
	assert.InDelta(t, 2*pivot-130, r.Support[0].Price, 1e-9)
	assert.Equal(t, analysis.StrengthStrong, r.Support[0].Strength)
	assert.InDelta(t, pivot-2, r.Support[1].Price, 1e-9)
	assert.InDelta(t, 99.0, r.Support[2].Price, 1e-9)
	assert.Equal(t, analysis.StrengthHistorical, r.Support[2].Strength)

	for _, lvl := range r.Resistance {
		assert.Equal(t, analysis.LevelResistance, lvl.Kind)
	}
	for _, lvl := range r.Support {
		assert.Equal(t, analysis.LevelSupport, lvl.Kind)
	}
}

func TestTrend(t *testing.T) {
	a := NewAnalyzer()

	// exactly 20 bars: levels computed, trend undefined
	r := a.Analyze(analysistest.Linear(20, 100, 120))
	assert.Equal(t, analysis.StatusOK, r.Status)
	assert.Equal(t, analysis.TrendUndefined, r.Trend)

	assert.Equal(t, analysis.TrendUp, a.Analyze(analysistest.Linear(21, 100, 120)).Trend)
	assert.Equal(t, analysis.TrendDown, a.Analyze(analysistest.Linear(21, 120, 100)).Trend)
	assert.Equal(t, analysis.TrendDown, a.Analyze(analysistest.Flat(40, 50)).Trend)
}

func TestUptrendFlagsAscendingFlag(t *testing.T) {
	r := NewAnalyzer().Analyze(analysistest.Linear(120, 100, 160))

	assert.Equal(t, analysis.TrendUp, r.Trend)
	assert.Equal(t, []analysis.ChartPattern{analysis.PatternAscendingFlag}, r.Patterns)
}

func TestMinimumSeriesFlagsAscendingFlag(t *testing.T) {
	r := NewAnalyzer().Analyze(analysistest.Linear(20, 100, 140))

	assert.Equal(t, analysis.StatusOK, r.Status)
	assert.Equal(t, analysis.TrendUndefined, r.Trend, "trend needs one bar more than the lookback")
	assert.Equal(t, []analysis.ChartPattern{analysis.PatternAscendingFlag}, r.Patterns)

	falling := NewAnalyzer().Analyze(analysistest.Linear(20, 140, 100))
	assert.Empty(t, falling.Patterns)
}

func TestTriangleSuppressesFlag(t *testing.T) {
	// 40 bars drifting up by 1% overall: range / low well under 5%
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100 + float64(i)*0.025
	}
	r := NewAnalyzer().Analyze(analysistest.FromCloses(closes))

	assert.Equal(t, analysis.TrendUp, r.Trend)
	assert.Contains(t, r.Patterns, analysis.PatternTriangle)
	assert.NotContains(t, r.Patterns, analysis.PatternAscendingFlag)
}

func TestHeadAndShoulders(t *testing.T) {
	closes := analysistest.Segments(20,
		[2]float64{100, 110}, // left shoulder
		[2]float64{110, 100},
		[2]float64{100, 130}, // head
		[2]float64{130, 100},
		[2]float64{100, 110}, // right shoulder
	)
	r := NewAnalyzer().Analyze(analysistest.FromCloses(closes))
	assert.Contains(t, r.Patterns, analysis.PatternHeadAndShoulders)

	// fewer than 100 bars: the check is skipped
	r = NewAnalyzer().Analyze(analysistest.FromCloses(closes[1:]))
	assert.NotContains(t, r.Patterns, analysis.PatternHeadAndShoulders)
}

func TestCustomConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinBars = 5
	cfg.TrendLookback = 3
	r := NewAnalyzerWithConfig(cfg).Analyze(analysistest.Linear(5, 10, 14))

	assert.Equal(t, analysis.StatusOK, r.Status)
	assert.Equal(t, analysis.TrendUp, r.Trend)
}
