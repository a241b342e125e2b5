// Package classical provides pivot point, support/resistance and coarse chart
// pattern analysis.
package classical

import (
	"stock-analyst/internal/analysis"
	"stock-analyst/internal/models"
)

// Config holds the calibration constants of the classical analyzer.
type Config struct {
	MinBars            int     `mapstructure:"min_bars"`             // bars required to run at all
	TrendLookback      int     `mapstructure:"trend_lookback"`       // close[-1] vs close[-N]
	PatternLookback    int     `mapstructure:"pattern_lookback"`     // head-and-shoulders span
	ShoulderWindow     int     `mapstructure:"shoulder_window"`      // width of each shoulder/head window
	TriangleWindow     int     `mapstructure:"triangle_window"`      // range window for triangle/flag
	TriangleRangeRatio float64 `mapstructure:"triangle_range_ratio"` // (high-low)/low threshold
}

// DefaultConfig returns the default classical analyzer configuration.
func DefaultConfig() Config {
	return Config{
		MinBars:            20,
		TrendLookback:      20,
		PatternLookback:    100,
		ShoulderWindow:     20,
		TriangleWindow:     20,
		TriangleRangeRatio: 0.05,
	}
}

// Analyzer computes pivots, levels, trend and pattern flags.
type Analyzer struct {
	cfg Config
}

// NewAnalyzer creates a classical analyzer with the default configuration.
func NewAnalyzer() *Analyzer {
	return &Analyzer{cfg: DefaultConfig()}
}

// NewAnalyzerWithConfig creates a classical analyzer with custom calibration.
func NewAnalyzerWithConfig(cfg Config) *Analyzer {
	return &Analyzer{cfg: cfg}
}

func (a *Analyzer) Name() string {
	return "classical"
}

// Analyze runs the classical school over the series. Series shorter than
// MinBars yield an insufficient-data result with no pivot or levels.
func (a *Analyzer) Analyze(series models.Series) analysis.ClassicalResult {
	n := series.Len()
	if n < a.cfg.MinBars || n == 0 {
		return analysis.ClassicalResult{Status: analysis.StatusInsufficientData}
	}

	highs := series.Highs()
	lows := series.Lows()
	closes := series.Closes()

	lastHigh := highs[n-1]
	lastLow := lows[n-1]
	lastClose := closes[n-1]
	span := lastHigh - lastLow

	pivot := (lastHigh + lastLow + lastClose) / 3

	result := analysis.ClassicalResult{
		Status: analysis.StatusOK,
		Pivot:  pivot,
		Resistance: []analysis.Level{
			{Price: 2*pivot - lastLow, Strength: analysis.StrengthStrong, Kind: analysis.LevelResistance},
			{Price: pivot + span, Strength: analysis.StrengthModerate, Kind: analysis.LevelResistance},
			{Price: analysis.Highest(highs), Strength: analysis.StrengthHistorical, Kind: analysis.LevelResistance},
		},
		Support: []analysis.Level{
			{Price: 2*pivot - lastHigh, Strength: analysis.StrengthStrong, Kind: analysis.LevelSupport},
			{Price: pivot - span, Strength: analysis.StrengthModerate, Kind: analysis.LevelSupport},
			{Price: analysis.Lowest(lows), Strength: analysis.StrengthHistorical, Kind: analysis.LevelSupport},
		},
		Trend: a.trend(closes),
	}

	if a.headAndShoulders(highs) {
		result.Patterns = append(result.Patterns, analysis.PatternHeadAndShoulders)
	}
	triangle := a.triangle(highs, lows)
	if triangle {
		result.Patterns = append(result.Patterns, analysis.PatternTriangle)
	}
	if !triangle && a.risingOverLookback(closes) {
		result.Patterns = append(result.Patterns, analysis.PatternAscendingFlag)
	}

	return result
}

// risingOverLookback reports close[-1] > close[-N], defined from N bars on.
func (a *Analyzer) risingOverLookback(closes []float64) bool {
	n := len(closes)
	if a.cfg.TrendLookback <= 0 || n < a.cfg.TrendLookback {
		return false
	}
	return closes[n-1] > closes[n-a.cfg.TrendLookback]
}

// trend compares the last close with the close TrendLookback bars back. It
// needs one bar more than the lookback and is undefined below that.
func (a *Analyzer) trend(closes []float64) analysis.Trend {
	n := len(closes)
	if a.cfg.TrendLookback <= 0 || n < a.cfg.TrendLookback+1 {
		return analysis.TrendUndefined
	}
	if closes[n-1] > closes[n-a.cfg.TrendLookback] {
		return analysis.TrendUp
	}
	return analysis.TrendDown
}

// headAndShoulders splits the trailing PatternLookback highs into a left
// shoulder (first window), head (middle window) and right shoulder (last
// window) and flags the pattern when the head's max exceeds both shoulders.
func (a *Analyzer) headAndShoulders(highs []float64) bool {
	span, w := a.cfg.PatternLookback, a.cfg.ShoulderWindow
	if w <= 0 || span < 3*w || len(highs) < span {
		return false
	}
	recent := highs[len(highs)-span:]
	mid := (span - w) / 2

	left := analysis.Highest(recent[:w])
	head := analysis.Highest(recent[mid : mid+w])
	right := analysis.Highest(recent[span-w:])

	return head > left && head > right
}

// triangle flags a compressed range: (max high - min low) / min low over the
// trailing TriangleWindow bars below TriangleRangeRatio.
func (a *Analyzer) triangle(highs, lows []float64) bool {
	w := a.cfg.TriangleWindow
	if w <= 0 || len(highs) < w {
		return false
	}
	low := analysis.Lowest(analysis.Tail(lows, w))
	if low <= 0 {
		return false
	}
	high := analysis.Highest(analysis.Tail(highs, w))
	return (high-low)/low < a.cfg.TriangleRangeRatio
}
