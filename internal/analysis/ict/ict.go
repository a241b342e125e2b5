// Package ict detects ICT-style market features: fair value gaps, order
// blocks, liquidity pools and market structure.
package ict

import (
	"stock-analyst/internal/analysis"
	"stock-analyst/internal/models"
)

// Config holds the calibration constants of the ICT analyzer.
type Config struct {
	MinGapBars             int `mapstructure:"min_gap_bars"`              // bars needed for gap detection
	MaxGaps                int `mapstructure:"max_gaps"`                  // most recent gaps kept
	MaxOrderBlocks         int `mapstructure:"max_order_blocks"`          // most recent order blocks kept
	LiquidityWindow        int `mapstructure:"liquidity_window"`          // trailing bars for pools
	StructureLookback      int `mapstructure:"structure_lookback"`        // close[-1] vs close[-N]
	OrderBlockVolumeWindow int `mapstructure:"order_block_volume_window"` // centered volume window
}

// DefaultConfig returns the default ICT configuration.
func DefaultConfig() Config {
	return Config{
		MinGapBars:             3,
		MaxGaps:                3,
		MaxOrderBlocks:         5,
		LiquidityWindow:        20,
		StructureLookback:      50,
		OrderBlockVolumeWindow: 3,
	}
}

// Analyzer runs the ICT detectors. Each detector gates on its own minimum
// bar count so short series still yield the parts that can be computed.
type Analyzer struct {
	cfg Config
}

// NewAnalyzer creates an ICT analyzer with the default configuration.
func NewAnalyzer() *Analyzer {
	return &Analyzer{cfg: DefaultConfig()}
}

// NewAnalyzerWithConfig creates an ICT analyzer with custom calibration.
func NewAnalyzerWithConfig(cfg Config) *Analyzer {
	return &Analyzer{cfg: cfg}
}

func (a *Analyzer) Name() string {
	return "ict"
}

// Analyze runs gap, order block, liquidity and structure detection.
func (a *Analyzer) Analyze(series models.Series) analysis.ICTResult {
	n := series.Len()
	if n < a.cfg.MinGapBars || n < 3 {
		return analysis.ICTResult{Status: analysis.StatusInsufficientData}
	}

	opens := series.Opens()
	highs := series.Highs()
	lows := series.Lows()
	closes := series.Closes()
	volumes := series.Volumes()

	return analysis.ICTResult{
		Status:          analysis.StatusOK,
		FairValueGaps:   a.FairValueGaps(highs, lows),
		OrderBlocks:     a.OrderBlocks(opens, highs, lows, closes, volumes),
		Liquidity:       a.LiquidityPools(highs, lows),
		MarketStructure: a.MarketStructure(closes),
	}
}

// FairValueGaps scans every three-bar window and keeps the most recent
// MaxGaps gaps. A bullish gap leaves [high[i-2], low[i]] untraded; a bearish
// gap leaves [high[i], low[i-2]].
func (a *Analyzer) FairValueGaps(highs, lows []float64) []analysis.FairValueGap {
	var gaps []analysis.FairValueGap
	for i := 2; i < len(highs) && i < len(lows); i++ {
		switch {
		case lows[i] > highs[i-2]:
			gaps = append(gaps, analysis.FairValueGap{
				Index:     i,
				Direction: analysis.BiasBullish,
				Lower:     highs[i-2],
				Upper:     lows[i],
			})
		case highs[i] < lows[i-2]:
			gaps = append(gaps, analysis.FairValueGap{
				Index:     i,
				Direction: analysis.BiasBearish,
				Lower:     highs[i],
				Upper:     lows[i-2],
			})
		}
	}
	return keepLast(gaps, a.cfg.MaxGaps)
}

// OrderBlocks flags bars that close beyond both their open and the previous
// close. Buy blocks are priced at the bar's low and sell blocks at its high.
// The first and last bars are never candidates because the volume window is
// centered on the bar.
func (a *Analyzer) OrderBlocks(opens, highs, lows, closes, volumes []float64) []analysis.OrderBlock {
	n := len(closes)
	half := a.cfg.OrderBlockVolumeWindow / 2
	if half < 1 {
		half = 1
	}

	var blocks []analysis.OrderBlock
	for i := 1; i < n-1; i++ {
		var side analysis.Side
		var price float64
		switch {
		case closes[i] > closes[i-1] && closes[i] > opens[i]:
			side, price = analysis.SideBuy, lows[i]
		case closes[i] < closes[i-1] && closes[i] < opens[i]:
			side, price = analysis.SideSell, highs[i]
		default:
			continue
		}

		lo, hi := i-half, i+half
		if lo < 0 {
			lo = 0
		}
		if hi > n-1 {
			hi = n - 1
		}
		strength := analysis.StrengthWeak
		if volumes[i] > analysis.Mean(volumes[lo:hi+1]) {
			strength = analysis.StrengthStrong
		}

		blocks = append(blocks, analysis.OrderBlock{
			Index:     i,
			Direction: side,
			Price:     price,
			Strength:  strength,
		})
	}
	return keepLast(blocks, a.cfg.MaxOrderBlocks)
}

// LiquidityPools reports the trailing-window extremes where resting stops
// are presumed to cluster. Nil below LiquidityWindow bars.
func (a *Analyzer) LiquidityPools(highs, lows []float64) []analysis.Level {
	w := a.cfg.LiquidityWindow
	if w <= 0 || len(lows) < w || len(highs) < w {
		return nil
	}
	return []analysis.Level{
		{
			Price:       analysis.Lowest(analysis.Tail(lows, w)),
			Strength:    analysis.StrengthStrong,
			Kind:        analysis.LevelLiquiditySellSide,
			Description: "buyers' stop cluster",
		},
		{
			Price:       analysis.Highest(analysis.Tail(highs, w)),
			Strength:    analysis.StrengthStrong,
			Kind:        analysis.LevelLiquidityBuySide,
			Description: "sellers' stop cluster",
		},
	}
}

// MarketStructure compares the last close with the close StructureLookback
// bars back. Undefined with StructureLookback bars or fewer.
func (a *Analyzer) MarketStructure(closes []float64) analysis.Trend {
	n, lb := len(closes), a.cfg.StructureLookback
	if lb <= 0 || n < lb+1 {
		return analysis.TrendUndefined
	}
	last, ref := closes[n-1], closes[n-lb]
	switch {
	case last > ref:
		return analysis.TrendUp
	case last < ref:
		return analysis.TrendDown
	default:
		return analysis.TrendSideways
	}
}

func keepLast[T any](items []T, n int) []T {
	if n <= 0 {
		return nil
	}
	if len(items) > n {
		return items[len(items)-n:]
	}
	return items
}
