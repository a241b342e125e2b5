// Package analysis defines the result types shared by the analysis schools
// (classical, Elliott wave, ICT, harmonic) and the score aggregator.
package analysis

import (
	"time"
)

// Status reports whether an analyzer had enough bars to run.
type Status string

const (
	StatusOK               Status = "ok"
	StatusInsufficientData Status = "insufficient_data"
)

// Trend is a directional label. TrendUndefined means the analyzer could not
// compute it and callers must treat it as neutral.
type Trend string

const (
	TrendUndefined Trend = ""
	TrendUp        Trend = "up"
	TrendDown      Trend = "down"
	TrendSideways  Trend = "sideways"
)

// Strength grades a price level or order block.
type Strength string

const (
	StrengthWeak       Strength = "weak"
	StrengthModerate   Strength = "moderate"
	StrengthStrong     Strength = "strong"
	StrengthHistorical Strength = "historical"
)

// LevelKind classifies a price level.
type LevelKind string

const (
	LevelResistance        LevelKind = "resistance"
	LevelSupport           LevelKind = "support"
	LevelLiquiditySellSide LevelKind = "liquidity_pool_sell_side"
	LevelLiquidityBuySide  LevelKind = "liquidity_pool_buy_side"
)

// Level represents a support, resistance or liquidity level.
type Level struct {
	Price       float64   `json:"price"`
	Strength    Strength  `json:"strength"`
	Kind        LevelKind `json:"kind"`
	Description string    `json:"description,omitempty"`
}

// Side is a trade direction.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Bias is a gap direction.
type Bias string

const (
	BiasBullish Bias = "bullish"
	BiasBearish Bias = "bearish"
)

// ChartPattern names a classical chart pattern flag.
type ChartPattern string

const (
	PatternHeadAndShoulders ChartPattern = "head_and_shoulders"
	PatternTriangle         ChartPattern = "triangle"
	PatternAscendingFlag    ChartPattern = "ascending_flag"
)

// ClassicalResult is the output of the classical pivot/pattern analyzer.
// When Status is StatusInsufficientData every other field is empty.
type ClassicalResult struct {
	Status     Status         `json:"status"`
	Pivot      float64        `json:"pivot,omitempty"`
	Resistance []Level        `json:"resistance,omitempty"`
	Support    []Level        `json:"support,omitempty"`
	Trend      Trend          `json:"trend,omitempty"`
	Patterns   []ChartPattern `json:"patterns,omitempty"`
}

// Insufficient reports whether the analyzer skipped the series.
func (r ClassicalResult) Insufficient() bool {
	return r.Status == StatusInsufficientData
}

// WaveType labels an Elliott wave.
type WaveType string

const (
	WavePush       WaveType = "push"
	WaveCorrection WaveType = "correction"
)

// WaveLabel is one labeled Elliott wave anchored on a close price.
type WaveLabel struct {
	Index   int      `json:"index"`
	Type    WaveType `json:"type"`
	Ordinal int      `json:"ordinal"`
	Price   float64  `json:"price"`
}

// WaveTarget is a projected price for a wave ordinal.
type WaveTarget struct {
	Wave  int     `json:"wave"`
	Price float64 `json:"price"`
}

// WavePattern summarises a wave count. WavePatternNone means no waves.
type WavePattern string

const (
	WavePatternNone       WavePattern = ""
	WavePatternPush       WavePattern = "push"
	WavePatternCorrection WavePattern = "correction"
)

// ElliottResult is the output of the Elliott wave analyzer.
type ElliottResult struct {
	Status  Status       `json:"status"`
	Waves   []WaveLabel  `json:"waves,omitempty"`
	Targets []WaveTarget `json:"targets,omitempty"`
	Pattern WavePattern  `json:"pattern,omitempty"`
}

// Target returns the projection for the given wave ordinal, if computed.
func (r ElliottResult) Target(wave int) (float64, bool) {
	for _, t := range r.Targets {
		if t.Wave == wave {
			return t.Price, true
		}
	}
	return 0, false
}

// FairValueGap is a three-bar price discontinuity. Index is the third bar.
type FairValueGap struct {
	Index     int     `json:"index"`
	Direction Bias    `json:"direction"`
	Lower     float64 `json:"lower"`
	Upper     float64 `json:"upper"`
}

// OrderBlock is a bar showing concentrated directional commitment.
type OrderBlock struct {
	Index     int      `json:"index"`
	Direction Side     `json:"direction"`
	Price     float64  `json:"price"`
	Strength  Strength `json:"strength"`
}

// ICTResult is the output of the ICT analyzer. Each part is populated only
// when its own minimum bar count is met.
type ICTResult struct {
	Status          Status         `json:"status"`
	FairValueGaps   []FairValueGap `json:"fair_value_gaps,omitempty"`
	OrderBlocks     []OrderBlock   `json:"order_blocks,omitempty"`
	Liquidity       []Level        `json:"liquidity,omitempty"`
	MarketStructure Trend          `json:"market_structure,omitempty"`
}

// LatestOrderBlock returns the most recent order block, if any.
func (r ICTResult) LatestOrderBlock() (OrderBlock, bool) {
	if len(r.OrderBlocks) == 0 {
		return OrderBlock{}, false
	}
	return r.OrderBlocks[len(r.OrderBlocks)-1], true
}

// HarmonicName names a harmonic template.
type HarmonicName string

const (
	HarmonicButterfly HarmonicName = "Butterfly"
	HarmonicGartley   HarmonicName = "Gartley"
	HarmonicBat       HarmonicName = "Bat"
	HarmonicCrab      HarmonicName = "Crab"
	HarmonicShark     HarmonicName = "Shark"
)

// HarmonicPattern is a matched X-A-B-C structure.
type HarmonicPattern struct {
	Name            HarmonicName `json:"name"`
	CompletionIndex int          `json:"completion_index"`
	Target          float64      `json:"target"`
	Direction       Side         `json:"direction"`
	ABXA            float64      `json:"ab_xa"`
	BCAB            float64      `json:"bc_ab"`
}

// HarmonicResult is the output of the harmonic analyzer. Active holds the
// patterns completed within the most recent window of bars.
type HarmonicResult struct {
	Status   Status            `json:"status"`
	Patterns []HarmonicPattern `json:"patterns,omitempty"`
	Active   []HarmonicPattern `json:"active,omitempty"`
}

// Recommendation is the trade recommendation band.
type Recommendation string

const (
	StrongBuy   Recommendation = "strong_buy"
	ModerateBuy Recommendation = "moderate_buy"
	Wait        Recommendation = "wait"
	AvoidSell   Recommendation = "avoid_sell"
)

// AnalysisResult aggregates all school outputs and the composite verdict.
// It is created fresh per request and never cached by the engine.
type AnalysisResult struct {
	Symbol    string    `json:"symbol"`
	Timeframe string    `json:"timeframe"`
	Bars      int       `json:"bars"`
	AsOf      time.Time `json:"as_of"`
	LastClose float64   `json:"last_close"`

	Classical ClassicalResult `json:"classical"`
	Elliott   ElliottResult   `json:"elliott"`
	ICT       ICTResult       `json:"ict"`
	Harmonic  HarmonicResult  `json:"harmonic"`

	Score             float64            `json:"score"`
	ConfidencePercent float64            `json:"confidence_percent"`
	Recommendation    Recommendation     `json:"recommendation"`
	Advice            string             `json:"advice"`
	Components        map[string]float64 `json:"components"`
}
