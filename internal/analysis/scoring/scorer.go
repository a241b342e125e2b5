// Package scoring combines the outputs of the analysis schools into a
// composite score and recommendation.
//
// The scoring is an additive heuristic with hand-picked weights. It is not a
// statistically fitted model.
package scoring

import (
	"stock-analyst/internal/analysis"
)

// Component names used as keys of AnalysisResult.Components.
const (
	ComponentElliott   = "elliott"
	ComponentClassical = "classical"
	ComponentICT       = "ict"
	ComponentHarmonic  = "harmonic"
)

// Weights defines the points awarded per sub-signal.
type Weights struct {
	ElliottPush       float64 `mapstructure:"elliott_push"`
	ElliottCorrection float64 `mapstructure:"elliott_correction"`
	ClassicalUp       float64 `mapstructure:"classical_up"`
	ClassicalDown     float64 `mapstructure:"classical_down"`
	ICTStructureUp    float64 `mapstructure:"ict_structure_up"`
	ICTBuyOrderBlock  float64 `mapstructure:"ict_buy_order_block"`
	HarmonicBuy       float64 `mapstructure:"harmonic_buy"`
	MaxScore          float64 `mapstructure:"max_score"`
}

// DefaultWeights returns the default point weights. MaxScore is the
// normalisation base for the confidence percentage.
func DefaultWeights() Weights {
	return Weights{
		ElliottPush:       2,
		ElliottCorrection: 1,
		ClassicalUp:       2,
		ClassicalDown:     1,
		ICTStructureUp:    1,
		ICTBuyOrderBlock:  1,
		HarmonicBuy:       1,
		MaxScore:          10,
	}
}

// Thresholds are the inclusive lower bounds (in percent) of the
// recommendation bands, evaluated top-down.
type Thresholds struct {
	StrongBuy   float64 `mapstructure:"strong_buy"`
	ModerateBuy float64 `mapstructure:"moderate_buy"`
	Wait        float64 `mapstructure:"wait"`
}

// DefaultThresholds returns the default recommendation bands.
func DefaultThresholds() Thresholds {
	return Thresholds{
		StrongBuy:   70,
		ModerateBuy: 50,
		Wait:        30,
	}
}

var advice = map[analysis.Recommendation]string{
	analysis.StrongBuy:   "enter at support, stop below strong support",
	analysis.ModerateBuy: "scale in with tight risk control",
	analysis.Wait:        "await confirmation or breakout",
	analysis.AvoidSell:   "exit or look for short setups",
}

// Advice returns the action text attached to a recommendation band.
func Advice(r analysis.Recommendation) string {
	return advice[r]
}

// Aggregator turns analyzer outputs into a scored AnalysisResult.
type Aggregator struct {
	weights    Weights
	thresholds Thresholds
}

// NewAggregator creates an aggregator with the default weights and bands.
func NewAggregator() *Aggregator {
	return &Aggregator{
		weights:    DefaultWeights(),
		thresholds: DefaultThresholds(),
	}
}

// NewAggregatorWithConfig creates an aggregator with custom weights and bands.
func NewAggregatorWithConfig(weights Weights, thresholds Thresholds) *Aggregator {
	return &Aggregator{
		weights:    weights,
		thresholds: thresholds,
	}
}

// Aggregate scores the four school outputs. The returned result carries the
// school outputs, score, confidence, recommendation and per-school points;
// series metadata is left for the caller to fill in.
func (a *Aggregator) Aggregate(
	classical analysis.ClassicalResult,
	elliott analysis.ElliottResult,
	ict analysis.ICTResult,
	harmonic analysis.HarmonicResult,
) *analysis.AnalysisResult {
	e := a.elliottPoints(elliott)
	c := a.classicalPoints(classical)
	i := a.ictPoints(ict)
	h := a.harmonicPoints(harmonic)
	score := e + c + i + h
	components := map[string]float64{
		ComponentElliott:   e,
		ComponentClassical: c,
		ComponentICT:       i,
		ComponentHarmonic:  h,
	}

	confidence := a.Confidence(score)
	rec := a.Recommend(confidence)

	return &analysis.AnalysisResult{
		Classical:         classical,
		Elliott:           elliott,
		ICT:               ict,
		Harmonic:          harmonic,
		Score:             score,
		ConfidencePercent: confidence,
		Recommendation:    rec,
		Advice:            Advice(rec),
		Components:        components,
	}
}

// Confidence converts a score to a percentage of MaxScore, clamped to [0, 100].
func (a *Aggregator) Confidence(score float64) float64 {
	if a.weights.MaxScore <= 0 {
		return 0
	}
	return clamp(score*100/a.weights.MaxScore, 0, 100)
}

// Recommend maps a confidence percentage to its band.
func (a *Aggregator) Recommend(confidence float64) analysis.Recommendation {
	switch {
	case confidence >= a.thresholds.StrongBuy:
		return analysis.StrongBuy
	case confidence >= a.thresholds.ModerateBuy:
		return analysis.ModerateBuy
	case confidence >= a.thresholds.Wait:
		return analysis.Wait
	default:
		return analysis.AvoidSell
	}
}

func (a *Aggregator) elliottPoints(r analysis.ElliottResult) float64 {
	if len(r.Waves) == 0 {
		return 0
	}
	switch r.Pattern {
	case analysis.WavePatternPush:
		return a.weights.ElliottPush
	case analysis.WavePatternCorrection:
		return a.weights.ElliottCorrection
	}
	return 0
}

func (a *Aggregator) classicalPoints(r analysis.ClassicalResult) float64 {
	switch r.Trend {
	case analysis.TrendUp:
		return a.weights.ClassicalUp
	case analysis.TrendDown:
		return a.weights.ClassicalDown
	}
	return 0
}

func (a *Aggregator) ictPoints(r analysis.ICTResult) float64 {
	var pts float64
	if r.MarketStructure == analysis.TrendUp {
		pts += a.weights.ICTStructureUp
	}
	if ob, ok := r.LatestOrderBlock(); ok && ob.Direction == analysis.SideBuy {
		pts += a.weights.ICTBuyOrderBlock
	}
	return pts
}

func (a *Aggregator) harmonicPoints(r analysis.HarmonicResult) float64 {
	for _, p := range r.Active {
		if p.Direction == analysis.SideBuy {
			return a.weights.HarmonicBuy
		}
	}
	return 0
}

func clamp(value, minVal, maxVal float64) float64 {
	if value < minVal {
		return minVal
	}
	if value > maxVal {
		return maxVal
	}
	return value
}
