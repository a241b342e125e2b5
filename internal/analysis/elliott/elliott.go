// Package elliott provides a simplified Elliott wave labeler over close prices.
package elliott

import (
	"math"

	"stock-analyst/internal/analysis"
	"stock-analyst/internal/models"
)

// Config holds the calibration constants of the wave labeler.
type Config struct {
	MinBars        int     `mapstructure:"min_bars"`        // series must be longer than this
	Window         int     `mapstructure:"window"`          // ±N bars an extremum must dominate
	MaxWaves       int     `mapstructure:"max_waves"`       // labels stop at this ordinal
	Wave3Extension float64 `mapstructure:"wave3_extension"` // multiple of wave 1 length
	Wave5Extension float64 `mapstructure:"wave5_extension"` // multiple of wave 1 -> 3 distance
}

// DefaultConfig returns the default wave labeler configuration.
func DefaultConfig() Config {
	return Config{
		MinBars:        20,
		Window:         5,
		MaxWaves:       5,
		Wave3Extension: 1.618,
		Wave5Extension: 0.618,
	}
}

// Analyzer labels alternating push/correction waves on local extrema.
type Analyzer struct {
	cfg Config
}

// NewAnalyzer creates a wave analyzer with the default configuration.
func NewAnalyzer() *Analyzer {
	return &Analyzer{cfg: DefaultConfig()}
}

// NewAnalyzerWithConfig creates a wave analyzer with custom calibration.
func NewAnalyzerWithConfig(cfg Config) *Analyzer {
	return &Analyzer{cfg: cfg}
}

func (a *Analyzer) Name() string {
	return "elliott"
}

// Analyze labels up to MaxWaves waves. Odd ordinals are taken from local
// maxima and even ordinals from local minima, each in index order; labeling
// stops when the next list runs out. Series of MinBars bars or fewer yield an
// insufficient-data result with no waves.
func (a *Analyzer) Analyze(series models.Series) analysis.ElliottResult {
	if series.Len() <= a.cfg.MinBars || series.Len() == 0 {
		return analysis.ElliottResult{Status: analysis.StatusInsufficientData}
	}

	closes := series.Closes()
	maxima, minima := a.extrema(closes)

	result := analysis.ElliottResult{Status: analysis.StatusOK}
	for ordinal := 1; ordinal <= a.cfg.MaxWaves; ordinal++ {
		var idx int
		var wt analysis.WaveType
		if ordinal%2 == 1 {
			k := (ordinal - 1) / 2
			if k >= len(maxima) {
				break
			}
			idx, wt = maxima[k], analysis.WavePush
		} else {
			k := ordinal/2 - 1
			if k >= len(minima) {
				break
			}
			idx, wt = minima[k], analysis.WaveCorrection
		}
		result.Waves = append(result.Waves, analysis.WaveLabel{
			Index:   idx,
			Type:    wt,
			Ordinal: ordinal,
			Price:   closes[idx],
		})
	}

	waves := result.Waves
	if len(waves) >= 1 {
		w1 := waves[0].Price
		result.Targets = append(result.Targets, analysis.WaveTarget{
			Wave:  3,
			Price: w1 + a.cfg.Wave3Extension*math.Abs(w1-closes[0]),
		})
	}
	if len(waves) >= 3 {
		w1, w3 := waves[0].Price, waves[2].Price
		result.Targets = append(result.Targets, analysis.WaveTarget{
			Wave:  5,
			Price: w3 + a.cfg.Wave5Extension*math.Abs(w3-w1),
		})
	}

	switch {
	case len(waves) == 0:
		result.Pattern = analysis.WavePatternNone
	case len(waves)%2 == 1:
		result.Pattern = analysis.WavePatternPush
	default:
		result.Pattern = analysis.WavePatternCorrection
	}

	return result
}

// extrema returns the indices of strict local maxima and minima. An index
// qualifies only when a full ±Window neighbourhood exists on both sides.
func (a *Analyzer) extrema(values []float64) (maxima, minima []int) {
	w := a.cfg.Window
	if w <= 0 {
		return nil, nil
	}
	for i := w; i < len(values)-w; i++ {
		isMax, isMin := true, true
		for j := i - w; j <= i+w; j++ {
			if j == i {
				continue
			}
			if values[i] <= values[j] {
				isMax = false
			}
			if values[i] >= values[j] {
				isMin = false
			}
			if !isMax && !isMin {
				break
			}
		}
		if isMax {
			maxima = append(maxima, i)
		}
		if isMin {
			minima = append(minima, i)
		}
	}
	return maxima, minima
}
