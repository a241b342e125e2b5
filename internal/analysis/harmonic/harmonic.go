// Package harmonic matches X-A-B-C segment structures against named
// Fibonacci ratio templates.
package harmonic

import (
	"math"

	"stock-analyst/internal/analysis"
	"stock-analyst/internal/models"
)

// Band is an inclusive ratio range.
type Band struct {
	Min float64 `mapstructure:"min"`
	Max float64 `mapstructure:"max"`
}

// Contains reports whether v lies within the band.
func (b Band) Contains(v float64) bool {
	return v >= b.Min && v <= b.Max
}

// Template defines a named harmonic pattern by its leg ratio bands and the
// multiplier applied to C's range when projecting the target.
type Template struct {
	Name       analysis.HarmonicName `mapstructure:"name"`
	ABXA       Band                  `mapstructure:"ab_xa"`
	BCAB       Band                  `mapstructure:"bc_ab"`
	Multiplier float64               `mapstructure:"multiplier"`
}

// DefaultTemplates returns the five standard templates in match order.
func DefaultTemplates() []Template {
	return []Template{
		{Name: analysis.HarmonicButterfly, ABXA: Band{0.78, 0.79}, BCAB: Band{0.382, 0.886}, Multiplier: 1.27},
		{Name: analysis.HarmonicGartley, ABXA: Band{0.61, 0.625}, BCAB: Band{0.382, 0.886}, Multiplier: 0.786},
		{Name: analysis.HarmonicBat, ABXA: Band{0.382, 0.50}, BCAB: Band{0.382, 0.886}, Multiplier: 0.886},
		{Name: analysis.HarmonicCrab, ABXA: Band{0.382, 0.618}, BCAB: Band{0.382, 0.886}, Multiplier: 1.618},
		{Name: analysis.HarmonicShark, ABXA: Band{0.446, 0.618}, BCAB: Band{1.13, 1.618}, Multiplier: 0.886},
	}
}

// Config holds the calibration constants of the harmonic analyzer.
type Config struct {
	MinBars       int        `mapstructure:"min_bars"`       // series must be longer than this
	SegmentLength int        `mapstructure:"segment_length"` // bars per segment
	ActiveWindow  int        `mapstructure:"active_window"`  // recent bars counted as active
	Templates     []Template `mapstructure:"templates"`
}

// DefaultConfig returns the default harmonic configuration.
func DefaultConfig() Config {
	return Config{
		MinBars:       100,
		SegmentLength: 20,
		ActiveWindow:  20,
		Templates:     DefaultTemplates(),
	}
}

// Segment summarises one run of SegmentLength closes.
type Segment struct {
	Start int
	End   int
	High  float64
	Low   float64
	Up    bool
}

// Pivot is the extreme the segment moved toward.
func (s Segment) Pivot() float64 {
	if s.Up {
		return s.High
	}
	return s.Low
}

// Analyzer matches harmonic templates over fixed-length segments.
type Analyzer struct {
	cfg Config
}

// NewAnalyzer creates a harmonic analyzer with the default configuration.
func NewAnalyzer() *Analyzer {
	return &Analyzer{cfg: DefaultConfig()}
}

// NewAnalyzerWithConfig creates a harmonic analyzer with custom calibration.
func NewAnalyzerWithConfig(cfg Config) *Analyzer {
	return &Analyzer{cfg: cfg}
}

func (a *Analyzer) Name() string {
	return "harmonic"
}

// Analyze slides an X-A-B-C window over consecutive segments. Each window
// emits at most one pattern: the first template whose bands contain both
// ratios. Windows with a zero-length leg are skipped.
func (a *Analyzer) Analyze(series models.Series) analysis.HarmonicResult {
	n := series.Len()
	if n <= a.cfg.MinBars || a.cfg.SegmentLength <= 0 {
		return analysis.HarmonicResult{Status: analysis.StatusInsufficientData}
	}

	segs := a.Segments(series.Closes())
	result := analysis.HarmonicResult{Status: analysis.StatusOK}

	for i := 0; i+3 < len(segs); i++ {
		x, aa, b, c := segs[i], segs[i+1], segs[i+2], segs[i+3]

		xa := math.Abs(aa.Pivot() - x.Pivot())
		ab := math.Abs(b.Pivot() - aa.Pivot())
		bc := math.Abs(c.Pivot() - b.Pivot())
		if xa == 0 || ab == 0 || bc == 0 {
			continue
		}
		abxa, bcab := ab/xa, bc/ab

		tpl, ok := a.match(abxa, bcab)
		if !ok {
			continue
		}

		p := analysis.HarmonicPattern{
			Name:            tpl.Name,
			CompletionIndex: c.End,
			ABXA:            abxa,
			BCAB:            bcab,
		}
		span := c.High - c.Low
		if c.Up {
			p.Direction = analysis.SideSell
			p.Target = math.Max(0, c.High-span*tpl.Multiplier)
		} else {
			p.Direction = analysis.SideBuy
			p.Target = c.Low + span*tpl.Multiplier
		}

		result.Patterns = append(result.Patterns, p)
		if p.CompletionIndex >= n-a.cfg.ActiveWindow {
			result.Active = append(result.Active, p)
		}
	}

	return result
}

// Segments splits values into consecutive full segments from index 0. A
// trailing partial segment is dropped.
func (a *Analyzer) Segments(values []float64) []Segment {
	l := a.cfg.SegmentLength
	if l <= 0 {
		return nil
	}
	segs := make([]Segment, 0, len(values)/l)
	for start := 0; start+l <= len(values); start += l {
		part := values[start : start+l]
		segs = append(segs, Segment{
			Start: start,
			End:   start + l - 1,
			High:  analysis.Highest(part),
			Low:   analysis.Lowest(part),
			Up:    part[l-1] > part[0],
		})
	}
	return segs
}

func (a *Analyzer) match(abxa, bcab float64) (Template, bool) {
	for _, t := range a.cfg.Templates {
		if t.ABXA.Contains(abxa) && t.BCAB.Contains(bcab) {
			return t, true
		}
	}
	return Template{}, false
}
