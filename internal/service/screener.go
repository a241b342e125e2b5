package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"stock-analyst/internal/analysis"
	apperrors "stock-analyst/internal/errors"
)

// SymbolAnalyzer serves one analysis request.
type SymbolAnalyzer interface {
	Analyze(ctx context.Context, req Request) (*analysis.AnalysisResult, error)
}

// FilterType represents the type of screener filter.
type FilterType string

const (
	FilterScore            FilterType = "score"
	FilterConfidence       FilterType = "confidence"
	FilterHarmonicActive   FilterType = "harmonic_active"
	FilterBuyOrderBlocks   FilterType = "buy_order_blocks"
	FilterBullishGaps      FilterType = "bullish_gaps"
	FilterStructureUptrend FilterType = "structure_up"
)

// FilterOperator represents the comparison operator for a filter.
type FilterOperator string

const (
	OpGreaterThan      FilterOperator = ">"
	OpLessThan         FilterOperator = "<"
	OpGreaterThanEqual FilterOperator = ">="
	OpLessThanEqual    FilterOperator = "<="
	OpEqual            FilterOperator = "="
	OpNotEqual         FilterOperator = "!="
)

// Filter represents a single screener filter condition.
type Filter struct {
	Type     FilterType
	Operator FilterOperator
	Value    float64
}

func (f Filter) String() string {
	return fmt.Sprintf("%s %s %g", f.Type, f.Operator, f.Value)
}

// ScanResult is the outcome of screening one symbol.
type ScanResult struct {
	Symbol string                   `json:"symbol"`
	Result *analysis.AnalysisResult `json:"result,omitempty"`
	Values map[FilterType]float64   `json:"values,omitempty"`
	Passed bool                     `json:"passed"`
	Err    error                    `json:"-"`
	Error  string                   `json:"error,omitempty"`
}

// Screener analyzes many symbols concurrently and ranks them by score.
type Screener struct {
	analyzer    SymbolAnalyzer
	concurrency int
}

// NewScreener creates a screener running at most concurrency analyses at once.
func NewScreener(analyzer SymbolAnalyzer, concurrency int) *Screener {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Screener{
		analyzer:    analyzer,
		concurrency: concurrency,
	}
}

// Scan analyzes every symbol on timeframe and applies all filters with AND
// logic. Results are ordered: passed by descending score, then filtered out,
// then failed. Symbols never started because ctx ended fail with ctx.Err().
func (s *Screener) Scan(ctx context.Context, symbols []string, timeframe string, filters []Filter) []ScanResult {
	results := make([]ScanResult, len(symbols))
	work := make(chan int)

	var wg sync.WaitGroup
	for i := 0; i < min(s.concurrency, len(symbols)); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range work {
				results[idx] = s.scanSymbol(ctx, symbols[idx], timeframe, filters)
			}
		}()
	}

	next := 0
send:
	for ; next < len(symbols); next++ {
		select {
		case <-ctx.Done():
			break send
		case work <- next:
		}
	}
	close(work)
	wg.Wait()

	for i := next; i < len(symbols); i++ {
		results[i] = failedScan(NewRequest(symbols[i], timeframe, SourceCLI).Symbol, ctx.Err())
	}

	sortScanResults(results)
	return results
}

func (s *Screener) scanSymbol(ctx context.Context, symbol, timeframe string, filters []Filter) ScanResult {
	req := NewRequest(symbol, timeframe, SourceCLI)
	result, err := s.analyzer.Analyze(ctx, req)
	if err != nil {
		return failedScan(req.Symbol, err)
	}

	scan := ScanResult{
		Symbol: req.Symbol,
		Result: result,
		Values: make(map[FilterType]float64, len(filters)),
		Passed: true,
	}
	for _, f := range filters {
		value, err := filterValue(result, f.Type)
		if err != nil {
			return failedScan(req.Symbol, err)
		}
		scan.Values[f.Type] = value
		if !compareValues(value, f.Operator, f.Value) {
			scan.Passed = false
		}
	}
	return scan
}

func failedScan(symbol string, err error) ScanResult {
	return ScanResult{Symbol: symbol, Err: err, Error: err.Error()}
}

func filterValue(r *analysis.AnalysisResult, t FilterType) (float64, error) {
	switch t {
	case FilterScore:
		return r.Score, nil
	case FilterConfidence:
		return r.ConfidencePercent, nil
	case FilterHarmonicActive:
		return float64(len(r.Harmonic.Active)), nil
	case FilterBuyOrderBlocks:
		n := 0
		for _, ob := range r.ICT.OrderBlocks {
			if ob.Direction == analysis.SideBuy {
				n++
			}
		}
		return float64(n), nil
	case FilterBullishGaps:
		n := 0
		for _, g := range r.ICT.FairValueGaps {
			if g.Direction == analysis.BiasBullish {
				n++
			}
		}
		return float64(n), nil
	case FilterStructureUptrend:
		if r.ICT.MarketStructure == analysis.TrendUp {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, apperrors.NewValidationError("filter", string(t), "unknown filter type")
	}
}

// compareValues compares two values using the given operator.
func compareValues(actual float64, op FilterOperator, expected float64) bool {
	switch op {
	case OpGreaterThan:
		return actual > expected
	case OpLessThan:
		return actual < expected
	case OpGreaterThanEqual:
		return actual >= expected
	case OpLessThanEqual:
		return actual <= expected
	case OpEqual:
		return actual == expected
	case OpNotEqual:
		return actual != expected
	default:
		return false
	}
}

func scanRank(r ScanResult) int {
	switch {
	case r.Err != nil:
		return 2
	case !r.Passed:
		return 1
	}
	return 0
}

func sortScanResults(results []ScanResult) {
	sort.SliceStable(results, func(i, j int) bool {
		ri, rj := scanRank(results[i]), scanRank(results[j])
		if ri != rj {
			return ri < rj
		}
		if ri < 2 && results[i].Result.Score != results[j].Result.Score {
			return results[i].Result.Score > results[j].Result.Score
		}
		return results[i].Symbol < results[j].Symbol
	})
}

// PresetScreener represents a pre-built screener configuration.
type PresetScreener struct {
	Name        string
	Description string
	Filters     []Filter
}

// GetPresetScreeners returns all available pre-built screeners.
func GetPresetScreeners() []PresetScreener {
	return []PresetScreener{
		{
			Name:        "all",
			Description: "Every symbol, ranked by score",
		},
		{
			Name:        "bullish",
			Description: "Moderate or strong buy confidence",
			Filters: []Filter{
				{Type: FilterConfidence, Operator: OpGreaterThanEqual, Value: 50},
			},
		},
		{
			Name:        "strong",
			Description: "Strong buy confidence with upward ICT structure",
			Filters: []Filter{
				{Type: FilterConfidence, Operator: OpGreaterThanEqual, Value: 70},
				{Type: FilterStructureUptrend, Operator: OpEqual, Value: 1},
			},
		},
		{
			Name:        "harmonic",
			Description: "At least one recently completed harmonic pattern",
			Filters: []Filter{
				{Type: FilterHarmonicActive, Operator: OpGreaterThanEqual, Value: 1},
			},
		},
		{
			Name:        "demand",
			Description: "Buy order blocks and bullish fair value gaps",
			Filters: []Filter{
				{Type: FilterBuyOrderBlocks, Operator: OpGreaterThanEqual, Value: 1},
				{Type: FilterBullishGaps, Operator: OpGreaterThanEqual, Value: 1},
			},
		},
		{
			Name:        "weak",
			Description: "Avoid or sell territory",
			Filters: []Filter{
				{Type: FilterConfidence, Operator: OpLessThan, Value: 30},
			},
		},
	}
}

// PresetByName returns the named preset.
func PresetByName(name string) (PresetScreener, error) {
	for _, p := range GetPresetScreeners() {
		if p.Name == name {
			return p, nil
		}
	}
	return PresetScreener{}, apperrors.NewValidationError("preset", name, "unknown screener preset")
}
