// Package models provides domain models for the analysis application.
package models

import (
	"math"
	"time"

	apperrors "stock-analyst/internal/errors"
)

// Candle represents OHLCV data for a time period.
type Candle struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// Series is an ordered sequence of candles for one symbol and one timeframe.
// Analyzers treat it as immutable and only read derived views.
type Series struct {
	Symbol    string    `json:"symbol"`
	Timeframe Timeframe `json:"timeframe"`
	Candles   []Candle  `json:"candles"`
}

// NewSeries creates a series for the given symbol and timeframe.
func NewSeries(symbol string, timeframe Timeframe, candles []Candle) Series {
	return Series{Symbol: symbol, Timeframe: timeframe, Candles: candles}
}

// Len returns the number of bars in the series.
func (s Series) Len() int {
	return len(s.Candles)
}

// Last returns the most recent candle. Callers must check Len first.
func (s Series) Last() Candle {
	return s.Candles[len(s.Candles)-1]
}

// Opens returns a copy of the open prices.
func (s Series) Opens() []float64 {
	out := make([]float64, len(s.Candles))
	for i, c := range s.Candles {
		out[i] = c.Open
	}
	return out
}

// Closes returns a copy of the close prices.
func (s Series) Closes() []float64 {
	out := make([]float64, len(s.Candles))
	for i, c := range s.Candles {
		out[i] = c.Close
	}
	return out
}

// Highs returns a copy of the high prices.
func (s Series) Highs() []float64 {
	out := make([]float64, len(s.Candles))
	for i, c := range s.Candles {
		out[i] = c.High
	}
	return out
}

// Lows returns a copy of the low prices.
func (s Series) Lows() []float64 {
	out := make([]float64, len(s.Candles))
	for i, c := range s.Candles {
		out[i] = c.Low
	}
	return out
}

// Volumes returns a copy of the volumes.
func (s Series) Volumes() []float64 {
	out := make([]float64, len(s.Candles))
	for i, c := range s.Candles {
		out[i] = c.Volume
	}
	return out
}

// Validate checks every bar for non-negative values, the ordering
// high >= max(open, close) >= min(open, close) >= low, and strictly
// increasing timestamps. The first violation is returned as a SeriesError.
func (s Series) Validate() error {
	for i, c := range s.Candles {
		if !finite(c.Open, c.High, c.Low, c.Close, c.Volume) {
			return apperrors.NewSeriesError(i, "value", "non-finite price or volume")
		}
		if c.Open < 0 || c.High < 0 || c.Low < 0 || c.Close < 0 || c.Volume < 0 {
			return apperrors.NewSeriesError(i, "value", "negative price or volume")
		}
		if c.High < c.Open || c.High < c.Close {
			return apperrors.NewSeriesError(i, "high", "high below open or close")
		}
		if c.Low > c.Open || c.Low > c.Close {
			return apperrors.NewSeriesError(i, "low", "low above open or close")
		}
		if i > 0 && !c.Timestamp.After(s.Candles[i-1].Timestamp) {
			return apperrors.NewSeriesError(i, "timestamp", "timestamp not increasing")
		}
	}
	return nil
}

func finite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
