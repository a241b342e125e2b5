// Package analysistest builds synthetic price series for analyzer tests.
package analysistest

import (
	"math"
	"reflect"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"

	"stock-analyst/internal/models"
)

// Start is the timestamp of the first synthetic bar.
var Start = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

// FromCloses builds a daily series where every bar has open = high = low =
// close, which satisfies the OHLC ordering trivially.
func FromCloses(closes []float64) models.Series {
	candles := make([]models.Candle, len(closes))
	for i, c := range closes {
		candles[i] = models.Candle{
			Timestamp: Start.Add(time.Duration(i) * 24 * time.Hour),
			Open:      c,
			High:      c,
			Low:       c,
			Close:     c,
			Volume:    1000,
		}
	}
	return models.NewSeries("TEST", models.Timeframe1Day, candles)
}

// Linear builds n bars with close rising linearly from first to last,
// high = close+1, low = close-1, open half a step below close and constant
// volume.
func Linear(n int, first, last float64) models.Series {
	candles := make([]models.Candle, n)
	step := 0.0
	if n > 1 {
		step = (last - first) / float64(n-1)
	}
	for i := range candles {
		c := first + step*float64(i)
		candles[i] = models.Candle{
			Timestamp: Start.Add(time.Duration(i) * 24 * time.Hour),
			Open:      c - step/2,
			High:      c + 1,
			Low:       c - 1,
			Close:     c,
			Volume:    1000,
		}
	}
	return models.NewSeries("TEST", models.Timeframe1Day, candles)
}

// Flat builds n identical bars.
func Flat(n int, price float64) models.Series {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = price
	}
	return FromCloses(closes)
}

// Segments builds a close series from piecewise linear legs. Each leg is a
// [start, end] pair spanning barsPerLeg bars.
func Segments(barsPerLeg int, legs ...[2]float64) []float64 {
	out := make([]float64, 0, barsPerLeg*len(legs))
	for _, leg := range legs {
		for j := 0; j < barsPerLeg; j++ {
			t := float64(j) / float64(barsPerLeg-1)
			out = append(out, leg[0]+(leg[1]-leg[0])*t)
		}
	}
	return out
}

// CandleSliceGen generates valid candle slices with a length in [minLen, maxLen].
func CandleSliceGen(minLen, maxLen int) gopter.Gen {
	return gen.IntRange(minLen, maxLen).FlatMap(func(v interface{}) gopter.Gen {
		n := v.(int)
		return gen.SliceOfN(n, candleGen())
	}, reflect.TypeOf([]models.Candle{})).Map(func(candles []models.Candle) models.Series {
		for i := range candles {
			candles[i].Timestamp = Start.Add(time.Duration(i) * time.Hour)
		}
		return models.NewSeries("GEN", models.Timeframe1Hour, candles)
	})
}

func candleGen() gopter.Gen {
	return gopter.CombineGens(
		gen.Float64Range(10, 1000),
		gen.Float64Range(10, 1000),
		gen.Float64Range(0, 20),
		gen.Float64Range(0, 20),
		gen.Float64Range(0, 1e6),
	).Map(func(vals []interface{}) models.Candle {
		o := vals[0].(float64)
		c := vals[1].(float64)
		return models.Candle{
			Open:   o,
			High:   math.Max(o, c) + vals[2].(float64),
			Low:    math.Max(0, math.Min(o, c)-vals[3].(float64)),
			Close:  c,
			Volume: vals[4].(float64),
		}
	})
}
