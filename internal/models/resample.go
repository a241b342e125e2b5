package models

import (
	"time"
)

// Resample aggregates candles into buckets of the given interval. Buckets are
// aligned to interval boundaries in UTC; open comes from the first bar, close
// from the last, high/low are extremes and volume is summed. Input must be
// sorted by timestamp.
func Resample(candles []Candle, interval time.Duration) []Candle {
	if interval <= 0 || len(candles) == 0 {
		return nil
	}

	out := make([]Candle, 0, len(candles))
	var current *Candle
	var bucket time.Time

	for _, c := range candles {
		start := c.Timestamp.UTC().Truncate(interval)
		if current == nil || !start.Equal(bucket) {
			if current != nil {
				out = append(out, *current)
			}
			bucket = start
			current = &Candle{
				Timestamp: start,
				Open:      c.Open,
				High:      c.High,
				Low:       c.Low,
				Close:     c.Close,
				Volume:    c.Volume,
			}
			continue
		}
		if c.High > current.High {
			current.High = c.High
		}
		if c.Low < current.Low {
			current.Low = c.Low
		}
		current.Close = c.Close
		current.Volume += c.Volume
	}
	if current != nil {
		out = append(out, *current)
	}

	return out
}
