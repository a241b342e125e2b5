package models

import (
	"strings"
	"time"

	apperrors "stock-analyst/internal/errors"
)

// Timeframe identifies the bar granularity of a series.
type Timeframe string

const (
	Timeframe15Min Timeframe = "15m"
	Timeframe30Min Timeframe = "30m"
	Timeframe1Hour Timeframe = "1h"
	Timeframe4Hour Timeframe = "4h"
	Timeframe1Day  Timeframe = "1d"
)

// AllTimeframes returns the supported timeframes, finest first.
func AllTimeframes() []Timeframe {
	return []Timeframe{Timeframe15Min, Timeframe30Min, Timeframe1Hour, Timeframe4Hour, Timeframe1Day}
}

var timeframeAliases = map[string]Timeframe{
	"15m":      Timeframe15Min,
	"15min":    Timeframe15Min,
	"15minute": Timeframe15Min,
	"30m":      Timeframe30Min,
	"30min":    Timeframe30Min,
	"30minute": Timeframe30Min,
	"1h":       Timeframe1Hour,
	"60m":      Timeframe1Hour,
	"1hour":    Timeframe1Hour,
	"60minute": Timeframe1Hour,
	"4h":       Timeframe4Hour,
	"4hour":    Timeframe4Hour,
	"240m":     Timeframe4Hour,
	"1d":       Timeframe1Day,
	"d":        Timeframe1Day,
	"day":      Timeframe1Day,
	"daily":    Timeframe1Day,
}

// ParseTimeframe converts user input such as "15min" or "day" to a Timeframe.
func ParseTimeframe(s string) (Timeframe, error) {
	tf, ok := timeframeAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", apperrors.Wrapf(apperrors.ErrUnknownTimeframe, "%q", s)
	}
	return tf, nil
}

// Valid reports whether tf is one of the supported timeframes.
func (tf Timeframe) Valid() bool {
	switch tf {
	case Timeframe15Min, Timeframe30Min, Timeframe1Hour, Timeframe4Hour, Timeframe1Day:
		return true
	}
	return false
}

// Interval returns the duration of one bar.
func (tf Timeframe) Interval() time.Duration {
	switch tf {
	case Timeframe15Min:
		return 15 * time.Minute
	case Timeframe30Min:
		return 30 * time.Minute
	case Timeframe1Hour:
		return time.Hour
	case Timeframe4Hour:
		return 4 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// Lookback returns how far back history is requested for the timeframe.
// Finer granularity uses a shorter window.
func (tf Timeframe) Lookback() time.Duration {
	const day = 24 * time.Hour
	switch tf {
	case Timeframe15Min:
		return 5 * day
	case Timeframe30Min:
		return 10 * day
	case Timeframe1Hour:
		return 30 * day
	case Timeframe4Hour:
		return 120 * day
	default:
		return 365 * day
	}
}

func (tf Timeframe) String() string {
	return string(tf)
}
