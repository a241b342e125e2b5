package store

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock-analyst/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "candles.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// TestProperty_CandleRoundTrip verifies that saved candles come back
// unchanged and in timestamp order.
func TestProperty_CandleRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	seq := 0
	properties.Property("saved candles round trip", prop.ForAll(
		func(n int, base float64) bool {
			seq++
			symbol := fmt.Sprintf("SYM%d", seq)
			candles := generateTestCandles(n, base)

			if err := s.SaveCandles(ctx, symbol, "1h", candles); err != nil {
				return false
			}
			from := candles[0].Timestamp
			to := candles[len(candles)-1].Timestamp
			got, err := s.GetCandles(ctx, symbol, "1h", from, to)
			if err != nil || len(got) != len(candles) {
				return false
			}
			for i := range got {
				if !candlesEqual(got[i], candles[i]) {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 40),
		gen.Float64Range(0.001, 50000),
	))

	properties.TestingRun(t)
}

// TestProperty_UpsertIsIdempotent verifies that saving the same candles
// twice keeps a single row per timestamp.
func TestProperty_UpsertIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	properties := gopter.NewProperties(nil)

	properties.Property("double save keeps one row per bar", prop.ForAll(
		func(n int) bool {
			candles := generateTestCandles(n, 100)
			_ = s.SaveCandles(ctx, "DUP", "1d", candles)
			_ = s.SaveCandles(ctx, "DUP", "1d", candles)
			got, err := s.GetCandles(ctx, "DUP", "1d", candles[0].Timestamp, candles[n-1].Timestamp)
			return err == nil && len(got) == n
		},
		gen.IntRange(1, 30),
	))

	properties.TestingRun(t)
}

func TestCandlesFreshness(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ts, err := s.GetCandlesFreshness(ctx, "AAPL", "1h")
	require.NoError(t, err)
	assert.True(t, ts.IsZero())

	candles := generateTestCandles(10, 180)
	require.NoError(t, s.SaveCandles(ctx, "AAPL", "1h", candles))

	ts, err = s.GetCandlesFreshness(ctx, "AAPL", "1h")
	require.NoError(t, err)
	assert.True(t, ts.Equal(candles[9].Timestamp))

	// other timeframes are independent
	ts, err = s.GetCandlesFreshness(ctx, "AAPL", "1d")
	require.NoError(t, err)
	assert.True(t, ts.IsZero())
}

func TestFetchStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	at, err := s.LastFetched(ctx, "BTC-USD", "4h")
	require.NoError(t, err)
	assert.True(t, at.IsZero())

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.MarkFetched(ctx, "BTC-USD", "4h", now))

	at, err = s.LastFetched(ctx, "BTC-USD", "4h")
	require.NoError(t, err)
	assert.True(t, at.Equal(now))

	// clearing the memo forces a read from the table
	s.mu.Lock()
	s.fetchTimes = make(map[string]time.Time)
	s.mu.Unlock()
	at, err = s.LastFetched(ctx, "BTC-USD", "4h")
	require.NoError(t, err)
	assert.True(t, at.Equal(now))
}

func TestPruneCandles(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	candles := generateTestCandles(10, 50)
	require.NoError(t, s.SaveCandles(ctx, "MSFT", "1h", candles))

	n, err := s.PruneCandles(ctx, candles[4].Timestamp)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	got, err := s.GetCandles(ctx, "MSFT", "1h", candles[0].Timestamp, candles[9].Timestamp)
	require.NoError(t, err)
	assert.Len(t, got, 6)
}

func TestSaveEmpty(t *testing.T) {
	s := newTestStore(t)
	assert.NoError(t, s.SaveCandles(context.Background(), "X", "1h", nil))
}

func TestMemoryStore(t *testing.T) {
	s, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer s.Close()

	var _ DataStore = s
	candles := generateTestCandles(3, 10)
	require.NoError(t, s.SaveCandles(context.Background(), "MEM", "1h", candles))
	got, err := s.GetCandles(context.Background(), "MEM", "1h", candles[0].Timestamp, candles[2].Timestamp)
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

// generateTestCandles builds n hourly candles starting at a fixed UTC time.
func generateTestCandles(n int, base float64) []models.Candle {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]models.Candle, n)
	for i := 0; i < n; i++ {
		price := base * (1 + 0.01*float64(i%7))
		candles[i] = models.Candle{
			Timestamp: start.Add(time.Duration(i) * time.Hour),
			Open:      price,
			High:      price * 1.02,
			Low:       price * 0.98,
			Close:     price * 1.005,
			Volume:    1000.5 + float64(i),
		}
	}
	return candles
}

func candlesEqual(a, b models.Candle) bool {
	return a.Timestamp.Equal(b.Timestamp) &&
		floatEqual(a.Open, b.Open) &&
		floatEqual(a.High, b.High) &&
		floatEqual(a.Low, b.Low) &&
		floatEqual(a.Close, b.Close) &&
		floatEqual(a.Volume, b.Volume)
}

func floatEqual(a, b float64) bool {
	return math.Abs(a-b) <= 1e-9*math.Max(1, math.Abs(a))
}
