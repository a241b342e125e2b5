package logging

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel(" WARNING "))
	assert.Equal(t, zerolog.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("bogus"))
}

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithConfig(LogConfig{Level: "warn", Console: true, Output: &buf})

	LogAnalysis(logger, "AAPL", "1h", 4, "wait", time.Second)
	assert.Empty(t, buf.String())

	logger.Warn().Msg("provider slow")
	assert.Contains(t, buf.String(), "provider slow")
}

func TestHelpersAddFields(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)
	logger = WithOperation(WithTimeframe(WithSymbol(logger, "BTCUSDT"), "4h"), "analyze")

	LogFetch(logger, "binance", "BTCUSDT", 0, time.Millisecond, errors.New("boom"))
	out := buf.String()
	for _, want := range []string{`"symbol":"BTCUSDT"`, `"timeframe":"4h"`, `"operation":"analyze"`, `"event":"fetch"`, `"error":"boom"`} {
		assert.Contains(t, out, want)
	}
}

func TestContextLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	ctx := WithLogger(context.Background(), logger)

	l := FromContext(ctx)
	l.Info().Msg("hello")
	assert.Contains(t, buf.String(), "hello")

	// missing logger falls back to a no-op
	nop := FromContext(context.Background())
	nop.Info().Msg("dropped")
	assert.NotContains(t, buf.String(), "dropped")
}

func TestNoWritersDiscards(t *testing.T) {
	logger := NewLoggerWithConfig(LogConfig{Level: "debug"})
	logger.Info().Msg("nowhere")
}
