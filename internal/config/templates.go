package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Stock Analyst Configuration

[engine]
# Wall-clock limit for a single analysis
timeout = "10s"

[engine.classical]
min_bars = 20
trend_lookback = 20
pattern_lookback = 100
shoulder_window = 20
triangle_window = 20
triangle_range_ratio = 0.05

[engine.elliott]
min_bars = 20
# An extremum must dominate +/- window bars
window = 5
max_waves = 5
wave3_extension = 1.618
wave5_extension = 0.618

[engine.ict]
min_gap_bars = 3
max_gaps = 3
max_order_blocks = 5
liquidity_window = 20
structure_lookback = 50
order_block_volume_window = 3

[engine.harmonic]
min_bars = 100
segment_length = 20
# Patterns completed within this many bars count as active
active_window = 20
# Uncomment to replace the built-in Butterfly/Gartley/Bat/Crab/Shark bands
# [[engine.harmonic.templates]]
# name = "Butterfly"
# ab_xa = { min = 0.78, max = 0.79 }
# bc_ab = { min = 0.382, max = 0.886 }
# multiplier = 1.27

[engine.weights]
elliott_push = 2
elliott_correction = 1
classical_up = 2
classical_down = 1
ict_structure_up = 1
ict_buy_order_block = 1
harmonic_buy = 1
max_score = 10

[engine.thresholds]
# Lower bounds of the recommendation bands in percent
strong_buy = 70
moderate_buy = 50
wait = 30

[provider]
# Price provider: "yahoo" or "binance"
name = "yahoo"
timeout = "15s"
max_retries = 3
retry_delay = "500ms"
# Requests per second
rate_limit = 2.0
rate_burst = 4
yahoo_base_url = "https://query1.finance.yahoo.com"
proxy = ""
binance_testnet = false
# Circuit breaker
failure_threshold = 5
reset_timeout = "30s"

[cache]
enabled = true
# Defaults to candles.db next to this file
# path = "/var/lib/stock-analyst/candles.db"
max_age = "5m"

[telegram]
poll_timeout = "30s"
workers = 4
default_timeframe = "1h"
symbols = ["AAPL", "MSFT", "NVDA", "TSLA", "AMZN", "BTC-USD", "ETH-USD"]
# Restrict the bot to these chat IDs (empty allows all)
allowed_chats = []

[ui]
color_enabled = true

[log]
level = "info"
console = true
file = false
max_size = 50
max_backups = 5
max_age = 14
`

const credentialsTemplate = `# Stock Analyst Credentials
# WARNING: Keep this file secure! Do not commit to version control.

[telegram]
bot_token = ""

[binance]
api_key = ""
api_secret = ""
`

// writeTemplate writes a starter file and returns its path.
func writeTemplate(configDir, name, template string, perm os.FileMode) (string, error) {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, name+".toml")
	if err := os.WriteFile(path, []byte(template), perm); err != nil {
		return "", fmt.Errorf("writing %s template: %w", name, err)
	}

	return path, nil
}
