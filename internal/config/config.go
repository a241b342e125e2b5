// Package config provides configuration management for the analyst.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"stock-analyst/internal/analysis/pipeline"
	apperrors "stock-analyst/internal/errors"
	"stock-analyst/internal/logging"
	"stock-analyst/internal/models"
)

// Config holds all application configuration.
type Config struct {
	Engine      EngineConfig      `mapstructure:"engine"`
	Provider    ProviderConfig    `mapstructure:"provider"`
	Cache       CacheConfig       `mapstructure:"cache"`
	Telegram    TelegramConfig    `mapstructure:"telegram"`
	UI          UIConfig          `mapstructure:"ui"`
	Log         logging.LogConfig `mapstructure:"log"`
	Credentials Credentials       `mapstructure:"-" json:"-"` // Loaded separately

	// Dir is the directory the configuration was loaded from.
	Dir string `mapstructure:"-" json:"dir"`
	// Created lists template files written because they were missing.
	Created []string `mapstructure:"-" json:"-"`
}

// EngineConfig holds the analysis engine calibration.
type EngineConfig struct {
	Timeout         time.Duration `mapstructure:"timeout"`
	pipeline.Config `mapstructure:",squash"`
}

// ProviderConfig holds price provider configuration.
type ProviderConfig struct {
	Name             string        `mapstructure:"name"` // yahoo, binance
	Timeout          time.Duration `mapstructure:"timeout"`
	MaxRetries       int           `mapstructure:"max_retries"`
	RetryDelay       time.Duration `mapstructure:"retry_delay"`
	RateLimit        float64       `mapstructure:"rate_limit"` // requests per second
	RateBurst        int           `mapstructure:"rate_burst"`
	YahooBaseURL     string        `mapstructure:"yahoo_base_url"`
	Proxy            string        `mapstructure:"proxy"`
	BinanceTestnet   bool          `mapstructure:"binance_testnet"`
	FailureThreshold int           `mapstructure:"failure_threshold"`
	ResetTimeout     time.Duration `mapstructure:"reset_timeout"`
}

// CacheConfig holds the candle cache configuration.
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Path    string        `mapstructure:"path"`
	MaxAge  time.Duration `mapstructure:"max_age"`
}

// TelegramConfig holds the bot front-end configuration.
type TelegramConfig struct {
	BaseURL          string        `mapstructure:"base_url"`
	PollTimeout      time.Duration `mapstructure:"poll_timeout"`
	Workers          int           `mapstructure:"workers"`
	DefaultTimeframe string        `mapstructure:"default_timeframe"`
	Symbols          []string      `mapstructure:"symbols"`
	AllowedChats     []int64       `mapstructure:"allowed_chats"`
}

// UIConfig holds terminal output configuration.
type UIConfig struct {
	ColorEnabled bool `mapstructure:"color_enabled"`
}

// Credentials holds API credentials.
type Credentials struct {
	Telegram TelegramCredentials `mapstructure:"telegram"`
	Binance  BinanceCredentials  `mapstructure:"binance"`
}

// TelegramCredentials holds the bot token.
type TelegramCredentials struct {
	BotToken string `mapstructure:"bot_token"`
}

// BinanceCredentials holds Binance API credentials. Klines are public, so
// both may be empty.
type BinanceCredentials struct {
	APIKey    string `mapstructure:"api_key"`
	APISecret string `mapstructure:"api_secret"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/stock-analyst"
	}
	return filepath.Join(home, ".config", "stock-analyst")
}

// Default returns the built-in configuration.
func Default() *Config {
	dir := DefaultConfigDir()
	return &Config{
		Engine: EngineConfig{
			Timeout: 10 * time.Second,
			Config:  pipeline.DefaultConfig(),
		},
		Provider: ProviderConfig{
			Name:             "yahoo",
			Timeout:          15 * time.Second,
			MaxRetries:       3,
			RetryDelay:       500 * time.Millisecond,
			RateLimit:        2,
			RateBurst:        4,
			YahooBaseURL:     "https://query1.finance.yahoo.com",
			FailureThreshold: 5,
			ResetTimeout:     30 * time.Second,
		},
		Cache: CacheConfig{
			Enabled: true,
			Path:    filepath.Join(dir, "candles.db"),
			MaxAge:  5 * time.Minute,
		},
		Telegram: TelegramConfig{
			BaseURL:          "https://api.telegram.org",
			PollTimeout:      30 * time.Second,
			Workers:          4,
			DefaultTimeframe: string(models.Timeframe1Hour),
			Symbols:          []string{"AAPL", "MSFT", "NVDA", "TSLA", "AMZN", "BTC-USD", "ETH-USD"},
		},
		UI:  UIConfig{ColorEnabled: true},
		Log: logging.DefaultLogConfig(),
		Dir: dir,
	}
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory. Missing files
// are replaced by templates and the built-in defaults are used.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := Default()
	cfg.Dir = configDir
	cfg.Cache.Path = filepath.Join(configDir, "candles.db")

	created, err := loadConfigFile(configDir, "config", configTemplate, 0644, cfg, resetOverriddenSlices)
	if err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}
	if created != "" {
		cfg.Created = append(cfg.Created, created)
	}

	created, err = loadConfigFile(configDir, "credentials", credentialsTemplate, 0600, &cfg.Credentials, nil)
	if err != nil {
		return nil, fmt.Errorf("loading credentials.toml: %w", err)
	}
	if created != "" {
		cfg.Created = append(cfg.Created, created)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// loadConfigFile reads name.toml into target. A missing file is replaced by
// the template and its path returned; target keeps its defaults.
func loadConfigFile(configDir, name, template string, perm os.FileMode, target interface{}, prepare func(*viper.Viper, interface{})) (string, error) {
	v := viper.New()
	v.SetConfigName(name)
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return writeTemplate(configDir, name, template, perm)
		}
		return "", err
	}

	if prepare != nil {
		prepare(v, target)
	}
	return "", v.Unmarshal(target)
}

// resetOverriddenSlices clears default slices the file redefines, since
// decoding into a populated slice keeps trailing default elements.
func resetOverriddenSlices(v *viper.Viper, target interface{}) {
	cfg, ok := target.(*Config)
	if !ok {
		return
	}
	if v.IsSet("engine.harmonic.templates") {
		cfg.Engine.Harmonic.Templates = nil
	}
	if v.IsSet("telegram.symbols") {
		cfg.Telegram.Symbols = nil
	}
	if v.IsSet("telegram.allowed_chats") {
		cfg.Telegram.AllowedChats = nil
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BOT_TOKEN"); v != "" {
		cfg.Credentials.Telegram.BotToken = v
	}
	if v := os.Getenv("BINANCE_API_KEY"); v != "" {
		cfg.Credentials.Binance.APIKey = v
	}
	if v := os.Getenv("BINANCE_API_SECRET"); v != "" {
		cfg.Credentials.Binance.APISecret = v
	}
	if v := os.Getenv("ANALYST_PROVIDER"); v != "" {
		cfg.Provider.Name = strings.ToLower(v)
	}
	if v := os.Getenv("ANALYST_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch c.Provider.Name {
	case "yahoo", "binance":
	default:
		return apperrors.Wrapf(apperrors.ErrConfigInvalid, "provider.name %q (must be 'yahoo' or 'binance')", c.Provider.Name)
	}
	if c.Provider.RateLimit <= 0 {
		return apperrors.Wrap(apperrors.ErrConfigInvalid, "provider.rate_limit must be positive")
	}
	if c.Provider.MaxRetries < 0 {
		return apperrors.Wrap(apperrors.ErrConfigInvalid, "provider.max_retries must be non-negative")
	}
	if c.Engine.Timeout <= 0 {
		return apperrors.Wrap(apperrors.ErrConfigInvalid, "engine.timeout must be positive")
	}

	e := c.Engine.Config
	if e.Elliott.Window <= 0 {
		return apperrors.Wrap(apperrors.ErrConfigInvalid, "engine.elliott.window must be positive")
	}
	if e.Harmonic.SegmentLength <= 0 || e.Harmonic.ActiveWindow < 0 {
		return apperrors.Wrap(apperrors.ErrConfigInvalid, "engine.harmonic windows must be positive")
	}
	for _, t := range e.Harmonic.Templates {
		if t.ABXA.Min > t.ABXA.Max || t.BCAB.Min > t.BCAB.Max {
			return apperrors.Wrapf(apperrors.ErrConfigInvalid, "engine.harmonic template %s has an inverted band", t.Name)
		}
	}
	if e.Classical.TrendLookback <= 0 || e.ICT.StructureLookback <= 0 || e.ICT.LiquidityWindow <= 0 {
		return apperrors.Wrap(apperrors.ErrConfigInvalid, "engine lookbacks must be positive")
	}
	th := e.Thresholds
	if !(th.StrongBuy >= th.ModerateBuy && th.ModerateBuy >= th.Wait && th.Wait >= 0 && th.StrongBuy <= 100) {
		return apperrors.Wrap(apperrors.ErrConfigInvalid, "engine.thresholds must satisfy 100 >= strong_buy >= moderate_buy >= wait >= 0")
	}
	if e.Weights.MaxScore <= 0 {
		return apperrors.Wrap(apperrors.ErrConfigInvalid, "engine.weights.max_score must be positive")
	}

	if _, err := models.ParseTimeframe(c.Telegram.DefaultTimeframe); err != nil {
		return apperrors.Wrapf(apperrors.ErrConfigInvalid, "telegram.default_timeframe: %v", err)
	}
	if c.Cache.Enabled && c.Cache.Path == "" {
		return apperrors.Wrap(apperrors.ErrConfigInvalid, "cache.path is required when the cache is enabled")
	}
	return nil
}
