// Package cli provides the command-line interface for the analyst.
package cli

import (
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"stock-analyst/internal/analysis/pipeline"
	"stock-analyst/internal/config"
	"stock-analyst/internal/logging"
	"stock-analyst/internal/provider"
	"stock-analyst/internal/service"
	"stock-analyst/internal/store"
)

// Version information
const (
	Version   = "0.3.0"
	BuildDate = "2024-06-01"
)

// App holds the application dependencies.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	Store  store.DataStore
}

// NewRootCmd creates the root command for the CLI. Configuration is loaded
// once flags are parsed so --config is honored.
func NewRootCmd() *cobra.Command {
	app := &App{Logger: zerolog.Nop()}

	rootCmd := &cobra.Command{
		Use:   "stock-analyst",
		Short: "Multi-school technical analysis for stocks and crypto",
		Long: `Stock Analyst runs classical, Elliott wave, ICT and harmonic analysis over
recent price history and combines them into one score and recommendation.

Use it from the terminal with 'stock-analyst analyze' or run the Telegram
bot with 'stock-analyst bot'.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.load(cmd)
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/stock-analyst)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().Bool("no-color", false, "disable colored output")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
	addAnalysisCommands(rootCmd, app)
	rootCmd.AddCommand(newBotCmd(app))

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

func (app *App) load(cmd *cobra.Command) error {
	if app.Config != nil {
		return nil
	}
	dir, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(dir)
	if err != nil {
		return err
	}

	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		cfg.Log.Level = "debug"
	}
	if noColor, _ := cmd.Flags().GetBool("no-color"); noColor || !cfg.UI.ColorEnabled {
		color.NoColor = true
	}

	app.Config = cfg
	app.Logger = logging.NewLoggerWithConfig(cfg.Log)
	for _, path := range cfg.Created {
		app.Logger.Info().Str("path", path).Msg("configuration template written")
	}
	return nil
}

func (app *App) close() {
	if app.Store == nil {
		return
	}
	if err := app.Store.Close(); err != nil {
		app.Logger.Warn().Err(err).Msg("failed to close candle cache")
	}
	app.Store = nil
}

// analyst wires provider, cache and pipeline. providerName overrides the
// configured provider when set. Callers defer app.close.
func (app *App) analyst(providerName string) (*service.Analyst, error) {
	cfg := *app.Config
	if providerName != "" {
		cfg.Provider.Name = providerName
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	var cache store.DataStore
	if cfg.Cache.Enabled {
		cache = app.openStore(cfg.Cache.Path)
	}

	p, err := provider.FromConfig(&cfg, cache, app.Logger)
	if err != nil {
		return nil, err
	}
	pl := pipeline.NewWithConfig(cfg.Engine.Config).WithLogger(app.Logger)
	return service.NewAnalyst(p, pl, cfg.Engine.Timeout).WithLogger(app.Logger), nil
}

// openStore opens the candle cache. A cache that cannot be opened is
// skipped and history is fetched directly.
func (app *App) openStore(path string) store.DataStore {
	if app.Store != nil {
		return app.Store
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		app.Logger.Warn().Err(err).Msg("candle cache unavailable, fetching directly")
		return nil
	}
	s, err := store.NewSQLiteStore(path)
	if err != nil {
		app.Logger.Warn().Err(err).Msg("candle cache unavailable, fetching directly")
		return nil
	}
	app.Store = s
	app.Logger.Debug().Str("path", path).Msg("SQLite candle cache initialized")
	return s
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			} else {
				output.Printf("Stock Analyst v%s\n", Version)
				output.Dim("Build date: %s", BuildDate)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and validate application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			showConfig(output, app.Config)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"path": app.Config.Dir})
			} else {
				output.Println(app.Config.Dir)
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration files",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				output.JSON(map[string]bool{"valid": true})
			} else {
				output.Success("✓ Configuration is valid")
			}
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) {
	output.Bold("Engine")
	output.Printf("  Timeout:          %s\n", cfg.Engine.Timeout)
	output.Printf("  Elliott window:   %d\n", cfg.Engine.Elliott.Window)
	output.Printf("  Harmonic window:  %d (active %d)\n", cfg.Engine.Harmonic.SegmentLength, cfg.Engine.Harmonic.ActiveWindow)
	output.Printf("  Templates:        %d\n", len(cfg.Engine.Harmonic.Templates))
	th := cfg.Engine.Thresholds
	output.Printf("  Thresholds:       strong %.0f%% / moderate %.0f%% / wait %.0f%%\n", th.StrongBuy, th.ModerateBuy, th.Wait)
	output.Println()

	output.Bold("Provider")
	output.Printf("  Name:             %s\n", cfg.Provider.Name)
	output.Printf("  Timeout:          %s\n", cfg.Provider.Timeout)
	output.Printf("  Retries:          %d (delay %s)\n", cfg.Provider.MaxRetries, cfg.Provider.RetryDelay)
	output.Printf("  Rate limit:       %.1f req/s (burst %d)\n", cfg.Provider.RateLimit, cfg.Provider.RateBurst)
	output.Printf("  Circuit breaker:  %d failures, reset %s\n", cfg.Provider.FailureThreshold, cfg.Provider.ResetTimeout)
	output.Println()

	output.Bold("Cache")
	output.Printf("  Enabled:          %v\n", cfg.Cache.Enabled)
	output.Printf("  Path:             %s\n", cfg.Cache.Path)
	output.Printf("  Max age:          %s\n", cfg.Cache.MaxAge)
	output.Println()

	output.Bold("Telegram")
	output.Printf("  Token:            %s\n", configuredText(cfg.Credentials.Telegram.BotToken != ""))
	output.Printf("  Workers:          %d\n", cfg.Telegram.Workers)
	output.Printf("  Timeframe:        %s\n", cfg.Telegram.DefaultTimeframe)
	output.Printf("  Symbols:          %v\n", cfg.Telegram.Symbols)
	output.Printf("  Allowed chats:    %d\n", len(cfg.Telegram.AllowedChats))
	output.Println()

	output.Bold("Logging")
	output.Printf("  Level:            %s\n", cfg.Log.Level)
	output.Printf("  File:             %v\n", cfg.Log.File)
}

func configuredText(ok bool) string {
	if ok {
		return "configured"
	}
	return "not set"
}
