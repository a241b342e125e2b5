package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"stock-analyst/internal/models"
	"stock-analyst/internal/service"
	"stock-analyst/pkg/utils"
)

// addAnalysisCommands adds analysis commands.
func addAnalysisCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newAnalyzeCmd(app))
	rootCmd.AddCommand(newPriceCmd(app))
	rootCmd.AddCommand(newScanCmd(app))
}

func timeframeUsage() string {
	names := make([]string, 0, len(models.AllTimeframes()))
	for _, tf := range models.AllTimeframes() {
		names = append(names, tf.String())
	}
	return "timeframe (" + strings.Join(names, ", ") + ")"
}

// requestFromFlags builds the shared request. Without --timeframe a
// non-empty fallback replaces the flag default.
func requestFromFlags(cmd *cobra.Command, fallback, symbol string) service.Request {
	tf, _ := cmd.Flags().GetString("timeframe")
	if !cmd.Flags().Changed("timeframe") && fallback != "" {
		tf = fallback
	}
	return service.NewRequest(symbol, tf, service.SourceCLI)
}

func newAnalyzeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <symbol>",
		Short: "Full multi-school analysis for a symbol",
		Long: `Fetch recent history and run every analysis school:
- Classical: pivot, support/resistance, trend, chart patterns
- Elliott wave: wave labels and Fibonacci targets
- ICT: fair value gaps, order blocks, liquidity pools, market structure
- Harmonic: Butterfly, Gartley, Bat, Crab and Shark patterns

The results are combined into a score, a confidence and a recommendation.`,
		Example: `  stock-analyst analyze AAPL
  stock-analyst analyze BTC-USD --timeframe 4h
  stock-analyst analyze BTC-USD -t 15m --provider binance --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			providerName, _ := cmd.Flags().GetString("provider")

			analyst, err := app.analyst(providerName)
			defer app.close()
			if err != nil {
				output.Error("Failed to set up analysis: %v", err)
				return err
			}

			req := requestFromFlags(cmd, app.Config.Telegram.DefaultTimeframe, args[0])
			if !output.IsJSON() {
				output.Info("Analyzing %s on %s timeframe...", req.Symbol, req.Timeframe)
			}

			result, err := analyst.Analyze(cmd.Context(), req)
			if err != nil {
				output.Error("Analysis failed: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(result)
			}
			printAnalysis(output, result)
			return nil
		},
	}

	cmd.Flags().StringP("timeframe", "t", "1h", timeframeUsage())
	cmd.Flags().StringP("provider", "p", "", "price provider override (yahoo, binance)")

	return cmd
}

func newPriceCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "price <symbol>",
		Short: "Latest price with pivot levels",
		Example: `  stock-analyst price AAPL
  stock-analyst price ETH-USD -t 1d`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			providerName, _ := cmd.Flags().GetString("provider")

			analyst, err := app.analyst(providerName)
			defer app.close()
			if err != nil {
				output.Error("Failed to set up price lookup: %v", err)
				return err
			}

			q, err := analyst.Quote(cmd.Context(), requestFromFlags(cmd, "", args[0]))
			if err != nil {
				output.Error("Price lookup failed: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(q)
			}
			printQuote(output, q)
			return nil
		},
	}

	cmd.Flags().StringP("timeframe", "t", "1d", timeframeUsage())
	cmd.Flags().StringP("provider", "p", "", "price provider override (yahoo, binance)")

	return cmd
}

func newScanCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [symbols...]",
		Short: "Analyze several symbols and rank them by score",
		Long: `Run the full analysis for several symbols concurrently and rank them by
score. Without arguments the configured popular symbols are scanned.

Presets filter the ranked list; use --presets to list them.`,
		Example: `  stock-analyst scan
  stock-analyst scan AAPL MSFT NVDA --preset bullish -t 1d
  stock-analyst scan BTC-USD ETH-USD --provider binance --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			if list, _ := cmd.Flags().GetBool("presets"); list {
				table := NewTable(output, "Preset", "Description", "Filters")
				for _, p := range service.GetPresetScreeners() {
					filters := make([]string, len(p.Filters))
					for i, f := range p.Filters {
						filters[i] = f.String()
					}
					table.AddRow(p.Name, p.Description, strings.Join(filters, ", "))
				}
				table.Render()
				return nil
			}

			presetName, _ := cmd.Flags().GetString("preset")
			preset, err := service.PresetByName(presetName)
			if err != nil {
				output.Error("%v", err)
				return err
			}

			symbols := args
			if len(symbols) == 0 {
				symbols = app.Config.Telegram.Symbols
			}
			providerName, _ := cmd.Flags().GetString("provider")
			concurrency, _ := cmd.Flags().GetInt("concurrency")

			analyst, err := app.analyst(providerName)
			defer app.close()
			if err != nil {
				output.Error("Failed to set up analysis: %v", err)
				return err
			}

			req := requestFromFlags(cmd, app.Config.Telegram.DefaultTimeframe, "")
			if !output.IsJSON() {
				output.Info("Scanning %d symbols on %s timeframe (preset %s)...", len(symbols), req.Timeframe, preset.Name)
			}
			results := service.NewScreener(analyst, concurrency).Scan(cmd.Context(), symbols, req.Timeframe, preset.Filters)

			if output.IsJSON() {
				return output.JSON(results)
			}
			printScan(output, results)
			return nil
		},
	}

	cmd.Flags().StringP("timeframe", "t", "1h", timeframeUsage())
	cmd.Flags().StringP("provider", "p", "", "price provider override (yahoo, binance)")
	cmd.Flags().String("preset", "all", "screener preset")
	cmd.Flags().Bool("presets", false, "list screener presets")
	cmd.Flags().IntP("concurrency", "c", 4, "symbols analyzed at once")

	return cmd
}

func printScan(output *Output, results []service.ScanResult) {
	table := NewTable(output, "#", "Symbol", "Price", "Score", "Confidence", "Recommendation")
	rank, filtered := 0, 0
	var failed []service.ScanResult
	for _, r := range results {
		switch {
		case r.Err != nil:
			failed = append(failed, r)
		case !r.Passed:
			filtered++
		default:
			rank++
			table.AddRow(
				fmt.Sprintf("%d", rank),
				output.BoldText(r.Symbol),
				utils.FormatPrice(r.Result.LastClose),
				formatScore(r.Result.Score),
				fmt.Sprintf("%.0f%%", r.Result.ConfidencePercent),
				output.Recommendation(r.Result.Recommendation),
			)
		}
	}

	if rank == 0 {
		output.Warning("No symbol matched")
	} else {
		table.Render()
	}
	if filtered > 0 {
		output.Dim("%d filtered out", filtered)
	}
	for _, r := range failed {
		output.Error("✗ %s: %s", r.Symbol, r.Error)
	}
}
