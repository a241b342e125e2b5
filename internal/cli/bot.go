package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"stock-analyst/internal/bot"
)

func newBotCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bot",
		Short: "Run the Telegram bot",
		Long: `Run the Telegram bot until interrupted.

The bot token is read from BOT_TOKEN (or a .env file) or from
credentials.toml in the config directory.`,
		Example: `  BOT_TOKEN=123:abc stock-analyst bot
  stock-analyst bot --provider binance`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			providerName, _ := cmd.Flags().GetString("provider")

			analyst, err := app.analyst(providerName)
			defer app.close()
			if err != nil {
				output.Error("Failed to set up analysis: %v", err)
				return err
			}

			b, err := bot.New(app.Config, analyst, app.Logger)
			if err != nil {
				output.Error("Failed to start bot: %v", err)
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			output.Success("✓ Bot running with %d workers, press Ctrl+C to stop", app.Config.Telegram.Workers)
			if err := b.Run(ctx); err != nil {
				return err
			}

			stats := b.Stats()
			output.Dim("Handled %d updates (%d rejected)", stats.TasksDone, stats.TasksRejected)
			return nil
		},
	}

	cmd.Flags().StringP("provider", "p", "", "price provider override (yahoo, binance)")

	return cmd
}
