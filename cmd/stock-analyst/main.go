// Command stock-analyst runs the multi-school technical analysis engine from
// the terminal or as a Telegram bot.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"stock-analyst/internal/cli"
)

func main() {
	// .env is optional; real environment variables take precedence
	_ = godotenv.Load()

	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
