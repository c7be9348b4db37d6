package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tokenlock/internal/app"
)

var rootCmd = &cobra.Command{
	Use:   "tokenlock",
	Short: "Lock the session when the USB security token is removed",
	Long: "Tokenlock watches for a known USB security token and locks the\n" +
		"desktop session when the token stays absent beyond a grace period.",
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.AddCommand(
		app.NewRunCommand(),
		app.NewStatusCommand(),
		app.NewDevicesCommand(),
		app.NewRearmCommand(),
		app.NewHistoryCommand(),
		app.NewConfigCommand(),
		app.NewServiceCommand(),
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
