package commands

// Root command for Cobra CLI
// Loads configuration and the logger once for every subcommand
// Registers all subcommands (bot, check, seen, migrate, config)

import (
	"fmt"
	"xrpl-listing-bot/internal/infra/config"
	logging "xrpl-listing-bot/internal/infra/log"

	"github.com/spf13/cobra"
)

// cfg is set by PersistentPreRunE before any RunE
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "xrpl-listing-bot",
	Short: "XRPL Listing Bot - Telegram alerts for newly listed XRPL tokens",
	Long: `XRPL Listing Bot polls XRPL token launch sites (FirstLedger, XRPL.to, XPMarket, ...)
and posts a Telegram alert the first time each token shows up on a source.`,
	Version:       "1.0.0",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.LoadConfig(cmd.Flags())
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := logging.Init(loaded.App.LogDir, loaded.App.Debug); err != nil {
			return fmt.Errorf("failed to init logger: %w", err)
		}
		cfg = loaded
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	config.RegisterFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(botCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(seenCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(configCmd)
}
