package commands

// Command to apply or roll back the Postgres schema of the seen store

import (
	"xrpl-listing-bot/internal/infra/db"
	logging "xrpl-listing-bot/internal/infra/log"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down]",
	Short:     "Apply (up) or roll back (down) the Postgres schema",
	Long:      `Run the embedded migrations against storage.database_url (DATABASE_URL). "bot" runs "up" by itself when storage.driver is postgres.`,
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"up", "down"},
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := db.Migrate(cfg.Storage.DatabaseURL, args[0]); err != nil {
			logging.LogError("Migration failed", zap.String("direction", args[0]), zap.Error(err))
			return err
		}
		logging.LogSuccess("Migration finished", zap.String("direction", args[0]))
		return nil
	},
}
