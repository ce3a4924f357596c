package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var MigrateCmd = &cobra.Command{
	Use:   MigrateCmdName,
	Short: MigrateCmdShort,
	Long:  MigrateCmdLong,
	RunE:  migrateCmdFunc(),
}

func migrateCmdFunc() func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		ctx := context.Background()
		store, err := openStore(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Migrate(ctx); err != nil {
			return err
		}
		log.Info("schema is up to date")
		return nil
	}
}
