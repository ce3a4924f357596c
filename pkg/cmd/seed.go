package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nekruzvatanshoev/carrental/pkg/carrental/dal"
)

var (
	SeedCmd = &cobra.Command{
		Use:   SeedCmdName,
		Short: SeedCmdShort,
		Long:  SeedCmdLong,
		RunE:  seedCmdFunc(),
	}
	seedFile    string
	seedMigrate bool
)

func init() {
	SeedCmd.Flags().StringVarP(&seedFile, "file", "f", "car-results.json", "search-results export to import")
	SeedCmd.Flags().BoolVar(&seedMigrate, "migrate", false, "run migrations before importing")
}

func seedCmdFunc() func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		ctx := context.Background()

		f, err := os.Open(seedFile)
		if err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		defer f.Close()

		store, err := openStore(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer store.Close()

		if seedMigrate {
			if err := store.Migrate(ctx); err != nil {
				return err
			}
		}

		stats, err := dal.NewImporter(store, log).Import(ctx, f)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d prices for %d cars from %d agencies (%d results, %d skipped)\n",
			stats.Prices, stats.Cars, stats.Agencies, stats.Items, stats.SkippedItems)
		return nil
	}
}
