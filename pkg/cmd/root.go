package cmd

import (
	"context"
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nekruzvatanshoev/carrental/pkg/carrental/config"
	"github.com/nekruzvatanshoev/carrental/pkg/carrental/dal"
	"github.com/nekruzvatanshoev/carrental/pkg/carrental/logger"
)

var cfgFile string

var RootCmd = &cobra.Command{
	Use:          RootCmdName,
	Short:        RootCmdShort,
	Long:         RootCmdLong,
	SilenceUsage: true,
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		log.Println(err)
		os.Exit(-1)
	}
}

func init() {
	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")
	RootCmd.PersistentFlags().String("database-url", "", "database URL (postgres://... or file:carrental.db)")
	RootCmd.PersistentFlags().String("log-level", "", "debug, info, warn or error")
	_ = viper.BindPFlag("database.url", RootCmd.PersistentFlags().Lookup("database-url"))
	_ = viper.BindPFlag("log.level", RootCmd.PersistentFlags().Lookup("log-level"))

	RootCmd.AddCommand(ServeCmd, MigrateCmd, SeedCmd)
}

// loadConfig reads configuration and builds the process logger.
func loadConfig() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load(viper.GetViper(), cfgFile)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger.New(logger.ParseLevel(cfg.Log.Level)), nil
}

func openStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (*dal.Store, error) {
	return dal.Open(ctx, dal.Options{
		URL:          cfg.Database.URL,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		PingAttempts: cfg.Database.PingAttempts,
		Log:          log.With("component", "db"),
	})
}
