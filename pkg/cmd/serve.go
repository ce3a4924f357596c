package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nekruzvatanshoev/carrental/pkg/carrental/catalog"
	"github.com/nekruzvatanshoev/carrental/pkg/carrental/config"
	"github.com/nekruzvatanshoev/carrental/pkg/carrental/dal"
	"github.com/nekruzvatanshoev/carrental/pkg/carrental/search"
	"github.com/nekruzvatanshoev/carrental/pkg/carrental/server"
)

const shutdownTimeout = 10 * time.Second

var (
	ServeCmd = &cobra.Command{
		Use:   ServeCmdName,
		Short: ServeCmdShort,
		Long:  ServeCmdLong,
		RunE:  serveCmdFunc(),
	}
	serveMigrate bool
)

func init() {
	ServeCmd.Flags().String("address", "", "listen address, e.g. :8080")
	ServeCmd.Flags().String("search-mode", "", "auto, pushdown or memory")
	ServeCmd.Flags().BoolVar(&serveMigrate, "migrate", false, "run migrations before serving")
	_ = viper.BindPFlag("server.address", ServeCmd.Flags().Lookup("address"))
	_ = viper.BindPFlag("search.mode", ServeCmd.Flags().Lookup("search-mode"))
}

// newSearchService wires the search engine from configuration.
func newSearchService(cfg *config.Config, sessions dal.Sessions) (*search.Service, error) {
	normalizer, err := search.NewNormalizer(search.LocationOptions{
		Separators:     cfg.Location.Separators,
		MinTokenLength: cfg.Location.MinTokenLength,
		StopWords:      cfg.Location.StopWords,
	})
	if err != nil {
		return nil, err
	}
	mode, err := search.ParseMode(cfg.Search.Mode)
	if err != nil {
		return nil, err
	}
	limits := search.Limits{
		Default: cfg.Pagination.DefaultLimit,
		Min:     cfg.Pagination.MinLimit,
		Max:     cfg.Pagination.MaxLimit,
	}
	return search.NewService(sessions, search.NewEngine(normalizer, mode), limits), nil
}

func serveCmdFunc() func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		log.Info("started serve cmd")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		store, err := openStore(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer store.Close()

		if serveMigrate {
			if err := store.Migrate(ctx); err != nil {
				return err
			}
			log.Info("schema migrated")
		}

		svc, err := newSearchService(cfg, store)
		if err != nil {
			return err
		}
		serve := server.NewHTTPServer(cfg.Server.Address, server.Deps{
			Search:      svc,
			Catalog:     catalog.NewService(store),
			DB:          store,
			Log:         log,
			CORSOrigins: cfg.CORS.Origins,
		})

		errCh := make(chan error, 1)
		go func() {
			log.Info("listening on %s (search mode %s, cors %v)", cfg.Server.Address, cfg.Search.Mode, cfg.CORS.Origins)
			if err := serve.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		log.Info("shutting down the server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return serve.Shutdown(shutdownCtx)
	}
}
