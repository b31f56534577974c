package main

import (
	"context"
	"database/sql"
	"errors"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hpdav/cityflow-backend-go/internal/config"
	"github.com/hpdav/cityflow-backend-go/internal/database"
	"github.com/hpdav/cityflow-backend-go/internal/logging"
	"github.com/hpdav/cityflow-backend-go/internal/repository"
)

var errNeedsDatabase = errors.New("this command works on the SQLite database; unset fixture.path")

// newRootCommand creates the root command. Running it without a
// subcommand serves the API.
func newRootCommand() *cobra.Command {
	v := config.New()

	cmd := &cobra.Command{
		Use:   "cityflow",
		Short: "Spatial-temporal aggregation API over city activity logs",
		Long: `cityflow aggregates participant, check-in, trip and financial logs into
grid cells, flows and time series, and serves the results over HTTP.

Configuration comes from flags, CITYFLOW_* environment variables and an
optional YAML file (--config), in that order of precedence.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), v)
		},
	}

	if err := config.BindFlags(v, cmd.PersistentFlags()); err != nil {
		panic(err)
	}

	cmd.AddCommand(newServeCommand(v))
	cmd.AddCommand(newMigrateCommand(v))
	cmd.AddCommand(newSeedCommand(v))
	cmd.AddCommand(newMaterializeCommand(v))
	return cmd
}

// app holds what every command opens.
type app struct {
	cfg    *config.Config
	logger *logrus.Logger
	db     *sql.DB // nil when serving a fixture
	store  repository.Store
}

// open loads configuration and opens the store. SQLite databases are
// migrated before use.
func open(ctx context.Context, v *viper.Viper) (*app, error) {
	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger}

	if cfg.Fixture != "" {
		fx, err := repository.LoadFixture(cfg.Fixture)
		if err != nil {
			return nil, err
		}
		logger.WithField("path", cfg.Fixture).Info("serving fixture from memory")
		a.store = repository.NewMemoryStore(fx)
		return a, nil
	}

	a.db, err = database.Open(ctx, database.Config{
		Path:         cfg.Database.Path,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	}, logger)
	if err != nil {
		return nil, err
	}
	if err := database.NewMigrationManager(a.db, logger).RunMigrations(ctx); err != nil {
		a.db.Close()
		return nil, err
	}
	a.store = repository.NewSQLiteStore(a.db)
	return a, nil
}

func (a *app) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.WithError(err).Warn("failed to close database")
		}
	}
}
