package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hpdav/cityflow-backend-go/internal/flowsource"
	"github.com/hpdav/cityflow-backend-go/internal/repository"
)

func newMigrateCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd.Context(), v)
			if err != nil {
				return err
			}
			defer a.Close()
			if a.db == nil {
				return errNeedsDatabase
			}
			a.logger.WithField("path", a.cfg.Database.Path).Info("database is up to date")
			return nil
		},
	}
}

func newSeedCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <fixture.yaml>",
		Short: "Load a YAML fixture into the SQLite database",
		Long: `Load a YAML fixture into the SQLite database.

Example:
  cityflow seed --db ./data/demo.db internal/repository/testdata/fixture.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd.Context(), v)
			if err != nil {
				return err
			}
			defer a.Close()
			if a.db == nil {
				return errNeedsDatabase
			}

			fx, err := repository.LoadFixture(args[0])
			if err != nil {
				return err
			}
			if err := repository.Seed(cmd.Context(), a.db, fx); err != nil {
				return err
			}
			a.logger.WithFields(logrus.Fields{
				"participants": len(fx.Participants),
				"venues":       len(fx.Venues),
				"samples":      len(fx.Samples),
				"checkins":     len(fx.Checkins),
				"trips":        len(fx.Trips),
			}).Info("fixture seeded")
			return nil
		},
	}
}

func newMaterializeCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "materialize-trips",
		Short: "Reconstruct trip endpoints once and store them as trip_coordinates",
		Long: `Reconstruct every trip's origin and destination from the position samples
and store the result, so that flow queries can read it directly instead
of reconstructing per query.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd.Context(), v)
			if err != nil {
				return err
			}
			defer a.Close()

			total, unresolved, err := flowsource.Materialize(cmd.Context(), a.store, a.logger)
			if err != nil {
				return err
			}
			a.logger.WithFields(logrus.Fields{
				"trips":      total,
				"unresolved": unresolved,
			}).Info("trip coordinates materialized")
			return nil
		},
	}
}
