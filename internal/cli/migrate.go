package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Skufu/postcovid-risk/internal/store"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, url, err := migrationTarget(cmd)
			if err != nil {
				return err
			}
			if err := store.MigrateDown(url, steps); err != nil {
				return err
			}
			cc.Logger.Info("migrations rolled back", zap.Int("steps", steps))
			return nil
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cc, url, err := migrationTarget(cmd)
				if err != nil {
					return err
				}
				if err := store.MigrateUp(url); err != nil {
					return err
				}
				cc.Logger.Info("migrations applied")
				return nil
			},
		},
		down,
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				_, url, err := migrationTarget(cmd)
				if err != nil {
					return err
				}
				v, dirty, err := store.MigrationVersion(url)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", v, dirty)
				return nil
			},
		},
	)
	return cmd
}

func migrationTarget(cmd *cobra.Command) (*CLIContext, string, error) {
	cc, err := GetCLIContext(cmd)
	if err != nil {
		return nil, "", err
	}
	if cc.Config.Database.URL == "" {
		return nil, "", fmt.Errorf("DATABASE_URL is required for migrations")
	}
	return cc, cc.Config.Database.URL, nil
}
