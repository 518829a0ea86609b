package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/BaSui01/recruitflow/config"
	"github.com/BaSui01/recruitflow/internal/migration"
)

// migrateFlags selects the database either from config or an explicit URL.
type migrateFlags struct {
	configPath string
	dbType     string
	dbURL      string
}

func newMigrateCmd() *cobra.Command {
	f := &migrateFlags{}
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}
	cmd.PersistentFlags().StringVar(&f.configPath, "config", "", "path to config file")
	cmd.PersistentFlags().StringVar(&f.dbType, "db-type", "", "database type (postgres, mysql, sqlite)")
	cmd.PersistentFlags().StringVar(&f.dbURL, "db-url", "", "database URL, overrides config")

	var all bool
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back the last migration, or all with --all",
		Args:  cobra.NoArgs,
		RunE: f.run(func(cmd *cobra.Command, cli *migration.CLI, _ []string) error {
			if all {
				return cli.RunReset(cmd.Context())
			}
			return cli.RunDown(cmd.Context())
		}),
	}
	down.Flags().BoolVar(&all, "all", false, "roll back every migration and reapply")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: f.run(func(cmd *cobra.Command, cli *migration.CLI, _ []string) error {
				return cli.RunUp(cmd.Context())
			}),
		},
		down,
		&cobra.Command{
			Use:   "status",
			Short: "Show applied and pending migrations",
			Args:  cobra.NoArgs,
			RunE: f.run(func(cmd *cobra.Command, cli *migration.CLI, _ []string) error {
				return cli.RunStatus(cmd.Context())
			}),
		},
		&cobra.Command{
			Use:   "version",
			Short: "Show the current schema version",
			Args:  cobra.NoArgs,
			RunE: f.run(func(cmd *cobra.Command, cli *migration.CLI, _ []string) error {
				return cli.RunVersion(cmd.Context())
			}),
		},
		&cobra.Command{
			Use:   "goto <version>",
			Short: "Migrate up or down to a version",
			Args:  cobra.ExactArgs(1),
			RunE: f.run(func(cmd *cobra.Command, cli *migration.CLI, args []string) error {
				v, err := strconv.ParseUint(args[0], 10, 32)
				if err != nil {
					return fmt.Errorf("invalid version number: %s", args[0])
				}
				return cli.RunGoto(cmd.Context(), uint(v))
			}),
		},
		&cobra.Command{
			Use:   "force <version>",
			Short: "Set the version without running migrations",
			Args:  cobra.ExactArgs(1),
			RunE: f.run(func(cmd *cobra.Command, cli *migration.CLI, args []string) error {
				v, err := strconv.ParseInt(args[0], 10, 32)
				if err != nil {
					return fmt.Errorf("invalid version number: %s", args[0])
				}
				return cli.RunForce(cmd.Context(), int(v))
			}),
		},
		&cobra.Command{
			Use:   "reset",
			Short: "Roll back all migrations and reapply them",
			Args:  cobra.NoArgs,
			RunE: f.run(func(cmd *cobra.Command, cli *migration.CLI, _ []string) error {
				return cli.RunReset(cmd.Context())
			}),
		},
	)
	return cmd
}

func (f *migrateFlags) run(fn func(*cobra.Command, *migration.CLI, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		m, err := f.migrator()
		if err != nil {
			return fmt.Errorf("create migrator: %w", err)
		}
		defer m.Close()

		cli := migration.NewCLI(m)
		cli.SetOutput(cmd.OutOrStdout())
		return fn(cmd, cli, args)
	}
}

func (f *migrateFlags) migrator() (*migration.DefaultMigrator, error) {
	if f.dbURL != "" {
		dbType, err := migration.ParseDatabaseType(f.dbType)
		if err != nil {
			return nil, err
		}
		return migration.NewMigrator(&migration.Config{DatabaseType: dbType, DatabaseURL: f.dbURL})
	}

	cfg, err := config.NewLoader().WithConfigPath(f.configPath).Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if f.dbType != "" {
		cfg.Database.Driver = f.dbType
	}
	return migration.NewMigratorFromDatabaseConfig(cfg.Database)
}
