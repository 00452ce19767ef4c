package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/ojtauth/internal/logging"
	"github.com/dmitrijs2005/ojtauth/internal/server"
	"github.com/dmitrijs2005/ojtauth/internal/server/config"
)

// withApp loads configuration from the raw command arguments, builds the app
// and runs fn. Flag parsing is left to the config package so the same short
// flags work for every subcommand.
func withApp(cmd *cobra.Command, args []string, fn func(ctx context.Context, app *server.App) error) error {
	cfg, err := config.LoadConfig(args)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger := logging.NewJSON(os.Stdout, cfg.LogLevel)

	app, err := server.NewApp(cmd.Context(), cfg, logger)
	if err != nil {
		logger.Error(cmd.Context(), "app init failed", "error", err)
		return err
	}
	defer app.Close()

	return fn(cmd.Context(), app)
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "ojtauth-server",
		Short: "Credential store for the internship tracker",
		Long: `Credential store for the internship tracker. Configuration comes from
defaults, OJT_* environment variables (.env when ENV=dev), a JSON file
given with -c and short flags, in that order.`,
	}
	root.AddCommand(newServeCmd(), newMigrateCmd(), newSeedCmd(), newNotifyWorkerCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:                "serve",
		Short:              "Run migrations and serve the HTTP API and gRPC health endpoint",
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, args, func(ctx context.Context, app *server.App) error {
				if err := app.Migrate(ctx); err != nil {
					return fmt.Errorf("migrate: %w", err)
				}
				app.Run(ctx)
				return nil
			})
		},
	}
}

func newMigrateCmd() *cobra.Command {
	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}
	migrate.AddCommand(&cobra.Command{
		Use:                "up",
		Short:              "Apply all up migrations",
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, args, func(ctx context.Context, app *server.App) error {
				return app.Migrate(ctx)
			})
		},
	})
	return migrate
}

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:                "seed-superadmin",
		Short:              "Create the configured superadmin account if it does not exist",
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, args, func(ctx context.Context, app *server.App) error {
				created, err := app.SeedSuperAdmin(ctx)
				if err != nil {
					return err
				}
				if created {
					fmt.Fprintln(cmd.OutOrStdout(), "superadmin created")
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "superadmin already exists")
				}
				return nil
			})
		},
	}
}

func newNotifyWorkerCmd() *cobra.Command {
	return &cobra.Command{
		Use:                "notify-worker",
		Short:              "Consume queued access codes from the configured broker",
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, args, func(ctx context.Context, app *server.App) error {
				return app.RunNotifyWorker(ctx)
			})
		},
	}
}
