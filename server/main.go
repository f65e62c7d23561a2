package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/meikuraledutech/flow"
	"github.com/meikuraledutech/flow/api"
	"github.com/meikuraledutech/flow/config"
	"github.com/meikuraledutech/flow/memory"
	"github.com/meikuraledutech/flow/postgres"
	"github.com/meikuraledutech/flow/registry"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:          "server",
		Short:        "Serve flow projects and packages over HTTP",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "Config file path")
	cmd.SetContext(context.Background())
	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger := config.NewLogger(os.Stderr, cfg.Log)

	packages := registry.New(cfg.Packages.Folder, registry.WithLogger(logger))
	if err := packages.Load(); err != nil {
		return err
	}
	if cfg.Packages.Watch {
		go func() {
			if err := packages.Watch(ctx); err != nil {
				logger.Error("package watcher stopped", "error", err)
			}
		}()
	}

	var store flow.ProjectStore
	if cfg.Database.URL == "" {
		logger.Warn("database.url is not set, projects are kept in memory")
		store = memory.New()
	} else {
		pool, err := pgxpool.New(ctx, cfg.Database.URL)
		if err != nil {
			return err
		}
		defer pool.Close()

		pg := postgres.New(pool)
		if err := pg.CreateSchema(ctx); err != nil {
			return err
		}
		store = pg
	}

	app := api.New(store, packages, api.WithLogger(logger))

	go func() {
		<-ctx.Done()
		if err := app.Shutdown(); err != nil {
			logger.Error("shutdown", "error", err)
		}
	}()

	logger.Info("listening", "addr", cfg.Server.Listen)
	return app.Listen(cfg.Server.Listen)
}
