package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/MrWong99/typeassist/internal/config"
	"github.com/MrWong99/typeassist/internal/observe"
)

var watchConfig bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP correction server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "typeassist"})
		if err != nil {
			return err
		}
		defer func() {
			if err := otelShutdown(context.WithoutCancel(ctx)); err != nil {
				slog.Warn("telemetry shutdown error", "err", err)
			}
		}()

		slog.Info("typeassist starting",
			"config", configPath,
			"listen_addr", cfg.Server.ListenAddr,
			"log_level", cfg.Server.LogLevel,
			"providers", len(cfg.Backend.Providers),
			"user_dictionary", cfg.UserDictionary.Store,
		)

		application, err := newApp(ctx)
		if err != nil {
			return err
		}

		if watchConfig {
			w, err := config.NewWatcher(configPath, application.ApplyConfig)
			if err != nil {
				slog.Warn("config watch disabled", "path", configPath, "err", err)
			} else {
				go w.Run(ctx)
			}
		}

		slog.Info("server ready, press Ctrl+C to shut down")
		runErr := application.Run(ctx)
		if runErr != nil && !errors.Is(runErr, context.Canceled) {
			slog.Error("run error", "err", runErr)
		}

		slog.Info("shutdown signal received, stopping")
		if err := shutdown(application); err != nil {
			return err
		}
		slog.Info("goodbye")
		if errors.Is(runErr, context.Canceled) {
			return nil
		}
		return runErr
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().BoolVar(&watchConfig, "watch-config", true, "reload log level and correction settings when the config file changes")
}
