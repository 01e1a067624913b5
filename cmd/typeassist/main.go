// Command typeassist is the entry point for the typeassist text-correction
// server and its one-shot CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/MrWong99/typeassist/internal/app"
	"github.com/MrWong99/typeassist/internal/config"
	"github.com/MrWong99/typeassist/pkg/provider/llm"
	"github.com/MrWong99/typeassist/pkg/provider/llm/anyllm"
	"github.com/MrWong99/typeassist/pkg/provider/llm/openai"
)

var (
	configPath string

	// cfg is loaded by the root command before any subcommand runs.
	cfg *config.Config

	// logLevel backs the default logger so a config reload can change it.
	logLevel = new(slog.LevelVar)
)

var rootCmd = &cobra.Command{
	Use:   "typeassist",
	Short: "Typing-assistant text correction engine",
	Long: `typeassist corrects typos, keyboard slips and phonetic misspellings with a
local dictionary and escalates badly garbled text to a remote LLM backend.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

		c, err := loadConfig(cmd, configPath)
		if err != nil {
			return err
		}
		cfg = c
		logLevel.Set(app.SlogLevel(cfg.Server.LogLevel))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the YAML configuration file")
}

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "typeassist: %v\n", err)
		return 1
	}
	return 0
}

// loadConfig reads the config file. A missing file falls back to the defaults
// unless --config was given explicitly.
func loadConfig(cmd *cobra.Command, path string) (*config.Config, error) {
	c, err := config.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		if cmd.Flags().Changed("config") {
			return nil, fmt.Errorf("config file %q not found, copy configs/example.yaml to get started", path)
		}
		slog.Debug("no config file, using defaults", "path", path)
		return config.Default(), nil
	}
	return c, err
}

// newApp builds the application from the loaded config.
func newApp(ctx context.Context) (*app.App, error) {
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	providers, err := buildProviders(cfg, reg)
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg, providers, app.WithLevelVar(logLevel))
}

// shutdown tears a down with a bounded deadline.
func shutdown(a *app.App) error {
	timeout := cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return a.Shutdown(ctx)
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// registerBuiltinProviders wires all built-in LLM factories into reg.
func registerBuiltinProviders(reg *config.Registry) {
	reg.RegisterLLM("openai", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []openai.Option
		if entry.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(entry.BaseURL))
		}
		if org := optString(entry.Options, "organization"); org != "" {
			opts = append(opts, openai.WithOrganization(org))
		}
		if t := optString(entry.Options, "timeout"); t != "" {
			d, err := time.ParseDuration(t)
			if err != nil {
				return nil, fmt.Errorf("openai: options.timeout: %w", err)
			}
			opts = append(opts, openai.WithTimeout(d))
		}
		return openai.New(entry.APIKey, entry.Model, opts...)
	})

	for _, name := range anyllm.Supported() {
		reg.RegisterLLM(name, func(entry config.ProviderEntry) (llm.Provider, error) {
			ac := anyllm.Config{Vendor: name, Model: entry.Model, APIKey: entry.APIKey, BaseURL: entry.BaseURL}
			if t := optString(entry.Options, "timeout"); t != "" {
				d, err := time.ParseDuration(t)
				if err != nil {
					return nil, fmt.Errorf("%s: options.timeout: %w", name, err)
				}
				ac.Timeout = d
			}
			return anyllm.New(ac)
		})
	}

	for _, name := range reg.Names() {
		slog.Debug("registered provider", "kind", "llm", "name", name)
	}
}

// buildProviders instantiates the configured backend providers in fallback
// order.
func buildProviders(cfg *config.Config, reg *config.Registry) (*app.Providers, error) {
	ps := &app.Providers{}
	for i, entry := range cfg.Backend.Providers {
		p, err := reg.CreateLLM(entry)
		if errors.Is(err, config.ErrProviderNotRegistered) {
			slog.Warn("unknown provider, skipping", "index", i, "name", entry.Name)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("create provider %q: %w", entry.Name, err)
		}
		ps.LLM = append(ps.LLM, app.NamedProvider{Name: entry.Name, LLM: p})
		slog.Info("provider created", "name", entry.Name, "model", entry.Model, "fallback", i > 0)
	}
	return ps, nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// optString extracts a string value from a provider Options map[string]any.
// Returns "" if the map is nil, the key is absent, or the value is not a string.
func optString(opts map[string]any, key string) string {
	s, _ := opts[key].(string)
	return s
}
