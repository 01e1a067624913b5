// Package app wires all typeassist subsystems into a running server.
//
// The App struct owns the full lifecycle: New loads the dictionary, opens the
// user dictionary store, builds the backend fallback chain and the
// orchestrator, Run serves HTTP and the background loops, and Shutdown tears
// everything down in order.
//
// For testing, inject doubles via functional options (WithUserStore,
// WithBackend). When an option is not provided, New creates real
// implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/typeassist/internal/api"
	"github.com/MrWong99/typeassist/internal/config"
	"github.com/MrWong99/typeassist/internal/correction"
	"github.com/MrWong99/typeassist/internal/dictionary"
	"github.com/MrWong99/typeassist/internal/health"
	"github.com/MrWong99/typeassist/internal/observe"
	"github.com/MrWong99/typeassist/internal/pattern"
	"github.com/MrWong99/typeassist/internal/resilience"
	"github.com/MrWong99/typeassist/internal/userdict"
	"github.com/MrWong99/typeassist/pkg/backend"
	"github.com/MrWong99/typeassist/pkg/backend/llmbackend"
	"github.com/MrWong99/typeassist/pkg/provider/llm"
)

// NamedProvider is one configured LLM provider, in fallback order.
type NamedProvider struct {
	Name string
	LLM  llm.Provider
}

// Providers holds the LLM providers built from the backend section. An empty
// list means no remote correction. Populated by main.go via the config
// registry.
type Providers struct {
	LLM []NamedProvider
}

// App owns all subsystem lifetimes.
type App struct {
	cfg       *config.Config
	providers *Providers

	// Subsystems, initialised in New and torn down in Shutdown.
	engine   *dictionary.Engine
	store    userdict.Store
	fallback *resilience.BackendFallback
	backend  backend.Backend
	orch     *correction.Orchestrator
	metrics  *observe.Metrics
	level    *slog.LevelVar
	server   *http.Server
	handler  http.Handler

	// closers are called in order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithUserStore injects a user dictionary store instead of creating one from
// config.
func WithUserStore(s userdict.Store) Option {
	return func(a *App) { a.store = s }
}

// WithBackend injects a correction backend instead of building the fallback
// chain from the providers.
func WithBackend(b backend.Backend) Option {
	return func(a *App) { a.backend = b }
}

// WithMetrics injects the metric instruments.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithLevelVar lets [App.ApplyConfig] change the level of the logger that
// main installed.
func WithLevelVar(v *slog.LevelVar) Option {
	return func(a *App) { a.level = v }
}

// ─── New ─────────────────────────────────────────────────────────────────────

// New creates an App by wiring all subsystems together. The providers struct
// comes from main.go (populated via the config registry).
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	if providers == nil {
		providers = &Providers{}
	}
	a := &App{
		cfg:       cfg,
		providers: providers,
	}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}

	// ── 1. Dictionary ────────────────────────────────────────────────────
	if err := a.initDictionary(); err != nil {
		return nil, fmt.Errorf("app: init dictionary: %w", err)
	}

	// ── 2. User dictionary store ─────────────────────────────────────────
	if err := a.initUserStore(ctx); err != nil {
		a.closeAll()
		return nil, fmt.Errorf("app: init user dictionary: %w", err)
	}

	// ── 3. Backend fallback chain ────────────────────────────────────────
	a.initBackend()

	// ── 4. Orchestrator ──────────────────────────────────────────────────
	if err := a.initOrchestrator(); err != nil {
		a.closeAll()
		return nil, fmt.Errorf("app: init orchestrator: %w", err)
	}

	// ── 5. HTTP ──────────────────────────────────────────────────────────
	a.initHTTP()

	return a, nil
}

// ─── Init helpers ────────────────────────────────────────────────────────────

// initDictionary loads the dictionary directory (or the built-in table) and
// the saved custom corrections.
func (a *App) initDictionary() error {
	dc := a.cfg.Dictionary
	var table *dictionary.Table
	if dc.Dir != "" {
		t, skipped, err := dictionary.LoadDir(dc.Dir)
		if err != nil {
			return err
		}
		if len(skipped) > 0 {
			slog.Warn("dictionary: some lines were skipped", "dir", dc.Dir, "count", len(skipped))
		}
		table = t
	}

	eng, err := dictionary.New(table, dictionary.WithConfig(dc.Engine(a.cfg.Cache)))
	if err != nil {
		return err
	}
	a.engine = eng

	if dc.CorrectionsFile != "" {
		n, err := eng.LoadCorrections(dc.CorrectionsFile)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return fmt.Errorf("load corrections: %w", err)
		default:
			slog.Info("restored custom corrections", "path", dc.CorrectionsFile, "count", n)
		}
	}

	corrections, words := eng.Size()
	slog.Info("dictionary loaded", "dir", dc.Dir, "corrections", corrections, "words", words, "domains", eng.Domains())
	return nil
}

// initUserStore opens the configured store, or uses the injected one, and
// restores the learned words from it.
func (a *App) initUserStore(ctx context.Context) error {
	if a.store == nil {
		s, err := a.openStore(ctx)
		if err != nil {
			return err
		}
		a.store = s
	}
	if a.store == nil {
		return nil
	}
	if err := userdict.Restore(ctx, a.store, a.engine); err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	words, _ := a.engine.UserData()
	slog.Info("user dictionary restored", "store", a.cfg.UserDictionary.Store, "words", len(words))
	return nil
}

func (a *App) openStore(ctx context.Context) (userdict.Store, error) {
	ud := a.cfg.UserDictionary
	switch ud.Store {
	case config.StoreFile:
		return userdict.NewFileStore(ud.Path), nil

	case config.StorePostgres:
		pool, err := userdict.OpenPool(ctx, ud.PostgresDSN)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() error {
			pool.Close()
			return nil
		})
		s := userdict.NewPostgresStore(pool)
		if err := s.Migrate(ctx); err != nil {
			return nil, err
		}
		return s, nil

	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     ud.RedisAddr,
			Password: ud.RedisPassword,
			DB:       ud.RedisDB,
		})
		a.closers = append(a.closers, client.Close)
		s := userdict.NewRedisStore(client, ud.RedisKey)
		if err := s.Ping(ctx); err != nil {
			return nil, err
		}
		return s, nil

	default:
		return nil, nil
	}
}

// initBackend wraps every provider in an LLM backend and chains them behind
// per-provider circuit breakers.
func (a *App) initBackend() {
	if a.backend != nil {
		return
	}
	bc := a.cfg.Backend
	for i, p := range a.providers.LLM {
		b := llmbackend.New(p.Name, p.LLM, llmbackend.WithTemperature(bc.Temperature))
		if i == 0 {
			a.fallback = resilience.NewBackendFallback(b, p.Name, resilience.FallbackConfig{
				CircuitBreaker: bc.CircuitBreaker,
			})
			continue
		}
		a.fallback.AddFallback(p.Name, b)
	}
	if a.fallback != nil {
		a.backend = a.fallback
		slog.Info("correction backends ready", "providers", len(a.providers.LLM))
	}
}

func (a *App) initOrchestrator() error {
	layout, err := pattern.LayoutByName(a.cfg.Keyboard.Layout)
	if err != nil {
		return err
	}
	opts := []correction.Option{
		correction.WithPatternCorrector(pattern.NewCorrector(layout, nil, a.engine)),
		correction.WithMetrics(a.metrics),
		correction.WithCorrectionsFile(a.cfg.Dictionary.CorrectionsFile),
	}
	if a.backend != nil {
		opts = append(opts, correction.WithBackend(a.backend))
	}
	if a.store != nil {
		opts = append(opts, correction.WithUserStore(a.store))
	}

	orch, err := correction.New(a.engine, a.cfg.CorrectionConfig(), opts...)
	if err != nil {
		return err
	}
	a.orch = orch
	return nil
}

// initHTTP assembles the API, health and metrics routes behind the
// observability middleware.
func (a *App) initHTTP() {
	checkers := []health.Checker{health.Dictionary(a.engine)}
	if a.fallback != nil {
		checkers = append(checkers, health.Backend(a.fallback))
	}
	if p, ok := a.store.(health.Pinger); ok {
		checkers = append(checkers, health.Store("user_dictionary", p))
	}

	mux := http.NewServeMux()
	api.New(a.orch).Register(mux)
	health.New(checkers...).Register(mux)
	mux.Handle("GET /metrics", observe.MetricsHandler())

	a.handler = observe.Middleware(a.metrics)(mux)
	a.server = &http.Server{
		Addr:              a.cfg.Server.ListenAddr,
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// ─── Accessors ───────────────────────────────────────────────────────────────

// Orchestrator returns the correction orchestrator, for in-process callers
// such as the CLI.
func (a *App) Orchestrator() *correction.Orchestrator { return a.orch }

// Handler returns the HTTP handler serving every route.
func (a *App) Handler() http.Handler { return a.handler }

// ─── Run ─────────────────────────────────────────────────────────────────────

// Run serves HTTP, sweeps the caches and watches the dictionary directory
// until ctx is cancelled. It returns ctx.Err() on a normal stop.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.server.Addr)
	if err != nil {
		return fmt.Errorf("app: listen %s: %w", a.server.Addr, err)
	}
	return a.Serve(ctx, ln)
}

// Serve is [App.Run] on an existing listener.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("http server listening", "addr", ln.Addr().String())
		if err := a.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("app: serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), a.shutdownTimeout())
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})

	if iv := a.cfg.Cache.JanitorInterval; iv > 0 {
		g.Go(func() error {
			a.orch.RunJanitor(gctx, iv)
			return nil
		})
	}
	if dc := a.cfg.Dictionary; dc.Watch && dc.Dir != "" {
		g.Go(func() error {
			if err := a.engine.Watch(gctx, dc.Dir, dc.WatchDebounce); err != nil {
				slog.Warn("dictionary watch stopped", "path", dc.Dir, "err", err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func (a *App) shutdownTimeout() time.Duration {
	if d := a.cfg.Server.ShutdownTimeout; d > 0 {
		return d
	}
	return 15 * time.Second
}

// ─── Hot reload ──────────────────────────────────────────────────────────────

// ApplyConfig applies the hot-reloadable part of a new config. It is meant
// as the callback of a [config.Watcher].
func (a *App) ApplyConfig(old, new *config.Config) {
	d := config.Diff(old, new)
	if d.LogLevelChanged && a.level != nil {
		a.level.Set(SlogLevel(d.NewLogLevel))
		slog.Info("log level changed", "level", d.NewLogLevel)
	}
	if d.ThresholdsChanged || d.EscalationChanged {
		if err := a.orch.UpdateConfig(new.CorrectionConfig()); err != nil {
			slog.Warn("config reload rejected", "err", err)
		} else {
			slog.Info("correction settings reloaded",
				"thresholds", d.ThresholdsChanged,
				"escalation", d.EscalationChanged,
			)
		}
	}
	if len(d.RestartRequired) > 0 {
		slog.Warn("config changes need a restart to take effect", "sections", d.RestartRequired)
	}
}

// SlogLevel converts a config log level.
func SlogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ─── Shutdown ────────────────────────────────────────────────────────────────

// Shutdown saves the user dictionary and tears down all subsystems. It
// respects the context deadline: if ctx expires before all closers finish,
// remaining closers are skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))

		if err := a.server.Shutdown(ctx); err != nil {
			slog.Warn("http shutdown error", "err", err)
		}
		if err := a.orch.Flush(ctx); err != nil {
			slog.Warn("failed to save user dictionary", "err", err)
		}

		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}

// closeAll releases whatever New opened before failing.
func (a *App) closeAll() {
	for _, closer := range a.closers {
		_ = closer()
	}
	a.closers = nil
}
