package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/MrWong99/typeassist/internal/pattern"
	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists the backend provider names that ship with
// typeassist. Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = []string{
	"openai", "anthropic", "ollama", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile",
}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r on top of [Default] and
// validates the result. An empty document yields the defaults.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.ShutdownTimeout < 0 {
		errs = append(errs, fmt.Errorf("server.shutdown_timeout must not be negative, got %s", cfg.Server.ShutdownTimeout))
	}

	// Cache
	if cfg.Cache.MaxSize <= 0 {
		errs = append(errs, fmt.Errorf("cache.max_size must be positive, got %d", cfg.Cache.MaxSize))
	}
	if cfg.Cache.TTL <= 0 {
		errs = append(errs, fmt.Errorf("cache.ttl must be positive, got %s", cfg.Cache.TTL))
	}
	if cfg.Cache.JanitorInterval < 0 {
		errs = append(errs, fmt.Errorf("cache.janitor_interval must not be negative, got %s", cfg.Cache.JanitorInterval))
	}

	// Dictionary
	if err := cfg.Dictionary.Engine(cfg.Cache).Validate(); err != nil {
		errs = append(errs, prefixed("dictionary", err))
	}
	if cfg.Dictionary.Watch && cfg.Dictionary.Dir == "" {
		errs = append(errs, errors.New("dictionary.watch requires dictionary.dir"))
	}

	// Keyboard
	if _, err := pattern.LayoutByName(cfg.Keyboard.Layout); err != nil {
		errs = append(errs, fmt.Errorf("keyboard.layout: %w", err))
	}

	// Correction; the cache limits were checked above.
	if cfg.Cache.MaxSize > 0 && cfg.Cache.TTL > 0 {
		if err := cfg.CorrectionConfig().Validate(); err != nil {
			errs = append(errs, prefixed("correction", err))
		}
	}

	// Backend
	seen := make(map[string]int, len(cfg.Backend.Providers))
	for i, p := range cfg.Backend.Providers {
		prefix := fmt.Sprintf("backend.providers[%d]", i)
		if p.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
			continue
		}
		key := p.Name + "/" + p.Model
		if prev, ok := seen[key]; ok {
			errs = append(errs, fmt.Errorf("%s %q is a duplicate of backend.providers[%d]", prefix, key, prev))
		}
		seen[key] = i
		validateProviderName(p.Name)
	}
	if cfg.Backend.Temperature < 0 || cfg.Backend.Temperature > 2 {
		errs = append(errs, fmt.Errorf("backend.temperature %.2f is out of range [0, 2]", cfg.Backend.Temperature))
	}
	if len(cfg.Backend.Providers) == 0 {
		slog.Warn("no backend providers configured; chunks that need a remote rewrite keep their local corrections")
	}

	// User dictionary
	ud := cfg.UserDictionary
	switch {
	case !ud.Store.IsValid():
		errs = append(errs, fmt.Errorf("user_dictionary.store %q is invalid; valid values: file, postgres, redis", ud.Store))
	case ud.Store == StoreFile && ud.Path == "":
		errs = append(errs, errors.New("user_dictionary.path is required when store is file"))
	case ud.Store == StorePostgres && ud.PostgresDSN == "":
		errs = append(errs, errors.New("user_dictionary.postgres_dsn is required when store is postgres"))
	case ud.Store == StoreRedis && ud.RedisAddr == "":
		errs = append(errs, errors.New("user_dictionary.redis_addr is required when store is redis"))
	case ud.Store == StoreNone:
		slog.Warn("user_dictionary.store is empty; learned words are lost on restart")
	}

	return errors.Join(errs...)
}

// prefixed qualifies every error joined in err with the section name.
func prefixed(section string, err error) error {
	var errs []error
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range j.Unwrap() {
			errs = append(errs, fmt.Errorf("%s.%w", section, e))
		}
		return errors.Join(errs...)
	}
	return fmt.Errorf("%s.%w", section, err)
}

// validateProviderName logs a warning if name is not one of
// [ValidProviderNames].
func validateProviderName(name string) {
	if slices.Contains(ValidProviderNames, name) {
		return
	}
	slog.Warn("unknown backend provider name; may be a typo or third-party provider",
		"name", name,
		"known", ValidProviderNames,
	)
}
