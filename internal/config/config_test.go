package config_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/MrWong99/typeassist/internal/config"
	"github.com/MrWong99/typeassist/pkg/provider/llm"
	"github.com/MrWong99/typeassist/pkg/provider/llm/mock"
)

// ── helpers ──────────────────────────────────────────────────────────────────

const sampleYAML = `
server:
  listen_addr: ":9090"
  log_level: debug

cache:
  max_size: 500
  ttl: 30m

dictionary:
  dir: ./dictionaries
  watch: true
  corrections_file: ./custom.tsv
  max_suggestions: 3

keyboard:
  layout: dvorak

correction:
  chunk_size: 1500
  workers: 8
  retry_delay: 250ms
  cooldown: 0s
  thresholds:
    medium: 0.8
    high: 0.6

backend:
  providers:
    - name: openai
      api_key: sk-test
      model: gpt-4o-mini
    - name: anthropic
      model: claude-3-5-haiku-latest
  circuit_breaker:
    max_failures: 2
    reset_timeout: 10s

user_dictionary:
  store: redis
  redis_addr: localhost:6379
`

func mustLoad(t *testing.T, src string) *config.Config {
	t.Helper()
	cfg, err := config.LoadFromReader(strings.NewReader(src))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	return cfg
}

// ── loading ──────────────────────────────────────────────────────────────────

func TestLoadFromReader_Valid(t *testing.T) {
	t.Parallel()
	cfg := mustLoad(t, sampleYAML)

	if cfg.Server.ListenAddr != ":9090" || cfg.Server.LogLevel != config.LogDebug {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Cache.MaxSize != 500 || cfg.Cache.TTL != 30*time.Minute {
		t.Errorf("cache = %+v", cfg.Cache)
	}
	if !cfg.Dictionary.Watch || cfg.Dictionary.MaxSuggestions != 3 {
		t.Errorf("dictionary = %+v", cfg.Dictionary)
	}
	// Unset knobs keep their defaults.
	if cfg.Dictionary.MaxEditDistance != 2 {
		t.Errorf("dictionary.max_edit_distance = %d, want default 2", cfg.Dictionary.MaxEditDistance)
	}
	if cfg.Keyboard.Layout != "dvorak" {
		t.Errorf("keyboard.layout = %q", cfg.Keyboard.Layout)
	}

	c := cfg.Correction
	if c.ChunkSize != 1500 || c.Workers != 8 || c.RetryDelay != 250*time.Millisecond || c.Cooldown != 0 {
		t.Errorf("correction = %+v", c)
	}
	if c.Thresholds.Medium != 0.8 || c.Thresholds.High != 0.6 || c.Thresholds.Maximum != 0 {
		t.Errorf("thresholds = %+v", c.Thresholds)
	}
	if c.MaxRetries != 3 {
		t.Errorf("correction.max_retries = %d, want default 3", c.MaxRetries)
	}

	if n := len(cfg.Backend.Providers); n != 2 {
		t.Fatalf("backend.providers has %d entries, want 2", n)
	}
	if p := cfg.Backend.Providers[0]; p.Name != "openai" || p.APIKey != "sk-test" || p.Model != "gpt-4o-mini" {
		t.Errorf("providers[0] = %+v", p)
	}
	if cb := cfg.Backend.CircuitBreaker; cb.MaxFailures != 2 || cb.ResetTimeout != 10*time.Second {
		t.Errorf("circuit_breaker = %+v", cb)
	}
	if ud := cfg.UserDictionary; ud.Store != config.StoreRedis || ud.RedisKey != "typeassist:user" {
		t.Errorf("user_dictionary = %+v", ud)
	}
}

func TestLoadFromReader_EmptyIsDefault(t *testing.T) {
	t.Parallel()
	cfg := mustLoad(t, "")
	want := config.Default()
	if cfg.Server != want.Server || cfg.Cache != want.Cache || cfg.Correction != want.Correction {
		t.Errorf("empty document = %+v, want defaults %+v", cfg, want)
	}
}

func TestLoadFromReader_UnknownField(t *testing.T) {
	t.Parallel()
	_, err := config.LoadFromReader(strings.NewReader("server:\n  listen_adr: \":1\"\n"))
	if err == nil {
		t.Fatal("expected error for unknown field, got nil")
	}
}

func TestLoadFromReader_BadDuration(t *testing.T) {
	t.Parallel()
	_, err := config.LoadFromReader(strings.NewReader("cache:\n  ttl: soon\n"))
	if err == nil {
		t.Fatal("expected error for malformed duration, got nil")
	}
}

func TestCorrectionConfig_UsesCacheSection(t *testing.T) {
	t.Parallel()
	cfg := mustLoad(t, sampleYAML)
	cc := cfg.CorrectionConfig()
	if cc.CacheSize != 500 || cc.CacheTTL != 30*time.Minute {
		t.Errorf("CorrectionConfig cache = %d/%s, want 500/30m", cc.CacheSize, cc.CacheTTL)
	}
	dc := cfg.Dictionary.Engine(cfg.Cache)
	if dc.CacheSize != 500 || dc.MaxSuggestions != 3 {
		t.Errorf("Engine() = %+v", dc)
	}
	if err := dc.Validate(); err != nil {
		t.Errorf("Engine().Validate: %v", err)
	}
}

// ── registry ─────────────────────────────────────────────────────────────────

func TestRegistry_UnknownLLM(t *testing.T) {
	t.Parallel()
	reg := config.NewRegistry()
	_, err := reg.CreateLLM(config.ProviderEntry{Name: "nonexistent"})
	if !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Errorf("expected ErrProviderNotRegistered, got %v", err)
	}
}

func TestRegistry_RegisteredLLM(t *testing.T) {
	t.Parallel()
	reg := config.NewRegistry()
	var got config.ProviderEntry
	reg.RegisterLLM("test-llm", func(e config.ProviderEntry) (llm.Provider, error) {
		got = e
		return &mock.Provider{}, nil
	})

	p, err := reg.CreateLLM(config.ProviderEntry{Name: "test-llm", Model: "m1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p == nil {
		t.Fatal("expected non-nil provider")
	}
	if got.Model != "m1" {
		t.Errorf("factory received %+v", got)
	}
	if _, err := p.Complete(context.Background(), llm.CompletionRequest{}); err != nil {
		t.Errorf("Complete: %v", err)
	}
}

func TestRegistry_FactoryError(t *testing.T) {
	t.Parallel()
	reg := config.NewRegistry()
	boom := errors.New("factory failed")
	reg.RegisterLLM("broken", func(config.ProviderEntry) (llm.Provider, error) {
		return nil, boom
	})

	if _, err := reg.CreateLLM(config.ProviderEntry{Name: "broken"}); !errors.Is(err, boom) {
		t.Errorf("err = %v, want factory error", err)
	}
}

func TestRegistry_Names(t *testing.T) {
	t.Parallel()
	reg := config.NewRegistry()
	for _, n := range []string{"openai", "anthropic", "groq"} {
		reg.RegisterLLM(n, func(config.ProviderEntry) (llm.Provider, error) { return &mock.Provider{}, nil })
	}
	got := reg.Names()
	want := []string{"anthropic", "groq", "openai"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Names = %v, want %v", got, want)
	}
}
