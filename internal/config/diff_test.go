package config_test

import (
	"slices"
	"testing"
	"time"

	"github.com/MrWong99/typeassist/internal/config"
)

func TestDiff_NoChanges(t *testing.T) {
	t.Parallel()
	cfg := config.Default()
	d := config.Diff(cfg, config.Default())
	if d.Changed() {
		t.Errorf("identical configs reported changes: %+v", d)
	}
	if len(d.RestartRequired) != 0 {
		t.Errorf("RestartRequired = %v, want none", d.RestartRequired)
	}
}

func TestDiff_LogLevelChanged(t *testing.T) {
	t.Parallel()
	old := config.Default()
	new := config.Default()
	new.Server.LogLevel = config.LogDebug

	d := config.Diff(old, new)
	if !d.LogLevelChanged {
		t.Error("expected LogLevelChanged=true")
	}
	if d.NewLogLevel != config.LogDebug {
		t.Errorf("expected NewLogLevel=debug, got %q", d.NewLogLevel)
	}
	if d.ThresholdsChanged || d.EscalationChanged {
		t.Errorf("unrelated fields flagged: %+v", d)
	}
}

func TestDiff_ThresholdsChanged(t *testing.T) {
	t.Parallel()
	old := config.Default()
	new := config.Default()
	new.Correction.Thresholds.Medium = 0.9

	d := config.Diff(old, new)
	if !d.ThresholdsChanged {
		t.Fatal("expected ThresholdsChanged=true")
	}
	if d.NewThresholds.Medium != 0.9 {
		t.Errorf("NewThresholds = %+v", d.NewThresholds)
	}
}

func TestDiff_EscalationChanged(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"ratio", func(c *config.Config) { c.Correction.EscalationRatio = 0.6 }},
		{"min words", func(c *config.Config) { c.Correction.MinEscalationWords = 5 }},
		{"cooldown", func(c *config.Config) { c.Correction.Cooldown = time.Minute }},
		{"retries", func(c *config.Config) { c.Correction.MaxRetries = 1 }},
		{"request timeout", func(c *config.Config) { c.Correction.RequestTimeout = time.Second }},
		{"save delay", func(c *config.Config) { c.Correction.SaveDelay = time.Minute }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			new := config.Default()
			tt.mutate(new)
			if d := config.Diff(config.Default(), new); !d.EscalationChanged {
				t.Errorf("EscalationChanged=false after changing %s", tt.name)
			}
		})
	}
}

func TestDiff_RestartRequired(t *testing.T) {
	t.Parallel()
	old := config.Default()
	new := config.Default()
	new.Server.ListenAddr = ":9999"
	new.Cache.MaxSize = 10
	new.Keyboard.Layout = "azerty"
	new.Backend.Providers = []config.ProviderEntry{{Name: "openai", Model: "gpt-4o-mini"}}
	new.UserDictionary.Store = config.StoreFile

	d := config.Diff(old, new)
	if d.Changed() {
		t.Errorf("startup-only changes reported as hot-reloadable: %+v", d)
	}
	want := []string{"server.listen_addr", "cache", "keyboard", "backend", "user_dictionary"}
	if !slices.Equal(d.RestartRequired, want) {
		t.Errorf("RestartRequired = %v, want %v", d.RestartRequired, want)
	}
}
