package config

import (
	"github.com/MrWong99/typeassist/internal/correction"
)

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked; everything else
// needs a restart.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	ThresholdsChanged bool
	NewThresholds     correction.Thresholds

	// EscalationChanged covers the escalation ratio and word minimum, the
	// remote call cooldown, the retry and timeout knobs and the user
	// dictionary save delay.
	EscalationChanged bool

	// RestartRequired lists the sections that changed but are only read at
	// startup.
	RestartRequired []string
}

// Changed reports whether any hot-reloadable setting differs.
func (d ConfigDiff) Changed() bool {
	return d.LogLevelChanged || d.ThresholdsChanged || d.EscalationChanged
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	// Log level
	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	oc, nc := old.Correction, new.Correction
	if oc.Thresholds != nc.Thresholds {
		d.ThresholdsChanged = true
		d.NewThresholds = nc.Thresholds
	}
	if oc.EscalationRatio != nc.EscalationRatio ||
		oc.MinEscalationWords != nc.MinEscalationWords ||
		oc.Cooldown != nc.Cooldown ||
		oc.MaxRetries != nc.MaxRetries ||
		oc.RetryDelay != nc.RetryDelay ||
		oc.CallTimeout != nc.CallTimeout ||
		oc.RequestTimeout != nc.RequestTimeout ||
		oc.SaveDelay != nc.SaveDelay {
		d.EscalationChanged = true
	}

	if old.Server.ListenAddr != new.Server.ListenAddr {
		d.RestartRequired = append(d.RestartRequired, "server.listen_addr")
	}
	if old.Cache != new.Cache {
		d.RestartRequired = append(d.RestartRequired, "cache")
	}
	if old.Dictionary != new.Dictionary {
		d.RestartRequired = append(d.RestartRequired, "dictionary")
	}
	if old.Keyboard != new.Keyboard {
		d.RestartRequired = append(d.RestartRequired, "keyboard")
	}
	if !sameProviders(old.Backend, new.Backend) {
		d.RestartRequired = append(d.RestartRequired, "backend")
	}
	if old.UserDictionary != new.UserDictionary {
		d.RestartRequired = append(d.RestartRequired, "user_dictionary")
	}

	return d
}

// sameProviders compares the backend sections, ignoring provider options.
func sameProviders(a, b BackendConfig) bool {
	if len(a.Providers) != len(b.Providers) ||
		a.Temperature != b.Temperature ||
		a.CircuitBreaker.MaxFailures != b.CircuitBreaker.MaxFailures ||
		a.CircuitBreaker.ResetTimeout != b.CircuitBreaker.ResetTimeout ||
		a.CircuitBreaker.HalfOpenMax != b.CircuitBreaker.HalfOpenMax {
		return false
	}
	for i := range a.Providers {
		pa, pb := a.Providers[i], b.Providers[i]
		if pa.Name != pb.Name || pa.Model != pb.Model || pa.BaseURL != pb.BaseURL || pa.APIKey != pb.APIKey {
			return false
		}
	}
	return true
}
