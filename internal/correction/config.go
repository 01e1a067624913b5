package correction

import (
	"errors"
	"fmt"
	"time"
)

// Config holds the orchestrator knobs. The zero value is not usable; start
// from [DefaultConfig].
type Config struct {
	// ChunkSize is the largest chunk, in runes.
	ChunkSize int `yaml:"chunk_size"`

	// BoundaryLookback is how far back from the chunk limit a sentence end
	// is searched for.
	BoundaryLookback int `yaml:"boundary_lookback"`

	// Workers bounds the number of chunks corrected in parallel.
	Workers int `yaml:"workers"`

	MaxRetries  int           `yaml:"max_retries"`
	RetryDelay  time.Duration `yaml:"retry_delay"`
	CallTimeout time.Duration `yaml:"call_timeout"`

	// RequestTimeout bounds a whole CorrectText call. Chunks not finished by
	// then are returned uncorrected.
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// Cooldown is the minimum spacing between remote calls.
	Cooldown time.Duration `yaml:"cooldown"`

	// EscalationRatio is the fraction of invalid words above which a chunk
	// is sent to the backend.
	EscalationRatio float64 `yaml:"escalation_ratio"`

	// MinEscalationWords keeps very short chunks local.
	MinEscalationWords int `yaml:"min_escalation_words"`

	MaxInputRunes int `yaml:"max_input_runes"`

	// SaveDelay is how long learned frequencies may wait before the user
	// dictionary is saved. Zero saves after every request that learned
	// something.
	SaveDelay time.Duration `yaml:"save_delay"`

	Thresholds Thresholds `yaml:"thresholds"`

	// CacheSize and CacheTTL size the chunk result cache.
	CacheSize int           `yaml:"-"`
	CacheTTL  time.Duration `yaml:"-"`
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() Config {
	return Config{
		ChunkSize:          2000,
		BoundaryLookback:   100,
		Workers:            4,
		MaxRetries:         3,
		RetryDelay:         time.Second,
		CallTimeout:        30 * time.Second,
		RequestTimeout:     120 * time.Second,
		Cooldown:           2 * time.Second,
		EscalationRatio:    0.4,
		MinEscalationWords: 3,
		MaxInputRunes:      100_000,
		SaveDelay:          10 * time.Second,
		Thresholds:         DefaultThresholds(),
		CacheSize:          1000,
		CacheTTL:           60 * time.Minute,
	}
}

// Validate reports every invalid field.
func (c Config) Validate() error {
	var errs []error
	positive := func(name string, v int) {
		if v <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", name, v))
		}
	}
	positiveDur := func(name string, d time.Duration) {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", name, d))
		}
	}
	positive("chunk_size", c.ChunkSize)
	positive("workers", c.Workers)
	positive("max_retries", c.MaxRetries)
	positive("max_input_runes", c.MaxInputRunes)
	positive("cache size", c.CacheSize)
	positiveDur("retry_delay", c.RetryDelay)
	positiveDur("call_timeout", c.CallTimeout)
	positiveDur("request_timeout", c.RequestTimeout)
	positiveDur("cache ttl", c.CacheTTL)
	if c.BoundaryLookback < 0 {
		errs = append(errs, fmt.Errorf("boundary_lookback must not be negative, got %d", c.BoundaryLookback))
	}
	if c.SaveDelay < 0 {
		errs = append(errs, fmt.Errorf("save_delay must not be negative, got %s", c.SaveDelay))
	}
	if c.Cooldown < 0 {
		errs = append(errs, fmt.Errorf("cooldown must not be negative, got %s", c.Cooldown))
	}
	if c.EscalationRatio < 0 || c.EscalationRatio > 1 {
		errs = append(errs, fmt.Errorf("escalation_ratio must be within [0, 1], got %v", c.EscalationRatio))
	}
	if c.MinEscalationWords < 0 {
		errs = append(errs, fmt.Errorf("min_escalation_words must not be negative, got %d", c.MinEscalationWords))
	}
	if err := c.Thresholds.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
