package correction

import (
	"errors"
	"fmt"

	"github.com/MrWong99/typeassist/pkg/types"
)

// Thresholds are the minimum suggestion confidences accepted at each fuzzy
// severity level. Low severity has no threshold: it accepts exact matches
// only.
type Thresholds struct {
	Medium  float64 `yaml:"medium"`
	High    float64 `yaml:"high"`
	Maximum float64 `yaml:"maximum"`
}

// DefaultThresholds returns the stock severity thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{Medium: 0.85, High: 0.7, Maximum: 0}
}

// Validate checks that every threshold lies in [0, 1] and that higher
// severities never demand more confidence than lower ones.
func (t Thresholds) Validate() error {
	var errs []error
	for _, f := range []struct {
		name string
		v    float64
	}{{"medium", t.Medium}, {"high", t.High}, {"maximum", t.Maximum}} {
		if f.v < 0 || f.v > 1 {
			errs = append(errs, fmt.Errorf("thresholds.%s must be within [0, 1], got %v", f.name, f.v))
		}
	}
	if t.High > t.Medium {
		errs = append(errs, fmt.Errorf("thresholds.high (%v) must not exceed thresholds.medium (%v)", t.High, t.Medium))
	}
	if t.Maximum > t.High {
		errs = append(errs, fmt.Errorf("thresholds.maximum (%v) must not exceed thresholds.high (%v)", t.Maximum, t.High))
	}
	return errors.Join(errs...)
}

// Policy is what a severity level means for the local stages.
type Policy struct {
	// MinConfidence is the lowest dictionary confidence accepted.
	MinConfidence float64

	// ExactOnly restricts the pattern corrector to whole-word substitutions
	// and the dictionary to exact hits.
	ExactOnly bool

	// Phonetic enables sound-alike dictionary candidates.
	Phonetic bool
}

// For returns the policy for s. An unknown severity is treated as medium.
func (t Thresholds) For(s types.Severity) Policy {
	switch s {
	case types.SeverityLow:
		return Policy{ExactOnly: true}
	case types.SeverityHigh:
		return Policy{MinConfidence: t.High, Phonetic: true}
	case types.SeverityMaximum:
		return Policy{MinConfidence: t.Maximum, Phonetic: true}
	default:
		return Policy{MinConfidence: t.Medium}
	}
}

// Stages selects which correction stages run.
type Stages struct {
	Pattern    bool
	Dictionary bool
	Remote     bool
}

// StagesFor returns the stages that run for m. Grammar and clarity requests
// skip the dictionary: word-level suggestions are left to the backend, which
// sees the whole sentence.
func StagesFor(m types.Mode) Stages {
	switch m {
	case types.ModeSpelling, types.ModeComprehensive:
		return Stages{Pattern: true, Dictionary: true, Remote: true}
	case types.ModeGrammar, types.ModeClarity:
		return Stages{Pattern: true, Remote: true}
	default:
		return Stages{}
	}
}
