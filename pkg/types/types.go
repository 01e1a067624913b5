// Package types defines the shared types used across all typeassist packages.
//
// These types form the lingua franca between the correction orchestrator, the
// backends, and the HTTP API. Each package defines its own domain types; only
// cross-cutting data structures live here to avoid circular imports.
package types

import (
	"fmt"
	"strings"
)

// Mode selects which correction stages run for a request.
type Mode int

const (
	// ModeSpelling runs the pattern corrector and the dictionary engine.
	ModeSpelling Mode = iota

	// ModeGrammar runs the pattern corrector locally and relies on the backend
	// for grammatical rewrites.
	ModeGrammar

	// ModeClarity behaves like ModeGrammar but asks the backend to improve
	// readability as well.
	ModeClarity

	// ModeComprehensive runs every stage.
	ModeComprehensive
)

// String returns the lowercase name of the mode.
func (m Mode) String() string {
	switch m {
	case ModeSpelling:
		return "spelling"
	case ModeGrammar:
		return "grammar"
	case ModeClarity:
		return "clarity"
	case ModeComprehensive:
		return "comprehensive"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// IsValid reports whether m is one of the declared modes.
func (m Mode) IsValid() bool {
	return m >= ModeSpelling && m <= ModeComprehensive
}

// ParseMode converts a case-insensitive mode name into a [Mode].
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "spelling":
		return ModeSpelling, nil
	case "grammar":
		return ModeGrammar, nil
	case "clarity":
		return ModeClarity, nil
	case "comprehensive", "":
		return ModeComprehensive, nil
	}
	return 0, fmt.Errorf("types: unknown mode %q; valid values: spelling, grammar, clarity, comprehensive", s)
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(b []byte) error {
	v, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Severity controls how aggressively fuzzy suggestions are accepted.
type Severity int

const (
	// SeverityLow accepts exact table and cache matches only.
	SeverityLow Severity = iota

	// SeverityMedium accepts high-confidence fuzzy suggestions.
	SeverityMedium

	// SeverityHigh accepts moderately confident suggestions and enables
	// phonetic candidates.
	SeverityHigh

	// SeverityMaximum accepts the best available suggestion at any confidence.
	SeverityMaximum
)

// String returns the lowercase name of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityMaximum:
		return "maximum"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// IsValid reports whether s is one of the declared severities.
func (s Severity) IsValid() bool {
	return s >= SeverityLow && s <= SeverityMaximum
}

// ParseSeverity converts a case-insensitive severity name into a [Severity].
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return SeverityLow, nil
	case "medium", "":
		return SeverityMedium, nil
	case "high":
		return SeverityHigh, nil
	case "maximum", "max":
		return SeverityMaximum, nil
	}
	return 0, fmt.Errorf("types: unknown severity %q; valid values: low, medium, high, maximum", s)
}

// MarshalText implements encoding.TextMarshaler.
func (s Severity) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Severity) UnmarshalText(b []byte) error {
	v, err := ParseSeverity(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Category classifies how a [Correction] was produced.
type Category int

const (
	CategoryStuckKey Category = iota
	CategoryCommonWord
	CategoryCognitive
	CategoryPhrase
	CategoryAdjacentKey
	CategoryDictionary
	CategoryPhonetic
	CategoryRemote
)

// String returns the snake_case name of the category.
func (c Category) String() string {
	switch c {
	case CategoryStuckKey:
		return "stuck_key"
	case CategoryCommonWord:
		return "common_word"
	case CategoryCognitive:
		return "cognitive"
	case CategoryPhrase:
		return "phrase"
	case CategoryAdjacentKey:
		return "adjacent_key"
	case CategoryDictionary:
		return "dictionary"
	case CategoryPhonetic:
		return "phonetic"
	case CategoryRemote:
		return "remote"
	default:
		return fmt.Sprintf("category(%d)", int(c))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (c Category) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// ParseCategory converts a category name as produced by [Category.String]
// into a [Category].
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "stuck_key":
		return CategoryStuckKey, nil
	case "common_word":
		return CategoryCommonWord, nil
	case "cognitive":
		return CategoryCognitive, nil
	case "phrase":
		return CategoryPhrase, nil
	case "adjacent_key":
		return CategoryAdjacentKey, nil
	case "dictionary":
		return CategoryDictionary, nil
	case "phonetic":
		return CategoryPhonetic, nil
	case "remote":
		return CategoryRemote, nil
	}
	return 0, fmt.Errorf("types: unknown category %q", s)
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Category) UnmarshalText(b []byte) error {
	v, err := ParseCategory(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// Correction records a single substitution so that callers can render diffs.
type Correction struct {
	// Original is the span as it appeared in the input.
	Original string `json:"original"`

	// Suggestion is the replacement that was applied.
	Suggestion string `json:"suggestion"`

	// Offset is the rune offset of Original within the request text. A
	// remote rewrite covers a whole chunk: Original is the chunk and Offset
	// its start.
	Offset int `json:"offset"`

	// Category describes which stage produced the correction.
	Category Category `json:"category"`

	// Confidence is the producer's confidence in [0, 1].
	Confidence float64 `json:"confidence"`
}

// Request is the input to a correction run.
type Request struct {
	Text     string   `json:"text"`
	Mode     Mode     `json:"mode"`
	Severity Severity `json:"severity"`

	// Language is a human-readable language name passed to the backend.
	// Empty means "English".
	Language string `json:"language,omitempty"`

	// Domain optionally selects a domain dictionary (e.g. "medical").
	Domain string `json:"domain,omitempty"`
}

// BackendRequest is the slice of a [Request] that a correction backend sees:
// a single chunk plus the policy knobs.
type BackendRequest struct {
	Text     string
	Mode     Mode
	Severity Severity
	Language string
}
