// Package userdict persists the user's custom words and word-usage
// frequencies between runs.
//
// Three backends are provided: a JSON file, a PostgreSQL table and a Redis
// set/hash pair. All of them store the same [UserDictionary] snapshot.
package userdict

import (
	"context"
	"maps"
	"slices"
	"strings"
)

// UserDictionary is the persisted user state. Its JSON form is
// {"words": [...], "frequencies": {...}}.
type UserDictionary struct {
	Words       []string       `json:"words"`
	Frequencies map[string]int `json:"frequencies"`
}

// New returns an empty dictionary with non-nil fields.
func New() *UserDictionary {
	return &UserDictionary{Words: []string{}, Frequencies: map[string]int{}}
}

// Normalize lowercases and deduplicates words, sorts them and drops
// non-positive frequencies.
func (d *UserDictionary) Normalize() {
	seen := make(map[string]struct{}, len(d.Words))
	words := make([]string, 0, len(d.Words))
	for _, w := range d.Words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		words = append(words, w)
	}
	slices.Sort(words)
	d.Words = words

	freqs := make(map[string]int, len(d.Frequencies))
	for w, n := range d.Frequencies {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" || n <= 0 {
			continue
		}
		if n > freqs[w] {
			freqs[w] = n
		}
	}
	d.Frequencies = freqs
}

// Equal reports whether d and other hold the same data after normalisation.
func (d *UserDictionary) Equal(other *UserDictionary) bool {
	if d == nil || other == nil {
		return d == other
	}
	return slices.Equal(d.Words, other.Words) && maps.Equal(d.Frequencies, other.Frequencies)
}

// Store loads and saves a [UserDictionary].
// Implementations must be safe for concurrent use.
type Store interface {
	// Load returns the stored dictionary, or an empty one when nothing has
	// been saved yet.
	Load(ctx context.Context) (*UserDictionary, error)

	// Save replaces the stored dictionary with d.
	Save(ctx context.Context, d *UserDictionary) error
}

// Source is anything that can hand out its user data, typically a
// dictionary engine.
type Source interface {
	UserData() (words []string, frequencies map[string]int)
}

// Target is anything that accepts restored user data.
type Target interface {
	LoadUserData(words []string, frequencies map[string]int)
}

// Restore loads the dictionary from s and feeds it into t.
func Restore(ctx context.Context, s Store, t Target) error {
	d, err := s.Load(ctx)
	if err != nil {
		return err
	}
	t.LoadUserData(d.Words, d.Frequencies)
	return nil
}

// Persist snapshots src and saves it to s.
func Persist(ctx context.Context, s Store, src Source) error {
	words, freqs := src.UserData()
	d := &UserDictionary{Words: words, Frequencies: freqs}
	d.Normalize()
	return s.Save(ctx, d)
}
