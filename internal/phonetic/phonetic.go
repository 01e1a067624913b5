// Package phonetic proposes spelling corrections for words typed by sound,
// such as "fonetik" for "phonetic", that lie beyond plain edit-distance reach.
//
// The algorithm proceeds in two stages:
//
//  1. Phonetic candidate filtering: Double Metaphone codes are computed for
//     the input and looked up in an [Index] built over the vocabulary. Every
//     vocabulary word sharing a code becomes a phonetic candidate.
//
//  2. Jaro-Winkler ranking: candidates scoring at least the phonetic
//     threshold are ranked by Jaro-Winkler similarity, case-insensitive.
//
//     When no phonetic candidate passes, a secondary pass tests pure
//     Jaro-Winkler similarity against the whole vocabulary using a higher
//     fuzzy threshold (default 0.85).
package phonetic

import (
	"sort"
	"strings"

	"github.com/antzucaro/matchr"
)

const (
	defaultPhoneticThreshold = 0.70
	defaultFuzzyThreshold    = 0.85
)

// Option is a functional option for configuring a [Matcher].
type Option func(*Matcher)

// WithPhoneticThreshold sets the minimum Jaro-Winkler score required for a
// phonetically-matched word to be accepted. Default: 0.70.
func WithPhoneticThreshold(threshold float64) Option {
	return func(m *Matcher) {
		m.phoneticThreshold = threshold
	}
}

// WithFuzzyThreshold sets the minimum Jaro-Winkler score required when no
// phonetic match is found. Default: 0.85.
func WithFuzzyThreshold(threshold float64) Option {
	return func(m *Matcher) {
		m.fuzzyThreshold = threshold
	}
}

// Match is one ranked candidate.
type Match struct {
	Word  string
	Score float64
	// Phonetic is true when the word shares a Double Metaphone code with the
	// input, false for a pure string-similarity match.
	Phonetic bool
}

// Index maps Double Metaphone codes to vocabulary words. It is read-only
// after [NewIndex] returns.
type Index struct {
	words  []string
	byCode map[string][]string
}

// NewIndex encodes every word of vocab. Words are lowercased and
// deduplicated.
func NewIndex(vocab []string) *Index {
	idx := &Index{byCode: make(map[string][]string, len(vocab))}
	seen := make(map[string]struct{}, len(vocab))
	for _, w := range vocab {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		idx.words = append(idx.words, w)
		for code := range codesFor(w) {
			idx.byCode[code] = append(idx.byCode[code], w)
		}
	}
	return idx
}

// Len returns the number of indexed words.
func (idx *Index) Len() int { return len(idx.words) }

// Matcher ranks vocabulary words by phonetic and string similarity.
// All methods are safe for concurrent use.
type Matcher struct {
	phoneticThreshold float64
	fuzzyThreshold    float64
}

// New returns a new [Matcher] configured with the supplied options.
func New(opts ...Option) *Matcher {
	m := &Matcher{
		phoneticThreshold: defaultPhoneticThreshold,
		fuzzyThreshold:    defaultFuzzyThreshold,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Rank returns up to n candidates for word from idx, best first. Phonetic
// candidates always rank above fuzzy ones; the fuzzy pass only runs when no
// phonetic candidate qualifies. The input word itself is never returned.
// n <= 0 returns every candidate.
func (m *Matcher) Rank(word string, idx *Index, n int) []Match {
	word = strings.ToLower(strings.TrimSpace(word))
	if word == "" || idx == nil || idx.Len() == 0 {
		return nil
	}

	seen := make(map[string]struct{})
	var out []Match
	for code := range codesFor(word) {
		for _, cand := range idx.byCode[code] {
			if cand == word {
				continue
			}
			if _, dup := seen[cand]; dup {
				continue
			}
			seen[cand] = struct{}{}
			if s := matchr.JaroWinkler(word, cand, false); s >= m.phoneticThreshold {
				out = append(out, Match{Word: cand, Score: s, Phonetic: true})
			}
		}
	}

	if len(out) == 0 {
		for _, cand := range idx.words {
			if cand == word {
				continue
			}
			if s := matchr.JaroWinkler(word, cand, false); s >= m.fuzzyThreshold {
				out = append(out, Match{Word: cand, Score: s})
			}
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Word < out[j].Word
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// Best returns the top candidate for word, if any.
func (m *Matcher) Best(word string, idx *Index) (Match, bool) {
	ranked := m.Rank(word, idx, 1)
	if len(ranked) == 0 {
		return Match{}, false
	}
	return ranked[0], true
}

// codesFor returns the non-empty Double Metaphone codes of word.
func codesFor(word string) map[string]struct{} {
	codes := make(map[string]struct{}, 2)
	p, s := matchr.DoubleMetaphone(word)
	if p != "" {
		codes[p] = struct{}{}
	}
	if s != "" {
		codes[s] = struct{}{}
	}
	return codes
}
