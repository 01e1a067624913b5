package dictionary

import (
	"maps"
	"sort"
	"strings"

	"github.com/antzucaro/matchr"
)

// Prediction is a word completion.
type Prediction struct {
	Word      string `json:"word"`
	Frequency int    `json:"frequency"`
}

// Predict returns up to n completions of prefix drawn from the frequency
// table and the user's words. Results are ordered by frequency, then by edit
// distance to the prefix. n <= 0 means the configured max_suggestions.
func (e *Engine) Predict(prefix string, n int) []Prediction {
	prefix = Sanitize(prefix)
	if n <= 0 {
		n = e.cfg.MaxSuggestions
	}

	e.mu.RLock()
	pool := make(map[string]int, len(e.table.Frequencies)+len(e.userWords))
	for w, f := range e.table.Frequencies {
		if strings.HasPrefix(w, prefix) {
			pool[w] = f
		}
	}
	for w := range e.userWords {
		if _, ok := pool[w]; !ok && strings.HasPrefix(w, prefix) {
			pool[w] = e.table.Frequencies[w]
		}
	}
	e.mu.RUnlock()

	out := make([]Prediction, 0, len(pool))
	dist := make(map[string]int, len(pool))
	for w, f := range pool {
		out = append(out, Prediction{Word: w, Frequency: f})
		dist[w] = matchr.Levenshtein(prefix, w)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Frequency != b.Frequency {
			return a.Frequency > b.Frequency
		}
		if dist[a.Word] != dist[b.Word] {
			return dist[a.Word] < dist[b.Word]
		}
		return a.Word < b.Word
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// Learn records that original was corrected to corrected. When the two are
// similar enough to be the same intended word, the frequency of corrected is
// incremented. It reports whether anything changed.
func (e *Engine) Learn(original, corrected string) bool {
	original = strings.ToLower(strings.TrimSpace(original))
	corrected = strings.ToLower(strings.TrimSpace(corrected))
	if original == "" || corrected == "" || original == corrected {
		return false
	}
	if Ratio(original, corrected) <= e.cfg.LearnRatio {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.table.Frequencies[corrected]++
	if _, ok := e.valid[corrected]; !ok {
		e.reindexLocked()
		e.cache.Clear()
	}
	return true
}

// Frequency returns the usage count of word.
func (e *Engine) Frequency(word string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.table.Frequencies[strings.ToLower(word)]
}

// UserData returns the user's custom words and the frequency table for
// persistence.
func (e *Engine) UserData() (words []string, frequencies map[string]int) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	words = make([]string, 0, len(e.userWords))
	for w := range e.userWords {
		words = append(words, w)
	}
	sort.Strings(words)
	return words, maps.Clone(e.table.Frequencies)
}

// LoadUserData merges persisted user words and frequencies. Frequencies keep
// the larger of the stored and current counts.
func (e *Engine) LoadUserData(words []string, frequencies map[string]int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if CheckWord(w, e.cfg.MaxWordLength) != nil {
			continue
		}
		e.userWords[w] = struct{}{}
	}
	for w, n := range frequencies {
		w = strings.ToLower(w)
		if n > e.table.Frequencies[w] {
			e.table.Frequencies[w] = n
		}
	}
	e.reindexLocked()
	e.cache.Clear()
}
