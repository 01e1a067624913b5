package pattern

import (
	"fmt"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	aho "github.com/anknown/ahocorasick"
)

// PhraseHit is one phrase match inside a text. Start and End are rune offsets
// into the original text, End exclusive.
type PhraseHit struct {
	Start       int
	End         int
	Original    string
	Replacement string
}

// PhraseMatcher finds multi-word slips such as "could of" in one pass over
// the text using an Aho-Corasick automaton.
type PhraseMatcher struct {
	machine *aho.Machine
	phrases map[string]string
}

// NewPhraseMatcher compiles phrases (lowercase misspelling → correction). An
// empty map yields a matcher that never matches.
func NewPhraseMatcher(phrases map[string]string) (*PhraseMatcher, error) {
	pm := &PhraseMatcher{phrases: make(map[string]string, len(phrases))}
	if len(phrases) == 0 {
		return pm, nil
	}

	keys := make([]string, 0, len(phrases))
	for k, v := range phrases {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		pm.phrases[k] = v
		keys = append(keys, k)
	}
	slices.Sort(keys)
	keys = slices.Compact(keys)

	dict := make([][]rune, len(keys))
	for i, k := range keys {
		dict[i] = []rune(k)
	}
	m := new(aho.Machine)
	if err := m.Build(dict); err != nil {
		return nil, fmt.Errorf("pattern: build phrase automaton: %w", err)
	}
	pm.machine = m
	return pm, nil
}

// Find returns the non-overlapping phrase matches in text, ordered by start.
// Matches must sit on word boundaries. Where two matches overlap, the earlier
// one wins, then the longer one. Text that is not valid UTF-8 has no matches.
func (pm *PhraseMatcher) Find(text string) []PhraseHit {
	if pm == nil || pm.machine == nil || text == "" || !utf8.ValidString(text) {
		return nil
	}
	orig := []rune(text)
	lower := make([]rune, len(orig))
	for i, r := range orig {
		lower[i] = unicode.ToLower(r)
	}

	terms := pm.machine.MultiPatternSearch(lower, false)
	if len(terms) == 0 {
		return nil
	}
	matched := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		matched[string(t.Word)] = struct{}{}
	}

	var hits []PhraseHit
	for phrase := range matched {
		p := []rune(phrase)
		for i := 0; i+len(p) <= len(lower); i++ {
			if !slices.Equal(lower[i:i+len(p)], p) || !isBoundary(lower, i-1) || !isBoundary(lower, i+len(p)) {
				continue
			}
			hits = append(hits, PhraseHit{
				Start:       i,
				End:         i + len(p),
				Original:    string(orig[i : i+len(p)]),
				Replacement: pm.phrases[phrase],
			})
		}
	}

	slices.SortFunc(hits, func(a, b PhraseHit) int {
		if a.Start != b.Start {
			return a.Start - b.Start
		}
		return b.End - a.End
	})
	out := hits[:0]
	end := -1
	for _, h := range hits {
		if h.Start < end {
			continue
		}
		out = append(out, h)
		end = h.End
	}
	return out
}

// Apply replaces every phrase found by [PhraseMatcher.Find] and returns the
// rewritten text together with the hits, whose offsets refer to the input.
func (pm *PhraseMatcher) Apply(text string) (string, []PhraseHit) {
	hits := pm.Find(text)
	if len(hits) == 0 {
		return text, nil
	}
	orig := []rune(text)
	var b strings.Builder
	b.Grow(len(text))
	last := 0
	for _, h := range hits {
		b.WriteString(string(orig[last:h.Start]))
		b.WriteString(MatchCase(h.Original, h.Replacement))
		last = h.End
	}
	b.WriteString(string(orig[last:]))
	return b.String(), hits
}

func isBoundary(text []rune, i int) bool {
	if i < 0 || i >= len(text) {
		return true
	}
	r := text[i]
	return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
}
