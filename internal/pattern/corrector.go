// Package pattern repairs typing errors that follow a recognisable shape:
// stuck keys, common whole-word slips, dyslexic letter swaps, phonetic
// spellings and fat-finger hits on a neighbouring key.
//
// A [Corrector] is a pure function of a word. It performs no I/O and returns
// the same output for the same input, so it is safe to share between
// goroutines once built.
package pattern

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/antzucaro/matchr"

	"github.com/MrWong99/typeassist/pkg/types"
)

// Validator reports whether a lowercase word is a known, correctly spelled word.
type Validator interface {
	IsValid(word string) bool
}

// ValidatorFunc adapts a plain function to [Validator].
type ValidatorFunc func(word string) bool

// IsValid implements [Validator].
func (f ValidatorFunc) IsValid(word string) bool { return f(word) }

// Op identifies the edit that produced a [Candidate].
type Op int

const (
	// OpSubstitute replaces one character with a keyboard neighbour.
	OpSubstitute Op = iota

	// OpDelete removes one stray keystroke: a rune that repeats its
	// neighbour or sits next to it on the keyboard.
	OpDelete
)

// Candidate is a single-edit variant of a word.
type Candidate struct {
	Word string
	// Pos is the rune index that was changed.
	Pos int
	Op  Op
}

// Result is the outcome of [Corrector.Correct].
type Result struct {
	Word     string
	Category types.Category
	Changed  bool
}

// Corrector applies the stuck-key, whole-word, cognitive-rule and adjacency
// stages in that order.
type Corrector struct {
	layout   *Layout
	patterns *PatternSet
	valid    Validator
}

// NewCorrector builds a corrector. A nil layout selects QWERTY and nil
// patterns select [DefaultPatternSet]. With a nil validator no word is
// considered valid, so only the stuck-key and whole-word stages can fire.
func NewCorrector(layout *Layout, patterns *PatternSet, valid Validator) *Corrector {
	if layout == nil {
		layout = QWERTY()
	}
	if patterns == nil {
		patterns = DefaultPatternSet()
	}
	if valid == nil {
		valid = ValidatorFunc(func(string) bool { return false })
	}
	return &Corrector{layout: layout, patterns: patterns, valid: valid}
}

// Layout returns the keyboard layout in use.
func (c *Corrector) Layout() *Layout { return c.layout }

// Patterns returns the pattern set in use.
func (c *Corrector) Patterns() *PatternSet { return c.patterns }

// CorrectWord returns the corrected form of word, or word itself.
func (c *Corrector) CorrectWord(word string) string {
	return c.Correct(word).Word
}

// Correct runs every stage on word and reports which one fired.
func (c *Corrector) Correct(word string) Result {
	unchanged := Result{Word: word}
	if word == "" {
		return unchanged
	}
	lower := strings.ToLower(word)

	collapsed := CollapseRepeats(lower)
	stuck := collapsed != lower

	if repl, ok := c.patterns.Lookup(collapsed); ok {
		return Result{Word: MatchCase(word, repl), Category: types.CategoryCommonWord, Changed: true}
	}

	if c.valid.IsValid(collapsed) {
		if stuck {
			return Result{Word: MatchCase(word, collapsed), Category: types.CategoryStuckKey, Changed: true}
		}
		return unchanged
	}

	for _, rule := range c.patterns.Rules {
		if !strings.Contains(collapsed, rule.Pattern) {
			continue
		}
		cand := strings.ReplaceAll(collapsed, rule.Pattern, rule.Replacement)
		if cand != collapsed && c.valid.IsValid(cand) {
			return Result{Word: MatchCase(word, cand), Category: types.CategoryCognitive, Changed: true}
		}
	}

	if best, ok := c.bestAdjacent(collapsed); ok {
		return Result{Word: MatchCase(word, best), Category: types.CategoryAdjacentKey, Changed: true}
	}

	if stuck {
		return Result{Word: MatchCase(word, collapsed), Category: types.CategoryStuckKey, Changed: true}
	}
	return unchanged
}

// CorrectExact applies only the whole-word substitution table. It backs the
// low severity level, which accepts nothing fuzzy.
func (c *Corrector) CorrectExact(word string) Result {
	if repl, ok := c.patterns.Lookup(word); ok {
		return Result{Word: MatchCase(word, repl), Category: types.CategoryCommonWord, Changed: true}
	}
	return Result{Word: word}
}

// bestAdjacent picks the valid candidate closest to word. Ties go to the
// earliest changed position, then to generation order.
func (c *Corrector) bestAdjacent(word string) (string, bool) {
	var (
		best     Candidate
		bestDist int
		found    bool
	)
	for _, cand := range c.Candidates(word) {
		if !c.valid.IsValid(cand.Word) {
			continue
		}
		d := matchr.Levenshtein(word, cand.Word)
		if !found || d < bestDist || (d == bestDist && cand.Pos < best.Pos) {
			best, bestDist, found = cand, d, true
		}
	}
	return best.Word, found
}

// Candidates returns every distinct single-edit variant of word: each rune
// swapped for each of its keyboard neighbours, then each stray rune removed.
// A rune counts as stray only when it equals or is keyboard-adjacent to the
// rune before or after it, so "catt" and "cart" can lose a letter but "bread"
// never becomes "read". Substitutions come first. Every candidate is at
// Levenshtein distance 1 from word.
func (c *Corrector) Candidates(word string) []Candidate {
	runes := []rune(strings.ToLower(word))
	seen := make(map[string]struct{})
	var out []Candidate

	add := func(w string, pos int, op Op) {
		if w == "" || w == string(runes) {
			return
		}
		if _, dup := seen[w]; dup {
			return
		}
		seen[w] = struct{}{}
		out = append(out, Candidate{Word: w, Pos: pos, Op: op})
	}

	buf := make([]rune, len(runes))
	for i, r := range runes {
		for _, adj := range c.layout.Adjacent(r) {
			copy(buf, runes)
			buf[i] = adj
			add(string(buf), i, OpSubstitute)
		}
	}
	if len(runes) > 1 {
		for i := range runes {
			if c.stray(runes, i) {
				add(string(runes[:i])+string(runes[i+1:]), i, OpDelete)
			}
		}
	}
	return out
}

// stray reports whether runes[i] looks like an extra keystroke next to the
// key that was meant.
func (c *Corrector) stray(runes []rune, i int) bool {
	r := runes[i]
	for _, j := range [2]int{i - 1, i + 1} {
		if j < 0 || j >= len(runes) {
			continue
		}
		if runes[j] == r || c.layout.IsAdjacent(r, runes[j]) {
			return true
		}
	}
	return false
}

// CollapseRepeats shortens every run of three or more identical runes to two.
// Legitimate doubles such as "ll" in "hello" are untouched.
func CollapseRepeats(s string) string {
	var (
		b    strings.Builder
		prev rune
		run  int
	)
	b.Grow(len(s))
	for _, r := range s {
		if r == prev {
			run++
		} else {
			prev, run = r, 1
		}
		if run <= 2 {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// MatchCase transfers the casing of original onto replacement. All-caps words
// stay all-caps and capitalised words stay capitalised. Otherwise the
// replacement keeps its own casing, which lets table entries such as "I'm"
// survive.
func MatchCase(original, replacement string) string {
	if original == "" || replacement == "" {
		return replacement
	}
	letters, upper := 0, 0
	for _, r := range original {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				upper++
			}
		}
	}
	if letters > 1 && upper == letters {
		return strings.ToUpper(replacement)
	}
	first, _ := utf8.DecodeRuneInString(original)
	if unicode.IsUpper(first) {
		r, size := utf8.DecodeRuneInString(replacement)
		return string(unicode.ToUpper(r)) + replacement[size:]
	}
	return replacement
}
