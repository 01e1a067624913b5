package pattern_test

import (
	"testing"

	"github.com/antzucaro/matchr"

	"github.com/MrWong99/typeassist/internal/pattern"
	"github.com/MrWong99/typeassist/pkg/types"
)

func wordSet(words ...string) pattern.Validator {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return pattern.ValidatorFunc(func(w string) bool { return set[w] })
}

func newTestCorrector() *pattern.Corrector {
	valid := wordSet("hello", "next", "the", "thing", "phone", "station", "cat", "dog", "letter")
	return pattern.NewCorrector(pattern.QWERTY(), pattern.DefaultPatternSet(), valid)
}

func TestCorrector_CorrectWord(t *testing.T) {
	t.Parallel()

	c := newTestCorrector()

	tests := []struct {
		name     string
		in       string
		want     string
		category types.Category
		changed  bool
	}{
		{"stuck key collapse", "helllo", "hello", types.CategoryStuckKey, true},
		{"adjacent stray key", "nexct", "next", types.CategoryAdjacentKey, true},
		{"adjacent substitution", "cst", "cat", types.CategoryAdjacentKey, true},
		{"long stuck run", "thhhhing", "thing", types.CategoryAdjacentKey, true},
		{"whole word table", "teh", "the", types.CategoryCommonWord, true},
		{"table keeps replacement casing", "im", "I'm", types.CategoryCommonWord, true},
		{"phonetic rule", "fone", "phone", types.CategoryCognitive, true},
		{"suffix rule", "stashun", "station", types.CategoryCognitive, true},
		{"legit double letter", "letter", "letter", 0, false},
		{"valid word untouched", "dog", "dog", 0, false},
		{"unknown collapse only", "zzzzq", "zzq", types.CategoryStuckKey, true},
		{"unknown untouched", "qzx", "qzx", 0, false},
		{"empty", "", "", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := c.Correct(tt.in)
			if got.Word != tt.want {
				t.Errorf("Correct(%q).Word = %q, want %q", tt.in, got.Word, tt.want)
			}
			if got.Changed != tt.changed {
				t.Errorf("Correct(%q).Changed = %v, want %v", tt.in, got.Changed, tt.changed)
			}
			if tt.changed && got.Category != tt.category {
				t.Errorf("Correct(%q).Category = %s, want %s", tt.in, got.Category, tt.category)
			}
		})
	}
}

func TestCorrector_Deterministic(t *testing.T) {
	t.Parallel()

	c := newTestCorrector()
	first := c.CorrectWord("nexct")
	for range 20 {
		if got := c.CorrectWord("nexct"); got != first {
			t.Fatalf("CorrectWord not deterministic: %q then %q", first, got)
		}
	}
}

func TestCorrector_PreservesCase(t *testing.T) {
	t.Parallel()

	c := newTestCorrector()
	tests := map[string]string{
		"Teh":    "The",
		"TEH":    "THE",
		"Helllo": "Hello",
		"NEXCT":  "NEXT",
	}
	for in, want := range tests {
		if got := c.CorrectWord(in); got != want {
			t.Errorf("CorrectWord(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCorrector_CorrectExactIgnoresFuzzyStages(t *testing.T) {
	t.Parallel()

	c := newTestCorrector()
	if got := c.CorrectExact("teh"); got.Word != "the" || !got.Changed {
		t.Errorf("CorrectExact(teh) = %+v, want the", got)
	}
	if got := c.CorrectExact("helllo"); got.Changed {
		t.Errorf("CorrectExact(helllo) changed the word to %q", got.Word)
	}
	if got := c.CorrectExact("nexct"); got.Changed {
		t.Errorf("CorrectExact(nexct) changed the word to %q", got.Word)
	}
}

func TestCorrector_CandidatesAreOneEditAway(t *testing.T) {
	t.Parallel()

	c := newTestCorrector()
	for _, word := range []string{"nexct", "hello", "qwerty", "a", "zz", "keyboard"} {
		cands := c.Candidates(word)
		if len(cands) == 0 {
			t.Errorf("Candidates(%q) is empty", word)
		}
		seen := make(map[string]bool)
		for _, cand := range cands {
			if d := matchr.Levenshtein(word, cand.Word); d != 1 {
				t.Errorf("levenshtein(%q, %q) = %d, want 1", word, cand.Word, d)
			}
			if seen[cand.Word] {
				t.Errorf("Candidates(%q) repeats %q", word, cand.Word)
			}
			seen[cand.Word] = true
		}
	}
}

func TestCorrector_DeletesOnlyStrayKeys(t *testing.T) {
	t.Parallel()

	c := pattern.NewCorrector(pattern.QWERTY(), pattern.DefaultPatternSet(), wordSet("read", "at", "cat"))

	tests := []struct {
		word     string
		excluded string
	}{
		{"bread", "read"},
		{"mat", "at"},
		{"cat", "at"},
		{"cart", "crt"},
	}
	for _, tt := range tests {
		for _, cand := range c.Candidates(tt.word) {
			if cand.Op == pattern.OpDelete && cand.Word == tt.excluded {
				t.Errorf("Candidates(%q) deletes a non-stray rune to get %q", tt.word, tt.excluded)
			}
		}
	}

	for in, want := range map[string]string{
		"bread": "bread",
		"mat":   "mat",
		"catt":  "cat",
		"caft":  "cat",
	} {
		if got := c.CorrectWord(in); got != want {
			t.Errorf("CorrectWord(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCorrector_NilValidator(t *testing.T) {
	t.Parallel()

	c := pattern.NewCorrector(nil, nil, nil)
	if c.Layout().Name() != "qwerty" {
		t.Errorf("default layout = %q, want qwerty", c.Layout().Name())
	}
	if got := c.CorrectWord("teh"); got != "the" {
		t.Errorf("CorrectWord(teh) = %q, want the", got)
	}
	if got := c.CorrectWord("nexct"); got != "nexct" {
		t.Errorf("CorrectWord(nexct) = %q with nothing valid, want unchanged", got)
	}
}

func TestCollapseRepeats(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"":         "",
		"hello":    "hello",
		"helllo":   "hello",
		"aaaa":     "aa",
		"sooooo":   "soo",
		"bookkeep": "bookkeep",
		"ÄÄÄb":     "ÄÄb",
	}
	for in, want := range tests {
		if got := pattern.CollapseRepeats(in); got != want {
			t.Errorf("CollapseRepeats(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMatchCase(t *testing.T) {
	t.Parallel()

	tests := []struct {
		orig, repl, want string
	}{
		{"teh", "the", "the"},
		{"Teh", "the", "The"},
		{"TEH", "the", "THE"},
		{"im", "I'm", "I'm"},
		{"I", "me", "Me"},
		{"", "x", "x"},
	}
	for _, tt := range tests {
		if got := pattern.MatchCase(tt.orig, tt.repl); got != tt.want {
			t.Errorf("MatchCase(%q, %q) = %q, want %q", tt.orig, tt.repl, got, tt.want)
		}
	}
}
