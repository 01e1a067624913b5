package correction

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/MrWong99/typeassist/internal/dictionary"
	"github.com/MrWong99/typeassist/internal/pattern"
	"github.com/MrWong99/typeassist/pkg/types"
)

const (
	phraseConfidence = 0.9
	remoteConfidence = 0.9
)

// patternConfidence is the confidence reported for a pattern-corrector fix.
func patternConfidence(c types.Category) float64 {
	switch c {
	case types.CategoryCommonWord:
		return 0.95
	case types.CategoryStuckKey:
		return 0.9
	case types.CategoryCognitive:
		return 0.8
	case types.CategoryAdjacentKey:
		return 0.75
	default:
		return 0.7
	}
}

// localStage runs the phrase matcher, the pattern corrector and the
// dictionary over one chunk. It never fails: anything it cannot handle is
// left as it was.
type localStage struct {
	corrector  *pattern.Corrector
	phrases    *pattern.PhraseMatcher
	dict       *dictionary.Engine
	maxWordLen int
}

// localOutcome is the result of [localStage.run]. Correction offsets are
// rune offsets into the chunk.
type localOutcome struct {
	Text        string
	Corrections []types.Correction

	// Words counts the words that were checked and Invalid those still
	// unknown after correction.
	Words   int
	Invalid int

	// Unsafe counts words left alone because they failed the safety check.
	// Words containing digits are skipped silently.
	Unsafe int
}

func (o localOutcome) changed() bool { return len(o.Corrections) > 0 }

// invalidRatio is the fraction of checked words that are still invalid.
func (o localOutcome) invalidRatio() float64 {
	if o.Words == 0 {
		return 0
	}
	return float64(o.Invalid) / float64(o.Words)
}

// isWordRune matches the word boundary rule of [pattern.PhraseMatcher].
func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\''
}

// run corrects text. Text that is not valid UTF-8 is returned byte for byte.
func (l *localStage) run(text, domain string, pol Policy, st Stages) localOutcome {
	if !utf8.ValidString(text) {
		return localOutcome{Text: text}
	}
	runes := []rune(text)
	var hits []pattern.PhraseHit
	if st.Pattern {
		hits = l.phrases.Find(text)
	}

	var (
		out localOutcome
		b   strings.Builder
	)
	b.Grow(len(text))

	for i := 0; i < len(runes); {
		if len(hits) > 0 && hits[0].Start == i {
			h := hits[0]
			hits = hits[1:]
			repl := pattern.MatchCase(h.Original, h.Replacement)
			b.WriteString(repl)
			out.Corrections = append(out.Corrections, types.Correction{
				Original:   h.Original,
				Suggestion: repl,
				Offset:     i,
				Category:   types.CategoryPhrase,
				Confidence: phraseConfidence,
			})
			i = h.End
			continue
		}
		if !isWordRune(runes[i]) {
			b.WriteRune(runes[i])
			i++
			continue
		}

		j := i
		for j < len(runes) && isWordRune(runes[j]) {
			j++
		}
		// Quotes written with apostrophes are not part of the word.
		s, e := i, j
		for s < e && runes[s] == '\'' {
			s++
		}
		for e > s && runes[e-1] == '\'' {
			e--
		}
		b.WriteString(string(runes[i:s]))
		if s < e {
			word := string(runes[s:e])
			final := l.word(word, text, domain, pol, st, s, &out)
			b.WriteString(final)
		}
		b.WriteString(string(runes[e:j]))
		i = j
	}

	out.Text = b.String()
	return out
}

// word corrects a single token at rune offset pos and updates the counters
// in out. It returns the text to emit.
func (l *localStage) word(word, context, domain string, pol Policy, st Stages, pos int, out *localOutcome) string {
	if strings.IndexFunc(word, unicode.IsDigit) >= 0 {
		return word
	}
	if err := dictionary.CheckWord(strings.ToLower(word), l.maxWordLen); err != nil {
		out.Unsafe++
		return word
	}

	final := word
	if repl, cat, conf, ok := l.correctWord(word, context, domain, pol, st); ok {
		final = repl
		out.Corrections = append(out.Corrections, types.Correction{
			Original:   word,
			Suggestion: repl,
			Offset:     pos,
			Category:   cat,
			Confidence: conf,
		})
	}

	out.Words++
	for _, f := range strings.Fields(final) {
		if !l.dict.IsValid(f) {
			out.Invalid++
			break
		}
	}
	return final
}

func (l *localStage) correctWord(word, context, domain string, pol Policy, st Stages) (string, types.Category, float64, bool) {
	if st.Pattern {
		var r pattern.Result
		if pol.ExactOnly {
			r = l.corrector.CorrectExact(word)
		} else {
			r = l.corrector.Correct(word)
		}
		// Fuzzy pattern fixes obey the same severity threshold as the
		// dictionary; a rejected fix falls through to it.
		if conf := patternConfidence(r.Category); r.Changed && r.Word != word && conf >= pol.MinConfidence {
			return r.Word, r.Category, conf, true
		}
	}

	if !st.Dictionary || l.dict.IsValid(word) {
		return word, 0, 0, false
	}
	sugg := l.dict.Lookup(dictionary.Query{
		Word:          word,
		Context:       context,
		Domain:        domain,
		MinConfidence: pol.MinConfidence,
		Phonetic:      pol.Phonetic,
		Limit:         1,
	})
	if len(sugg) == 0 {
		return word, 0, 0, false
	}
	best := sugg[0]
	if pol.ExactOnly && !best.Exact {
		return word, 0, 0, false
	}
	repl := pattern.MatchCase(word, best.Word)
	if repl == word {
		return word, 0, 0, false
	}
	return repl, best.Source, best.Confidence, true
}
