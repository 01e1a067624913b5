package pattern

import "strings"

// RuleKind distinguishes the two families of substring rules.
type RuleKind int

const (
	// RuleLetterSwap covers transpositions and mirror-letter confusions
	// (ie/ei, b/d, p/q).
	RuleLetterSwap RuleKind = iota

	// RulePhonetic covers spelling-by-sound confusions (ph/f, tion/shun).
	RulePhonetic
)

// Rule is a literal substring replacement.
type Rule struct {
	Pattern     string
	Replacement string
	Kind        RuleKind
}

// PatternSet bundles the cognitive correction tables. The zero value is an
// empty set; use [DefaultPatternSet] for the built-in English tables.
type PatternSet struct {
	// Words maps a lowercase misspelling to its correction. Replacements keep
	// their own casing ("im" → "I'm").
	Words map[string]string

	// Rules are tried in order.
	Rules []Rule

	// Phrases maps lowercase multi-word misspellings to corrections. They are
	// matched on word boundaries by a [PhraseMatcher].
	Phrases map[string]string
}

// Lookup returns the whole-word substitution for word (case-insensitive).
func (p *PatternSet) Lookup(word string) (string, bool) {
	if p == nil || p.Words == nil {
		return "", false
	}
	r, ok := p.Words[strings.ToLower(word)]
	return r, ok
}

// DefaultPatternSet returns the built-in English tables. Each call returns a
// fresh copy that the caller may extend.
func DefaultPatternSet() *PatternSet {
	words := map[string]string{
		"teh": "the", "hte": "the", "adn": "and", "nad": "and",
		"taht": "that", "waht": "what", "wiht": "with", "nto": "not",
		"jsut": "just", "knwo": "know", "thier": "their", "freind": "friend",
		"recieve": "receive", "beleive": "believe", "wierd": "weird",
		"wich": "which", "becuase": "because", "definately": "definitely",
		"seperate": "separate", "occured": "occurred", "untill": "until",
		"alot": "a lot",
		"cant": "can't", "dont": "don't", "didnt": "didn't", "wouldnt": "wouldn't",
		"couldnt": "couldn't", "shouldnt": "shouldn't", "im": "I'm",
		"youre": "you're", "theyre": "they're", "weve": "we've",
		"thats": "that's", "isnt": "isn't", "wasnt": "wasn't",
		"werent": "weren't", "hasnt": "hasn't", "havent": "haven't",
		"wont": "won't", "doesnt": "doesn't", "arent": "aren't",
	}
	rules := []Rule{
		{"ie", "ei", RuleLetterSwap},
		{"ei", "ie", RuleLetterSwap},
		{"b", "d", RuleLetterSwap},
		{"d", "b", RuleLetterSwap},
		{"p", "q", RuleLetterSwap},
		{"q", "p", RuleLetterSwap},
		{"shun", "tion", RulePhonetic},
		{"ph", "f", RulePhonetic},
		{"f", "ph", RulePhonetic},
		{"ck", "k", RulePhonetic},
		{"k", "ck", RulePhonetic},
		{"z", "s", RulePhonetic},
		{"s", "z", RulePhonetic},
		{"ur", "er", RulePhonetic},
	}
	phrases := map[string]string{
		"could of":                   "could have",
		"should of":                  "should have",
		"would of":                   "would have",
		"must of":                    "must have",
		"might of":                   "might have",
		"for all intensive purposes": "for all intents and purposes",
		"in tact":                    "intact",
	}
	return &PatternSet{Words: words, Rules: rules, Phrases: phrases}
}
