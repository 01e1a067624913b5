package dictionary

import (
	_ "embed"
	"maps"
	"strings"
)

// englishWords is the built-in vocabulary, one lowercase word per line.
//
//go:embed words_en.txt
var englishWords string

// Entry is a curated correction for one misspelling.
type Entry struct {
	Correction string
	Confidence float64
}

// Table is the raw word data an [Engine] scores against. An engine takes a
// private copy; a Table passed to [New] or [Engine.Replace] may be reused by
// the caller afterwards.
type Table struct {
	// General maps a lowercase misspelling to its correction.
	General map[string]Entry

	// Domains holds one table per named domain ("medical", "legal").
	Domains map[string]map[string]Entry

	// Words is a plain list of known-good words.
	Words map[string]struct{}

	// Frequencies counts word usage. It drives prediction and every key is
	// also a known-good word.
	Frequencies map[string]int
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{
		General:     make(map[string]Entry),
		Domains:     make(map[string]map[string]Entry),
		Words:       make(map[string]struct{}),
		Frequencies: make(map[string]int),
	}
}

// Clone returns a deep copy of t.
func (t *Table) Clone() *Table {
	c := NewTable()
	if t == nil {
		return c
	}
	maps.Copy(c.General, t.General)
	for name, d := range t.Domains {
		c.Domains[name] = maps.Clone(d)
	}
	maps.Copy(c.Words, t.Words)
	maps.Copy(c.Frequencies, t.Frequencies)
	return c
}

// Merge copies every entry of other into t, overwriting on conflict.
// Frequencies keep the larger count.
func (t *Table) Merge(other *Table) {
	if other == nil {
		return
	}
	maps.Copy(t.General, other.General)
	for name, d := range other.Domains {
		if t.Domains[name] == nil {
			t.Domains[name] = make(map[string]Entry, len(d))
		}
		maps.Copy(t.Domains[name], d)
	}
	maps.Copy(t.Words, other.Words)
	for w, n := range other.Frequencies {
		if n > t.Frequencies[w] {
			t.Frequencies[w] = n
		}
	}
}

// DefaultTable returns the built-in English data: a handful of very common
// typos, the embedded English word list and the seed frequency table used for prediction.
func DefaultTable() *Table {
	t := NewTable()
	for word, corr := range defaultCorrections {
		t.General[word] = Entry{Correction: corr, Confidence: 0.95}
	}
	words, _ := parseWords(strings.NewReader(englishWords), "words_en.txt")
	for _, w := range words {
		t.Words[w] = struct{}{}
	}
	maps.Copy(t.Frequencies, defaultFrequencies)
	return t
}

var defaultCorrections = map[string]string{
	"teh": "the", "hte": "the", "adn": "and", "taht": "that",
	"waht": "what", "wiht": "with", "jsut": "just", "knwo": "know",
	"thier": "their", "recieve": "receive", "beleive": "believe",
	"freind": "friend", "wierd": "weird", "becuase": "because",
	"definately": "definitely", "seperate": "separate", "occured": "occurred",
	"untill": "until", "wich": "which", "tommorow": "tomorrow",
	"goverment": "government", "enviroment": "environment",
	"accomodate": "accommodate", "neccessary": "necessary",
	"begining": "beginning", "calender": "calendar", "embarass": "embarrass",
	"existance": "existence", "independant": "independent",
	"occurence": "occurrence", "publically": "publicly", "truely": "truly",
}

var defaultFrequencies = map[string]int{
	"the": 100, "be": 90, "to": 80, "of": 70, "and": 60,
	"a": 50, "in": 40, "that": 30, "have": 20, "i": 10,
}
