// Package dictionary scores candidate corrections for a single word using
// edit distance, curated correction tables, domain tables and surrounding
// context.
//
// An [Engine] owns its tables and a [cache.Cache] of scored candidates.
// Tables are read-mostly: lookups share a read lock and only explicit
// additions or a reload take the write lock.
package dictionary

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/antzucaro/matchr"

	"github.com/MrWong99/typeassist/internal/cache"
	"github.com/MrWong99/typeassist/internal/phonetic"
	"github.com/MrWong99/typeassist/pkg/types"
)

// ErrInvalidWord is returned by mutating calls given an empty or unsafe word.
var ErrInvalidWord = errors.New("dictionary: invalid word")

// Config holds the scoring knobs of an [Engine].
type Config struct {
	MaxWordLength   int
	MaxSuggestions  int
	MaxEditDistance int

	// MinConfidence is the default threshold applied by [Engine.Suggest].
	MinConfidence float64

	ContextBoost float64
	DomainBoost  float64

	// FrequencyWeight and SimilarityWeight combine base confidence and
	// string similarity.
	FrequencyWeight  float64
	SimilarityWeight float64

	// BaseConfidence is used for vocabulary words that no curated entry
	// points at.
	BaseConfidence float64

	// LearnRatio is the similarity ratio above which [Engine.Learn] counts
	// an applied correction.
	LearnRatio float64

	CacheSize int
	CacheTTL  time.Duration
}

// DefaultConfig returns the stock scoring configuration.
func DefaultConfig() Config {
	return Config{
		MaxWordLength:    50,
		MaxSuggestions:   5,
		MaxEditDistance:  2,
		MinConfidence:    0.5,
		ContextBoost:     0.1,
		DomainBoost:      0.15,
		FrequencyWeight:  0.7,
		SimilarityWeight: 0.3,
		BaseConfidence:   0.8,
		LearnRatio:       0.6,
		CacheSize:        1000,
		CacheTTL:         60 * time.Minute,
	}
}

// Validate reports every invalid field.
func (c Config) Validate() error {
	var errs []error
	if c.MaxWordLength <= 0 {
		errs = append(errs, fmt.Errorf("max_word_length must be positive, got %d", c.MaxWordLength))
	}
	if c.MaxSuggestions <= 0 {
		errs = append(errs, fmt.Errorf("max_suggestions must be positive, got %d", c.MaxSuggestions))
	}
	if c.MaxEditDistance < 1 {
		errs = append(errs, fmt.Errorf("max_edit_distance must be at least 1, got %d", c.MaxEditDistance))
	}
	for name, v := range map[string]float64{
		"min_confidence":    c.MinConfidence,
		"context_boost":     c.ContextBoost,
		"domain_boost":      c.DomainBoost,
		"frequency_weight":  c.FrequencyWeight,
		"similarity_weight": c.SimilarityWeight,
		"base_confidence":   c.BaseConfidence,
		"learn_ratio":       c.LearnRatio,
	} {
		if v < 0 || v > 1 {
			errs = append(errs, fmt.Errorf("%s must be within [0, 1], got %v", name, v))
		}
	}
	return errors.Join(errs...)
}

// Suggestion is one scored candidate.
type Suggestion struct {
	Word           string  `json:"word"`
	BaseConfidence float64 `json:"base_confidence"`
	Similarity     float64 `json:"similarity"`
	DomainBoost    float64 `json:"domain_boost"`
	ContextBoost   float64 `json:"context_boost"`

	// Confidence is the final clamped score.
	Confidence float64 `json:"confidence"`

	// Exact is true for the word itself and for curated table hits.
	Exact bool `json:"exact"`

	// Source is CategoryDictionary or CategoryPhonetic.
	Source types.Category `json:"source"`
}

// Query parameterises [Engine.Lookup].
type Query struct {
	Word    string
	Context string
	Domain  string

	// MinConfidence drops weaker candidates. Zero keeps everything.
	MinConfidence float64

	// Phonetic adds sound-alike candidates beyond the edit distance limit.
	Phonetic bool

	// Limit caps the result. Zero means the configured max_suggestions.
	Limit int
}

// Option is a functional option for [New].
type Option func(*Engine)

// WithConfig replaces [DefaultConfig].
func WithConfig(cfg Config) Option {
	return func(e *Engine) { e.cfg = cfg }
}

// WithCache supplies the suggestion cache. Without it [New] creates one from
// the configured size and TTL.
func WithCache(c *cache.Cache[[]Suggestion]) Option {
	return func(e *Engine) { e.cache = c }
}

// WithPhoneticMatcher replaces the default phonetic matcher.
func WithPhoneticMatcher(m *phonetic.Matcher) Option {
	return func(e *Engine) { e.phonetic = m }
}

// Engine ranks correction candidates. All methods are safe for concurrent use.
type Engine struct {
	cfg      Config
	cache    *cache.Cache[[]Suggestion]
	phonetic *phonetic.Matcher

	mu        sync.RWMutex
	table     *Table
	custom    map[string]Entry
	userWords map[string]struct{}

	// Derived from table and userWords by reindexLocked.
	valid       map[string]struct{}
	reverse     map[string]map[string]struct{}
	base        map[string]float64
	domainVocab map[string]map[string]struct{}
	phonIndex   *phonetic.Index
}

// New builds an engine over a private copy of t. A nil t means
// [DefaultTable].
func New(t *Table, opts ...Option) (*Engine, error) {
	e := &Engine{cfg: DefaultConfig()}
	for _, o := range opts {
		o(e)
	}
	if err := e.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("dictionary: invalid config: %w", err)
	}
	if e.cache == nil {
		c, err := cache.New[[]Suggestion](e.cfg.CacheSize, e.cfg.CacheTTL)
		if err != nil {
			return nil, fmt.Errorf("dictionary: %w", err)
		}
		e.cache = c
	}
	if e.phonetic == nil {
		e.phonetic = phonetic.New()
	}
	if t == nil {
		t = DefaultTable()
	}
	e.table = t.Clone()
	e.custom = make(map[string]Entry)
	e.userWords = make(map[string]struct{})
	e.reindexLocked()
	return e, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() Config { return e.cfg }

// Cache exposes the suggestion cache for stats and janitor scheduling.
func (e *Engine) Cache() *cache.Cache[[]Suggestion] { return e.cache }

// reindexLocked rebuilds every derived index. Must be called with e.mu held
// for writing, or before e is shared.
func (e *Engine) reindexLocked() {
	valid := make(map[string]struct{}, len(e.table.Words)+len(e.table.Frequencies)+len(e.table.General))
	reverse := make(map[string]map[string]struct{})
	base := make(map[string]float64)
	domainVocab := make(map[string]map[string]struct{}, len(e.table.Domains))

	addTarget := func(variant string, ent Entry) {
		target := strings.ToLower(ent.Correction)
		valid[target] = struct{}{}
		if reverse[target] == nil {
			reverse[target] = make(map[string]struct{})
		}
		reverse[target][variant] = struct{}{}
		if ent.Confidence > base[target] {
			base[target] = ent.Confidence
		}
	}
	for w, ent := range e.table.General {
		addTarget(w, ent)
	}
	for name, d := range e.table.Domains {
		vocab := make(map[string]struct{}, len(d))
		for w, ent := range d {
			addTarget(w, ent)
			vocab[strings.ToLower(ent.Correction)] = struct{}{}
		}
		domainVocab[name] = vocab
	}
	for w := range e.table.Words {
		valid[w] = struct{}{}
	}
	for w := range e.table.Frequencies {
		valid[w] = struct{}{}
	}
	for w := range e.userWords {
		valid[w] = struct{}{}
	}

	words := make([]string, 0, len(valid))
	for w := range valid {
		words = append(words, w)
	}
	e.valid = valid
	e.reverse = reverse
	e.base = base
	e.domainVocab = domainVocab
	e.phonIndex = phonetic.NewIndex(words)
}

// IsValid reports whether word is a known, correctly spelled word.
func (e *Engine) IsValid(word string) bool {
	w := strings.ToLower(word)
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.valid[w]
	return ok
}

// Loaded reports whether the engine has any vocabulary.
func (e *Engine) Loaded() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.valid) > 0
}

// Size returns the number of curated corrections and known words.
func (e *Engine) Size() (corrections, words int) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	corrections = len(e.table.General)
	for _, d := range e.table.Domains {
		corrections += len(d)
	}
	return corrections, len(e.valid)
}

// Domains returns the names of the loaded domain tables.
func (e *Engine) Domains() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, 0, len(e.table.Domains))
	for name := range e.table.Domains {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Suggest returns up to max_suggestions candidates for word, best first,
// using the configured minimum confidence.
func (e *Engine) Suggest(word, context, domain string) []Suggestion {
	return e.Lookup(Query{Word: word, Context: context, Domain: domain, MinConfidence: e.cfg.MinConfidence})
}

// Lookup is the fully parameterised form of [Engine.Suggest]. Unsafe input
// yields nil.
func (e *Engine) Lookup(q Query) []Suggestion {
	word := strings.ToLower(strings.TrimSpace(q.Word))
	if err := CheckWord(word, e.cfg.MaxWordLength); err != nil {
		slog.Warn("dictionary: rejected input", "err", err)
		return nil
	}
	domain := strings.ToLower(strings.TrimSpace(q.Domain))
	flag := ""
	if q.Phonetic {
		flag = "phonetic"
	}
	key := cache.NewKey(word, domain, flag)

	e.mu.RLock()
	defer e.mu.RUnlock()

	cands, ok := e.cache.Get(key)
	if !ok {
		cands = e.candidatesLocked(word, domain, q.Phonetic)
		e.cache.Set(key, cands)
	}

	ctxWords := contextWords(q.Context)
	out := make([]Suggestion, 0, len(cands))
	for _, s := range cands {
		if len(ctxWords) > 0 && e.inContextLocked(s.Word, ctxWords) {
			s.ContextBoost = e.cfg.ContextBoost
			s.Confidence = clamp01(s.Confidence + s.ContextBoost)
		}
		if s.Confidence < q.MinConfidence {
			continue
		}
		out = append(out, s)
	}
	sortSuggestions(out, word)

	limit := q.Limit
	if limit <= 0 {
		limit = e.cfg.MaxSuggestions
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// candidatesLocked scores every candidate for word before context and
// thresholds are applied. Must be called with e.mu held.
func (e *Engine) candidatesLocked(word, domain string, withPhonetic bool) []Suggestion {
	found := make(map[string]Suggestion)
	put := func(s Suggestion) {
		s.Confidence = e.score(s)
		if old, ok := found[s.Word]; !ok || s.Confidence > old.Confidence {
			found[s.Word] = s
		}
	}

	if _, ok := e.valid[word]; ok {
		put(Suggestion{Word: word, BaseConfidence: 1, Similarity: 1, Exact: true, Source: types.CategoryDictionary})
	}
	if domain != "" {
		if ent, ok := e.table.Domains[domain][word]; ok {
			put(Suggestion{
				Word:           ent.Correction,
				BaseConfidence: ent.Confidence,
				Similarity:     1,
				DomainBoost:    e.cfg.DomainBoost,
				Exact:          true,
				Source:         types.CategoryDictionary,
			})
		}
	}
	if ent, ok := e.table.General[word]; ok {
		put(Suggestion{
			Word:           ent.Correction,
			BaseConfidence: ent.Confidence,
			Similarity:     1,
			Exact:          true,
			Source:         types.CategoryDictionary,
		})
	}

	wordLen := utf8.RuneCountInString(word)
	for v := range e.valid {
		if v == word || abs(utf8.RuneCountInString(v)-wordLen) > e.cfg.MaxEditDistance {
			continue
		}
		if matchr.Levenshtein(word, v) > e.cfg.MaxEditDistance {
			continue
		}
		s := Suggestion{
			Word:           v,
			BaseConfidence: e.baseLocked(v),
			Similarity:     Similarity(word, v),
			Source:         types.CategoryDictionary,
		}
		if _, ok := e.domainVocab[domain][v]; ok && domain != "" {
			s.DomainBoost = e.cfg.DomainBoost
		}
		put(s)
	}

	if withPhonetic {
		for _, m := range e.phonetic.Rank(word, e.phonIndex, e.cfg.MaxSuggestions) {
			if _, ok := found[m.Word]; ok {
				continue
			}
			put(Suggestion{
				Word:           m.Word,
				BaseConfidence: e.baseLocked(m.Word),
				Similarity:     m.Score,
				Source:         types.CategoryPhonetic,
			})
		}
	}

	out := make([]Suggestion, 0, len(found))
	for _, s := range found {
		out = append(out, s)
	}
	sortSuggestions(out, word)
	return out
}

func (e *Engine) baseLocked(word string) float64 {
	if b, ok := e.base[word]; ok {
		return b
	}
	return e.cfg.BaseConfidence
}

func (e *Engine) score(s Suggestion) float64 {
	return clamp01(e.cfg.FrequencyWeight*s.BaseConfidence +
		e.cfg.SimilarityWeight*s.Similarity +
		s.DomainBoost + s.ContextBoost)
}

// inContextLocked reports whether candidate, or a variant that maps to it,
// appears among the context words.
func (e *Engine) inContextLocked(candidate string, ctxWords map[string]struct{}) bool {
	c := strings.ToLower(candidate)
	if _, ok := ctxWords[c]; ok {
		return true
	}
	for v := range e.reverse[c] {
		if _, ok := ctxWords[v]; ok {
			return true
		}
	}
	return false
}

func contextWords(context string) map[string]struct{} {
	if strings.TrimSpace(context) == "" {
		return nil
	}
	fields := strings.Fields(Sanitize(context))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

// sortSuggestions orders by confidence, with the queried word itself first
// among equals, then exact hits, then alphabetically.
func sortSuggestions(s []Suggestion, word string) {
	sort.SliceStable(s, func(i, j int) bool {
		a, b := s[i], s[j]
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if (a.Word == word) != (b.Word == word) {
			return a.Word == word
		}
		if a.Exact != b.Exact {
			return a.Exact
		}
		return a.Word < b.Word
	})
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// AddCorrection inserts or overwrites the curated correction for word and
// invalidates its cached suggestions. When correction is a new word the
// whole cache is cleared, since it may now appear as a candidate anywhere.
func (e *Engine) AddCorrection(word, correction string, confidence float64) error {
	word = strings.ToLower(strings.TrimSpace(word))
	correction = strings.TrimSpace(correction)
	if err := CheckWord(word, e.cfg.MaxWordLength); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidWord, err)
	}
	if err := CheckWord(correction, e.cfg.MaxWordLength); err != nil {
		return fmt.Errorf("%w: correction: %w", ErrInvalidWord, err)
	}
	ent := Entry{Correction: correction, Confidence: clamp01(confidence)}

	e.mu.Lock()
	defer e.mu.Unlock()

	_, known := e.valid[strings.ToLower(correction)]
	e.table.General[word] = ent
	e.custom[word] = ent
	e.reindexLocked()

	if known {
		e.invalidateLocked(word)
	} else {
		e.cache.Clear()
	}
	slog.Debug("dictionary: correction added", "word", word, "correction", correction)
	return nil
}

// AddWord marks word as correctly spelled.
func (e *Engine) AddWord(word string) error {
	word = strings.ToLower(strings.TrimSpace(word))
	if err := CheckWord(word, e.cfg.MaxWordLength); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidWord, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.userWords[word]; ok {
		return nil
	}
	e.userWords[word] = struct{}{}
	if _, known := e.valid[word]; known {
		return nil
	}
	e.reindexLocked()
	e.cache.Clear()
	return nil
}

// invalidateLocked drops every cached candidate list for word.
func (e *Engine) invalidateLocked(word string) {
	e.cache.DeleteFunc(func(k cache.Key) bool { return k.First() == word })
}

// Replace swaps in a freshly loaded table. Runtime additions made through
// [Engine.AddCorrection] and [Engine.AddWord] survive the swap.
func (e *Engine) Replace(t *Table) {
	next := t.Clone()
	e.mu.Lock()
	defer e.mu.Unlock()

	for w, ent := range e.custom {
		next.General[w] = ent
	}
	for w, n := range e.table.Frequencies {
		if n > next.Frequencies[w] {
			next.Frequencies[w] = n
		}
	}
	e.table = next
	e.reindexLocked()
	e.cache.Clear()
}
