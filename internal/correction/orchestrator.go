// Package correction turns raw text into corrected text. An [Orchestrator]
// splits the input into chunks, serves repeated chunks from a cache, fixes
// words locally with the pattern corrector and the dictionary, and escalates
// badly garbled chunks to a remote [backend.Backend] with retries.
//
// Remote calls are rate limited by a [RateGate]. Chunks that cannot go
// remote keep their local corrections. A request never fails because of a
// local stage.
package correction

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/typeassist/internal/cache"
	"github.com/MrWong99/typeassist/internal/dictionary"
	"github.com/MrWong99/typeassist/internal/observe"
	"github.com/MrWong99/typeassist/internal/pattern"
	"github.com/MrWong99/typeassist/internal/resilience"
	"github.com/MrWong99/typeassist/internal/userdict"
	"github.com/MrWong99/typeassist/pkg/backend"
	"github.com/MrWong99/typeassist/pkg/types"
)

const (
	defaultLanguage = "English"
	persistTimeout  = 5 * time.Second
)

// Orchestrator runs correction requests. All exported methods are safe for
// concurrent use.
type Orchestrator struct {
	cfg atomic.Pointer[Config]

	engine    *dictionary.Engine
	corrector *pattern.Corrector
	phrases   *pattern.PhraseMatcher
	local     localStage
	backend   backend.Backend
	gate      *RateGate

	chunks  *cache.Cache[ChunkEntry]
	tracker *cache.PatternTracker

	users           userdict.Store
	correctionsFile string

	// dirty is set when learning changed the user data since the last save.
	dirty     atomic.Bool
	saveMu    sync.Mutex
	saveTimer *time.Timer

	metrics *observe.Metrics
	now     func() time.Time
	sleep   resilience.SleepFunc

	requests       atomic.Int64
	corrections    atomic.Int64
	cacheHits      atomic.Int64
	remoteCalls    atomic.Int64
	remoteFailures atomic.Int64
}

// Option configures an [Orchestrator] during construction.
type Option func(*Orchestrator)

// WithBackend sets the remote correction backend. Without one, chunks that
// qualify for escalation keep their local corrections.
func WithBackend(b backend.Backend) Option {
	return func(o *Orchestrator) { o.backend = b }
}

// WithPatternCorrector replaces the default QWERTY corrector, which
// validates against the dictionary engine. Phrase corrections are taken from
// its pattern set unless [WithPhraseMatcher] is also given.
func WithPatternCorrector(c *pattern.Corrector) Option {
	return func(o *Orchestrator) { o.corrector = c }
}

// WithPhraseMatcher replaces the phrase matcher.
func WithPhraseMatcher(pm *pattern.PhraseMatcher) Option {
	return func(o *Orchestrator) { o.phrases = pm }
}

// WithClock replaces time.Now for the rate gate, caches and latency metrics.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// WithSleep replaces the backoff timer used between remote retries.
func WithSleep(sleep resilience.SleepFunc) Option {
	return func(o *Orchestrator) {
		if sleep != nil {
			o.sleep = sleep
		}
	}
}

// WithMetrics sets the metrics sink. The default is [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithUserStore persists learned frequencies and custom words. Learned
// frequencies are saved at most once per save_delay; custom words are saved
// immediately.
func WithUserStore(s userdict.Store) Option {
	return func(o *Orchestrator) { o.users = s }
}

// WithPatternTracker replaces the tracker of applied substitutions.
func WithPatternTracker(t *cache.PatternTracker) Option {
	return func(o *Orchestrator) { o.tracker = t }
}

// WithCache replaces the chunk result cache.
func WithCache(c *cache.Cache[ChunkEntry]) Option {
	return func(o *Orchestrator) { o.chunks = c }
}

// WithCorrectionsFile makes [Orchestrator.AddCustomWord] save the custom
// corrections to path.
func WithCorrectionsFile(path string) Option {
	return func(o *Orchestrator) { o.correctionsFile = path }
}

// New creates an orchestrator around engine.
func New(engine *dictionary.Engine, cfg Config, opts ...Option) (*Orchestrator, error) {
	if engine == nil {
		return nil, errors.New("correction: nil dictionary engine")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("correction: invalid config: %w", err)
	}

	o := &Orchestrator{
		engine: engine,
		now:    time.Now,
		sleep:  resilience.Sleep,
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.metrics == nil {
		o.metrics = observe.DefaultMetrics()
	}
	if o.corrector == nil {
		o.corrector = pattern.NewCorrector(nil, nil, engine)
	}
	if o.phrases == nil {
		pm, err := pattern.NewPhraseMatcher(o.corrector.Patterns().Phrases)
		if err != nil {
			return nil, fmt.Errorf("correction: %w", err)
		}
		o.phrases = pm
	}
	if o.chunks == nil {
		c, err := cache.New[ChunkEntry](cfg.CacheSize, cfg.CacheTTL, cache.WithClock(o.now))
		if err != nil {
			return nil, fmt.Errorf("correction: chunk cache: %w", err)
		}
		o.chunks = c
	}
	if o.tracker == nil {
		t, err := cache.NewPatternTracker(cfg.CacheSize, cfg.CacheTTL, cache.WithClock(o.now))
		if err != nil {
			return nil, fmt.Errorf("correction: pattern tracker: %w", err)
		}
		o.tracker = t
	}

	o.local = localStage{
		corrector:  o.corrector,
		phrases:    o.phrases,
		dict:       engine,
		maxWordLen: engine.Config().MaxWordLength,
	}
	o.gate = NewRateGate(cfg.Cooldown, o.now)
	o.cfg.Store(&cfg)
	return o, nil
}

// Config returns the configuration currently in effect.
func (o *Orchestrator) Config() Config { return *o.cfg.Load() }

// UpdateConfig swaps in cfg for subsequent requests. The cache size and TTL
// are fixed at construction and keep their current values.
func (o *Orchestrator) UpdateConfig(cfg Config) error {
	cur := o.cfg.Load()
	cfg.CacheSize, cfg.CacheTTL = cur.CacheSize, cur.CacheTTL
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("correction: invalid config: %w", err)
	}
	o.gate.SetCooldown(cfg.Cooldown)
	o.cfg.Store(&cfg)
	return nil
}

// job carries the per-request values shared by the chunk workers.
type job struct {
	req    types.Request
	cfg    Config
	policy Policy
	stages Stages

	// parent is the caller's context and deadline the request-scoped one
	// carrying request_timeout.
	parent   context.Context
	deadline context.Context
}

func (j *job) language() string {
	if l := strings.TrimSpace(j.req.Language); l != "" {
		return l
	}
	return defaultLanguage
}

// chunkResult is one worker's output.
type chunkResult struct {
	entry     ChunkEntry
	hit       bool
	cacheable bool
	learned   bool
	notes     []string
}

// CorrectText corrects req.Text.
//
// Blank text returns [ErrEmptyInput] and text longer than max_input_runes
// returns [ErrInputTooLarge]; both come with a Result that passes the input
// through unchanged. When the caller's ctx ends, the chunks finished so far
// are returned with state Cancelled together with ctx.Err(). A chunk whose
// remote call fails without any local correction to fall back on fails the
// whole request with state Failed.
func (o *Orchestrator) CorrectText(ctx context.Context, req types.Request) (*Result, error) {
	start := o.now()
	o.requests.Add(1)
	o.metrics.ActiveRequests.Add(ctx, 1)
	defer o.metrics.ActiveRequests.Add(ctx, -1)

	ctx, span := observe.StartSpan(ctx, observe.SpanCorrectText,
		trace.WithAttributes(
			observe.Attr("mode", req.Mode.String()),
			observe.Attr("severity", req.Severity.String()),
		),
	)
	defer span.End()

	res, err := o.correct(ctx, req, o.Config())
	o.metrics.RecordRequest(ctx, req.Mode.String(), res.State.String(), o.now().Sub(start))
	span.SetAttributes(observe.Attr("state", res.State.String()))
	return res, err
}

func (o *Orchestrator) correct(ctx context.Context, req types.Request, cfg Config) (*Result, error) {
	pass := &Result{CorrectedText: req.Text, Confidence: 1, Chunks: 1, State: StateDone}
	observe.Transition(ctx, StateReceived.String(), observe.Attr("mode", req.Mode.String()))
	if !req.Mode.IsValid() || !req.Severity.IsValid() {
		pass.State = StateFailed
		return pass, fmt.Errorf("%w: mode %s, severity %s", ErrInvalidRequest, req.Mode, req.Severity)
	}
	if strings.TrimSpace(req.Text) == "" {
		return pass, ErrEmptyInput
	}
	if n := utf8.RuneCountInString(req.Text); n > cfg.MaxInputRunes {
		pass.Notes = []string{fmt.Sprintf("input of %d runes exceeds the limit of %d, returned unchanged", n, cfg.MaxInputRunes)}
		return pass, fmt.Errorf("%w: %d runes exceeds limit of %d", ErrInputTooLarge, n, cfg.MaxInputRunes)
	}

	log := observe.Logger(ctx)
	chunks := Split(req.Text, cfg.ChunkSize, cfg.BoundaryLookback)
	observe.Transition(ctx, StateChunked.String(), attribute.Int("chunks", len(chunks)))

	deadline, cancel := context.WithTimeoutCause(ctx, cfg.RequestTimeout, errRequestTimeout)
	defer cancel()

	j := &job{
		req:      req,
		cfg:      cfg,
		policy:   cfg.Thresholds.For(req.Severity),
		stages:   StagesFor(req.Mode),
		parent:   ctx,
		deadline: deadline,
	}

	results := make([]chunkResult, len(chunks))
	for i, c := range chunks {
		results[i] = chunkResult{entry: ChunkEntry{Text: c.Text}}
	}

	g, gctx := errgroup.WithContext(deadline)
	g.SetLimit(cfg.Workers)
	for i, c := range chunks {
		g.Go(func() error {
			r, err := o.processChunk(gctx, j, i, c)
			results[i] = r
			return err
		})
	}
	err := g.Wait()

	res := assemble(chunks, results)
	observe.Transition(ctx, StateMerged.String(), attribute.Int("corrections", len(res.Corrections)))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			res.State = StateCancelled
			observe.Transition(ctx, res.State.String())
			log.Info("correction: request cancelled", "chunks", len(chunks))
			return res, ctxErr
		}
		res.State = StateFailed
		observe.Transition(ctx, res.State.String())
		log.Warn("correction: request failed", "err", err)
		return res, err
	}
	res.State = StateDone
	observe.Transition(ctx, res.State.String())

	learned := false
	for _, r := range results {
		if r.hit {
			o.cacheHits.Add(1)
		}
		learned = learned || r.learned
	}
	o.corrections.Add(int64(len(res.Corrections)))
	if learned {
		o.scheduleSave(ctx)
	}
	return res, nil
}

// assemble merges the chunk results in order and shifts every correction
// offset from chunk-relative to text-relative.
func assemble(chunks []Chunk, results []chunkResult) *Result {
	res := &Result{Chunks: len(chunks), CacheHit: true, State: StateMerged}
	outputs := make([]string, len(chunks))
	var sum float64
	for i, r := range results {
		outputs[i] = r.entry.Text
		if !r.hit {
			res.CacheHit = false
		}
		for _, c := range r.entry.Corrections {
			c.Offset += chunks[i].Offset
			res.Corrections = append(res.Corrections, c)
			sum += c.Confidence
		}
		res.Notes = append(res.Notes, r.notes...)
	}
	res.CorrectedText = Merge(chunks, outputs)
	res.Confidence = 1
	if n := len(res.Corrections); n > 0 {
		res.Confidence = sum / float64(n)
	}
	return res
}

// processChunk corrects one chunk. The returned result is always usable,
// even alongside an error.
func (o *Orchestrator) processChunk(ctx context.Context, j *job, idx int, c Chunk) (chunkResult, error) {
	res := chunkResult{entry: ChunkEntry{Text: c.Text}}
	if ctx.Err() != nil {
		return j.halt(ctx, idx, res, "left uncorrected")
	}

	observe.Transition(ctx, StateCacheCheck.String(), attribute.Int("chunk", idx))
	key := cache.NewKey(c.Text, j.req.Mode.String(), j.req.Severity.String(), j.language(), j.req.Domain)
	if e, ok := o.chunks.Get(key); ok {
		o.metrics.RecordCacheLookup(ctx, "chunk", true)
		res.entry, res.hit = e, true
		return res, nil
	}
	o.metrics.RecordCacheLookup(ctx, "chunk", false)

	observe.Transition(ctx, StateLocalCorrect.String(), attribute.Int("chunk", idx))
	local := o.local.run(c.Text, j.req.Domain, j.policy, j.stages)
	res.entry = ChunkEntry{Text: local.Text, Corrections: local.Corrections}
	res.cacheable = true
	if local.Unsafe > 0 {
		res.notes = append(res.notes, fmt.Sprintf("chunk %d: %d words failed the safety check and were left unchanged", idx, local.Unsafe))
	}
	for _, corr := range local.Corrections {
		o.metrics.RecordLocalCorrection(ctx, corr.Category.String())
	}

	if o.shouldEscalate(j, local) {
		if ctx.Err() != nil {
			res.cacheable = false
			return j.halt(ctx, idx, res, "kept local corrections")
		}
		if err := o.escalate(ctx, j, idx, c, local, &res); err != nil {
			return res, err
		}
	}

	res.learned = o.learn(res.entry.Corrections)
	if res.cacheable {
		o.chunks.Set(key, res.entry)
	}
	return res, nil
}

// halt ends a chunk whose context is done. Parent cancellation and sibling
// failures stop the request. The request deadline does not: the chunk keeps
// whatever it has, with a note.
func (j *job) halt(ctx context.Context, idx int, res chunkResult, what string) (chunkResult, error) {
	if err := j.parent.Err(); err != nil {
		return res, err
	}
	if errors.Is(context.Cause(j.deadline), errRequestTimeout) {
		res.notes = append(res.notes, fmt.Sprintf("chunk %d: request deadline passed, %s", idx, what))
		return res, nil
	}
	return res, ctx.Err()
}

func (o *Orchestrator) shouldEscalate(j *job, local localOutcome) bool {
	if !j.stages.Remote || local.Words < j.cfg.MinEscalationWords {
		return false
	}
	return local.invalidRatio() > j.cfg.EscalationRatio
}

// escalate sends the original chunk to the backend and replaces res.entry
// with the remote rewrite. It returns an error only when the request must
// fail.
func (o *Orchestrator) escalate(ctx context.Context, j *job, idx int, c Chunk, local localOutcome, res *chunkResult) error {
	log := observe.Logger(ctx)
	if o.backend == nil {
		o.metrics.RecordEscalation(ctx, "no_backend")
		return nil
	}
	release, ok := o.gate.TryAcquire()
	if !ok {
		res.cacheable = false
		o.metrics.RecordEscalation(ctx, "rate_limited")
		log.Debug("correction: remote call rate limited", "chunk", idx)
		return nil
	}
	defer release()
	o.metrics.RecordEscalation(ctx, "remote")
	observe.Transition(ctx, StateRemoteCorrect.String(), attribute.Int("chunk", idx))

	text, err := o.callRemote(ctx, j, c.Text)
	if ctx.Err() != nil {
		res.cacheable = false
		r, herr := j.halt(ctx, idx, *res, "kept local corrections")
		*res = r
		return herr
	}
	if err == nil {
		res.entry = ChunkEntry{Text: text}
		if text != c.Text {
			res.entry.Corrections = []types.Correction{{
				Original:   c.Text,
				Suggestion: text,
				Category:   types.CategoryRemote,
				Confidence: remoteConfidence,
			}}
		}
		return nil
	}

	o.remoteFailures.Add(1)
	if local.changed() {
		res.cacheable = false
		res.notes = append(res.notes, fmt.Sprintf("chunk %d: remote correction failed, kept local corrections: %v", idx, err))
		log.Warn("correction: remote correction failed, using local result", "chunk", idx, "err", err)
		return nil
	}
	return fmt.Errorf("correction: chunk %d: %w", idx, err)
}

// callRemote calls the backend with retries.
func (o *Orchestrator) callRemote(ctx context.Context, j *job, text string) (string, error) {
	ctx, span := observe.StartSpan(ctx, observe.SpanRemote)
	defer span.End()

	req := types.BackendRequest{
		Text:     text,
		Mode:     j.req.Mode,
		Severity: j.req.Severity,
		Language: j.language(),
	}
	rc := resilience.RetryConfig{
		MaxAttempts: j.cfg.MaxRetries,
		Delay:       j.cfg.RetryDelay,
		CallTimeout: j.cfg.CallTimeout,
		Sleep:       o.sleep,
		OnRetry: func(attempt int, err error) {
			o.metrics.RecordRetry(ctx)
			observe.Logger(ctx).Warn("correction: remote call failed, retrying", "attempt", attempt, "err", err)
		},
	}
	return resilience.Retry(ctx, rc, func(ctx context.Context) (string, error) {
		start := o.now()
		o.remoteCalls.Add(1)
		out, err := o.backend.Correct(ctx, req)
		o.metrics.RecordBackendCall(ctx, backendStatus(err), o.now().Sub(start))
		return out, err
	})
}

func backendStatus(err error) string {
	if err == nil {
		return "ok"
	}
	if errors.Is(err, context.Canceled) {
		return "cancelled"
	}
	if k, ok := backend.KindOf(err); ok && k == backend.Fatal {
		return "fatal"
	}
	return "transient"
}

// learn feeds applied local word corrections back into the dictionary
// frequencies and the pattern statistics. It reports whether the user data
// changed.
func (o *Orchestrator) learn(corrs []types.Correction) bool {
	learned := false
	for _, c := range corrs {
		if c.Category == types.CategoryRemote {
			continue
		}
		o.tracker.Add(strings.ToLower(c.Original), strings.ToLower(c.Suggestion))
		if c.Category == types.CategoryPhrase {
			continue
		}
		if o.engine.Learn(c.Original, c.Suggestion) {
			learned = true
		}
	}
	return learned
}

// scheduleSave marks the user data dirty and arranges a save after
// save_delay. Learning from many requests in a row results in one save.
func (o *Orchestrator) scheduleSave(ctx context.Context) {
	if o.users == nil {
		return
	}
	o.dirty.Store(true)
	delay := o.Config().SaveDelay
	if delay <= 0 {
		o.flushLogged(ctx)
		return
	}

	o.saveMu.Lock()
	defer o.saveMu.Unlock()
	if o.saveTimer != nil {
		return
	}
	bg := context.WithoutCancel(ctx)
	o.saveTimer = time.AfterFunc(delay, func() {
		o.saveMu.Lock()
		o.saveTimer = nil
		o.saveMu.Unlock()
		o.flushLogged(bg)
	})
}

func (o *Orchestrator) flushLogged(ctx context.Context) {
	if err := o.Flush(ctx); err != nil {
		observe.Logger(ctx).Warn("correction: failed to persist user dictionary", "err", err)
	}
}

// Flush saves the user dictionary now if learning changed it since the last
// save, and cancels the pending delayed save. Call it before shutdown.
func (o *Orchestrator) Flush(ctx context.Context) error {
	o.saveMu.Lock()
	if o.saveTimer != nil {
		o.saveTimer.Stop()
		o.saveTimer = nil
	}
	o.saveMu.Unlock()

	if o.users == nil || !o.dirty.Swap(false) {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	if err := userdict.Persist(ctx, o.users, o.engine); err != nil {
		o.dirty.Store(true)
		return fmt.Errorf("correction: persist user dictionary: %w", err)
	}
	return nil
}

// AddCustomWord teaches the engine a word. With an empty correction, word is
// added to the vocabulary; otherwise word is corrected to correction with
// full confidence. Cached chunks containing word are dropped and the user
// data is saved.
func (o *Orchestrator) AddCustomWord(ctx context.Context, word, correction string) error {
	var err error
	if strings.TrimSpace(correction) == "" {
		err = o.engine.AddWord(word)
	} else {
		err = o.engine.AddCorrection(word, correction, 1.0)
	}
	if err != nil {
		return fmt.Errorf("correction: add custom word: %w", err)
	}

	lower := strings.ToLower(strings.TrimSpace(word))
	n := o.chunks.DeleteFunc(func(k cache.Key) bool {
		return strings.Contains(strings.ToLower(k.First()), lower)
	})
	observe.Logger(ctx).Debug("correction: custom word added", "word", lower, "invalidated_chunks", n)

	if o.users != nil {
		if err := userdict.Persist(ctx, o.users, o.engine); err != nil {
			return fmt.Errorf("correction: persist user dictionary: %w", err)
		}
	}
	if o.correctionsFile != "" && strings.TrimSpace(correction) != "" {
		if err := o.engine.SaveCorrections(o.correctionsFile); err != nil {
			return fmt.Errorf("correction: save corrections: %w", err)
		}
	}
	return nil
}

// GetSuggestions returns dictionary suggestions for word.
func (o *Orchestrator) GetSuggestions(word, context, domain string) []dictionary.Suggestion {
	return o.engine.Suggest(word, context, domain)
}

// Predict returns completions for prefix.
func (o *Orchestrator) Predict(prefix string, n int) []dictionary.Prediction {
	return o.engine.Predict(prefix, n)
}

// CommonPatterns returns the n most frequently applied substitutions.
func (o *Orchestrator) CommonPatterns(n int) []cache.PatternCount {
	return o.tracker.Common(n)
}

// CacheStats reports on the chunk and suggestion caches.
func (o *Orchestrator) CacheStats() CacheStats {
	return CacheStats{
		Chunks:      o.chunks.Stats(),
		Suggestions: o.engine.Cache().Stats(),
	}
}

// Stats returns the cumulative counters.
func (o *Orchestrator) Stats() Stats {
	return Stats{
		Requests:       o.requests.Load(),
		Corrections:    o.corrections.Load(),
		CacheHits:      o.cacheHits.Load(),
		RemoteCalls:    o.remoteCalls.Load(),
		RemoteFailures: o.remoteFailures.Load(),
	}
}

// RunJanitor sweeps expired entries from both caches every interval until
// ctx is done. It blocks.
func (o *Orchestrator) RunJanitor(ctx context.Context, interval time.Duration) {
	var wg sync.WaitGroup
	wg.Go(func() { o.chunks.RunJanitor(ctx, interval) })
	wg.Go(func() { o.engine.Cache().RunJanitor(ctx, interval) })
	wg.Wait()
}
