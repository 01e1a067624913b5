// Package llmbackend implements backend.Backend on top of an llm.Provider.
//
// The [Backend] sends one chunk of user text to the model together with a
// system prompt built from the request's mode, severity and language. The
// model is asked to answer with a JSON object holding the corrected text and
// an itemised list of substitutions. When the response cannot be parsed, the
// backend returns the input unchanged with a nil error so that a confused
// model never turns into a failed request.
package llmbackend

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/MrWong99/typeassist/pkg/backend"
	"github.com/MrWong99/typeassist/pkg/provider/llm"
	"github.com/MrWong99/typeassist/pkg/types"
)

const (
	defaultTemperature = 0.3

	// defaultTokenSlack is added to the chunk length to bound the completion.
	defaultTokenSlack = 200
)

const systemPromptTemplate = `You are an expert in correcting text typed by people with motor control difficulties, dyslexia or other cognitive challenges.

Working in %s.

Task: %s

Correction level: %s %s

Rules:
- Preserve the writer's meaning, voice and paragraph structure.
- Do not add commentary, explanations or new content.
- Keep names, numbers and URLs exactly as written.

Respond with ONLY a JSON object in this exact format (no markdown, no prose):
{
  "corrected_text": "<full corrected text>",
  "corrections": [
    {"original": "<original span>", "corrected": "<replacement>", "confidence": <0.0-1.0>}
  ]
}

If no corrections are needed, return an empty corrections array and corrected_text equal to the input.`

// modeTask describes what each mode asks of the model.
func modeTask(m types.Mode) string {
	switch m {
	case types.ModeSpelling:
		return "fix spelling mistakes and typos only. Do not change grammar, word choice or punctuation."
	case types.ModeGrammar:
		return "fix spelling and grammar mistakes, including punctuation, without rewording sentences."
	case types.ModeClarity:
		return "fix spelling and grammar and rephrase sentences that are hard to follow so they read clearly."
	case types.ModeComprehensive:
		return "fix spelling, grammar and punctuation, and improve clarity where a sentence is hard to follow."
	default:
		return "fix spelling and grammar mistakes."
	}
}

// severityGuidance tells the model how far it may stray from the input.
func severityGuidance(s types.Severity) string {
	switch s {
	case types.SeverityLow:
		return "Make minimal corrections while preserving the original text structure."
	case types.SeverityMedium:
		return "Balance correction with preserving the original intent."
	case types.SeverityHigh:
		return "Thoroughly correct errors while maintaining meaning. Reconstruct garbled words from context."
	case types.SeverityMaximum:
		return "Correct everything that is wrong and make the text fully readable."
	default:
		return ""
	}
}

// llmResponse is the expected JSON structure returned by the model.
type llmResponse struct {
	CorrectedText string `json:"corrected_text"`
	Corrections   []struct {
		Original   string  `json:"original"`
		Corrected  string  `json:"corrected"`
		Confidence float64 `json:"confidence"`
	} `json:"corrections"`
}

// Option is a functional option for configuring a [Backend].
type Option func(*Backend)

// WithTemperature sets the sampling temperature. Default: 0.3.
func WithTemperature(temp float64) Option {
	return func(b *Backend) {
		b.temperature = temp
	}
}

// WithTokenSlack sets how many completion tokens are allowed beyond the
// chunk's rune count. Default: 200.
func WithTokenSlack(n int) Option {
	return func(b *Backend) {
		if n >= 0 {
			b.tokenSlack = n
		}
	}
}

// Backend corrects text through an [llm.Provider]. It is safe for concurrent
// use.
type Backend struct {
	llm         llm.Provider
	name        string
	temperature float64
	tokenSlack  int
}

// New returns a Backend that calls provider. name identifies the provider in
// logs and errors.
func New(name string, provider llm.Provider, opts ...Option) *Backend {
	b := &Backend{
		llm:         provider,
		name:        name,
		temperature: defaultTemperature,
		tokenSlack:  defaultTokenSlack,
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Name returns the provider name given to [New].
func (b *Backend) Name() string { return b.name }

// Correct implements backend.Backend. Provider errors are classified with
// [backend.Classify]; context cancellation is returned unchanged.
func (b *Backend) Correct(ctx context.Context, req types.BackendRequest) (string, error) {
	if strings.TrimSpace(req.Text) == "" {
		return req.Text, nil
	}

	resp, err := b.llm.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: BuildSystemPrompt(req),
		Temperature:  b.temperature,
		MaxTokens:    len([]rune(req.Text)) + b.tokenSlack,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: req.Text},
		},
	})
	if err != nil {
		return "", backend.Classify(fmt.Errorf("llmbackend: %s: complete: %w", b.name, err))
	}
	if resp == nil {
		return req.Text, nil
	}

	corrected, n, parseErr := parseResponse(resp.Content, req.Text)
	if parseErr != nil {
		slog.Warn("llmbackend: unparseable response, keeping input", "provider", b.name, "err", parseErr)
		return req.Text, nil
	}
	slog.Debug("llmbackend: corrected chunk",
		"provider", b.name,
		"corrections", n,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
	)
	return corrected, nil
}

// BuildSystemPrompt renders the system prompt for req. An empty language
// defaults to English.
func BuildSystemPrompt(req types.BackendRequest) string {
	lang := strings.TrimSpace(req.Language)
	if lang == "" {
		lang = "English"
	}
	return fmt.Sprintf(systemPromptTemplate, lang, modeTask(req.Mode), req.Severity, severityGuidance(req.Severity))
}

// parseResponse extracts the corrected text from the model output and counts
// the itemised substitutions that actually change something.
func parseResponse(content, original string) (string, int, error) {
	cleaned := stripMarkdown(content)

	var r llmResponse
	if err := json.Unmarshal([]byte(cleaned), &r); err != nil {
		return "", 0, fmt.Errorf("llmbackend: parse response: %w", err)
	}
	if r.CorrectedText == "" {
		return original, 0, nil
	}

	n := 0
	for _, c := range r.Corrections {
		if c.Original != "" && c.Original != c.Corrected {
			n++
		}
	}
	return r.CorrectedText, n, nil
}

// stripMarkdown removes optional markdown code fences (```json ... ```) that
// some models wrap around JSON output.
func stripMarkdown(s string) string {
	s = strings.TrimSpace(s)
	for _, prefix := range []string{"```json", "```"} {
		if after, ok := strings.CutPrefix(s, prefix); ok {
			s = after
			break
		}
	}
	if before, ok := strings.CutSuffix(s, "```"); ok {
		s = before
	}
	return strings.TrimSpace(s)
}

var _ backend.Backend = (*Backend)(nil)
