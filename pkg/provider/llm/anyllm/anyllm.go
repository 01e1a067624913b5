// Package anyllm runs the remote correction backend on any vendor supported by
// github.com/mozilla-ai/any-llm-go. The OpenAI provider has its own package;
// everything else (Anthropic, Gemini, Ollama, a local llama.cpp server, ...)
// goes through here.
//
// Vendor failures are reported as [*llm.StatusError] so that the backend
// retries rate limits and outages but gives up at once on a bad key or an
// unknown model.
package anyllm

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/mozilla-ai/any-llm-go/providers/anthropic"
	"github.com/mozilla-ai/any-llm-go/providers/deepseek"
	"github.com/mozilla-ai/any-llm-go/providers/gemini"
	"github.com/mozilla-ai/any-llm-go/providers/groq"
	"github.com/mozilla-ai/any-llm-go/providers/llamacpp"
	"github.com/mozilla-ai/any-llm-go/providers/llamafile"
	"github.com/mozilla-ai/any-llm-go/providers/mistral"
	"github.com/mozilla-ai/any-llm-go/providers/ollama"

	"github.com/MrWong99/typeassist/pkg/provider/llm"
)

// constructors maps a vendor name to its any-llm provider.
var constructors = map[string]func(...anyllmlib.Option) (anyllmlib.Provider, error){
	"anthropic": func(o ...anyllmlib.Option) (anyllmlib.Provider, error) { return anthropic.New(o...) },
	"deepseek":  func(o ...anyllmlib.Option) (anyllmlib.Provider, error) { return deepseek.New(o...) },
	"gemini":    func(o ...anyllmlib.Option) (anyllmlib.Provider, error) { return gemini.New(o...) },
	"groq":      func(o ...anyllmlib.Option) (anyllmlib.Provider, error) { return groq.New(o...) },
	"llamacpp":  func(o ...anyllmlib.Option) (anyllmlib.Provider, error) { return llamacpp.New(o...) },
	"llamafile": func(o ...anyllmlib.Option) (anyllmlib.Provider, error) { return llamafile.New(o...) },
	"mistral":   func(o ...anyllmlib.Option) (anyllmlib.Provider, error) { return mistral.New(o...) },
	"ollama":    func(o ...anyllmlib.Option) (anyllmlib.Provider, error) { return ollama.New(o...) },
}

// Supported returns the vendor names accepted by [New], sorted.
func Supported() []string {
	names := make([]string, 0, len(constructors))
	for name := range constructors {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Config selects a vendor and model.
type Config struct {
	// Vendor is one of [Supported], case-insensitive.
	Vendor string

	// Model is the vendor's model identifier.
	Model string

	// APIKey overrides the vendor's environment variable
	// (ANTHROPIC_API_KEY, GEMINI_API_KEY, ...). Local servers need none.
	APIKey string

	// BaseURL points at a proxy or a self-hosted server.
	BaseURL string

	// Timeout bounds a single HTTP call. Zero keeps the library default.
	Timeout time.Duration
}

// Provider implements [llm.Provider].
type Provider struct {
	backend anyllmlib.Provider
	vendor  string
	model   string
}

// New builds a provider for cfg. Hosted vendors fail here when no API key is
// configured.
func New(cfg Config) (*Provider, error) {
	vendor := strings.ToLower(strings.TrimSpace(cfg.Vendor))
	if cfg.Model == "" {
		return nil, errors.New("anyllm: model must not be empty")
	}
	ctor, ok := constructors[vendor]
	if !ok {
		return nil, fmt.Errorf("anyllm: unsupported vendor %q (supported: %s)", cfg.Vendor, strings.Join(Supported(), ", "))
	}

	var opts []anyllmlib.Option
	if cfg.APIKey != "" {
		opts = append(opts, anyllmlib.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, anyllmlib.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, anyllmlib.WithTimeout(cfg.Timeout))
	}

	backend, err := ctor(opts...)
	if err != nil {
		return nil, fmt.Errorf("anyllm: create %s provider: %w", vendor, err)
	}
	return &Provider{backend: backend, vendor: vendor, model: cfg.Model}, nil
}

// Name returns the lowercased vendor name.
func (p *Provider) Name() string { return p.vendor }

// Model returns the configured model identifier.
func (p *Provider) Model() string { return p.model }

// Complete implements [llm.Provider].
func (p *Provider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	params := p.buildParams(req)
	if len(params.Messages) == 0 {
		return nil, errors.New("anyllm: request has no messages")
	}

	resp, err := p.backend.Completion(ctx, params)
	if err != nil {
		return nil, p.wrapError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("anyllm: %s returned no choices", p.vendor)
	}

	result := &llm.CompletionResponse{
		Content: resp.Choices[0].Message.ContentString(),
	}
	if resp.Usage != nil {
		result.Usage = llm.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		}
	}
	return result, nil
}

// wrapError attaches an HTTP status to the library's typed errors. Errors
// the library could not classify are returned wrapped but without a status.
func (p *Provider) wrapError(err error) error {
	status := 0
	var pe *anyllmlib.ProviderError
	switch {
	case errors.Is(err, anyllmlib.ErrRateLimit):
		status = 429
	case errors.Is(err, anyllmlib.ErrAuthentication), errors.Is(err, anyllmlib.ErrMissingAPIKey):
		status = 401
	case errors.Is(err, anyllmlib.ErrModelNotFound):
		status = 404
	case errors.Is(err, anyllmlib.ErrInvalidRequest),
		errors.Is(err, anyllmlib.ErrContextLength),
		errors.Is(err, anyllmlib.ErrContentFilter),
		errors.Is(err, anyllmlib.ErrUnsupportedParam):
		status = 400
	case errors.As(err, &pe) && pe.StatusCode > 0:
		status = pe.StatusCode
	}
	if status == 0 {
		return fmt.Errorf("anyllm: %s completion: %w", p.vendor, err)
	}
	return &llm.StatusError{Provider: p.vendor, StatusCode: status, Err: err}
}

// buildParams converts req into any-llm completion parameters.
func (p *Provider) buildParams(req llm.CompletionRequest) anyllmlib.CompletionParams {
	messages := make([]anyllmlib.Message, 0, len(req.Messages)+1)
	if req.SystemPrompt != "" {
		messages = append(messages, anyllmlib.Message{Role: anyllmlib.RoleSystem, Content: req.SystemPrompt})
	}
	for _, m := range req.Messages {
		messages = append(messages, anyllmlib.Message{Role: m.Role, Content: m.Content})
	}

	params := anyllmlib.CompletionParams{Model: p.model, Messages: messages}
	if req.Temperature != 0 {
		t := req.Temperature
		params.Temperature = &t
	}
	if req.MaxTokens > 0 {
		mt := req.MaxTokens
		params.MaxTokens = &mt
	}
	return params
}

var _ llm.Provider = (*Provider)(nil)
