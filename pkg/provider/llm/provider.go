// Package llm defines the Provider interface for Large Language Model backends.
//
// A provider wraps a remote or local model API (OpenAI, Anthropic, a local
// Ollama instance, ...) and exposes a single blocking completion call so that
// the remote correction backend does not couple to any specific SDK.
//
// Implementors must be safe for concurrent use.
package llm

import (
	"context"
	"fmt"
)

// Message roles understood by every provider.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single turn of a chat-style prompt.
type Message struct {
	// Role is one of RoleSystem, RoleUser or RoleAssistant.
	Role string

	// Content is the plain-text body of the message.
	Content string
}

// Usage holds token accounting information returned by the LLM backend.
// All counts are in the model's native token unit.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// CompletionRequest carries everything the LLM needs to produce a response.
// At minimum Messages must be non-empty.
type CompletionRequest struct {
	// Messages is the ordered prompt. The last message is typically from the
	// "user" role and drives the response.
	Messages []Message

	// Temperature controls output randomness in the range [0.0, 2.0]. Zero
	// leaves the provider default in place.
	Temperature float64

	// MaxTokens caps the number of completion tokens. Zero means provider
	// default.
	MaxTokens int

	// SystemPrompt is an optional instruction injected before Messages as a
	// "system"-role message.
	SystemPrompt string
}

// CompletionResponse is the result of a [Provider.Complete] call.
type CompletionResponse struct {
	// Content is the text the model produced.
	Content string

	// Usage reports token consumption for this call.
	Usage Usage
}

// Provider is the abstraction over any LLM backend.
type Provider interface {
	// Complete sends req and blocks until the full response is available or
	// ctx is cancelled.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

// StatusError reports an HTTP-level failure from a provider API. Providers
// wrap SDK errors in it when the status code is known so that callers can
// tell rate limits and outages apart from malformed requests.
type StatusError struct {
	// Provider names the backend ("openai", "anthropic", ...).
	Provider string

	// StatusCode is the HTTP status code returned by the API.
	StatusCode int

	// Err is the underlying SDK error.
	Err error
}

// Error implements error.
func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d: %v", e.Provider, e.StatusCode, e.Err)
}

// Unwrap returns the underlying SDK error.
func (e *StatusError) Unwrap() error { return e.Err }

// Temporary reports whether the status code describes a condition that may
// clear on retry: request timeouts, conflicts, rate limits and server errors.
func (e *StatusError) Temporary() bool {
	switch {
	case e.StatusCode == 408, e.StatusCode == 409, e.StatusCode == 429:
		return true
	case e.StatusCode >= 500:
		return true
	default:
		return false
	}
}
