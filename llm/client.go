// Package llm provides minimal clients for the text-generation backends the
// planning oracle can talk to. Implementations return errors; the fail-closed
// behavior the planner requires lives one layer up, in the oracle package.
package llm

import (
	"context"
	"time"
)

// GenerationParams carries per-call sampling parameters.
// Nil fields mean "use the backend default".
type GenerationParams struct {
	Temperature *float32 `json:"temperature"`
	TopK        *int     `json:"top_k"`
	TopP        *float32 `json:"top_p"`
	MaxTokens   *int     `json:"max_tokens"`
	Stop        []string `json:"stop"`
}

// Message is one turn of a chat transcript.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client defines the standard interface for any LLM backend.
//
// All methods must be safe for concurrent use; the planner may issue
// overlapping calls from independent planning loops.
type Client interface {
	// Generate produces a free-text completion for a single prompt.
	Generate(ctx context.Context, prompt string, params GenerationParams) (string, error)

	// Chat produces the assistant reply for a multi-turn transcript.
	Chat(ctx context.Context, messages []Message, params GenerationParams) (string, error)

	// ListModels returns the model names the backend currently serves.
	ListModels(ctx context.Context) ([]string, error)

	// IsAvailable reports whether the backend answers at all. It must
	// return quickly and never panic; callers use it as a liveness probe.
	IsAvailable(ctx context.Context) bool
}

// ClientConfig holds connection settings shared by the concrete clients.
// Zero fields fall back to environment variables and then to defaults;
// see the individual constructors.
type ClientConfig struct {
	// BaseURL is the backend endpoint, e.g. "http://localhost:11434".
	BaseURL string

	// Model is the default model name for requests.
	Model string

	// APIKey is attached as a bearer token when set.
	APIKey string

	// Timeout bounds every request. Zero means DefaultTimeout.
	Timeout time.Duration
}

// DefaultTimeout bounds backend calls when the config does not say otherwise.
const DefaultTimeout = 30 * time.Second

// ProbeTimeout bounds availability probes; probes must stay cheap.
const ProbeTimeout = 5 * time.Second
