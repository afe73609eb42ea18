package driven

import "context"

// Generator produces text from a prompt, either whole or as a token
// stream.
//
// Implementations include a cloud chat-completions API (primary), a
// local Ollama server (secondary), and a failover wrapper multiplexing
// the two behind this same interface.
type Generator interface {
	// Generate produces one complete answer. An empty answer is a
	// failure, not a success with no content.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)

	// Stream opens a token stream for the prompt. Errors establishing
	// the stream are returned here; per-frame decode errors inside
	// the stream are skipped by the adapter.
	Stream(ctx context.Context, prompt string, opts GenerateOptions) (TokenStream, error)

	// Name identifies the backend for logging.
	Name() string
}

// GenerateOptions configures text generation behaviour.
type GenerateOptions struct {
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic).
	Temperature float64

	// ContextWindow is the model context size hint, where the
	// backend supports one.
	ContextWindow int
}

// TokenStream is a cancellable producer of text deltas.
// Recv returns io.EOF after the final delta; Close releases the
// underlying connection and may be called at any time.
type TokenStream interface {
	Recv() (string, error)
	Close() error
}
