// Package groq provides the primary LLM backend adapter using the
// Groq OpenAI-compatible chat completions API.
package groq

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
	"github.com/custodia-labs/lexrag/internal/logger"
)

// Ensure Client implements the port.
var _ driven.Generator = (*Client)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "https://api.groq.com/openai/v1"
	DefaultModel   = "llama-3.1-8b-instant"
	DefaultTimeout = 60 * time.Second

	// DefaultRequestsPerMinute stays under the free-tier quota.
	DefaultRequestsPerMinute = 25
)

// Config holds configuration for the Groq client.
type Config struct {
	// APIKey is the Groq API key (required).
	APIKey string

	// BaseURL is the API base URL. Can point at any
	// OpenAI-compatible endpoint.
	BaseURL string

	// Model is the chat model to use.
	Model string

	// Timeout bounds non-streaming requests (default: 60s).
	Timeout time.Duration

	// RequestsPerMinute throttles outgoing requests; 0 uses the
	// default.
	RequestsPerMinute int
}

// Client calls the Groq chat completions API.
type Client struct {
	client       *http.Client
	streamClient *http.Client
	baseURL      string
	apiKey       string
	model        string
	limiter      *rate.Limiter
}

// chatRequest is the /chat/completions request format.
type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
	Stream      bool      `json:"stream,omitempty"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse is the non-streaming response format.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// chatDelta is one streamed SSE event payload.
type chatDelta struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// New creates a Groq client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("groq: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = DefaultRequestsPerMinute
	}

	return &Client{
		client: &http.Client{Timeout: cfg.Timeout},
		// Streams outlive any fixed client timeout; their lifetime is
		// bound to the request context instead.
		streamClient: &http.Client{},
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:       cfg.APIKey,
		model:        cfg.Model,
		limiter:      rate.NewLimiter(rate.Limit(float64(rpm)/60.0), 1),
	}, nil
}

// Name identifies the backend for logging.
func (c *Client) Name() string {
	return "groq/" + c.model
}

// Generate produces one complete answer.
func (c *Client) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	resp, err := c.post(ctx, c.client, prompt, opts, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("groq: decode response: %w", err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("groq: API error: %s", out.Error.Message)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("groq: empty choices")
	}
	return out.Choices[0].Message.Content, nil
}

// Stream opens a server-sent-event token stream.
func (c *Client) Stream(ctx context.Context, prompt string, opts driven.GenerateOptions) (driven.TokenStream, error) {
	resp, err := c.post(ctx, c.streamClient, prompt, opts, true)
	if err != nil {
		return nil, err
	}
	return &sseStream{body: resp.Body, reader: bufio.NewReader(resp.Body)}, nil
}

// post sends a chat completions request and validates the status.
func (c *Client) post(
	ctx context.Context, client *http.Client, prompt string, opts driven.GenerateOptions, stream bool,
) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("groq: rate limit wait: %w", err)
	}

	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    []message{{Role: "user", Content: prompt}},
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
		Stream:      stream,
	})
	if err != nil {
		return nil, fmt.Errorf("groq: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body),
	)
	if err != nil {
		return nil, fmt.Errorf("groq: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("groq: send request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		msg, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, fmt.Errorf("groq: status %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("groq: status %d: %s", resp.StatusCode, string(msg))
	}
	return resp, nil
}

// sseStream decodes "data: {...}" lines into content deltas. The
// reader buffers partial lines across reads; a malformed event is
// skipped rather than aborting the stream.
type sseStream struct {
	body io.ReadCloser

	reader *bufio.Reader
	done   bool
}

// Recv returns the next content delta, or io.EOF after the terminal
// sentinel.
func (s *sseStream) Recv() (string, error) {
	if s.done {
		return "", io.EOF
	}

	for {
		line, err := s.reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				s.done = true
				// A final unterminated line may still hold an event.
				if token, ok := parseEvent(line); ok {
					return token, nil
				}
				return "", io.EOF
			}
			return "", fmt.Errorf("groq: read stream: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "data: [DONE]" {
			s.done = true
			return "", io.EOF
		}
		if token, ok := parseEvent(line); ok && token != "" {
			return token, nil
		}
	}
}

// parseEvent extracts the content delta from one SSE line.
func parseEvent(line string) (string, bool) {
	data, found := strings.CutPrefix(strings.TrimSpace(line), "data: ")
	if !found || data == "" || data == "[DONE]" {
		return "", false
	}
	var delta chatDelta
	if err := json.Unmarshal([]byte(data), &delta); err != nil {
		logger.Debug("groq: skipping malformed event: %v", err)
		return "", false
	}
	if len(delta.Choices) == 0 {
		return "", false
	}
	return delta.Choices[0].Delta.Content, true
}

// Close releases the underlying connection.
func (s *sseStream) Close() error {
	return s.body.Close()
}
