// Package ollama provides the secondary LLM backend adapter using a
// local Ollama inference server.
package ollama

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

	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
	"github.com/custodia-labs/lexrag/internal/logger"
)

// Ensure Client implements the port.
var _ driven.Generator = (*Client)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "http://localhost:11434"
	DefaultModel   = "gemma3:1b"
	DefaultTimeout = 120 * time.Second
)

// Config holds configuration for the Ollama client.
type Config struct {
	// BaseURL is the Ollama API base URL (default: http://localhost:11434).
	BaseURL string

	// Model is the model to run (default: gemma3:1b).
	Model string

	// Timeout bounds non-streaming requests (default: 120s).
	Timeout time.Duration
}

// Client calls the Ollama /api/generate endpoint.
type Client struct {
	client       *http.Client
	streamClient *http.Client
	baseURL      string
	model        string
}

// generateRequest is the /api/generate request format.
type generateRequest struct {
	Model   string   `json:"model"`
	Prompt  string   `json:"prompt"`
	Stream  bool     `json:"stream"`
	Options *options `json:"options,omitempty"`
}

// options holds decoding parameters.
type options struct {
	NumPredict  int     `json:"num_predict,omitempty"`
	NumCtx      int     `json:"num_ctx,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}

// generateResponse is one /api/generate response object. In streaming
// mode the endpoint emits one of these per line.
type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// New creates an Ollama client.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Client{
		client: &http.Client{Timeout: cfg.Timeout},
		// Stream lifetime is bound to the request context, not a
		// fixed client timeout.
		streamClient: &http.Client{},
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		model:        cfg.Model,
	}
}

// Name identifies the backend for logging.
func (c *Client) Name() string {
	return "ollama/" + c.model
}

// Generate produces one complete answer.
func (c *Client) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	resp, err := c.post(ctx, c.client, prompt, opts, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("ollama: decode response: %w", err)
	}
	return out.Response, nil
}

// Stream opens a newline-delimited JSON token stream.
func (c *Client) Stream(ctx context.Context, prompt string, opts driven.GenerateOptions) (driven.TokenStream, error) {
	resp, err := c.post(ctx, c.streamClient, prompt, opts, true)
	if err != nil {
		return nil, err
	}
	return &ndjsonStream{body: resp.Body, reader: bufio.NewReader(resp.Body)}, nil
}

// post sends a generate request and validates the status.
func (c *Client) post(
	ctx context.Context, client *http.Client, prompt string, opts driven.GenerateOptions, stream bool,
) (*http.Response, error) {
	reqBody := generateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: stream,
	}
	if opts.MaxTokens > 0 || opts.Temperature > 0 || opts.ContextWindow > 0 {
		reqBody.Options = &options{
			NumPredict:  opts.MaxTokens,
			NumCtx:      opts.ContextWindow,
			Temperature: opts.Temperature,
		}
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("ollama: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body),
	)
	if err != nil {
		return nil, fmt.Errorf("ollama: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama: send request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		msg, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, fmt.Errorf("ollama: status %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("ollama: status %d: %s", resp.StatusCode, string(msg))
	}
	return resp, nil
}

// ndjsonStream decodes one JSON object per line into content deltas.
// Partial trailing lines are buffered across reads; a malformed line
// is skipped rather than aborting the stream.
type ndjsonStream struct {
	body io.ReadCloser

	reader *bufio.Reader
	done   bool
}

// Recv returns the next content delta, or io.EOF once the server
// signals completion.
func (s *ndjsonStream) Recv() (string, error) {
	if s.done {
		return "", io.EOF
	}

	for {
		line, err := s.reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				s.done = true
				// A final unterminated line may still hold a delta.
				if token, _, ok := parseLine(line); ok && token != "" {
					return token, nil
				}
				return "", io.EOF
			}
			return "", fmt.Errorf("ollama: read stream: %w", err)
		}

		token, final, ok := parseLine(line)
		if !ok {
			continue
		}
		if final {
			s.done = true
		}
		if token != "" {
			return token, nil
		}
		if s.done {
			return "", io.EOF
		}
	}
}

// parseLine decodes one NDJSON line into (delta, completion flag).
func parseLine(line string) (string, bool, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", false, false
	}
	var obj generateResponse
	if err := json.Unmarshal([]byte(line), &obj); err != nil {
		logger.Debug("ollama: skipping malformed line: %v", err)
		return "", false, false
	}
	return obj.Response, obj.Done, true
}

// Close releases the underlying connection.
func (s *ndjsonStream) Close() error {
	return s.body.Close()
}
