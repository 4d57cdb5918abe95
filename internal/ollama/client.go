// Package ollama is the client for the generation backend. The core
// treats any transport or status failure uniformly as "generation
// failed"; the response payload is free-form text for the parser.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/grahamg/ai-git/internal/logging"
)

const (
	// DefaultHost is the standard local Ollama endpoint.
	DefaultHost = "http://localhost:11434"

	// DefaultModel is used when no model is configured.
	DefaultModel = "llama3"

	// DefaultTemperature matches the original tool's generation setting.
	DefaultTemperature = 0.7
)

// HTTPClient interface for HTTP requests (enables testing)
type HTTPClient interface {
	Do(*http.Request) (*http.Response, error)
}

// Verify http.Client implements HTTPClient
var _ HTTPClient = (*http.Client)(nil)

// GenerationError wraps any backend failure: unreachable host, bad
// status, or an unparseable payload.
type GenerationError struct {
	Host string
	Err  error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed (%s): %v", e.Host, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// Client talks to an Ollama-compatible /api/generate endpoint.
type Client struct {
	host        string
	model       string
	temperature float64
	client      HTTPClient
	log         *logging.Logger
}

// Option configures the client.
type Option func(*Client)

// WithModel overrides the generation model.
func WithModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithTemperature overrides the sampling temperature.
func WithTemperature(t float64) Option {
	return func(c *Client) {
		c.temperature = t
	}
}

// WithHTTPClient injects the HTTP client (for tests).
func WithHTTPClient(hc HTTPClient) Option {
	return func(c *Client) {
		c.client = hc
	}
}

// NewClient creates a backend client for a host. An empty host selects
// the default local endpoint.
func NewClient(host string, opts ...Option) *Client {
	if host == "" {
		host = DefaultHost
	}
	c := &Client{
		host:        host,
		model:       DefaultModel,
		temperature: DefaultTemperature,
		client:      &http.Client{},
		log:         logging.New("ollama"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.model
}

type generateRequest struct {
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	Stream      bool    `json:"stream"`
	Temperature float64 `json:"temperature"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Generate sends a prompt and returns the completion text. The call
// blocks until the backend answers or the context is cancelled; there is
// no default timeout.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(generateRequest{
		Model:       c.model,
		Prompt:      prompt,
		Stream:      false,
		Temperature: c.temperature,
	})
	if err != nil {
		return "", &GenerationError{Host: c.host, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return "", &GenerationError{Host: c.host, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Error("generate_failed", map[string]interface{}{"model": c.model}, err)
		return "", &GenerationError{Host: c.host, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &GenerationError{Host: c.host, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(body), 200))
		c.log.Error("generate_failed", map[string]interface{}{"model": c.model}, err)
		return "", &GenerationError{Host: c.host, Err: err}
	}

	var gen generateResponse
	if err := json.Unmarshal(body, &gen); err != nil {
		return "", &GenerationError{Host: c.host, Err: fmt.Errorf("decode response: %w", err)}
	}
	if gen.Response == "" {
		return "", &GenerationError{Host: c.host, Err: fmt.Errorf("empty response field")}
	}

	c.log.TimedEvent("generate", start, map[string]interface{}{
		"model": c.model,
		"size":  len(gen.Response),
	})
	return gen.Response, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
