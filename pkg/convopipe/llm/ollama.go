// Package llm provides text-generation adapters for the pipeline.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/randalmurphal/convopipe/pkg/convopipe"
)

// Ollama generates text with a local Ollama server via /api/generate.
type Ollama struct {
	baseURL     string
	model       string
	temperature float64
	client      *http.Client
}

// Compile-time interface check.
var _ convopipe.Generator = (*Ollama)(nil)

// OllamaOption configures an Ollama client.
type OllamaOption func(*Ollama)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) OllamaOption {
	return func(o *Ollama) {
		if client != nil {
			o.client = client
		}
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) OllamaOption {
	return func(o *Ollama) {
		o.temperature = t
	}
}

// NewOllama creates a generator against an Ollama server.
// Empty arguments fall back to the conventional local defaults.
func NewOllama(baseURL, model string, opts ...OllamaOption) *Ollama {
	o := &Ollama{
		baseURL:     baseURL,
		model:       model,
		temperature: 0.7,
		client:      &http.Client{Timeout: 120 * time.Second},
	}
	if o.baseURL == "" {
		o.baseURL = "http://localhost:11434"
	}
	if o.model == "" {
		o.model = "llama3"
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type ollamaGenerateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options *ollamaOptions `json:"options,omitempty"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
}

type ollamaGenerateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Complete implements convopipe.Generator.
func (o *Ollama) Complete(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(ollamaGenerateRequest{
		Model:   o.model,
		Prompt:  prompt,
		Stream:  false,
		Options: &ollamaOptions{Temperature: o.temperature},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		o.baseURL+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama error: %s", string(body))
	}

	var out ollamaGenerateResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return out.Response, nil
}
