package ollama_provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// client implements the provider interface against a locally hosted Ollama
// server.
type client struct {
	baseURL     string
	model       string
	temperature float64
	httpClient  *http.Client
}

// request represents a request to the Ollama generate API.
type request struct {
	Model   string                 `json:"model"`
	Prompt  string                 `json:"prompt"`
	System  string                 `json:"system,omitempty"`
	Stream  bool                   `json:"stream"`
	Format  string                 `json:"format,omitempty"`
	Options map[string]interface{} `json:"options,omitempty"`
}

// response represents a response from the Ollama generate API.
type response struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// NewClient creates a new Ollama client.
func NewClient(baseURL, model string, temperature float64, timeout time.Duration) *client {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	return &client{
		baseURL:     baseURL,
		model:       model,
		temperature: temperature,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

// Generate returns a single completion for the prompt.
func (c *client) Generate(ctx context.Context, prompt string) (string, error) {
	return c.send(ctx, request{
		Model:   c.model,
		Prompt:  prompt,
		Stream:  false,
		Options: map[string]interface{}{"temperature": c.temperature},
	})
}

// GenerateJSON requests a completion constrained to JSON output.
func (c *client) GenerateJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return c.send(ctx, request{
		Model:   c.model,
		Prompt:  userPrompt,
		System:  systemPrompt,
		Stream:  false,
		Format:  "json",
		Options: map[string]interface{}{"temperature": c.temperature},
	})
}

// Available reports whether the Ollama server answers its version endpoint.
func (c *client) Available(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/api/version", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// send posts a generate request and returns the completion text.
func (c *client) send(ctx context.Context, body request) (string, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/generate", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to connect to Ollama at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("Ollama API returned status: %d", resp.StatusCode)
	}

	var ollamaResp response
	if err := json.NewDecoder(resp.Body).Decode(&ollamaResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	return ollamaResp.Response, nil
}
