package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mohammad-safakhou/jobagent/config"
	ollama_provider "github.com/mohammad-safakhou/jobagent/provider/ollama"
	openai_provider "github.com/mohammad-safakhou/jobagent/provider/openai"
)

// Client represents different LLM providers.
type Client string

const (
	Ollama Client = "ollama"
	OpenAI Client = "openai"
)

// Provider is the interface that all LLM implementations must satisfy.
// Every call site must tolerate an unavailable provider: a failed call
// degrades to a heuristic, it never blocks a flow.
type Provider interface {
	// Generate returns a single text completion for the prompt.
	Generate(ctx context.Context, prompt string) (string, error)

	// GenerateJSON requests a completion constrained to a JSON object and
	// returns the raw JSON text with any markdown fencing stripped.
	GenerateJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)

	// Available reports whether the backing model can be reached.
	Available(ctx context.Context) bool
}

// NewProvider creates a new LLM client based on the provided configuration.
// An empty type returns (nil, nil): inference disabled, heuristics only.
func NewProvider(cfg config.LLMConfig) (Provider, error) {
	switch Client(cfg.Type) {
	case Ollama:
		return ollama_provider.NewClient(cfg.BaseURL, cfg.Model, cfg.Temperature, cfg.Timeout), nil
	case OpenAI:
		if cfg.APIKey == "" {
			return nil, errors.New("OPENAI_API_KEY not set")
		}
		return openai_provider.NewClient(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.Temperature, cfg.MaxTokens, cfg.Timeout), nil
	case "":
		return nil, nil
	default:
		return nil, errors.New("unsupported LLM provider")
	}
}

// CallObserver receives one event per language-model consultation, labeled
// by operation and result ("ok", "fallback", "error"). Call sites treat a
// nil observer as "don't count".
type CallObserver interface {
	RecordLLMCall(operation, result string)
}

// GenerateStructured asks the provider for a JSON response and unmarshals it
// into out. A malformed response is an error; callers fall back to their
// heuristic path rather than retrying.
func GenerateStructured(ctx context.Context, p Provider, systemPrompt, userPrompt string, out interface{}) error {
	if p == nil {
		return errors.New("no provider configured")
	}
	raw, err := p.GenerateJSON(ctx, systemPrompt, userPrompt)
	if err != nil {
		return err
	}
	raw = StripFences(raw)
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("failed to parse structured response: %w", err)
	}
	return nil
}

// StripFences removes markdown code fencing that models wrap around JSON.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(s, "```")
	}
	return strings.TrimSpace(s)
}
