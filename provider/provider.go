package provider

import (
	"context"
	"errors"

	"github.com/mohammad-safakhou/notesmith/config"
	ollama_provider "github.com/mohammad-safakhou/notesmith/provider/ollama"
	openai_provider "github.com/mohammad-safakhou/notesmith/provider/openai"
)

// Client represents different LLM providers
type Client string

const (
	Ollama Client = "ollama"
	OpenAI Client = "openai"
)

// Provider is the text-generation backend boundary. An empty response is a
// retryable condition the pipeline stages handle themselves; Generate only
// returns an error for transport or protocol failures.
type Provider interface {
	Generate(ctx context.Context, model, prompt string) (string, error)
}

// NewProvider creates an LLM client based on the provided configuration
func NewProvider(client Client, cfg config.LLMConfig) (Provider, error) {
	switch client {
	case Ollama:
		return ollama_provider.New(cfg.BaseURL, cfg.Timeout), nil
	case OpenAI:
		if cfg.APIKey == "" {
			return nil, errors.New("llm.api_key not set for openai provider")
		}
		return openai_provider.New(cfg.BaseURL, cfg.APIKey, cfg.Timeout), nil
	default:
		return nil, errors.New("unsupported LLM provider")
	}
}
