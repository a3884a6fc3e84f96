package providers

import (
	"context"
)

// Config represents the configuration for an LLM provider
type Config struct {
	Model       string
	Temperature float64
	System      string
	Prompt      string

	// Schema, when set, asks the provider for JSON matching it.
	// SchemaName labels the schema for providers that need one.
	Schema     any
	SchemaName string
}

// WantsJSON reports whether the caller asked for structured output
func (c Config) WantsJSON() bool {
	return c.Schema != nil
}

// Provider defines the interface for an LLM provider
type Provider interface {
	Generate(ctx context.Context, config Config) (string, error)
}

// Default models per provider
const (
	DefaultOpenAIModel = "gpt-4o-mini"
	DefaultOllamaModel = "mistral-small3.2:24b"
	DefaultGeminiModel = "gemini-1.5-flash"
)

// DefaultModel returns the model used when none is configured
func DefaultModel(provider string) string {
	switch provider {
	case "openai":
		return DefaultOpenAIModel
	case "ollama":
		return DefaultOllamaModel
	case "gemini":
		return DefaultGeminiModel
	default:
		return ""
	}
}
