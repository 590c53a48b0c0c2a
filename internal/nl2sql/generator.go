// Package nl2sql turns a rendered prompt into query text by calling a hosted
// completion service, and strips the markdown fences models like to add.
package nl2sql

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotConfigured is returned by NewGenerator when no API key is set.
var ErrNotConfigured = errors.New("completion service is not configured")

const (
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Generator returns the completion service's raw text for a prompt. The text
// carries no structural guarantees and may be empty.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type Config struct {
	Provider    string
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

func NewGenerator(cfg Config) (Generator, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrNotConfigured
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderGemini:
		return NewGeminiGenerator(cfg)
	case ProviderOpenAI:
		return NewOpenAIGenerator(cfg)
	case ProviderAnthropic:
		return NewAnthropicGenerator(cfg)
	default:
		return nil, fmt.Errorf("unsupported completion provider: %q", cfg.Provider)
	}
}

func baseURLOrDefault(value, fallback string) string {
	trimmed := strings.TrimRight(strings.TrimSpace(value), "/")
	if trimmed == "" {
		return fallback
	}
	return trimmed
}

func modelOrDefault(value, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}

func timeoutOrDefault(value time.Duration) time.Duration {
	if value <= 0 {
		return 60 * time.Second
	}
	return value
}
