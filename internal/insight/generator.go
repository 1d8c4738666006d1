// Package insight turns the recent log into a short natural-language
// health summary using an external text-generation API.
package insight

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Name() string
}

const (
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"

	temperature = 0.7
	topP        = 0.95

	defaultTimeout = 30 * time.Second
)

var (
	ErrEmptyResponse   = errors.New("empty response from text generation")
	ErrUnknownProvider = errors.New("unknown insight provider")
)

// ClientConfig is shared by the provider clients.
type ClientConfig struct {
	Provider string
	APIKey   string
	Model    string
	BaseURL  string
	Timeout  time.Duration
}

// NewGenerator returns a client for cfg.Provider, or nil when no key is
// configured.
func NewGenerator(cfg ClientConfig) (Generator, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, nil
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	switch strings.ToLower(cfg.Provider) {
	case "", ProviderGemini:
		return NewGeminiClient(cfg), nil
	case ProviderAnthropic:
		return NewAnthropicClient(cfg), nil
	}
	return nil, ErrUnknownProvider
}
