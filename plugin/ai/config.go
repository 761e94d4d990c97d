package ai

import (
	"errors"
	"time"

	"github.com/hrygo/execfi/internal/profile"
)

// Config represents AI configuration.
type Config struct {
	Enabled bool

	LLM LLMConfig
}

// LLMConfig represents LLM configuration. Every supported provider exposes
// an OpenAI-compatible chat completions endpoint.
type LLMConfig struct {
	Provider    string // openai, deepseek, gemini, claude, grok
	Model       string
	APIKey      string
	BaseURL     string
	MaxTokens   int     // default: 1024
	Temperature float32 // default: 0.3
	MaxRetries  int     // default: 3
	Timeout     time.Duration
}

type providerDefaults struct {
	baseURL string
	model   string
}

var defaults = map[string]providerDefaults{
	"openai":   {baseURL: "https://api.openai.com/v1", model: "gpt-4o-mini"},
	"deepseek": {baseURL: "https://api.deepseek.com/v1", model: "deepseek-chat"},
	"gemini":   {baseURL: "https://generativelanguage.googleapis.com/v1beta/openai", model: "gemini-2.0-flash"},
	"claude":   {baseURL: "https://api.anthropic.com/v1", model: "claude-3-5-haiku-latest"},
	"grok":     {baseURL: "https://api.x.ai/v1", model: "grok-2-latest"},
}

// NewConfigFromProfile creates AI config from profile.
func NewConfigFromProfile(p *profile.Profile) *Config {
	cfg := &Config{
		Enabled: p.IsAIEnabled(),
		LLM: LLMConfig{
			Provider:    p.AIProvider,
			Model:       p.AIModel,
			APIKey:      p.AIAPIKey,
			BaseURL:     p.AIBaseURL,
			MaxTokens:   1024,
			Temperature: 0.3,
			MaxRetries:  3,
			Timeout:     30 * time.Second,
		},
	}
	if d, ok := defaults[cfg.LLM.Provider]; ok {
		if cfg.LLM.BaseURL == "" {
			cfg.LLM.BaseURL = d.baseURL
		}
		if cfg.LLM.Model == "" {
			cfg.LLM.Model = d.model
		}
	}
	return cfg
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if _, ok := defaults[c.LLM.Provider]; !ok {
		return errors.New("unsupported LLM provider: " + c.LLM.Provider)
	}
	if c.LLM.APIKey == "" {
		return errors.New("LLM API key is required")
	}
	if c.LLM.Model == "" {
		return errors.New("LLM model is required")
	}
	return nil
}
