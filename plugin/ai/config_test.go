package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hrygo/execfi/internal/profile"
)

func TestNewConfigFromProfile(t *testing.T) {
	tests := []struct {
		name        string
		profile     *profile.Profile
		wantBaseURL string
		wantModel   string
		wantEnabled bool
	}{
		{
			name:        "grok defaults",
			profile:     &profile.Profile{AIProvider: "grok", AIAPIKey: "k"},
			wantBaseURL: "https://api.x.ai/v1",
			wantModel:   "grok-2-latest",
			wantEnabled: true,
		},
		{
			name:        "gemini openai compatible endpoint",
			profile:     &profile.Profile{AIProvider: "gemini", AIAPIKey: "k"},
			wantBaseURL: "https://generativelanguage.googleapis.com/v1beta/openai",
			wantModel:   "gemini-2.0-flash",
			wantEnabled: true,
		},
		{
			name:        "explicit overrides win",
			profile:     &profile.Profile{AIProvider: "openai", AIAPIKey: "k", AIBaseURL: "http://proxy/v1", AIModel: "gpt-4o"},
			wantBaseURL: "http://proxy/v1",
			wantModel:   "gpt-4o",
			wantEnabled: true,
		},
		{
			name:        "disabled without key",
			profile:     &profile.Profile{AIProvider: "claude"},
			wantBaseURL: "https://api.anthropic.com/v1",
			wantModel:   "claude-3-5-haiku-latest",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfigFromProfile(tt.profile)
			assert.Equal(t, tt.wantEnabled, cfg.Enabled)
			assert.Equal(t, tt.wantBaseURL, cfg.LLM.BaseURL)
			assert.Equal(t, tt.wantModel, cfg.LLM.Model)
			assert.NoError(t, cfg.Validate())
		})
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := &Config{Enabled: true, LLM: LLMConfig{Provider: "openai", Model: "m"}}
	assert.Error(t, cfg.Validate())

	cfg.LLM.APIKey = "k"
	assert.NoError(t, cfg.Validate())

	cfg.LLM.Provider = "ollama"
	assert.Error(t, cfg.Validate())
}
