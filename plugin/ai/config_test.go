package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hrygo/mentionsense/internal/profile"
)

func TestNewConfigFromProfile(t *testing.T) {
	prof := &profile.Profile{
		AIEnabled:        true,
		AILLMProvider:    "deepseek",
		AILLMModel:       "deepseek-chat",
		AIAPIKey:         "deepseek-key",
		AIBaseURL:        "https://api.deepseek.com",
		AIEmbeddingModel: "text-embedding-3-small",
	}

	cfg := NewConfigFromProfile(prof)

	assert.True(t, cfg.Enabled)
	assert.Equal(t, "deepseek", cfg.LLM.Provider)
	assert.Equal(t, "deepseek-chat", cfg.LLM.Model)
	assert.Equal(t, "deepseek-key", cfg.LLM.APIKey)
	assert.Equal(t, "https://api.deepseek.com", cfg.LLM.BaseURL)
	assert.Equal(t, 1024, cfg.LLM.MaxTokens)
	assert.InDelta(t, 0.7, cfg.LLM.Temperature, 0.0001)
	assert.Equal(t, 3, cfg.LLM.MaxRetries)
	assert.Equal(t, "text-embedding-3-small", cfg.Embedding.Model)
	assert.NoError(t, cfg.Validate())
}

func TestNewConfigFromProfile_Disabled(t *testing.T) {
	cfg := NewConfigFromProfile(&profile.Profile{AIEnabled: true})
	assert.False(t, cfg.Enabled, "enabled without key is treated as disabled")
	assert.Error(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "ok", cfg: Config{Enabled: true, LLM: LLMConfig{Provider: "openai", Model: "gpt-4o-mini", APIKey: "k"}}},
		{name: "ollama without key", cfg: Config{Enabled: true, LLM: LLMConfig{Provider: "ollama", Model: "qwen2.5"}}},
		{name: "missing provider", cfg: Config{Enabled: true, LLM: LLMConfig{Model: "m", APIKey: "k"}}, wantErr: true},
		{name: "missing model", cfg: Config{Enabled: true, LLM: LLMConfig{Provider: "openai", APIKey: "k"}}, wantErr: true},
		{name: "missing key", cfg: Config{Enabled: true, LLM: LLMConfig{Provider: "openai", Model: "m"}}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
