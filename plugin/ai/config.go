package ai

import (
	"errors"
	"time"

	"github.com/hrygo/mentionsense/internal/profile"
)

// Config represents AI configuration.
type Config struct {
	Enabled bool

	LLM       LLMConfig
	Embedding EmbeddingConfig
}

// LLMConfig represents LLM configuration.
type LLMConfig struct {
	Provider    string // openai, deepseek, ollama
	Model       string // gpt-4o-mini
	APIKey      string
	BaseURL     string
	MaxTokens   int     // default: 1024
	Temperature float32 // default: 0.7
	MaxRetries  int     // default: 3
	Timeout     time.Duration
}

// EmbeddingConfig represents vector embedding configuration. An empty model
// disables embeddings.
type EmbeddingConfig struct {
	Model   string
	APIKey  string
	BaseURL string
}

// NewConfigFromProfile creates AI config from profile.
func NewConfigFromProfile(p *profile.Profile) *Config {
	cfg := &Config{
		Enabled: p.IsAIEnabled(),
	}
	if !cfg.Enabled {
		return cfg
	}

	cfg.LLM = LLMConfig{
		Provider:    p.AILLMProvider,
		Model:       p.AILLMModel,
		APIKey:      p.AIAPIKey,
		BaseURL:     p.AIBaseURL,
		MaxTokens:   1024,
		Temperature: 0.7,
		MaxRetries:  3,
		Timeout:     60 * time.Second,
	}
	cfg.Embedding = EmbeddingConfig{
		Model:   p.AIEmbeddingModel,
		APIKey:  p.AIAPIKey,
		BaseURL: p.AIBaseURL,
	}
	return cfg
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if !c.Enabled {
		return errors.New("AI is disabled; set MENTIONSENSE_AI_ENABLED=true and MENTIONSENSE_AI_API_KEY")
	}
	if c.LLM.Provider == "" {
		return errors.New("LLM provider is required")
	}
	if c.LLM.Model == "" {
		return errors.New("LLM model is required")
	}
	if c.LLM.Provider != "ollama" && c.LLM.APIKey == "" {
		return errors.New("LLM API key is required")
	}
	return nil
}
