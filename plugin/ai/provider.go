package ai

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

// Provider implements Generator and Embedder over an OpenAI-compatible API.
type Provider struct {
	client    *openai.Client
	llm       LLMConfig
	embedding EmbeddingConfig
	// backoff is the base wait between retries.
	backoff time.Duration
}

var (
	_ Generator = (*Provider)(nil)
	_ Embedder  = (*Provider)(nil)
)

// NewProvider creates a new AI provider.
func NewProvider(cfg *Config) (*Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	llm := cfg.LLM
	if llm.MaxRetries <= 0 {
		llm.MaxRetries = 3
	}
	if llm.Timeout <= 0 {
		llm.Timeout = 60 * time.Second
	}
	if llm.MaxTokens <= 0 {
		llm.MaxTokens = 1024
	}

	clientConfig := openai.DefaultConfig(llm.APIKey)
	if llm.BaseURL != "" {
		clientConfig.BaseURL = llm.BaseURL
	}

	return &Provider{
		client:    openai.NewClientWithConfig(clientConfig),
		llm:       llm,
		embedding: cfg.Embedding,
		backoff:   time.Second,
	}, nil
}

func (p *Provider) Complete(ctx context.Context, prompt string) (string, error) {
	return p.chat(ctx, openai.ChatCompletionRequest{
		Model:       p.llm.Model,
		MaxTokens:   p.llm.MaxTokens,
		Temperature: p.llm.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
}

func (p *Provider) ClassifyShouldRespond(ctx context.Context, prompt string) (ShouldRespond, error) {
	content, err := p.chat(ctx, openai.ChatCompletionRequest{
		Model:       p.llm.Model,
		MaxTokens:   16,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", err
	}

	verdict, ok := ParseShouldRespond(content)
	if !ok {
		slog.Warn("unparseable should-respond output, ignoring", "content", truncateForLog(content, 80))
	}
	return verdict, nil
}

func (p *Provider) ExtractStructured(ctx context.Context, prompt string, schema *Schema) (map[string]any, error) {
	req := openai.ChatCompletionRequest{
		Model:       p.llm.Model,
		MaxTokens:   p.llm.MaxTokens,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}
	if schema != nil {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   schema.Name,
				Schema: schema,
			},
		}
	}

	content, err := p.chat(ctx, req)
	if err != nil {
		return nil, err
	}
	fields, err := ParseJSONObject(content)
	if err != nil {
		slog.Warn("failed to parse structured output", "content", truncateForLog(content, 120), "error", err)
		return map[string]any{}, nil
	}
	return fields, nil
}

// Embed returns nil, nil when no embedding model is configured.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	if p.embedding.Model == "" {
		return nil, nil
	}

	var result []float32
	err := p.doWithRetry(ctx, func(ctx context.Context) error {
		resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: []string{text},
			Model: openai.EmbeddingModel(p.embedding.Model),
		})
		if err != nil {
			return err
		}
		if len(resp.Data) == 0 {
			return fmt.Errorf("empty embedding response")
		}
		result = resp.Data[0].Embedding
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}
	return result, nil
}

func (p *Provider) chat(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	var result string
	err := p.doWithRetry(ctx, func(ctx context.Context) error {
		start := time.Now()
		resp, err := p.client.CreateChatCompletion(ctx, req)
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("empty chat response")
		}
		result = strings.TrimSpace(resp.Choices[0].Message.Content)
		slog.Debug("chat completion finished",
			"model", req.Model,
			"latency_ms", time.Since(start).Milliseconds(),
			"tokens", resp.Usage.TotalTokens)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to complete chat: %w", err)
	}
	return result, nil
}

// doWithRetry executes fn with exponential backoff, bounding each attempt by
// the configured timeout.
func (p *Provider) doWithRetry(ctx context.Context, fn func(context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt < p.llm.MaxRetries; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, p.llm.Timeout)
		err := fn(attemptCtx)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if attempt < p.llm.MaxRetries-1 {
			waitTime := time.Duration(math.Pow(2, float64(attempt))) * p.backoff
			slog.Debug("AI request failed, retrying",
				"attempt", attempt+1,
				"wait_time", waitTime,
				"error", err)
			select {
			case <-time.After(waitTime):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return lastErr
}

func truncateForLog(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
