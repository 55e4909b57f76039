package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"project-advisor/internal/config"
	"project-advisor/internal/helpers"

	openai "github.com/sashabaranov/go-openai"
)

// ErrEmptyResponse is returned when a provider answers with no text
var ErrEmptyResponse = errors.New("empty response from generative API")

// Generator sends a prompt to a generative text API and returns its text
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a function to Generator
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

// Generate calls f
func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// NewGenerator builds the configured provider wrapped with retries
func NewGenerator(aiConfig *config.AIConfig) (Generator, error) {
	var g Generator
	switch aiConfig.Provider {
	case config.ProviderGemini:
		g = NewGeminiClient(aiConfig)
	case config.ProviderAnthropic:
		g = NewAnthropicClient(aiConfig)
	case config.ProviderOpenAI:
		g = NewOpenAIClient(aiConfig)
	default:
		return nil, fmt.Errorf("unsupported AI provider %q", aiConfig.Provider)
	}

	return NewRetryingGenerator(g, aiConfig.RetryCount, time.Duration(aiConfig.RetryDelaySeconds)*time.Second), nil
}

// GeminiClient calls the Google Gemini generateContent endpoint
type GeminiClient struct {
	config  *config.AIConfig
	client  *http.Client
	baseURL string
}

// NewGeminiClient creates a new Gemini client
func NewGeminiClient(aiConfig *config.AIConfig) *GeminiClient {
	baseURL := aiConfig.BaseURL
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}
	return &GeminiClient{
		config:  aiConfig,
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: time.Duration(aiConfig.TimeoutSeconds) * time.Second,
		},
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

// Generate sends prompt as a single user turn
func (c *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	reqBody := map[string]interface{}{
		"contents": []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: prompt}}},
		},
		"generationConfig": map[string]interface{}{
			"maxOutputTokens": c.config.MaxTokens,
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.config.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.config.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var apiResponse struct {
		Candidates []struct {
			Content geminiContent `json:"content"`
		} `json:"candidates"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return "", fmt.Errorf("failed to decode API response: %w", err)
	}

	if len(apiResponse.Candidates) == 0 {
		return "", ErrEmptyResponse
	}

	var text strings.Builder
	for _, part := range apiResponse.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}
	if text.Len() == 0 {
		return "", ErrEmptyResponse
	}

	return text.String(), nil
}

// AnthropicClient calls the Anthropic messages endpoint
type AnthropicClient struct {
	config  *config.AIConfig
	client  *http.Client
	baseURL string
}

// NewAnthropicClient creates a new Anthropic client
func NewAnthropicClient(aiConfig *config.AIConfig) *AnthropicClient {
	baseURL := aiConfig.BaseURL
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}
	return &AnthropicClient{
		config:  aiConfig,
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: time.Duration(aiConfig.TimeoutSeconds) * time.Second,
		},
	}
}

// Generate sends prompt as a single user message
func (c *AnthropicClient) Generate(ctx context.Context, prompt string) (string, error) {
	reqBody := map[string]interface{}{
		"model":      c.config.Model,
		"max_tokens": c.config.MaxTokens,
		"messages": []map[string]string{
			{
				"role":    "user",
				"content": prompt,
			},
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.config.APIKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var apiResponse struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return "", fmt.Errorf("failed to decode API response: %w", err)
	}

	if len(apiResponse.Content) == 0 {
		return "", ErrEmptyResponse
	}

	return apiResponse.Content[0].Text, nil
}

// OpenAIClient calls any OpenAI-compatible chat completions endpoint
type OpenAIClient struct {
	config *config.AIConfig
	client *openai.Client
}

// NewOpenAIClient creates a new OpenAI-compatible client
func NewOpenAIClient(aiConfig *config.AIConfig) *OpenAIClient {
	clientConfig := openai.DefaultConfig(aiConfig.APIKey)
	if aiConfig.BaseURL != "" {
		clientConfig.BaseURL = aiConfig.BaseURL
	}
	clientConfig.HTTPClient = &http.Client{
		Timeout: time.Duration(aiConfig.TimeoutSeconds) * time.Second,
	}
	return &OpenAIClient{
		config: aiConfig,
		client: openai.NewClientWithConfig(clientConfig),
	}
}

// Generate sends prompt as a single user message
func (c *OpenAIClient) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     c.config.Model,
		MaxTokens: c.config.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("API request failed: %w", err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrEmptyResponse
	}

	return resp.Choices[0].Message.Content, nil
}

// RetryingGenerator retries a Generator with a fixed delay between attempts
type RetryingGenerator struct {
	next     Generator
	attempts int
	delay    time.Duration
}

// NewRetryingGenerator wraps next; attempts below one are treated as one
func NewRetryingGenerator(next Generator, attempts int, delay time.Duration) *RetryingGenerator {
	if attempts < 1 {
		attempts = 1
	}
	return &RetryingGenerator{next: next, attempts: attempts, delay: delay}
}

// Generate calls the wrapped generator until it succeeds, attempts run out
// or ctx is done
func (g *RetryingGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	var lastErr error

	for attempt := 1; attempt <= g.attempts; attempt++ {
		text, err := g.next.Generate(ctx, prompt)
		if err == nil {
			return text, nil
		}

		lastErr = err
		if ctx.Err() != nil {
			break
		}
		helpers.PrintWarning("Generation attempt %d/%d failed: %v", attempt, g.attempts, err)

		if attempt < g.attempts {
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("generation cancelled: %w", ctx.Err())
			case <-time.After(g.delay):
			}
		}
	}

	return "", fmt.Errorf("generation failed after %d attempts: %w", g.attempts, lastErr)
}
