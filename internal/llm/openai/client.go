package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"templatefill-backend/internal/llm"
	"templatefill-backend/internal/shared/metrics"
	"templatefill-backend/internal/shared/telemetry"
)

const (
	DefaultBaseURL = "https://api.groq.com/openai/v1"
	DefaultModel   = "deepseek-r1-distill-llama-70b"

	temperature = 0.3
	maxTokens   = 2000
	// maxResponseBytes caps how much of a provider reply is read.
	maxResponseBytes = 1 << 20
)

// Config configures a SuggestClient.
type Config struct {
	APIKey     string
	Model      string
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// SuggestClient implements llm.Suggester over an OpenAI-compatible Chat Completions API.
type SuggestClient struct {
	apiKey     string
	model      string
	endpoint   string
	httpClient *http.Client
}

// NewSuggestClient constructs a client. Model and base URL fall back to the Groq defaults.
func NewSuggestClient(cfg Config) (*SuggestClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("LLM_API_KEY is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &SuggestClient{
		apiKey:     strings.TrimSpace(cfg.APIKey),
		model:      model,
		endpoint:   base + "/chat/completions",
		httpClient: httpClient,
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    float32        `json:"temperature"`
	MaxTokens      int            `json:"max_tokens"`
	ResponseFormat responseFormat `json:"response_format"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage,omitempty"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Suggest makes exactly one Chat Completions request. It never retries.
func (c *SuggestClient) Suggest(ctx context.Context, input llm.SuggestInput) (llm.SuggestionResult, error) {
	started := time.Now()
	result, err := c.suggestOnce(ctx, input)
	if err != nil {
		metrics.ObserveSuggestion("unavailable", started)
		telemetry.Error("llm.suggest_failed", map[string]any{
			"model":       c.model,
			"fields":      len(input.Fields),
			"duration_ms": time.Since(started).Milliseconds(),
			"error":       err.Error(),
		})
		return llm.SuggestionResult{}, fmt.Errorf("%w: %v", llm.ErrSuggestionUnavailable, err)
	}
	metrics.ObserveSuggestion("ok", started)
	return result, nil
}

func (c *SuggestClient) suggestOnce(ctx context.Context, input llm.SuggestInput) (llm.SuggestionResult, error) {
	payload, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: llm.SystemPrompt()},
			{Role: "user", Content: llm.UserPrompt(input)},
		},
		Temperature:    temperature,
		MaxTokens:      maxTokens,
		ResponseFormat: responseFormat{Type: "json_object"},
	})
	if err != nil {
		return llm.SuggestionResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return llm.SuggestionResult{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
			return llm.SuggestionResult{}, fmt.Errorf("request timeout: %w", err)
		}
		return llm.SuggestionResult{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return llm.SuggestionResult{}, err
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		if resp.StatusCode/100 != 2 {
			return llm.SuggestionResult{}, fmt.Errorf("provider status %d", resp.StatusCode)
		}
		return llm.SuggestionResult{}, fmt.Errorf("response parse: %w", err)
	}
	if parsed.Error != nil {
		return llm.SuggestionResult{}, fmt.Errorf("provider error: %s (%s)", parsed.Error.Message, parsed.Error.Type)
	}
	if resp.StatusCode/100 != 2 {
		return llm.SuggestionResult{}, fmt.Errorf("provider status %d", resp.StatusCode)
	}
	if len(parsed.Choices) == 0 {
		return llm.SuggestionResult{}, fmt.Errorf("response missing choices")
	}
	logUsage(c.model, parsed)

	content := jsonPayload(parsed.Choices[0].Message.Content)
	if content == "" {
		return llm.SuggestionResult{}, fmt.Errorf("response empty content")
	}
	return llm.ParseResponse([]byte(content), input)
}

var (
	thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)
	codeFence  = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")
)

// jsonPayload strips reasoning blocks and markdown fences some models emit around JSON.
func jsonPayload(content string) string {
	s := strings.TrimSpace(thinkBlock.ReplaceAllString(content, ""))
	if m := codeFence.FindStringSubmatch(s); m != nil {
		s = strings.TrimSpace(m[1])
	}
	return s
}

func logUsage(model string, parsed chatResponse) {
	fields := map[string]any{"model": model, "response_id": parsed.ID}
	if u := parsed.Usage; u != nil {
		fields["prompt_tokens"] = u.PromptTokens
		fields["completion_tokens"] = u.CompletionTokens
		fields["total_tokens"] = u.TotalTokens
	}
	telemetry.Info("llm.response", fields)
}

var _ llm.Suggester = (*SuggestClient)(nil)
