package claude

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/phrazzld/coursegen/internal/domain"
	"github.com/phrazzld/coursegen/internal/generation"
)

const (
	// DefaultBaseURL is the Anthropic API endpoint.
	DefaultBaseURL = "https://api.anthropic.com"

	// DefaultAPIVersion is sent in the anthropic-version header.
	DefaultAPIVersion = "2023-06-01"

	// DefaultModel is used when Config.Model is empty.
	DefaultModel = "claude-sonnet-4-20250514"

	// DefaultMaxTokens is required by the API when the request sets none.
	DefaultMaxTokens = 4096

	// DefaultTimeout bounds each HTTP call.
	DefaultTimeout = 120 * time.Second

	// maxErrorBody caps how much of an error response is read.
	maxErrorBody = 64 << 10
)

// HTTPClient is the subset of *http.Client used by Backend.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config holds the settings for the Claude backend.
type Config struct {
	APIKey     string
	BaseURL    string
	APIVersion string
	Model      string
	Timeout    time.Duration

	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient HTTPClient
}

// Backend implements generation.Backend for Claude.
type Backend struct {
	apiKey     string
	baseURL    string
	apiVersion string
	model      string
	client     HTTPClient

	mu     sync.RWMutex
	limits *generation.RateLimitInfo
}

var _ generation.Backend = (*Backend)(nil)

// NewBackend validates cfg and applies defaults.
func NewBackend(cfg Config) (*Backend, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("%w: claude API key cannot be empty", generation.ErrInvalidConfig)
	}

	b := &Backend{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiVersion: cfg.APIVersion,
		model:      cfg.Model,
		client:     cfg.HTTPClient,
	}
	if b.baseURL == "" {
		b.baseURL = DefaultBaseURL
	}
	if b.apiVersion == "" {
		b.apiVersion = DefaultAPIVersion
	}
	if b.model == "" {
		b.model = DefaultModel
	}
	if b.client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		b.client = &http.Client{Timeout: timeout}
	}
	return b, nil
}

// NewProvider creates a ready-to-use Claude provider.
func NewProvider(logger *slog.Logger, cfg Config, opts ...generation.AdapterOption) (generation.Provider, error) {
	b, err := NewBackend(cfg)
	if err != nil {
		return nil, err
	}
	return generation.NewAdapter(b, append([]generation.AdapterOption{generation.WithLogger(logger)}, opts...)...), nil
}

// Name implements generation.Backend.
func (b *Backend) Name() domain.ProviderName {
	return domain.ProviderClaude
}

// Call implements generation.Backend.
func (b *Backend) Call(ctx context.Context, req generation.Request) (*generation.Response, error) {
	body, err := json.Marshal(b.buildRequest(req))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to marshal request: %v", generation.ErrInvalidRequest, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", b.apiKey)
	httpReq.Header.Set("anthropic-version", b.apiVersion)

	resp, err := b.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("claude request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if info := parseRateLimitHeaders(resp.Header); info != nil {
		b.mu.Lock()
		b.limits = info
		b.mu.Unlock()
	}

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, parseAPIError(resp.StatusCode, resp.Header.Get("request-id"), raw)
	}

	var apiResp messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	var text strings.Builder
	for _, block := range apiResp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	return &generation.Response{
		Content:          text.String(),
		PromptTokens:     apiResp.Usage.InputTokens,
		CompletionTokens: apiResp.Usage.OutputTokens,
		TokensUsed:       apiResp.Usage.InputTokens + apiResp.Usage.OutputTokens,
		FinishReason:     mapStopReason(apiResp.StopReason),
		Metadata: generation.ResponseMetadata{
			Model:        b.model,
			ModelVersion: apiResp.Model,
			RequestID:    apiResp.ID,
		},
	}, nil
}

func (b *Backend) buildRequest(req generation.Request) messagesRequest {
	out := messagesRequest{
		Model:     b.model,
		MaxTokens: DefaultMaxTokens,
		System:    req.SystemPrompt,
		Messages: []message{
			{Role: "user", Content: req.UserPrompt()},
		},
		Temperature:   req.Config.Temperature,
		TopP:          req.Config.TopP,
		TopK:          req.Config.TopK,
		StopSequences: req.Config.StopSequences,
	}
	if req.Config.MaxTokens != nil {
		out.MaxTokens = *req.Config.MaxTokens
	}
	// The API accepts temperatures up to 1.
	if out.Temperature != nil && *out.Temperature > 1 {
		t := 1.0
		out.Temperature = &t
	}
	return out
}

func mapStopReason(reason string) generation.FinishReason {
	switch reason {
	case "end_turn", "stop_sequence":
		return generation.FinishReasonStop
	case "max_tokens":
		return generation.FinishReasonLength
	case "refusal":
		return generation.FinishReasonError
	default:
		return generation.FinishReasonOther
	}
}

// RateLimitInfo implements generation.Backend with the limits reported by the
// most recent response, or nil before the first call.
func (b *Backend) RateLimitInfo() *generation.RateLimitInfo {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.limits == nil {
		return nil
	}
	cp := *b.limits
	return &cp
}

type messagesRequest struct {
	Model         string    `json:"model"`
	Messages      []message `json:"messages"`
	MaxTokens     int       `json:"max_tokens"`
	System        string    `json:"system,omitempty"`
	Temperature   *float64  `json:"temperature,omitempty"`
	TopP          *float64  `json:"top_p,omitempty"`
	TopK          *int      `json:"top_k,omitempty"`
	StopSequences []string  `json:"stop_sequences,omitempty"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	ID         string `json:"id"`
	Model      string `json:"model"`
	StopReason string `json:"stop_reason"`
	Content    []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}
