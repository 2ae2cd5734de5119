package generation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/phrazzld/coursegen/internal/domain"
)

// FinishReason is the normalized reason a provider stopped generating.
type FinishReason string

// Normalized finish reasons.
const (
	FinishReasonStop   FinishReason = "stop"
	FinishReasonLength FinishReason = "length"
	FinishReasonError  FinishReason = "error"
	FinishReasonOther  FinishReason = "other"
)

// GenerationConfig holds optional sampling parameters. Nil fields fall back to
// the provider's defaults.
type GenerationConfig struct {
	Temperature   *float64 `json:"temperature,omitempty"`
	MaxTokens     *int     `json:"max_tokens,omitempty"`
	TopP          *float64 `json:"top_p,omitempty"`
	TopK          *int     `json:"top_k,omitempty"`
	StopSequences []string `json:"stop_sequences,omitempty"`
}

// Request is a single provider-independent generation request.
type Request struct {
	Prompt           string
	SystemPrompt     string
	ContextDocuments []string
	Config           GenerationConfig
}

// Validate performs local checks before any provider is called.
func (r Request) Validate() error {
	if strings.TrimSpace(r.Prompt) == "" {
		return fmt.Errorf("%w: prompt cannot be empty", ErrInvalidRequest)
	}
	c := r.Config
	if c.Temperature != nil && (*c.Temperature < 0 || *c.Temperature > 2) {
		return fmt.Errorf("%w: temperature must be between 0 and 2", ErrInvalidRequest)
	}
	if c.MaxTokens != nil && *c.MaxTokens <= 0 {
		return fmt.Errorf("%w: max tokens must be positive", ErrInvalidRequest)
	}
	if c.TopP != nil && (*c.TopP < 0 || *c.TopP > 1) {
		return fmt.Errorf("%w: top_p must be between 0 and 1", ErrInvalidRequest)
	}
	if c.TopK != nil && *c.TopK <= 0 {
		return fmt.Errorf("%w: top_k must be positive", ErrInvalidRequest)
	}
	return nil
}

// UserPrompt folds the context documents into the prompt for vendors that
// accept a single user message.
func (r Request) UserPrompt() string {
	if len(r.ContextDocuments) == 0 {
		return r.Prompt
	}
	var b strings.Builder
	b.WriteString("Use the following reference material.\n\n")
	for i, doc := range r.ContextDocuments {
		fmt.Fprintf(&b, "<document index=\"%d\">\n%s\n</document>\n\n", i+1, doc)
	}
	b.WriteString(r.Prompt)
	return b.String()
}

// ResponseMetadata describes where and how a response was produced.
type ResponseMetadata struct {
	Provider     domain.ProviderName `json:"provider"`
	Model        string              `json:"model"`
	ModelVersion string              `json:"model_version,omitempty"`
	RequestID    string              `json:"request_id,omitempty"`
	Latency      time.Duration       `json:"latency"`
	Attempts     int                 `json:"attempts"`
}

// Response is the provider-independent result of a successful generation.
type Response struct {
	Content          string           `json:"content"`
	TokensUsed       int              `json:"tokens_used"`
	PromptTokens     int              `json:"prompt_tokens"`
	CompletionTokens int              `json:"completion_tokens"`
	FinishReason     FinishReason     `json:"finish_reason"`
	Metadata         ResponseMetadata `json:"metadata"`
}

// RateLimitInfo is a provider's last known rate-limit budget.
type RateLimitInfo struct {
	RequestsPerMinute int       `json:"requests_per_minute"`
	TokensPerMinute   int       `json:"tokens_per_minute"`
	RemainingRequests *int      `json:"remaining_requests,omitempty"`
	RemainingTokens   *int      `json:"remaining_tokens,omitempty"`
	ResetAt           time.Time `json:"reset_at,omitempty"`
}

// Provider is the uniform contract every AI text-generation vendor satisfies.
type Provider interface {
	Name() domain.ProviderName

	// Generate produces content, retrying transient failures. Any returned
	// error is a *ServiceError.
	Generate(ctx context.Context, req Request, opts ...GenerateOption) (*Response, error)

	// HealthCheck issues one minimal request and reports whether it succeeded.
	// It never returns an error and is not counted in usage statistics.
	HealthCheck(ctx context.Context) bool

	// RateLimitInfo returns the latest known limits, or nil if none are known.
	RateLimitInfo() *RateLimitInfo

	Stats() UsageStats
	ResetStats()
}

// Backend is a single vendor integration: one raw call and a classifier for
// the vendor's errors. NewAdapter turns a Backend into a Provider.
type Backend interface {
	Name() domain.ProviderName

	// Call performs exactly one vendor request with no retries.
	Call(ctx context.Context, req Request) (*Response, error)

	// Classify maps an error returned by Call to an ErrorKind.
	Classify(err error) ErrorKind

	RateLimitInfo() *RateLimitInfo
}

// Observer receives the outcome of every Generate call. Used for metrics.
type Observer interface {
	ObserveSuccess(provider domain.ProviderName, latency time.Duration, tokens int)
	ObserveFailure(provider domain.ProviderName, latency time.Duration, kind ErrorKind)
	ObserveRetry(provider domain.ProviderName, kind ErrorKind)
}
