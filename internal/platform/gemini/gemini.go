package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/phrazzld/coursegen/internal/domain"
	"github.com/phrazzld/coursegen/internal/generation"
	"google.golang.org/genai"
)

// DefaultModel is used when Config.Model is empty.
const DefaultModel = "gemini-2.0-flash"

// Config holds the settings for the Gemini backend.
type Config struct {
	APIKey string
	Model  string

	// RequestTimeout bounds each individual API call. Zero means no
	// per-call timeout beyond the caller's context.
	RequestTimeout time.Duration

	// Estimated limits reported by RateLimitInfo.
	RequestsPerMinute int
	TokensPerMinute   int
}

// contentGenerator is the subset of genai.Models used by Backend.
type contentGenerator interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

// Backend implements generation.Backend for Gemini.
type Backend struct {
	models contentGenerator
	cfg    Config
}

var _ generation.Backend = (*Backend)(nil)

// NewBackend creates a Backend with a genai client for the Gemini API.
func NewBackend(ctx context.Context, cfg Config) (*Backend, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", generation.ErrInvalidConfig, err)
	}

	return newBackend(client.Models, cfg), nil
}

func newBackend(models contentGenerator, cfg Config) *Backend {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	return &Backend{models: models, cfg: cfg}
}

// NewProvider creates a ready-to-use Gemini provider.
func NewProvider(
	ctx context.Context,
	logger *slog.Logger,
	cfg Config,
	opts ...generation.AdapterOption,
) (generation.Provider, error) {
	b, err := NewBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return generation.NewAdapter(b, append([]generation.AdapterOption{generation.WithLogger(logger)}, opts...)...), nil
}

// Name implements generation.Backend.
func (b *Backend) Name() domain.ProviderName {
	return domain.ProviderGemini
}

// Call implements generation.Backend.
func (b *Backend) Call(ctx context.Context, req generation.Request) (*generation.Response, error) {
	if b.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.cfg.RequestTimeout)
		defer cancel()
	}

	resp, err := b.models.GenerateContent(ctx, b.cfg.Model, buildContents(req), buildConfig(req))
	if err != nil {
		return nil, err
	}
	return b.toResponse(resp)
}

// buildContents places each context document in its own part ahead of the
// prompt, all within one user turn.
func buildContents(req generation.Request) []*genai.Content {
	parts := make([]*genai.Part, 0, len(req.ContextDocuments)+1)
	for _, doc := range req.ContextDocuments {
		if strings.TrimSpace(doc) == "" {
			continue
		}
		parts = append(parts, &genai.Part{Text: doc})
	}
	parts = append(parts, &genai.Part{Text: req.Prompt})

	return []*genai.Content{{Role: "user", Parts: parts}}
}

func buildConfig(req generation.Request) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{}
	if req.SystemPrompt != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.SystemPrompt}}}
	}

	c := req.Config
	if c.Temperature != nil {
		cfg.Temperature = genai.Ptr(float32(*c.Temperature))
	}
	if c.TopP != nil {
		cfg.TopP = genai.Ptr(float32(*c.TopP))
	}
	if c.TopK != nil {
		cfg.TopK = genai.Ptr(float32(*c.TopK))
	}
	if c.MaxTokens != nil {
		cfg.MaxOutputTokens = int32(*c.MaxTokens)
	}
	if len(c.StopSequences) > 0 {
		cfg.StopSequences = c.StopSequences
	}
	return cfg
}

func (b *Backend) toResponse(resp *genai.GenerateContentResponse) (*generation.Response, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		if resp != nil && resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return nil, fmt.Errorf("%w: prompt blocked: %s", ErrBlocked, resp.PromptFeedback.BlockReason)
		}
		return nil, generation.ErrEmptyResponse
	}

	candidate := resp.Candidates[0]
	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		if part != nil {
			text.WriteString(part.Text)
		}
	}

	out := &generation.Response{
		Content:      text.String(),
		FinishReason: mapFinishReason(candidate.FinishReason),
		Metadata: generation.ResponseMetadata{
			Model:        b.cfg.Model,
			ModelVersion: resp.ModelVersion,
		},
	}
	if out.FinishReason == generation.FinishReasonError && strings.TrimSpace(out.Content) == "" {
		return nil, fmt.Errorf("%w: finish reason %s", ErrBlocked, candidate.FinishReason)
	}

	if u := resp.UsageMetadata; u != nil {
		out.PromptTokens = int(u.PromptTokenCount)
		out.CompletionTokens = int(u.CandidatesTokenCount)
		out.TokensUsed = out.PromptTokens + out.CompletionTokens
	}

	return out, nil
}

func mapFinishReason(r genai.FinishReason) generation.FinishReason {
	switch string(r) {
	case "STOP":
		return generation.FinishReasonStop
	case "MAX_TOKENS":
		return generation.FinishReasonLength
	case "SAFETY", "RECITATION", "BLOCKLIST", "PROHIBITED_CONTENT", "SPII", "MALFORMED_FUNCTION_CALL":
		return generation.FinishReasonError
	default:
		return generation.FinishReasonOther
	}
}

// RateLimitInfo implements generation.Backend. Gemini does not expose live
// limits, so the configured estimates are returned.
func (b *Backend) RateLimitInfo() *generation.RateLimitInfo {
	if b.cfg.RequestsPerMinute == 0 && b.cfg.TokensPerMinute == 0 {
		return nil
	}
	return &generation.RateLimitInfo{
		RequestsPerMinute: b.cfg.RequestsPerMinute,
		TokensPerMinute:   b.cfg.TokensPerMinute,
	}
}
