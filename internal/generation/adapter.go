package generation

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/phrazzld/coursegen/internal/domain"
)

// DefaultHealthCheckTimeout bounds a single health probe.
const DefaultHealthCheckTimeout = 10 * time.Second

// healthCheckPrompt is the minimal request used to probe a provider.
const healthCheckPrompt = "Reply with the single word OK."

// Adapter wraps a Backend with retries, timing, usage statistics and error
// normalization. It implements Provider and is safe for concurrent use.
type Adapter struct {
	backend       Backend
	policy        RetryPolicy
	logger        *slog.Logger
	observer      Observer
	healthTimeout time.Duration
	stats         *statsTracker
	now           func() time.Time
}

var _ Provider = (*Adapter)(nil)

// AdapterOption configures an Adapter.
type AdapterOption func(*Adapter)

// WithDefaultRetryPolicy sets the policy used when a call has no override.
func WithDefaultRetryPolicy(p RetryPolicy) AdapterOption {
	return func(a *Adapter) { a.policy = p }
}

// WithLogger sets the adapter's logger.
func WithLogger(l *slog.Logger) AdapterOption {
	return func(a *Adapter) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithObserver registers an Observer for call outcomes.
func WithObserver(o Observer) AdapterOption {
	return func(a *Adapter) { a.observer = o }
}

// WithHealthCheckTimeout overrides DefaultHealthCheckTimeout.
func WithHealthCheckTimeout(d time.Duration) AdapterOption {
	return func(a *Adapter) {
		if d > 0 {
			a.healthTimeout = d
		}
	}
}

// WithClock overrides the clock used for LastRequestAt.
func WithClock(now func() time.Time) AdapterOption {
	return func(a *Adapter) { a.now = now }
}

// NewAdapter creates a Provider around the given Backend.
func NewAdapter(backend Backend, opts ...AdapterOption) *Adapter {
	a := &Adapter{
		backend:       backend,
		policy:        DefaultRetryPolicy(),
		logger:        slog.Default(),
		healthTimeout: DefaultHealthCheckTimeout,
		stats:         newStatsTracker(),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.With("provider", string(backend.Name()))
	return a
}

// GenerateOption adjusts a single Generate call.
type GenerateOption func(*generateOptions)

type generateOptions struct {
	policy *RetryPolicy
}

// WithRetryPolicy overrides the adapter's retry policy for one call.
func WithRetryPolicy(p RetryPolicy) GenerateOption {
	return func(o *generateOptions) { o.policy = &p }
}

// Name returns the backend's provider name.
func (a *Adapter) Name() domain.ProviderName {
	return a.backend.Name()
}

// Generate implements Provider.
func (a *Adapter) Generate(ctx context.Context, req Request, opts ...GenerateOption) (*Response, error) {
	var o generateOptions
	for _, opt := range opts {
		opt(&o)
	}
	policy := a.policy
	if o.policy != nil {
		policy = *o.policy
	}

	name := a.backend.Name()

	if err := req.Validate(); err != nil {
		a.stats.recordFailure(a.now(), ErrorKindInvalidRequest)
		if a.observer != nil {
			a.observer.ObserveFailure(name, 0, ErrorKindInvalidRequest)
		}
		return nil, &ServiceError{
			Provider: name,
			Kind:     ErrorKindInvalidRequest,
			Message:  ErrorKindInvalidRequest.Message(),
			Err:      err,
		}
	}

	hook := LogRetries(ctx, a.logger, string(name))
	if a.observer != nil {
		logHook := hook
		hook = func(n int, d time.Duration, kind ErrorKind, err error) {
			a.observer.ObserveRetry(name, kind)
			logHook(n, d, kind, err)
		}
	}

	start := time.Now()
	resp, outcome, err := ExecuteWithRetry(ctx, policy, a.classify, func(ctx context.Context) (*Response, error) {
		r, err := a.backend.Call(ctx, req)
		if err != nil {
			return nil, err
		}
		if r == nil || strings.TrimSpace(r.Content) == "" {
			return nil, ErrEmptyResponse
		}
		return r, nil
	}, hook)
	latency := time.Since(start)

	if err != nil {
		kind := outcome.Kind
		if kind == "" {
			kind = ErrorKindUnknown
		}
		a.stats.recordFailure(a.now(), kind)
		if a.observer != nil {
			a.observer.ObserveFailure(name, latency, kind)
		}
		a.logger.ErrorContext(ctx, "provider call failed",
			"error_kind", kind,
			"attempts", outcome.Attempts,
			"latency_ms", latency.Milliseconds(),
			"error", err)
		return nil, &ServiceError{
			Provider:  name,
			Kind:      kind,
			Message:   kind.Message(),
			Retryable: policy.IsRetryable(kind),
			Attempts:  outcome.Attempts,
			Err:       err,
		}
	}

	if resp.TokensUsed == 0 {
		resp.TokensUsed = resp.PromptTokens + resp.CompletionTokens
	}
	if resp.FinishReason == "" {
		resp.FinishReason = FinishReasonOther
	}
	resp.Metadata.Provider = name
	resp.Metadata.Latency = latency
	resp.Metadata.Attempts = outcome.Attempts

	a.stats.recordSuccess(a.now(), latency, resp.TokensUsed)
	if a.observer != nil {
		a.observer.ObserveSuccess(name, latency, resp.TokensUsed)
	}
	a.logger.DebugContext(ctx, "provider call succeeded",
		"model", resp.Metadata.Model,
		"tokens", resp.TokensUsed,
		"attempts", outcome.Attempts,
		"latency_ms", latency.Milliseconds())

	return resp, nil
}

// classify prefers kinds already attached to the error, then defers to the
// backend's vendor-specific classifier.
func (a *Adapter) classify(err error) ErrorKind {
	var svcErr *ServiceError
	switch {
	case errors.As(err, &svcErr):
		return svcErr.Kind
	case errors.Is(err, ErrEmptyResponse):
		return ErrorKindUnknown
	case errors.Is(err, ErrInvalidRequest):
		return ErrorKindInvalidRequest
	}
	return a.backend.Classify(err)
}

// HealthCheck implements Provider.
func (a *Adapter) HealthCheck(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, a.healthTimeout)
	defer cancel()

	maxTokens := 5
	_, err := a.backend.Call(ctx, Request{
		Prompt: healthCheckPrompt,
		Config: GenerationConfig{MaxTokens: &maxTokens},
	})
	if err != nil {
		a.logger.WarnContext(ctx, "provider health check failed",
			"error_kind", a.classify(err),
			"error", err)
		return false
	}
	return true
}

// RateLimitInfo implements Provider.
func (a *Adapter) RateLimitInfo() *RateLimitInfo {
	return a.backend.RateLimitInfo()
}

// Stats implements Provider.
func (a *Adapter) Stats() UsageStats {
	return a.stats.snapshot()
}

// ResetStats implements Provider.
func (a *Adapter) ResetStats() {
	a.stats.reset()
}
