package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/coursegen/internal/domain"
	"github.com/phrazzld/coursegen/internal/generation"
)

// MockProvider implements generation.Provider for testing.
type MockProvider struct {
	ProviderName domain.ProviderName

	GenerateFn func(ctx context.Context, req generation.Request) (*generation.Response, error)

	// Default values used when GenerateFn isn't set
	Response *generation.Response
	Err      error
	Healthy  bool
	Limits   *generation.RateLimitInfo

	GenerateCalls struct {
		mu       sync.Mutex
		Count    int
		Requests []generation.Request
	}
}

var _ generation.Provider = (*MockProvider)(nil)

// NewMockProvider returns a healthy provider that answers every request with
// content.
func NewMockProvider(name domain.ProviderName, content string) *MockProvider {
	return &MockProvider{
		ProviderName: name,
		Healthy:      true,
		Response: &generation.Response{
			Content:          content,
			TokensUsed:       30,
			PromptTokens:     10,
			CompletionTokens: 20,
			FinishReason:     generation.FinishReasonStop,
			Metadata: generation.ResponseMetadata{
				Provider: name,
				Model:    string(name) + "-test-model",
				Attempts: 1,
			},
		},
	}
}

// NewMockProviderWithError returns a provider whose every call fails with a
// ServiceError of the given kind.
func NewMockProviderWithError(name domain.ProviderName, kind generation.ErrorKind) *MockProvider {
	return &MockProvider{
		ProviderName: name,
		Err: &generation.ServiceError{
			Provider: name,
			Kind:     kind,
			Message:  kind.Message(),
			Attempts: 1,
		},
	}
}

// Name implements generation.Provider.
func (m *MockProvider) Name() domain.ProviderName {
	return m.ProviderName
}

// Generate implements generation.Provider.
func (m *MockProvider) Generate(
	ctx context.Context,
	req generation.Request,
	_ ...generation.GenerateOption,
) (*generation.Response, error) {
	m.GenerateCalls.mu.Lock()
	m.GenerateCalls.Count++
	m.GenerateCalls.Requests = append(m.GenerateCalls.Requests, req)
	m.GenerateCalls.mu.Unlock()

	if m.GenerateFn != nil {
		return m.GenerateFn(ctx, req)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	resp := *m.Response
	return &resp, nil
}

// Calls returns how many times Generate was called.
func (m *MockProvider) Calls() int {
	m.GenerateCalls.mu.Lock()
	defer m.GenerateCalls.mu.Unlock()
	return m.GenerateCalls.Count
}

// LastRequest returns the most recent request, or the zero Request.
func (m *MockProvider) LastRequest() generation.Request {
	m.GenerateCalls.mu.Lock()
	defer m.GenerateCalls.mu.Unlock()
	if n := len(m.GenerateCalls.Requests); n > 0 {
		return m.GenerateCalls.Requests[n-1]
	}
	return generation.Request{}
}

// HealthCheck implements generation.Provider.
func (m *MockProvider) HealthCheck(context.Context) bool {
	return m.Healthy
}

// RateLimitInfo implements generation.Provider.
func (m *MockProvider) RateLimitInfo() *generation.RateLimitInfo {
	return m.Limits
}

// Stats implements generation.Provider.
func (m *MockProvider) Stats() generation.UsageStats {
	m.GenerateCalls.mu.Lock()
	defer m.GenerateCalls.mu.Unlock()
	return generation.UsageStats{TotalRequests: int64(m.GenerateCalls.Count)}
}

// ResetStats implements generation.Provider.
func (m *MockProvider) ResetStats() {
	m.GenerateCalls.mu.Lock()
	defer m.GenerateCalls.mu.Unlock()
	m.GenerateCalls.Count = 0
	m.GenerateCalls.Requests = nil
}
