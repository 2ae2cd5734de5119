package mocks

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/coursegen/internal/domain"
	"github.com/phrazzld/coursegen/internal/generation"
	"github.com/phrazzld/coursegen/internal/service"
)

// MockGenerationService implements service.GenerationService for handler
// tests. Each method delegates to its Fn field; unset functions return Item
// (or Result) and Err.
type MockGenerationService struct {
	CreateContentFn func(ctx context.Context, in service.CreateContentInput) (*domain.ContentItem, error)
	GetFn           func(ctx context.Context, id uuid.UUID) (*domain.ContentItem, error)
	ListFn          func(ctx context.Context, subjectID uuid.UUID) ([]*domain.ContentItem, error)
	DeleteFn        func(ctx context.Context, id uuid.UUID) error
	GenerateFn      func(ctx context.Context, id uuid.UUID, in service.GenerateInput) (*domain.ContentItem, error)
	RegenerateFn    func(ctx context.Context, id uuid.UUID, in service.RegenerateInput) (*domain.ContentItem, error)
	CompareFn       func(ctx context.Context, id uuid.UUID, in service.CompareInput) (*domain.ContentItem, error)
	PublishFn       func(ctx context.Context, id uuid.UUID, n int, opts service.PublishOptions) (*service.PublishResult, error)
	RejectFn        func(ctx context.Context, id uuid.UUID, n int, reason string) (*domain.ContentItem, error)
	PromoteFn       func(ctx context.Context, id uuid.UUID, n int) (*domain.ContentItem, error)
	PruneFn         func(ctx context.Context, id uuid.UUID, keep int) (*domain.ContentItem, error)
	StatusesFn      func(ctx context.Context, probe bool) []generation.ProviderStatus

	// Default values used when functions aren't set
	Item     *domain.ContentItem
	Result   *service.PublishResult
	Statuses []generation.ProviderStatus
	Err      error

	mu    sync.Mutex
	calls []string
}

var _ service.GenerationService = (*MockGenerationService)(nil)

func (m *MockGenerationService) record(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, name)
}

// Calls returns the names of the methods called so far, in order.
func (m *MockGenerationService) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// CreateContent implements service.GenerationService.
func (m *MockGenerationService) CreateContent(
	ctx context.Context,
	in service.CreateContentInput,
) (*domain.ContentItem, error) {
	m.record("CreateContent")
	if m.CreateContentFn != nil {
		return m.CreateContentFn(ctx, in)
	}
	return m.Item, m.Err
}

// Get implements service.GenerationService.
func (m *MockGenerationService) Get(ctx context.Context, id uuid.UUID) (*domain.ContentItem, error) {
	m.record("Get")
	if m.GetFn != nil {
		return m.GetFn(ctx, id)
	}
	return m.Item, m.Err
}

// ListBySubject implements service.GenerationService.
func (m *MockGenerationService) ListBySubject(ctx context.Context, subjectID uuid.UUID) ([]*domain.ContentItem, error) {
	m.record("ListBySubject")
	if m.ListFn != nil {
		return m.ListFn(ctx, subjectID)
	}
	if m.Err != nil || m.Item == nil {
		return nil, m.Err
	}
	return []*domain.ContentItem{m.Item}, nil
}

// Delete implements service.GenerationService.
func (m *MockGenerationService) Delete(ctx context.Context, id uuid.UUID) error {
	m.record("Delete")
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, id)
	}
	return m.Err
}

// Generate implements service.GenerationService.
func (m *MockGenerationService) Generate(
	ctx context.Context,
	id uuid.UUID,
	in service.GenerateInput,
) (*domain.ContentItem, error) {
	m.record("Generate")
	if m.GenerateFn != nil {
		return m.GenerateFn(ctx, id, in)
	}
	return m.Item, m.Err
}

// Regenerate implements service.GenerationService.
func (m *MockGenerationService) Regenerate(
	ctx context.Context,
	id uuid.UUID,
	in service.RegenerateInput,
) (*domain.ContentItem, error) {
	m.record("Regenerate")
	if m.RegenerateFn != nil {
		return m.RegenerateFn(ctx, id, in)
	}
	return m.Item, m.Err
}

// Compare implements service.GenerationService.
func (m *MockGenerationService) Compare(
	ctx context.Context,
	id uuid.UUID,
	in service.CompareInput,
) (*domain.ContentItem, error) {
	m.record("Compare")
	if m.CompareFn != nil {
		return m.CompareFn(ctx, id, in)
	}
	return m.Item, m.Err
}

// Publish implements service.GenerationService.
func (m *MockGenerationService) Publish(
	ctx context.Context,
	id uuid.UUID,
	versionNumber int,
	opts service.PublishOptions,
) (*service.PublishResult, error) {
	m.record("Publish")
	if m.PublishFn != nil {
		return m.PublishFn(ctx, id, versionNumber, opts)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Result != nil {
		return m.Result, nil
	}
	return &service.PublishResult{Item: m.Item}, nil
}

// Reject implements service.GenerationService.
func (m *MockGenerationService) Reject(
	ctx context.Context,
	id uuid.UUID,
	versionNumber int,
	reason string,
) (*domain.ContentItem, error) {
	m.record("Reject")
	if m.RejectFn != nil {
		return m.RejectFn(ctx, id, versionNumber, reason)
	}
	return m.Item, m.Err
}

// Promote implements service.GenerationService.
func (m *MockGenerationService) Promote(ctx context.Context, id uuid.UUID, versionNumber int) (*domain.ContentItem, error) {
	m.record("Promote")
	if m.PromoteFn != nil {
		return m.PromoteFn(ctx, id, versionNumber)
	}
	return m.Item, m.Err
}

// Prune implements service.GenerationService.
func (m *MockGenerationService) Prune(ctx context.Context, id uuid.UUID, keepCount int) (*domain.ContentItem, error) {
	m.record("Prune")
	if m.PruneFn != nil {
		return m.PruneFn(ctx, id, keepCount)
	}
	return m.Item, m.Err
}

// ProviderStatuses implements service.GenerationService.
func (m *MockGenerationService) ProviderStatuses(ctx context.Context, probe bool) []generation.ProviderStatus {
	m.record("ProviderStatuses")
	if m.StatusesFn != nil {
		return m.StatusesFn(ctx, probe)
	}
	return m.Statuses
}
