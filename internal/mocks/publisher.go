package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/coursegen/internal/publishing"
)

// MockPublisher implements publishing.Publisher for testing.
type MockPublisher struct {
	PublishFn func(ctx context.Context, page publishing.Page) (string, error)

	PageID string
	Err    error

	mu    sync.Mutex
	Pages []publishing.Page
}

var _ publishing.Publisher = (*MockPublisher)(nil)

// Publish implements publishing.Publisher.
func (m *MockPublisher) Publish(ctx context.Context, page publishing.Page) (string, error) {
	m.mu.Lock()
	m.Pages = append(m.Pages, page)
	m.mu.Unlock()

	if m.PublishFn != nil {
		return m.PublishFn(ctx, page)
	}
	return m.PageID, m.Err
}
