package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/coursegen/internal/domain"
	"github.com/phrazzld/coursegen/internal/store"
)

// ContentStore implements store.ContentStore in memory.
type ContentStore struct {
	mu    sync.RWMutex
	items map[uuid.UUID]domain.ContentItem
	now   func() time.Time
}

var _ store.ContentStore = (*ContentStore)(nil)

// NewContentStore creates an empty store.
func NewContentStore() *ContentStore {
	return &ContentStore{
		items: make(map[uuid.UUID]domain.ContentItem),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Create implements store.ContentStore.
func (s *ContentStore) Create(_ context.Context, item *domain.ContentItem) error {
	if err := item.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[item.ID]; exists {
		return fmt.Errorf("%w: content item %s", store.ErrDuplicate, item.ID)
	}

	item.Revision = 1
	s.items[item.ID] = item.Clone()
	return nil
}

// GetByID implements store.ContentStore.
func (s *ContentStore) GetByID(_ context.Context, id uuid.UUID) (*domain.ContentItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[id]
	if !ok {
		return nil, store.ErrContentNotFound
	}
	out := item.Clone()
	return &out, nil
}

// GetMany implements store.ContentStore.
func (s *ContentStore) GetMany(_ context.Context, ids []uuid.UUID) ([]*domain.ContentItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.ContentItem, 0, len(ids))
	for _, id := range ids {
		if item, ok := s.items[id]; ok {
			cp := item.Clone()
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ListBySubject implements store.ContentStore.
func (s *ContentStore) ListBySubject(_ context.Context, subjectID uuid.UUID) ([]*domain.ContentItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.ContentItem
	for _, item := range s.items {
		if item.SubjectID == subjectID {
			cp := item.Clone()
			out = append(out, &cp)
		}
	}
	slices.SortFunc(out, func(a, b *domain.ContentItem) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out, nil
}

// Save implements store.ContentStore.
func (s *ContentStore) Save(_ context.Context, item *domain.ContentItem) error {
	if err := item.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.items[item.ID]
	if !ok {
		return store.ErrContentNotFound
	}
	if stored.Revision != item.Revision {
		return fmt.Errorf("%w: content item %s at revision %d, save based on %d",
			store.ErrConflict, item.ID, stored.Revision, item.Revision)
	}

	item.Revision++
	item.UpdatedAt = s.now()
	s.items[item.ID] = item.Clone()
	return nil
}

// Delete implements store.ContentStore.
func (s *ContentStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return store.ErrContentNotFound
	}
	delete(s.items, id)
	return nil
}
