package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/coursegen/internal/domain"
)

// ContentStore persists content items together with their versions.
//
// Items are saved whole: Save replaces the stored versions, current index
// and item fields in one atomic step. Saves are guarded by ContentItem.Revision
// so a stale copy can never overwrite a newer one.
type ContentStore interface {
	// Create inserts a new item. Returns ErrInvalidEntity if the item fails
	// validation and ErrDuplicate if the id is taken. On success item.Revision
	// is set to 1.
	Create(ctx context.Context, item *domain.ContentItem) error

	// GetByID returns the item with all its versions ordered by number.
	// Returns ErrContentNotFound if the item does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ContentItem, error)

	// GetMany returns the items that exist among ids, in the order given.
	// Missing ids are skipped.
	GetMany(ctx context.Context, ids []uuid.UUID) ([]*domain.ContentItem, error)

	// ListBySubject returns the items of a subject, newest first.
	ListBySubject(ctx context.Context, subjectID uuid.UUID) ([]*domain.ContentItem, error)

	// Save stores item if the stored revision equals item.Revision, then
	// increments item.Revision and sets UpdatedAt. Returns ErrConflict on a
	// revision mismatch and ErrContentNotFound if the item does not exist.
	Save(ctx context.Context, item *domain.ContentItem) error

	// Delete removes the item and its versions.
	// Returns ErrContentNotFound if the item does not exist.
	Delete(ctx context.Context, id uuid.UUID) error
}
