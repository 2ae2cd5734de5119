package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/coursegen/internal/domain"
	"github.com/phrazzld/coursegen/internal/platform/logger"
	"github.com/phrazzld/coursegen/internal/store"
)

const (
	selectItemColumns = `
		SELECT id, subject_id, content_type, title, specifications,
		       current_version_index, last_version_number, external_page_id,
		       revision, created_at, updated_at
		FROM content_items`

	selectVersionsQuery = `
		SELECT version_number, status, provider_used, prompt_used, content,
		       generation_metadata, created_at, published_at, rejected_at, rejection_reason
		FROM content_versions
		WHERE content_id = $1
		ORDER BY version_number ASC`

	insertVersionQuery = `
		INSERT INTO content_versions (
			content_id, version_number, status, provider_used, prompt_used, content,
			generation_metadata, created_at, published_at, rejected_at, rejection_reason
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
)

// PostgresContentStore implements store.ContentStore. An item row and its
// version rows are always written in one transaction.
type PostgresContentStore struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

// NewPostgresContentStore creates a content store on db.
// If logger is nil, a default logger will be used.
func NewPostgresContentStore(db *sql.DB, logger *slog.Logger) *PostgresContentStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresContentStore{
		db:     db,
		logger: logger.With(slog.String("component", "content_store")),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

var _ store.ContentStore = (*PostgresContentStore)(nil)

// Create implements store.ContentStore.Create.
func (s *PostgresContentStore) Create(ctx context.Context, item *domain.ContentItem) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := item.Validate(); err != nil {
		log.Warn("content item validation failed during create",
			slog.String("error", err.Error()),
			slog.String("content_id", item.ID.String()))
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	specs, err := marshalJSON(item.Specifications)
	if err != nil {
		return err
	}

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO content_items (
				id, subject_id, content_type, title, specifications,
				current_version_index, last_version_number, external_page_id,
				revision, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 1, $9, $10)`,
			item.ID,
			item.SubjectID,
			string(item.ContentType),
			item.Title,
			specs,
			nullIndex(item.CurrentVersionIndex),
			item.LastVersionNumber,
			item.ExternalPageID,
			item.CreatedAt,
			item.UpdatedAt,
		)
		if err != nil {
			return MapError(err)
		}
		return insertVersions(ctx, tx, item.ID, item.Versions)
	})
	if err != nil {
		log.Error("failed to create content item",
			slog.String("error", err.Error()),
			slog.String("content_id", item.ID.String()))
		return err
	}

	item.Revision = 1
	log.Info("content item created",
		slog.String("content_id", item.ID.String()),
		slog.String("content_type", string(item.ContentType)))
	return nil
}

// GetByID implements store.ContentStore.GetByID.
func (s *PostgresContentStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.ContentItem, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	log.Debug("retrieving content item", slog.String("content_id", id.String()))

	item, err := scanItem(s.db.QueryRowContext(ctx, selectItemColumns+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrContentNotFound
		}
		log.Error("failed to retrieve content item",
			slog.String("error", err.Error()),
			slog.String("content_id", id.String()))
		return nil, MapError(err)
	}

	if err := s.loadVersions(ctx, item); err != nil {
		log.Error("failed to retrieve content versions",
			slog.String("error", err.Error()),
			slog.String("content_id", id.String()))
		return nil, err
	}
	return item, nil
}

// GetMany implements store.ContentStore.GetMany.
func (s *PostgresContentStore) GetMany(ctx context.Context, ids []uuid.UUID) ([]*domain.ContentItem, error) {
	items := make([]*domain.ContentItem, 0, len(ids))
	for _, id := range ids {
		item, err := s.GetByID(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// ListBySubject implements store.ContentStore.ListBySubject.
func (s *PostgresContentStore) ListBySubject(ctx context.Context, subjectID uuid.UUID) ([]*domain.ContentItem, error) {
	rows, err := s.db.QueryContext(ctx,
		selectItemColumns+` WHERE subject_id = $1 ORDER BY created_at DESC`, subjectID)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var items []*domain.ContentItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, MapError(err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	if err := rows.Close(); err != nil {
		return nil, MapError(err)
	}

	for _, item := range items {
		if err := s.loadVersions(ctx, item); err != nil {
			return nil, err
		}
	}
	return items, nil
}

// Save implements store.ContentStore.Save. The item row update is guarded by
// the revision column; versions are replaced wholesale.
func (s *PostgresContentStore) Save(ctx context.Context, item *domain.ContentItem) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := item.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	specs, err := marshalJSON(item.Specifications)
	if err != nil {
		return err
	}
	updatedAt := s.now()

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE content_items
			SET subject_id = $3, content_type = $4, title = $5, specifications = $6,
			    current_version_index = $7, last_version_number = $8,
			    external_page_id = $9, revision = revision + 1, updated_at = $10
			WHERE id = $1 AND revision = $2`,
			item.ID,
			item.Revision,
			item.SubjectID,
			string(item.ContentType),
			item.Title,
			specs,
			nullIndex(item.CurrentVersionIndex),
			item.LastVersionNumber,
			item.ExternalPageID,
			updatedAt,
		)
		if err != nil {
			return MapError(err)
		}

		if err := CheckRowsAffected(result, "content item"); err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				return err
			}
			var exists bool
			if err := tx.QueryRowContext(ctx,
				`SELECT EXISTS (SELECT 1 FROM content_items WHERE id = $1)`, item.ID,
			).Scan(&exists); err != nil {
				return MapError(err)
			}
			if !exists {
				return store.ErrContentNotFound
			}
			return store.NewStoreError("content item", "save",
				fmt.Sprintf("%s at revision %d is stale", item.ID, item.Revision), store.ErrConflict)
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM content_versions WHERE content_id = $1`, item.ID); err != nil {
			return MapError(err)
		}
		return insertVersions(ctx, tx, item.ID, item.Versions)
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			log.Warn("rejected stale content item save",
				slog.String("content_id", item.ID.String()),
				slog.Int("revision", item.Revision))
		}
		return err
	}

	item.Revision++
	item.UpdatedAt = updatedAt
	log.Debug("content item saved",
		slog.String("content_id", item.ID.String()),
		slog.Int("revision", item.Revision),
		slog.Int("versions", len(item.Versions)))
	return nil
}

// Delete implements store.ContentStore.Delete. Versions go with the item via
// ON DELETE CASCADE.
func (s *PostgresContentStore) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM content_items WHERE id = $1`, id)
	if err != nil {
		return MapError(err)
	}
	if err := CheckRowsAffected(result, "content item"); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.ErrContentNotFound
		}
		return err
	}
	logger.FromContextOrDefault(ctx, s.logger).Info("content item deleted",
		slog.String("content_id", id.String()))
	return nil
}

func (s *PostgresContentStore) loadVersions(ctx context.Context, item *domain.ContentItem) error {
	rows, err := s.db.QueryContext(ctx, selectVersionsQuery, item.ID)
	if err != nil {
		return MapError(err)
	}
	defer func() { _ = rows.Close() }()

	item.Versions = []domain.ContentVersion{}
	for rows.Next() {
		var (
			v           domain.ContentVersion
			status      string
			provider    string
			metadata    []byte
			publishedAt sql.NullTime
			rejectedAt  sql.NullTime
		)
		if err := rows.Scan(
			&v.VersionNumber,
			&status,
			&provider,
			&v.PromptUsed,
			&v.Content,
			&metadata,
			&v.CreatedAt,
			&publishedAt,
			&rejectedAt,
			&v.RejectionReason,
		); err != nil {
			return MapError(err)
		}
		v.Status = domain.VersionStatus(status)
		v.ProviderUsed = domain.ProviderName(provider)
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &v.Metadata); err != nil {
				return fmt.Errorf("failed to decode metadata of version %d: %w", v.VersionNumber, err)
			}
		}
		v.PublishedAt = timePtr(publishedAt)
		v.RejectedAt = timePtr(rejectedAt)
		item.Versions = append(item.Versions, v)
	}
	return rows.Err()
}

func insertVersions(ctx context.Context, tx store.DBTX, contentID uuid.UUID, versions []domain.ContentVersion) error {
	for _, v := range versions {
		metadata, err := marshalJSON(v.Metadata)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, insertVersionQuery,
			contentID,
			v.VersionNumber,
			string(v.Status),
			string(v.ProviderUsed),
			v.PromptUsed,
			v.Content,
			metadata,
			v.CreatedAt,
			nullTime(v.PublishedAt),
			nullTime(v.RejectedAt),
			v.RejectionReason,
		); err != nil {
			return MapError(err)
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*domain.ContentItem, error) {
	var (
		item        domain.ContentItem
		contentType string
		specs       []byte
		current     sql.NullInt64
	)
	if err := row.Scan(
		&item.ID,
		&item.SubjectID,
		&contentType,
		&item.Title,
		&specs,
		&current,
		&item.LastVersionNumber,
		&item.ExternalPageID,
		&item.Revision,
		&item.CreatedAt,
		&item.UpdatedAt,
	); err != nil {
		return nil, err
	}

	item.ContentType = domain.ContentType(contentType)
	if len(specs) > 0 && string(specs) != "null" {
		if err := json.Unmarshal(specs, &item.Specifications); err != nil {
			return nil, fmt.Errorf("failed to decode specifications: %w", err)
		}
	}
	if current.Valid {
		idx := int(current.Int64)
		item.CurrentVersionIndex = &idx
	}
	return &item, nil
}

func marshalJSON(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}
	return data, nil
}

func nullIndex(idx *int) sql.NullInt64 {
	if idx == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*idx), Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
