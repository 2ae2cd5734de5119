package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// ContentType is the kind of educational material a content item holds.
type ContentType string

// Supported content types.
const (
	ContentTypeCourse        ContentType = "course"
	ContentTypeExerciseSheet ContentType = "exercise-sheet"
	ContentTypeExam          ContentType = "exam"
)

// ProviderName identifies an AI text-generation provider.
type ProviderName string

// Known providers.
const (
	ProviderGemini ProviderName = "gemini"
	ProviderClaude ProviderName = "claude"
)

// KnownProviders lists every provider the application can be configured with,
// in display order.
func KnownProviders() []ProviderName {
	return []ProviderName{ProviderGemini, ProviderClaude}
}

// ParseProvider converts a raw name into a ProviderName.
func ParseProvider(name string) (ProviderName, error) {
	p := ProviderName(strings.ToLower(strings.TrimSpace(name)))
	switch p {
	case ProviderGemini, ProviderClaude:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidProvider, name)
	}
}

const (
	// MaxTitleLength bounds ContentItem.Title, counted in runes.
	MaxTitleLength = 200

	// DefaultMaxVersions is the version ceiling used when none is configured.
	DefaultMaxVersions = 20

	// specSourceContentIDs is the specifications key listing linked content.
	specSourceContentIDs = "sourceContentIds"
)

// Content item validation errors
var (
	ErrContentIDEmpty            = errors.New("content ID cannot be empty")
	ErrContentSubjectIDEmpty     = errors.New("content subject ID cannot be empty")
	ErrContentTitleEmpty         = errors.New("content title cannot be empty")
	ErrContentTitleTooLong       = fmt.Errorf("content title cannot exceed %d characters", MaxTitleLength)
	ErrInvalidContentType        = errors.New("invalid content type")
	ErrCurrentIndexOutOfRange    = errors.New("current version index out of range")
	ErrDuplicateVersionNumber    = errors.New("version numbers must be unique and increasing")
	ErrMultiplePublishedVersions = errors.New("at most one version can be published")
)

// Specifications holds type-specific auxiliary data for prompt assembly,
// such as a target duration or linked source content.
type Specifications map[string]any

// SourceContentIDs returns the linked content ids, ignoring malformed entries.
func (s Specifications) SourceContentIDs() []uuid.UUID {
	raw, ok := s[specSourceContentIDs]
	if !ok {
		return nil
	}

	var ids []uuid.UUID
	add := func(v any) {
		str, ok := v.(string)
		if !ok {
			return
		}
		if id, err := uuid.Parse(str); err == nil {
			ids = append(ids, id)
		}
	}

	switch v := raw.(type) {
	case []any:
		for _, item := range v {
			add(item)
		}
	case []string:
		for _, item := range v {
			add(item)
		}
	}
	return ids
}

// ContentItem is one piece of educational material together with the
// history of its generation attempts.
type ContentItem struct {
	ID             uuid.UUID      `json:"id"`
	SubjectID      uuid.UUID      `json:"subject_id"`
	ContentType    ContentType    `json:"content_type"`
	Title          string         `json:"title"`
	Specifications Specifications `json:"specifications,omitempty"`

	// Versions is ordered by VersionNumber ascending.
	Versions []ContentVersion `json:"versions"`

	// CurrentVersionIndex points into Versions when set.
	CurrentVersionIndex *int `json:"current_version_index,omitempty"`

	// LastVersionNumber is the highest version number ever assigned, kept so
	// numbering stays monotonic after pruning.
	LastVersionNumber int `json:"last_version_number"`

	// ExternalPageID is the identifier of the page created in the external
	// document workspace, if the item was exported.
	ExternalPageID string `json:"external_page_id,omitempty"`

	// Revision is incremented by the store on every successful save.
	Revision int `json:"revision"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewContentItem creates a new ContentItem with no versions.
// Returns an error if validation fails.
func NewContentItem(
	subjectID uuid.UUID,
	contentType ContentType,
	title string,
	specs Specifications,
) (*ContentItem, error) {
	now := time.Now().UTC()
	item := &ContentItem{
		ID:             uuid.New(),
		SubjectID:      subjectID,
		ContentType:    contentType,
		Title:          strings.TrimSpace(title),
		Specifications: specs,
		Versions:       []ContentVersion{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := item.Validate(); err != nil {
		return nil, err
	}

	return item, nil
}

// Validate checks the item's fields and the version invariants.
func (c *ContentItem) Validate() error {
	if c.ID == uuid.Nil {
		return ErrContentIDEmpty
	}

	if c.SubjectID == uuid.Nil {
		return ErrContentSubjectIDEmpty
	}

	if !IsValidContentType(c.ContentType) {
		return fmt.Errorf("%w: %q", ErrInvalidContentType, c.ContentType)
	}

	if strings.TrimSpace(c.Title) == "" {
		return ErrContentTitleEmpty
	}

	if utf8.RuneCountInString(c.Title) > MaxTitleLength {
		return ErrContentTitleTooLong
	}

	if c.CurrentVersionIndex != nil {
		if idx := *c.CurrentVersionIndex; idx < 0 || idx >= len(c.Versions) {
			return ErrCurrentIndexOutOfRange
		}
	}

	published := 0
	prev := 0
	for i := range c.Versions {
		v := &c.Versions[i]
		if v.VersionNumber <= prev {
			return ErrDuplicateVersionNumber
		}
		prev = v.VersionNumber
		if v.Status == VersionStatusPublished {
			published++
		}
		if err := v.Validate(); err != nil {
			return fmt.Errorf("version %d: %w", v.VersionNumber, err)
		}
	}

	if published > 1 {
		return ErrMultiplePublishedVersions
	}

	return nil
}

// IsValidContentType reports whether t is one of the supported content types.
func IsValidContentType(t ContentType) bool {
	switch t {
	case ContentTypeCourse, ContentTypeExerciseSheet, ContentTypeExam:
		return true
	default:
		return false
	}
}

// Clone returns a deep copy of the item that shares no mutable state with c.
func (c ContentItem) Clone() ContentItem {
	out := c.clone()
	if c.Specifications != nil {
		out.Specifications = make(Specifications, len(c.Specifications))
		for k, v := range c.Specifications {
			out.Specifications[k] = v
		}
	}
	for i := range out.Versions {
		v := &out.Versions[i]
		v.PublishedAt = copyTime(v.PublishedAt)
		v.RejectedAt = copyTime(v.RejectedAt)
		if v.Metadata.Temperature != nil {
			t := *v.Metadata.Temperature
			v.Metadata.Temperature = &t
		}
		if v.Metadata.MaxTokens != nil {
			n := *v.Metadata.MaxTokens
			v.Metadata.MaxTokens = &n
		}
	}
	return out
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	cp := *t
	return &cp
}
