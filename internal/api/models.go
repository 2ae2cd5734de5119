package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/coursegen/internal/api/shared"
	"github.com/phrazzld/coursegen/internal/domain"
	"github.com/phrazzld/coursegen/internal/service"
)

// CreateContentRequest defines the payload for creating a content item.
type CreateContentRequest struct {
	SubjectID      string         `json:"subject_id"     validate:"required,uuid"`
	ContentType    string         `json:"content_type"   validate:"required,oneof=course exercise-sheet exam"`
	Title          string         `json:"title"          validate:"required,max=200"`
	Specifications map[string]any `json:"specifications"`
}

// GenerateRequest defines the payload for a fresh generation.
type GenerateRequest struct {
	Provider       string `json:"provider"        validate:"required,oneof=gemini claude"`
	PromptOverride string `json:"prompt_override" validate:"max=20000"`
	Constraints    string `json:"constraints"     validate:"max=4000"`
}

// RegenerateRequest defines the payload for regenerating with another provider.
type RegenerateRequest struct {
	Provider       string `json:"provider"        validate:"required,oneof=gemini claude"`
	PromptOverride string `json:"prompt_override" validate:"max=20000"`
	Constraints    string `json:"constraints"     validate:"max=4000"`
}

// CompareRequest defines the optional payload for a comparison.
type CompareRequest struct {
	PromptOverride string `json:"prompt_override" validate:"max=20000"`
	Constraints    string `json:"constraints"     validate:"max=4000"`
}

// PublishRequest defines the optional payload for publishing a version.
type PublishRequest struct {
	Export bool `json:"export"`
}

// RejectRequest defines the optional payload for rejecting a version.
type RejectRequest struct {
	Reason string `json:"reason" validate:"max=1000"`
}

// PruneRequest defines the payload for pruning versions.
type PruneRequest struct {
	KeepCount *int `json:"keep_count" validate:"required,gte=0"`
}

// MetadataResponse describes how a version was produced.
type MetadataResponse struct {
	TokensUsed   int      `json:"tokens_used"`
	DurationMs   int64    `json:"duration_ms"`
	ModelName    string   `json:"model_name,omitempty"`
	ModelVersion string   `json:"model_version,omitempty"`
	Temperature  *float64 `json:"temperature,omitempty"`
	MaxTokens    *int     `json:"max_tokens,omitempty"`
}

// VersionResponse represents one content version.
type VersionResponse struct {
	VersionNumber   int              `json:"version_number"`
	Status          string           `json:"status"`
	Provider        string           `json:"provider"`
	Prompt          string           `json:"prompt"`
	Content         string           `json:"content"`
	Metadata        MetadataResponse `json:"metadata"`
	RejectionReason string           `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	PublishedAt     *time.Time       `json:"published_at,omitempty"`
	RejectedAt      *time.Time       `json:"rejected_at,omitempty"`
}

// ContentResponse represents a content item with its versions.
type ContentResponse struct {
	ID                   uuid.UUID         `json:"id"`
	SubjectID            uuid.UUID         `json:"subject_id"`
	ContentType          string            `json:"content_type"`
	Title                string            `json:"title"`
	Specifications       map[string]any    `json:"specifications,omitempty"`
	Versions             []VersionResponse `json:"versions"`
	CurrentVersionNumber *int              `json:"current_version_number,omitempty"`
	ExternalPageID       string            `json:"external_page_id,omitempty"`
	Revision             int               `json:"revision"`
	CreatedAt            time.Time         `json:"created_at"`
	UpdatedAt            time.Time         `json:"updated_at"`
}

// ContentListResponse wraps the items of a subject.
type ContentListResponse struct {
	Items []ContentResponse `json:"items"`
}

// PublishResponse is the result of publishing a version. ExportError is set
// when an export was requested and failed; the publish still succeeded.
type PublishResponse struct {
	Content     ContentResponse   `json:"content"`
	Exported    bool              `json:"exported"`
	ExportError *shared.ErrorBody `json:"export_error,omitempty"`
}

func contentToResponse(item *domain.ContentItem) ContentResponse {
	resp := ContentResponse{
		ID:             item.ID,
		SubjectID:      item.SubjectID,
		ContentType:    string(item.ContentType),
		Title:          item.Title,
		Specifications: item.Specifications,
		Versions:       make([]VersionResponse, 0, len(item.Versions)),
		ExternalPageID: item.ExternalPageID,
		Revision:       item.Revision,
		CreatedAt:      item.CreatedAt,
		UpdatedAt:      item.UpdatedAt,
	}
	for _, v := range item.Versions {
		resp.Versions = append(resp.Versions, versionToResponse(v))
	}
	if current, ok := item.CurrentVersion(); ok {
		n := current.VersionNumber
		resp.CurrentVersionNumber = &n
	}
	return resp
}

func versionToResponse(v domain.ContentVersion) VersionResponse {
	return VersionResponse{
		VersionNumber: v.VersionNumber,
		Status:        string(v.Status),
		Provider:      string(v.ProviderUsed),
		Prompt:        v.PromptUsed,
		Content:       v.Content,
		Metadata: MetadataResponse{
			TokensUsed:   v.Metadata.TokensUsed,
			DurationMs:   v.Metadata.DurationMs,
			ModelName:    v.Metadata.ModelName,
			ModelVersion: v.Metadata.ModelVersion,
			Temperature:  v.Metadata.Temperature,
			MaxTokens:    v.Metadata.MaxTokens,
		},
		RejectionReason: v.RejectionReason,
		CreatedAt:       v.CreatedAt,
		PublishedAt:     v.PublishedAt,
		RejectedAt:      v.RejectedAt,
	}
}

func publishToResponse(result *service.PublishResult) PublishResponse {
	resp := PublishResponse{
		Content:  contentToResponse(result.Item),
		Exported: result.Exported,
	}
	if result.ExportError != nil {
		resp.ExportError = &shared.ErrorBody{
			Code:    string(result.ExportError.Code),
			Message: result.ExportError.Message,
		}
	}
	return resp
}
