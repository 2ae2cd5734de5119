package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/coursegen/internal/api/shared"
	"github.com/phrazzld/coursegen/internal/domain"
	"github.com/phrazzld/coursegen/internal/service"
)

// ContentHandler handles content item and version requests.
type ContentHandler struct {
	service service.GenerationService
}

// NewContentHandler creates a new ContentHandler.
func NewContentHandler(svc service.GenerationService) *ContentHandler {
	return &ContentHandler{service: svc}
}

// Routes registers the content endpoints on r.
func (h *ContentHandler) Routes(r chi.Router) {
	r.Post("/contents", h.CreateContent)
	r.Get("/subjects/{subjectID}/contents", h.ListBySubject)

	r.Route("/contents/{id}", func(r chi.Router) {
		r.Get("/", h.GetContent)
		r.Delete("/", h.DeleteContent)
		r.Post("/generate", h.Generate)
		r.Post("/regenerate", h.Regenerate)
		r.Post("/compare", h.Compare)
		r.Post("/prune", h.Prune)
		r.Post("/versions/{number}/publish", h.Publish)
		r.Post("/versions/{number}/reject", h.Reject)
		r.Post("/versions/{number}/promote", h.Promote)
	})
}

// CreateContent handles POST /api/contents.
func (h *ContentHandler) CreateContent(w http.ResponseWriter, r *http.Request) {
	var req CreateContentRequest
	if !decodeAndValidate(w, r, &req, false) {
		return
	}

	item, err := h.service.CreateContent(r.Context(), service.CreateContentInput{
		SubjectID:      uuid.MustParse(req.SubjectID),
		ContentType:    domain.ContentType(req.ContentType),
		Title:          req.Title,
		Specifications: req.Specifications,
	})
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, contentToResponse(item))
}

// GetContent handles GET /api/contents/{id}.
func (h *ContentHandler) GetContent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	item, err := h.service.Get(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, contentToResponse(item))
}

// ListBySubject handles GET /api/subjects/{subjectID}/contents.
func (h *ContentHandler) ListBySubject(w http.ResponseWriter, r *http.Request) {
	subjectID, ok := pathUUID(w, r, "subjectID")
	if !ok {
		return
	}

	items, err := h.service.ListBySubject(r.Context(), subjectID)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	resp := ContentListResponse{Items: make([]ContentResponse, 0, len(items))}
	for _, item := range items {
		resp.Items = append(resp.Items, contentToResponse(item))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// DeleteContent handles DELETE /api/contents/{id}.
func (h *ContentHandler) DeleteContent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		HandleAPIError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Generate handles POST /api/contents/{id}/generate.
func (h *ContentHandler) Generate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req GenerateRequest
	if !decodeAndValidate(w, r, &req, false) {
		return
	}

	item, err := h.service.Generate(r.Context(), id, service.GenerateInput{
		Provider:       domain.ProviderName(req.Provider),
		PromptOverride: req.PromptOverride,
		Constraints:    req.Constraints,
	})
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, contentToResponse(item))
}

// Regenerate handles POST /api/contents/{id}/regenerate.
func (h *ContentHandler) Regenerate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req RegenerateRequest
	if !decodeAndValidate(w, r, &req, false) {
		return
	}

	item, err := h.service.Regenerate(r.Context(), id, service.RegenerateInput{
		Provider:       domain.ProviderName(req.Provider),
		PromptOverride: req.PromptOverride,
		Constraints:    req.Constraints,
	})
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, contentToResponse(item))
}

// Compare handles POST /api/contents/{id}/compare.
func (h *ContentHandler) Compare(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req CompareRequest
	if !decodeAndValidate(w, r, &req, true) {
		return
	}

	item, err := h.service.Compare(r.Context(), id, service.CompareInput{
		PromptOverride: req.PromptOverride,
		Constraints:    req.Constraints,
	})
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, contentToResponse(item))
}

// Publish handles POST /api/contents/{id}/versions/{number}/publish.
func (h *ContentHandler) Publish(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	number, ok := pathVersion(w, r, "number")
	if !ok {
		return
	}
	var req PublishRequest
	if !decodeAndValidate(w, r, &req, true) {
		return
	}

	result, err := h.service.Publish(r.Context(), id, number, service.PublishOptions{Export: req.Export})
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, publishToResponse(result))
}

// Reject handles POST /api/contents/{id}/versions/{number}/reject.
func (h *ContentHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	number, ok := pathVersion(w, r, "number")
	if !ok {
		return
	}
	var req RejectRequest
	if !decodeAndValidate(w, r, &req, true) {
		return
	}

	item, err := h.service.Reject(r.Context(), id, number, req.Reason)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, contentToResponse(item))
}

// Promote handles POST /api/contents/{id}/versions/{number}/promote.
func (h *ContentHandler) Promote(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	number, ok := pathVersion(w, r, "number")
	if !ok {
		return
	}

	item, err := h.service.Promote(r.Context(), id, number)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, contentToResponse(item))
}

// Prune handles POST /api/contents/{id}/prune.
func (h *ContentHandler) Prune(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req PruneRequest
	if !decodeAndValidate(w, r, &req, false) {
		return
	}

	item, err := h.service.Prune(r.Context(), id, *req.KeepCount)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, contentToResponse(item))
}
