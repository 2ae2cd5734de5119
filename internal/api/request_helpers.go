package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/coursegen/internal/api/shared"
)

// getPathUUID extracts and parses a UUID path parameter.
func getPathUUID(r *http.Request, paramName string) (uuid.UUID, error) {
	pathParam := chi.URLParam(r, paramName)
	if pathParam == "" {
		return uuid.Nil, fmt.Errorf("%s is required", paramName)
	}

	id, err := uuid.Parse(pathParam)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s has invalid format", paramName)
	}

	return id, nil
}

// getPathVersion extracts a positive version number path parameter.
func getPathVersion(r *http.Request, paramName string) (int, error) {
	n, err := strconv.Atoi(chi.URLParam(r, paramName))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer", paramName)
	}
	return n, nil
}

// pathUUID writes a 400 response and returns false when the parameter is
// missing or malformed.
func pathUUID(w http.ResponseWriter, r *http.Request, paramName string) (uuid.UUID, bool) {
	id, err := getPathUUID(r, paramName)
	if err != nil {
		respondInvalid(w, r, "Invalid "+paramName, err)
		return uuid.Nil, false
	}
	return id, true
}

// pathVersion is pathUUID for version numbers.
func pathVersion(w http.ResponseWriter, r *http.Request, paramName string) (int, bool) {
	n, err := getPathVersion(r, paramName)
	if err != nil {
		respondInvalid(w, r, "Invalid version number", err)
		return 0, false
	}
	return n, true
}

// decodeAndValidate reads the JSON body into v and validates it, writing a
// 400 response on failure. Optional bodies may be omitted entirely.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v interface{}, optional bool) bool {
	decode := shared.DecodeJSON
	if optional {
		decode = shared.DecodeOptionalJSON
	}
	if err := decode(r, v); err != nil {
		respondInvalid(w, r, "Invalid request format", err)
		return false
	}
	if err := shared.ValidateRequest(v); err != nil {
		respondInvalid(w, r, SanitizeValidationError(err), err)
		return false
	}
	return true
}
