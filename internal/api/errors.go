package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/coursegen/internal/api/shared"
	"github.com/phrazzld/coursegen/internal/generation"
	"github.com/phrazzld/coursegen/internal/service"
)

// codeStatus maps service error codes to HTTP statuses. Provider failures are
// upstream problems, so they map to 5xx except for rate limits.
var codeStatus = map[service.Code]int{
	service.CodeInvalidInput:            http.StatusBadRequest,
	service.CodeContentNotFound:         http.StatusNotFound,
	service.CodeVersionNotFound:         http.StatusNotFound,
	service.CodeVersionLimitExceeded:    http.StatusConflict,
	service.CodeInvalidTransition:       http.StatusConflict,
	service.CodeSameProviderRegenerate:  http.StatusUnprocessableEntity,
	service.CodeBothProvidersFailed:     http.StatusBadGateway,
	service.CodeOneProviderFailed:       http.StatusBadGateway,
	service.CodeProviderUnavailable:     http.StatusServiceUnavailable,
	service.CodeConcurrentModification:  http.StatusConflict,
	service.CodePublishingNotConfigured: http.StatusNotImplemented,
	service.CodePublishingFailed:        http.StatusBadGateway,
	service.CodeInternal:                http.StatusInternalServerError,

	service.ProviderCode(generation.ErrorKindRateLimit):      http.StatusTooManyRequests,
	service.ProviderCode(generation.ErrorKindQuotaExceeded):  http.StatusTooManyRequests,
	service.ProviderCode(generation.ErrorKindTimeout):        http.StatusGatewayTimeout,
	service.ProviderCode(generation.ErrorKindNetwork):        http.StatusBadGateway,
	service.ProviderCode(generation.ErrorKindInvalidRequest): http.StatusUnprocessableEntity,
	service.ProviderCode(generation.ErrorKindAuthentication): http.StatusBadGateway,
	service.ProviderCode(generation.ErrorKindUnknown):        http.StatusBadGateway,
}

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// through their service error code. Unknown errors are 500s.
func MapErrorToStatusCode(err error) int {
	if status, ok := codeStatus[service.CodeOf(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// errorBody builds the client-facing error. Only service messages, which are
// written for end users, are passed through; anything else gets the generic
// message of its code.
func errorBody(err error) shared.ErrorBody {
	var svcErr *service.Error
	if errors.As(err, &svcErr) {
		return shared.ErrorBody{
			Code:    string(svcErr.Code),
			Message: GetSafeErrorMessage(err),
			Details: svcErr.Details,
		}
	}
	return shared.ErrorBody{Code: string(service.CodeOf(err)), Message: GetSafeErrorMessage(err)}
}

// GetSafeErrorMessage returns a sanitized, user-friendly message for err.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return service.CodeInternal.Message()
	}
	var svcErr *service.Error
	if errors.As(err, &svcErr) && svcErr.Message != "" {
		return svcErr.Message
	}
	return service.CodeOf(err).Message()
}

// HandleAPIError writes the error response for err, logging the details.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error) {
	shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), errorBody(err), err)
}

// respondInvalid writes a 400 INVALID_INPUT response.
func respondInvalid(w http.ResponseWriter, r *http.Request, message string, err error) {
	shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, shared.ErrorBody{
		Code:    string(service.CodeInvalidInput),
		Message: message,
	}, err)
}

// SanitizeValidationError turns a validator error into a user-friendly
// message naming the first failing field.
func SanitizeValidationError(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Sprintf("Invalid %s: %s", jsonFieldName(fe.Field()), getValidationTagMessage(fe.Tag()))
	}
	return "Validation error"
}

// jsonFieldName converts a Go field name like SubjectID into subject_id.
func jsonFieldName(field string) string {
	var b strings.Builder
	runes := []rune(field)
	for i, r := range runes {
		upper := r >= 'A' && r <= 'Z'
		if upper && i > 0 {
			prevLower := runes[i-1] >= 'a' && runes[i-1] <= 'z'
			nextLower := i+1 < len(runes) && runes[i+1] >= 'a' && runes[i+1] <= 'z'
			if prevLower || (nextLower && runes[i-1] >= 'A' && runes[i-1] <= 'Z') {
				b.WriteByte('_')
			}
		}
		if upper {
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min":
		return "too short"
	case "max":
		return "too long"
	case "oneof":
		return "invalid value"
	case "uuid", "uuid4":
		return "invalid UUID"
	case "gte", "gt":
		return "too small"
	default:
		return "validation failed"
	}
}
