package gemini

import (
	"errors"
	"strings"

	"github.com/phrazzld/coursegen/internal/generation"
	"google.golang.org/genai"
)

// ErrBlocked is returned when Gemini refuses to produce content, either for
// the prompt or for the candidate.
var ErrBlocked = errors.New("gemini blocked the content")

// Classify implements generation.Backend.
func (b *Backend) Classify(err error) generation.ErrorKind {
	return classify(err)
}

func classify(err error) generation.ErrorKind {
	if err == nil {
		return generation.ErrorKindUnknown
	}

	if errors.Is(err, ErrBlocked) {
		return generation.ErrorKindInvalidRequest
	}

	if apiErr, ok := asAPIError(err); ok {
		return classifyAPIError(apiErr)
	}

	if kind, ok := generation.ClassifyTransport(err); ok {
		return kind
	}

	return generation.ClassifyMessage(err.Error())
}

func asAPIError(err error) (genai.APIError, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return *apiErrPtr, true
	}
	return genai.APIError{}, false
}

// classifyAPIError maps Google API status codes. A 429 carrying quota or
// billing wording is a quota exhaustion rather than a transient limit; a 400
// about the API key is an authentication failure.
func classifyAPIError(e genai.APIError) generation.ErrorKind {
	text := strings.ToLower(e.Message + " " + e.Status)

	switch {
	case e.Code == 429:
		return generation.ClassifyStatus(e.Code, isQuotaMessage(text))
	case e.Code == 400 && strings.Contains(text, "api key"):
		return generation.ErrorKindAuthentication
	case e.Code == 400 && strings.Contains(text, "failed_precondition"):
		return generation.ErrorKindQuotaExceeded
	case e.Code != 0:
		return generation.ClassifyStatus(e.Code, false)
	default:
		return generation.ClassifyMessage(text)
	}
}

// isQuotaMessage treats per-minute quota wording as a rate limit.
func isQuotaMessage(text string) bool {
	if strings.Contains(text, "billing") {
		return true
	}
	return strings.Contains(text, "quota") && !strings.Contains(text, "per minute")
}
