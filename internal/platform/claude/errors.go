package claude

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/phrazzld/coursegen/internal/generation"
)

// APIError is a non-200 response from the Messages API.
type APIError struct {
	StatusCode int
	Type       string
	Message    string
	RequestID  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("claude API error (status %d, type %s): %s", e.StatusCode, e.Type, e.Message)
}

func parseAPIError(status int, requestID string, body []byte) error {
	var errResp struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	apiErr := &APIError{StatusCode: status, RequestID: requestID}
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error.Type == "" {
		apiErr.Message = strings.TrimSpace(string(body))
		return apiErr
	}
	apiErr.Type = errResp.Error.Type
	apiErr.Message = errResp.Error.Message
	return apiErr
}

// Classify implements generation.Backend.
func (b *Backend) Classify(err error) generation.ErrorKind {
	return classify(err)
}

func classify(err error) generation.ErrorKind {
	if err == nil {
		return generation.ErrorKindUnknown
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return classifyAPIError(apiErr)
	}

	if kind, ok := generation.ClassifyTransport(err); ok {
		return kind
	}

	return generation.ClassifyMessage(err.Error())
}

func classifyAPIError(e *APIError) generation.ErrorKind {
	msg := strings.ToLower(e.Message)

	switch e.Type {
	case "rate_limit_error":
		return generation.ErrorKindRateLimit
	case "authentication_error", "permission_error":
		return generation.ErrorKindAuthentication
	case "billing_error":
		return generation.ErrorKindQuotaExceeded
	case "invalid_request_error":
		if strings.Contains(msg, "credit balance") {
			return generation.ErrorKindQuotaExceeded
		}
		return generation.ErrorKindInvalidRequest
	case "not_found_error", "request_too_large":
		return generation.ErrorKindInvalidRequest
	case "timeout_error":
		return generation.ErrorKindTimeout
	case "overloaded_error", "api_error":
		return generation.ErrorKindNetwork
	}

	if e.StatusCode == 529 {
		return generation.ErrorKindNetwork
	}
	if e.StatusCode != 0 {
		return generation.ClassifyStatus(e.StatusCode, strings.Contains(msg, "quota"))
	}
	return generation.ClassifyMessage(msg)
}

// parseRateLimitHeaders reads the anthropic-ratelimit-* headers. It returns
// nil when the response carries none.
func parseRateLimitHeaders(h http.Header) *generation.RateLimitInfo {
	requestsLimit, okRL := headerInt(h, "anthropic-ratelimit-requests-limit")
	tokensLimit, okTL := headerInt(h, "anthropic-ratelimit-tokens-limit")
	requestsLeft, okRR := headerInt(h, "anthropic-ratelimit-requests-remaining")
	tokensLeft, okTR := headerInt(h, "anthropic-ratelimit-tokens-remaining")
	if !okRL && !okTL && !okRR && !okTR {
		return nil
	}

	info := &generation.RateLimitInfo{
		RequestsPerMinute: requestsLimit,
		TokensPerMinute:   tokensLimit,
	}
	if okRR {
		info.RemainingRequests = &requestsLeft
	}
	if okTR {
		info.RemainingTokens = &tokensLeft
	}

	for _, key := range []string{"anthropic-ratelimit-requests-reset", "anthropic-ratelimit-tokens-reset"} {
		if t, err := time.Parse(time.RFC3339, h.Get(key)); err == nil {
			if info.ResetAt.IsZero() || t.Before(info.ResetAt) {
				info.ResetAt = t
			}
		}
	}
	return info
}

func headerInt(h http.Header, key string) (int, bool) {
	v := h.Get(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}
