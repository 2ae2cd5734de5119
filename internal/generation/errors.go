package generation

import (
	"errors"
	"fmt"

	"github.com/phrazzld/coursegen/internal/domain"
)

// Common errors returned by the generation package
var (
	// ErrInvalidConfig is returned when a provider is constructed with
	// missing or invalid configuration, such as an empty API key.
	ErrInvalidConfig = errors.New("invalid provider configuration")

	// ErrEmptyResponse is returned when a provider answers without content.
	ErrEmptyResponse = errors.New("provider returned no content")

	// ErrInvalidRequest is returned when a request fails local validation.
	ErrInvalidRequest = errors.New("invalid generation request")

	// ErrUnknownProvider is returned for a provider name the registry has
	// never heard of.
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrProviderUnavailable is returned for a known provider that could not
	// be constructed, typically because its credential is missing.
	ErrProviderUnavailable = errors.New("provider unavailable")
)

// ErrorKind is the provider-independent classification of a failure.
type ErrorKind string

// Closed set of error kinds shared by all providers.
const (
	ErrorKindRateLimit      ErrorKind = "RATE_LIMIT"
	ErrorKindTimeout        ErrorKind = "TIMEOUT"
	ErrorKindNetwork        ErrorKind = "NETWORK_ERROR"
	ErrorKindInvalidRequest ErrorKind = "INVALID_REQUEST"
	ErrorKindAuthentication ErrorKind = "AUTHENTICATION_ERROR"
	ErrorKindQuotaExceeded  ErrorKind = "QUOTA_EXCEEDED"
	ErrorKindUnknown        ErrorKind = "UNKNOWN_ERROR"
)

// AllErrorKinds returns every error kind.
func AllErrorKinds() []ErrorKind {
	return []ErrorKind{
		ErrorKindRateLimit,
		ErrorKindTimeout,
		ErrorKindNetwork,
		ErrorKindInvalidRequest,
		ErrorKindAuthentication,
		ErrorKindQuotaExceeded,
		ErrorKindUnknown,
	}
}

// Classifier maps a raw error to an ErrorKind. Implementations must be pure.
type Classifier func(err error) ErrorKind

// ServiceError is the uniform failure returned by Provider.Generate once
// retries are exhausted or the failure is not retryable.
type ServiceError struct {
	Provider  domain.ProviderName
	Kind      ErrorKind
	Message   string
	Retryable bool
	Attempts  int
	Err       error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s provider failed (%s): %s: %v", e.Provider, e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s provider failed (%s): %s", e.Provider, e.Kind, e.Message)
}

// Unwrap returns the original provider error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// KindOf returns the kind carried by a ServiceError anywhere in err's chain,
// or ErrorKindUnknown.
func KindOf(err error) ErrorKind {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr.Kind
	}
	return ErrorKindUnknown
}

// kindMessages are the human-readable summaries attached to ServiceError.
var kindMessages = map[ErrorKind]string{
	ErrorKindRateLimit:      "rate limit reached",
	ErrorKindTimeout:        "request timed out",
	ErrorKindNetwork:        "network or upstream service failure",
	ErrorKindInvalidRequest: "request rejected as invalid",
	ErrorKindAuthentication: "authentication with the provider failed",
	ErrorKindQuotaExceeded:  "provider quota exceeded",
	ErrorKindUnknown:        "unexpected provider failure",
}

// Message returns a short human-readable description of the kind.
func (k ErrorKind) Message() string {
	if msg, ok := kindMessages[k]; ok {
		return msg
	}
	return kindMessages[ErrorKindUnknown]
}
