package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/phrazzld/coursegen/internal/domain"
	"github.com/phrazzld/coursegen/internal/generation"
	"github.com/phrazzld/coursegen/internal/publishing"
	"github.com/phrazzld/coursegen/internal/store"
)

// Code is a stable, machine readable error code returned to clients.
type Code string

// Orchestration and lifecycle error codes. Provider failures use the provider
// error kind as their code, see ProviderCode.
const (
	CodeInvalidInput            Code = "INVALID_INPUT"
	CodeContentNotFound         Code = "CONTENT_NOT_FOUND"
	CodeVersionNotFound         Code = "VERSION_NOT_FOUND"
	CodeVersionLimitExceeded    Code = "VERSION_LIMIT_EXCEEDED"
	CodeInvalidTransition       Code = "INVALID_TRANSITION"
	CodeSameProviderRegenerate  Code = "SAME_PROVIDER_REGENERATE"
	CodeBothProvidersFailed     Code = "BOTH_PROVIDERS_FAILED"
	CodeOneProviderFailed       Code = "ONE_PROVIDER_FAILED"
	CodeProviderUnavailable     Code = "PROVIDER_UNAVAILABLE"
	CodeConcurrentModification  Code = "CONCURRENT_MODIFICATION"
	CodePublishingNotConfigured Code = "PUBLISHING_NOT_CONFIGURED"
	CodePublishingFailed        Code = "PUBLISHING_FAILED"
	CodeInternal                Code = "INTERNAL_ERROR"
)

// ProviderCode returns the code used for a provider failure of the given kind.
func ProviderCode(kind generation.ErrorKind) Code {
	return Code(kind)
}

// Message returns the generic user safe message for the code.
func (c Code) Message() string {
	return messageFor(c, nil)
}

// Error is the structured failure of a service operation.
type Error struct {
	// Operation is the use case that failed, e.g. "regenerate".
	Operation string
	Code      Code
	// Message is safe to show to end users.
	Message string
	// Details carries per-provider outcomes for comparison failures.
	Details map[string]string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s failed (%s): %s: %v", e.Operation, e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s failed (%s): %s", e.Operation, e.Code, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

func newError(op string, code Code, message string, err error) *Error {
	return &Error{Operation: op, Code: code, Message: message, Err: err}
}

// wrapError converts err into an *Error for op. Errors that already are an
// *Error pass through unchanged.
func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return err
	}
	code := CodeOf(err)
	return newError(op, code, messageFor(code, err), err)
}

// CodeOf maps any error to its Code. Unrecognised errors map to
// CodeInternal.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}

	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Code
	}

	var providerErr *generation.ServiceError
	if errors.As(err, &providerErr) {
		return ProviderCode(providerErr.Kind)
	}

	switch {
	case errors.Is(err, generation.ErrProviderUnavailable),
		errors.Is(err, generation.ErrUnknownProvider):
		return CodeProviderUnavailable
	case errors.Is(err, domain.ErrVersionLimitExceeded):
		return CodeVersionLimitExceeded
	case errors.Is(err, domain.ErrVersionNotFound):
		return CodeVersionNotFound
	case errors.Is(err, domain.ErrInvalidTransition):
		return CodeInvalidTransition
	case errors.Is(err, domain.ErrInvalidProvider),
		errors.Is(err, store.ErrInvalidEntity):
		return CodeInvalidInput
	case store.IsNotFoundError(err):
		return CodeContentNotFound
	case errors.Is(err, store.ErrConflict):
		return CodeConcurrentModification
	case errors.Is(err, publishing.ErrNotConfigured):
		return CodePublishingNotConfigured
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return ProviderCode(generation.ErrorKindTimeout)
	default:
		return CodeInternal
	}
}

var codeMessages = map[Code]string{
	CodeInvalidInput:            "the request is invalid",
	CodeContentNotFound:         "content item not found",
	CodeVersionNotFound:         "version not found",
	CodeVersionLimitExceeded:    "the content item has reached its version limit; prune old versions first",
	CodeInvalidTransition:       "the version cannot move to the requested status",
	CodeSameProviderRegenerate:  "regeneration must use a different provider than the current version",
	CodeBothProvidersFailed:     "both providers failed to generate content",
	CodeOneProviderFailed:       "only one provider produced content; use regenerate with that provider instead",
	CodeProviderUnavailable:     "the requested provider is not available",
	CodeConcurrentModification:  "the content item was modified by another request; reload and try again",
	CodePublishingNotConfigured: "publishing to an external workspace is not configured",
	CodePublishingFailed:        "publishing to the external workspace failed",
	CodeInternal:                "an internal error occurred",
}

// messageFor returns a user safe message for code. Provider codes use the
// provider error kind description.
func messageFor(code Code, err error) string {
	if msg, ok := codeMessages[code]; ok {
		return msg
	}
	for _, kind := range generation.AllErrorKinds() {
		if Code(kind) == code {
			return kind.Message()
		}
	}
	if err != nil {
		return err.Error()
	}
	return codeMessages[CodeInternal]
}
