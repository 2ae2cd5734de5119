package domain

import (
	"errors"
	"fmt"
)

// Common domain errors used across the application.
var (
	// ErrVersionLimitExceeded is returned when adding a version would exceed
	// the per-item version ceiling.
	ErrVersionLimitExceeded = errors.New("version limit exceeded")

	// ErrVersionNotFound is returned when a version number does not exist on
	// the content item.
	ErrVersionNotFound = errors.New("version not found")

	// ErrInvalidTransition is returned when a version cannot move from its
	// current status to the requested one.
	ErrInvalidTransition = errors.New("invalid version status transition")

	// ErrEmptyContent is returned when required content is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrInvalidProvider is returned for an unknown provider name.
	ErrInvalidProvider = errors.New("invalid provider")
)

// TransitionError describes a rejected status transition for one version.
type TransitionError struct {
	VersionNumber int
	From          VersionStatus
	To            VersionStatus
}

// Error implements the error interface.
func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: version %d cannot move from %s to %s",
		ErrInvalidTransition, e.VersionNumber, e.From, e.To)
}

// Unwrap allows errors.Is(err, ErrInvalidTransition).
func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}
