package auth

import "errors"

// Authentication errors
var (
	// ErrInvalidToken indicates the token format is invalid or its signature doesn't match.
	ErrInvalidToken = errors.New("invalid authentication token")

	// ErrExpiredToken indicates the token has expired.
	ErrExpiredToken = errors.New("authentication token has expired")

	// ErrTokenNotYetValid indicates the token is not valid yet.
	ErrTokenNotYetValid = errors.New("authentication token not yet valid")
)
