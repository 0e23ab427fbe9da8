package domain

import "errors"

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a concurrent write claimed the same key first
	ErrConflict = errors.New("conflict")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates authentication failed or missing
	ErrUnauthorized = errors.New("unauthorized")

	// ErrTokenExpired indicates the auth token has expired
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenInvalid indicates the auth token is malformed or invalid
	ErrTokenInvalid = errors.New("token invalid")

	// ErrInvalidCredentials indicates a wrong admin password
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrNotConfigured indicates the API key or the destination list is missing
	ErrNotConfigured = errors.New("synchronization is not configured")

	// ErrSynchronizationFailed indicates a pass could not be started or a remote call failed
	ErrSynchronizationFailed = errors.New("synchronization failed")

	// ErrMalformedPayload indicates an inbound webhook form is empty or missing required fields
	ErrMalformedPayload = errors.New("malformed payload")

	// ErrRemoteUnavailable indicates the remote API could not be reached
	ErrRemoteUnavailable = errors.New("remote service unavailable")
)
