package domain

import "errors"

// Adapter errors - storage backend failures, one per error category
var (
	// ErrNotFound indicates the requested object or folder does not exist
	ErrNotFound = errors.New("resource not found")

	// ErrPermissionDenied indicates the credentials are not allowed to perform the operation
	ErrPermissionDenied = errors.New("permission denied")

	// ErrTimeout indicates the backend did not answer in time
	ErrTimeout = errors.New("operation timed out")

	// ErrRateLimited indicates the backend throttled the request
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrValidation indicates the backend rejected the request as malformed
	ErrValidation = errors.New("invalid request")

	// ErrUnavailable is the fallback for any failure that fits no other category
	ErrUnavailable = errors.New("backend unavailable")
)

// Key errors - raised locally before any backend call
var (
	// ErrInvalidKey indicates a storage key failed validation
	ErrInvalidKey = errors.New("invalid key")
)

// Config errors
var (
	// ErrConfigNotFound indicates config file not found
	ErrConfigNotFound = errors.New("config file not found")

	// ErrConfigInvalid indicates config file is malformed
	ErrConfigInvalid = errors.New("invalid config")

	// ErrMissingEnv indicates a required environment variable is unset or empty
	ErrMissingEnv = errors.New("missing required environment variable")

	// ErrConnectionNotFound indicates a named connection is not registered
	ErrConnectionNotFound = errors.New("connection not found")

	// ErrUnsupportedBackend indicates a connection type with no adapter factory
	ErrUnsupportedBackend = errors.New("unsupported backend type")
)
