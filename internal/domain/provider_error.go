package domain

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Category classifies a storage failure independently of the backend that produced it
type Category string

const (
	CategoryNotFound    Category = "not_found"
	CategoryPermission  Category = "permission"
	CategoryTimeout     Category = "timeout"
	CategoryRateLimit   Category = "rate_limit"
	CategoryValidation  Category = "validation"
	CategoryUnavailable Category = "unavailable"
)

// Categories lists every category in classification precedence order
var Categories = []Category{
	CategoryNotFound,
	CategoryPermission,
	CategoryTimeout,
	CategoryRateLimit,
	CategoryValidation,
	CategoryUnavailable,
}

// Sentinel returns the package-level error matching the category
func (c Category) Sentinel() error {
	switch c {
	case CategoryNotFound:
		return ErrNotFound
	case CategoryPermission:
		return ErrPermissionDenied
	case CategoryTimeout:
		return ErrTimeout
	case CategoryRateLimit:
		return ErrRateLimited
	case CategoryValidation:
		return ErrValidation
	default:
		return ErrUnavailable
	}
}

// ProviderError is the single error type returned by every adapter operation.
// It is never mutated after construction.
type ProviderError struct {
	// Provider identifies the backend (e.g. "s3", "google_drive")
	Provider string

	// Operation is the adapter method that failed (e.g. "uploadFile")
	Operation string

	// Category is the classified failure kind
	Category Category

	// Err is the original cause
	Err error
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("storage %s failed (%s)", e.Operation, e.Category)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the original cause
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel of this error's category,
// so errors.Is(err, ErrNotFound) holds for a not_found ProviderError.
func (e *ProviderError) Is(target error) bool {
	return target == e.Category.Sentinel()
}

// Signals are the raw classification inputs pulled out of a backend error
type Signals struct {
	// Status is an HTTP-like status code, 0 when unknown
	Status int

	// Code is the backend-specific error code or name
	Code string

	// Reason is a backend-specific reason string
	Reason string

	// Message is free text
	Message string
}

// SignalExtractor pulls classification signals out of a backend-specific error
type SignalExtractor func(err error) Signals

// Category applies the shared precedence: not_found, permission, timeout,
// rate_limit, validation, then unavailable as the fallback.
func (s Signals) Category() Category {
	text := strings.ToLower(s.Code + " " + s.Reason + " " + s.Message)
	has := func(words ...string) bool {
		for _, w := range words {
			if strings.Contains(text, w) {
				return true
			}
		}
		return false
	}

	switch {
	case s.Status == 404 || has("notfound", "nosuchkey"):
		return CategoryNotFound
	case s.Status == 401 || s.Status == 403 || has("forbidden", "permission", "accessdenied"):
		return CategoryPermission
	case s.Status == 408 || s.Status == 504 || has("timeout", "timedout", "deadline"):
		return CategoryTimeout
	case s.Status == 429 || has("ratelimit", "throttl", "toomanyrequests"):
		return CategoryRateLimit
	case s.Status == 400 || has("invalid", "badrequest", "validation"):
		return CategoryValidation
	default:
		return CategoryUnavailable
	}
}

// Classify returns the category of err. Sentinel errors from this package and
// standard timeout errors are recognized first, then the backend signals.
func Classify(err error, extract SignalExtractor) Category {
	if err == nil {
		return CategoryUnavailable
	}

	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Category
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return CategoryNotFound
	case errors.Is(err, ErrPermissionDenied):
		return CategoryPermission
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return CategoryTimeout
	case errors.Is(err, ErrRateLimited):
		return CategoryRateLimit
	case errors.Is(err, ErrInvalidKey), errors.Is(err, ErrValidation):
		return CategoryValidation
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return CategoryTimeout
	}

	if extract == nil {
		return Signals{Message: err.Error()}.Category()
	}
	return extract(err).Category()
}

// MapError wraps err into a ProviderError for the given provider and operation.
// An error that already carries a ProviderError is returned as that same instance.
func MapError(provider, operation string, err error, extract SignalExtractor) *ProviderError {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe
	}
	return &ProviderError{
		Provider:  provider,
		Operation: operation,
		Category:  Classify(err, extract),
		Err:       err,
	}
}

// CategoryOf returns the category of a ProviderError in err's chain,
// or false when err carries none.
func CategoryOf(err error) (Category, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Category, true
	}
	return "", false
}
