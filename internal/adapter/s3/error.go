package s3

import (
	"errors"

	"github.com/aws/smithy-go"

	"github.com/Ning0612/Stowage/internal/domain"
)

// ProviderName identifies this backend in ProviderError
const ProviderName = "s3"

// httpStatusError is implemented by SDK response errors
type httpStatusError interface {
	HTTPStatusCode() int
}

// extractSignals reads the HTTP status and error code out of an SDK error
func extractSignals(err error) domain.Signals {
	var s domain.Signals

	var statusErr httpStatusError
	if errors.As(err, &statusErr) {
		s.Status = statusErr.HTTPStatusCode()
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		s.Code = apiErr.ErrorCode()
		s.Message = apiErr.ErrorMessage()
	}

	if s.Message == "" {
		s.Message = err.Error()
	}
	return s
}

// mapError converts any failure into a ProviderError for operation
func mapError(operation string, err error) error {
	if err == nil {
		return nil
	}
	return domain.MapError(ProviderName, operation, err, extractSignals)
}
