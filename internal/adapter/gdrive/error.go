package gdrive

import (
	"errors"

	"google.golang.org/api/googleapi"

	"github.com/Ning0612/Stowage/internal/domain"
)

// ProviderName identifies this backend in ProviderError
const ProviderName = "google_drive"

// extractSignals reads status, reason and message from a Google API error
func extractSignals(err error) domain.Signals {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		s := domain.Signals{
			Status:  apiErr.Code,
			Message: apiErr.Message,
		}
		if len(apiErr.Errors) > 0 {
			s.Reason = apiErr.Errors[0].Reason
			if s.Message == "" {
				s.Message = apiErr.Errors[0].Message
			}
		}
		return s
	}

	// Fallback to string matching for non-googleapi errors
	return domain.Signals{Message: err.Error()}
}

// mapError converts any failure into a ProviderError for operation
func mapError(operation string, err error) error {
	if err == nil {
		return nil
	}
	return domain.MapError(ProviderName, operation, err, extractSignals)
}
