package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrNetwork           = errors.New("network error")
	ErrValidation        = errors.New("validation error")
	ErrCacheCorruption   = errors.New("cache corruption")
	ErrCapacityExceeded  = errors.New("capacity exceeded")
	ErrDetailFetchFailed = errors.New("detail fetch failed")
	ErrConfiguration     = errors.New("configuration error")
	ErrTimeout           = errors.New("timeout")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrNetwork
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// UserMessage returns a short message suitable for end users. Raw error text
// never leaks through; unknown failures get a generic message.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "That barcode doesn't look right. Barcodes are 8 to 18 digits."
	case errors.Is(err, ErrDetailFetchFailed):
		return "Found a match but couldn't load its details. Please try again."
	case errors.Is(err, ErrNotFound):
		return "No product found for this barcode."
	case errors.Is(err, ErrTimeout):
		return "The lookup took too long. Please try again."
	case errors.Is(err, ErrNetwork):
		return "Network error. Please check your connection."
	case errors.Is(err, ErrConfiguration):
		return "The scanner is not configured correctly."
	default:
		return "Something went wrong. Please try again."
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
