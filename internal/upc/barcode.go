package upc

import (
	"fmt"
	"strings"

	"shelfscan/internal/services"
)

const (
	minBarcodeDigits = 8
	maxBarcodeDigits = 18
)

// ValidateBarcode trims surrounding whitespace and checks that the barcode is
// 8 to 18 decimal digits.
func ValidateBarcode(raw string) (string, error) {
	code := strings.TrimSpace(raw)
	if len(code) < minBarcodeDigits || len(code) > maxBarcodeDigits {
		return "", services.Wrap(services.ErrValidation, "upc", "validate barcode",
			fmt.Sprintf("expected %d-%d digits, got %d characters", minBarcodeDigits, maxBarcodeDigits, len(code)), nil)
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return "", services.Wrap(services.ErrValidation, "upc", "validate barcode", "barcode must contain only digits", nil)
		}
	}
	return code, nil
}
