package domain

import (
	"fmt"
	"strings"
)

// NormalizeCurrency canonicalizes a provider currency code to the
// uppercase 3-letter form used throughout the ledger.
func NormalizeCurrency(code string) (string, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if len(normalized) != 3 {
		return "", fmt.Errorf("invalid currency code %q", code)
	}
	for _, r := range normalized {
		if r < 'A' || r > 'Z' {
			return "", fmt.Errorf("invalid currency code %q", code)
		}
	}
	return normalized, nil
}
