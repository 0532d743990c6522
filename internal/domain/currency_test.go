package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeCurrency(t *testing.T) {
	t.Run("LowercaseAndWhitespace", func(t *testing.T) {
		got, err := NormalizeCurrency(" usd ")
		assert.NoError(t, err)
		assert.Equal(t, "USD", got)
	})

	t.Run("AlreadyCanonical", func(t *testing.T) {
		got, err := NormalizeCurrency("EUR")
		assert.NoError(t, err)
		assert.Equal(t, "EUR", got)
	})

	t.Run("Invalid", func(t *testing.T) {
		for _, code := range []string{"", "us", "usdd", "u$d", "12x"} {
			_, err := NormalizeCurrency(code)
			assert.Error(t, err, "expected %q to be rejected", code)
		}
	})
}
