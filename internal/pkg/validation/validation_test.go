package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeTicker(t *testing.T) {
	assert.Equal(t, "AAPL", NormalizeTicker("  aapl "))
	assert.Equal(t, "BRK.B", NormalizeTicker("brk.b"))
}

func TestIsValidTicker(t *testing.T) {
	for _, ok := range []string{"A", "AAPL", "BRK.B", "RDS-A", "ABC123"} {
		assert.True(t, IsValidTicker(ok), ok)
	}
	for _, bad := range []string{"", "aapl", "1ABC", "TOOLONGTICKER", "A B", "$SPY"} {
		assert.False(t, IsValidTicker(bad), bad)
	}
}
