package validation

import (
	"regexp"
	"strings"
)

// tickerRe: uppercase symbol, optionally with a class/share suffix (BRK.B).
var tickerRe = regexp.MustCompile(`^[A-Z][A-Z0-9.\-]{0,9}$`)

// NormalizeTicker uppercases and trims a raw ticker.
func NormalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

// IsValidTicker reports whether ticker (already normalized) looks like an
// equity symbol.
func IsValidTicker(ticker string) bool {
	return tickerRe.MatchString(ticker)
}
