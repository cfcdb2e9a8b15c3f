package utils

import (
	"strings"
)

// Exchange-style suffixes tolerated on input, longest first so ".NASDAQ"
// never half-matches as ".N".
var exchangeSuffixes = []string{".NASDAQ", ".NYSE", ".US", ".N", ".O"}

// NormalizeTicker canonicalizes user ticker input: trims whitespace,
// uppercases, drops a leading $ and one trailing exchange suffix. The result
// is what seeds synthesis, so "aapl", "$AAPL" and "AAPL.US" all map to the
// same series.
func NormalizeTicker(ticker string) string {
	ticker = strings.TrimSpace(strings.ToUpper(ticker))

	// Remove $ prefix if present (common in chat)
	ticker = strings.TrimPrefix(ticker, "$")

	for _, suffix := range exchangeSuffixes {
		if strings.HasSuffix(ticker, suffix) {
			ticker = strings.TrimSuffix(ticker, suffix)
			break
		}
	}

	return strings.TrimSpace(ticker)
}
