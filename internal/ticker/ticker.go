// Package ticker handles equity ticker symbol normalization and validation.
package ticker

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/atmx/paper-ledger/internal/model"
)

// symbolRegex matches an exchange symbol such as AAPL, BRK.B or RDS-A.
var symbolRegex = regexp.MustCompile(`^[A-Z][A-Z0-9.\-]{0,9}$`)

// Normalize trims surrounding space and upper-cases s.
func Normalize(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// Parse normalizes and validates a ticker symbol.
func Parse(s string) (string, error) {
	sym := Normalize(s)
	if !symbolRegex.MatchString(sym) {
		return "", fmt.Errorf("%w: %q (expected 1-10 characters, letters, digits, '.' or '-')",
			model.ErrInvalidTicker, s)
	}
	return sym, nil
}

// ParseAll parses every symbol in ss and rejects duplicates.
func ParseAll(ss []string) ([]string, error) {
	seen := make(map[string]bool, len(ss))
	out := make([]string, 0, len(ss))
	for _, s := range ss {
		sym, err := Parse(s)
		if err != nil {
			return nil, err
		}
		if seen[sym] {
			return nil, fmt.Errorf("%w: duplicate %s", model.ErrInvalidTicker, sym)
		}
		seen[sym] = true
		out = append(out, sym)
	}
	return out, nil
}
