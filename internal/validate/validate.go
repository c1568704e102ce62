package validate

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	reID    = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
	reTitle = regexp.MustCompile(`^[^\x00-\x1f]{1,120}$`)
)

// ID validates a stable external identifier (listing/actor/offer ids).
func ID(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != "" && reID.MatchString(s)
}

// Title validates a displayable listing title.
func Title(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != "" && reTitle.MatchString(s)
}

// Amount parses a monetary string into an exact decimal. Rejects
// non-positive values and anything finer than cents.
func Amount(s string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, false
	}
	if d.Exponent() < -2 || !d.IsPositive() {
		return decimal.Zero, false
	}
	return d, true
}

// Percent parses a fee percentage in [0, 100].
func Percent(s string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, false
	}
	if d.IsNegative() || d.GreaterThan(decimal.NewFromInt(100)) {
		return decimal.Zero, false
	}
	return d, true
}

// ListingType validates the sale mode enum.
func ListingType(s string) (string, bool) {
	s = strings.TrimSpace(s)
	switch s {
	case "auction", "fixed_price", "hybrid":
		return s, true
	}
	return "", false
}
