package validate

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	reEmail    = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)
	reID       = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
	rePostal   = regexp.MustCompile(`^[A-Za-z0-9 -]{3,10}$`)
	reCurrency = regexp.MustCompile(`^(usd|eur|gbp)$`)
	reEnum     = regexp.MustCompile(`^[a-z0-9_]{1,40}$`)
)

func Email(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if len(s) == 0 || len(s) > 100 {
		return "", false
	}
	return s, reEmail.MatchString(s)
}

// ID validates a simple resource identifier (product/order/project ids).
func ID(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != "" && reID.MatchString(s)
}

func Postal(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, rePostal.MatchString(s)
}

// Currency accepts the provider-supported ISO codes, lowercased.
func Currency(s string) (string, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "usd", true
	}
	return s, reCurrency.MatchString(s)
}

// Enum validates snake_case enum-like request fields (roles, genres, types).
func Enum(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != "" && reEnum.MatchString(s)
}

func Name(s string, max int) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > max {
		return "", false
	}
	return s, true
}

func Qty(n int) bool { return n >= 1 && n <= 50 }

func Rating(n int) bool { return n >= 1 && n <= 5 }

// Money checks a non-negative amount with at most two decimal places.
func Money(d decimal.Decimal) bool {
	return !d.IsNegative() && d.Exponent() >= -2
}

// Percent checks a commission percentage in [0,100].
func Percent(d decimal.Decimal) bool {
	return !d.IsNegative() && d.LessThanOrEqual(decimal.NewFromInt(100))
}

func Password(s string) bool {
	l := len(s)
	if l < 8 || l > 64 {
		return false
	}
	var hasLower, hasUpper, hasDigit bool
	for _, r := range s {
		switch {
		case 'a' <= r && r <= 'z':
			hasLower = true
		case 'A' <= r && r <= 'Z':
			hasUpper = true
		case '0' <= r && r <= '9':
			hasDigit = true
		}
	}
	return hasLower && hasUpper && hasDigit
}
