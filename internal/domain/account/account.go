// Package account canonicalizes bank account strings and compares them.
//
// Slips and bank feeds render the same account in many shapes:
// "123-4-56789-0", "xxx-x-x5678-x", "***4567". Normalization keeps only
// digits and the wildcard markers X, x and *, so that two renderings can be
// compared either position by position or by their trailing digits.
//
// Example usage:
//
//	method := account.Compare("123X56", "123456")
//	if method != account.MethodNone {
//		// accounts are considered the same
//	}
package account

import "strings"

// DefaultSuffixLength is the number of trailing digits compared when the
// two accounts cannot be aligned position by position.
const DefaultSuffixLength = 4

// MatchMethod records how two accounts were found equivalent.
type MatchMethod string

const (
	MethodNone       MatchMethod = ""
	MethodPositional MatchMethod = "positional"
	MethodSuffix     MatchMethod = "suffix"
)

// IsWildcard reports whether r masks a digit.
func IsWildcard(r rune) bool {
	return r == 'X' || r == 'x' || r == '*'
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// Normalize drops every character that is neither a digit nor a wildcard.
func Normalize(s string) string {
	return strings.Map(func(r rune) rune {
		if isDigit(r) || IsWildcard(r) {
			return r
		}
		return -1
	}, s)
}

// Digits returns only the decimal digits of s, in order.
func Digits(s string) string {
	return strings.Map(func(r rune) rune {
		if isDigit(r) {
			return r
		}
		return -1
	}, s)
}

// LastDigits returns the final n digits of s, or all of them when s has fewer.
func LastDigits(s string, n int) string {
	d := Digits(s)
	if n <= 0 || len(d) <= n {
		return d
	}
	return d[len(d)-n:]
}

// PositionalMatch reports whether a and b have the same normalized length
// and agree at every position where neither side is a wildcard.
func PositionalMatch(a, b string) bool {
	na, nb := Normalize(a), Normalize(b)
	if na == "" || len(na) != len(nb) {
		return false
	}
	for i := 0; i < len(na); i++ {
		ca, cb := rune(na[i]), rune(nb[i])
		if IsWildcard(ca) || IsWildcard(cb) {
			continue
		}
		if ca != cb {
			return false
		}
	}
	return true
}

// SuffixMatch reports whether the last n digits of a and b are equal.
// Both sides must carry at least n digits.
func SuffixMatch(a, b string, n int) bool {
	if n <= 0 {
		return false
	}
	da, db := Digits(a), Digits(b)
	if len(da) < n || len(db) < n {
		return false
	}
	return da[len(da)-n:] == db[len(db)-n:]
}

// Compare tries a positional match first and falls back to comparing the
// last DefaultSuffixLength digits.
func Compare(a, b string) MatchMethod {
	if PositionalMatch(a, b) {
		return MethodPositional
	}
	if SuffixMatch(a, b, DefaultSuffixLength) {
		return MethodSuffix
	}
	return MethodNone
}
