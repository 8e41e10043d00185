package utils

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var numericToken = regexp.MustCompile(`-?\d+(\.\d+)?`)

// ParseDuration safely parses duration strings like "5m".
func ParseDuration(d string) time.Duration {
	if d == "" {
		return 5 * time.Minute
	}
	duration, err := time.ParseDuration(d)
	if err != nil {
		return 5 * time.Minute
	}
	return duration
}

// ParseNumeric extracts a numeric value from free text. A value that is
// itself a number parses directly; otherwise the first numeric token is
// used (e.g. "about 5 years" -> 5). Returns false when no token exists.
func ParseNumeric(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f, true
	}
	token := numericToken.FindString(s)
	if token == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// FormatNumeric renders a float without exponent notation, dropping the
// fractional part when it is zero so integers stay integer-shaped.
func FormatNumeric(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// IsIntegerString reports whether s is a plain run of digits (an optional
// leading minus is allowed).
func IsIntegerString(s string) bool {
	if s == "" {
		return false
	}
	if s[0] == '-' {
		s = s[1:]
	}
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// NormalizeYear rewrites numeric-looking year strings that carry a
// trailing ".0" into integer-string form ("2024.0" -> "2024"). Anything
// else passes through trimmed. The second return reports whether the
// value changed.
func NormalizeYear(v string) (string, bool) {
	trimmed := strings.TrimSpace(v)
	if stripped, ok := strings.CutSuffix(trimmed, ".0"); ok && IsIntegerString(stripped) {
		return stripped, true
	}
	return trimmed, trimmed != v
}

// RoundPct rounds a percentage to one decimal place.
func RoundPct(f float64) float64 {
	return math.Round(f*10) / 10
}
