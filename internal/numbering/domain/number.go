package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// YearPrefix builds "{prefix}{year}-".
func YearPrefix(prefix string, year int) string {
	return fmt.Sprintf("%s%04d-", prefix, year)
}

// FormatNumber renders a number as "{prefix}{year}-{seq:03d}".
// Sequences above 999 grow to more digits without truncation.
func FormatNumber(prefix string, year, seq int) string {
	return fmt.Sprintf("%s%04d-%03d", prefix, year, seq)
}

// ParseSequence extracts the trailing sequence of number when it belongs to the
// given prefix and year. The suffix must consist of ASCII digits only.
// Numbers of another year or series return ok=false with a nil error; numbers of
// this year whose suffix is not numeric return a MalformedNumberError.
func ParseSequence(number, prefix string, year int) (seq int, ok bool, err error) {
	p := YearPrefix(prefix, year)
	if !strings.HasPrefix(number, p) {
		return 0, false, nil
	}
	suffix := number[len(p):]
	if !isDigits(suffix) {
		return 0, false, &MalformedNumberError{Number: number}
	}
	seq, convErr := strconv.Atoi(suffix)
	if convErr != nil {
		return 0, false, &MalformedNumberError{Number: number}
	}
	return seq, true, nil
}

// ParseYear extracts the year of a number in the given series.
// Returns ok=false when the number does not start with prefix + four digits + "-".
func ParseYear(number, prefix string) (year int, ok bool) {
	if !strings.HasPrefix(number, prefix) {
		return 0, false
	}
	rest := number[len(prefix):]
	if len(rest) < 5 || rest[4] != '-' || !isDigits(rest[:4]) {
		return 0, false
	}
	year, err := strconv.Atoi(rest[:4])
	if err != nil {
		return 0, false
	}
	return year, true
}

// IsWellFormed reports whether number matches "{prefix}YYYY-{digits}".
func IsWellFormed(number, prefix string) bool {
	year, ok := ParseYear(number, prefix)
	if !ok {
		return false
	}
	_, ok, _ = ParseSequence(number, prefix, year)
	return ok
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
