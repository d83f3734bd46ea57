package common

import (
	"strconv"
	"strings"
)

// HasAny returns true if s contains any of the substrings, ignoring case.
func HasAny(s string, subs ...string) bool {
	s = strings.ToLower(s)
	for _, sub := range subs {
		if strings.Contains(s, strings.ToLower(sub)) {
			return true
		}
	}
	return false
}

// ParseDecimal parses a number published with either a decimal point or a
// decimal comma ("8,5"). Surrounding quotes and spaces are ignored.
func ParseDecimal(s string) (float64, error) {
	s = strings.Trim(strings.TrimSpace(s), `"`)
	s = strings.Replace(s, ",", ".", 1)
	return strconv.ParseFloat(s, 64)
}
