// Package convert formats Go values into the string representations routing
// services expect in query parameters.
package convert

import (
	"math"
	"strconv"
	"strings"
)

// FormatFloat renders a float as short as possible: rounded to 6 decimals
// with trailing zeros and a trailing period trimmed. Keeps coordinate-heavy
// query strings within URL length limits.
//
//	FormatFloat(40)      -> "40"
//	FormatFloat(40.0010) -> "40.001"
func FormatFloat(f float64) string {
	rounded := math.Round(f*1e6) / 1e6
	s := strconv.FormatFloat(rounded, 'f', -1, 64)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimRight(s, ".")
	}
	return s
}

// Floats joins float values with the given delimiter using FormatFloat.
func Floats(vals []float64, delimiter string) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = FormatFloat(v)
	}
	return strings.Join(parts, delimiter)
}

// Ints joins integer values with the given delimiter.
func Ints(vals []int, delimiter string) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, delimiter)
}

// Bool renders a boolean the way query strings expect it.
func Bool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// SecondsToISO8601 converts a number of seconds to an ISO 8601 duration.
//
//	SecondsToISO8601(3665) -> "PT1H1M5S"
//	SecondsToISO8601(0)    -> "PT0S"
func SecondsToISO8601(seconds int) string {
	hours := seconds / 3600
	minutes := (seconds / 60) % 60
	secs := seconds % 60

	var b strings.Builder
	b.WriteString("PT")
	if hours > 0 {
		b.WriteString(strconv.Itoa(hours))
		b.WriteByte('H')
	}
	if minutes > 0 {
		b.WriteString(strconv.Itoa(minutes))
		b.WriteByte('M')
	}
	if secs > 0 || (hours == 0 && minutes == 0) {
		b.WriteString(strconv.Itoa(secs))
		b.WriteByte('S')
	}
	return b.String()
}
