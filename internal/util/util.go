package util

import (
	"strconv"
	"strings"
)

// ParseGigabytes parses a size-with-unit string as reported by discovery
// ("4G", "3.8Gi", "512M") into gigabytes. Only G and M suffixes are
// recognized; anything else reports ok=false.
func ParseGigabytes(s string) (float64, bool) {
	v := strings.TrimSpace(s)
	if v == "" {
		return 0, false
	}

	unit := 1.0
	switch {
	case strings.HasSuffix(v, "Gi"), strings.HasSuffix(v, "G"):
		v = strings.TrimSuffix(strings.TrimSuffix(v, "i"), "G")
	case strings.HasSuffix(v, "Mi"), strings.HasSuffix(v, "M"):
		v = strings.TrimSuffix(strings.TrimSuffix(v, "i"), "M")
		unit = 1.0 / 1024.0
	default:
		return 0, false
	}

	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, false
	}
	return f * unit, true
}

// ParsePercent parses a use-percent string ("81%", "42") into an integer.
func ParsePercent(s string) (int, bool) {
	v := strings.TrimSuffix(strings.TrimSpace(s), "%")
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// SegmentOf derives the /24 segment key for a dotted-quad address
// ("192.168.1.42" -> "192.168.1.0/24"). Addresses that are not four dotted
// octets report ok=false.
func SegmentOf(addr string) (string, bool) {
	parts := strings.Split(strings.TrimSpace(addr), ".")
	if len(parts) != 4 {
		return "", false
	}
	for _, p := range parts {
		if p == "" {
			return "", false
		}
		if _, err := strconv.Atoi(p); err != nil {
			return "", false
		}
	}
	return strings.Join(parts[:3], ".") + ".0/24", true
}

// StrPtr returns a pointer to the given string.
func StrPtr(s string) *string {
	return &s
}

// IntPtr returns a pointer to the given int.
func IntPtr(i int) *int {
	return &i
}
