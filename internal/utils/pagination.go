// Package utils holds small query-parameter helpers shared by the HTTP
// handlers.
package utils

import (
	"strconv"
	"strings"
)

// AtoiDefault parses s as a base-10 int, ignoring surrounding spaces.
// Blank or malformed input yields def.
func AtoiDefault(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return n
}

// Clamp bounds n to [lo, hi]. A hi below lo disables the upper bound.
func Clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if hi >= lo && n > hi {
		return hi
	}
	return n
}
