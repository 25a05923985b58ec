// Package utils provides small, generic helper functions used across
// different layers of the application. These utilities are independent
// of domain or business logic.
package utils

import "strconv"

// AtoiDefault converts a string to an int using strconv.Atoi.
// If the string is empty or cannot be parsed as an integer,
// it returns the provided default value instead.
//
// Example:
//
//	n := utils.AtoiDefault("42", 0) // returns 42
//	n = utils.AtoiDefault("", 10)   // returns 10
//	n = utils.AtoiDefault("x", 5)   // returns 5
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// ParsePage reads limit/offset query values. A missing or non-positive limit
// becomes def, a limit above maxLimit is clamped, and a negative or
// unparseable offset becomes 0.
func ParsePage(limitStr, offsetStr string, def, maxLimit int) (limit, offset int) {
	limit = AtoiDefault(limitStr, def)
	if limit <= 0 {
		limit = def
	}
	if maxLimit > 0 && limit > maxLimit {
		limit = maxLimit
	}
	offset = AtoiDefault(offsetStr, 0)
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// Window returns the half-open bounds [lo, hi) of the page within a slice of
// length total. Offsets past the end yield an empty window.
func Window(total, limit, offset int) (lo, hi int) {
	lo = min(offset, total)
	hi = min(lo+limit, total)
	return lo, hi
}
