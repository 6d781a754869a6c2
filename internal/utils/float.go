package utils

import "math"

// IsFinite reports whether v is neither NaN nor an infinity.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// RoundTo rounds v half away from zero to the given number of decimal places.
func RoundTo(v float64, places int) float64 {
	if places <= 0 {
		return math.Round(v)
	}
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// RoundToInt64 rounds v to the nearest integer. Non-finite values map to 0.
func RoundToInt64(v float64) int64 {
	if !IsFinite(v) {
		return 0
	}
	return int64(math.Round(v))
}
