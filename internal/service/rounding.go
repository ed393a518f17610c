package service

import "math"

// Rounding happens once, at the persistence boundary: currency amounts to
// 2 decimal places, per-mile rates and fractions to 6. Intermediate math
// stays unrounded.

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}

// safeDiv returns a/b, or 0 when the quotient is undefined or non-finite.
// Costing math never propagates NaN or Inf.
func safeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	q := a / b
	if math.IsNaN(q) || math.IsInf(q, 0) {
		return 0
	}
	return q
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// valueOr dereferences p, falling back to def when nil.
func valueOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

func ptr(v float64) *float64 {
	return &v
}
