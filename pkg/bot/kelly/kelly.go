// Package kelly sizes stakes with the Kelly Criterion over
// probabilities sourced from historical minimum-achievement rates.
// The stake fraction is hard-capped; no computed edge may exceed it.
package kelly

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultCap is the risk-management ceiling: never stake more than a
// quarter of the bankroll regardless of computed edge.
var DefaultCap = decimal.RequireFromString("0.25")

// Input domain violations. These are caller contract errors and are
// surfaced immediately, never defaulted.
var (
	ErrInvalidOdds        = errors.New("kelly: decimal odds must be greater than 1")
	ErrInvalidProbability = errors.New("kelly: probability must be inside (0, 1)")
)

var one = decimal.NewFromInt(1)

// Fraction computes the Kelly bankroll fraction for a bet at the given
// win probability and decimal odds:
//
//	b = odds - 1; q = 1 - p
//	f = (b*p - q) / b
//
// A non-positive f means no edge and returns zero. The result is
// clamped to [0, cap].
func Fraction(probability, odds, cap decimal.Decimal) (decimal.Decimal, error) {
	if odds.LessThanOrEqual(one) {
		return decimal.Zero, fmt.Errorf("%w: got %s", ErrInvalidOdds, odds)
	}
	if probability.LessThanOrEqual(decimal.Zero) || probability.GreaterThanOrEqual(one) {
		return decimal.Zero, fmt.Errorf("%w: got %s", ErrInvalidProbability, probability)
	}
	if cap.LessThanOrEqual(decimal.Zero) {
		cap = DefaultCap
	}

	b := odds.Sub(one)
	q := one.Sub(probability)

	f := b.Mul(probability).Sub(q).Div(b)

	if f.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, nil
	}
	if f.GreaterThan(cap) {
		return cap, nil
	}
	return f, nil
}

// FractionFloat is a convenience wrapper over float64 inputs with the
// default cap.
func FractionFloat(probability, odds float64) (decimal.Decimal, error) {
	return Fraction(decimal.NewFromFloat(probability), decimal.NewFromFloat(odds), DefaultCap)
}
