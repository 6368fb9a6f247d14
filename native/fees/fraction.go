package fees

import (
	"fmt"
	"math/big"
)

// Fraction describes an optional proportional charge routed to a payee. A
// zero numerator or denominator means no charge applies; NoFee is the
// canonical empty value. This replaces the nullable fraction idiom with an
// explicit "not configured" state.
type Fraction struct {
	Numerator   uint64
	Denominator uint64
	Payee       [20]byte
}

// NoFee is the empty fraction: no charge, no payee.
var NoFee = Fraction{}

// NewFraction builds a validated fraction. The denominator must be nonzero
// when the numerator is.
func NewFraction(numerator, denominator uint64, payee [20]byte) (Fraction, error) {
	if numerator != 0 && denominator == 0 {
		return Fraction{}, fmt.Errorf("fees: zero denominator with numerator %d", numerator)
	}
	return Fraction{Numerator: numerator, Denominator: denominator, Payee: payee}, nil
}

// Applies reports whether the fraction represents an actual charge.
func (f Fraction) Applies() bool {
	return f.Numerator != 0 && f.Denominator != 0
}

// AmountOf computes floor(value * numerator / denominator). The zero
// fraction always yields zero. The result is a fresh big.Int; value is never
// mutated.
func (f Fraction) AmountOf(value *big.Int) *big.Int {
	if value == nil || !f.Applies() {
		return big.NewInt(0)
	}
	amount := new(big.Int).Mul(value, new(big.Int).SetUint64(f.Numerator))
	return amount.Div(amount, new(big.Int).SetUint64(f.Denominator))
}

// Exceeds reports whether the combined charge of the receiver and other can
// consume more than the full value they are taken from. Callers treat this
// as a configuration error rather than clamping at settlement time.
func Exceeds(a, b Fraction) bool {
	if !a.Applies() && !b.Applies() {
		return false
	}
	left := big.NewInt(0)
	if a.Applies() {
		left = new(big.Int).Mul(new(big.Int).SetUint64(a.Numerator), new(big.Int).SetUint64(b.Denominator))
	}
	right := big.NewInt(0)
	if b.Applies() {
		right = new(big.Int).Mul(new(big.Int).SetUint64(b.Numerator), new(big.Int).SetUint64(a.Denominator))
	}
	den := new(big.Int).Mul(new(big.Int).SetUint64(a.Denominator), new(big.Int).SetUint64(b.Denominator))
	if !a.Applies() {
		return cmpFraction(b) > 0
	}
	if !b.Applies() {
		return cmpFraction(a) > 0
	}
	sum := new(big.Int).Add(left, right)
	return sum.Cmp(den) > 0
}

func cmpFraction(f Fraction) int {
	if !f.Applies() {
		return -1
	}
	return new(big.Int).SetUint64(f.Numerator).Cmp(new(big.Int).SetUint64(f.Denominator))
}
