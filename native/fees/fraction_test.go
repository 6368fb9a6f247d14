package fees

import (
	"math/big"
	"testing"
)

func payee(fill byte) [20]byte {
	var addr [20]byte
	for i := range addr {
		addr[i] = fill
	}
	return addr
}

func TestNewFractionRejectsZeroDenominator(t *testing.T) {
	if _, err := NewFraction(1, 0, payee(0x01)); err == nil {
		t.Fatalf("expected error for zero denominator")
	}
	if _, err := NewFraction(0, 0, payee(0x01)); err != nil {
		t.Fatalf("zero fraction should be valid: %v", err)
	}
}

func TestFractionApplies(t *testing.T) {
	if NoFee.Applies() {
		t.Fatalf("NoFee must not apply")
	}
	f, err := NewFraction(5, 100, payee(0x02))
	if err != nil {
		t.Fatalf("NewFraction: %v", err)
	}
	if !f.Applies() {
		t.Fatalf("5/100 must apply")
	}
	zeroNum, err := NewFraction(0, 100, payee(0x02))
	if err != nil {
		t.Fatalf("NewFraction: %v", err)
	}
	if zeroNum.Applies() {
		t.Fatalf("0/100 must not apply")
	}
}

func TestAmountOfFloors(t *testing.T) {
	f, err := NewFraction(1, 3, payee(0x03))
	if err != nil {
		t.Fatalf("NewFraction: %v", err)
	}
	got := f.AmountOf(big.NewInt(100))
	if got.Cmp(big.NewInt(33)) != 0 {
		t.Fatalf("expected floor(100/3)=33, got %s", got)
	}
	if f.AmountOf(nil).Sign() != 0 {
		t.Fatalf("nil value must yield zero")
	}
	if NoFee.AmountOf(big.NewInt(100)).Sign() != 0 {
		t.Fatalf("NoFee must yield zero")
	}
}

func TestAmountOfDoesNotMutateValue(t *testing.T) {
	f, _ := NewFraction(1, 2, payee(0x04))
	value := big.NewInt(101)
	_ = f.AmountOf(value)
	if value.Cmp(big.NewInt(101)) != 0 {
		t.Fatalf("value mutated to %s", value)
	}
}

func TestExceeds(t *testing.T) {
	half, _ := NewFraction(1, 2, payee(0x05))
	third, _ := NewFraction(1, 3, payee(0x06))
	whole, _ := NewFraction(1, 1, payee(0x07))
	if Exceeds(half, third) {
		t.Fatalf("1/2 + 1/3 must not exceed 1")
	}
	if !Exceeds(half, whole) {
		t.Fatalf("1/2 + 1/1 must exceed 1")
	}
	if Exceeds(NoFee, NoFee) {
		t.Fatalf("empty fractions never exceed")
	}
	if Exceeds(NoFee, whole) {
		t.Fatalf("exactly 1 does not exceed")
	}
}
