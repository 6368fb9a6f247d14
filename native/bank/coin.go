package bank

import (
	"fmt"
	"math/big"
)

// Coin is a transient value token representing funds withdrawn from an
// account and not yet deposited anywhere. Coins move whole units of value
// between ledgers; the total value held by all live coins plus all account
// balances is conserved across every operation.
type Coin struct {
	value *big.Int
}

// Zero returns an empty coin useful for accumulating extracted values.
func Zero() *Coin {
	return &Coin{value: big.NewInt(0)}
}

func newCoin(value *big.Int) *Coin {
	return &Coin{value: new(big.Int).Set(value)}
}

// Value returns a copy of the coin's current value.
func (c *Coin) Value() *big.Int {
	if c == nil || c.value == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(c.value)
}

// IsZero reports whether the coin holds no value.
func (c *Coin) IsZero() bool {
	return c == nil || c.value == nil || c.value.Sign() == 0
}

// Merge drains other into the receiver, leaving other zero.
func (c *Coin) Merge(other *Coin) error {
	if c == nil || other == nil {
		return ErrNilCoin
	}
	if c.value == nil {
		c.value = big.NewInt(0)
	}
	if other.value == nil {
		other.value = big.NewInt(0)
	}
	c.value.Add(c.value, other.value)
	other.value = big.NewInt(0)
	return nil
}

// Split carves amount out of the receiver into a new coin. The receiver
// keeps the remainder.
func (c *Coin) Split(amount *big.Int) (*Coin, error) {
	if c == nil || c.value == nil {
		return nil, ErrNilCoin
	}
	if amount == nil || amount.Sign() < 0 {
		return nil, fmt.Errorf("%w: split amount", ErrInvalidAmount)
	}
	if c.value.Cmp(amount) < 0 {
		return nil, fmt.Errorf("%w: split %s from %s", ErrInsufficientBalance, amount, c.value)
	}
	c.value.Sub(c.value, amount)
	return newCoin(amount), nil
}

// Extract drains the full value out of the coin, leaving it permanently
// zero, and returns the drained amount.
func (c *Coin) Extract() *big.Int {
	if c == nil || c.value == nil {
		return big.NewInt(0)
	}
	out := new(big.Int).Set(c.value)
	c.value = big.NewInt(0)
	return out
}
