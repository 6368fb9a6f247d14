package bank

import (
	"fmt"
	"math/big"

	"github.com/honehone12/token-objects-marketplace/core/types"
)

// State is the account storage the ledger runs against.
type State interface {
	GetAccount(addr [20]byte) (*types.Account, error)
	PutAccount(addr [20]byte, account *types.Account) error
}

// Ledger moves fungible value between accounts and transient coins. It is
// the marketplace's only mutator of account balances.
type Ledger struct {
	state State
}

// NewLedger creates a ledger over the supplied account state.
func NewLedger(state State) *Ledger {
	return &Ledger{state: state}
}

// BalanceOf returns the available balance of the account.
func (l *Ledger) BalanceOf(addr [20]byte) (*big.Int, error) {
	if l == nil || l.state == nil {
		return nil, ErrNilState
	}
	acc, err := l.state.GetAccount(addr)
	if err != nil {
		return nil, err
	}
	return types.EnsureAccount(acc).Clone().Balance, nil
}

// Withdraw removes exactly amount from the account and returns it as a
// coin. Fails with ErrInsufficientBalance when the account cannot cover the
// amount; no state changes on failure.
func (l *Ledger) Withdraw(addr [20]byte, amount *big.Int) (*Coin, error) {
	if l == nil || l.state == nil {
		return nil, ErrNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	acc, err := l.state.GetAccount(addr)
	if err != nil {
		return nil, err
	}
	acc = types.EnsureAccount(acc)
	if acc.Balance.Cmp(amount) < 0 {
		return nil, fmt.Errorf("%w: need %s, have %s", ErrInsufficientBalance, amount, acc.Balance)
	}
	acc.Balance = new(big.Int).Sub(acc.Balance, amount)
	if err := l.state.PutAccount(addr, acc); err != nil {
		return nil, err
	}
	return newCoin(amount), nil
}

// Deposit drains the coin into the account. The coin is left zero so it
// cannot be deposited twice.
func (l *Ledger) Deposit(addr [20]byte, coin *Coin) error {
	if l == nil || l.state == nil {
		return ErrNilState
	}
	if coin == nil {
		return ErrNilCoin
	}
	if coin.IsZero() {
		return nil
	}
	acc, err := l.state.GetAccount(addr)
	if err != nil {
		return err
	}
	acc = types.EnsureAccount(acc)
	amount := coin.Extract()
	acc.Balance = new(big.Int).Add(acc.Balance, amount)
	return l.state.PutAccount(addr, acc)
}
