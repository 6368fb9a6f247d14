package state

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"

	"github.com/honehone12/token-objects-marketplace/core/types"
)

type storedAccount struct {
	Nonce   uint64
	Balance *big.Int
}

// GetAccount loads the account stored under addr. Unknown addresses yield a
// fresh zero-balance account, never an error.
func (m *Manager) GetAccount(addr [20]byte) (*types.Account, error) {
	var stored storedAccount
	ok, err := m.kvGet(accountKey(addr), &stored)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &types.Account{Balance: big.NewInt(0)}, nil
	}
	return types.EnsureAccount(&types.Account{Nonce: stored.Nonce, Balance: stored.Balance}), nil
}

// PutAccount persists the account state under the supplied address. Balances
// must fit in 256 bits; anything larger is rejected before the write.
func (m *Manager) PutAccount(addr [20]byte, account *types.Account) error {
	if account == nil {
		return fmt.Errorf("state: nil account")
	}
	account = types.EnsureAccount(account.Clone())
	if account.Balance.Sign() < 0 {
		return fmt.Errorf("state: negative balance for %x", addr)
	}
	if _, overflow := uint256.FromBig(account.Balance); overflow {
		return fmt.Errorf("state: balance overflow for %x", addr)
	}
	return m.kvPut(accountKey(addr), &storedAccount{
		Nonce:   account.Nonce,
		Balance: account.Balance,
	})
}
