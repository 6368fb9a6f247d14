package state

import (
	"fmt"

	"github.com/honehone12/token-objects-marketplace/native/assets"
	"github.com/honehone12/token-objects-marketplace/native/fees"
)

type storedObject struct {
	Address      [20]byte
	Kind         string
	Owner        [20]byte
	RoyaltyNum   uint64
	RoyaltyDen   uint64
	RoyaltyPayee [20]byte
}

// ObjectPut persists an object registration, including its royalty terms.
func (m *Manager) ObjectPut(obj *assets.Object) error {
	if obj == nil {
		return fmt.Errorf("state: nil object")
	}
	clone := obj.Clone()
	return m.kvPut(objectKey(clone.Address), &storedObject{
		Address:      clone.Address,
		Kind:         clone.Kind,
		Owner:        clone.Owner,
		RoyaltyNum:   clone.Royalty.Numerator,
		RoyaltyDen:   clone.Royalty.Denominator,
		RoyaltyPayee: clone.Royalty.Payee,
	})
}

// ObjectGet loads an object registration by address.
func (m *Manager) ObjectGet(addr [20]byte) (*assets.Object, bool, error) {
	var stored storedObject
	ok, err := m.kvGet(objectKey(addr), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return &assets.Object{
		Address: stored.Address,
		Kind:    stored.Kind,
		Owner:   stored.Owner,
		Royalty: fees.Fraction{
			Numerator:   stored.RoyaltyNum,
			Denominator: stored.RoyaltyDen,
			Payee:       stored.RoyaltyPayee,
		},
	}, true, nil
}
