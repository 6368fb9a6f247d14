package state

import (
	"fmt"
	"math/big"

	"github.com/honehone12/token-objects-marketplace/native/escrow"
	"github.com/honehone12/token-objects-marketplace/native/listing"
)

type storedEscrow struct {
	Bidder         [20]byte
	Seller         [20]byte
	Sequence       uint64
	Price          *big.Int
	Held           *big.Int
	ExpirationTime uint64
	CreatedAt      uint64
}

// EscrowPut persists an escrow record under its derived bid key. Records
// are only ever overwritten with updated held values, never removed.
func (m *Manager) EscrowPut(b *escrow.EscrowedBid) error {
	if b == nil {
		return fmt.Errorf("state: nil escrow record")
	}
	clone := b.Clone()
	key := clone.ID.Key()
	return m.kvPut(escrowKey(key), &storedEscrow{
		Bidder:         clone.ID.Bidder,
		Seller:         clone.ID.Listing.Seller,
		Sequence:       clone.ID.Listing.Sequence,
		Price:          clone.ID.Price,
		Held:           clone.Held,
		ExpirationTime: uint64(clone.ExpirationTime),
		CreatedAt:      uint64(clone.CreatedAt),
	})
}

// EscrowGet loads an escrow record by its derived bid key.
func (m *Manager) EscrowGet(key [32]byte) (*escrow.EscrowedBid, bool, error) {
	var stored storedEscrow
	ok, err := m.kvGet(escrowKey(key), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return &escrow.EscrowedBid{
		ID: escrow.BidID{
			Bidder:  stored.Bidder,
			Listing: listing.ListingID{Seller: stored.Seller, Sequence: stored.Sequence},
			Price:   stored.Price,
		},
		Held:           stored.Held,
		ExpirationTime: int64(stored.ExpirationTime),
		CreatedAt:      int64(stored.CreatedAt),
	}, true, nil
}

// BidIndexAppend adds a bid key to the bidder's permanent escrow index.
func (m *Manager) BidIndexAppend(bidder [20]byte, key [32]byte) error {
	keys, err := m.BidIndex(bidder)
	if err != nil {
		return err
	}
	keys = append(keys, key)
	return m.kvPut(escrowIndexKey(bidder), keys)
}

// BidIndex lists every bid key the bidder has ever escrowed, in placement
// order.
func (m *Manager) BidIndex(bidder [20]byte) ([][32]byte, error) {
	var keys [][32]byte
	if _, err := m.kvGet(escrowIndexKey(bidder), &keys); err != nil {
		return nil, err
	}
	return keys, nil
}
