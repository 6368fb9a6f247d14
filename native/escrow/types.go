package escrow

import (
	"encoding/binary"
	"fmt"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/honehone12/token-objects-marketplace/core/types"
	"github.com/honehone12/token-objects-marketplace/native/listing"
)

// BidID uniquely identifies a bid by who bid, on what listing, at what
// price. Re-bidding at a previously used price by the same bidder on the
// same listing collides on the same ID and is rejected as a duplicate.
type BidID struct {
	Bidder  [20]byte
	Listing listing.ListingID
	Price   *big.Int
}

// Key derives the deterministic storage key for the bid: the keccak256 hash
// of the bidder, the listing identifier, and the price.
func (id BidID) Key() [32]byte {
	var seq [8]byte
	binary.BigEndian.PutUint64(seq[:], id.Listing.Sequence)
	price := []byte{}
	if id.Price != nil {
		price = id.Price.Bytes()
	}
	return ethcrypto.Keccak256Hash(id.Bidder[:], id.Listing.Seller[:], seq[:], price)
}

// Clone returns a deep copy of the bid identifier.
func (id BidID) Clone() BidID {
	clone := BidID{Bidder: id.Bidder, Listing: id.Listing, Price: big.NewInt(0)}
	if id.Price != nil {
		clone.Price = new(big.Int).Set(id.Price)
	}
	return clone
}

func (id BidID) String() string {
	return fmt.Sprintf("%x@%s:%s", id.Bidder, id.Listing, id.Price)
}

// EscrowedBid is one bid's value held by the escrow vault. Held equals the
// bid price from acceptance until settlement or sweep, after which it is
// permanently zero. Records are never deleted; a zeroed record is the
// permanent audit trail of the bid.
type EscrowedBid struct {
	ID             BidID
	Held           *big.Int
	ExpirationTime int64
	CreatedAt      int64
}

// Clone returns a deep copy of the escrow record.
func (b *EscrowedBid) Clone() *EscrowedBid {
	if b == nil {
		return nil
	}
	clone := *b
	clone.ID = b.ID.Clone()
	if b.Held != nil {
		clone.Held = new(big.Int).Set(b.Held)
	} else {
		clone.Held = big.NewInt(0)
	}
	return &clone
}

// SanitizeEscrowedBid validates and normalises an escrow record before it
// is stored, returning a cloned instance. The function does not mutate the
// original value.
func SanitizeEscrowedBid(b *EscrowedBid) (*EscrowedBid, error) {
	if b == nil {
		return nil, fmt.Errorf("escrow: nil record")
	}
	clone := b.Clone()
	if !types.ValidPrice(clone.ID.Price) {
		return nil, fmt.Errorf("escrow: bid price out of range: %s", clone.ID.Price)
	}
	if clone.Held.Sign() < 0 {
		return nil, fmt.Errorf("escrow: held value must be non-negative")
	}
	return clone, nil
}
