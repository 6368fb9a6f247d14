package state

import (
	"fmt"
	"math/big"

	"github.com/honehone12/token-objects-marketplace/native/listing"
)

type storedBid struct {
	Price  *big.Int
	Bidder [20]byte
}

type storedListing struct {
	Seller         [20]byte
	Sequence       uint64
	Object         [20]byte
	ObjectKind     string
	Metadata       []byte
	MinPrice       *big.Int
	InstantSale    bool
	StartTime      uint64
	ExpirationTime uint64
	Bids           []storedBid
	Status         uint8
	CreatedAt      uint64
}

// ListingPut persists a listing under its (seller, sequence) identifier.
func (m *Manager) ListingPut(lst *listing.Listing) error {
	if lst == nil {
		return fmt.Errorf("state: nil listing")
	}
	clone := lst.Clone()
	stored := &storedListing{
		Seller:         clone.ID.Seller,
		Sequence:       clone.ID.Sequence,
		Object:         clone.Object,
		ObjectKind:     clone.ObjectKind,
		Metadata:       clone.Metadata,
		MinPrice:       clone.MinPrice,
		InstantSale:    clone.InstantSale,
		StartTime:      uint64(clone.StartTime),
		ExpirationTime: uint64(clone.ExpirationTime),
		Status:         uint8(clone.Status),
		CreatedAt:      uint64(clone.CreatedAt),
	}
	stored.Bids = make([]storedBid, len(clone.Bids))
	for i, bid := range clone.Bids {
		stored.Bids[i] = storedBid{Price: bid.Price, Bidder: bid.Bidder}
	}
	return m.kvPut(listingKey(stored.Seller, stored.Sequence), stored)
}

// ListingGet loads a listing by identifier.
func (m *Manager) ListingGet(id listing.ListingID) (*listing.Listing, bool, error) {
	var stored storedListing
	ok, err := m.kvGet(listingKey(id.Seller, id.Sequence), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	lst := &listing.Listing{
		ID:             listing.ListingID{Seller: stored.Seller, Sequence: stored.Sequence},
		Object:         stored.Object,
		ObjectKind:     stored.ObjectKind,
		Metadata:       stored.Metadata,
		MinPrice:       stored.MinPrice,
		InstantSale:    stored.InstantSale,
		StartTime:      int64(stored.StartTime),
		ExpirationTime: int64(stored.ExpirationTime),
		Status:         listing.ListingStatus(stored.Status),
		CreatedAt:      int64(stored.CreatedAt),
	}
	lst.Bids = make([]listing.Bid, len(stored.Bids))
	for i, bid := range stored.Bids {
		lst.Bids[i] = listing.Bid{Price: bid.Price, Bidder: bid.Bidder}
	}
	return lst, true, nil
}

// NextSequence allocates the seller's next listing sequence number.
// Sequences start at zero and are never reused.
func (m *Manager) NextSequence(seller [20]byte) (uint64, error) {
	key := listingSeqKey(seller)
	var next uint64
	if _, err := m.kvGet(key, &next); err != nil {
		return 0, err
	}
	if err := m.kvPut(key, next+1); err != nil {
		return 0, err
	}
	return next, nil
}

type storedOpenListing struct {
	Seller   [20]byte
	Sequence uint64
}

// OpenListingGet reports which open listing, if any, currently occupies the
// (seller, object) slot.
func (m *Manager) OpenListingGet(seller, object [20]byte) (listing.ListingID, bool, error) {
	var stored storedOpenListing
	ok, err := m.kvGet(openListingKey(seller, object), &stored)
	if err != nil || !ok {
		return listing.ListingID{}, false, err
	}
	return listing.ListingID{Seller: stored.Seller, Sequence: stored.Sequence}, true, nil
}

// OpenListingPut claims the (seller, object) slot for an open listing.
func (m *Manager) OpenListingPut(seller, object [20]byte, id listing.ListingID) error {
	return m.kvPut(openListingKey(seller, object), &storedOpenListing{
		Seller:   id.Seller,
		Sequence: id.Sequence,
	})
}

// OpenListingDelete releases the (seller, object) slot after finalization.
func (m *Manager) OpenListingDelete(seller, object [20]byte) error {
	return m.kvDelete(openListingKey(seller, object))
}
