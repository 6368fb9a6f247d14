package escrow

import (
	"encoding/hex"
	"strconv"

	"github.com/honehone12/token-objects-marketplace/core/types"
)

const (
	EventTypeBidPlaced  = "escrow.bid_placed"
	EventTypeBidSettled = "escrow.bid_settled"
	EventTypeBidsSwept  = "escrow.bids_swept"
)

// NewBidPlacedEvent returns the canonical event payload for a newly
// escrowed bid.
func NewBidPlacedEvent(b *EscrowedBid) *types.Event {
	return newBidEvent(EventTypeBidPlaced, b)
}

// NewBidSettledEvent returns the event payload emitted when a bid's held
// value is extracted and split at settlement.
func NewBidSettledEvent(b *EscrowedBid, royalty, fee, remainder string) *types.Event {
	evt := newBidEvent(EventTypeBidSettled, b)
	if evt == nil {
		return nil
	}
	evt.Attributes["royaltyAmount"] = royalty
	evt.Attributes["feeAmount"] = fee
	evt.Attributes["remainder"] = remainder
	return evt
}

// NewBidsSweptEvent returns the event payload emitted when a bidder
// reclaims expired escrows.
func NewBidsSweptEvent(bidder [20]byte, count int, total string) *types.Event {
	return &types.Event{
		Type: EventTypeBidsSwept,
		Attributes: map[string]string{
			"bidder": hex.EncodeToString(bidder[:]),
			"count":  strconv.Itoa(count),
			"total":  total,
		},
	}
}

func newBidEvent(eventType string, b *EscrowedBid) *types.Event {
	if b == nil {
		return nil
	}
	key := b.ID.Key()
	attrs := map[string]string{
		"id":         hex.EncodeToString(key[:]),
		"bidder":     hex.EncodeToString(b.ID.Bidder[:]),
		"seller":     hex.EncodeToString(b.ID.Listing.Seller[:]),
		"sequence":   strconv.FormatUint(b.ID.Listing.Sequence, 10),
		"expiration": strconv.FormatInt(b.ExpirationTime, 10),
	}
	if b.ID.Price != nil {
		attrs["price"] = b.ID.Price.String()
	}
	if b.Held != nil {
		attrs["held"] = b.Held.String()
	}
	return &types.Event{Type: eventType, Attributes: attrs}
}
