package listing

import (
	"encoding/hex"
	"strconv"

	"github.com/honehone12/token-objects-marketplace/core/types"
)

const (
	EventTypeListingCreated   = "listing.created"
	EventTypeBidRecorded      = "listing.bid_recorded"
	EventTypeListingSold      = "listing.sold"
	EventTypeListingCancelled = "listing.cancelled"
)

// NewCreatedEvent returns the canonical event payload for a newly created
// listing.
func NewCreatedEvent(l *Listing) *types.Event {
	return newListingEvent(EventTypeListingCreated, l)
}

// NewBidRecordedEvent returns the event payload emitted when a bid is
// accepted onto the listing's bid sequence.
func NewBidRecordedEvent(l *Listing, bid Bid) *types.Event {
	evt := newListingEvent(EventTypeBidRecorded, l)
	if evt == nil {
		return nil
	}
	evt.Attributes["bidder"] = hex.EncodeToString(bid.Bidder[:])
	if bid.Price != nil {
		evt.Attributes["price"] = bid.Price.String()
	}
	return evt
}

// NewSoldEvent returns the event payload for a settled listing.
func NewSoldEvent(l *Listing) *types.Event {
	return newListingEvent(EventTypeListingSold, l)
}

// NewCancelledEvent returns the event payload for a cancelled listing.
func NewCancelledEvent(l *Listing) *types.Event {
	return newListingEvent(EventTypeListingCancelled, l)
}

func newListingEvent(eventType string, l *Listing) *types.Event {
	if l == nil {
		return nil
	}
	attrs := map[string]string{
		"seller":     hex.EncodeToString(l.ID.Seller[:]),
		"sequence":   strconv.FormatUint(l.ID.Sequence, 10),
		"object":     hex.EncodeToString(l.Object[:]),
		"status":     l.Status.String(),
		"startTime":  strconv.FormatInt(l.StartTime, 10),
		"expiration": strconv.FormatInt(l.ExpirationTime, 10),
	}
	if l.MinPrice != nil {
		attrs["minPrice"] = l.MinPrice.String()
	}
	if l.InstantSale {
		attrs["instantSale"] = "true"
	}
	return &types.Event{Type: eventType, Attributes: attrs}
}
