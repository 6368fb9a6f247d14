package settlement

import (
	"encoding/hex"
	"strconv"

	"github.com/honehone12/token-objects-marketplace/core/types"
	"github.com/honehone12/token-objects-marketplace/native/listing"
)

const (
	EventTypeListingSettled   = "settlement.listing_settled"
	EventTypeListingCancelled = "settlement.listing_cancelled"
)

// NewListingSettledEvent returns the event payload emitted when a close
// pays out the highest bid and transfers the object.
func NewListingSettledEvent(id listing.ListingID, winner [20]byte, price, royalty, fee, remainder string) *types.Event {
	return &types.Event{
		Type: EventTypeListingSettled,
		Attributes: map[string]string{
			"seller":        hex.EncodeToString(id.Seller[:]),
			"sequence":      strconv.FormatUint(id.Sequence, 10),
			"winner":        hex.EncodeToString(winner[:]),
			"price":         price,
			"royaltyAmount": royalty,
			"feeAmount":     fee,
			"remainder":     remainder,
		},
	}
}

// NewListingCancelledEvent returns the event payload emitted when a close
// finalizes a listing without settlement.
func NewListingCancelledEvent(id listing.ListingID) *types.Event {
	return &types.Event{
		Type: EventTypeListingCancelled,
		Attributes: map[string]string{
			"seller":   hex.EncodeToString(id.Seller[:]),
			"sequence": strconv.FormatUint(id.Sequence, 10),
		},
	}
}
