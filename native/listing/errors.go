package listing

import "errors"

var (
	// Caller input errors: rejected before any state change.
	ErrInvalidPrice     = errors.New("listing: price out of range")
	ErrInvalidTimeRange = errors.New("listing: invalid time range")

	// State precondition errors: recoverable by retrying with corrected
	// arguments.
	ErrNoSuchListing        = errors.New("listing: no such listing")
	ErrListingClosed        = errors.New("listing: listing already closed")
	ErrDuplicateListing     = errors.New("listing: object already listed by seller")
	ErrNotOwner             = errors.New("listing: seller does not own object")
	ErrAlreadyOwner         = errors.New("listing: bidder already owns object")
	ErrInvalidObjectAddress = errors.New("listing: asserted object does not match listing")
	ErrOutOfServiceWindow   = errors.New("listing: outside listing service window")
	ErrLowerPrice           = errors.New("listing: bid does not beat current floor")
	ErrAlreadySold          = errors.New("listing: instant sale already has a bid")
)
