package listing

import (
	"fmt"
	"math/big"

	"github.com/honehone12/token-objects-marketplace/core/types"
)

// ListingStatus tracks the lifecycle of a listing. A listing is mutated
// only while Open; Sold and Cancelled are terminal.
type ListingStatus uint8

const (
	ListingOpen ListingStatus = iota
	ListingSold
	ListingCancelled
)

// Valid reports whether the status value is within the supported range.
func (s ListingStatus) Valid() bool {
	switch s {
	case ListingOpen, ListingSold, ListingCancelled:
		return true
	default:
		return false
	}
}

func (s ListingStatus) String() string {
	switch s {
	case ListingOpen:
		return "open"
	case ListingSold:
		return "sold"
	case ListingCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// ListingID identifies a listing by its seller and a per-seller sequence
// number. Sequence numbers start at 0, increase strictly, and are never
// reused, so an ID stays valid after the listing closes.
type ListingID struct {
	Seller   [20]byte
	Sequence uint64
}

func (id ListingID) String() string {
	return fmt.Sprintf("%x/%d", id.Seller, id.Sequence)
}

// Bid is one accepted (price, bidder) pair in a listing's bid sequence.
type Bid struct {
	Price  *big.Int
	Bidder [20]byte
}

// Clone returns a deep copy of the bid.
func (b Bid) Clone() Bid {
	clone := Bid{Bidder: b.Bidder, Price: big.NewInt(0)}
	if b.Price != nil {
		clone.Price = new(big.Int).Set(b.Price)
	}
	return clone
}

// Listing captures one seller's offer of an object under a price policy and
// a time window. Bids holds every accepted bid in strictly ascending price
// order; the last element, if any, is the current highest bid. The sequence
// is append-only; acceptance enforces monotonicity, so it is never
// re-sorted.
type Listing struct {
	ID             ListingID
	Object         [20]byte
	ObjectKind     string
	Metadata       []byte
	MinPrice       *big.Int
	InstantSale    bool
	StartTime      int64
	ExpirationTime int64
	Bids           []Bid
	Status         ListingStatus
	CreatedAt      int64
}

// Clone returns a deep copy of the listing so callers can safely mutate the
// copy without affecting the stored instance.
func (l *Listing) Clone() *Listing {
	if l == nil {
		return nil
	}
	clone := *l
	clone.Metadata = append([]byte(nil), l.Metadata...)
	if l.MinPrice != nil {
		clone.MinPrice = new(big.Int).Set(l.MinPrice)
	} else {
		clone.MinPrice = big.NewInt(0)
	}
	clone.Bids = make([]Bid, len(l.Bids))
	for i := range l.Bids {
		clone.Bids[i] = l.Bids[i].Clone()
	}
	return &clone
}

// HighestBid returns the last accepted bid, if any.
func (l *Listing) HighestBid() (Bid, bool) {
	if l == nil || len(l.Bids) == 0 {
		return Bid{}, false
	}
	return l.Bids[len(l.Bids)-1].Clone(), true
}

// Floor is the price a new auction bid must strictly exceed. With no bids
// recorded the floor is MinPrice; otherwise it is the highest accepted
// price. Instant-sale listings compare against MinPrice directly instead.
func (l *Listing) Floor() *big.Int {
	if highest, ok := l.HighestBid(); ok {
		return highest.Price
	}
	if l == nil || l.MinPrice == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(l.MinPrice)
}

// SanitizeListing validates and normalises a listing before it is stored,
// returning a cloned instance. The function does not mutate the original
// value.
func SanitizeListing(l *Listing) (*Listing, error) {
	if l == nil {
		return nil, fmt.Errorf("listing: nil listing")
	}
	clone := l.Clone()
	if !types.ValidPrice(clone.MinPrice) {
		return nil, fmt.Errorf("listing: min price out of range: %s", clone.MinPrice)
	}
	if clone.StartTime >= clone.ExpirationTime {
		return nil, fmt.Errorf("listing: start %d not before expiration %d", clone.StartTime, clone.ExpirationTime)
	}
	if !clone.Status.Valid() {
		return nil, fmt.Errorf("listing: invalid status %d", clone.Status)
	}
	var prev *big.Int
	for i := range clone.Bids {
		price := clone.Bids[i].Price
		if price == nil || price.Sign() <= 0 {
			return nil, fmt.Errorf("listing: bid %d has invalid price", i)
		}
		if prev != nil && price.Cmp(prev) <= 0 {
			return nil, fmt.Errorf("listing: bid sequence not strictly ascending at %d", i)
		}
		prev = price
	}
	return clone, nil
}
