package listing

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/honehone12/token-objects-marketplace/core/events"
	"github.com/honehone12/token-objects-marketplace/core/types"
	"github.com/honehone12/token-objects-marketplace/native/assets"
	"github.com/honehone12/token-objects-marketplace/native/market"
	"github.com/honehone12/token-objects-marketplace/native/metadata"
)

var errNilState = errors.New("listing engine: state not configured")

type engineState interface {
	ListingPut(*Listing) error
	ListingGet(id ListingID) (*Listing, bool, error)
	NextSequence(seller [20]byte) (uint64, error)
	OpenListingGet(seller, object [20]byte) (ListingID, bool, error)
	OpenListingPut(seller, object [20]byte, id ListingID) error
	OpenListingDelete(seller, object [20]byte) error
}

// Ownership is the slice of the asset registry the listing ledger needs.
type Ownership interface {
	IsOwner(object, account [20]byte) (bool, error)
}

type listingEvent struct {
	evt *types.Event
}

func (e listingEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e listingEvent) Event() *types.Event { return e.evt }

// Engine owns the set of listings per seller: creation invariants, bid
// recording with price-ordering and time-window rules, and terminal state
// transitions. All preconditions are evaluated before any mutation, so a
// failed operation has no effect.
type Engine struct {
	state     engineState
	ownership Ownership
	policy    market.Policy
	emitter   events.Emitter
	nowFn     func() int64
}

// NewEngine creates a listing engine with a no-op emitter and no policy
// bounds. Callers wire state and ownership before use.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetOwnership configures the asset ownership collaborator.
func (e *Engine) SetOwnership(ownership Ownership) { e.ownership = ownership }

// SetPolicy configures the market policy bounds applied at creation.
func (e *Engine) SetPolicy(policy market.Policy) { e.policy = policy }

// SetNowFunc overrides the time source used by the engine. Primarily
// intended for tests to provide deterministic timestamps.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) emit(event *types.Event) {
	if e == nil || e.emitter == nil || event == nil {
		return
	}
	e.emitter.Emit(listingEvent{evt: event})
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

// CreateParams carries the caller-supplied definition of a new listing.
// The three metadata slices are parallel arrays and must share one length.
type CreateParams struct {
	Object         [20]byte
	ObjectKind     string
	MetadataNames  []string
	MetadataValues [][]byte
	MetadataTypes  []string
	MinPrice       *big.Int
	InstantSale    bool
	StartTime      int64
	ExpirationTime int64
}

// Create validates and stores a new listing for the seller, allocating the
// next per-seller sequence number.
func (e *Engine) Create(seller [20]byte, params CreateParams) (ListingID, error) {
	if e == nil || e.state == nil {
		return ListingID{}, errNilState
	}
	if e.ownership == nil {
		return ListingID{}, fmt.Errorf("listing engine: ownership not configured")
	}
	owned, err := e.ownership.IsOwner(params.Object, seller)
	if err != nil {
		return ListingID{}, err
	}
	if !owned {
		return ListingID{}, fmt.Errorf("%w: object %x", ErrNotOwner, params.Object)
	}
	if params.StartTime >= params.ExpirationTime {
		return ListingID{}, fmt.Errorf("%w: start %d, expiration %d", ErrInvalidTimeRange, params.StartTime, params.ExpirationTime)
	}
	now := e.now()
	if err := e.policy.ValidateWindow(now, params.StartTime, params.ExpirationTime); err != nil {
		return ListingID{}, fmt.Errorf("%w: %w", ErrInvalidTimeRange, err)
	}
	if !types.ValidPrice(params.MinPrice) {
		return ListingID{}, fmt.Errorf("%w: min price %s", ErrInvalidPrice, params.MinPrice)
	}
	kind, err := assets.NormalizeKind(params.ObjectKind)
	if err != nil {
		return ListingID{}, err
	}
	blob, err := metadata.Encode(params.MetadataNames, params.MetadataValues, params.MetadataTypes)
	if err != nil {
		return ListingID{}, err
	}
	if _, ok, err := e.state.OpenListingGet(seller, params.Object); err != nil {
		return ListingID{}, err
	} else if ok {
		return ListingID{}, fmt.Errorf("%w: object %x", ErrDuplicateListing, params.Object)
	}

	sequence, err := e.state.NextSequence(seller)
	if err != nil {
		return ListingID{}, err
	}
	lst := &Listing{
		ID:             ListingID{Seller: seller, Sequence: sequence},
		Object:         params.Object,
		ObjectKind:     kind,
		Metadata:       blob,
		MinPrice:       new(big.Int).Set(params.MinPrice),
		InstantSale:    params.InstantSale,
		StartTime:      params.StartTime,
		ExpirationTime: params.ExpirationTime,
		Status:         ListingOpen,
		CreatedAt:      now,
	}
	if err := e.storeListing(lst); err != nil {
		return ListingID{}, err
	}
	if err := e.state.OpenListingPut(seller, params.Object, lst.ID); err != nil {
		return ListingID{}, err
	}
	e.emit(NewCreatedEvent(lst))
	return lst.ID, nil
}

// RecordBid appends an accepted (price, bidder) pair to the listing's bid
// sequence. Acceptance depends on sale mode: an instant sale takes exactly
// one bid meeting MinPrice; an auction bid must strictly exceed the current
// highest price, or MinPrice when no bid exists yet.
func (e *Engine) RecordBid(bidder [20]byte, id ListingID, assertedObject [20]byte, price *big.Int) error {
	lst, err := e.loadListing(id)
	if err != nil {
		return err
	}
	if lst.Status != ListingOpen {
		return fmt.Errorf("%w: status %s", ErrListingClosed, lst.Status)
	}
	if bidder == id.Seller {
		return ErrAlreadyOwner
	}
	if assertedObject != lst.Object {
		return fmt.Errorf("%w: asserted %x, listed %x", ErrInvalidObjectAddress, assertedObject, lst.Object)
	}
	now := e.now()
	if now <= lst.StartTime || now >= lst.ExpirationTime {
		return fmt.Errorf("%w: now %d, window (%d, %d)", ErrOutOfServiceWindow, now, lst.StartTime, lst.ExpirationTime)
	}
	if !types.ValidPrice(price) {
		return fmt.Errorf("%w: %s", ErrInvalidPrice, price)
	}
	if lst.InstantSale {
		if len(lst.Bids) > 0 {
			return ErrAlreadySold
		}
		if price.Cmp(lst.MinPrice) < 0 {
			return fmt.Errorf("%w: %s below min price %s", ErrLowerPrice, price, lst.MinPrice)
		}
	} else if floor := lst.Floor(); price.Cmp(floor) <= 0 {
		return fmt.Errorf("%w: %s does not exceed floor %s", ErrLowerPrice, price, floor)
	}

	bid := Bid{Price: new(big.Int).Set(price), Bidder: bidder}
	lst.Bids = append(lst.Bids, bid)
	if err := e.storeListing(lst); err != nil {
		return err
	}
	e.emit(NewBidRecordedEvent(lst, bid))
	return nil
}

// HighestBid reports the current highest accepted bid. An open listing with
// no bids yields ok=false and no error.
func (e *Engine) HighestBid(id ListingID) (Bid, bool, error) {
	lst, err := e.loadListing(id)
	if err != nil {
		return Bid{}, false, err
	}
	bid, ok := lst.HighestBid()
	return bid, ok, nil
}

// Get returns a copy of the stored listing. Closed listings remain
// queryable by ID.
func (e *Engine) Get(id ListingID) (*Listing, error) {
	return e.loadListing(id)
}

// Finalize marks the listing terminally Sold or Cancelled and releases the
// per-object open-listing slot so the seller may relist. The settlement
// coordinator calls this exactly once per listing.
func (e *Engine) Finalize(id ListingID, outcome ListingStatus) error {
	if outcome != ListingSold && outcome != ListingCancelled {
		return fmt.Errorf("listing: invalid finalize outcome %d", outcome)
	}
	lst, err := e.loadListing(id)
	if err != nil {
		return err
	}
	if lst.Status != ListingOpen {
		return fmt.Errorf("%w: status %s", ErrListingClosed, lst.Status)
	}
	lst.Status = outcome
	if err := e.storeListing(lst); err != nil {
		return err
	}
	if err := e.state.OpenListingDelete(id.Seller, lst.Object); err != nil {
		return err
	}
	if outcome == ListingSold {
		e.emit(NewSoldEvent(lst))
	} else {
		e.emit(NewCancelledEvent(lst))
	}
	return nil
}

func (e *Engine) loadListing(id ListingID) (*Listing, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	lst, ok, err := e.state.ListingGet(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoSuchListing, id)
	}
	return lst, nil
}

func (e *Engine) storeListing(lst *Listing) error {
	sanitized, err := SanitizeListing(lst)
	if err != nil {
		return err
	}
	return e.state.ListingPut(sanitized)
}
