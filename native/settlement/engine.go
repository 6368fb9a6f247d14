package settlement

import (
	"errors"
	"fmt"
	"time"

	"github.com/honehone12/token-objects-marketplace/core/events"
	"github.com/honehone12/token-objects-marketplace/core/types"
	"github.com/honehone12/token-objects-marketplace/native/bank"
	"github.com/honehone12/token-objects-marketplace/native/escrow"
	"github.com/honehone12/token-objects-marketplace/native/fees"
	"github.com/honehone12/token-objects-marketplace/native/listing"
	"github.com/honehone12/token-objects-marketplace/native/market"
)

// ListingLedger is the slice of the listing engine the coordinator needs
// to inspect and finalize listings.
type ListingLedger interface {
	Get(id listing.ListingID) (*listing.Listing, error)
	HighestBid(id listing.ListingID) (listing.Bid, bool, error)
	Finalize(id listing.ListingID, outcome listing.ListingStatus) error
}

// EscrowLedger is the slice of the escrow engine that extracts and splits
// a winning bid's held value.
type EscrowLedger interface {
	Settle(id escrow.BidID, royalty, fee fees.Fraction) (*bank.Coin, error)
}

// AssetLedger resolves object ownership, royalty terms, and moves a sold
// object to its winner.
type AssetLedger interface {
	IsOwner(object, account [20]byte) (bool, error)
	Transfer(object, from, to [20]byte) error
	Royalty(object [20]byte) (fees.Fraction, bool, error)
}

// Bank deposits a settled remainder into the seller's balance.
type Bank interface {
	Deposit(addr [20]byte, coin *bank.Coin) error
}

// CatalogIndex removes closed listings from the display catalog.
type CatalogIndex interface {
	RemoveEntry(host, seller [20]byte, sequence uint64) error
}

type settlementEvent struct {
	evt *types.Event
}

func (e settlementEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e settlementEvent) Event() *types.Event { return e.evt }

// Engine is the settlement coordinator. It never reaches into another
// ledger's storage; every cross-ledger step goes through the capability
// interfaces above. CloseListing is the only place money, ownership and
// listing state change together.
type Engine struct {
	listings ListingLedger
	escrows  EscrowLedger
	assets   AssetLedger
	bank     Bank
	catalog  CatalogIndex
	market   market.Market
	emitter  events.Emitter
	nowFn    func() int64
}

// NewEngine creates a settlement coordinator with a no-op emitter.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetListings wires the listing ledger capability.
func (e *Engine) SetListings(l ListingLedger) { e.listings = l }

// SetEscrows wires the escrow ledger capability.
func (e *Engine) SetEscrows(s EscrowLedger) { e.escrows = s }

// SetAssets wires the asset ownership and royalty collaborator.
func (e *Engine) SetAssets(a AssetLedger) { e.assets = a }

// SetBank wires the value transfer collaborator.
func (e *Engine) SetBank(b Bank) { e.bank = b }

// SetCatalog wires the display catalog collaborator.
func (e *Engine) SetCatalog(c CatalogIndex) { e.catalog = c }

// SetMarket configures the market whose host, fee and grace window govern
// settlement.
func (e *Engine) SetMarket(m market.Market) { e.market = m }

// SetNowFunc overrides the engine's clock.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		now = func() int64 { return time.Now().Unix() }
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
	e.emitter.Emit(settlementEvent{evt: event})
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) ensureConfigured() error {
	if e == nil || e.listings == nil {
		return ErrNilListings
	}
	if e.escrows == nil {
		return ErrNilEscrows
	}
	if e.assets == nil {
		return ErrNilAssets
	}
	if e.bank == nil {
		return ErrNilBank
	}
	if e.catalog == nil {
		return ErrNilCatalog
	}
	return nil
}

// CloseListing closes an expired listing and returns its terminal status.
//
// When a highest bid exists and the grace window has not elapsed, the bid
// is settled: royalty (from the object's royalty record) and the market
// fee are paid out, the object moves to the winner, the seller receives
// the remainder, and the listing finalizes Sold. Otherwise the listing
// finalizes Cancelled and no escrow is touched; orphaned bids stay
// reclaimable through the escrow sweep. Either way the catalog entry is
// removed.
func (e *Engine) CloseListing(id listing.ListingID) (listing.ListingStatus, error) {
	if err := e.ensureConfigured(); err != nil {
		return 0, err
	}
	lst, err := e.listings.Get(id)
	if err != nil {
		return 0, err
	}
	if lst.Status != listing.ListingOpen {
		return 0, fmt.Errorf("%w: status %s", ErrListingClosed, lst.Status)
	}
	now := e.now()
	if now < lst.ExpirationTime {
		return 0, fmt.Errorf("%w: expires at %d, now %d", ErrNotExpired, lst.ExpirationTime, now)
	}
	highest, hasBid, err := e.listings.HighestBid(id)
	if err != nil {
		return 0, err
	}
	if hasBid && now < lst.ExpirationTime+e.market.Policy.GraceWindow {
		if err := e.settle(lst, highest); err != nil {
			return 0, err
		}
		return listing.ListingSold, nil
	}
	if err := e.listings.Finalize(id, listing.ListingCancelled); err != nil {
		return 0, err
	}
	if err := e.removeCatalogEntry(id); err != nil {
		return 0, err
	}
	e.emit(NewListingCancelledEvent(id))
	return listing.ListingCancelled, nil
}

func (e *Engine) settle(lst *listing.Listing, highest listing.Bid) error {
	id := lst.ID
	owned, err := e.assets.IsOwner(lst.Object, id.Seller)
	if err != nil {
		return err
	}
	if !owned {
		return invariantf("seller %x no longer owns listed object %x", id.Seller, lst.Object)
	}
	royalty, found, err := e.assets.Royalty(lst.Object)
	if err != nil {
		return err
	}
	if !found {
		royalty = fees.NoFee
	}
	bidID := escrow.BidID{Bidder: highest.Bidder, Listing: id, Price: highest.Price}
	remainder, err := e.escrows.Settle(bidID, royalty, e.market.Fee)
	if err != nil {
		return err
	}
	if err := e.assets.Transfer(lst.Object, id.Seller, highest.Bidder); err != nil {
		return invariantf("object %x transfer failed after settlement: %v", lst.Object, err)
	}
	if err := e.bank.Deposit(id.Seller, remainder); err != nil {
		return err
	}
	if err := e.listings.Finalize(id, listing.ListingSold); err != nil {
		return err
	}
	if err := e.removeCatalogEntry(id); err != nil {
		return err
	}
	e.emit(NewListingSettledEvent(
		id,
		highest.Bidder,
		highest.Price.String(),
		royalty.AmountOf(highest.Price).String(),
		e.market.Fee.AmountOf(highest.Price).String(),
		remainder.Value().String(),
	))
	return nil
}

func (e *Engine) removeCatalogEntry(id listing.ListingID) error {
	err := e.catalog.RemoveEntry(e.market.Host, id.Seller, id.Sequence)
	if errors.Is(err, market.ErrNoSuchEntry) {
		return invariantf("catalog entry missing for open listing %s", id)
	}
	return err
}
