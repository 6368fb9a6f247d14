package core

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/honehone12/token-objects-marketplace/core/events"
	"github.com/honehone12/token-objects-marketplace/core/state"
	"github.com/honehone12/token-objects-marketplace/core/types"
	"github.com/honehone12/token-objects-marketplace/native/assets"
	"github.com/honehone12/token-objects-marketplace/native/bank"
	"github.com/honehone12/token-objects-marketplace/native/escrow"
	"github.com/honehone12/token-objects-marketplace/native/listing"
	"github.com/honehone12/token-objects-marketplace/native/market"
	"github.com/honehone12/token-objects-marketplace/native/settlement"
	"github.com/honehone12/token-objects-marketplace/storage"
)

// Node binds the marketplace ledgers over one state manager and serializes
// every state-changing operation under a single lock, so each operation
// runs against a consistent snapshot and either applies fully or not at
// all.
type Node struct {
	mu sync.Mutex

	state    *state.Manager
	registry *assets.Registry
	ledger   *bank.Ledger
	catalog  *market.Catalog
	listings *listing.Engine
	escrows  *escrow.Engine
	settle   *settlement.Engine
	market   market.Market
}

// NewNode wires every ledger engine over the supplied database. The vault
// address holds escrowed value and must not collide with any participant
// account.
func NewNode(db storage.Database, mkt market.Market, vault [20]byte, emitter events.Emitter) (*Node, error) {
	if db == nil {
		return nil, fmt.Errorf("core: nil database")
	}
	if vault == ([20]byte{}) {
		return nil, fmt.Errorf("core: vault address not configured")
	}

	manager := state.NewManager(db)
	registry := assets.NewRegistry(manager)
	ledger := bank.NewLedger(manager)
	catalog := market.NewCatalog(manager)

	listings := listing.NewEngine()
	listings.SetState(manager)
	listings.SetOwnership(registry)
	listings.SetPolicy(mkt.Policy)
	listings.SetEmitter(emitter)

	escrows := escrow.NewEngine()
	escrows.SetState(manager)
	escrows.SetBank(ledger)
	escrows.SetVault(vault)
	escrows.SetEmitter(emitter)

	settle := settlement.NewEngine()
	settle.SetListings(listings)
	settle.SetEscrows(escrows)
	settle.SetAssets(registry)
	settle.SetBank(ledger)
	settle.SetCatalog(catalog)
	settle.SetMarket(mkt)
	settle.SetEmitter(emitter)

	return &Node{
		state:    manager,
		registry: registry,
		ledger:   ledger,
		catalog:  catalog,
		listings: listings,
		escrows:  escrows,
		settle:   settle,
		market:   mkt,
	}, nil
}

// SetNowFunc overrides the clock on every engine. Tests use this for
// deterministic timestamps.
func (n *Node) SetNowFunc(now func() int64) {
	n.listings.SetNowFunc(now)
	n.escrows.SetNowFunc(now)
	n.settle.SetNowFunc(now)
}

// Market returns the configured market.
func (n *Node) Market() market.Market {
	return n.market
}

// CreateListing creates a listing for the seller and records its display
// descriptor in the catalog.
func (n *Node) CreateListing(seller [20]byte, params listing.CreateParams, descriptor string) (listing.ListingID, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	id, err := n.listings.Create(seller, params)
	if err != nil {
		return listing.ListingID{}, err
	}
	if err := n.catalog.AddEntry(n.market.Host, &market.CatalogEntry{
		Seller:     id.Seller,
		Sequence:   id.Sequence,
		Object:     params.Object,
		Descriptor: descriptor,
	}); err != nil {
		return listing.ListingID{}, err
	}
	return id, nil
}

// PlaceBid escrows the bid value, then records acceptance on the listing.
// The escrow expires one grace window after the listing, so a winning bid
// stays settleable for the whole settlement window. When acceptance fails
// after the value entered escrow, the caller reclaims it via SweepExpired
// once the escrow expires.
func (n *Node) PlaceBid(bidder [20]byte, id listing.ListingID, object [20]byte, price *big.Int) (escrow.BidID, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	lst, err := n.listings.Get(id)
	if err != nil {
		return escrow.BidID{}, err
	}
	escrowExpiration := lst.ExpirationTime + n.market.Policy.GraceWindow
	bidID, err := n.escrows.PlaceBid(bidder, id, price, escrowExpiration)
	if err != nil {
		return escrow.BidID{}, err
	}
	if err := n.listings.RecordBid(bidder, id, object, price); err != nil {
		return escrow.BidID{}, err
	}
	return bidID, nil
}

// CloseListing settles or cancels an expired listing.
func (n *Node) CloseListing(id listing.ListingID) (listing.ListingStatus, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.settle.CloseListing(id)
}

// SweepExpired reclaims every expired, still-funded escrow of the bidder.
func (n *Node) SweepExpired(bidder [20]byte) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.escrows.SweepExpired(bidder)
}

// GetListing loads a listing by identifier.
func (n *Node) GetListing(id listing.ListingID) (*listing.Listing, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.listings.Get(id)
}

// HighestBid reports the current highest accepted bid on a listing.
func (n *Node) HighestBid(id listing.ListingID) (listing.Bid, bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.listings.HighestBid(id)
}

// EscrowRecords returns the bidder's full escrow history, including zeroed
// records.
func (n *Node) EscrowRecords(bidder [20]byte) ([]*escrow.EscrowedBid, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.escrows.Records(bidder)
}

// CatalogEntries lists the display catalog for one seller.
func (n *Node) CatalogEntries(seller [20]byte) ([]*market.CatalogEntry, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.catalog.Entries(n.market.Host, seller)
}

// BalanceOf reports an account's available balance.
func (n *Node) BalanceOf(addr [20]byte) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.ledger.BalanceOf(addr)
}

// GetObject loads an object registration.
func (n *Node) GetObject(addr [20]byte) (*assets.Object, bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.registry.Get(addr)
}

// RegisterObject records an object and its royalty terms. Used at seeding
// and by the object administration endpoint.
func (n *Node) RegisterObject(obj *assets.Object) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.registry.Register(obj)
}

// SeedAccount credits an account with an initial balance. Only seeding may
// mint value; every later transfer conserves it.
func (n *Node) SeedAccount(addr [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("core: invalid seed amount")
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	acc, err := n.state.GetAccount(addr)
	if err != nil {
		return err
	}
	acc.Balance = new(big.Int).Add(acc.Balance, amount)
	return n.state.PutAccount(addr, acc)
}

// Account loads the full account record.
func (n *Node) Account(addr [20]byte) (*types.Account, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state.GetAccount(addr)
}
