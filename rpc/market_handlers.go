package rpc

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/honehone12/token-objects-marketplace/crypto"
	"github.com/honehone12/token-objects-marketplace/native/assets"
	"github.com/honehone12/token-objects-marketplace/native/escrow"
	"github.com/honehone12/token-objects-marketplace/native/fees"
	"github.com/honehone12/token-objects-marketplace/native/listing"
	"github.com/honehone12/token-objects-marketplace/native/metadata"
)

var errInvalidParams = errors.New("rpc: invalid params")

func decodeParams(params []json.RawMessage, out interface{}) error {
	if len(params) != 1 {
		return fmt.Errorf("%w: expected a single params object", errInvalidParams)
	}
	if err := json.Unmarshal(params[0], out); err != nil {
		return fmt.Errorf("%w: %v", errInvalidParams, err)
	}
	return nil
}

func parseAddress(field, raw string) ([20]byte, error) {
	addr, err := crypto.DecodeAddress(raw)
	if err != nil {
		return [20]byte{}, fmt.Errorf("%w: %s: %v", errInvalidParams, field, err)
	}
	return addr.Array(), nil
}

func parsePrice(field, raw string) (*big.Int, error) {
	price, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a decimal amount", errInvalidParams, field)
	}
	return price, nil
}

func encodeAddress(addr [20]byte) string {
	return crypto.NewAddress(crypto.MarketPrefix, addr[:]).String()
}

type listingRef struct {
	Seller   string `json:"seller"`
	Sequence uint64 `json:"sequence"`
}

func (ref listingRef) id() (listing.ListingID, error) {
	seller, err := parseAddress("seller", ref.Seller)
	if err != nil {
		return listing.ListingID{}, err
	}
	return listing.ListingID{Seller: seller, Sequence: ref.Sequence}, nil
}

type createListingParams struct {
	Seller         string   `json:"seller"`
	Object         string   `json:"object"`
	ObjectKind     string   `json:"objectKind"`
	MetadataNames  []string `json:"metadataNames"`
	MetadataValues [][]byte `json:"metadataValues"`
	MetadataTypes  []string `json:"metadataTypes"`
	MinPrice       string   `json:"minPrice"`
	InstantSale    bool     `json:"instantSale"`
	StartTime      int64    `json:"startTime"`
	ExpirationTime int64    `json:"expirationTime"`
	Descriptor     string   `json:"descriptor"`
}

func (s *Server) handleCreateListing(_ context.Context, params []json.RawMessage) (interface{}, error) {
	var p createListingParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	seller, err := parseAddress("seller", p.Seller)
	if err != nil {
		return nil, err
	}
	object, err := parseAddress("object", p.Object)
	if err != nil {
		return nil, err
	}
	minPrice, err := parsePrice("minPrice", p.MinPrice)
	if err != nil {
		return nil, err
	}
	id, err := s.node.CreateListing(seller, listing.CreateParams{
		Object:         object,
		ObjectKind:     p.ObjectKind,
		MetadataNames:  p.MetadataNames,
		MetadataValues: p.MetadataValues,
		MetadataTypes:  p.MetadataTypes,
		MinPrice:       minPrice,
		InstantSale:    p.InstantSale,
		StartTime:      p.StartTime,
		ExpirationTime: p.ExpirationTime,
	}, p.Descriptor)
	if err != nil {
		return nil, err
	}
	return listingRef{Seller: encodeAddress(id.Seller), Sequence: id.Sequence}, nil
}

type placeBidParams struct {
	Bidder   string `json:"bidder"`
	Seller   string `json:"seller"`
	Sequence uint64 `json:"sequence"`
	Object   string `json:"object"`
	Price    string `json:"price"`
}

type placeBidResult struct {
	BidKey string `json:"bidKey"`
}

func (s *Server) handlePlaceBid(_ context.Context, params []json.RawMessage) (interface{}, error) {
	var p placeBidParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	bidder, err := parseAddress("bidder", p.Bidder)
	if err != nil {
		return nil, err
	}
	id, err := listingRef{Seller: p.Seller, Sequence: p.Sequence}.id()
	if err != nil {
		return nil, err
	}
	object, err := parseAddress("object", p.Object)
	if err != nil {
		return nil, err
	}
	price, err := parsePrice("price", p.Price)
	if err != nil {
		return nil, err
	}
	bidID, err := s.node.PlaceBid(bidder, id, object, price)
	if err != nil {
		return nil, err
	}
	key := bidID.Key()
	return placeBidResult{BidKey: hex.EncodeToString(key[:])}, nil
}

type closeListingResult struct {
	Outcome string `json:"outcome"`
}

func (s *Server) handleCloseListing(_ context.Context, params []json.RawMessage) (interface{}, error) {
	var ref listingRef
	if err := decodeParams(params, &ref); err != nil {
		return nil, err
	}
	id, err := ref.id()
	if err != nil {
		return nil, err
	}
	outcome, err := s.node.CloseListing(id)
	if err != nil {
		return nil, err
	}
	return closeListingResult{Outcome: outcome.String()}, nil
}

type sweepExpiredParams struct {
	Bidder string `json:"bidder"`
}

type sweepExpiredResult struct {
	Reclaimed string `json:"reclaimed"`
}

func (s *Server) handleSweepExpired(_ context.Context, params []json.RawMessage) (interface{}, error) {
	var p sweepExpiredParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	bidder, err := parseAddress("bidder", p.Bidder)
	if err != nil {
		return nil, err
	}
	total, err := s.node.SweepExpired(bidder)
	if err != nil {
		return nil, err
	}
	return sweepExpiredResult{Reclaimed: total.String()}, nil
}

type royaltyParams struct {
	Numerator   uint64 `json:"numerator"`
	Denominator uint64 `json:"denominator"`
	Payee       string `json:"payee"`
}

type registerObjectParams struct {
	Address string         `json:"address"`
	Kind    string         `json:"kind"`
	Owner   string         `json:"owner"`
	Royalty *royaltyParams `json:"royalty,omitempty"`
}

func (s *Server) handleRegisterObject(_ context.Context, params []json.RawMessage) (interface{}, error) {
	var p registerObjectParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	address, err := parseAddress("address", p.Address)
	if err != nil {
		return nil, err
	}
	owner, err := parseAddress("owner", p.Owner)
	if err != nil {
		return nil, err
	}
	royalty := fees.NoFee
	if p.Royalty != nil && p.Royalty.Numerator != 0 {
		payee, err := parseAddress("royalty.payee", p.Royalty.Payee)
		if err != nil {
			return nil, err
		}
		royalty, err = fees.NewFraction(p.Royalty.Numerator, p.Royalty.Denominator, payee)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errInvalidParams, err)
		}
	}
	if err := s.node.RegisterObject(&assets.Object{
		Address: address,
		Kind:    p.Kind,
		Owner:   owner,
		Royalty: royalty,
	}); err != nil {
		return nil, err
	}
	return map[string]bool{"registered": true}, nil
}

type bidView struct {
	Bidder string `json:"bidder"`
	Price  string `json:"price"`
}

type propertyView struct {
	Name  string `json:"name"`
	Value []byte `json:"value"`
	Type  string `json:"type"`
}

type listingView struct {
	Seller         string         `json:"seller"`
	Sequence       uint64         `json:"sequence"`
	Object         string         `json:"object"`
	ObjectKind     string         `json:"objectKind"`
	Properties     []propertyView `json:"properties"`
	MinPrice       string         `json:"minPrice"`
	InstantSale    bool           `json:"instantSale"`
	StartTime      int64          `json:"startTime"`
	ExpirationTime int64          `json:"expirationTime"`
	Bids           []bidView      `json:"bids"`
	Status         string         `json:"status"`
	CreatedAt      int64          `json:"createdAt"`
}

func (s *Server) handleGetListing(_ context.Context, params []json.RawMessage) (interface{}, error) {
	var ref listingRef
	if err := decodeParams(params, &ref); err != nil {
		return nil, err
	}
	id, err := ref.id()
	if err != nil {
		return nil, err
	}
	lst, err := s.node.GetListing(id)
	if err != nil {
		return nil, err
	}
	view := listingView{
		Seller:         encodeAddress(lst.ID.Seller),
		Sequence:       lst.ID.Sequence,
		Object:         encodeAddress(lst.Object),
		ObjectKind:     lst.ObjectKind,
		MinPrice:       lst.MinPrice.String(),
		InstantSale:    lst.InstantSale,
		StartTime:      lst.StartTime,
		ExpirationTime: lst.ExpirationTime,
		Status:         lst.Status.String(),
		CreatedAt:      lst.CreatedAt,
	}
	if props, err := metadata.Decode(lst.Metadata); err == nil {
		view.Properties = make([]propertyView, len(props))
		for i, prop := range props {
			view.Properties[i] = propertyView{Name: prop.Name, Value: prop.Value, Type: prop.Type}
		}
	}
	view.Bids = make([]bidView, len(lst.Bids))
	for i, bid := range lst.Bids {
		view.Bids[i] = bidView{Bidder: encodeAddress(bid.Bidder), Price: bid.Price.String()}
	}
	return view, nil
}

type highestBidResult struct {
	Found  bool   `json:"found"`
	Bidder string `json:"bidder,omitempty"`
	Price  string `json:"price,omitempty"`
}

func (s *Server) handleHighestBid(_ context.Context, params []json.RawMessage) (interface{}, error) {
	var ref listingRef
	if err := decodeParams(params, &ref); err != nil {
		return nil, err
	}
	id, err := ref.id()
	if err != nil {
		return nil, err
	}
	bid, ok, err := s.node.HighestBid(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return highestBidResult{Found: false}, nil
	}
	return highestBidResult{
		Found:  true,
		Bidder: encodeAddress(bid.Bidder),
		Price:  bid.Price.String(),
	}, nil
}

type catalogEntryView struct {
	Seller     string `json:"seller"`
	Sequence   uint64 `json:"sequence"`
	Object     string `json:"object"`
	Descriptor string `json:"descriptor"`
}

type listCatalogParams struct {
	Seller string `json:"seller"`
}

func (s *Server) handleListCatalog(_ context.Context, params []json.RawMessage) (interface{}, error) {
	var p listCatalogParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	seller, err := parseAddress("seller", p.Seller)
	if err != nil {
		return nil, err
	}
	entries, err := s.node.CatalogEntries(seller)
	if err != nil {
		return nil, err
	}
	views := make([]catalogEntryView, len(entries))
	for i, entry := range entries {
		views[i] = catalogEntryView{
			Seller:     encodeAddress(entry.Seller),
			Sequence:   entry.Sequence,
			Object:     encodeAddress(entry.Object),
			Descriptor: entry.Descriptor,
		}
	}
	return views, nil
}

type escrowRecordView struct {
	BidKey         string `json:"bidKey"`
	Bidder         string `json:"bidder"`
	Seller         string `json:"seller"`
	Sequence       uint64 `json:"sequence"`
	Price          string `json:"price"`
	Held           string `json:"held"`
	ExpirationTime int64  `json:"expirationTime"`
	CreatedAt      int64  `json:"createdAt"`
}

type escrowRecordsParams struct {
	Bidder string `json:"bidder"`
}

func (s *Server) handleEscrowRecords(_ context.Context, params []json.RawMessage) (interface{}, error) {
	var p escrowRecordsParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	bidder, err := parseAddress("bidder", p.Bidder)
	if err != nil {
		return nil, err
	}
	records, err := s.node.EscrowRecords(bidder)
	if err != nil {
		return nil, err
	}
	views := make([]escrowRecordView, len(records))
	for i, record := range records {
		views[i] = escrowRecordView{
			BidKey:         encodeBidKey(record),
			Bidder:         encodeAddress(record.ID.Bidder),
			Seller:         encodeAddress(record.ID.Listing.Seller),
			Sequence:       record.ID.Listing.Sequence,
			Price:          record.ID.Price.String(),
			Held:           record.Held.String(),
			ExpirationTime: record.ExpirationTime,
			CreatedAt:      record.CreatedAt,
		}
	}
	return views, nil
}

func encodeBidKey(record *escrow.EscrowedBid) string {
	key := record.ID.Key()
	return hex.EncodeToString(key[:])
}

type getBalanceParams struct {
	Address string `json:"address"`
}

type getBalanceResult struct {
	Balance string `json:"balance"`
	Nonce   uint64 `json:"nonce"`
}

func (s *Server) handleGetBalance(_ context.Context, params []json.RawMessage) (interface{}, error) {
	var p getBalanceParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	addr, err := parseAddress("address", p.Address)
	if err != nil {
		return nil, err
	}
	acc, err := s.node.Account(addr)
	if err != nil {
		return nil, err
	}
	return getBalanceResult{Balance: acc.Balance.String(), Nonce: acc.Nonce}, nil
}
