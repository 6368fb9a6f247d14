package rpc

import (
	"bytes"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/honehone12/token-objects-marketplace/core"
	"github.com/honehone12/token-objects-marketplace/crypto"
	"github.com/honehone12/token-objects-marketplace/native/fees"
	"github.com/honehone12/token-objects-marketplace/native/market"
	"github.com/honehone12/token-objects-marketplace/storage"
)

type testEnv struct {
	node   *core.Node
	server *Server
	now    int64
}

func testAddrBytes(fill byte) [20]byte {
	var a [20]byte
	for i := range a {
		a[i] = fill
	}
	return a
}

func bech(fill byte) string {
	a := testAddrBytes(fill)
	return crypto.NewAddress(crypto.MarketPrefix, a[:]).String()
}

func newTestEnv(t *testing.T, cfg Config) *testEnv {
	t.Helper()
	fee, err := fees.NewFraction(1, 20, testAddrBytes(0x0B))
	if err != nil {
		t.Fatalf("NewFraction: %v", err)
	}
	mkt := market.Market{
		Host:   testAddrBytes(0xAA),
		Fee:    fee,
		Policy: market.Policy{GraceWindow: 10},
	}
	node, err := core.NewNode(storage.NewMemDB(), mkt, testAddrBytes(0xEE), nil)
	if err != nil {
		t.Fatalf("NewNode: %v", err)
	}
	env := &testEnv{node: node, now: 1}
	node.SetNowFunc(func() int64 { return env.now })
	env.server = NewServer(node, cfg, nil)
	return env
}

func (e *testEnv) call(t *testing.T, method string, params interface{}, headers map[string]string) (*RPCResponse, int) {
	t.Helper()
	raw, err := json.Marshal(params)
	if err != nil {
		t.Fatalf("marshal params: %v", err)
	}
	body, err := json.Marshal(RPCRequest{
		JSONRPC: jsonRPCVersion,
		Method:  method,
		Params:  []json.RawMessage{raw},
		ID:      1,
	})
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)

	resp := &RPCResponse{}
	if err := json.NewDecoder(rec.Body).Decode(resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp, rec.Code
}

func (e *testEnv) mustCall(t *testing.T, method string, params, result interface{}) {
	t.Helper()
	resp, status := e.call(t, method, params, nil)
	if resp.Error != nil {
		t.Fatalf("%s failed: %d %s", method, resp.Error.Code, resp.Error.Message)
	}
	if status != http.StatusOK {
		t.Fatalf("%s status %d", method, status)
	}
	if result != nil {
		raw, err := json.Marshal(resp.Result)
		if err != nil {
			t.Fatalf("remarshal result: %v", err)
		}
		if err := json.Unmarshal(raw, result); err != nil {
			t.Fatalf("decode result: %v", err)
		}
	}
}

func TestMarketLifecycleOverRPC(t *testing.T) {
	env := newTestEnv(t, Config{})
	seller, bidder := bech(0x01), bech(0x02)
	object := bech(0x10)

	env.mustCall(t, "market_registerObject", registerObjectParams{
		Address: object,
		Kind:    "token",
		Owner:   seller,
		Royalty: &royaltyParams{Numerator: 1, Denominator: 10, Payee: bech(0x0A)},
	}, nil)
	if err := env.node.SeedAccount(testAddrBytes(0x02), big.NewInt(100)); err != nil {
		t.Fatalf("SeedAccount: %v", err)
	}

	var created listingRef
	env.mustCall(t, "market_createListing", createListingParams{
		Seller:         seller,
		Object:         object,
		ObjectKind:     "token",
		MetadataNames:  []string{"title"},
		MetadataValues: [][]byte{[]byte("rare token")},
		MetadataTypes:  []string{"string"},
		MinPrice:       "1",
		StartTime:      2,
		ExpirationTime: 5,
		Descriptor:     "rare token",
	}, &created)
	if created.Sequence != 0 {
		t.Fatalf("sequence %d, want 0", created.Sequence)
	}

	var catalog []catalogEntryView
	env.mustCall(t, "market_listCatalog", listCatalogParams{Seller: seller}, &catalog)
	if len(catalog) != 1 || catalog[0].Descriptor != "rare token" {
		t.Fatalf("unexpected catalog %+v", catalog)
	}

	env.now = 3
	var placed placeBidResult
	env.mustCall(t, "market_placeBid", placeBidParams{
		Bidder:   bidder,
		Seller:   seller,
		Sequence: 0,
		Object:   object,
		Price:    "40",
	}, &placed)
	if placed.BidKey == "" {
		t.Fatalf("expected bid key")
	}

	var highest highestBidResult
	env.mustCall(t, "market_highestBid", listingRef{Seller: seller, Sequence: 0}, &highest)
	if !highest.Found || highest.Price != "40" {
		t.Fatalf("unexpected highest bid %+v", highest)
	}

	env.now = 6
	var closed closeListingResult
	env.mustCall(t, "market_closeListing", listingRef{Seller: seller, Sequence: 0}, &closed)
	if closed.Outcome != "sold" {
		t.Fatalf("outcome %q, want sold", closed.Outcome)
	}

	var balance getBalanceResult
	env.mustCall(t, "market_getBalance", getBalanceParams{Address: seller}, &balance)
	if balance.Balance != "34" {
		t.Fatalf("seller balance %s, want 34", balance.Balance)
	}

	var view listingView
	env.mustCall(t, "market_getListing", listingRef{Seller: seller, Sequence: 0}, &view)
	if view.Status != "sold" || len(view.Bids) != 1 {
		t.Fatalf("unexpected listing view %+v", view)
	}
	if len(view.Properties) != 1 || view.Properties[0].Name != "title" {
		t.Fatalf("unexpected properties %+v", view.Properties)
	}

	var records []escrowRecordView
	env.mustCall(t, "market_escrowRecords", escrowRecordsParams{Bidder: bidder}, &records)
	if len(records) != 1 || records[0].Held != "0" {
		t.Fatalf("unexpected escrow records %+v", records)
	}
}

func TestErrorCodeMapping(t *testing.T) {
	env := newTestEnv(t, Config{})
	seller, bidder := bech(0x01), bech(0x02)
	object := bech(0x10)

	env.mustCall(t, "market_registerObject", registerObjectParams{
		Address: object,
		Kind:    "token",
		Owner:   seller,
	}, nil)
	if err := env.node.SeedAccount(testAddrBytes(0x02), big.NewInt(100)); err != nil {
		t.Fatalf("SeedAccount: %v", err)
	}
	env.mustCall(t, "market_createListing", createListingParams{
		Seller:         seller,
		Object:         object,
		ObjectKind:     "token",
		MinPrice:       "50",
		StartTime:      2,
		ExpirationTime: 5,
	}, nil)

	// Bad address: caller input error.
	resp, _ := env.call(t, "market_getBalance", getBalanceParams{Address: "nope"}, nil)
	if resp.Error == nil || resp.Error.Code != codeInvalidParams {
		t.Fatalf("expected invalid params, got %+v", resp.Error)
	}

	// Unknown listing: not found.
	resp, _ = env.call(t, "market_getListing", listingRef{Seller: seller, Sequence: 42}, nil)
	if resp.Error == nil || resp.Error.Code != codeNotFound {
		t.Fatalf("expected not found, got %+v", resp.Error)
	}

	// Below-floor bid: state precondition error.
	env.now = 3
	resp, _ = env.call(t, "market_placeBid", placeBidParams{
		Bidder:   bidder,
		Seller:   seller,
		Sequence: 0,
		Object:   object,
		Price:    "10",
	}, nil)
	if resp.Error == nil || resp.Error.Code != codePrecondition {
		t.Fatalf("expected precondition error, got %+v", resp.Error)
	}

	// Insufficient balance: resource error.
	resp, _ = env.call(t, "market_placeBid", placeBidParams{
		Bidder:   bidder,
		Seller:   seller,
		Sequence: 0,
		Object:   object,
		Price:    "500",
	}, nil)
	if resp.Error == nil || resp.Error.Code != codeResource {
		t.Fatalf("expected resource error, got %+v", resp.Error)
	}

	// Unknown method.
	resp, status := env.call(t, "market_unknown", struct{}{}, nil)
	if status != http.StatusNotFound || resp.Error == nil || resp.Error.Code != codeMethodNotFound {
		t.Fatalf("expected method not found, got %d %+v", status, resp.Error)
	}
}

func TestWriteMethodsRequireAuth(t *testing.T) {
	secret := []byte("test-secret")
	env := newTestEnv(t, Config{JWTSecret: secret, AllowUnauthRead: true})
	seller := bech(0x01)

	// No token: rejected.
	resp, status := env.call(t, "market_registerObject", registerObjectParams{
		Address: bech(0x10),
		Kind:    "token",
		Owner:   seller,
	}, nil)
	if status != http.StatusUnauthorized || resp.Error == nil || resp.Error.Code != codeUnauthorized {
		t.Fatalf("expected unauthorized, got %d %+v", status, resp.Error)
	}

	// Reads stay open.
	resp, _ = env.call(t, "market_getBalance", getBalanceParams{Address: seller}, nil)
	if resp.Error != nil {
		t.Fatalf("read should not require auth: %+v", resp.Error)
	}

	// A signed token is accepted.
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "operator",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString(secret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	resp, _ = env.call(t, "market_registerObject", registerObjectParams{
		Address: bech(0x10),
		Kind:    "token",
		Owner:   seller,
	}, map[string]string{"Authorization": "Bearer " + signed})
	if resp.Error != nil {
		t.Fatalf("authorized call failed: %+v", resp.Error)
	}
}

func TestRateLimiting(t *testing.T) {
	env := newTestEnv(t, Config{RatePerSecond: 1, RateBurst: 1})
	seller := bech(0x01)

	resp, _ := env.call(t, "market_getBalance", getBalanceParams{Address: seller}, nil)
	if resp.Error != nil {
		t.Fatalf("first call failed: %+v", resp.Error)
	}
	resp, status := env.call(t, "market_getBalance", getBalanceParams{Address: seller}, nil)
	if status != http.StatusTooManyRequests || resp.Error == nil || resp.Error.Code != codeRateLimited {
		t.Fatalf("expected rate limit, got %d %+v", status, resp.Error)
	}
}
