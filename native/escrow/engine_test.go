package escrow

import (
	"errors"
	"math/big"
	"testing"

	"github.com/honehone12/token-objects-marketplace/core/types"
	"github.com/honehone12/token-objects-marketplace/native/bank"
	"github.com/honehone12/token-objects-marketplace/native/fees"
	"github.com/honehone12/token-objects-marketplace/native/listing"
)

type mockState struct {
	escrows  map[[32]byte]*EscrowedBid
	accounts map[[20]byte]*types.Account
	indexes  map[[20]byte][][32]byte
}

func newMockState() *mockState {
	return &mockState{
		escrows:  make(map[[32]byte]*EscrowedBid),
		accounts: make(map[[20]byte]*types.Account),
		indexes:  make(map[[20]byte][][32]byte),
	}
}

func (m *mockState) EscrowPut(b *EscrowedBid) error {
	m.escrows[b.ID.Key()] = b.Clone()
	return nil
}

func (m *mockState) EscrowGet(key [32]byte) (*EscrowedBid, bool, error) {
	b, ok := m.escrows[key]
	if !ok {
		return nil, false, nil
	}
	return b.Clone(), true, nil
}

func (m *mockState) BidIndexAppend(bidder [20]byte, key [32]byte) error {
	m.indexes[bidder] = append(m.indexes[bidder], key)
	return nil
}

func (m *mockState) BidIndex(bidder [20]byte) ([][32]byte, error) {
	return m.indexes[bidder], nil
}

func (m *mockState) GetAccount(addr [20]byte) (*types.Account, error) {
	acc, ok := m.accounts[addr]
	if !ok {
		return &types.Account{Balance: big.NewInt(0)}, nil
	}
	return acc.Clone(), nil
}

func (m *mockState) PutAccount(addr [20]byte, acc *types.Account) error {
	m.accounts[addr] = acc.Clone()
	return nil
}

func (m *mockState) fund(addr [20]byte, amount int64) {
	m.accounts[addr] = &types.Account{Balance: big.NewInt(amount)}
}

func (m *mockState) balance(addr [20]byte) *big.Int {
	acc, ok := m.accounts[addr]
	if !ok {
		return big.NewInt(0)
	}
	return new(big.Int).Set(acc.Balance)
}

func newTestAddress(fill byte) [20]byte {
	var addr [20]byte
	for i := range addr {
		addr[i] = fill
	}
	return addr
}

var testVault = newTestAddress(0xEE)

func newTestEngine(now int64) (*Engine, *mockState) {
	state := newMockState()
	engine := NewEngine()
	engine.SetState(state)
	engine.SetBank(bank.NewLedger(state))
	engine.SetVault(testVault)
	engine.SetNowFunc(func() int64 { return now })
	return engine, state
}

func testListingID(seller byte, sequence uint64) listing.ListingID {
	return listing.ListingID{Seller: newTestAddress(seller), Sequence: sequence}
}

func TestPlaceBidEscrowsExactValue(t *testing.T) {
	engine, state := newTestEngine(10)
	bidder := newTestAddress(0x02)
	state.fund(bidder, 100)

	id, err := engine.PlaceBid(bidder, testListingID(0x01, 0), big.NewInt(40), 50)
	if err != nil {
		t.Fatalf("PlaceBid: %v", err)
	}
	if state.balance(bidder).Cmp(big.NewInt(60)) != 0 {
		t.Fatalf("bidder balance %s, want 60", state.balance(bidder))
	}
	if state.balance(testVault).Cmp(big.NewInt(40)) != 0 {
		t.Fatalf("vault balance %s, want 40", state.balance(testVault))
	}
	record, err := engine.Get(id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if record.Held.Cmp(big.NewInt(40)) != 0 {
		t.Fatalf("held %s, want 40", record.Held)
	}
	if len(state.indexes[bidder]) != 1 {
		t.Fatalf("bid index length %d, want 1", len(state.indexes[bidder]))
	}
}

func TestPlaceBidPreconditions(t *testing.T) {
	engine, state := newTestEngine(10)
	bidder := newTestAddress(0x02)
	state.fund(bidder, 100)
	lid := testListingID(0x01, 0)

	if _, err := engine.PlaceBid(bidder, lid, big.NewInt(0), 50); !errors.Is(err, ErrInvalidPrice) {
		t.Fatalf("zero price: expected ErrInvalidPrice, got %v", err)
	}
	if _, err := engine.PlaceBid(bidder, lid, types.MaxPriceSentinel(), 50); !errors.Is(err, ErrInvalidPrice) {
		t.Fatalf("sentinel price: expected ErrInvalidPrice, got %v", err)
	}
	if _, err := engine.PlaceBid(bidder, lid, big.NewInt(10), 10); !errors.Is(err, ErrExpiredBid) {
		t.Fatalf("expired: expected ErrExpiredBid, got %v", err)
	}
	if _, err := engine.PlaceBid(bidder, lid, big.NewInt(200), 50); !errors.Is(err, bank.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if state.balance(bidder).Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("failed bids must not move funds, balance %s", state.balance(bidder))
	}

	if _, err := engine.PlaceBid(bidder, lid, big.NewInt(10), 50); err != nil {
		t.Fatalf("PlaceBid: %v", err)
	}
	if _, err := engine.PlaceBid(bidder, lid, big.NewInt(10), 60); !errors.Is(err, ErrAlreadyBid) {
		t.Fatalf("same price rebid: expected ErrAlreadyBid, got %v", err)
	}
	// A different price is a different bid.
	if _, err := engine.PlaceBid(bidder, lid, big.NewInt(11), 60); err != nil {
		t.Fatalf("higher rebid: %v", err)
	}
}

func TestSettleConservation(t *testing.T) {
	cases := []struct {
		name            string
		price           int64
		royalty         [2]uint64
		fee             [2]uint64
		wantRoyalty     int64
		wantFee         int64
		wantRemainder   int64
	}{
		{"no charges", 100, [2]uint64{0, 0}, [2]uint64{0, 0}, 0, 0, 100},
		{"royalty only", 100, [2]uint64{1, 10}, [2]uint64{0, 0}, 10, 0, 90},
		{"fee only", 100, [2]uint64{0, 0}, [2]uint64{1, 4}, 0, 25, 75},
		{"both, rounding", 101, [2]uint64{1, 3}, [2]uint64{1, 7}, 33, 14, 54},
		{"sums to all", 100, [2]uint64{1, 2}, [2]uint64{1, 2}, 50, 50, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			engine, state := newTestEngine(10)
			bidder := newTestAddress(0x02)
			royaltyPayee := newTestAddress(0x0A)
			feePayee := newTestAddress(0x0B)
			state.fund(bidder, tc.price)

			id, err := engine.PlaceBid(bidder, testListingID(0x01, 0), big.NewInt(tc.price), 50)
			if err != nil {
				t.Fatalf("PlaceBid: %v", err)
			}
			royalty := fees.NoFee
			if tc.royalty[0] != 0 {
				royalty, _ = fees.NewFraction(tc.royalty[0], tc.royalty[1], royaltyPayee)
			}
			fee := fees.NoFee
			if tc.fee[0] != 0 {
				fee, _ = fees.NewFraction(tc.fee[0], tc.fee[1], feePayee)
			}

			remainder, err := engine.Settle(id, royalty, fee)
			if err != nil {
				t.Fatalf("Settle: %v", err)
			}
			if got := state.balance(royaltyPayee); got.Cmp(big.NewInt(tc.wantRoyalty)) != 0 {
				t.Fatalf("royalty payee has %s, want %d", got, tc.wantRoyalty)
			}
			if got := state.balance(feePayee); got.Cmp(big.NewInt(tc.wantFee)) != 0 {
				t.Fatalf("fee payee has %s, want %d", got, tc.wantFee)
			}
			if remainder.Value().Cmp(big.NewInt(tc.wantRemainder)) != 0 {
				t.Fatalf("remainder %s, want %d", remainder.Value(), tc.wantRemainder)
			}
			// Conservation: the three splits sum to the original price.
			sum := new(big.Int).Add(state.balance(royaltyPayee), state.balance(feePayee))
			sum.Add(sum, remainder.Value())
			if sum.Cmp(big.NewInt(tc.price)) != 0 {
				t.Fatalf("splits sum to %s, want %d", sum, tc.price)
			}
			if state.balance(testVault).Sign() != 0 {
				t.Fatalf("vault must be drained, has %s", state.balance(testVault))
			}
		})
	}
}

func TestSettleIdempotenceNegative(t *testing.T) {
	engine, state := newTestEngine(10)
	bidder := newTestAddress(0x02)
	state.fund(bidder, 100)

	id, err := engine.PlaceBid(bidder, testListingID(0x01, 0), big.NewInt(100), 50)
	if err != nil {
		t.Fatalf("PlaceBid: %v", err)
	}
	remainder, err := engine.Settle(id, fees.NoFee, fees.NoFee)
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}
	seller := newTestAddress(0x01)
	if err := bank.NewLedger(state).Deposit(seller, remainder); err != nil {
		t.Fatalf("Deposit: %v", err)
	}

	_, err = engine.Settle(id, fees.NoFee, fees.NoFee)
	if !errors.Is(err, ErrZeroCoin) {
		t.Fatalf("second settle: expected ErrZeroCoin, got %v", err)
	}
	if state.balance(seller).Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("second settle moved funds: seller has %s", state.balance(seller))
	}
}

func TestSettleFeeOverflowIsConfigurationError(t *testing.T) {
	engine, state := newTestEngine(10)
	bidder := newTestAddress(0x02)
	state.fund(bidder, 100)

	id, err := engine.PlaceBid(bidder, testListingID(0x01, 0), big.NewInt(100), 50)
	if err != nil {
		t.Fatalf("PlaceBid: %v", err)
	}
	royalty, _ := fees.NewFraction(3, 4, newTestAddress(0x0A))
	fee, _ := fees.NewFraction(1, 2, newTestAddress(0x0B))
	_, err = engine.Settle(id, royalty, fee)
	if !errors.Is(err, ErrFeeOverflow) {
		t.Fatalf("expected ErrFeeOverflow, got %v", err)
	}
	// Nothing moved; the bid is still settleable with sane fractions.
	if state.balance(testVault).Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("vault touched on overflow: %s", state.balance(testVault))
	}
	if _, err := engine.Settle(id, fees.NoFee, fees.NoFee); err != nil {
		t.Fatalf("settle after overflow: %v", err)
	}
}

func TestSettleInvariantViolation(t *testing.T) {
	engine, state := newTestEngine(10)
	bidder := newTestAddress(0x02)
	state.fund(bidder, 100)

	id, err := engine.PlaceBid(bidder, testListingID(0x01, 0), big.NewInt(100), 50)
	if err != nil {
		t.Fatalf("PlaceBid: %v", err)
	}
	// Corrupt the record so held no longer matches the price.
	corrupted := state.escrows[id.Key()].Clone()
	corrupted.Held = big.NewInt(99)
	state.escrows[id.Key()] = corrupted

	_, err = engine.Settle(id, fees.NoFee, fees.NoFee)
	if err == nil || !IsInvariant(err) {
		t.Fatalf("expected invariant violation, got %v", err)
	}
}

func TestSweepExpired(t *testing.T) {
	engine, state := newTestEngine(10)
	bidder := newTestAddress(0x02)
	state.fund(bidder, 100)
	lid := testListingID(0x01, 0)

	// Two escrows expiring at 20, one at 90.
	if _, err := engine.PlaceBid(bidder, lid, big.NewInt(10), 20); err != nil {
		t.Fatalf("PlaceBid: %v", err)
	}
	if _, err := engine.PlaceBid(bidder, lid, big.NewInt(25), 20); err != nil {
		t.Fatalf("PlaceBid: %v", err)
	}
	if _, err := engine.PlaceBid(bidder, lid, big.NewInt(30), 90); err != nil {
		t.Fatalf("PlaceBid: %v", err)
	}
	if state.balance(bidder).Cmp(big.NewInt(35)) != 0 {
		t.Fatalf("bidder balance %s, want 35", state.balance(bidder))
	}

	// Nothing has expired yet.
	total, err := engine.SweepExpired(bidder)
	if err != nil {
		t.Fatalf("SweepExpired: %v", err)
	}
	if total.Sign() != 0 {
		t.Fatalf("premature sweep reclaimed %s", total)
	}

	engine.SetNowFunc(func() int64 { return 20 })
	total, err = engine.SweepExpired(bidder)
	if err != nil {
		t.Fatalf("SweepExpired: %v", err)
	}
	if total.Cmp(big.NewInt(35)) != 0 {
		t.Fatalf("reclaimed %s, want 35", total)
	}
	if state.balance(bidder).Cmp(big.NewInt(70)) != 0 {
		t.Fatalf("bidder balance %s, want 70", state.balance(bidder))
	}

	// Sweeping again reclaims nothing: records are zeroed, not deleted.
	total, err = engine.SweepExpired(bidder)
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if total.Sign() != 0 {
		t.Fatalf("second sweep reclaimed %s", total)
	}
	records, err := engine.Records(bidder)
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("audit trail must keep %d records, got %d", 3, len(records))
	}
}

func TestSweepSkipsSettledBids(t *testing.T) {
	engine, state := newTestEngine(10)
	bidder := newTestAddress(0x02)
	state.fund(bidder, 100)

	id, err := engine.PlaceBid(bidder, testListingID(0x01, 0), big.NewInt(40), 20)
	if err != nil {
		t.Fatalf("PlaceBid: %v", err)
	}
	remainder, err := engine.Settle(id, fees.NoFee, fees.NoFee)
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}
	if err := bank.NewLedger(state).Deposit(newTestAddress(0x01), remainder); err != nil {
		t.Fatalf("Deposit: %v", err)
	}

	engine.SetNowFunc(func() int64 { return 30 })
	total, err := engine.SweepExpired(bidder)
	if err != nil {
		t.Fatalf("SweepExpired: %v", err)
	}
	if total.Sign() != 0 {
		t.Fatalf("settled bid must not be reclaimable, got %s", total)
	}
}
