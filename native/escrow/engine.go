package escrow

import (
	"fmt"
	"math/big"
	"time"

	"github.com/honehone12/token-objects-marketplace/core/events"
	"github.com/honehone12/token-objects-marketplace/core/types"
	"github.com/honehone12/token-objects-marketplace/native/bank"
	"github.com/honehone12/token-objects-marketplace/native/fees"
	"github.com/honehone12/token-objects-marketplace/native/listing"
)

type engineState interface {
	EscrowPut(*EscrowedBid) error
	EscrowGet(key [32]byte) (*EscrowedBid, bool, error)
	BidIndexAppend(bidder [20]byte, key [32]byte) error
	BidIndex(bidder [20]byte) ([][32]byte, error)
}

// Bank is the slice of the value-transfer ledger the escrow engine needs.
type Bank interface {
	BalanceOf(addr [20]byte) (*big.Int, error)
	Withdraw(addr [20]byte, amount *big.Int) (*bank.Coin, error)
	Deposit(addr [20]byte, coin *bank.Coin) error
}

type escrowEvent struct {
	evt *types.Event
}

func (e escrowEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e escrowEvent) Event() *types.Event { return e.evt }

// Engine owns the value held in escrow per bidder. Funds move from the
// bidder's balance into the vault account when a bid is accepted, and out
// of the vault at settlement or expiry sweep. Escrow records are private to
// their owning bidder's index; no operation mutates another bidder's
// records.
type Engine struct {
	state   engineState
	bank    Bank
	vault   [20]byte
	emitter events.Emitter
	nowFn   func() int64
}

// NewEngine creates an escrow engine with a no-op emitter. Callers wire
// state, bank, and the vault address before use.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetBank configures the value-transfer collaborator.
func (e *Engine) SetBank(b Bank) { e.bank = b }

// SetVault configures the account that physically holds all escrowed value.
func (e *Engine) SetVault(addr [20]byte) { e.vault = addr }

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
	e.emitter.Emit(escrowEvent{evt: event})
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) ensureConfigured() error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if e.bank == nil {
		return ErrNilBank
	}
	if e.vault == ([20]byte{}) {
		return ErrNilVault
	}
	return nil
}

// PlaceBid withdraws exactly price from the bidder into escrow and records
// the bid under the bidder's own index. The escrow may be reclaimed via
// SweepExpired once expirationTime passes without settlement.
func (e *Engine) PlaceBid(bidder [20]byte, listingID listing.ListingID, price *big.Int, expirationTime int64) (BidID, error) {
	if err := e.ensureConfigured(); err != nil {
		return BidID{}, err
	}
	if !types.ValidPrice(price) {
		return BidID{}, fmt.Errorf("%w: %s", ErrInvalidPrice, price)
	}
	now := e.now()
	if expirationTime <= now {
		return BidID{}, fmt.Errorf("%w: expiration %d, now %d", ErrExpiredBid, expirationTime, now)
	}
	id := BidID{Bidder: bidder, Listing: listingID, Price: new(big.Int).Set(price)}
	key := id.Key()
	if _, ok, err := e.state.EscrowGet(key); err != nil {
		return BidID{}, err
	} else if ok {
		return BidID{}, fmt.Errorf("%w: %s", ErrAlreadyBid, id)
	}

	coin, err := e.bank.Withdraw(bidder, price)
	if err != nil {
		return BidID{}, err
	}
	if err := e.bank.Deposit(e.vault, coin); err != nil {
		return BidID{}, err
	}
	record := &EscrowedBid{
		ID:             id,
		Held:           new(big.Int).Set(price),
		ExpirationTime: expirationTime,
		CreatedAt:      now,
	}
	if err := e.storeEscrow(record); err != nil {
		return BidID{}, err
	}
	if err := e.state.BidIndexAppend(bidder, key); err != nil {
		return BidID{}, err
	}
	e.emit(NewBidPlacedEvent(record))
	return id, nil
}

// Settle extracts the full held value of the bid and splits it: the royalty
// and fee amounts are both floor fractions of the original price, deducted
// in that order, and the remainder is returned to the caller for final
// disposition. A bid settles at most once; a second call observes a zero
// held value and fails with ErrZeroCoin.
func (e *Engine) Settle(id BidID, royalty, fee fees.Fraction) (*bank.Coin, error) {
	if err := e.ensureConfigured(); err != nil {
		return nil, err
	}
	record, err := e.loadEscrow(id.Key())
	if err != nil {
		return nil, err
	}
	if record.Held.Sign() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrZeroCoin, id)
	}
	if record.Held.Cmp(record.ID.Price) != 0 {
		return nil, invariantf("bid %s holds %s, price %s", record.ID, record.Held, record.ID.Price)
	}
	value := new(big.Int).Set(record.Held)
	royaltyAmount := royalty.AmountOf(value)
	feeAmount := fee.AmountOf(value)
	charge := new(big.Int).Add(royaltyAmount, feeAmount)
	if charge.Cmp(value) > 0 {
		return nil, fmt.Errorf("%w: royalty %s + fee %s > value %s", ErrFeeOverflow, royaltyAmount, feeAmount, value)
	}

	record.Held = big.NewInt(0)
	if err := e.storeEscrow(record); err != nil {
		return nil, err
	}
	coin, err := e.bank.Withdraw(e.vault, value)
	if err != nil {
		return nil, invariantf("vault cannot cover bid %s: %v", record.ID, err)
	}
	if royaltyAmount.Sign() > 0 {
		part, err := coin.Split(royaltyAmount)
		if err != nil {
			return nil, err
		}
		if err := e.bank.Deposit(royalty.Payee, part); err != nil {
			return nil, err
		}
	}
	if feeAmount.Sign() > 0 {
		part, err := coin.Split(feeAmount)
		if err != nil {
			return nil, err
		}
		if err := e.bank.Deposit(fee.Payee, part); err != nil {
			return nil, err
		}
	}
	e.emit(NewBidSettledEvent(record, royaltyAmount.String(), feeAmount.String(), coin.Value().String()))
	return coin, nil
}

// SweepExpired reclaims every expired, still funded escrow in the bidder's
// index and returns the reclaimed total in one deposit back to the bidder.
// Swept records stay in the index with a zero held value.
func (e *Engine) SweepExpired(bidder [20]byte) (*big.Int, error) {
	if err := e.ensureConfigured(); err != nil {
		return nil, err
	}
	keys, err := e.state.BidIndex(bidder)
	if err != nil {
		return nil, err
	}
	now := e.now()
	total := big.NewInt(0)
	count := 0
	for _, key := range keys {
		record, ok, err := e.state.EscrowGet(key)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, invariantf("bid index of %x references missing escrow %x", bidder, key)
		}
		if record.ExpirationTime > now || record.Held == nil || record.Held.Sign() == 0 {
			continue
		}
		value := new(big.Int).Set(record.Held)
		record.Held = big.NewInt(0)
		if err := e.storeEscrow(record); err != nil {
			return nil, err
		}
		total.Add(total, value)
		count++
	}
	if total.Sign() == 0 {
		return total, nil
	}
	coin, err := e.bank.Withdraw(e.vault, total)
	if err != nil {
		return nil, invariantf("vault cannot cover sweep of %x: %v", bidder, err)
	}
	if err := e.bank.Deposit(bidder, coin); err != nil {
		return nil, err
	}
	e.emit(NewBidsSweptEvent(bidder, count, total.String()))
	return total, nil
}

// Get returns a copy of a stored escrow record.
func (e *Engine) Get(id BidID) (*EscrowedBid, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	return e.loadEscrow(id.Key())
}

// Records returns copies of every escrow record in the bidder's index,
// including settled and swept ones. The index is a permanent audit trail.
func (e *Engine) Records(bidder [20]byte) ([]*EscrowedBid, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	keys, err := e.state.BidIndex(bidder)
	if err != nil {
		return nil, err
	}
	out := make([]*EscrowedBid, 0, len(keys))
	for _, key := range keys {
		record, ok, err := e.state.EscrowGet(key)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, invariantf("bid index of %x references missing escrow %x", bidder, key)
		}
		out = append(out, record)
	}
	return out, nil
}

func (e *Engine) loadEscrow(key [32]byte) (*EscrowedBid, error) {
	record, ok, err := e.state.EscrowGet(key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %x", ErrNoSuchBid, key)
	}
	return record, nil
}

func (e *Engine) storeEscrow(record *EscrowedBid) error {
	sanitized, err := SanitizeEscrowedBid(record)
	if err != nil {
		return err
	}
	return e.state.EscrowPut(sanitized)
}
