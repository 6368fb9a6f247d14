package escrow

import (
	"errors"
	"fmt"
)

var (
	ErrNilState     = errors.New("escrow: state not configured")
	ErrNilBank      = errors.New("escrow: bank not configured")
	ErrNilVault     = errors.New("escrow: vault not configured")
	ErrInvalidPrice = errors.New("escrow: price out of range")
	ErrExpiredBid   = errors.New("escrow: bid expiration already passed")
	ErrAlreadyBid   = errors.New("escrow: duplicate bid")
	ErrNoSuchBid    = errors.New("escrow: no such bid")

	// ErrZeroCoin means the escrow was already settled or swept; its value
	// is permanently zero and cannot be extracted again.
	ErrZeroCoin = errors.New("escrow: held value already extracted")

	// ErrFeeOverflow means the configured royalty and fee fractions
	// together consume more than the escrowed value. This is a market
	// configuration error, not a bidder error.
	ErrFeeOverflow = errors.New("escrow: royalty and fee exceed escrowed value")
)

// InvariantError reports an internal consistency violation, such as an
// escrow record whose held value no longer matches its bid price. It
// indicates a logic bug and is not recoverable by the caller.
type InvariantError struct {
	msg string
}

func invariantf(format string, args ...interface{}) *InvariantError {
	return &InvariantError{msg: fmt.Sprintf(format, args...)}
}

func (e *InvariantError) Error() string {
	return "escrow invariant violation: " + e.msg
}

// IsInvariant reports whether err is an internal invariant violation.
func IsInvariant(err error) bool {
	var inv *InvariantError
	return errors.As(err, &inv)
}
