package market

import (
	"errors"
	"fmt"

	"github.com/honehone12/token-objects-marketplace/native/fees"
)

var (
	ErrDurationTooShort = errors.New("market: listing duration below minimum")
	ErrDurationTooLong  = errors.New("market: listing duration above maximum")
	ErrStartTooFar      = errors.New("market: start time too far in the future")
)

// Policy bounds the listing windows a market host accepts. The bounds are
// operator configuration validated at listing creation; they are not ledger
// invariants.
type Policy struct {
	// MinListingDuration and MaxListingDuration bound
	// expirationTime - startTime, in seconds.
	MinListingDuration int64
	MaxListingDuration int64
	// MaxStartDelay bounds how far past "now" a listing may schedule its
	// startTime, in seconds.
	MaxStartDelay int64
	// GraceWindow is the time after expiration during which a pending
	// highest bid may still settle before the listing is cancelled
	// instead.
	GraceWindow int64
}

// DefaultPolicy mirrors the bounds applied by the hosted marketplace.
func DefaultPolicy() Policy {
	return Policy{
		MinListingDuration: 60,
		MaxListingDuration: 30 * 24 * 60 * 60,
		MaxStartDelay:      7 * 24 * 60 * 60,
		GraceWindow:        24 * 60 * 60,
	}
}

// ValidateWindow checks a proposed listing window against the policy
// bounds. The basic start < expiration invariant is the listing ledger's
// own concern and is not re-checked here.
func (p Policy) ValidateWindow(now, startTime, expirationTime int64) error {
	duration := expirationTime - startTime
	if p.MinListingDuration > 0 && duration < p.MinListingDuration {
		return fmt.Errorf("%w: %ds < %ds", ErrDurationTooShort, duration, p.MinListingDuration)
	}
	if p.MaxListingDuration > 0 && duration > p.MaxListingDuration {
		return fmt.Errorf("%w: %ds > %ds", ErrDurationTooLong, duration, p.MaxListingDuration)
	}
	if p.MaxStartDelay > 0 && startTime > now+p.MaxStartDelay {
		return fmt.Errorf("%w: starts %ds from now", ErrStartTooFar, startTime-now)
	}
	return nil
}

// Market is a seller-host-scoped marketplace configuration: an optional fee
// fraction charged on every settlement plus the policy bounds applied to
// its listings.
type Market struct {
	Host   [20]byte
	Fee    fees.Fraction
	Policy Policy
}
