package settlement

import (
	"errors"
	"fmt"
)

var (
	ErrNilListings = errors.New("settlement: listing ledger not configured")
	ErrNilEscrows  = errors.New("settlement: escrow ledger not configured")
	ErrNilAssets   = errors.New("settlement: asset registry not configured")
	ErrNilBank     = errors.New("settlement: bank not configured")
	ErrNilCatalog  = errors.New("settlement: catalog not configured")

	// ErrNotExpired means a close was attempted while the listing's
	// service window is still open.
	ErrNotExpired = errors.New("settlement: listing has not expired")

	// ErrListingClosed means the listing was already finalized by an
	// earlier close.
	ErrListingClosed = errors.New("settlement: listing already finalized")
)

// InvariantError reports cross-ledger state that settlement cannot
// reconcile, such as a catalog entry missing for an open listing or the
// seller no longer owning the listed object. It indicates a logic bug and
// is not recoverable by the caller.
type InvariantError struct {
	msg string
}

func invariantf(format string, args ...interface{}) *InvariantError {
	return &InvariantError{msg: fmt.Sprintf(format, args...)}
}

func (e *InvariantError) Error() string {
	return "settlement invariant violation: " + e.msg
}

// IsInvariant reports whether err is an internal invariant violation.
func IsInvariant(err error) bool {
	var inv *InvariantError
	return errors.As(err, &inv)
}
