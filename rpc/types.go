package rpc

import (
	"encoding/json"
	"errors"

	"github.com/honehone12/token-objects-marketplace/native/assets"
	"github.com/honehone12/token-objects-marketplace/native/bank"
	"github.com/honehone12/token-objects-marketplace/native/escrow"
	"github.com/honehone12/token-objects-marketplace/native/listing"
	"github.com/honehone12/token-objects-marketplace/native/market"
	"github.com/honehone12/token-objects-marketplace/native/metadata"
	"github.com/honehone12/token-objects-marketplace/native/settlement"
)

const jsonRPCVersion = "2.0"

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeServerError    = -32000
	codeUnauthorized   = -32001
	codeInternalFault  = -32002
	codePrecondition   = -32003
	codeNotFound       = -32004
	codeResource       = -32005
	codeRateLimited    = -32020
)

// RPCRequest is a single JSON-RPC 2.0 call.
type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      interface{}       `json:"id"`
}

// RPCResponse is a single JSON-RPC 2.0 reply.
type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

// RPCError carries a failed call's code and message.
type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// errorCode maps a ledger error onto the RPC error taxonomy: caller input
// and state-precondition errors are retryable with corrected arguments,
// resource errors need funds or are terminal for the bid, and invariant
// violations are internal faults.
func errorCode(err error) int {
	switch {
	case err == nil:
		return 0
	case escrow.IsInvariant(err), settlement.IsInvariant(err):
		return codeInternalFault
	case errors.Is(err, listing.ErrNoSuchListing),
		errors.Is(err, escrow.ErrNoSuchBid),
		errors.Is(err, assets.ErrUnknownObject),
		errors.Is(err, market.ErrNoSuchEntry):
		return codeNotFound
	case errors.Is(err, bank.ErrInsufficientBalance),
		errors.Is(err, escrow.ErrZeroCoin):
		return codeResource
	case errors.Is(err, errInvalidParams),
		errors.Is(err, listing.ErrInvalidPrice),
		errors.Is(err, listing.ErrInvalidTimeRange),
		errors.Is(err, escrow.ErrInvalidPrice),
		errors.Is(err, metadata.ErrInconsistentMetadata),
		errors.Is(err, assets.ErrInvalidKind):
		return codeInvalidParams
	case errors.Is(err, listing.ErrListingClosed),
		errors.Is(err, listing.ErrDuplicateListing),
		errors.Is(err, listing.ErrNotOwner),
		errors.Is(err, listing.ErrAlreadyOwner),
		errors.Is(err, listing.ErrInvalidObjectAddress),
		errors.Is(err, listing.ErrOutOfServiceWindow),
		errors.Is(err, listing.ErrLowerPrice),
		errors.Is(err, listing.ErrAlreadySold),
		errors.Is(err, escrow.ErrAlreadyBid),
		errors.Is(err, escrow.ErrExpiredBid),
		errors.Is(err, assets.ErrNotOwner),
		errors.Is(err, market.ErrDuplicateEntry),
		errors.Is(err, settlement.ErrNotExpired),
		errors.Is(err, settlement.ErrListingClosed):
		return codePrecondition
	default:
		return codeServerError
	}
}
