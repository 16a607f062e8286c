package licensing

import "github.com/xraph/licensing/fault"

// Sentinel errors re-exported from the fault package for callers that only
// import the registry. Compare with errors.Is; classify with the fault.IsErr
// functions.
var (
	// Authorization errors
	ErrNotIssuer        = fault.ErrNotIssuer
	ErrNotRootAuthority = fault.ErrNotRootAuthority
	ErrNullCaller       = fault.ErrNullCaller

	// State errors
	ErrNotSigned       = fault.ErrNotSigned
	ErrDisabled        = fault.ErrDisabled
	ErrRevoked         = fault.ErrRevoked
	ErrAlreadyRevoked  = fault.ErrAlreadyRevoked
	ErrAlreadySigned   = fault.ErrAlreadySigned
	ErrAlreadyDisabled = fault.ErrAlreadyDisabled
	ErrNotStarted      = fault.ErrNotStarted

	// Balance errors
	ErrInsufficientBalance     = fault.ErrInsufficientBalance
	ErrInsufficientReclaimable = fault.ErrInsufficientReclaimable

	// Lookup and process errors
	ErrIssuanceNotFound = fault.ErrIssuanceNotFound
	ErrFeeNotPaid       = fault.ErrFeeNotPaid
	ErrConflict         = fault.ErrConflict
)
