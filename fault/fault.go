// Package fault defines the error classes returned by the license registry.
//
// Each class is a distinct string type so callers can compare against a
// single sentinel instance or test the class of any error, including errors
// wrapped with additional detail:
//
//	if fault.IsErrInsufficientBalance(err) {
//	    // amount exceeded the relevant balance cell
//	}
package fault

import "errors"

// error classes
type (
	AuthorizationError       string
	StateError               string
	InsufficientBalanceError string
	ArithmeticError          string
	InvalidError             string
	NotFoundError            string
	ProcessError             string
)

// common errors - keep in alphabetic order within each class
var (
	ErrNotIssuer        = AuthorizationError("caller is not the issuer")
	ErrNotRootAuthority = AuthorizationError("caller is not the root authority")
	ErrNotAdministrator = AuthorizationError("caller is neither the issuer nor the root authority")
	ErrNullCaller       = AuthorizationError("the null address cannot act as a caller")

	ErrAlreadyDisabled = StateError("contract is already disabled")
	ErrAlreadyRevoked  = StateError("issuance is already revoked")
	ErrAlreadySigned   = StateError("contract is already signed")
	ErrDisabled        = StateError("contract is disabled")
	ErrFeeChanged      = StateError("fee changed while it was being checked")
	ErrNotSigned       = StateError("contract is not signed")
	ErrNotStarted      = StateError("registry is not started")
	ErrRevoked         = StateError("issuance is revoked")

	ErrInsufficientBalance     = InsufficientBalanceError("insufficient outright balance")
	ErrInsufficientReclaimable = InsufficientBalanceError("insufficient reclaimable balance")

	ErrOverflow  = ArithmeticError("count would overflow")
	ErrUnderflow = ArithmeticError("count would underflow")

	ErrInvalidAmount        = InvalidError("amount is invalid")
	ErrInvalidAuditTime     = InvalidError("audit time is invalid")
	ErrInvalidRecord        = InvalidError("record is invalid")
	ErrNullRecipient        = InvalidError("the null address cannot receive reclaimable units")
	ErrRequiredAddress      = InvalidError("address is required")
	ErrRequiredCode         = InvalidError("code is required")
	ErrRequiredInitialOwner = InvalidError("initial owner is required")
	ErrSelfRecall           = InvalidError("caller cannot hold a recall right over itself")

	ErrIssuanceNotFound = NotFoundError("issuance not found")
	ErrRecordNotFound   = NotFoundError("record not found")

	ErrConflict     = ProcessError("concurrent write conflict")
	ErrFeeNotPaid   = ProcessError("issuance fee has not been paid")
	ErrReplayFailed = ProcessError("record replay failed")
	ErrStoreClosed  = ProcessError("store is closed")
)

// the error interface methods
func (e AuthorizationError) Error() string       { return string(e) }
func (e StateError) Error() string               { return string(e) }
func (e InsufficientBalanceError) Error() string { return string(e) }
func (e ArithmeticError) Error() string          { return string(e) }
func (e InvalidError) Error() string             { return string(e) }
func (e NotFoundError) Error() string            { return string(e) }
func (e ProcessError) Error() string             { return string(e) }

// determine the class of an error, looking through any wrapping
func IsErrAuthorization(e error) bool { var t AuthorizationError; return errors.As(e, &t) }
func IsErrState(e error) bool         { var t StateError; return errors.As(e, &t) }
func IsErrInsufficientBalance(e error) bool {
	var t InsufficientBalanceError
	return errors.As(e, &t)
}
func IsErrArithmetic(e error) bool { var t ArithmeticError; return errors.As(e, &t) }
func IsErrInvalid(e error) bool    { var t InvalidError; return errors.As(e, &t) }
func IsErrNotFound(e error) bool   { var t NotFoundError; return errors.As(e, &t) }
func IsErrProcess(e error) bool    { var t ProcessError; return errors.As(e, &t) }

// IsRetryable reports whether the failed operation can be retried unchanged.
func IsRetryable(e error) bool {
	return errors.Is(e, ErrConflict) || errors.Is(e, ErrFeeChanged)
}
