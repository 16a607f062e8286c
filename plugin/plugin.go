// Package plugin provides an extensible plugin system for the license
// registry. Plugins hook into lifecycle events and committed records;
// a plugin failure is logged and never fails the operation that emitted
// the event.
package plugin

import (
	"context"
	"time"

	"github.com/xraph/licensing/record"
	"github.com/xraph/licensing/types"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the registry starts, after replay.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, registry interface{}) error
}

// OnShutdown is called when the registry stops.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// OnReplayed is called after the registry has applied records read back
// from the store, at start-up or while catching up with other writers.
type OnReplayed interface {
	Plugin
	OnReplayed(ctx context.Context, records int, elapsed time.Duration) error
}

// ──────────────────────────────────────────────────
// Issuance hooks
// ──────────────────────────────────────────────────

// OnIssuanceCreated is called after an issuance.created record is committed.
type OnIssuanceCreated interface {
	Plugin
	OnIssuanceCreated(ctx context.Context, rec *record.Record) error
}

// OnTransfer is called after a transfer record is committed, including the
// mint transfer from Null and destruction to Null.
type OnTransfer interface {
	Plugin
	OnTransfer(ctx context.Context, rec *record.Record) error
}

// OnReclaim is called after a reclaim record is committed.
type OnReclaim interface {
	Plugin
	OnReclaim(ctx context.Context, rec *record.Record) error
}

// OnRevoke is called after a revoke record is committed.
type OnRevoke interface {
	Plugin
	OnRevoke(ctx context.Context, rec *record.Record) error
}

// ──────────────────────────────────────────────────
// Contract hooks
// ──────────────────────────────────────────────────

// OnContractSigned is called after the issuer signs the contract.
type OnContractSigned interface {
	Plugin
	OnContractSigned(ctx context.Context, rec *record.Record) error
}

// OnContractDisabled is called after the contract is disabled.
type OnContractDisabled interface {
	Plugin
	OnContractDisabled(ctx context.Context, rec *record.Record) error
}

// OnAuthorityChanged is called after the root authority changes hands.
type OnAuthorityChanged interface {
	Plugin
	OnAuthorityChanged(ctx context.Context, rec *record.Record) error
}

// OnFeeChanged is called after the issuance fee changes.
type OnFeeChanged interface {
	Plugin
	OnFeeChanged(ctx context.Context, rec *record.Record) error
}

// ──────────────────────────────────────────────────
// Rejections
// ──────────────────────────────────────────────────

// OnOperationRejected is called when a state-changing operation fails
// before anything is committed.
type OnOperationRejected interface {
	Plugin
	OnOperationRejected(ctx context.Context, op string, caller types.Address, err error) error
}

// ──────────────────────────────────────────────────
// Fee checkers
// ──────────────────────────────────────────────────

// FeeChecker confirms that caller has paid fee before an issuance is
// created. It returns an error (conventionally wrapping
// fault.ErrFeeNotPaid) to block the issuance.
type FeeChecker interface {
	Plugin
	CheckFee(ctx context.Context, caller types.Address, fee types.Money) error
}
