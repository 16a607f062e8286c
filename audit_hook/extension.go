// Package audithook bridges committed license records to an audit trail
// backend.
//
// It defines a local Recorder interface so the package does not import
// Chronicle directly. Callers inject a RecorderFunc adapter that bridges
// to Chronicle at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/xraph/licensing/fault"
	"github.com/xraph/licensing/plugin"
	"github.com/xraph/licensing/record"
	"github.com/xraph/licensing/types"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin              = (*Extension)(nil)
	_ plugin.OnIssuanceCreated   = (*Extension)(nil)
	_ plugin.OnTransfer          = (*Extension)(nil)
	_ plugin.OnReclaim           = (*Extension)(nil)
	_ plugin.OnRevoke            = (*Extension)(nil)
	_ plugin.OnContractSigned    = (*Extension)(nil)
	_ plugin.OnContractDisabled  = (*Extension)(nil)
	_ plugin.OnAuthorityChanged  = (*Extension)(nil)
	_ plugin.OnFeeChanged        = (*Extension)(nil)
	_ plugin.OnOperationRejected = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
// This matches chronicle.Emitter but is defined locally so that the
// audit_hook package does not import Chronicle directly.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
// It mirrors chronicle/audit.Event but avoids a module dependency.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges registry records to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Issuance hooks
// ──────────────────────────────────────────────────

// OnIssuanceCreated implements plugin.OnIssuanceCreated.
func (e *Extension) OnIssuanceCreated(ctx context.Context, rec *record.Record) error {
	kv := []any{"initial_owner", rec.To.String()}
	if rec.Issuance != nil {
		kv = append(kv,
			"code", rec.Issuance.Code,
			"original_owner", rec.Issuance.OriginalOwner,
			"original_supply", rec.Issuance.OriginalSupply,
			"audit_time", rec.Issuance.AuditTime.Unix(),
		)
	}
	return e.recordOf(ctx, rec, ActionIssuanceCreated, CategoryLifecycle, kv...)
}

// OnTransfer implements plugin.OnTransfer. Delegations and destructions
// are audited under their own actions.
func (e *Extension) OnTransfer(ctx context.Context, rec *record.Record) error {
	action := ActionTransfer
	switch {
	case rec.Reclaimable:
		action = ActionDelegate
	case rec.To.IsNull():
		action = ActionDestroy
	}
	return e.recordOf(ctx, rec, action, CategoryOwnership,
		"from", rec.From.String(),
		"to", rec.To.String(),
		"amount", rec.Amount,
	)
}

// OnReclaim implements plugin.OnReclaim.
func (e *Extension) OnReclaim(ctx context.Context, rec *record.Record) error {
	return e.recordOf(ctx, rec, ActionReclaim, CategoryOwnership,
		"from", rec.From.String(),
		"to", rec.To.String(),
		"amount", rec.Amount,
	)
}

// OnRevoke implements plugin.OnRevoke.
func (e *Extension) OnRevoke(ctx context.Context, rec *record.Record) error {
	return e.recordOf(ctx, rec, ActionRevoke, CategoryLifecycle)
}

// ──────────────────────────────────────────────────
// Contract hooks
// ──────────────────────────────────────────────────

// OnContractSigned implements plugin.OnContractSigned.
func (e *Extension) OnContractSigned(ctx context.Context, rec *record.Record) error {
	return e.recordOf(ctx, rec, ActionContractSigned, CategoryGovernance)
}

// OnContractDisabled implements plugin.OnContractDisabled.
func (e *Extension) OnContractDisabled(ctx context.Context, rec *record.Record) error {
	return e.recordOf(ctx, rec, ActionContractDisabled, CategoryGovernance)
}

// OnAuthorityChanged implements plugin.OnAuthorityChanged.
func (e *Extension) OnAuthorityChanged(ctx context.Context, rec *record.Record) error {
	return e.recordOf(ctx, rec, ActionAuthorityChanged, CategoryGovernance,
		"authority", rec.Authority.String(),
	)
}

// OnFeeChanged implements plugin.OnFeeChanged.
func (e *Extension) OnFeeChanged(ctx context.Context, rec *record.Record) error {
	var fee types.Money
	if rec.Fee != nil {
		fee = *rec.Fee
	}
	return e.recordOf(ctx, rec, ActionFeeChanged, CategoryGovernance,
		"fee", fee.String(),
	)
}

// OnOperationRejected implements plugin.OnOperationRejected. Authorization
// failures are audited as warnings, everything else as info.
func (e *Extension) OnOperationRejected(ctx context.Context, op string, caller types.Address, opErr error) error {
	severity := SeverityInfo
	if fault.IsErrAuthorization(opErr) {
		severity = SeverityWarning
	}
	return e.record(ctx, ActionOperationRejected, severity, OutcomeFailure,
		ResourceContract, "", CategoryAccess, opErr,
		"operation", op,
		"caller", caller.String(),
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// recordOf audits a committed record.
func (e *Extension) recordOf(ctx context.Context, rec *record.Record, action, category string, kvPairs ...any) error {
	resource, resourceID := ResourceContract, rec.ContractID.String()
	if rec.Kind.IssuanceScoped() {
		resource, resourceID = ResourceIssuance, strconv.FormatUint(rec.IssuanceID, 10)
	}
	kvPairs = append(kvPairs,
		"record_id", rec.ID.String(),
		"contract_id", rec.ContractID.String(),
		"seq", rec.Seq,
		"caller", rec.Caller.String(),
	)
	return e.record(ctx, action, SeverityInfo, OutcomeSuccess,
		resource, resourceID, category, nil, kvPairs...)
}

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
