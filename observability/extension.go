// Package observability provides a metrics plugin for the license registry
// that records committed operations through a MetricFactory.
package observability

import (
	"context"
	"time"

	"github.com/xraph/licensing/fault"
	"github.com/xraph/licensing/plugin"
	"github.com/xraph/licensing/record"
	"github.com/xraph/licensing/types"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin              = (*MetricsExtension)(nil)
	_ plugin.OnInit              = (*MetricsExtension)(nil)
	_ plugin.OnReplayed          = (*MetricsExtension)(nil)
	_ plugin.OnIssuanceCreated   = (*MetricsExtension)(nil)
	_ plugin.OnTransfer          = (*MetricsExtension)(nil)
	_ plugin.OnReclaim           = (*MetricsExtension)(nil)
	_ plugin.OnRevoke            = (*MetricsExtension)(nil)
	_ plugin.OnContractSigned    = (*MetricsExtension)(nil)
	_ plugin.OnContractDisabled  = (*MetricsExtension)(nil)
	_ plugin.OnAuthorityChanged  = (*MetricsExtension)(nil)
	_ plugin.OnFeeChanged        = (*MetricsExtension)(nil)
	_ plugin.OnOperationRejected = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records registry metrics.
// Register it as a registry plugin to track them automatically.
type MetricsExtension struct {
	factory MetricFactory

	// Issuance metrics
	IssuanceCreated Counter
	IssuanceSupply  Histogram
	IssuanceRevoked Counter

	// Ownership metrics
	Transfers      Counter
	Delegations    Counter
	Reclaims       Counter
	Destructions   Counter
	UnitsMoved     Counter
	UnitsDestroyed Counter

	// Contract metrics
	ContractSigned   Counter
	ContractDisabled Counter
	AuthorityChanged Counter
	FeeChanged       Counter

	// Replay metrics
	RecordsReplayed Counter
	ReplayLatency   Histogram

	// Rejection metrics
	Rejected              Counter
	RejectedAuthorization Counter
	RejectedBalance       Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		IssuanceCreated: factory.Counter("licensing.issuance.created"),
		IssuanceSupply:  factory.Histogram("licensing.issuance.supply"),
		IssuanceRevoked: factory.Counter("licensing.issuance.revoked"),

		Transfers:      factory.Counter("licensing.transfer.outright"),
		Delegations:    factory.Counter("licensing.transfer.reclaimable"),
		Reclaims:       factory.Counter("licensing.reclaim"),
		Destructions:   factory.Counter("licensing.destroy"),
		UnitsMoved:     factory.Counter("licensing.units.moved"),
		UnitsDestroyed: factory.Counter("licensing.units.destroyed"),

		ContractSigned:   factory.Counter("licensing.contract.signed"),
		ContractDisabled: factory.Counter("licensing.contract.disabled"),
		AuthorityChanged: factory.Counter("licensing.authority.changed"),
		FeeChanged:       factory.Counter("licensing.fee.changed"),

		RecordsReplayed: factory.Counter("licensing.replay.records"),
		ReplayLatency:   factory.Histogram("licensing.replay.latency_ms"),

		Rejected:              factory.Counter("licensing.rejected"),
		RejectedAuthorization: factory.Counter("licensing.rejected.authorization"),
		RejectedBalance:       factory.Counter("licensing.rejected.balance"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	return nil
}

// OnReplayed implements plugin.OnReplayed.
func (m *MetricsExtension) OnReplayed(_ context.Context, records int, elapsed time.Duration) error {
	m.RecordsReplayed.Add(float64(records))
	m.ReplayLatency.Observe(float64(elapsed.Milliseconds()))
	return nil
}

// ──────────────────────────────────────────────────
// Issuance hooks
// ──────────────────────────────────────────────────

// OnIssuanceCreated implements plugin.OnIssuanceCreated.
func (m *MetricsExtension) OnIssuanceCreated(_ context.Context, rec *record.Record) error {
	m.IssuanceCreated.Inc()
	if rec.Issuance != nil {
		m.IssuanceSupply.Observe(float64(rec.Issuance.OriginalSupply))
	}
	return nil
}

// OnTransfer implements plugin.OnTransfer. The mint transfer from Null is
// counted by OnIssuanceCreated.
func (m *MetricsExtension) OnTransfer(_ context.Context, rec *record.Record) error {
	switch {
	case rec.From == types.Null:
		return nil
	case rec.To == types.Null:
		m.Destructions.Inc()
		m.UnitsDestroyed.Add(float64(rec.Amount))
		return nil
	case rec.Reclaimable:
		m.Delegations.Inc()
	default:
		m.Transfers.Inc()
	}
	m.UnitsMoved.Add(float64(rec.Amount))
	return nil
}

// OnReclaim implements plugin.OnReclaim.
func (m *MetricsExtension) OnReclaim(_ context.Context, rec *record.Record) error {
	m.Reclaims.Inc()
	m.UnitsMoved.Add(float64(rec.Amount))
	return nil
}

// OnRevoke implements plugin.OnRevoke.
func (m *MetricsExtension) OnRevoke(_ context.Context, _ *record.Record) error {
	m.IssuanceRevoked.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Contract hooks
// ──────────────────────────────────────────────────

// OnContractSigned implements plugin.OnContractSigned.
func (m *MetricsExtension) OnContractSigned(_ context.Context, _ *record.Record) error {
	m.ContractSigned.Inc()
	return nil
}

// OnContractDisabled implements plugin.OnContractDisabled.
func (m *MetricsExtension) OnContractDisabled(_ context.Context, _ *record.Record) error {
	m.ContractDisabled.Inc()
	return nil
}

// OnAuthorityChanged implements plugin.OnAuthorityChanged.
func (m *MetricsExtension) OnAuthorityChanged(_ context.Context, _ *record.Record) error {
	m.AuthorityChanged.Inc()
	return nil
}

// OnFeeChanged implements plugin.OnFeeChanged.
func (m *MetricsExtension) OnFeeChanged(_ context.Context, _ *record.Record) error {
	m.FeeChanged.Inc()
	return nil
}

// OnOperationRejected implements plugin.OnOperationRejected.
func (m *MetricsExtension) OnOperationRejected(_ context.Context, _ string, _ types.Address, err error) error {
	m.Rejected.Inc()
	switch {
	case fault.IsErrAuthorization(err):
		m.RejectedAuthorization.Inc()
	case fault.IsErrInsufficientBalance(err):
		m.RejectedBalance.Inc()
	}
	return nil
}
