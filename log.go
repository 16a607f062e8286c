package licensing

import (
	"context"
	"fmt"
	"time"

	"github.com/xraph/licensing/fault"
	"github.com/xraph/licensing/id"
	"github.com/xraph/licensing/issuance"
	"github.com/xraph/licensing/record"
	"github.com/xraph/licensing/types"
)

// commit runs one state-changing operation: it catches up with the log,
// lets build validate and describe the change as records, appends them
// and applies them. Plugins are notified after the lock is released.
func (r *Registry) commit(
	ctx context.Context,
	op string,
	caller types.Address,
	build func() ([]*record.Record, error),
) ([]*record.Record, error) {
	r.mu.Lock()
	start := time.Now()
	recs, replayed, rejected, err := r.commitLocked(ctx, build)
	r.mu.Unlock()

	if replayed > 0 {
		r.plugins.EmitReplayed(ctx, replayed, time.Since(start))
	}

	if err != nil {
		if rejected {
			r.logger.Warn("licensing: operation rejected",
				"op", op,
				"caller", caller.String(),
				"error", err,
			)
			r.plugins.EmitOperationRejected(ctx, op, caller, err)
		}
		return nil, err
	}

	r.plugins.EmitRecords(ctx, recs)

	r.logger.Debug("licensing: operation committed",
		"op", op,
		"caller", caller.String(),
		"records", len(recs),
		"seq", recs[len(recs)-1].Seq,
	)
	return recs, nil
}

// commitLocked does the work of commit. rejected reports whether err is a
// validation failure rather than a store or replay failure.
func (r *Registry) commitLocked(
	ctx context.Context,
	build func() ([]*record.Record, error),
) (recs []*record.Record, replayed int, rejected bool, err error) {
	if !r.started {
		return nil, 0, true, fault.ErrNotStarted
	}

	replayed, err = r.catchUp(ctx)
	if err != nil {
		return nil, replayed, false, err
	}

	recs, err = build()
	if err != nil {
		return nil, replayed, true, err
	}

	entity := types.NewEntity(r.now())
	for i, rec := range recs {
		rec.Entity = entity
		rec.ID = id.NewRecordID()
		rec.ContractID = r.contractID
		rec.Seq = r.seq + uint64(i) + 1
	}

	if err := r.store.AppendRecords(ctx, recs); err != nil {
		r.logger.Error("licensing: failed to append records",
			"contract_id", r.contractID.String(),
			"seq", r.seq+1,
			"error", err,
		)
		return nil, replayed, false, fmt.Errorf("licensing: append records: %w", err)
	}

	for _, rec := range recs {
		if err := r.apply(rec); err != nil {
			// The log now holds records memory cannot follow; refuse further
			// work until a restart replays it.
			r.started = false
			r.logger.Error("licensing: committed record could not be applied",
				"contract_id", r.contractID.String(),
				"seq", rec.Seq,
				"kind", string(rec.Kind),
				"error", err,
			)
			return nil, replayed, false, fmt.Errorf("licensing: apply record %d: %w: %w", rec.Seq, fault.ErrReplayFailed, err)
		}
	}
	return recs, replayed, false, nil
}

// catchUp applies every stored record after the last applied one.
func (r *Registry) catchUp(ctx context.Context) (int, error) {
	total := 0
	for {
		recs, err := r.store.ListRecords(ctx, r.contractID, record.ListOpts{
			AfterSeq: r.seq,
			Limit:    r.replayPageSize,
		})
		if err != nil {
			return total, fmt.Errorf("licensing: read records after %d: %w", r.seq, err)
		}

		for _, rec := range recs {
			if err := r.apply(rec); err != nil {
				return total, fmt.Errorf("licensing: replay record %d (%s): %w: %w",
					rec.Seq, rec.Kind, fault.ErrReplayFailed, err)
			}
			total++
		}

		if len(recs) < r.replayPageSize {
			return total, nil
		}
	}
}

// apply changes memory to reflect one record. It re-checks every rule the
// live operation checked, except fee payment, so a log written by another
// process is validated as it is read.
func (r *Registry) apply(rec *record.Record) error {
	if rec.Seq != r.seq+1 {
		return fmt.Errorf("record seq %d does not follow %d: %w", rec.Seq, r.seq, fault.ErrInvalidRecord)
	}
	if err := rec.Validate(); err != nil {
		return err
	}
	if r.mint != nil {
		if err := r.mint.check(rec); err != nil {
			return err
		}
		r.mint = nil
	} else if err := r.applyKind(rec); err != nil {
		return err
	}
	r.seq = rec.Seq
	return nil
}

func (r *Registry) applyKind(rec *record.Record) error {
	switch rec.Kind {
	case record.KindContractSigned:
		return r.gate.Sign(rec.Caller)
	case record.KindContractDisabled:
		return r.gate.Disable(rec.Caller)
	case record.KindAuthorityChanged:
		return r.gate.SetRootAuthority(rec.Caller, rec.Authority)
	case record.KindFeeChanged:
		return r.gate.SetFee(rec.Caller, *rec.Fee)
	case record.KindIssuanceCreated:
		return r.applyIssuanceCreated(rec)
	}

	iss, err := r.lookup(rec.IssuanceID)
	if err != nil {
		return err
	}

	switch rec.Kind {
	case record.KindTransfer:
		if rec.From.IsNull() {
			return fmt.Errorf("transfer record %d: mint of issuance %d does not follow its creation: %w",
				rec.Seq, rec.IssuanceID, fault.ErrInvalidRecord)
		}
		if rec.From != rec.Caller {
			return fmt.Errorf("transfer record %d: sender %s is not the caller: %w", rec.Seq, rec.From, fault.ErrInvalidRecord)
		}
		if rec.Reclaimable {
			return iss.TransferAndAllowReclaim(rec.Caller, rec.To, rec.Amount)
		}
		return iss.Transfer(rec.Caller, rec.To, rec.Amount)

	case record.KindReclaim:
		if rec.To != rec.Caller {
			return fmt.Errorf("reclaim record %d: recipient %s is not the caller: %w", rec.Seq, rec.To, fault.ErrInvalidRecord)
		}
		return iss.Reclaim(rec.Caller, rec.From, rec.Amount)

	case record.KindRevoke:
		if err := r.gate.CanRevoke(rec.Caller); err != nil {
			return err
		}
		return iss.Revoke()
	}

	return fmt.Errorf("record %d: kind %q: %w", rec.Seq, rec.Kind, fault.ErrInvalidRecord)
}

func (r *Registry) applyIssuanceCreated(rec *record.Record) error {
	if err := r.gate.CanIssue(rec.Caller); err != nil {
		return err
	}
	if rec.IssuanceID != uint64(len(r.issuances)) {
		return fmt.Errorf("record %d: issuance id %d, next is %d: %w",
			rec.Seq, rec.IssuanceID, len(r.issuances), fault.ErrInvalidRecord)
	}

	iss := issuance.New(rec.IssuanceID, *rec.Issuance, rec.CreatedAt)
	if err := iss.Mint(rec.To); err != nil {
		return err
	}
	r.issuances = append(r.issuances, iss)
	r.mint = &pendingMint{
		issuanceID: rec.IssuanceID,
		caller:     rec.Caller,
		owner:      rec.To,
		supply:     rec.Issuance.OriginalSupply,
	}
	return nil
}

// pendingMint is the transfer from Null that must immediately follow an
// issuance.created record. The units were credited when the issuance was
// created; the record only makes the mint visible in the log.
type pendingMint struct {
	issuanceID uint64
	caller     types.Address
	owner      types.Address
	supply     uint64
}

func (m *pendingMint) check(rec *record.Record) error {
	if rec.Kind != record.KindTransfer || rec.IssuanceID != m.issuanceID || !rec.From.IsNull() {
		return fmt.Errorf("record %d: expected the mint of issuance %d, got %s: %w",
			rec.Seq, m.issuanceID, rec.Kind, fault.ErrInvalidRecord)
	}
	if rec.Caller != m.caller || rec.To != m.owner || rec.Amount != m.supply || rec.Reclaimable {
		return fmt.Errorf("record %d: mint of %d units by %s to %s does not match issuance %d (%d units by %s to %s): %w",
			rec.Seq, rec.Amount, rec.Caller, rec.To, m.issuanceID, m.supply, m.caller, m.owner, fault.ErrInvalidRecord)
	}
	return nil
}
