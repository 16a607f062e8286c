package record

import (
	"fmt"

	"github.com/xraph/licensing/fault"
	"github.com/xraph/licensing/id"
	"github.com/xraph/licensing/issuance"
	"github.com/xraph/licensing/types"
)

// Kind names what a record describes.
type Kind string

const (
	KindIssuanceCreated  Kind = "issuance.created"
	KindTransfer         Kind = "transfer"
	KindReclaim          Kind = "reclaim"
	KindRevoke           Kind = "revoke"
	KindContractSigned   Kind = "contract.signed"
	KindContractDisabled Kind = "contract.disabled"
	KindAuthorityChanged Kind = "authority.changed"
	KindFeeChanged       Kind = "fee.changed"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindIssuanceCreated, KindTransfer, KindReclaim, KindRevoke,
		KindContractSigned, KindContractDisabled, KindAuthorityChanged, KindFeeChanged:
		return true
	}
	return false
}

// IssuanceScoped reports whether records of kind k refer to one issuance.
func (k Kind) IssuanceScoped() bool {
	switch k {
	case KindIssuanceCreated, KindTransfer, KindReclaim, KindRevoke:
		return true
	}
	return false
}

// Record is one immutable entry of a contract's append-only log.
//
// Seq orders the records of a contract and is unique within it; the log
// replayed in Seq order reproduces the contract's state exactly.
type Record struct {
	types.Entity
	ID          id.RecordID        `json:"id"`
	ContractID  id.ContractID      `json:"contract_id"`
	Seq         uint64             `json:"seq"`
	Kind        Kind               `json:"kind"`
	Caller      types.Address      `json:"caller"`
	IssuanceID  uint64             `json:"issuance_id"`
	From        types.Address      `json:"from,omitempty"`
	To          types.Address      `json:"to,omitempty"`
	Amount      uint64             `json:"amount"`
	Reclaimable bool               `json:"reclaimable,omitempty"`
	Issuance    *issuance.Metadata `json:"issuance,omitempty"`
	Authority   types.Address      `json:"authority,omitempty"`
	Fee         *types.Money       `json:"fee,omitempty"`
}

// Validate checks that r carries the fields its kind requires.
func (r *Record) Validate() error {
	if r.ID.IsNil() || r.ContractID.IsNil() || r.Seq == 0 {
		return fmt.Errorf("record %d: missing id, contract or sequence: %w", r.Seq, fault.ErrInvalidRecord)
	}
	if !r.Kind.Valid() {
		return fmt.Errorf("record %d: unknown kind %q: %w", r.Seq, r.Kind, fault.ErrInvalidRecord)
	}

	switch r.Kind {
	case KindIssuanceCreated:
		if r.Issuance == nil || r.To.IsNull() {
			return fmt.Errorf("record %d: issuance.created needs metadata and an initial owner: %w",
				r.Seq, fault.ErrInvalidRecord)
		}
	case KindTransfer, KindReclaim:
		if r.Caller.IsNull() {
			return fmt.Errorf("record %d: %s needs a caller: %w", r.Seq, r.Kind, fault.ErrInvalidRecord)
		}
	case KindAuthorityChanged:
		if r.Authority.IsNull() {
			return fmt.Errorf("record %d: authority.changed needs the next authority: %w", r.Seq, fault.ErrInvalidRecord)
		}
	case KindFeeChanged:
		if r.Fee == nil {
			return fmt.Errorf("record %d: fee.changed needs a fee: %w", r.Seq, fault.ErrInvalidRecord)
		}
	}
	return nil
}

// Involves reports whether addr appears in r as caller, sender, recipient
// or authority.
func (r *Record) Involves(addr types.Address) bool {
	return r.Caller == addr || r.From == addr || r.To == addr || r.Authority == addr
}

// Matches reports whether r satisfies the filters of opts. Limit is ignored.
func (r *Record) Matches(opts ListOpts) bool {
	if r.Seq <= opts.AfterSeq {
		return false
	}
	if opts.Kind != "" && r.Kind != opts.Kind {
		return false
	}
	if opts.IssuanceID != nil && (!r.Kind.IssuanceScoped() || r.IssuanceID != *opts.IssuanceID) {
		return false
	}
	if opts.Address != types.Null && !r.Involves(opts.Address) {
		return false
	}
	return true
}
