package record

import (
	"context"

	"github.com/xraph/licensing/id"
	"github.com/xraph/licensing/types"
)

// Store persists the append-only record log.
type Store interface {
	// AppendRecords writes records in one call: either all of them are
	// stored or none. A record whose (contract, seq) already exists fails
	// the whole call with fault.ErrConflict.
	AppendRecords(ctx context.Context, records []*Record) error

	// GetRecord returns one record by ID, or fault.ErrRecordNotFound.
	GetRecord(ctx context.Context, recordID id.RecordID) (*Record, error)

	// ListRecords returns a contract's records matching opts in Seq order.
	ListRecords(ctx context.Context, contractID id.ContractID, opts ListOpts) ([]*Record, error)

	// LastSeq returns the highest Seq stored for a contract, or 0.
	LastSeq(ctx context.Context, contractID id.ContractID) (uint64, error)
}

// ListOpts filters a record listing.
type ListOpts struct {
	IssuanceID *uint64
	Kind       Kind
	Address    types.Address
	AfterSeq   uint64
	Limit      int
}
