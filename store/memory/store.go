// Package memory implements store.Store in process memory. It is intended
// for tests and single-process deployments that do not need durability.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/xraph/licensing/fault"
	"github.com/xraph/licensing/id"
	"github.com/xraph/licensing/record"
	licstore "github.com/xraph/licensing/store"
)

// compile-time interface check
var _ licstore.Store = (*Store)(nil)

// Store keeps each contract's records in Seq order.
type Store struct {
	mu sync.RWMutex

	records map[string][]*record.Record // contract ID -> records by Seq
	byID    map[string]*record.Record
	closed  bool
}

// New returns an empty memory store.
func New() *Store {
	return &Store{
		records: make(map[string][]*record.Record),
		byID:    make(map[string]*record.Record),
	}
}

// AppendRecords stores records all-or-nothing. Within a contract, Seq must
// continue the stored sequence without gaps.
func (s *Store) AppendRecords(_ context.Context, records []*record.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fault.ErrStoreClosed
	}

	next := make(map[string]uint64)
	for _, r := range records {
		if err := r.Validate(); err != nil {
			return err
		}
		key := r.ContractID.String()
		want, ok := next[key]
		if !ok {
			want = s.lastSeq(key) + 1
		}
		if r.Seq != want {
			return fmt.Errorf("licensing/memory: contract %s: seq %d, want %d: %w",
				key, r.Seq, want, fault.ErrConflict)
		}
		if _, dup := s.byID[r.ID.String()]; dup {
			return fmt.Errorf("licensing/memory: record %s: %w", r.ID, fault.ErrConflict)
		}
		next[key] = want + 1
	}

	for _, r := range records {
		c := clone(r)
		key := c.ContractID.String()
		s.records[key] = append(s.records[key], c)
		s.byID[c.ID.String()] = c
	}
	return nil
}

// GetRecord returns a record by ID.
func (s *Store) GetRecord(_ context.Context, recordID id.RecordID) (*record.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if r, ok := s.byID[recordID.String()]; ok {
		return clone(r), nil
	}
	return nil, fault.ErrRecordNotFound
}

// ListRecords returns a contract's records matching opts in Seq order.
func (s *Store) ListRecords(_ context.Context, contractID id.ContractID, opts record.ListOpts) ([]*record.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*record.Record
	for _, r := range s.records[contractID.String()] {
		if !r.Matches(opts) {
			continue
		}
		result = append(result, clone(r))
		if opts.Limit > 0 && len(result) >= opts.Limit {
			break
		}
	}
	return result, nil
}

// LastSeq returns the highest stored Seq of a contract.
func (s *Store) LastSeq(_ context.Context, contractID id.ContractID) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSeq(contractID.String()), nil
}

func (s *Store) lastSeq(key string) uint64 {
	list := s.records[key]
	if len(list) == 0 {
		return 0
	}
	return list[len(list)-1].Seq
}

func (s *Store) Migrate(_ context.Context) error {
	return nil // No migration needed for memory store
}

func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return fault.ErrStoreClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// clone copies r so callers never share memory with the store.
func clone(r *record.Record) *record.Record {
	c := *r
	if r.Issuance != nil {
		meta := *r.Issuance
		c.Issuance = &meta
	}
	if r.Fee != nil {
		fee := *r.Fee
		c.Fee = &fee
	}
	return &c
}
