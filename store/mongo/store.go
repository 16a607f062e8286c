// Package mongo implements store.Store on MongoDB through the grove ORM.
package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/licensing/fault"
	"github.com/xraph/licensing/id"
	"github.com/xraph/licensing/record"
	licstore "github.com/xraph/licensing/store"
)

// Collection name constants.
const (
	colBatches = "licensing_record_batches"
)

// compile-time interface check
var _ licstore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for the licensing collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("licensing/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Record Store ====================

// AppendRecords stores the records as a single batch document. Every
// writer starts its batch right after the last batch it has seen, so two
// writers racing from the same position collide on the unique seq index.
func (s *Store) AppendRecords(ctx context.Context, records []*record.Record) error {
	if len(records) == 0 {
		return nil
	}
	for i, r := range records {
		if err := r.Validate(); err != nil {
			return err
		}
		if i > 0 && (r.ContractID != records[0].ContractID || r.Seq != records[i-1].Seq+1) {
			return fmt.Errorf("licensing/mongo: batch is not contiguous at seq %d: %w", r.Seq, fault.ErrInvalidRecord)
		}
	}

	m := toBatchModel(records)
	if _, err := s.mdb.NewInsert(m).Exec(ctx); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("licensing/mongo: append at seq %d: %w", records[0].Seq, fault.ErrConflict)
		}
		return fmt.Errorf("licensing/mongo: append records: %w", err)
	}
	return nil
}

func (s *Store) GetRecord(ctx context.Context, recordID id.RecordID) (*record.Record, error) {
	var m batchModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"records.id": recordID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fault.ErrRecordNotFound
		}
		return nil, fmt.Errorf("licensing/mongo: get record: %w", err)
	}

	records, err := fromBatchModel(&m)
	if err != nil {
		return nil, err
	}
	for _, r := range records {
		if r.ID == recordID {
			return r, nil
		}
	}
	return nil, fault.ErrRecordNotFound
}

// ListRecords selects, on the server, the batches holding a matching record
// and applies the same filter per record after unpacking them.
func (s *Store) ListRecords(ctx context.Context, contractID id.ContractID, opts record.ListOpts) ([]*record.Record, error) {
	var models []batchModel

	q := s.mdb.NewFind(&models).
		Filter(listFilter(contractID, opts)).
		Sort(bson.D{{Key: "seq", Value: 1}})

	// Every batch the filter returns holds at least one matching record, so
	// Limit batches always cover Limit records.
	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("licensing/mongo: list records: %w", err)
	}

	var result []*record.Record
	for i := range models {
		records, err := fromBatchModel(&models[i])
		if err != nil {
			return nil, err
		}
		for _, r := range records {
			if !r.Matches(opts) {
				continue
			}
			result = append(result, r)
			if opts.Limit > 0 && len(result) == opts.Limit {
				return result, nil
			}
		}
	}
	return result, nil
}

// listFilter matches the batches of contractID holding at least one record
// that satisfies opts. All per-record conditions sit in one $elemMatch so
// they apply to the same record.
func listFilter(contractID id.ContractID, opts record.ListOpts) bson.M {
	match := bson.M{
		"seq": bson.M{"$gt": int64(opts.AfterSeq)}, //nolint:gosec // sequence numbers stay far below MaxInt64
	}
	if opts.Kind != "" {
		match["kind"] = string(opts.Kind)
	}
	if opts.IssuanceID != nil {
		match["issuance_id"] = int64(*opts.IssuanceID) //nolint:gosec // issuance ids are positions in a slice
	}
	if opts.Address != "" {
		a := string(opts.Address)
		match["$or"] = bson.A{
			bson.M{"caller": a},
			bson.M{"from_addr": a},
			bson.M{"to_addr": a},
			bson.M{"authority": a},
		}
	}
	return bson.M{
		"contract_id": contractID.String(),
		"last_seq":    bson.M{"$gt": int64(opts.AfterSeq)}, //nolint:gosec // sequence numbers stay far below MaxInt64
		"records":     bson.M{"$elemMatch": match},
	}
}

func (s *Store) LastSeq(ctx context.Context, contractID id.ContractID) (uint64, error) {
	var m batchModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"contract_id": contractID.String()}).
		Sort(bson.D{{Key: "last_seq", Value: -1}}).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("licensing/mongo: last seq: %w", err)
	}
	return uint64(m.LastSeq), nil //nolint:gosec // seq is never negative
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for the licensing collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colBatches: {
			{
				Keys:    bson.D{{Key: "contract_id", Value: 1}, {Key: "seq", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "contract_id", Value: 1}, {Key: "last_seq", Value: -1}}},
			{
				Keys:    bson.D{{Key: "records.id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "contract_id", Value: 1}, {Key: "records.issuance_id", Value: 1}}},
			{Keys: bson.D{{Key: "contract_id", Value: 1}, {Key: "records.kind", Value: 1}}},
		},
	}
}
