// Package sqlite implements store.Store on SQLite through the grove ORM.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"
	"github.com/xraph/grove/migrate"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/xraph/licensing/fault"
	"github.com/xraph/licensing/id"
	"github.com/xraph/licensing/record"
	licstore "github.com/xraph/licensing/store"
)

// compile-time interface check
var _ licstore.Store = (*Store)(nil)

// Store implements store.Store using SQLite via Grove ORM.
type Store struct {
	db  *grove.DB
	sdb *sqlitedriver.SqliteDB
}

// New creates a new SQLite store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		sdb: sqlitedriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("licensing/sqlite: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("licensing/sqlite: migration failed: %w", err)
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

// AppendRecords inserts records with a single multi-row INSERT, which
// SQLite applies atomically.
func (s *Store) AppendRecords(ctx context.Context, records []*record.Record) error {
	if len(records) == 0 {
		return nil
	}
	models := make([]recordModel, len(records))
	for i, r := range records {
		if err := r.Validate(); err != nil {
			return err
		}
		m, err := toRecordModel(r)
		if err != nil {
			return err
		}
		models[i] = *m
	}

	if _, err := s.sdb.NewInsert(&models).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("licensing/sqlite: append at seq %d: %w", records[0].Seq, fault.ErrConflict)
		}
		return fmt.Errorf("licensing/sqlite: append records: %w", err)
	}
	return nil
}

func (s *Store) GetRecord(ctx context.Context, recordID id.RecordID) (*record.Record, error) {
	m := new(recordModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", recordID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, fault.ErrRecordNotFound
		}
		return nil, err
	}
	return fromRecordModel(m)
}

func (s *Store) ListRecords(ctx context.Context, contractID id.ContractID, opts record.ListOpts) ([]*record.Record, error) {
	var models []recordModel
	q := s.sdb.NewSelect(&models).
		Where("contract_id = ?", contractID.String()).
		Where("seq > ?", int64(opts.AfterSeq)) //nolint:gosec // sequence numbers stay far below MaxInt64

	if opts.Kind != "" {
		q = q.Where("kind = ?", string(opts.Kind))
	}
	if opts.IssuanceID != nil {
		q = q.Where("issuance_id = ?", int64(*opts.IssuanceID)) //nolint:gosec // issuance ids are positions in a slice
	}
	if opts.Address != "" {
		a := string(opts.Address)
		q = q.Where("(caller = ? OR from_addr = ? OR to_addr = ? OR authority = ?)", a, a, a, a)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	q = q.OrderExpr("seq ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*record.Record, len(models))
	for i := range models {
		r, err := fromRecordModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = r
	}
	return result, nil
}

func (s *Store) LastSeq(ctx context.Context, contractID id.ContractID) (uint64, error) {
	var last int64
	err := s.sdb.NewRaw(`
		SELECT COALESCE(MAX(seq), 0) FROM licensing_records WHERE contract_id = ?
	`, contractID.String()).Scan(ctx, &last)
	if err != nil {
		return 0, err
	}
	return uint64(last), nil //nolint:gosec // seq is never negative
}

// ==================== Helpers ====================

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// isUniqueViolation reports whether err is a UNIQUE or PRIMARY KEY
// constraint failure.
func isUniqueViolation(err error) bool {
	var serr *msqlite.Error
	if errors.As(err, &serr) {
		code := serr.Code()
		return code == sqlite3lib.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
