// Package postgres implements store.Store on PostgreSQL through the grove ORM.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/licensing/fault"
	"github.com/xraph/licensing/id"
	"github.com/xraph/licensing/record"
	licstore "github.com/xraph/licensing/store"
)

// uniqueViolation is the SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// compile-time interface check
var _ licstore.Store = (*Store)(nil)

// Store implements store.Store using PostgreSQL via Grove ORM.
type Store struct {
	db *grove.DB
	pg *pgdriver.PgDB
}

// New creates a new PostgreSQL store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db: db,
		pg: pgdriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pg)
	if err != nil {
		return fmt.Errorf("licensing/postgres: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("licensing/postgres: migration failed: %w", err)
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

// AppendRecords writes the batch with one INSERT statement. A clash on
// (contract_id, seq) means another writer got there first.
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

	if _, err := s.pg.NewInsert(&models).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("licensing/postgres: append at seq %d: %w", records[0].Seq, fault.ErrConflict)
		}
		return fmt.Errorf("licensing/postgres: append records: %w", err)
	}
	return nil
}

func (s *Store) GetRecord(ctx context.Context, recordID id.RecordID) (*record.Record, error) {
	m := new(recordModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", recordID.String()).
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
	q := s.pg.NewSelect(&models).
		Where("contract_id = $1", contractID.String()).
		Where("seq > $2", int64(opts.AfterSeq)) //nolint:gosec // sequence numbers stay far below MaxInt64
	argIdx := 3

	if opts.Kind != "" {
		q = q.Where(fmt.Sprintf("kind = $%d", argIdx), string(opts.Kind))
		argIdx++
	}
	if opts.IssuanceID != nil {
		q = q.Where(fmt.Sprintf("issuance_id = $%d", argIdx), int64(*opts.IssuanceID)) //nolint:gosec // issuance ids are positions in a slice
		argIdx++
	}
	if opts.Address != "" {
		q = q.Where(fmt.Sprintf("(caller = $%d OR from_addr = $%d OR to_addr = $%d OR authority = $%d)",
			argIdx, argIdx, argIdx, argIdx), string(opts.Address))
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
	err := s.pg.NewRaw(`
		SELECT COALESCE(MAX(seq), 0) FROM licensing_records WHERE contract_id = $1
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

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
