package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the licensing store.
var Migrations = migrate.NewGroup("licensing")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_licensing_records",
			Version: "20250101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS licensing_records (
    id          TEXT PRIMARY KEY,
    contract_id TEXT NOT NULL,
    seq         BIGINT NOT NULL,
    kind        TEXT NOT NULL,
    caller      TEXT NOT NULL DEFAULT '',
    issuance_id BIGINT,
    from_addr   TEXT NOT NULL DEFAULT '',
    to_addr     TEXT NOT NULL DEFAULT '',
    amount      TEXT NOT NULL DEFAULT '0',
    reclaimable BOOLEAN NOT NULL DEFAULT FALSE,
    issuance    JSONB,
    authority   TEXT NOT NULL DEFAULT '',
    fee         JSONB,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CONSTRAINT licensing_records_seq_positive CHECK (seq > 0)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_licensing_records_contract_seq ON licensing_records (contract_id, seq);
CREATE INDEX IF NOT EXISTS idx_licensing_records_issuance ON licensing_records (contract_id, issuance_id, seq);
CREATE INDEX IF NOT EXISTS idx_licensing_records_kind ON licensing_records (contract_id, kind, seq);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS licensing_records`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "index_licensing_records_addresses",
			Version: "20250101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE INDEX IF NOT EXISTS idx_licensing_records_from ON licensing_records (contract_id, from_addr);
CREATE INDEX IF NOT EXISTS idx_licensing_records_to ON licensing_records (contract_id, to_addr);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
DROP INDEX IF EXISTS idx_licensing_records_from;
DROP INDEX IF EXISTS idx_licensing_records_to;
`)
				return err
			},
		},
	)
}
