package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the licensing store (SQLite).
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
    seq         INTEGER NOT NULL,
    kind        TEXT NOT NULL,
    caller      TEXT NOT NULL DEFAULT '',
    issuance_id INTEGER,
    from_addr   TEXT NOT NULL DEFAULT '',
    to_addr     TEXT NOT NULL DEFAULT '',
    amount      TEXT NOT NULL DEFAULT '0',
    reclaimable INTEGER NOT NULL DEFAULT 0,
    issuance    TEXT NOT NULL DEFAULT '',
    authority   TEXT NOT NULL DEFAULT '',
    fee         TEXT NOT NULL DEFAULT '',
    created_at  TEXT NOT NULL DEFAULT (datetime('now'))
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
