package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// GeneratorTable stores one row per label.
const GeneratorTable = "sys_functional_ids"

// Schema creates the generator table. Safe to run repeatedly.
const Schema = `
CREATE TABLE IF NOT EXISTS sys_functional_ids (
    label    TEXT PRIMARY KEY,
    prefix   TEXT   NOT NULL CHECK (btrim(prefix) <> ''),
    sequence BIGINT NOT NULL CHECK (sequence >= 0),
    uid      TEXT   NOT NULL
);
`

// Execer is the subset of pgx used for DDL.
type Execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// EnsureSchema creates missing tables.
func EnsureSchema(ctx context.Context, db Execer) error {
	if _, err := db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
