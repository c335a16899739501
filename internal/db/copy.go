// Package db provides the pgx helpers behind the Postgres dataset store:
// COPY-based bulk loads for parcel snapshots and temp-table upserts for
// census tracts.
package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// CopyFrom bulk-loads rows into a table over the COPY protocol. Dataset
// snapshots are replace-on-save, so a whole parcel roll arrives as one batch.
func CopyFrom(ctx context.Context, pool Pool, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	n, err := pool.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, eris.Wrapf(err, "db: COPY INTO %s", table)
	}

	return n, nil
}
