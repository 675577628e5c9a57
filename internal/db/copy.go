package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// CopyFrom streams rows into table over the COPY protocol. Every row must
// carry one value per column; a short or long row fails the whole copy
// before anything is sent.
func CopyFrom(ctx context.Context, pool Pool, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	for i, row := range rows {
		if len(row) != len(columns) {
			return 0, eris.Errorf("db: copy %s: row %d has %d values, want %d", table, i, len(row), len(columns))
		}
	}

	n, err := pool.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, eris.Wrapf(err, "db: copy into %s", table)
	}
	if n != int64(len(rows)) {
		return n, eris.Errorf("db: copy %s: wrote %d of %d rows", table, n, len(rows))
	}
	return n, nil
}
