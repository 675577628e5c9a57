package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// Dialect selects placeholder style.
type Dialect int

const (
	// Postgres uses $1, $2, ...
	Postgres Dialect = iota
	// SQLite uses ?.
	SQLite
)

// UpsertConfig defines the parameters for an upsert statement.
type UpsertConfig struct {
	Table        string   // target table (e.g., "chase_tasks")
	Columns      []string // all columns being inserted
	ConflictKeys []string // columns forming the unique constraint
	UpdateCols   []string // columns to update on conflict; nil = all non-conflict columns
}

func (cfg UpsertConfig) validate() error {
	if len(cfg.Columns) == 0 {
		return eris.New("db: upsert: no columns specified")
	}
	if len(cfg.ConflictKeys) == 0 {
		return eris.New("db: upsert: no conflict keys specified")
	}
	return nil
}

func (cfg UpsertConfig) updateCols() []string {
	if cfg.UpdateCols != nil {
		return cfg.UpdateCols
	}
	conflictSet := make(map[string]bool, len(cfg.ConflictKeys))
	for _, k := range cfg.ConflictKeys {
		conflictSet[k] = true
	}
	var cols []string
	for _, c := range cfg.Columns {
		if !conflictSet[c] {
			cols = append(cols, c)
		}
	}
	return cols
}

// conflictClause renders ON CONFLICT (...) DO UPDATE SET ..., or DO NOTHING
// when there is nothing to update.
func (cfg UpsertConfig) conflictClause() string {
	update := cfg.updateCols()
	if len(update) == 0 {
		return fmt.Sprintf("ON CONFLICT (%s) DO NOTHING", quoteAndJoin(cfg.ConflictKeys))
	}
	setClauses := make([]string, len(update))
	for i, col := range update {
		q := pgx.Identifier{col}.Sanitize()
		setClauses[i] = fmt.Sprintf("%s = EXCLUDED.%s", q, q)
	}
	return fmt.Sprintf("ON CONFLICT (%s) DO UPDATE SET %s",
		quoteAndJoin(cfg.ConflictKeys), strings.Join(setClauses, ", "))
}

// UpsertSQL builds a single-row INSERT ... ON CONFLICT statement. SQLite
// and Postgres share the syntax apart from placeholders.
func UpsertSQL(cfg UpsertConfig, dialect Dialect) (string, error) {
	if err := cfg.validate(); err != nil {
		return "", err
	}

	placeholders := make([]string, len(cfg.Columns))
	for i := range cfg.Columns {
		if dialect == SQLite {
			placeholders[i] = "?"
		} else {
			placeholders[i] = fmt.Sprintf("$%d", i+1)
		}
	}

	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) %s",
		sanitizeTable(cfg.Table),
		quoteAndJoin(cfg.Columns),
		strings.Join(placeholders, ", "),
		cfg.conflictClause(),
	), nil
}

// BulkUpsert performs a bulk upsert via a temp table and INSERT ... ON CONFLICT.
// 1. Creates a temp table with the same columns
// 2. COPY rows into the temp table and drop duplicate keys
// 3. INSERT INTO target SELECT ... FROM temp ON CONFLICT (keys) DO UPDATE SET ...
// The temp table is dropped on commit.
func BulkUpsert(ctx context.Context, pool Pool, cfg UpsertConfig, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if err := cfg.validate(); err != nil {
		return 0, err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "db: upsert: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	tempTable := fmt.Sprintf("_tmp_upsert_%s", strings.ReplaceAll(cfg.Table, ".", "_"))

	createSQL := fmt.Sprintf(
		"CREATE TEMP TABLE %s (LIKE %s INCLUDING DEFAULTS) ON COMMIT DROP",
		pgx.Identifier{tempTable}.Sanitize(),
		sanitizeTable(cfg.Table),
	)
	if _, err := tx.Exec(ctx, createSQL); err != nil {
		return 0, eris.Wrapf(err, "db: upsert: create temp table for %s", cfg.Table)
	}

	if _, err := tx.CopyFrom(ctx, pgx.Identifier{tempTable}, cfg.Columns, pgx.CopyFromRows(rows)); err != nil {
		return 0, eris.Wrapf(err, "db: upsert: COPY into temp table for %s", cfg.Table)
	}

	// Keep only the last copy of each conflict key; ON CONFLICT cannot touch
	// the same row twice in one statement.
	keyMatch := make([]string, len(cfg.ConflictKeys))
	for i, k := range cfg.ConflictKeys {
		q := pgx.Identifier{k}.Sanitize()
		keyMatch[i] = fmt.Sprintf("a.%s = b.%s", q, q)
	}
	dedupSQL := fmt.Sprintf(
		"DELETE FROM %s a USING %s b WHERE a.ctid < b.ctid AND %s",
		pgx.Identifier{tempTable}.Sanitize(),
		pgx.Identifier{tempTable}.Sanitize(),
		strings.Join(keyMatch, " AND "),
	)
	if _, err := tx.Exec(ctx, dedupSQL); err != nil {
		return 0, eris.Wrapf(err, "db: upsert: dedup temp table for %s", cfg.Table)
	}

	colList := quoteAndJoin(cfg.Columns)
	upsertSQL := fmt.Sprintf(
		"INSERT INTO %s (%s) SELECT %s FROM %s %s",
		sanitizeTable(cfg.Table),
		colList,
		colList,
		pgx.Identifier{tempTable}.Sanitize(),
		cfg.conflictClause(),
	)

	tag, err := tx.Exec(ctx, upsertSQL)
	if err != nil {
		return 0, eris.Wrapf(err, "db: upsert: INSERT ON CONFLICT for %s", cfg.Table)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "db: upsert: commit tx")
	}

	return tag.RowsAffected(), nil
}

// sanitizeTable handles schema-qualified table names like "chaser.chase_tasks".
func sanitizeTable(table string) string {
	parts := strings.SplitN(table, ".", 2)
	if len(parts) == 2 {
		return pgx.Identifier{parts[0], parts[1]}.Sanitize()
	}
	return pgx.Identifier{table}.Sanitize()
}

// quoteAndJoin quotes each column name and joins with commas.
func quoteAndJoin(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}
