package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/compliance-chaser/internal/db"
	"github.com/sells-group/compliance-chaser/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close() //nolint:errcheck,gosec
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: conn}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS chase_tasks (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	client_id    TEXT NOT NULL,
	client_name  TEXT NOT NULL,
	item_name    TEXT NOT NULL,
	required_for TEXT NOT NULL,
	target       TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'not_started',
	priority     TEXT NOT NULL,
	channel      TEXT NOT NULL,
	due_date     TEXT NOT NULL,
	reason       TEXT NOT NULL,
	source_doc   TEXT NOT NULL,
	updated_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (client_id, item_name, source_doc)
);

CREATE TABLE IF NOT EXISTS profiles (
	client_id    TEXT PRIMARY KEY,
	client_name  TEXT NOT NULL,
	source_file  TEXT NOT NULL,
	date_hint    TEXT NOT NULL DEFAULT '',
	anchor_date  TEXT,
	presence     TEXT NOT NULL,
	extracted_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS document_failures (
	id           TEXT PRIMARY KEY,
	source_file  TEXT NOT NULL,
	error        TEXT NOT NULL,
	failed_stage TEXT NOT NULL,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_chase_tasks_client_name ON chase_tasks(client_name);
CREATE INDEX IF NOT EXISTS idx_chase_tasks_status ON chase_tasks(status);
CREATE INDEX IF NOT EXISTS idx_document_failures_created_at ON document_failures(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveProfile(ctx context.Context, p model.ExtractedProfile) error {
	presence, err := json.Marshal(p.Presence)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal presence")
	}
	query, err := db.UpsertSQL(profileUpsert, db.SQLite)
	if err != nil {
		return err
	}

	var anchor any
	if p.AnchorDate != nil {
		anchor = *p.AnchorDate
	}
	_, err = s.db.ExecContext(ctx, query,
		p.ClientID, p.ClientName, p.SourceFile, p.DateHint, anchor, string(presence), p.ExtractedAt.UTC(),
	)
	return eris.Wrapf(err, "sqlite: save profile %s", p.ClientID)
}

const profileSelect = `SELECT client_id, client_name, source_file, date_hint, anchor_date, presence, extracted_at FROM profiles`

func (s *SQLiteStore) GetProfile(ctx context.Context, clientID string) (*model.ExtractedProfile, error) {
	row := s.db.QueryRowContext(ctx, profileSelect+` WHERE client_id = ?`, clientID)
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: profile %s", clientID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get profile %s", clientID)
	}
	return p, nil
}

func (s *SQLiteStore) ListProfiles(ctx context.Context) ([]model.ExtractedProfile, error) {
	rows, err := s.db.QueryContext(ctx, profileSelect+` ORDER BY client_id`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list profiles")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.ExtractedProfile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan profile")
		}
		out = append(out, *p)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list profiles iterate")
}

func (s *SQLiteStore) UpsertTasks(ctx context.Context, tasks []model.ChaseTask) (int64, error) {
	if len(tasks) == 0 {
		return 0, nil
	}
	if err := validateTasks(tasks); err != nil {
		return 0, err
	}
	query, err := db.UpsertSQL(taskUpsert, db.SQLite)
	if err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin upsert tasks")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare upsert tasks")
	}
	defer stmt.Close() //nolint:errcheck

	now := time.Now().UTC()
	var total int64
	for _, t := range tasks {
		res, err := stmt.ExecContext(ctx, taskArgs(t, now)...)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert task %s", t.Key())
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, eris.Wrap(err, "sqlite: rows affected")
		}
		total += n
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit upsert tasks")
	}
	return total, nil
}

func (s *SQLiteStore) ListTasks(ctx context.Context, filter TaskFilter) ([]model.ChaseTask, error) {
	query := taskSelect + ` WHERE 1=1`
	var args []any

	if filter.Client != "" {
		query += ` AND (client_id = ? OR client_name = ?)`
		args = append(args, filter.Client, filter.Client)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.SourceDoc != "" {
		query += ` AND source_doc = ?`
		args = append(args, filter.SourceDoc)
	}
	query += ` ORDER BY id LIMIT ?`
	args = append(args, filter.limit())
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list tasks")
	}
	defer rows.Close() //nolint:errcheck

	var tasks []model.ChaseTask
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan task")
		}
		tasks = append(tasks, t)
	}
	return tasks, eris.Wrap(rows.Err(), "sqlite: list tasks iterate")
}

func (s *SQLiteStore) UpdateTaskStatus(ctx context.Context, key model.TaskKey, status model.Status) error {
	if !status.Valid() {
		return eris.Wrapf(model.ErrInvalidEnum, "sqlite: status %q", status)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE chase_tasks SET status = ?, updated_at = ?
		WHERE client_id = ? AND item_name = ? AND source_doc = ? AND `+statusRankSQL+` < ?`,
		string(status), time.Now().UTC(), key.ClientID, key.ItemName, key.SourceDoc, status.Rank(),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update task status %s", key)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n > 0 {
		return nil
	}

	var current model.Status
	err = s.db.QueryRowContext(ctx,
		`SELECT status FROM chase_tasks WHERE client_id = ? AND item_name = ? AND source_doc = ?`,
		key.ClientID, key.ItemName, key.SourceDoc,
	).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return eris.Wrapf(ErrNotFound, "task %s", key)
	}
	if err != nil {
		return eris.Wrapf(err, "sqlite: read task status %s", key)
	}
	return notAdvanced(key, current, status)
}

func (s *SQLiteStore) RecordFailures(ctx context.Context, failures []model.DocumentFailure) error {
	if len(failures) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin record failures")
	}
	defer tx.Rollback() //nolint:errcheck

	for _, f := range failures {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO document_failures (id, source_file, error, failed_stage, created_at) VALUES (?, ?, ?, ?, ?)`,
			f.ID, f.SourceFile, f.Error, f.FailedStage, f.CreatedAt.UTC(),
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert failure %s", f.SourceFile)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit record failures")
}

func (s *SQLiteStore) ListFailures(ctx context.Context, limit int) ([]model.DocumentFailure, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source_file, error, failed_stage, created_at FROM document_failures
		 ORDER BY created_at DESC, source_file LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list failures")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.DocumentFailure
	for rows.Next() {
		var f model.DocumentFailure
		if err := rows.Scan(&f.ID, &f.SourceFile, &f.Error, &f.FailedStage, &f.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan failure")
		}
		out = append(out, f)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list failures iterate")
}

// helpers

func taskArgs(t model.ChaseTask, now time.Time) []any {
	return []any{
		t.ClientID, t.ClientName, t.ItemName, string(t.RequiredFor), string(t.Target),
		string(t.Status), string(t.Priority), string(t.Channel), t.DueDate, t.Reason,
		t.SourceDoc, now,
	}
}

func scanProfile(row scannable) (*model.ExtractedProfile, error) {
	var (
		p        model.ExtractedProfile
		anchor   model.Date
		presence string
	)
	if err := row.Scan(&p.ClientID, &p.ClientName, &p.SourceFile, &p.DateHint, &anchor, &presence, &p.ExtractedAt); err != nil {
		return nil, err
	}
	if !anchor.IsZero() {
		p.AnchorDate = &anchor
	}
	if err := json.Unmarshal([]byte(presence), &p.Presence); err != nil {
		return nil, eris.Wrap(err, "unmarshal presence")
	}
	return &p, nil
}
