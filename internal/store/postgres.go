package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/compliance-chaser/internal/db"
	"github.com/sells-group/compliance-chaser/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS chase_tasks (
	id           BIGSERIAL PRIMARY KEY,
	client_id    TEXT NOT NULL,
	client_name  TEXT NOT NULL,
	item_name    TEXT NOT NULL,
	required_for TEXT NOT NULL,
	target       TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'not_started',
	priority     TEXT NOT NULL,
	channel      TEXT NOT NULL,
	due_date     DATE NOT NULL,
	reason       TEXT NOT NULL,
	source_doc   TEXT NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (client_id, item_name, source_doc)
);

CREATE TABLE IF NOT EXISTS profiles (
	client_id    TEXT PRIMARY KEY,
	client_name  TEXT NOT NULL,
	source_file  TEXT NOT NULL,
	date_hint    TEXT NOT NULL DEFAULT '',
	anchor_date  DATE,
	presence     JSONB NOT NULL,
	extracted_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS document_failures (
	id           TEXT PRIMARY KEY,
	source_file  TEXT NOT NULL,
	error        TEXT NOT NULL,
	failed_stage TEXT NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_chase_tasks_client_name ON chase_tasks(client_name);
CREATE INDEX IF NOT EXISTS idx_chase_tasks_status ON chase_tasks(status);
CREATE INDEX IF NOT EXISTS idx_document_failures_created_at ON document_failures(created_at DESC);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) SaveProfile(ctx context.Context, p model.ExtractedProfile) error {
	presence, err := json.Marshal(p.Presence)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal presence")
	}
	query, err := db.UpsertSQL(profileUpsert, db.Postgres)
	if err != nil {
		return err
	}

	var anchor *time.Time
	if p.AnchorDate != nil {
		t := p.AnchorDate.Time()
		anchor = &t
	}
	_, err = s.pool.Exec(ctx, query,
		p.ClientID, p.ClientName, p.SourceFile, p.DateHint, anchor, presence, p.ExtractedAt.UTC(),
	)
	return eris.Wrapf(err, "postgres: save profile %s", p.ClientID)
}

func (s *PostgresStore) GetProfile(ctx context.Context, clientID string) (*model.ExtractedProfile, error) {
	row := s.pool.QueryRow(ctx, profileSelect+` WHERE client_id = $1`, clientID)
	p, err := scanPgProfile(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: profile %s", clientID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get profile %s", clientID)
	}
	return p, nil
}

func (s *PostgresStore) ListProfiles(ctx context.Context) ([]model.ExtractedProfile, error) {
	rows, err := s.pool.Query(ctx, profileSelect+` ORDER BY client_id`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list profiles")
	}
	defer rows.Close()

	var out []model.ExtractedProfile
	for rows.Next() {
		p, err := scanPgProfile(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan profile")
		}
		out = append(out, *p)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list profiles iterate")
}

func (s *PostgresStore) UpsertTasks(ctx context.Context, tasks []model.ChaseTask) (int64, error) {
	if len(tasks) == 0 {
		return 0, nil
	}
	if err := validateTasks(tasks); err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	rows := make([][]any, len(tasks))
	for i, t := range tasks {
		args := taskArgs(t, now)
		args[8] = t.DueDate.Time()
		rows[i] = args
	}

	n, err := db.BulkUpsert(ctx, s.pool, taskUpsert, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: upsert tasks")
	}
	return n, nil
}

func (s *PostgresStore) ListTasks(ctx context.Context, filter TaskFilter) ([]model.ChaseTask, error) {
	query := taskSelect + ` WHERE 1=1`
	var args []any
	argN := 1

	if filter.Client != "" {
		query += fmt.Sprintf(` AND (client_id = $%d OR client_name = $%d)`, argN, argN)
		args = append(args, filter.Client)
		argN++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argN)
		args = append(args, string(filter.Status))
		argN++
	}
	if filter.SourceDoc != "" {
		query += fmt.Sprintf(` AND source_doc = $%d`, argN)
		args = append(args, filter.SourceDoc)
		argN++
	}
	query += fmt.Sprintf(` ORDER BY id LIMIT $%d`, argN)
	args = append(args, filter.limit())
	argN++
	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argN)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list tasks")
	}
	defer rows.Close()

	var tasks []model.ChaseTask
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan task")
		}
		tasks = append(tasks, t)
	}
	return tasks, eris.Wrap(rows.Err(), "postgres: list tasks iterate")
}

func (s *PostgresStore) UpdateTaskStatus(ctx context.Context, key model.TaskKey, status model.Status) error {
	if !status.Valid() {
		return eris.Wrapf(model.ErrInvalidEnum, "postgres: status %q", status)
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE chase_tasks SET status = $1, updated_at = $2
		WHERE client_id = $3 AND item_name = $4 AND source_doc = $5 AND `+statusRankSQL+` < $6`,
		string(status), time.Now().UTC(), key.ClientID, key.ItemName, key.SourceDoc, status.Rank(),
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update task status %s", key)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var current model.Status
	err = s.pool.QueryRow(ctx,
		`SELECT status FROM chase_tasks WHERE client_id = $1 AND item_name = $2 AND source_doc = $3`,
		key.ClientID, key.ItemName, key.SourceDoc,
	).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return eris.Wrapf(ErrNotFound, "task %s", key)
	}
	if err != nil {
		return eris.Wrapf(err, "postgres: read task status %s", key)
	}
	return notAdvanced(key, current, status)
}

func (s *PostgresStore) RecordFailures(ctx context.Context, failures []model.DocumentFailure) error {
	rows := make([][]any, len(failures))
	for i, f := range failures {
		rows[i] = []any{f.ID, f.SourceFile, f.Error, f.FailedStage, f.CreatedAt.UTC()}
	}
	_, err := db.CopyFrom(ctx, s.pool, failuresTable, failureColumns, rows)
	return eris.Wrap(err, "postgres: record failures")
}

func (s *PostgresStore) ListFailures(ctx context.Context, limit int) ([]model.DocumentFailure, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, source_file, error, failed_stage, created_at FROM document_failures
		 ORDER BY created_at DESC, source_file LIMIT $1`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list failures")
	}
	defer rows.Close()

	var out []model.DocumentFailure
	for rows.Next() {
		var f model.DocumentFailure
		if err := rows.Scan(&f.ID, &f.SourceFile, &f.Error, &f.FailedStage, &f.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan failure")
		}
		out = append(out, f)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list failures iterate")
}

func scanPgProfile(row scannable) (*model.ExtractedProfile, error) {
	var (
		p        model.ExtractedProfile
		anchor   *time.Time
		presence []byte
	)
	if err := row.Scan(&p.ClientID, &p.ClientName, &p.SourceFile, &p.DateHint, &anchor, &presence, &p.ExtractedAt); err != nil {
		return nil, err
	}
	if anchor != nil {
		d := model.DateOf(*anchor)
		p.AnchorDate = &d
	}
	if err := json.Unmarshal(presence, &p.Presence); err != nil {
		return nil, eris.Wrap(err, "unmarshal presence")
	}
	return &p, nil
}
