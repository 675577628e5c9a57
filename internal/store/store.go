// Package store persists chase tasks, extracted profiles and document
// failures in SQLite or Postgres.
package store

import (
	"context"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/compliance-chaser/internal/db"
	"github.com/sells-group/compliance-chaser/internal/model"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = eris.New("store: not found")

// Default and maximum page sizes for list queries.
const (
	DefaultListLimit = 1000
	MaxListLimit     = 10000
)

// TaskFilter specifies criteria for listing tasks. Client matches either the
// client id or the client name.
type TaskFilter struct {
	Client    string       `json:"client,omitempty"`
	Status    model.Status `json:"status,omitempty"`
	SourceDoc string       `json:"source_doc,omitempty"`
	Limit     int          `json:"limit,omitempty"`
	Offset    int          `json:"offset,omitempty"`
}

func (f TaskFilter) limit() int {
	switch {
	case f.Limit <= 0:
		return DefaultListLimit
	case f.Limit > MaxListLimit:
		return MaxListLimit
	default:
		return f.Limit
	}
}

// Store defines the persistence interface for the chaser.
type Store interface {
	// Profiles
	SaveProfile(ctx context.Context, p model.ExtractedProfile) error
	GetProfile(ctx context.Context, clientID string) (*model.ExtractedProfile, error)
	ListProfiles(ctx context.Context) ([]model.ExtractedProfile, error)

	// Tasks. UpsertTasks refreshes every field but status for tasks that
	// already exist under the same (client_id, item_name, source_doc).
	UpsertTasks(ctx context.Context, tasks []model.ChaseTask) (int64, error)
	ListTasks(ctx context.Context, filter TaskFilter) ([]model.ChaseTask, error)
	// UpdateTaskStatus only moves a task forward. A task already at or past
	// status is left alone and reported with model.ErrStatusNotAdvanced.
	UpdateTaskStatus(ctx context.Context, key model.TaskKey, status model.Status) error

	// Failures
	RecordFailures(ctx context.Context, failures []model.DocumentFailure) error
	ListFailures(ctx context.Context, limit int) ([]model.DocumentFailure, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// TaskLister is the read side ListAllTasks pages through.
type TaskLister interface {
	ListTasks(ctx context.Context, filter TaskFilter) ([]model.ChaseTask, error)
}

// ListAllTasks returns every task matching filter, paging past
// MaxListLimit. filter's Limit and Offset are ignored.
func ListAllTasks(ctx context.Context, l TaskLister, filter TaskFilter) ([]model.ChaseTask, error) {
	return listAllTasks(ctx, l, filter, MaxListLimit)
}

func listAllTasks(ctx context.Context, l TaskLister, filter TaskFilter, pageSize int) ([]model.ChaseTask, error) {
	filter.Limit = pageSize
	var all []model.ChaseTask
	for offset := 0; ; offset += pageSize {
		filter.Offset = offset
		page, err := l.ListTasks(ctx, filter)
		if err != nil {
			return nil, eris.Wrapf(err, "store: list tasks from offset %d", offset)
		}
		all = append(all, page...)
		if len(page) < pageSize {
			return all, nil
		}
	}
}

// Open returns the store for driver ("sqlite" or "postgres").
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch strings.ToLower(driver) {
	case "", "sqlite":
		return NewSQLite(dsn)
	case "postgres", "postgresql":
		return NewPostgres(ctx, dsn, nil)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
}

const (
	tasksTable    = "chase_tasks"
	profilesTable = "profiles"
	failuresTable = "document_failures"
)

var taskColumns = []string{
	"client_id", "client_name", "item_name", "required_for", "target", "status",
	"priority", "channel", "due_date", "reason", "source_doc", "updated_at",
}

// taskUpsert keeps status on conflict so a re-run never resets progress.
var taskUpsert = db.UpsertConfig{
	Table:        tasksTable,
	Columns:      taskColumns,
	ConflictKeys: []string{"client_id", "item_name", "source_doc"},
	UpdateCols: []string{
		"client_name", "required_for", "target", "priority", "channel",
		"due_date", "reason", "updated_at",
	},
}

var profileUpsert = db.UpsertConfig{
	Table:        profilesTable,
	Columns:      []string{"client_id", "client_name", "source_file", "date_hint", "anchor_date", "presence", "extracted_at"},
	ConflictKeys: []string{"client_id"},
}

var failureColumns = []string{"id", "source_file", "error", "failed_stage", "created_at"}

// statusRankSQL evaluates to the lifecycle rank of the status column, or -1
// for a value outside the lifecycle.
var statusRankSQL = func() string {
	var b strings.Builder
	b.WriteString("CASE status")
	for _, st := range model.Statuses {
		b.WriteString(" WHEN '" + string(st) + "' THEN " + strconv.Itoa(st.Rank()))
	}
	b.WriteString(" ELSE -1 END")
	return b.String()
}()

func notAdvanced(key model.TaskKey, current, want model.Status) error {
	return eris.Wrapf(model.ErrStatusNotAdvanced, "task %s is %s, not moving to %s", key, current, want)
}

const taskSelect = `SELECT client_id, client_name, item_name, required_for, target, status,
	priority, channel, due_date, reason, source_doc FROM chase_tasks`

type scannable interface {
	Scan(dest ...any) error
}

func scanTask(row scannable) (model.ChaseTask, error) {
	var t model.ChaseTask
	err := row.Scan(&t.ClientID, &t.ClientName, &t.ItemName, &t.RequiredFor, &t.Target,
		&t.Status, &t.Priority, &t.Channel, &t.DueDate, &t.Reason, &t.SourceDoc)
	return t, err
}

func validateTasks(tasks []model.ChaseTask) error {
	for _, t := range tasks {
		if err := t.Validate(); err != nil {
			return eris.Wrap(err, "store: upsert tasks")
		}
	}
	return nil
}
