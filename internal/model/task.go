package model

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

var (
	// ErrMissingDueDate is returned for a task that has no due date.
	ErrMissingDueDate = eris.New("model: task has no due date")
	// ErrStatusNotAdvanced is returned when a status write would not move a
	// task forward along its lifecycle.
	ErrStatusNotAdvanced = eris.New("model: status not advanced")
	// ErrInvalidTask is returned for a task with missing or unrecognized fields.
	ErrInvalidTask = eris.New("model: invalid task")
)

// ChaseTask is one outstanding item to obtain from a client, provider or advisor.
type ChaseTask struct {
	ClientID    string   `json:"client_id"`
	ClientName  string   `json:"client_name"`
	ItemName    string   `json:"item_name"`
	RequiredFor Stage    `json:"required_for"`
	Target      Target   `json:"target"`
	Status      Status   `json:"status"`
	Priority    Priority `json:"priority"`
	Channel     Channel  `json:"channel"`
	DueDate     Date     `json:"due_date"`
	Reason      string   `json:"reason"`
	SourceDoc   string   `json:"source_doc"`
}

// TaskKey identifies a task across re-runs on the same document.
type TaskKey struct {
	ClientID  string `json:"client_id"`
	ItemName  string `json:"item_name"`
	SourceDoc string `json:"source_doc"`
}

func (k TaskKey) String() string {
	return k.ClientID + "/" + k.ItemName + "@" + k.SourceDoc
}

// Key returns the identity tuple of t.
func (t ChaseTask) Key() TaskKey {
	return TaskKey{ClientID: t.ClientID, ItemName: t.ItemName, SourceDoc: t.SourceDoc}
}

// Validate checks the invariants every stored or evaluated task must satisfy.
func (t ChaseTask) Validate() error {
	var errs []string
	if t.ClientID == "" {
		errs = append(errs, "client_id is required")
	}
	if t.ItemName == "" {
		errs = append(errs, "item_name is required")
	}
	if strings.TrimSpace(t.Reason) == "" {
		errs = append(errs, "reason is required")
	}
	if !t.RequiredFor.Valid() {
		errs = append(errs, "unknown required_for "+string(t.RequiredFor))
	}
	if !t.Target.Valid() {
		errs = append(errs, "unknown target "+string(t.Target))
	}
	if !t.Status.Valid() {
		errs = append(errs, "unknown status "+string(t.Status))
	}
	if !t.Priority.Valid() {
		errs = append(errs, "unknown priority "+string(t.Priority))
	}
	if !t.Channel.Valid() {
		errs = append(errs, "unknown channel "+string(t.Channel))
	}
	if t.DueDate.IsZero() {
		errs = append(errs, "due_date is required")
		return eris.Wrapf(ErrMissingDueDate, "task %s: %s", t.Key(), strings.Join(errs, "; "))
	}
	if len(errs) > 0 {
		return eris.Wrapf(ErrInvalidTask, "task %s: %s", t.Key(), strings.Join(errs, "; "))
	}
	return nil
}

// Document is one source document as plain text.
type Document struct {
	FileName string `json:"file_name"`
	Text     string `json:"text"`
}

// DocumentFailure records a document that could not be processed.
type DocumentFailure struct {
	ID          string    `json:"id"`
	SourceFile  string    `json:"source_file"`
	Error       string    `json:"error"`
	FailedStage string    `json:"failed_stage"`
	CreatedAt   time.Time `json:"created_at"`
}
