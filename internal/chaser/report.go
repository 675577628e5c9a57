package chaser

import (
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/compliance-chaser/internal/model"
)

// UnknownClient groups tasks that carry no client name.
const UnknownClient = "Unknown"

// Evaluation is one task judged at the report's instant.
type Evaluation struct {
	Task        model.ChaseTask `json:"task"`
	Next        model.Status    `json:"next_status"`
	DaysOverdue int             `json:"days_overdue"`
	Action      string          `json:"recommended_action"`
	Changed     bool            `json:"changed"`
}

// Rejection is a task the state machine refused to evaluate.
type Rejection struct {
	Index  int           `json:"index"`
	Key    model.TaskKey `json:"key"`
	Reason string        `json:"reason"`
	Err    error         `json:"-"`
}

// Report is the result of evaluating a batch of tasks against one instant.
type Report struct {
	Now         time.Time    `json:"now"`
	Evaluations []Evaluation `json:"evaluations"`
	Rejections  []Rejection  `json:"rejections,omitempty"`
}

// Evaluate judges every task against the same now. Malformed tasks are
// reported as rejections and do not stop the batch. Statuses are
// normalized first, so legacy upper-case values are accepted.
func Evaluate(tasks []model.ChaseTask, now time.Time) Report {
	r := Report{
		Now:         now,
		Evaluations: make([]Evaluation, 0, len(tasks)),
	}

	for i, t := range tasks {
		status, err := model.ParseStatus(string(t.Status))
		if err != nil {
			r.reject(i, t, eris.Wrapf(ErrInvalidStatus, "status %q", t.Status))
			continue
		}
		t.Status = status

		next, err := NextStatus(status, t.DueDate, now)
		if err != nil {
			r.reject(i, t, err)
			continue
		}

		ev := Evaluation{
			Task:    t,
			Next:    next,
			Action:  RecommendAction(t, next),
			Changed: next != status,
		}
		if !t.DueDate.IsZero() {
			ev.DaysOverdue = DaysOverdue(t.DueDate, now)
		}
		r.Evaluations = append(r.Evaluations, ev)
	}
	return r
}

func (r *Report) reject(i int, t model.ChaseTask, err error) {
	r.Rejections = append(r.Rejections, Rejection{
		Index:  i,
		Key:    t.Key(),
		Reason: err.Error(),
		Err:    err,
	})
}

// Changed returns the evaluations whose status moved.
func (r Report) Changed() []Evaluation {
	var out []Evaluation
	for _, ev := range r.Evaluations {
		if ev.Changed {
			out = append(out, ev)
		}
	}
	return out
}

// GroupItem is one task line of the per-client query projection.
type GroupItem struct {
	ItemName          string         `json:"item_name"`
	State             string         `json:"state"`
	DueDate           model.Date     `json:"due_date"`
	RecommendedAction string         `json:"recommended_action"`
	Reason            string         `json:"reason"`
	SourceDoc         string         `json:"source_doc"`
	Target            model.Target   `json:"target"`
	Priority          model.Priority `json:"priority"`
	RequiredFor       model.Stage    `json:"required_for"`
}

// ClientGroup holds one client's evaluated tasks.
type ClientGroup struct {
	Client string      `json:"client"`
	Tasks  []GroupItem `json:"tasks"`
}

// Group projects a report into per-client groups in first-seen order.
func Group(r Report) []ClientGroup {
	var groups []ClientGroup
	index := make(map[string]int)

	for _, ev := range r.Evaluations {
		name := ev.Task.ClientName
		if name == "" {
			name = UnknownClient
		}
		i, ok := index[name]
		if !ok {
			i = len(groups)
			index[name] = i
			groups = append(groups, ClientGroup{Client: name})
		}
		groups[i].Tasks = append(groups[i].Tasks, GroupItem{
			ItemName:          ev.Task.ItemName,
			State:             string(ev.Task.Status) + " -> " + string(ev.Next),
			DueDate:           ev.Task.DueDate,
			RecommendedAction: ev.Action,
			Reason:            ev.Task.Reason,
			SourceDoc:         ev.Task.SourceDoc,
			Target:            ev.Task.Target,
			Priority:          ev.Task.Priority,
			RequiredFor:       ev.Task.RequiredFor,
		})
	}
	return groups
}

// Summary counts a report by next status and target.
type Summary struct {
	Total    int                  `json:"total"`
	Changed  int                  `json:"changed"`
	Rejected int                  `json:"rejected"`
	ByStatus map[model.Status]int `json:"by_status"`
	ByTarget map[model.Target]int `json:"by_target"`
}

// Summarize counts r. Every lifecycle status has an entry, zero or not.
func Summarize(r Report) Summary {
	s := Summary{
		Total:    len(r.Evaluations) + len(r.Rejections),
		Rejected: len(r.Rejections),
		ByStatus: make(map[model.Status]int, len(model.Statuses)),
		ByTarget: make(map[model.Target]int),
	}
	for _, st := range model.Statuses {
		s.ByStatus[st] = 0
	}
	for _, ev := range r.Evaluations {
		s.ByStatus[ev.Next]++
		s.ByTarget[ev.Task.Target]++
		if ev.Changed {
			s.Changed++
		}
	}
	return s
}
