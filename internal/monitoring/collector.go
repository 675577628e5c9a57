// Package monitoring periodically evaluates stored chase tasks and document
// failures and posts alerts to a webhook when thresholds are crossed.
package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/compliance-chaser/internal/chaser"
	"github.com/sells-group/compliance-chaser/internal/model"
	"github.com/sells-group/compliance-chaser/internal/store"
)

// Snapshot is a point-in-time view of the chase backlog.
type Snapshot struct {
	TasksTotal int                  `json:"tasks_total"`
	ByStatus   map[model.Status]int `json:"by_status"`

	// Evaluated against CollectedAt.
	DueForReminder   int `json:"due_for_reminder"`
	DueForEscalation int `json:"due_for_escalation"`
	Overdue          int `json:"overdue"`
	Rejected         int `json:"rejected"`

	// Within the lookback window.
	RecentFailures int `json:"recent_failures"`

	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// Collector reads tasks and failures from the store.
type Collector struct {
	store store.Store
	now   func() time.Time
}

// NewCollector creates a collector over st.
func NewCollector(st store.Store) *Collector {
	return &Collector{store: st, now: time.Now}
}

// failureScanLimit bounds how many recent failures one snapshot inspects.
const failureScanLimit = 1000

// Collect builds a snapshot. Every task is judged against the same instant.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*Snapshot, error) {
	now := c.now().UTC()
	snap := &Snapshot{
		ByStatus:      make(map[model.Status]int, len(model.Statuses)),
		LookbackHours: lookbackHours,
		CollectedAt:   now,
	}
	for _, st := range model.Statuses {
		snap.ByStatus[st] = 0
	}

	tasks, err := store.ListAllTasks(ctx, c.store, store.TaskFilter{})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list tasks")
	}
	snap.TasksTotal = len(tasks)
	for _, t := range tasks {
		snap.ByStatus[t.Status]++
	}

	report := chaser.Evaluate(tasks, now)
	snap.Rejected = len(report.Rejections)
	for _, ev := range report.Evaluations {
		if ev.Next != model.StatusCompleted && ev.DaysOverdue > 0 {
			snap.Overdue++
		}
		if !ev.Changed {
			continue
		}
		switch ev.Next {
		case model.StatusReminderSent:
			snap.DueForReminder++
		case model.StatusEscalated:
			snap.DueForEscalation++
		}
	}

	failures, err := c.store.ListFailures(ctx, failureScanLimit)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list failures")
	}
	cutoff := now.Add(-time.Duration(lookbackHours) * time.Hour)
	for _, f := range failures {
		if !f.CreatedAt.Before(cutoff) {
			snap.RecentFailures++
		}
	}

	return snap, nil
}
