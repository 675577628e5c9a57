// Package chaser advances chase-task status as a function of elapsed time and
// derives the advisory action for each task.
package chaser

import (
	"fmt"
	"math"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/compliance-chaser/internal/model"
)

var (
	// ErrInvalidStatus is returned for a status outside the lifecycle set.
	ErrInvalidStatus = eris.New("chaser: unrecognized status")
	// ErrMissingDueDate is returned for a task without a due date.
	ErrMissingDueDate = model.ErrMissingDueDate
)

// Overdue thresholds in whole days.
const (
	ReminderAfterDays = 2
	EscalateAfterDays = 5
)

// DaysOverdue returns floor((now - due) / 24h). It is negative before the
// due date.
func DaysOverdue(due model.Date, now time.Time) int {
	elapsed := now.UTC().Sub(due.Time())
	return int(math.Floor(elapsed.Hours() / 24))
}

// NextStatus reports what status a task should have at now. It never
// returns a status ranked below the current one, and completed is terminal.
func NextStatus(status model.Status, due model.Date, now time.Time) (model.Status, error) {
	if !status.Valid() {
		return "", eris.Wrapf(ErrInvalidStatus, "status %q", status)
	}
	if status.Terminal() {
		return status, nil
	}
	if due.IsZero() {
		return "", eris.Wrap(ErrMissingDueDate, "chaser: next status")
	}

	next := status
	switch days := DaysOverdue(due, now); {
	case days > EscalateAfterDays:
		next = model.StatusEscalated
	case days > ReminderAfterDays:
		next = model.StatusReminderSent
	}

	if next.Rank() < status.Rank() {
		return status, nil
	}
	return next, nil
}

// RecommendAction returns the advisory instruction for task given its
// computed next status.
func RecommendAction(task model.ChaseTask, next model.Status) string {
	channel := task.Channel
	if channel == "" {
		channel = model.ChannelEmail
	}

	switch next {
	case model.StatusCompleted:
		return "No action required"
	case model.StatusEscalated:
		switch task.Target {
		case model.TargetProvider:
			return fmt.Sprintf("Escalate to phone follow-up + resend email (%s)", channel)
		case model.TargetClient, "":
			return fmt.Sprintf("Escalate: call + email reminder (%s)", channel)
		default:
			return "Escalate: notify advisor"
		}
	case model.StatusReminderSent:
		return fmt.Sprintf("Send follow-up via %s", channel)
	default:
		return fmt.Sprintf("Send initial request via %s", channel)
	}
}
