package chaser

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/compliance-chaser/internal/model"
)

var now = time.Date(2025, time.June, 15, 10, 30, 0, 0, time.UTC)

func dueAgo(days int) model.Date {
	return model.DateOf(now).AddDays(-days)
}

func TestDaysOverdue(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, DaysOverdue(model.DateOf(now), now))
	assert.Equal(t, 3, DaysOverdue(dueAgo(3), now))
	assert.Equal(t, -1, DaysOverdue(model.DateOf(now).AddDays(1), now))
	assert.Equal(t, -10, DaysOverdue(model.DateOf(now).AddDays(10), now))

	// Exactly at midnight of the due date plus two days.
	midnight := time.Date(2025, time.June, 17, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 2, DaysOverdue(model.NewDate(2025, time.June, 15), midnight))
	assert.Equal(t, 1, DaysOverdue(model.NewDate(2025, time.June, 15), midnight.Add(-time.Second)))
}

func TestNextStatus_Boundaries(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status model.Status
		days   int
		want   model.Status
	}{
		{"not yet due", model.StatusNotStarted, -4, model.StatusNotStarted},
		{"due today", model.StatusNotStarted, 0, model.StatusNotStarted},
		{"two days overdue unchanged", model.StatusNotStarted, 2, model.StatusNotStarted},
		{"three days overdue reminds", model.StatusNotStarted, 3, model.StatusReminderSent},
		{"five days overdue reminds", model.StatusNotStarted, 5, model.StatusReminderSent},
		{"six days overdue escalates", model.StatusNotStarted, 6, model.StatusEscalated},
		{"reminder stays before threshold", model.StatusReminderSent, 1, model.StatusReminderSent},
		{"reminder escalates", model.StatusReminderSent, 9, model.StatusEscalated},
		{"escalated never drops to reminder", model.StatusEscalated, 4, model.StatusEscalated},
		{"escalated never drops when not due", model.StatusEscalated, -3, model.StatusEscalated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := NextStatus(tt.status, dueAgo(tt.days), now)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNextStatus_CompletedTerminal(t *testing.T) {
	t.Parallel()

	for _, due := range []model.Date{
		dueAgo(1000), dueAgo(6), dueAgo(0), model.DateOf(now).AddDays(5000), {},
	} {
		got, err := NextStatus(model.StatusCompleted, due, now)
		require.NoError(t, err)
		assert.Equal(t, model.StatusCompleted, got)
	}
}

func TestNextStatus_Idempotent(t *testing.T) {
	t.Parallel()

	first, err := NextStatus(model.StatusNotStarted, dueAgo(4), now)
	require.NoError(t, err)
	second, err := NextStatus(first, dueAgo(4), now)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestNextStatus_Errors(t *testing.T) {
	t.Parallel()

	_, err := NextStatus(model.StatusNotStarted, model.Date{}, now)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingDueDate))

	_, err = NextStatus("snoozed", dueAgo(3), now)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidStatus))

	_, err = NextStatus("NOT_STARTED", dueAgo(3), now)
	require.Error(t, err, "raw values must be normalized by the caller")
	assert.True(t, errors.Is(err, ErrInvalidStatus))
}

func TestRecommendAction(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		target  model.Target
		channel model.Channel
		next    model.Status
		want    string
	}{
		{"escalated provider", model.TargetProvider, model.ChannelEmail, model.StatusEscalated, "Escalate to phone follow-up + resend email (email)"},
		{"escalated client", model.TargetClient, model.ChannelSMS, model.StatusEscalated, "Escalate: call + email reminder (sms)"},
		{"escalated advisor", model.TargetAdvisor, model.ChannelDashboard, model.StatusEscalated, "Escalate: notify advisor"},
		{"reminder", model.TargetClient, model.ChannelEmail, model.StatusReminderSent, "Send follow-up via email"},
		{"reminder dashboard", model.TargetAdvisor, model.ChannelDashboard, model.StatusReminderSent, "Send follow-up via dashboard"},
		{"initial", model.TargetProvider, model.ChannelPhone, model.StatusNotStarted, "Send initial request via phone"},
		{"default channel", model.TargetClient, "", model.StatusNotStarted, "Send initial request via email"},
		{"completed", model.TargetClient, model.ChannelEmail, model.StatusCompleted, "No action required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			task := model.ChaseTask{Target: tt.target, Channel: tt.channel}
			assert.Equal(t, tt.want, RecommendAction(task, tt.next))
		})
	}
}
