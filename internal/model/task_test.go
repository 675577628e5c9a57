package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTask() ChaseTask {
	return ChaseTask{
		ClientID:    "DOC_B2BB",
		ClientName:  "Jane Doe",
		ItemName:    "collect_risk_profile",
		RequiredFor: StagePreAdvice,
		Target:      TargetClient,
		Status:      StatusNotStarted,
		Priority:    PriorityHigh,
		Channel:     ChannelEmail,
		DueDate:     NewDate(2025, time.March, 14),
		Reason:      "Missing risk profile required before advice",
		SourceDoc:   "Report A.docx",
	}
}

func TestParseStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw     string
		want    Status
		wantErr bool
	}{
		{"not_started", StatusNotStarted, false},
		{"NOT_STARTED", StatusNotStarted, false},
		{" Reminder_Sent ", StatusReminderSent, false},
		{"ESCALATED", StatusEscalated, false},
		{"completed", StatusCompleted, false},
		{"requested", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			t.Parallel()
			got, err := ParseStatus(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidEnum)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStatusRank(t *testing.T) {
	t.Parallel()

	assert.Less(t, StatusNotStarted.Rank(), StatusReminderSent.Rank())
	assert.Less(t, StatusReminderSent.Rank(), StatusEscalated.Rank())
	assert.Less(t, StatusEscalated.Rank(), StatusCompleted.Rank())
	assert.Equal(t, -1, Status("bogus").Rank())
	assert.True(t, StatusCompleted.Terminal())
	assert.False(t, StatusEscalated.Terminal())
}

func TestParseEnums_RejectUnknown(t *testing.T) {
	t.Parallel()

	_, err := ParsePriority("critical")
	assert.ErrorIs(t, err, ErrInvalidEnum)
	_, err = ParseChannel("fax")
	assert.ErrorIs(t, err, ErrInvalidEnum)
	_, err = ParseTarget("investment_firm")
	assert.ErrorIs(t, err, ErrInvalidEnum)
	_, err = ParseStage("implementation")
	assert.ErrorIs(t, err, ErrInvalidEnum)

	p, err := ParsePriority("URGENT")
	require.NoError(t, err)
	assert.Equal(t, PriorityUrgent, p)
	s, err := ParseStage("Post_Advice")
	require.NoError(t, err)
	assert.Equal(t, StagePostAdvice, s)
}

func TestChaseTask_Validate(t *testing.T) {
	t.Parallel()

	t.Run("valid task", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, validTask().Validate())
	})

	t.Run("missing due date", func(t *testing.T) {
		t.Parallel()
		task := validTask()
		task.DueDate = Date{}
		assert.ErrorIs(t, task.Validate(), ErrMissingDueDate)
	})

	t.Run("missing due date with other defects", func(t *testing.T) {
		t.Parallel()
		task := validTask()
		task.DueDate = Date{}
		task.Reason = ""
		task.Channel = "fax"
		err := task.Validate()
		require.ErrorIs(t, err, ErrMissingDueDate)
		assert.Contains(t, err.Error(), "reason is required")
		assert.Contains(t, err.Error(), "unknown channel fax")
		assert.Contains(t, err.Error(), "due_date is required")
	})

	t.Run("empty reason", func(t *testing.T) {
		t.Parallel()
		task := validTask()
		task.Reason = "  "
		err := task.Validate()
		require.ErrorIs(t, err, ErrInvalidTask)
		assert.Contains(t, err.Error(), "reason is required")
	})

	t.Run("unknown status", func(t *testing.T) {
		t.Parallel()
		task := validTask()
		task.Status = "REQUESTED"
		err := task.Validate()
		require.ErrorIs(t, err, ErrInvalidTask)
		assert.Contains(t, err.Error(), "unknown status")
	})
}

func TestChaseTask_JSONRoundTrip(t *testing.T) {
	t.Parallel()

	task := validTask()
	b, err := json.Marshal(task)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"due_date":"2025-03-14"`)
	assert.Contains(t, string(b), `"status":"not_started"`)

	var got ChaseTask
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, task, got)
}

func TestChaseTask_Key(t *testing.T) {
	t.Parallel()

	k := validTask().Key()
	assert.Equal(t, TaskKey{ClientID: "DOC_B2BB", ItemName: "collect_risk_profile", SourceDoc: "Report A.docx"}, k)
	assert.Equal(t, "DOC_B2BB/collect_risk_profile@Report A.docx", k.String())
}
