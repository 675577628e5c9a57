package chaser

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/compliance-chaser/internal/model"
)

func task(client, item string, status model.Status, due model.Date) model.ChaseTask {
	return model.ChaseTask{
		ClientID:    "DOC_" + client[:1],
		ClientName:  client,
		ItemName:    item,
		RequiredFor: model.StagePreAdvice,
		Target:      model.TargetClient,
		Status:      status,
		Priority:    model.PriorityHigh,
		Channel:     model.ChannelEmail,
		DueDate:     due,
		Reason:      "Missing " + item,
		SourceDoc:   client + ".docx",
	}
}

func TestEvaluate(t *testing.T) {
	t.Parallel()

	tasks := []model.ChaseTask{
		task("Jane Doe", "collect_risk_profile", model.StatusNotStarted, dueAgo(6)),
		task("Jane Doe", "collect_vulnerabilities", "NOT_STARTED", dueAgo(3)),
		task("John Smith", "pension_exit_penalties", model.StatusNotStarted, model.Date{}),
		task("John Smith", "loa_pack_request", "paused", dueAgo(3)),
		task("John Smith", "pension_scheme_type", model.StatusCompleted, dueAgo(40)),
		task("John Smith", "collect_personal_details", model.StatusNotStarted, dueAgo(1)),
	}

	r := Evaluate(tasks, now)
	assert.Equal(t, now, r.Now)
	require.Len(t, r.Evaluations, 4)
	require.Len(t, r.Rejections, 2)

	assert.Equal(t, model.StatusEscalated, r.Evaluations[0].Next)
	assert.True(t, r.Evaluations[0].Changed)
	assert.Equal(t, 6, r.Evaluations[0].DaysOverdue)
	assert.Equal(t, "Escalate: call + email reminder (email)", r.Evaluations[0].Action)

	assert.Equal(t, model.StatusNotStarted, r.Evaluations[1].Task.Status, "status normalized")
	assert.Equal(t, model.StatusReminderSent, r.Evaluations[1].Next)

	assert.Equal(t, model.StatusCompleted, r.Evaluations[2].Next)
	assert.False(t, r.Evaluations[2].Changed)

	assert.Equal(t, model.StatusNotStarted, r.Evaluations[3].Next)
	assert.False(t, r.Evaluations[3].Changed)

	assert.Equal(t, 2, r.Rejections[0].Index)
	assert.True(t, errors.Is(r.Rejections[0].Err, ErrMissingDueDate))
	assert.Equal(t, "pension_exit_penalties", r.Rejections[0].Key.ItemName)
	assert.Equal(t, 3, r.Rejections[1].Index)
	assert.True(t, errors.Is(r.Rejections[1].Err, ErrInvalidStatus))
	assert.NotEmpty(t, r.Rejections[1].Reason)

	changed := r.Changed()
	require.Len(t, changed, 2)
	assert.Equal(t, "collect_risk_profile", changed[0].Task.ItemName)
	assert.Equal(t, "collect_vulnerabilities", changed[1].Task.ItemName)
}

func TestEvaluate_Empty(t *testing.T) {
	t.Parallel()

	r := Evaluate(nil, now)
	assert.Empty(t, r.Evaluations)
	assert.Empty(t, r.Rejections)
	assert.Empty(t, Group(r))
}

func TestGroup(t *testing.T) {
	t.Parallel()

	tasks := []model.ChaseTask{
		task("John Smith", "pension_exit_penalties", model.StatusNotStarted, dueAgo(4)),
		task("Jane Doe", "collect_risk_profile", model.StatusNotStarted, dueAgo(0)),
		task("John Smith", "loa_pack_request", model.StatusReminderSent, dueAgo(7)),
	}
	unnamed := task("X", "collect_vulnerabilities", model.StatusNotStarted, dueAgo(0))
	unnamed.ClientName = ""
	tasks = append(tasks, unnamed)

	groups := Group(Evaluate(tasks, now))
	require.Len(t, groups, 3)

	assert.Equal(t, "John Smith", groups[0].Client)
	require.Len(t, groups[0].Tasks, 2)
	first := groups[0].Tasks[0]
	assert.Equal(t, "pension_exit_penalties", first.ItemName)
	assert.Equal(t, "not_started -> reminder_sent", first.State)
	assert.Equal(t, dueAgo(4), first.DueDate)
	assert.Equal(t, "Send follow-up via email", first.RecommendedAction)
	assert.Equal(t, "Missing pension_exit_penalties", first.Reason)
	assert.Equal(t, "John Smith.docx", first.SourceDoc)
	assert.Equal(t, model.TargetClient, first.Target)
	assert.Equal(t, model.PriorityHigh, first.Priority)
	assert.Equal(t, model.StagePreAdvice, first.RequiredFor)
	assert.Equal(t, "reminder_sent -> escalated", groups[0].Tasks[1].State)

	assert.Equal(t, "Jane Doe", groups[1].Client)
	assert.Equal(t, "not_started -> not_started", groups[1].Tasks[0].State)

	assert.Equal(t, UnknownClient, groups[2].Client)
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	provider := task("John Smith", "loa_pack_request", model.StatusNotStarted, dueAgo(8))
	provider.Target = model.TargetProvider
	tasks := []model.ChaseTask{
		task("Jane Doe", "collect_risk_profile", model.StatusNotStarted, dueAgo(3)),
		provider,
		task("Jane Doe", "collect_vulnerabilities", model.StatusCompleted, dueAgo(3)),
		task("Jane Doe", "collect_personal_details", model.StatusNotStarted, model.Date{}),
	}

	s := Summarize(Evaluate(tasks, now))
	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 2, s.Changed)
	assert.Equal(t, 1, s.Rejected)
	assert.Equal(t, map[model.Status]int{
		model.StatusNotStarted:   0,
		model.StatusReminderSent: 1,
		model.StatusEscalated:    1,
		model.StatusCompleted:    1,
	}, s.ByStatus)
	assert.Equal(t, 2, s.ByTarget[model.TargetClient])
	assert.Equal(t, 1, s.ByTarget[model.TargetProvider])
}
