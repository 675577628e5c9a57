package chaser

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/compliance-chaser/internal/model"
)

// StatusWriter persists a forward status move. A write that would not
// advance the task returns model.ErrStatusNotAdvanced. store.Store
// satisfies it.
type StatusWriter interface {
	UpdateTaskStatus(ctx context.Context, key model.TaskKey, status model.Status) error
}

// Apply writes every changed evaluation in r back through w and returns
// how many statuses were written. Tasks that moved on since r was
// evaluated, for example completed in the meantime, are skipped.
func Apply(ctx context.Context, w StatusWriter, r Report) (int, error) {
	written := 0
	for _, ev := range r.Changed() {
		err := w.UpdateTaskStatus(ctx, ev.Task.Key(), ev.Next)
		if eris.Is(err, model.ErrStatusNotAdvanced) {
			zap.L().Debug("chaser: task moved on since evaluation",
				zap.String("task", ev.Task.Key().String()),
				zap.String("next", string(ev.Next)),
			)
			continue
		}
		if err != nil {
			return written, eris.Wrapf(err, "chaser: apply %s", ev.Task.Key())
		}
		written++
	}
	return written, nil
}

// Complete marks one task completed. Completing a completed task is a no-op.
func Complete(ctx context.Context, w StatusWriter, key model.TaskKey) error {
	err := w.UpdateTaskStatus(ctx, key, model.StatusCompleted)
	if eris.Is(err, model.ErrStatusNotAdvanced) {
		return nil
	}
	return eris.Wrapf(err, "chaser: complete %s", key)
}
