package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/compliance-chaser/internal/model"
)

// DefaultConcurrency bounds ProcessBatch when no positive limit is given.
const DefaultConcurrency = 4

// BatchResult is the merged outcome of a batch run.
type BatchResult struct {
	Now      time.Time               `json:"now"`
	Outputs  []*Output               `json:"outputs"`
	Tasks    []model.ChaseTask       `json:"tasks"`
	Failures []model.DocumentFailure `json:"failures,omitempty"`
}

// ProcessBatch processes docs concurrently against the same now. Each worker
// writes only its own slot; tasks are concatenated in input order afterwards.
// A failing document is recorded and never aborts the rest of the batch.
func (p *Processor) ProcessBatch(ctx context.Context, docs []model.Document, concurrency int, now time.Time) (*BatchResult, error) {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	zap.L().Info("pipeline: processing batch",
		zap.Int("documents", len(docs)),
		zap.Int("concurrency", concurrency),
	)

	outputs := make([]*Output, len(docs))
	errs := make([]error, len(docs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, doc := range docs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outputs[i], errs[i] = p.Process(doc, now)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "pipeline: batch processing")
	}

	res := &BatchResult{Now: now}
	for i, doc := range docs {
		if errs[i] != nil {
			stage := StageProcess
			if eris.Is(errs[i], ErrEmptyDocument) {
				stage = StageValidate
			}
			zap.L().Warn("pipeline: document failed",
				zap.String("file", doc.FileName),
				zap.String("stage", stage),
				zap.Error(errs[i]),
			)
			res.Failures = append(res.Failures, NewFailure(doc.FileName, stage, errs[i], now))
			continue
		}
		res.Outputs = append(res.Outputs, outputs[i])
		res.Tasks = append(res.Tasks, outputs[i].Tasks...)
	}

	zap.L().Info("pipeline: batch complete",
		zap.Int("succeeded", len(res.Outputs)),
		zap.Int("failed", len(res.Failures)),
		zap.Int("tasks", len(res.Tasks)),
	)
	return res, nil
}

// NewFailure builds a DocumentFailure with a fresh id.
func NewFailure(file, stage string, err error, at time.Time) model.DocumentFailure {
	msg := err.Error()
	if len(msg) > 500 {
		msg = msg[:500]
	}
	return model.DocumentFailure{
		ID:          uuid.NewString(),
		SourceFile:  file,
		Error:       msg,
		FailedStage: stage,
		CreatedAt:   at.UTC(),
	}
}
