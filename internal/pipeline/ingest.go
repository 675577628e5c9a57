package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/compliance-chaser/internal/model"
	"github.com/sells-group/compliance-chaser/internal/source"
)

// Sink persists the products of an ingest run. store.Store satisfies it.
type Sink interface {
	SaveProfile(ctx context.Context, p model.ExtractedProfile) error
	UpsertTasks(ctx context.Context, tasks []model.ChaseTask) (int64, error)
	RecordFailures(ctx context.Context, failures []model.DocumentFailure) error
}

// IngestResult summarizes one ingest run.
type IngestResult struct {
	*BatchResult
	Documents int   `json:"documents"`
	Upserted  int64 `json:"upserted"`
}

// Ingest lists src, processes every document against now and persists
// profiles, tasks and failures to sink. Files the source could not read are
// recorded as failures alongside documents that failed processing.
func (p *Processor) Ingest(ctx context.Context, src source.Source, sink Sink, concurrency int, now time.Time) (*IngestResult, error) {
	listing, err := src.List(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: list source")
	}

	batch, err := p.ProcessBatch(ctx, listing.Documents, concurrency, now)
	if err != nil {
		return nil, err
	}
	for _, fe := range listing.Errors {
		batch.Failures = append(batch.Failures, NewFailure(fe.Name, StageSource, fe.Err, now))
	}

	for _, out := range batch.Outputs {
		if err := sink.SaveProfile(ctx, out.Profile); err != nil {
			return nil, eris.Wrapf(err, "pipeline: save profile %s", out.Profile.SourceFile)
		}
	}

	n, err := sink.UpsertTasks(ctx, batch.Tasks)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: upsert tasks")
	}

	if len(batch.Failures) > 0 {
		if err := sink.RecordFailures(ctx, batch.Failures); err != nil {
			return nil, eris.Wrap(err, "pipeline: record failures")
		}
	}

	zap.L().Info("pipeline: ingest complete",
		zap.Int("documents", len(listing.Documents)+len(listing.Errors)),
		zap.Int("tasks", len(batch.Tasks)),
		zap.Int64("upserted", n),
		zap.Int("failures", len(batch.Failures)),
	)

	return &IngestResult{
		BatchResult: batch,
		Documents:   len(listing.Documents) + len(listing.Errors),
		Upserted:    n,
	}, nil
}
