// Package pipeline runs documents through extraction, anchor resolution and
// the rule engine, one document at a time or as a concurrent batch.
package pipeline

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/compliance-chaser/internal/anchor"
	"github.com/sells-group/compliance-chaser/internal/extract"
	"github.com/sells-group/compliance-chaser/internal/identity"
	"github.com/sells-group/compliance-chaser/internal/model"
	"github.com/sells-group/compliance-chaser/internal/rules"
)

// ErrEmptyDocument is returned for a document with no text.
var ErrEmptyDocument = eris.New("pipeline: document has no text")

// Failure stages recorded on DocumentFailure.
const (
	StageValidate = "validate"
	StageProcess  = "process"
	StageSource   = "source"
)

// Output is the result of processing one document.
type Output struct {
	Profile model.ExtractedProfile `json:"profile"`
	Tasks   []model.ChaseTask      `json:"tasks"`
	Anchor  anchor.Outcome         `json:"anchor_outcome"`
}

// Processor turns one document into a profile and its chase tasks.
type Processor struct {
	extractor *extract.Extractor
	engine    *rules.Engine
}

// NewProcessor creates a Processor. Nil arguments fall back to the default
// keyword table and rule options.
func NewProcessor(ex *extract.Extractor, eng *rules.Engine) *Processor {
	if ex == nil {
		ex = extract.New(nil)
	}
	if eng == nil {
		eng = rules.NewEngine(rules.DefaultOptions())
	}
	return &Processor{extractor: ex, engine: eng}
}

// Process runs doc through every step using now as the batch instant. A
// panic inside any step is returned as an error for this document only.
func (p *Processor) Process(doc model.Document, now time.Time) (out *Output, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = eris.Errorf("pipeline: panic processing %s: %v", doc.FileName, r)
		}
	}()

	if strings.TrimSpace(doc.Text) == "" {
		return nil, eris.Wrapf(ErrEmptyDocument, "pipeline: %s", doc.FileName)
	}

	clientID := identity.ClientID(doc.FileName)
	res := p.extractor.Extract(doc)

	name := res.ClientNameGuess
	if name == "" {
		name = identity.DisplayNameFromFile(doc.FileName)
	}

	anchorDate, outcome := anchor.Resolve(res.DateHint, now)
	switch outcome {
	case anchor.OutcomeImplausible, anchor.OutcomeUnparseable:
		zap.L().Warn("pipeline: anchor date discarded",
			zap.String("file", doc.FileName),
			zap.String("date_hint", res.DateHint),
			zap.String("outcome", string(outcome)),
		)
	}

	profile := model.ExtractedProfile{
		ClientID:    clientID,
		ClientName:  name,
		SourceFile:  doc.FileName,
		DateHint:    res.DateHint,
		Presence:    res.Profile,
		ExtractedAt: now.UTC(),
	}
	if !anchorDate.IsZero() {
		d := anchorDate
		profile.AnchorDate = &d
	}

	tasks := p.engine.Build(rules.Input{
		ClientID:   clientID,
		ClientName: name,
		SourceDoc:  doc.FileName,
		Profile:    res.Profile,
		Anchor:     anchorDate,
		Now:        now,
	})

	return &Output{Profile: profile, Tasks: tasks, Anchor: outcome}, nil
}
