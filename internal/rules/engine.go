// Package rules turns a document's completeness profile into dated chase tasks.
package rules

import (
	"fmt"
	"strings"
	"time"

	"github.com/sells-group/compliance-chaser/internal/model"
)

// Item names for tasks that are not derived from a field name.
const (
	ItemEducationPlanningCheck  = "education_planning_check"
	ItemISAAllowanceOpportunity = "isa_allowance_opportunity"
	ItemISAAllowanceMissingData = "isa_allowance_missing_data"
	ItemPolicyNumberCollection  = "policy_number_collection"
	ItemLOAPackRequest          = "loa_pack_request"

	preMeetingPrefix = "collect_"
	pensionPrefix    = "pension_"
)

// Due-date offsets in days from the base date.
const (
	preMeetingDueDays   = 2
	pensionDueDays      = 5
	educationDueDays    = 7
	isaOpportunityDays  = 3
	isaMissingDataDays  = 10
	policyNumberDueDays = 2
	loaDueDays          = 7
)

// DefaultLOAGateMaxMissing is the largest number of missing pension fields
// at which LOA and policy-number chasing starts.
const DefaultLOAGateMaxMissing = 3

// Options tunes rule evaluation.
type Options struct {
	// PensionRequiresMention limits pension field tasks to documents that
	// mention a pension at all.
	PensionRequiresMention bool
	// LOAGateMaxMissing gates LOA and policy-number tasks.
	LOAGateMaxMissing int
}

// DefaultOptions returns the standard rule configuration.
func DefaultOptions() Options {
	return Options{
		PensionRequiresMention: true,
		LOAGateMaxMissing:      DefaultLOAGateMaxMissing,
	}
}

// Input is one document's extraction output plus its identity.
type Input struct {
	ClientID   string
	ClientName string
	SourceDoc  string
	Profile    model.CompletenessProfile
	// Anchor is the resolved document date; zero means none.
	Anchor model.Date
	// Now is the processing instant used when there is no anchor.
	Now time.Time
}

// Engine evaluates the chase rules. It is stateless and safe for concurrent use.
type Engine struct {
	opts Options
}

// NewEngine returns an Engine with opts. A non-positive gate falls back to the default.
func NewEngine(opts Options) *Engine {
	if opts.LOAGateMaxMissing <= 0 {
		opts.LOAGateMaxMissing = DefaultLOAGateMaxMissing
	}
	return &Engine{opts: opts}
}

// Build returns the tasks for in, in a fixed order: pre-meeting fields,
// pension fields, then the conditional rules.
func (e *Engine) Build(in Input) []model.ChaseTask {
	base := in.Anchor
	if base.IsZero() {
		base = model.DateOf(in.Now)
	}

	b := builder{in: in, base: base}
	p := in.Profile

	for _, field := range p.MissingPreMeeting() {
		b.add(preMeetingPrefix+field, model.StagePreAdvice, model.TargetClient,
			model.PriorityHigh, model.ChannelEmail, preMeetingDueDays,
			fmt.Sprintf("Missing %s required before advice", humanize(field)))
	}

	missingPensions := p.MissingPensions()
	if p.MentionsPension || !e.opts.PensionRequiresMention {
		for _, field := range missingPensions {
			b.add(pensionPrefix+field, model.StageAdvice, model.TargetProvider,
				model.PriorityHigh, model.ChannelEmail, pensionDueDays,
				fmt.Sprintf("Missing pension detail: %s needed for suitability work", humanize(field)))
		}
	}

	if p.MentionsChildren && !p.MentionsEducation {
		b.add(ItemEducationPlanningCheck, model.StagePreAdvice, model.TargetAdvisor,
			model.PriorityMedium, model.ChannelDashboard, educationDueDays,
			"Children mentioned but no education planning captured")
	}

	if p.MentionsISA {
		if p.ISARemainingMentioned {
			b.add(ItemISAAllowanceOpportunity, model.StageAnnualReview, model.TargetAdvisor,
				model.PriorityLow, model.ChannelDashboard, isaOpportunityDays,
				"ISA allowance appears to be available; proactive outreach opportunity")
		} else {
			b.add(ItemISAAllowanceMissingData, model.StageAnnualReview, model.TargetClient,
				model.PriorityLow, model.ChannelEmail, isaMissingDataDays,
				"ISA mentioned but remaining/used allowance not captured")
		}
	}

	if p.MentionsPension && p.MentionsProvider && len(missingPensions) <= e.opts.LOAGateMaxMissing {
		if !p.PolicyNumberPresent {
			b.add(ItemPolicyNumberCollection, model.StageMeetingPackSignoff, model.TargetClient,
				model.PriorityHigh, model.ChannelEmail, policyNumberDueDays,
				"Policy numbers become mandatory once LOA chasing begins")
		}
		if !p.LOAPresent {
			b.add(ItemLOAPackRequest, model.StageSuitabilityFinal, model.TargetProvider,
				model.PriorityHigh, model.ChannelEmail, loaDueDays,
				"LOA required near final suitability stage; created only when pension data is largely complete")
		}
	}

	return b.tasks
}

type builder struct {
	in    Input
	base  model.Date
	tasks []model.ChaseTask
}

func (b *builder) add(item string, stage model.Stage, target model.Target, priority model.Priority, channel model.Channel, dueDays int, reason string) {
	b.tasks = append(b.tasks, model.ChaseTask{
		ClientID:    b.in.ClientID,
		ClientName:  b.in.ClientName,
		ItemName:    item,
		RequiredFor: stage,
		Target:      target,
		Status:      model.StatusNotStarted,
		Priority:    priority,
		Channel:     channel,
		DueDate:     b.base.AddDays(dueDays),
		Reason:      reason,
		SourceDoc:   b.in.SourceDoc,
	})
}

func humanize(field string) string {
	return strings.ReplaceAll(field, "_", " ")
}
