package model

import "time"

// Pre-meeting fact categories required before advice can be given.
const (
	FieldPersonalDetails      = "personal_details"
	FieldIncomeEmploymentTax  = "income_employment_tax"
	FieldObjectivesPriorities = "objectives_priorities"
	FieldRiskProfile          = "risk_profile"
	FieldVulnerabilities      = "vulnerabilities"
)

// Pension fact categories required for suitability work.
const (
	FieldCurrentValuation     = "current_valuation"
	FieldFundBreakdown        = "fund_breakdown"
	FieldContributionHistory  = "contribution_history"
	FieldTransferValue        = "transfer_value"
	FieldExitPenalties        = "exit_penalties"
	FieldTransferRestrictions = "transfer_restrictions"
	FieldSchemeType           = "scheme_type"
	FieldGuaranteedBenefits   = "guaranteed_benefits"
)

// PreMeetingFields is the fixed pre-meeting field set in canonical order.
var PreMeetingFields = []string{
	FieldPersonalDetails,
	FieldIncomeEmploymentTax,
	FieldObjectivesPriorities,
	FieldRiskProfile,
	FieldVulnerabilities,
}

// PensionFields is the fixed pension field set in canonical order.
var PensionFields = []string{
	FieldCurrentValuation,
	FieldFundBreakdown,
	FieldContributionHistory,
	FieldTransferValue,
	FieldExitPenalties,
	FieldTransferRestrictions,
	FieldSchemeType,
	FieldGuaranteedBenefits,
}

// CompletenessProfile records which mandatory facts a document contains.
// Every key of PreMeetingFields and PensionFields is always present.
type CompletenessProfile struct {
	PreMeeting            map[string]bool `json:"pre_meeting"`
	Pensions              map[string]bool `json:"pensions"`
	LOAPresent            bool            `json:"loa"`
	PolicyNumberPresent   bool            `json:"policy_number_present"`
	MentionsPension       bool            `json:"mentions_pension"`
	MentionsProvider      bool            `json:"mentions_provider"`
	MentionsChildren      bool            `json:"mentions_children"`
	MentionsEducation     bool            `json:"mentions_education"`
	MentionsISA           bool            `json:"mentions_isa"`
	ISARemainingMentioned bool            `json:"isa_remaining_mentioned"`
}

// NewCompletenessProfile returns a profile with every fixed field set to false.
func NewCompletenessProfile() CompletenessProfile {
	p := CompletenessProfile{
		PreMeeting: make(map[string]bool, len(PreMeetingFields)),
		Pensions:   make(map[string]bool, len(PensionFields)),
	}
	for _, f := range PreMeetingFields {
		p.PreMeeting[f] = false
	}
	for _, f := range PensionFields {
		p.Pensions[f] = false
	}
	return p
}

// MissingPreMeeting returns the absent pre-meeting fields in canonical order.
func (p CompletenessProfile) MissingPreMeeting() []string {
	return missing(PreMeetingFields, p.PreMeeting)
}

// MissingPensions returns the absent pension fields in canonical order.
func (p CompletenessProfile) MissingPensions() []string {
	return missing(PensionFields, p.Pensions)
}

func missing(fields []string, present map[string]bool) []string {
	var out []string
	for _, f := range fields {
		if !present[f] {
			out = append(out, f)
		}
	}
	return out
}

// ExtractedProfile is the per-document extraction record, keyed by ClientID.
type ExtractedProfile struct {
	ClientID    string              `json:"client_id"`
	ClientName  string              `json:"client_name"`
	SourceFile  string              `json:"source_file"`
	DateHint    string              `json:"date_hint,omitempty"`
	AnchorDate  *Date               `json:"anchor_date"`
	Presence    CompletenessProfile `json:"presence"`
	ExtractedAt time.Time           `json:"extracted_at"`
}
