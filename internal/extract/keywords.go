package extract

import (
	"os"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/compliance-chaser/internal/model"
)

// Keywords maps each fact category and signal to its trigger phrases.
// A category is present when the lowercased text contains any phrase.
type Keywords struct {
	PreMeeting   map[string][]string `yaml:"pre_meeting"`
	Pensions     map[string][]string `yaml:"pensions"`
	LOA          []string            `yaml:"loa"`
	PolicyNumber []string            `yaml:"policy_number"`
	ISARemaining []string            `yaml:"isa_remaining"`
	Pension      []string            `yaml:"pension"`
	Providers    []string            `yaml:"providers"`
	Children     []string            `yaml:"children"`
	Education    []string            `yaml:"education"`
	ISA          []string            `yaml:"isa"`
}

// DefaultKeywords returns the built-in trigger phrase table.
func DefaultKeywords() *Keywords {
	return &Keywords{
		PreMeeting: map[string][]string{
			model.FieldPersonalDetails: {
				"date of birth", "dob", "address", "postcode", "email", "phone",
				"national insurance", "ni number",
			},
			model.FieldIncomeEmploymentTax: {
				"income", "salary", "employment", "employer", "self employed", "tax", "p60",
			},
			model.FieldObjectivesPriorities: {
				"objective", "goal", "priority", "retire", "retirement", "education", "university",
			},
			model.FieldRiskProfile: {
				"risk", "capacity for loss", "attitude to risk", "volatility", "risk tolerance",
			},
			model.FieldVulnerabilities: {
				"vulnerable", "health", "disability", "care", "dependant", "vulnerability",
			},
		},
		Pensions: map[string][]string{
			model.FieldCurrentValuation: {
				"valuation", "current value", "fund value", "plan value", "value £", "value:", "total value",
			},
			model.FieldFundBreakdown: {
				"fund breakdown", "funds", "asset allocation", "allocation", "equity", "equities",
				"bond", "bonds", "cash", "default lifestyle", "investment strategy", "investment mix",
			},
			model.FieldContributionHistory: {
				"contribution", "contributions", "regular payment", "monthly", "employer contribution",
				"employee contribution", "salary sacrifice",
			},
			model.FieldTransferValue: {
				"transfer value", "cetv", "cash equivalent", "transfer",
			},
			model.FieldExitPenalties: {
				"exit penalty", "penalty", "early exit", "surrender charge", "market value reduction", "mvr",
			},
			model.FieldTransferRestrictions: {
				"restriction", "restrictions", "scheme rules", "transfer out", "cannot transfer",
				"normal retirement age", "retirement age", "protected age", "lock in",
			},
			model.FieldSchemeType: {
				"db", "dc", "defined benefit", "defined contribution", "sipp", "personal pension",
				"final salary", "career average",
			},
			model.FieldGuaranteedBenefits: {
				"guaranteed", "guarantee", "gar", "protected", "gmp", "death benefit",
				"spouse pension", "dependant pension", "lump sum", "benefits on death",
			},
		},
		LOA: []string{"letter of authority", "loa", "authority", "consent"},
		PolicyNumber: []string{
			"policy number", "policy no", "plan number", "account number", "scheme reference", "member number",
		},
		ISARemaining: []string{
			"remaining this tax year", "allowance remaining", "unused allowance", "unutilised",
			"unutilized", "remaining allowance", "isa allowance remaining",
		},
		Pension: []string{"pension", "sipp", "drawdown", "defined benefit", "defined contribution"},
		Providers: []string{
			"aviva", "aj bell", "standard life", "legal & general", "scottish widows", "aia",
			"royal london", "vanguard", "fidelity", "quilter", "prudential", "zurich", "aegon",
		},
		Children:  []string{"child", "children", "son", "daughter"},
		Education: []string{"education", "university", "school"},
		ISA:       []string{"isa"},
	}
}

// LoadKeywords reads a YAML override file. Any list present in the file
// replaces the built-in list for that key; absent keys keep their defaults.
func LoadKeywords(path string) (*Keywords, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "extract: read keywords %s", path)
	}

	// The file may nest everything under a top-level "keywords" key.
	var wrapper struct {
		Keywords *Keywords `yaml:"keywords"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "extract: parse keywords")
	}
	override := wrapper.Keywords
	if override == nil {
		override = &Keywords{}
		if err := yaml.Unmarshal(data, override); err != nil {
			return nil, eris.Wrap(err, "extract: parse keywords")
		}
	}

	kw := DefaultKeywords()
	if err := kw.merge(override); err != nil {
		return nil, err
	}
	if err := kw.Validate(); err != nil {
		return nil, err
	}
	return kw, nil
}

func (k *Keywords) merge(o *Keywords) error {
	var unknown []string
	for field, phrases := range o.PreMeeting {
		if _, ok := k.PreMeeting[field]; !ok {
			unknown = append(unknown, "pre_meeting."+field)
			continue
		}
		k.PreMeeting[field] = phrases
	}
	for field, phrases := range o.Pensions {
		if _, ok := k.Pensions[field]; !ok {
			unknown = append(unknown, "pensions."+field)
			continue
		}
		k.Pensions[field] = phrases
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return eris.Errorf("extract: unknown keyword fields: %s", strings.Join(unknown, ", "))
	}

	replace := func(dst *[]string, src []string) {
		if src != nil {
			*dst = src
		}
	}
	replace(&k.LOA, o.LOA)
	replace(&k.PolicyNumber, o.PolicyNumber)
	replace(&k.ISARemaining, o.ISARemaining)
	replace(&k.Pension, o.Pension)
	replace(&k.Providers, o.Providers)
	replace(&k.Children, o.Children)
	replace(&k.Education, o.Education)
	replace(&k.ISA, o.ISA)
	return nil
}

// Validate checks that every fixed field has at least one non-blank phrase.
func (k *Keywords) Validate() error {
	var errs []string
	check := func(name string, phrases []string) {
		for _, p := range phrases {
			if strings.TrimSpace(p) != "" {
				return
			}
		}
		errs = append(errs, name+" has no phrases")
	}
	for _, f := range model.PreMeetingFields {
		check("pre_meeting."+f, k.PreMeeting[f])
	}
	for _, f := range model.PensionFields {
		check("pensions."+f, k.Pensions[f])
	}
	check("loa", k.LOA)
	check("policy_number", k.PolicyNumber)
	check("isa_remaining", k.ISARemaining)
	check("pension", k.Pension)
	check("providers", k.Providers)
	check("children", k.Children)
	check("education", k.Education)
	check("isa", k.ISA)

	if len(errs) > 0 {
		return eris.Errorf("extract: keyword validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// phraseSet is a lowercased, blank-free phrase list.
type phraseSet []string

func newPhraseSet(phrases []string) phraseSet {
	out := make(phraseSet, 0, len(phrases))
	for _, p := range phrases {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// in reports whether lower (already lowercased text) contains any phrase.
func (s phraseSet) in(lower string) bool {
	for _, p := range s {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
