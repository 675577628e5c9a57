// Package extract turns document text into a client name guess, a date hint
// and a completeness profile using literal phrase matching.
package extract

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/sells-group/compliance-chaser/internal/model"
)

// Client name candidates must fall within this many characters.
const (
	minNameLen = 3
	maxNameLen = 60
)

// namePatterns are tried in order; the first acceptable candidate wins.
var namePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)Client\s*Name\s*:\s*(.+)`),
	regexp.MustCompile(`(?i)Client\s*:\s*(.+)`),
	regexp.MustCompile(`(?i)Name\s*:\s*(.+)`),
}

var nameTerminators = "\n\r|,"

// datePatterns are tried in order: numeric D/M/Y first, then D MonthName Y.
var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(\d{1,2}[/-]\d{1,2}[/-]\d{2,4})\b`),
	regexp.MustCompile(`(?i)\b(\d{1,2}\s+(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Sept|Oct|Nov|Dec)[a-z]*\s+\d{2,4})\b`),
}

// GuessClientName returns the first client name found after a
// "Client Name:", "Client:" or "Name:" label.
func GuessClientName(text string) (string, bool) {
	for _, re := range namePatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		name := strings.TrimSpace(m[1])
		if i := strings.IndexAny(name, nameTerminators); i >= 0 {
			name = name[:i]
		}
		name = strings.TrimSpace(name)
		if n := utf8.RuneCountInString(name); n >= minNameLen && n <= maxNameLen {
			return name, true
		}
	}
	return "", false
}

// FindDateHint returns the first raw date-like substring, unparsed.
func FindDateHint(text string) (string, bool) {
	for _, re := range datePatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			return m[1], true
		}
	}
	return "", false
}

// Result is everything extracted from one document.
type Result struct {
	ClientNameGuess string
	DateHint        string
	Profile         model.CompletenessProfile
}

// Extractor evaluates a keyword table against document text. It holds no
// mutable state and is safe for concurrent use.
type Extractor struct {
	preMeeting   map[string]phraseSet
	pensions     map[string]phraseSet
	loa          phraseSet
	policyNumber phraseSet
	isaRemaining phraseSet
	pension      phraseSet
	providers    phraseSet
	children     phraseSet
	education    phraseSet
	isa          phraseSet
}

// New builds an Extractor from kw. A nil kw uses DefaultKeywords.
func New(kw *Keywords) *Extractor {
	if kw == nil {
		kw = DefaultKeywords()
	}
	e := &Extractor{
		preMeeting:   make(map[string]phraseSet, len(model.PreMeetingFields)),
		pensions:     make(map[string]phraseSet, len(model.PensionFields)),
		loa:          newPhraseSet(kw.LOA),
		policyNumber: newPhraseSet(kw.PolicyNumber),
		isaRemaining: newPhraseSet(kw.ISARemaining),
		pension:      newPhraseSet(kw.Pension),
		providers:    newPhraseSet(kw.Providers),
		children:     newPhraseSet(kw.Children),
		education:    newPhraseSet(kw.Education),
		isa:          newPhraseSet(kw.ISA),
	}
	for _, f := range model.PreMeetingFields {
		e.preMeeting[f] = newPhraseSet(kw.PreMeeting[f])
	}
	for _, f := range model.PensionFields {
		e.pensions[f] = newPhraseSet(kw.Pensions[f])
	}
	return e
}

// Presence computes the completeness profile of text.
func (e *Extractor) Presence(text string) model.CompletenessProfile {
	lower := strings.ToLower(text)

	p := model.NewCompletenessProfile()
	for _, f := range model.PreMeetingFields {
		p.PreMeeting[f] = e.preMeeting[f].in(lower)
	}
	for _, f := range model.PensionFields {
		p.Pensions[f] = e.pensions[f].in(lower)
	}

	p.LOAPresent = e.loa.in(lower)
	p.PolicyNumberPresent = e.policyNumber.in(lower)
	p.MentionsPension = e.pension.in(lower)
	p.MentionsProvider = e.providers.in(lower)
	p.MentionsChildren = e.children.in(lower)
	p.MentionsEducation = e.education.in(lower)
	p.MentionsISA = e.isa.in(lower)
	p.ISARemainingMentioned = e.isaRemaining.in(lower)
	return p
}

// Extract runs every extraction step over doc.
func (e *Extractor) Extract(doc model.Document) Result {
	name, _ := GuessClientName(doc.Text)
	hint, _ := FindDateHint(doc.Text)
	return Result{
		ClientNameGuess: name,
		DateHint:        hint,
		Profile:         e.Presence(doc.Text),
	}
}
