package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/compliance-chaser/internal/model"
)

const pensionDoc = `Client Name: John Smith
Date of birth recorded. Salary 50k. Objective: retire at 60. Attitude to risk: balanced. Health: good.
Pension with Aviva, SIPP. Current value £120,000. Funds: 60% equity. Monthly contributions £500.
Transfer value (CETV) quoted. Guaranteed annuity rate applies. Policy number: 12345.`

func TestGuessClientName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		text   string
		want   string
		wantOK bool
	}{
		{"client name label", "Client Name: John Smith\nDOB: 1970", "John Smith", true},
		{"client label lowercase", "client:  Jane Doe | ref 42", "Jane Doe", true},
		{"name label", "Report\nName: Robert Brown\n", "Robert Brown", true},
		{"cut at comma", "Client: Smith, John", "Smith", true},
		{"label spacing", "CLIENT   NAME :  Ann Lee", "Ann Lee", true},
		{"value on next line", "Client Name:\nPriya Patel\n", "Priya Patel", true},
		{"too short", "Name: Al", "", false},
		{"too long", "Client: " + strings.Repeat("x", 61), "", false},
		{"exactly sixty", "Client: " + strings.Repeat("y", 60), strings.Repeat("y", 60), true},
		{"no label", "Annual review notes", "", false},
		// Each pattern only considers its first match: "Name:" first matches
		// inside "Client Name: Bo", which is too short.
		{"first match per pattern only", "Client Name: Bo\nName: Robert Brown", "", false},
		{"earlier pattern wins", "Name: Second Person\nClient: First Person", "First Person", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := GuessClientName(tt.text)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFindDateHint(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		text   string
		want   string
		wantOK bool
	}{
		{"numeric slash", "Meeting on 12/03/2024 at the office", "12/03/2024", true},
		{"numeric dash short year", "signed 7-8-23", "7-8-23", true},
		{"numeric before textual", "5 March 2024 then 12/03/2024", "12/03/2024", true},
		{"textual abbreviated", "Review held 5 Sept 2024.", "5 Sept 2024", true},
		{"textual full lowercase", "Dated 1 january 2025", "1 january 2025", true},
		{"textual upper", "ON 3 MARCH 2024", "3 MARCH 2024", true},
		{"iso date not recognized", "created 2024-03-12", "", false},
		{"embedded in longer number", "call 123/45/6789", "", false},
		{"no date", "no dates here", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := FindDateHint(tt.text)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPresence_AllKeysAlwaysPresent(t *testing.T) {
	t.Parallel()

	ex := New(nil)
	for _, text := range []string{"", "Client: Jane Doe", pensionDoc, strings.Repeat("risk ", 100)} {
		p := ex.Presence(text)
		assert.Len(t, p.PreMeeting, len(model.PreMeetingFields))
		assert.Len(t, p.Pensions, len(model.PensionFields))
		for _, f := range model.PreMeetingFields {
			_, ok := p.PreMeeting[f]
			assert.True(t, ok, "missing pre-meeting key %s", f)
		}
		for _, f := range model.PensionFields {
			_, ok := p.Pensions[f]
			assert.True(t, ok, "missing pension key %s", f)
		}
	}
}

func TestPresence_MinimalDocument(t *testing.T) {
	t.Parallel()

	p := New(nil).Presence("Client: Jane Doe\n")
	assert.Equal(t, model.PreMeetingFields, p.MissingPreMeeting())
	assert.Equal(t, model.PensionFields, p.MissingPensions())
	assert.False(t, p.MentionsPension)
	assert.False(t, p.MentionsISA)
	assert.False(t, p.LOAPresent)
}

func TestPresence_PensionDocument(t *testing.T) {
	t.Parallel()

	p := New(nil).Presence(pensionDoc)
	assert.Empty(t, p.MissingPreMeeting())
	assert.Equal(t, []string{model.FieldExitPenalties, model.FieldTransferRestrictions}, p.MissingPensions())
	assert.True(t, p.MentionsPension)
	assert.True(t, p.MentionsProvider)
	assert.True(t, p.PolicyNumberPresent)
	assert.False(t, p.LOAPresent)
	assert.False(t, p.MentionsISA)
	assert.False(t, p.MentionsChildren)
}

func TestPresence_Signals(t *testing.T) {
	t.Parallel()

	text := "Client Name: Mary Jones\nMeeting 14/02/2025. Two children, both under 10. " +
		"ISA: £4,000 allowance remaining this tax year."
	p := New(nil).Presence(text)
	assert.True(t, p.MentionsChildren)
	assert.False(t, p.MentionsEducation)
	assert.True(t, p.MentionsISA)
	assert.True(t, p.ISARemainingMentioned)
	// "tax year" triggers the income/tax category: matching is literal.
	assert.True(t, p.PreMeeting[model.FieldIncomeEmploymentTax])
}

func TestPresence_SubstringMatchIsPermissive(t *testing.T) {
	t.Parallel()

	p := New(nil).Presence("Discussed RISKS and Volatility; signed LOA on file.")
	assert.True(t, p.PreMeeting[model.FieldRiskProfile])
	assert.True(t, p.LOAPresent)
}

func TestExtract_Idempotent(t *testing.T) {
	t.Parallel()

	ex := New(nil)
	doc := model.Document{FileName: "a.txt", Text: pensionDoc + "\nReviewed 12/03/2024"}
	first := ex.Extract(doc)
	second := ex.Extract(doc)
	assert.Equal(t, first, second)
	assert.Equal(t, "John Smith", first.ClientNameGuess)
	assert.Equal(t, "12/03/2024", first.DateHint)
}

func TestNew_CustomKeywords(t *testing.T) {
	t.Parallel()

	kw := DefaultKeywords()
	kw.PreMeeting[model.FieldRiskProfile] = []string{"  ATR Score  "}
	ex := New(kw)

	p := ex.Presence("atr score: 4")
	assert.True(t, p.PreMeeting[model.FieldRiskProfile])

	p = ex.Presence("attitude to risk")
	assert.False(t, p.PreMeeting[model.FieldRiskProfile])
	require.NoError(t, kw.Validate())
}
