package extract

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/compliance-chaser/internal/model"
)

func writeYAML(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "keywords.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultKeywords_Valid(t *testing.T) {
	t.Parallel()

	kw := DefaultKeywords()
	require.NoError(t, kw.Validate())
	for _, f := range model.PreMeetingFields {
		assert.NotEmpty(t, kw.PreMeeting[f], f)
	}
	for _, f := range model.PensionFields {
		assert.NotEmpty(t, kw.Pensions[f], f)
	}
}

func TestLoadKeywords_Override(t *testing.T) {
	t.Parallel()

	path := writeYAML(t, `
keywords:
  pre_meeting:
    risk_profile: ["atr", "attitude to risk"]
  providers: ["nest", "hargreaves lansdown"]
`)
	kw, err := LoadKeywords(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"atr", "attitude to risk"}, kw.PreMeeting[model.FieldRiskProfile])
	assert.Equal(t, []string{"nest", "hargreaves lansdown"}, kw.Providers)

	// Untouched entries keep their defaults.
	assert.Equal(t, DefaultKeywords().PreMeeting[model.FieldPersonalDetails], kw.PreMeeting[model.FieldPersonalDetails])
	assert.Equal(t, DefaultKeywords().LOA, kw.LOA)
}

func TestLoadKeywords_TopLevel(t *testing.T) {
	t.Parallel()

	path := writeYAML(t, `
pensions:
  exit_penalties: ["exit fee"]
`)
	kw, err := LoadKeywords(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"exit fee"}, kw.Pensions[model.FieldExitPenalties])
}

func TestLoadKeywords_UnknownField(t *testing.T) {
	t.Parallel()

	path := writeYAML(t, `
pre_meeting:
  shoe_size: ["shoe"]
pensions:
  annuity_rate: ["annuity"]
`)
	_, err := LoadKeywords(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pensions.annuity_rate, pre_meeting.shoe_size")
}

func TestLoadKeywords_EmptyList(t *testing.T) {
	t.Parallel()

	path := writeYAML(t, `
pre_meeting:
  risk_profile: []
`)
	_, err := LoadKeywords(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pre_meeting.risk_profile has no phrases")
}

func TestLoadKeywords_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := LoadKeywords(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read keywords")
}
