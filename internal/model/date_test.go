package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidDate(t *testing.T) {
	t.Parallel()

	assert.True(t, ValidDate(2024, time.February, 29))
	assert.False(t, ValidDate(2023, time.February, 29))
	assert.False(t, ValidDate(2024, time.Month(13), 1))
	assert.False(t, ValidDate(2024, time.April, 31))
	assert.False(t, ValidDate(2024, time.April, 0))
}

func TestDate_AddDays(t *testing.T) {
	t.Parallel()

	d := NewDate(2024, time.December, 30)
	assert.Equal(t, "2025-01-01", d.AddDays(2).String())
	assert.Equal(t, "2024-12-23", d.AddDays(-7).String())
}

func TestDateOf_UsesUTC(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("UTC+10", 10*60*60)
	ts := time.Date(2025, time.June, 2, 8, 0, 0, 0, loc) // 2025-06-01T22:00Z
	assert.Equal(t, "2025-06-01", DateOf(ts).String())
}

func TestDate_JSON(t *testing.T) {
	t.Parallel()

	var d Date
	require.NoError(t, json.Unmarshal([]byte(`"2025-01-15"`), &d))
	assert.Equal(t, NewDate(2025, time.January, 15), d)

	require.NoError(t, json.Unmarshal([]byte(`"2025-01-15T13:45:00Z"`), &d))
	assert.Equal(t, NewDate(2025, time.January, 15), d)

	require.NoError(t, json.Unmarshal([]byte(`null`), &d))
	assert.True(t, d.IsZero())

	assert.Error(t, json.Unmarshal([]byte(`"15/01/2025"`), &d))

	b, err := json.Marshal(Date{})
	require.NoError(t, err)
	assert.Equal(t, "null", string(b))
}

func TestDate_Scan(t *testing.T) {
	t.Parallel()

	var d Date
	require.NoError(t, d.Scan("2025-02-03"))
	assert.Equal(t, "2025-02-03", d.String())

	require.NoError(t, d.Scan([]byte("2025-02-04 00:00:00")))
	assert.Equal(t, "2025-02-04", d.String())

	require.NoError(t, d.Scan(time.Date(2025, 2, 5, 12, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2025-02-05", d.String())

	require.NoError(t, d.Scan(nil))
	assert.True(t, d.IsZero())

	assert.Error(t, d.Scan(42))

	v, err := NewDate(2025, 2, 6).Value()
	require.NoError(t, err)
	assert.Equal(t, "2025-02-06", v)
}

func TestCompletenessProfile_AllKeysPresent(t *testing.T) {
	t.Parallel()

	p := NewCompletenessProfile()
	assert.Len(t, p.PreMeeting, 5)
	assert.Len(t, p.Pensions, 8)
	for _, f := range PreMeetingFields {
		v, ok := p.PreMeeting[f]
		assert.True(t, ok, f)
		assert.False(t, v, f)
	}
	for _, f := range PensionFields {
		v, ok := p.Pensions[f]
		assert.True(t, ok, f)
		assert.False(t, v, f)
	}
	assert.Equal(t, PreMeetingFields, p.MissingPreMeeting())

	p.Pensions[FieldSchemeType] = true
	assert.Len(t, p.MissingPensions(), 7)
	assert.NotContains(t, p.MissingPensions(), FieldSchemeType)
}
