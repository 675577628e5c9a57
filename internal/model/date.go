package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
)

// DateLayout is the ISO calendar date layout used on the wire and in storage.
const DateLayout = "2006-01-02"

// Date is a calendar date with no time-of-day or zone. The zero value
// means "no date".
type Date struct {
	t time.Time
}

// NewDate returns the date for the given year, month and day. The caller is
// responsible for passing a real calendar date; see ValidDate.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ValidDate reports whether year/month/day name a real calendar date.
func ValidDate(year int, month time.Month, day int) bool {
	if month < time.January || month > time.December || day < 1 {
		return false
	}
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return t.Year() == year && t.Month() == month && t.Day() == day
}

// DateOf returns the UTC calendar date of t.
func DateOf(t time.Time) Date {
	u := t.UTC()
	return NewDate(u.Year(), u.Month(), u.Day())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, eris.Wrapf(err, "model: parse date %q", s)
	}
	return Date{t: t}, nil
}

// IsZero reports whether d is unset.
func (d Date) IsZero() bool { return d.t.IsZero() }

// Time returns UTC midnight of d.
func (d Date) Time() time.Time { return d.t }

// Year returns the calendar year.
func (d Date) Year() int { return d.t.Year() }

// AddDays returns d shifted by n calendar days.
func (d Date) AddDays(n int) Date {
	return NewDate(d.t.Year(), d.t.Month(), d.t.Day()+n)
}

// Before reports whether d is strictly earlier than o.
func (d Date) Before(o Date) bool { return d.t.Before(o.t) }

// After reports whether d is strictly later than o.
func (d Date) After(o Date) bool { return d.t.After(o.t) }

// Equal reports whether d and o are the same calendar date.
func (d Date) Equal(o Date) bool { return d.t.Equal(o.t) }

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(DateLayout)
}

// MarshalJSON encodes d as "YYYY-MM-DD", or null when unset.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts "YYYY-MM-DD", an RFC 3339 timestamp, or null.
func (d *Date) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return eris.Wrap(err, "model: date must be a string")
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		ts, tsErr := time.Parse(time.RFC3339, s)
		if tsErr != nil {
			return err
		}
		parsed = DateOf(ts)
	}
	*d = parsed
	return nil
}

// Value stores d as TEXT, or NULL when unset.
func (d Date) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.String(), nil
}

// Scan reads a TEXT, timestamp or NULL column.
func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = Date{}
		return nil
	case string:
		return d.scanString(v)
	case []byte:
		return d.scanString(string(v))
	case time.Time:
		*d = DateOf(v)
		return nil
	default:
		return eris.Errorf("model: cannot scan %T into Date", src)
	}
}

func (d *Date) scanString(s string) error {
	if s == "" {
		*d = Date{}
		return nil
	}
	if len(s) > len(DateLayout) {
		s = s[:len(DateLayout)]
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
