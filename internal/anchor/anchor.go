// Package anchor converts raw date hints into plausible calendar dates used
// as the base for due-date arithmetic.
package anchor

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sells-group/compliance-chaser/internal/model"
)

// Sanity bounds for anchor dates.
const (
	MinYear          = 2020
	MaxDaysInFuture  = 365
	twoDigitYearBase = 2000
)

// Outcome explains what Resolve did with a hint.
type Outcome string

const (
	OutcomeNone        Outcome = "none"
	OutcomeUnparseable Outcome = "unparseable"
	OutcomeImplausible Outcome = "implausible"
	OutcomeResolved    Outcome = "resolved"
)

var (
	numericDate = regexp.MustCompile(`^(\d{1,2})[/-](\d{1,2})[/-](\d{2,4})$`)
	textualDate = regexp.MustCompile(`^(\d{1,2})\s+([A-Za-z]{3,9})[a-z]*\s+(\d{2,4})$`)
)

var months = map[string]time.Month{
	"jan": time.January, "january": time.January,
	"feb": time.February, "february": time.February,
	"mar": time.March, "march": time.March,
	"apr": time.April, "april": time.April,
	"may": time.May,
	"jun": time.June, "june": time.June,
	"jul": time.July, "july": time.July,
	"aug": time.August, "august": time.August,
	"sep": time.September, "sept": time.September, "september": time.September,
	"oct": time.October, "october": time.October,
	"nov": time.November, "november": time.November,
	"dec": time.December, "december": time.December,
}

// Parse reads a D/M/Y, D-M-Y or "D MonthName Y" hint. Two-digit years map
// to 20yy. It reports false for anything that is not a real calendar date.
func Parse(hint string) (model.Date, bool) {
	s := strings.TrimSpace(hint)
	if s == "" {
		return model.Date{}, false
	}

	if m := numericDate.FindStringSubmatch(s); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		return build(day, time.Month(month), m[3])
	}

	if m := textualDate.FindStringSubmatch(s); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, ok := lookupMonth(m[2])
		if !ok {
			return model.Date{}, false
		}
		return build(day, month, m[3])
	}

	return model.Date{}, false
}

// lookupMonth tries the first four letters, then the whole word, then the
// first three letters.
func lookupMonth(raw string) (time.Month, bool) {
	w := strings.ToLower(raw)
	candidates := []string{prefix(w, 4), w, prefix(w, 3)}
	for _, c := range candidates {
		if m, ok := months[c]; ok {
			return m, true
		}
	}
	return 0, false
}

func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func build(day int, month time.Month, rawYear string) (model.Date, bool) {
	year, _ := strconv.Atoi(rawYear)
	if year < 100 {
		year += twoDigitYearBase
	}
	if !model.ValidDate(year, month, day) {
		return model.Date{}, false
	}
	return model.NewDate(year, month, day), true
}

// Sane reports whether d is a plausible anchor relative to now: not before
// MinYear and no more than MaxDaysInFuture days ahead.
func Sane(d model.Date, now time.Time) bool {
	if d.IsZero() || d.Year() < MinYear {
		return false
	}
	limit := now.UTC().Add(MaxDaysInFuture * 24 * time.Hour)
	return !d.Time().After(limit)
}

// Resolve parses and sanity-filters hint. The returned date is zero unless
// the outcome is OutcomeResolved.
func Resolve(hint string, now time.Time) (model.Date, Outcome) {
	if strings.TrimSpace(hint) == "" {
		return model.Date{}, OutcomeNone
	}
	d, ok := Parse(hint)
	if !ok {
		return model.Date{}, OutcomeUnparseable
	}
	if !Sane(d, now) {
		return model.Date{}, OutcomeImplausible
	}
	return d, OutcomeResolved
}
