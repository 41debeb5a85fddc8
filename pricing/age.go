package pricing

import (
	"fmt"
	"time"
)

// =============================================================================
// DATE - Civil date without time of day or zone
// =============================================================================

const DateLayout = "2006-01-02"

// Date is a calendar day. The zero value is not a valid date and is what the
// API layer produces for a missing or unparsable field, so that the validator
// can report it alongside every other error.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{Year: year, Month: month, Day: day}
}

// ParseDate parses YYYY-MM-DD. Out-of-range days (2025-02-30) are rejected.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q (use YYYY-MM-DD): %w", s, err)
	}
	return DateOf(t), nil
}

// DateOf truncates t to its calendar day.
func DateOf(t time.Time) Date {
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

func (d Date) IsZero() bool { return d == Date{} }

// Valid reports whether d names a real calendar day.
func (d Date) Valid() bool {
	if d.Year < 1 || d.Month < time.January || d.Month > time.December || d.Day < 1 {
		return false
	}
	return DateOf(d.Time()) == d
}

func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Date) Before(other Date) bool { return d.Time().Before(other.Time()) }

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// =============================================================================
// AGE
// =============================================================================

// Age returns the completed years between birth and asOf. The year difference
// is reduced by one while asOf's month/day precedes the birthday. Both dates
// are assumed valid.
func Age(birth, asOf Date) int {
	age := asOf.Year - birth.Year
	if asOf.Month < birth.Month || (asOf.Month == birth.Month && asOf.Day < birth.Day) {
		age--
	}
	return age
}
