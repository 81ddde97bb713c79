package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// monthNames is the only table used to format and parse period labels.
// Locale-dependent formatting is never used so labels round-trip on any host.
var monthNames = [12]string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

const (
	minYear = 1
	maxYear = 9999
)

// Period is a reporting month: Month is 1-12.
type Period struct {
	Month int
	Year  int
}

// NewPeriod builds a validated period.
func NewPeriod(month, year int) (Period, error) {
	p := Period{Month: month, Year: year}
	if err := p.Validate(); err != nil {
		return Period{}, err
	}
	return p, nil
}

// PeriodOf returns the period containing t.
func PeriodOf(t time.Time) Period {
	return Period{Month: int(t.Month()), Year: t.Year()}
}

func (p Period) Validate() error {
	if p.Month < 1 || p.Month > 12 {
		return ErrInvalidMonth
	}
	if p.Year < minYear || p.Year > maxYear {
		return ErrInvalidYear
	}
	return nil
}

// IsZero reports whether the period was never set.
func (p Period) IsZero() bool {
	return p.Month == 0 && p.Year == 0
}

// Label renders "<MonthName> <Year>", e.g. "December 2025".
func (p Period) Label() string {
	if p.Month < 1 || p.Month > 12 {
		return ""
	}
	return fmt.Sprintf("%s %d", monthNames[p.Month-1], p.Year)
}

func (p Period) String() string {
	return p.Label()
}

// ParsePeriod is the inverse of Label. The label must contain exactly one
// space, a month name from the fixed table and a plain decimal year.
func ParsePeriod(label string) (Period, error) {
	parts := strings.Split(label, " ")
	if len(parts) != 2 {
		return Period{}, fmt.Errorf("%w: %q", ErrInvalidPeriodLabel, label)
	}

	month := 0
	for i, name := range monthNames {
		if parts[0] == name {
			month = i + 1
			break
		}
	}
	if month == 0 {
		return Period{}, fmt.Errorf("%w: unknown month %q", ErrInvalidPeriodLabel, parts[0])
	}

	year, err := strconv.Atoi(parts[1])
	if err != nil || strconv.Itoa(year) != parts[1] {
		return Period{}, fmt.Errorf("%w: bad year %q", ErrInvalidPeriodLabel, parts[1])
	}

	p := Period{Month: month, Year: year}
	if err := p.Validate(); err != nil {
		return Period{}, err
	}
	return p, nil
}

// AddMonths moves the period by n months (negative moves back).
func (p Period) AddMonths(n int) Period {
	idx := p.Year*12 + (p.Month - 1) + n
	return Period{Month: idx%12 + 1, Year: idx / 12}
}

// Before reports whether p is strictly older than o.
func (p Period) Before(o Period) bool {
	if p.Year != o.Year {
		return p.Year < o.Year
	}
	return p.Month < o.Month
}

// TrailingPeriods lists n periods ending at the month containing now,
// most recent first.
func TrailingPeriods(now time.Time, n int) []Period {
	current := PeriodOf(now)
	out := make([]Period, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, current.AddMonths(-i))
	}
	return out
}
