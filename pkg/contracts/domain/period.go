package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Period represents one calendar month, the granularity all source
// extracts are normalized to.
type Period struct {
	Year  int
	Month time.Month
}

// ParsePeriod parses a period from the forms seen in source extracts:
// "2024-03", "2024-03-15" and day-first "15/3/2024".
func ParsePeriod(s string) (Period, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Period{}, fmt.Errorf("empty period value")
	}

	if t, err := time.Parse("2006-01", s); err == nil {
		return Period{Year: t.Year(), Month: t.Month()}, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return Period{Year: t.Year(), Month: t.Month()}, nil
	}

	// Day-first form used by the turnstile extracts (e.g. 13/2/2024).
	if parts := strings.Split(s, "/"); len(parts) == 3 {
		day, errD := strconv.Atoi(strings.TrimSpace(parts[0]))
		month, errM := strconv.Atoi(strings.TrimSpace(parts[1]))
		year, errY := strconv.Atoi(strings.TrimSpace(parts[2]))
		if errD == nil && errM == nil && errY == nil &&
			day >= 1 && day <= 31 && month >= 1 && month <= 12 && year >= 1000 {
			return Period{Year: year, Month: time.Month(month)}, nil
		}
	}

	return Period{}, fmt.Errorf("unrecognized period format: %q", s)
}

// MustParsePeriod is a test helper that panics on invalid input.
func MustParsePeriod(s string) Period {
	p, err := ParsePeriod(s)
	if err != nil {
		panic(err)
	}
	return p
}

// String returns the canonical YYYY-MM form.
func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// MarshalJSON encodes the period in its canonical YYYY-MM form.
func (p Period) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON accepts any form ParsePeriod does.
func (p *Period) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParsePeriod(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// IsZero reports whether the period is unset.
func (p Period) IsZero() bool {
	return p.Year == 0 && p.Month == 0
}

// DaysInMonth returns the number of calendar days in the period.
func (p Period) DaysInMonth() int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(p.Year, p.Month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Before reports whether p is strictly earlier than other.
func (p Period) Before(other Period) bool {
	if p.Year != other.Year {
		return p.Year < other.Year
	}
	return p.Month < other.Month
}

// Compare returns -1, 0 or 1 comparing p against other chronologically.
func (p Period) Compare(other Period) int {
	switch {
	case p.Before(other):
		return -1
	case other.Before(p):
		return 1
	default:
		return 0
	}
}

// Next returns the following calendar month.
func (p Period) Next() Period {
	t := time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	return Period{Year: t.Year(), Month: t.Month()}
}

// PeriodRange is an inclusive month range used to validate incoming data.
type PeriodRange struct {
	Start Period
	End   Period
}

// Contains reports whether p falls within the range (inclusive).
func (r PeriodRange) Contains(p Period) bool {
	return !p.Before(r.Start) && !r.End.Before(p)
}

// Periods enumerates every month in the range in chronological order.
func (r PeriodRange) Periods() []Period {
	var out []Period
	for p := r.Start; !r.End.Before(p); p = p.Next() {
		out = append(out, p)
	}
	return out
}
