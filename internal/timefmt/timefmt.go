// Package timefmt validates and normalizes the Brazilian timestamp format
// used on ingested fire events: dd/mm/yyyy HH:MM with optional seconds.
package timefmt

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// Layout is the canonical textual form stored in the history table.
// Seconds are always present after normalization.
const Layout = "02/01/2006 15:04:05"

// DefaultTimezone is the reference timezone events are normalized to.
const DefaultTimezone = "America/Sao_Paulo"

var (
	// ErrInvalidFormat reports input that does not match dd/mm/yyyy HH:MM[:SS].
	ErrInvalidFormat = errors.New("timestamp must match dd/mm/yyyy HH:MM[:SS]")
	// ErrInvalidCalendarDate reports a well-formed string naming a date that
	// does not exist on the calendar, e.g. 31/02/2025.
	ErrInvalidCalendarDate = errors.New("timestamp names an invalid calendar date")
)

var pattern = regexp.MustCompile(
	`^(0[1-9]|[12][0-9]|3[01])/(0[1-9]|1[0-2])/(\d{4}) ([01]\d|2[0-3]):([0-5]\d)(?::([0-5]\d))?$`)

// Normalizer converts raw timestamp strings to the canonical form in a fixed
// reference timezone. The zero value is not usable; construct with New.
type Normalizer struct {
	loc *time.Location
}

// New creates a Normalizer for the named timezone.
func New(timezone string) (*Normalizer, error) {
	if timezone == "" {
		timezone = DefaultTimezone
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", timezone, err)
	}
	return &Normalizer{loc: loc}, nil
}

// Normalize parses raw and returns the canonical timezone-qualified string
// with seconds always present. The error is ErrInvalidFormat or
// ErrInvalidCalendarDate, both caller-fixable.
func (n *Normalizer) Normalize(raw string) (string, error) {
	m := pattern.FindStringSubmatch(raw)
	if m == nil {
		return "", ErrInvalidFormat
	}

	day := atoi(m[1])
	month := atoi(m[2])
	year := atoi(m[3])
	hour := atoi(m[4])
	minute := atoi(m[5])
	second := 0
	if m[6] != "" {
		second = atoi(m[6])
	}

	// time.Date silently rolls invalid dates over (31/02 becomes 02/03 or
	// 03/03). Reconstructing and comparing every component catches that.
	t := time.Date(year, time.Month(month), day, hour, minute, second, 0, n.loc)
	if t.Year() != year || t.Month() != time.Month(month) || t.Day() != day ||
		t.Hour() != hour || t.Minute() != minute || t.Second() != second {
		return "", ErrInvalidCalendarDate
	}

	return t.In(n.loc).Format(Layout), nil
}

func atoi(s string) int {
	v, _ := strconv.Atoi(s) // submatches are digit-only by construction
	return v
}
