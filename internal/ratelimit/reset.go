package ratelimit

import (
	"fmt"
	"strings"
	"time"
)

// ResetPolicy decides when the daily request counter is zeroed.
type ResetPolicy interface {
	// Next returns the first reset instant strictly after t.
	Next(t time.Time) time.Time
	String() string
}

// RollingReset resets Period after the first request and every Period after
// that. A process restart starts a fresh window.
type RollingReset struct {
	Period time.Duration
}

func (r RollingReset) Next(t time.Time) time.Time {
	period := r.Period
	if period <= 0 {
		period = 24 * time.Hour
	}
	return t.Add(period)
}

func (r RollingReset) String() string { return "rolling" }

// CalendarReset resets at midnight in Location, matching providers whose
// quotas roll over on a calendar day.
type CalendarReset struct {
	Location *time.Location
}

func (c CalendarReset) Next(t time.Time) time.Time {
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return midnight.AddDate(0, 0, 1)
}

func (c CalendarReset) String() string { return "calendar" }

// ParseResetPolicy maps a configuration value ("rolling" or "calendar") to a
// policy. timezone is only used by the calendar policy.
func ParseResetPolicy(name, timezone string) (ResetPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "rolling":
		return RollingReset{Period: 24 * time.Hour}, nil
	case "calendar":
		loc := time.UTC
		if timezone != "" {
			l, err := time.LoadLocation(timezone)
			if err != nil {
				return nil, fmt.Errorf("failed to load reset timezone %q: %w", timezone, err)
			}
			loc = l
		}
		return CalendarReset{Location: loc}, nil
	}
	return nil, fmt.Errorf("unknown reset policy %q", name)
}
