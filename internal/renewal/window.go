package renewal

import (
	"math"
	"time"
)

const (
	// DefaultAlertDays applies when neither the subscription nor the user sets a window.
	DefaultAlertDays = 3
	// CatchUpDays is how far past the anchor a missed renewal is still materialized.
	CatchUpDays = 7
	// ConfirmWindowDays is how long a past projection keeps asking for confirmation.
	ConfirmWindowDays = 3
)

type State string

const (
	StateUpcoming       State = "upcoming"
	StateDueOrRecent    State = "due_or_recent"
	StatePostDuePending State = "post_due_pending"
	StateOutsideWindow  State = "outside_window"
)

type Classification struct {
	OffsetDays int
	AlertDays  int
	State      State
}

// NeedsProjection reports whether the anchor occurrence should have a projected row.
func (c Classification) NeedsProjection() bool {
	return c.State == StateUpcoming || c.State == StateDueOrRecent
}

// EffectiveAlertDays resolves the alert window: override, then user default, then 3.
func EffectiveAlertDays(override, userDefault *int) int {
	if override != nil {
		return *override
	}
	if userDefault != nil {
		return *userDefault
	}
	return DefaultAlertDays
}

// OffsetDays measures renewalDate at noon against today at midnight and rounds up.
func OffsetDays(today, renewalDate time.Time) int {
	todayMidnight := DateOf(today)
	renewalNoon := DateOf(renewalDate).Add(12 * time.Hour)
	days := renewalNoon.Sub(todayMidnight).Hours() / 24
	return int(math.Ceil(days))
}

// Classify places a subscription anchor relative to today.
func Classify(today, renewalDate time.Time, alertOverride, userDefault *int) Classification {
	c := Classification{
		OffsetDays: OffsetDays(today, renewalDate),
		AlertDays:  EffectiveAlertDays(alertOverride, userDefault),
		State:      StateOutsideWindow,
	}
	switch {
	case c.OffsetDays > 0 && c.OffsetDays <= c.AlertDays:
		c.State = StateUpcoming
	case c.OffsetDays <= 0 && c.OffsetDays >= -CatchUpDays:
		c.State = StateDueOrRecent
	}
	return c
}

// ClassifyProjection evaluates an existing projected transaction date.
// OffsetDays is negative for past projections (age in days, negated).
func ClassifyProjection(today, projectionDate time.Time) Classification {
	d := DateOf(projectionDate)
	t := DateOf(today)
	age := int(t.Sub(d).Hours() / 24)
	c := Classification{OffsetDays: -age, State: StateOutsideWindow}
	if !d.After(t) && age <= ConfirmWindowDays {
		c.State = StatePostDuePending
	}
	return c
}
