package renewal

import (
	"time"

	"github.com/shopspring/decimal"
)

// BillingCycle is the recurrence unit of a subscription.
type BillingCycle string

const (
	CycleDaily   BillingCycle = "daily"
	CycleWeekly  BillingCycle = "weekly"
	CycleMonthly BillingCycle = "monthly"
	CycleYearly  BillingCycle = "yearly"
)

func (c BillingCycle) Valid() bool {
	switch c {
	case CycleDaily, CycleWeekly, CycleMonthly, CycleYearly:
		return true
	}
	return false
}

// DateOf returns the calendar date of t (in t's location) as UTC midnight.
// Every date persisted or compared by the engine goes through it.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string into a UTC midnight date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, err
	}
	return DateOf(t), nil
}

// AddCycle advances date by exactly one unit of cycle. Month and year steps
// clamp to the last day of the target month, so Jan 31 + 1 month is Feb 28
// (or 29) rather than rolling into March.
func AddCycle(date time.Time, cycle BillingCycle) time.Time {
	date = DateOf(date)
	switch cycle {
	case CycleDaily:
		return date.AddDate(0, 0, 1)
	case CycleWeekly:
		return date.AddDate(0, 0, 7)
	case CycleMonthly:
		return addMonthsClamped(date, 1)
	case CycleYearly:
		return addMonthsClamped(date, 12)
	default:
		return date
	}
}

func addMonthsClamped(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	firstOfTarget := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, time.UTC)
	lastDay := firstOfTarget.AddDate(0, 1, -1).Day()
	if d > lastDay {
		d = lastDay
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), d, 0, 0, 0, 0, time.UTC)
}

var (
	monthlyFactors = map[BillingCycle]decimal.Decimal{
		CycleDaily:   decimal.NewFromInt(30),
		CycleWeekly:  decimal.NewFromInt(4),
		CycleMonthly: decimal.NewFromInt(1),
	}
	yearlyFactors = map[BillingCycle]decimal.Decimal{
		CycleDaily:   decimal.NewFromInt(365),
		CycleWeekly:  decimal.NewFromInt(52),
		CycleMonthly: decimal.NewFromInt(12),
		CycleYearly:  decimal.NewFromInt(1),
	}
)

// MonthlyEquivalent normalizes amount to a flat per-month figure.
func MonthlyEquivalent(amount decimal.Decimal, cycle BillingCycle) decimal.Decimal {
	if cycle == CycleYearly {
		return amount.Div(decimal.NewFromInt(12))
	}
	f, ok := monthlyFactors[cycle]
	if !ok {
		return decimal.Zero
	}
	return amount.Mul(f)
}

// YearlyEquivalent normalizes amount to a flat per-year figure.
func YearlyEquivalent(amount decimal.Decimal, cycle BillingCycle) decimal.Decimal {
	f, ok := yearlyFactors[cycle]
	if !ok {
		return decimal.Zero
	}
	return amount.Mul(f)
}
