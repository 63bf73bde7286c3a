package renewal

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddCycle(t *testing.T) {
	tests := []struct {
		name  string
		from  time.Time
		cycle BillingCycle
		want  time.Time
	}{
		{"daily crosses year", date(2026, time.December, 31), CycleDaily, date(2027, time.January, 1)},
		{"weekly crosses year", date(2026, time.December, 29), CycleWeekly, date(2027, time.January, 5)},
		{"monthly plain", date(2026, time.December, 15), CycleMonthly, date(2027, time.January, 15)},
		{"monthly clamps to february", date(2027, time.January, 31), CycleMonthly, date(2027, time.February, 28)},
		{"monthly clamps to leap day", date(2028, time.January, 31), CycleMonthly, date(2028, time.February, 29)},
		{"monthly clamps to thirty", date(2026, time.October, 31), CycleMonthly, date(2026, time.November, 30)},
		{"yearly from leap day", date(2028, time.February, 29), CycleYearly, date(2029, time.February, 28)},
		{"yearly plain", date(2026, time.October, 21), CycleYearly, date(2027, time.October, 21)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AddCycle(tt.from, tt.cycle))
		})
	}
}

func TestAddCycleDropsTimeOfDay(t *testing.T) {
	from := time.Date(2026, time.October, 21, 15, 30, 0, 0, time.UTC)
	assert.Equal(t, date(2026, time.November, 21), AddCycle(from, CycleMonthly))
}

func TestBillingCycleValid(t *testing.T) {
	for _, c := range []BillingCycle{CycleDaily, CycleWeekly, CycleMonthly, CycleYearly} {
		assert.True(t, c.Valid(), c)
	}
	assert.False(t, BillingCycle("quarterly").Valid())
	assert.False(t, BillingCycle("").Valid())
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2026-10-21")
	require.NoError(t, err)
	assert.Equal(t, date(2026, time.October, 21), d)

	_, err = ParseDate("21/10/2026")
	assert.Error(t, err)
}

func TestDateOfUsesLocalCalendarDay(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	// 2026-10-19 20:00 UTC is already the 20th in Tokyo.
	instant := time.Date(2026, time.October, 19, 20, 0, 0, 0, time.UTC)
	assert.Equal(t, date(2026, time.October, 20), DateOf(instant.In(tokyo)))
	assert.Equal(t, date(2026, time.October, 19), DateOf(instant))
}

func TestEquivalents(t *testing.T) {
	tests := []struct {
		cycle   BillingCycle
		amount  int64
		monthly string
		yearly  string
	}{
		{CycleDaily, 10, "300", "3650"},
		{CycleWeekly, 5, "20", "260"},
		{CycleMonthly, 500, "500", "6000"},
		{CycleYearly, 120, "10", "120"},
	}

	for _, tt := range tests {
		t.Run(string(tt.cycle), func(t *testing.T) {
			amount := decimal.NewFromInt(tt.amount)
			assert.True(t, decimal.RequireFromString(tt.monthly).Equal(MonthlyEquivalent(amount, tt.cycle)))
			assert.True(t, decimal.RequireFromString(tt.yearly).Equal(YearlyEquivalent(amount, tt.cycle)))
		})
	}

	assert.True(t, MonthlyEquivalent(decimal.NewFromInt(1), BillingCycle("bogus")).IsZero())
}
