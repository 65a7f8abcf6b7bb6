package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fxrates/internal/core"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestIsWorkingDay(t *testing.T) {
	assert.True(t, IsWorkingDay(day(2024, 9, 2)))   // Monday
	assert.True(t, IsWorkingDay(day(2024, 9, 6)))   // Friday
	assert.False(t, IsWorkingDay(day(2024, 9, 7)))  // Saturday
	assert.False(t, IsWorkingDay(day(2024, 9, 8)))  // Sunday
	assert.True(t, IsWorkingDay(day(2024, 12, 25))) // holidays are not modelled
}

func TestWorkingDaysInMonth(t *testing.T) {
	ym := core.YearMonth{Year: 2024, Month: time.September}
	var days []time.Time
	for d := range WorkingDaysInMonth(ym) {
		days = append(days, d)
	}
	require.Len(t, days, 21)
	assert.Equal(t, day(2024, 9, 2), days[0])
	assert.Equal(t, day(2024, 9, 30), days[len(days)-1])
	for i, d := range days {
		assert.True(t, IsWorkingDay(d))
		assert.Equal(t, time.September, d.Month())
		if i > 0 {
			assert.True(t, d.After(days[i-1]))
		}
	}

	// restartable
	assert.Equal(t, 21, CountWorkingDays(ym))
	assert.Equal(t, 21, CountWorkingDays(ym))
}

func TestWorkingDaysStopEarly(t *testing.T) {
	n := 0
	for range WorkingDaysInMonth(core.YearMonth{Year: 2024, Month: time.March}) {
		n++
		if n == 3 {
			break
		}
	}
	assert.Equal(t, 3, n)
}

func TestLongMonthsHaveTwentyToTwentyThreeWorkingDays(t *testing.T) {
	for year := 2000; year <= 2030; year++ {
		for _, m := range []time.Month{time.January, time.March, time.May, time.July, time.August, time.October, time.December} {
			n := CountWorkingDays(core.YearMonth{Year: year, Month: m})
			assert.GreaterOrEqual(t, n, 21, "%d-%02d", year, m)
			assert.LessOrEqual(t, n, 23, "%d-%02d", year, m)
		}
	}
	assert.Equal(t, 20, CountWorkingDays(core.YearMonth{Year: 2026, Month: time.February}))
}

func TestLastAndNextWorkingDay(t *testing.T) {
	assert.Equal(t, day(2024, 8, 30), LastWorkingDay(core.YearMonth{Year: 2024, Month: time.August}))
	assert.Equal(t, day(2024, 9, 30), LastWorkingDay(core.YearMonth{Year: 2024, Month: time.September}))
	assert.Equal(t, day(2024, 9, 2), NextWorkingDay(day(2024, 8, 30)))
	assert.Equal(t, day(2024, 9, 3), NextWorkingDay(day(2024, 9, 2)))
	assert.Equal(t, day(2024, 9, 2), ExpectedPublication(core.YearMonth{Year: 2024, Month: time.August}))
}

func TestIsMonthComplete(t *testing.T) {
	ym := core.YearMonth{Year: 2024, Month: time.September}
	assert.False(t, IsMonthComplete(ym, day(2024, 9, 30)))
	assert.True(t, IsMonthComplete(ym, day(2024, 10, 1)))
}

func TestBounds(t *testing.T) {
	first, last := MonthBounds(core.YearMonth{Year: 2024, Month: time.February})
	assert.Equal(t, day(2024, 2, 1), first)
	assert.Equal(t, day(2024, 2, 29), last)

	qs, qe := QuarterBounds(core.YearMonth{Year: 2024, Month: time.August})
	assert.Equal(t, day(2024, 7, 1), qs)
	assert.Equal(t, day(2024, 9, 30), qe)
}
