package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDurationMonths(t *testing.T) {
	est := mustCalendar(t, "America/New_York", 0, UnitMonths)

	tests := []struct {
		name       string
		start, end int64
		want       float64
	}{
		{
			"whole year is 12 months",
			est.Timestamp(2022, time.January, 1, 0, 0, 0, 0),
			est.Timestamp(2023, time.January, 1, 0, 0, 0, 0),
			12,
		},
		{
			"single month across DST",
			est.Timestamp(2022, time.November, 1, 0, 0, 0, 0),
			est.Timestamp(2022, time.December, 1, 0, 0, 0, 0),
			1,
		},
		{
			"half of a 30-day month",
			est.Timestamp(2022, time.September, 1, 0, 0, 0, 0),
			est.Timestamp(2022, time.September, 16, 0, 0, 0, 0),
			0.5,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := est.Duration(tt.start, tt.end)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestDurationReversedRangeNegates(t *testing.T) {
	est := mustCalendar(t, "America/New_York", 0, UnitMonths)

	start := est.Timestamp(2022, time.January, 1, 0, 0, 0, 0)
	end := est.Timestamp(2022, time.July, 1, 0, 0, 0, 0)
	fwd, err := est.Duration(start, end)
	require.NoError(t, err)
	rev, err := est.Duration(end, start)
	require.NoError(t, err)
	assert.InDelta(t, -fwd, rev, 1e-9)
}

// Anchored measurement keeps sub-ranges additive: measuring through the
// anchor, d(a,b) + d(b,c) == d(a,c) exactly.
func TestDurationAnchoredIsAdditive(t *testing.T) {
	anchorless := mustCalendar(t, "America/New_York", 0, UnitMonths)
	a := anchorless.Timestamp(2022, time.August, 1, 0, 0, 0, 0)
	b := anchorless.Timestamp(2022, time.December, 15, 7, 30, 0, 0)
	cTS := anchorless.Timestamp(2023, time.February, 1, 0, 0, 0, 0)

	cal := mustCalendar(t, "America/New_York", a, UnitMonths)
	dab, err := cal.Duration(a, b)
	require.NoError(t, err)
	dbc, err := cal.Duration(b, cTS)
	require.NoError(t, err)
	dac, err := cal.Duration(a, cTS)
	require.NoError(t, err)
	assert.InDelta(t, dac, dab+dbc, 1e-9)
}

func TestDurationMovesAnchorEarlier(t *testing.T) {
	est := mustCalendar(t, "America/New_York", 0, UnitMonths)
	anchor := est.Timestamp(2022, time.June, 15, 0, 0, 0, 0)

	cal := mustCalendar(t, "America/New_York", anchor, UnitMonths)
	start := est.Timestamp(2022, time.March, 1, 0, 0, 0, 0)
	end := est.Timestamp(2022, time.September, 15, 0, 0, 0, 0)
	_, err := cal.Duration(start, end)
	require.NoError(t, err)

	// walked back whole months to at or before start
	assert.Equal(t, est.Timestamp(2022, time.February, 15, 0, 0, 0, 0), cal.AnchorTimestamp())
}

func TestDurationAnchorAdjustmentUnsupported(t *testing.T) {
	est := mustCalendar(t, "America/New_York", 0, UnitMonths)
	anchor := est.Timestamp(2022, time.June, 15, 0, 0, 0, 0)

	cal := mustCalendar(t, "America/New_York", anchor, UnitDays365)
	start := est.Timestamp(2022, time.March, 1, 0, 0, 0, 0)
	end := est.Timestamp(2022, time.September, 15, 0, 0, 0, 0)
	_, err := cal.Duration(start, end)
	assert.ErrorIs(t, err, ErrUnsupportedStepAdjustment)
}

func TestDayBasedUnits(t *testing.T) {
	est := mustCalendar(t, "America/New_York", 0, UnitDays)

	// Oct 1 to Nov 10+2h crosses fall-back: 40 wall days and 1 hour
	start := est.Timestamp(2022, time.October, 1, 0, 0, 0, 0)
	end := start + 40*millisPerDay + 2*millisPerHour
	d, err := est.Duration(start, end)
	require.NoError(t, err)
	assert.InDelta(t, 40.0+1.0/24.0, d, 1e-9)

	whole := mustCalendar(t, "America/New_York", 0, UnitWholeDays)
	wd, err := whole.Duration(start, end)
	require.NoError(t, err)
	assert.Equal(t, 40.0, wd)
}

func TestDays360(t *testing.T) {
	utc := mustCalendar(t, "UTC", 0, UnitDays360)

	tests := []struct {
		name       string
		start, end int64
		want       float64
	}{
		{
			"whole year",
			utc.Timestamp(2022, time.January, 1, 0, 0, 0, 0),
			utc.Timestamp(2023, time.January, 1, 0, 0, 0, 0),
			360,
		},
		{
			"every month counts 30",
			utc.Timestamp(2022, time.February, 1, 0, 0, 0, 0),
			utc.Timestamp(2022, time.March, 1, 0, 0, 0, 0),
			30,
		},
		{
			"day 31 clamps to 30",
			utc.Timestamp(2022, time.July, 31, 0, 0, 0, 0),
			utc.Timestamp(2022, time.August, 31, 0, 0, 0, 0),
			30,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := utc.Duration(tt.start, tt.end)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDays365(t *testing.T) {
	utc := mustCalendar(t, "UTC", 0, UnitDays365)

	// two whole years plus ten days, leap day notwithstanding
	start := utc.Timestamp(2023, time.June, 1, 0, 0, 0, 0)
	end := utc.Timestamp(2025, time.June, 11, 0, 0, 0, 0)
	got, err := utc.Duration(start, end)
	require.NoError(t, err)
	assert.Equal(t, 740.0, got)
}

func TestDurationMillis(t *testing.T) {
	utc := mustCalendar(t, "UTC", 0, UnitMillis)

	got, err := utc.Duration(1_000, 61_000)
	require.NoError(t, err)
	assert.Equal(t, 60_000.0, got)
}

func TestCustomUnit(t *testing.T) {
	weeks := CustomUnit{
		Name: "weeks",
		Duration: func(c *Calendar, start, end int64) float64 {
			return float64(end-start) / float64(7*millisPerDay)
		},
	}
	cal, err := NewCustom("UTC", 0, weeks)
	require.NoError(t, err)

	start := cal.Timestamp(2022, time.January, 1, 0, 0, 0, 0)
	got, err := cal.Duration(start, start+14*millisPerDay)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, got, 1e-9)

	_, err = NewCustom("UTC", 0, CustomUnit{Name: "empty"})
	assert.ErrorIs(t, err, ErrUnsupportedDurationUnit)
}

func TestRatioMethods(t *testing.T) {
	est := mustCalendar(t, "America/New_York", 0, UnitMonths)

	start := int64(1664596800000) // 2022-10-01 00:00 ET
	split := start + 20*millisPerDay + 2*millisPerHour
	end := start + 40*millisPerDay + 2*millisPerHour

	linear, err := est.LinearRatio(start, split, end)
	require.NoError(t, err)
	assert.InDelta(t, 0.5010395, linear, 1e-6)

	monthly, err := est.MonthCountRatio(start, split, end)
	require.NoError(t, err)
	assert.InDelta(t, 0.4974435, monthly, 1e-6)

	daily, err := est.DayCountRatio(start, split, end)
	require.NoError(t, err)
	assert.InDelta(t, 0.5015608, daily, 1e-6)
}

func TestDurationRatio(t *testing.T) {
	est := mustCalendar(t, "America/New_York", 0, UnitMonths)

	start := est.Timestamp(2022, time.January, 1, 0, 0, 0, 0)
	mid := est.Timestamp(2022, time.July, 1, 0, 0, 0, 0)
	end := est.Timestamp(2023, time.January, 1, 0, 0, 0, 0)

	r, err := est.DurationRatio(start, mid, end, false)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, r, 1e-9)

	r, err = est.DurationRatio(start, mid, end, true)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, r, 1e-9)

	// clamped at the edges
	r, err = est.DurationRatio(start, start-1000, end, false)
	require.NoError(t, err)
	assert.Equal(t, 0.0, r)
	r, err = est.DurationRatio(start, end, end, false)
	require.NoError(t, err)
	assert.Equal(t, 1.0, r)

	// degenerate inputs fail
	_, err = est.DurationRatio(end, mid, start, false)
	assert.ErrorIs(t, err, ErrInvalidRange)
	_, err = est.DurationRatio(start, end+1000, end, false)
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestYearlyRate(t *testing.T) {
	est := mustCalendar(t, "America/New_York", 0, UnitMonths)

	start := est.Timestamp(2022, time.January, 1, 0, 0, 0, 0)
	end := est.Timestamp(2022, time.July, 1, 0, 0, 0, 0)
	assert.InDelta(t, 1200.0, est.YearlyRate(start, end, 600), 1e-6)
}
