/*
Duration conventions.

PURPOSE:
  Implements every duration unit a Calendar can be configured with, the
  anchored measurement rule, and the ratio helpers used to prorate
  amounts across partial intervals.

KEY CONCEPTS:
  - Duration(start, end) with start > end returns the negated forward
    measurement.
  - Anchored units (months, socotraMonths, days365) measure through the
    anchor: f(anchor, end) − f(anchor, start). When the anchor sits
    after start it is first walked earlier one month at a time, which
    mutates the calendar's anchor.
  - DurationRatio clamps to [0, 1] and never extrapolates.
*/
package calendar

import (
	"fmt"
	"math"
	"time"
)

// ============================================================================
// MEASUREMENT
// ============================================================================

// Duration measures [start, end) in the calendar's unit. A reversed
// range measures forward and negates. Anchored units may need to move
// the anchor earlier first; units without a stepping rule fail that
// adjustment with ErrUnsupportedStepAdjustment.
func (c *Calendar) Duration(start, end int64) (float64, error) {
	if start > end {
		d, err := c.Duration(end, start)
		return -d, err
	}
	if c.anchor != 0 && c.useAnchor && c.anchor != start {
		if c.anchor > start {
			if err := c.moveAnchorEarlier(start); err != nil { return 0, err }
		}
		return c.duration(c, c.anchor, end) - c.duration(c, c.anchor, start), nil
	}
	return c.duration(c, start, end), nil
}

// DurationRatio reports how far through [start, end) the split point
// sits, in the calendar's unit. With postSplit the numerator is the
// remainder [split, end) instead of the elapsed part. The result is
// clamped to [0, 1].
func (c *Calendar) DurationRatio(start, split, end int64, postSplit bool) (float64, error) {
	if start >= end { return 0, &RangeError{StartTimestamp: start, EndTimestamp: end} }
	if split > end { return 0, &RangeError{StartTimestamp: start, SplitTimestamp: split, EndTimestamp: end} }
	var numStart, numEnd int64
	if postSplit {
		numStart, numEnd = split, end
	} else {
		numStart, numEnd = start, split
	}
	num, err := c.Duration(numStart, numEnd)
	if err != nil { return 0, err }
	den, err := c.Duration(start, end)
	if err != nil { return 0, err }
	return clampRatio(num, den), nil
}

// LinearRatio is DurationRatio measured in raw milliseconds,
// independent of the calendar's configured unit.
func (c *Calendar) LinearRatio(start, split, end int64) (float64, error) {
	return c.ratioOf(start, split, end, func(c *Calendar, s, e int64) float64 { return float64(e - s) })
}

// DayCountRatio is DurationRatio measured in wall-clock days.
func (c *Calendar) DayCountRatio(start, split, end int64) (float64, error) {
	return c.ratioOf(start, split, end, (*Calendar).dayCount)
}

// MonthCountRatio is DurationRatio measured in platform month counts.
func (c *Calendar) MonthCountRatio(start, split, end int64) (float64, error) {
	return c.ratioOf(start, split, end, (*Calendar).socotraMonthCount)
}

func (c *Calendar) ratioOf(start, split, end int64, f DurationFunc) (float64, error) {
	if start >= end { return 0, &RangeError{StartTimestamp: start, EndTimestamp: end} }
	if split > end { return 0, &RangeError{StartTimestamp: start, SplitTimestamp: split, EndTimestamp: end} }
	return clampRatio(f(c, start, split), f(c, start, end)), nil
}

func clampRatio(num, den float64) float64 {
	if num <= 0 { return 0 }
	if num >= den { return 1 }
	return num / den
}

// YearlyRate converts a target amount for [start, end) into an annual
// rate using platform month counting.
func (c *Calendar) YearlyRate(start, end int64, targetAmount float64) float64 {
	return targetAmount / c.socotraMonthCount(start, end) * 12
}

// moveAnchorEarlier walks the anchor back whole months until it is at
// or before ts. Only month-stepped units know how to do this.
func (c *Calendar) moveAnchorEarlier(ts int64) error {
	if ts >= c.anchor { return nil }
	switch c.unitName {
	case string(UnitMonths), string(UnitSocotraMonths):
		t := c.at(c.anchor)
		for t.UnixMilli() > ts { t = c.addMonthsClamped(t, -1) }
		c.anchor = t.UnixMilli()
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedStepAdjustment, c.unitName)
	}
}

// ============================================================================
// DAY-BASED CONVENTIONS
// ============================================================================

// wallMillis shifts ts by its local UTC offset so that subtracting two
// shifted values yields the wall-clock difference (DST neutral).
func (c *Calendar) wallMillis(ts int64) int64 {
	_, offset := c.at(ts).Zone()
	return ts + int64(offset)*1_000
}

// dayCount is the fractional wall-clock day difference.
func (c *Calendar) dayCount(start, end int64) float64 {
	return float64(c.wallMillis(end)-c.wallMillis(start)) / float64(millisPerDay)
}

// wholeDayCount truncates dayCount toward zero.
func (c *Calendar) wholeDayCount(start, end int64) float64 { return math.Trunc(c.dayCount(start, end)) }

// days360 applies the 30E/360 convention: both end days clamp to 30.
func (c *Calendar) days360(start, end int64) float64 {
	s, e := c.at(start), c.at(end)
	sd, ed := s.Day(), e.Day()
	if sd > 30 { sd = 30 }
	if ed > 30 { ed = 30 }
	return float64((e.Year()-s.Year())*360 + (int(e.Month())-int(s.Month()))*30 + (ed - sd))
}

// days365 counts whole calendar years at 365 days each, plus the
// actual whole days left over.
func (c *Calendar) days365(start, end int64) float64 {
	s, e := c.at(start), c.at(end)
	total := 0.0
	if years := e.Year() - s.Year(); years != 0 {
		e = c.addMonthsClamped(e, -years*12)
		total += float64(years * 365)
	}
	return total + c.wholeDayCount(start, e.UnixMilli())
}

// ============================================================================
// MONTH-BASED CONVENTIONS
// ============================================================================

// gap large enough to hold at least a year of months, used to fast-path
// multi-year spans before stepping month by month
const yearGapMillis = int64(31_626_720_000)

// monthCount counts anchored months between start and end, with the
// trailing partial month measured linearly within its month.
func (c *Calendar) monthCount(start, end int64) float64 {
	cursor := c.at(start)
	anchorDay := cursor.Day()
	if c.anchor != 0 { anchorDay = c.at(c.anchor).Day() }
	// day-of-month recovery only matters near month ends
	if anchorDay < 29 { anchorDay = 0 }

	months := 0.0
	if yearsGap := (end - start) / yearGapMillis; yearsGap > 0 {
		cursor = c.addMonthsClamped(cursor, int(yearsGap)*12)
		months = float64(yearsGap * 12)
	}
	for cursor.UnixMilli() < end {
		next := c.incrementByMonth(cursor, anchorDay, 1)
		if next.UnixMilli() > end {
			months += float64(end-cursor.UnixMilli()) / float64(next.UnixMilli()-cursor.UnixMilli())
		} else {
			months++
		}
		cursor = next
	}
	return months
}

// socotraMonthCount counts months the way the upstream platform rates
// them. Same-day same-time spans are counted analytically; everything
// else steps with the platform's end-of-month recovery rule and rounds
// the fractional tail to 7 decimals.
func (c *Calendar) socotraMonthCount(start, end int64) float64 {
	base := c.anchor
	if base == 0 { base = start }
	s, e := c.at(start), c.at(end)
	if base <= start && start < end && s.Day() == e.Day() && s.Hour() == e.Hour() && start%millisPerHour == end%millisPerHour {
		return float64((e.Year()-s.Year())*12 + int(e.Month()) - int(s.Month()))
	}

	baseDay := c.at(base).Day()
	startDay := s.Day()
	count := 0
	prev := s
	cursor := c.socotraIncrement(s, baseDay)
	for cursor.UnixMilli() < end {
		prev = cursor
		cursor = c.socotraIncrement(cursor, baseDay)
		count++
		if cursor.Day() != startDay {
			if dim := daysInMonth(cursor.Year(), cursor.Month()); baseDay >= dim {
				cursor = c.setDay(cursor, dim)
			} else {
				cursor = c.setDay(cursor, minInt(startDay, dim))
			}
		}
	}
	if prev.UnixMilli() == end { return float64(count) }
	remainder := float64(end - prev.UnixMilli())
	whole := float64(cursor.UnixMilli() - prev.UnixMilli())
	return round7(float64(count) + remainder/whole)
}

// socotraIncrement steps one month forward. When the cursor sits on the
// last day of a short month and the base day is later, the step
// recovers toward the base day instead of staying clamped.
func (c *Calendar) socotraIncrement(t time.Time, baseDay int) time.Time {
	startDay := t.Day()
	dim := daysInMonth(t.Year(), t.Month())
	next := c.addMonthsClamped(t, 1)
	if startDay == dim && startDay < baseDay && next.Day() < baseDay {
		return c.setDay(next, minInt(daysInMonth(next.Year(), next.Month()), baseDay))
	}
	return next
}

func round7(x float64) float64 { return math.Round(x*1e7) / 1e7 }
