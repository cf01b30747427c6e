/*
Package calendar measures and subdivides time the way billing does.

PURPOSE:
  A Calendar is scoped to one IANA time zone, one optional anchor
  timestamp, and one duration convention. It answers three questions:
    - how long is [start, end) in the configured unit? (Duration)
    - how far through [start, end) is a split point? (DurationRatio)
    - how does [start, end) break into billing intervals? (DateSequence)

KEY CONCEPTS:
  - All timestamps are Unix epoch milliseconds (int64).
  - Calendar arithmetic is wall-clock: adding a day or a month preserves
    the local time of day across DST transitions.
  - Month stepping is anchored: stepping from Jan 31 lands on Feb 28,
    then recovers to Mar 31 because the anchor day-of-month is restored
    whenever the target month allows it.
  - The anchor timestamp makes month durations associative: measuring
    [start, end) as f(anchor, end) − f(anchor, start) keeps installment
    fractions consistent no matter where a term is cut.

SEE ALSO:
  - calendar/duration.go: the duration conventions
  - calendar/sequence.go: interval generation
  - schedule/generator.go: the consumer
*/
package calendar

import (
	"fmt"
	"time"
	_ "time/tzdata" // run anywhere, zoneinfo or not
)

// Unit selects a duration convention.
type Unit string

const (
	// UnitMonths counts anchored calendar months with a linear fraction
	// for the partial month.
	UnitMonths Unit = "months"
	// UnitSocotraMonths counts months the way the upstream platform
	// rates them: clamped stepping with a 7-decimal fractional tail.
	UnitSocotraMonths Unit = "socotraMonths"
	// UnitDays counts fractional wall-clock days.
	UnitDays Unit = "days"
	// UnitWholeDays counts wall-clock days truncated toward zero.
	UnitWholeDays Unit = "wholeDays"
	// UnitDays360 applies the 30/360 day-count convention.
	UnitDays360 Unit = "days360"
	// UnitDays365 counts whole years at 365 days plus actual leftover days.
	UnitDays365 Unit = "days365"
	// UnitMillis counts raw elapsed milliseconds.
	UnitMillis Unit = "ms"
)

// DurationFunc measures [start, end) in some unit. start <= end is
// guaranteed by the caller.
type DurationFunc func(c *Calendar, start, end int64) float64

// CustomUnit lets callers plug in their own duration convention.
type CustomUnit struct {
	Name      string
	Duration  DurationFunc
	UseAnchor bool
}

// Calendar measures durations and generates date sequences in a fixed
// time zone. The zero value is not usable; construct with New or
// NewCustom.
type Calendar struct {
	loc       *time.Location
	anchor    int64 // 0 means unset
	unitName  string
	duration  DurationFunc
	useAnchor bool
}

// New builds a Calendar. timeZone is an IANA name ("America/New_York");
// empty means UTC. anchorTimestamp of 0 leaves the calendar unanchored.
func New(timeZone string, anchorTimestamp int64, unit Unit) (*Calendar, error) {
	c, err := newCalendar(timeZone, anchorTimestamp)
	if err != nil { return nil, err }
	c.unitName = string(unit)
	switch unit {
	case UnitMonths, "":
		c.unitName = string(UnitMonths)
		c.duration = (*Calendar).monthCount
		c.useAnchor = true
	case UnitSocotraMonths:
		c.duration = (*Calendar).socotraMonthCount
		c.useAnchor = true
	case UnitDays:
		c.duration = (*Calendar).dayCount
	case UnitWholeDays:
		c.duration = (*Calendar).wholeDayCount
	case UnitDays360:
		c.duration = (*Calendar).days360
	case UnitDays365:
		c.duration = (*Calendar).days365
		c.useAnchor = true
	case UnitMillis:
		c.duration = func(_ *Calendar, start, end int64) float64 { return float64(end - start) }
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDurationUnit, unit)
	}
	return c, nil
}

// NewCustom builds a Calendar around a caller-supplied duration
// convention.
func NewCustom(timeZone string, anchorTimestamp int64, unit CustomUnit) (*Calendar, error) {
	if unit.Duration == nil { return nil, fmt.Errorf("%w: custom unit %q has no duration function", ErrUnsupportedDurationUnit, unit.Name) }
	c, err := newCalendar(timeZone, anchorTimestamp)
	if err != nil { return nil, err }
	c.unitName = unit.Name
	c.duration = unit.Duration
	c.useAnchor = unit.UseAnchor
	return c, nil
}

func newCalendar(timeZone string, anchorTimestamp int64) (*Calendar, error) {
	if timeZone == "" { timeZone = "UTC" }
	loc, err := time.LoadLocation(timeZone)
	if err != nil { return nil, fmt.Errorf("load time zone %q: %w", timeZone, err) }
	return &Calendar{loc: loc, anchor: anchorTimestamp}, nil
}

// TimeZone returns the calendar's location name.
func (c *Calendar) TimeZone() string { return c.loc.String() }

// AnchorTimestamp returns the current anchor (0 when unset). Duration
// may move the anchor earlier; see moveAnchorEarlier.
func (c *Calendar) AnchorTimestamp() int64 { return c.anchor }

// ============================================================================
// TIMESTAMP HELPERS
// ============================================================================

// at interprets an epoch-millisecond timestamp in the calendar's zone.
func (c *Calendar) at(ts int64) time.Time { return time.UnixMilli(ts).In(c.loc) }

// Timestamp builds an epoch-millisecond timestamp from local date parts.
func (c *Calendar) Timestamp(year int, month time.Month, day, hour, minute, second, millisecond int) int64 {
	return time.Date(year, month, day, hour, minute, second, millisecond*int(time.Millisecond), c.loc).UnixMilli()
}

// DateParts is a timestamp exploded into local components.
type DateParts struct {
	Year        int
	Month       time.Month
	Day         int
	Hour        int
	Minute      int
	Second      int
	Millisecond int
}

// PartsOf explodes ts into local date components.
func (c *Calendar) PartsOf(ts int64) DateParts {
	t := c.at(ts)
	return DateParts{
		Year:        t.Year(),
		Month:       t.Month(),
		Day:         t.Day(),
		Hour:        t.Hour(),
		Minute:      t.Minute(),
		Second:      t.Second(),
		Millisecond: t.Nanosecond() / int(time.Millisecond),
	}
}

// Format renders ts as a local "YYYY-MM-DD hh:mm:ss" string.
func (c *Calendar) Format(ts int64) string { return c.at(ts).Format("2006-01-02 15:04:05") }

// FormatDate renders ts as a local "YYYY-MM-DD" string.
func (c *Calendar) FormatDate(ts int64) string { return c.at(ts).Format("2006-01-02") }

// AddToTimestamp shifts ts by count units. Days, weeks, months and
// years move by wall clock (local time of day preserved across DST);
// hours, minutes and seconds move by exact elapsed time. Unknown units
// return ts unchanged.
func (c *Calendar) AddToTimestamp(ts int64, count int, unit string) int64 {
	switch unit {
	case "day", "days":
		return c.addDays(c.at(ts), count).UnixMilli()
	case "week", "weeks":
		return c.addDays(c.at(ts), count*7).UnixMilli()
	case "month", "months":
		return c.addMonthsClamped(c.at(ts), count).UnixMilli()
	case "year", "years":
		return c.addMonthsClamped(c.at(ts), count*12).UnixMilli()
	case "hour", "hours":
		return ts + int64(count)*millisPerHour
	case "minute", "minutes":
		return ts + int64(count)*60_000
	case "second", "seconds":
		return ts + int64(count)*1_000
	}
	return ts
}

// EndOfDay returns the last millisecond of ts's local day.
func (c *Calendar) EndOfDay(ts int64) int64 {
	t := c.at(ts)
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 999*int(time.Millisecond), c.loc).UnixMilli()
}

const (
	millisPerHour = int64(3_600_000)
	millisPerDay  = int64(86_400_000)
)

// ============================================================================
// WALL-CLOCK ARITHMETIC
// ============================================================================

// addDays moves t by whole local days, preserving the time of day.
func (c *Calendar) addDays(t time.Time, days int) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day()+days, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), c.loc)
}

// setDay rebuilds t on a different day of its month.
func (c *Calendar) setDay(t time.Time, day int) time.Time {
	return time.Date(t.Year(), t.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), c.loc)
}

// addMonthsClamped moves t by months, clamping the day to the target
// month's length (Jan 31 + 1 month = Feb 28). Plain AddDate would
// normalize Feb 31 into March.
func (c *Calendar) addMonthsClamped(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	total := int(month) - 1 + months
	year += floorDiv(total, 12)
	month = time.Month(mod(total, 12) + 1)
	if max := daysInMonth(year, month); day > max { day = max }
	return time.Date(year, month, day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), c.loc)
}

// incrementByMonth steps t by months and then restores the anchor
// day-of-month where the target month allows: Feb 28 recovers to
// Mar 31 when the anchor day is 31, and Jul 31 drops back to Jul 30
// when the anchor day is 30. anchorDay of 0 disables recovery.
func (c *Calendar) incrementByMonth(t time.Time, anchorDay, months int) time.Time {
	t = c.addMonthsClamped(t, months)
	if anchorDay <= 0 { return t }
	if t.Day() < anchorDay {
		return c.setDay(t, minInt(daysInMonth(t.Year(), t.Month()), anchorDay))
	}
	if t.Day() > anchorDay { return c.setDay(t, anchorDay) }
	return t
}

func daysInMonth(year int, month time.Month) int {
	// day 0 of the next month is the last day of this one
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) { q-- }
	return q
}

func mod(a, b int) int {
	m := a % b
	if m < 0 { m += b }
	return m
}

func minInt(a, b int) int {
	if a < b { return a }
	return b
}
