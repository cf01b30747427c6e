/*
Date sequence generation.

PURPOSE:
  Splits a [start, end) range into billing intervals on a cadence. The
  cadence walks backward from the anchor to find the natural boundary at
  or before start, then forward emitting boundaries until end.

KEY CONCEPTS:
  - Intervals are closed-open and gapless; the first always starts at
    start and the last always ends at end, even when the cadence's
    natural boundaries overshoot either edge.
  - StartCursor/EndCursor expose the overshoot: the natural boundary at
    or before start, and the first natural boundary at or past end.
    Consumers prorate stub intervals against them.
  - Eon and day-offset increments cannot walk backward, so they insist
    the anchor equals start.
*/
package calendar

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// ============================================================================
// INCREMENTS
// ============================================================================

// Step tokens understood by DateSequence.
const (
	Step30Day   = "30day"
	StepMonth   = "month"
	StepQuarter = "quarter"
	StepHalfYear = "halfYear"
	StepYear    = "year"
	StepWeek    = "week"
	StepTwoWeek = "2week"
	StepEon     = "eon" // the whole range as a single interval
)

// Increment is one sequence cadence: either a named step token or an
// explicit series of day offsets ([60, 30] means +60 days, then +30
// days repeating).
type Increment struct {
	token      string
	dayOffsets []int
}

// Step returns a token-based Increment.
func Step(token string) Increment { return Increment{token: token} }

// DayOffsets returns a day-offset Increment. The last offset repeats.
func DayOffsets(offsets ...int) Increment { return Increment{dayOffsets: offsets} }

// IsZero reports whether the Increment is unset.
func (i Increment) IsZero() bool { return i.token == "" && len(i.dayOffsets) == 0 }

func (i Increment) String() string {
	if len(i.dayOffsets) > 0 {
		parts := make([]string, len(i.dayOffsets))
		for n, d := range i.dayOffsets { parts[n] = fmt.Sprintf("%dd", d) }
		return "days[" + strings.Join(parts, ",") + "]"
	}
	return i.token
}

// ============================================================================
// SEQUENCES
// ============================================================================

// Interval is one closed-open billing interval.
type Interval struct {
	StartTimestamp int64
	EndTimestamp   int64
}

// SequenceOptions tune DateSequence.
type SequenceOptions struct {
	// Increment is the cadence; unset means monthly.
	Increment Increment
	// AnchorTimestamp aligns the cadence; unset (0) means start.
	AnchorTimestamp int64
	// MaxCount caps the number of boundaries emitted; 0 means unlimited.
	MaxCount int
}

// Sequence is the result of DateSequence.
type Sequence struct {
	Intervals   []Interval
	StartCursor int64
	EndCursor   int64
}

// DateSequence splits [start, end) into cadence intervals.
func (c *Calendar) DateSequence(start, end int64, opts SequenceOptions) (*Sequence, error) {
	points, startCursor, endCursor, err := c.sequencePoints(start, end, opts)
	if err != nil { return nil, err }
	intervals := make([]Interval, len(points))
	for i, p := range points {
		intervals[i].StartTimestamp = p
		if i > 0 { intervals[i-1].EndTimestamp = p }
	}
	intervals[len(intervals)-1].EndTimestamp = end
	return &Sequence{Intervals: intervals, StartCursor: startCursor, EndCursor: endCursor}, nil
}

// DatePoints returns the raw boundary series for [start, end) without
// interval conversion. The first point is always start.
func (c *Calendar) DatePoints(start, end int64, opts SequenceOptions) ([]int64, error) {
	points, _, _, err := c.sequencePoints(start, end, opts)
	return points, err
}

func (c *Calendar) sequencePoints(start, end int64, opts SequenceOptions) (points []int64, startCursor, endCursor int64, err error) {
	if start >= end { return nil, 0, 0, &RangeError{StartTimestamp: start, EndTimestamp: end} }

	inc := opts.Increment
	if inc.IsZero() { inc = Step(StepMonth) }
	anchor := opts.AnchorTimestamp
	if anchor == 0 { anchor = start }
	maxCount := opts.MaxCount
	if inc.token == StepEon {
		maxCount = 1
	} else if maxCount <= 0 {
		maxCount = math.MaxInt
	}

	cursor := c.at(anchor)
	anchorDay := cursor.Day()

	// Walk back to the natural boundary at or before start. Eon and
	// day-offset cadences cannot walk backward.
	switch {
	case len(inc.dayOffsets) > 0 || inc.token == StepEon:
		if anchor != start { return nil, 0, 0, fmt.Errorf("%w: %s", ErrSequenceConstraint, inc) }
	default:
		for start < cursor.UnixMilli() {
			cursor, err = c.step(cursor, inc, anchorDay, -1)
			if err != nil { return nil, 0, 0, err }
		}
	}
	startCursor = cursor.UnixMilli()

	offsetIdx := 0
	for cursor.UnixMilli() < end {
		if cursor.UnixMilli() >= start { points = append(points, cursor.UnixMilli()) }
		// advance before checking the cap, so the end cursor overshoots
		// the last emitted point by one increment
		switch {
		case inc.token == StepEon:
			// eon never advances; the cap ends the walk
		case len(inc.dayOffsets) > 0:
			offset := inc.dayOffsets[len(inc.dayOffsets)-1]
			if offsetIdx < len(inc.dayOffsets) { offset = inc.dayOffsets[offsetIdx] }
			offsetIdx++
			cursor = c.addDays(cursor, offset)
		default:
			cursor, err = c.step(cursor, inc, anchorDay, 1)
			if err != nil { return nil, 0, 0, err }
		}
		if len(points) >= maxCount { break }
	}

	if len(points) == 0 || points[0] != start { points = append([]int64{start}, points...) }
	return points, startCursor, cursor.UnixMilli(), nil
}

// step advances t one cadence unit in the given direction.
func (c *Calendar) step(t time.Time, inc Increment, anchorDay, dir int) (time.Time, error) {
	switch inc.token {
	case Step30Day:
		return c.addDays(t, 30*dir), nil
	case StepMonth:
		return c.incrementByMonth(t, anchorDay, dir), nil
	case StepQuarter:
		return c.incrementByMonth(t, anchorDay, 3*dir), nil
	case StepHalfYear:
		return c.incrementByMonth(t, anchorDay, 6*dir), nil
	case StepYear:
		return c.addMonthsClamped(t, 12*dir), nil
	case StepWeek:
		return c.addDays(t, 7*dir), nil
	case StepTwoWeek:
		return c.addDays(t, 14*dir), nil
	}
	return t, fmt.Errorf("%w: %q", ErrUnsupportedIncrement, inc.token)
}
