/*
Package calendar errors.

PURPOSE:
  Sentinel errors for the calendar engine plus structured wrappers that
  carry the offending inputs. Callers branch with errors.Is; the API
  layer maps these to 400 responses.
*/
package calendar

import (
	"errors"
	"fmt"
)

// ============================================================================
// SENTINEL ERRORS
// ============================================================================

var (
	// ErrUnsupportedDurationUnit is returned when a Calendar is built
	// with a duration convention the engine does not know.
	ErrUnsupportedDurationUnit = errors.New("duration unit not supported")

	// ErrUnsupportedIncrement is returned when a sequence step token is
	// not recognized.
	ErrUnsupportedIncrement = errors.New("sequence increment not supported")

	// ErrInvalidRange is returned when a range's start does not precede
	// its end, or a split point falls after the end.
	ErrInvalidRange = errors.New("invalid time range")

	// ErrSequenceConstraint is returned when an increment kind that
	// cannot step backward (eon, day-offset arrays) is asked to start
	// anywhere but its anchor.
	ErrSequenceConstraint = errors.New("sequence increment requires anchor equal to start")

	// ErrUnsupportedStepAdjustment is returned when a duration unit that
	// has no month-stepping rule needs its anchor walked back before a
	// measurement.
	ErrUnsupportedStepAdjustment = errors.New("duration unit cannot adjust anchor")
)

// ============================================================================
// STRUCTURED ERRORS
// ============================================================================

// RangeError reports the timestamps that made a range invalid.
type RangeError struct {
	StartTimestamp int64
	SplitTimestamp int64 // zero when the range has no split point
	EndTimestamp   int64
}

func (e *RangeError) Error() string {
	if e.SplitTimestamp != 0 {
		return fmt.Sprintf("invalid time range: start=%d split=%d end=%d", e.StartTimestamp, e.SplitTimestamp, e.EndTimestamp)
	}
	return fmt.Sprintf("invalid time range: start=%d end=%d", e.StartTimestamp, e.EndTimestamp)
}

func (e *RangeError) Unwrap() error { return ErrInvalidRange }
