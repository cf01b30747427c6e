/*
Package schedule errors.

PURPOSE:
  Sentinel errors raised by the generator itself. Calendar errors
  (invalid ranges, unsupported units) pass through wrapped; callers
  branch on the whole taxonomy with errors.Is.
*/
package schedule

import "errors"

var (
	// ErrUnrecognizedSchedule is returned when the payment schedule
	// name maps to no increment.
	ErrUnrecognizedSchedule = errors.New("payment schedule not recognized")

	// ErrRoundingReconciliation is returned when a weighted
	// distribution cannot be nudged back to its exact total.
	ErrRoundingReconciliation = errors.New("distribution does not reconcile to total")
)
