/*
Generator options and the payment-schedule table.

PURPOSE:
  Options collect every tenant-tunable knob of the generator, with
  DefaultOptions matching the platform defaults. The schedule table
  maps payment schedule names to calendar increments; tenants can add
  or override entries via PaymentScheduleToIncrement.
*/
package schedule

import (
	"github.com/shopspring/decimal"

	"github.com/warp/billing-engine/calendar"
	"github.com/warp/billing-engine/money"
)

// LevelingMethod picks how near-equal installments are evened out.
type LevelingMethod string

const (
	// LevelingNone disables leveling.
	LevelingNone LevelingMethod = ""
	// LevelingSpread pushes odd cents across the trailing installments.
	LevelingSpread LevelingMethod = "spread"
	// LevelingLast parks all odd cents on the last installment.
	LevelingLast LevelingMethod = "last"
	// LevelingWriteOff forgives the residue on a synthetic trailing
	// write-off installment.
	LevelingWriteOff LevelingMethod = "writeOff"
)

// CommissionPayments picks when commission charges are billed.
type CommissionPayments string

const (
	CommissionOnInvoice CommissionPayments = "onInvoice"
	CommissionUpFront   CommissionPayments = "upFront"
)

// Options tune a Generator. Start from DefaultOptions.
type Options struct {
	// CollapsePastInstallments merges installments already in the past
	// onto the most recent one.
	CollapsePastInstallments bool
	// FeesOnFirstInstallment bills fee charges immediately instead of
	// spreading them.
	FeesOnFirstInstallment bool
	// RemainderInstallmentsFirst anchors each term's cadence on the
	// term end, putting the stub period first instead of last.
	RemainderInstallmentsFirst bool
	// FirstInstallmentWeight (0 < w < 1) front-loads the first
	// installment with that share of the total. Zero disables.
	FirstInstallmentWeight float64

	// InstallmentFeeAmount, when nonzero, attaches a flat fee to every
	// payable installment after the first.
	InstallmentFeeAmount      decimal.Decimal
	InstallmentFeeName        string
	InstallmentFeeDescription string

	// FullPayNowThreshold bills everything immediately when the total
	// magnitude is at or under it.
	FullPayNowThreshold decimal.Decimal
	// AlwaysFullPayCredit bills credits (net <= 0) immediately.
	AlwaysFullPayCredit bool
	// AlwaysFullPayCancellation bills cancellations immediately.
	AlwaysFullPayCancellation bool

	CommissionPayments CommissionPayments

	// CarryForwardThreshold rolls installments with a payable magnitude
	// under it into the next installment. Zero or negative disables.
	CarryForwardThreshold decimal.Decimal
	// LevelingThreshold is the payable difference that splits runs of
	// near-equal installments for leveling.
	LevelingThreshold decimal.Decimal
	LevelingMethod    LevelingMethod
	// AdjustAcrossTerms runs carry-forward and leveling over the whole
	// schedule instead of per term.
	AdjustAcrossTerms bool

	// PaymentScheduleToIncrement overrides or extends the default
	// schedule table.
	PaymentScheduleToIncrement map[string]calendar.Increment

	MoneyUnit money.Unit
}

// DefaultOptions returns the platform defaults.
func DefaultOptions() Options {
	return Options{
		CollapsePastInstallments:  true,
		InstallmentFeeAmount:      decimal.Zero,
		InstallmentFeeName:        "installment_fee",
		InstallmentFeeDescription: "Fee for payments over time",
		FullPayNowThreshold:       decimal.NewFromInt(5),
		AlwaysFullPayCredit:       true,
		CommissionPayments:        CommissionOnInvoice,
		CarryForwardThreshold:     decimal.NewFromInt(2),
		LevelingThreshold:         decimal.NewFromInt(1),
		LevelingMethod:            LevelingSpread,
		MoneyUnit:                 money.UnitCents,
	}
}

// DefaultIncrements is the built-in payment-schedule table.
func DefaultIncrements() map[string]calendar.Increment {
	return map[string]calendar.Increment{
		"full-pay":     calendar.Step(calendar.StepEon),
		"upfront":      calendar.Step(calendar.StepEon),
		"weekly":       calendar.Step(calendar.StepWeek),
		"fortnightly":  calendar.Step(calendar.StepTwoWeek),
		"biweekly":     calendar.Step(calendar.StepTwoWeek),
		"monthly":      calendar.Step(calendar.StepMonth),
		"monthly-9":    calendar.Step(calendar.StepMonth),
		"quarterly":    calendar.Step(calendar.StepQuarter),
		"semiannually": calendar.Step(calendar.StepHalfYear),
		"annually":     calendar.Step(calendar.StepYear),
		"commercial":   calendar.DayOffsets(60, 30),
	}
}

// incrementFor resolves a schedule name against the override table,
// then the defaults.
func (o Options) incrementFor(name string) (calendar.Increment, bool) {
	if inc, ok := o.PaymentScheduleToIncrement[name]; ok { return inc, true }
	inc, ok := DefaultIncrements()[name]
	return inc, ok
}

// durationUnitFor picks the duration convention per schedule: weekly
// schedules count whole days, everything else counts anchored months.
func durationUnitFor(name string) calendar.Unit {
	if name == "weekly" { return calendar.UnitWholeDays }
	return calendar.UnitMonths
}
