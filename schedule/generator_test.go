package schedule_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/billing-engine/calendar"
	"github.com/warp/billing-engine/policy"
	"github.com/warp/billing-engine/schedule"
)

const tenantZone = "America/New_York"

// fixed clock for every scenario: 2022-08-12 15:33:57.757 ET
const nowTimestamp = int64(1_660_316_037_757)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func estCalendar(t *testing.T) *calendar.Calendar {
	t.Helper()
	c, err := calendar.New(tenantZone, 0, calendar.UnitMonths)
	require.NoError(t, err)
	return c
}

// singleTermPolicy builds a one-term policy created at start.
func singleTermPolicy(start, end int64) *policy.Policy {
	return &policy.Policy{
		Locator:               "pol-100",
		OriginalContractStart: start,
		EffectiveContractEnd:  end,
		Modifications: []policy.Modification{
			{Locator: "mod-create", Name: policy.ModificationCreate, EffectiveTimestamp: start},
		},
	}
}

func premiumCharge(id, amount string, start, end int64) schedule.Charge {
	return schedule.Charge{
		ChargeID:               id,
		Type:                   schedule.ChargePremium,
		Amount:                 dec(amount),
		OriginalAmount:         dec(amount),
		CoverageStartTimestamp: start,
		CoverageEndTimestamp:   end,
	}
}

func newRequest(p *policy.Policy, scheduleName string, charges ...schedule.Charge) *schedule.Request {
	return &schedule.Request{
		Policy:                 p,
		Charges:                charges,
		PaymentScheduleName:    scheduleName,
		TenantTimeZone:         tenantZone,
		DefaultPaymentTermDays: 30,
		Operation:              schedule.OperationNewBusiness,
	}
}

func generate(t *testing.T, req *schedule.Request, opts schedule.Options, now int64) *schedule.Schedule {
	t.Helper()
	gen, err := schedule.NewGenerator(req, opts, now)
	require.NoError(t, err)
	sched, err := gen.Generate()
	require.NoError(t, err)
	return sched
}

// ============================================================================
// STRUCTURAL ASSERTIONS
// ============================================================================

func assertGapless(t *testing.T, installments []schedule.Installment) {
	t.Helper()
	for i := 1; i < len(installments); i++ {
		assert.LessOrEqual(t, installments[i-1].EndTimestamp, installments[i].StartTimestamp,
			"installments %d and %d overlap", i-1, i)
	}
}

func assertNothingDueInPast(t *testing.T, installments []schedule.Installment, cal *calendar.Calendar, now int64) {
	t.Helper()
	midnightTonight := cal.EndOfDay(now)
	for i, inst := range installments {
		assert.GreaterOrEqual(t, inst.DueTimestamp, midnightTonight, "installment %d due in the past", i)
	}
}

// assertChargesConserved checks that each charge's items across the
// whole schedule sum exactly to its amount.
func assertChargesConserved(t *testing.T, sched *schedule.Schedule, charges ...schedule.Charge) {
	t.Helper()
	totals := map[string]decimal.Decimal{}
	for _, inst := range sched.Installments {
		for _, item := range inst.InvoiceItems {
			totals[item.ChargeID] = totals[item.ChargeID].Add(item.Amount)
		}
	}
	for _, ch := range charges {
		assert.True(t, totals[ch.ChargeID].Equal(ch.Amount),
			"charge %s billed %s, want %s", ch.ChargeID, totals[ch.ChargeID], ch.Amount)
	}
}

func starts(installments []schedule.Installment) []int64 {
	out := make([]int64, len(installments))
	for i, inst := range installments { out[i] = inst.StartTimestamp }
	return out
}

// ============================================================================
// SCENARIOS
// ============================================================================

// A monthly policy whose term runs 80 seconds past a whole month
// boundary: the trailing stub earns a sub-cent share and is pruned.
func TestMonthlyNewBusiness(t *testing.T) {
	cal := estCalendar(t)
	start := cal.Timestamp(2022, time.August, 1, 0, 0, 0, 0)
	end := cal.Timestamp(2023, time.January, 1, 0, 1, 20, 0)
	charge := premiumCharge("ch-premium-1", "500.00", start, end)
	req := newRequest(singleTermPolicy(start, end), "monthly", charge)

	sched := generate(t, req, schedule.DefaultOptions(), nowTimestamp)

	require.Len(t, sched.Installments, 5)
	assert.Equal(t, []int64{
		1_659_326_400_000, 1_662_004_800_000, 1_664_596_800_000, 1_667_275_200_000, 1_669_870_800_000,
	}, starts(sched.Installments))
	assert.Equal(t, int64(1_672_549_200_000), sched.Installments[4].EndTimestamp)

	for _, inst := range sched.Installments {
		require.Len(t, inst.InvoiceItems, 1)
		assert.True(t, inst.InvoiceItems[0].Amount.Equal(dec("100.00")),
			"got %s", inst.InvoiceItems[0].Amount)
	}
	assertGapless(t, sched.Installments)
	assertNothingDueInPast(t, sched.Installments, cal, nowTimestamp)
	assertChargesConserved(t, sched, charge)
}

// Same policy with the stub period first: every boundary shifts by the
// 80-second remainder.
func TestMonthlyRemainderInstallmentsFirst(t *testing.T) {
	cal := estCalendar(t)
	start := cal.Timestamp(2022, time.August, 1, 0, 0, 0, 0)
	end := cal.Timestamp(2023, time.January, 1, 0, 1, 20, 0)
	charge := premiumCharge("ch-premium-1", "500.00", start, end)
	req := newRequest(singleTermPolicy(start, end), "monthly", charge)
	opts := schedule.DefaultOptions()
	opts.RemainderInstallmentsFirst = true

	sched := generate(t, req, opts, nowTimestamp)

	require.Len(t, sched.Installments, 5)
	assert.Equal(t, []int64{
		1_659_326_480_000, 1_662_004_880_000, 1_664_596_880_000, 1_667_275_280_000, 1_669_870_880_000,
	}, starts(sched.Installments))
	assert.Equal(t, int64(1_672_549_280_000), sched.Installments[4].EndTimestamp)
	assertChargesConserved(t, sched, charge)
}

func TestIssueDatesBackdatedByPaymentTerms(t *testing.T) {
	cal := estCalendar(t)
	start := cal.Timestamp(2024, time.January, 1, 0, 0, 0, 0)
	end := cal.Timestamp(2025, time.January, 1, 0, 0, 0, 0)
	charge := premiumCharge("ch-premium-1", "1200.00", start, end)
	req := newRequest(singleTermPolicy(start, end), "monthly", charge)

	sched := generate(t, req, schedule.DefaultOptions(), nowTimestamp)

	require.Len(t, sched.Installments, 12)
	for _, inst := range sched.Installments {
		assert.Equal(t, cal.AddToTimestamp(inst.StartTimestamp, -30, "days"), inst.IssueTimestamp)
		assert.Equal(t, cal.EndOfDay(inst.StartTimestamp), inst.DueTimestamp)
	}
}

func TestFirstInstallmentWeight(t *testing.T) {
	cal := estCalendar(t)
	start := cal.Timestamp(2024, time.January, 1, 0, 0, 0, 0)
	end := cal.Timestamp(2025, time.January, 1, 0, 0, 0, 0)
	charge := premiumCharge("ch-premium-1", "1100.00", start, end)
	req := newRequest(singleTermPolicy(start, end), "monthly", charge)
	opts := schedule.DefaultOptions()
	opts.FirstInstallmentWeight = 0.75

	sched := generate(t, req, opts, nowTimestamp)

	require.Len(t, sched.Installments, 12)
	first := sched.Installments[0].InvoiceItems[0].Amount
	assert.True(t, first.Equal(dec("825.00")), "got %s", first)
	for _, inst := range sched.Installments[1:] {
		assert.True(t, inst.InvoiceItems[0].Amount.Equal(dec("25.00")),
			"got %s", inst.InvoiceItems[0].Amount)
	}
	assertChargesConserved(t, sched, charge)
}

func TestCarryForwardReducesInstallmentCount(t *testing.T) {
	cal := estCalendar(t)
	start := cal.Timestamp(2024, time.January, 1, 0, 0, 0, 0)
	end := cal.Timestamp(2025, time.January, 1, 0, 0, 0, 0)
	charge := premiumCharge("ch-premium-1", "1200.00", start, end)
	req := newRequest(singleTermPolicy(start, end), "monthly", charge)
	opts := schedule.DefaultOptions()
	opts.CarryForwardThreshold = dec("300")

	sched := generate(t, req, opts, nowTimestamp)

	// 100/month accumulates into quarterly 300s; the first installment
	// survives empty as the current-period placeholder
	require.Len(t, sched.Installments, 5)
	assert.Empty(t, sched.Installments[0].InvoiceItems)
	for _, inst := range sched.Installments[1:] {
		assert.True(t, inst.Total().Equal(dec("300.00")), "got %s", inst.Total())
	}
	assertChargesConserved(t, sched, charge)
}

func TestLevelingEvensUnevenSchedule(t *testing.T) {
	cal := estCalendar(t)
	start := cal.Timestamp(2024, time.January, 1, 0, 0, 0, 0)
	end := cal.Timestamp(2025, time.January, 1, 0, 0, 0, 0)
	charge := premiumCharge("ch-premium-1", "1000.00", start, end)
	req := newRequest(singleTermPolicy(start, end), "monthly", charge)

	sched := generate(t, req, schedule.DefaultOptions(), nowTimestamp)

	require.Len(t, sched.Installments, 12)
	for _, inst := range sched.Installments {
		total := inst.Total()
		assert.True(t, total.Equal(dec("83.33")) || total.Equal(dec("83.34")), "got %s", total)
	}
	assertChargesConserved(t, sched, charge)
}

func TestLevelingWriteOffAppendsWriteOffInstallment(t *testing.T) {
	cal := estCalendar(t)
	start := cal.Timestamp(2024, time.January, 1, 0, 0, 0, 0)
	end := cal.Timestamp(2025, time.January, 1, 0, 0, 0, 0)
	charge := premiumCharge("ch-premium-1", "1000.00", start, end)
	req := newRequest(singleTermPolicy(start, end), "monthly", charge)
	opts := schedule.DefaultOptions()
	opts.LevelingMethod = schedule.LevelingWriteOff

	sched := generate(t, req, opts, nowTimestamp)

	require.Len(t, sched.Installments, 13)
	for _, inst := range sched.Installments[:12] {
		assert.False(t, inst.WriteOff)
		assert.True(t, inst.Total().Equal(dec("83.33")), "got %s", inst.Total())
	}
	wo := sched.Installments[12]
	assert.True(t, wo.WriteOff)
	assert.True(t, wo.Total().Equal(dec("0.04")), "got %s", wo.Total())
	assert.Equal(t, int64(60_000), wo.EndTimestamp-wo.StartTimestamp)
	assert.Equal(t, sched.Installments[11].EndTimestamp, wo.StartTimestamp)
	assertGapless(t, sched.Installments)
	assertChargesConserved(t, sched, charge)
}

func TestInstallmentFees(t *testing.T) {
	cal := estCalendar(t)
	start := cal.Timestamp(2024, time.January, 1, 0, 0, 0, 0)
	end := cal.Timestamp(2025, time.January, 1, 0, 0, 0, 0)
	charge := premiumCharge("ch-premium-1", "1200.00", start, end)
	req := newRequest(singleTermPolicy(start, end), "monthly", charge)
	opts := schedule.DefaultOptions()
	opts.InstallmentFeeAmount = dec("1.00")

	sched := generate(t, req, opts, nowTimestamp)

	require.Len(t, sched.Installments, 12)
	assert.Empty(t, sched.Installments[0].Fees, "no fee on the first installment of a term")
	for _, inst := range sched.Installments[1:] {
		require.Len(t, inst.Fees, 1)
		assert.Equal(t, "installment_fee", inst.Fees[0].FeeName)
		assert.True(t, inst.Fees[0].Amount.Equal(dec("1.00")))
	}
}

func TestFullPayScheduleBillsInOneInstallment(t *testing.T) {
	cal := estCalendar(t)
	start := cal.Timestamp(2024, time.January, 1, 0, 0, 0, 0)
	end := cal.Timestamp(2025, time.January, 1, 0, 0, 0, 0)
	charge := premiumCharge("ch-premium-1", "1200.00", start, end)
	req := newRequest(singleTermPolicy(start, end), "full-pay", charge)

	sched := generate(t, req, schedule.DefaultOptions(), nowTimestamp)

	// one installment spanning the whole term, carrying the full premium
	require.Len(t, sched.Installments, 1)
	inst := sched.Installments[0]
	assert.Equal(t, start, inst.StartTimestamp)
	assert.Equal(t, end, inst.EndTimestamp)
	require.Len(t, inst.InvoiceItems, 1)
	assert.True(t, inst.Total().Equal(dec("1200.00")), "got %s", inst.Total())
	assertChargesConserved(t, sched, charge)
	assertNothingDueInPast(t, sched.Installments, cal, nowTimestamp)
}

func TestFullPayNowUnderThreshold(t *testing.T) {
	cal := estCalendar(t)
	start := cal.Timestamp(2024, time.January, 1, 0, 0, 0, 0)
	end := cal.Timestamp(2025, time.January, 1, 0, 0, 0, 0)
	charge := premiumCharge("ch-premium-1", "4.00", start, end)
	req := newRequest(singleTermPolicy(start, end), "monthly", charge)

	sched := generate(t, req, schedule.DefaultOptions(), nowTimestamp)

	require.Len(t, sched.Installments, 1)
	require.Len(t, sched.Installments[0].InvoiceItems, 1)
	assert.True(t, sched.Installments[0].InvoiceItems[0].Amount.Equal(dec("4.00")))
}

func TestFullPayNowForCredits(t *testing.T) {
	cal := estCalendar(t)
	start := cal.Timestamp(2024, time.January, 1, 0, 0, 0, 0)
	end := cal.Timestamp(2025, time.January, 1, 0, 0, 0, 0)
	charge := premiumCharge("ch-premium-1", "-600.00", start, end)
	req := newRequest(singleTermPolicy(start, end), "monthly", charge)

	sched := generate(t, req, schedule.DefaultOptions(), nowTimestamp)

	require.Len(t, sched.Installments, 1)
	assert.True(t, sched.Installments[0].InvoiceItems[0].Amount.Equal(dec("-600.00")))
}

func TestFullPayNowForCancellation(t *testing.T) {
	cal := estCalendar(t)
	start := cal.Timestamp(2024, time.January, 1, 0, 0, 0, 0)
	end := cal.Timestamp(2025, time.January, 1, 0, 0, 0, 0)
	charge := premiumCharge("ch-premium-1", "600.00", start, end)
	req := newRequest(singleTermPolicy(start, end), "monthly", charge)
	req.Operation = schedule.OperationCancellation
	opts := schedule.DefaultOptions()
	opts.AlwaysFullPayCancellation = true

	sched := generate(t, req, opts, nowTimestamp)

	require.Len(t, sched.Installments, 1)
	assert.True(t, sched.Installments[0].InvoiceItems[0].Amount.Equal(dec("600.00")))
}

func TestOriginalAndReversalPairBillsImmediately(t *testing.T) {
	cal := estCalendar(t)
	start := cal.Timestamp(2024, time.January, 1, 0, 0, 0, 0)
	end := cal.Timestamp(2025, time.January, 1, 0, 0, 0, 0)
	keep := premiumCharge("ch-keep", "1200.00", start, end)
	original := premiumCharge("ch-original", "480.00", start, end)
	reversal := premiumCharge("ch-reversal", "-480.00", start, end)
	// the pair bills the same peril window; that is what groups them
	original.PerilCharacteristicsLocator = "pchar-reversed"
	reversal.PerilCharacteristicsLocator = "pchar-reversed"
	req := newRequest(singleTermPolicy(start, end), "monthly", keep, original, reversal)

	sched := generate(t, req, schedule.DefaultOptions(), nowTimestamp)

	// the pair nets to zero on the first installment instead of
	// spreading offsetting slivers over the year
	first := sched.Installments[0]
	amounts := map[string]decimal.Decimal{}
	for _, item := range first.InvoiceItems { amounts[item.ChargeID] = item.Amount }
	assert.True(t, amounts["ch-original"].Equal(dec("480.00")))
	assert.True(t, amounts["ch-reversal"].Equal(dec("-480.00")))
	assertChargesConserved(t, sched, keep, original, reversal)
}

func TestFeesOnFirstInstallment(t *testing.T) {
	cal := estCalendar(t)
	start := cal.Timestamp(2024, time.January, 1, 0, 0, 0, 0)
	end := cal.Timestamp(2025, time.January, 1, 0, 0, 0, 0)
	p := singleTermPolicy(start, end)
	p.Fees = []policy.Fee{{Locator: "fee-uw", Name: "underwriting", StartTimestamp: start, EndTimestamp: end}}
	premium := premiumCharge("ch-premium-1", "1200.00", start, end)
	fee := schedule.Charge{
		ChargeID:       "ch-fee-1",
		Type:           schedule.ChargeFee,
		Amount:         dec("120.00"),
		OriginalAmount: dec("120.00"),
		FeeLocator:     "fee-uw",
	}
	req := newRequest(p, "monthly", premium, fee)
	opts := schedule.DefaultOptions()
	opts.FeesOnFirstInstallment = true

	sched := generate(t, req, opts, nowTimestamp)

	first := sched.Installments[0]
	amounts := map[string]decimal.Decimal{}
	for _, item := range first.InvoiceItems { amounts[item.ChargeID] = item.Amount }
	assert.True(t, amounts["ch-fee-1"].Equal(dec("120.00")), "fee not billed up front: %v", amounts)
	assertChargesConserved(t, sched, premium, fee)
}

func TestCommissionsUpFront(t *testing.T) {
	cal := estCalendar(t)
	start := cal.Timestamp(2024, time.January, 1, 0, 0, 0, 0)
	end := cal.Timestamp(2025, time.January, 1, 0, 0, 0, 0)
	premium := premiumCharge("ch-premium-1", "1200.00", start, end)
	commission := schedule.Charge{
		ChargeID:               "ch-comm-1",
		Type:                   schedule.ChargeCommission,
		Amount:                 dec("180.00"),
		OriginalAmount:         dec("180.00"),
		CoverageStartTimestamp: start,
		CoverageEndTimestamp:   end,
	}
	req := newRequest(singleTermPolicy(start, end), "monthly", premium, commission)
	opts := schedule.DefaultOptions()
	opts.CommissionPayments = schedule.CommissionUpFront

	sched := generate(t, req, opts, nowTimestamp)

	first := sched.Installments[0]
	amounts := map[string]decimal.Decimal{}
	for _, item := range first.InvoiceItems { amounts[item.ChargeID] = item.Amount }
	assert.True(t, amounts["ch-comm-1"].Equal(dec("180.00")))
	assertChargesConserved(t, sched, premium, commission)
}

// Re-billing after an endorsement: the original amount re-spreads over
// the whole window, then the previously invoiced part nets out of the
// earliest installments.
func TestPreviouslyInvoicedAmountNetsFromEarliestInstallments(t *testing.T) {
	cal := estCalendar(t)
	start := cal.Timestamp(2022, time.August, 1, 0, 0, 0, 0)
	end := cal.Timestamp(2023, time.August, 1, 0, 0, 0, 0)
	charge := schedule.Charge{
		ChargeID:                 "ch-premium-1",
		Type:                     schedule.ChargePremium,
		Amount:                   dec("900.00"),
		OriginalAmount:           dec("1200.00"),
		PreviouslyInvoicedAmount: dec("300.00"),
		CoverageStartTimestamp:   start,
		CoverageEndTimestamp:     end,
	}
	req := newRequest(singleTermPolicy(start, end), "monthly", charge)
	req.Operation = schedule.OperationEndorsement

	sched := generate(t, req, schedule.DefaultOptions(), nowTimestamp)

	// months 1-3 were already billed; the current period survives as a
	// zero invoice for the endorsement, months 4-12 bill 100 each
	require.Len(t, sched.Installments, 10)
	zero := sched.Installments[0]
	require.Len(t, zero.InvoiceItems, 1)
	assert.True(t, zero.InvoiceItems[0].Amount.IsZero())
	assert.Equal(t, "ch-premium-1", zero.InvoiceItems[0].ChargeID)
	for _, inst := range sched.Installments[1:] {
		assert.True(t, inst.Total().Equal(dec("100.00")), "got %s", inst.Total())
	}
}

func TestRefundFromOverchargeBillsAtOnce(t *testing.T) {
	cal := estCalendar(t)
	start := cal.Timestamp(2024, time.January, 1, 0, 0, 0, 0)
	end := cal.Timestamp(2025, time.January, 1, 0, 0, 0, 0)
	premium := premiumCharge("ch-premium-1", "300.00", start, end)
	refund := schedule.Charge{
		ChargeID:                 "ch-refund-1",
		Type:                     schedule.ChargePremium,
		Amount:                   dec("-50.00"),
		OriginalAmount:           dec("400.00"),
		PreviouslyInvoicedAmount: dec("500.00"),
		CoverageStartTimestamp:   start,
		CoverageEndTimestamp:     end,
	}
	req := newRequest(singleTermPolicy(start, end), "monthly", premium, refund)

	sched := generate(t, req, schedule.DefaultOptions(), nowTimestamp)

	first := sched.Installments[0]
	amounts := map[string]decimal.Decimal{}
	for _, item := range first.InvoiceItems { amounts[item.ChargeID] = item.Amount }
	assert.True(t, amounts["ch-refund-1"].Equal(dec("-50.00")),
		"overcharge refund should not spread over time: %v", amounts)
	assertChargesConserved(t, sched, premium, refund)
}

// A charge covering only part of the term weights only the
// installments it overlaps.
func TestMidTermChargePlacement(t *testing.T) {
	cal := estCalendar(t)
	start := cal.Timestamp(2024, time.January, 1, 0, 0, 0, 0)
	end := cal.Timestamp(2025, time.January, 1, 0, 0, 0, 0)
	covStart := cal.Timestamp(2024, time.July, 1, 0, 0, 0, 0)
	annual := premiumCharge("ch-annual", "1200.00", start, end)
	midTerm := premiumCharge("ch-midterm", "600.00", covStart, end)
	req := newRequest(singleTermPolicy(start, end), "monthly", annual, midTerm)
	opts := schedule.DefaultOptions()
	opts.LevelingMethod = schedule.LevelingNone

	sched := generate(t, req, opts, nowTimestamp)

	require.Len(t, sched.Installments, 12)
	for i, inst := range sched.Installments {
		amounts := map[string]decimal.Decimal{}
		for _, item := range inst.InvoiceItems { amounts[item.ChargeID] = item.Amount }
		if i < 6 {
			_, billed := amounts["ch-midterm"]
			assert.False(t, billed, "mid-term charge billed before its coverage (installment %d)", i)
		} else {
			assert.True(t, amounts["ch-midterm"].Equal(dec("100.00")), "installment %d got %v", i, amounts)
		}
	}
	assertChargesConserved(t, sched, annual, midTerm)
}

func TestMultiTermRenewal(t *testing.T) {
	cal := estCalendar(t)
	start := cal.Timestamp(2023, time.January, 1, 0, 0, 0, 0)
	renewal := cal.Timestamp(2024, time.January, 1, 0, 0, 0, 0)
	end := cal.Timestamp(2025, time.January, 1, 0, 0, 0, 0)
	p := &policy.Policy{
		Locator:               "pol-200",
		OriginalContractStart: start,
		EffectiveContractEnd:  end,
		Modifications: []policy.Modification{
			{Locator: "mod-create", Name: policy.ModificationCreate, EffectiveTimestamp: start},
			{Locator: "mod-renew", Name: policy.ModificationRenew, EffectiveTimestamp: renewal},
		},
	}
	first := premiumCharge("ch-term-1", "1200.00", start, renewal)
	second := premiumCharge("ch-term-2", "1320.00", renewal, end)
	req := newRequest(p, "quarterly", first, second)
	// now inside the first term
	now := cal.Timestamp(2023, time.February, 1, 0, 0, 0, 0)

	sched := generate(t, req, schedule.DefaultOptions(), now)

	// four quarters per term, each term billed by its own charge
	require.Len(t, sched.Installments, 8)
	for i, inst := range sched.Installments {
		require.Len(t, inst.InvoiceItems, 1, "installment %d", i)
		if i < 4 {
			assert.Equal(t, "ch-term-1", inst.InvoiceItems[0].ChargeID)
			assert.True(t, inst.InvoiceItems[0].Amount.Equal(dec("300.00")))
		} else {
			assert.Equal(t, "ch-term-2", inst.InvoiceItems[0].ChargeID)
			assert.True(t, inst.InvoiceItems[0].Amount.Equal(dec("330.00")))
		}
	}
	assert.Equal(t, renewal, sched.Installments[4].StartTimestamp)
	assertGapless(t, sched.Installments)
	assertChargesConserved(t, sched, first, second)
}

func TestPastInstallmentsCollapse(t *testing.T) {
	cal := estCalendar(t)
	start := cal.Timestamp(2022, time.January, 1, 0, 0, 0, 0)
	end := cal.Timestamp(2023, time.January, 1, 0, 0, 0, 0)
	charge := premiumCharge("ch-premium-1", "1200.00", start, end)
	req := newRequest(singleTermPolicy(start, end), "monthly", charge)

	// seven months in: January through August already started
	sched := generate(t, req, schedule.DefaultOptions(), nowTimestamp)

	// one catch-up installment for the past, then monthly
	require.Len(t, sched.Installments, 5)
	catchUp := sched.Installments[0]
	assert.Equal(t, cal.Timestamp(2022, time.August, 1, 0, 0, 0, 0), catchUp.StartTimestamp)
	assert.True(t, catchUp.Total().Equal(dec("800.00")), "got %s", catchUp.Total())
	assertNothingDueInPast(t, sched.Installments, cal, nowTimestamp)
	assertChargesConserved(t, sched, charge)
}

func TestCoverageWindowsResolvedFromPolicy(t *testing.T) {
	cal := estCalendar(t)
	start := cal.Timestamp(2024, time.January, 1, 0, 0, 0, 0)
	end := cal.Timestamp(2025, time.January, 1, 0, 0, 0, 0)
	p := singleTermPolicy(start, end)
	p.Exposures = []policy.Exposure{{
		Locator: "exp-1",
		Perils: []policy.Peril{{
			Locator: "peril-1",
			Characteristics: []policy.PerilCharacteristics{
				{Locator: "pchar-1", CoverageStartTimestamp: start, CoverageEndTimestamp: end},
			},
		}},
	}}
	charge := schedule.Charge{
		ChargeID:                    "ch-premium-1",
		Type:                        schedule.ChargePremium,
		Amount:                      dec("1200.00"),
		OriginalAmount:              dec("1200.00"),
		PerilCharacteristicsLocator: "pchar-1",
		// coverage left unset on purpose
	}
	req := newRequest(singleTermPolicy(start, end), "monthly", charge)
	req.Policy = p

	sched := generate(t, req, schedule.DefaultOptions(), nowTimestamp)

	require.Len(t, sched.Installments, 12)
	assertChargesConserved(t, sched, charge)
}

func TestEmptyChargesYieldEmptySchedule(t *testing.T) {
	cal := estCalendar(t)
	start := cal.Timestamp(2024, time.January, 1, 0, 0, 0, 0)
	end := cal.Timestamp(2025, time.January, 1, 0, 0, 0, 0)
	req := newRequest(singleTermPolicy(start, end), "monthly")

	sched := generate(t, req, schedule.DefaultOptions(), nowTimestamp)
	assert.Empty(t, sched.Installments)
}

func TestWeeklySchedule(t *testing.T) {
	cal := estCalendar(t)
	start := cal.Timestamp(2024, time.January, 1, 0, 0, 0, 0)
	end := cal.Timestamp(2024, time.February, 26, 0, 0, 0, 0)
	charge := premiumCharge("ch-premium-1", "560.00", start, end)
	req := newRequest(singleTermPolicy(start, end), "weekly", charge)

	sched := generate(t, req, schedule.DefaultOptions(), nowTimestamp)

	// eight whole weeks
	require.Len(t, sched.Installments, 8)
	for _, inst := range sched.Installments {
		assert.True(t, inst.Total().Equal(dec("70.00")), "got %s", inst.Total())
	}
	assertGapless(t, sched.Installments)
	assertChargesConserved(t, sched, charge)
}

func TestUnrecognizedScheduleName(t *testing.T) {
	cal := estCalendar(t)
	start := cal.Timestamp(2024, time.January, 1, 0, 0, 0, 0)
	end := cal.Timestamp(2025, time.January, 1, 0, 0, 0, 0)
	req := newRequest(singleTermPolicy(start, end), "every-blue-moon",
		premiumCharge("ch-premium-1", "1200.00", start, end))

	_, err := schedule.NewGenerator(req, schedule.DefaultOptions(), nowTimestamp)
	assert.ErrorIs(t, err, schedule.ErrUnrecognizedSchedule)
}

func TestCustomScheduleIncrement(t *testing.T) {
	cal := estCalendar(t)
	start := cal.Timestamp(2024, time.January, 1, 0, 0, 0, 0)
	end := cal.Timestamp(2025, time.January, 1, 0, 0, 0, 0)
	charge := premiumCharge("ch-premium-1", "1200.00", start, end)
	req := newRequest(singleTermPolicy(start, end), "every-blue-moon", charge)
	opts := schedule.DefaultOptions()
	opts.PaymentScheduleToIncrement = map[string]calendar.Increment{
		"every-blue-moon": calendar.Step(calendar.StepHalfYear),
	}

	sched := generate(t, req, opts, nowTimestamp)

	require.Len(t, sched.Installments, 2)
	for _, inst := range sched.Installments {
		assert.True(t, inst.Total().Equal(dec("600.00")), "got %s", inst.Total())
	}
}

func TestBadTimeZoneRejected(t *testing.T) {
	cal := estCalendar(t)
	start := cal.Timestamp(2024, time.January, 1, 0, 0, 0, 0)
	end := cal.Timestamp(2025, time.January, 1, 0, 0, 0, 0)
	req := newRequest(singleTermPolicy(start, end), "monthly",
		premiumCharge("ch-premium-1", "1200.00", start, end))
	req.TenantTimeZone = "Atlantis/Lemuria"

	_, err := schedule.NewGenerator(req, schedule.DefaultOptions(), nowTimestamp)
	assert.Error(t, err)
}
