/*
Installment schedule generation.

PURPOSE:
  Turns one Request into a Schedule: splits each policy term into
  cadence installments, spreads every charge across them by time
  weight, then refines the series (past collapse, carry-forward,
  leveling, installment fees, cleanup) until it is billable.

KEY CONCEPTS:
  - The generator owns working copies of the charges; the Request is
    never mutated.
  - "Immediate" charges land whole on the first installment: netting
    original/reversal pairs, optionally fees and commissions, and
    everything when the run is full-pay-now.
  - Payable amount excludes commission items throughout: commissions
    ride along but never drive carry-forward or leveling.
  - Items smaller than the de minimis magnitude are never recorded.

SEE ALSO:
  - schedule/distribute.go: weighted distribution with exact totals
  - schedule/adjust.go: carry-forward and leveling
  - calendar/sequence.go: interval generation per term
*/
package schedule

import (
	"fmt"
	"sort"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/warp/billing-engine/calendar"
	"github.com/warp/billing-engine/money"
	"github.com/warp/billing-engine/policy"
)

// deMinimis is the magnitude below which amounts are treated as zero.
var deMinimis = decimal.New(1, -8)

const weightDeMinimis = 1e-8

// ============================================================================
// WORKING TYPES
// ============================================================================

// chargeState is the generator's working copy of one charge.
type chargeState struct {
	Charge
	immediate bool
	groupID   string
}

type invoiceItem struct {
	chargeID string
	amount   decimal.Decimal
	typ      ChargeType
}

type installment struct {
	start    int64
	end      int64
	issue    int64
	due      int64
	items    []*invoiceItem
	fees     []InstallmentFee
	writeOff bool

	// numInTerm is the installment's position within its term;
	// installment fees skip position zero.
	numInTerm int
	// fraction is the stub installment's share of a whole cadence
	// period; zero means a whole period.
	fraction float64
	remove   bool
}

type term struct {
	start        int64
	end          int64
	installments []*installment
}

// ============================================================================
// GENERATOR
// ============================================================================

// Generator produces one Schedule for one Request. Build with
// NewGenerator and call Generate once.
type Generator struct {
	req       *Request
	opts      Options
	cal       *calendar.Calendar
	rounder   money.Rounder
	ctx       *policy.Context
	increment calendar.Increment
	now       int64
	charges   []*chargeState
}

// NewGenerator validates the schedule name, builds the tenant calendar
// anchored on the policy's original contract start, and snapshots the
// charges. nowTimestamp fixes "now" for the whole run.
func NewGenerator(req *Request, opts Options, nowTimestamp int64) (*Generator, error) {
	inc, ok := opts.incrementFor(req.PaymentScheduleName)
	if !ok { return nil, fmt.Errorf("%w: %q", ErrUnrecognizedSchedule, req.PaymentScheduleName) }

	cal, err := calendar.New(req.TenantTimeZone, req.Policy.OriginalContractStart, durationUnitFor(req.PaymentScheduleName))
	if err != nil { return nil, err }

	g := &Generator{
		req:       req,
		opts:      opts,
		cal:       cal,
		rounder:   money.NewRounder(opts.MoneyUnit),
		ctx:       policy.NewContext(req.Policy),
		increment: inc,
		now:       nowTimestamp,
	}
	g.charges = g.normalizeCharges()
	return g, nil
}

// normalizeCharges copies the request charges and widens each coverage
// window to the full window of the entity it bills. Re-billed charges
// arrive with their start pushed past the previously invoiced span;
// spreading them over the full window instead avoids billing the
// remainder too early.
func (g *Generator) normalizeCharges() []*chargeState {
	out := make([]*chargeState, 0, len(g.req.Charges))
	for i := range g.req.Charges {
		ch := &chargeState{Charge: g.req.Charges[i]}
		if ch.PerilCharacteristicsLocator != "" {
			if chars := g.ctx.PerilCharacteristics(ch.PerilCharacteristicsLocator); chars != nil {
				ch.CoverageStartTimestamp = chars.CoverageStartTimestamp
				ch.CoverageEndTimestamp = chars.CoverageEndTimestamp
			}
		} else if fee := g.ctx.Fee(ch.FeeLocator); fee != nil {
			// no peril characteristics locator suggests a fee charge
			ch.CoverageStartTimestamp = fee.StartTimestamp
			ch.CoverageEndTimestamp = fee.EndTimestamp
		}
		out = append(out, ch)
	}
	return out
}

// Generate runs the pipeline and returns the schedule.
func (g *Generator) Generate() (*Schedule, error) {
	if len(g.charges) == 0 { return &Schedule{Installments: []Installment{}}, nil }

	g.markImmediateCharges()

	terms, err := g.buildTerms()
	if err != nil { return nil, err }
	if err := g.placeCharges(terms); err != nil { return nil, err }

	// terms served their purpose; the rest of the pipeline is flat
	installments := lo.FlatMap(terms, func(t *term, _ int) []*installment { return t.installments })
	if len(installments) == 0 { return &Schedule{Installments: []Installment{}}, nil }

	g.setDueAndIssueDates(installments, true)

	// at most one invoice covers time before now
	if g.opts.CollapsePastInstallments { collapsePastInstallments(installments, g.now) }

	// nothing becomes due in the past, or it would go straight to grace
	midnightTonight := g.cal.EndOfDay(g.now)
	for _, inst := range installments {
		if inst.due < midnightTonight { inst.due = midnightTonight }
	}

	if g.opts.AdjustAcrossTerms {
		installments = g.carryForward(installments)
		installments = g.level(installments)
	}

	if !g.opts.InstallmentFeeAmount.IsZero() && len(installments) > 1 {
		g.applyInstallmentFees(installments)
	}

	installments = g.cleanupInstallments(installments)

	return g.finish(installments), nil
}

// cleanupInstallments drops zero items, merges duplicate charge entries
// and removes empty installments, keeping the current-period one.
// Running it again on its own output changes nothing.
func (g *Generator) cleanupInstallments(installments []*installment) []*installment {
	for _, inst := range installments {
		inst.items = lo.Filter(inst.items, func(it *invoiceItem, _ int) bool { return !it.amount.IsZero() })
		g.combineItemsWithSameChargeID(inst)
	}

	g.markEmptyInstallmentsForRemoval(installments)
	return lo.Filter(installments, func(inst *installment, _ int) bool { return !inst.remove })
}

// ============================================================================
// IMMEDIATE CHARGES
// ============================================================================

func (g *Generator) markImmediateCharges() {
	if g.isFullPayNow() {
		for _, ch := range g.charges { ch.immediate = true }
		return
	}
	g.markOriginalAndReversalPairs()
	if g.opts.FeesOnFirstInstallment {
		for _, ch := range g.charges {
			if ch.Type == ChargeFee { ch.immediate = true }
		}
	}
	if g.opts.CommissionPayments == CommissionUpFront {
		for _, ch := range g.charges {
			if ch.Type == ChargeCommission { ch.immediate = true }
		}
	}
}

// isFullPayNow decides whether the whole run bills on one invoice:
// credits (when configured), totals at or under the threshold, and
// cancellations (when configured).
func (g *Generator) isFullPayNow() bool {
	total := decimal.Zero
	for _, ch := range g.charges {
		if ch.Type != ChargeCommission { total = total.Add(ch.Amount) }
	}
	if g.opts.AlwaysFullPayCredit && !total.IsPositive() { return true }
	if total.Abs().LessThanOrEqual(g.opts.FullPayNowThreshold) { return true }
	return g.opts.AlwaysFullPayCancellation && g.req.Operation == OperationCancellation
}

// markOriginalAndReversalPairs finds charge groups that net to zero
// (an original and its reversal) and bills them immediately so they
// cancel on one invoice.
func (g *Generator) markOriginalAndReversalPairs() {
	for _, ch := range g.charges {
		ch.groupID = string(ch.Type) + ch.PerilCharacteristicsLocator + ch.CommissionLocator + ch.FeeLocator + ch.TaxLocator
	}
	groups := lo.GroupBy(g.charges, func(ch *chargeState) string { return ch.groupID })
	for _, group := range groups {
		if len(group) < 2 { continue }
		sum := decimal.Zero
		for _, ch := range group { sum = sum.Add(ch.Amount) }
		if sum.Abs().LessThan(deMinimis) {
			for _, ch := range group { ch.immediate = true }
		}
	}
}

// ============================================================================
// TERMS AND EMPTY INSTALLMENTS
// ============================================================================

// buildTerms derives the policy's terms from its create/renew
// modifications and fills each with empty cadence installments.
func (g *Generator) buildTerms() ([]*term, error) {
	maxPolicyEnd := g.req.Policy.EffectiveContractEnd
	for _, ch := range g.charges {
		if ch.CoverageEndTimestamp > maxPolicyEnd { maxPolicyEnd = ch.CoverageEndTimestamp }
	}
	for _, m := range g.req.Policy.Modifications {
		if m.EffectiveTimestamp > maxPolicyEnd { maxPolicyEnd = m.EffectiveTimestamp }
	}

	var terms []*term
	for _, m := range g.req.Policy.Modifications {
		if m.Name != policy.ModificationCreate && m.Name != policy.ModificationRenew { continue }
		if m.EffectiveTimestamp >= maxPolicyEnd { continue }
		terms = append(terms, &term{start: m.EffectiveTimestamp})
	}
	sort.Slice(terms, func(i, j int) bool { return terms[i].start < terms[j].start })
	for i := range terms {
		if i < len(terms)-1 {
			terms[i].end = terms[i+1].start
		} else {
			terms[i].end = maxPolicyEnd
		}
	}

	// drop terms that end before anything is billable
	earliestChargeTime := int64(0)
	for i, ch := range g.charges {
		if i == 0 || ch.CoverageStartTimestamp < earliestChargeTime { earliestChargeTime = ch.CoverageStartTimestamp }
	}
	terms = lo.Filter(terms, func(t *term, _ int) bool { return t.end > earliestChargeTime })

	for _, t := range terms {
		if err := g.fillTerm(t); err != nil { return nil, err }
	}
	return terms, nil
}

func (g *Generator) fillTerm(t *term) error {
	anchor := t.start
	if g.opts.RemainderInstallmentsFirst { anchor = t.end }
	seq, err := g.cal.DateSequence(t.start, t.end, calendar.SequenceOptions{
		Increment:       g.increment,
		AnchorTimestamp: anchor,
	})
	if err != nil { return err }

	t.installments = make([]*installment, len(seq.Intervals))
	for i, iv := range seq.Intervals {
		t.installments[i] = &installment{
			start:     iv.StartTimestamp,
			end:       iv.EndTimestamp,
			due:       iv.StartTimestamp,
			numInTerm: i,
		}
	}

	// stub installments carry a fractional weight derived from how far
	// the cadence overshoots the term
	if len(t.installments) > 1 {
		if seq.StartCursor < t.start {
			first := t.installments[0]
			first.fraction, err = g.cal.DurationRatio(seq.StartCursor, first.start, first.end, true)
			if err != nil { return err }
		}
		if seq.EndCursor > t.end {
			last := t.installments[len(t.installments)-1]
			last.fraction, err = g.cal.DurationRatio(last.start, last.end, seq.EndCursor, false)
			if err != nil { return err }
		}
	}
	return nil
}

// ============================================================================
// CHARGE PLACEMENT
// ============================================================================

// placeCharges assigns every charge to the installments of the term
// its coverage starts in, then refines each term unless adjustments
// run across the whole schedule.
func (g *Generator) placeCharges(terms []*term) error {
	for _, t := range terms {
		for _, ch := range g.charges {
			if ch.Amount.IsZero() { continue }
			if ch.CoverageStartTimestamp < t.start || ch.CoverageStartTimestamp >= t.end { continue }
			if err := g.placeCharge(ch, t.installments); err != nil { return err }
		}
		if !g.opts.AdjustAcrossTerms {
			t.installments = g.carryForward(t.installments)
			t.installments = g.level(t.installments)
		}
	}
	return nil
}

// placeCharge spreads one charge over a term's installments by time
// weight.
func (g *Generator) placeCharge(ch *chargeState, installments []*installment) error {
	if len(installments) == 1 || ch.immediate {
		if !ch.Amount.IsZero() {
			installments[0].items = append(installments[0].items,
				&invoiceItem{chargeID: ch.ChargeID, amount: ch.Amount, typ: ch.Type})
		}
		return nil
	}

	weights := make([]float64, len(installments))
	for i, inst := range installments { weights[i] = wholeOr(inst.fraction) }

	if g.opts.FirstInstallmentWeight > 0 {
		// the first installment's own fraction is ignored; its weight
		// is set so it carries the configured share of the total
		subsequentWeight := -wholeOr(installments[0].fraction)
		for _, inst := range installments { subsequentWeight += wholeOr(inst.fraction) }
		weights[0] = g.opts.FirstInstallmentWeight * subsequentWeight / (1 - g.opts.FirstInstallmentWeight)
	}

	// zero out installments the charge does not overlap, and scale
	// partial overlaps by the covered share of the installment
	for i, inst := range installments {
		if ch.CoverageStartTimestamp >= inst.end || ch.CoverageEndTimestamp <= inst.start {
			weights[i] = 0
			continue
		}
		if ch.CoverageStartTimestamp > inst.start || ch.CoverageEndTimestamp < inst.end {
			num, err := g.cal.Duration(maxInt64(inst.start, ch.CoverageStartTimestamp), minInt64(inst.end, ch.CoverageEndTimestamp))
			if err != nil { return err }
			den, err := g.cal.Duration(inst.start, inst.end)
			if err != nil { return err }
			if num <= 0 {
				weights[i] = 0
			} else if den > num {
				weights[i] *= num / den
			}
		}
	}

	var distribution []decimal.Decimal
	var err error
	switch {
	case ch.OriginalAmount.IsZero() || g.isRefundFromOvercharge(ch):
		// nothing meaningful to spread over time; bill in one piece
		distribution = make([]decimal.Decimal, len(weights))
		for i := range distribution { distribution[i] = decimal.Zero }
		distribution[0] = ch.Amount

	case !ch.PreviouslyInvoicedAmount.IsZero():
		// re-spread the original over the full window, then net out
		// the previously invoiced amount from the earliest
		// installments forward; netting the charge amount directly
		// would bill the remainder too early
		isNeg := ch.OriginalAmount.IsNegative()
		distribution, err = g.distributeAmountWeighted(ch.OriginalAmount.Abs(), weights)
		if err != nil { return err }
		prevAmt := ch.PreviouslyInvoicedAmount
		if isNeg { prevAmt = prevAmt.Neg() }
		for i := range distribution {
			if prevAmt.IsNegative() {
				distribution[i] = distribution[i].Sub(prevAmt)
				break
			}
			if prevAmt.IsZero() { break }
			amt := decimal.Min(prevAmt, distribution[i])
			distribution[i] = distribution[i].Sub(amt)
			prevAmt = prevAmt.Sub(amt)
		}
		if isNeg {
			for i := range distribution { distribution[i] = distribution[i].Neg() }
		}

	default:
		distribution, err = g.distributeAmountWeighted(ch.Amount, weights)
		if err != nil { return err }
	}

	for i, inst := range installments {
		if distribution[i].Abs().GreaterThan(deMinimis) {
			inst.items = append(inst.items, &invoiceItem{chargeID: ch.ChargeID, amount: distribution[i], typ: ch.Type})
		}
	}
	return nil
}

// isRefundFromOvercharge detects a refund against a charge whose
// previous invoicing already exceeds its original amount; spreading it
// over time would never catch up.
func (g *Generator) isRefundFromOvercharge(ch *chargeState) bool {
	return ch.Amount.IsNegative() &&
		ch.PreviouslyInvoicedAmount.GreaterThan(ch.OriginalAmount) &&
		ch.PreviouslyInvoicedAmount.IsPositive() &&
		ch.OriginalAmount.IsPositive()
}

// ============================================================================
// DATES
// ============================================================================

// setDueAndIssueDates backdates issues by the payment terms and makes
// everything due at the end of its start day. Past due dates are fixed
// afterwards, not here.
func (g *Generator) setDueAndIssueDates(installments []*installment, dueAtMidnight bool) {
	for _, inst := range installments {
		inst.issue = inst.start
		if g.req.DefaultPaymentTermDays != 0 {
			inst.issue = g.cal.AddToTimestamp(inst.start, -g.req.DefaultPaymentTermDays, "days")
		}
		if dueAtMidnight {
			inst.due = g.cal.EndOfDay(inst.start)
		} else {
			inst.due = inst.start
		}
	}
}

// collapsePastInstallments moves every already-started installment's
// items onto the most recent one, so the caller never sends a stack of
// invoices at once.
func collapsePastInstallments(installments []*installment, now int64) {
	past := lo.Filter(installments, func(inst *installment, _ int) bool { return inst.start <= now })
	if len(past) <= 1 { return }
	var items []*invoiceItem
	for _, inst := range past { items = append(items, inst.items...) }
	for _, inst := range past[:len(past)-1] { inst.items = nil }
	past[len(past)-1].items = items
}

// ============================================================================
// FEES AND CLEANUP
// ============================================================================

// applyInstallmentFees attaches the flat fee to payable installments,
// excluding each term's first and any write-off.
func (g *Generator) applyInstallmentFees(installments []*installment) {
	for _, inst := range installments {
		if !payableAmount(inst).GreaterThan(deMinimis) { continue }
		if inst.writeOff || inst.numInTerm == 0 { continue }
		inst.fees = append(inst.fees, InstallmentFee{
			FeeName:     g.opts.InstallmentFeeName,
			Description: g.opts.InstallmentFeeDescription,
			Amount:      g.opts.InstallmentFeeAmount,
		})
	}
}

// combineItemsWithSameChargeID merges items billing the same charge
// into one entry, rounding merged sums. Order of first appearance is
// preserved.
func (g *Generator) combineItemsWithSameChargeID(inst *installment) {
	index := make(map[string]int, len(inst.items))
	merged := make([]bool, 0, len(inst.items))
	var out []*invoiceItem
	for _, it := range inst.items {
		if at, ok := index[it.chargeID]; ok {
			out[at].amount = out[at].amount.Add(it.amount)
			merged[at] = true
			continue
		}
		index[it.chargeID] = len(out)
		out = append(out, &invoiceItem{chargeID: it.chargeID, amount: it.amount, typ: it.typ})
		merged = append(merged, false)
	}
	for i, it := range out {
		if merged[i] { it.amount = g.rounder.Round(it.amount) }
	}
	inst.items = out
}

// markEmptyInstallmentsForRemoval drops empty installments, except the
// current-period one: callers generating an immediate endorsement
// invoice need it present even when zero, so it is seeded with a
// zero item referencing the first charge.
func (g *Generator) markEmptyInstallmentsForRemoval(installments []*installment) {
	for _, inst := range installments {
		if len(inst.items) == 0 { inst.remove = true }
	}

	current, found := lo.Find(installments, func(inst *installment) bool {
		return inst.start <= g.now && inst.end > g.now
	})
	if !found { current = installments[0] }
	current.remove = false

	if len(current.items) == 0 && g.req.Operation == OperationEndorsement {
		current.items = []*invoiceItem{{chargeID: g.charges[0].ChargeID, amount: decimal.Zero}}
	}
}

func (g *Generator) finish(installments []*installment) *Schedule {
	out := &Schedule{Installments: make([]Installment, len(installments))}
	for i, inst := range installments {
		items := make([]InvoiceItem, len(inst.items))
		for j, it := range inst.items {
			items[j] = InvoiceItem{ChargeID: it.chargeID, Amount: it.amount}
		}
		out.Installments[i] = Installment{
			StartTimestamp: inst.start,
			EndTimestamp:   inst.end,
			IssueTimestamp: inst.issue,
			DueTimestamp:   inst.due,
			InvoiceItems:   items,
			Fees:           inst.fees,
			WriteOff:       inst.writeOff,
		}
	}
	return out
}

// ============================================================================
// SMALL HELPERS
// ============================================================================

// wholeOr treats a zero fraction as a whole period.
func wholeOr(fraction float64) float64 {
	if fraction == 0 { return 1 }
	return fraction
}

func maxInt64(a, b int64) int64 {
	if a > b { return a }
	return b
}

func minInt64(a, b int64) int64 {
	if a < b { return a }
	return b
}
