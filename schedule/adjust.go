/*
Carry-forward and leveling.

PURPOSE:
  After charges are spread, the raw series can contain trivially small
  installments and near-equal runs that differ by odd cents. Carry-
  forward rolls the small ones into their successor; leveling evens
  each run out to a common payable amount.

KEY CONCEPTS:
  - Both operate on the payable amount, which excludes commissions.
  - Leveling finds maximal runs whose payables stay within the
    threshold of the run's first installment, then retargets each run
    to its rounded mean. The cascading delta bookkeeping keeps every
    charge's total exact: whatever is taken from one installment is
    pushed onto the next as an adjustment item on the same charge.
  - Odd cents either spread backward over the run, pile onto the last
    installment, or accumulate onto a synthetic write-off installment,
    per the leveling method.
*/
package schedule

import "github.com/shopspring/decimal"

// writeOffMaxSpanMillis caps the synthetic write-off installment's
// window at one minute.
const writeOffMaxSpanMillis = int64(60_000)

// payableAmount sums an installment's non-commission items.
func payableAmount(inst *installment) decimal.Decimal {
	total := decimal.Zero
	for _, it := range inst.items {
		if it.typ != ChargeCommission { total = total.Add(it.amount) }
	}
	return total
}

// carryForward rolls installments whose payable magnitude is under the
// threshold into the next installment, front to back.
func (g *Generator) carryForward(installments []*installment) []*installment {
	if !g.opts.CarryForwardThreshold.IsPositive() || len(installments) <= 1 { return installments }

	for i := 1; i < len(installments); i++ {
		prev := installments[i-1]
		if payableAmount(prev).Abs().LessThan(g.opts.CarryForwardThreshold) {
			installments[i].items = append(append([]*invoiceItem{}, prev.items...), installments[i].items...)
			prev.items = nil
		}
	}
	return installments
}

// level evens out runs of near-equal installments. Under the writeOff
// method, residue the runs could not place is forgiven on a synthetic
// trailing installment carved off the last one.
func (g *Generator) level(installments []*installment) []*installment {
	switch g.opts.LevelingMethod {
	case LevelingSpread, LevelingLast, LevelingWriteOff:
	default:
		return installments
	}
	if len(installments) <= 1 { return installments }

	var writeOffs []*invoiceItem
	startIdx := 0
	startingAmount := payableAmount(installments[0])
	for i := 1; i <= len(installments); i++ {
		if i < len(installments) && startingAmount.Sub(payableAmount(installments[i])).Abs().LessThanOrEqual(g.opts.LevelingThreshold) {
			continue
		}
		// the run [startIdx, i) ended; level it if it holds at least two
		if startIdx < i-1 {
			var following *installment
			if i < len(installments)-1 { following = installments[i] }
			writeOffs = g.levelRange(installments[startIdx:i], following, writeOffs)
		}
		if i >= len(installments) { continue }
		if i >= len(installments)-1 { break }
		startIdx = i
		// levelRange may have mutated the payables, so recompute
		startingAmount = payableAmount(installments[i])
	}

	if len(writeOffs) > 0 {
		last := installments[len(installments)-1]
		span := (last.end - last.start) / 2
		if span > writeOffMaxSpanMillis { span = writeOffMaxSpanMillis }
		last.end -= span
		installments = append(installments, &installment{
			start:    last.end,
			end:      last.end + span,
			issue:    last.end,
			due:      last.end,
			items:    writeOffs,
			writeOff: true,
		})
	}
	return installments
}

// levelRange retargets one run to its rounded mean payable. The delta
// owed by each installment cascades forward as an adjustment item so
// charge totals stay exact; the final delta lands on the following
// installment, the write-off pile, or nowhere (spread/last leave the
// odd cents inside the run instead).
func (g *Generator) levelRange(installments []*installment, following *installment, writeOffs []*invoiceItem) []*invoiceItem {
	writeOffOddCents := g.opts.LevelingMethod == LevelingWriteOff

	amounts := make([]decimal.Decimal, len(installments))
	for i, inst := range installments { amounts[i] = payableAmount(inst) }
	sum := sumAmounts(amounts)
	count := decimal.NewFromInt(int64(len(amounts)))
	targetLevel := g.rounder.Round(sum.Div(count))
	deltas := make([]decimal.Decimal, len(amounts))
	for i, a := range amounts { deltas[i] = g.rounder.Round(targetLevel.Sub(a)) }

	if !writeOffOddCents {
		oddCents := g.rounder.UnitsIn(sum.Sub(targetLevel.Mul(count)))
		lastIdx := len(amounts) - 1
		if g.opts.LevelingMethod == LevelingLast {
			deltas[lastIdx] = g.rounder.Unit().Mul(decimal.NewFromInt(oddCents))
		} else { // spread
			for i := lastIdx; i >= 0 && oddCents != 0; i-- {
				if oddCents > 0 {
					deltas[i] = deltas[i].Add(g.rounder.Unit())
					oddCents--
				} else {
					deltas[i] = deltas[i].Sub(g.rounder.Unit())
					oddCents++
				}
			}
		}
	}

	for i := range amounts {
		if deltas[i].Abs().LessThanOrEqual(deMinimis) { continue }
		source := firstNonCommissionItem(installments[i].items)
		if source == nil { continue }
		adj := &invoiceItem{chargeID: source.chargeID, amount: deltas[i].Neg(), typ: source.typ}
		if i < len(amounts)-1 {
			installments[i+1].items = append(installments[i+1].items, adj)
			deltas[i+1] = deltas[i+1].Add(deltas[i])
		} else if following != nil {
			following.items = append(following.items, adj)
		} else if writeOffOddCents {
			writeOffs = append(writeOffs, adj)
		} else {
			break
		}
		source.amount = g.rounder.Round(source.amount.Add(deltas[i]))
	}
	return writeOffs
}

func firstNonCommissionItem(items []*invoiceItem) *invoiceItem {
	for _, it := range items {
		if it.typ != ChargeCommission { return it }
	}
	return nil
}
