/*
Weighted amount distribution.

PURPOSE:
  Splits an amount across installments proportionally to their weights,
  rounding every share to the money unit while keeping the distributed
  total exactly equal to the input amount.

KEY CONCEPTS:
  - Rounding slop is fixed one money unit at a time, cycling from the
    front of the series. Zero shares are skipped at first so amounts do
    not appear on installments that carried no weight, but become fair
    game once the cursor has cycled long enough.
  - A configured first-installment weight is protected: corrections
    never touch index zero, so the configured proportion holds.
*/
package schedule

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// reconcileGiveUp bounds the correction loop; the cursor passes 1000
// long before this unless every share is stuck.
const reconcileGiveUp = 100_000

// distributeAmountWeighted splits amount by the given weights, rounded
// to the money unit, summing exactly to amount. Weights that sum to
// nothing distribute uniformly.
func (g *Generator) distributeAmountWeighted(amount decimal.Decimal, weights []float64) ([]decimal.Decimal, error) {
	totalWeight := 0.0
	for _, w := range weights { totalWeight += w }
	if math.Abs(totalWeight) < weightDeMinimis {
		weights = make([]float64, len(weights))
		for i := range weights { weights[i] = 1 }
		totalWeight = float64(len(weights))
	}

	dist := make([]decimal.Decimal, len(weights))
	for i, w := range weights {
		dist[i] = g.rounder.Round(amount.Mul(decimal.NewFromFloat(w / totalWeight)))
	}
	return g.correctDistributionRounding(amount, dist)
}

// correctDistributionRounding nudges shares by one money unit at a
// time until the distribution sums to amount.
func (g *Generator) correctDistributionRounding(amount decimal.Decimal, dist []decimal.Decimal) ([]decimal.Decimal, error) {
	shortfall := g.rounder.UnitsIn(amount.Sub(sumAmounts(dist)))
	if shortfall == 0 { return dist, nil }

	correction := g.rounder.Unit()
	if shortfall < 0 {
		correction = correction.Neg()
		shortfall = -shortfall
	}

	cursor := 0
	for shortfall > 0 {
		idx := cursor % len(dist)
		cursor++

		// protect the configured weighting on the first installment
		if idx == 0 && g.opts.FirstInstallmentWeight > 0 { continue }

		if !dist[idx].IsZero() || cursor > 1000 {
			shortfall--
			dist[idx] = g.rounder.Round(dist[idx].Add(correction))
		}
		if cursor > reconcileGiveUp {
			return nil, fmt.Errorf("%w: %s left after distributing %s", ErrRoundingReconciliation,
				amount.Sub(sumAmounts(dist)), amount)
		}
	}

	if !g.rounder.Round(sumAmounts(dist)).Equal(g.rounder.Round(amount)) {
		return nil, fmt.Errorf("%w: distributing %s sums to %s", ErrRoundingReconciliation, amount, sumAmounts(dist))
	}
	return dist, nil
}

func sumAmounts(amounts []decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts { total = total.Add(a) }
	return total
}
