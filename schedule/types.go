/*
Request and result types for installment schedule generation.

PURPOSE:
  A Request carries one policy snapshot plus the charges to be billed;
  the Generator turns it into a Schedule of installments, each holding
  invoice items that reference the originating charges.

KEY CONCEPTS:
  - Charge amounts are signed: negative for returns and reversals.
  - Amount vs OriginalAmount vs PreviouslyInvoicedAmount drive the
    re-billing logic on endorsements: the engine re-spreads the
    original, then nets out what earlier invoices already collected.
  - Installments are closed-open [start, end) and gapless per term.
*/
package schedule

import (
	"github.com/shopspring/decimal"

	"github.com/warp/billing-engine/policy"
)

// ChargeType classifies a charge.
type ChargeType string

const (
	ChargePremium    ChargeType = "premium"
	ChargeFee        ChargeType = "fee"
	ChargeCommission ChargeType = "commission"
	ChargeTax        ChargeType = "tax"
)

// Operation names the transaction the schedule is generated for.
type Operation string

const (
	OperationNewBusiness  Operation = "newBusiness"
	OperationEndorsement  Operation = "endorsement"
	OperationRenewal      Operation = "renewal"
	OperationCancellation Operation = "cancellation"
	OperationReinstatement Operation = "reinstatement"
)

// Charge is one billable amount to spread over the schedule.
type Charge struct {
	ChargeID string
	Type     ChargeType

	// Amount is what remains to be billed now. OriginalAmount is the
	// full amount before any earlier invoicing; PreviouslyInvoicedAmount
	// is what earlier invoices already collected.
	Amount                   decimal.Decimal
	OriginalAmount           decimal.Decimal
	PreviouslyInvoicedAmount decimal.Decimal

	// Coverage window. Left zero, it is resolved from the policy via
	// the locators below.
	CoverageStartTimestamp int64
	CoverageEndTimestamp   int64

	PerilCharacteristicsLocator string
	CommissionLocator           string
	FeeLocator                  string
	TaxLocator                  string
}

// PlannedInvoice is a future invoice the platform already projected;
// carried through for callers that reconcile against them.
type PlannedInvoice struct {
	StartTimestamp        int64
	EndTimestamp          int64
	DueTimestamp          int64
	FinancialTransactions []FinancialTransaction
}

// FinancialTransaction is one line of a planned invoice.
type FinancialTransaction struct {
	Type   ChargeType
	Amount decimal.Decimal
}

// Request is everything the generator needs for one run.
type Request struct {
	Policy              *policy.Policy
	Charges             []Charge
	PaymentScheduleName string
	// TenantTimeZone is the IANA zone billing dates are computed in.
	TenantTimeZone string
	// DefaultPaymentTermDays backdates issue dates ahead of due dates.
	DefaultPaymentTermDays int
	Operation              Operation
	PlannedInvoices        []PlannedInvoice
}

// Schedule is the generator's result.
type Schedule struct {
	Installments []Installment
}

// Installment is one bill: a coverage window, issue/due dates and the
// invoice items collected on it.
type Installment struct {
	StartTimestamp int64
	EndTimestamp   int64
	IssueTimestamp int64
	DueTimestamp   int64
	InvoiceItems   []InvoiceItem
	Fees           []InstallmentFee
	// WriteOff marks the synthetic trailing installment that absorbs
	// leveling residue under the writeOff method.
	WriteOff bool
}

// InvoiceItem is one charge's share of an installment.
type InvoiceItem struct {
	ChargeID string
	Amount   decimal.Decimal
}

// InstallmentFee is a flat fee attached for paying over time.
type InstallmentFee struct {
	FeeName     string
	Description string
	Amount      decimal.Decimal
}

// Total sums an installment's items and fees.
func (i Installment) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range i.InvoiceItems { total = total.Add(item.Amount) }
	for _, fee := range i.Fees { total = total.Add(fee.Amount) }
	return total
}
