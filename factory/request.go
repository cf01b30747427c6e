/*
Package factory decodes generation requests from the wire.

PURPOSE:
  The calling platform posts JSON in which numbers arrive
  inconsistently: timestamps and amounts may be numeric or stringified.
  This package owns that mess - flexible scalar types, camelCase field
  mapping - and produces a clean schedule.Request for the engine.

SEE ALSO:
  - schedule/types.go: the normalized request
  - api/handlers.go: the consumer
*/
package factory

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/warp/billing-engine/policy"
	"github.com/warp/billing-engine/schedule"
)

// ============================================================================
// FLEXIBLE SCALARS
// ============================================================================

// Timestamp is an epoch-millisecond value that unmarshals from either
// a JSON number or a stringified integer.
type Timestamp int64

// Millis returns the timestamp as epoch milliseconds.
func (t Timestamp) Millis() int64 { return int64(t) }

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" || s == `""` {
		*t = 0
		return nil
	}
	s = strings.Trim(s, `"`)
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil { return fmt.Errorf("parse timestamp %q: %w", s, err) }
	*t = Timestamp(v)
	return nil
}

// Count is an integer that unmarshals from either a JSON number or a
// stringified integer.
type Count int

func (c *Count) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" || s == `""` {
		*c = 0
		return nil
	}
	s = strings.Trim(s, `"`)
	v, err := strconv.Atoi(s)
	if err != nil { return fmt.Errorf("parse count %q: %w", s, err) }
	*c = Count(v)
	return nil
}

// ============================================================================
// WIRE SCHEMA
// ============================================================================

// RequestJSON is the platform's payload for one generation run.
type RequestJSON struct {
	Policy              PolicyJSON           `json:"policy"`
	Charges             []ChargeJSON         `json:"charges"`
	PaymentScheduleName string               `json:"paymentScheduleName"`
	TenantTimeZone      string               `json:"tenantTimeZone"`
	DefaultPaymentTerms PaymentTermsJSON     `json:"defaultPaymentTerms"`
	Operation           string               `json:"operation"`
	PlannedInvoices     []PlannedInvoiceJSON `json:"plannedInvoices"`
}

type PaymentTermsJSON struct {
	Amount Count  `json:"amount"`
	Unit   string `json:"unit"`
}

type PolicyJSON struct {
	Locator                        string                `json:"locator"`
	OriginalContractStartTimestamp Timestamp             `json:"originalContractStartTimestamp"`
	EffectiveContractEndTimestamp  Timestamp             `json:"effectiveContractEndTimestamp"`
	Modifications                  []ModificationJSON    `json:"modifications"`
	Fees                           []FeeJSON             `json:"fees"`
	Exposures                      []ExposureJSON        `json:"exposures"`
	Characteristics                []CharacteristicsJSON `json:"characteristics"`
	Invoices                       []InvoiceJSON         `json:"invoices"`
}

type ModificationJSON struct {
	Locator            string    `json:"locator"`
	Name               string    `json:"name"`
	EffectiveTimestamp Timestamp `json:"effectiveTimestamp"`
}

type FeeJSON struct {
	Locator        string    `json:"locator"`
	Name           string    `json:"name"`
	StartTimestamp Timestamp `json:"startTimestamp"`
	EndTimestamp   Timestamp `json:"endTimestamp"`
}

type ExposureJSON struct {
	Locator         string                        `json:"locator"`
	Name            string                        `json:"name"`
	Characteristics []ExposureCharacteristicsJSON `json:"characteristics"`
	Perils          []PerilJSON                   `json:"perils"`
}

type ExposureCharacteristicsJSON struct {
	Locator        string              `json:"locator"`
	StartTimestamp Timestamp           `json:"startTimestamp"`
	EndTimestamp   Timestamp           `json:"endTimestamp"`
	FieldValues    policy.FieldValues  `json:"fieldValues"`
}

type PerilJSON struct {
	Locator         string                     `json:"locator"`
	Name            string                     `json:"name"`
	Characteristics []PerilCharacteristicsJSON `json:"characteristics"`
}

type PerilCharacteristicsJSON struct {
	Locator                string             `json:"locator"`
	CoverageStartTimestamp Timestamp          `json:"coverageStartTimestamp"`
	CoverageEndTimestamp   Timestamp          `json:"coverageEndTimestamp"`
	FieldValues            policy.FieldValues `json:"fieldValues"`
}

type CharacteristicsJSON struct {
	Locator            string             `json:"locator"`
	StartTimestamp     Timestamp          `json:"startTimestamp"`
	EndTimestamp       Timestamp          `json:"endTimestamp"`
	PolicyEndTimestamp Timestamp          `json:"policyEndTimestamp"`
	FieldValues        policy.FieldValues `json:"fieldValues"`
}

type InvoiceJSON struct {
	Locator        string          `json:"locator"`
	StartTimestamp Timestamp       `json:"startTimestamp"`
	EndTimestamp   Timestamp       `json:"endTimestamp"`
	DueTimestamp   Timestamp       `json:"dueTimestamp"`
	TotalDue       decimal.Decimal `json:"totalDue"`
}

type ChargeJSON struct {
	ChargeID                    string          `json:"chargeId"`
	Type                        string          `json:"type"`
	Amount                      decimal.Decimal `json:"amount"`
	OriginalAmount              decimal.Decimal `json:"originalAmount"`
	PreviouslyInvoicedAmount    decimal.Decimal `json:"previouslyInvoicedAmount"`
	CoverageStartTimestamp      Timestamp       `json:"coverageStartTimestamp"`
	CoverageEndTimestamp        Timestamp       `json:"coverageEndTimestamp"`
	PerilCharacteristicsLocator string          `json:"perilCharacteristicsLocator"`
	CommissionLocator           string          `json:"commissionLocator"`
	FeeLocator                  string          `json:"feeLocator"`
	TaxLocator                  string          `json:"taxLocator"`
}

type PlannedInvoiceJSON struct {
	StartTimestamp        Timestamp                  `json:"startTimestamp"`
	EndTimestamp          Timestamp                  `json:"endTimestamp"`
	DueTimestamp          Timestamp                  `json:"dueTimestamp"`
	FinancialTransactions []FinancialTransactionJSON `json:"financialTransactions"`
}

type FinancialTransactionJSON struct {
	Type   string          `json:"type"`
	Amount decimal.Decimal `json:"amount"`
}

// ============================================================================
// PARSING
// ============================================================================

// ParseRequest decodes a platform payload into a schedule.Request.
func ParseRequest(data []byte) (*schedule.Request, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var wire RequestJSON
	if err := dec.Decode(&wire); err != nil { return nil, fmt.Errorf("decode request: %w", err) }
	return wire.ToRequest(), nil
}

// ToRequest converts the wire payload into the engine's request type.
func (r *RequestJSON) ToRequest() *schedule.Request {
	req := &schedule.Request{
		Policy:              r.Policy.toPolicy(),
		Charges:             make([]schedule.Charge, len(r.Charges)),
		PaymentScheduleName: r.PaymentScheduleName,
		TenantTimeZone:      r.TenantTimeZone,
		Operation:           schedule.Operation(r.Operation),
	}
	// only day-denominated payment terms shift issue dates
	if r.DefaultPaymentTerms.Unit == "" || r.DefaultPaymentTerms.Unit == "day" || r.DefaultPaymentTerms.Unit == "days" {
		req.DefaultPaymentTermDays = int(r.DefaultPaymentTerms.Amount)
	}
	for i, ch := range r.Charges {
		req.Charges[i] = schedule.Charge{
			ChargeID:                    ch.ChargeID,
			Type:                        schedule.ChargeType(ch.Type),
			Amount:                      ch.Amount,
			OriginalAmount:              ch.OriginalAmount,
			PreviouslyInvoicedAmount:    ch.PreviouslyInvoicedAmount,
			CoverageStartTimestamp:      ch.CoverageStartTimestamp.Millis(),
			CoverageEndTimestamp:        ch.CoverageEndTimestamp.Millis(),
			PerilCharacteristicsLocator: ch.PerilCharacteristicsLocator,
			CommissionLocator:           ch.CommissionLocator,
			FeeLocator:                  ch.FeeLocator,
			TaxLocator:                  ch.TaxLocator,
		}
	}
	for _, pi := range r.PlannedInvoices {
		planned := schedule.PlannedInvoice{
			StartTimestamp: pi.StartTimestamp.Millis(),
			EndTimestamp:   pi.EndTimestamp.Millis(),
			DueTimestamp:   pi.DueTimestamp.Millis(),
		}
		for _, ft := range pi.FinancialTransactions {
			planned.FinancialTransactions = append(planned.FinancialTransactions,
				schedule.FinancialTransaction{Type: schedule.ChargeType(ft.Type), Amount: ft.Amount})
		}
		req.PlannedInvoices = append(req.PlannedInvoices, planned)
	}
	return req
}

func (p *PolicyJSON) toPolicy() *policy.Policy {
	out := &policy.Policy{
		Locator:               p.Locator,
		OriginalContractStart: p.OriginalContractStartTimestamp.Millis(),
		EffectiveContractEnd:  p.EffectiveContractEndTimestamp.Millis(),
	}
	for _, m := range p.Modifications {
		out.Modifications = append(out.Modifications, policy.Modification{
			Locator:            m.Locator,
			Name:               m.Name,
			EffectiveTimestamp: m.EffectiveTimestamp.Millis(),
		})
	}
	for _, f := range p.Fees {
		out.Fees = append(out.Fees, policy.Fee{
			Locator:        f.Locator,
			Name:           f.Name,
			StartTimestamp: f.StartTimestamp.Millis(),
			EndTimestamp:   f.EndTimestamp.Millis(),
		})
	}
	for _, e := range p.Exposures {
		exposure := policy.Exposure{Locator: e.Locator, Name: e.Name}
		for _, ec := range e.Characteristics {
			exposure.Characteristics = append(exposure.Characteristics, policy.ExposureCharacteristics{
				Locator:        ec.Locator,
				StartTimestamp: ec.StartTimestamp.Millis(),
				EndTimestamp:   ec.EndTimestamp.Millis(),
				FieldValues:    ec.FieldValues,
			})
		}
		for _, pl := range e.Perils {
			peril := policy.Peril{Locator: pl.Locator, Name: pl.Name}
			for _, pc := range pl.Characteristics {
				peril.Characteristics = append(peril.Characteristics, policy.PerilCharacteristics{
					Locator:                pc.Locator,
					CoverageStartTimestamp: pc.CoverageStartTimestamp.Millis(),
					CoverageEndTimestamp:   pc.CoverageEndTimestamp.Millis(),
					FieldValues:            pc.FieldValues,
				})
			}
			exposure.Perils = append(exposure.Perils, peril)
		}
		out.Exposures = append(out.Exposures, exposure)
	}
	for _, c := range p.Characteristics {
		out.Characteristics = append(out.Characteristics, policy.Characteristics{
			Locator:            c.Locator,
			StartTimestamp:     c.StartTimestamp.Millis(),
			EndTimestamp:       c.EndTimestamp.Millis(),
			PolicyEndTimestamp: c.PolicyEndTimestamp.Millis(),
			FieldValues:        c.FieldValues,
		})
	}
	for _, inv := range p.Invoices {
		out.Invoices = append(out.Invoices, policy.Invoice{
			Locator:        inv.Locator,
			StartTimestamp: inv.StartTimestamp.Millis(),
			EndTimestamp:   inv.EndTimestamp.Millis(),
			DueTimestamp:   inv.DueTimestamp.Millis(),
			TotalDue:       inv.TotalDue,
		})
	}
	return out
}
