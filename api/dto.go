/*
dto.go - Request/response data structures for the HTTP API

PURPOSE:
  Defines the JSON shapes exchanged with clients and the conversions
  to and from the domain types. Amounts serialize as decimal strings;
  timestamps stay epoch milliseconds like the rest of the platform.

SEE ALSO:
  - handlers.go: Handler implementations
  - factory/request.go: Wire decoding of the platform payload
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/billing-engine/factory"
	"github.com/warp/billing-engine/money"
	"github.com/warp/billing-engine/schedule"
	"github.com/warp/billing-engine/store"
)

// =============================================================================
// REQUESTS
// =============================================================================

// GenerateScheduleRequest is the POST /api/schedules body.
type GenerateScheduleRequest struct {
	Request factory.RequestJSON `json:"request"`
	Options *OptionsJSON        `json:"options,omitempty"`
	// NowTimestamp pins the generation clock; zero means wall clock.
	NowTimestamp int64 `json:"nowTimestamp,omitempty"`
}

// OptionsJSON overrides generator defaults field by field. Absent
// fields keep their default.
type OptionsJSON struct {
	CollapsePastInstallments   *bool            `json:"collapsePastInstallments,omitempty"`
	FeesOnFirstInstallment     *bool            `json:"feesOnFirstInstallment,omitempty"`
	RemainderInstallmentsFirst *bool            `json:"remainderInstallmentsFirst,omitempty"`
	FirstInstallmentWeight     *float64         `json:"firstInstallmentWeight,omitempty"`
	InstallmentFeeAmount       *decimal.Decimal `json:"installmentFeeAmount,omitempty"`
	InstallmentFeeName         *string          `json:"installmentFeeName,omitempty"`
	InstallmentFeeDescription  *string          `json:"installmentFeeDescription,omitempty"`
	FullPayNowThreshold        *decimal.Decimal `json:"fullPayNowThreshold,omitempty"`
	AlwaysFullPayCredit        *bool            `json:"alwaysFullPayCredit,omitempty"`
	AlwaysFullPayCancellation  *bool            `json:"alwaysFullPayCancellation,omitempty"`
	CommissionPayments         *string          `json:"commissionPayments,omitempty"`
	CarryForwardThreshold      *decimal.Decimal `json:"carryForwardThreshold,omitempty"`
	LevelingThreshold          *decimal.Decimal `json:"levelingThreshold,omitempty"`
	LevelingMethod             *string          `json:"levelingMethod,omitempty"`
	AdjustAcrossTerms          *bool            `json:"adjustAcrossTerms,omitempty"`
	MoneyUnit                  *string          `json:"moneyUnit,omitempty"`
}

// Apply overlays the overrides onto opts.
func (o *OptionsJSON) Apply(opts *schedule.Options) {
	if o == nil { return }
	if o.CollapsePastInstallments != nil { opts.CollapsePastInstallments = *o.CollapsePastInstallments }
	if o.FeesOnFirstInstallment != nil { opts.FeesOnFirstInstallment = *o.FeesOnFirstInstallment }
	if o.RemainderInstallmentsFirst != nil { opts.RemainderInstallmentsFirst = *o.RemainderInstallmentsFirst }
	if o.FirstInstallmentWeight != nil { opts.FirstInstallmentWeight = *o.FirstInstallmentWeight }
	if o.InstallmentFeeAmount != nil { opts.InstallmentFeeAmount = *o.InstallmentFeeAmount }
	if o.InstallmentFeeName != nil { opts.InstallmentFeeName = *o.InstallmentFeeName }
	if o.InstallmentFeeDescription != nil { opts.InstallmentFeeDescription = *o.InstallmentFeeDescription }
	if o.FullPayNowThreshold != nil { opts.FullPayNowThreshold = *o.FullPayNowThreshold }
	if o.AlwaysFullPayCredit != nil { opts.AlwaysFullPayCredit = *o.AlwaysFullPayCredit }
	if o.AlwaysFullPayCancellation != nil { opts.AlwaysFullPayCancellation = *o.AlwaysFullPayCancellation }
	if o.CommissionPayments != nil { opts.CommissionPayments = schedule.CommissionPayments(*o.CommissionPayments) }
	if o.CarryForwardThreshold != nil { opts.CarryForwardThreshold = *o.CarryForwardThreshold }
	if o.LevelingThreshold != nil { opts.LevelingThreshold = *o.LevelingThreshold }
	if o.LevelingMethod != nil { opts.LevelingMethod = schedule.LevelingMethod(*o.LevelingMethod) }
	if o.AdjustAcrossTerms != nil { opts.AdjustAcrossTerms = *o.AdjustAcrossTerms }
	if o.MoneyUnit != nil { opts.MoneyUnit = money.Unit(*o.MoneyUnit) }
}

// =============================================================================
// RESPONSES
// =============================================================================

// GenerateScheduleResponse is the POST /api/schedules result.
type GenerateScheduleResponse struct {
	ID       string      `json:"id"`
	Schedule ScheduleDTO `json:"schedule"`
}

// ScheduleDTO mirrors schedule.Schedule on the wire.
type ScheduleDTO struct {
	Installments []InstallmentDTO `json:"installments"`
}

type InstallmentDTO struct {
	StartTimestamp int64               `json:"startTimestamp"`
	EndTimestamp   int64               `json:"endTimestamp"`
	IssueTimestamp int64               `json:"issueTimestamp"`
	DueTimestamp   int64               `json:"dueTimestamp"`
	InvoiceItems   []InvoiceItemDTO    `json:"invoiceItems"`
	Fees           []InstallmentFeeDTO `json:"fees,omitempty"`
	WriteOff       bool                `json:"writeOff,omitempty"`
	Total          decimal.Decimal     `json:"total"`
}

type InvoiceItemDTO struct {
	ChargeID string          `json:"chargeId"`
	Amount   decimal.Decimal `json:"amount"`
}

type InstallmentFeeDTO struct {
	FeeName     string          `json:"feeName"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

// RecordDTO is an archived generation run.
type RecordDTO struct {
	ID            string `json:"id"`
	PolicyLocator string `json:"policyLocator"`
	ScheduleName  string `json:"scheduleName"`
	Operation     string `json:"operation"`
	CreatedAt     string `json:"createdAt"`
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func toScheduleDTO(s *schedule.Schedule) ScheduleDTO {
	out := ScheduleDTO{Installments: make([]InstallmentDTO, len(s.Installments))}
	for i, inst := range s.Installments {
		dto := InstallmentDTO{
			StartTimestamp: inst.StartTimestamp,
			EndTimestamp:   inst.EndTimestamp,
			IssueTimestamp: inst.IssueTimestamp,
			DueTimestamp:   inst.DueTimestamp,
			WriteOff:       inst.WriteOff,
			Total:          inst.Total(),
			InvoiceItems:   make([]InvoiceItemDTO, len(inst.InvoiceItems)),
		}
		for j, item := range inst.InvoiceItems {
			dto.InvoiceItems[j] = InvoiceItemDTO{ChargeID: item.ChargeID, Amount: item.Amount}
		}
		for _, fee := range inst.Fees {
			dto.Fees = append(dto.Fees, InstallmentFeeDTO{
				FeeName:     fee.FeeName,
				Description: fee.Description,
				Amount:      fee.Amount,
			})
		}
		out.Installments[i] = dto
	}
	return out
}

func toRecordDTO(rec store.Record) RecordDTO {
	return RecordDTO{
		ID:            rec.ID,
		PolicyLocator: rec.PolicyLocator,
		ScheduleName:  rec.ScheduleName,
		Operation:     rec.Operation,
		CreatedAt:     rec.CreatedAt.Format(time.RFC3339),
	}
}
