/*
Package policy holds the policy snapshot the engine is invoked with.

PURPOSE:
  The calling system hands the engine a frozen view of one policy:
  its modifications, fees, exposures with perils, characteristics
  windows and issued invoices. These types are plain data; Context
  (context.go) layers locator indices on top.

KEY CONCEPTS:
  - Everything is identified by a locator string.
  - Characteristics are time-windowed bundles of field values; a peril
    or exposure can have several disjoint windows over the policy life.
  - Timestamps are Unix epoch milliseconds.
*/
package policy

import "github.com/shopspring/decimal"

// Modification names the platform emits for term-opening events.
const (
	ModificationCreate = "modification.policy.create"
	ModificationRenew  = "modification.policy.renew"
)

// Policy is the snapshot of one policy at generation time.
type Policy struct {
	Locator               string
	OriginalContractStart int64
	EffectiveContractEnd  int64
	Modifications         []Modification
	Fees                  []Fee
	Exposures             []Exposure
	Characteristics       []Characteristics
	Invoices              []Invoice
}

// Modification is one policy-level change event.
type Modification struct {
	Locator            string
	Name               string
	EffectiveTimestamp int64
}

// Fee is a policy-level fee with its own active window.
type Fee struct {
	Locator        string
	Name           string
	StartTimestamp int64
	EndTimestamp   int64
}

// Exposure is one insured thing, carrying perils and its own
// characteristics windows.
type Exposure struct {
	Locator         string
	Name            string
	Characteristics []ExposureCharacteristics
	Perils          []Peril
}

// Peril is one covered risk on an exposure.
type Peril struct {
	Locator         string
	Name            string
	Characteristics []PerilCharacteristics
}

// PerilCharacteristics is one coverage window of a peril.
type PerilCharacteristics struct {
	Locator                string
	CoverageStartTimestamp int64
	CoverageEndTimestamp   int64
	FieldValues            FieldValues
}

// ExposureCharacteristics is one active window of an exposure.
type ExposureCharacteristics struct {
	Locator        string
	StartTimestamp int64
	EndTimestamp   int64
	FieldValues    FieldValues
}

// Characteristics is one policy-level window.
type Characteristics struct {
	Locator            string
	StartTimestamp     int64
	EndTimestamp       int64
	PolicyEndTimestamp int64
	FieldValues        FieldValues
}

// Invoice is a previously issued invoice, used when reconciling
// already-billed amounts.
type Invoice struct {
	Locator        string
	StartTimestamp int64
	EndTimestamp   int64
	DueTimestamp   int64
	TotalDue       decimal.Decimal
}

// FieldValues is the platform's field map: every value arrives as a
// list of strings.
type FieldValues map[string][]string
