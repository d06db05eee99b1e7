// Package model defines domain entities for the application.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Amounts travel as JSON numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// BillStatus is the derived, non-persisted state of a bill at a point in time.
type BillStatus string

const (
	BillStatusOverdue  BillStatus = "overdue"
	BillStatusUpcoming BillStatus = "upcoming"
	BillStatusPaid     BillStatus = "paid"
)

// Bill is a single payable record.
type Bill struct {
	ID               string          `json:"id"`
	Category         string          `json:"category"`
	Amount           decimal.Decimal `json:"amount"`
	DueDate          Date            `json:"dueDate"`
	Receiver         string          `json:"receiver"`
	Biller           string          `json:"biller"`
	Paid             bool            `json:"paid"`
	PaymentRefNumber string          `json:"paymentRefNumber,omitempty"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

// Status computes the bill's partition relative to now.
// Paid wins regardless of the due date.
func (b *Bill) Status(now time.Time) BillStatus {
	if b.Paid {
		return BillStatusPaid
	}
	if b.DueDate.Time().Before(now) {
		return BillStatusOverdue
	}
	return BillStatusUpcoming
}

// HasPaymentRef reports whether the payer has submitted a payment reference.
func (b *Bill) HasPaymentRef() bool {
	return b.PaymentRefNumber != ""
}

// BillPatch is a partial update. Nil fields are left untouched.
type BillPatch struct {
	Paid             *bool   `json:"paid,omitempty"`
	PaymentRefNumber *string `json:"paymentRefNumber,omitempty"`
}

// IsEmpty returns true if the patch carries no fields.
func (p BillPatch) IsEmpty() bool {
	return p.Paid == nil && p.PaymentRefNumber == nil
}

// Apply merges the patch into the bill in place.
func (p BillPatch) Apply(b *Bill) {
	if p.Paid != nil {
		b.Paid = *p.Paid
	}
	if p.PaymentRefNumber != nil {
		b.PaymentRefNumber = *p.PaymentRefNumber
	}
}

// MarkPaidPatch returns the patch a manager sends to settle a bill.
func MarkPaidPatch() BillPatch {
	paid := true
	return BillPatch{Paid: &paid}
}

// PaymentRefPatch returns the patch a payer sends with payment evidence.
func PaymentRefPatch(ref string) BillPatch {
	return BillPatch{PaymentRefNumber: &ref}
}
