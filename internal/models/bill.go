package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BillStatus is the lifecycle state of a bill
type BillStatus string

const (
	BillStatusPending  BillStatus = "pending"
	BillStatusVerified BillStatus = "verified"
	BillStatusRejected BillStatus = "rejected"
)

// IsTerminal returns true once a bill can no longer transition
func (s BillStatus) IsTerminal() bool {
	return s == BillStatusVerified || s == BillStatusRejected
}

// String returns the string representation of the status
func (s BillStatus) String() string {
	return string(s)
}

// Bill is a single expenditure claim submitted by a department, backed by a
// merged document artifact. Amount is immutable after creation; Status is
// mutated only through the verification workflow.
type Bill struct {
	ID           string          `json:"id"`
	DepartmentID string          `json:"department_id"`
	BillNo       string          `json:"bill_no"`
	BillDate     time.Time       `json:"bill_date"`
	Purpose      string          `json:"purpose"`
	Amount       decimal.Decimal `json:"amount"`
	DocumentRef  string          `json:"document_ref"`
	PageCount    int             `json:"page_count"`
	Status       BillStatus      `json:"status"`
	SubmittedBy  string          `json:"submitted_by"`
	CreatedAt    time.Time       `json:"created_at"`
	DecidedAt    *time.Time      `json:"decided_at,omitempty"`
}
