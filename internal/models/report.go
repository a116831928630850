package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryKind distinguishes real bills from the synthesized opening-allocation
// record in report transaction lists.
type EntryKind string

const (
	EntryKindBill       EntryKind = "bill"
	EntryKindAllocation EntryKind = "opening_allocation"
)

// TransactionEntry is one row of a report's transaction list. The opening
// allocation entry is not a persisted bill; it is tagged so callers never
// mistake it for one.
type TransactionEntry struct {
	Kind     EntryKind       `json:"kind"`
	BillID   string          `json:"bill_id,omitempty"`
	BillNo   string          `json:"bill_no"`
	Purpose  string          `json:"purpose"`
	Amount   decimal.Decimal `json:"amount"`
	BillDate time.Time       `json:"bill_date"`
	Status   string          `json:"status"`
}

// OpeningAllocationEntry synthesizes the "where the money came from" row:
// the account's current allocated total, dated at account creation.
func OpeningAllocationEntry(dept *Department) TransactionEntry {
	return TransactionEntry{
		Kind:     EntryKindAllocation,
		BillNo:   "ALLOCATED",
		Purpose:  "Fund allocated by Admin",
		Amount:   dept.AllocatedTotal,
		BillDate: dept.CreatedAt,
		Status:   "allocated",
	}
}

// BillEntry converts a persisted bill into a report row
func BillEntry(b *Bill) TransactionEntry {
	return TransactionEntry{
		Kind:     EntryKindBill,
		BillID:   b.ID,
		BillNo:   b.BillNo,
		Purpose:  b.Purpose,
		Amount:   b.Amount,
		BillDate: b.BillDate,
		Status:   b.Status.String(),
	}
}

// DepartmentReport holds the reconstructed figures for one department over a
// report window.
type DepartmentReport struct {
	DepartmentID   string             `json:"department_id"`
	DepartmentName string             `json:"department_name"`
	Allocated      decimal.Decimal    `json:"allocated"`
	Utilized       decimal.Decimal    `json:"utilized"`
	Balance        decimal.Decimal    `json:"balance"`
	Transactions   []TransactionEntry `json:"transactions"`
}

// ReportSnapshot is the on-demand query result for a (scope, window) pair.
// It is never persisted.
type ReportSnapshot struct {
	Scope       string             `json:"scope"`
	Window      string             `json:"window"`
	StartDate   time.Time          `json:"start_date"`
	EndDate     time.Time          `json:"end_date"`
	GeneratedAt time.Time          `json:"generated_at"`
	Allocated   decimal.Decimal    `json:"allocated"`
	Utilized    decimal.Decimal    `json:"utilized"`
	Balance     decimal.Decimal    `json:"balance"`
	Departments []DepartmentReport `json:"departments"`
}
