package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Department is a fund account: allocated and utilized totals are both
// monotonically non-decreasing. AllocatedTotal moves only via fund
// allocation, UtilizedTotal only via bill verification.
type Department struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Description    string          `json:"description"`
	AllocatedTotal decimal.Decimal `json:"allocated_total"`
	UtilizedTotal  decimal.Decimal `json:"utilized_total"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Balance is the derived fund balance. It may be negative: over-utilization
// is permitted (no financial-control guard on verification).
func (d *Department) Balance() decimal.Decimal {
	return d.AllocatedTotal.Sub(d.UtilizedTotal)
}
