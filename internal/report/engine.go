// Package report reconstructs allocated/utilized/balance figures over
// arbitrary historical windows and renders them as JSON snapshots, PDF
// statements and spreadsheets.
package report

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/S-poovarasan/College-Fund-Management/internal/ledger"
	"github.com/S-poovarasan/College-Fund-Management/internal/models"
	"github.com/S-poovarasan/College-Fund-Management/internal/repository"
)

// ScopeAll selects every department
const ScopeAll = "all"

// Engine produces report snapshots from fund accounts and bills
type Engine struct {
	departments *repository.DepartmentRepository
	bills       *repository.BillRepository
	logger      *zap.Logger
}

// NewEngine creates a new report engine
func NewEngine(
	departments *repository.DepartmentRepository,
	bills *repository.BillRepository,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		departments: departments,
		bills:       bills,
		logger:      logger,
	}
}

// Report builds a snapshot for the scope (a department ID or ScopeAll) and
// window keyword, resolved against the supplied clock instant.
func (e *Engine) Report(ctx context.Context, scope, window string, now time.Time) (*models.ReportSnapshot, error) {
	win, rng, err := ResolveWindow(window, now)
	if err != nil {
		return nil, err
	}

	snapshot := &models.ReportSnapshot{
		Scope:       scope,
		Window:      string(win),
		StartDate:   rng.Start,
		EndDate:     rng.End,
		GeneratedAt: now.UTC(),
		Allocated:   decimal.Zero,
		Utilized:    decimal.Zero,
	}

	if scope == ScopeAll {
		err = e.fillAllDepartments(ctx, snapshot, rng)
	} else {
		err = e.fillSingleDepartment(ctx, snapshot, scope, rng)
	}
	if err != nil {
		return nil, err
	}

	snapshot.Balance = snapshot.Allocated.Sub(snapshot.Utilized)
	return snapshot, nil
}

// fillSingleDepartment builds the per-department detail view: every bill in
// the window is listed for status visibility, but only verified bills count
// toward utilization.
func (e *Engine) fillSingleDepartment(ctx context.Context, snapshot *models.ReportSnapshot, departmentID string, rng Range) error {
	dept, err := e.departments.GetByID(ctx, departmentID)
	if err != nil {
		return err
	}
	if dept == nil {
		return fmt.Errorf("%w: department %s", ledger.ErrNotFound, departmentID)
	}

	bills, err := e.bills.ListInWindow(ctx, departmentID, rng.Start, rng.End)
	if err != nil {
		return err
	}

	utilized := decimal.Zero
	entries := []models.TransactionEntry{models.OpeningAllocationEntry(dept)}
	for _, bill := range bills {
		if bill.Status == models.BillStatusVerified {
			utilized = utilized.Add(bill.Amount)
		}
		entries = append(entries, models.BillEntry(bill))
	}

	snapshot.Allocated = dept.AllocatedTotal
	snapshot.Utilized = utilized
	snapshot.Departments = []models.DepartmentReport{{
		DepartmentID:   dept.ID,
		DepartmentName: dept.Name,
		Allocated:      dept.AllocatedTotal,
		Utilized:       utilized,
		Balance:        dept.AllocatedTotal.Sub(utilized),
		Transactions:   entries,
	}}

	return nil
}

// fillAllDepartments builds the institution-wide view from verified bills
// only, grouped by department. Allocated totals are read live from each fund
// account, not windowed.
func (e *Engine) fillAllDepartments(ctx context.Context, snapshot *models.ReportSnapshot, rng Range) error {
	departments, err := e.departments.List(ctx)
	if err != nil {
		return err
	}

	verified, err := e.bills.ListVerifiedInWindow(ctx, rng.Start, rng.End)
	if err != nil {
		return err
	}

	byDept := make(map[string][]*models.Bill, len(departments))
	for _, bill := range verified {
		byDept[bill.DepartmentID] = append(byDept[bill.DepartmentID], bill)
	}

	for _, dept := range departments {
		utilized := decimal.Zero
		entries := []models.TransactionEntry{models.OpeningAllocationEntry(dept)}
		for _, bill := range byDept[dept.ID] {
			utilized = utilized.Add(bill.Amount)
			entries = append(entries, models.BillEntry(bill))
		}

		snapshot.Allocated = snapshot.Allocated.Add(dept.AllocatedTotal)
		snapshot.Utilized = snapshot.Utilized.Add(utilized)
		snapshot.Departments = append(snapshot.Departments, models.DepartmentReport{
			DepartmentID:   dept.ID,
			DepartmentName: dept.Name,
			Allocated:      dept.AllocatedTotal,
			Utilized:       utilized,
			Balance:        dept.AllocatedTotal.Sub(utilized),
			Transactions:   entries,
		})
	}

	return nil
}
