package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/S-poovarasan/College-Fund-Management/internal/models"
)

// BillRepository handles bill database operations
type BillRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewBillRepository creates a new bill repository
func NewBillRepository(db *sql.DB, logger *zap.Logger) *BillRepository {
	return &BillRepository{
		db:     db,
		logger: logger,
	}
}

const billColumns = `id, department_id, bill_no, bill_date, purpose, amount,
	document_ref, page_count, status, submitted_by, created_at, decided_at`

func scanBill(row interface{ Scan(...any) error }) (*models.Bill, error) {
	var bill models.Bill
	var amount, status string
	var decidedAt sql.NullTime

	err := row.Scan(
		&bill.ID,
		&bill.DepartmentID,
		&bill.BillNo,
		&bill.BillDate,
		&bill.Purpose,
		&amount,
		&bill.DocumentRef,
		&bill.PageCount,
		&status,
		&bill.SubmittedBy,
		&bill.CreatedAt,
		&decidedAt,
	)
	if err != nil {
		return nil, err
	}

	if bill.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("invalid bill amount %q: %w", amount, err)
	}
	bill.Status = models.BillStatus(status)
	if decidedAt.Valid {
		bill.DecidedAt = &decidedAt.Time
	}

	return &bill, nil
}

// Create inserts a new bill within a transaction
func (r *BillRepository) Create(tx *sql.Tx, bill *models.Bill) error {
	query := `
		INSERT INTO bills (
			id, department_id, bill_no, bill_date, purpose, amount,
			document_ref, page_count, status, submitted_by, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := tx.Exec(query,
		bill.ID,
		bill.DepartmentID,
		bill.BillNo,
		bill.BillDate,
		bill.Purpose,
		bill.Amount.String(),
		bill.DocumentRef,
		bill.PageCount,
		bill.Status.String(),
		bill.SubmittedBy,
		bill.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		r.logger.Error("Failed to create bill", zap.Error(err))
		return fmt.Errorf("failed to create bill: %w", err)
	}

	return nil
}

// GetByID retrieves a bill by ID. Returns nil when absent.
func (r *BillRepository) GetByID(ctx context.Context, id string) (*models.Bill, error) {
	query := `SELECT ` + billColumns + ` FROM bills WHERE id = ?`

	bill, err := scanBill(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get bill", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get bill: %w", err)
	}

	return bill, nil
}

// GetByIDTx retrieves a bill within a transaction. Returns nil when absent.
func (r *BillRepository) GetByIDTx(tx *sql.Tx, id string) (*models.Bill, error) {
	query := `SELECT ` + billColumns + ` FROM bills WHERE id = ?`

	bill, err := scanBill(tx.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bill: %w", err)
	}

	return bill, nil
}

// ListByDepartment retrieves a department's bills, newest first
func (r *BillRepository) ListByDepartment(ctx context.Context, departmentID string) ([]*models.Bill, error) {
	query := `SELECT ` + billColumns + ` FROM bills WHERE department_id = ? ORDER BY created_at DESC`
	return r.queryBills(ctx, query, departmentID)
}

// ListInWindow retrieves a department's bills with a bill date inside
// [start, end], regardless of status. Per-department detail views surface
// pending and rejected bills for status visibility even though they never
// count toward utilization.
func (r *BillRepository) ListInWindow(ctx context.Context, departmentID string, start, end time.Time) ([]*models.Bill, error) {
	query := `SELECT ` + billColumns + ` FROM bills
		WHERE department_id = ? AND bill_date >= ? AND bill_date <= ?
		ORDER BY bill_date, created_at`
	return r.queryBills(ctx, query, departmentID, start, end)
}

// ListVerifiedInWindow retrieves all verified bills with a bill date inside
// [start, end], across every department.
func (r *BillRepository) ListVerifiedInWindow(ctx context.Context, start, end time.Time) ([]*models.Bill, error) {
	query := `SELECT ` + billColumns + ` FROM bills
		WHERE status = ? AND bill_date >= ? AND bill_date <= ?
		ORDER BY department_id, bill_date, created_at`
	return r.queryBills(ctx, query, models.BillStatusVerified.String(), start, end)
}

func (r *BillRepository) queryBills(ctx context.Context, query string, args ...any) ([]*models.Bill, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query bills", zap.Error(err))
		return nil, fmt.Errorf("failed to query bills: %w", err)
	}
	defer rows.Close()

	var bills []*models.Bill
	for rows.Next() {
		bill, err := scanBill(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bill: %w", err)
		}
		bills = append(bills, bill)
	}

	return bills, rows.Err()
}

// MarkDecided flips a pending bill into a terminal status. The WHERE guard
// makes the transition exactly-once: a second caller sees zero rows affected.
func (r *BillRepository) MarkDecided(tx *sql.Tx, id string, status models.BillStatus, decidedAt time.Time) (bool, error) {
	query := `UPDATE bills SET status = ?, decided_at = ? WHERE id = ? AND status = ?`

	result, err := tx.Exec(query, status.String(), decidedAt, id, models.BillStatusPending.String())
	if err != nil {
		r.logger.Error("Failed to mark bill decided", zap.String("id", id), zap.Error(err))
		return false, fmt.Errorf("failed to update bill status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return affected == 1, nil
}
