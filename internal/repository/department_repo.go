package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/S-poovarasan/College-Fund-Management/internal/models"
)

// DepartmentRepository handles department fund account database operations
type DepartmentRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewDepartmentRepository creates a new department repository
func NewDepartmentRepository(db *sql.DB, logger *zap.Logger) *DepartmentRepository {
	return &DepartmentRepository{
		db:     db,
		logger: logger,
	}
}

const departmentColumns = `id, name, description, allocated_total, utilized_total, created_at`

func scanDepartment(row interface{ Scan(...any) error }) (*models.Department, error) {
	var dept models.Department
	var allocated, utilized string

	err := row.Scan(
		&dept.ID,
		&dept.Name,
		&dept.Description,
		&allocated,
		&utilized,
		&dept.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if dept.AllocatedTotal, err = decimal.NewFromString(allocated); err != nil {
		return nil, fmt.Errorf("invalid allocated total %q: %w", allocated, err)
	}
	if dept.UtilizedTotal, err = decimal.NewFromString(utilized); err != nil {
		return nil, fmt.Errorf("invalid utilized total %q: %w", utilized, err)
	}

	return &dept, nil
}

// Create inserts a new department fund account
func (r *DepartmentRepository) Create(ctx context.Context, dept *models.Department) error {
	query := `
		INSERT INTO departments (id, name, description, allocated_total, utilized_total, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		dept.ID,
		dept.Name,
		dept.Description,
		dept.AllocatedTotal.String(),
		dept.UtilizedTotal.String(),
		dept.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		r.logger.Error("Failed to create department", zap.Error(err))
		return fmt.Errorf("failed to create department: %w", err)
	}

	return nil
}

// GetByID retrieves a department by ID. Returns nil when absent.
func (r *DepartmentRepository) GetByID(ctx context.Context, id string) (*models.Department, error) {
	query := `SELECT ` + departmentColumns + ` FROM departments WHERE id = ?`

	dept, err := scanDepartment(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get department", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get department: %w", err)
	}

	return dept, nil
}

// GetByIDTx retrieves a department within a transaction. Returns nil when absent.
func (r *DepartmentRepository) GetByIDTx(tx *sql.Tx, id string) (*models.Department, error) {
	query := `SELECT ` + departmentColumns + ` FROM departments WHERE id = ?`

	dept, err := scanDepartment(tx.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get department: %w", err)
	}

	return dept, nil
}

// List retrieves all departments ordered by name
func (r *DepartmentRepository) List(ctx context.Context) ([]*models.Department, error) {
	query := `SELECT ` + departmentColumns + ` FROM departments ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list departments", zap.Error(err))
		return nil, fmt.Errorf("failed to list departments: %w", err)
	}
	defer rows.Close()

	var departments []*models.Department
	for rows.Next() {
		dept, err := scanDepartment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan department: %w", err)
		}
		departments = append(departments, dept)
	}

	return departments, rows.Err()
}

// UpdateDetails updates the mutable descriptive fields of a department
func (r *DepartmentRepository) UpdateDetails(ctx context.Context, id, name, description string) error {
	query := `UPDATE departments SET name = ?, description = ? WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, name, description, id)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		r.logger.Error("Failed to update department", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to update department: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	return nil
}

// Delete removes a department. Its bills cascade via foreign key.
func (r *DepartmentRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM departments WHERE id = ?`, id)
	if err != nil {
		r.logger.Error("Failed to delete department", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete department: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	return nil
}

// SetAllocatedTotal writes a new allocated total inside a transaction
func (r *DepartmentRepository) SetAllocatedTotal(tx *sql.Tx, id string, total decimal.Decimal) error {
	_, err := tx.Exec(`UPDATE departments SET allocated_total = ? WHERE id = ?`, total.String(), id)
	if err != nil {
		return fmt.Errorf("failed to update allocated total: %w", err)
	}
	return nil
}

// SetUtilizedTotal writes a new utilized total inside a transaction. Only the
// verify transition calls this; it is the single mutation path for utilized
// funds.
func (r *DepartmentRepository) SetUtilizedTotal(tx *sql.Tx, id string, total decimal.Decimal) error {
	_, err := tx.Exec(`UPDATE departments SET utilized_total = ? WHERE id = ?`, total.String(), id)
	if err != nil {
		return fmt.Errorf("failed to update utilized total: %w", err)
	}
	return nil
}
