// Package ledger owns the per-department fund accounts and the bill
// verification workflow. It is the only place utilized totals are mutated,
// which is what keeps the ledger invariant (utilized == sum of verified bill
// amounts) true by construction.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/S-poovarasan/College-Fund-Management/internal/docmerge"
	"github.com/S-poovarasan/College-Fund-Management/internal/domain/workflow"
	"github.com/S-poovarasan/College-Fund-Management/internal/models"
	"github.com/S-poovarasan/College-Fund-Management/internal/repository"
	"github.com/S-poovarasan/College-Fund-Management/internal/storage"
	"github.com/S-poovarasan/College-Fund-Management/pkg/database"
)

// DocumentMerger is the merge pipeline capability the service depends on
type DocumentMerger interface {
	Merge(ctx context.Context, ref string, inputs []string) (*docmerge.Result, error)
}

// Service orchestrates fund accounts, bill submission and verification
type Service struct {
	db          *database.DB
	departments *repository.DepartmentRepository
	bills       *repository.BillRepository
	merger      DocumentMerger
	store       storage.ArtifactStore
	logger      *zap.Logger
	now         func() time.Time
}

// NewService creates a new ledger service
func NewService(
	db *database.DB,
	departments *repository.DepartmentRepository,
	bills *repository.BillRepository,
	merger DocumentMerger,
	store storage.ArtifactStore,
	logger *zap.Logger,
) *Service {
	return &Service{
		db:          db,
		departments: departments,
		bills:       bills,
		merger:      merger,
		store:       store,
		logger:      logger,
		now:         time.Now,
	}
}

// SetClock overrides the wall clock, for deterministic tests
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// CreateDepartment creates a department with a zero fund account
func (s *Service) CreateDepartment(ctx context.Context, name, description string) (*models.Department, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: department name required", ErrInvalidAmount)
	}

	dept := &models.Department{
		ID:             uuid.NewString(),
		Name:           name,
		Description:    description,
		AllocatedTotal: decimal.Zero,
		UtilizedTotal:  decimal.Zero,
		CreatedAt:      s.now().UTC(),
	}

	if err := s.departments.Create(ctx, dept); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicateDepartment
		}
		return nil, err
	}

	s.logger.Info("Department created",
		zap.String("department_id", dept.ID),
		zap.String("name", dept.Name))

	return dept, nil
}

// ListDepartments returns all departments with their fund totals
func (s *Service) ListDepartments(ctx context.Context) ([]*models.Department, error) {
	return s.departments.List(ctx)
}

// UpdateDepartment updates a department's descriptive fields
func (s *Service) UpdateDepartment(ctx context.Context, id, name, description string) (*models.Department, error) {
	err := s.departments.UpdateDetails(ctx, id, name, description)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: department %s", ErrNotFound, id)
		}
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicateDepartment
		}
		return nil, err
	}
	return s.departments.GetByID(ctx, id)
}

// DeleteDepartment removes a department and, by cascade, its bills. Stored
// artifacts are left on disk for out-of-band cleanup.
func (s *Service) DeleteDepartment(ctx context.Context, id string) error {
	if err := s.departments.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: department %s", ErrNotFound, id)
		}
		return err
	}

	s.logger.Info("Department deleted", zap.String("department_id", id))
	return nil
}

// Allocate increments a department's allocated total. Allocations only ever
// grow the total; there is no deallocation operation.
func (s *Service) Allocate(ctx context.Context, departmentID string, amount decimal.Decimal) (*models.Department, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: got %s", ErrInvalidAmount, amount)
	}

	var updated *models.Department
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		dept, err := s.departments.GetByIDTx(tx, departmentID)
		if err != nil {
			return err
		}
		if dept == nil {
			return fmt.Errorf("%w: department %s", ErrNotFound, departmentID)
		}

		dept.AllocatedTotal = dept.AllocatedTotal.Add(amount)
		if err := s.departments.SetAllocatedTotal(tx, dept.ID, dept.AllocatedTotal); err != nil {
			return err
		}

		updated = dept
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Fund allocated",
		zap.String("department_id", departmentID),
		zap.String("amount", amount.String()),
		zap.String("allocated_total", updated.AllocatedTotal.String()))

	return updated, nil
}

// GetBalance returns the department's fund account. The balance is derived,
// never stored.
func (s *Service) GetBalance(ctx context.Context, departmentID string) (*models.Department, error) {
	dept, err := s.departments.GetByID(ctx, departmentID)
	if err != nil {
		return nil, err
	}
	if dept == nil {
		return nil, fmt.Errorf("%w: department %s", ErrNotFound, departmentID)
	}
	return dept, nil
}

// SubmitBillInput carries one bill submission
type SubmitBillInput struct {
	DepartmentID string
	BillNo       string
	BillDate     time.Time
	Purpose      string
	Amount       decimal.Decimal
	Documents    []string // local paths of already-received uploads
	SubmittedBy  string
}

// SubmitBill merges the uploaded documents into one artifact and creates the
// bill in pending state. The whole operation is all-or-nothing: if the bill
// record cannot be written, the stored artifact is removed again.
func (s *Service) SubmitBill(ctx context.Context, in SubmitBillInput) (*models.Bill, error) {
	if in.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: got %s", ErrInvalidAmount, in.Amount)
	}
	if len(in.Documents) == 0 {
		return nil, ErrMissingDocument
	}

	dept, err := s.departments.GetByID(ctx, in.DepartmentID)
	if err != nil {
		return nil, err
	}
	if dept == nil {
		return nil, fmt.Errorf("%w: department %s", ErrNotFound, in.DepartmentID)
	}

	billID := uuid.NewString()
	ref := fmt.Sprintf("%s/%s.pdf", in.DepartmentID, billID)

	merged, err := s.merger.Merge(ctx, ref, in.Documents)
	if err != nil {
		return nil, err
	}

	bill := &models.Bill{
		ID:           billID,
		DepartmentID: in.DepartmentID,
		BillNo:       in.BillNo,
		BillDate:     normalizeDate(in.BillDate),
		Purpose:      in.Purpose,
		Amount:       in.Amount,
		DocumentRef:  merged.Ref,
		PageCount:    merged.PageCount,
		Status:       models.BillStatusPending,
		SubmittedBy:  in.SubmittedBy,
		CreatedAt:    s.now().UTC(),
	}

	err = s.db.WithTx(ctx, func(tx *sql.Tx) error {
		return s.bills.Create(tx, bill)
	})
	if err != nil {
		// The artifact must not outlive the failed submission.
		if delErr := s.store.Delete(merged.Ref); delErr != nil {
			s.logger.Warn("Failed to remove orphaned artifact",
				zap.String("ref", merged.Ref),
				zap.Error(delErr))
		}
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateBillNo, in.BillNo)
		}
		return nil, err
	}

	s.logger.Info("Bill submitted",
		zap.String("bill_id", bill.ID),
		zap.String("department_id", bill.DepartmentID),
		zap.String("bill_no", bill.BillNo),
		zap.String("amount", bill.Amount.String()),
		zap.Int("pages", bill.PageCount))

	return bill, nil
}

// Verify transitions a pending bill to verified and increments the owning
// department's utilized total by the bill amount. Both effects commit as one
// transaction; a concurrent reader observes either neither or both.
func (s *Service) Verify(ctx context.Context, billID string) (*models.Bill, error) {
	return s.decide(ctx, billID, workflow.TriggerVerify)
}

// Reject transitions a pending bill to rejected. No fund account effect.
func (s *Service) Reject(ctx context.Context, billID string) (*models.Bill, error) {
	return s.decide(ctx, billID, workflow.TriggerReject)
}

func (s *Service) decide(ctx context.Context, billID string, trigger workflow.Trigger) (*models.Bill, error) {
	var decided *models.Bill

	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		bill, err := s.bills.GetByIDTx(tx, billID)
		if err != nil {
			return err
		}
		if bill == nil {
			return fmt.Errorf("%w: bill %s", ErrNotFound, billID)
		}

		machine, err := workflow.NewMachine(workflow.State(bill.Status))
		if err != nil {
			return err
		}
		next, err := machine.Fire(trigger)
		if err != nil {
			return err
		}

		decidedAt := s.now().UTC()

		// The guarded update is what makes the transition exactly-once
		// under concurrency: a racing call finds the row no longer
		// pending and fails here instead of double-counting.
		ok, err := s.bills.MarkDecided(tx, billID, models.BillStatus(next), decidedAt)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: bill %s is no longer pending", workflow.ErrInvalidTransition, billID)
		}

		if trigger == workflow.TriggerVerify {
			dept, err := s.departments.GetByIDTx(tx, bill.DepartmentID)
			if err != nil {
				return err
			}
			if dept == nil {
				return fmt.Errorf("%w: department %s", ErrNotFound, bill.DepartmentID)
			}
			newTotal := dept.UtilizedTotal.Add(bill.Amount)
			if err := s.departments.SetUtilizedTotal(tx, dept.ID, newTotal); err != nil {
				return err
			}
		}

		bill.Status = models.BillStatus(next)
		bill.DecidedAt = &decidedAt
		decided = bill
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Bill decided",
		zap.String("bill_id", decided.ID),
		zap.String("status", decided.Status.String()),
		zap.String("amount", decided.Amount.String()))

	return decided, nil
}

// GetBill returns one bill
func (s *Service) GetBill(ctx context.Context, billID string) (*models.Bill, error) {
	bill, err := s.bills.GetByID(ctx, billID)
	if err != nil {
		return nil, err
	}
	if bill == nil {
		return nil, fmt.Errorf("%w: bill %s", ErrNotFound, billID)
	}
	return bill, nil
}

// ListBills returns a department's bills, newest first
func (s *Service) ListBills(ctx context.Context, departmentID string) ([]*models.Bill, error) {
	dept, err := s.departments.GetByID(ctx, departmentID)
	if err != nil {
		return nil, err
	}
	if dept == nil {
		return nil, fmt.Errorf("%w: department %s", ErrNotFound, departmentID)
	}
	return s.bills.ListByDepartment(ctx, departmentID)
}

// OpenArtifact loads the merged document of a bill and suggests a filename
func (s *Service) OpenArtifact(ctx context.Context, billID string) ([]byte, string, error) {
	bill, err := s.GetBill(ctx, billID)
	if err != nil {
		return nil, "", err
	}

	content, err := s.store.Load(bill.DocumentRef)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", docmerge.ErrStorageFailure, err)
	}

	return content, fmt.Sprintf("%s_merged.pdf", bill.BillNo), nil
}

// normalizeDate truncates a bill date to midnight UTC so window comparisons
// are stable regardless of the submitter's timezone.
func normalizeDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
