package ledger

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/S-poovarasan/College-Fund-Management/internal/docmerge"
	"github.com/S-poovarasan/College-Fund-Management/internal/domain/workflow"
	"github.com/S-poovarasan/College-Fund-Management/internal/models"
	"github.com/S-poovarasan/College-Fund-Management/internal/repository"
	"github.com/S-poovarasan/College-Fund-Management/pkg/database"
)

// fakeMerger stands in for the PDF pipeline; it hands back a fixed page
// count without touching any files.
type fakeMerger struct {
	pages int
	err   error
}

func (m *fakeMerger) Merge(ctx context.Context, ref string, inputs []string) (*docmerge.Result, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &docmerge.Result{Ref: ref, PageCount: m.pages}, nil
}

// memoryStore keeps artifacts in a map and records deletions
type memoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{objects: make(map[string][]byte)}
}

func (s *memoryStore) Save(ref string, content []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[ref] = content
	return nil
}

func (s *memoryStore) Load(ref string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	content, ok := s.objects[ref]
	if !ok {
		return nil, fmt.Errorf("artifact not found: %s", ref)
	}
	return content, nil
}

func (s *memoryStore) Delete(ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, ref)
	s.deleted = append(s.deleted, ref)
	return nil
}

func (s *memoryStore) Path(ref string) (string, error) {
	return ref, nil
}

func newTestService(t *testing.T) (*Service, *memoryStore) {
	t.Helper()

	logger := zap.NewNop()
	// A single connection serializes transactions, which keeps the
	// concurrency tests free of SQLITE_BUSY noise.
	db, err := database.New(database.Config{
		Path:         filepath.Join(t.TempDir(), "ledger.db"),
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	migrator := database.NewMigrator(db, logger)
	require.NoError(t, migrator.Run("../../migrations"))

	store := newMemoryStore()
	svc := NewService(
		db,
		repository.NewDepartmentRepository(db.DB, logger),
		repository.NewBillRepository(db.DB, logger),
		&fakeMerger{pages: 3},
		store,
		logger,
	)
	return svc, store
}

func createDepartment(t *testing.T, svc *Service, name string) *models.Department {
	t.Helper()
	dept, err := svc.CreateDepartment(context.Background(), name, "")
	require.NoError(t, err)
	return dept
}

func submitBill(t *testing.T, svc *Service, deptID, billNo, amount string) *models.Bill {
	t.Helper()
	bill, err := svc.SubmitBill(context.Background(), SubmitBillInput{
		DepartmentID: deptID,
		BillNo:       billNo,
		BillDate:     time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC),
		Purpose:      "Lab equipment",
		Amount:       decimal.RequireFromString(amount),
		Documents:    []string{"a.pdf", "b.pdf"},
		SubmittedBy:  "hod-cse",
	})
	require.NoError(t, err)
	return bill
}

func TestCreateDepartment(t *testing.T) {
	svc, _ := newTestService(t)

	dept := createDepartment(t, svc, "Computer Science")

	assert.NotEmpty(t, dept.ID)
	assert.Equal(t, "Computer Science", dept.Name)
	assert.True(t, dept.AllocatedTotal.IsZero())
	assert.True(t, dept.UtilizedTotal.IsZero())
	assert.True(t, dept.Balance().IsZero())
}

func TestCreateDepartment_DuplicateName(t *testing.T) {
	svc, _ := newTestService(t)

	createDepartment(t, svc, "Physics")

	_, err := svc.CreateDepartment(context.Background(), "Physics", "")
	assert.ErrorIs(t, err, ErrDuplicateDepartment)
}

func TestAllocate(t *testing.T) {
	svc, _ := newTestService(t)
	dept := createDepartment(t, svc, "Computer Science")

	updated, err := svc.Allocate(context.Background(), dept.ID, decimal.RequireFromString("5000"))
	require.NoError(t, err)
	assert.Equal(t, "5000", updated.AllocatedTotal.String())

	// Allocations accumulate
	updated, err = svc.Allocate(context.Background(), dept.ID, decimal.RequireFromString("2500.50"))
	require.NoError(t, err)
	assert.Equal(t, "7500.5", updated.AllocatedTotal.String())
	assert.Equal(t, "7500.5", updated.Balance().String())
}

func TestAllocate_InvalidAmount(t *testing.T) {
	svc, _ := newTestService(t)
	dept := createDepartment(t, svc, "Computer Science")

	for _, amount := range []string{"0", "-100"} {
		_, err := svc.Allocate(context.Background(), dept.ID, decimal.RequireFromString(amount))
		assert.ErrorIs(t, err, ErrInvalidAmount, "amount %s", amount)
	}
}

func TestAllocate_UnknownDepartment(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Allocate(context.Background(), "no-such-id", decimal.RequireFromString("100"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSubmitBill(t *testing.T) {
	svc, store := newTestService(t)
	dept := createDepartment(t, svc, "Computer Science")

	bill := submitBill(t, svc, dept.ID, "INV-001", "1200")

	assert.Equal(t, models.BillStatusPending, bill.Status)
	assert.Equal(t, 3, bill.PageCount)
	assert.Nil(t, bill.DecidedAt)
	assert.Equal(t, fmt.Sprintf("%s/%s.pdf", dept.ID, bill.ID), bill.DocumentRef)

	// Bill date is normalized to midnight UTC
	assert.Equal(t, time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC), bill.BillDate)

	// Submission alone must not touch the fund account
	account, err := svc.GetBalance(context.Background(), dept.ID)
	require.NoError(t, err)
	assert.True(t, account.UtilizedTotal.IsZero())

	// No artifact was deleted along the way
	assert.Empty(t, store.deleted)
}

func TestSubmitBill_Validation(t *testing.T) {
	svc, _ := newTestService(t)
	dept := createDepartment(t, svc, "Computer Science")

	_, err := svc.SubmitBill(context.Background(), SubmitBillInput{
		DepartmentID: dept.ID,
		BillNo:       "INV-001",
		Amount:       decimal.RequireFromString("-5"),
		Documents:    []string{"a.pdf"},
	})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = svc.SubmitBill(context.Background(), SubmitBillInput{
		DepartmentID: dept.ID,
		BillNo:       "INV-001",
		Amount:       decimal.RequireFromString("100"),
	})
	assert.ErrorIs(t, err, ErrMissingDocument)

	_, err = svc.SubmitBill(context.Background(), SubmitBillInput{
		DepartmentID: "no-such-id",
		BillNo:       "INV-001",
		Amount:       decimal.RequireFromString("100"),
		Documents:    []string{"a.pdf"},
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSubmitBill_DuplicateBillNo(t *testing.T) {
	svc, store := newTestService(t)
	dept := createDepartment(t, svc, "Computer Science")

	submitBill(t, svc, dept.ID, "INV-001", "100")

	_, err := svc.SubmitBill(context.Background(), SubmitBillInput{
		DepartmentID: dept.ID,
		BillNo:       "INV-001",
		BillDate:     time.Now(),
		Amount:       decimal.RequireFromString("200"),
		Documents:    []string{"a.pdf"},
	})
	assert.ErrorIs(t, err, ErrDuplicateBillNo)

	// The orphaned artifact of the failed submission was cleaned up
	assert.Len(t, store.deleted, 1)
}

func TestSubmitBill_SameBillNoAcrossDepartments(t *testing.T) {
	svc, _ := newTestService(t)
	cse := createDepartment(t, svc, "Computer Science")
	ece := createDepartment(t, svc, "Electronics")

	submitBill(t, svc, cse.ID, "INV-001", "100")
	submitBill(t, svc, ece.ID, "INV-001", "100")
}

func TestVerify(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	dept := createDepartment(t, svc, "Computer Science")

	_, err := svc.Allocate(ctx, dept.ID, decimal.RequireFromString("5000"))
	require.NoError(t, err)

	bill := submitBill(t, svc, dept.ID, "INV-001", "1200")

	decided, err := svc.Verify(ctx, bill.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BillStatusVerified, decided.Status)
	require.NotNil(t, decided.DecidedAt)

	account, err := svc.GetBalance(ctx, dept.ID)
	require.NoError(t, err)
	assert.Equal(t, "1200", account.UtilizedTotal.String())
	assert.Equal(t, "3800", account.Balance().String())
}

func TestVerify_Twice(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	dept := createDepartment(t, svc, "Computer Science")
	bill := submitBill(t, svc, dept.ID, "INV-001", "1200")

	_, err := svc.Verify(ctx, bill.ID)
	require.NoError(t, err)

	_, err = svc.Verify(ctx, bill.ID)
	assert.ErrorIs(t, err, workflow.ErrInvalidTransition)

	// The second call must not double-count
	account, err := svc.GetBalance(ctx, dept.ID)
	require.NoError(t, err)
	assert.Equal(t, "1200", account.UtilizedTotal.String())
}

func TestVerify_Concurrent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	dept := createDepartment(t, svc, "Computer Science")
	bill := submitBill(t, svc, dept.ID, "INV-001", "1200")

	const workers = 8
	errs := make(chan error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Verify(ctx, bill.ID)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, workflow.ErrInvalidTransition)
		}
	}
	assert.Equal(t, 1, succeeded, "exactly one concurrent verify may win")

	account, err := svc.GetBalance(ctx, dept.ID)
	require.NoError(t, err)
	assert.Equal(t, "1200", account.UtilizedTotal.String())
}

func TestReject(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	dept := createDepartment(t, svc, "Computer Science")
	bill := submitBill(t, svc, dept.ID, "INV-001", "1200")

	decided, err := svc.Reject(ctx, bill.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BillStatusRejected, decided.Status)
	require.NotNil(t, decided.DecidedAt)

	// Rejection has no fund account effect
	account, err := svc.GetBalance(ctx, dept.ID)
	require.NoError(t, err)
	assert.True(t, account.UtilizedTotal.IsZero())

	// Rejected is terminal
	_, err = svc.Verify(ctx, bill.ID)
	assert.ErrorIs(t, err, workflow.ErrInvalidTransition)
}

func TestDecide_NotFound(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Verify(context.Background(), "no-such-bill")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Reject(context.Background(), "no-such-bill")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestVerify_OverUtilization(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	dept := createDepartment(t, svc, "Computer Science")

	_, err := svc.Allocate(ctx, dept.ID, decimal.RequireFromString("1000"))
	require.NoError(t, err)

	bill := submitBill(t, svc, dept.ID, "INV-001", "1200")

	// Verification is not blocked by insufficient balance; the account
	// simply goes negative.
	_, err = svc.Verify(ctx, bill.ID)
	require.NoError(t, err)

	account, err := svc.GetBalance(ctx, dept.ID)
	require.NoError(t, err)
	assert.Equal(t, "-200", account.Balance().String())
}

func TestLedgerInvariant(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	dept := createDepartment(t, svc, "Computer Science")

	_, err := svc.Allocate(ctx, dept.ID, decimal.RequireFromString("100000"))
	require.NoError(t, err)

	// Interleave submissions and decisions, checking after every decision
	// that utilized equals the sum of verified amounts.
	verifiedSum := decimal.Zero
	for i := 0; i < 10; i++ {
		amount := decimal.NewFromInt(int64(100 + i*37))
		bill := submitBill(t, svc, dept.ID, fmt.Sprintf("INV-%03d", i), amount.String())

		if i%3 == 0 {
			_, err = svc.Reject(ctx, bill.ID)
			require.NoError(t, err)
		} else {
			_, err = svc.Verify(ctx, bill.ID)
			require.NoError(t, err)
			verifiedSum = verifiedSum.Add(amount)
		}

		account, err := svc.GetBalance(ctx, dept.ID)
		require.NoError(t, err)
		assert.True(t, account.UtilizedTotal.Equal(verifiedSum),
			"utilized %s, want %s", account.UtilizedTotal, verifiedSum)
	}
}

func TestListBills(t *testing.T) {
	svc, _ := newTestService(t)
	dept := createDepartment(t, svc, "Computer Science")

	submitBill(t, svc, dept.ID, "INV-001", "100")
	submitBill(t, svc, dept.ID, "INV-002", "200")

	bills, err := svc.ListBills(context.Background(), dept.ID)
	require.NoError(t, err)
	assert.Len(t, bills, 2)

	_, err = svc.ListBills(context.Background(), "no-such-id")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOpenArtifact(t *testing.T) {
	svc, store := newTestService(t)
	dept := createDepartment(t, svc, "Computer Science")
	bill := submitBill(t, svc, dept.ID, "INV-001", "100")

	require.NoError(t, store.Save(bill.DocumentRef, []byte("%PDF-1.7 test")))

	content, filename, err := svc.OpenArtifact(context.Background(), bill.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.7 test"), content)
	assert.Equal(t, "INV-001_merged.pdf", filename)
}

func TestDeleteDepartment_CascadesBills(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	dept := createDepartment(t, svc, "Computer Science")
	bill := submitBill(t, svc, dept.ID, "INV-001", "100")

	require.NoError(t, svc.DeleteDepartment(ctx, dept.ID))

	_, err := svc.GetBalance(ctx, dept.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.GetBill(ctx, bill.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateDepartment(t *testing.T) {
	svc, _ := newTestService(t)
	dept := createDepartment(t, svc, "Computer Science")

	updated, err := svc.UpdateDepartment(context.Background(), dept.ID, "CSE", "renamed")
	require.NoError(t, err)
	assert.Equal(t, "CSE", updated.Name)
	assert.Equal(t, "renamed", updated.Description)

	_, err = svc.UpdateDepartment(context.Background(), "no-such-id", "X", "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSubmitBill_MergeFailure(t *testing.T) {
	svc, _ := newTestService(t)
	dept := createDepartment(t, svc, "Computer Science")

	mergeErr := errors.New("merge exploded")
	svc.merger = &fakeMerger{err: mergeErr}

	_, err := svc.SubmitBill(context.Background(), SubmitBillInput{
		DepartmentID: dept.ID,
		BillNo:       "INV-001",
		BillDate:     time.Now(),
		Amount:       decimal.RequireFromString("100"),
		Documents:    []string{"a.pdf"},
	})
	assert.ErrorIs(t, err, mergeErr)

	// Nothing was persisted
	bills, err := svc.ListBills(context.Background(), dept.ID)
	require.NoError(t, err)
	assert.Empty(t, bills)
}
