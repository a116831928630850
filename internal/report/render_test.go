package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/gen2brain/go-fitz"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/S-poovarasan/College-Fund-Management/internal/models"
)

func sampleSnapshot() *models.ReportSnapshot {
	created := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	dept := &models.Department{
		ID:             "dept-1",
		Name:           "Computer Science",
		AllocatedTotal: decimal.RequireFromString("5000"),
		UtilizedTotal:  decimal.RequireFromString("1200"),
		CreatedAt:      created,
	}

	entries := []models.TransactionEntry{
		models.OpeningAllocationEntry(dept),
		{
			Kind:     models.EntryKindBill,
			BillID:   "bill-1",
			BillNo:   "INV-001",
			Purpose:  "Lab equipment for the microprocessor laboratory",
			Amount:   decimal.RequireFromString("1200"),
			BillDate: time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC),
			Status:   "verified",
		},
		{
			Kind:     models.EntryKindBill,
			BillID:   "bill-2",
			BillNo:   "INV-002",
			Purpose:  "Stationery",
			Amount:   decimal.RequireFromString("300"),
			BillDate: time.Date(2025, 4, 12, 0, 0, 0, 0, time.UTC),
			Status:   "pending",
		},
	}

	return &models.ReportSnapshot{
		Scope:       ScopeAll,
		Window:      string(WindowMonthly),
		StartDate:   time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2025, 4, 15, 0, 0, 0, 0, time.UTC),
		GeneratedAt: time.Date(2025, 4, 15, 10, 30, 0, 0, time.UTC),
		Allocated:   decimal.RequireFromString("5000"),
		Utilized:    decimal.RequireFromString("1200"),
		Balance:     decimal.RequireFromString("3800"),
		Departments: []models.DepartmentReport{{
			DepartmentID:   dept.ID,
			DepartmentName: dept.Name,
			Allocated:      dept.AllocatedTotal,
			Utilized:       dept.UtilizedTotal,
			Balance:        dept.Balance(),
			Transactions:   entries,
		}},
	}
}

func TestPDFRenderer_Render(t *testing.T) {
	renderer := NewPDFRenderer("Test College", "Rs.")

	out, err := renderer.Render(sampleSnapshot())
	require.NoError(t, err)
	require.NotEmpty(t, out)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")), "output is not a PDF")

	// The statement must parse as a PDF with at least one page.
	doc, err := fitz.NewFromMemory(out)
	require.NoError(t, err)
	defer doc.Close()
	assert.GreaterOrEqual(t, doc.NumPage(), 1)

	text, err := doc.Text(0)
	require.NoError(t, err)
	assert.Contains(t, text, "Test College")
	assert.Contains(t, text, "Official Fund Allocation Statement")
	assert.Contains(t, text, "INV-001")
	assert.Contains(t, text, "ALLOCATED")
}

func TestPDFRenderer_SingleDepartmentScope(t *testing.T) {
	renderer := NewPDFRenderer("Test College", "Rs.")

	snapshot := sampleSnapshot()
	snapshot.Scope = "dept-1"

	out, err := renderer.Render(snapshot)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
}

func TestExcelRenderer_Render(t *testing.T) {
	renderer := NewExcelRenderer("Test College")

	out, err := renderer.Render(sampleSnapshot())
	require.NoError(t, err)
	require.NotEmpty(t, out)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	institution, err := f.GetCellValue("Summary", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Test College", institution)

	allocated, err := f.GetCellValue("Summary", "B5")
	require.NoError(t, err)
	assert.Equal(t, "5000", allocated)

	deptName, err := f.GetCellValue("Summary", "A10")
	require.NoError(t, err)
	assert.Equal(t, "Computer Science", deptName)

	// Transactions sheet carries the flat rows: header plus three entries.
	rows, err := f.GetRows("Transactions")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "Bill No", rows[0][2])
	assert.Equal(t, "ALLOCATED", rows[1][2])
	assert.Equal(t, "INV-001", rows[2][2])
}
