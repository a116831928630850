package report

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"

	"github.com/S-poovarasan/College-Fund-Management/internal/models"
)

// PDFRenderer renders a report snapshot as a paginated A4 statement
type PDFRenderer struct {
	institution string
	currency    string
}

// NewPDFRenderer creates a new PDF renderer
func NewPDFRenderer(institution, currency string) *PDFRenderer {
	return &PDFRenderer{
		institution: institution,
		currency:    currency,
	}
}

var (
	colorHeading  = rgb{44, 62, 80}
	colorMuted    = rgb{127, 140, 141}
	colorRowAlt   = rgb{249, 249, 249}
	colorNegative = rgb{231, 76, 60}
	colorPositive = rgb{39, 174, 96}

	statusColors = map[string]rgb{
		"pending":   {253, 126, 20},
		"verified":  {25, 135, 84},
		"rejected":  {220, 53, 69},
		"allocated": {13, 110, 253},
	}
)

type rgb struct{ r, g, b int }

// Render produces the statement bytes. Content paginates automatically and
// every page carries a consistent "Page n of N" footer.
func (p *PDFRenderer) Render(snapshot *models.ReportSnapshot) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Financial Statement", false)
	pdf.SetMargins(10, 12, 10)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AliasNbPages("")

	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "I", 8)
		p.setText(pdf, colorMuted)
		pdf.CellFormat(95, 8, "Generated by Finance Management System", "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 8, fmt.Sprintf("Page %d of {nb}", pdf.PageNo()), "", 0, "R", false, 0, "")
	})

	pdf.AddPage()
	p.renderHeader(pdf, snapshot)
	p.renderSummaryBoxes(pdf, snapshot)

	if snapshot.Scope == ScopeAll {
		p.renderDepartmentTable(pdf, snapshot)
	}

	for i := range snapshot.Departments {
		p.renderTransactionTable(pdf, &snapshot.Departments[i])
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render report PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func (p *PDFRenderer) renderHeader(pdf *fpdf.Fpdf, snapshot *models.ReportSnapshot) {
	pdf.SetFont("Helvetica", "B", 18)
	p.setText(pdf, colorHeading)
	pdf.CellFormat(0, 9, p.institution, "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 12)
	p.setText(pdf, colorMuted)
	pdf.CellFormat(0, 7, "Official Fund Allocation Statement", "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	period := fmt.Sprintf("Period: %s - %s",
		snapshot.StartDate.Format("02/01/2006"),
		snapshot.EndDate.Format("02/01/2006"))
	pdf.CellFormat(0, 5, period, "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 5, fmt.Sprintf("Generated: %s", snapshot.GeneratedAt.Format("02/01/2006 15:04")), "", 1, "C", false, 0, "")
	pdf.Ln(6)
}

func (p *PDFRenderer) renderSummaryBoxes(pdf *fpdf.Fpdf, snapshot *models.ReportSnapshot) {
	boxes := []struct {
		label  string
		value  decimal.Decimal
		fill   rgb
		border rgb
		text   rgb
	}{
		{"TOTAL ALLOCATED", snapshot.Allocated, rgb{232, 244, 253}, rgb{52, 152, 219}, rgb{41, 128, 185}},
		{"TOTAL UTILIZED", snapshot.Utilized, rgb{234, 250, 241}, rgb{39, 174, 96}, rgb{39, 174, 96}},
		{"NET BALANCE", snapshot.Balance, rgb{254, 249, 231}, rgb{243, 156, 18}, rgb{243, 156, 18}},
	}

	const boxW, boxH, gap = 60.0, 24.0, 5.0
	y := pdf.GetY()
	x := 10.0

	for _, box := range boxes {
		pdf.SetFillColor(box.fill.r, box.fill.g, box.fill.b)
		pdf.SetDrawColor(box.border.r, box.border.g, box.border.b)
		pdf.Rect(x, y, boxW, boxH, "FD")

		pdf.SetXY(x+4, y+4)
		pdf.SetFont("Helvetica", "B", 9)
		p.setText(pdf, box.text)
		pdf.CellFormat(boxW-8, 5, box.label, "", 0, "L", false, 0, "")

		pdf.SetXY(x+4, y+12)
		pdf.SetFont("Helvetica", "B", 13)
		p.setText(pdf, colorHeading)
		pdf.CellFormat(boxW-8, 7, p.amount(box.value), "", 0, "L", false, 0, "")

		x += boxW + gap
	}

	pdf.SetY(y + boxH + 8)
}

func (p *PDFRenderer) renderDepartmentTable(pdf *fpdf.Fpdf, snapshot *models.ReportSnapshot) {
	pdf.SetFont("Helvetica", "B", 13)
	p.setText(pdf, colorHeading)
	pdf.CellFormat(0, 8, "Department-wise Allocation", "", 1, "C", false, 0, "")
	pdf.Ln(1)

	widths := []float64{70, 40, 40, 40}
	headers := []string{"Department", "Allocated", "Utilized", "Balance"}

	pdf.SetFont("Helvetica", "B", 9)
	p.setText(pdf, colorMuted)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 6, h, "B", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for i, dept := range snapshot.Departments {
		fill := i%2 == 0
		pdf.SetFillColor(colorRowAlt.r, colorRowAlt.g, colorRowAlt.b)

		p.setText(pdf, colorHeading)
		pdf.CellFormat(widths[0], 7, dept.DepartmentName, "", 0, "L", fill, 0, "")
		pdf.CellFormat(widths[1], 7, p.amount(dept.Allocated), "", 0, "L", fill, 0, "")
		pdf.CellFormat(widths[2], 7, p.amount(dept.Utilized), "", 0, "L", fill, 0, "")

		if dept.Balance.IsNegative() {
			p.setText(pdf, colorNegative)
		} else {
			p.setText(pdf, colorPositive)
		}
		pdf.CellFormat(widths[3], 7, p.amount(dept.Balance), "", 0, "L", fill, 0, "")
		pdf.Ln(-1)
	}

	pdf.Ln(6)
}

func (p *PDFRenderer) renderTransactionTable(pdf *fpdf.Fpdf, dept *models.DepartmentReport) {
	pdf.SetFont("Helvetica", "B", 12)
	p.setText(pdf, colorHeading)
	pdf.CellFormat(0, 8, fmt.Sprintf("%s Transactions", dept.DepartmentName), "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	p.setText(pdf, colorMuted)
	summary := fmt.Sprintf("Allocated: %s  |  Utilized: %s  |  Balance: %s",
		p.amount(dept.Allocated), p.amount(dept.Utilized), p.amount(dept.Balance))
	pdf.CellFormat(0, 6, summary, "", 1, "L", false, 0, "")
	pdf.Ln(1)

	widths := []float64{24, 30, 70, 32, 24}
	headers := []string{"Date", "Bill No", "Purpose", "Amount", "Status"}

	pdf.SetFont("Helvetica", "B", 8)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 6, h, "B", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 8)
	for i, entry := range dept.Transactions {
		fill := i%2 == 0
		pdf.SetFillColor(colorRowAlt.r, colorRowAlt.g, colorRowAlt.b)

		purpose := entry.Purpose
		if len(purpose) > 48 {
			purpose = purpose[:45] + "..."
		}

		p.setText(pdf, colorHeading)
		pdf.CellFormat(widths[0], 6, entry.BillDate.Format("02/01/2006"), "", 0, "L", fill, 0, "")
		pdf.CellFormat(widths[1], 6, entry.BillNo, "", 0, "L", fill, 0, "")
		pdf.CellFormat(widths[2], 6, purpose, "", 0, "L", fill, 0, "")
		pdf.CellFormat(widths[3], 6, p.amount(entry.Amount), "", 0, "L", fill, 0, "")

		if c, ok := statusColors[entry.Status]; ok {
			p.setText(pdf, c)
		}
		pdf.CellFormat(widths[4], 6, entry.Status, "", 0, "L", fill, 0, "")
		pdf.Ln(-1)
	}

	pdf.Ln(6)
}

func (p *PDFRenderer) amount(d decimal.Decimal) string {
	return fmt.Sprintf("%s %s", p.currency, d.StringFixed(2))
}

func (p *PDFRenderer) setText(pdf *fpdf.Fpdf, c rgb) {
	pdf.SetTextColor(c.r, c.g, c.b)
}
