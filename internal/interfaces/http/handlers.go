package http

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/S-poovarasan/College-Fund-Management/internal/docmerge"
	"github.com/S-poovarasan/College-Fund-Management/internal/domain/workflow"
	"github.com/S-poovarasan/College-Fund-Management/internal/ledger"
	"github.com/S-poovarasan/College-Fund-Management/internal/report"
)

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func (s *Server) ok(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Response{Success: true, Data: data})
}

func (s *Server) fail(c *gin.Context, err error) {
	s.logger.Warn("Request failed",
		zap.String("path", c.Request.URL.Path),
		zap.Error(err))
	c.JSON(statusFor(err), Response{Success: false, Error: err.Error()})
}

// statusFor maps the domain error taxonomy onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, workflow.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrDuplicateBillNo),
		errors.Is(err, ledger.ErrDuplicateDepartment):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ledger.ErrMissingDocument),
		errors.Is(err, docmerge.ErrEmptyInput),
		errors.Is(err, docmerge.ErrTooManyDocuments),
		errors.Is(err, report.ErrInvalidWindow):
		return http.StatusBadRequest
	case errors.Is(err, docmerge.ErrUnreadableDocument):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// handleHealth handles GET /health
func (s *Server) handleHealth(c *gin.Context) {
	s.ok(c, http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "fund-management",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

type departmentRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// handleCreateDepartment handles POST /api/v1/departments
func (s *Server) handleCreateDepartment(c *gin.Context) {
	var req departmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "name is required"})
		return
	}

	dept, err := s.ledger.CreateDepartment(c.Request.Context(), req.Name, req.Description)
	if err != nil {
		s.fail(c, err)
		return
	}

	s.ok(c, http.StatusCreated, dept)
}

// handleListDepartments handles GET /api/v1/departments
func (s *Server) handleListDepartments(c *gin.Context) {
	departments, err := s.ledger.ListDepartments(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	s.ok(c, http.StatusOK, departments)
}

// handleUpdateDepartment handles PUT /api/v1/departments/:id
func (s *Server) handleUpdateDepartment(c *gin.Context) {
	var req departmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "name is required"})
		return
	}

	dept, err := s.ledger.UpdateDepartment(c.Request.Context(), c.Param("id"), req.Name, req.Description)
	if err != nil {
		s.fail(c, err)
		return
	}

	s.ok(c, http.StatusOK, dept)
}

// handleDeleteDepartment handles DELETE /api/v1/departments/:id
func (s *Server) handleDeleteDepartment(c *gin.Context) {
	if err := s.ledger.DeleteDepartment(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	s.ok(c, http.StatusOK, gin.H{"deleted": true})
}

type allocateRequest struct {
	Amount string `json:"amount" binding:"required"`
}

// handleAllocate handles POST /api/v1/departments/:id/allocate
func (s *Server) handleAllocate(c *gin.Context) {
	var req allocateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "amount is required"})
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		s.fail(c, fmt.Errorf("%w: %q", ledger.ErrInvalidAmount, req.Amount))
		return
	}

	dept, err := s.ledger.Allocate(c.Request.Context(), c.Param("id"), amount)
	if err != nil {
		s.fail(c, err)
		return
	}

	s.ok(c, http.StatusOK, dept)
}

// handleGetBalance handles GET /api/v1/departments/:id/balance
func (s *Server) handleGetBalance(c *gin.Context) {
	departmentID := c.Param("id")
	if !canAccessDepartment(principalFrom(c), departmentID) {
		c.JSON(http.StatusForbidden, Response{Success: false, Error: "department access denied"})
		return
	}

	dept, err := s.ledger.GetBalance(c.Request.Context(), departmentID)
	if err != nil {
		s.fail(c, err)
		return
	}

	s.ok(c, http.StatusOK, gin.H{
		"department_id":   dept.ID,
		"allocated_total": dept.AllocatedTotal,
		"utilized_total":  dept.UtilizedTotal,
		"balance":         dept.Balance(),
	})
}

// handleSubmitBill handles POST /api/v1/bills. The multipart transport is
// deliberately thin: uploaded files land in a scratch directory and are
// handed to the merge pipeline as plain paths.
func (s *Server) handleSubmitBill(c *gin.Context) {
	principal := principalFrom(c)

	billDate, err := time.Parse("2006-01-02", c.PostForm("billDate"))
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "billDate must be YYYY-MM-DD"})
		return
	}

	amount, err := decimal.NewFromString(c.PostForm("amount"))
	if err != nil {
		s.fail(c, fmt.Errorf("%w: %q", ledger.ErrInvalidAmount, c.PostForm("amount")))
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "multipart form required"})
		return
	}

	files := form.File["documents"]
	if len(files) == 0 {
		s.fail(c, ledger.ErrMissingDocument)
		return
	}

	scratch := filepath.Join(s.config.UploadDir, uuid.NewString())
	if err := os.MkdirAll(scratch, 0755); err != nil {
		s.fail(c, fmt.Errorf("failed to stage uploads: %w", err))
		return
	}
	defer os.RemoveAll(scratch)

	paths := make([]string, 0, len(files))
	for i, fh := range files {
		dst := filepath.Join(scratch, fmt.Sprintf("%03d_%s", i, filepath.Base(fh.Filename)))
		if err := c.SaveUploadedFile(fh, dst); err != nil {
			s.fail(c, fmt.Errorf("failed to stage upload %s: %w", fh.Filename, err))
			return
		}
		paths = append(paths, dst)
	}

	bill, err := s.ledger.SubmitBill(c.Request.Context(), ledger.SubmitBillInput{
		DepartmentID: principal.DepartmentID,
		BillNo:       c.PostForm("billNo"),
		BillDate:     billDate,
		Purpose:      c.PostForm("purpose"),
		Amount:       amount,
		Documents:    paths,
		SubmittedBy:  principal.Subject,
	})
	if err != nil {
		s.fail(c, err)
		return
	}

	s.ok(c, http.StatusCreated, bill)
}

// handleListBills handles GET /api/v1/bills?department=
func (s *Server) handleListBills(c *gin.Context) {
	principal := principalFrom(c)

	departmentID := c.Query("department")
	if principal.Role == RoleHOD {
		departmentID = principal.DepartmentID
	}
	if departmentID == "" {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "department query parameter required"})
		return
	}

	bills, err := s.ledger.ListBills(c.Request.Context(), departmentID)
	if err != nil {
		s.fail(c, err)
		return
	}

	s.ok(c, http.StatusOK, bills)
}

type decideRequest struct {
	Decision string `json:"decision" binding:"required"`
}

// handleDecideBill handles PUT /api/v1/bills/:id/verify
func (s *Server) handleDecideBill(c *gin.Context) {
	var req decideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "decision is required"})
		return
	}

	var err error
	var bill interface{}
	switch req.Decision {
	case "verified":
		bill, err = s.ledger.Verify(c.Request.Context(), c.Param("id"))
	case "rejected":
		bill, err = s.ledger.Reject(c.Request.Context(), c.Param("id"))
	default:
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "decision must be verified or rejected"})
		return
	}
	if err != nil {
		s.fail(c, err)
		return
	}

	s.ok(c, http.StatusOK, bill)
}

// handleDownloadArtifact handles GET /api/v1/bills/:id/document
func (s *Server) handleDownloadArtifact(c *gin.Context) {
	bill, err := s.ledger.GetBill(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}

	if !canAccessDepartment(principalFrom(c), bill.DepartmentID) {
		c.JSON(http.StatusForbidden, Response{Success: false, Error: "department access denied"})
		return
	}

	content, filename, err := s.ledger.OpenArtifact(c.Request.Context(), bill.ID)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", content)
}

// resolveScope applies the principal's visibility to the scope parameter.
// Hods are always pinned to their own department.
func resolveScope(c *gin.Context) string {
	principal := principalFrom(c)
	if principal.Role == RoleHOD {
		return principal.DepartmentID
	}

	scope := c.Query("scope")
	if scope == "" {
		scope = report.ScopeAll
	}
	return scope
}

// handleReport handles GET /api/v1/reports?scope=&window=
func (s *Server) handleReport(c *gin.Context) {
	scope := resolveScope(c)

	snapshot, err := s.reports.Report(c.Request.Context(), scope, c.Query("window"), time.Now())
	if err != nil {
		s.fail(c, err)
		return
	}

	s.ok(c, http.StatusOK, snapshot)
}

// handleExportReport handles GET /api/v1/reports/export?scope=&window=&format=
func (s *Server) handleExportReport(c *gin.Context) {
	scope := resolveScope(c)

	snapshot, err := s.reports.Report(c.Request.Context(), scope, c.Query("window"), time.Now())
	if err != nil {
		s.fail(c, err)
		return
	}

	scopeName := report.ScopeAll + "_departments"
	if snapshot.Scope != report.ScopeAll && len(snapshot.Departments) == 1 {
		scopeName = strings.ReplaceAll(snapshot.Departments[0].DepartmentName, " ", "_")
	}

	format := c.DefaultQuery("format", "pdf")
	switch format {
	case "pdf":
		content, err := s.pdf.Render(snapshot)
		if err != nil {
			s.fail(c, err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q",
			fmt.Sprintf("%s_%s_statement.pdf", scopeName, snapshot.Window)))
		c.Data(http.StatusOK, "application/pdf", content)
	case "xlsx":
		content, err := s.excel.Render(snapshot)
		if err != nil {
			s.fail(c, err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q",
			fmt.Sprintf("%s_%s_statement.xlsx", scopeName, snapshot.Window)))
		c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", content)
	default:
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "format must be pdf or xlsx"})
	}
}
