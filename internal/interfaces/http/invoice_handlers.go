package http

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/garyjia/school-finance/internal/application/service"
	"github.com/garyjia/school-finance/internal/domain/entity"
)

// FeeLineRequest is one invoice line in a request body
type FeeLineRequest struct {
	FeeItemID int64           `json:"feeItemId"`
	Amount    decimal.Decimal `json:"amount"`
}

// IssueInvoiceRequest is the body of POST /api/invoices.
// Totals and status are derived, so they are not accepted here.
type IssueInvoiceRequest struct {
	StudentID      int64            `json:"studentId" binding:"required"`
	AcademicYearID int64            `json:"academicYearId" binding:"required"`
	TermID         int64            `json:"termId" binding:"required"`
	IssueDate      string           `json:"issueDate"`
	DueDate        string           `json:"dueDate"`
	Lines          []FeeLineRequest `json:"lines"`
}

// AddInvoiceLineRequest is the body of POST /api/invoicelines
type AddInvoiceLineRequest struct {
	InvoiceID int64           `json:"invoiceId" binding:"required"`
	FeeItemID int64           `json:"feeItemId" binding:"required"`
	Amount    decimal.Decimal `json:"amount"`
}

// BillingRunRequest is the body of POST /api/billing/runs
type BillingRunRequest struct {
	ClassID        int64  `json:"classId" binding:"required"`
	AcademicYearID int64  `json:"academicYearId" binding:"required"`
	TermID         int64  `json:"termId" binding:"required"`
	IssueDate      string `json:"issueDate"`
	DueDate        string `json:"dueDate"`
}

// InvoiceQuery filters GET /api/invoices
type InvoiceQuery struct {
	StudentID      int64  `form:"studentId"`
	AcademicYearID int64  `form:"academicYearId"`
	TermID         int64  `form:"termId"`
	Status         string `form:"status"`
}

// IssueInvoice handles POST /api/invoices
func (h *Handlers) IssueInvoice(c *gin.Context) {
	var req IssueInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	issueDate, ok := parseOptionalDate(c, "issueDate", req.IssueDate)
	if !ok {
		return
	}
	dueDate, ok := parseOptionalDate(c, "dueDate", req.DueDate)
	if !ok {
		return
	}

	lines := make([]entity.FeeAmount, 0, len(req.Lines))
	for _, l := range req.Lines {
		lines = append(lines, entity.FeeAmount{FeeItemID: l.FeeItemID, Amount: l.Amount})
	}

	inv, err := h.services.Invoices.IssueInvoice(c.Request.Context(), service.IssueInvoiceInput{
		StudentID:      req.StudentID,
		AcademicYearID: req.AcademicYearID,
		TermID:         req.TermID,
		IssueDate:      issueDate,
		DueDate:        dueDate,
		Lines:          lines,
		PostedBy:       postedBy(c),
	})
	if err != nil {
		h.respondError(c, "issue invoice", err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: inv})
}

// AddInvoiceLine handles POST /api/invoicelines
func (h *Handlers) AddInvoiceLine(c *gin.Context) {
	var req AddInvoiceLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	inv, err := h.services.Invoices.AddInvoiceLine(c.Request.Context(), req.InvoiceID, entity.FeeAmount{
		FeeItemID: req.FeeItemID,
		Amount:    req.Amount,
	}, postedBy(c))
	if err != nil {
		h.respondError(c, "add invoice line", err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: inv})
}

// ListInvoices handles GET /api/invoices
func (h *Handlers) ListInvoices(c *gin.Context) {
	var q InvoiceQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, "invalid query parameters")
		return
	}

	invoices, err := h.services.Invoices.ListInvoices(c.Request.Context(), entity.InvoiceFilter{
		StudentID:      q.StudentID,
		AcademicYearID: q.AcademicYearID,
		TermID:         q.TermID,
		Status:         q.Status,
	})
	if err != nil {
		h.respondError(c, "list invoices", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: invoices})
}

// GetInvoice handles GET /api/invoices/:id
func (h *Handlers) GetInvoice(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	detail, err := h.services.Invoices.GetInvoice(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "get invoice", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: detail})
}

// RunBilling handles POST /api/billing/runs
func (h *Handlers) RunBilling(c *gin.Context) {
	var req BillingRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	issueDate, ok := parseOptionalDate(c, "issueDate", req.IssueDate)
	if !ok {
		return
	}
	dueDate, ok := parseOptionalDate(c, "dueDate", req.DueDate)
	if !ok {
		return
	}

	result, err := h.services.Invoices.RunBilling(c.Request.Context(), service.BillingRunInput{
		ClassID:        req.ClassID,
		AcademicYearID: req.AcademicYearID,
		TermID:         req.TermID,
		IssueDate:      issueDate,
		DueDate:        dueDate,
		PostedBy:       postedBy(c),
	})
	if err != nil {
		h.respondError(c, "run billing", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: result})
}

// GetStatement handles GET /api/students/:id/statement
func (h *Handlers) GetStatement(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	statement, err := h.services.Invoices.GetStatement(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "get statement", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: statement})
}

// ExportStatement handles GET /api/students/:id/statement.xlsx
func (h *Handlers) ExportStatement(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	h.sendWorkbook(c, "export statement", fmt.Sprintf("statement-%d.xlsx", id),
		func(ctx context.Context, buf *bytes.Buffer) error {
			return h.services.Invoices.ExportStatement(ctx, id, buf)
		})
}
