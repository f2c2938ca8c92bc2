package http

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/garyjia/school-finance/internal/application/service"
)

// CreateAccountRequest is the body of POST /api/accounts
type CreateAccountRequest struct {
	AccountCode   string `json:"accountCode" binding:"required"`
	AccountName   string `json:"accountName" binding:"required"`
	AccountTypeID int64  `json:"accountTypeId" binding:"required"`
}

// JournalLineRequest is one posting line of a journal entry
type JournalLineRequest struct {
	AccountID int64           `json:"accountId"`
	Debit     decimal.Decimal `json:"debit"`
	Credit    decimal.Decimal `json:"credit"`
}

// PostJournalEntryRequest is the body of POST /api/journalentries.
// The poster is taken from the bearer token, not the body.
type PostJournalEntryRequest struct {
	Date           string               `json:"date"`
	Description    string               `json:"description"`
	AcademicYearID *int64               `json:"academicYearId"`
	TermID         *int64               `json:"termId"`
	Lines          []JournalLineRequest `json:"lines"`
}

// PageQuery pages GET /api/journalentries
type PageQuery struct {
	Limit  int `form:"limit"`
	Offset int `form:"offset"`
}

// ListAccountTypes handles GET /api/accounttypes
func (h *Handlers) ListAccountTypes(c *gin.Context) {
	types, err := h.services.Ledger.ListAccountTypes(c.Request.Context())
	if err != nil {
		h.respondError(c, "list account types", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: types})
}

// CreateAccount handles POST /api/accounts
func (h *Handlers) CreateAccount(c *gin.Context) {
	var req CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	account, err := h.services.Ledger.CreateAccount(c.Request.Context(), service.CreateAccountInput{
		Code:          req.AccountCode,
		Name:          req.AccountName,
		AccountTypeID: req.AccountTypeID,
	})
	if err != nil {
		h.respondError(c, "create account", err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: account})
}

// ListAccounts handles GET /api/accounts
func (h *Handlers) ListAccounts(c *gin.Context) {
	accounts, err := h.services.Ledger.ListAccounts(c.Request.Context())
	if err != nil {
		h.respondError(c, "list accounts", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: accounts})
}

// GetAccount handles GET /api/accounts/:id
func (h *Handlers) GetAccount(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	account, err := h.services.Ledger.GetAccount(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "get account", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: account})
}

// GetAccountLedger handles GET /api/accounts/:id/ledger
func (h *Handlers) GetAccountLedger(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	ledger, err := h.services.Ledger.GetAccountLedger(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "get account ledger", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: ledger})
}

// ExportAccountLedger handles GET /api/accounts/:id/ledger.xlsx
func (h *Handlers) ExportAccountLedger(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	h.sendWorkbook(c, "export account ledger", fmt.Sprintf("ledger-%d.xlsx", id),
		func(ctx context.Context, buf *bytes.Buffer) error {
			return h.services.Ledger.ExportAccountLedger(ctx, id, buf)
		})
}

// PostJournalEntry handles POST /api/journalentries
func (h *Handlers) PostJournalEntry(c *gin.Context) {
	var req PostJournalEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	date, ok := parseOptionalDate(c, "date", req.Date)
	if !ok {
		return
	}

	lines := make([]service.JournalLineInput, 0, len(req.Lines))
	for _, l := range req.Lines {
		lines = append(lines, service.JournalLineInput{
			AccountID: l.AccountID,
			Debit:     l.Debit,
			Credit:    l.Credit,
		})
	}

	entry, err := h.services.Ledger.PostJournalEntry(c.Request.Context(), service.PostJournalInput{
		Date:           date,
		Description:    req.Description,
		PostedBy:       postedBy(c),
		AcademicYearID: req.AcademicYearID,
		TermID:         req.TermID,
		Lines:          lines,
	})
	if err != nil {
		h.respondError(c, "post journal entry", err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: entry})
}

// ListJournalEntries handles GET /api/journalentries
func (h *Handlers) ListJournalEntries(c *gin.Context) {
	var q PageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, "invalid query parameters")
		return
	}
	if q.Offset < 0 {
		badRequest(c, "offset must not be negative")
		return
	}

	entries, err := h.services.Ledger.ListJournalEntries(c.Request.Context(), q.Limit, q.Offset)
	if err != nil {
		h.respondError(c, "list journal entries", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: entries})
}

// GetJournalEntry handles GET /api/journalentries/:id
func (h *Handlers) GetJournalEntry(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	entry, err := h.services.Ledger.GetJournalEntry(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "get journal entry", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: entry})
}

// ReverseJournalEntry handles POST /api/journalentries/:id/reverse
func (h *Handlers) ReverseJournalEntry(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	entry, err := h.services.Ledger.ReverseJournalEntry(c.Request.Context(), id, postedBy(c))
	if err != nil {
		h.respondError(c, "reverse journal entry", err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: entry})
}

// RejectJournalLine handles POST /api/journallines. Lines are only accepted
// together with their entry, otherwise the ledger could hold an unbalanced entry.
func (h *Handlers) RejectJournalLine(c *gin.Context) {
	badRequest(c, "journal lines must be posted together with their entry via POST /api/journalentries")
}

// GetTrialBalance handles GET /api/reports/trialbalance
func (h *Handlers) GetTrialBalance(c *gin.Context) {
	tb, err := h.services.Ledger.GetTrialBalance(c.Request.Context())
	if err != nil {
		h.respondError(c, "trial balance", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: tb})
}

// ExportTrialBalance handles GET /api/reports/trialbalance.xlsx
func (h *Handlers) ExportTrialBalance(c *gin.Context) {
	h.sendWorkbook(c, "export trial balance", "trial-balance.xlsx",
		func(ctx context.Context, buf *bytes.Buffer) error {
			return h.services.Ledger.ExportTrialBalance(ctx, buf)
		})
}
