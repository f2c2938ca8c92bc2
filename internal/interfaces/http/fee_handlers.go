package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/garyjia/school-finance/internal/application/port"
	"github.com/garyjia/school-finance/internal/application/service"
)

// CreateFeeItemRequest is the body of POST /api/feeitems
type CreateFeeItemRequest struct {
	Name             string          `json:"name" binding:"required"`
	DefaultAmount    decimal.Decimal `json:"defaultAmount"`
	IsOptional       bool            `json:"isOptional"`
	RevenueAccountID *int64          `json:"revenueAccountId"`
}

// CreateFeeStructureRequest is the body of POST /api/feestructures
type CreateFeeStructureRequest struct {
	ClassID        int64            `json:"classId" binding:"required"`
	AcademicYearID int64            `json:"academicYearId" binding:"required"`
	TermID         int64            `json:"termId" binding:"required"`
	FeeItemID      int64            `json:"feeItemId" binding:"required"`
	Amount         *decimal.Decimal `json:"amount"`
}

// FeeScopeQuery selects fee structures by class, academic year and term
type FeeScopeQuery struct {
	ClassID        int64 `form:"classId"`
	AcademicYearID int64 `form:"academicYearId"`
	TermID         int64 `form:"termId"`
}

// CreateFeeItem handles POST /api/feeitems
func (h *Handlers) CreateFeeItem(c *gin.Context) {
	var req CreateFeeItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	item, err := h.services.Fees.CreateFeeItem(c.Request.Context(), service.CreateFeeItemInput{
		Name:             req.Name,
		DefaultAmount:    req.DefaultAmount,
		IsOptional:       req.IsOptional,
		RevenueAccountID: req.RevenueAccountID,
	})
	if err != nil {
		h.respondError(c, "create fee item", err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: item})
}

// ListFeeItems handles GET /api/feeitems
func (h *Handlers) ListFeeItems(c *gin.Context) {
	items, err := h.services.Fees.ListFeeItems(c.Request.Context())
	if err != nil {
		h.respondError(c, "list fee items", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: items})
}

// GetFeeItem handles GET /api/feeitems/:id
func (h *Handlers) GetFeeItem(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	item, err := h.services.Fees.GetFeeItem(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "get fee item", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: item})
}

// CreateFeeStructure handles POST /api/feestructures
func (h *Handlers) CreateFeeStructure(c *gin.Context) {
	var req CreateFeeStructureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	fs, err := h.services.Fees.CreateFeeStructure(c.Request.Context(), service.CreateFeeStructureInput{
		ClassID:        req.ClassID,
		AcademicYearID: req.AcademicYearID,
		TermID:         req.TermID,
		FeeItemID:      req.FeeItemID,
		Amount:         req.Amount,
	})
	if err != nil {
		h.respondError(c, "create fee structure", err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: fs})
}

// ListFeeStructures handles GET /api/feestructures
func (h *Handlers) ListFeeStructures(c *gin.Context) {
	var q FeeScopeQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, "invalid query parameters")
		return
	}

	list, err := h.services.Fees.ListFeeStructures(c.Request.Context(), port.FeeStructureFilter{
		ClassID:        q.ClassID,
		AcademicYearID: q.AcademicYearID,
		TermID:         q.TermID,
	})
	if err != nil {
		h.respondError(c, "list fee structures", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: list})
}

// ResolveFeeStructure handles GET /api/feestructures/resolve
func (h *Handlers) ResolveFeeStructure(c *gin.Context) {
	var q FeeScopeQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, "invalid query parameters")
		return
	}
	if q.ClassID <= 0 || q.AcademicYearID <= 0 || q.TermID <= 0 {
		badRequest(c, "classId, academicYearId and termId are required")
		return
	}

	amounts, err := h.services.Fees.ResolveFeeStructure(c.Request.Context(), q.ClassID, q.AcademicYearID, q.TermID)
	if err != nil {
		h.respondError(c, "resolve fee structure", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: amounts})
}
