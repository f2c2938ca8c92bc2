package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/garyjia/school-finance/internal/application/port"
	"github.com/garyjia/school-finance/internal/application/service"
)

// ApplyPaymentRequest is the body of POST /api/payments
type ApplyPaymentRequest struct {
	InvoiceID   int64           `json:"invoiceId" binding:"required"`
	StudentID   int64           `json:"studentId"`
	PaymentDate string          `json:"paymentDate"`
	AmountPaid  decimal.Decimal `json:"amountPaid"`
	Method      string          `json:"method" binding:"required"`
	ReceiptNo   string          `json:"receiptNo"`
}

// PaymentQuery filters GET /api/payments
type PaymentQuery struct {
	InvoiceID int64 `form:"invoiceId"`
	StudentID int64 `form:"studentId"`
}

// ApplyPayment handles POST /api/payments
func (h *Handlers) ApplyPayment(c *gin.Context) {
	var req ApplyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	paymentDate, ok := parseOptionalDate(c, "paymentDate", req.PaymentDate)
	if !ok {
		return
	}

	receipt, err := h.services.Payments.ApplyPayment(c.Request.Context(), service.ApplyPaymentInput{
		InvoiceID:   req.InvoiceID,
		StudentID:   req.StudentID,
		AmountPaid:  req.AmountPaid,
		Method:      req.Method,
		ReceiptNo:   req.ReceiptNo,
		PaymentDate: paymentDate,
		PostedBy:    postedBy(c),
	})
	if err != nil {
		h.respondError(c, "apply payment", err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: receipt})
}

// ListPayments handles GET /api/payments
func (h *Handlers) ListPayments(c *gin.Context) {
	var q PaymentQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, "invalid query parameters")
		return
	}

	payments, err := h.services.Payments.ListPayments(c.Request.Context(), port.PaymentFilter{
		InvoiceID: q.InvoiceID,
		StudentID: q.StudentID,
	})
	if err != nil {
		h.respondError(c, "list payments", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: payments})
}

// GetPayment handles GET /api/payments/:id
func (h *Handlers) GetPayment(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	payment, err := h.services.Payments.GetPayment(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "get payment", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: payment})
}
