package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Invoice is a bill issued to one student for one term.
// TotalAmount and Status are derived; they change only through invoicing and payment operations.
type Invoice struct {
	ID             int64           `json:"id"`
	StudentID      int64           `json:"studentId"`
	AcademicYearID int64           `json:"academicYearId"`
	TermID         int64           `json:"termId"`
	IssueDate      time.Time       `json:"issueDate"`
	DueDate        time.Time       `json:"dueDate"`
	TotalAmount    decimal.Decimal `json:"totalAmount"`
	Status         string          `json:"status"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`

	Lines    []*InvoiceLine `json:"lines,omitempty"`
	Payments []*Payment     `json:"payments,omitempty"`
}

// InvoiceLine is one fee item charge on an invoice
type InvoiceLine struct {
	ID        int64           `json:"id"`
	InvoiceID int64           `json:"invoiceId"`
	FeeItemID int64           `json:"feeItemId"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Payment is a receipt applied against an invoice
type Payment struct {
	ID             int64           `json:"id"`
	InvoiceID      int64           `json:"invoiceId"`
	StudentID      int64           `json:"studentId"`
	PaymentDate    time.Time       `json:"paymentDate"`
	AmountPaid     decimal.Decimal `json:"amountPaid"`
	Method         string          `json:"method"`
	ReceiptNo      string          `json:"receiptNo"`
	JournalEntryID int64           `json:"journalEntryId,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// InvoiceFilter narrows invoice listings
type InvoiceFilter struct {
	StudentID      int64
	AcademicYearID int64
	TermID         int64
	Status         string
}
