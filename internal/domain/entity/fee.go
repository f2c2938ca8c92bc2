package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// FeeItem is a chargeable fee category such as tuition or a sports levy
type FeeItem struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	DefaultAmount decimal.Decimal `json:"defaultAmount"`
	IsOptional    bool            `json:"isOptional"`
	// RevenueAccountID is credited when the item is invoiced. Nil means the default revenue account.
	RevenueAccountID *int64    `json:"revenueAccountId,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
}

// FeeStructure is the amount owed for a fee item in one class, academic year and term
type FeeStructure struct {
	ID             int64           `json:"id"`
	ClassID        int64           `json:"classId"`
	AcademicYearID int64           `json:"academicYearId"`
	TermID         int64           `json:"termId"`
	FeeItemID      int64           `json:"feeItemId"`
	Amount         decimal.Decimal `json:"amount"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// FeeAmount is one resolved charge, the input shape of an invoice line
type FeeAmount struct {
	FeeItemID int64           `json:"feeItemId"`
	Amount    decimal.Decimal `json:"amount"`
}
