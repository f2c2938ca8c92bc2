package finance

import (
	"github.com/garyjia/school-finance/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// ValidateInvoiceLines checks the lines an invoice is issued with
func ValidateInvoiceLines(lines []entity.FeeAmount) error {
	if len(lines) == 0 {
		return ErrEmptyInvoice
	}
	for i, line := range lines {
		if line.FeeItemID <= 0 {
			return Invalidf("lines[%d].feeItemId is required", i)
		}
		if line.Amount.IsNegative() {
			return Invalidf("lines[%d].amount must not be negative", i)
		}
	}
	return nil
}

// InvoiceTotal sums line amounts. The invoice header total is always this value.
func InvoiceTotal(lines []*entity.InvoiceLine) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.Amount)
	}
	return total
}

// SumPayments sums amounts paid
func SumPayments(payments []*entity.Payment) decimal.Decimal {
	total := decimal.Zero
	for _, p := range payments {
		total = total.Add(p.AmountPaid)
	}
	return total
}

// DeriveInvoiceStatus maps the paid amount against the invoice total
func DeriveInvoiceStatus(total, paid decimal.Decimal) string {
	switch {
	case paid.IsZero():
		return entity.InvoiceStatusUnpaid
	case paid.GreaterThanOrEqual(total):
		return entity.InvoiceStatusPaid
	default:
		return entity.InvoiceStatusPartial
	}
}

// Outstanding is what remains to be paid, never below zero
func Outstanding(total, paid decimal.Decimal) decimal.Decimal {
	remaining := total.Sub(paid)
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

// CreditBalance is the amount paid beyond the total
func CreditBalance(total, paid decimal.Decimal) decimal.Decimal {
	excess := paid.Sub(total)
	if excess.IsNegative() {
		return decimal.Zero
	}
	return excess
}

// CheckPayment validates a new payment against what has already been paid.
// It returns the part of amount that exceeds the outstanding balance.
func CheckPayment(total, alreadyPaid, amount decimal.Decimal, allowOverpayment bool) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, Invalidf("amountPaid must be greater than zero")
	}

	outstanding := Outstanding(total, alreadyPaid)
	if amount.LessThanOrEqual(outstanding) {
		return decimal.Zero, nil
	}

	excess := amount.Sub(outstanding)
	if !allowOverpayment {
		return excess, ErrOverpayment
	}
	return excess, nil
}
