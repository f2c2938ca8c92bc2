package finance

import (
	"errors"
	"testing"

	"github.com/garyjia/school-finance/internal/domain/entity"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestValidateInvoiceLines(t *testing.T) {
	tests := []struct {
		name    string
		lines   []entity.FeeAmount
		wantErr error
	}{
		{name: "no lines", lines: nil, wantErr: ErrEmptyInvoice},
		{name: "missing fee item", lines: []entity.FeeAmount{{Amount: dec("10")}}, wantErr: ErrValidation},
		{name: "negative amount", lines: []entity.FeeAmount{{FeeItemID: 1, Amount: dec("-1")}}, wantErr: ErrValidation},
		{name: "zero amount allowed", lines: []entity.FeeAmount{{FeeItemID: 1, Amount: decimal.Zero}}},
		{name: "valid", lines: []entity.FeeAmount{{FeeItemID: 1, Amount: dec("1000")}, {FeeItemID: 2, Amount: dec("50.25")}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateInvoiceLines(tt.lines)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestEmptyInvoiceIsValidationError(t *testing.T) {
	assert.True(t, errors.Is(ErrEmptyInvoice, ErrValidation))
	assert.True(t, errors.Is(ErrDuplicateReceipt, ErrConflict))
	assert.True(t, errors.Is(ErrUnbalancedEntry, ErrValidation))
}

func TestInvoiceTotal(t *testing.T) {
	lines := []*entity.InvoiceLine{
		{FeeItemID: 1, Amount: dec("1000")},
		{FeeItemID: 2, Amount: dec("150.50")},
		{FeeItemID: 3, Amount: dec("0")},
	}
	assert.True(t, dec("1150.50").Equal(InvoiceTotal(lines)))
	assert.True(t, InvoiceTotal(nil).IsZero())
}

func TestDeriveInvoiceStatus(t *testing.T) {
	tests := []struct {
		name  string
		total string
		paid  string
		want  string
	}{
		{name: "nothing paid", total: "1000", paid: "0", want: entity.InvoiceStatusUnpaid},
		{name: "part paid", total: "1000", paid: "200", want: entity.InvoiceStatusPartial},
		{name: "exactly paid", total: "1000", paid: "1000", want: entity.InvoiceStatusPaid},
		{name: "over paid", total: "1000", paid: "1200", want: entity.InvoiceStatusPaid},
		{name: "zero invoice unpaid", total: "0", paid: "0", want: entity.InvoiceStatusUnpaid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveInvoiceStatus(dec(tt.total), dec(tt.paid)))
		})
	}
}

func TestOutstandingAndCredit(t *testing.T) {
	assert.True(t, dec("800").Equal(Outstanding(dec("1000"), dec("200"))))
	assert.True(t, Outstanding(dec("1000"), dec("1000")).IsZero())
	assert.True(t, Outstanding(dec("1000"), dec("1100")).IsZero())
	assert.True(t, dec("100").Equal(CreditBalance(dec("1000"), dec("1100"))))
	assert.True(t, CreditBalance(dec("1000"), dec("200")).IsZero())
}

func TestCheckPayment(t *testing.T) {
	t.Run("rejects zero amount", func(t *testing.T) {
		_, err := CheckPayment(dec("1000"), decimal.Zero, decimal.Zero, false)
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("rejects negative amount", func(t *testing.T) {
		_, err := CheckPayment(dec("1000"), decimal.Zero, dec("-5"), true)
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("accepts payment within balance", func(t *testing.T) {
		excess, err := CheckPayment(dec("1000"), dec("200"), dec("800"), false)
		require.NoError(t, err)
		assert.True(t, excess.IsZero())
	})

	t.Run("rejects overpayment by default", func(t *testing.T) {
		excess, err := CheckPayment(dec("1000"), dec("200"), dec("900"), false)
		assert.ErrorIs(t, err, ErrOverpayment)
		assert.ErrorIs(t, err, ErrConflict)
		assert.True(t, dec("100").Equal(excess))
	})

	t.Run("reports excess when overpayment allowed", func(t *testing.T) {
		excess, err := CheckPayment(dec("1000"), dec("1000"), dec("50"), true)
		require.NoError(t, err)
		assert.True(t, dec("50").Equal(excess))
	})
}
