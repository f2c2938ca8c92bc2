package finance

import (
	"github.com/garyjia/school-finance/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// ValidateBalanced ensures journal lines form a balanced double-entry posting
func ValidateBalanced(lines []*entity.JournalLine) error {
	if len(lines) < 2 {
		return Invalidf("journal entry needs at least two lines")
	}

	debits := decimal.Zero
	credits := decimal.Zero
	for i, line := range lines {
		if line.AccountID <= 0 {
			return Invalidf("lines[%d].accountId is required", i)
		}
		if line.Debit.IsNegative() || line.Credit.IsNegative() {
			return Invalidf("lines[%d] has a negative amount", i)
		}
		if line.Debit.IsZero() == line.Credit.IsZero() {
			return Invalidf("lines[%d] must carry exactly one of debit or credit", i)
		}
		debits = debits.Add(line.Debit)
		credits = credits.Add(line.Credit)
	}

	if !debits.Equal(credits) {
		return ErrUnbalancedEntry
	}
	return nil
}

// EntryTotals returns the debit and credit sums of an entry
func EntryTotals(lines []*entity.JournalLine) (decimal.Decimal, decimal.Decimal) {
	debits := decimal.Zero
	credits := decimal.Zero
	for _, line := range lines {
		debits = debits.Add(line.Debit)
		credits = credits.Add(line.Credit)
	}
	return debits, credits
}

// NextBalance applies one posting to an account's running balance
func NextBalance(last, debit, credit decimal.Decimal) decimal.Decimal {
	return last.Add(debit).Sub(credit)
}

// ReverseLines swaps debit and credit on every line
func ReverseLines(lines []*entity.JournalLine) []*entity.JournalLine {
	reversed := make([]*entity.JournalLine, 0, len(lines))
	for _, line := range lines {
		reversed = append(reversed, &entity.JournalLine{
			AccountID: line.AccountID,
			Debit:     line.Credit,
			Credit:    line.Debit,
		})
	}
	return reversed
}

// Debit builds a debit line
func Debit(accountID int64, amount decimal.Decimal) *entity.JournalLine {
	return &entity.JournalLine{AccountID: accountID, Debit: amount, Credit: decimal.Zero}
}

// Credit builds a credit line
func Credit(accountID int64, amount decimal.Decimal) *entity.JournalLine {
	return &entity.JournalLine{AccountID: accountID, Debit: decimal.Zero, Credit: amount}
}
