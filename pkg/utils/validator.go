package utils

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	receiptNoRegex   = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9\-/_.]{0,63}$`)
	controlCharRegex = regexp.MustCompile(`[\x00-\x1f\x7f]`)
)

// MaxAmountScale is the number of decimal places kept for money
const MaxAmountScale = 2

// ValidateReceiptNo validates a receipt number as printed on paper receipts
func ValidateReceiptNo(receiptNo string) error {
	if !receiptNoRegex.MatchString(receiptNo) {
		return fmt.Errorf("invalid receipt number: %q", receiptNo)
	}
	return nil
}

// ValidateAmount checks that a money amount is not negative and has at most two decimal places
func ValidateAmount(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("amount must not be negative: %s", amount.String())
	}
	if !amount.Equal(amount.Round(MaxAmountScale)) {
		return fmt.Errorf("amount has more than %d decimal places: %s", MaxAmountScale, amount.String())
	}
	return nil
}

// ValidatePositiveAmount checks that a money amount is greater than zero
func ValidatePositiveAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("amount must be greater than zero: %s", amount.String())
	}
	return ValidateAmount(amount)
}

// NormalizeDate truncates t to midnight UTC of its calendar day
func NormalizeDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses YYYY-MM-DD or RFC 3339 input into a normalized date
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return NormalizeDate(t), nil
}

// SanitizeString removes control characters and surrounding whitespace
func SanitizeString(s string) string {
	return strings.TrimSpace(controlCharRegex.ReplaceAllString(s, ""))
}
