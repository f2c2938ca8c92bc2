package finance

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is returned when a required field is missing or invalid
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when a referenced row does not exist
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a write collides with existing state
	ErrConflict = errors.New("conflict")
)

var (
	// ErrUnbalancedEntry is returned when journal debits and credits differ
	ErrUnbalancedEntry = fmt.Errorf("%w: journal entry is unbalanced", ErrValidation)

	// ErrEmptyInvoice is returned when an invoice would be issued without lines
	ErrEmptyInvoice = fmt.Errorf("%w: invoice must have at least one line", ErrValidation)

	// ErrEmptyFeeStructure is returned when a billing run finds nothing to charge
	ErrEmptyFeeStructure = fmt.Errorf("%w: no fee structure configured for class, year and term", ErrValidation)

	// ErrDuplicateReceipt is returned when a receipt number is already recorded
	ErrDuplicateReceipt = fmt.Errorf("%w: receipt number already recorded", ErrConflict)

	// ErrDuplicateAccountCode is returned when an account code is already in use
	ErrDuplicateAccountCode = fmt.Errorf("%w: account code already exists", ErrConflict)

	// ErrDuplicateInvoice is returned when a student already has an invoice for the term
	ErrDuplicateInvoice = fmt.Errorf("%w: student already invoiced for this term", ErrConflict)

	// ErrDuplicateFeeStructure is returned when a fee item is already priced for the scope
	ErrDuplicateFeeStructure = fmt.Errorf("%w: fee structure already exists for this scope", ErrConflict)

	// ErrOverpayment is returned when a payment exceeds the invoice's outstanding balance
	ErrOverpayment = fmt.Errorf("%w: payment exceeds outstanding balance", ErrConflict)

	// ErrInvoiceHasPayments is returned when lines are added to an invoice that has been paid into
	ErrInvoiceHasPayments = fmt.Errorf("%w: invoice already has payments", ErrConflict)

	// ErrAlreadyReversed is returned when a journal entry is reversed twice
	ErrAlreadyReversed = fmt.Errorf("%w: journal entry already reversed", ErrConflict)
)

// Invalidf builds an ErrValidation-wrapped error
func Invalidf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NotFoundf builds an ErrNotFound-wrapped error
func NotFoundf(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotFound)
}
