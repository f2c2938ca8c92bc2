package entity

// Status constants for Invoice
const (
	InvoiceStatusUnpaid  = "UNPAID"
	InvoiceStatusPartial = "PARTIAL"
	InvoiceStatusPaid    = "PAID"
)

// Account type names
const (
	AccountTypeAsset     = "ASSET"
	AccountTypeLiability = "LIABILITY"
	AccountTypeRevenue   = "REVENUE"
	AccountTypeExpense   = "EXPENSE"
)

// Payment method constants
const (
	PaymentMethodCash        = "CASH"
	PaymentMethodBank        = "BANK"
	PaymentMethodMobileMoney = "MOBILE_MONEY"
	PaymentMethodCheque      = "CHEQUE"
)

// Journal source constants record which event produced an entry
const (
	JournalSourceManual   = "MANUAL"
	JournalSourceInvoice  = "INVOICE"
	JournalSourcePayment  = "PAYMENT"
	JournalSourceReversal = "REVERSAL"
)

// ValidPaymentMethods lists the accepted payment methods
var ValidPaymentMethods = map[string]bool{
	PaymentMethodCash:        true,
	PaymentMethodBank:        true,
	PaymentMethodMobileMoney: true,
	PaymentMethodCheque:      true,
}
