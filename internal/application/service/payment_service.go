package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/school-finance/internal/application/port"
	"github.com/garyjia/school-finance/internal/domain/entity"
	"github.com/garyjia/school-finance/internal/domain/finance"
	"github.com/garyjia/school-finance/pkg/utils"
	"github.com/shopspring/decimal"
)

// ApplyPaymentInput carries a payment against an invoice.
// StudentID is optional; when set it must match the invoice. An empty ReceiptNo is generated.
type ApplyPaymentInput struct {
	InvoiceID   int64
	StudentID   int64
	AmountPaid  decimal.Decimal
	Method      string
	ReceiptNo   string
	PaymentDate time.Time
	PostedBy    string
}

// PaymentReceipt is a recorded payment with the invoice state it produced
type PaymentReceipt struct {
	*entity.Payment
	InvoiceStatus string          `json:"invoiceStatus"`
	Outstanding   decimal.Decimal `json:"outstanding"`
	CreditBalance decimal.Decimal `json:"creditBalance"`
}

// PaymentService records payments against invoices
type PaymentService interface {
	ApplyPayment(ctx context.Context, in ApplyPaymentInput) (*PaymentReceipt, error)
	GetPayment(ctx context.Context, id int64) (*entity.Payment, error)
	ListPayments(ctx context.Context, filter port.PaymentFilter) ([]*entity.Payment, error)
}

type paymentServiceImpl struct {
	invoiceRepo      port.InvoiceRepository
	paymentRepo      port.PaymentRepository
	poster           *journalPoster
	txManager        port.TransactionManager
	accounts         SystemAccounts
	allowOverpayment bool
	logger           Logger
	now              func() time.Time
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(
	invoiceRepo port.InvoiceRepository,
	paymentRepo port.PaymentRepository,
	accountRepo port.AccountRepository,
	journalRepo port.JournalRepository,
	ledgerRepo port.LedgerRepository,
	txManager port.TransactionManager,
	accounts SystemAccounts,
	allowOverpayment bool,
	logger Logger,
) PaymentService {
	return &paymentServiceImpl{
		invoiceRepo:      invoiceRepo,
		paymentRepo:      paymentRepo,
		poster:           newJournalPoster(journalRepo, ledgerRepo, accountRepo),
		txManager:        txManager,
		accounts:         accounts,
		allowOverpayment: allowOverpayment,
		logger:           logger,
		now:              time.Now,
	}
}

// ApplyPayment records a payment, recomputes the invoice status and posts the receipt.
// The insert, the status change and the journal entry commit together or not at all.
func (s *paymentServiceImpl) ApplyPayment(ctx context.Context, in ApplyPaymentInput) (*PaymentReceipt, error) {
	if in.InvoiceID <= 0 {
		return nil, finance.Invalidf("invoiceId is required")
	}
	if err := utils.ValidatePositiveAmount(in.AmountPaid); err != nil {
		return nil, finance.Invalidf("amountPaid: %v", err)
	}

	method := strings.ToUpper(strings.TrimSpace(in.Method))
	if !entity.ValidPaymentMethods[method] {
		return nil, finance.Invalidf("unsupported payment method %q", in.Method)
	}

	receiptNo := strings.TrimSpace(in.ReceiptNo)
	if receiptNo == "" {
		receiptNo = newReceiptNo()
	} else if err := utils.ValidateReceiptNo(receiptNo); err != nil {
		return nil, finance.Invalidf("%v", err)
	}

	paymentDate := today(s.now)
	if !in.PaymentDate.IsZero() {
		paymentDate = utils.NormalizeDate(in.PaymentDate)
	}

	receipt := &PaymentReceipt{}
	err := s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		invoice, err := s.invoiceRepo.GetByID(ctx, in.InvoiceID)
		if err != nil {
			return err
		}
		if invoice == nil {
			return finance.NotFoundf("invoice %d", in.InvoiceID)
		}
		if in.StudentID != 0 && in.StudentID != invoice.StudentID {
			return finance.Invalidf("student %d is not billed on invoice %d", in.StudentID, in.InvoiceID)
		}

		existing, err := s.paymentRepo.List(ctx, port.PaymentFilter{InvoiceID: invoice.ID})
		if err != nil {
			return err
		}
		alreadyPaid := finance.SumPayments(existing)

		excess, err := finance.CheckPayment(invoice.TotalAmount, alreadyPaid, in.AmountPaid, s.allowOverpayment)
		if err != nil {
			return err
		}

		payment := &entity.Payment{
			InvoiceID:   invoice.ID,
			StudentID:   invoice.StudentID,
			PaymentDate: paymentDate,
			AmountPaid:  in.AmountPaid,
			Method:      method,
			ReceiptNo:   receiptNo,
		}
		if err := s.paymentRepo.Create(ctx, payment); err != nil {
			return err
		}

		paid := alreadyPaid.Add(in.AmountPaid)
		status := finance.DeriveInvoiceStatus(invoice.TotalAmount, paid)
		if err := s.invoiceRepo.UpdateTotals(ctx, invoice.ID, invoice.TotalAmount, status); err != nil {
			return err
		}

		entryID, err := s.postReceipt(ctx, invoice, payment, excess, in.PostedBy)
		if err != nil {
			return err
		}
		if err := s.paymentRepo.SetJournalEntry(ctx, payment.ID, entryID); err != nil {
			return err
		}
		payment.JournalEntryID = entryID

		receipt.Payment = payment
		receipt.InvoiceStatus = status
		receipt.Outstanding = finance.Outstanding(invoice.TotalAmount, paid)
		receipt.CreditBalance = finance.CreditBalance(invoice.TotalAmount, paid)
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to apply payment",
			"invoice_id", in.InvoiceID,
			"receipt_no", receiptNo,
			"error", err)
		return nil, err
	}

	s.logger.Info("Payment applied",
		"payment_id", receipt.ID,
		"invoice_id", receipt.InvoiceID,
		"receipt_no", receipt.ReceiptNo,
		"amount", receipt.AmountPaid.String(),
		"status", receipt.InvoiceStatus)
	return receipt, nil
}

// postReceipt debits cash and credits receivables, with any excess credited to the overpayment account
func (s *paymentServiceImpl) postReceipt(
	ctx context.Context,
	invoice *entity.Invoice,
	payment *entity.Payment,
	excess decimal.Decimal,
	postedBy string,
) (int64, error) {
	cash, err := s.poster.accountByCode(ctx, s.accounts.CashCode)
	if err != nil {
		return 0, err
	}

	lines := []*entity.JournalLine{finance.Debit(cash.ID, payment.AmountPaid)}

	settled := payment.AmountPaid.Sub(excess)
	if settled.IsPositive() {
		receivable, err := s.poster.accountByCode(ctx, s.accounts.ReceivableCode)
		if err != nil {
			return 0, err
		}
		lines = append(lines, finance.Credit(receivable.ID, settled))
	}
	if excess.IsPositive() {
		credit, err := s.poster.accountByCode(ctx, s.accounts.OverpaymentCode)
		if err != nil {
			return 0, err
		}
		lines = append(lines, finance.Credit(credit.ID, excess))
	}

	entry := &entity.JournalEntry{
		EntryDate:      payment.PaymentDate,
		Description:    fmt.Sprintf("Payment %s on invoice %d (%s)", payment.ReceiptNo, invoice.ID, payment.Method),
		PostedBy:       postedByOrSystem(postedBy),
		AcademicYearID: int64Ref(invoice.AcademicYearID),
		TermID:         int64Ref(invoice.TermID),
		Source:         entity.JournalSourcePayment,
		SourceID:       int64Ref(payment.ID),
	}
	if err := s.poster.post(ctx, entry, lines); err != nil {
		return 0, err
	}
	return entry.ID, nil
}

// GetPayment retrieves a payment by ID
func (s *paymentServiceImpl) GetPayment(ctx context.Context, id int64) (*entity.Payment, error) {
	payment, err := s.paymentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, finance.NotFoundf("payment %d", id)
	}
	return payment, nil
}

// ListPayments lists payments matching the filter
func (s *paymentServiceImpl) ListPayments(ctx context.Context, filter port.PaymentFilter) ([]*entity.Payment, error) {
	return s.paymentRepo.List(ctx, filter)
}
