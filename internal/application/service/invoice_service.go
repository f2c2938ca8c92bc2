package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/garyjia/school-finance/internal/application/port"
	"github.com/garyjia/school-finance/internal/domain/entity"
	"github.com/garyjia/school-finance/internal/domain/finance"
	"github.com/garyjia/school-finance/pkg/utils"
	"github.com/shopspring/decimal"
)

// IssueInvoiceInput carries a new invoice. Zero dates take defaults:
// IssueDate is today and DueDate is IssueDate plus the configured due days.
type IssueInvoiceInput struct {
	StudentID      int64
	AcademicYearID int64
	TermID         int64
	IssueDate      time.Time
	DueDate        time.Time
	Lines          []entity.FeeAmount
	PostedBy       string
}

// BillingRunInput invoices every active student of a class for one term
type BillingRunInput struct {
	ClassID        int64
	AcademicYearID int64
	TermID         int64
	IssueDate      time.Time
	DueDate        time.Time
	PostedBy       string
}

// BillingFailure records a student the billing run could not invoice
type BillingFailure struct {
	StudentID int64  `json:"studentId"`
	Error     string `json:"error"`
}

// BillingRunResult summarises a billing run
type BillingRunResult struct {
	ClassID           int64            `json:"classId"`
	AcademicYearID    int64            `json:"academicYearId"`
	TermID            int64            `json:"termId"`
	Issued            int              `json:"issued"`
	Skipped           int              `json:"skipped"`
	InvoiceIDs        []int64          `json:"invoiceIds"`
	SkippedStudentIDs []int64          `json:"skippedStudentIds"`
	Failures          []BillingFailure `json:"failures,omitempty"`
}

// InvoiceDetail is an invoice with its lines, payments and derived balances
type InvoiceDetail struct {
	*entity.Invoice
	AmountPaid    decimal.Decimal `json:"amountPaid"`
	Outstanding   decimal.Decimal `json:"outstanding"`
	CreditBalance decimal.Decimal `json:"creditBalance"`
}

// Statement lists a student's invoices with running totals
type Statement struct {
	Student       *entity.Student  `json:"student"`
	Invoices      []*InvoiceDetail `json:"invoices"`
	TotalBilled   decimal.Decimal  `json:"totalBilled"`
	TotalPaid     decimal.Decimal  `json:"totalPaid"`
	Outstanding   decimal.Decimal  `json:"outstanding"`
	CreditBalance decimal.Decimal  `json:"creditBalance"`
}

// InvoiceService issues invoices and reports on them
type InvoiceService interface {
	IssueInvoice(ctx context.Context, in IssueInvoiceInput) (*entity.Invoice, error)
	AddInvoiceLine(ctx context.Context, invoiceID int64, line entity.FeeAmount, postedBy string) (*entity.Invoice, error)
	GetInvoice(ctx context.Context, id int64) (*InvoiceDetail, error)
	ListInvoices(ctx context.Context, filter entity.InvoiceFilter) ([]*InvoiceDetail, error)
	RunBilling(ctx context.Context, in BillingRunInput) (*BillingRunResult, error)
	GetStatement(ctx context.Context, studentID int64) (*Statement, error)
	ExportStatement(ctx context.Context, studentID int64, w io.Writer) error
}

type invoiceServiceImpl struct {
	referenceRepo port.ReferenceRepository
	feeItemRepo   port.FeeItemRepository
	invoiceRepo   port.InvoiceRepository
	paymentRepo   port.PaymentRepository
	fees          FeeService
	poster        *journalPoster
	exporter      port.LedgerExporter
	txManager     port.TransactionManager
	accounts      SystemAccounts
	dueDays       int
	logger        Logger
	now           func() time.Time
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(
	referenceRepo port.ReferenceRepository,
	feeItemRepo port.FeeItemRepository,
	invoiceRepo port.InvoiceRepository,
	paymentRepo port.PaymentRepository,
	accountRepo port.AccountRepository,
	journalRepo port.JournalRepository,
	ledgerRepo port.LedgerRepository,
	fees FeeService,
	exporter port.LedgerExporter,
	txManager port.TransactionManager,
	accounts SystemAccounts,
	dueDays int,
	logger Logger,
) InvoiceService {
	return &invoiceServiceImpl{
		referenceRepo: referenceRepo,
		feeItemRepo:   feeItemRepo,
		invoiceRepo:   invoiceRepo,
		paymentRepo:   paymentRepo,
		fees:          fees,
		poster:        newJournalPoster(journalRepo, ledgerRepo, accountRepo),
		exporter:      exporter,
		txManager:     txManager,
		accounts:      accounts,
		dueDays:       dueDays,
		logger:        logger,
		now:           time.Now,
	}
}

// IssueInvoice creates an invoice with its lines and posts the receivable, all in one transaction.
// The total is the sum of the lines and the status starts UNPAID.
func (s *invoiceServiceImpl) IssueInvoice(ctx context.Context, in IssueInvoiceInput) (*entity.Invoice, error) {
	if err := finance.ValidateInvoiceLines(in.Lines); err != nil {
		return nil, err
	}
	for i, line := range in.Lines {
		if err := utils.ValidateAmount(line.Amount); err != nil {
			return nil, finance.Invalidf("lines[%d].amount: %v", i, err)
		}
	}

	issueDate := today(s.now)
	if !in.IssueDate.IsZero() {
		issueDate = utils.NormalizeDate(in.IssueDate)
	}
	dueDate := issueDate.AddDate(0, 0, s.dueDays)
	if !in.DueDate.IsZero() {
		dueDate = utils.NormalizeDate(in.DueDate)
	}
	if dueDate.Before(issueDate) {
		return nil, finance.Invalidf("dueDate must not be before issueDate")
	}

	student, err := s.referenceRepo.GetStudent(ctx, in.StudentID)
	if err != nil {
		return nil, err
	}
	if student == nil {
		return nil, finance.NotFoundf("student %d", in.StudentID)
	}
	if !student.IsActive {
		return nil, finance.Invalidf("student %d is not active", in.StudentID)
	}
	if err := checkTerm(ctx, s.referenceRepo, in.AcademicYearID, in.TermID); err != nil {
		return nil, err
	}

	items := make(map[int64]*entity.FeeItem, len(in.Lines))
	for _, line := range in.Lines {
		if _, ok := items[line.FeeItemID]; ok {
			continue
		}
		item, err := s.feeItemRepo.GetByID(ctx, line.FeeItemID)
		if err != nil {
			return nil, err
		}
		if item == nil {
			return nil, finance.NotFoundf("fee item %d", line.FeeItemID)
		}
		items[line.FeeItemID] = item
	}

	invoice := &entity.Invoice{
		StudentID:      in.StudentID,
		AcademicYearID: in.AcademicYearID,
		TermID:         in.TermID,
		IssueDate:      issueDate,
		DueDate:        dueDate,
		Status:         entity.InvoiceStatusUnpaid,
	}

	err = s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.invoiceRepo.GetByStudentTerm(ctx, in.StudentID, in.AcademicYearID, in.TermID)
		if err != nil {
			return err
		}
		if existing != nil {
			return finance.ErrDuplicateInvoice
		}

		lines := make([]*entity.InvoiceLine, 0, len(in.Lines))
		for _, l := range in.Lines {
			lines = append(lines, &entity.InvoiceLine{FeeItemID: l.FeeItemID, Amount: l.Amount})
		}
		invoice.TotalAmount = finance.InvoiceTotal(lines)

		if err := s.invoiceRepo.Create(ctx, invoice); err != nil {
			return err
		}
		for _, line := range lines {
			line.InvoiceID = invoice.ID
			if err := s.invoiceRepo.CreateLine(ctx, line); err != nil {
				return err
			}
		}
		invoice.Lines = lines

		return s.postCharges(ctx, invoice, lines, items, in.PostedBy,
			fmt.Sprintf("Invoice %d issued to %s", invoice.ID, student.AdmissionNo))
	})
	if err != nil {
		s.logger.Error("Failed to issue invoice",
			"student_id", in.StudentID,
			"term_id", in.TermID,
			"error", err)
		return nil, err
	}

	s.logger.Info("Invoice issued",
		"invoice_id", invoice.ID,
		"student_id", invoice.StudentID,
		"total", invoice.TotalAmount.String())
	return invoice, nil
}

// AddInvoiceLine appends a charge to an invoice that has not been paid into yet
func (s *invoiceServiceImpl) AddInvoiceLine(ctx context.Context, invoiceID int64, in entity.FeeAmount, postedBy string) (*entity.Invoice, error) {
	if err := finance.ValidateInvoiceLines([]entity.FeeAmount{in}); err != nil {
		return nil, err
	}
	if err := utils.ValidateAmount(in.Amount); err != nil {
		return nil, finance.Invalidf("amount: %v", err)
	}

	item, err := s.feeItemRepo.GetByID(ctx, in.FeeItemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, finance.NotFoundf("fee item %d", in.FeeItemID)
	}

	var invoice *entity.Invoice
	err = s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		invoice, err = s.invoiceRepo.GetByID(ctx, invoiceID)
		if err != nil {
			return err
		}
		if invoice == nil {
			return finance.NotFoundf("invoice %d", invoiceID)
		}

		payments, err := s.paymentRepo.List(ctx, port.PaymentFilter{InvoiceID: invoiceID})
		if err != nil {
			return err
		}
		if len(payments) > 0 {
			return finance.ErrInvoiceHasPayments
		}

		line := &entity.InvoiceLine{InvoiceID: invoiceID, FeeItemID: in.FeeItemID, Amount: in.Amount}
		if err := s.invoiceRepo.CreateLine(ctx, line); err != nil {
			return err
		}

		lines, err := s.invoiceRepo.GetLines(ctx, invoiceID)
		if err != nil {
			return err
		}
		invoice.Lines = lines
		invoice.TotalAmount = finance.InvoiceTotal(lines)
		invoice.Status = finance.DeriveInvoiceStatus(invoice.TotalAmount, decimal.Zero)

		if err := s.invoiceRepo.UpdateTotals(ctx, invoiceID, invoice.TotalAmount, invoice.Status); err != nil {
			return err
		}

		return s.postCharges(ctx, invoice, []*entity.InvoiceLine{line},
			map[int64]*entity.FeeItem{item.ID: item}, postedBy,
			fmt.Sprintf("Line added to invoice %d", invoiceID))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Invoice line added",
		"invoice_id", invoiceID,
		"fee_item_id", in.FeeItemID,
		"total", invoice.TotalAmount.String())
	return invoice, nil
}

// postCharges debits receivables and credits each fee item's revenue account.
// Zero-value charges post nothing.
func (s *invoiceServiceImpl) postCharges(
	ctx context.Context,
	invoice *entity.Invoice,
	lines []*entity.InvoiceLine,
	items map[int64]*entity.FeeItem,
	postedBy string,
	description string,
) error {
	receivable, err := s.poster.accountByCode(ctx, s.accounts.ReceivableCode)
	if err != nil {
		return err
	}

	var defaultRevenueID int64
	total := decimal.Zero
	credits := make(map[int64]decimal.Decimal)
	var order []int64

	for _, line := range lines {
		if line.Amount.IsZero() {
			continue
		}

		revenueID := int64(0)
		if item := items[line.FeeItemID]; item != nil && item.RevenueAccountID != nil {
			revenueID = *item.RevenueAccountID
		} else {
			if defaultRevenueID == 0 {
				revenue, err := s.poster.accountByCode(ctx, s.accounts.DefaultRevenueCode)
				if err != nil {
					return err
				}
				defaultRevenueID = revenue.ID
			}
			revenueID = defaultRevenueID
		}

		if _, ok := credits[revenueID]; !ok {
			order = append(order, revenueID)
		}
		credits[revenueID] = credits[revenueID].Add(line.Amount)
		total = total.Add(line.Amount)
	}

	if total.IsZero() {
		return nil
	}

	journal := []*entity.JournalLine{finance.Debit(receivable.ID, total)}
	for _, accountID := range order {
		journal = append(journal, finance.Credit(accountID, credits[accountID]))
	}

	entry := &entity.JournalEntry{
		EntryDate:      invoice.IssueDate,
		Description:    description,
		PostedBy:       postedByOrSystem(postedBy),
		AcademicYearID: int64Ref(invoice.AcademicYearID),
		TermID:         int64Ref(invoice.TermID),
		Source:         entity.JournalSourceInvoice,
		SourceID:       int64Ref(invoice.ID),
	}
	return s.poster.post(ctx, entry, journal)
}

// GetInvoice retrieves an invoice with its lines, payments and balances
func (s *invoiceServiceImpl) GetInvoice(ctx context.Context, id int64) (*InvoiceDetail, error) {
	invoice, err := s.invoiceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, finance.NotFoundf("invoice %d", id)
	}
	return s.loadDetail(ctx, invoice)
}

func (s *invoiceServiceImpl) loadDetail(ctx context.Context, invoice *entity.Invoice) (*InvoiceDetail, error) {
	lines, err := s.invoiceRepo.GetLines(ctx, invoice.ID)
	if err != nil {
		return nil, err
	}
	payments, err := s.paymentRepo.List(ctx, port.PaymentFilter{InvoiceID: invoice.ID})
	if err != nil {
		return nil, err
	}

	invoice.Lines = lines
	invoice.Payments = payments
	paid := finance.SumPayments(payments)

	return &InvoiceDetail{
		Invoice:       invoice,
		AmountPaid:    paid,
		Outstanding:   finance.Outstanding(invoice.TotalAmount, paid),
		CreditBalance: finance.CreditBalance(invoice.TotalAmount, paid),
	}, nil
}

// ListInvoices lists invoices matching the filter with their lines, payments and balances
func (s *invoiceServiceImpl) ListInvoices(ctx context.Context, filter entity.InvoiceFilter) ([]*InvoiceDetail, error) {
	invoices, err := s.invoiceRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	details := make([]*InvoiceDetail, 0, len(invoices))
	for _, invoice := range invoices {
		detail, err := s.loadDetail(ctx, invoice)
		if err != nil {
			return nil, err
		}
		details = append(details, detail)
	}
	return details, nil
}

// RunBilling issues the resolved fee structure to every active student in a class.
// Students already invoiced for the term are skipped; each invoice commits on its own.
func (s *invoiceServiceImpl) RunBilling(ctx context.Context, in BillingRunInput) (*BillingRunResult, error) {
	lines, err := s.fees.ResolveFeeStructure(ctx, in.ClassID, in.AcademicYearID, in.TermID)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, finance.ErrEmptyFeeStructure
	}

	students, err := s.referenceRepo.ListStudentsByClass(ctx, in.ClassID)
	if err != nil {
		return nil, err
	}

	result := &BillingRunResult{
		ClassID:           in.ClassID,
		AcademicYearID:    in.AcademicYearID,
		TermID:            in.TermID,
		InvoiceIDs:        []int64{},
		SkippedStudentIDs: []int64{},
	}

	for _, student := range students {
		if !student.IsActive {
			continue
		}

		invoice, err := s.IssueInvoice(ctx, IssueInvoiceInput{
			StudentID:      student.ID,
			AcademicYearID: in.AcademicYearID,
			TermID:         in.TermID,
			IssueDate:      in.IssueDate,
			DueDate:        in.DueDate,
			Lines:          lines,
			PostedBy:       in.PostedBy,
		})
		switch {
		case err == nil:
			result.Issued++
			result.InvoiceIDs = append(result.InvoiceIDs, invoice.ID)
		case errors.Is(err, finance.ErrDuplicateInvoice):
			result.Skipped++
			result.SkippedStudentIDs = append(result.SkippedStudentIDs, student.ID)
		case ctx.Err() != nil:
			return nil, ctx.Err()
		default:
			result.Failures = append(result.Failures, BillingFailure{StudentID: student.ID, Error: err.Error()})
		}
	}

	s.logger.Info("Billing run completed",
		"class_id", in.ClassID,
		"term_id", in.TermID,
		"issued", result.Issued,
		"skipped", result.Skipped,
		"failed", len(result.Failures))
	return result, nil
}

// GetStatement lists every invoice of a student with paid and outstanding amounts
func (s *invoiceServiceImpl) GetStatement(ctx context.Context, studentID int64) (*Statement, error) {
	student, err := s.referenceRepo.GetStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if student == nil {
		return nil, finance.NotFoundf("student %d", studentID)
	}

	invoices, err := s.invoiceRepo.List(ctx, entity.InvoiceFilter{StudentID: studentID})
	if err != nil {
		return nil, err
	}

	statement := &Statement{
		Student:       student,
		Invoices:      make([]*InvoiceDetail, 0, len(invoices)),
		TotalBilled:   decimal.Zero,
		TotalPaid:     decimal.Zero,
		Outstanding:   decimal.Zero,
		CreditBalance: decimal.Zero,
	}
	for _, invoice := range invoices {
		detail, err := s.loadDetail(ctx, invoice)
		if err != nil {
			return nil, err
		}
		statement.Invoices = append(statement.Invoices, detail)
		statement.TotalBilled = statement.TotalBilled.Add(invoice.TotalAmount)
		statement.TotalPaid = statement.TotalPaid.Add(detail.AmountPaid)
		statement.Outstanding = statement.Outstanding.Add(detail.Outstanding)
		statement.CreditBalance = statement.CreditBalance.Add(detail.CreditBalance)
	}

	return statement, nil
}

// ExportStatement writes a student's statement as a workbook
func (s *invoiceServiceImpl) ExportStatement(ctx context.Context, studentID int64, w io.Writer) error {
	statement, err := s.GetStatement(ctx, studentID)
	if err != nil {
		return err
	}

	invoices := make([]*entity.Invoice, 0, len(statement.Invoices))
	for _, detail := range statement.Invoices {
		invoices = append(invoices, detail.Invoice)
	}
	return s.exporter.WriteStatement(w, statement.Student, invoices)
}

func postedByOrSystem(postedBy string) string {
	if postedBy == "" {
		return "system"
	}
	return postedBy
}
