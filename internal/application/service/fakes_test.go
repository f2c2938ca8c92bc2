package service

import (
	"context"
	"errors"
	"io"
	"sort"
	"time"

	"github.com/garyjia/school-finance/internal/application/port"
	"github.com/garyjia/school-finance/internal/domain/entity"
	"github.com/garyjia/school-finance/internal/domain/finance"
	"github.com/shopspring/decimal"
)

// memState holds every table of the in-memory store by value so a transaction can snapshot it
type memState struct {
	feeItems      []entity.FeeItem
	feeStructures []entity.FeeStructure
	invoices      []entity.Invoice
	invoiceLines  []entity.InvoiceLine
	payments      []entity.Payment
	accounts      []entity.Account
	entries       []entity.JournalEntry
	journalLines  []entity.JournalLine
	ledger        []entity.LedgerEntry
}

func (s memState) clone() memState {
	return memState{
		feeItems:      append([]entity.FeeItem(nil), s.feeItems...),
		feeStructures: append([]entity.FeeStructure(nil), s.feeStructures...),
		invoices:      append([]entity.Invoice(nil), s.invoices...),
		invoiceLines:  append([]entity.InvoiceLine(nil), s.invoiceLines...),
		payments:      append([]entity.Payment(nil), s.payments...),
		accounts:      append([]entity.Account(nil), s.accounts...),
		entries:       append([]entity.JournalEntry(nil), s.entries...),
		journalLines:  append([]entity.JournalLine(nil), s.journalLines...),
		ledger:        append([]entity.LedgerEntry(nil), s.ledger...),
	}
}

// memStore is an in-memory implementation of the repository ports
type memStore struct {
	state        memState
	students     map[int64]entity.Student
	classes      map[int64]entity.Class
	years        map[int64]entity.AcademicYear
	terms        map[int64]entity.Term
	accountTypes []entity.AccountType

	// failLedgerAppend makes the next ledger append fail
	failLedgerAppend error
	commits          int
	rollbacks        int
}

const (
	testCashAccountID        int64 = 1
	testReceivableAccountID  int64 = 2
	testOverpaymentAccountID int64 = 3
	testRevenueAccountID     int64 = 4
)

var testAccounts = SystemAccounts{
	CashCode:           "1000",
	ReceivableCode:     "1100",
	OverpaymentCode:    "2100",
	DefaultRevenueCode: "4000",
}

func newMemStore() *memStore {
	m := &memStore{
		students: map[int64]entity.Student{
			1: {ID: 1, AdmissionNo: "ADM-001", FullName: "Amina Otieno", ClassID: 1, IsActive: true},
			2: {ID: 2, AdmissionNo: "ADM-002", FullName: "Brian Mwangi", ClassID: 1, IsActive: true},
			3: {ID: 3, AdmissionNo: "ADM-003", FullName: "Cate Wanjiru", ClassID: 1, IsActive: false},
		},
		classes: map[int64]entity.Class{1: {ID: 1, Name: "Grade 1"}, 2: {ID: 2, Name: "Grade 2"}},
		years:   map[int64]entity.AcademicYear{1: {ID: 1, Name: "2025"}},
		terms: map[int64]entity.Term{
			1: {ID: 1, AcademicYearID: 1, Name: "Term 1"},
			2: {ID: 2, AcademicYearID: 1, Name: "Term 2"},
		},
		accountTypes: []entity.AccountType{
			{ID: 1, Name: entity.AccountTypeAsset, Code: "1"},
			{ID: 2, Name: entity.AccountTypeLiability, Code: "2"},
			{ID: 3, Name: entity.AccountTypeRevenue, Code: "4"},
			{ID: 4, Name: entity.AccountTypeExpense, Code: "5"},
		},
	}
	m.state.accounts = []entity.Account{
		{ID: testCashAccountID, Code: "1000", Name: "Cash and Bank", AccountTypeID: 1, TypeName: entity.AccountTypeAsset},
		{ID: testReceivableAccountID, Code: "1100", Name: "Accounts Receivable", AccountTypeID: 1, TypeName: entity.AccountTypeAsset},
		{ID: testOverpaymentAccountID, Code: "2100", Name: "Student Credit Balances", AccountTypeID: 2, TypeName: entity.AccountTypeLiability},
		{ID: testRevenueAccountID, Code: "4000", Name: "School Fees Revenue", AccountTypeID: 3, TypeName: entity.AccountTypeRevenue},
	}
	return m
}

// WithTransaction runs fn and restores the snapshot when it fails
func (m *memStore) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	snapshot := m.state.clone()
	if err := fn(ctx); err != nil {
		m.state = snapshot
		m.rollbacks++
		return err
	}
	m.commits++
	return nil
}

// ReferenceRepository

type memReference struct{ *memStore }

func (r memReference) GetStudent(ctx context.Context, id int64) (*entity.Student, error) {
	if s, ok := r.students[id]; ok {
		return &s, nil
	}
	return nil, nil
}

func (r memReference) GetClass(ctx context.Context, id int64) (*entity.Class, error) {
	if c, ok := r.classes[id]; ok {
		return &c, nil
	}
	return nil, nil
}

func (r memReference) GetAcademicYear(ctx context.Context, id int64) (*entity.AcademicYear, error) {
	if y, ok := r.years[id]; ok {
		return &y, nil
	}
	return nil, nil
}

func (r memReference) GetTerm(ctx context.Context, id int64) (*entity.Term, error) {
	if t, ok := r.terms[id]; ok {
		return &t, nil
	}
	return nil, nil
}

func (r memReference) ListStudentsByClass(ctx context.Context, classID int64) ([]*entity.Student, error) {
	var out []*entity.Student
	for _, s := range r.students {
		if s.ClassID == classID && s.IsActive {
			s := s
			out = append(out, &s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// FeeItemRepository

type memFeeItems struct{ *memStore }

func (r memFeeItems) Create(ctx context.Context, item *entity.FeeItem) error {
	for _, existing := range r.state.feeItems {
		if existing.Name == item.Name {
			return finance.ErrConflict
		}
	}
	item.ID = int64(len(r.state.feeItems) + 1)
	r.state.feeItems = append(r.state.feeItems, *item)
	return nil
}

func (r memFeeItems) GetByID(ctx context.Context, id int64) (*entity.FeeItem, error) {
	for _, item := range r.state.feeItems {
		if item.ID == id {
			item := item
			return &item, nil
		}
	}
	return nil, nil
}

func (r memFeeItems) List(ctx context.Context) ([]*entity.FeeItem, error) {
	var out []*entity.FeeItem
	for _, item := range r.state.feeItems {
		item := item
		out = append(out, &item)
	}
	return out, nil
}

// FeeStructureRepository

type memFeeStructures struct{ *memStore }

func (r memFeeStructures) Create(ctx context.Context, fs *entity.FeeStructure) error {
	for _, existing := range r.state.feeStructures {
		if existing.ClassID == fs.ClassID && existing.AcademicYearID == fs.AcademicYearID &&
			existing.TermID == fs.TermID && existing.FeeItemID == fs.FeeItemID {
			return finance.ErrDuplicateFeeStructure
		}
	}
	fs.ID = int64(len(r.state.feeStructures) + 1)
	r.state.feeStructures = append(r.state.feeStructures, *fs)
	return nil
}

func (r memFeeStructures) List(ctx context.Context, filter port.FeeStructureFilter) ([]*entity.FeeStructure, error) {
	var out []*entity.FeeStructure
	for _, fs := range r.state.feeStructures {
		if filter.ClassID > 0 && fs.ClassID != filter.ClassID {
			continue
		}
		if filter.AcademicYearID > 0 && fs.AcademicYearID != filter.AcademicYearID {
			continue
		}
		if filter.TermID > 0 && fs.TermID != filter.TermID {
			continue
		}
		fs := fs
		out = append(out, &fs)
	}
	return out, nil
}

// InvoiceRepository

type memInvoices struct{ *memStore }

func (r memInvoices) Create(ctx context.Context, invoice *entity.Invoice) error {
	for _, existing := range r.state.invoices {
		if existing.StudentID == invoice.StudentID && existing.AcademicYearID == invoice.AcademicYearID &&
			existing.TermID == invoice.TermID {
			return finance.ErrDuplicateInvoice
		}
	}
	invoice.ID = int64(len(r.state.invoices) + 1)
	stored := *invoice
	stored.Lines, stored.Payments = nil, nil
	r.state.invoices = append(r.state.invoices, stored)
	return nil
}

func (r memInvoices) CreateLine(ctx context.Context, line *entity.InvoiceLine) error {
	line.ID = int64(len(r.state.invoiceLines) + 1)
	r.state.invoiceLines = append(r.state.invoiceLines, *line)
	return nil
}

func (r memInvoices) GetByID(ctx context.Context, id int64) (*entity.Invoice, error) {
	for _, inv := range r.state.invoices {
		if inv.ID == id {
			inv := inv
			return &inv, nil
		}
	}
	return nil, nil
}

func (r memInvoices) GetByStudentTerm(ctx context.Context, studentID, academicYearID, termID int64) (*entity.Invoice, error) {
	for _, inv := range r.state.invoices {
		if inv.StudentID == studentID && inv.AcademicYearID == academicYearID && inv.TermID == termID {
			inv := inv
			return &inv, nil
		}
	}
	return nil, nil
}

func (r memInvoices) List(ctx context.Context, filter entity.InvoiceFilter) ([]*entity.Invoice, error) {
	var out []*entity.Invoice
	for _, inv := range r.state.invoices {
		if filter.StudentID > 0 && inv.StudentID != filter.StudentID {
			continue
		}
		if filter.Status != "" && inv.Status != filter.Status {
			continue
		}
		inv := inv
		out = append(out, &inv)
	}
	return out, nil
}

func (r memInvoices) GetLines(ctx context.Context, invoiceID int64) ([]*entity.InvoiceLine, error) {
	var out []*entity.InvoiceLine
	for _, line := range r.state.invoiceLines {
		if line.InvoiceID == invoiceID {
			line := line
			out = append(out, &line)
		}
	}
	return out, nil
}

func (r memInvoices) UpdateTotals(ctx context.Context, id int64, total decimal.Decimal, status string) error {
	for i := range r.state.invoices {
		if r.state.invoices[i].ID == id {
			r.state.invoices[i].TotalAmount = total
			r.state.invoices[i].Status = status
			return nil
		}
	}
	return finance.NotFoundf("invoice %d", id)
}

// PaymentRepository

type memPayments struct{ *memStore }

func (r memPayments) Create(ctx context.Context, payment *entity.Payment) error {
	for _, existing := range r.state.payments {
		if existing.ReceiptNo == payment.ReceiptNo {
			return finance.ErrDuplicateReceipt
		}
	}
	payment.ID = int64(len(r.state.payments) + 1)
	r.state.payments = append(r.state.payments, *payment)
	return nil
}

func (r memPayments) GetByID(ctx context.Context, id int64) (*entity.Payment, error) {
	for _, p := range r.state.payments {
		if p.ID == id {
			p := p
			return &p, nil
		}
	}
	return nil, nil
}

func (r memPayments) List(ctx context.Context, filter port.PaymentFilter) ([]*entity.Payment, error) {
	var out []*entity.Payment
	for _, p := range r.state.payments {
		if filter.InvoiceID > 0 && p.InvoiceID != filter.InvoiceID {
			continue
		}
		if filter.StudentID > 0 && p.StudentID != filter.StudentID {
			continue
		}
		p := p
		out = append(out, &p)
	}
	return out, nil
}

func (r memPayments) SetJournalEntry(ctx context.Context, id, journalEntryID int64) error {
	for i := range r.state.payments {
		if r.state.payments[i].ID == id {
			r.state.payments[i].JournalEntryID = journalEntryID
			return nil
		}
	}
	return finance.NotFoundf("payment %d", id)
}

// AccountRepository

type memAccounts struct{ *memStore }

func (r memAccounts) Create(ctx context.Context, account *entity.Account) error {
	for _, existing := range r.state.accounts {
		if existing.Code == account.Code {
			return finance.ErrDuplicateAccountCode
		}
	}
	account.ID = int64(len(r.state.accounts) + 1)
	r.state.accounts = append(r.state.accounts, *account)
	return nil
}

func (r memAccounts) GetByID(ctx context.Context, id int64) (*entity.Account, error) {
	for _, a := range r.state.accounts {
		if a.ID == id {
			a := a
			return &a, nil
		}
	}
	return nil, nil
}

func (r memAccounts) GetByCode(ctx context.Context, code string) (*entity.Account, error) {
	for _, a := range r.state.accounts {
		if a.Code == code {
			a := a
			return &a, nil
		}
	}
	return nil, nil
}

func (r memAccounts) List(ctx context.Context) ([]*entity.Account, error) {
	var out []*entity.Account
	for _, a := range r.state.accounts {
		a := a
		out = append(out, &a)
	}
	return out, nil
}

func (r memAccounts) ListTypes(ctx context.Context) ([]*entity.AccountType, error) {
	var out []*entity.AccountType
	for _, t := range r.accountTypes {
		t := t
		out = append(out, &t)
	}
	return out, nil
}

func (r memAccounts) GetType(ctx context.Context, id int64) (*entity.AccountType, error) {
	for _, t := range r.accountTypes {
		if t.ID == id {
			t := t
			return &t, nil
		}
	}
	return nil, nil
}

// JournalRepository

type memJournal struct{ *memStore }

func (r memJournal) CreateEntry(ctx context.Context, entry *entity.JournalEntry) error {
	if entry.ReversalOf != nil {
		for _, existing := range r.state.entries {
			if existing.ReversalOf != nil && *existing.ReversalOf == *entry.ReversalOf {
				return finance.ErrAlreadyReversed
			}
		}
	}
	entry.ID = int64(len(r.state.entries) + 1)
	stored := *entry
	stored.Lines = nil
	r.state.entries = append(r.state.entries, stored)
	return nil
}

func (r memJournal) CreateLine(ctx context.Context, line *entity.JournalLine) error {
	line.ID = int64(len(r.state.journalLines) + 1)
	r.state.journalLines = append(r.state.journalLines, *line)
	return nil
}

func (r memJournal) GetByID(ctx context.Context, id int64) (*entity.JournalEntry, error) {
	for _, e := range r.state.entries {
		if e.ID == id {
			e := e
			lines, _ := r.GetLines(ctx, id)
			e.Lines = lines
			return &e, nil
		}
	}
	return nil, nil
}

func (r memJournal) GetReversalOf(ctx context.Context, id int64) (*entity.JournalEntry, error) {
	for _, e := range r.state.entries {
		if e.ReversalOf != nil && *e.ReversalOf == id {
			e := e
			return &e, nil
		}
	}
	return nil, nil
}

func (r memJournal) List(ctx context.Context, limit, offset int) ([]*entity.JournalEntry, error) {
	var out []*entity.JournalEntry
	for i := len(r.state.entries) - 1; i >= 0; i-- {
		e := r.state.entries[i]
		out = append(out, &e)
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r memJournal) GetLines(ctx context.Context, entryID int64) ([]*entity.JournalLine, error) {
	var out []*entity.JournalLine
	for _, l := range r.state.journalLines {
		if l.JournalEntryID == entryID {
			l := l
			out = append(out, &l)
		}
	}
	return out, nil
}

// LedgerRepository

type memLedger struct{ *memStore }

func (r memLedger) Append(ctx context.Context, row *entity.LedgerEntry) error {
	if r.failLedgerAppend != nil {
		err := r.failLedgerAppend
		r.failLedgerAppend = nil
		return err
	}
	row.ID = int64(len(r.state.ledger) + 1)
	r.state.ledger = append(r.state.ledger, *row)
	return nil
}

func (r memLedger) LastBalance(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	for i := len(r.state.ledger) - 1; i >= 0; i-- {
		if r.state.ledger[i].AccountID == accountID {
			return r.state.ledger[i].Balance, nil
		}
	}
	return decimal.Zero, nil
}

func (r memLedger) ListByAccount(ctx context.Context, accountID int64) ([]*entity.LedgerEntry, error) {
	var out []*entity.LedgerEntry
	for _, row := range r.state.ledger {
		if row.AccountID == accountID {
			row := row
			out = append(out, &row)
		}
	}
	return out, nil
}

func (r memLedger) Totals(ctx context.Context) ([]*entity.AccountTotals, error) {
	var out []*entity.AccountTotals
	for _, a := range r.state.accounts {
		t := &entity.AccountTotals{
			AccountID:   a.ID,
			AccountCode: a.Code,
			AccountName: a.Name,
			AccountType: a.TypeName,
			Debit:       decimal.Zero,
			Credit:      decimal.Zero,
		}
		for _, row := range r.state.ledger {
			if row.AccountID == a.ID {
				t.Debit = t.Debit.Add(row.Debit)
				t.Credit = t.Credit.Add(row.Credit)
			}
		}
		t.Balance = t.Debit.Sub(t.Credit)
		out = append(out, t)
	}
	return out, nil
}

// Exporter

type recordingExporter struct {
	ledgerRows int
	totals     int
	invoices   int
	err        error
}

func (e *recordingExporter) WriteAccountLedger(w io.Writer, account *entity.Account, rows []*entity.LedgerEntry) error {
	e.ledgerRows = len(rows)
	return e.err
}

func (e *recordingExporter) WriteTrialBalance(w io.Writer, totals []*entity.AccountTotals) error {
	e.totals = len(totals)
	return e.err
}

func (e *recordingExporter) WriteStatement(w io.Writer, student *entity.Student, invoices []*entity.Invoice) error {
	e.invoices = len(invoices)
	return e.err
}

type mockLogger struct {
	warnings []string
	errors   []string
}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{}) {}
func (m *mockLogger) Warn(msg string, keysAndValues ...interface{}) {
	m.warnings = append(m.warnings, msg)
}
func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {
	m.errors = append(m.errors, msg)
}

// testServices wires every service to one in-memory store
type testServices struct {
	store    *memStore
	logger   *mockLogger
	exporter *recordingExporter
	fees     FeeService
	invoices InvoiceService
	payments PaymentService
	ledger   LedgerService
}

var fixedNow = func() time.Time { return time.Date(2025, 1, 6, 14, 30, 0, 0, time.UTC) }

func newTestServices(allowOverpayment bool) *testServices {
	store := newMemStore()
	logger := &mockLogger{}
	exporter := &recordingExporter{}

	reference := memReference{store}
	feeItems := memFeeItems{store}
	feeStructures := memFeeStructures{store}
	invoices := memInvoices{store}
	payments := memPayments{store}
	accounts := memAccounts{store}
	journal := memJournal{store}
	ledger := memLedger{store}

	fees := NewFeeService(reference, feeItems, feeStructures, accounts, logger)

	invoiceSvc := NewInvoiceService(reference, feeItems, invoices, payments, accounts, journal, ledger,
		fees, exporter, store, testAccounts, 30, logger)
	invoiceSvc.(*invoiceServiceImpl).now = fixedNow

	paymentSvc := NewPaymentService(invoices, payments, accounts, journal, ledger,
		store, testAccounts, allowOverpayment, logger)
	paymentSvc.(*paymentServiceImpl).now = fixedNow

	ledgerSvc := NewLedgerService(reference, accounts, journal, ledger, exporter, store, logger)
	ledgerSvc.(*ledgerServiceImpl).now = fixedNow

	return &testServices{
		store:    store,
		logger:   logger,
		exporter: exporter,
		fees:     fees,
		invoices: invoiceSvc,
		payments: paymentSvc,
		ledger:   ledgerSvc,
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

var errInjected = errors.New("injected failure")

// Verify interface compliance
var (
	_ port.ReferenceRepository    = memReference{}
	_ port.FeeItemRepository      = memFeeItems{}
	_ port.FeeStructureRepository = memFeeStructures{}
	_ port.InvoiceRepository      = memInvoices{}
	_ port.PaymentRepository      = memPayments{}
	_ port.AccountRepository      = memAccounts{}
	_ port.JournalRepository      = memJournal{}
	_ port.LedgerRepository       = memLedger{}
	_ port.TransactionManager     = (*memStore)(nil)
	_ port.LedgerExporter         = (*recordingExporter)(nil)
)
