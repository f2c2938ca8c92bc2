package repository_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/garyjia/school-finance/internal/application/port"
	"github.com/garyjia/school-finance/internal/domain/entity"
	"github.com/garyjia/school-finance/internal/domain/finance"
	"github.com/garyjia/school-finance/internal/infrastructure/persistence/repository"
	"github.com/garyjia/school-finance/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/school-finance/migrations"
	"github.com/garyjia/school-finance/pkg/database"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testStore struct {
	db        *sql.DB
	tx        port.TransactionManager
	reference port.ReferenceRepository
	feeItems  port.FeeItemRepository
	fees      port.FeeStructureRepository
	invoices  port.InvoiceRepository
	payments  port.PaymentRepository
	accounts  port.AccountRepository
	journal   port.JournalRepository
	ledger    port.LedgerRepository
}

func newTestStore(t *testing.T) *testStore {
	t.Helper()
	logger := zap.NewNop()

	db, err := database.New(database.Config{
		Path:         filepath.Join(t.TempDir(), "finance.db"),
		MaxOpenConns: 1,
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.NewMigrator(db, logger).RunMigrations(migrations.FS))

	// One year, one term, one class with two students
	for _, stmt := range []string{
		`INSERT INTO academic_years (name, start_date, end_date, is_current) VALUES ('2025', '2025-01-01', '2025-12-31', 1)`,
		`INSERT INTO terms (academic_year_id, name, start_date, end_date) VALUES (1, 'Term 1', '2025-01-06', '2025-04-04')`,
		`INSERT INTO classes (name) VALUES ('Grade 1')`,
		`INSERT INTO students (admission_no, full_name, class_id) VALUES ('ADM-001', 'Amina Otieno', 1)`,
		`INSERT INTO students (admission_no, full_name, class_id) VALUES ('ADM-002', 'Brian Mwangi', 1)`,
	} {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}

	return &testStore{
		db:        db.DB,
		tx:        sqlite.NewDB(db.DB, logger),
		reference: repository.NewReferenceRepository(db.DB, logger),
		feeItems:  repository.NewFeeItemRepository(db.DB, logger),
		fees:      repository.NewFeeStructureRepository(db.DB, logger),
		invoices:  repository.NewInvoiceRepository(db.DB, logger),
		payments:  repository.NewPaymentRepository(db.DB, logger),
		accounts:  repository.NewAccountRepository(db.DB, logger),
		journal:   repository.NewJournalRepository(db.DB, logger),
		ledger:    repository.NewLedgerRepository(db.DB, logger),
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

var termStart = time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)

func (s *testStore) createFeeItem(t *testing.T, name string) *entity.FeeItem {
	t.Helper()
	item := &entity.FeeItem{Name: name, DefaultAmount: dec("1000")}
	require.NoError(t, s.feeItems.Create(context.Background(), item))
	return item
}

func (s *testStore) createInvoice(t *testing.T, studentID int64) *entity.Invoice {
	t.Helper()
	inv := &entity.Invoice{
		StudentID:      studentID,
		AcademicYearID: 1,
		TermID:         1,
		IssueDate:      termStart,
		DueDate:        termStart.AddDate(0, 0, 30),
		TotalAmount:    dec("1000"),
		Status:         entity.InvoiceStatusUnpaid,
	}
	require.NoError(t, s.invoices.Create(context.Background(), inv))
	return inv
}

func TestReferenceRepository(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	student, err := s.reference.GetStudent(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, student)
	assert.Equal(t, "ADM-001", student.AdmissionNo)
	assert.Equal(t, int64(1), student.ClassID)
	assert.True(t, student.IsActive)

	missing, err := s.reference.GetStudent(ctx, 99)
	require.NoError(t, err)
	assert.Nil(t, missing)

	students, err := s.reference.ListStudentsByClass(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, students, 2)

	term, err := s.reference.GetTerm(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, term)
	assert.Equal(t, int64(1), term.AcademicYearID)
}

func TestFeeStructureRepository_DuplicateScope(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	tuition := s.createFeeItem(t, "Tuition")

	fs := &entity.FeeStructure{ClassID: 1, AcademicYearID: 1, TermID: 1, FeeItemID: tuition.ID, Amount: dec("1000")}
	require.NoError(t, s.fees.Create(ctx, fs))

	dup := &entity.FeeStructure{ClassID: 1, AcademicYearID: 1, TermID: 1, FeeItemID: tuition.ID, Amount: dec("1200")}
	err := s.fees.Create(ctx, dup)
	assert.ErrorIs(t, err, finance.ErrDuplicateFeeStructure)

	list, err := s.fees.List(ctx, port.FeeStructureFilter{ClassID: 1, AcademicYearID: 1, TermID: 1})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, dec("1000").Equal(list[0].Amount))

	none, err := s.fees.List(ctx, port.FeeStructureFilter{ClassID: 2})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestFeeItemRepository_DuplicateName(t *testing.T) {
	s := newTestStore(t)
	s.createFeeItem(t, "Tuition")

	err := s.feeItems.Create(context.Background(), &entity.FeeItem{Name: "Tuition"})
	assert.ErrorIs(t, err, finance.ErrConflict)
}

func TestInvoiceRepository_LinesAndTotals(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	tuition := s.createFeeItem(t, "Tuition")

	inv := s.createInvoice(t, 1)
	require.NoError(t, s.invoices.CreateLine(ctx, &entity.InvoiceLine{InvoiceID: inv.ID, FeeItemID: tuition.ID, Amount: dec("1000")}))

	got, err := s.invoices.GetByID(ctx, inv.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, dec("1000").Equal(got.TotalAmount))
	assert.Equal(t, entity.InvoiceStatusUnpaid, got.Status)
	assert.True(t, termStart.Equal(got.IssueDate))

	lines, err := s.invoices.GetLines(ctx, inv.ID)
	require.NoError(t, err)
	require.Len(t, lines, 1)

	require.NoError(t, s.invoices.UpdateTotals(ctx, inv.ID, dec("1000"), entity.InvoiceStatusPartial))
	got, err = s.invoices.GetByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.InvoiceStatusPartial, got.Status)

	byTerm, err := s.invoices.GetByStudentTerm(ctx, 1, 1, 1)
	require.NoError(t, err)
	require.NotNil(t, byTerm)
	assert.Equal(t, inv.ID, byTerm.ID)

	listed, err := s.invoices.List(ctx, entity.InvoiceFilter{Status: entity.InvoiceStatusPaid})
	require.NoError(t, err)
	assert.Empty(t, listed)

	err = s.invoices.UpdateTotals(ctx, 999, dec("1"), entity.InvoiceStatusPaid)
	assert.ErrorIs(t, err, finance.ErrNotFound)
}

func TestInvoiceRepository_OnePerStudentTerm(t *testing.T) {
	s := newTestStore(t)
	s.createInvoice(t, 1)

	err := s.invoices.Create(context.Background(), &entity.Invoice{
		StudentID: 1, AcademicYearID: 1, TermID: 1,
		IssueDate: termStart, DueDate: termStart,
		TotalAmount: dec("5"), Status: entity.InvoiceStatusUnpaid,
	})
	assert.ErrorIs(t, err, finance.ErrDuplicateInvoice)
}

func TestPaymentRepository_DuplicateReceipt(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	inv := s.createInvoice(t, 1)

	first := &entity.Payment{
		InvoiceID: inv.ID, StudentID: 1, PaymentDate: termStart,
		AmountPaid: dec("200"), Method: entity.PaymentMethodCash, ReceiptNo: "R-1",
	}
	require.NoError(t, s.payments.Create(ctx, first))

	second := &entity.Payment{
		InvoiceID: inv.ID, StudentID: 1, PaymentDate: termStart,
		AmountPaid: dec("300"), Method: entity.PaymentMethodBank, ReceiptNo: "R-1",
	}
	err := s.payments.Create(ctx, second)
	assert.ErrorIs(t, err, finance.ErrDuplicateReceipt)
	assert.ErrorIs(t, err, finance.ErrConflict)

	payments, err := s.payments.List(ctx, port.PaymentFilter{InvoiceID: inv.ID})
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.True(t, dec("200").Equal(payments[0].AmountPaid))
	assert.Zero(t, payments[0].JournalEntryID)
}

func TestTransaction_RollsBackEveryWrite(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	inv := s.createInvoice(t, 1)
	boom := errors.New("posting failed")

	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		p := &entity.Payment{
			InvoiceID: inv.ID, StudentID: 1, PaymentDate: termStart,
			AmountPaid: dec("200"), Method: entity.PaymentMethodCash, ReceiptNo: "R-9",
		}
		if err := s.payments.Create(ctx, p); err != nil {
			return err
		}
		if err := s.invoices.UpdateTotals(ctx, inv.ID, dec("1000"), entity.InvoiceStatusPartial); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	payments, err := s.payments.List(ctx, port.PaymentFilter{InvoiceID: inv.ID})
	require.NoError(t, err)
	assert.Empty(t, payments)

	got, err := s.invoices.GetByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.InvoiceStatusUnpaid, got.Status)
}

func TestAccountRepository(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	cash, err := s.accounts.GetByCode(ctx, "1000")
	require.NoError(t, err)
	require.NotNil(t, cash)
	assert.Equal(t, entity.AccountTypeAsset, cash.TypeName)

	types, err := s.accounts.ListTypes(ctx)
	require.NoError(t, err)
	assert.Len(t, types, 4)

	expense := &entity.Account{Code: "5100", Name: "Stationery", AccountTypeID: types[3].ID}
	require.NoError(t, s.accounts.Create(ctx, expense))
	assert.NotZero(t, expense.ID)

	err = s.accounts.Create(ctx, &entity.Account{Code: "5100", Name: "Other", AccountTypeID: types[3].ID})
	assert.ErrorIs(t, err, finance.ErrDuplicateAccountCode)

	all, err := s.accounts.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestJournalAndLedger(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	receivable, err := s.accounts.GetByCode(ctx, "1100")
	require.NoError(t, err)
	revenue, err := s.accounts.GetByCode(ctx, "4000")
	require.NoError(t, err)

	post := func(ref string, debit, credit int64, amount string) *entity.JournalEntry {
		entry := &entity.JournalEntry{
			Reference: ref, EntryDate: termStart, PostedBy: "bursar", Source: entity.JournalSourceManual,
		}
		require.NoError(t, s.journal.CreateEntry(ctx, entry))
		for _, line := range []*entity.JournalLine{
			finance.Debit(debit, dec(amount)),
			finance.Credit(credit, dec(amount)),
		} {
			line.JournalEntryID = entry.ID
			require.NoError(t, s.journal.CreateLine(ctx, line))

			last, err := s.ledger.LastBalance(ctx, line.AccountID)
			require.NoError(t, err)
			require.NoError(t, s.ledger.Append(ctx, &entity.LedgerEntry{
				AccountID:      line.AccountID,
				JournalEntryID: entry.ID,
				JournalLineID:  line.ID,
				EntryDate:      entry.EntryDate,
				Debit:          line.Debit,
				Credit:         line.Credit,
				Balance:        finance.NextBalance(last, line.Debit, line.Credit),
			}))
		}
		return entry
	}

	first := post("JE-1", receivable.ID, revenue.ID, "1000")
	post("JE-2", receivable.ID, revenue.ID, "250.50")

	got, err := s.journal.GetByID(ctx, first.ID)
	require.NoError(t, err)
	require.Len(t, got.Lines, 2)
	assert.Nil(t, got.ReversalOf)

	balance, err := s.ledger.LastBalance(ctx, receivable.ID)
	require.NoError(t, err)
	assert.True(t, dec("1250.50").Equal(balance))

	rows, err := s.ledger.ListByAccount(ctx, revenue.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.True(t, dec("-1000").Equal(rows[0].Balance))
	assert.True(t, dec("-1250.50").Equal(rows[1].Balance))

	totals, err := s.ledger.Totals(ctx)
	require.NoError(t, err)
	require.Len(t, totals, 4)
	debits, credits := decimal.Zero, decimal.Zero
	for _, tot := range totals {
		debits = debits.Add(tot.Debit)
		credits = credits.Add(tot.Credit)
	}
	assert.True(t, debits.Equal(credits))
	assert.True(t, dec("1250.50").Equal(debits))

	reversalOf := first.ID
	reversal := &entity.JournalEntry{
		Reference: "JE-3", EntryDate: termStart, PostedBy: "bursar",
		Source: entity.JournalSourceReversal, ReversalOf: &reversalOf,
	}
	require.NoError(t, s.journal.CreateEntry(ctx, reversal))

	again := &entity.JournalEntry{
		Reference: "JE-4", EntryDate: termStart, PostedBy: "bursar",
		Source: entity.JournalSourceReversal, ReversalOf: &reversalOf,
	}
	assert.ErrorIs(t, s.journal.CreateEntry(ctx, again), finance.ErrAlreadyReversed)

	found, err := s.journal.GetReversalOf(ctx, first.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, reversal.ID, found.ID)

	entries, err := s.journal.List(ctx, 10, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestLedger_LastBalanceFollowsInsertionOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	cash, err := s.accounts.GetByCode(ctx, "1000")
	require.NoError(t, err)
	revenue, err := s.accounts.GetByCode(ctx, "4000")
	require.NoError(t, err)

	appendDebit := func(ref string, date time.Time, amount string) {
		entry := &entity.JournalEntry{Reference: ref, EntryDate: date, PostedBy: "bursar", Source: entity.JournalSourceManual}
		require.NoError(t, s.journal.CreateEntry(ctx, entry))
		line := finance.Debit(cash.ID, dec(amount))
		line.JournalEntryID = entry.ID
		require.NoError(t, s.journal.CreateLine(ctx, line))
		offset := finance.Credit(revenue.ID, dec(amount))
		offset.JournalEntryID = entry.ID
		require.NoError(t, s.journal.CreateLine(ctx, offset))

		last, err := s.ledger.LastBalance(ctx, cash.ID)
		require.NoError(t, err)
		require.NoError(t, s.ledger.Append(ctx, &entity.LedgerEntry{
			AccountID:      cash.ID,
			JournalEntryID: entry.ID,
			JournalLineID:  line.ID,
			EntryDate:      date,
			Debit:          line.Debit,
			Credit:         line.Credit,
			Balance:        finance.NextBalance(last, line.Debit, line.Credit),
		}))
	}

	appendDebit("JE-LATE", termStart.AddDate(0, 0, 10), "100")
	// Back-dated posting arrives second
	appendDebit("JE-EARLY", termStart, "40")

	balance, err := s.ledger.LastBalance(ctx, cash.ID)
	require.NoError(t, err)
	assert.True(t, dec("140").Equal(balance))

	rows, err := s.ledger.ListByAccount(ctx, cash.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.True(t, dec("100").Equal(rows[0].Balance))
	assert.True(t, dec("140").Equal(rows[1].Balance))
}
