package port

import (
	"context"

	"github.com/garyjia/school-finance/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// ReferenceRepository reads school reference data owned outside the finance core
type ReferenceRepository interface {
	GetStudent(ctx context.Context, id int64) (*entity.Student, error)
	GetClass(ctx context.Context, id int64) (*entity.Class, error)
	GetAcademicYear(ctx context.Context, id int64) (*entity.AcademicYear, error)
	GetTerm(ctx context.Context, id int64) (*entity.Term, error)
	ListStudentsByClass(ctx context.Context, classID int64) ([]*entity.Student, error)
}

// FeeItemRepository defines persistence operations for FeeItem
type FeeItemRepository interface {
	Create(ctx context.Context, item *entity.FeeItem) error
	GetByID(ctx context.Context, id int64) (*entity.FeeItem, error)
	List(ctx context.Context) ([]*entity.FeeItem, error)
}

// FeeStructureFilter narrows fee structure listings; zero fields match everything
type FeeStructureFilter struct {
	ClassID        int64
	AcademicYearID int64
	TermID         int64
}

// FeeStructureRepository defines persistence operations for FeeStructure
type FeeStructureRepository interface {
	Create(ctx context.Context, fs *entity.FeeStructure) error
	List(ctx context.Context, filter FeeStructureFilter) ([]*entity.FeeStructure, error)
}

// InvoiceRepository defines persistence operations for Invoice and InvoiceLine
type InvoiceRepository interface {
	Create(ctx context.Context, invoice *entity.Invoice) error
	CreateLine(ctx context.Context, line *entity.InvoiceLine) error
	GetByID(ctx context.Context, id int64) (*entity.Invoice, error)
	GetByStudentTerm(ctx context.Context, studentID, academicYearID, termID int64) (*entity.Invoice, error)
	List(ctx context.Context, filter entity.InvoiceFilter) ([]*entity.Invoice, error)
	GetLines(ctx context.Context, invoiceID int64) ([]*entity.InvoiceLine, error)
	UpdateTotals(ctx context.Context, id int64, total decimal.Decimal, status string) error
}

// PaymentFilter narrows payment listings
type PaymentFilter struct {
	InvoiceID int64
	StudentID int64
}

// PaymentRepository defines persistence operations for Payment
type PaymentRepository interface {
	Create(ctx context.Context, payment *entity.Payment) error
	GetByID(ctx context.Context, id int64) (*entity.Payment, error)
	List(ctx context.Context, filter PaymentFilter) ([]*entity.Payment, error)
	SetJournalEntry(ctx context.Context, id, journalEntryID int64) error
}

// AccountRepository defines persistence operations for the chart of accounts
type AccountRepository interface {
	Create(ctx context.Context, account *entity.Account) error
	GetByID(ctx context.Context, id int64) (*entity.Account, error)
	GetByCode(ctx context.Context, code string) (*entity.Account, error)
	List(ctx context.Context) ([]*entity.Account, error)
	ListTypes(ctx context.Context) ([]*entity.AccountType, error)
	GetType(ctx context.Context, id int64) (*entity.AccountType, error)
}

// JournalRepository defines persistence operations for JournalEntry and JournalLine
type JournalRepository interface {
	CreateEntry(ctx context.Context, entry *entity.JournalEntry) error
	CreateLine(ctx context.Context, line *entity.JournalLine) error
	GetByID(ctx context.Context, id int64) (*entity.JournalEntry, error)
	GetReversalOf(ctx context.Context, id int64) (*entity.JournalEntry, error)
	List(ctx context.Context, limit, offset int) ([]*entity.JournalEntry, error)
	GetLines(ctx context.Context, entryID int64) ([]*entity.JournalLine, error)
}

// LedgerRepository defines persistence operations for the append-only account ledger
type LedgerRepository interface {
	Append(ctx context.Context, row *entity.LedgerEntry) error
	LastBalance(ctx context.Context, accountID int64) (decimal.Decimal, error)
	ListByAccount(ctx context.Context, accountID int64) ([]*entity.LedgerEntry, error)
	Totals(ctx context.Context) ([]*entity.AccountTotals, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
