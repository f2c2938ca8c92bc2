package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/garyjia/school-finance/internal/application/port"
	"github.com/garyjia/school-finance/internal/domain/entity"
	"github.com/garyjia/school-finance/internal/domain/finance"
	"github.com/garyjia/school-finance/pkg/utils"
	"github.com/shopspring/decimal"
)

// JournalLineInput is one requested posting line
type JournalLineInput struct {
	AccountID int64
	Debit     decimal.Decimal
	Credit    decimal.Decimal
}

// PostJournalInput carries a manual journal entry
type PostJournalInput struct {
	Date           time.Time
	Description    string
	PostedBy       string
	AcademicYearID *int64
	TermID         *int64
	Lines          []JournalLineInput
}

// CreateAccountInput carries a new chart-of-accounts entry
type CreateAccountInput struct {
	Code          string
	Name          string
	AccountTypeID int64
}

// AccountLedger is an account's ledger rows in posting order with its current balance
type AccountLedger struct {
	Account *entity.Account       `json:"account"`
	Entries []*entity.LedgerEntry `json:"entries"`
	Balance decimal.Decimal       `json:"balance"`
}

// TrialBalance lists debit and credit totals per account
type TrialBalance struct {
	Accounts    []*entity.AccountTotals `json:"accounts"`
	TotalDebit  decimal.Decimal         `json:"totalDebit"`
	TotalCredit decimal.Decimal         `json:"totalCredit"`
	Balanced    bool                    `json:"balanced"`
}

// LedgerService manages the chart of accounts, the journal and ledger reports
type LedgerService interface {
	ListAccountTypes(ctx context.Context) ([]*entity.AccountType, error)
	CreateAccount(ctx context.Context, in CreateAccountInput) (*entity.Account, error)
	GetAccount(ctx context.Context, id int64) (*entity.Account, error)
	ListAccounts(ctx context.Context) ([]*entity.Account, error)
	PostJournalEntry(ctx context.Context, in PostJournalInput) (*entity.JournalEntry, error)
	GetJournalEntry(ctx context.Context, id int64) (*entity.JournalEntry, error)
	ListJournalEntries(ctx context.Context, limit, offset int) ([]*entity.JournalEntry, error)
	ReverseJournalEntry(ctx context.Context, id int64, postedBy string) (*entity.JournalEntry, error)
	GetAccountLedger(ctx context.Context, accountID int64) (*AccountLedger, error)
	GetTrialBalance(ctx context.Context) (*TrialBalance, error)
	ExportAccountLedger(ctx context.Context, accountID int64, w io.Writer) error
	ExportTrialBalance(ctx context.Context, w io.Writer) error
}

type ledgerServiceImpl struct {
	referenceRepo port.ReferenceRepository
	accountRepo   port.AccountRepository
	journalRepo   port.JournalRepository
	ledgerRepo    port.LedgerRepository
	poster        *journalPoster
	exporter      port.LedgerExporter
	txManager     port.TransactionManager
	logger        Logger
	now           func() time.Time
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(
	referenceRepo port.ReferenceRepository,
	accountRepo port.AccountRepository,
	journalRepo port.JournalRepository,
	ledgerRepo port.LedgerRepository,
	exporter port.LedgerExporter,
	txManager port.TransactionManager,
	logger Logger,
) LedgerService {
	return &ledgerServiceImpl{
		referenceRepo: referenceRepo,
		accountRepo:   accountRepo,
		journalRepo:   journalRepo,
		ledgerRepo:    ledgerRepo,
		poster:        newJournalPoster(journalRepo, ledgerRepo, accountRepo),
		exporter:      exporter,
		txManager:     txManager,
		logger:        logger,
		now:           time.Now,
	}
}

// ListAccountTypes lists the account types
func (s *ledgerServiceImpl) ListAccountTypes(ctx context.Context) ([]*entity.AccountType, error) {
	return s.accountRepo.ListTypes(ctx)
}

// CreateAccount adds an account to the chart
func (s *ledgerServiceImpl) CreateAccount(ctx context.Context, in CreateAccountInput) (*entity.Account, error) {
	code := utils.SanitizeString(in.Code)
	name := utils.SanitizeString(in.Name)
	if code == "" {
		return nil, finance.Invalidf("accountCode is required")
	}
	if name == "" {
		return nil, finance.Invalidf("accountName is required")
	}

	accountType, err := s.accountRepo.GetType(ctx, in.AccountTypeID)
	if err != nil {
		return nil, err
	}
	if accountType == nil {
		return nil, finance.NotFoundf("account type %d", in.AccountTypeID)
	}

	account := &entity.Account{
		Code:          code,
		Name:          name,
		AccountTypeID: accountType.ID,
		TypeName:      accountType.Name,
	}
	if err := s.accountRepo.Create(ctx, account); err != nil {
		return nil, err
	}

	s.logger.Info("Account created", "account_id", account.ID, "account_code", account.Code)
	return account, nil
}

// GetAccount retrieves an account by ID
func (s *ledgerServiceImpl) GetAccount(ctx context.Context, id int64) (*entity.Account, error) {
	account, err := s.accountRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, finance.NotFoundf("account %d", id)
	}
	return account, nil
}

// ListAccounts lists the chart of accounts
func (s *ledgerServiceImpl) ListAccounts(ctx context.Context) ([]*entity.Account, error) {
	return s.accountRepo.List(ctx)
}

// PostJournalEntry posts a balanced manual entry and appends its ledger rows atomically
func (s *ledgerServiceImpl) PostJournalEntry(ctx context.Context, in PostJournalInput) (*entity.JournalEntry, error) {
	if in.PostedBy == "" {
		return nil, finance.Invalidf("postedBy is required")
	}

	lines := make([]*entity.JournalLine, 0, len(in.Lines))
	for i, l := range in.Lines {
		if err := utils.ValidateAmount(l.Debit); err != nil {
			return nil, finance.Invalidf("lines[%d].debit: %v", i, err)
		}
		if err := utils.ValidateAmount(l.Credit); err != nil {
			return nil, finance.Invalidf("lines[%d].credit: %v", i, err)
		}
		lines = append(lines, &entity.JournalLine{AccountID: l.AccountID, Debit: l.Debit, Credit: l.Credit})
	}
	if err := finance.ValidateBalanced(lines); err != nil {
		return nil, err
	}

	if in.AcademicYearID != nil {
		year, err := s.referenceRepo.GetAcademicYear(ctx, *in.AcademicYearID)
		if err != nil {
			return nil, err
		}
		if year == nil {
			return nil, finance.NotFoundf("academic year %d", *in.AcademicYearID)
		}
	}
	if in.TermID != nil {
		term, err := s.referenceRepo.GetTerm(ctx, *in.TermID)
		if err != nil {
			return nil, err
		}
		if term == nil {
			return nil, finance.NotFoundf("term %d", *in.TermID)
		}
	}

	entryDate := today(s.now)
	if !in.Date.IsZero() {
		entryDate = in.Date
	}

	entry := &entity.JournalEntry{
		EntryDate:      entryDate,
		Description:    utils.SanitizeString(in.Description),
		PostedBy:       in.PostedBy,
		AcademicYearID: in.AcademicYearID,
		TermID:         in.TermID,
		Source:         entity.JournalSourceManual,
	}

	err := s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		return s.poster.post(ctx, entry, lines)
	})
	if err != nil {
		s.logger.Error("Failed to post journal entry", "posted_by", in.PostedBy, "error", err)
		return nil, err
	}

	debits, _ := finance.EntryTotals(lines)
	s.logger.Info("Journal entry posted",
		"journal_entry_id", entry.ID,
		"reference", entry.Reference,
		"amount", debits.String())
	return entry, nil
}

// GetJournalEntry retrieves a journal entry with its lines
func (s *ledgerServiceImpl) GetJournalEntry(ctx context.Context, id int64) (*entity.JournalEntry, error) {
	entry, err := s.journalRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, finance.NotFoundf("journal entry %d", id)
	}
	return entry, nil
}

// ListJournalEntries lists journal entry headers, newest first
func (s *ledgerServiceImpl) ListJournalEntries(ctx context.Context, limit, offset int) ([]*entity.JournalEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.journalRepo.List(ctx, limit, offset)
}

// ReverseJournalEntry posts a mirror image of a manual entry. An entry can be reversed once.
// Invoice and payment postings belong to their documents and cannot be reversed here.
func (s *ledgerServiceImpl) ReverseJournalEntry(ctx context.Context, id int64, postedBy string) (*entity.JournalEntry, error) {
	if postedBy == "" {
		return nil, finance.Invalidf("postedBy is required")
	}

	var reversal *entity.JournalEntry
	err := s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		original, err := s.journalRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if original == nil {
			return finance.NotFoundf("journal entry %d", id)
		}
		if original.Source != entity.JournalSourceManual {
			return fmt.Errorf("%w: only manual journal entries can be reversed", finance.ErrConflict)
		}

		existing, err := s.journalRepo.GetReversalOf(ctx, id)
		if err != nil {
			return err
		}
		if existing != nil {
			return finance.ErrAlreadyReversed
		}

		reversal = &entity.JournalEntry{
			EntryDate:      today(s.now),
			Description:    fmt.Sprintf("Reversal of %s", original.Reference),
			PostedBy:       postedBy,
			AcademicYearID: original.AcademicYearID,
			TermID:         original.TermID,
			Source:         entity.JournalSourceReversal,
			SourceID:       int64Ref(original.ID),
			ReversalOf:     int64Ref(original.ID),
		}
		return s.poster.post(ctx, reversal, finance.ReverseLines(original.Lines))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Journal entry reversed", "journal_entry_id", id, "reversal_id", reversal.ID)
	return reversal, nil
}

// GetAccountLedger returns an account's ledger rows and current balance
func (s *ledgerServiceImpl) GetAccountLedger(ctx context.Context, accountID int64) (*AccountLedger, error) {
	account, err := s.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	entries, err := s.ledgerRepo.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []*entity.LedgerEntry{}
	}

	balance := decimal.Zero
	if len(entries) > 0 {
		balance = entries[len(entries)-1].Balance
	}

	return &AccountLedger{Account: account, Entries: entries, Balance: balance}, nil
}

// GetTrialBalance totals every account's ledger. Debits and credits must agree.
func (s *ledgerServiceImpl) GetTrialBalance(ctx context.Context) (*TrialBalance, error) {
	totals, err := s.ledgerRepo.Totals(ctx)
	if err != nil {
		return nil, err
	}

	tb := &TrialBalance{
		Accounts:    totals,
		TotalDebit:  decimal.Zero,
		TotalCredit: decimal.Zero,
	}
	for _, t := range totals {
		tb.TotalDebit = tb.TotalDebit.Add(t.Debit)
		tb.TotalCredit = tb.TotalCredit.Add(t.Credit)
	}
	tb.Balanced = tb.TotalDebit.Equal(tb.TotalCredit)

	if !tb.Balanced {
		s.logger.Error("Trial balance does not agree",
			"total_debit", tb.TotalDebit.String(),
			"total_credit", tb.TotalCredit.String())
	}
	return tb, nil
}

// ExportAccountLedger writes an account's ledger as a workbook
func (s *ledgerServiceImpl) ExportAccountLedger(ctx context.Context, accountID int64, w io.Writer) error {
	ledger, err := s.GetAccountLedger(ctx, accountID)
	if err != nil {
		return err
	}
	return s.exporter.WriteAccountLedger(w, ledger.Account, ledger.Entries)
}

// ExportTrialBalance writes the trial balance as a workbook
func (s *ledgerServiceImpl) ExportTrialBalance(ctx context.Context, w io.Writer) error {
	tb, err := s.GetTrialBalance(ctx)
	if err != nil {
		return err
	}
	return s.exporter.WriteTrialBalance(w, tb.Accounts)
}
