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
	"github.com/google/uuid"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// SystemAccounts names the chart codes used by automatic invoice and payment postings
type SystemAccounts struct {
	ReceivableCode     string
	CashCode           string
	DefaultRevenueCode string
	OverpaymentCode    string
}

// journalPoster writes balanced journal entries and their ledger rows.
// Callers run it inside a transaction.
type journalPoster struct {
	journalRepo port.JournalRepository
	ledgerRepo  port.LedgerRepository
	accountRepo port.AccountRepository
}

func newJournalPoster(
	journalRepo port.JournalRepository,
	ledgerRepo port.LedgerRepository,
	accountRepo port.AccountRepository,
) *journalPoster {
	return &journalPoster{
		journalRepo: journalRepo,
		ledgerRepo:  ledgerRepo,
		accountRepo: accountRepo,
	}
}

// post validates lines, stores entry and lines, then appends one ledger row per line
func (p *journalPoster) post(ctx context.Context, entry *entity.JournalEntry, lines []*entity.JournalLine) error {
	if err := finance.ValidateBalanced(lines); err != nil {
		return err
	}

	for _, line := range lines {
		account, err := p.accountRepo.GetByID(ctx, line.AccountID)
		if err != nil {
			return fmt.Errorf("failed to load account: %w", err)
		}
		if account == nil {
			return finance.NotFoundf("account %d", line.AccountID)
		}
	}

	if entry.Reference == "" {
		entry.Reference = newJournalReference()
	}
	entry.EntryDate = utils.NormalizeDate(entry.EntryDate)

	if err := p.journalRepo.CreateEntry(ctx, entry); err != nil {
		return err
	}

	for _, line := range lines {
		line.JournalEntryID = entry.ID
		if err := p.journalRepo.CreateLine(ctx, line); err != nil {
			return err
		}

		last, err := p.ledgerRepo.LastBalance(ctx, line.AccountID)
		if err != nil {
			return err
		}

		row := &entity.LedgerEntry{
			AccountID:      line.AccountID,
			JournalEntryID: entry.ID,
			JournalLineID:  line.ID,
			EntryDate:      entry.EntryDate,
			Debit:          line.Debit,
			Credit:         line.Credit,
			Balance:        finance.NextBalance(last, line.Debit, line.Credit),
		}
		if err := p.ledgerRepo.Append(ctx, row); err != nil {
			return err
		}
	}

	entry.Lines = lines
	return nil
}

// accountByCode resolves a system account, failing when the chart is missing it
func (p *journalPoster) accountByCode(ctx context.Context, code string) (*entity.Account, error) {
	account, err := p.accountRepo.GetByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to load account %s: %w", code, err)
	}
	if account == nil {
		return nil, finance.NotFoundf("account code %s", code)
	}
	return account, nil
}

func newJournalReference() string {
	return "JE-" + strings.ToUpper(uuid.NewString())
}

func newReceiptNo() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "RCT-" + strings.ToUpper(id[:12])
}

// today returns the current date at midnight UTC
func today(now func() time.Time) time.Time {
	return utils.NormalizeDate(now())
}

func int64Ref(v int64) *int64 {
	return &v
}
