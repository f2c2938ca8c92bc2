package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/garyjia/school-finance/internal/application/port"
	"github.com/garyjia/school-finance/internal/domain/entity"
	"github.com/garyjia/school-finance/internal/infrastructure/persistence/sqlite"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// LedgerRepository implements port.LedgerRepository.
// Rows are only ever inserted; triggers in the schema reject updates and deletes.
type LedgerRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewLedgerRepository creates a new ledger repository
func NewLedgerRepository(db *sql.DB, logger *zap.Logger) port.LedgerRepository {
	return &LedgerRepository{
		db:     db,
		logger: logger,
	}
}

// Append inserts a ledger row. The caller computes Balance from LastBalance in the same transaction.
func (r *LedgerRepository) Append(ctx context.Context, row *entity.LedgerEntry) error {
	query := `
		INSERT INTO ledger_entries (
			account_id, journal_entry_id, journal_line_id, entry_date, debit, credit, balance
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		row.AccountID,
		row.JournalEntryID,
		row.JournalLineID,
		row.EntryDate,
		row.Debit,
		row.Credit,
		row.Balance,
	)
	if err != nil {
		r.logger.Error("Failed to append ledger row",
			zap.Int64("account_id", row.AccountID),
			zap.Int64("journal_line_id", row.JournalLineID),
			zap.Error(err))
		return fmt.Errorf("failed to append ledger row: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	row.ID = id
	return nil
}

// LastBalance returns the balance of the most recently appended row for an account, zero if none.
// Rows are ordered by insertion, not entry date, so a back-dated posting never rewrites later balances.
func (r *LedgerRepository) LastBalance(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	query := `
		SELECT balance
		FROM ledger_entries
		WHERE account_id = ?
		ORDER BY id DESC
		LIMIT 1
	`

	var balance decimal.Decimal
	err := r.getExecutor(ctx).QueryRowContext(ctx, query, accountID).Scan(&balance)
	if err == sql.ErrNoRows {
		return decimal.Zero, nil
	}
	if err != nil {
		r.logger.Error("Failed to get last balance", zap.Int64("account_id", accountID), zap.Error(err))
		return decimal.Zero, fmt.Errorf("failed to get last balance: %w", err)
	}

	return balance, nil
}

// ListByAccount retrieves an account's ledger rows in posting order
func (r *LedgerRepository) ListByAccount(ctx context.Context, accountID int64) ([]*entity.LedgerEntry, error) {
	query := `
		SELECT id, account_id, journal_entry_id, journal_line_id, entry_date,
		       debit, credit, balance, created_at
		FROM ledger_entries
		WHERE account_id = ?
		ORDER BY id
	`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, accountID)
	if err != nil {
		r.logger.Error("Failed to list ledger rows", zap.Int64("account_id", accountID), zap.Error(err))
		return nil, fmt.Errorf("failed to list ledger rows: %w", err)
	}
	defer rows.Close()

	var entries []*entity.LedgerEntry
	for rows.Next() {
		var e entity.LedgerEntry
		if err := rows.Scan(
			&e.ID,
			&e.AccountID,
			&e.JournalEntryID,
			&e.JournalLineID,
			&e.EntryDate,
			&e.Debit,
			&e.Credit,
			&e.Balance,
			&e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan ledger row: %w", err)
		}
		entries = append(entries, &e)
	}

	return entries, rows.Err()
}

// Totals aggregates debits and credits per account, including accounts with no postings.
// Amounts are text columns, so the sums are taken in decimal rather than in SQL.
func (r *LedgerRepository) Totals(ctx context.Context) ([]*entity.AccountTotals, error) {
	query := `
		SELECT a.id, a.account_code, a.account_name, t.name, l.debit, l.credit
		FROM accounts a
		JOIN account_types t ON t.id = a.account_type_id
		LEFT JOIN ledger_entries l ON l.account_id = a.id
		ORDER BY a.account_code, l.id
	`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to aggregate ledger totals", zap.Error(err))
		return nil, fmt.Errorf("failed to aggregate ledger totals: %w", err)
	}
	defer rows.Close()

	var totals []*entity.AccountTotals
	byAccount := make(map[int64]*entity.AccountTotals)

	for rows.Next() {
		var (
			accountID     int64
			code, name    string
			typeName      string
			debit, credit sql.NullString
		)
		if err := rows.Scan(&accountID, &code, &name, &typeName, &debit, &credit); err != nil {
			return nil, fmt.Errorf("failed to scan ledger totals: %w", err)
		}

		t, ok := byAccount[accountID]
		if !ok {
			t = &entity.AccountTotals{
				AccountID:   accountID,
				AccountCode: code,
				AccountName: name,
				AccountType: typeName,
				Debit:       decimal.Zero,
				Credit:      decimal.Zero,
			}
			byAccount[accountID] = t
			totals = append(totals, t)
		}

		if debit.Valid {
			d, err := decimal.NewFromString(debit.String)
			if err != nil {
				return nil, fmt.Errorf("invalid debit amount for account %s: %w", code, err)
			}
			t.Debit = t.Debit.Add(d)
		}
		if credit.Valid {
			c, err := decimal.NewFromString(credit.String)
			if err != nil {
				return nil, fmt.Errorf("invalid credit amount for account %s: %w", code, err)
			}
			t.Credit = t.Credit.Add(c)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, t := range totals {
		t.Balance = t.Debit.Sub(t.Credit)
	}
	return totals, nil
}

func (r *LedgerRepository) getExecutor(ctx context.Context) sqlite.Querier {
	return sqlite.Executor(ctx, r.db)
}

// Verify interface compliance
var _ port.LedgerRepository = (*LedgerRepository)(nil)
