package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/garyjia/school-finance/internal/application/port"
	"github.com/garyjia/school-finance/internal/domain/entity"
	"github.com/garyjia/school-finance/internal/domain/finance"
	"github.com/garyjia/school-finance/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

const accountSelect = `
	SELECT a.id, a.account_code, a.account_name, a.account_type_id, t.name, a.created_at
	FROM accounts a
	JOIN account_types t ON t.id = a.account_type_id
`

// AccountRepository implements port.AccountRepository
type AccountRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAccountRepository creates a new chart of accounts repository
func NewAccountRepository(db *sql.DB, logger *zap.Logger) port.AccountRepository {
	return &AccountRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts an account. A reused code yields finance.ErrDuplicateAccountCode.
func (r *AccountRepository) Create(ctx context.Context, account *entity.Account) error {
	query := `
		INSERT INTO accounts (account_code, account_name, account_type_id)
		VALUES (?, ?, ?)
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		account.Code,
		account.Name,
		account.AccountTypeID,
	)
	if err != nil {
		if sqlite.IsUniqueViolation(err) {
			return finance.ErrDuplicateAccountCode
		}
		r.logger.Error("Failed to create account",
			zap.String("account_code", account.Code),
			zap.Error(err))
		return fmt.Errorf("failed to create account: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	account.ID = id
	return nil
}

// GetByID retrieves an account by ID
func (r *AccountRepository) GetByID(ctx context.Context, id int64) (*entity.Account, error) {
	account, err := scanAccount(r.getExecutor(ctx).QueryRowContext(ctx, accountSelect+" WHERE a.id = ?", id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get account", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return account, nil
}

// GetByCode retrieves an account by its chart code
func (r *AccountRepository) GetByCode(ctx context.Context, code string) (*entity.Account, error) {
	account, err := scanAccount(r.getExecutor(ctx).QueryRowContext(ctx, accountSelect+" WHERE a.account_code = ?", code))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get account by code", zap.String("account_code", code), zap.Error(err))
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return account, nil
}

// List retrieves the chart of accounts ordered by code
func (r *AccountRepository) List(ctx context.Context) ([]*entity.Account, error) {
	rows, err := r.getExecutor(ctx).QueryContext(ctx, accountSelect+" ORDER BY a.account_code")
	if err != nil {
		r.logger.Error("Failed to list accounts", zap.Error(err))
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*entity.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, account)
	}

	return accounts, rows.Err()
}

// ListTypes retrieves all account types
func (r *AccountRepository) ListTypes(ctx context.Context) ([]*entity.AccountType, error) {
	rows, err := r.getExecutor(ctx).QueryContext(ctx, "SELECT id, name, code FROM account_types ORDER BY code")
	if err != nil {
		r.logger.Error("Failed to list account types", zap.Error(err))
		return nil, fmt.Errorf("failed to list account types: %w", err)
	}
	defer rows.Close()

	var types []*entity.AccountType
	for rows.Next() {
		var t entity.AccountType
		if err := rows.Scan(&t.ID, &t.Name, &t.Code); err != nil {
			return nil, fmt.Errorf("failed to scan account type: %w", err)
		}
		types = append(types, &t)
	}

	return types, rows.Err()
}

// GetType retrieves an account type by ID
func (r *AccountRepository) GetType(ctx context.Context, id int64) (*entity.AccountType, error) {
	var t entity.AccountType
	err := r.getExecutor(ctx).QueryRowContext(ctx,
		"SELECT id, name, code FROM account_types WHERE id = ?", id,
	).Scan(&t.ID, &t.Name, &t.Code)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get account type", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get account type: %w", err)
	}
	return &t, nil
}

func scanAccount(row rowScanner) (*entity.Account, error) {
	var account entity.Account
	if err := row.Scan(
		&account.ID,
		&account.Code,
		&account.Name,
		&account.AccountTypeID,
		&account.TypeName,
		&account.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *AccountRepository) getExecutor(ctx context.Context) sqlite.Querier {
	return sqlite.Executor(ctx, r.db)
}

// Verify interface compliance
var _ port.AccountRepository = (*AccountRepository)(nil)
