package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/garyjia/school-finance/internal/application/port"
	"github.com/garyjia/school-finance/internal/domain/entity"
	"github.com/garyjia/school-finance/internal/domain/finance"
	"github.com/garyjia/school-finance/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// FeeItemRepository implements port.FeeItemRepository
type FeeItemRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewFeeItemRepository creates a new fee item repository
func NewFeeItemRepository(db *sql.DB, logger *zap.Logger) port.FeeItemRepository {
	return &FeeItemRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new fee item
func (r *FeeItemRepository) Create(ctx context.Context, item *entity.FeeItem) error {
	query := `
		INSERT INTO fee_items (name, default_amount, is_optional, revenue_account_id)
		VALUES (?, ?, ?, ?)
	`

	var revenueAccountID interface{}
	if item.RevenueAccountID != nil {
		revenueAccountID = *item.RevenueAccountID
	}

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		item.Name,
		item.DefaultAmount,
		item.IsOptional,
		revenueAccountID,
	)
	if err != nil {
		if sqlite.IsUniqueViolation(err) {
			return fmt.Errorf("fee item %q: %w", item.Name, finance.ErrConflict)
		}
		r.logger.Error("Failed to create fee item", zap.String("name", item.Name), zap.Error(err))
		return fmt.Errorf("failed to create fee item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	item.ID = id
	return nil
}

// GetByID retrieves a fee item by ID
func (r *FeeItemRepository) GetByID(ctx context.Context, id int64) (*entity.FeeItem, error) {
	query := `
		SELECT id, name, default_amount, is_optional, revenue_account_id, created_at
		FROM fee_items
		WHERE id = ?
	`

	item, err := scanFeeItem(r.getExecutor(ctx).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get fee item", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get fee item: %w", err)
	}

	return item, nil
}

// List retrieves all fee items ordered by name
func (r *FeeItemRepository) List(ctx context.Context) ([]*entity.FeeItem, error) {
	query := `
		SELECT id, name, default_amount, is_optional, revenue_account_id, created_at
		FROM fee_items
		ORDER BY name
	`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list fee items", zap.Error(err))
		return nil, fmt.Errorf("failed to list fee items: %w", err)
	}
	defer rows.Close()

	var items []*entity.FeeItem
	for rows.Next() {
		item, err := scanFeeItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan fee item: %w", err)
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

func scanFeeItem(row rowScanner) (*entity.FeeItem, error) {
	var item entity.FeeItem
	var revenueAccountID sql.NullInt64

	if err := row.Scan(
		&item.ID,
		&item.Name,
		&item.DefaultAmount,
		&item.IsOptional,
		&revenueAccountID,
		&item.CreatedAt,
	); err != nil {
		return nil, err
	}

	if revenueAccountID.Valid {
		id := revenueAccountID.Int64
		item.RevenueAccountID = &id
	}
	return &item, nil
}

func (r *FeeItemRepository) getExecutor(ctx context.Context) sqlite.Querier {
	return sqlite.Executor(ctx, r.db)
}

// FeeStructureRepository implements port.FeeStructureRepository
type FeeStructureRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewFeeStructureRepository creates a new fee structure repository
func NewFeeStructureRepository(db *sql.DB, logger *zap.Logger) port.FeeStructureRepository {
	return &FeeStructureRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a fee structure row. A second row for the same scope and fee item is a conflict.
func (r *FeeStructureRepository) Create(ctx context.Context, fs *entity.FeeStructure) error {
	query := `
		INSERT INTO fee_structures (class_id, academic_year_id, term_id, fee_item_id, amount)
		VALUES (?, ?, ?, ?, ?)
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		fs.ClassID,
		fs.AcademicYearID,
		fs.TermID,
		fs.FeeItemID,
		fs.Amount,
	)
	if err != nil {
		if sqlite.IsUniqueViolation(err) {
			return finance.ErrDuplicateFeeStructure
		}
		r.logger.Error("Failed to create fee structure",
			zap.Int64("class_id", fs.ClassID),
			zap.Int64("term_id", fs.TermID),
			zap.Int64("fee_item_id", fs.FeeItemID),
			zap.Error(err))
		return fmt.Errorf("failed to create fee structure: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	fs.ID = id
	return nil
}

// List retrieves fee structures matching the filter
func (r *FeeStructureRepository) List(ctx context.Context, filter port.FeeStructureFilter) ([]*entity.FeeStructure, error) {
	var conditions []string
	var args []interface{}

	if filter.ClassID > 0 {
		conditions = append(conditions, "class_id = ?")
		args = append(args, filter.ClassID)
	}
	if filter.AcademicYearID > 0 {
		conditions = append(conditions, "academic_year_id = ?")
		args = append(args, filter.AcademicYearID)
	}
	if filter.TermID > 0 {
		conditions = append(conditions, "term_id = ?")
		args = append(args, filter.TermID)
	}

	query := `
		SELECT id, class_id, academic_year_id, term_id, fee_item_id, amount, created_at
		FROM fee_structures
	`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY id"

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list fee structures", zap.Error(err))
		return nil, fmt.Errorf("failed to list fee structures: %w", err)
	}
	defer rows.Close()

	var structures []*entity.FeeStructure
	for rows.Next() {
		var fs entity.FeeStructure
		if err := rows.Scan(
			&fs.ID,
			&fs.ClassID,
			&fs.AcademicYearID,
			&fs.TermID,
			&fs.FeeItemID,
			&fs.Amount,
			&fs.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan fee structure: %w", err)
		}
		structures = append(structures, &fs)
	}

	return structures, rows.Err()
}

func (r *FeeStructureRepository) getExecutor(ctx context.Context) sqlite.Querier {
	return sqlite.Executor(ctx, r.db)
}

// Verify interface compliance
var (
	_ port.FeeItemRepository      = (*FeeItemRepository)(nil)
	_ port.FeeStructureRepository = (*FeeStructureRepository)(nil)
)
