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
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const invoiceColumns = `
	id, student_id, academic_year_id, term_id, issue_date, due_date,
	total_amount, status, created_at, updated_at
`

// InvoiceRepository implements port.InvoiceRepository
type InvoiceRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewInvoiceRepository creates a new invoice repository
func NewInvoiceRepository(db *sql.DB, logger *zap.Logger) port.InvoiceRepository {
	return &InvoiceRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts an invoice header. Lines are added with CreateLine in the same transaction.
func (r *InvoiceRepository) Create(ctx context.Context, invoice *entity.Invoice) error {
	query := `
		INSERT INTO invoices (
			student_id, academic_year_id, term_id, issue_date, due_date,
			total_amount, status
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		invoice.StudentID,
		invoice.AcademicYearID,
		invoice.TermID,
		invoice.IssueDate,
		invoice.DueDate,
		invoice.TotalAmount,
		invoice.Status,
	)
	if err != nil {
		if sqlite.IsUniqueViolation(err) {
			return finance.ErrDuplicateInvoice
		}
		r.logger.Error("Failed to create invoice",
			zap.Int64("student_id", invoice.StudentID),
			zap.Int64("term_id", invoice.TermID),
			zap.Error(err))
		return fmt.Errorf("failed to create invoice: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	invoice.ID = id
	return nil
}

// CreateLine inserts one invoice line
func (r *InvoiceRepository) CreateLine(ctx context.Context, line *entity.InvoiceLine) error {
	query := `
		INSERT INTO invoice_lines (invoice_id, fee_item_id, amount)
		VALUES (?, ?, ?)
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		line.InvoiceID,
		line.FeeItemID,
		line.Amount,
	)
	if err != nil {
		r.logger.Error("Failed to create invoice line",
			zap.Int64("invoice_id", line.InvoiceID),
			zap.Int64("fee_item_id", line.FeeItemID),
			zap.Error(err))
		return fmt.Errorf("failed to create invoice line: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	line.ID = id
	return nil
}

// GetByID retrieves an invoice header by ID
func (r *InvoiceRepository) GetByID(ctx context.Context, id int64) (*entity.Invoice, error) {
	query := "SELECT " + invoiceColumns + " FROM invoices WHERE id = ?"

	invoice, err := scanInvoice(r.getExecutor(ctx).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get invoice", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}

	return invoice, nil
}

// GetByStudentTerm retrieves the invoice issued to a student for an academic year and term
func (r *InvoiceRepository) GetByStudentTerm(ctx context.Context, studentID, academicYearID, termID int64) (*entity.Invoice, error) {
	query := "SELECT " + invoiceColumns + `
		FROM invoices
		WHERE student_id = ? AND academic_year_id = ? AND term_id = ?
	`

	invoice, err := scanInvoice(r.getExecutor(ctx).QueryRowContext(ctx, query, studentID, academicYearID, termID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get invoice by student and term",
			zap.Int64("student_id", studentID),
			zap.Int64("term_id", termID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}

	return invoice, nil
}

// List retrieves invoice headers matching the filter, newest first
func (r *InvoiceRepository) List(ctx context.Context, filter entity.InvoiceFilter) ([]*entity.Invoice, error) {
	var conditions []string
	var args []interface{}

	if filter.StudentID > 0 {
		conditions = append(conditions, "student_id = ?")
		args = append(args, filter.StudentID)
	}
	if filter.AcademicYearID > 0 {
		conditions = append(conditions, "academic_year_id = ?")
		args = append(args, filter.AcademicYearID)
	}
	if filter.TermID > 0 {
		conditions = append(conditions, "term_id = ?")
		args = append(args, filter.TermID)
	}
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, filter.Status)
	}

	query := "SELECT " + invoiceColumns + " FROM invoices"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY id DESC"

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list invoices", zap.Error(err))
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	defer rows.Close()

	var invoices []*entity.Invoice
	for rows.Next() {
		invoice, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		invoices = append(invoices, invoice)
	}

	return invoices, rows.Err()
}

// GetLines retrieves the lines of an invoice in insertion order
func (r *InvoiceRepository) GetLines(ctx context.Context, invoiceID int64) ([]*entity.InvoiceLine, error) {
	query := `
		SELECT id, invoice_id, fee_item_id, amount, created_at
		FROM invoice_lines
		WHERE invoice_id = ?
		ORDER BY id
	`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, invoiceID)
	if err != nil {
		r.logger.Error("Failed to get invoice lines", zap.Int64("invoice_id", invoiceID), zap.Error(err))
		return nil, fmt.Errorf("failed to get invoice lines: %w", err)
	}
	defer rows.Close()

	var lines []*entity.InvoiceLine
	for rows.Next() {
		var line entity.InvoiceLine
		if err := rows.Scan(
			&line.ID,
			&line.InvoiceID,
			&line.FeeItemID,
			&line.Amount,
			&line.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan invoice line: %w", err)
		}
		lines = append(lines, &line)
	}

	return lines, rows.Err()
}

// UpdateTotals stores the derived total and status of an invoice
func (r *InvoiceRepository) UpdateTotals(ctx context.Context, id int64, total decimal.Decimal, status string) error {
	query := `
		UPDATE invoices
		SET total_amount = ?, status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query, total, status, id)
	if err != nil {
		r.logger.Error("Failed to update invoice totals", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to update invoice totals: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return finance.NotFoundf("invoice %d", id)
	}

	return nil
}

func scanInvoice(row rowScanner) (*entity.Invoice, error) {
	var invoice entity.Invoice
	if err := row.Scan(
		&invoice.ID,
		&invoice.StudentID,
		&invoice.AcademicYearID,
		&invoice.TermID,
		&invoice.IssueDate,
		&invoice.DueDate,
		&invoice.TotalAmount,
		&invoice.Status,
		&invoice.CreatedAt,
		&invoice.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *InvoiceRepository) getExecutor(ctx context.Context) sqlite.Querier {
	return sqlite.Executor(ctx, r.db)
}

// Verify interface compliance
var _ port.InvoiceRepository = (*InvoiceRepository)(nil)
