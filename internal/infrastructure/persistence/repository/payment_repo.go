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

const paymentColumns = `
	id, invoice_id, student_id, payment_date, amount_paid, method,
	receipt_no, journal_entry_id, created_at
`

// PaymentRepository implements port.PaymentRepository
type PaymentRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPaymentRepository creates a new payment repository
func NewPaymentRepository(db *sql.DB, logger *zap.Logger) port.PaymentRepository {
	return &PaymentRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a payment. A reused receipt number yields finance.ErrDuplicateReceipt.
func (r *PaymentRepository) Create(ctx context.Context, payment *entity.Payment) error {
	query := `
		INSERT INTO payments (
			invoice_id, student_id, payment_date, amount_paid, method, receipt_no
		) VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		payment.InvoiceID,
		payment.StudentID,
		payment.PaymentDate,
		payment.AmountPaid,
		payment.Method,
		payment.ReceiptNo,
	)
	if err != nil {
		if sqlite.IsUniqueViolation(err) {
			return finance.ErrDuplicateReceipt
		}
		r.logger.Error("Failed to create payment",
			zap.Int64("invoice_id", payment.InvoiceID),
			zap.String("receipt_no", payment.ReceiptNo),
			zap.Error(err))
		return fmt.Errorf("failed to create payment: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	payment.ID = id
	return nil
}

// GetByID retrieves a payment by ID
func (r *PaymentRepository) GetByID(ctx context.Context, id int64) (*entity.Payment, error) {
	query := "SELECT " + paymentColumns + " FROM payments WHERE id = ?"

	payment, err := scanPayment(r.getExecutor(ctx).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get payment", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}

	return payment, nil
}

// List retrieves payments matching the filter in the order they were recorded
func (r *PaymentRepository) List(ctx context.Context, filter port.PaymentFilter) ([]*entity.Payment, error) {
	var conditions []string
	var args []interface{}

	if filter.InvoiceID > 0 {
		conditions = append(conditions, "invoice_id = ?")
		args = append(args, filter.InvoiceID)
	}
	if filter.StudentID > 0 {
		conditions = append(conditions, "student_id = ?")
		args = append(args, filter.StudentID)
	}

	query := "SELECT " + paymentColumns + " FROM payments"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY id"

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list payments", zap.Int64("invoice_id", filter.InvoiceID), zap.Error(err))
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	var payments []*entity.Payment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, payment)
	}

	return payments, rows.Err()
}

// SetJournalEntry links a payment to the journal entry that posted it
func (r *PaymentRepository) SetJournalEntry(ctx context.Context, id, journalEntryID int64) error {
	_, err := r.getExecutor(ctx).ExecContext(ctx,
		"UPDATE payments SET journal_entry_id = ? WHERE id = ?",
		journalEntryID, id,
	)
	if err != nil {
		r.logger.Error("Failed to link payment journal entry",
			zap.Int64("id", id),
			zap.Int64("journal_entry_id", journalEntryID),
			zap.Error(err))
		return fmt.Errorf("failed to link payment journal entry: %w", err)
	}
	return nil
}

func scanPayment(row rowScanner) (*entity.Payment, error) {
	var payment entity.Payment
	var journalEntryID sql.NullInt64

	if err := row.Scan(
		&payment.ID,
		&payment.InvoiceID,
		&payment.StudentID,
		&payment.PaymentDate,
		&payment.AmountPaid,
		&payment.Method,
		&payment.ReceiptNo,
		&journalEntryID,
		&payment.CreatedAt,
	); err != nil {
		return nil, err
	}

	if journalEntryID.Valid {
		payment.JournalEntryID = journalEntryID.Int64
	}
	return &payment, nil
}

func (r *PaymentRepository) getExecutor(ctx context.Context) sqlite.Querier {
	return sqlite.Executor(ctx, r.db)
}

// Verify interface compliance
var _ port.PaymentRepository = (*PaymentRepository)(nil)
