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

const journalColumns = `
	id, reference, entry_date, description, posted_by, academic_year_id,
	term_id, source, source_id, reversal_of, created_at
`

// JournalRepository implements port.JournalRepository
type JournalRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewJournalRepository creates a new journal repository
func NewJournalRepository(db *sql.DB, logger *zap.Logger) port.JournalRepository {
	return &JournalRepository{
		db:     db,
		logger: logger,
	}
}

// CreateEntry inserts a journal entry header
func (r *JournalRepository) CreateEntry(ctx context.Context, entry *entity.JournalEntry) error {
	query := `
		INSERT INTO journal_entries (
			reference, entry_date, description, posted_by, academic_year_id,
			term_id, source, source_id, reversal_of
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		entry.Reference,
		entry.EntryDate,
		entry.Description,
		entry.PostedBy,
		nullInt64(entry.AcademicYearID),
		nullInt64(entry.TermID),
		entry.Source,
		nullInt64(entry.SourceID),
		nullInt64(entry.ReversalOf),
	)
	if err != nil {
		if entry.ReversalOf != nil && sqlite.IsUniqueViolation(err) {
			return finance.ErrAlreadyReversed
		}
		if sqlite.IsForeignKeyViolation(err) {
			return finance.Invalidf("journal entry references an unknown academic year or term")
		}
		r.logger.Error("Failed to create journal entry",
			zap.String("reference", entry.Reference),
			zap.Error(err))
		return fmt.Errorf("failed to create journal entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	entry.ID = id
	return nil
}

// CreateLine inserts one journal line
func (r *JournalRepository) CreateLine(ctx context.Context, line *entity.JournalLine) error {
	query := `
		INSERT INTO journal_lines (journal_entry_id, account_id, debit, credit)
		VALUES (?, ?, ?, ?)
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		line.JournalEntryID,
		line.AccountID,
		line.Debit,
		line.Credit,
	)
	if err != nil {
		if sqlite.IsForeignKeyViolation(err) {
			return finance.NotFoundf("account %d", line.AccountID)
		}
		r.logger.Error("Failed to create journal line",
			zap.Int64("journal_entry_id", line.JournalEntryID),
			zap.Int64("account_id", line.AccountID),
			zap.Error(err))
		return fmt.Errorf("failed to create journal line: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	line.ID = id
	return nil
}

// GetByID retrieves a journal entry with its lines
func (r *JournalRepository) GetByID(ctx context.Context, id int64) (*entity.JournalEntry, error) {
	query := "SELECT " + journalColumns + " FROM journal_entries WHERE id = ?"

	entry, err := scanJournalEntry(r.getExecutor(ctx).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get journal entry", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get journal entry: %w", err)
	}

	lines, err := r.GetLines(ctx, id)
	if err != nil {
		return nil, err
	}
	entry.Lines = lines

	return entry, nil
}

// GetReversalOf retrieves the entry that reversed the given entry, if any
func (r *JournalRepository) GetReversalOf(ctx context.Context, id int64) (*entity.JournalEntry, error) {
	query := "SELECT " + journalColumns + " FROM journal_entries WHERE reversal_of = ?"

	entry, err := scanJournalEntry(r.getExecutor(ctx).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get reversal", zap.Int64("reversal_of", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get reversal: %w", err)
	}

	return entry, nil
}

// List retrieves journal entry headers, newest first
func (r *JournalRepository) List(ctx context.Context, limit, offset int) ([]*entity.JournalEntry, error) {
	query := "SELECT " + journalColumns + `
		FROM journal_entries
		ORDER BY id DESC
		LIMIT ? OFFSET ?
	`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list journal entries", zap.Error(err))
		return nil, fmt.Errorf("failed to list journal entries: %w", err)
	}
	defer rows.Close()

	var entries []*entity.JournalEntry
	for rows.Next() {
		entry, err := scanJournalEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan journal entry: %w", err)
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// GetLines retrieves the lines of a journal entry
func (r *JournalRepository) GetLines(ctx context.Context, entryID int64) ([]*entity.JournalLine, error) {
	query := `
		SELECT id, journal_entry_id, account_id, debit, credit
		FROM journal_lines
		WHERE journal_entry_id = ?
		ORDER BY id
	`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, entryID)
	if err != nil {
		r.logger.Error("Failed to get journal lines", zap.Int64("journal_entry_id", entryID), zap.Error(err))
		return nil, fmt.Errorf("failed to get journal lines: %w", err)
	}
	defer rows.Close()

	var lines []*entity.JournalLine
	for rows.Next() {
		var line entity.JournalLine
		if err := rows.Scan(
			&line.ID,
			&line.JournalEntryID,
			&line.AccountID,
			&line.Debit,
			&line.Credit,
		); err != nil {
			return nil, fmt.Errorf("failed to scan journal line: %w", err)
		}
		lines = append(lines, &line)
	}

	return lines, rows.Err()
}

func scanJournalEntry(row rowScanner) (*entity.JournalEntry, error) {
	var entry entity.JournalEntry
	var academicYearID, termID, sourceID, reversalOf sql.NullInt64

	if err := row.Scan(
		&entry.ID,
		&entry.Reference,
		&entry.EntryDate,
		&entry.Description,
		&entry.PostedBy,
		&academicYearID,
		&termID,
		&entry.Source,
		&sourceID,
		&reversalOf,
		&entry.CreatedAt,
	); err != nil {
		return nil, err
	}

	entry.AcademicYearID = int64Ptr(academicYearID)
	entry.TermID = int64Ptr(termID)
	entry.SourceID = int64Ptr(sourceID)
	entry.ReversalOf = int64Ptr(reversalOf)
	return &entry, nil
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func int64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

func (r *JournalRepository) getExecutor(ctx context.Context) sqlite.Querier {
	return sqlite.Executor(ctx, r.db)
}

// Verify interface compliance
var _ port.JournalRepository = (*JournalRepository)(nil)
