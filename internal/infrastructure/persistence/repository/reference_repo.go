package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/garyjia/school-finance/internal/application/port"
	"github.com/garyjia/school-finance/internal/domain/entity"
	"github.com/garyjia/school-finance/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// ReferenceRepository implements port.ReferenceRepository over the school reference tables
type ReferenceRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewReferenceRepository creates a new reference data repository
func NewReferenceRepository(db *sql.DB, logger *zap.Logger) port.ReferenceRepository {
	return &ReferenceRepository{
		db:     db,
		logger: logger,
	}
}

// GetStudent retrieves a student by ID
func (r *ReferenceRepository) GetStudent(ctx context.Context, id int64) (*entity.Student, error) {
	query := `
		SELECT id, admission_no, full_name, class_id, is_active
		FROM students
		WHERE id = ?
	`

	student, err := scanStudent(r.getExecutor(ctx).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get student", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get student: %w", err)
	}

	return student, nil
}

// GetClass retrieves a class by ID
func (r *ReferenceRepository) GetClass(ctx context.Context, id int64) (*entity.Class, error) {
	var class entity.Class
	err := r.getExecutor(ctx).QueryRowContext(ctx,
		"SELECT id, name FROM classes WHERE id = ?", id,
	).Scan(&class.ID, &class.Name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get class", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get class: %w", err)
	}

	return &class, nil
}

// GetAcademicYear retrieves an academic year by ID
func (r *ReferenceRepository) GetAcademicYear(ctx context.Context, id int64) (*entity.AcademicYear, error) {
	query := `
		SELECT id, name, start_date, end_date, is_current
		FROM academic_years
		WHERE id = ?
	`

	var year entity.AcademicYear
	err := r.getExecutor(ctx).QueryRowContext(ctx, query, id).Scan(
		&year.ID,
		&year.Name,
		&year.StartDate,
		&year.EndDate,
		&year.IsCurrent,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get academic year", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get academic year: %w", err)
	}

	return &year, nil
}

// GetTerm retrieves a term by ID
func (r *ReferenceRepository) GetTerm(ctx context.Context, id int64) (*entity.Term, error) {
	query := `
		SELECT id, academic_year_id, name, start_date, end_date
		FROM terms
		WHERE id = ?
	`

	var term entity.Term
	err := r.getExecutor(ctx).QueryRowContext(ctx, query, id).Scan(
		&term.ID,
		&term.AcademicYearID,
		&term.Name,
		&term.StartDate,
		&term.EndDate,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get term", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get term: %w", err)
	}

	return &term, nil
}

// ListStudentsByClass retrieves the active students of a class
func (r *ReferenceRepository) ListStudentsByClass(ctx context.Context, classID int64) ([]*entity.Student, error) {
	query := `
		SELECT id, admission_no, full_name, class_id, is_active
		FROM students
		WHERE class_id = ? AND is_active = 1
		ORDER BY id
	`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, classID)
	if err != nil {
		r.logger.Error("Failed to list students by class", zap.Int64("class_id", classID), zap.Error(err))
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	defer rows.Close()

	var students []*entity.Student
	for rows.Next() {
		student, err := scanStudent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan student: %w", err)
		}
		students = append(students, student)
	}

	return students, rows.Err()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanStudent(row rowScanner) (*entity.Student, error) {
	var student entity.Student
	var classID sql.NullInt64

	if err := row.Scan(
		&student.ID,
		&student.AdmissionNo,
		&student.FullName,
		&classID,
		&student.IsActive,
	); err != nil {
		return nil, err
	}

	if classID.Valid {
		student.ClassID = classID.Int64
	}
	return &student, nil
}

func (r *ReferenceRepository) getExecutor(ctx context.Context) sqlite.Querier {
	return sqlite.Executor(ctx, r.db)
}

// Verify interface compliance
var _ port.ReferenceRepository = (*ReferenceRepository)(nil)
