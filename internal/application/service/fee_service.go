package service

import (
	"context"
	"fmt"

	"github.com/garyjia/school-finance/internal/application/port"
	"github.com/garyjia/school-finance/internal/domain/entity"
	"github.com/garyjia/school-finance/internal/domain/finance"
	"github.com/garyjia/school-finance/pkg/utils"
	"github.com/shopspring/decimal"
)

// CreateFeeItemInput carries the fields of a new fee item
type CreateFeeItemInput struct {
	Name             string
	DefaultAmount    decimal.Decimal
	IsOptional       bool
	RevenueAccountID *int64
}

// CreateFeeStructureInput prices a fee item for a class, academic year and term.
// A nil Amount takes the fee item's default amount.
type CreateFeeStructureInput struct {
	ClassID        int64
	AcademicYearID int64
	TermID         int64
	FeeItemID      int64
	Amount         *decimal.Decimal
}

// FeeService manages the fee catalog and resolves what a class owes for a term
type FeeService interface {
	CreateFeeItem(ctx context.Context, in CreateFeeItemInput) (*entity.FeeItem, error)
	GetFeeItem(ctx context.Context, id int64) (*entity.FeeItem, error)
	ListFeeItems(ctx context.Context) ([]*entity.FeeItem, error)
	CreateFeeStructure(ctx context.Context, in CreateFeeStructureInput) (*entity.FeeStructure, error)
	ListFeeStructures(ctx context.Context, filter port.FeeStructureFilter) ([]*entity.FeeStructure, error)
	ResolveFeeStructure(ctx context.Context, classID, academicYearID, termID int64) ([]entity.FeeAmount, error)
}

type feeServiceImpl struct {
	referenceRepo    port.ReferenceRepository
	feeItemRepo      port.FeeItemRepository
	feeStructureRepo port.FeeStructureRepository
	accountRepo      port.AccountRepository
	logger           Logger
}

// NewFeeService creates a new FeeService
func NewFeeService(
	referenceRepo port.ReferenceRepository,
	feeItemRepo port.FeeItemRepository,
	feeStructureRepo port.FeeStructureRepository,
	accountRepo port.AccountRepository,
	logger Logger,
) FeeService {
	return &feeServiceImpl{
		referenceRepo:    referenceRepo,
		feeItemRepo:      feeItemRepo,
		feeStructureRepo: feeStructureRepo,
		accountRepo:      accountRepo,
		logger:           logger,
	}
}

// CreateFeeItem adds a fee item to the catalog
func (s *feeServiceImpl) CreateFeeItem(ctx context.Context, in CreateFeeItemInput) (*entity.FeeItem, error) {
	name := utils.SanitizeString(in.Name)
	if name == "" {
		return nil, finance.Invalidf("name is required")
	}
	if err := utils.ValidateAmount(in.DefaultAmount); err != nil {
		return nil, finance.Invalidf("defaultAmount: %v", err)
	}

	if in.RevenueAccountID != nil {
		account, err := s.accountRepo.GetByID(ctx, *in.RevenueAccountID)
		if err != nil {
			return nil, fmt.Errorf("failed to load revenue account: %w", err)
		}
		if account == nil {
			return nil, finance.NotFoundf("account %d", *in.RevenueAccountID)
		}
		if account.TypeName != entity.AccountTypeRevenue {
			return nil, finance.Invalidf("account %s is not a revenue account", account.Code)
		}
	}

	item := &entity.FeeItem{
		Name:             name,
		DefaultAmount:    in.DefaultAmount,
		IsOptional:       in.IsOptional,
		RevenueAccountID: in.RevenueAccountID,
	}
	if err := s.feeItemRepo.Create(ctx, item); err != nil {
		return nil, err
	}

	s.logger.Info("Fee item created", "fee_item_id", item.ID, "name", item.Name)
	return item, nil
}

// GetFeeItem retrieves a fee item by ID
func (s *feeServiceImpl) GetFeeItem(ctx context.Context, id int64) (*entity.FeeItem, error) {
	item, err := s.feeItemRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, finance.NotFoundf("fee item %d", id)
	}
	return item, nil
}

// ListFeeItems lists the fee catalog
func (s *feeServiceImpl) ListFeeItems(ctx context.Context) ([]*entity.FeeItem, error) {
	return s.feeItemRepo.List(ctx)
}

// CreateFeeStructure prices a fee item for one class and term
func (s *feeServiceImpl) CreateFeeStructure(ctx context.Context, in CreateFeeStructureInput) (*entity.FeeStructure, error) {
	if err := s.checkScope(ctx, in.ClassID, in.AcademicYearID, in.TermID); err != nil {
		return nil, err
	}

	item, err := s.GetFeeItem(ctx, in.FeeItemID)
	if err != nil {
		return nil, err
	}

	amount := item.DefaultAmount
	if in.Amount != nil {
		amount = *in.Amount
	}
	if err := utils.ValidateAmount(amount); err != nil {
		return nil, finance.Invalidf("amount: %v", err)
	}

	fs := &entity.FeeStructure{
		ClassID:        in.ClassID,
		AcademicYearID: in.AcademicYearID,
		TermID:         in.TermID,
		FeeItemID:      in.FeeItemID,
		Amount:         amount,
	}
	if err := s.feeStructureRepo.Create(ctx, fs); err != nil {
		return nil, err
	}

	s.logger.Info("Fee structure created",
		"fee_structure_id", fs.ID,
		"class_id", fs.ClassID,
		"term_id", fs.TermID,
		"fee_item_id", fs.FeeItemID)
	return fs, nil
}

// ListFeeStructures lists fee structures matching the filter
func (s *feeServiceImpl) ListFeeStructures(ctx context.Context, filter port.FeeStructureFilter) ([]*entity.FeeStructure, error) {
	return s.feeStructureRepo.List(ctx, filter)
}

// ResolveFeeStructure returns the fee lines that apply to a class for one academic year and term.
// An empty result is valid and only logged.
func (s *feeServiceImpl) ResolveFeeStructure(ctx context.Context, classID, academicYearID, termID int64) ([]entity.FeeAmount, error) {
	if err := s.checkScope(ctx, classID, academicYearID, termID); err != nil {
		return nil, err
	}

	structures, err := s.feeStructureRepo.List(ctx, port.FeeStructureFilter{
		ClassID:        classID,
		AcademicYearID: academicYearID,
		TermID:         termID,
	})
	if err != nil {
		return nil, err
	}

	if len(structures) == 0 {
		s.logger.Warn("No fee structure configured",
			"class_id", classID,
			"academic_year_id", academicYearID,
			"term_id", termID)
		return []entity.FeeAmount{}, nil
	}

	lines := make([]entity.FeeAmount, 0, len(structures))
	for _, fs := range structures {
		lines = append(lines, entity.FeeAmount{FeeItemID: fs.FeeItemID, Amount: fs.Amount})
	}
	return lines, nil
}

// checkScope verifies that class, academic year and term exist and that the term belongs to the year
func (s *feeServiceImpl) checkScope(ctx context.Context, classID, academicYearID, termID int64) error {
	class, err := s.referenceRepo.GetClass(ctx, classID)
	if err != nil {
		return err
	}
	if class == nil {
		return finance.NotFoundf("class %d", classID)
	}

	return checkTerm(ctx, s.referenceRepo, academicYearID, termID)
}

// checkTerm verifies that the academic year and term exist and belong together
func checkTerm(ctx context.Context, referenceRepo port.ReferenceRepository, academicYearID, termID int64) error {
	year, err := referenceRepo.GetAcademicYear(ctx, academicYearID)
	if err != nil {
		return err
	}
	if year == nil {
		return finance.NotFoundf("academic year %d", academicYearID)
	}

	term, err := referenceRepo.GetTerm(ctx, termID)
	if err != nil {
		return err
	}
	if term == nil {
		return finance.NotFoundf("term %d", termID)
	}
	if term.AcademicYearID != academicYearID {
		return finance.Invalidf("term %d does not belong to academic year %d", termID, academicYearID)
	}
	return nil
}
