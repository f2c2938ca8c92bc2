package export

import (
	"fmt"
	"io"

	"github.com/garyjia/school-finance/internal/application/port"
	"github.com/garyjia/school-finance/internal/domain/entity"
	"github.com/garyjia/school-finance/internal/domain/finance"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const (
	defaultSheet = "Sheet1"
	dateLayout   = "2006-01-02"
	amountFormat = "#,##0.00"
)

// WorkbookExporter renders ledger reports as xlsx workbooks
type WorkbookExporter struct {
	logger *zap.Logger
}

// NewWorkbookExporter creates a new workbook exporter
func NewWorkbookExporter(logger *zap.Logger) *WorkbookExporter {
	return &WorkbookExporter{logger: logger}
}

// sheetWriter fills one sheet row by row
type sheetWriter struct {
	file        *excelize.File
	sheet       string
	row         int
	headerStyle int
	amountStyle int
}

func newSheet(name string) (*sheetWriter, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(defaultSheet, name); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}
	numFmt := amountFormat
	amountStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &numFmt})
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to create amount style: %w", err)
	}

	return &sheetWriter{
		file:        f,
		sheet:       name,
		row:         1,
		headerStyle: headerStyle,
		amountStyle: amountStyle,
	}, nil
}

// header writes a bold row
func (s *sheetWriter) header(values ...interface{}) error {
	if err := s.line(values...); err != nil {
		return err
	}
	first, _ := excelize.CoordinatesToCellName(1, s.row-1)
	last, _ := excelize.CoordinatesToCellName(len(values), s.row-1)
	return s.file.SetCellStyle(s.sheet, first, last, s.headerStyle)
}

// line writes one row. Decimal values are written as numbers with the amount format.
func (s *sheetWriter) line(values ...interface{}) error {
	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, s.row)
		if err != nil {
			return err
		}

		if d, ok := v.(decimal.Decimal); ok {
			if err := s.file.SetCellFloat(s.sheet, cell, d.InexactFloat64(), -1, 64); err != nil {
				return fmt.Errorf("failed to set %s: %w", cell, err)
			}
			if err := s.file.SetCellStyle(s.sheet, cell, cell, s.amountStyle); err != nil {
				return fmt.Errorf("failed to style %s: %w", cell, err)
			}
			continue
		}

		if err := s.file.SetCellValue(s.sheet, cell, v); err != nil {
			return fmt.Errorf("failed to set %s: %w", cell, err)
		}
	}
	s.row++
	return nil
}

func (s *sheetWriter) skip() {
	s.row++
}

func (s *sheetWriter) close() {
	_ = s.file.Close()
}

func (s *sheetWriter) flush(w io.Writer) error {
	if err := s.file.SetColWidth(s.sheet, "A", "H", 16); err != nil {
		return fmt.Errorf("failed to size columns: %w", err)
	}
	if err := s.file.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// WriteAccountLedger writes an account's ledger rows with their running balance
func (e *WorkbookExporter) WriteAccountLedger(w io.Writer, account *entity.Account, rows []*entity.LedgerEntry) error {
	s, err := newSheet("Ledger")
	if err != nil {
		return err
	}
	defer s.close()

	if err := s.header("Account", account.Code, account.Name, account.TypeName); err != nil {
		return err
	}
	s.skip()
	if err := s.header("Date", "Journal Entry", "Debit", "Credit", "Balance"); err != nil {
		return err
	}

	for _, row := range rows {
		if err := s.line(row.EntryDate.Format(dateLayout), row.JournalEntryID, row.Debit, row.Credit, row.Balance); err != nil {
			return err
		}
	}

	e.logger.Info("Account ledger exported",
		zap.String("account_code", account.Code),
		zap.Int("rows", len(rows)))
	return s.flush(w)
}

// WriteTrialBalance writes debit and credit totals per account with a totals row
func (e *WorkbookExporter) WriteTrialBalance(w io.Writer, totals []*entity.AccountTotals) error {
	s, err := newSheet("Trial Balance")
	if err != nil {
		return err
	}
	defer s.close()

	if err := s.header("Code", "Account", "Type", "Debit", "Credit", "Balance"); err != nil {
		return err
	}

	debits, credits := decimal.Zero, decimal.Zero
	for _, t := range totals {
		if err := s.line(t.AccountCode, t.AccountName, t.AccountType, t.Debit, t.Credit, t.Balance); err != nil {
			return err
		}
		debits = debits.Add(t.Debit)
		credits = credits.Add(t.Credit)
	}

	if err := s.header("", "Total", "", debits, credits, debits.Sub(credits)); err != nil {
		return err
	}

	e.logger.Info("Trial balance exported", zap.Int("accounts", len(totals)))
	return s.flush(w)
}

// WriteStatement writes a student's invoices with paid and outstanding amounts.
// Invoices are expected to carry their payments.
func (e *WorkbookExporter) WriteStatement(w io.Writer, student *entity.Student, invoices []*entity.Invoice) error {
	s, err := newSheet("Statement")
	if err != nil {
		return err
	}
	defer s.close()

	if err := s.header("Student", student.AdmissionNo, student.FullName); err != nil {
		return err
	}
	s.skip()
	if err := s.header("Invoice", "Issued", "Due", "Status", "Total", "Paid", "Outstanding"); err != nil {
		return err
	}

	billed, paid, outstanding := decimal.Zero, decimal.Zero, decimal.Zero
	for _, inv := range invoices {
		invPaid := finance.SumPayments(inv.Payments)
		invOutstanding := finance.Outstanding(inv.TotalAmount, invPaid)
		if err := s.line(
			inv.ID,
			inv.IssueDate.Format(dateLayout),
			inv.DueDate.Format(dateLayout),
			inv.Status,
			inv.TotalAmount,
			invPaid,
			invOutstanding,
		); err != nil {
			return err
		}
		billed = billed.Add(inv.TotalAmount)
		paid = paid.Add(invPaid)
		outstanding = outstanding.Add(invOutstanding)
	}

	if err := s.header("Total", "", "", "", billed, paid, outstanding); err != nil {
		return err
	}

	e.logger.Info("Student statement exported",
		zap.Int64("student_id", student.ID),
		zap.Int("invoices", len(invoices)))
	return s.flush(w)
}

// Verify interface compliance
var _ port.LedgerExporter = (*WorkbookExporter)(nil)
