package port

import (
	"io"

	"github.com/garyjia/school-finance/internal/domain/entity"
)

// LedgerExporter renders ledger reports as spreadsheet workbooks
type LedgerExporter interface {
	WriteAccountLedger(w io.Writer, account *entity.Account, rows []*entity.LedgerEntry) error
	WriteTrialBalance(w io.Writer, totals []*entity.AccountTotals) error
	WriteStatement(w io.Writer, student *entity.Student, invoices []*entity.Invoice) error
}
