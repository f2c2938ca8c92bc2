package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// JournalEntry is one balanced financial event. Entries are immutable once posted;
// corrections are made with a reversing entry.
type JournalEntry struct {
	ID             int64          `json:"id"`
	Reference      string         `json:"reference"`
	EntryDate      time.Time      `json:"date"`
	Description    string         `json:"description"`
	PostedBy       string         `json:"postedBy"`
	AcademicYearID *int64         `json:"academicYearId,omitempty"`
	TermID         *int64         `json:"termId,omitempty"`
	Source         string         `json:"source"`
	SourceID       *int64         `json:"sourceId,omitempty"`
	ReversalOf     *int64         `json:"reversalOf,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
	Lines          []*JournalLine `json:"lines,omitempty"`
}

// JournalLine is one side of a journal entry. Exactly one of Debit and Credit is nonzero.
type JournalLine struct {
	ID             int64           `json:"id"`
	JournalEntryID int64           `json:"journalEntryId"`
	AccountID      int64           `json:"accountId"`
	Debit          decimal.Decimal `json:"debit"`
	Credit         decimal.Decimal `json:"credit"`
}

// LedgerEntry is an append-only running balance row for one account
type LedgerEntry struct {
	ID             int64           `json:"id"`
	AccountID      int64           `json:"accountId"`
	JournalEntryID int64           `json:"journalEntryId"`
	JournalLineID  int64           `json:"journalLineId"`
	EntryDate      time.Time       `json:"date"`
	Debit          decimal.Decimal `json:"debit"`
	Credit         decimal.Decimal `json:"credit"`
	Balance        decimal.Decimal `json:"balance"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// AccountTotals aggregates an account's ledger for the trial balance
type AccountTotals struct {
	AccountID   int64           `json:"accountId"`
	AccountCode string          `json:"accountCode"`
	AccountName string          `json:"accountName"`
	AccountType string          `json:"accountType"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Balance     decimal.Decimal `json:"balance"`
}
