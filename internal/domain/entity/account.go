package entity

import "time"

// AccountType categorises ledger accounts
type AccountType struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Code string `json:"code"`
}

// Account is a chart-of-accounts entry
type Account struct {
	ID            int64     `json:"id"`
	Code          string    `json:"accountCode"`
	Name          string    `json:"accountName"`
	AccountTypeID int64     `json:"accountTypeId"`
	TypeName      string    `json:"accountType,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}
