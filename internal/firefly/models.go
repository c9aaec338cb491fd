package firefly

import "time"

// AccountKind enumerates the ledger account classes relevant to the bot.
type AccountKind string

const (
	AccountAsset     AccountKind = "asset"
	AccountExpense   AccountKind = "expense"
	AccountRevenue   AccountKind = "revenue"
	AccountLiability AccountKind = "liabilities"
	AccountCash      AccountKind = "cash"
)

// TransactionType enumerates ledger transaction types.
type TransactionType string

const (
	TypeWithdrawal TransactionType = "withdrawal"
	TypeDeposit    TransactionType = "deposit"
	TypeTransfer   TransactionType = "transfer"
)

// Account is a ledger account record.
type Account struct {
	ID           string
	Name         string
	Kind         AccountKind
	CurrencyID   string
	CurrencyCode string
}

// Category is a ledger category record.
type Category struct {
	ID   string
	Name string
}

// Transaction is a single ledger transaction split.
type Transaction struct {
	ID              string
	Type            TransactionType
	Amount          string
	Description     string
	Date            time.Time
	CurrencyID      string
	CurrencyCode    string
	CurrencySymbol  string
	SourceID        string
	SourceName      string
	DestinationID   string
	DestinationName string
	CategoryID      string
	CategoryName    string
}

// TransactionSplit is the write payload for create and update calls.
type TransactionSplit struct {
	Type          TransactionType `json:"type,omitempty"`
	Amount        string          `json:"amount,omitempty"`
	Description   string          `json:"description,omitempty"`
	Date          string          `json:"date,omitempty"`
	CurrencyID    string          `json:"currency_id,omitempty"`
	SourceID      string          `json:"source_id,omitempty"`
	DestinationID string          `json:"destination_id,omitempty"`
	CategoryID    string          `json:"category_id,omitempty"`
	CategoryName  string          `json:"category_name,omitempty"`
}

// Pagination is the page position metadata returned by listing endpoints.
type Pagination struct {
	Total       int `json:"total"`
	Count       int `json:"count"`
	PerPage     int `json:"per_page"`
	CurrentPage int `json:"current_page"`
	TotalPages  int `json:"total_pages"`
}

// Page carries a listing page alongside its pagination metadata.
type Page[T any] struct {
	Items      []T
	Pagination Pagination
}

// User is the authenticated ledger user, used for connectivity checks.
type User struct {
	ID    string
	Email string
}
