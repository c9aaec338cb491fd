package firefly

import (
	"context"
	"net/http"
	"time"

	"github.com/m3rciful/ledgerbot/core/telegram/format"
)

type transactionSplitResource struct {
	TransactionJournalID string  `json:"transaction_journal_id"`
	Type                 string  `json:"type"`
	Amount               string  `json:"amount"`
	Description          string  `json:"description"`
	Date                 string  `json:"date"`
	CurrencyID           *string `json:"currency_id"`
	CurrencyCode         *string `json:"currency_code"`
	CurrencySymbol       *string `json:"currency_symbol"`
	SourceID             *string `json:"source_id"`
	SourceName           *string `json:"source_name"`
	DestinationID        *string `json:"destination_id"`
	DestinationName      *string `json:"destination_name"`
	CategoryID           *string `json:"category_id"`
	CategoryName         *string `json:"category_name"`
}

type transactionResource struct {
	ID         string `json:"id"`
	Attributes struct {
		Transactions []transactionSplitResource `json:"transactions"`
	} `json:"attributes"`
}

type transactionEnvelope struct {
	Data transactionResource `json:"data"`
}

func mapTransaction(res transactionResource) Transaction {
	tx := Transaction{ID: res.ID}
	if len(res.Attributes.Transactions) == 0 {
		return tx
	}
	split := res.Attributes.Transactions[0]
	tx.Type = TransactionType(split.Type)
	tx.Amount = split.Amount
	tx.Description = split.Description
	tx.CurrencyID = format.DerefString(split.CurrencyID, "")
	tx.CurrencyCode = format.DerefString(split.CurrencyCode, "")
	tx.CurrencySymbol = format.DerefString(split.CurrencySymbol, "")
	tx.SourceID = format.DerefString(split.SourceID, "")
	tx.SourceName = format.DerefString(split.SourceName, "")
	tx.DestinationID = format.DerefString(split.DestinationID, "")
	tx.DestinationName = format.DerefString(split.DestinationName, "")
	tx.CategoryID = format.DerefString(split.CategoryID, "")
	tx.CategoryName = format.DerefString(split.CategoryName, "")
	if ts, err := time.Parse(time.RFC3339, split.Date); err == nil {
		tx.Date = ts
	}
	return tx
}

// CreateTransaction stores a new single-split transaction.
func (c *Client) CreateTransaction(ctx context.Context, split TransactionSplit) (Transaction, error) {
	if split.Date == "" {
		split.Date = time.Now().Format(time.RFC3339)
	}
	body := map[string]any{"transactions": []TransactionSplit{split}}

	var resp transactionEnvelope
	if err := c.do(ctx, http.MethodPost, "/transactions", nil, body, &resp); err != nil {
		return Transaction{}, err
	}
	return mapTransaction(resp.Data), nil
}

// GetTransaction fetches one transaction by id.
func (c *Client) GetTransaction(ctx context.Context, id string) (Transaction, error) {
	var resp transactionEnvelope
	if err := c.do(ctx, http.MethodGet, "/transactions/"+id, nil, nil, &resp); err != nil {
		return Transaction{}, err
	}
	return mapTransaction(resp.Data), nil
}

// UpdateTransaction applies a partial split update to an existing
// transaction. Zero-valued split fields are left untouched by the ledger.
func (c *Client) UpdateTransaction(ctx context.Context, id string, split TransactionSplit) (Transaction, error) {
	body := map[string]any{"transactions": []TransactionSplit{split}}

	var resp transactionEnvelope
	if err := c.do(ctx, http.MethodPut, "/transactions/"+id, nil, body, &resp); err != nil {
		return Transaction{}, err
	}
	return mapTransaction(resp.Data), nil
}

// DeleteTransaction removes a transaction from the ledger.
func (c *Client) DeleteTransaction(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/transactions/"+id, nil, nil, nil)
}

// InferType derives the transaction type from the source and destination
// account kinds when not explicitly set. Precedence: an asset source moving
// to a liability is a withdrawal; liability or revenue sourced movements are
// deposits; transfers involving an asset on both ends are transfers;
// everything else defaults to withdrawal.
func InferType(source, destination AccountKind) TransactionType {
	switch {
	case source == AccountAsset && destination == AccountLiability:
		return TypeWithdrawal
	case source == AccountLiability || source == AccountRevenue:
		return TypeDeposit
	case source == AccountAsset && destination == AccountAsset:
		return TypeTransfer
	default:
		return TypeWithdrawal
	}
}
