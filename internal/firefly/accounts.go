package firefly

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/m3rciful/ledgerbot/core/telegram/format"
)

type accountAttributes struct {
	Name         string  `json:"name"`
	Type         string  `json:"type"`
	CurrencyID   *string `json:"currency_id"`
	CurrencyCode *string `json:"currency_code"`
}

type accountResource struct {
	ID         string            `json:"id"`
	Attributes accountAttributes `json:"attributes"`
}

type accountListResponse struct {
	Data []accountResource `json:"data"`
	Meta struct {
		Pagination Pagination `json:"pagination"`
	} `json:"meta"`
}

func mapAccount(res accountResource) Account {
	return Account{
		ID:           res.ID,
		Name:         res.Attributes.Name,
		Kind:         AccountKind(res.Attributes.Type),
		CurrencyID:   format.DerefString(res.Attributes.CurrencyID, ""),
		CurrencyCode: format.DerefString(res.Attributes.CurrencyCode, ""),
	}
}

// ListAccounts returns one page of accounts, optionally filtered by kind.
// An empty kind lists all accounts.
func (c *Client) ListAccounts(ctx context.Context, page int, kind AccountKind) (Page[Account], error) {
	query := url.Values{}
	if page > 0 {
		query.Set("page", strconv.Itoa(page))
	}
	if kind != "" {
		query.Set("type", string(kind))
	}

	var resp accountListResponse
	if err := c.do(ctx, http.MethodGet, "/accounts", query, nil, &resp); err != nil {
		return Page[Account]{}, err
	}

	out := Page[Account]{Pagination: resp.Meta.Pagination}
	out.Items = make([]Account, 0, len(resp.Data))
	for _, res := range resp.Data {
		out.Items = append(out.Items, mapAccount(res))
	}
	return out, nil
}

// GetAccount fetches a single account, including its currency. Used when an
// edited transaction changes source account and must follow its currency.
func (c *Client) GetAccount(ctx context.Context, id string) (Account, error) {
	var resp struct {
		Data accountResource `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/accounts/"+id, nil, nil, &resp); err != nil {
		return Account{}, err
	}
	return mapAccount(resp.Data), nil
}
