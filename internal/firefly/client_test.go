package firefly

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestListAccountsMapsRecords(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/accounts" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("type"); got != "asset" {
			t.Errorf("type query = %s, want asset", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("authorization = %s", got)
		}
		if r.Header.Get("X-Trace-Id") == "" {
			t.Error("missing trace id header")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"data": [
				{"id": "1", "attributes": {"name": "Checking", "type": "asset", "currency_id": "11", "currency_code": "EUR"}},
				{"id": "2", "attributes": {"name": "Wallet", "type": "asset", "currency_id": null, "currency_code": null}}
			],
			"meta": {"pagination": {"total": 2, "count": 2, "per_page": 50, "current_page": 1, "total_pages": 1}}
		}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "secret")
	page, err := c.ListAccounts(context.Background(), 1, AccountAsset)
	if err != nil {
		t.Fatalf("ListAccounts: %v", err)
	}
	if len(page.Items) != 2 {
		t.Fatalf("got %d accounts", len(page.Items))
	}
	if page.Items[0].CurrencyCode != "EUR" || page.Items[0].Kind != AccountAsset {
		t.Errorf("first account mapped wrong: %+v", page.Items[0])
	}
	if page.Items[1].CurrencyCode != "" {
		t.Errorf("null currency should map to empty: %+v", page.Items[1])
	}
	if page.Pagination.TotalPages != 1 {
		t.Errorf("pagination mapped wrong: %+v", page.Pagination)
	}
}

func TestAPIErrorNotRetried(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message": "Invalid amount"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "secret")
	_, err := c.CreateTransaction(context.Background(), TransactionSplit{Amount: "x"})
	if err == nil {
		t.Fatal("expected error")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error is not *APIError: %v", err)
	}
	if apiErr.StatusCode != http.StatusUnprocessableEntity || apiErr.Message != "Invalid amount" {
		t.Errorf("unexpected APIError: %+v", apiErr)
	}
	if apiErr.Code() != "LEDGER_VALIDATION" {
		t.Errorf("Code() = %s", apiErr.Code())
	}
	if calls != 1 {
		t.Errorf("client retried a permanent failure %d times", calls)
	}
}

func TestServerErrorRetried(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"data": {"id": "9", "attributes": {"email": "x@y.z"}}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "secret")
	user, err := c.CurrentUser(context.Background())
	if err != nil {
		t.Fatalf("CurrentUser after retries: %v", err)
	}
	if user.ID != "9" || user.Email != "x@y.z" {
		t.Errorf("unexpected user: %+v", user)
	}
	if calls != 3 {
		t.Errorf("expected 3 attempts, got %d", calls)
	}
}

func TestInferType(t *testing.T) {
	cases := []struct {
		source, destination AccountKind
		want                TransactionType
	}{
		{AccountAsset, AccountLiability, TypeWithdrawal},
		{AccountLiability, AccountAsset, TypeDeposit},
		{AccountRevenue, AccountAsset, TypeDeposit},
		{AccountAsset, AccountAsset, TypeTransfer},
		{AccountAsset, AccountExpense, TypeWithdrawal},
		{AccountCash, AccountExpense, TypeWithdrawal},
	}
	for _, tc := range cases {
		if got := InferType(tc.source, tc.destination); got != tc.want {
			t.Errorf("InferType(%s, %s) = %s, want %s", tc.source, tc.destination, got, tc.want)
		}
	}
}
