package transactions

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/ledgerbot/core/telegram/callbacks"
	"github.com/m3rciful/ledgerbot/core/telegram/state"
	"github.com/m3rciful/ledgerbot/internal/firefly"
	"github.com/m3rciful/ledgerbot/internal/flows"
	"github.com/m3rciful/ledgerbot/internal/session"
	"github.com/m3rciful/ledgerbot/internal/settings"
)

const testUserID int64 = 7

// ledgerStub is a minimal Firefly-shaped server recording writes.
type ledgerStub struct {
	srv *httptest.Server

	created      []map[string]any
	updated      []map[string]any
	accountQuery []string
	failCreates  bool
}

func newLedgerStub(t *testing.T) *ledgerStub {
	t.Helper()
	stub := &ledgerStub{}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/categories", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"data": [
				{"id": "10", "attributes": {"name": "Food"}},
				{"id": "11", "attributes": {"name": "Fun"}}
			],
			"meta": {"pagination": {"total": 2, "count": 2, "per_page": 50, "current_page": 1, "total_pages": 1}}
		}`)
	})
	mux.HandleFunc("/api/v1/accounts", func(w http.ResponseWriter, r *http.Request) {
		stub.accountQuery = append(stub.accountQuery, r.URL.RawQuery)
		if r.URL.Query().Get("type") == "liabilities" {
			fmt.Fprint(w, `{
				"data": [
					{"id": "2", "attributes": {"name": "Loan", "type": "liabilities", "currency_id": "5", "currency_code": "EUR"}}
				],
				"meta": {"pagination": {"total": 1, "count": 1, "per_page": 50, "current_page": 1, "total_pages": 1}}
			}`)
			return
		}
		fmt.Fprint(w, `{
			"data": [
				{"id": "1", "attributes": {"name": "Wallet", "type": "asset", "currency_id": "5", "currency_code": "EUR"}}
			],
			"meta": {"pagination": {"total": 1, "count": 1, "per_page": 50, "current_page": 1, "total_pages": 1}}
		}`)
	})
	mux.HandleFunc("/api/v1/accounts/1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data": {"id": "1", "attributes": {"name": "Wallet", "type": "asset", "currency_id": "5", "currency_code": "EUR"}}}`)
	})
	mux.HandleFunc("/api/v1/transactions", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if stub.failCreates {
			w.WriteHeader(http.StatusUnprocessableEntity)
			return
		}
		var body struct {
			Transactions []map[string]any `json:"transactions"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body.Transactions) == 0 {
			w.WriteHeader(http.StatusUnprocessableEntity)
			return
		}
		split := body.Transactions[0]
		stub.created = append(stub.created, split)

		categoryName := ""
		if split["category_id"] == "10" {
			categoryName = "Food"
		}
		resp := map[string]any{
			"data": map[string]any{
				"id": "900",
				"attributes": map[string]any{
					"transactions": []map[string]any{{
						"type":          split["type"],
						"amount":        split["amount"],
						"description":   split["description"],
						"date":          "2026-01-02T00:00:00Z",
						"currency_code": "EUR",
						"category_name": categoryName,
					}},
				},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	})

	mux.HandleFunc("/api/v1/transactions/900", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var body struct {
			Transactions []map[string]any `json:"transactions"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body.Transactions) == 0 {
			w.WriteHeader(http.StatusUnprocessableEntity)
			return
		}
		split := body.Transactions[0]
		stub.updated = append(stub.updated, split)

		resp := map[string]any{
			"data": map[string]any{
				"id": "900",
				"attributes": map[string]any{
					"transactions": []map[string]any{{
						"type":          "withdrawal",
						"amount":        "12",
						"description":   "Coffee",
						"date":          "2026-01-02T00:00:00Z",
						"currency_id":   split["currency_id"],
						"currency_code": "EUR",
						"source_id":     split["source_id"],
						"source_name":   "Wallet",
					}},
				},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	})

	stub.srv = httptest.NewServer(mux)
	t.Cleanup(stub.srv.Close)
	return stub
}

// update returns a field of the n-th recorded update call.
func (l *ledgerStub) update(t *testing.T, n int, field string) string {
	t.Helper()
	if len(l.updated) <= n {
		t.Fatalf("want at least %d updated transactions, have %d", n+1, len(l.updated))
	}
	v, _ := l.updated[n][field].(string)
	return v
}

// split returns a field of the n-th recorded create call.
func (l *ledgerStub) split(t *testing.T, n int, field string) string {
	t.Helper()
	if len(l.created) <= n {
		t.Fatalf("want at least %d created transactions, have %d", n+1, len(l.created))
	}
	v, _ := l.created[n][field].(string)
	return v
}

type fakeSettings struct {
	cfg *settings.UserSettings
}

func (f *fakeSettings) Get(context.Context, int64) (*settings.UserSettings, error) {
	if f.cfg == nil {
		return nil, settings.ErrNotConfigured
	}
	return f.cfg, nil
}

func defaultAccountSettings() *settings.UserSettings {
	return &settings.UserSettings{
		UserID:             testUserID,
		BaseURL:            "http://ledger",
		Token:              "token",
		DefaultAccountID:   sql.NullString{String: "1", Valid: true},
		DefaultAccountName: sql.NullString{String: "Wallet", Valid: true},
	}
}

type sentMessage struct {
	text   string
	markup *tele.ReplyMarkup
}

type fakeAPI struct {
	tele.API

	nextID  int
	chat    *tele.Chat
	sent    []sentMessage
	deleted []string
}

func (a *fakeAPI) Send(_ tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error) {
	msg := sentMessage{}
	if s, ok := what.(string); ok {
		msg.text = s
	}
	for _, opt := range opts {
		if m, ok := opt.(*tele.ReplyMarkup); ok {
			msg.markup = m
		}
	}
	a.sent = append(a.sent, msg)
	a.nextID++
	return &tele.Message{ID: a.nextID, Chat: a.chat}, nil
}

func (a *fakeAPI) Delete(msg tele.Editable) error {
	msgID, _ := msg.MessageSig()
	a.deleted = append(a.deleted, msgID)
	return nil
}

// fakeContext covers the Context surface the flow touches. Everything else
// panics through the embedded nil interface, which would fail the test.
type fakeContext struct {
	tele.Context

	api     *fakeAPI
	user    *tele.User
	chat    *tele.Chat
	text    string
	msg     *tele.Message
	store   map[string]any
	sent    []sentMessage
	edits   []sentMessage
	deleted bool
}

func newFakeContext(api *fakeAPI, text string, msg *tele.Message) *fakeContext {
	return &fakeContext{
		api:   api,
		user:  &tele.User{ID: testUserID},
		chat:  api.chat,
		text:  text,
		msg:   msg,
		store: map[string]any{},
	}
}

func (f *fakeContext) Bot() tele.API           { return f.api }
func (f *fakeContext) Update() tele.Update     { return tele.Update{ID: 1} }
func (f *fakeContext) Sender() *tele.User      { return f.user }
func (f *fakeContext) Chat() *tele.Chat        { return f.chat }
func (f *fakeContext) Text() string            { return f.text }
func (f *fakeContext) Message() *tele.Message  { return f.msg }
func (f *fakeContext) Get(key string) any      { return f.store[key] }
func (f *fakeContext) Set(key string, val any) { f.store[key] = val }

func (f *fakeContext) Send(what interface{}, opts ...interface{}) error {
	f.sent = append(f.sent, capture(what, opts))
	return nil
}

func (f *fakeContext) Edit(what interface{}, opts ...interface{}) error {
	f.edits = append(f.edits, capture(what, opts))
	return nil
}

func (f *fakeContext) EditOrSend(what interface{}, opts ...interface{}) error {
	return f.Edit(what, opts...)
}

func (f *fakeContext) Delete() error {
	f.deleted = true
	return nil
}

func capture(what interface{}, opts []interface{}) sentMessage {
	msg := sentMessage{}
	if s, ok := what.(string); ok {
		msg.text = s
	}
	for _, opt := range opts {
		switch o := opt.(type) {
		case *tele.ReplyMarkup:
			msg.markup = o
		case *tele.SendOptions:
			if o.ReplyMarkup != nil {
				msg.markup = o.ReplyMarkup
			}
		}
	}
	return msg
}

type tokenReg struct {
	reg *callbacks.Registry
}

func (r tokenReg) RegisterToken(t *callbacks.Template, h callbacks.HandlerFunc) error {
	return r.reg.Register(t, h)
}

type env struct {
	stub     *ledgerStub
	sessions session.Manager
	flow     *Flow
	tokens   *callbacks.Registry
	steps    *state.Router
	api      *fakeAPI
}

func newEnv(t *testing.T, cfg *settings.UserSettings) *env {
	t.Helper()

	stub := newLedgerStub(t)
	client := firefly.New(stub.srv.URL, "token")

	sessions := session.NewMemoryManager()
	flow := New(sessions, &fakeSettings{cfg: cfg}, func(context.Context, int64) (*firefly.Client, error) {
		return client, nil
	})

	tokens := callbacks.NewRegistry()
	steps := state.NewRouter()
	if err := flow.Register(tokenReg{tokens}, steps); err != nil {
		t.Fatalf("register flow: %v", err)
	}
	if err := tokens.Register(flows.CancelTemplate, flows.CancelHandler(sessions)); err != nil {
		t.Fatalf("register cancel: %v", err)
	}
	if err := tokens.Validate(); err != nil {
		t.Fatalf("token registry validation: %v", err)
	}

	return &env{
		stub:     stub,
		sessions: sessions,
		flow:     flow,
		tokens:   tokens,
		steps:    steps,
		api:      &fakeAPI{chat: &tele.Chat{ID: 100}},
	}
}

func (e *env) textUpdate(t *testing.T, text string) *fakeContext {
	t.Helper()
	c := newFakeContext(e.api, text, &tele.Message{ID: 1, Chat: e.api.chat})

	step := e.sessions.CurrentStep(testUserID)
	if !step.Idle() {
		handled, err := e.steps.Dispatch(c, step)
		if err != nil {
			t.Fatalf("step dispatch: %v", err)
		}
		if !handled {
			t.Fatalf("step %s has no handler", step)
		}
		return c
	}
	if err := e.flow.HandleText(c); err != nil {
		t.Fatalf("HandleText: %v", err)
	}
	return c
}

func (e *env) tap(t *testing.T, token string, msg *tele.Message) *fakeContext {
	t.Helper()
	c := newFakeContext(e.api, "", msg)
	handled, err := e.tokens.Dispatch(c, token)
	if err != nil {
		t.Fatalf("dispatch %q: %v", token, err)
	}
	if !handled {
		t.Fatalf("token %q not handled", token)
	}
	return c
}

func (e *env) mustSession(t *testing.T) *session.Session {
	t.Helper()
	sess, err := e.sessions.Get(context.Background(), testUserID)
	if err != nil {
		t.Fatalf("session get: %v", err)
	}
	return sess
}

func markupTokens(m *tele.ReplyMarkup) []string {
	if m == nil {
		return nil
	}
	var out []string
	for _, row := range m.InlineKeyboard {
		for _, btn := range row {
			out = append(out, btn.Data)
		}
	}
	return out
}

func TestFastPathCommitsWithdrawal(t *testing.T) {
	e := newEnv(t, defaultAccountSettings())

	c := e.textUpdate(t, "Coffee 3.5")

	if got := e.stub.split(t, 0, "type"); got != "withdrawal" {
		t.Fatalf("type = %q", got)
	}
	if got := e.stub.split(t, 0, "amount"); got != "3.5" {
		t.Fatalf("amount = %q", got)
	}
	if got := e.stub.split(t, 0, "description"); got != "Coffee" {
		t.Fatalf("description = %q", got)
	}
	if got := e.stub.split(t, 0, "source_id"); got != "1" {
		t.Fatalf("source_id = %q", got)
	}

	sess := e.mustSession(t)
	if !sess.Step.Idle() || sess.Tx != nil {
		t.Fatalf("session not cleared: %+v", sess)
	}
	if sess.LastAmount != 3.5 {
		t.Fatalf("LastAmount = %v", sess.LastAmount)
	}
	if len(c.sent) == 0 || !strings.HasPrefix(c.sent[0].text, "✅") {
		t.Fatalf("no confirmation sent: %+v", c.sent)
	}
}

func TestAmountOnlyOpensClassificationAndCategoryCommits(t *testing.T) {
	e := newEnv(t, defaultAccountSettings())

	e.textUpdate(t, "12")

	if len(e.stub.created) != 0 {
		t.Fatal("amount-only entry must not commit yet")
	}
	sess := e.mustSession(t)
	if sess.Step != state.StepOf("TX", "CLASSIFY") {
		t.Fatalf("step = %s", sess.Step)
	}
	if sess.Tx == nil || sess.Tx.Amount != 12 {
		t.Fatalf("draft = %+v", sess.Tx)
	}
	if sess.Cleanup == nil {
		t.Fatal("classification prompt not remembered for cleanup")
	}

	if len(e.api.sent) != 1 {
		t.Fatalf("expected one prompt, got %d", len(e.api.sent))
	}
	toks := markupTokens(e.api.sent[0].markup)
	if len(toks) == 0 {
		t.Fatal("classification menu has no buttons")
	}
	hasCategory, hasCancel := false, false
	for _, tok := range toks {
		if tok == "tx|cat|10" {
			hasCategory = true
		}
		if tok == "cancel" {
			hasCancel = true
		}
	}
	if !hasCategory || !hasCancel {
		t.Fatalf("menu tokens missing category or cancel: %v", toks)
	}

	prompt := &tele.Message{ID: sess.Cleanup.MessageID, Chat: e.api.chat}
	c := e.tap(t, "tx|cat|10", prompt)

	if got := e.stub.split(t, 0, "type"); got != "withdrawal" {
		t.Fatalf("type = %q", got)
	}
	if got := e.stub.split(t, 0, "amount"); got != "12" {
		t.Fatalf("amount = %q", got)
	}
	if got := e.stub.split(t, 0, "category_id"); got != "10" {
		t.Fatalf("category_id = %q", got)
	}

	sess = e.mustSession(t)
	if !sess.Step.Idle() || sess.Tx != nil {
		t.Fatalf("session not cleared after commit: %+v", sess)
	}
	if len(c.edits) == 0 || !strings.Contains(c.edits[0].text, "Food") {
		t.Fatalf("confirmation should name the category: %+v", c.edits)
	}
}

func TestDepositPathPicksDestinationAndCommits(t *testing.T) {
	e := newEnv(t, defaultAccountSettings())

	e.textUpdate(t, "12")
	sess := e.mustSession(t)
	prompt := &tele.Message{ID: sess.Cleanup.MessageID, Chat: e.api.chat}

	c := e.tap(t, "tx|kind|deposit", prompt)

	sess = e.mustSession(t)
	if sess.Step != state.StepOf("TX", "DESTINATION") {
		t.Fatalf("step = %s", sess.Step)
	}
	if sess.Tx == nil || sess.Tx.Type != firefly.TypeDeposit {
		t.Fatalf("draft = %+v", sess.Tx)
	}
	queries := strings.Join(e.stub.accountQuery, " ")
	if !strings.Contains(queries, "type=asset") || !strings.Contains(queries, "type=liabilities") {
		t.Fatalf("destination listing must cover asset and liability kinds: %v", e.stub.accountQuery)
	}
	if len(c.edits) == 0 {
		t.Fatal("destination menu not shown")
	}
	hasAsset, hasLiability := false, false
	for _, tok := range markupTokens(c.edits[0].markup) {
		if tok == "tx|acct|1" {
			hasAsset = true
		}
		if tok == "tx|acct|2" {
			hasLiability = true
		}
	}
	if !hasAsset || !hasLiability {
		t.Fatalf("destination menu must offer asset and liability accounts: asset=%v liability=%v", hasAsset, hasLiability)
	}

	c = e.tap(t, "tx|acct|1", prompt)

	if got := e.stub.split(t, 0, "type"); got != "deposit" {
		t.Fatalf("type = %q", got)
	}
	if got := e.stub.split(t, 0, "destination_id"); got != "1" {
		t.Fatalf("destination_id = %q", got)
	}

	sess = e.mustSession(t)
	if !sess.Step.Idle() || sess.Tx != nil {
		t.Fatalf("session not cleared after commit: %+v", sess)
	}
	if len(c.edits) == 0 || !strings.HasPrefix(c.edits[0].text, "✅ *Deposit*") {
		t.Fatalf("confirmation = %+v", c.edits)
	}
}

func TestLedgerFailureKeepsDraftForRetry(t *testing.T) {
	e := newEnv(t, defaultAccountSettings())

	e.textUpdate(t, "12")
	sess := e.mustSession(t)
	prompt := &tele.Message{ID: sess.Cleanup.MessageID, Chat: e.api.chat}

	e.stub.failCreates = true
	c := e.tap(t, "tx|cat|10", prompt)

	if len(e.stub.created) != 0 {
		t.Fatal("failed create must not be recorded")
	}
	if len(c.sent) == 0 || !strings.Contains(c.sent[0].text, "Ledger error") {
		t.Fatalf("failure not reported to the user: %+v", c.sent)
	}
	sess = e.mustSession(t)
	if sess.Step != state.StepOf("TX", "CLASSIFY") {
		t.Fatalf("step after failure = %s, want the flow still armed", sess.Step)
	}
	if sess.Tx == nil || sess.Tx.Amount != 12 {
		t.Fatalf("draft after failure = %+v, want it kept for retry", sess.Tx)
	}

	// The same tap succeeds once the ledger recovers.
	e.stub.failCreates = false
	e.tap(t, "tx|cat|10", prompt)

	if got := e.stub.split(t, 0, "category_id"); got != "10" {
		t.Fatalf("category_id = %q", got)
	}
	sess = e.mustSession(t)
	if !sess.Step.Idle() || sess.Tx != nil {
		t.Fatalf("session not cleared after retry commit: %+v", sess)
	}
}

func TestEditSourceChangeFollowsAccountCurrency(t *testing.T) {
	e := newEnv(t, defaultAccountSettings())

	msg := &tele.Message{ID: 2, Chat: e.api.chat}
	c := e.tap(t, "txe|setsrc|900|1", msg)

	if got := e.stub.update(t, 0, "source_id"); got != "1" {
		t.Fatalf("source_id = %q", got)
	}
	if got := e.stub.update(t, 0, "currency_id"); got != "5" {
		t.Fatalf("currency_id = %q, want the new source account's currency", got)
	}
	if len(c.edits) == 0 || !strings.HasPrefix(c.edits[0].text, "✅ *Withdrawal*") {
		t.Fatalf("confirmation = %+v", c.edits)
	}
}

func TestCommittedTextEscapesMarkdown(t *testing.T) {
	tx := firefly.Transaction{
		Type:         firefly.TypeWithdrawal,
		Amount:       "3.5",
		CurrencyCode: "EUR",
		Description:  "a*b_c",
		CategoryName: "Bills [Q3]",
	}
	text := committedText(tx)
	if !strings.HasPrefix(text, "✅ *Withdrawal* 3.5 EUR") {
		t.Fatalf("committedText = %q", text)
	}
	if !strings.Contains(text, `a\*b\_c`) {
		t.Fatalf("description not escaped: %q", text)
	}
	if !strings.Contains(text, `Bills \[Q3]`) {
		t.Fatalf("category not escaped: %q", text)
	}
}

func TestCancelClearsEverythingWithoutLedgerCalls(t *testing.T) {
	e := newEnv(t, defaultAccountSettings())

	e.textUpdate(t, "12")
	sess := e.mustSession(t)
	prompt := &tele.Message{ID: sess.Cleanup.MessageID, Chat: e.api.chat}

	c := e.tap(t, "cancel", prompt)

	if len(e.stub.created) != 0 {
		t.Fatal("cancel must not create transactions")
	}
	sess = e.mustSession(t)
	if !sess.Step.Idle() || sess.Tx != nil || sess.Cleanup != nil {
		t.Fatalf("cancel left state behind: %+v", sess)
	}
	if !c.deleted {
		t.Fatal("cancel must delete the prompt message")
	}
}
