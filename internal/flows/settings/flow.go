// Package settings is the conversation around the per-user ledger
// connection: base URL and access token entry, a connectivity check, and
// the default account used by fast-path entry.
package settings

import (
	"context"
	"errors"
	"net/url"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/ledgerbot/core/telegram/callbacks"
	"github.com/m3rciful/ledgerbot/core/telegram/format"
	"github.com/m3rciful/ledgerbot/core/telegram/helpers"
	"github.com/m3rciful/ledgerbot/core/telegram/keyboard"
	"github.com/m3rciful/ledgerbot/core/telegram/state"
	"github.com/m3rciful/ledgerbot/internal/firefly"
	"github.com/m3rciful/ledgerbot/internal/flows"
	"github.com/m3rciful/ledgerbot/internal/session"
	store "github.com/m3rciful/ledgerbot/internal/settings"
)

var (
	tokMenu     = callbacks.MustParse("set|menu")
	tokConnect  = callbacks.MustParse("set|conn")
	tokAccount  = callbacks.MustParse("set|acct")
	tokAcctPage = callbacks.MustParse("set|apage|${page}")
	tokPick     = callbacks.MustParse("set|pick|${id}")
	tokCheck    = callbacks.MustParse("set|check")
	tokClear    = callbacks.MustParse("set|clear")
	tokClose    = callbacks.MustParse("set|close")
)

var (
	stepURL   = state.StepOf("SET", "URL")
	stepToken = state.StepOf("SET", "TOKEN")
)

// Registerer is the token registration surface of the bot registry.
type Registerer interface {
	RegisterToken(t *callbacks.Template, h callbacks.HandlerFunc) error
}

// ConnectionStore persists the per-user ledger connection and defaults.
type ConnectionStore interface {
	Get(ctx context.Context, userID int64) (*store.UserSettings, error)
	Upsert(ctx context.Context, userID int64, baseURL, token string) error
	SetDefaultAccount(ctx context.Context, userID int64, accountID, accountName string) error
	ClearDefaultAccount(ctx context.Context, userID int64) error
}

type Flow struct {
	sessions session.Manager
	store    ConnectionStore
	ledger   flows.LedgerFunc
}

func New(sessions session.Manager, st ConnectionStore, ledger flows.LedgerFunc) *Flow {
	return &Flow{sessions: sessions, store: st, ledger: ledger}
}

func (f *Flow) Register(reg Registerer, steps *state.Router) error {
	return errors.Join(
		reg.RegisterToken(tokMenu, f.handleMenu),
		reg.RegisterToken(tokConnect, f.handleConnect),
		reg.RegisterToken(tokAccount, f.handleAccount),
		reg.RegisterToken(tokAcctPage, f.handleAcctPage),
		reg.RegisterToken(tokPick, f.handlePick),
		reg.RegisterToken(tokCheck, f.handleCheck),
		reg.RegisterToken(tokClear, f.handleClear),
		reg.RegisterToken(tokClose, f.handleClose),

		steps.Register(stepURL, f.textURL),
		steps.Register(stepToken, f.textToken),
	)
}

// Show is the /settings command entry.
func (f *Flow) Show(c tele.Context) error {
	return f.showMenu(c)
}

// MenuToken is the token opening the settings menu, for menu buttons living
// outside this package.
func MenuToken() (string, error) {
	return tokMenu.Instantiate(nil)
}

func (f *Flow) handleMenu(c tele.Context, _ map[string]string) error {
	return f.showMenu(c)
}

func (f *Flow) showMenu(c tele.Context) error {
	ctx := helpers.BuildContext(c)

	var lines []string
	cfg, err := f.store.Get(ctx, c.Sender().ID)
	switch {
	case errors.Is(err, store.ErrNotConfigured):
		lines = append(lines, "No ledger connected yet.")
	case err != nil:
		return err
	default:
		lines = append(lines, "Ledger: "+format.EscapeMarkdown(cfg.BaseURL))
		lines = append(lines, "Token: "+maskToken(cfg.Token))
		if cfg.HasDefaultAccount() {
			lines = append(lines, "Default account: "+format.EscapeMarkdown(cfg.DefaultAccountName.String))
		} else {
			lines = append(lines, "Default account: not set")
		}
	}

	markup, err := menuMarkup(cfg.HasDefaultAccount())
	if err != nil {
		return err
	}
	return helpers.EditOrSendMD(c, strings.Join(lines, "\n"), markup)
}

func menuMarkup(hasDefault bool) (*tele.ReplyMarkup, error) {
	conn, err := tokConnect.Instantiate(nil)
	if err != nil {
		return nil, err
	}
	acct, err := tokAccount.Instantiate(nil)
	if err != nil {
		return nil, err
	}
	check, err := tokCheck.Instantiate(nil)
	if err != nil {
		return nil, err
	}
	closeTok, err := tokClose.Instantiate(nil)
	if err != nil {
		return nil, err
	}

	rows := [][]keyboard.Button{
		{{Text: "🔗 Connect ledger", Token: conn}, {Text: "🏦 Default account", Token: acct}},
		{{Text: "🩺 Check connection", Token: check}},
	}
	if hasDefault {
		clearTok, err := tokClear.Instantiate(nil)
		if err != nil {
			return nil, err
		}
		rows = append(rows, []keyboard.Button{{Text: "🚫 Clear default account", Token: clearTok}})
	}
	rows = append(rows, []keyboard.Button{{Text: "✖️ Close", Token: closeTok}})
	return keyboard.Markup(rows...), nil
}

// maskToken keeps only the tail of a secret visible.
func maskToken(token string) string {
	if len(token) <= 4 {
		return "••••"
	}
	return "••••" + token[len(token)-4:]
}

func (f *Flow) handleConnect(c tele.Context, _ map[string]string) error {
	ctx := helpers.BuildContext(c)
	msg := c.Message()
	if err := f.sessions.Update(ctx, c.Sender().ID, func(s *session.Session) {
		s.ClearFlow()
		s.Step = stepURL
		s.Settings = &session.SettingsDraft{}
		if msg != nil {
			s.Cleanup = &session.Cleanup{ChatID: msg.Chat.ID, MessageID: msg.ID}
		}
	}); err != nil {
		return err
	}

	cancelTok, err := flows.CancelTemplate.Instantiate(nil)
	if err != nil {
		return err
	}
	return c.Edit("Send your ledger base URL (https://…).", keyboard.SingleCancelMarkup(cancelTok))
}

// textURL stores the base URL and asks for the token next.
func (f *Flow) textURL(c tele.Context) error {
	ctx := helpers.BuildContext(c)

	raw := strings.TrimSpace(c.Text())
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return c.Send("That does not look like a URL. Send it as https://host, or /cancel.")
	}

	if err := f.sessions.Update(ctx, c.Sender().ID, func(s *session.Session) {
		s.Step = stepToken
		s.Settings = &session.SettingsDraft{BaseURL: strings.TrimRight(raw, "/")}
	}); err != nil {
		return err
	}
	return c.Send("Now send your personal access token. The message will be deleted.")
}

// textToken verifies the pair against the ledger and persists it. The
// message holding the token is deleted either way.
func (f *Flow) textToken(c tele.Context) error {
	ctx := helpers.BuildContext(c)
	userID := c.Sender().ID

	defer func() { _ = c.Delete() }()

	sess, err := f.sessions.Get(ctx, userID)
	if err != nil {
		return err
	}
	if sess.Settings == nil || sess.Settings.BaseURL == "" {
		if err := f.sessions.Update(ctx, userID, func(s *session.Session) { s.ClearFlow() }); err != nil {
			return err
		}
		return c.Send("This setup has expired. Open /settings again.")
	}

	token := strings.TrimSpace(c.Text())
	if token == "" {
		return c.Send("The token cannot be empty. Try again or /cancel.")
	}

	client := firefly.New(sess.Settings.BaseURL, token)
	user, err := client.CurrentUser(ctx)
	if err != nil {
		// Step and draft stay armed so a corrected token can be retried.
		return c.Send("Could not connect: " + err.Error())
	}

	if err := f.store.Upsert(ctx, userID, sess.Settings.BaseURL, token); err != nil {
		return err
	}

	flows.DeleteCleanup(c, sess.Cleanup)
	if err := f.sessions.Update(ctx, userID, func(s *session.Session) {
		s.ClearFlow()
	}); err != nil {
		return err
	}
	return c.Send("✅ Connected as " + user.Email + ". Pick a default account in /settings.")
}

func (f *Flow) handleAccount(c tele.Context, _ map[string]string) error {
	return f.showAccountPage(c, 1)
}

func (f *Flow) handleAcctPage(c tele.Context, params map[string]string) error {
	pageNum, err := callbacks.IntParam(params, "page")
	if err != nil {
		return err
	}
	return f.showAccountPage(c, pageNum)
}

func (f *Flow) showAccountPage(c tele.Context, pageNum int) error {
	ctx := helpers.BuildContext(c)

	client, err := f.ledger(ctx, c.Sender().ID)
	if err != nil {
		return c.Edit("Connect your ledger first.")
	}
	page, err := client.ListAccounts(ctx, pageNum, firefly.AccountAsset)
	if err != nil {
		return c.Send(ledgerErrText(err))
	}

	items := make([]keyboard.Item, 0, len(page.Items))
	for _, acct := range page.Items {
		items = append(items, keyboard.Item{
			Label:  acct.Name,
			Params: map[string]string{"id": acct.ID},
		})
	}
	rows, err := keyboard.Grid(tokPick, items, keyboard.GridOptions{})
	if err != nil {
		return err
	}

	pager := keyboard.Pager{Current: page.Pagination.CurrentPage, Total: page.Pagination.TotalPages}
	nav, err := pager.NavRow(tokAcctPage, nil, "page")
	if err != nil {
		return err
	}
	if len(nav) > 0 {
		rows = append(rows, nav)
	}
	back, err := tokMenu.Instantiate(nil)
	if err != nil {
		return err
	}
	rows = append(rows, []keyboard.Button{{Text: "⬅️ Back", Token: back}})

	text := "Pick the default account for quick entries:"
	if len(page.Items) == 0 {
		text = "No asset accounts found in the ledger."
	}
	return c.Edit(text, keyboard.Markup(rows...))
}

func (f *Flow) handlePick(c tele.Context, params map[string]string) error {
	ctx := helpers.BuildContext(c)
	userID := c.Sender().ID

	client, err := f.ledger(ctx, userID)
	if err != nil {
		return c.Edit("Connect your ledger first.")
	}
	acct, err := client.GetAccount(ctx, params["id"])
	if err != nil {
		return c.Send(ledgerErrText(err))
	}
	if err := f.store.SetDefaultAccount(ctx, userID, acct.ID, acct.Name); err != nil {
		return err
	}
	return f.showMenu(c)
}

func (f *Flow) handleClear(c tele.Context, _ map[string]string) error {
	ctx := helpers.BuildContext(c)
	if err := f.store.ClearDefaultAccount(ctx, c.Sender().ID); err != nil {
		return err
	}
	return f.showMenu(c)
}

// handleCheck calls the ledger's current-user endpoint with the stored
// credentials.
func (f *Flow) handleCheck(c tele.Context, _ map[string]string) error {
	ctx := helpers.BuildContext(c)

	client, err := f.ledger(ctx, c.Sender().ID)
	if err != nil {
		return c.Edit("Connect your ledger first.")
	}
	user, err := client.CurrentUser(ctx)

	back, tokErr := tokMenu.Instantiate(nil)
	if tokErr != nil {
		return tokErr
	}
	markup := keyboard.Markup([]keyboard.Button{{Text: "⬅️ Back", Token: back}})

	if err != nil {
		return c.Edit("❌ Connection failed: "+err.Error(), markup)
	}
	return c.Edit("✅ Connected as "+user.Email+".", markup)
}

func (f *Flow) handleClose(c tele.Context, _ map[string]string) error {
	return c.Delete()
}

func ledgerErrText(err error) string {
	return "⚠️ Ledger error: " + err.Error()
}
