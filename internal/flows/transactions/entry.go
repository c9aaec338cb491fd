package transactions

import (
	"errors"
	"fmt"
	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/ledgerbot/core/logger"
	"github.com/m3rciful/ledgerbot/core/telegram/format"
	"github.com/m3rciful/ledgerbot/core/telegram/helpers"
	"github.com/m3rciful/ledgerbot/core/telegram/keyboard"
	"github.com/m3rciful/ledgerbot/internal/firefly"
	"github.com/m3rciful/ledgerbot/internal/flows"
	"github.com/m3rciful/ledgerbot/internal/session"
	"github.com/m3rciful/ledgerbot/internal/settings"
)

const entryHint = "Send an amount (\"12\") or a description with an amount (\"Coffee 3.5\")."

// HandleText is the idle free-text entry point. Text that parses as an
// entry opens a transaction draft; with a description and a configured
// default account the withdrawal is committed in one step.
func (f *Flow) HandleText(c tele.Context) error {
	userID := c.Sender().ID
	ctx := helpers.BuildContext(c)

	sess, err := f.sessions.Get(ctx, userID)
	if err != nil {
		return err
	}

	description, amount, ok := parseEntry(c.Text(), sess.LastAmount)
	if !ok {
		return c.Send(entryHint)
	}

	cfg, err := f.store.Get(ctx, userID)
	if errors.Is(err, settings.ErrNotConfigured) {
		return c.Send("Connect your ledger first: /settings")
	}
	if err != nil {
		return err
	}

	client, err := f.ledger(ctx, userID)
	if err != nil {
		return c.Send("Connect your ledger first: /settings")
	}

	if description != "" && cfg.HasDefaultAccount() {
		return f.commitFastPath(c, client, cfg, description, amount)
	}

	return f.showClassification(c, client, amount, description)
}

func (f *Flow) commitFastPath(c tele.Context, client *firefly.Client, cfg *settings.UserSettings, description string, amount float64) error {
	ctx := helpers.BuildContext(c)
	userID := c.Sender().ID

	tx, err := client.CreateTransaction(ctx, firefly.TransactionSplit{
		Type:        firefly.TypeWithdrawal,
		Amount:      formatAmount(amount),
		Description: description,
		SourceID:    cfg.DefaultAccountID.String,
	})
	if err != nil {
		return c.Send(ledgerErrText(err))
	}

	if err := f.sessions.Update(ctx, userID, func(s *session.Session) {
		s.ClearFlow()
		s.LastAmount = amount
	}); err != nil {
		return err
	}

	logger.Info(ctx, "flow.tx", "tx.commit",
		slog.String("tx_id", tx.ID),
		slog.String("type", string(tx.Type)),
	)
	return helpers.SendMD(c, committedText(tx), editMarkup(tx.ID))
}

// showClassification stores the draft and shows the category menu, the
// slow entry path.
func (f *Flow) showClassification(c tele.Context, client *firefly.Client, amount float64, description string) error {
	ctx := helpers.BuildContext(c)
	userID := c.Sender().ID

	page, err := client.ListCategories(ctx, 1)
	if err != nil {
		return c.Send(ledgerErrText(err))
	}

	markup, err := classifyMarkup(page)
	if err != nil {
		return err
	}

	msg, err := c.Bot().Send(c.Chat(),
		fmt.Sprintf("Amount %s. Pick a category, or move it:", formatAmount(amount)),
		markup)
	if err != nil {
		return err
	}

	return f.sessions.Update(ctx, userID, func(s *session.Session) {
		s.ClearFlow()
		s.Step = stepClassify
		s.Tx = &session.TxDraft{Amount: amount, Description: description}
		s.Pager = &session.PagerState{Page: page.Pagination.CurrentPage, Total: page.Pagination.TotalPages}
		flows.RememberPrompt(s, msg)
	})
}

// restartEntry handles free text arriving while a menu is open: the open
// prompt is dropped and the text is treated as a fresh entry.
func (f *Flow) restartEntry(c tele.Context) error {
	userID := c.Sender().ID
	ctx := helpers.BuildContext(c)

	sess, err := f.sessions.Get(ctx, userID)
	if err != nil {
		return err
	}
	flows.DeleteCleanup(c, sess.Cleanup)

	if err := f.sessions.Update(ctx, userID, func(s *session.Session) {
		s.ClearFlow()
	}); err != nil {
		return err
	}
	return f.HandleText(c)
}

// classifyMarkup renders the classification menu: paged two-column category
// grid, the deposit/transfer switches, navigation, and cancel.
func classifyMarkup(page firefly.Page[firefly.Category]) (*tele.ReplyMarkup, error) {
	items := make([]keyboard.Item, 0, len(page.Items))
	for _, cat := range page.Items {
		items = append(items, keyboard.Item{
			Label:  cat.Name,
			Params: map[string]string{"id": cat.ID},
		})
	}

	rows, err := keyboard.Grid(tokCategory, items, keyboard.GridOptions{})
	if err != nil {
		return nil, err
	}

	depositTok, err := tokKind.Instantiate(map[string]string{"kind": string(firefly.TypeDeposit)})
	if err != nil {
		return nil, err
	}
	transferTok, err := tokKind.Instantiate(map[string]string{"kind": string(firefly.TypeTransfer)})
	if err != nil {
		return nil, err
	}
	rows = append(rows, []keyboard.Button{
		{Text: "➕ To deposits", Token: depositTok},
		{Text: "🔁 To transfers", Token: transferTok},
	})

	pager := keyboard.Pager{Current: page.Pagination.CurrentPage, Total: page.Pagination.TotalPages}
	nav, err := pager.NavRow(tokCatPage, nil, "page")
	if err != nil {
		return nil, err
	}
	if len(nav) > 0 {
		rows = append(rows, nav)
	}

	cancelTok, err := flows.CancelTemplate.Instantiate(nil)
	if err != nil {
		return nil, err
	}
	rows = append(rows, []keyboard.Button{keyboard.CancelButton(cancelTok)})

	return keyboard.Markup(rows...), nil
}

func ledgerErrText(err error) string {
	return "⚠️ Ledger error: " + err.Error()
}

// committedText renders a commit confirmation in Markdown. Description and
// category come from user input and the ledger, so both are escaped.
func committedText(tx firefly.Transaction) string {
	text := fmt.Sprintf("✅ *%s* %s", typeLabel(tx.Type), tx.Amount)
	if tx.CurrencyCode != "" {
		text += " " + tx.CurrencyCode
	}
	if tx.Description != "" {
		text += " · " + format.EscapeMarkdown(tx.Description)
	}
	if tx.CategoryName != "" {
		text += " · " + format.EscapeMarkdown(tx.CategoryName)
	}
	return text
}

func typeLabel(t firefly.TransactionType) string {
	switch t {
	case firefly.TypeDeposit:
		return "Deposit"
	case firefly.TypeTransfer:
		return "Transfer"
	default:
		return "Withdrawal"
	}
}

// editMarkup is attached to commit confirmations so the fresh transaction
// can be adjusted or removed in place.
func editMarkup(txID string) *tele.ReplyMarkup {
	edit, err := tokEditOpen.Instantiate(map[string]string{"id": txID})
	if err != nil {
		return nil
	}
	del, err := tokEditDelete.Instantiate(map[string]string{"id": txID})
	if err != nil {
		return nil
	}
	return keyboard.Markup([]keyboard.Button{
		{Text: "✏️ Edit", Token: edit},
		{Text: "🗑 Delete", Token: del},
	})
}
