package transactions

import (
	"fmt"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/ledgerbot/core/telegram/callbacks"
	"github.com/m3rciful/ledgerbot/core/telegram/format"
	"github.com/m3rciful/ledgerbot/core/telegram/helpers"
	"github.com/m3rciful/ledgerbot/core/telegram/keyboard"
	"github.com/m3rciful/ledgerbot/core/telegram/state"
	"github.com/m3rciful/ledgerbot/internal/firefly"
	"github.com/m3rciful/ledgerbot/internal/flows"
	"github.com/m3rciful/ledgerbot/internal/session"
)

// handleEditOpen shows the edit menu for a committed transaction.
func (f *Flow) handleEditOpen(c tele.Context, params map[string]string) error {
	ctx := helpers.BuildContext(c)

	client, err := f.ledger(ctx, c.Sender().ID)
	if err != nil {
		return c.Edit("Connect your ledger first: /settings")
	}
	tx, err := client.GetTransaction(ctx, params["id"])
	if err != nil {
		return c.Send(ledgerErrText(err))
	}

	markup, err := editMenuMarkup(tx.ID)
	if err != nil {
		return err
	}
	return helpers.EditMD(c, editSummary(tx), markup)
}

// editSummary renders the edit header in Markdown with the user-controlled
// fields escaped.
func editSummary(tx firefly.Transaction) string {
	text := fmt.Sprintf("*%s* %s %s\n%s", typeLabel(tx.Type), tx.Amount, tx.CurrencyCode, format.EscapeMarkdown(tx.Description))
	if tx.CategoryName != "" {
		text += "\nCategory: " + format.EscapeMarkdown(tx.CategoryName)
	}
	if tx.SourceName != "" {
		text += "\nFrom: " + format.EscapeMarkdown(tx.SourceName)
	}
	if tx.DestinationName != "" {
		text += "\nTo: " + format.EscapeMarkdown(tx.DestinationName)
	}
	if !tx.Date.IsZero() {
		text += "\nDate: " + tx.Date.Format("2006-01-02")
	}
	return text
}

func editMenuMarkup(txID string) (*tele.ReplyMarkup, error) {
	p := map[string]string{"id": txID}
	row := func(tmpl *callbacks.Template, label string) (keyboard.Button, error) {
		tok, err := tmpl.Instantiate(p)
		if err != nil {
			return keyboard.Button{}, err
		}
		return keyboard.Button{Text: label, Token: tok}, nil
	}

	amt, err := row(tokEditAmount, "✏️ Amount")
	if err != nil {
		return nil, err
	}
	date, err := row(tokEditDate, "📅 Date")
	if err != nil {
		return nil, err
	}
	cat, err := row(tokEditCategory, "🏷 Category")
	if err != nil {
		return nil, err
	}
	src, err := row(tokEditSource, "🏦 Source account")
	if err != nil {
		return nil, err
	}
	del, err := row(tokEditDelete, "🗑 Delete")
	if err != nil {
		return nil, err
	}
	closeTok, err := tokEditClose.Instantiate(nil)
	if err != nil {
		return nil, err
	}

	return keyboard.Markup(
		[]keyboard.Button{amt, date},
		[]keyboard.Button{cat, src},
		[]keyboard.Button{del, {Text: "✖️ Close", Token: closeTok}},
	), nil
}

func (f *Flow) handleEditClose(c tele.Context, _ map[string]string) error {
	return c.Delete()
}

// handleEditAmount arms the step router for the replacement amount.
func (f *Flow) handleEditAmount(c tele.Context, params map[string]string) error {
	return f.armEditInput(c, params["id"], stepEditAmount, "Send the new amount.")
}

// handleEditDate arms the step router for the replacement date.
func (f *Flow) handleEditDate(c tele.Context, params map[string]string) error {
	return f.armEditInput(c, params["id"], stepEditDate, "Send the new date (YYYY-MM-DD).")
}

func (f *Flow) armEditInput(c tele.Context, txID string, step state.Step, prompt string) error {
	ctx := helpers.BuildContext(c)
	msg := c.Message()
	if err := f.sessions.Update(ctx, c.Sender().ID, func(s *session.Session) {
		s.ClearFlow()
		s.Step = step
		s.Edit = &session.EditDraft{TransactionID: txID}
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
	return c.Edit(prompt, keyboard.SingleCancelMarkup(cancelTok))
}

// textEditAmount applies a step-routed amount to the edit target.
func (f *Flow) textEditAmount(c tele.Context) error {
	ctx := helpers.BuildContext(c)
	userID := c.Sender().ID

	sess, err := f.sessions.Get(ctx, userID)
	if err != nil {
		return err
	}
	if sess.Edit == nil {
		return f.abandonEdit(c)
	}

	amount, err := parseAmount(c.Text(), sess.LastAmount)
	if err != nil {
		return c.Send("Can't read that amount. Try again or /cancel.")
	}

	client, err := f.ledger(ctx, userID)
	if err != nil {
		return c.Send("Connect your ledger first: /settings")
	}
	tx, err := client.UpdateTransaction(ctx, sess.Edit.TransactionID, firefly.TransactionSplit{
		Amount: formatAmount(amount),
	})
	if err != nil {
		return c.Send(ledgerErrText(err))
	}

	flows.DeleteCleanup(c, sess.Cleanup)
	if err := f.sessions.Update(ctx, userID, func(s *session.Session) {
		s.ClearFlow()
		s.LastAmount = amount
	}); err != nil {
		return err
	}
	return helpers.SendMD(c, committedText(tx), editMarkup(tx.ID))
}

// textEditDate applies a step-routed date to the edit target.
func (f *Flow) textEditDate(c tele.Context) error {
	ctx := helpers.BuildContext(c)
	userID := c.Sender().ID

	sess, err := f.sessions.Get(ctx, userID)
	if err != nil {
		return err
	}
	if sess.Edit == nil {
		return f.abandonEdit(c)
	}

	when, ok := helpers.ParseFlexibleDate(c.Text())
	if !ok {
		return c.Send("Can't read that date. Try YYYY-MM-DD, or /cancel.")
	}

	client, err := f.ledger(ctx, userID)
	if err != nil {
		return c.Send("Connect your ledger first: /settings")
	}
	tx, err := client.UpdateTransaction(ctx, sess.Edit.TransactionID, firefly.TransactionSplit{
		Date: when.Format("2006-01-02"),
	})
	if err != nil {
		return c.Send(ledgerErrText(err))
	}

	flows.DeleteCleanup(c, sess.Cleanup)
	if err := f.sessions.Update(ctx, userID, func(s *session.Session) {
		s.ClearFlow()
	}); err != nil {
		return err
	}
	return helpers.SendMD(c, committedText(tx), editMarkup(tx.ID))
}

func (f *Flow) abandonEdit(c tele.Context) error {
	if err := f.sessions.Update(helpers.BuildContext(c), c.Sender().ID, func(s *session.Session) {
		s.ClearFlow()
	}); err != nil {
		return err
	}
	return c.Send(expiredMenuText)
}

// handleEditCategory shows the category picker for the edit target.
func (f *Flow) handleEditCategory(c tele.Context, params map[string]string) error {
	return f.showEditCategoryPage(c, params["id"], 1)
}

func (f *Flow) handleEditCatPage(c tele.Context, params map[string]string) error {
	pageNum, err := callbacks.IntParam(params, "page")
	if err != nil {
		return err
	}
	return f.showEditCategoryPage(c, params["id"], pageNum)
}

func (f *Flow) showEditCategoryPage(c tele.Context, txID string, pageNum int) error {
	ctx := helpers.BuildContext(c)

	client, err := f.ledger(ctx, c.Sender().ID)
	if err != nil {
		return c.Edit("Connect your ledger first: /settings")
	}
	page, err := client.ListCategories(ctx, pageNum)
	if err != nil {
		return c.Send(ledgerErrText(err))
	}

	items := make([]keyboard.Item, 0, len(page.Items))
	for _, cat := range page.Items {
		items = append(items, keyboard.Item{
			Label:  cat.Name,
			Params: map[string]string{"id": txID, "cat": cat.ID},
		})
	}
	rows, err := keyboard.Grid(tokEditSetCategory, items, keyboard.GridOptions{})
	if err != nil {
		return err
	}

	pager := keyboard.Pager{Current: page.Pagination.CurrentPage, Total: page.Pagination.TotalPages}
	nav, err := pager.NavRow(tokEditCatPage, map[string]string{"id": txID}, "page")
	if err != nil {
		return err
	}
	if len(nav) > 0 {
		rows = append(rows, nav)
	}
	back, err := tokEditOpen.Instantiate(map[string]string{"id": txID})
	if err != nil {
		return err
	}
	rows = append(rows, []keyboard.Button{{Text: "⬅️ Back", Token: back}})

	return c.Edit("Pick the new category:", keyboard.Markup(rows...))
}

func (f *Flow) handleEditSetCategory(c tele.Context, params map[string]string) error {
	ctx := helpers.BuildContext(c)

	client, err := f.ledger(ctx, c.Sender().ID)
	if err != nil {
		return c.Edit("Connect your ledger first: /settings")
	}
	tx, err := client.UpdateTransaction(ctx, params["id"], firefly.TransactionSplit{
		CategoryID: params["cat"],
	})
	if err != nil {
		return c.Send(ledgerErrText(err))
	}
	return helpers.EditMD(c, committedText(tx), editMarkup(tx.ID))
}

// handleEditSource shows the replacement source account picker.
func (f *Flow) handleEditSource(c tele.Context, params map[string]string) error {
	return f.showEditSourcePage(c, params["id"], 1)
}

func (f *Flow) handleEditAcctPage(c tele.Context, params map[string]string) error {
	pageNum, err := callbacks.IntParam(params, "page")
	if err != nil {
		return err
	}
	return f.showEditSourcePage(c, params["id"], pageNum)
}

func (f *Flow) showEditSourcePage(c tele.Context, txID string, pageNum int) error {
	ctx := helpers.BuildContext(c)

	client, err := f.ledger(ctx, c.Sender().ID)
	if err != nil {
		return c.Edit("Connect your ledger first: /settings")
	}
	page, err := client.ListAccounts(ctx, pageNum, firefly.AccountAsset)
	if err != nil {
		return c.Send(ledgerErrText(err))
	}

	items := make([]keyboard.Item, 0, len(page.Items))
	for _, acct := range page.Items {
		items = append(items, keyboard.Item{
			Label:  acct.Name,
			Params: map[string]string{"id": txID, "acct": acct.ID},
		})
	}
	rows, err := keyboard.Grid(tokEditSetSource, items, keyboard.GridOptions{Reverse: true})
	if err != nil {
		return err
	}

	pager := keyboard.Pager{Current: page.Pagination.CurrentPage, Total: page.Pagination.TotalPages}
	nav, err := pager.NavRow(tokEditAcctPage, map[string]string{"id": txID}, "page")
	if err != nil {
		return err
	}
	if len(nav) > 0 {
		rows = append(rows, nav)
	}
	back, err := tokEditOpen.Instantiate(map[string]string{"id": txID})
	if err != nil {
		return err
	}
	rows = append(rows, []keyboard.Button{{Text: "⬅️ Back", Token: back}})

	return c.Edit("Pick the new source account:", keyboard.Markup(rows...))
}

// handleEditSetSource changes the source account. The new account's currency
// is re-fetched and written into the update so the transaction currency
// stays consistent with its source.
func (f *Flow) handleEditSetSource(c tele.Context, params map[string]string) error {
	ctx := helpers.BuildContext(c)

	client, err := f.ledger(ctx, c.Sender().ID)
	if err != nil {
		return c.Edit("Connect your ledger first: /settings")
	}
	acct, err := client.GetAccount(ctx, params["acct"])
	if err != nil {
		return c.Send(ledgerErrText(err))
	}
	tx, err := client.UpdateTransaction(ctx, params["id"], firefly.TransactionSplit{
		SourceID:   acct.ID,
		CurrencyID: acct.CurrencyID,
	})
	if err != nil {
		return c.Send(ledgerErrText(err))
	}
	return helpers.EditMD(c, committedText(tx), editMarkup(tx.ID))
}

// handleEditDelete asks for confirmation before deleting.
func (f *Flow) handleEditDelete(c tele.Context, params map[string]string) error {
	yes, err := tokEditDeleteOK.Instantiate(map[string]string{"id": params["id"]})
	if err != nil {
		return err
	}
	keep, err := tokEditOpen.Instantiate(map[string]string{"id": params["id"]})
	if err != nil {
		return err
	}
	return c.Edit("Delete this transaction?", keyboard.Markup([]keyboard.Button{
		{Text: "🗑 Yes, delete", Token: yes},
		{Text: "⬅️ Keep", Token: keep},
	}))
}

func (f *Flow) handleEditDeleteOK(c tele.Context, params map[string]string) error {
	ctx := helpers.BuildContext(c)

	client, err := f.ledger(ctx, c.Sender().ID)
	if err != nil {
		return c.Edit("Connect your ledger first: /settings")
	}
	if err := client.DeleteTransaction(ctx, params["id"]); err != nil {
		return c.Send(ledgerErrText(err))
	}
	return c.Edit("🗑 Deleted.")
}
