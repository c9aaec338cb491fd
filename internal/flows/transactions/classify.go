package transactions

import (
	"context"
	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/ledgerbot/core/logger"
	"github.com/m3rciful/ledgerbot/core/telegram/callbacks"
	"github.com/m3rciful/ledgerbot/core/telegram/helpers"
	"github.com/m3rciful/ledgerbot/core/telegram/keyboard"
	"github.com/m3rciful/ledgerbot/internal/firefly"
	"github.com/m3rciful/ledgerbot/internal/flows"
	"github.com/m3rciful/ledgerbot/internal/session"
)

const expiredMenuText = "This menu has expired. Send the amount again."

// handleCategory commits the draft as a withdrawal in the tapped category.
func (f *Flow) handleCategory(c tele.Context, params map[string]string) error {
	ctx := helpers.BuildContext(c)
	userID := c.Sender().ID

	sess, err := f.sessions.Get(ctx, userID)
	if err != nil {
		return err
	}
	if sess.Tx == nil {
		return c.Edit(expiredMenuText)
	}
	draft := *sess.Tx

	client, err := f.ledger(ctx, userID)
	if err != nil {
		return c.Edit("Connect your ledger first: /settings")
	}

	split := firefly.TransactionSplit{
		Type:        firefly.TypeWithdrawal,
		Amount:      formatAmount(draft.Amount),
		Description: draft.Description,
		CategoryID:  params["id"],
	}
	if cfg, err := f.store.Get(ctx, userID); err == nil && cfg.HasDefaultAccount() {
		split.SourceID = cfg.DefaultAccountID.String
	}

	tx, err := client.CreateTransaction(ctx, split)
	if err != nil {
		// Step and draft stay put so the user can retry the tap.
		return c.Send(ledgerErrText(err))
	}

	if err := f.finishCommit(c, draft.Amount); err != nil {
		return err
	}
	logger.Info(ctx, "flow.tx", "tx.commit",
		slog.String("tx_id", tx.ID),
		slog.String("type", string(tx.Type)),
	)
	return helpers.EditMD(c, committedText(tx), editMarkup(tx.ID))
}

// handleKind switches the draft to a deposit or transfer and asks for the
// destination account.
func (f *Flow) handleKind(c tele.Context, params map[string]string) error {
	ctx := helpers.BuildContext(c)
	userID := c.Sender().ID

	kind := firefly.TransactionType(params["kind"])
	if kind != firefly.TypeDeposit && kind != firefly.TypeTransfer {
		return c.Edit(expiredMenuText)
	}

	sess, err := f.sessions.Get(ctx, userID)
	if err != nil {
		return err
	}
	if sess.Tx == nil {
		return c.Edit(expiredMenuText)
	}

	client, err := f.ledger(ctx, userID)
	if err != nil {
		return c.Edit("Connect your ledger first: /settings")
	}

	page, err := destinationPage(ctx, client, 1)
	if err != nil {
		return c.Send(ledgerErrText(err))
	}
	markup, err := destAccountMarkup(page, kind)
	if err != nil {
		return err
	}

	if err := f.sessions.Update(ctx, userID, func(s *session.Session) {
		if s.Tx != nil {
			s.Tx.Type = kind
		}
		s.Step = stepDestination
		s.Pager = &session.PagerState{
			Page:   page.Pagination.CurrentPage,
			Total:  page.Pagination.TotalPages,
			Filter: string(kind),
		}
	}); err != nil {
		return err
	}
	return c.Edit("Choose the destination account:", markup)
}

// handleCatPage re-renders the classification menu on another page.
func (f *Flow) handleCatPage(c tele.Context, params map[string]string) error {
	ctx := helpers.BuildContext(c)
	userID := c.Sender().ID

	pageNum, err := callbacks.IntParam(params, "page")
	if err != nil {
		return err
	}
	client, err := f.ledger(ctx, userID)
	if err != nil {
		return c.Edit("Connect your ledger first: /settings")
	}
	page, err := client.ListCategories(ctx, pageNum)
	if err != nil {
		return c.Send(ledgerErrText(err))
	}
	markup, err := classifyMarkup(page)
	if err != nil {
		return err
	}
	if err := f.sessions.Update(ctx, userID, func(s *session.Session) {
		s.Pager = &session.PagerState{Page: pageNum, Total: page.Pagination.TotalPages}
	}); err != nil {
		return err
	}
	return c.Edit(c.Message().Text, markup)
}

// handleAcctPage pages through the destination account menu, carrying the
// draft kind in the token so the listing filter survives navigation.
func (f *Flow) handleAcctPage(c tele.Context, params map[string]string) error {
	ctx := helpers.BuildContext(c)
	userID := c.Sender().ID

	pageNum, err := callbacks.IntParam(params, "page")
	if err != nil {
		return err
	}
	kind := firefly.TransactionType(params["kind"])

	client, err := f.ledger(ctx, userID)
	if err != nil {
		return c.Edit("Connect your ledger first: /settings")
	}
	page, err := destinationPage(ctx, client, pageNum)
	if err != nil {
		return c.Send(ledgerErrText(err))
	}
	markup, err := destAccountMarkup(page, kind)
	if err != nil {
		return err
	}
	if err := f.sessions.Update(ctx, userID, func(s *session.Session) {
		s.Pager = &session.PagerState{Page: pageNum, Total: page.Pagination.TotalPages, Filter: string(kind)}
	}); err != nil {
		return err
	}
	return c.Edit(c.Message().Text, markup)
}

// handleAccount commits the draft against the tapped destination account.
func (f *Flow) handleAccount(c tele.Context, params map[string]string) error {
	ctx := helpers.BuildContext(c)
	userID := c.Sender().ID

	sess, err := f.sessions.Get(ctx, userID)
	if err != nil {
		return err
	}
	if sess.Tx == nil {
		return c.Edit(expiredMenuText)
	}
	draft := *sess.Tx

	client, err := f.ledger(ctx, userID)
	if err != nil {
		return c.Edit("Connect your ledger first: /settings")
	}

	dest, err := client.GetAccount(ctx, params["id"])
	if err != nil {
		return c.Send(ledgerErrText(err))
	}

	typ := draft.Type
	if typ == "" {
		typ = firefly.InferType(firefly.AccountAsset, dest.Kind)
	}

	split := firefly.TransactionSplit{
		Type:          typ,
		Amount:        formatAmount(draft.Amount),
		Description:   draft.Description,
		DestinationID: dest.ID,
	}
	if typ == firefly.TypeTransfer {
		cfg, err := f.store.Get(ctx, userID)
		if err != nil || !cfg.HasDefaultAccount() {
			return c.Send("Transfers need a default account. Set one in /settings.")
		}
		split.SourceID = cfg.DefaultAccountID.String
	}

	tx, err := client.CreateTransaction(ctx, split)
	if err != nil {
		return c.Send(ledgerErrText(err))
	}

	if err := f.finishCommit(c, draft.Amount); err != nil {
		return err
	}
	logger.Info(ctx, "flow.tx", "tx.commit",
		slog.String("tx_id", tx.ID),
		slog.String("type", string(tx.Type)),
	)
	return helpers.EditMD(c, committedText(tx), editMarkup(tx.ID))
}

// finishCommit drops the flow state and remembers the committed amount as
// the base for relative corrections.
func (f *Flow) finishCommit(c tele.Context, amount float64) error {
	return f.sessions.Update(helpers.BuildContext(c), c.Sender().ID, func(s *session.Session) {
		s.ClearFlow()
		s.LastAmount = amount
	})
}

// destinationPage merges the asset and liability listings for one page.
// The ledger's type filter takes a single value, so a page is two calls:
// liabilities after assets, letting loans be picked as targets too.
func destinationPage(ctx context.Context, client *firefly.Client, pageNum int) (firefly.Page[firefly.Account], error) {
	assets, err := client.ListAccounts(ctx, pageNum, firefly.AccountAsset)
	if err != nil {
		return firefly.Page[firefly.Account]{}, err
	}
	liabilities, err := client.ListAccounts(ctx, pageNum, firefly.AccountLiability)
	if err != nil {
		return firefly.Page[firefly.Account]{}, err
	}

	merged := assets
	merged.Items = append(merged.Items, liabilities.Items...)
	if liabilities.Pagination.TotalPages > merged.Pagination.TotalPages {
		merged.Pagination.TotalPages = liabilities.Pagination.TotalPages
	}
	merged.Pagination.CurrentPage = pageNum
	return merged, nil
}

func destAccountMarkup(page firefly.Page[firefly.Account], kind firefly.TransactionType) (*tele.ReplyMarkup, error) {
	items := make([]keyboard.Item, 0, len(page.Items))
	for _, acct := range page.Items {
		items = append(items, keyboard.Item{
			Label:  acct.Name,
			Params: map[string]string{"id": acct.ID},
		})
	}

	// Reversed so the top accounts render closest to the thumb.
	rows, err := keyboard.Grid(tokAccount, items, keyboard.GridOptions{Reverse: true})
	if err != nil {
		return nil, err
	}

	pager := keyboard.Pager{Current: page.Pagination.CurrentPage, Total: page.Pagination.TotalPages}
	nav, err := pager.NavRow(tokAcctPage, map[string]string{"kind": string(kind)}, "page")
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
