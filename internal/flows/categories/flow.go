// Package categories implements category management: a paged listing with
// per-category actions, creation and renaming over step-routed text input,
// and deletion behind an inline confirmation.
package categories

import (
	"errors"
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
)

var (
	tokList     = callbacks.MustParse("cat|list|${page}")
	tokOpen     = callbacks.MustParse("cat|open|${id}")
	tokNew      = callbacks.MustParse("cat|new")
	tokRename   = callbacks.MustParse("cat|ren|${id}")
	tokDelete   = callbacks.MustParse("cat|del|${id}")
	tokDeleteOK = callbacks.MustParse("cat|delok|${id}")
	tokClose    = callbacks.MustParse("cat|close")
)

var (
	stepName   = state.StepOf("CAT", "NAME")
	stepRename = state.StepOf("CAT", "RENAME")
)

// Registerer is the token registration surface of the bot registry.
type Registerer interface {
	RegisterToken(t *callbacks.Template, h callbacks.HandlerFunc) error
}

type Flow struct {
	sessions session.Manager
	ledger   flows.LedgerFunc
}

func New(sessions session.Manager, ledger flows.LedgerFunc) *Flow {
	return &Flow{sessions: sessions, ledger: ledger}
}

func (f *Flow) Register(reg Registerer, steps *state.Router) error {
	return errors.Join(
		reg.RegisterToken(tokList, f.handleList),
		reg.RegisterToken(tokOpen, f.handleOpen),
		reg.RegisterToken(tokNew, f.handleNew),
		reg.RegisterToken(tokRename, f.handleRename),
		reg.RegisterToken(tokDelete, f.handleDelete),
		reg.RegisterToken(tokDeleteOK, f.handleDeleteOK),
		reg.RegisterToken(tokClose, f.handleClose),

		steps.Register(stepName, f.textName),
		steps.Register(stepRename, f.textRename),
	)
}

// Show is the /categories command entry: the first listing page.
func (f *Flow) Show(c tele.Context) error {
	return f.showList(c, 1)
}

// ListToken is the token opening the first listing page, for menu buttons
// living outside this package.
func ListToken() (string, error) {
	return tokList.Instantiate(map[string]string{"page": "1"})
}

func (f *Flow) handleList(c tele.Context, params map[string]string) error {
	pageNum, err := callbacks.IntParam(params, "page")
	if err != nil {
		return err
	}
	return f.showList(c, pageNum)
}

func (f *Flow) showList(c tele.Context, pageNum int) error {
	ctx := helpers.BuildContext(c)

	client, err := f.ledger(ctx, c.Sender().ID)
	if err != nil {
		return c.Send("Connect your ledger first: /settings")
	}
	page, err := client.ListCategories(ctx, pageNum)
	if err != nil {
		return c.Send(ledgerErrText(err))
	}

	markup, err := listMarkup(page)
	if err != nil {
		return err
	}

	text := "Your categories:"
	if len(page.Items) == 0 {
		text = "No categories yet."
	}
	return c.EditOrSend(text, markup)
}

func listMarkup(page firefly.Page[firefly.Category]) (*tele.ReplyMarkup, error) {
	items := make([]keyboard.Item, 0, len(page.Items))
	for _, cat := range page.Items {
		items = append(items, keyboard.Item{
			Label:  cat.Name,
			Params: map[string]string{"id": cat.ID},
		})
	}
	rows, err := keyboard.Grid(tokOpen, items, keyboard.GridOptions{})
	if err != nil {
		return nil, err
	}

	pager := keyboard.Pager{Current: page.Pagination.CurrentPage, Total: page.Pagination.TotalPages}
	nav, err := pager.NavRow(tokList, nil, "page")
	if err != nil {
		return nil, err
	}
	if len(nav) > 0 {
		rows = append(rows, nav)
	}

	newTok, err := tokNew.Instantiate(nil)
	if err != nil {
		return nil, err
	}
	closeTok, err := tokClose.Instantiate(nil)
	if err != nil {
		return nil, err
	}
	rows = append(rows,
		[]keyboard.Button{{Text: "➕ New category", Token: newTok}},
		[]keyboard.Button{{Text: "✖️ Close", Token: closeTok}},
	)
	return keyboard.Markup(rows...), nil
}

// handleOpen shows the actions for one category.
func (f *Flow) handleOpen(c tele.Context, params map[string]string) error {
	p := map[string]string{"id": params["id"]}

	ren, err := tokRename.Instantiate(p)
	if err != nil {
		return err
	}
	del, err := tokDelete.Instantiate(p)
	if err != nil {
		return err
	}
	back, err := tokList.Instantiate(map[string]string{"page": "1"})
	if err != nil {
		return err
	}
	return c.Edit("What to do with this category?", keyboard.Markup(
		[]keyboard.Button{{Text: "✏️ Rename", Token: ren}, {Text: "🗑 Delete", Token: del}},
		[]keyboard.Button{{Text: "⬅️ Back", Token: back}},
	))
}

func (f *Flow) handleNew(c tele.Context, _ map[string]string) error {
	return f.armInput(c, stepName, nil, "Send the new category name.")
}

func (f *Flow) handleRename(c tele.Context, params map[string]string) error {
	return f.armInput(c, stepRename, &session.CategoryDraft{CategoryID: params["id"]}, "Send the new name for this category.")
}

func (f *Flow) armInput(c tele.Context, step state.Step, draft *session.CategoryDraft, prompt string) error {
	ctx := helpers.BuildContext(c)
	msg := c.Message()
	if err := f.sessions.Update(ctx, c.Sender().ID, func(s *session.Session) {
		s.ClearFlow()
		s.Step = step
		if draft != nil {
			s.Category = draft
		} else {
			s.Category = &session.CategoryDraft{}
		}
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

// textName creates a category from step-routed input.
func (f *Flow) textName(c tele.Context) error {
	ctx := helpers.BuildContext(c)
	userID := c.Sender().ID

	name := strings.TrimSpace(c.Text())
	if name == "" {
		return c.Send("The name cannot be empty. Try again or /cancel.")
	}

	client, err := f.ledger(ctx, userID)
	if err != nil {
		return c.Send("Connect your ledger first: /settings")
	}
	cat, err := client.CreateCategory(ctx, name)
	if err != nil {
		return c.Send(ledgerErrText(err))
	}

	return f.finishInput(c, "✅ Category created: *"+format.EscapeMarkdown(cat.Name)+"*")
}

// textRename renames the draft's target category.
func (f *Flow) textRename(c tele.Context) error {
	ctx := helpers.BuildContext(c)
	userID := c.Sender().ID

	sess, err := f.sessions.Get(ctx, userID)
	if err != nil {
		return err
	}
	if sess.Category == nil || sess.Category.CategoryID == "" {
		if err := f.sessions.Update(ctx, userID, func(s *session.Session) { s.ClearFlow() }); err != nil {
			return err
		}
		return c.Send("This rename has expired. Open /categories again.")
	}

	name := strings.TrimSpace(c.Text())
	if name == "" {
		return c.Send("The name cannot be empty. Try again or /cancel.")
	}

	client, err := f.ledger(ctx, userID)
	if err != nil {
		return c.Send("Connect your ledger first: /settings")
	}
	cat, err := client.UpdateCategory(ctx, sess.Category.CategoryID, name)
	if err != nil {
		return c.Send(ledgerErrText(err))
	}

	return f.finishInput(c, "✅ Category renamed to *"+format.EscapeMarkdown(cat.Name)+"*")
}

func (f *Flow) finishInput(c tele.Context, confirmation string) error {
	ctx := helpers.BuildContext(c)
	userID := c.Sender().ID

	sess, err := f.sessions.Get(ctx, userID)
	if err == nil {
		flows.DeleteCleanup(c, sess.Cleanup)
	}
	if err := f.sessions.Update(ctx, userID, func(s *session.Session) {
		s.ClearFlow()
	}); err != nil {
		return err
	}
	return helpers.SendMD(c, confirmation)
}

func (f *Flow) handleDelete(c tele.Context, params map[string]string) error {
	yes, err := tokDeleteOK.Instantiate(map[string]string{"id": params["id"]})
	if err != nil {
		return err
	}
	back, err := tokList.Instantiate(map[string]string{"page": "1"})
	if err != nil {
		return err
	}
	return c.Edit("Delete this category? Transactions keep their history.", keyboard.Markup(
		[]keyboard.Button{{Text: "🗑 Yes, delete", Token: yes}, {Text: "⬅️ Keep", Token: back}},
	))
}

func (f *Flow) handleDeleteOK(c tele.Context, params map[string]string) error {
	ctx := helpers.BuildContext(c)

	client, err := f.ledger(ctx, c.Sender().ID)
	if err != nil {
		return c.Edit("Connect your ledger first: /settings")
	}
	if err := client.DeleteCategory(ctx, params["id"]); err != nil {
		return c.Send(ledgerErrText(err))
	}
	return f.showList(c, 1)
}

func (f *Flow) handleClose(c tele.Context, _ map[string]string) error {
	return c.Delete()
}

func ledgerErrText(err error) string {
	return "⚠️ Ledger error: " + err.Error()
}
