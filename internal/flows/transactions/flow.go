// Package transactions drives the guided transaction entry and editing
// conversation: free text opens a draft, inline menus classify it, and the
// result is committed to the ledger.
package transactions

import (
	"context"
	"errors"

	"github.com/m3rciful/ledgerbot/core/telegram/callbacks"
	"github.com/m3rciful/ledgerbot/core/telegram/state"
	"github.com/m3rciful/ledgerbot/internal/flows"
	"github.com/m3rciful/ledgerbot/internal/session"
	"github.com/m3rciful/ledgerbot/internal/settings"
)

// Entry tokens.
var (
	tokCategory = callbacks.MustParse("tx|cat|${id}")
	tokKind     = callbacks.MustParse("tx|kind|${kind}")
	tokCatPage  = callbacks.MustParse("tx|cpage|${page}")
	tokAccount  = callbacks.MustParse("tx|acct|${id}")
	tokAcctPage = callbacks.MustParse("tx|apage|${kind}|${page}")
)

// Edit tokens. Every token carries the transaction id so the menus stay
// stateless between taps.
var (
	tokEditOpen        = callbacks.MustParse("txe|open|${id}")
	tokEditAmount      = callbacks.MustParse("txe|amt|${id}")
	tokEditDate        = callbacks.MustParse("txe|date|${id}")
	tokEditCategory    = callbacks.MustParse("txe|cat|${id}")
	tokEditCatPage     = callbacks.MustParse("txe|cpage|${id}|${page}")
	tokEditSetCategory = callbacks.MustParse("txe|setcat|${id}|${cat}")
	tokEditSource      = callbacks.MustParse("txe|src|${id}")
	tokEditAcctPage    = callbacks.MustParse("txe|apage|${id}|${page}")
	tokEditSetSource   = callbacks.MustParse("txe|setsrc|${id}|${acct}")
	tokEditDelete      = callbacks.MustParse("txe|del|${id}")
	tokEditDeleteOK    = callbacks.MustParse("txe|delok|${id}")
	tokEditClose       = callbacks.MustParse("txe|close")
)

// Steps awaiting free-text input.
var (
	stepClassify    = state.StepOf("TX", "CLASSIFY")
	stepDestination = state.StepOf("TX", "DESTINATION")
	stepEditAmount  = state.StepOf("TX", "EDIT_AMOUNT")
	stepEditDate    = state.StepOf("TX", "EDIT_DATE")
)

// Registerer is the token registration surface of the bot registry.
type Registerer interface {
	RegisterToken(t *callbacks.Template, h callbacks.HandlerFunc) error
}

// Settings is the slice of the settings store the flow reads: the default
// account for fast-path commits.
type Settings interface {
	Get(ctx context.Context, userID int64) (*settings.UserSettings, error)
}

// Flow is the transaction entry and editing orchestrator.
type Flow struct {
	sessions session.Manager
	store    Settings
	ledger   flows.LedgerFunc
}

func New(sessions session.Manager, store Settings, ledger flows.LedgerFunc) *Flow {
	return &Flow{sessions: sessions, store: store, ledger: ledger}
}

// Register wires the flow's tokens and text steps. It must run before the
// registry's startup validation.
func (f *Flow) Register(reg Registerer, steps *state.Router) error {
	return errors.Join(
		reg.RegisterToken(tokCategory, f.handleCategory),
		reg.RegisterToken(tokKind, f.handleKind),
		reg.RegisterToken(tokCatPage, f.handleCatPage),
		reg.RegisterToken(tokAccount, f.handleAccount),
		reg.RegisterToken(tokAcctPage, f.handleAcctPage),

		reg.RegisterToken(tokEditOpen, f.handleEditOpen),
		reg.RegisterToken(tokEditAmount, f.handleEditAmount),
		reg.RegisterToken(tokEditDate, f.handleEditDate),
		reg.RegisterToken(tokEditCategory, f.handleEditCategory),
		reg.RegisterToken(tokEditCatPage, f.handleEditCatPage),
		reg.RegisterToken(tokEditSetCategory, f.handleEditSetCategory),
		reg.RegisterToken(tokEditSource, f.handleEditSource),
		reg.RegisterToken(tokEditAcctPage, f.handleEditAcctPage),
		reg.RegisterToken(tokEditSetSource, f.handleEditSetSource),
		reg.RegisterToken(tokEditDelete, f.handleEditDelete),
		reg.RegisterToken(tokEditDeleteOK, f.handleEditDeleteOK),
		reg.RegisterToken(tokEditClose, f.handleEditClose),

		steps.Register(stepClassify, f.restartEntry),
		steps.Register(stepDestination, f.restartEntry),
		steps.Register(stepEditAmount, f.textEditAmount),
		steps.Register(stepEditDate, f.textEditDate),
	)
}
