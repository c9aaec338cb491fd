package router

import (
	"time"

	tg "github.com/m3rciful/ledgerbot/core/telegram"
	"github.com/m3rciful/ledgerbot/core/telegram/middleware"
	"github.com/m3rciful/ledgerbot/core/telegram/state"

	tele "gopkg.in/telebot.v4"
)

// Steps resolves the current conversation step for a user.
type Steps interface {
	CurrentStep(userID int64) state.Step
}

// TextOptions controls fallback behaviour for text updates.
type TextOptions struct {
	UnknownText tele.HandlerFunc
}

// TextRoutes builds the free-text route. An update is first offered to the
// step router for the session's current step; only idle sessions fall
// through to command lookup and the generic text fallback.
func TextRoutes(steps Steps, stepRouter *state.Router, reg *tg.Registry, opts TextOptions) []tg.Route {
	handler := func(c tele.Context) error {
		start := time.Now()
		text := c.Text()

		if steps != nil && stepRouter != nil {
			if current := steps.CurrentStep(c.Sender().ID); !current.Idle() {
				handled := false
				err := handleWithSummary(c, "step."+normalizeHandlerName(string(current)), start, "", "", func() error {
					var dispatchErr error
					handled, dispatchErr = stepRouter.Dispatch(c, current)
					return dispatchErr
				})
				if handled || err != nil {
					return err
				}
			}
		}

		if reg != nil {
			if key, cmd, ok := reg.LookupCommand(text); ok && cmd.Handler != nil {
				name := normalizeHandlerName(key)
				return handleWithSummary(c, name, start, "", "", func() error {
					return cmd.Handler(c)
				})
			}
			if fb := reg.TextFallback(); fb != nil {
				return handleWithSummary(c, "fallback", start, "", "", func() error {
					return fb(c)
				})
			}
		}

		if opts.UnknownText != nil {
			return handleWithSummary(c, "unknown_text", start, "", "", func() error {
				return opts.UnknownText(c)
			})
		}

		logHandlerSummary(c, "unknown_text", start, "skip", "ok", nil)
		return nil
	}

	return []tg.Route{
		{
			Endpoint: tele.OnText,
			Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler)),
		},
	}
}
