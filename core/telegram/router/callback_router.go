package router

import (
	"time"

	tg "github.com/m3rciful/ledgerbot/core/telegram"
	"github.com/m3rciful/ledgerbot/core/telegram/callbacks"
	"github.com/m3rciful/ledgerbot/core/telegram/middleware"
	"log/slog"

	tele "gopkg.in/telebot.v4"
)

// CallbackOptions customises fallback behaviour for callbacks.
type CallbackOptions struct {
	NotFound tele.HandlerFunc
}

// CallbackRoute returns a handler that routes callback taps through the
// token registry. The raw token is matched against registered templates in
// registration order; unmatched tokens fall through to the not-found
// handler and never error.
func CallbackRoute(reg *tg.Registry, opts CallbackOptions) tg.Route {
	handler := func(c tele.Context) error {
		start := time.Now()
		if c.Callback() == nil {
			return nil
		}

		token := callbacks.RawToken(c)
		extras := []slog.Attr{slog.String("token", token)}

		_ = c.Respond()

		var handled bool
		err := handleWithSummary(c, "callback", start, "", "", func() error {
			var dispatchErr error
			handled, dispatchErr = reg.DispatchToken(c, token)
			if dispatchErr != nil {
				return dispatchErr
			}
			if handled {
				return nil
			}
			fallback := reg.CallbackNotFound()
			if fallback == nil {
				fallback = opts.NotFound
			}
			if fallback != nil {
				return fallback(c)
			}
			return nil
		}, extras...)
		return err
	}
	return tg.Route{
		Endpoint: tele.OnCallback,
		Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler)),
	}
}
