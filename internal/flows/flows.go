// Package flows holds the pieces shared by every conversation flow: the
// global cancel token, prompt cleanup, and the per-user ledger client hook.
package flows

import (
	"context"
	"strconv"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/ledgerbot/core/telegram/callbacks"
	"github.com/m3rciful/ledgerbot/core/telegram/helpers"
	"github.com/m3rciful/ledgerbot/internal/firefly"
	"github.com/m3rciful/ledgerbot/internal/session"
)

// LedgerFunc builds a ledger client for the user, typically from the
// persisted connection settings. It fails when the user has not configured
// a connection yet.
type LedgerFunc func(ctx context.Context, userID int64) (*firefly.Client, error)

// CancelTemplate is the token attached to every flow's cancel button.
// Cancellation is flow agnostic: ClearFlow drops whichever draft is active.
var CancelTemplate = callbacks.MustParse("cancel")

// CancelHandler aborts the active flow: the tapped prompt is deleted, any
// recorded cleanup message is deleted too, and the session returns to idle.
// No ledger calls are made.
func CancelHandler(sessions session.Manager) callbacks.HandlerFunc {
	return func(c tele.Context, _ map[string]string) error {
		userID := c.Sender().ID
		ctx := helpers.BuildContext(c)

		sess, err := sessions.Get(ctx, userID)
		if err == nil && sess.Cleanup != nil {
			cl := *sess.Cleanup
			if c.Message() == nil || c.Message().ID != cl.MessageID {
				DeleteCleanup(c, &cl)
			}
		}
		if err := sessions.Update(ctx, userID, func(s *session.Session) {
			s.ClearFlow()
		}); err != nil {
			return err
		}
		_ = c.Delete()
		return c.Send("Cancelled.")
	}
}

// DeleteCleanup removes a previously recorded prompt message. Failures are
// ignored: the message may already be gone.
func DeleteCleanup(c tele.Context, cl *session.Cleanup) {
	if cl == nil {
		return
	}
	_ = c.Bot().Delete(tele.StoredMessage{
		ChatID:    cl.ChatID,
		MessageID: strconv.Itoa(cl.MessageID),
	})
}

// RememberPrompt records the sent prompt so a later step can delete it when
// it has to replace a message it cannot edit.
func RememberPrompt(s *session.Session, msg *tele.Message) {
	if msg == nil {
		return
	}
	s.Cleanup = &session.Cleanup{ChatID: msg.Chat.ID, MessageID: msg.ID}
}
