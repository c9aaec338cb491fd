package keyboard

import tele "gopkg.in/telebot.v4"

// Button is an inline button carrying a raw callback-data token produced by
// the callbacks codec.
type Button struct {
	Text  string
	Token string
}

const defaultCancelText = "❌ Cancel"

// Markup assembles an inline keyboard from rows of token buttons. Empty rows
// are skipped.
func Markup(rows ...[]Button) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	inline := make([][]tele.InlineButton, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		r := make([]tele.InlineButton, len(row))
		for j, btn := range row {
			r[j] = tele.InlineButton{Text: btn.Text, Data: btn.Token}
		}
		inline = append(inline, r)
	}
	markup.InlineKeyboard = inline
	return markup
}

// Chunk splits a flat list of buttons into rows with up to n buttons per
// row. A row break is forced after every n-th button and after the final
// button regardless of column parity.
func Chunk(buttons []Button, n int) [][]Button {
	if n <= 1 {
		out := make([][]Button, 0, len(buttons))
		for _, b := range buttons {
			out = append(out, []Button{b})
		}
		return out
	}
	var rows [][]Button
	for i := 0; i < len(buttons); i += n {
		end := i + n
		if end > len(buttons) {
			end = len(buttons)
		}
		rows = append(rows, buttons[i:end])
	}
	return rows
}

// CancelButton returns a cancel button carrying the given token.
// The optional argument overrides the label.
func CancelButton(token string, label ...string) Button {
	text := defaultCancelText
	if len(label) > 0 && label[0] != "" {
		text = label[0]
	}
	return Button{Text: text, Token: token}
}

// SingleCancelMarkup creates an inline keyboard with a single cancel button.
func SingleCancelMarkup(token string, label ...string) *tele.ReplyMarkup {
	return Markup([]Button{CancelButton(token, label...)})
}
