package format

import "strings"

var mdV1Replacer = strings.NewReplacer(
	"_", `\_`,
	"*", `\*`,
	"[", `\[`,
	"`", "\\`",
	`\`, `\\`,
)

// EscapeMarkdown escapes special characters for Telegram Markdown (v1).
func EscapeMarkdown(text string) string {
	return mdV1Replacer.Replace(text)
}
