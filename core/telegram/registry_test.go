package telegram

import (
	"testing"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/ledgerbot/core/telegram/commands"
)

func TestLookupCommandResolvesAliases(t *testing.T) {
	reg := NewRegistry()
	noop := func(tele.Context) error { return nil }
	reg.RegisterCommand("/cancel", commands.Command{
		Handler:     noop,
		Description: "Abort the current operation",
		Aliases:     []string{"abort"},
	})

	for _, name := range []string{"/cancel", "cancel", "/abort", "abort"} {
		key, _, ok := reg.LookupCommand(name)
		if !ok {
			t.Fatalf("LookupCommand(%q) not found", name)
		}
		if key != "/cancel" {
			t.Fatalf("LookupCommand(%q) = %q, want the canonical name", name, key)
		}
	}
	if _, _, ok := reg.LookupCommand("/nope"); ok {
		t.Fatal("unknown command resolved")
	}
}
