package router

import (
	"testing"

	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/ledgerbot/core/telegram"
	"github.com/m3rciful/ledgerbot/core/telegram/commands"
)

func TestCommandRoutesIncludeAliases(t *testing.T) {
	reg := tg.NewRegistry()
	noop := func(tele.Context) error { return nil }
	reg.RegisterCommand("/cancel", commands.Command{
		Handler:     noop,
		Description: "Abort the current operation",
		Aliases:     []string{"abort"},
	})

	routes := CommandRoutes(reg, CommandRouteOptions{})

	endpoints := make(map[string]bool, len(routes))
	for _, r := range routes {
		if s, ok := r.Endpoint.(string); ok {
			endpoints[s] = true
		}
	}
	if !endpoints["/cancel"] {
		t.Fatalf("canonical route missing: %v", endpoints)
	}
	if !endpoints["/abort"] {
		t.Fatalf("alias route missing: %v", endpoints)
	}
}
