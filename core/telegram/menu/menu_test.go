package menu

import (
	"testing"

	"github.com/m3rciful/ledgerbot/core/telegram/keyboard"
)

func TestGraphNavigation(t *testing.T) {
	g := NewGraph("main", "Main menu")

	child, err := g.AddNode(g.Root(), "reports", "Reports")
	if err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	if _, err := g.AddNode(g.Root(), "reports", "dup"); err == nil {
		t.Fatal("duplicate node name must fail")
	}
	if err := g.Root().AddSubmenu("📊 Reports", child); err != nil {
		t.Fatalf("AddSubmenu: %v", err)
	}

	if got, ok := g.Lookup("reports"); !ok || got != child {
		t.Fatal("Lookup did not resolve the child node")
	}
}

func TestNodeMarkupBackEdge(t *testing.T) {
	g := NewGraph("main", "Main menu")
	child, _ := g.AddNode(g.Root(), "sub", "Sub")
	child.AddRow(keyboard.Button{Text: "x", Token: "noop|1"})

	rootKB := g.Root().Markup().InlineKeyboard
	for _, row := range rootKB {
		for _, btn := range row {
			if btn.Text == "⬅️ Back" {
				t.Fatal("root node must not render a back button")
			}
		}
	}

	childKB := child.Markup().InlineKeyboard
	last := childKB[len(childKB)-1]
	if len(last) != 1 || last[0].Data != "menu|main" {
		t.Fatalf("child back row wrong: %+v", last)
	}
}
