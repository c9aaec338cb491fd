package keyboard

import (
	"strconv"
	"testing"

	"github.com/m3rciful/ledgerbot/core/telegram/callbacks"
)

func gridItems(n int) []Item {
	items := make([]Item, n)
	for i := range items {
		id := strconv.Itoa(i + 1)
		items[i] = Item{Label: "item " + id, Params: map[string]string{"id": id}}
	}
	return items
}

func TestGridTwoColumnLayout(t *testing.T) {
	sel := callbacks.MustParse("pick|${id}")

	for _, n := range []int{1, 2, 3, 4, 5, 8} {
		rows, err := Grid(sel, gridItems(n), GridOptions{})
		if err != nil {
			t.Fatalf("Grid(%d): %v", n, err)
		}
		wantRows := (n + 1) / 2
		if len(rows) != wantRows {
			t.Errorf("n=%d: %d rows, want ceil(n/2)=%d", n, len(rows), wantRows)
		}
		total := 0
		for _, row := range rows {
			if len(row) > 2 {
				t.Errorf("n=%d: row holds %d buttons, max is 2", n, len(row))
			}
			total += len(row)
		}
		if total != n {
			t.Errorf("n=%d: %d buttons emitted", n, total)
		}
	}
}

func TestGridEmptyAndTokens(t *testing.T) {
	sel := callbacks.MustParse("pick|${id}")

	rows, err := Grid(sel, nil, GridOptions{})
	if err != nil {
		t.Fatalf("Grid(empty): %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("empty items produced %d rows", len(rows))
	}

	rows, err = Grid(sel, gridItems(1), GridOptions{})
	if err != nil {
		t.Fatalf("Grid: %v", err)
	}
	if rows[0][0].Token != "pick|1" {
		t.Fatalf("unexpected token: %s", rows[0][0].Token)
	}
}

func TestGridReverse(t *testing.T) {
	sel := callbacks.MustParse("pick|${id}")
	rows, err := Grid(sel, gridItems(3), GridOptions{Reverse: true})
	if err != nil {
		t.Fatalf("Grid: %v", err)
	}
	if rows[0][0].Token != "pick|3" {
		t.Fatalf("reverse order not applied, first token: %s", rows[0][0].Token)
	}
}

func TestPagerNavRow(t *testing.T) {
	nav := callbacks.MustParse("page|${type}|${page}")
	params := map[string]string{"type": "asset"}

	row, err := Pager{Current: 1, Total: 1}.NavRow(nav, params, "page")
	if err != nil {
		t.Fatalf("NavRow: %v", err)
	}
	if len(row) != 0 {
		t.Fatalf("single page emitted %d nav buttons", len(row))
	}

	row, err = Pager{Current: 2, Total: 5}.NavRow(nav, params, "page")
	if err != nil {
		t.Fatalf("NavRow: %v", err)
	}
	if len(row) != 2 {
		t.Fatalf("middle page emitted %d nav buttons, want 2", len(row))
	}
	if row[0].Token != "page|asset|1" {
		t.Errorf("previous token = %s, want page|asset|1", row[0].Token)
	}
	if row[1].Token != "page|asset|3" {
		t.Errorf("next token = %s, want page|asset|3", row[1].Token)
	}

	row, err = Pager{Current: 5, Total: 5}.NavRow(nav, params, "page")
	if err != nil {
		t.Fatalf("NavRow: %v", err)
	}
	if len(row) != 1 || row[0].Token != "page|asset|4" {
		t.Fatalf("last page nav row wrong: %+v", row)
	}
}
