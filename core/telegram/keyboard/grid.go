package keyboard

import (
	"strconv"

	"github.com/m3rciful/ledgerbot/core/telegram/callbacks"
)

// Item is one selectable entry in a dynamic menu grid. Params complete the
// selection template for this entry.
type Item struct {
	Label  string
	Params map[string]string
}

// GridOptions controls the dynamic grid layout.
type GridOptions struct {
	// Columns per row; 0 means the default two-column layout.
	Columns int
	// Reverse renders items bottom-up so the most relevant entries end up
	// closest to the user's thumb. Ordering only, not a correctness rule.
	Reverse bool
}

// Grid renders items as token button rows using the selection template.
// Items are emitted in insertion order (or reversed when requested) with a
// row break after every Columns-th item and after the final item. An empty
// item list yields no rows; structural rows are the caller's concern.
func Grid(sel *callbacks.Template, items []Item, opts GridOptions) ([][]Button, error) {
	cols := opts.Columns
	if cols <= 0 {
		cols = 2
	}

	ordered := items
	if opts.Reverse {
		ordered = make([]Item, len(items))
		for i, it := range items {
			ordered[len(items)-1-i] = it
		}
	}

	buttons := make([]Button, 0, len(ordered))
	for _, it := range ordered {
		token, err := sel.Instantiate(it.Params)
		if err != nil {
			return nil, err
		}
		buttons = append(buttons, Button{Text: it.Label, Token: token})
	}
	return Chunk(buttons, cols), nil
}

// Pager describes the position of a listing within its pages.
type Pager struct {
	Current int
	Total   int
}

// NavRow emits the navigation row for this pager: a "previous" button only
// when Current > 1 and a "next" button only when Current < Total, sharing a
// single row. nav is the navigation template; params carry the active
// filter/type so re-entering the menu reconstructs the same listing, and
// pageKey names the placeholder receiving the destination page.
func (p Pager) NavRow(nav *callbacks.Template, params map[string]string, pageKey string) ([]Button, error) {
	var row []Button

	makeToken := func(page int) (string, error) {
		merged := make(map[string]string, len(params)+1)
		for k, v := range params {
			merged[k] = v
		}
		merged[pageKey] = strconv.Itoa(page)
		return nav.Instantiate(merged)
	}

	if p.Current > 1 {
		token, err := makeToken(p.Current - 1)
		if err != nil {
			return nil, err
		}
		row = append(row, Button{Text: "⬅️", Token: token})
	}
	if p.Current < p.Total {
		token, err := makeToken(p.Current + 1)
		if err != nil {
			return nil, err
		}
		row = append(row, Button{Text: "➡️", Token: token})
	}
	return row, nil
}
