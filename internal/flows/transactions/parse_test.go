package transactions

import (
	"math"
	"testing"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		name string
		expr string
		base float64
		want float64
		err  bool
	}{
		{name: "plain", expr: "12", want: 12},
		{name: "decimal", expr: "3.5", want: 3.5},
		{name: "comma decimal", expr: "3,5", want: 3.5},
		{name: "add to base", expr: "+2.5", base: 10, want: 12.5},
		{name: "subtract from base", expr: "-2", base: 10, want: 8},
		{name: "subtract below zero is absolute", expr: "-15", base: 10, want: 5},
		{name: "multiply base", expr: "*2", base: 7, want: 14},
		{name: "divide base", expr: "/4", base: 10, want: 2.5},
		{name: "divide by zero", expr: "/0", base: 10, err: true},
		{name: "bare operator", expr: "+", err: true},
		{name: "garbage", expr: "abc", err: true},
		{name: "empty", expr: "", err: true},
		{name: "zero", expr: "0", err: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseAmount(tc.expr, tc.base)
			if tc.err {
				if err == nil {
					t.Fatalf("parseAmount(%q) = %v, want error", tc.expr, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseAmount(%q): %v", tc.expr, err)
			}
			if math.Abs(got-tc.want) > 1e-9 {
				t.Fatalf("parseAmount(%q) = %v, want %v", tc.expr, got, tc.want)
			}
		})
	}
}

func TestParseEntry(t *testing.T) {
	desc, amount, ok := parseEntry("Coffee 3.5", 0)
	if !ok || desc != "Coffee" || amount != 3.5 {
		t.Fatalf("got (%q, %v, %v)", desc, amount, ok)
	}

	desc, amount, ok = parseEntry("Coffee with milk 4", 0)
	if !ok || desc != "Coffee with milk" || amount != 4 {
		t.Fatalf("got (%q, %v, %v)", desc, amount, ok)
	}

	desc, amount, ok = parseEntry("12", 0)
	if !ok || desc != "" || amount != 12 {
		t.Fatalf("got (%q, %v, %v)", desc, amount, ok)
	}

	// Correction applied to the previously shown amount.
	desc, amount, ok = parseEntry("+2.5", 10)
	if !ok || desc != "" || amount != 12.5 {
		t.Fatalf("got (%q, %v, %v)", desc, amount, ok)
	}

	if _, _, ok := parseEntry("just words", 0); ok {
		t.Fatal("text without a trailing amount must not parse")
	}
	if _, _, ok := parseEntry("", 0); ok {
		t.Fatal("empty text must not parse")
	}
}
