package callbacks

import (
	"strings"
	"testing"
)

func TestParseRejectsBadTemplates(t *testing.T) {
	cases := []string{
		"",
		"   ",
		"${id}",
		"tx|${id}|${id}",
	}
	for _, raw := range cases {
		if _, err := Parse(raw); err == nil {
			t.Errorf("Parse(%q) expected error", raw)
		}
	}
}

func TestInstantiateRoundTrip(t *testing.T) {
	tpl := MustParse("tx=acc|${type}|${id}")

	params := map[string]string{"type": "asset", "id": "42"}
	token, err := tpl.Instantiate(params)
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	if token != "tx=acc|asset|42" {
		t.Fatalf("unexpected token: %s", token)
	}

	decoded, ok := tpl.Decode(token)
	if !ok {
		t.Fatal("Decode did not match own token")
	}
	if len(decoded) != len(params) {
		t.Fatalf("decoded %d params, want %d", len(decoded), len(params))
	}
	for k, v := range params {
		if decoded[k] != v {
			t.Errorf("decoded[%s] = %s, want %s", k, decoded[k], v)
		}
	}
}

func TestInstantiateMissingParam(t *testing.T) {
	tpl := MustParse("cat|${id}")
	if _, err := tpl.Instantiate(map[string]string{}); err == nil {
		t.Fatal("expected error for missing parameter")
	}
	if _, err := tpl.Instantiate(map[string]string{"id": ""}); err == nil {
		t.Fatal("expected error for empty parameter")
	}
	if _, err := tpl.Instantiate(map[string]string{"id": "1|2"}); err == nil {
		t.Fatal("expected error for reserved delimiter in parameter")
	}
}

func TestInstantiateByteBudget(t *testing.T) {
	tpl := MustParse("tx|${id}")
	long := strings.Repeat("9", MaxTokenBytes)
	if _, err := tpl.Instantiate(map[string]string{"id": long}); err == nil {
		t.Fatal("expected error for oversized token")
	}
	ok := strings.Repeat("9", MaxTokenBytes-len("tx|"))
	if _, err := tpl.Instantiate(map[string]string{"id": ok}); err != nil {
		t.Fatalf("token at the limit should instantiate: %v", err)
	}
}

func TestPatternIsAnchored(t *testing.T) {
	tpl := MustParse("cat|${id}")
	if _, ok := tpl.Decode("xcat|5"); ok {
		t.Error("pattern matched a superstring prefix")
	}
	if _, ok := tpl.Decode("cat|5|extra"); ok {
		t.Error("pattern matched a token with a trailing segment")
	}
	if _, ok := tpl.Decode("cat|"); ok {
		t.Error("pattern matched an empty parameter")
	}
}

func TestPatternEscapesMetacharacters(t *testing.T) {
	tpl := MustParse("menu.page+1|${page}")
	token, err := tpl.Instantiate(map[string]string{"page": "2"})
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	if _, ok := tpl.Decode(token); !ok {
		t.Fatal("escaped literal did not round-trip")
	}
	// The dot must not act as a wildcard.
	if _, ok := tpl.Decode("menuXpage+1|2"); ok {
		t.Error("literal dot matched an arbitrary character")
	}
}
