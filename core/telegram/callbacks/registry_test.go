package callbacks

import (
	"testing"

	tele "gopkg.in/telebot.v4"
)

func TestRegistryRejectsDuplicates(t *testing.T) {
	reg := NewRegistry()
	noop := func(tele.Context, map[string]string) error { return nil }

	if err := reg.Register(MustParse("cat|${id}"), noop); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	if err := reg.Register(MustParse("cat|${id}"), noop); err == nil {
		t.Fatal("duplicate template registration must fail")
	}
}

func TestRegistryValidateDetectsOverlap(t *testing.T) {
	noop := func(tele.Context, map[string]string) error { return nil }

	reg := NewRegistry()
	_ = reg.Register(MustParse("tx|${a}"), noop)
	_ = reg.Register(MustParse("tx|${b}"), noop)
	if err := reg.Validate(); err == nil {
		t.Fatal("identical literal layouts must fail validation")
	}

	reg = NewRegistry()
	_ = reg.Register(MustParse("tx=cat|${id}"), noop)
	_ = reg.Register(MustParse("tx=acc|${type}|${id}"), noop)
	_ = reg.Register(MustParse("cat=del|${id}"), noop)
	if err := reg.Validate(); err != nil {
		t.Fatalf("disjoint templates flagged as ambiguous: %v", err)
	}
}

func TestRegistryDispatchOrderAndFallthrough(t *testing.T) {
	reg := NewRegistry()
	var got string
	_ = reg.Register(MustParse("a|${x}"), func(_ tele.Context, p map[string]string) error {
		got = "a:" + p["x"]
		return nil
	})
	_ = reg.Register(MustParse("b|${x}"), func(_ tele.Context, p map[string]string) error {
		got = "b:" + p["x"]
		return nil
	})

	handled, err := reg.Dispatch(nil, "b|7")
	if err != nil || !handled {
		t.Fatalf("Dispatch: handled=%v err=%v", handled, err)
	}
	if got != "b:7" {
		t.Fatalf("wrong handler invoked: %s", got)
	}

	handled, err = reg.Dispatch(nil, "nothing|matches|this")
	if err != nil {
		t.Fatalf("unmatched token must not error: %v", err)
	}
	if handled {
		t.Fatal("unmatched token reported as handled")
	}
}

// callbackContext exposes only the callback of an update.
type callbackContext struct {
	tele.Context
	cb *tele.Callback
}

func (c callbackContext) Callback() *tele.Callback { return c.cb }

func TestRawTokenStripsInlineFraming(t *testing.T) {
	cases := []struct {
		name string
		cb   *tele.Callback
		want string
	}{
		{"no callback", nil, ""},
		{"plain data", &tele.Callback{Data: "menu|root"}, "menu|root"},
		{"framed data", &tele.Callback{Data: "\fmenu|root"}, "menu|root"},
		{"unique only", &tele.Callback{Unique: "menu"}, "menu"},
		{"unique with data", &tele.Callback{Unique: "menu", Data: "root"}, "menu|root"},
	}
	for _, tc := range cases {
		if got := RawToken(callbackContext{cb: tc.cb}); got != tc.want {
			t.Errorf("%s: RawToken = %q, want %q", tc.name, got, tc.want)
		}
	}
}
