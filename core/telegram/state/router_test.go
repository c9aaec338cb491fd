package state

import (
	"testing"

	tele "gopkg.in/telebot.v4"
)

func TestStepOf(t *testing.T) {
	s := StepOf("TX", "CLASSIFY")
	if s != Step("TX|CLASSIFY") {
		t.Fatalf("unexpected tag: %s", s)
	}
	if s.Flow() != "TX" {
		t.Fatalf("Flow() = %s, want TX", s.Flow())
	}
	if s.Idle() {
		t.Fatal("namespaced tag reported idle")
	}
	if !StepIdle.Idle() || StepIdle.Flow() != "" {
		t.Fatal("StepIdle must be idle with empty flow")
	}
}

func TestRegisterDuplicateRejected(t *testing.T) {
	r := NewRouter()
	noop := func(tele.Context) error { return nil }

	if err := r.Register(StepOf("A", "1"), noop); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	if err := r.Register(StepOf("A", "1"), noop); err == nil {
		t.Fatal("duplicate step registration must fail")
	}
	if err := r.Register(StepIdle, noop); err == nil {
		t.Fatal("registering the idle step must fail")
	}
}

func TestDispatchStepExclusivity(t *testing.T) {
	r := NewRouter()
	var got string
	_ = r.Register(StepOf("A", "1"), func(tele.Context) error {
		got = "A"
		return nil
	})
	_ = r.Register(StepOf("B", "1"), func(tele.Context) error {
		got = "B"
		return nil
	})

	handled, err := r.Dispatch(nil, StepOf("A", "1"))
	if err != nil || !handled {
		t.Fatalf("Dispatch: handled=%v err=%v", handled, err)
	}
	if got != "A" {
		t.Fatalf("dispatched to %s, want A", got)
	}
}

func TestDispatchIdleFallsThrough(t *testing.T) {
	r := NewRouter()
	_ = r.Register(StepOf("A", "1"), func(tele.Context) error { return nil })

	if handled, _ := r.Dispatch(nil, StepIdle); handled {
		t.Fatal("idle step must not be handled")
	}
	if handled, _ := r.Dispatch(nil, StepOf("A", "2")); handled {
		t.Fatal("unregistered step must not be handled")
	}
}
