package session

import (
	"context"
	"testing"

	"github.com/m3rciful/ledgerbot/core/telegram/state"
)

func TestMemoryManagerLifecycle(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryManager()

	sess, err := m.Get(ctx, 1)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !sess.Step.Idle() {
		t.Fatal("fresh session must be idle")
	}

	step := state.StepOf("TX", "CLASSIFY")
	err = m.Update(ctx, 1, func(s *Session) {
		s.Step = step
		s.Tx = &TxDraft{Amount: 12}
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	if got := m.CurrentStep(1); got != step {
		t.Fatalf("CurrentStep = %s, want %s", got, step)
	}
	if got := m.CurrentStep(2); got != state.StepIdle {
		t.Fatalf("unknown user CurrentStep = %s, want idle", got)
	}

	sess, _ = m.Get(ctx, 1)
	if sess.Tx == nil || sess.Tx.Amount != 12 {
		t.Fatalf("draft not stored: %+v", sess.Tx)
	}

	// Snapshot semantics: mutating the copy must not leak into the store.
	sess.Tx.Amount = 99
	sess.Step = state.StepIdle
	if got := m.CurrentStep(1); got != step {
		t.Fatal("Get snapshot leaked mutations into the store")
	}
	stored, _ := m.Get(ctx, 1)
	if stored.Tx.Amount != 12 {
		t.Fatal("Get snapshot shares draft pointers with the store")
	}

	if err := m.Clear(ctx, 1); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if got := m.CurrentStep(1); got != state.StepIdle {
		t.Fatal("cleared session must be idle")
	}
}

func TestClearFlowResetsDrafts(t *testing.T) {
	s := NewSession()
	s.Step = state.StepOf("CAT", "NAME")
	s.Tx = &TxDraft{Amount: 3}
	s.Category = &CategoryDraft{CategoryID: "7"}
	s.Cleanup = &Cleanup{ChatID: 1, MessageID: 2}
	s.LastAmount = 3

	s.ClearFlow()

	if !s.Step.Idle() || s.Tx != nil || s.Category != nil || s.Cleanup != nil {
		t.Fatalf("ClearFlow left state behind: %+v", s)
	}
	if s.LastAmount != 3 {
		t.Fatal("ClearFlow must keep LastAmount")
	}
}
