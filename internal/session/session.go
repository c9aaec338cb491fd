// Package session holds per-user conversation state. State is ephemeral:
// the contract is process lifetime (memory backend) or a bounded TTL (redis
// backend), never durable persistence.
package session

import (
	"context"

	"github.com/m3rciful/ledgerbot/core/telegram/state"
	"github.com/m3rciful/ledgerbot/internal/firefly"
)

// TxDraft is the scratch data of an in-progress transaction entry.
type TxDraft struct {
	Amount      float64                 `json:"amount"`
	Description string                  `json:"description,omitempty"`
	Type        firefly.TransactionType `json:"type,omitempty"`
}

// EditDraft tracks which fetched transaction a step-routed edit input
// applies to.
type EditDraft struct {
	TransactionID string `json:"transaction_id"`
}

// CategoryDraft tracks the rename target during category management.
type CategoryDraft struct {
	CategoryID string `json:"category_id,omitempty"`
}

// SettingsDraft is used while collecting ledger connection settings. The
// base URL arrives one step before the token.
type SettingsDraft struct {
	BaseURL string `json:"base_url,omitempty"`
}

// PagerState remembers the listing shown on screen so navigation can
// reconstruct the same parameters.
type PagerState struct {
	Page   int    `json:"page"`
	Total  int    `json:"total"`
	Filter string `json:"filter,omitempty"`
}

// Cleanup is an explicit deferred action: a message reference the flow
// orchestrator deletes when the flow has to replace a message it cannot
// edit. Plain data, never a closure, so sessions stay serializable.
type Cleanup struct {
	ChatID    int64 `json:"chat_id"`
	MessageID int   `json:"message_id"`
}

// Session is the per-user conversation record. Exactly one draft is non-nil
// while its flow is active; terminal transitions must clear drafts through
// ClearFlow.
type Session struct {
	Step     state.Step     `json:"step"`
	Tx       *TxDraft       `json:"tx,omitempty"`
	Edit     *EditDraft     `json:"edit,omitempty"`
	Category *CategoryDraft `json:"category,omitempty"`
	Settings *SettingsDraft `json:"settings,omitempty"`
	Pager    *PagerState    `json:"pager,omitempty"`
	Cleanup  *Cleanup       `json:"cleanup,omitempty"`

	// LastAmount is the previously shown amount, the base for arithmetic
	// corrections like "+2.5". It survives flow completion.
	LastAmount float64 `json:"last_amount,omitempty"`
}

// NewSession returns an idle session.
func NewSession() *Session {
	return &Session{Step: state.StepIdle}
}

// Clone returns a deep copy, so callers can read a snapshot while Updates
// keep mutating the stored session.
func (s *Session) Clone() *Session {
	cp := *s
	if s.Tx != nil {
		tx := *s.Tx
		cp.Tx = &tx
	}
	if s.Edit != nil {
		e := *s.Edit
		cp.Edit = &e
	}
	if s.Category != nil {
		c := *s.Category
		cp.Category = &c
	}
	if s.Settings != nil {
		st := *s.Settings
		cp.Settings = &st
	}
	if s.Pager != nil {
		p := *s.Pager
		cp.Pager = &p
	}
	if s.Cleanup != nil {
		cl := *s.Cleanup
		cp.Cleanup = &cl
	}
	return &cp
}

// ClearFlow resets the session to idle and drops all flow-owned drafts.
// LastAmount is kept so the next entry can still use relative corrections.
func (s *Session) ClearFlow() {
	s.Step = state.StepIdle
	s.Tx = nil
	s.Edit = nil
	s.Category = nil
	s.Settings = nil
	s.Pager = nil
	s.Cleanup = nil
}

// Manager stores and mutates sessions. Update must apply fn atomically with
// respect to other Updates for the same user.
type Manager interface {
	Get(ctx context.Context, userID int64) (*Session, error)
	Update(ctx context.Context, userID int64, fn func(*Session)) error
	Clear(ctx context.Context, userID int64) error

	// CurrentStep satisfies the text router without error plumbing;
	// implementations degrade to idle when the backend is unreachable.
	CurrentStep(userID int64) state.Step
}
