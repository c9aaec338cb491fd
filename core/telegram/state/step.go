// Package state provides the step tags and free-text routing used by
// multi-step Telegram conversations. It is domain-agnostic so it can be
// reused across bots.
package state

import "strings"

// Step identifies which flow, and which stage within it, is awaiting the
// user's next free-text input. Tags are namespaced as "<FLOW>|<STAGE>" so
// independently developed flows never collide on the shared session field.
type Step string

// StepIdle is the initial and terminal step: no conversation in progress.
const StepIdle Step = "IDLE"

const stepSep = "|"

// StepOf builds a namespaced step tag from a flow name and a stage name.
func StepOf(flow, stage string) Step {
	return Step(flow + stepSep + stage)
}

// Flow returns the flow namespace of the tag, or "" for idle.
func (s Step) Flow() string {
	if s == StepIdle {
		return ""
	}
	if i := strings.Index(string(s), stepSep); i >= 0 {
		return string(s)[:i]
	}
	return string(s)
}

// Idle reports whether no conversation is active.
func (s Step) Idle() bool {
	return s == "" || s == StepIdle
}
