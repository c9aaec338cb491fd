package state

import (
	"context"
	"fmt"

	"github.com/m3rciful/ledgerbot/core/logger"
	"log/slog"

	tele "gopkg.in/telebot.v4"
)

// Router dispatches free-text updates to the handler registered for the
// session's current step. Exactly one step is active per session; handlers
// must set the next step (or idle) before returning, including on error
// paths that terminate the flow.
type Router struct {
	handlers map[Step]tele.HandlerFunc
}

// NewRouter creates an empty step router.
func NewRouter() *Router {
	return &Router{handlers: make(map[Step]tele.HandlerFunc)}
}

// Register associates a step tag with a handler. Registering two handlers
// under the same tag is a programmer error and is rejected at startup.
func (r *Router) Register(step Step, h tele.HandlerFunc) error {
	if step.Idle() {
		return fmt.Errorf("state: cannot register handler for idle step")
	}
	if h == nil {
		return fmt.Errorf("state: nil handler for step %s", step)
	}
	if _, exists := r.handlers[step]; exists {
		logger.TWire.LogAttrs(context.Background(), slog.LevelWarn, "register.step.duplicate",
			slog.String("step", string(step)),
		)
		return fmt.Errorf("state: step already registered: %s", step)
	}
	r.handlers[step] = h
	return nil
}

// Dispatch invokes the handler registered for current and reports whether
// the update was consumed. Idle or unregistered steps return false so
// generic text handlers may process the update instead.
func (r *Router) Dispatch(c tele.Context, current Step) (bool, error) {
	if current.Idle() {
		return false, nil
	}
	h, ok := r.handlers[current]
	if !ok {
		return false, nil
	}
	return true, h(c)
}

// Steps returns the registered step tags, for wiring diagnostics.
func (r *Router) Steps() []string {
	out := make([]string, 0, len(r.handlers))
	for s := range r.handlers {
		out = append(out, string(s))
	}
	return out
}
