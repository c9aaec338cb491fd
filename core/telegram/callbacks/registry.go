package callbacks

import (
	"context"
	"fmt"
	"strings"

	"github.com/m3rciful/ledgerbot/core/logger"
	"log/slog"

	tele "gopkg.in/telebot.v4"
)

// HandlerFunc handles a decoded callback token.
type HandlerFunc func(c tele.Context, params map[string]string) error

type entry struct {
	template *Template
	handler  HandlerFunc
}

// Registry maps callback tokens to handlers through their templates.
// Registration order defines matching priority; Validate turns template
// overlap into a startup failure instead of a runtime routing bug.
type Registry struct {
	entries []entry
	byRaw   map[string]struct{}
}

// NewRegistry creates an empty callback token registry.
func NewRegistry() *Registry {
	return &Registry{byRaw: make(map[string]struct{})}
}

// Register adds a template with its handler. Registering the same raw
// template twice is a programmer error and is rejected.
func (r *Registry) Register(t *Template, h HandlerFunc) error {
	if t == nil || h == nil {
		return fmt.Errorf("callbacks: nil template or handler")
	}
	if _, exists := r.byRaw[t.Raw()]; exists {
		logger.TWire.LogAttrs(context.Background(), slog.LevelWarn, "register.token.duplicate",
			slog.String("template", t.Raw()),
		)
		return fmt.Errorf("callbacks: template already registered: %s", t.Raw())
	}
	r.byRaw[t.Raw()] = struct{}{}
	r.entries = append(r.entries, entry{template: t, handler: h})
	return nil
}

// Validate checks pairwise disjointness of all registered templates by
// instantiating each with sample parameters and probing every other pattern.
// Call it once after wiring, before the bot starts taking updates.
func (r *Registry) Validate() error {
	samples := make([]string, len(r.entries))
	for i, e := range r.entries {
		params := make(map[string]string, len(e.template.names))
		for _, name := range e.template.Names() {
			params[name] = "0"
		}
		token, err := e.template.Instantiate(params)
		if err != nil {
			return fmt.Errorf("callbacks: validate %s: %w", e.template.Raw(), err)
		}
		samples[i] = token
	}
	for i, e := range r.entries {
		for j, other := range r.entries {
			if i == j {
				continue
			}
			if other.template.Pattern().MatchString(samples[i]) {
				return fmt.Errorf("callbacks: templates %s and %s are ambiguous (token %q matches both)",
					e.template.Raw(), other.template.Raw(), samples[i])
			}
		}
	}
	return nil
}

// Dispatch matches the token against registered templates in registration
// order and invokes the first matching handler with decoded parameters.
// Unmatched tokens are not an error: handled is false and the update may
// fall through to other handlers.
func (r *Registry) Dispatch(c tele.Context, token string) (bool, error) {
	for _, e := range r.entries {
		params, ok := e.template.Decode(token)
		if !ok {
			continue
		}
		return true, e.handler(c, params)
	}
	return false, nil
}

// Len reports the number of registered templates.
func (r *Registry) Len() int { return len(r.entries) }

// Templates returns the raw template strings in registration order, for
// wiring diagnostics.
func (r *Registry) Templates() []string {
	out := make([]string, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.template.Raw()
	}
	return out
}

// RawToken extracts the raw callback data from an update, stripping the
// telebot "\f<unique>" framing when a button was built through markup.Data.
func RawToken(c tele.Context) string {
	cb := c.Callback()
	if cb == nil {
		return ""
	}
	if cb.Unique != "" {
		if cb.Data == "" {
			return cb.Unique
		}
		return cb.Unique + "|" + cb.Data
	}
	return strings.TrimPrefix(cb.Data, "\f")
}
