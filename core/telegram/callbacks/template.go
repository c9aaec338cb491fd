package callbacks

import (
	"fmt"
	"regexp"
	"strings"
)

// MaxTokenBytes is the Telegram limit for callback_data payloads.
const MaxTokenBytes = 64

// Template describes a callback token layout such as "tx=cat|${categoryID}".
// Literal segments identify the handler, ${name} placeholders carry
// parameters. Templates are immutable after Parse and safe for concurrent use.
type Template struct {
	raw      string
	literals []string
	names    []string
	pattern  *regexp.Regexp
}

var placeholderRe = regexp.MustCompile(`\$\{([A-Za-z][A-Za-z0-9_]*)\}`)

// Parse compiles a raw template string into a Template.
// The template must contain at least one literal character before the first
// placeholder so instantiated tokens stay distinguishable.
func Parse(raw string) (*Template, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("callbacks: empty template")
	}

	matches := placeholderRe.FindAllStringSubmatchIndex(raw, -1)

	t := &Template{raw: raw}
	prev := 0
	for _, m := range matches {
		t.literals = append(t.literals, raw[prev:m[0]])
		t.names = append(t.names, raw[m[2]:m[3]])
		prev = m[1]
	}
	t.literals = append(t.literals, raw[prev:])

	if t.literals[0] == "" {
		return nil, fmt.Errorf("callbacks: template %q has no literal prefix", raw)
	}
	seen := make(map[string]struct{}, len(t.names))
	for _, name := range t.names {
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("callbacks: template %q repeats placeholder %q", raw, name)
		}
		seen[name] = struct{}{}
	}

	var b strings.Builder
	b.WriteString("^")
	for i, lit := range t.literals {
		b.WriteString(regexp.QuoteMeta(lit))
		if i < len(t.names) {
			b.WriteString("([^|]+)")
		}
	}
	b.WriteString("$")
	pattern, err := regexp.Compile(b.String())
	if err != nil {
		return nil, fmt.Errorf("callbacks: compile pattern for %q: %w", raw, err)
	}
	t.pattern = pattern

	return t, nil
}

// MustParse is Parse that panics on error. Intended for package-level
// template declarations where a bad template is a programmer error.
func MustParse(raw string) *Template {
	t, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return t
}

// Raw returns the original template string.
func (t *Template) Raw() string { return t.raw }

// Prefix returns the literal segment before the first placeholder.
func (t *Template) Prefix() string { return t.literals[0] }

// Names returns the placeholder names in template order.
func (t *Template) Names() []string {
	return append([]string(nil), t.names...)
}

// Pattern returns the anchored regular expression matching instances of
// this template and only this template's literal layout.
func (t *Template) Pattern() *regexp.Regexp { return t.pattern }

// Instantiate substitutes params into the template and returns the token.
// Every placeholder must be present in params; the result must be non-empty
// and fit into MaxTokenBytes when encoded as UTF-8.
func (t *Template) Instantiate(params map[string]string) (string, error) {
	var b strings.Builder
	for i, lit := range t.literals {
		b.WriteString(lit)
		if i < len(t.names) {
			val, ok := params[t.names[i]]
			if !ok {
				return "", fmt.Errorf("callbacks: template %q: missing parameter %q", t.raw, t.names[i])
			}
			if val == "" {
				return "", fmt.Errorf("callbacks: template %q: empty parameter %q", t.raw, t.names[i])
			}
			if strings.Contains(val, "|") {
				return "", fmt.Errorf("callbacks: template %q: parameter %q contains reserved delimiter", t.raw, t.names[i])
			}
			b.WriteString(val)
		}
	}
	token := b.String()
	if token == "" {
		return "", fmt.Errorf("callbacks: template %q produced an empty token", t.raw)
	}
	if len(token) > MaxTokenBytes {
		return "", fmt.Errorf("callbacks: template %q produced %d bytes, limit is %d", t.raw, len(token), MaxTokenBytes)
	}
	return token, nil
}

// Decode matches token against the template pattern and recovers the
// placeholder values. The second return value is false when the token does
// not belong to this template.
func (t *Template) Decode(token string) (map[string]string, bool) {
	m := t.pattern.FindStringSubmatch(token)
	if m == nil {
		return nil, false
	}
	params := make(map[string]string, len(t.names))
	for i, name := range t.names {
		params[name] = m[i+1]
	}
	return params, true
}
