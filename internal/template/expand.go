package template

import (
	"math/rand"
	"strings"
)

// Expander renders a Template into a concrete message. The choice function
// is injected so tests can pin down which spintax options get picked.
type Expander struct {
	// intn returns a value in [0, n); n is always >= 1
	intn func(n int) int
}

// NewExpander creates an Expander with an explicit choice function
func NewExpander(intn func(n int) int) *Expander {
	return &Expander{intn: intn}
}

// NewRandomExpander creates an Expander drawing choices from rng
func NewRandomExpander(rng *rand.Rand) *Expander {
	return &Expander{intn: rng.Intn}
}

// Expand renders subject and body for one recipient: {{variable}}
// placeholders are substituted first, then choice groups are resolved.
// Subject and body each consume their own sequence of choices.
func (e *Expander) Expand(tmpl Template, vars map[string]string) (subject, body string) {
	subject = e.ResolveChoices(ReplaceVars(tmpl.Subject, vars))
	body = e.ResolveChoices(ReplaceVars(tmpl.Body, vars))
	return subject, body
}

// ReplaceVars substitutes every {{name}} occurrence with vars[name].
// Placeholders without a matching variable are left verbatim.
func ReplaceVars(text string, vars map[string]string) string {
	for name, value := range vars {
		text = strings.ReplaceAll(text, "{{"+name+"}}", value)
	}
	return text
}

// ResolveChoices resolves spintax choice groups: each {a|b|c} span becomes
// one uniformly chosen option. Groups are resolved innermost-first, so
// nested spans like {a|{b|c}} always collapse to a single option with no
// residual braces. Unbalanced braces are left as literal text.
func (e *Expander) ResolveChoices(text string) string {
	for {
		start, end, ok := innermostGroup(text)
		if !ok {
			return text
		}
		options := strings.Split(text[start+1:end], "|")
		text = text[:start] + options[e.intn(len(options))] + text[end+1:]
	}
}

// innermostGroup locates the first {...} span containing no nested braces.
// A group needs at least one character of content; an empty "{}" is
// malformed and stays literal, as does any span enclosing it.
func innermostGroup(s string) (start, end int, ok bool) {
	open := -1
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{':
			open = i
		case '}':
			if open < 0 {
				break
			}
			if i == open+1 {
				open = -1
				break
			}
			return open, i, true
		}
	}
	return 0, 0, false
}
