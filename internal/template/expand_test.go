package template

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func pickFirst(int) int { return 0 }

func pickLast(n int) int { return n - 1 }

func TestReplaceVars(t *testing.T) {
	vars := map[string]string{"first_name": "Ana"}
	assert.Equal(t, "Hi Ana!", ReplaceVars("Hi {{first_name}}!", vars))
	// Placeholders without a matching variable stay verbatim
	assert.Equal(t, "Hi {{last_name}}!", ReplaceVars("Hi {{last_name}}!", vars))
}

func TestExpandForcedChoices(t *testing.T) {
	tmpl := Template{Subject: "{{first_name}}, {hi|hello}!", Body: "{{first_name}}, {hi|hello}!"}
	vars := map[string]string{"first_name": "Ana"}

	subject, body := NewExpander(pickFirst).Expand(tmpl, vars)
	assert.Equal(t, "Ana, hi!", subject)
	assert.Equal(t, "Ana, hi!", body)

	subject, body = NewExpander(pickLast).Expand(tmpl, vars)
	assert.Equal(t, "Ana, hello!", subject)
	assert.Equal(t, "Ana, hello!", body)
}

func TestResolveChoicesNested(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	e := NewRandomExpander(rng)

	// Nested groups always collapse to exactly one option, never leave braces
	for i := 0; i < 100; i++ {
		out := e.ResolveChoices("{a|{b|c}}")
		assert.Contains(t, []string{"a", "b", "c"}, out)
		assert.NotContains(t, out, "{")
		assert.NotContains(t, out, "}")
	}
}

func TestResolveChoicesDegenerate(t *testing.T) {
	e := NewExpander(pickFirst)
	assert.Equal(t, "only", e.ResolveChoices("{only}"))
}

func TestResolveChoicesUnbalanced(t *testing.T) {
	e := NewExpander(pickFirst)
	assert.Equal(t, "{a|b", e.ResolveChoices("{a|b"))
	assert.Equal(t, "a|b}", e.ResolveChoices("a|b}"))
	// The balanced group resolves, the stray brace stays literal
	assert.Equal(t, "a}", e.ResolveChoices("{a|b}}"))
}

func TestResolveChoicesEmptyGroupStaysLiteral(t *testing.T) {
	e := NewExpander(pickFirst)
	assert.Equal(t, "{}", e.ResolveChoices("{}"))
	// A balanced group next to an empty one still resolves
	assert.Equal(t, "{} a", e.ResolveChoices("{} {a|b}"))
	// An empty group poisons its enclosing span too
	assert.Equal(t, "{a|{}|b}", e.ResolveChoices("{a|{}|b}"))
}

func TestSubjectAndBodyDrawIndependently(t *testing.T) {
	// A scripted choice sequence: first draw picks the first option, the
	// second picks the second, proving subject and body each consume their
	// own draws in order.
	calls := 0
	e := NewExpander(func(n int) int {
		pick := calls % n
		calls++
		return pick
	})

	subject, body := e.Expand(Template{Subject: "{x|y}", Body: "{x|y}"}, nil)
	assert.Equal(t, "x", subject)
	assert.Equal(t, "y", body)
	assert.Equal(t, 2, calls)
}

func TestResolveChoicesUniform(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	e := NewRandomExpander(rng)

	seen := map[string]int{}
	for i := 0; i < 300; i++ {
		seen[e.ResolveChoices("{a|b|c}")]++
	}
	for _, opt := range []string{"a", "b", "c"} {
		assert.Greater(t, seen[opt], 0, "option %q never chosen", opt)
	}
}

func TestExpandWholeTemplate(t *testing.T) {
	tmpl := Template{
		Subject: "{Quick|Short} question, {{first_name}}",
		Body:    "Hi {{first_name}},\n\n{Hope you're well|Hope all is good}.",
	}
	subject, body := NewExpander(pickFirst).Expand(tmpl, map[string]string{"first_name": "Ana"})
	assert.Equal(t, "Quick question, Ana", subject)
	assert.Equal(t, "Hi Ana,\n\nHope you're well.", body)
	assert.False(t, strings.ContainsAny(subject+body, "{}"))
}
