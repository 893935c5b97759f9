package template

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tmpl, err := Parse("SUBJECT: Quick question, {{first_name}}\n---\nHi {{first_name}},\n\nHow are you?")
	require.NoError(t, err)
	assert.Equal(t, "Quick question, {{first_name}}", tmpl.Subject)
	assert.Equal(t, "Hi {{first_name}},\n\nHow are you?", tmpl.Body)
}

func TestParseTrimsSubjectAndBody(t *testing.T) {
	tmpl, err := Parse("SUBJECT:   Hello  \n---\n\n\nBody text\n\n")
	require.NoError(t, err)
	assert.Equal(t, "Hello", tmpl.Subject)
	assert.Equal(t, "Body text", tmpl.Body)
}

func TestParseMissingSeparator(t *testing.T) {
	_, err := Parse("SUBJECT: Hello\nBody without separator")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "'---'")
}

func TestParseMissingSubjectPrefix(t *testing.T) {
	_, err := Parse("Hello\n---\nBody")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SUBJECT:")
}

func TestLoadMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "template.txt")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), path)
	assert.Contains(t, err.Error(), "template.example.txt")
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "template.txt")
	require.NoError(t, os.WriteFile(path, []byte("SUBJECT: Hi\n---\nBody"), 0o644))

	tmpl, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Hi", tmpl.Subject)
	assert.Equal(t, "Body", tmpl.Body)
}
