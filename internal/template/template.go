package template

import (
	"fmt"
	"os"
	"strings"
)

const subjectPrefix = "SUBJECT:"

// Template holds the subject and body templates for one campaign.
// Both may contain {{variable}} placeholders and {a|b|c} choice groups.
type Template struct {
	Subject string
	Body    string
}

// Load reads and parses a template file. A missing or malformed file is a
// startup error; the message tells the operator how to fix it.
func Load(path string) (Template, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Template{}, fmt.Errorf("template file %s not found: copy data/template.example.txt to %s and customize your message", path, path)
		}
		return Template{}, fmt.Errorf("failed to read template file %s: %w", path, err)
	}
	tmpl, err := Parse(string(content))
	if err != nil {
		return Template{}, fmt.Errorf("invalid template in %s: %w", path, err)
	}
	return tmpl, nil
}

// Parse splits template content into subject and body.
//
// The expected format is a SUBJECT: line, then "---" on a line of its own,
// then the body:
//
//	SUBJECT: {Quick|Short} question, {{first_name}}
//	---
//	Hi {{first_name}}, ...
func Parse(content string) (Template, error) {
	header, body, found := strings.Cut(content, "\n---\n")
	if !found {
		return Template{}, fmt.Errorf("the file must have a SUBJECT: line, then '---' on its own line, then the body")
	}

	subjectLine := strings.TrimSpace(header)
	if !strings.HasPrefix(subjectLine, subjectPrefix) {
		return Template{}, fmt.Errorf("the file must start with 'SUBJECT: ...'")
	}

	return Template{
		Subject: strings.TrimSpace(strings.TrimPrefix(subjectLine, subjectPrefix)),
		Body:    strings.TrimSpace(body),
	}, nil
}
