package source

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/codedeck/mailer/internal/model"
)

// fileList is the shape of the local recipient file
type fileList struct {
	Recipients []fileEntry `json:"recipients"`
}

type fileEntry struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// FileSource reads recipients from a local JSON file
type FileSource struct {
	path string
}

// NewFileSource creates a new FileSource
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Name identifies the source in logs
func (f *FileSource) Name() string {
	return "file"
}

// Fetch reads the recipient file. A missing file yields zero recipients
// without error; entries with an invalid address are skipped.
func (f *FileSource) Fetch(_ context.Context) ([]model.Recipient, error) {
	raw, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", f.path, err)
	}

	var list fileList
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", f.path, err)
	}

	seen := make(map[string]struct{})
	var recipients []model.Recipient
	for _, entry := range list.Recipients {
		email := model.NormalizeEmail(entry.Email)
		if !model.ValidEmail(email) {
			continue
		}
		if _, dup := seen[email]; dup {
			continue
		}
		seen[email] = struct{}{}
		recipients = append(recipients, model.Recipient{
			Email:     email,
			FirstName: model.FirstName(entry.Name),
			Source:    model.SourceFile,
		})
	}
	return recipients, nil
}
