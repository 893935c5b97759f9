package model

import "strings"

// Source identifies where a recipient was discovered
type Source string

// Recipient source constants
const (
	SourceMongo  Source = "mongodb"
	SourceFile   Source = "file"
	SourceManual Source = "manual"
)

// Recipient represents a single campaign target
type Recipient struct {
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	Source    Source `json:"source"`
}

// NormalizeEmail trims and lowercases an address so it can serve as a
// deduplication key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidEmail reports whether a normalized address is usable as a recipient key
func ValidEmail(email string) bool {
	return email != "" && strings.Contains(email, "@")
}

// FirstName extracts the first name from a display name. An empty or
// whitespace-only name falls back to the greeting-friendly "there".
func FirstName(displayName string) string {
	trimmed := strings.TrimSpace(displayName)
	if trimmed == "" {
		return "there"
	}
	return strings.Fields(trimmed)[0]
}

// FirstNameFromAddress guesses a first name from the local part of an
// address ("jane.doe@example.com" -> "Jane"). Used for manual test sends
// where no display name is available.
func FirstNameFromAddress(email string) string {
	local, _, _ := strings.Cut(email, "@")
	first, _, _ := strings.Cut(local, ".")
	if first == "" {
		return "there"
	}
	return strings.ToUpper(first[:1]) + first[1:]
}
