package progress

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/codedeck/mailer/internal/logger"
)

const campaignName = "email-campaign"

// ledger is the on-disk shape of the progress file
type ledger struct {
	Campaign    string            `json:"campaign"`
	Sent        []string          `json:"sent"`
	Failed      map[string]string `json:"failed"`
	LastUpdated string            `json:"last_updated,omitempty"`
	DailyCount  int               `json:"daily_count"`
	DailyDate   string            `json:"daily_date,omitempty"`
}

func emptyLedger() ledger {
	return ledger{
		Campaign: campaignName,
		Sent:     []string{},
		Failed:   map[string]string{},
	}
}

// Store owns the durable send-progress ledger. Every mutating call persists
// the whole ledger with a temp-file-then-rename write, so a crash mid-write
// never corrupts the previously committed state.
type Store struct {
	path string
	log  *logger.Logger
	now  func() time.Time
	data ledger
}

// Open loads the ledger at path. A missing file means an empty ledger; an
// unparsable file is treated the same way with a warning, never an error.
func Open(path string, log *logger.Logger) (*Store, error) {
	s := &Store{
		path: path,
		log:  log.WithComponent("progress"),
		now:  time.Now,
		data: emptyLedger(),
	}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read progress file %s: %w", path, err)
	}

	var data ledger
	if err := json.Unmarshal(raw, &data); err != nil {
		s.log.Warn().Err(err).Str("path", path).Msg("could not parse progress file, starting fresh")
		return s, nil
	}
	if data.Sent == nil {
		data.Sent = []string{}
	}
	if data.Failed == nil {
		data.Failed = map[string]string{}
	}
	s.data = data

	s.log.Info().
		Int("sent", len(data.Sent)).
		Int("failed", len(data.Failed)).
		Msg("loaded progress")
	return s, nil
}

// IsSent reports whether email has already been sent to, case-insensitively
func (s *Store) IsSent(email string) bool {
	for _, sent := range s.data.Sent {
		if strings.EqualFold(sent, email) {
			return true
		}
	}
	return false
}

// MarkSent records a successful send and bumps the daily counter
func (s *Store) MarkSent(email string) error {
	s.data.Sent = append(s.data.Sent, email)
	s.updateDailyCount()
	return s.save()
}

// MarkFailed records a failed send; the latest reason wins
func (s *Store) MarkFailed(email, reason string) error {
	s.data.Failed[email] = reason
	return s.save()
}

// DailyCount returns the number of sends recorded for today (UTC).
// A stored date other than today reads as zero; nothing is mutated.
func (s *Store) DailyCount() int {
	if s.data.DailyDate != s.today() {
		return 0
	}
	return s.data.DailyCount
}

// SentCount returns the total number of addresses ever marked sent
func (s *Store) SentCount() int {
	return len(s.data.Sent)
}

// FailedCount returns the number of addresses with a recorded failure
func (s *Store) FailedCount() int {
	return len(s.data.Failed)
}

// Reset clears the ledger back to empty and persists it
func (s *Store) Reset() error {
	s.data = emptyLedger()
	if err := s.save(); err != nil {
		return err
	}
	s.log.Info().Msg("progress reset")
	return nil
}

func (s *Store) today() string {
	return s.now().UTC().Format("2006-01-02")
}

// updateDailyCount restarts the counter at 1 on the first send of a new
// UTC calendar day, otherwise increments it.
func (s *Store) updateDailyCount() {
	today := s.today()
	if s.data.DailyDate != today {
		s.data.DailyDate = today
		s.data.DailyCount = 1
		return
	}
	s.data.DailyCount++
}

func (s *Store) save() error {
	s.data.LastUpdated = s.now().UTC().Format(time.RFC3339)

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create progress directory: %w", err)
		}
	}

	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode progress: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write progress temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to commit progress file: %w", err)
	}
	return nil
}
