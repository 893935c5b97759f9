package progress

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codedeck/mailer/internal/logger"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "progress.json")
	s, err := Open(path, logger.Nop())
	require.NoError(t, err)
	return s, path
}

func readLedger(t *testing.T, path string) ledger {
	t.Helper()
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var data ledger
	require.NoError(t, json.Unmarshal(raw, &data))
	return data
}

func TestOpenMissingFile(t *testing.T) {
	s, _ := newTestStore(t)
	assert.Equal(t, 0, s.SentCount())
	assert.Equal(t, 0, s.FailedCount())
	assert.Equal(t, 0, s.DailyCount())
}

func TestOpenCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "progress.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	s, err := Open(path, logger.Nop())
	require.NoError(t, err)
	assert.Equal(t, 0, s.SentCount())
}

func TestMarkSentPersistsAndReloads(t *testing.T) {
	s, path := newTestStore(t)
	require.NoError(t, s.MarkSent("foo@bar.com"))

	reloaded, err := Open(path, logger.Nop())
	require.NoError(t, err)
	assert.True(t, reloaded.IsSent("foo@bar.com"))
	assert.Equal(t, 1, reloaded.SentCount())
}

func TestIsSentCaseInsensitive(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.MarkSent("foo@bar.com"))
	assert.True(t, s.IsSent("FOO@bar.com"))
	assert.False(t, s.IsSent("other@bar.com"))
}

func TestMarkFailedLatestReasonWins(t *testing.T) {
	s, path := newTestStore(t)
	require.NoError(t, s.MarkFailed("foo@bar.com", "timeout"))
	require.NoError(t, s.MarkFailed("foo@bar.com", "mailbox full"))

	data := readLedger(t, path)
	assert.Equal(t, "mailbox full", data.Failed["foo@bar.com"])
	assert.Equal(t, 1, s.FailedCount())
}

func TestDailyCountAcrossDateBoundary(t *testing.T) {
	s, _ := newTestStore(t)

	day1 := time.Date(2026, 8, 29, 23, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 8, 30, 1, 0, 0, 0, time.UTC)

	s.now = func() time.Time { return day1 }
	require.NoError(t, s.MarkSent("a@x.com"))
	require.NoError(t, s.MarkSent("b@x.com"))
	assert.Equal(t, 2, s.DailyCount())

	// A new UTC day reads as zero without mutating anything
	s.now = func() time.Time { return day2 }
	assert.Equal(t, 0, s.DailyCount())

	s.now = func() time.Time { return day1 }
	assert.Equal(t, 2, s.DailyCount(), "pure read must not have reset the stored counter")

	// First send of the new day restarts the counter at 1
	s.now = func() time.Time { return day2 }
	require.NoError(t, s.MarkSent("c@x.com"))
	assert.Equal(t, 1, s.DailyCount())
}

func TestSaveIsAtomic(t *testing.T) {
	s, path := newTestStore(t)
	require.NoError(t, s.MarkSent("foo@bar.com"))

	// No temp file is left behind after a committed write
	assert.NoFileExists(t, path+".tmp")

	// A crash between temp write and rename leaves a stale temp file; the
	// committed ledger must still load intact
	require.NoError(t, os.WriteFile(path+".tmp", []byte("{half-writ"), 0o644))

	reloaded, err := Open(path, logger.Nop())
	require.NoError(t, err)
	assert.True(t, reloaded.IsSent("foo@bar.com"))
}

func TestReset(t *testing.T) {
	s, path := newTestStore(t)
	require.NoError(t, s.MarkSent("foo@bar.com"))
	require.NoError(t, s.MarkFailed("baz@bar.com", "bounced"))

	require.NoError(t, s.Reset())
	assert.Equal(t, 0, s.SentCount())
	assert.Equal(t, 0, s.FailedCount())
	assert.Equal(t, 0, s.DailyCount())

	data := readLedger(t, path)
	assert.Empty(t, data.Sent)
	assert.Empty(t, data.Failed)
}

func TestSaveCreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "progress.json")
	s, err := Open(path, logger.Nop())
	require.NoError(t, err)
	require.NoError(t, s.MarkSent("foo@bar.com"))
	assert.FileExists(t, path)
}
