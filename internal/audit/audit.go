package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PolarWolf314/tosk/internal/utils"
)

const timestampLayout = "2006-01-02T15:04:05.000000Z"

// Operation names recorded in the history.
const (
	OpConfigInit   = "config-init"
	OpConfigUpdate = "config-update"
	OpBackup       = "backup"
	OpRestore      = "restore"
)

// Entry represents a single history entry.
type Entry struct {
	Timestamp string `json:"ts"`      // RFC3339 with microseconds.
	Device    string `json:"device"`  // user@host that ran the operation.
	Session   string `json:"session"` // Session UUID.
	Operation string `json:"op"`

	// Optional fields depending on operation.
	Repository string   `json:"repo,omitempty"`      // owner/repo for backup/restore.
	Files      []string `json:"files,omitempty"`     // Files that succeeded.
	Failed     []string `json:"failed,omitempty"`    // Files that failed.
	Encrypted  bool     `json:"encrypted,omitempty"` // Whether blobs were sealed.
	DurationMS int64    `json:"duration_ms,omitempty"`
	Error      string   `json:"error,omitempty"` // Summary of the batch error.
}

// NewEntry returns an entry for op with the device label and session filled in.
func NewEntry(op, session string) Entry {
	device := utils.DeviceLabel()
	return Entry{Operation: op, Session: session, Device: device}
}

// Log appends entry to the history at path.
// Failures are ignored: an operation never fails because its history
// could not be written.
func Log(path string, entry Entry) {
	if path == "" {
		return
	}
	if entry.Timestamp == "" {
		entry.Timestamp = time.Now().UTC().Format(timestampLayout)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return
	}
	defer f.Close()

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	_, _ = f.Write(append(data, '\n'))
}

// ReadEntries reads all entries from the history at path.
// Returns an empty slice if the file doesn't exist.
func ReadEntries(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return ParseEntries(data)
}

// ParseEntries parses JSON Lines data into entries.
// Malformed lines are silently skipped.
func ParseEntries(data []byte) ([]Entry, error) {
	var entries []Entry
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var entry Entry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Last returns at most n of the most recent entries.
func Last(entries []Entry, n int) []Entry {
	if n <= 0 || n >= len(entries) {
		return entries
	}
	return entries[len(entries)-n:]
}

// String renders the entry as one line:
//
//	[2025-03-01 09:00:00] BACKUP - 3 ok; octocat/backups; encrypted; from alice@laptop
func (e Entry) String() string {
	ts := e.Timestamp
	if t, err := time.Parse(timestampLayout, e.Timestamp); err == nil {
		ts = t.Local().Format("2006-01-02 15:04:05")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", ts, strings.ToUpper(strings.ReplaceAll(e.Operation, "-", "_")))

	var details []string
	if len(e.Files) > 0 || len(e.Failed) > 0 {
		d := fmt.Sprintf("%d ok", len(e.Files))
		if len(e.Failed) > 0 {
			d += fmt.Sprintf(", %d failed (%s)", len(e.Failed), strings.Join(e.Failed, ", "))
		}
		details = append(details, d)
	}
	if e.Repository != "" {
		details = append(details, e.Repository)
	}
	if e.Encrypted {
		details = append(details, "encrypted")
	}
	if e.Device != "" {
		details = append(details, "from "+e.Device)
	}
	if len(details) > 0 {
		b.WriteString(" - ")
		b.WriteString(strings.Join(details, "; "))
	}
	return b.String()
}
