package audit

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLog_CreatesFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "tosk", "history.jsonl")

	Log(logPath, Entry{Device: "alice@laptop", Operation: OpBackup, Files: []string{"tasks.json"}})

	info, err := os.Stat(logPath)
	if os.IsNotExist(err) {
		t.Fatalf("History file was not created")
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("Expected 0600 permissions, got %o", info.Mode().Perm())
	}
}

func TestLog_AppendsEntries(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "history.jsonl")

	Log(logPath, Entry{Device: "alice@laptop", Operation: OpConfigInit})
	Log(logPath, Entry{Device: "alice@laptop", Operation: OpBackup, Files: []string{"tasks.json"}})
	Log(logPath, Entry{Device: "alice@desktop", Operation: OpRestore, Failed: []string{"task_log.txt"}})

	entries, err := ReadEntries(logPath)
	if err != nil {
		t.Fatalf("ReadEntries failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(entries))
	}
	if entries[0].Operation != OpConfigInit || entries[2].Device != "alice@desktop" {
		t.Errorf("Entries out of order: %+v", entries)
	}
	for _, e := range entries {
		if e.Timestamp == "" {
			t.Error("Timestamp should be set automatically")
		}
	}
}

func TestLog_EmptyPathIsNoop(t *testing.T) {
	Log("", Entry{Operation: OpBackup})
}

func TestReadEntries_Missing(t *testing.T) {
	entries, err := ReadEntries(filepath.Join(t.TempDir(), "none.jsonl"))
	if err != nil || entries != nil {
		t.Errorf("Expected no entries and no error, got %v, %v", entries, err)
	}
}

func TestParseEntries_SkipsMalformedLines(t *testing.T) {
	data := []byte(`{"ts":"2025-03-01T09:00:00.000000Z","op":"backup"}
not json
{"ts":"2025-03-01T10:00:00.000000Z","op":"restore"}

`)
	entries, _ := ParseEntries(data)
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	if entries[1].Operation != OpRestore {
		t.Errorf("Unexpected entry %+v", entries[1])
	}
}

func TestLast(t *testing.T) {
	entries := []Entry{{Operation: "a"}, {Operation: "b"}, {Operation: "c"}}
	if got := Last(entries, 2); len(got) != 2 || got[0].Operation != "b" {
		t.Errorf("Unexpected tail %+v", got)
	}
	if got := Last(entries, 0); len(got) != 3 {
		t.Errorf("n=0 should return everything, got %d", len(got))
	}
}

func TestEntryString(t *testing.T) {
	e := Entry{
		Timestamp:  "not a timestamp",
		Operation:  OpConfigInit,
		Device:     "alice@laptop",
		Repository: "octocat/backups",
		Files:      []string{"tasks.json"},
		Failed:     []string{"task_log.txt"},
		Encrypted:  true,
	}
	got := e.String()
	for _, want := range []string{"[not a timestamp] CONFIG_INIT", "1 ok, 1 failed (task_log.txt)", "octocat/backups", "encrypted", "from alice@laptop"} {
		if !strings.Contains(got, want) {
			t.Errorf("Expected %q in %q", want, got)
		}
	}
}

func TestNewEntry(t *testing.T) {
	e := NewEntry(OpBackup, "session-1")
	if e.Operation != OpBackup || e.Session != "session-1" || e.Device == "" {
		t.Errorf("Unexpected entry %+v", e)
	}
}
