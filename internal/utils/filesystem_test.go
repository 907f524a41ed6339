package utils

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteFileAtomic_CreatesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.enc")

	if err := WriteFileAtomic(path, []byte("hello"), 0600); err != nil {
		t.Fatalf("WriteFileAtomic failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("Expected %q, got %q", "hello", string(data))
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Failed to stat file: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("Expected mode 0600, got %o", info.Mode().Perm())
	}
}

func TestWriteFileAtomic_ReplacesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tasks.json")

	if err := WriteFileAtomic(path, []byte("old"), 0600); err != nil {
		t.Fatalf("First write failed: %v", err)
	}
	if err := WriteFileAtomic(path, []byte("new contents"), 0600); err != nil {
		t.Fatalf("Second write failed: %v", err)
	}

	data, _ := os.ReadFile(path)
	if string(data) != "new contents" {
		t.Errorf("Expected replaced contents, got %q", string(data))
	}

	assertNoTempFiles(t, dir)
}

func TestWriteFileAtomic_CrashBeforeRenameKeepsOriginal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.enc")

	if err := WriteFileAtomic(path, []byte("original"), 0600); err != nil {
		t.Fatalf("Initial write failed: %v", err)
	}

	originalRename := renameFile
	renameFile = func(oldpath, newpath string) error {
		return errors.New("simulated crash")
	}
	defer func() { renameFile = originalRename }()

	err := WriteFileAtomic(path, []byte("replacement that never lands"), 0600)
	if err == nil {
		t.Fatal("Expected error from failed rename")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Original file should still be readable: %v", err)
	}
	if string(data) != "original" {
		t.Errorf("Expected original contents, got %q", string(data))
	}

	assertNoTempFiles(t, dir)
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "present")
	if err := os.WriteFile(path, []byte("x"), 0600); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	if !FileExists(path) {
		t.Error("Expected file to exist")
	}
	if FileExists(filepath.Join(dir, "absent")) {
		t.Error("Expected missing file to report false")
	}
	if FileExists(dir) {
		t.Error("Expected directory to report false")
	}
}

func assertNoTempFiles(t *testing.T, dir string) {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, ".*.tmp-*"))
	if err != nil {
		t.Fatalf("Glob failed: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("Expected temp files to be cleaned up, found %v", matches)
	}
}
