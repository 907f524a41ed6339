package configs

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	kerrors "github.com/PolarWolf314/tosk/internal/errors"
	"github.com/PolarWolf314/tosk/internal/secrets"
)

func TestLoadPreferences_MissingFileUsesDefaults(t *testing.T) {
	prefs, err := LoadPreferences(filepath.Join(t.TempDir(), "settings.toml"))
	if err != nil {
		t.Fatalf("LoadPreferences failed: %v", err)
	}

	if prefs.APIBaseURL != "https://api.github.com" {
		t.Errorf("Unexpected api_base_url %q", prefs.APIBaseURL)
	}
	if d, _ := prefs.Timeout(); d != 30*time.Second {
		t.Errorf("Expected 30s timeout, got %v", d)
	}
	if prefs.MaxGetRetries != 2 {
		t.Errorf("Expected 2 retries, got %d", prefs.MaxGetRetries)
	}
	if prefs.KDFIterations != secrets.DefaultKDFIterations {
		t.Errorf("Expected %d iterations, got %d", secrets.DefaultKDFIterations, prefs.KDFIterations)
	}
	if len(prefs.BackupFiles) != 3 || prefs.BackupFiles[0] != "tasks.json" {
		t.Errorf("Unexpected backup files %v", prefs.BackupFiles)
	}
}

func TestLoadPreferences_FillsMissingFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	content := "remote_prefix = \"/planner/\"\nrequest_timeout = \"5s\"\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	prefs, err := LoadPreferences(path)
	if err != nil {
		t.Fatalf("LoadPreferences failed: %v", err)
	}
	if prefs.RemotePrefix != "planner" {
		t.Errorf("Expected trimmed prefix planner, got %q", prefs.RemotePrefix)
	}
	if d, _ := prefs.Timeout(); d != 5*time.Second {
		t.Errorf("Expected 5s timeout, got %v", d)
	}
	if prefs.APIBaseURL != "https://api.github.com" || prefs.Cipher != string(secrets.DefaultCipher) {
		t.Errorf("Missing fields were not defaulted: %+v", prefs)
	}
}

func TestPreferencesValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(p *Preferences)
	}{
		{"http base url", func(p *Preferences) { p.APIBaseURL = "http://api.github.com" }},
		{"bad timeout", func(p *Preferences) { p.RequestTimeout = "soon" }},
		{"negative timeout", func(p *Preferences) { p.RequestTimeout = "-1s" }},
		{"weak kdf", func(p *Preferences) { p.KDFIterations = 1000 }},
		{"kdf above cap", func(p *Preferences) { p.KDFIterations = secrets.MaxKDFIterations + 1 }},
		{"unknown cipher", func(p *Preferences) { p.Cipher = "des" }},
		{"escaping prefix", func(p *Preferences) { p.RemotePrefix = "../elsewhere" }},
		{"too many retries", func(p *Preferences) { p.MaxGetRetries = 50 }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			prefs := DefaultPreferences()
			tc.modify(prefs)
			if err := prefs.Validate(); !errors.Is(err, kerrors.ErrInvalidPreferences) {
				t.Errorf("Expected ErrInvalidPreferences, got %v", err)
			}
		})
	}

	if err := DefaultPreferences().Validate(); err != nil {
		t.Errorf("Defaults should validate: %v", err)
	}
}

func TestSaveLoadPreferences(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tosk", "settings.toml")
	prefs := DefaultPreferences()
	prefs.BackupFiles = []string{"tasks.json", "exports/*.csv"}
	prefs.Cipher = string(secrets.ChaCha20Poly1305)

	if err := SavePreferences(path, prefs); err != nil {
		t.Fatalf("SavePreferences failed: %v", err)
	}

	loaded, err := LoadPreferences(path)
	if err != nil {
		t.Fatalf("LoadPreferences failed: %v", err)
	}
	if len(loaded.BackupFiles) != 2 || loaded.BackupFiles[1] != "exports/*.csv" {
		t.Errorf("Backup files not preserved: %v", loaded.BackupFiles)
	}
	if loaded.CipherSuite() != secrets.ChaCha20Poly1305 {
		t.Errorf("Cipher not preserved: %s", loaded.Cipher)
	}
}

func TestPaths(t *testing.T) {
	t.Setenv("TOSK_CONFIG_DIR", "/tmp/tosk-test")

	path, err := ConfigPath()
	if err != nil {
		t.Fatalf("ConfigPath failed: %v", err)
	}
	if path != filepath.Join("/tmp/tosk-test", "config.enc") {
		t.Errorf("Unexpected config path %q", path)
	}

	paths, _ := DefaultPaths()
	if paths.PreferencesFile() != filepath.Join("/tmp/tosk-test", "settings.toml") {
		t.Errorf("Unexpected preferences path %q", paths.PreferencesFile())
	}
}
