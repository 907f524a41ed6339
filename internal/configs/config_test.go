package configs

import (
	"errors"
	"strings"
	"testing"

	kerrors "github.com/PolarWolf314/tosk/internal/errors"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"complete", Config{GithubToken: "t", GithubOwner: "o", GithubRepo: "r"}, false},
		{"missing token", Config{GithubOwner: "o", GithubRepo: "r"}, true},
		{"blank owner", Config{GithubToken: "t", GithubOwner: "  ", GithubRepo: "r"}, true},
		{"slash in repo", Config{GithubToken: "t", GithubOwner: "o", GithubRepo: "a/b"}, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.wantErr && !errors.Is(err, kerrors.ErrIncompleteRemoteConfig) {
				t.Errorf("Expected ErrIncompleteRemoteConfig, got %v", err)
			}
			if !tc.wantErr && err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		})
	}
}

func TestConfigRedacted(t *testing.T) {
	cfg := Config{GithubToken: "ghp_abcdefghijklmnop", EncryptionPassphrase: "short", GithubOwner: "octocat"}
	red := cfg.Redacted()

	if strings.Contains(red.GithubToken, "ijklmnop") {
		t.Errorf("Token not redacted: %q", red.GithubToken)
	}
	if !strings.HasPrefix(red.GithubToken, "ghp_") {
		t.Errorf("Redacted token should keep its prefix, got %q", red.GithubToken)
	}
	if red.EncryptionPassphrase != "********" {
		t.Errorf("Short secret should be fully masked, got %q", red.EncryptionPassphrase)
	}
	if red.GithubOwner != "octocat" {
		t.Error("Non-secret fields should be kept")
	}
	if cfg.GithubToken != "ghp_abcdefghijklmnop" {
		t.Error("Redacted must not modify the original")
	}
}

func TestParsePayload_IgnoresUnknownFields(t *testing.T) {
	cfg, err := parsePayload([]byte(` {"github_owner":"o","extra":[1,2,3]} `))
	if err != nil {
		t.Fatalf("parsePayload failed: %v", err)
	}
	if cfg.GithubOwner != "o" || cfg.SchemaVersion != CurrentSchemaVersion {
		t.Errorf("Unexpected config: %+v", cfg)
	}
}
