package configs

import "testing"

func TestSession_CloseDropsConfig(t *testing.T) {
	cfg := sampleConfig()
	session := NewSession(cfg)

	if len(session.ID) != 36 {
		t.Fatalf("Expected UUID session ID, got %q", session.ID)
	}
	if session.Config() != cfg {
		t.Fatal("Config should return the wrapped config")
	}

	session.Close()
	session.Close()

	if !session.Closed() {
		t.Error("Closed should report true after Close")
	}
	if session.Config() != nil {
		t.Error("Config should be nil after Close")
	}
	if cfg.GithubToken != "" || cfg.EncryptionPassphrase != "" {
		t.Error("Close should clear the secret fields")
	}
}

func TestSession_UniqueIDs(t *testing.T) {
	a := NewSession(&Config{})
	b := NewSession(&Config{})
	if a.ID == b.ID {
		t.Error("Sessions should have distinct IDs")
	}
}
