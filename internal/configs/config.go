package configs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	kerrors "github.com/PolarWolf314/tosk/internal/errors"
)

// CurrentSchemaVersion is the payload schema written by this build.
const CurrentSchemaVersion = 1

// Config is the decrypted configuration. It only ever exists in memory;
// on disk it is always wrapped in an encrypted envelope.
type Config struct {
	GithubToken          string `json:"github_token"`
	GithubOwner          string `json:"github_owner"`
	GithubRepo           string `json:"github_repo"`
	EncryptionPassphrase string `json:"encryption_passphrase"`
	SchemaVersion        int    `json:"schema_version"`
}

// HasRemote reports whether token, owner and repository are all set.
func (c *Config) HasRemote() bool {
	return c.GithubToken != "" && c.GithubOwner != "" && c.GithubRepo != ""
}

// Repository returns "owner/repo".
func (c *Config) Repository() string {
	return c.GithubOwner + "/" + c.GithubRepo
}

// Validate checks the fields a first-run flow collects.
func (c *Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.GithubToken) == "" {
		missing = append(missing, "github_token")
	}
	if strings.TrimSpace(c.GithubOwner) == "" {
		missing = append(missing, "github_owner")
	}
	if strings.TrimSpace(c.GithubRepo) == "" {
		missing = append(missing, "github_repo")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", kerrors.ErrIncompleteRemoteConfig, strings.Join(missing, ", "))
	}
	if strings.ContainsAny(c.GithubOwner, "/ ") || strings.ContainsAny(c.GithubRepo, "/ ") {
		return fmt.Errorf("%w: owner and repository must not contain slashes or spaces", kerrors.ErrIncompleteRemoteConfig)
	}
	return nil
}

// Redacted returns a copy safe to print: secrets are replaced by a marker.
func (c Config) Redacted() Config {
	c.GithubToken = redact(c.GithubToken)
	c.EncryptionPassphrase = redact(c.EncryptionPassphrase)
	return c
}

// clear drops the references to secret strings.
func (c *Config) clear() {
	*c = Config{}
}

func redact(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "…" + "****"
}

// marshalPayload produces the canonical plaintext for encryption.
func marshalPayload(c *Config) ([]byte, error) {
	out := *c
	out.SchemaVersion = CurrentSchemaVersion
	return json.Marshal(&out)
}

// parsePayload decodes a decrypted payload. Unknown fields are ignored,
// missing fields keep their zero value, and a missing schema_version is
// treated as the current version.
func parsePayload(data []byte) (*Config, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("payload is not a JSON object")
	}

	var cfg Config
	if err := json.Unmarshal(trimmed, &cfg); err != nil {
		return nil, fmt.Errorf("payload is not valid JSON: %w", err)
	}

	switch {
	case cfg.SchemaVersion == 0:
		cfg.SchemaVersion = CurrentSchemaVersion
	case cfg.SchemaVersion < 0 || cfg.SchemaVersion > CurrentSchemaVersion:
		return nil, fmt.Errorf("unsupported schema version %d", cfg.SchemaVersion)
	}

	return &cfg, nil
}
