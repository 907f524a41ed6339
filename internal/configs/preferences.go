package configs

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	kerrors "github.com/PolarWolf314/tosk/internal/errors"
	"github.com/PolarWolf314/tosk/internal/secrets"
	"github.com/PolarWolf314/tosk/internal/utils"
)

const (
	configFileName      = "config.enc"
	preferencesFileName = "settings.toml"
	historyFileName     = "history.jsonl"
)

// Preferences are the non-secret settings kept in settings.toml.
type Preferences struct {
	APIBaseURL     string   `toml:"api_base_url" json:"api_base_url"`
	RequestTimeout string   `toml:"request_timeout" json:"request_timeout"`
	MaxGetRetries  int      `toml:"max_get_retries" json:"max_get_retries"`
	RemotePrefix   string   `toml:"remote_prefix" json:"remote_prefix"`
	DataDir        string   `toml:"data_dir" json:"data_dir"`
	BackupFiles    []string `toml:"backup_files" json:"backup_files"`
	KDFIterations  int      `toml:"kdf_iterations" json:"kdf_iterations"`
	Cipher         string   `toml:"cipher" json:"cipher"`
}

// DefaultBackupFiles are the files the planner keeps in its data directory.
var DefaultBackupFiles = []string{"tasks.json", "task_log.txt", "tasks_export.csv"}

// DefaultPreferences returns preferences with every field set.
func DefaultPreferences() *Preferences {
	dataDir, err := utils.DataDir()
	if err != nil {
		dataDir = ""
	}
	return &Preferences{
		APIBaseURL:     "https://api.github.com",
		RequestTimeout: "30s",
		MaxGetRetries:  2,
		RemotePrefix:   "backups",
		DataDir:        dataDir,
		BackupFiles:    append([]string(nil), DefaultBackupFiles...),
		KDFIterations:  secrets.DefaultKDFIterations,
		Cipher:         string(secrets.DefaultCipher),
	}
}

// LoadPreferences reads settings.toml. A missing file yields the defaults;
// fields absent from the file keep their default values.
func LoadPreferences(path string) (*Preferences, error) {
	prefs := DefaultPreferences()

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return prefs, nil
	}

	if _, err := LoadTOML(path, prefs); err != nil {
		return nil, fmt.Errorf("%w: %v", kerrors.ErrInvalidPreferences, err)
	}
	prefs.fillDefaults()

	if err := prefs.Validate(); err != nil {
		return nil, err
	}
	return prefs, nil
}

// SavePreferences writes prefs to path.
func SavePreferences(path string, prefs *Preferences) error {
	if err := prefs.Validate(); err != nil {
		return err
	}
	return SaveTOML(path, prefs)
}

// Validate rejects settings that would weaken transport or key derivation.
func (p *Preferences) Validate() error {
	u, err := url.Parse(p.APIBaseURL)
	if err != nil {
		return fmt.Errorf("%w: api_base_url: %v", kerrors.ErrInvalidPreferences, err)
	}
	if u.Scheme != "https" || u.Host == "" {
		return fmt.Errorf("%w: api_base_url must be an https URL, got %q", kerrors.ErrInvalidPreferences, p.APIBaseURL)
	}

	if _, err := p.Timeout(); err != nil {
		return err
	}
	if p.MaxGetRetries < 0 || p.MaxGetRetries > 10 {
		return fmt.Errorf("%w: max_get_retries must be between 0 and 10", kerrors.ErrInvalidPreferences)
	}
	if p.KDFIterations < secrets.MinKDFIterations || p.KDFIterations > secrets.MaxKDFIterations {
		return fmt.Errorf("%w: kdf_iterations must be between %d and %d", kerrors.ErrInvalidPreferences, secrets.MinKDFIterations, secrets.MaxKDFIterations)
	}
	if _, err := secrets.ParseCipher(p.Cipher); err != nil {
		return fmt.Errorf("%w: %v", kerrors.ErrInvalidPreferences, err)
	}
	if strings.Contains(p.RemotePrefix, "..") || strings.HasPrefix(p.RemotePrefix, "/") {
		return fmt.Errorf("%w: remote_prefix must be a relative path", kerrors.ErrInvalidPreferences)
	}
	return nil
}

// Timeout parses request_timeout.
func (p *Preferences) Timeout() (time.Duration, error) {
	d, err := time.ParseDuration(p.RequestTimeout)
	if err != nil {
		return 0, fmt.Errorf("%w: request_timeout: %v", kerrors.ErrInvalidPreferences, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%w: request_timeout must be positive", kerrors.ErrInvalidPreferences)
	}
	return d, nil
}

// CipherSuite returns the configured cipher. Call Validate first.
func (p *Preferences) CipherSuite() secrets.Cipher {
	c, err := secrets.ParseCipher(p.Cipher)
	if err != nil {
		return secrets.DefaultCipher
	}
	return c
}

func (p *Preferences) fillDefaults() {
	def := DefaultPreferences()
	if p.APIBaseURL == "" {
		p.APIBaseURL = def.APIBaseURL
	}
	if p.RequestTimeout == "" {
		p.RequestTimeout = def.RequestTimeout
	}
	if p.RemotePrefix == "" {
		p.RemotePrefix = def.RemotePrefix
	}
	if p.DataDir == "" {
		p.DataDir = def.DataDir
	}
	if len(p.BackupFiles) == 0 {
		p.BackupFiles = def.BackupFiles
	}
	if p.KDFIterations == 0 {
		p.KDFIterations = def.KDFIterations
	}
	if p.Cipher == "" {
		p.Cipher = def.Cipher
	}
	p.RemotePrefix = strings.Trim(p.RemotePrefix, "/")
}

// Paths locates tosk's files on disk.
type Paths struct {
	ConfigDir string
}

// DefaultPaths uses utils.ConfigDir.
func DefaultPaths() (*Paths, error) {
	dir, err := utils.ConfigDir()
	if err != nil {
		return nil, err
	}
	return &Paths{ConfigDir: dir}, nil
}

func (p *Paths) ConfigFile() string      { return filepath.Join(p.ConfigDir, configFileName) }
func (p *Paths) PreferencesFile() string { return filepath.Join(p.ConfigDir, preferencesFileName) }
func (p *Paths) HistoryFile() string     { return filepath.Join(p.ConfigDir, historyFileName) }

// ConfigPath returns the default location of the encrypted config file.
func ConfigPath() (string, error) {
	paths, err := DefaultPaths()
	if err != nil {
		return "", err
	}
	return paths.ConfigFile(), nil
}
