package workflows

import (
	"context"
	"fmt"

	"github.com/PolarWolf314/tosk/internal/audit"
	"github.com/PolarWolf314/tosk/internal/configs"
	kerrors "github.com/PolarWolf314/tosk/internal/errors"
)

// LoadOrCreateOptions configures LoadOrCreateConfig.
type LoadOrCreateOptions struct {
	Store          *configs.Store
	MasterPassword []byte

	// FirstRun collects a new config when none exists yet. If nil, a
	// missing config is returned as an error.
	FirstRun func(ctx context.Context) (*configs.Config, error)

	// HistoryPath is where the audit entry goes. Empty disables history.
	HistoryPath string
}

// LoadOrCreateConfig opens the encrypted config, or runs the first-run flow
// and saves its result if there is none. created reports whether the
// first-run flow ran.
//
// Returns a ConfigError matching ErrWrongPassword or ErrConfigMalformed if
// an existing file cannot be opened. A failed first run leaves no file behind.
func LoadOrCreateConfig(ctx context.Context, opts LoadOrCreateOptions) (session *configs.Session, created bool, err error) {
	if opts.Store == nil {
		return nil, false, fmt.Errorf("no config store given")
	}

	if opts.Store.Exists() {
		cfg, err := opts.Store.Load(opts.MasterPassword)
		if err != nil {
			return nil, false, err
		}
		return configs.NewSession(cfg), false, nil
	}

	if opts.FirstRun == nil {
		return nil, false, &kerrors.ConfigError{Kind: kerrors.Missing, Path: opts.Store.Path}
	}

	cfg, err := opts.FirstRun(ctx)
	if err != nil {
		return nil, false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, false, err
	}
	if err := opts.Store.Save(cfg, opts.MasterPassword); err != nil {
		return nil, false, err
	}

	session = configs.NewSession(cfg)

	entry := audit.NewEntry(audit.OpConfigInit, session.ID)
	entry.Repository = cfg.Repository()
	audit.Log(opts.HistoryPath, entry)

	return session, true, nil
}

// SaveConfigOptions configures SaveConfig.
type SaveConfigOptions struct {
	Store          *configs.Store
	MasterPassword []byte
	HistoryPath    string
}

// SaveConfig validates and re-encrypts the session's config, for example
// after the user changed a field.
func SaveConfig(ctx context.Context, session *configs.Session, opts SaveConfigOptions) error {
	cfg, err := sessionConfig(session)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := opts.Store.Save(cfg, opts.MasterPassword); err != nil {
		return err
	}

	entry := audit.NewEntry(audit.OpConfigUpdate, session.ID)
	entry.Repository = cfg.Repository()
	audit.Log(opts.HistoryPath, entry)
	return nil
}

// ChangeMasterPassword re-encrypts the config under a new master password.
// The old password must open the current file.
func ChangeMasterPassword(ctx context.Context, store *configs.Store, oldPassword, newPassword []byte, historyPath string) error {
	if len(newPassword) == 0 {
		return fmt.Errorf("new master password cannot be empty")
	}

	cfg, err := store.Load(oldPassword)
	if err != nil {
		return err
	}
	session := configs.NewSession(cfg)
	defer session.Close()

	return SaveConfig(ctx, session, SaveConfigOptions{Store: store, MasterPassword: newPassword, HistoryPath: historyPath})
}

func sessionConfig(session *configs.Session) (*configs.Config, error) {
	if session == nil {
		return nil, fmt.Errorf("no session")
	}
	cfg := session.Config()
	if cfg == nil {
		return nil, fmt.Errorf("session %s is closed", session.ID)
	}
	return cfg, nil
}
