package workflows

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/PolarWolf314/tosk/internal/audit"
	"github.com/PolarWolf314/tosk/internal/backup"
	"github.com/PolarWolf314/tosk/internal/configs"
	kerrors "github.com/PolarWolf314/tosk/internal/errors"
	logger "github.com/PolarWolf314/tosk/internal/logging"
	"github.com/PolarWolf314/tosk/internal/remote"
	"github.com/PolarWolf314/tosk/internal/utils"
)

// RemoteOptions are shared by every workflow that talks to the remote.
type RemoteOptions struct {
	// Preferences default to configs.DefaultPreferences.
	Preferences *configs.Preferences
	Logger      logger.Logger
	// HTTPClient overrides the default transport.
	HTTPClient  *http.Client
	HistoryPath string
}

// PassphraseOptions choose how backup blobs are sealed or opened.
type PassphraseOptions struct {
	// Passphrase, if set, is used as is.
	Passphrase string
	// UseConfigPassphrase requires the passphrase stored in the config.
	UseConfigPassphrase bool
	// Plain disables encryption.
	Plain bool
}

// BackupOptions configures the backup workflow.
type BackupOptions struct {
	RemoteOptions
	PassphraseOptions

	// Patterns select files in the data directory. If empty, the
	// preferences' backup_files are used.
	Patterns []string
	// DataDir overrides the preferences' data_dir.
	DataDir string

	// OnStart is called once the files are resolved.
	OnStart func(files []string, unmatched []string)
	// OnResult is called as each file settles.
	OnResult func(*backup.Result)
}

// Backup uploads the selected planner files to the configured repository.
//
// The returned report is non-nil whenever files were attempted; its error,
// if any, is also returned as a *errors.PartialFailure.
//
// Returns ErrIncompleteRemoteConfig if the session's config lacks a token,
// owner or repository. Returns ErrNoFilesFound if no files match.
func Backup(ctx context.Context, session *configs.Session, opts BackupOptions) (*backup.Report, error) {
	cfg, err := sessionConfig(session)
	if err != nil {
		return nil, err
	}
	prefs := preferences(opts.Preferences)

	passphrase, err := resolvePassphrase(cfg, opts.PassphraseOptions)
	if err != nil {
		return nil, err
	}

	dataDir := opts.DataDir
	if dataDir == "" {
		dataDir = prefs.DataDir
	}
	patterns := opts.Patterns
	if len(patterns) == 0 {
		patterns = prefs.BackupFiles
	}

	files, unmatched, err := backup.LoadFiles(dataDir, patterns)
	if err != nil {
		return nil, fmt.Errorf("%w in %s", err, dataDir)
	}
	for _, p := range unmatched {
		opts.Logger.Infof("pattern %q matched no files in %s", p, dataDir)
	}
	if opts.OnStart != nil {
		names := make([]string, len(files))
		for i, f := range files {
			names[i] = f.Name
		}
		opts.OnStart(names, unmatched)
	}

	client, err := newRemoteClient(cfg, prefs, opts.RemoteOptions, session.ID)
	if err != nil {
		return nil, err
	}

	orch := backup.New(client, backup.Options{
		Prefix:     prefs.RemotePrefix,
		Iterations: prefs.KDFIterations,
		Cipher:     prefs.CipherSuite(),
		Logger:     opts.Logger,
		OnResult:   opts.OnResult,
	})

	report := orch.Backup(ctx, files, passphrase)
	logReport(opts.HistoryPath, session, cfg, report, passphrase != "")
	return report, report.Err()
}

// RestoreOptions configures the restore workflow.
type RestoreOptions struct {
	RemoteOptions
	PassphraseOptions

	// Names are paths below the remote prefix. If empty and All is false,
	// the plain names among the preferences' backup_files are used.
	Names []string
	// All restores every file under the remote prefix.
	All bool

	// DestDir overrides the preferences' data_dir.
	DestDir string
	// DryRun downloads and decrypts without writing anything.
	DryRun bool

	OnStart  func(names []string)
	OnResult func(*backup.Result)
}

// Restore downloads backups into the data directory. Each file is
// written atomically, so a failed restore leaves the local copy untouched.
func Restore(ctx context.Context, session *configs.Session, opts RestoreOptions) (*backup.Report, error) {
	cfg, err := sessionConfig(session)
	if err != nil {
		return nil, err
	}
	prefs := preferences(opts.Preferences)

	// Restoring plain backups needs no passphrase, so a missing one is
	// only an error once a sealed blob turns up.
	passphrase, err := resolvePassphrase(cfg, opts.PassphraseOptions)
	if err != nil {
		return nil, err
	}

	client, err := newRemoteClient(cfg, prefs, opts.RemoteOptions, session.ID)
	if err != nil {
		return nil, err
	}

	names := opts.Names
	switch {
	case opts.All:
		entries, err := client.ListFiles(ctx, prefs.RemotePrefix)
		if err != nil {
			return nil, err
		}
		names = nil
		for _, e := range entries {
			names = append(names, e.Path)
		}
	case len(names) == 0:
		for _, name := range prefs.BackupFiles {
			if !strings.ContainsAny(name, "*?[{") {
				names = append(names, name)
			}
		}
	}
	if len(names) == 0 {
		return nil, kerrors.ErrNoFilesFound
	}
	if opts.OnStart != nil {
		opts.OnStart(names)
	}

	destDir := opts.DestDir
	if destDir == "" {
		destDir = prefs.DataDir
	}
	if opts.DryRun {
		destDir = ""
	}

	orch := backup.New(client, backup.Options{
		Prefix:   prefs.RemotePrefix,
		DestDir:  destDir,
		Logger:   opts.Logger,
		OnResult: opts.OnResult,
	})

	report := orch.Restore(ctx, names, passphrase)
	logReport(opts.HistoryPath, session, cfg, report, anyEncrypted(report))
	return report, report.Err()
}

// ListOptions configures ListRemote.
type ListOptions struct {
	RemoteOptions
}

// ListRemote returns the files stored under the remote prefix.
func ListRemote(ctx context.Context, session *configs.Session, opts ListOptions) ([]remote.Entry, error) {
	cfg, err := sessionConfig(session)
	if err != nil {
		return nil, err
	}
	prefs := preferences(opts.Preferences)

	client, err := newRemoteClient(cfg, prefs, opts.RemoteOptions, session.ID)
	if err != nil {
		return nil, err
	}
	return client.ListFiles(ctx, prefs.RemotePrefix)
}

func newRemoteClient(cfg *configs.Config, prefs *configs.Preferences, opts RemoteOptions, sessionID string) (*remote.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	timeout, err := prefs.Timeout()
	if err != nil {
		return nil, err
	}

	device := utils.DeviceLabel()
	shortSession := sessionID
	if len(shortSession) > 8 {
		shortSession = shortSession[:8]
	}

	return remote.NewClient(remote.Options{
		BaseURL:       prefs.APIBaseURL,
		Token:         cfg.GithubToken,
		Owner:         cfg.GithubOwner,
		Repo:          cfg.GithubRepo,
		Timeout:       timeout,
		MaxGetRetries: prefs.MaxGetRetries,
		HTTPClient:    opts.HTTPClient,
		Logger:        opts.Logger.Leveled(),
		CommitMessage: func(path string) string {
			return fmt.Sprintf("Back up %s from %s (session %s)", path, device, shortSession)
		},
	})
}

func resolvePassphrase(cfg *configs.Config, opts PassphraseOptions) (string, error) {
	switch {
	case opts.Plain && (opts.Passphrase != "" || opts.UseConfigPassphrase):
		return "", fmt.Errorf("plain mode cannot be combined with a passphrase")
	case opts.Plain:
		return "", nil
	case opts.Passphrase != "":
		return opts.Passphrase, nil
	case opts.UseConfigPassphrase && cfg.EncryptionPassphrase == "":
		return "", fmt.Errorf("%w: no passphrase is stored in the config", kerrors.ErrPassphraseRequired)
	default:
		return cfg.EncryptionPassphrase, nil
	}
}

func preferences(p *configs.Preferences) *configs.Preferences {
	if p == nil {
		return configs.DefaultPreferences()
	}
	return p
}

func anyEncrypted(r *backup.Report) bool {
	for _, res := range r.Results {
		if res.Encrypted {
			return true
		}
	}
	return false
}

func logReport(path string, session *configs.Session, cfg *configs.Config, report *backup.Report, encrypted bool) {
	op := audit.OpBackup
	if report.Op == backup.OpRestore {
		op = audit.OpRestore
	}

	entry := audit.NewEntry(op, session.ID)
	entry.Repository = cfg.Repository()
	entry.Files = report.Succeeded()
	for _, res := range report.Failed() {
		entry.Failed = append(entry.Failed, res.Name)
	}
	entry.Encrypted = encrypted
	entry.DurationMS = report.Duration().Milliseconds()
	if err := report.Err(); err != nil {
		entry.Error = err.Error()
	}
	audit.Log(path, entry)
}
