package cmd

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cheggaaa/pb/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/PolarWolf314/tosk/internal/backup"
	"github.com/PolarWolf314/tosk/internal/configs"
	logger "github.com/PolarWolf314/tosk/internal/logging"
	"github.com/PolarWolf314/tosk/internal/utils"
	"github.com/PolarWolf314/tosk/internal/workflows"
)

var (
	backupVerbose             bool
	backupDebug               bool
	backupPasswordStdin       bool
	backupPassphrasePrompt    bool
	backupUseConfigPassphrase bool
	backupPlain               bool
	BackupLogger              logger.Logger

	// backupHTTPClient overrides the transport, for tests against a local server.
	backupHTTPClient *http.Client

	// BackupCmd groups the commands that talk to the backup repository.
	BackupCmd = &cobra.Command{
		Use:   "backup",
		Short: "Back up and restore planner files through GitHub",
		Long: `Uploads planner files to a GitHub repository and restores them.

Files are encrypted with the backup passphrase stored in the configuration
unless --plain is given. Every file is handled independently: one failure
does not stop the rest of the batch.

Examples:
  # Back up the default files
  tosk backup push

  # Restore everything under the remote prefix
  tosk backup pull --all

  # List what is stored remotely
  tosk backup list-files`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			BackupLogger = logger.Logger{
				Verbose: backupVerbose,
				Debug:   backupDebug,
			}
			BackupLogger.Debugf("Initializing backup command with verbose=%t, debug=%t", backupVerbose, backupDebug)
		},
	}
)

func init() {
	flags := BackupCmd.PersistentFlags()
	flags.BoolVarP(&backupVerbose, "verbose", "v", false, "enable verbose output")
	flags.BoolVarP(&backupDebug, "debug", "d", false, "enable debug output")
	flags.BoolVar(&backupPasswordStdin, "password-stdin", false, "read the master password from stdin")
	flags.BoolVar(&backupPassphrasePrompt, "passphrase-prompt", false, "prompt for the backup passphrase instead of using the stored one")
	flags.BoolVar(&backupUseConfigPassphrase, "use-config-passphrase", false, "fail unless a backup passphrase is stored in the configuration")
	flags.BoolVar(&backupPlain, "plain", false, "do not encrypt (push) or expect encrypted files (pull)")
}

// GetBackupCmd returns the BackupCmd for testing.
func GetBackupCmd() *cobra.Command {
	return BackupCmd
}

// ResetBackupState resets all backup command global variables to their default values for testing.
func ResetBackupState() {
	backupVerbose = false
	backupDebug = false
	backupPasswordStdin = false
	backupPassphrasePrompt = false
	backupUseConfigPassphrase = false
	backupPlain = false
	resetBackupPullState()
	resetBackupHistoryState()

	reset := func(flag *pflag.Flag) {
		flag.Changed = false
	}
	BackupCmd.PersistentFlags().VisitAll(reset)
	for _, sub := range BackupCmd.Commands() {
		sub.Flags().VisitAll(reset)
	}
}

// SetHTTPClient sets the HTTP client backup commands use. Nil restores the default.
func SetHTTPClient(c *http.Client) {
	backupHTTPClient = c
}

// openSession loads the environment and decrypts the configuration.
// The caller must Close the returned session.
func openSession(ctx context.Context) (*environment, *configs.Session, error) {
	env, err := loadEnvironment(BackupLogger)
	if err != nil {
		return nil, nil, err
	}

	password, err := readMasterPassword(backupPasswordStdin, false, "Master password: ")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read master password: %w", err)
	}

	session, _, err := workflows.LoadOrCreateConfig(ctx, workflows.LoadOrCreateOptions{
		Store:          env.store(),
		MasterPassword: password,
	})
	if err != nil {
		return nil, nil, err
	}
	BackupLogger.Debugf("Opened session %s", session.ID)
	return env, session, nil
}

func passphraseOptions() (workflows.PassphraseOptions, error) {
	opts := workflows.PassphraseOptions{
		UseConfigPassphrase: backupUseConfigPassphrase,
		Plain:               backupPlain,
	}
	if backupPassphrasePrompt {
		read := utils.ReadPassphrase
		if backupPasswordStdin {
			read = utils.ReadPassphraseFromTTY
		}
		passphrase, err := read("Backup passphrase: ")
		if err != nil {
			return opts, err
		}
		opts.Passphrase = string(passphrase)
	}
	return opts, nil
}

func remoteOptions(env *environment) workflows.RemoteOptions {
	return workflows.RemoteOptions{
		Preferences: env.prefs,
		Logger:      BackupLogger,
		HTTPClient:  backupHTTPClient,
		HistoryPath: env.paths.HistoryFile(),
	}
}

// progress drives a progress bar from workflow callbacks. The zero value
// shows nothing.
type progress struct {
	label string
	bar   *pb.ProgressBar
}

func (p *progress) start(total int) {
	p.bar = newProgressBar(total, p.label, BackupLogger)
}

func (p *progress) result(res *backup.Result) {
	if p.bar == nil {
		return
	}
	p.bar.Set("file", res.Name)
	p.bar.Increment()
}

func (p *progress) finish() {
	if p.bar != nil {
		p.bar.Set("file", "")
		p.bar.Finish()
	}
}
