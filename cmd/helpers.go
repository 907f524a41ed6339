package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/cheggaaa/pb/v3"

	"github.com/PolarWolf314/tosk/internal/configs"
	kerrors "github.com/PolarWolf314/tosk/internal/errors"
	logger "github.com/PolarWolf314/tosk/internal/logging"
	"github.com/PolarWolf314/tosk/internal/ui"
	"github.com/PolarWolf314/tosk/internal/utils"
)

// MasterPasswordEnv lets scripts supply the master password without a terminal.
const MasterPasswordEnv = "TOSK_MASTER_PASSWORD"

// reportedError marks an error whose message was already shown to the user.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

// IsReported reports whether err was already printed by a command.
func IsReported(err error) bool {
	var r *reportedError
	return errors.As(err, &r)
}

// startSpinner creates and starts a spinner with the given message when not in verbose or debug mode.
// Returns the spinner and a function that should be deferred to clean up.
//
// spinner.FinalMSG values do NOT need trailing newlines. The cleanup function
// calls ui.EnsureNewline() on the final message before printing it.
func startSpinner(message string, l logger.Logger) (*spinner.Spinner, func()) {
	quiet := !l.Verbose && !l.Debug

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + message
	s.Writer = os.Stderr

	// Ignore color errors - continue without colored spinner if it fails.
	_ = s.Color("cyan")

	if quiet {
		s.Start()
		// Ensure log output is discarded unless in verbose mode.
		log.SetOutput(io.Discard)
	} else {
		l.Infof("%s", message)
	}

	cleanup := func() {
		if quiet {
			log.SetOutput(os.Stderr)
		}

		finalMsg := ""
		if s.FinalMSG != "" {
			finalMsg = ui.EnsureNewline(s.FinalMSG)
			// Clear FinalMSG so s.Stop() doesn't print it.
			s.FinalMSG = ""
		}

		if quiet {
			s.Stop()
		}

		if finalMsg != "" {
			fmt.Print(finalMsg)
		}
	}

	return s, cleanup
}

// newProgressBar returns a started bar on stderr, or nil in verbose mode
// where per-file log lines already show progress.
func newProgressBar(total int, label string, l logger.Logger) *pb.ProgressBar {
	if l.Verbose || l.Debug || total < 2 {
		return nil
	}
	tmpl := `{{string . "prefix"}} {{counters . }} {{bar . "[" "=" ">" " " "]"}} {{string . "file"}}`
	bar := pb.ProgressBarTemplate(tmpl).New(total)
	bar.SetWriter(os.Stderr)
	bar.Set("prefix", label)
	bar.Start()
	return bar
}

// environment holds what every command needs to locate tosk's files.
type environment struct {
	paths *configs.Paths
	prefs *configs.Preferences
}

func loadEnvironment(l logger.Logger) (*environment, error) {
	paths, err := configs.DefaultPaths()
	if err != nil {
		return nil, err
	}
	l.Debugf("Config directory: %s", paths.ConfigDir)

	prefs, err := configs.LoadPreferences(paths.PreferencesFile())
	if err != nil {
		return nil, err
	}
	l.Debugf("Preferences: api=%s prefix=%s data_dir=%s files=%v", prefs.APIBaseURL, prefs.RemotePrefix, prefs.DataDir, prefs.BackupFiles)

	return &environment{paths: paths, prefs: prefs}, nil
}

func (e *environment) store() *configs.Store {
	store := configs.NewStore(e.paths.ConfigFile())
	store.Iterations = e.prefs.KDFIterations
	store.Cipher = e.prefs.CipherSuite()
	return store
}

// readMasterPassword returns the master password from the environment,
// stdin, or an interactive prompt. confirm asks twice, for new passwords.
func readMasterPassword(fromStdin, confirm bool, prompt string) ([]byte, error) {
	if v := os.Getenv(MasterPasswordEnv); v != "" {
		return []byte(v), nil
	}
	if fromStdin {
		data, err := utils.ReadStdin()
		if err != nil {
			return nil, err
		}
		return bytes.TrimRight(data, "\r\n"), nil
	}
	if !utils.IsTerminal() {
		return nil, fmt.Errorf("no terminal to prompt for the master password (set %s or use --password-stdin)", MasterPasswordEnv)
	}
	if confirm {
		return utils.ReadNewPassphrase(prompt, "Confirm master password: ")
	}
	return utils.ReadPassphrase(prompt)
}

// formatError turns a workflow error into the message shown to the user.
func formatError(err error) string {
	var conflict *kerrors.ConflictError
	var netErr *kerrors.NetworkError

	switch {
	case errors.Is(err, kerrors.ErrConfigMissing):
		return ui.Error.Sprint("✗") + " Tosk is not configured yet\n" +
			ui.Info.Sprint("→") + " Run " + ui.Code.Sprint("tosk config init") + " first"

	case errors.Is(err, kerrors.ErrWrongPassword):
		return ui.Error.Sprint("✗") + " Wrong master password"

	case errors.Is(err, kerrors.ErrConfigMalformed):
		return ui.Error.Sprint("✗") + " The encrypted config file is damaged: " + err.Error() + "\n" +
			ui.Info.Sprint("→") + " Run " + ui.Code.Sprint("tosk config init --force") + " to create a new one"

	case errors.Is(err, kerrors.ErrInvalidPreferences):
		return ui.Error.Sprint("✗") + " " + err.Error() + "\n" +
			ui.Info.Sprint("→") + " Check " + ui.Path.Sprint("settings.toml") + " (see " + ui.Code.Sprint("tosk config path") + ")"

	case errors.Is(err, kerrors.ErrIncompleteRemoteConfig):
		return ui.Error.Sprint("✗") + " " + err.Error() + "\n" +
			ui.Info.Sprint("→") + " Run " + ui.Code.Sprint("tosk config init") + " to set the repository"

	case errors.Is(err, kerrors.ErrInsecureTransport):
		return ui.Error.Sprint("✗") + " Refusing to send credentials over plain HTTP: " + err.Error()

	case errors.Is(err, kerrors.ErrNoFilesFound):
		return ui.Warning.Sprint("⚠") + " No files to process: " + err.Error()

	case errors.Is(err, kerrors.ErrPassphraseRequired):
		return ui.Error.Sprint("✗") + " A backup passphrase is required\n" +
			ui.Info.Sprint("→") + " Use " + ui.Flag.Sprint("--passphrase-prompt") + " or store one with " + ui.Code.Sprint("tosk config init")

	case errors.As(err, &conflict):
		return ui.Error.Sprint("✗") + " " + ui.Path.Sprint(conflict.Path) + " changed remotely while tosk was writing it\n" +
			ui.Info.Sprint("→") + " Run the command again to back up over the newer version"

	case errors.As(err, &netErr) && netErr.Kind == kerrors.HTTPStatus && (netErr.StatusCode == 401 || netErr.StatusCode == 403):
		return ui.Error.Sprint("✗") + " GitHub rejected the token (HTTP " + fmt.Sprint(netErr.StatusCode) + ")\n" +
			ui.Info.Sprint("→") + " Check the token's repository access with " + ui.Code.Sprint("tosk config init")

	case errors.Is(err, kerrors.ErrUnexpectedResponse):
		return ui.Error.Sprint("✗") + " GitHub sent a response tosk could not read: " + err.Error() + "\n" +
			ui.Info.Sprint("→") + " Check with " + ui.Code.Sprint("tosk backup list-files") + " before retrying"

	case errors.Is(err, kerrors.ErrTimeout):
		return ui.Error.Sprint("✗") + " GitHub did not answer in time: " + err.Error()

	case errors.Is(err, kerrors.ErrNetwork):
		return ui.Error.Sprint("✗") + " Could not reach GitHub: " + err.Error()

	default:
		return ui.Error.Sprint("✗") + " " + err.Error()
	}
}
