// Package shared runs the tosk CLI in-process against an in-memory GitHub,
// with config and data directories isolated per test.
package shared

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/PolarWolf314/tosk/cmd"
	"github.com/PolarWolf314/tosk/internal/remote/remotetest"
	"github.com/spf13/cobra"
)

const (
	TestOwner            = "octocat"
	TestRepo             = "planner-backups"
	TestToken            = "ghp_integration0123456789abcdef"
	TestMasterPassword   = "correct horse battery staple"
	TestBackupPassphrase = "backup passphrase"
)

// Env is one isolated tosk installation talking to a fake GitHub.
type Env struct {
	ConfigDir string
	DataDir   string
	Server    *remotetest.Server
}

// SetupTestEnvironment points tosk at temporary directories and a fresh
// remote, and writes preferences that keep key derivation fast.
func SetupTestEnvironment(t *testing.T) *Env {
	t.Helper()

	env := &Env{
		ConfigDir: filepath.Join(t.TempDir(), "config"),
		DataDir:   filepath.Join(t.TempDir(), "data"),
		Server:    remotetest.NewServer(TestOwner, TestRepo),
	}
	t.Cleanup(env.Server.Close)

	for _, dir := range []string{env.ConfigDir, env.DataDir} {
		if err := os.MkdirAll(dir, 0700); err != nil {
			t.Fatalf("Failed to create %s: %v", dir, err)
		}
	}

	t.Setenv("TOSK_CONFIG_DIR", env.ConfigDir)
	t.Setenv("TOSK_DATA_DIR", env.DataDir)
	t.Setenv(cmd.MasterPasswordEnv, TestMasterPassword)
	t.Setenv(cmd.GithubTokenEnv, TestToken)
	t.Setenv(cmd.BackupPassphraseEnv, TestBackupPassphrase)
	t.Setenv("NO_COLOR", "1")

	settings := fmt.Sprintf(`api_base_url = %q
request_timeout = "5s"
max_get_retries = 1
kdf_iterations = 100000
`, env.Server.URL)
	if err := os.WriteFile(filepath.Join(env.ConfigDir, "settings.toml"), []byte(settings), 0600); err != nil {
		t.Fatalf("Failed to write settings: %v", err)
	}

	cmd.SetHTTPClient(env.Server.Client())
	t.Cleanup(func() {
		cmd.SetHTTPClient(nil)
		cmd.ResetConfigState()
		cmd.ResetBackupState()
	})

	return env
}

// WriteDataFile creates a planner file in the data directory.
func (e *Env) WriteDataFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(e.DataDir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		t.Fatalf("Failed to create directory for %s: %v", name, err)
	}
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

// ConfigFile is the path of the encrypted config.
func (e *Env) ConfigFile() string {
	return filepath.Join(e.ConfigDir, "config.enc")
}

// HistoryFile is the path of the operation history.
func (e *Env) HistoryFile() string {
	return filepath.Join(e.ConfigDir, "history.jsonl")
}

// CaptureOutput runs fn with os.Stdout and os.Stderr redirected and returns
// everything written to them, stdout first.
func CaptureOutput(fn func() error) (string, error) {
	restoreOut := redirect(&os.Stdout)
	restoreErr := redirect(&os.Stderr)

	err := fn()

	out := restoreOut()
	errOut := restoreErr()
	return out.String() + errOut.String(), err
}

// redirect points *target at a pipe. The returned restore func closes the
// pipe, puts the original file back and yields what was written once the
// reader has drained.
func redirect(target **os.File) func() *bytes.Buffer {
	original := *target
	r, w, err := os.Pipe()
	if err != nil {
		log.Fatalf("failed to create pipe: %v", err)
	}
	*target = w

	var buf bytes.Buffer
	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := io.Copy(&buf, r); err != nil {
			log.Fatalf("failed to copy captured output: %v", err)
		}
	}()

	return func() *bytes.Buffer {
		w.Close()
		*target = original
		<-done
		return &buf
	}
}

// CreateTestCLI creates a complete CLI instance for testing with the given arguments,
// for example CreateTestCLI("backup", "push", "--plain").
func CreateTestCLI(args ...string) *cobra.Command {
	cmd.ResetConfigState()
	cmd.ResetBackupState()

	rootCmd := &cobra.Command{
		Use:           "tosk",
		Short:         "Tosk - encrypted configuration and GitHub backups for your planner.",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	rootCmd.AddCommand(cmd.GetConfigCmd())
	rootCmd.AddCommand(cmd.GetBackupCmd())
	rootCmd.SetArgs(args)
	return rootCmd
}

// Run executes the CLI with args and returns its combined output.
func Run(args ...string) (string, error) {
	return CaptureOutput(func() error {
		return CreateTestCLI(args...).Execute()
	})
}

// InitializeConfig runs config init non-interactively with a stored
// backup passphrase.
func InitializeConfig(t *testing.T) {
	t.Helper()
	output, err := Run("config", "init", "--owner", TestOwner, "--repo", TestRepo, "--backup-passphrase")
	if err != nil {
		t.Fatalf("Failed to initialize config: %v\n%s", err, output)
	}
}
