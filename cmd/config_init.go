package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/PolarWolf314/tosk/internal/configs"
	"github.com/PolarWolf314/tosk/internal/ui"
	"github.com/PolarWolf314/tosk/internal/utils"
	"github.com/PolarWolf314/tosk/internal/workflows"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// Environment variables that let config init run without prompts.
const (
	GithubTokenEnv      = "TOSK_GITHUB_TOKEN"
	BackupPassphraseEnv = "TOSK_BACKUP_PASSPHRASE"
)

var (
	configInitOwner      string
	configInitRepo       string
	configInitPassphrase bool
	configInitForce      bool

	// configInitInput is where field prompts are read from.
	configInitInput io.Reader = os.Stdin
)

func init() {
	configInitCmd.Flags().StringVar(&configInitOwner, "owner", "", "GitHub user or organisation that owns the backup repository")
	configInitCmd.Flags().StringVar(&configInitRepo, "repo", "", "name of the backup repository")
	configInitCmd.Flags().BoolVar(&configInitPassphrase, "backup-passphrase", false, "prompt for a passphrase to encrypt backups with")
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "replace an existing configuration that cannot be opened")
	ConfigCmd.AddCommand(configInitCmd)
}

// resetConfigInitState resets the config init command's global state for testing.
func resetConfigInitState() {
	configInitOwner = ""
	configInitRepo = ""
	configInitPassphrase = false
	configInitForce = false
	configInitInput = os.Stdin
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create or update the encrypted configuration",
	Long: `Creates the encrypted configuration on first run, or updates the
repository settings of an existing one.

The GitHub token is read from TOSK_GITHUB_TOKEN or prompted for without
echo. Owner and repository can be given as flags.

Examples:
  # Interactive setup
  tosk config init

  # Non-interactive setup
  TOSK_GITHUB_TOKEN=ghp_xxx TOSK_MASTER_PASSWORD=secret \
    tosk config init --owner alice --repo planner-backups

  # Start over after forgetting the master password
  tosk config init --force`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ConfigLogger.Infof("Starting config init command")
		ConfigLogger.Debugf("Flags: owner=%q, repo=%q, backup-passphrase=%t, force=%t", configInitOwner, configInitRepo, configInitPassphrase, configInitForce)

		env, err := loadEnvironment(ConfigLogger)
		if err != nil {
			fmt.Println(formatError(err))
			return &reportedError{err}
		}
		store := env.store()

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		if store.Exists() && !configInitForce {
			return updateExistingConfig(ctx, env, store)
		}
		return createConfig(ctx, env, store)
	},
}

func createConfig(ctx context.Context, env *environment, store *configs.Store) error {
	fmt.Println(color.CyanString("Welcome to Tosk!") + " Let's set up your backups.\n")

	reader := bufio.NewReader(configInitInput)
	cfg, err := collectConfig(reader, &configs.Config{})
	if err != nil {
		return ConfigLogger.ErrorfAndReturn("%v", err)
	}

	password, err := readMasterPassword(configPasswordStdin, true, "Choose a master password: ")
	if err != nil {
		return ConfigLogger.ErrorfAndReturn("Failed to read master password: %v", err)
	}

	if configInitForce && store.Exists() {
		ConfigLogger.Warnf("Replacing existing configuration at %s", store.Path)
		if err := os.Remove(store.Path); err != nil {
			return ConfigLogger.ErrorfAndReturn("Failed to remove old configuration: %v", err)
		}
	}

	spinner, cleanup := startSpinner("Encrypting configuration...", ConfigLogger)
	defer cleanup()

	session, _, err := workflows.LoadOrCreateConfig(ctx, workflows.LoadOrCreateOptions{
		Store:          store,
		MasterPassword: password,
		FirstRun: func(context.Context) (*configs.Config, error) {
			return cfg, nil
		},
		HistoryPath: env.paths.HistoryFile(),
	})
	if err != nil {
		spinner.FinalMSG = formatError(err)
		return &reportedError{err}
	}
	defer session.Close()

	spinner.FinalMSG = ui.Success.Sprint("✓") + " Configuration saved to " + ui.Path.Sprint(store.Path) + "\n" +
		ui.Info.Sprint("→") + " Back up your planner with " + ui.Code.Sprint("tosk backup push")
	return nil
}

func updateExistingConfig(ctx context.Context, env *environment, store *configs.Store) error {
	password, err := readMasterPassword(configPasswordStdin, false, "Master password: ")
	if err != nil {
		return ConfigLogger.ErrorfAndReturn("Failed to read master password: %v", err)
	}

	session, _, err := workflows.LoadOrCreateConfig(ctx, workflows.LoadOrCreateOptions{
		Store:          store,
		MasterPassword: password,
	})
	if err != nil {
		fmt.Println(formatError(err))
		return &reportedError{err}
	}
	defer session.Close()

	fmt.Println(ui.Info.Sprint("Updating") + " " + ui.Path.Sprint(store.Path) + ". Press enter to keep a value.\n")

	reader := bufio.NewReader(configInitInput)
	if _, err := collectConfig(reader, session.Config()); err != nil {
		return ConfigLogger.ErrorfAndReturn("%v", err)
	}

	spinner, cleanup := startSpinner("Encrypting configuration...", ConfigLogger)
	defer cleanup()

	err = workflows.SaveConfig(ctx, session, workflows.SaveConfigOptions{
		Store:          store,
		MasterPassword: password,
		HistoryPath:    env.paths.HistoryFile(),
	})
	if err != nil {
		spinner.FinalMSG = formatError(err)
		return &reportedError{err}
	}

	spinner.FinalMSG = ui.Success.Sprint("✓") + " Configuration updated"
	return nil
}

// collectConfig fills cfg from flags, the environment and prompts, using
// the current values as defaults.
func collectConfig(reader *bufio.Reader, cfg *configs.Config) (*configs.Config, error) {
	if token := os.Getenv(GithubTokenEnv); token != "" {
		cfg.GithubToken = token
	} else {
		prompt := "GitHub token: "
		if cfg.GithubToken != "" {
			prompt = "GitHub token (enter to keep current): "
		}
		token, err := readSecretField(prompt)
		if err != nil {
			return nil, err
		}
		if len(token) > 0 {
			cfg.GithubToken = string(token)
		}
	}

	var err error
	if configInitOwner != "" {
		cfg.GithubOwner = configInitOwner
	} else if cfg.GithubOwner, err = promptForInput(reader, "Repository owner", cfg.GithubOwner); err != nil {
		return nil, err
	}
	if configInitRepo != "" {
		cfg.GithubRepo = configInitRepo
	} else if cfg.GithubRepo, err = promptForInput(reader, "Repository name", cfg.GithubRepo); err != nil {
		return nil, err
	}

	if v := os.Getenv(BackupPassphraseEnv); configInitPassphrase && v != "" {
		cfg.EncryptionPassphrase = v
	} else if configInitPassphrase {
		passphrase, err := utils.ReadNewPassphrase("Backup passphrase: ", "Confirm backup passphrase: ")
		if err != nil {
			return nil, err
		}
		cfg.EncryptionPassphrase = string(passphrase)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// readSecretField prompts without echo, preferring the controlling
// terminal when stdin is taken by --password-stdin.
func readSecretField(prompt string) ([]byte, error) {
	if configPasswordStdin {
		return utils.ReadPassphraseFromTTY(prompt)
	}
	if !utils.IsTerminal() {
		return nil, fmt.Errorf("no terminal to prompt for the token (set %s)", GithubTokenEnv)
	}
	return utils.ReadPassphrase(prompt)
}

// promptForInput prompts the user for input with an optional default value.
func promptForInput(reader *bufio.Reader, prompt, defaultValue string) (string, error) {
	if defaultValue != "" {
		fmt.Printf("%s [%s]: ", prompt, defaultValue)
	} else {
		fmt.Printf("%s: ", prompt)
	}

	input, err := reader.ReadString('\n')
	if err != nil && !(err == io.EOF && input != "") {
		if err == io.EOF && defaultValue != "" {
			return defaultValue, nil
		}
		return "", fmt.Errorf("failed to read input: %w", err)
	}

	input = strings.TrimSpace(input)
	if input == "" && defaultValue != "" {
		return defaultValue, nil
	}
	return input, nil
}
