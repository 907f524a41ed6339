package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PolarWolf314/tosk/internal/workflows"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	configShowJSON        bool
	configShowPreferences bool
)

func init() {
	configShowCmd.Flags().BoolVar(&configShowJSON, "json", false, "output in JSON format")
	configShowCmd.Flags().BoolVarP(&configShowPreferences, "preferences", "p", false, "show settings.toml instead of the encrypted configuration")
	ConfigCmd.AddCommand(configShowCmd)
}

// resetConfigShowState resets the config show command's global state for testing.
func resetConfigShowState() {
	configShowJSON = false
	configShowPreferences = false
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display the current configuration",
	Long: `Displays the decrypted configuration with the token and backup
passphrase redacted.

Use --preferences to show the plain settings from settings.toml instead,
which needs no master password.

Examples:
  # Show the configuration
  tosk config show

  # Show preferences as JSON
  tosk config show --preferences --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ConfigLogger.Infof("Starting config show command")
		ConfigLogger.Debugf("Flags: json=%t, preferences=%t", configShowJSON, configShowPreferences)

		env, err := loadEnvironment(ConfigLogger)
		if err != nil {
			fmt.Println(formatError(err))
			return &reportedError{err}
		}

		if configShowPreferences {
			return showPreferences(env)
		}
		return showConfig(cmd, env)
	},
}

func showConfig(cmd *cobra.Command, env *environment) error {
	store := env.store()
	if !store.Exists() {
		ConfigLogger.Infof("No configuration at %s", store.Path)
		if configShowJSON {
			fmt.Println("{}")
			return nil
		}
		fmt.Println(color.YellowString("⚠") + " No configuration found.")
		fmt.Println()
		fmt.Println(color.CyanString("→") + " Run " + color.YellowString("tosk config init") + " to set up your backups")
		return nil
	}

	password, err := readMasterPassword(configPasswordStdin, false, "Master password: ")
	if err != nil {
		return ConfigLogger.ErrorfAndReturn("Failed to read master password: %v", err)
	}

	session, _, err := workflows.LoadOrCreateConfig(cmd.Context(), workflows.LoadOrCreateOptions{
		Store:          store,
		MasterPassword: password,
	})
	if err != nil {
		fmt.Println(formatError(err))
		return &reportedError{err}
	}
	defer session.Close()

	redacted := session.Config().Redacted()
	ConfigLogger.Infof("Configuration loaded in session %s", session.ID)

	if configShowJSON {
		return outputJSON(redacted)
	}

	fmt.Println(color.CyanString("Configuration") + " (" + store.Path + "):")
	fmt.Println()
	fmt.Printf("  %-20s %s\n", "Repository:", color.GreenString(redacted.Repository()))
	fmt.Printf("  %-20s %s\n", "GitHub token:", color.YellowString(orNone(redacted.GithubToken)))
	fmt.Printf("  %-20s %s\n", "Backup passphrase:", color.YellowString(orNone(redacted.EncryptionPassphrase)))
	fmt.Printf("  %-20s %d\n", "Schema version:", redacted.SchemaVersion)
	return nil
}

func showPreferences(env *environment) error {
	if configShowJSON {
		return outputJSON(env.prefs)
	}

	p := env.prefs
	fmt.Println(color.CyanString("Preferences") + " (" + env.paths.PreferencesFile() + "):")
	fmt.Println()
	fmt.Printf("  %-18s %s\n", "API:", color.GreenString(p.APIBaseURL))
	fmt.Printf("  %-18s %s\n", "Timeout:", p.RequestTimeout)
	fmt.Printf("  %-18s %d\n", "GET retries:", p.MaxGetRetries)
	fmt.Printf("  %-18s %s\n", "Remote prefix:", color.GreenString(orNone(p.RemotePrefix)))
	fmt.Printf("  %-18s %s\n", "Data directory:", color.GreenString(p.DataDir))
	fmt.Printf("  %-18s %s\n", "Backup files:", strings.Join(p.BackupFiles, ", "))
	fmt.Printf("  %-18s %d\n", "KDF iterations:", p.KDFIterations)
	fmt.Printf("  %-18s %s\n", "Cipher:", p.CipherSuite())
	return nil
}

func outputJSON(v interface{}) error {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return ConfigLogger.ErrorfAndReturn("Failed to marshal to JSON: %v", err)
	}
	fmt.Println(string(output))
	return nil
}

func orNone(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}
