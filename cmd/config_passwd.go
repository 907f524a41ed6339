package cmd

import (
	"fmt"

	"github.com/PolarWolf314/tosk/internal/ui"
	"github.com/PolarWolf314/tosk/internal/utils"
	"github.com/PolarWolf314/tosk/internal/workflows"
	"github.com/spf13/cobra"
)

func init() {
	ConfigCmd.AddCommand(configPasswdCmd)
}

var configPasswdCmd = &cobra.Command{
	Use:   "passwd",
	Short: "Change the master password",
	Long: `Re-encrypts the configuration under a new master password.

The current password may come from TOSK_MASTER_PASSWORD or --password-stdin.
The new password is always prompted for on the terminal.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ConfigLogger.Infof("Starting config passwd command")

		env, err := loadEnvironment(ConfigLogger)
		if err != nil {
			fmt.Println(formatError(err))
			return &reportedError{err}
		}
		store := env.store()

		oldPassword, err := readMasterPassword(configPasswordStdin, false, "Current master password: ")
		if err != nil {
			return ConfigLogger.ErrorfAndReturn("Failed to read master password: %v", err)
		}

		read := utils.ReadPassphrase
		if configPasswordStdin {
			read = utils.ReadPassphraseFromTTY
		}
		newPassword, err := read("New master password: ")
		if err != nil {
			return ConfigLogger.ErrorfAndReturn("Failed to read new master password: %v", err)
		}
		confirm, err := read("Confirm new master password: ")
		if err != nil {
			return ConfigLogger.ErrorfAndReturn("Failed to read new master password: %v", err)
		}
		if string(newPassword) != string(confirm) {
			return ConfigLogger.ErrorfAndReturn("Passwords do not match")
		}

		spinner, cleanup := startSpinner("Re-encrypting configuration...", ConfigLogger)
		defer cleanup()

		if err := workflows.ChangeMasterPassword(cmd.Context(), store, oldPassword, newPassword, env.paths.HistoryFile()); err != nil {
			spinner.FinalMSG = formatError(err)
			return &reportedError{err}
		}

		spinner.FinalMSG = ui.Success.Sprint("✓") + " Master password changed"
		return nil
	},
}
