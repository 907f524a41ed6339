package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/PolarWolf314/tosk/internal/audit"
	"github.com/PolarWolf314/tosk/internal/ui"
)

var backupHistoryLimit int

func init() {
	backupHistoryCmd.Flags().IntVarP(&backupHistoryLimit, "number", "n", 20, "number of entries to show (0 for all)")
	BackupCmd.AddCommand(backupHistoryCmd)
}

func resetBackupHistoryState() {
	backupHistoryLimit = 20
}

var backupHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent backup, restore and config operations",
	Long: `Shows the local operation history. No master password is needed:
the history holds file names and outcomes, never file contents or secrets.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := loadEnvironment(BackupLogger)
		if err != nil {
			fmt.Println(formatError(err))
			return &reportedError{err}
		}

		entries, err := audit.ReadEntries(env.paths.HistoryFile())
		if err != nil {
			return BackupLogger.ErrorfAndReturn("Failed to read history: %v", err)
		}
		if len(entries) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), ui.Muted.Sprint("no history yet"))
			return nil
		}

		for _, e := range audit.Last(entries, backupHistoryLimit) {
			line := e.String()
			if e.Error != "" {
				line = ui.Error.Sprint(line)
			}
			fmt.Fprintln(cmd.OutOrStdout(), line)
		}
		return nil
	},
}
