package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/PolarWolf314/tosk/internal/ui"
	"github.com/PolarWolf314/tosk/internal/workflows"
)

func init() {
	BackupCmd.AddCommand(backupListFilesCmd)
}

var backupListFilesCmd = &cobra.Command{
	Use:   "list-files",
	Short: "List the files stored in the backup repository",
	RunE: func(cmd *cobra.Command, args []string) error {
		BackupLogger.Infof("Starting backup list-files command")

		env, session, err := openSession(cmd.Context())
		if err != nil {
			fmt.Println(formatError(err))
			return &reportedError{err}
		}
		defer session.Close()

		spinner, cleanup := startSpinner("Listing remote files...", BackupLogger)
		entries, err := workflows.ListRemote(cmd.Context(), session, workflows.ListOptions{
			RemoteOptions: remoteOptions(env),
		})
		if err != nil {
			spinner.FinalMSG = formatError(err)
			cleanup()
			return &reportedError{err}
		}
		cleanup()

		if len(entries) == 0 {
			fmt.Println(ui.Warning.Sprint("⚠") + " No backups found in " + ui.Highlight.Sprint(session.Config().Repository()))
			return nil
		}
		fmt.Println(renderEntries(session.Config().Repository(), entries))
		return nil
	},
}
