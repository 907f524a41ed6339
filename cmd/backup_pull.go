package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/PolarWolf314/tosk/internal/workflows"
)

var (
	backupPullAll    bool
	backupPullDryRun bool
	backupPullDest   string
)

func init() {
	backupPullCmd.Flags().BoolVar(&backupPullAll, "all", false, "restore every file under the remote prefix")
	backupPullCmd.Flags().BoolVar(&backupPullDryRun, "dry-run", false, "download and decrypt without writing anything")
	backupPullCmd.Flags().StringVar(&backupPullDest, "dest", "", "directory to restore into (defaults to data_dir)")
	BackupCmd.AddCommand(backupPullCmd)
}

func resetBackupPullState() {
	backupPullAll = false
	backupPullDryRun = false
	backupPullDest = ""
}

var backupPullCmd = &cobra.Command{
	Use:   "pull [file...]",
	Short: "Restore planner files from the backup repository",
	Long: `Downloads backups and writes them into the data directory.

Each file is replaced atomically, so a failed restore leaves the local copy
as it was. Encrypted backups are detected automatically.

Examples:
  # Restore the default files
  tosk backup pull

  # Check that every backup can be decrypted
  tosk backup pull --all --dry-run

  # Restore one file somewhere else
  tosk backup pull tasks.json --dest /tmp/restore`,
	RunE: func(cmd *cobra.Command, args []string) error {
		BackupLogger.Infof("Starting backup pull command")
		BackupLogger.Debugf("Flags: all=%t, dry-run=%t, dest=%q, files=%v", backupPullAll, backupPullDryRun, backupPullDest, args)

		if backupPullAll && len(args) > 0 {
			return BackupLogger.ErrorfAndReturn("--all cannot be combined with file names")
		}

		env, session, err := openSession(cmd.Context())
		if err != nil {
			fmt.Println(formatError(err))
			return &reportedError{err}
		}
		defer session.Close()

		passOpts, err := passphraseOptions()
		if err != nil {
			return BackupLogger.ErrorfAndReturn("Failed to read backup passphrase: %v", err)
		}

		bar := &progress{label: "Downloading"}
		report, err := workflows.Restore(cmd.Context(), session, workflows.RestoreOptions{
			RemoteOptions:     remoteOptions(env),
			PassphraseOptions: passOpts,
			Names:             args,
			All:               backupPullAll,
			DestDir:           backupPullDest,
			DryRun:            backupPullDryRun,
			OnStart:           func(names []string) { bar.start(len(names)) },
			OnResult:          bar.result,
		})
		bar.finish()

		if report == nil {
			fmt.Println(formatError(err))
			return &reportedError{err}
		}

		fmt.Println(renderReport(report, backupPullDryRun))
		if err != nil {
			for _, res := range report.Failed() {
				fmt.Println(formatError(fmt.Errorf("%s: %w", res.Name, res.Err)))
			}
			return &reportedError{err}
		}
		return nil
	},
}
