package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/PolarWolf314/tosk/internal/ui"
	"github.com/PolarWolf314/tosk/internal/utils"
	"github.com/PolarWolf314/tosk/internal/workflows"
)

func init() {
	BackupCmd.AddCommand(backupPushCmd)
}

var backupPushCmd = &cobra.Command{
	Use:   "push [pattern...]",
	Short: "Upload planner files to the backup repository",
	Long: `Uploads files from the data directory to the backup repository.

Patterns are matched relative to the data directory and support ** globs.
Without patterns, the backup_files preference is used.

Examples:
  # Back up the default files
  tosk backup push

  # Back up every JSON file, unencrypted
  tosk backup push --plain '**/*.json'`,
	RunE: func(cmd *cobra.Command, args []string) error {
		BackupLogger.Infof("Starting backup push command")
		BackupLogger.Debugf("Patterns: %v", args)

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

		bar := &progress{label: "Uploading"}
		report, err := workflows.Backup(cmd.Context(), session, workflows.BackupOptions{
			RemoteOptions:     remoteOptions(env),
			PassphraseOptions: passOpts,
			Patterns:          args,
			OnStart: func(files, unmatched []string) {
				if len(unmatched) > 0 {
					fmt.Println(ui.Warning.Sprint("⚠") + " No files matched " + utils.FormatPaths(unmatched))
				}
				bar.start(len(files))
			},
			OnResult: bar.result,
		})
		bar.finish()

		if report == nil {
			fmt.Println(formatError(err))
			return &reportedError{err}
		}

		fmt.Println(renderReport(report, false))
		if err != nil {
			for _, res := range report.Failed() {
				fmt.Println(formatError(fmt.Errorf("%s: %w", res.Name, res.Err)))
			}
			return &reportedError{err}
		}
		return nil
	},
}
