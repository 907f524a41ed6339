package cmd

import (
	"fmt"
	"os"

	"github.com/PolarWolf314/tosk/internal/ui"
	"github.com/spf13/cobra"
)

func init() {
	ConfigCmd.AddCommand(configPathCmd)
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print where tosk keeps its files",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := loadEnvironment(ConfigLogger)
		if err != nil {
			fmt.Println(formatError(err))
			return &reportedError{err}
		}

		rows := []struct{ label, path string }{
			{"Config directory", env.paths.ConfigDir},
			{"Encrypted config", env.paths.ConfigFile()},
			{"Preferences", env.paths.PreferencesFile()},
			{"History", env.paths.HistoryFile()},
			{"Data directory", env.prefs.DataDir},
		}
		for _, r := range rows {
			_, statErr := os.Stat(r.path)
			state := ""
			if statErr != nil {
				state = " " + ui.Muted.Sprint("missing")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %-18s %s%s\n", ui.Mark(statErr == nil), r.label+":", r.path, state)
		}
		return nil
	},
}
