package cmd

import (
	logger "github.com/PolarWolf314/tosk/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	configVerbose       bool
	configDebug         bool
	configPasswordStdin bool
	ConfigLogger        logger.Logger

	// ConfigCmd groups the commands that manage config.enc.
	ConfigCmd = &cobra.Command{
		Use:   "config",
		Short: "Manage the encrypted Tosk configuration",
		Long: `Provides commands for managing the encrypted configuration that holds
your GitHub token, backup repository and backup passphrase.

The configuration is stored encrypted under a master password. Set
TOSK_MASTER_PASSWORD or pass --password-stdin to avoid the prompt.

Examples:
  # Create the configuration on first run
  tosk config init

  # Show the configuration with secrets redacted
  tosk config show

  # Change the master password
  tosk config passwd

  # Print where tosk keeps its files
  tosk config path`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			ConfigLogger = logger.Logger{
				Verbose: configVerbose,
				Debug:   configDebug,
			}
			ConfigLogger.Debugf("config %s: verbose=%t debug=%t password-stdin=%t", cmd.Name(), configVerbose, configDebug, configPasswordStdin)
		},
	}
)

func init() {
	flags := ConfigCmd.PersistentFlags()
	flags.BoolVarP(&configVerbose, "verbose", "v", false, "enable verbose output")
	flags.BoolVarP(&configDebug, "debug", "d", false, "enable debug output")
	flags.BoolVar(&configPasswordStdin, "password-stdin", false, "read the master password from stdin")
}

// GetConfigCmd returns ConfigCmd so tests can mount it on their own root.
func GetConfigCmd() *cobra.Command {
	return ConfigCmd
}

// ResetConfigState clears flag values left over from a previous test run.
func ResetConfigState() {
	configVerbose = false
	configDebug = false
	configPasswordStdin = false
	resetConfigInitState()
	resetConfigShowState()
	resetConfigFlags()
}

func resetConfigFlags() {
	reset := func(flag *pflag.Flag) {
		flag.Changed = false
	}
	ConfigCmd.Flags().VisitAll(reset)
	ConfigCmd.PersistentFlags().VisitAll(reset)
	for _, sub := range ConfigCmd.Commands() {
		sub.Flags().VisitAll(reset)
	}
}
