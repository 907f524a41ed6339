package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/PolarWolf314/tosk/cmd"
	"github.com/PolarWolf314/tosk/internal/ui"

	"github.com/common-nighthawk/go-figure"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "tosk",
	Short: "Tosk - encrypted configuration and GitHub backups for your planner.",
	Long: `Tosk keeps your planner's GitHub credentials in an encrypted configuration
file and backs up your task data to a GitHub repository, encrypted with a
passphrase of your choice.

Usage:
  tosk <command> [flags]

Available Commands:
  config     Manage the encrypted configuration
  backup     Back up and restore planner files

Run 'tosk help <command>' for more details on a specific command.
`,
	SilenceErrors: true,
	SilenceUsage:  true,
	Run: func(c *cobra.Command, args []string) {
		figure.NewColorFigure("Tosk", "alligator2", "green", true).Print()
		fmt.Println()
		fmt.Println("Welcome to Tosk! Run 'tosk --help' to see available commands.")
	},
}

func init() {
	rootCmd.AddCommand(cmd.GetConfigCmd())
	rootCmd.AddCommand(cmd.GetBackupCmd())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if !cmd.IsReported(err) {
			fmt.Println(ui.Error.Sprint("✗") + " " + err.Error())
		}
		stop()
		os.Exit(1)
	}
}
