package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/coursekit/coursekit/cmd/notify"
	"github.com/coursekit/coursekit/cmd/util"
)

const (
	Version = "0.3.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "coursekit",
		Short: "pluggable learning content runtime",
		Long: fmt.Sprintf(`coursekit (v%s)

A pluggable content runtime with scoped field storage and a
user-notification store, plus operational tooling for both.`, Version),
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of coursekit",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("coursekit v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(notify.NotifyCommands)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	RootCmd.PersistentFlags().String("log", "dev", util.WrapString("log mode to use (dev, prod)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
