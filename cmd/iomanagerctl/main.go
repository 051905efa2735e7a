package main

import (
	"github.com/spf13/cobra"

	"github.com/eser/iomanager/cmd/iomanagerctl/subcommands"
)

func main() {
	rootCmd := &cobra.Command{ //nolint:exhaustruct
		Use:   "iomanagerctl",
		Short: "iomanager CLI for directory and transport diagnostics",
		Long: "iomanagerctl provides operational tooling for the iomanager fabric: " +
			"publishing and resolving directory entries, and stress-exercising " +
			"queue and pub-sub connections outside of a real DAQ process.",
	}

	rootCmd.AddCommand(subcommands.CmdID())
	rootCmd.AddCommand(subcommands.CmdPublish())
	rootCmd.AddCommand(subcommands.CmdResolve())
	rootCmd.AddCommand(subcommands.CmdQueueStress())
	rootCmd.AddCommand(subcommands.CmdPubSubStress())

	if err := rootCmd.Execute(); err != nil {
		panic(err)
	}
}
