package cmd

import (
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status [path]",
	Short: "Show the changes and the identity of a working copy",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := commandContext()
		defer cancel()
		report(cmd, newDatalink().Status(ctx, pathArg(args)))
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
