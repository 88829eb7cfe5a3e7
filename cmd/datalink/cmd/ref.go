package cmd

import (
	"github.com/spf13/cobra"
)

var addrefCmd = &cobra.Command{
	Use:   "addref [path]",
	Short: "Register a working copy as a content copy of its data set",
	Long: `Register a working copy as a content copy of its current data set.

A working copy copied by other means than clone becomes a repository of its own.
Registering a content copy twice is reported, not an error.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := commandContext()
		defer cancel()
		report(cmd, newDatalink().Addref(ctx, pathArg(args)))
	},
}

var removerefCmd = &cobra.Command{
	Use:   "removeref [path]",
	Short: "Unregister a content copy",
	Long: `Remove the content copy at path from its data set.

With --data-set, the path needs not hold a working copy anymore.
A missing content copy fails with "content copy not found".`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := commandContext()
		defer cancel()
		report(cmd, newDatalink().Removeref(ctx, pathArg(args), datalinkFlags.ref.dataSetID))
	},
}

var recoverCmd = &cobra.Command{
	Use:   "recover [path]",
	Short: "Clear the commands interrupted on a working copy",
	Long: `Clear the commands interrupted on a working copy.

A data set created by an interrupted commit becomes the current data set of the working copy.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := commandContext()
		defer cancel()
		report(cmd, newDatalink().Recover(ctx, pathArg(args)))
	},
}

func init() {
	addDataSetFlag(removerefCmd)
	rootCmd.AddCommand(addrefCmd, removerefCmd, recoverCmd)
}
