package cmd

import (
	"github.com/spf13/cobra"

	"github.com/oneconcern/datalink/pkg/core"
)

var commitCmd = &cobra.Command{
	Use:   "commit [path]",
	Short: "Commit a working copy and register a new data set",
	Long: `Commit the changes of a working copy, then register the commit as a new linked data set.

The new data set has the previous data set of the working copy as a parent.
The user, the data set type, the catalog url and an object or a collection must be set beforehand.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := commandContext()
		defer cancel()
		report(cmd, newDatalink().Commit(ctx, pathArg(args), core.CommitOptions{
			Message:             datalinkFlags.commit.message,
			AutoAdd:             datalinkFlags.commit.autoAdd,
			IgnoreMissingParent: !datalinkFlags.commit.strictParents,
			Properties:          datalinkFlags.commit.properties,
		}))
	},
}

var syncCmd = &cobra.Command{
	Use:   "sync [path]",
	Short: "Commit a working copy, unless the catalog is up to date",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := commandContext()
		defer cancel()
		report(cmd, newDatalink().Sync(ctx, pathArg(args), core.SyncOptions{
			IgnoreMissingParent: !datalinkFlags.commit.strictParents,
			Properties:          datalinkFlags.commit.properties,
		}))
	},
}

func init() {
	addMessageFlag(commitCmd)
	addAutoAddFlag(commitCmd)
	for _, c := range []*cobra.Command{commitCmd, syncCmd} {
		addStrictParentsFlag(c)
		addPropertyFlag(c)
		rootCmd.AddCommand(c)
	}
}
