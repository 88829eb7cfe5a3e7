package cmd

import (
	"github.com/spf13/cobra"

	"github.com/oneconcern/datalink/pkg/core"
)

var cloneCmd = &cobra.Command{
	Use:   "clone <data set>",
	Short: "Clone a content copy of a data set",
	Long: `Copy a content copy of a linked data set with rsync, over ssh for other hosts,
then register the clone as a new content copy.

The clone is checked out at the commit of the content copy, and checked against the file manifest.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := commandContext()
		defer cancel()
		report(cmd, newDatalink().Clone(ctx, args[0], cloneOptions()))
	},
}

var moveCmd = &cobra.Command{
	Use:   "move <data set>",
	Short: "Clone a content copy of a data set, then unregister the source",
	Long: `Clone a content copy of a linked data set, then remove the source content copy from the data set.

The source files are not deleted.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := commandContext()
		defer cancel()
		report(cmd, newDatalink().Move(ctx, args[0], cloneOptions()))
	},
}

func cloneOptions() core.CloneOptions {
	return core.CloneOptions{
		SSHUser:            datalinkFlags.copy.sshUser,
		ContentCopyIndex:   datalinkFlags.copy.index.Value(),
		SkipIntegrityCheck: datalinkFlags.copy.skipIntegrityCheck,
		Destination:        datalinkFlags.copy.destination,
	}
}

func init() {
	for _, c := range []*cobra.Command{cloneCmd, moveCmd} {
		addSSHUserFlag(c)
		addContentCopyIndexFlag(c)
		addSkipIntegrityCheckFlag(c)
		addDestinationFlag(c)
		rootCmd.AddCommand(c)
	}
}
