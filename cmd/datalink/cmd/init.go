package cmd

import (
	"github.com/spf13/cobra"

	"github.com/oneconcern/datalink/pkg/core"
)

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Initialize a working copy",
	Long: `Initialize a git working copy, with git-annex for large files, ready to be committed to the catalog.

The working copy gets no identity until its first commit.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := commandContext()
		defer cancel()
		d := newDatalink(core.WithAnnex(!datalinkFlags.init.noAnnex))
		report(cmd, d.Init(ctx, pathArg(args), initOptions()))
	},
}

var initAnalysisCmd = &cobra.Command{
	Use:   "init_analysis <parent> [path]",
	Short: "Initialize an analysis working copy inside a parent working copy",
	Long: `Initialize a working copy inside a parent working copy, which ignores it.

Each data set committed from the analysis has the current data set of the parent as a parent.`,
	Args: cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := commandContext()
		defer cancel()
		d := newDatalink(core.WithAnnex(!datalinkFlags.init.noAnnex))
		report(cmd, d.InitAnalysis(ctx, pathArg(args[1:]), args[0], initOptions()))
	},
}

func initOptions() core.InitOptions {
	return core.InitOptions{
		Description:  datalinkFlags.init.description,
		ObjectID:     datalinkFlags.init.objectID,
		CollectionID: datalinkFlags.init.collectionID,
	}
}

func init() {
	for _, c := range []*cobra.Command{initCmd, initAnalysisCmd} {
		addDescriptionFlag(c)
		addObjectFlag(c)
		addCollectionFlag(c)
		addNoAnnexFlag(c)
		rootCmd.AddCommand(c)
	}
}
