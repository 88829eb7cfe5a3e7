package cmd

import (
	"github.com/spf13/cobra"

	"github.com/oneconcern/datalink/pkg/core"
)

var downloadCmd = &cobra.Command{
	Use:   "download <data set>",
	Short: "Download files of a data set",
	Long: `Download files of a linked data set from one of its content copies, through the catalog file service.

Files land in a folder named after the data set. Partial files are resumed, complete files are skipped.
Nothing is registered in the catalog.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := commandContext()
		defer cancel()
		report(cmd, newDatalink().Download(ctx, args[0], core.DownloadOptions{
			ContentCopyIndex:   datalinkFlags.copy.index.Value(),
			Files:              datalinkFlags.copy.files,
			SkipIntegrityCheck: datalinkFlags.copy.skipIntegrityCheck,
			Destination:        datalinkFlags.copy.destination,
		}))
	},
}

func init() {
	addContentCopyIndexFlag(downloadCmd)
	addFilesFlag(downloadCmd)
	addSkipIntegrityCheckFlag(downloadCmd)
	addDestinationFlag(downloadCmd)
	rootCmd.AddCommand(downloadCmd)
}
