// Copyright © 2018 One Concern

package cmd

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/oneconcern/datalink/pkg/config"
	"github.com/oneconcern/datalink/pkg/dlogger"
)

const envPrefix = "DATALINK"

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "datalink",
	Short: "Datalink keeps track of data repositories in a catalog",
	Long: `Datalink keeps track of data repositories in a metadata catalog.

Data lives in git (and git-annex) working copies. Each commit of a working copy is
registered in the catalog as a linked data set, which knows every copy of the content.

Copies are cloned, moved or downloaded from the catalog, without any central storage.

Settings are resolved from the working copy first, then from the user settings (see --global).
`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return dlogger.ValidateLogLevel(viper.GetString("loglevel"))
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		osExit(1)
	}
}

func init() {
	log.SetFlags(0)
	cobra.OnInitialize(initConfig)

	viper.SetDefault("loglevel", dlogger.LogLevelWarn)
	if err := viper.BindPFlag("loglevel", rootCmd.PersistentFlags().Lookup(addLogLevel(rootCmd))); err != nil {
		logFatalln(err)
	}
}

// initConfig reads the DATALINK_* environment variables
func initConfig() {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	viper.SetDefault("home", config.DefaultHome())
}
