package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/oneconcern/datalink/pkg/core"
)

var (
	// globals used to patch over calls to os.Exit() during test

	logFatalln = log.Fatalln
	osExit     = os.Exit
)

func wrapFatalln(msg string, err error) {
	if err == nil {
		logFatalln(msg)
	} else {
		logFatalln(fmt.Errorf(msg+": %w", err))
	}
}

// report prints the result of a command, and exits with its code on failure
func report(cmd *cobra.Command, res core.Result) {
	switch {
	case res.Failure():
		fmt.Fprintln(cmd.ErrOrStderr(), color.RedString("error: %s", res.Output))
		osExit(res.Code)
	case res.NothingToSync, res.AlreadyExists:
		fmt.Fprintln(cmd.OutOrStdout(), color.YellowString("%s", res.Output))
	default:
		fmt.Fprintln(cmd.OutOrStdout(), res.Output)
	}
}

// fail prints an error and exits with the failure code
func fail(cmd *cobra.Command, err error) {
	fmt.Fprintln(cmd.ErrOrStderr(), color.RedString("error: %v", err))
	osExit(core.CodeFailure)
}
