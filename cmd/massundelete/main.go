package main

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/mdarezzo/massundelete/internal/debug"
	"github.com/mdarezzo/massundelete/internal/errors"
)

func init() {
	// don't import `go.uber.org/automaxprocs` to disable the log output
	_, _ = maxprocs.Set()
}

var version = "0.2.0-dev (compiled manually)"

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "massundelete",
		Short: "Restore soft-deleted paths in an Azure storage container",
		Long: `
massundelete restores every soft-deleted path in an Azure Data Lake Storage
Gen2 container. It lists the deleted paths, restores shallow paths before deep
ones and adapts the number of concurrent restore calls to what the service is
willing to handle.

EXIT STATUS
===========

Exit status is 0 if the command was successful.
Exit status is 1 if there was any error.
`,
		SilenceErrors:     true,
		SilenceUsage:      true,
		DisableAutoGenTag: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := globalOptions.PreRun(); err != nil {
				return err
			}
			return runRestore(cmd.Context(), restoreOptions, globalOptions)
		},
	}

	globalOptions.AddFlags(cmd.PersistentFlags())
	restoreOptions.AddFlags(cmd.Flags())

	cmd.AddCommand(newVersionCommand())

	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:               "version",
		Short:             "Print version information",
		DisableAutoGenTag: true,
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("massundelete %s compiled with %v on %v/%v\n",
				version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}

func main() {
	debug.Log("main %#v", os.Args)

	ctx := createGlobalContext()
	err := newRootCommand().ExecuteContext(ctx)

	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		fmt.Fprintf(os.Stderr, "massundelete was interrupted\n")
	case errors.IsFatal(err):
		fmt.Fprintf(os.Stderr, "%v\n", err)
	default:
		fmt.Fprintf(os.Stderr, "%+v\n", err)
	}

	var exitCode int
	switch {
	case err == nil:
		exitCode = 0
	case errors.Is(err, context.Canceled):
		exitCode = 130
	default:
		exitCode = 1
	}
	Exit(exitCode)
}
